package data

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient retries the initial ping with the postgres connection budget.
func NewRedisClient(cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: connTimeout,
	})

	var err error
	for attempt := 1; attempt <= defaultConnAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
		err = rdb.Ping(ctx).Err()
		cancel()
		if err == nil {
			break
		}

		slog.Info(
			"Redis is trying to connect",
			slog.Int("attempt", attempt),
			slog.Int("max attempts", defaultConnAttempts),
			slog.String("err", err.Error()),
		)
		time.Sleep(connRetryDelay)
	}

	if err != nil {
		slog.Error("Redis connection attempts exhausted", slog.String("addr", rdb.Options().Addr))
		panic(err)
	}
	slog.Info("Redis connected", slog.String("addr", rdb.Options().Addr), slog.Int("db", cfg.Redis.DB))

	return rdb
}
