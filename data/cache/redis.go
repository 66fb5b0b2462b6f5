package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/crypto_vault_tracker/config"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
	"github.com/redis/go-redis/v9"
)

const latestPortfolioKey = "portfolio:latest"

var ErrCacheMiss = errors.New("cache miss")

// setLatestScript writes ARGV[1] unless the cached view belongs to a later minute than ARGV[2].
// Minute keys are fixed width, so string order is time order.
var setLatestScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
	local ok, decoded = pcall(cjson.decode, current)
	if ok and type(decoded) == 'table' and type(decoded['minute_key']) == 'string' and decoded['minute_key'] > ARGV[2] then
		return 0
	end
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

// SetLatestPortfolio caches view unless a view of a later minute is already cached.
func (r *RedisCache) SetLatestPortfolio(ctx context.Context, view model.PortfolioView) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "RedisCache.SetLatestPortfolio"))

	payload, err := json.Marshal(view)
	if err != nil {
		slog.Error(
			"can't marshal portfolio view",
			slog.String("rqID", rqID),
			slog.String("op", "RedisCache.SetLatestPortfolio"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("marshal portfolio view: %w", err)
	}

	ttl := r.cfg.Cache.LatestPortfolioExpiration.Milliseconds()
	written, err := setLatestScript.Run(ctx, r.redis, []string{latestPortfolioKey}, string(payload), view.MinuteKey, ttl).Int64()
	if err != nil {
		slog.Error("failed on set latest script", slog.String("rqID", rqID), slog.String("op", "RedisCache.SetLatestPortfolio"), slog.String("err", err.Error()))
		return err
	}
	if written == 0 {
		slog.Debug(
			"newer view already cached, skipped",
			slog.String("rqID", rqID),
			slog.String("op", "RedisCache.SetLatestPortfolio"),
			slog.String("minuteKey", view.MinuteKey),
		)
		return nil
	}

	slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "RedisCache.SetLatestPortfolio"))

	return nil
}

// GetLatestPortfolio returns ErrCacheMiss when nothing is cached.
func (r *RedisCache) GetLatestPortfolio(ctx context.Context) (model.PortfolioView, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "RedisCache.GetLatestPortfolio"))

	res, err := r.redis.Get(ctx, latestPortfolioKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.PortfolioView{}, ErrCacheMiss
	}
	if err != nil {
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("op", "RedisCache.GetLatestPortfolio"), slog.String("err", err.Error()))
		return model.PortfolioView{}, err
	}

	view := model.PortfolioView{}
	if err = json.Unmarshal(res, &view); err != nil {
		slog.Error(
			"can't unmarshal portfolio view",
			slog.String("rqID", rqID),
			slog.String("op", "RedisCache.GetLatestPortfolio"),
			slog.String("err", err.Error()),
		)
		return model.PortfolioView{}, fmt.Errorf("unmarshal portfolio view: %w", err)
	}

	slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "RedisCache.GetLatestPortfolio"))

	return view, nil
}

func (r *RedisCache) InvalidateLatestPortfolio(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if err := r.redis.Del(ctx, latestPortfolioKey).Err(); err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("op", "RedisCache.InvalidateLatestPortfolio"), slog.String("err", err.Error()))
		return err
	}

	return nil
}
