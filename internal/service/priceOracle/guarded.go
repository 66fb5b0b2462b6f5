package priceOracle

import (
	"context"
	"fmt"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Guarded puts a circuit breaker and a token bucket in front of a real provider.
type Guarded struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
}

func NewGuarded(provider Provider, maxFailures uint32, openTimeout time.Duration, rps float64) *Guarded {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if maxFailures == 0 {
		maxFailures = 1
	}

	settings := gobreaker.Settings{
		Name:        provider.Name(),
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	}

	return &Guarded{
		provider: provider,
		breaker:  gobreaker.NewCircuitBreaker(settings),
		limiter:  rate.NewLimiter(limit, 1),
	}
}

func (g *Guarded) Name() string {
	return g.provider.Name()
}

func (g *Guarded) State() gobreaker.State {
	return g.breaker.State()
}

func (g *Guarded) FetchPrices(ctx context.Context) (model.PriceSet, error) {
	res, err := g.breaker.Execute(func() (interface{}, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		return g.provider.FetchPrices(ctx)
	})
	if err != nil {
		return model.PriceSet{}, err
	}

	return res.(model.PriceSet), nil
}
