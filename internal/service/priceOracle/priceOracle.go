package priceOracle

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/crypto_vault_tracker/internal/metrics"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
	"github.com/sony/gobreaker"
)

type Provider interface {
	Name() string
	FetchPrices(ctx context.Context) (model.PriceSet, error)
}

type Recorder interface {
	PriceFetch(source, result string)
}

type breakerState interface {
	State() gobreaker.State
}

// Oracle asks providers in order and falls back to the simulator, so a tick always gets prices.
type Oracle struct {
	providers []Provider
	simulated *Simulated
	recorder  Recorder
}

func New(simulated *Simulated, recorder Recorder, providers ...Provider) *Oracle {
	return &Oracle{
		providers: providers,
		simulated: simulated,
		recorder:  recorder,
	}
}

func (o *Oracle) FetchPrices(ctx context.Context) model.PriceSet {
	rqID := utils.GetRequestIDFromCtx(ctx)

	for _, provider := range o.providers {
		prices, err := provider.FetchPrices(ctx)
		if err != nil {
			slog.Warn(
				"price provider failed, trying next",
				slog.String("rqID", rqID),
				slog.String("op", "Oracle.FetchPrices"),
				slog.String("source", provider.Name()),
				slog.String("err", err.Error()),
			)
			o.recorder.PriceFetch(provider.Name(), metrics.FetchFailed)
			continue
		}

		if prices.MissingChanges {
			prices.BtcChange, prices.EthChange, prices.Trend = o.simulated.Changes()
			prices.MissingChanges = false
		}

		o.recorder.PriceFetch(provider.Name(), metrics.FetchSucceeded)
		slog.Info("prices fetched", slog.String("rqID", rqID), slog.String("source", prices.Source))

		return prices
	}

	prices, _ := o.simulated.FetchPrices(ctx)
	o.recorder.PriceFetch(SimulatedSource, metrics.FetchSucceeded)
	slog.Warn("all price providers failed, using simulated prices", slog.String("rqID", rqID))

	return prices
}

// ProviderStates reports the circuit breaker state of every guarded provider by name.
func (o *Oracle) ProviderStates() map[string]string {
	states := make(map[string]string, len(o.providers))
	for _, provider := range o.providers {
		if guarded, ok := provider.(breakerState); ok {
			states[provider.Name()] = guarded.State().String()
		}
	}
	return states
}
