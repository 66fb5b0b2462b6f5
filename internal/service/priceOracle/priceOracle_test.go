package priceOracle

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/internal/metrics"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name   string
	prices model.PriceSet
	err    error
	calls  int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) FetchPrices(context.Context) (model.PriceSet, error) {
	p.calls++
	if p.err != nil {
		return model.PriceSet{}, p.err
	}
	return p.prices, nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	fetches map[string]int
}

func (r *fakeRecorder) PriceFetch(source, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetches == nil {
		r.fetches = map[string]int{}
	}
	r.fetches[source+"/"+result]++
}

func realPrices(source string) model.PriceSet {
	return model.PriceSet{
		BtcPrice:  decimal.NewFromInt(100000),
		EthPrice:  decimal.NewFromInt(2500),
		UsdcPrice: decimal.NewFromInt(1),
		BtcChange: decimal.NewFromInt(2),
		EthChange: decimal.NewFromInt(1),
		Trend:     1,
		Source:    source,
	}
}

func TestFetchPrices_PrimarySucceeds(t *testing.T) {
	primary := &stubProvider{name: "primary", prices: realPrices("primary")}
	secondary := &stubProvider{name: "secondary", prices: realPrices("secondary")}
	rec := &fakeRecorder{}

	oracle := New(NewSimulated(rand.NewSource(1)), rec, primary, secondary)
	prices := oracle.FetchPrices(context.Background())

	assert.Equal(t, "primary", prices.Source)
	assert.Equal(t, 0, secondary.calls)
	assert.Equal(t, 1, rec.fetches["primary/"+metrics.FetchSucceeded])
}

func TestFetchPrices_FallsBackToSecondary(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("timeout")}
	secondaryPrices := realPrices("secondary")
	secondaryPrices.BtcChange = decimal.Zero
	secondaryPrices.EthChange = decimal.Zero
	secondaryPrices.MissingChanges = true
	secondary := &stubProvider{name: "secondary", prices: secondaryPrices}
	rec := &fakeRecorder{}

	oracle := New(NewSimulated(rand.NewSource(7)), rec, primary, secondary)
	prices := oracle.FetchPrices(context.Background())

	assert.Equal(t, "secondary", prices.Source)
	assert.True(t, prices.BtcPrice.Equal(decimal.NewFromInt(100000)))
	assert.False(t, prices.MissingChanges)
	assert.False(t, prices.BtcChange.IsZero(), "changes are filled in for price-only providers")
	assert.True(t, prices.BtcChange.Abs().LessThan(decimal.NewFromInt(5)))
	assert.Equal(t, 1, rec.fetches["primary/"+metrics.FetchFailed])
	assert.Equal(t, 1, rec.fetches["secondary/"+metrics.FetchSucceeded])
}

func TestFetchPrices_AllFailUsesSimulated(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("down")}
	secondary := &stubProvider{name: "secondary", err: context.DeadlineExceeded}
	rec := &fakeRecorder{}

	oracle := New(NewSimulated(rand.NewSource(42)), rec, primary, secondary)
	prices := oracle.FetchPrices(context.Background())

	assert.Equal(t, SimulatedSource, prices.Source)
	assert.True(t, prices.BtcPrice.IsPositive())
	assert.True(t, prices.EthPrice.IsPositive())
	assert.True(t, prices.UsdcPrice.Equal(decimal.NewFromInt(1)))
	assert.Contains(t, []int{1, -1}, prices.Trend)
	assert.Equal(t, 1, rec.fetches[SimulatedSource+"/"+metrics.FetchSucceeded])
}

func TestSimulated_Bounds(t *testing.T) {
	sim := NewSimulated(rand.NewSource(3))

	for i := 0; i < 1000; i++ {
		prices, err := sim.FetchPrices(context.Background())
		require.NoError(t, err)

		assert.True(t, prices.BtcChange.Abs().LessThan(decimal.NewFromInt(5)))
		assert.True(t, prices.EthChange.Abs().LessThan(decimal.NewFromInt(4)))
		assert.True(t, prices.BtcPrice.GreaterThanOrEqual(decimal.NewFromInt(103870)))
		assert.True(t, prices.BtcPrice.LessThanOrEqual(decimal.NewFromInt(105870)))
		assert.True(t, prices.EthPrice.GreaterThanOrEqual(decimal.NewFromInt(2480)))
		assert.True(t, prices.EthPrice.LessThanOrEqual(decimal.NewFromInt(2580)))
	}
}

func TestSimulated_Deterministic(t *testing.T) {
	first, _ := NewSimulated(rand.NewSource(99)).FetchPrices(context.Background())
	second, _ := NewSimulated(rand.NewSource(99)).FetchPrices(context.Background())

	assert.Equal(t, first, second)
}

func TestGuarded_OpenBreakerSkipsProvider(t *testing.T) {
	inner := &stubProvider{name: "primary", err: errors.New("500")}
	guarded := NewGuarded(inner, 2, time.Minute, 0)

	for i := 0; i < 2; i++ {
		_, err := guarded.FetchPrices(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, guarded.State())

	_, err := guarded.FetchPrices(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls)
}

func TestGuarded_CancelledContext(t *testing.T) {
	inner := &stubProvider{name: "primary", prices: realPrices("primary")}
	guarded := NewGuarded(inner, 3, time.Minute, 0.001)

	// the first token is available immediately
	_, err := guarded.FetchPrices(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = guarded.FetchPrices(ctx)
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestProviderStates(t *testing.T) {
	failing := NewGuarded(&stubProvider{name: "coinmarketcap", err: errors.New("500")}, 1, time.Minute, 0)
	healthy := NewGuarded(&stubProvider{name: "api-ninjas", prices: realPrices("api-ninjas")}, 1, time.Minute, 0)
	plain := &stubProvider{name: "unguarded", prices: realPrices("unguarded")}

	oracle := New(NewSimulated(rand.NewSource(1)), &fakeRecorder{}, failing, healthy, plain)
	oracle.FetchPrices(context.Background())

	assert.Equal(t, map[string]string{
		"coinmarketcap": "open",
		"api-ninjas":    "closed",
	}, oracle.ProviderStates())
}
