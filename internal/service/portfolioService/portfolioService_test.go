package portfolioService

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/config"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/scheduler"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service/allocationLedger"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service/priceOracle"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service/valuation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixedOracle struct {
	prices model.PriceSet
}

func (o fixedOracle) FetchPrices(context.Context) model.PriceSet { return o.prices }

func (o fixedOracle) ProviderStates() map[string]string {
	return map[string]string{"coinmarketcap": "open"}
}

type ledgerCall struct {
	tick     model.Tick
	totalNav decimal.Decimal
	growth   decimal.Decimal
	trend    int
}

type fakeLedger struct {
	calls []ledgerCall
	views map[string]model.AllocationView
	err   error
}

func (l *fakeLedger) ApplyTick(_ context.Context, tick model.Tick, totalNav, growth decimal.Decimal, trend int) (map[string]model.AllocationView, error) {
	l.calls = append(l.calls, ledgerCall{tick: tick, totalNav: totalNav, growth: growth, trend: trend})
	if l.err != nil {
		return nil, l.err
	}
	return l.views, nil
}

func (l *fakeLedger) Create(_ context.Context, in allocationLedger.CreateInput) (model.AllocationView, error) {
	if l.err != nil {
		return model.AllocationView{}, l.err
	}
	return model.AllocationView{Name: in.Name, CurrentBalance: in.InitialBalance}, nil
}

func (l *fakeLedger) Get(context.Context, string, *string) (model.AllocationView, error) {
	return model.AllocationView{}, l.err
}

func (l *fakeLedger) Update(context.Context, string, *string, allocationLedger.UpdateInput) (model.AllocationView, error) {
	return model.AllocationView{}, l.err
}

func (l *fakeLedger) Delete(context.Context, string, *string) error {
	return l.err
}

type fakeStore struct {
	mu          sync.Mutex
	previous    *model.PortfolioSnapshot
	written     []model.TickResult
	cached      *model.PortfolioView
	invalidated int
	refreshed   int
	block       chan struct{}
}

func (s *fakeStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.block != nil {
		<-s.block
	}
	return fn(ctx)
}

func (s *fakeStore) Persist(_ context.Context, result model.TickResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, result)
	snapshot := result.Snapshot
	s.previous = &snapshot
	return nil
}

func (s *fakeStore) Invalidate(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated++
	s.cached = nil
}

func (s *fakeStore) Latest(context.Context) (model.PortfolioView, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return *s.cached, true, nil
	}
	return s.build()
}

func (s *fakeStore) Refresh(context.Context) (model.PortfolioView, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshed++
	view, ok, err := s.build()
	if ok {
		s.cached = &view
	}
	return view, ok, err
}

func (s *fakeStore) build() (model.PortfolioView, bool, error) {
	if s.previous == nil || len(s.written) == 0 {
		return model.PortfolioView{}, false, nil
	}
	last := s.written[len(s.written)-1]
	assets := map[string]model.AssetPerformance{}
	for _, a := range last.Assets {
		assets[a.Symbol] = a
	}
	return model.PortfolioView{
		Date:      s.previous.Date,
		MinuteKey: s.previous.MinuteKey,
		Nav: model.NavView{
			StartingNav:   s.previous.StartingNav,
			EndingNav:     s.previous.EndingNav,
			GrowthPercent: s.previous.GrowthPercent,
		},
		Allocations: map[string]model.AllocationView{
			"B": {Name: "Ethereum Allocation", CurrentBalance: d("2"), History: []model.AllocationHistoryEntry{{MinuteGainPercent: d("1.5")}}},
			"A": {Name: "Bitcoin Allocation", CurrentBalance: d("1")},
		},
		AssetPerformance: assets,
		SystemStatus:     s.previous.SystemStatus,
		ReportText:       s.previous.ReportText,
		PriceSource:      s.previous.PriceSource,
	}, true, nil
}

func (s *fakeStore) PreviousNav(context.Context) (model.PortfolioSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.previous == nil {
		return model.PortfolioSnapshot{}, false, nil
	}
	return *s.previous, true, nil
}

func (s *fakeStore) NavHistory(context.Context, int) ([]model.NavHistoryPoint, error) { return nil, nil }

func (s *fakeStore) ChartData(_ context.Context, limit int) ([]model.ChartDataPoint, error) {
	return make([]model.ChartDataPoint, limit), nil
}

func (s *fakeStore) Allocations(context.Context, *string) (map[string]model.AllocationView, error) {
	return nil, nil
}

func (s *fakeStore) AssetPerformance(context.Context, *string, int) ([]model.AssetPerformance, error) {
	return nil, nil
}

type nopRecorder struct{}

func (nopRecorder) TickResult(string)                           {}
func (nopRecorder) ObserveTick(float64)                         {}
func (nopRecorder) SetNav(decimal.Decimal)                      {}
func (nopRecorder) SetAllocationBalance(string, decimal.Decimal) {}

type balanceRecorder struct {
	nopRecorder
	balances map[string]decimal.Decimal
}

func (r *balanceRecorder) SetAllocationBalance(key string, balance decimal.Decimal) {
	r.balances[key] = balance
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func scenarioEngine() *valuation.Engine {
	return valuation.New(model.AllocationConfigs{
		{Key: "A", Name: "Bitcoin Allocation", Weight: d("0.5"), Asset: model.AssetBTC},
		{Key: "B", Name: "Ethereum Allocation", Weight: d("0.3"), Asset: model.AssetETH},
		{Key: "C", Name: "Stablecoin Allocation", Weight: d("0.2"), Asset: model.AssetStable},
	}, d("1"), valuation.DefaultStableYield)
}

func scenarioPrices() model.PriceSet {
	return model.PriceSet{
		BtcPrice:  d("104870"),
		EthPrice:  d("2530"),
		UsdcPrice: d("1"),
		BtcChange: d("2"),
		EthChange: d("1"),
		Trend:     1,
		Source:    priceOracle.SimulatedSource,
	}
}

func newTestService(store *fakeStore, ledger *fakeLedger) *PortfolioService {
	cfg := &config.Config{}
	cfg.Valuation.InitialNav = d("100000")

	s := New(cfg, fixedOracle{prices: scenarioPrices()}, scenarioEngine(), ledger, store,
		scheduler.NewTickGuard(nopRecorder{}), pinger{}, nopRecorder{}, rand.NewSource(1))
	s.now = func() time.Time { return time.Date(2025, 6, 1, 12, 30, 15, 0, time.UTC) }

	return s
}

func TestRunTick_ColdStartScenario(t *testing.T) {
	store := &fakeStore{}
	ledger := &fakeLedger{}
	s := newTestService(store, ledger)

	view, err := s.RunTick(context.Background())
	require.NoError(t, err)

	require.Len(t, ledger.calls, 1)
	call := ledger.calls[0]
	assert.Equal(t, "100000", call.totalNav.String())
	assert.Equal(t, "1.3028", call.growth.String())
	assert.Equal(t, "2025-06-01-12-30", call.tick.MinuteKey)

	require.Len(t, store.written, 1)
	written := store.written[0]
	assert.Equal(t, "100000", written.Snapshot.StartingNav.String())
	assert.Equal(t, "101302.8", written.Snapshot.EndingNav.String())
	assert.False(t, written.Snapshot.SystemStatus.LastSyncSuccess)
	assert.Equal(t, "Simulated Feed", written.Snapshot.TeamNotes.DataEntryMode)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC), written.ChartPoint.Datetime)
	require.Len(t, written.Assets, 2)

	assert.Equal(t, 1, store.refreshed)
	assert.Equal(t, "101302.8", view.Nav.EndingNav.String())
}

func TestRunTick_UsesPreviousSnapshot(t *testing.T) {
	store := &fakeStore{previous: &model.PortfolioSnapshot{EndingNav: d("200000")}}
	ledger := &fakeLedger{}
	s := newTestService(store, ledger)

	_, err := s.RunTick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "200000", ledger.calls[0].totalNav.String())
	assert.Equal(t, "202605.6", store.written[0].Snapshot.EndingNav.String())
}

func TestRunTick_LedgerFailureWritesNothing(t *testing.T) {
	store := &fakeStore{}
	ledger := &fakeLedger{err: errors.New("boom")}
	s := newTestService(store, ledger)

	_, err := s.RunTick(context.Background())
	assert.Error(t, err)
	assert.Empty(t, store.written)
	assert.Equal(t, 0, store.refreshed)
}

func TestRunTick_ReturnsCommittedMinuteOverStaleCache(t *testing.T) {
	stale := model.PortfolioView{MinuteKey: "2025-06-01-12-29", Nav: model.NavView{EndingNav: d("100000")}}
	store := &fakeStore{previous: &model.PortfolioSnapshot{EndingNav: d("100000")}, cached: &stale}
	s := newTestService(store, &fakeLedger{})

	view, err := s.TriggerManualUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01-12-30", view.MinuteKey)
	assert.Equal(t, "101302.8", view.Nav.EndingNav.String())

	latest, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01-12-30", latest.MinuteKey)
}

func TestRunTick_RecordsAllocationBalances(t *testing.T) {
	ledger := &fakeLedger{views: map[string]model.AllocationView{
		"A": {Name: "Bitcoin Allocation", CurrentBalance: d("50651.4")},
		"C": {Name: "Stablecoin Allocation", CurrentBalance: d("20000.028")},
	}}
	s := newTestService(&fakeStore{}, ledger)
	rec := &balanceRecorder{balances: map[string]decimal.Decimal{}}
	s.recorder = rec

	_, err := s.RunTick(context.Background())
	require.NoError(t, err)

	require.Len(t, rec.balances, 2)
	assert.Equal(t, "50651.4", rec.balances["A"].String())
	assert.Equal(t, "20000.028", rec.balances["C"].String())
}

func TestTriggerManualUpdate_BusyGuard(t *testing.T) {
	store := &fakeStore{block: make(chan struct{})}
	s := newTestService(store, &fakeLedger{})

	done := make(chan error)
	go func() { done <- s.ScheduledTick(context.Background()) }()

	require.Eventually(t, func() bool {
		return s.guard.State() == scheduler.StateRunning
	}, time.Second, 5*time.Millisecond)

	_, err := s.TriggerManualUpdate(context.Background())
	assert.ErrorIs(t, err, service.ErrTickInProgress)

	close(store.block)
	require.NoError(t, <-done)

	_, err = s.TriggerManualUpdate(context.Background())
	assert.NoError(t, err)
}

func TestLatest_NotFound(t *testing.T) {
	s := newTestService(&fakeStore{}, &fakeLedger{})

	_, err := s.Latest(context.Background())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestChartData_Periods(t *testing.T) {
	s := newTestService(&fakeStore{}, &fakeLedger{})

	points, err := s.ChartData(context.Background(), "30d")
	require.NoError(t, err)
	assert.Len(t, points, 30)

	_, err = s.ChartData(context.Background(), "2w")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestSummaryAndPrices(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store, &fakeLedger{})

	_, err := s.RunTick(context.Background())
	require.NoError(t, err)

	summary, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalAllocations)
	assert.Equal(t, "A", summary.AllocationBreakdown[0].Key)
	assert.Equal(t, "1.5", summary.AllocationBreakdown[1].MinuteGainPercent.String())

	prices, err := s.CurrentPrices(context.Background())
	require.NoError(t, err)
	require.NotNil(t, prices.BTC)
	assert.Equal(t, "104870", prices.BTC.Close.String())
	assert.Equal(t, "102772.6", prices.BTC.Open.String())
}

func TestHealth(t *testing.T) {
	store := &fakeStore{}
	s := newTestService(store, &fakeLedger{})

	status, healthy := s.Health(context.Background())
	assert.False(t, healthy)
	assert.True(t, status.Database)
	assert.Equal(t, "idle", status.Scheduler)
	assert.Equal(t, map[string]string{"coinmarketcap": "open"}, status.Providers)

	s.db = pinger{err: errors.New("down")}
	status, healthy = s.Health(context.Background())
	assert.False(t, healthy)
	assert.False(t, status.Database)
}

func TestDailyReport(t *testing.T) {
	tick := model.NewTick(time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC))

	text := dailyReport(tick, d("1.3028"), d("2"), d("-1.234"))

	assert.Equal(t,
		"June 1 delivered gains with 1.30% portfolio movement as BTC surged 2.00% while ETH lagged behind with 1.23% change. "+
			"Automated rebalancing systems maintained optimal exposure across all asset classes.",
		text)
}

func TestAllocationWritesInvalidateCache(t *testing.T) {
	store := &fakeStore{}
	ledger := &fakeLedger{}
	s := newTestService(store, ledger)

	view, err := s.CreateAllocation(context.Background(), allocationLedger.CreateInput{Key: "D", Name: "Dry powder", InitialBalance: d("10")})
	require.NoError(t, err)
	assert.Equal(t, "Dry powder", view.Name)
	assert.Equal(t, 1, store.invalidated)

	require.NoError(t, s.DeleteAllocation(context.Background(), "D", nil))
	assert.Equal(t, 2, store.invalidated)

	ledger.err = service.ErrNotFound
	_, err = s.UpdateAllocation(context.Background(), "D", nil, allocationLedger.UpdateInput{})
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, 2, store.invalidated)
}
