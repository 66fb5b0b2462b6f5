package portfolioService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/config"
	"github.com/KotFed0t/crypto_vault_tracker/internal/metrics"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/scheduler"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service/allocationLedger"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
	"github.com/shopspring/decimal"
)

type Oracle interface {
	FetchPrices(ctx context.Context) model.PriceSet
	ProviderStates() map[string]string
}

type Engine interface {
	Compute(prices model.PriceSet, previousNav decimal.Decimal) (newNav, growth decimal.Decimal)
}

type Ledger interface {
	ApplyTick(ctx context.Context, tick model.Tick, totalNav, growthPercent decimal.Decimal, trend int) (map[string]model.AllocationView, error)
	Create(ctx context.Context, in allocationLedger.CreateInput) (model.AllocationView, error)
	Get(ctx context.Context, key string, date *string) (model.AllocationView, error)
	Update(ctx context.Context, key string, date *string, in allocationLedger.UpdateInput) (model.AllocationView, error)
	Delete(ctx context.Context, key string, date *string) error
}

type Store interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	Persist(ctx context.Context, result model.TickResult) error
	Invalidate(ctx context.Context)
	Latest(ctx context.Context) (model.PortfolioView, bool, error)
	Refresh(ctx context.Context) (model.PortfolioView, bool, error)
	PreviousNav(ctx context.Context) (model.PortfolioSnapshot, bool, error)
	NavHistory(ctx context.Context, limit int) ([]model.NavHistoryPoint, error)
	ChartData(ctx context.Context, limit int) ([]model.ChartDataPoint, error)
	Allocations(ctx context.Context, date *string) (map[string]model.AllocationView, error)
	AssetPerformance(ctx context.Context, symbol *string, limit int) ([]model.AssetPerformance, error)
}

type Guard interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
	State() scheduler.State
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Recorder interface {
	TickResult(result string)
	ObserveTick(seconds float64)
	SetNav(nav decimal.Decimal)
	SetAllocationBalance(key string, balance decimal.Decimal)
}

type PortfolioService struct {
	cfg      *config.Config
	oracle   Oracle
	engine   Engine
	ledger   Ledger
	store    Store
	guard    Guard
	db       Pinger
	recorder Recorder

	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func New(
	cfg *config.Config,
	oracle Oracle,
	engine Engine,
	ledger Ledger,
	store Store,
	guard Guard,
	db Pinger,
	recorder Recorder,
	src rand.Source,
) *PortfolioService {
	return &PortfolioService{
		cfg:      cfg,
		oracle:   oracle,
		engine:   engine,
		ledger:   ledger,
		store:    store,
		guard:    guard,
		db:       db,
		recorder: recorder,
		rnd:      rand.New(src),
		now:      time.Now,
	}
}

// ScheduledTick is the job body of the interval scheduler.
func (s *PortfolioService) ScheduledTick(ctx context.Context) error {
	return s.guard.Run(ctx, func(ctx context.Context) error {
		_, err := s.RunTick(ctx)
		return err
	})
}

// TriggerManualUpdate runs a tick now, or fails with service.ErrTickInProgress when one is running.
func (s *PortfolioService) TriggerManualUpdate(ctx context.Context) (model.PortfolioView, error) {
	var view model.PortfolioView

	err := s.guard.Run(ctx, func(ctx context.Context) (err error) {
		view, err = s.RunTick(ctx)
		return err
	})
	if err != nil {
		return model.PortfolioView{}, err
	}

	return view, nil
}

// RunTick values the portfolio once and commits the ledger and the snapshot together.
// Callers are expected to hold the tick guard.
func (s *PortfolioService) RunTick(ctx context.Context) (view model.PortfolioView, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	started := s.now()
	tick := model.NewTick(started)

	slog.Info("tick start", slog.String("rqID", rqID), slog.String("op", "PortfolioService.RunTick"), slog.String("minuteKey", tick.MinuteKey))
	defer func() {
		s.recorder.ObserveTick(s.now().Sub(started).Seconds())
		if err != nil {
			s.recorder.TickResult(metrics.TickFailed)
			slog.Error("tick failed", slog.String("rqID", rqID), slog.String("op", "PortfolioService.RunTick"), slog.String("err", err.Error()))
			return
		}
		s.recorder.TickResult(metrics.TickSucceeded)
		slog.Info(
			"tick completed",
			slog.String("rqID", rqID),
			slog.String("op", "PortfolioService.RunTick"),
			slog.String("nav", view.Nav.EndingNav.String()),
			slog.String("source", view.PriceSource),
		)
	}()

	prices := s.oracle.FetchPrices(ctx)

	var (
		result   model.TickResult
		balances map[string]model.AllocationView
	)
	err = s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		previousNav, err := s.previousNav(ctx)
		if err != nil {
			return err
		}

		newNav, growth := s.engine.Compute(prices, previousNav)
		result = s.buildTickResult(tick, prices, previousNav, newNav, growth)

		if balances, err = s.ledger.ApplyTick(ctx, tick, previousNav, growth, prices.Trend); err != nil {
			return fmt.Errorf("apply ledger: %w", err)
		}

		return s.store.Persist(ctx, result)
	})
	if err != nil {
		return model.PortfolioView{}, err
	}

	s.recorder.SetNav(result.Snapshot.EndingNav)
	for key, allocation := range balances {
		s.recorder.SetAllocationBalance(key, allocation.CurrentBalance)
	}

	// Read past the cache: a request that loaded the previous minute may still be filling it.
	view, ok, err := s.store.Refresh(ctx)
	if err != nil {
		return model.PortfolioView{}, err
	}
	if !ok {
		return model.PortfolioView{}, errors.New("committed snapshot not found")
	}

	return view, nil
}

// previousNav falls back to the configured initial NAV on a cold start.
func (s *PortfolioService) previousNav(ctx context.Context) (decimal.Decimal, error) {
	snapshot, ok, err := s.store.PreviousNav(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("previous nav: %w", err)
	}
	if !ok {
		slog.Info("no previous snapshot, starting from initial nav", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)))
		return s.cfg.Valuation.InitialNav, nil
	}
	return snapshot.EndingNav, nil
}

func (s *PortfolioService) Latest(ctx context.Context) (model.PortfolioView, error) {
	view, ok, err := s.store.Latest(ctx)
	if err != nil {
		return model.PortfolioView{}, err
	}
	if !ok {
		return model.PortfolioView{}, service.ErrNotFound
	}
	return view, nil
}

func (s *PortfolioService) NavHistory(ctx context.Context, limit int) ([]model.NavHistoryPoint, error) {
	return s.store.NavHistory(ctx, limit)
}

func (s *PortfolioService) Allocations(ctx context.Context, date *string) (map[string]model.AllocationView, error) {
	return s.store.Allocations(ctx, date)
}

func (s *PortfolioService) AssetPerformance(ctx context.Context, symbol *string, limit int) ([]model.AssetPerformance, error) {
	return s.store.AssetPerformance(ctx, symbol, limit)
}

var periodDays = map[string]int{
	"7d":  7,
	"30d": 30,
	"90d": 90,
	"1y":  365,
}

func (s *PortfolioService) ChartData(ctx context.Context, period string) ([]model.ChartDataPoint, error) {
	days, ok := periodDays[period]
	if !ok {
		return nil, fmt.Errorf("%w: unknown period %q", service.ErrInvalidInput, period)
	}
	return s.store.ChartData(ctx, days)
}

func (s *PortfolioService) Summary(ctx context.Context) (model.PortfolioSummary, error) {
	view, err := s.Latest(ctx)
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	keys := make([]string, 0, len(view.Allocations))
	for key := range view.Allocations {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	breakdown := make([]model.AllocationBreakdown, 0, len(keys))
	for _, key := range keys {
		allocation := view.Allocations[key]
		item := model.AllocationBreakdown{
			Key:           key,
			Name:          allocation.Name,
			EndingBalance: allocation.CurrentBalance,
		}
		if n := len(allocation.History); n > 0 {
			item.MinuteGainPercent = allocation.History[n-1].MinuteGainPercent
		}
		breakdown = append(breakdown, item)
	}

	return model.PortfolioSummary{
		Nav:                 view.Nav.EndingNav,
		TotalAllocations:    len(breakdown),
		AllocationBreakdown: breakdown,
		DailyReport:         view.ReportText,
		LastUpdated:         view.LastUpdated,
	}, nil
}

func (s *PortfolioService) SystemStatus(ctx context.Context) (model.SystemStatusView, error) {
	view, err := s.Latest(ctx)
	if err != nil {
		return model.SystemStatusView{}, err
	}

	return model.SystemStatusView{
		SystemStatus: view.SystemStatus,
		LastUpdated:  view.LastUpdated,
		VisualFlags:  view.VisualFlags,
		TeamNotes:    view.TeamNotes,
	}, nil
}

func (s *PortfolioService) CurrentPrices(ctx context.Context) (model.CurrentPrices, error) {
	view, err := s.Latest(ctx)
	if err != nil {
		return model.CurrentPrices{}, err
	}

	res := model.CurrentPrices{LastUpdated: view.LastUpdated}
	if btc, ok := view.AssetPerformance[string(model.AssetBTC)]; ok {
		res.BTC = &btc
	}
	if eth, ok := view.AssetPerformance[string(model.AssetETH)]; ok {
		res.ETH = &eth
	}

	return res, nil
}

// Health reports healthy only when the database answers and the last tick used real prices.
func (s *PortfolioService) Health(ctx context.Context) (model.HealthStatus, bool) {
	status := model.HealthStatus{
		Status:    "unhealthy",
		Timestamp: s.now().UTC(),
		Scheduler: s.guard.State().String(),
		Providers: s.oracle.ProviderStates(),
	}

	if err := s.db.Ping(ctx); err != nil {
		slog.Warn("database ping failed", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
		return status, false
	}
	status.Database = true

	view, ok, err := s.store.Latest(ctx)
	if err != nil || !ok {
		return status, false
	}

	lastUpdate := view.LastUpdated
	status.LastUpdate = &lastUpdate
	status.ApiIntegration = view.SystemStatus.LastSyncSuccess

	if status.ApiIntegration {
		status.Status = "healthy"
	}

	return status, status.ApiIntegration
}
