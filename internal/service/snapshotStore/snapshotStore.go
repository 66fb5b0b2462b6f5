package snapshotStore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/config"
	"github.com/KotFed0t/crypto_vault_tracker/data/cache"
	"github.com/KotFed0t/crypto_vault_tracker/data/repository"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
	"github.com/jpillora/backoff"
	"golang.org/x/sync/errgroup"
)

const defaultChartWindow = 60

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	UpsertSnapshot(ctx context.Context, snapshot model.PortfolioSnapshot) error
	GetLatestSnapshot(ctx context.Context) (model.PortfolioSnapshot, error)
	GetSnapshots(ctx context.Context, limit int) ([]model.PortfolioSnapshot, error)
	ReplaceAssetPerformance(ctx context.Context, date, minuteKey string, assets []model.AssetPerformance) error
	GetAssetPerformanceByMinute(ctx context.Context, date, minuteKey string) ([]model.AssetPerformance, error)
	GetAssetPerformance(ctx context.Context, symbol *string, limit int) ([]model.AssetPerformance, error)
	UpsertChartPoint(ctx context.Context, point model.ChartPoint) error
	GetChartPoints(ctx context.Context, limit int) ([]model.ChartPoint, error)
	GetAllocationsByDate(ctx context.Context, date string) ([]model.Allocation, error)
	GetLatestAllocations(ctx context.Context) ([]model.Allocation, error)
}

type Cache interface {
	SetLatestPortfolio(ctx context.Context, view model.PortfolioView) error
	GetLatestPortfolio(ctx context.Context) (model.PortfolioView, error)
	InvalidateLatestPortfolio(ctx context.Context) error
}

type Recorder interface {
	PersistRetry()
}

type Store struct {
	cfg      *config.Config
	repo     Repository
	cache    Cache
	recorder Recorder
}

func New(cfg *config.Config, repo Repository, cache Cache, recorder Recorder) *Store {
	return &Store{cfg: cfg, repo: repo, cache: cache, recorder: recorder}
}

// RunInTransaction runs fn in one transaction and retries the whole of it, with
// exponential backoff, only when the database reports a serialization conflict.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	maxAttempts := s.cfg.Persist.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	b := &backoff.Backoff{
		Min:    s.cfg.Persist.MinBackoff,
		Max:    s.cfg.Persist.MaxBackoff,
		Factor: 2,
		Jitter: true,
	}

	for attempt := 1; ; attempt++ {
		err := s.repo.WithinTransaction(ctx, fn)
		if err == nil {
			return nil
		}

		if !errors.Is(err, repository.ErrSerialization) {
			return err
		}
		if attempt >= maxAttempts {
			return fmt.Errorf("transaction retries exhausted after %d attempts: %w", attempt, err)
		}

		delay := b.Duration()
		s.recorder.PersistRetry()
		slog.Warn(
			"serialization conflict, retrying transaction",
			slog.String("rqID", rqID),
			slog.String("op", "Store.RunInTransaction"),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Persist stores the snapshot, its asset rows and its chart point. It joins the caller's
// transaction when there is one; rerunning the same minute overwrites that minute's rows.
func (s *Store) Persist(ctx context.Context, result model.TickResult) error {
	snapshot := result.Snapshot

	return s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.UpsertSnapshot(ctx, snapshot); err != nil {
			return fmt.Errorf("upsert snapshot: %w", err)
		}
		if err := s.repo.ReplaceAssetPerformance(ctx, snapshot.Date, snapshot.MinuteKey, result.Assets); err != nil {
			return fmt.Errorf("replace asset performance: %w", err)
		}
		if err := s.repo.UpsertChartPoint(ctx, result.ChartPoint); err != nil {
			return fmt.Errorf("upsert chart point: %w", err)
		}
		return nil
	})
}

// Invalidate drops the cached latest view. Failures are logged only; the entry expires anyway.
func (s *Store) Invalidate(ctx context.Context) {
	if err := s.cache.InvalidateLatestPortfolio(ctx); err != nil {
		slog.Warn("cache invalidation failed", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
	}
}

// Latest serves the cached view and falls back to Refresh. ok is false when no tick was persisted yet.
func (s *Store) Latest(ctx context.Context) (view model.PortfolioView, ok bool, err error) {
	view, err = s.cache.GetLatestPortfolio(ctx)
	if err == nil {
		return view, true, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		slog.Warn("cache read failed, falling back to database", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
	}

	return s.Refresh(ctx)
}

// Refresh assembles the latest view from the database, bypassing the cache, and caches it.
// The cache keeps whichever of two concurrent fills has the later minute.
func (s *Store) Refresh(ctx context.Context) (view model.PortfolioView, ok bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	snapshot, err := s.repo.GetLatestSnapshot(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return model.PortfolioView{}, false, nil
	}
	if err != nil {
		return model.PortfolioView{}, false, err
	}

	var (
		allocations []model.Allocation
		assets      []model.AssetPerformance
		chart       []model.ChartPoint
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		allocations, err = s.repo.GetAllocationsByDate(gCtx, snapshot.Date)
		return err
	})
	g.Go(func() (err error) {
		assets, err = s.repo.GetAssetPerformanceByMinute(gCtx, snapshot.Date, snapshot.MinuteKey)
		return err
	})
	g.Go(func() (err error) {
		chart, err = s.repo.GetChartPoints(gCtx, s.chartWindow())
		return err
	})
	if err = g.Wait(); err != nil {
		return model.PortfolioView{}, false, err
	}

	view = buildView(snapshot, allocations, assets, chart)

	if err = s.cache.SetLatestPortfolio(ctx, view); err != nil {
		slog.Warn("cache fill failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}

	return view, true, nil
}

// PreviousNav is the ending NAV of the latest snapshot; ok is false on a cold start.
func (s *Store) PreviousNav(ctx context.Context) (snapshot model.PortfolioSnapshot, ok bool, err error) {
	snapshot, err = s.repo.GetLatestSnapshot(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return model.PortfolioSnapshot{}, false, nil
	}
	if err != nil {
		return model.PortfolioSnapshot{}, false, err
	}
	return snapshot, true, nil
}

// NavHistory returns up to limit points in ascending time order.
func (s *Store) NavHistory(ctx context.Context, limit int) ([]model.NavHistoryPoint, error) {
	snapshots, err := s.repo.GetSnapshots(ctx, limit)
	if err != nil {
		return nil, err
	}

	points := make([]model.NavHistoryPoint, 0, len(snapshots))
	for _, snapshot := range snapshots {
		points = append(points, model.NavHistoryPoint{
			Date:          snapshot.Date,
			MinuteKey:     snapshot.MinuteKey,
			EndingNav:     snapshot.EndingNav,
			GrowthPercent: snapshot.GrowthPercent,
			LastUpdated:   snapshot.UpdatedAt,
		})
	}

	return points, nil
}

// ChartData returns the newest limit snapshots as chart points, oldest first.
func (s *Store) ChartData(ctx context.Context, limit int) ([]model.ChartDataPoint, error) {
	snapshots, err := s.repo.GetSnapshots(ctx, limit)
	if err != nil {
		return nil, err
	}

	points := make([]model.ChartDataPoint, 0, len(snapshots))
	for _, snapshot := range snapshots {
		points = append(points, model.ChartDataPoint{
			Date:          snapshot.Date,
			MinuteKey:     snapshot.MinuteKey,
			Nav:           snapshot.EndingNav,
			GrowthPercent: snapshot.GrowthPercent,
		})
	}

	return points, nil
}

// Allocations returns the allocations of one date, or the latest row of every key when date is nil.
func (s *Store) Allocations(ctx context.Context, date *string) (map[string]model.AllocationView, error) {
	var (
		allocations []model.Allocation
		err         error
	)

	if date != nil {
		allocations, err = s.repo.GetAllocationsByDate(ctx, *date)
	} else {
		allocations, err = s.repo.GetLatestAllocations(ctx)
	}
	if err != nil {
		return nil, err
	}

	return allocationViews(allocations), nil
}

func (s *Store) AssetPerformance(ctx context.Context, symbol *string, limit int) ([]model.AssetPerformance, error) {
	return s.repo.GetAssetPerformance(ctx, symbol, limit)
}

func (s *Store) chartWindow() int {
	if s.cfg.Valuation.ChartWindow > 0 {
		return s.cfg.Valuation.ChartWindow
	}
	return defaultChartWindow
}

func buildView(
	snapshot model.PortfolioSnapshot,
	allocations []model.Allocation,
	assets []model.AssetPerformance,
	chart []model.ChartPoint,
) model.PortfolioView {
	assetMap := make(map[string]model.AssetPerformance, len(assets))
	for _, asset := range assets {
		assetMap[asset.Symbol] = asset
	}

	if chart == nil {
		chart = []model.ChartPoint{}
	}

	visualFlags := snapshot.VisualFlags
	if visualFlags == nil {
		visualFlags = model.VisualFlags{}
	}

	lastUpdated := snapshot.UpdatedAt
	if lastUpdated.IsZero() {
		lastUpdated = snapshot.CreatedAt
	}

	return model.PortfolioView{
		Date:        snapshot.Date,
		MinuteKey:   snapshot.MinuteKey,
		LastUpdated: lastUpdated,
		Nav: model.NavView{
			StartingNav:   snapshot.StartingNav,
			EndingNav:     snapshot.EndingNav,
			GrowthPercent: snapshot.GrowthPercent,
			ChartData:     chart,
		},
		Allocations:      allocationViews(allocations),
		AssetPerformance: assetMap,
		SystemStatus:     snapshot.SystemStatus,
		VisualFlags:      visualFlags,
		ReportText:       snapshot.ReportText,
		TeamNotes:        snapshot.TeamNotes,
		PriceSource:      snapshot.PriceSource,
	}
}

func allocationViews(allocations []model.Allocation) map[string]model.AllocationView {
	views := make(map[string]model.AllocationView, len(allocations))
	for _, allocation := range allocations {
		views[allocation.Key] = allocation.View()
	}
	return views
}
