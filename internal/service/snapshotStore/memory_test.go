package snapshotStore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/data/cache"
	"github.com/KotFed0t/crypto_vault_tracker/data/repository"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/shopspring/decimal"
)

type minuteID struct {
	date      string
	minuteKey string
}

// memRepo keeps rows keyed the way the tables are constrained.
type memRepo struct {
	mu          sync.Mutex
	snapshots   map[minuteID]model.PortfolioSnapshot
	assets      map[minuteID][]model.AssetPerformance
	chart       map[time.Time]model.ChartPoint
	allocations []model.Allocation

	allocEntered chan struct{}
	allocRelease chan struct{}
}

func newMemRepo() *memRepo {
	return &memRepo{
		snapshots: make(map[minuteID]model.PortfolioSnapshot),
		assets:    make(map[minuteID][]model.AssetPerformance),
		chart:     make(map[time.Time]model.ChartPoint),
	}
}

// pauseNextAllocationRead blocks the next GetAllocationsByDate until release is closed.
func (r *memRepo) pauseNextAllocationRead(entered, release chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allocEntered, r.allocRelease = entered, release
}

func (r *memRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	return tFunc(ctx)
}

func (r *memRepo) UpsertSnapshot(_ context.Context, snapshot model.PortfolioSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[minuteID{snapshot.Date, snapshot.MinuteKey}] = snapshot
	return nil
}

func (r *memRepo) GetLatestSnapshot(context.Context) (model.PortfolioSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		latest model.PortfolioSnapshot
		found  bool
	)
	for _, snapshot := range r.snapshots {
		if !found || snapshot.MinuteKey > latest.MinuteKey {
			latest, found = snapshot, true
		}
	}
	if !found {
		return model.PortfolioSnapshot{}, repository.ErrNotFound
	}
	return latest, nil
}

func (r *memRepo) GetSnapshots(_ context.Context, limit int) ([]model.PortfolioSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]model.PortfolioSnapshot, 0, len(r.snapshots))
	for _, snapshot := range r.snapshots {
		res = append(res, snapshot)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].MinuteKey < res[j].MinuteKey })
	if len(res) > limit {
		res = res[len(res)-limit:]
	}
	return res, nil
}

func (r *memRepo) ReplaceAssetPerformance(_ context.Context, date, minuteKey string, assets []model.AssetPerformance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[minuteID{date, minuteKey}] = append([]model.AssetPerformance(nil), assets...)
	return nil
}

func (r *memRepo) GetAssetPerformanceByMinute(_ context.Context, date, minuteKey string) ([]model.AssetPerformance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assets[minuteID{date, minuteKey}], nil
}

func (r *memRepo) GetAssetPerformance(context.Context, *string, int) ([]model.AssetPerformance, error) {
	return nil, nil
}

func (r *memRepo) UpsertChartPoint(_ context.Context, point model.ChartPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chart[point.Datetime] = point
	return nil
}

func (r *memRepo) GetChartPoints(context.Context, int) ([]model.ChartPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]model.ChartPoint, 0, len(r.chart))
	for _, point := range r.chart {
		res = append(res, point)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Datetime.Before(res[j].Datetime) })
	return res, nil
}

func (r *memRepo) GetAllocationsByDate(_ context.Context, date string) ([]model.Allocation, error) {
	r.mu.Lock()
	entered, release := r.allocEntered, r.allocRelease
	r.allocEntered, r.allocRelease = nil, nil
	r.mu.Unlock()

	if entered != nil {
		close(entered)
		<-release
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var res []model.Allocation
	for _, allocation := range r.allocations {
		if allocation.Date == date {
			res = append(res, allocation)
		}
	}
	return res, nil
}

func (r *memRepo) GetLatestAllocations(context.Context) ([]model.Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Allocation(nil), r.allocations...), nil
}

// memCache keeps the view of the later minute, like the redis script does.
type memCache struct {
	mu   sync.Mutex
	view *model.PortfolioView
}

func (c *memCache) SetLatestPortfolio(_ context.Context, view model.PortfolioView) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view != nil && c.view.MinuteKey > view.MinuteKey {
		return nil
	}
	c.view = &view
	return nil
}

func (c *memCache) GetLatestPortfolio(context.Context) (model.PortfolioView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return model.PortfolioView{}, cache.ErrCacheMiss
	}
	return *c.view, nil
}

func (c *memCache) InvalidateLatestPortfolio(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = nil
	return nil
}

func tickResult(at time.Time, nav int64) model.TickResult {
	tick := model.NewTick(at)
	ending := decimal.NewFromInt(nav)

	return model.TickResult{
		Snapshot: model.PortfolioSnapshot{
			Date:        tick.Date,
			MinuteKey:   tick.MinuteKey,
			StartingNav: decimal.NewFromInt(100),
			EndingNav:   ending,
			PriceSource: "simulated",
			UpdatedAt:   at,
		},
		Assets: []model.AssetPerformance{
			{Symbol: "BTC", Date: tick.Date, MinuteKey: tick.MinuteKey, Close: ending},
			{Symbol: "ETH", Date: tick.Date, MinuteKey: tick.MinuteKey, Close: ending},
		},
		ChartPoint: model.ChartPoint{Datetime: at.Truncate(time.Minute), Nav: ending},
	}
}
