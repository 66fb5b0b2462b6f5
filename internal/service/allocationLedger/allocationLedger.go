package allocationLedger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/data/repository"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
	"github.com/shopspring/decimal"
)

const (
	moneyPlaces    = 8
	initialNote    = "Initial allocation created"
	adjustmentNote = "Manual balance adjustment"
)

var hundred = decimal.NewFromInt(100)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	GetAllocation(ctx context.Context, key, date string) (model.Allocation, error)
	GetLatestAllocationByKey(ctx context.Context, key string) (model.Allocation, error)
	InsertAllocation(ctx context.Context, allocation model.Allocation) (model.Allocation, error)
	UpdateAllocation(ctx context.Context, id int64, name string, balance decimal.Decimal) error
	DeleteAllocation(ctx context.Context, id int64) error
	InsertHistoryEntry(ctx context.Context, entry model.AllocationHistoryEntry) error
	GetHistory(ctx context.Context, allocationID int64) ([]model.AllocationHistoryEntry, error)
}

// Ledger keeps one allocation row per (key, date) and an append-only history behind it.
// The current balance of a row always equals the ending balance of its last entry.
type Ledger struct {
	repo    Repository
	configs model.AllocationConfigs
	notes   *notePicker
	now     func() time.Time
}

func New(repo Repository, configs model.AllocationConfigs, src rand.Source) *Ledger {
	sorted := make(model.AllocationConfigs, len(configs))
	copy(sorted, configs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	return &Ledger{
		repo:    repo,
		configs: sorted,
		notes:   newNotePicker(src),
		now:     time.Now,
	}
}

// ApplyTick splits totalNav across the configured keys and records one gain entry per key.
// Each returned view carries only the entry this tick appended.
func (l *Ledger) ApplyTick(
	ctx context.Context,
	tick model.Tick,
	totalNav, growthPercent decimal.Decimal,
	trend int,
) (map[string]model.AllocationView, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	views := make(map[string]model.AllocationView, len(l.configs))

	err := l.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, cfg := range l.configs {
			view, err := l.applyKey(ctx, cfg, tick, totalNav, growthPercent, trend)
			if err != nil {
				return fmt.Errorf("allocation %s: %w", cfg.Key, err)
			}
			views[cfg.Key] = view
		}
		return nil
	})
	if err != nil {
		slog.Error("apply tick failed", slog.String("rqID", rqID), slog.String("op", "Ledger.ApplyTick"), slog.String("err", err.Error()))
		return nil, err
	}

	slog.Debug("tick applied", slog.String("rqID", rqID), slog.String("op", "Ledger.ApplyTick"), slog.String("minuteKey", tick.MinuteKey))

	return views, nil
}

func (l *Ledger) applyKey(
	ctx context.Context,
	cfg model.AllocationConfig,
	tick model.Tick,
	totalNav, growthPercent decimal.Decimal,
	trend int,
) (model.AllocationView, error) {
	startingBalance := totalNav.Mul(cfg.Weight).Round(moneyPlaces)
	minuteGain := startingBalance.Mul(growthPercent).Div(hundred).Round(moneyPlaces)
	endingBalance := startingBalance.Add(minuteGain)

	allocation, err := l.repo.GetAllocation(ctx, cfg.Key, tick.Date)
	if errors.Is(err, repository.ErrNotFound) {
		allocation, err = l.repo.InsertAllocation(ctx, model.Allocation{
			Key:            cfg.Key,
			Name:           cfg.Name,
			Date:           tick.Date,
			CurrentBalance: startingBalance,
		})
	}
	if err != nil {
		return model.AllocationView{}, err
	}

	entry := model.AllocationHistoryEntry{
		AllocationID:      allocation.ID,
		MinuteKey:         tick.MinuteKey,
		StartingBalance:   startingBalance,
		MinuteGain:        minuteGain,
		MinuteGainPercent: growthPercent,
		EndingBalance:     endingBalance,
		Notes:             l.notes.pick(cfg.Key, trend),
	}
	if err = l.repo.InsertHistoryEntry(ctx, entry); err != nil {
		return model.AllocationView{}, err
	}
	if err = l.repo.UpdateAllocation(ctx, allocation.ID, allocation.Name, endingBalance); err != nil {
		return model.AllocationView{}, err
	}

	allocation.CurrentBalance = endingBalance
	allocation.History = []model.AllocationHistoryEntry{entry}

	return allocation.View(), nil
}

type CreateInput struct {
	Key            string
	Name           string
	InitialBalance decimal.Decimal
	Date           *string
}

// Create fails with service.ErrAllocationExists when (key, date) is already taken.
func (l *Ledger) Create(ctx context.Context, in CreateInput) (model.AllocationView, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	date := l.dateOrToday(in.Date)

	var created model.Allocation
	err := l.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := l.repo.GetAllocation(ctx, in.Key, date)
		if err == nil {
			return service.ErrAllocationExists
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		created, err = l.repo.InsertAllocation(ctx, model.Allocation{
			Key:            in.Key,
			Name:           in.Name,
			Date:           date,
			CurrentBalance: in.InitialBalance,
		})
		if errors.Is(err, repository.ErrAlreadyExists) {
			return service.ErrAllocationExists
		}
		if err != nil {
			return err
		}

		seed := model.AllocationHistoryEntry{
			AllocationID:      created.ID,
			MinuteKey:         model.NewTick(l.now()).MinuteKey,
			StartingBalance:   in.InitialBalance,
			MinuteGain:        decimal.Zero,
			MinuteGainPercent: decimal.Zero,
			EndingBalance:     in.InitialBalance,
			Notes:             initialNote,
		}
		if err = l.repo.InsertHistoryEntry(ctx, seed); err != nil {
			return err
		}

		created.History, err = l.repo.GetHistory(ctx, created.ID)
		return err
	})
	if err != nil {
		slog.Warn("create allocation failed", slog.String("rqID", rqID), slog.String("key", in.Key), slog.String("date", date), slog.String("err", err.Error()))
		return model.AllocationView{}, err
	}

	slog.Info("allocation created", slog.String("rqID", rqID), slog.String("key", in.Key), slog.String("date", date))

	return created.View(), nil
}

// Get returns the allocation of key on date, or its most recent one when date is nil.
func (l *Ledger) Get(ctx context.Context, key string, date *string) (model.AllocationView, error) {
	allocation, err := l.find(ctx, key, date)
	if err != nil {
		return model.AllocationView{}, err
	}

	allocation.History, err = l.repo.GetHistory(ctx, allocation.ID)
	if err != nil {
		return model.AllocationView{}, err
	}

	return allocation.View(), nil
}

type UpdateInput struct {
	Name    *string
	Balance *decimal.Decimal
}

// Update renames and/or rebalances an allocation. A balance change is recorded as an
// adjustment entry so the ledger stays consistent.
func (l *Ledger) Update(ctx context.Context, key string, date *string, in UpdateInput) (model.AllocationView, error) {
	var updated model.Allocation

	err := l.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		allocation, err := l.find(ctx, key, date)
		if err != nil {
			return err
		}

		name := allocation.Name
		if in.Name != nil {
			name = *in.Name
		}

		balance := allocation.CurrentBalance
		if in.Balance != nil && !in.Balance.Equal(allocation.CurrentBalance) {
			balance = *in.Balance
			adjustment := model.AllocationHistoryEntry{
				AllocationID:      allocation.ID,
				MinuteKey:         model.NewTick(l.now()).MinuteKey,
				StartingBalance:   allocation.CurrentBalance,
				MinuteGain:        decimal.Zero,
				MinuteGainPercent: decimal.Zero,
				EndingBalance:     balance,
				Notes:             adjustmentNote,
			}
			if err = l.repo.InsertHistoryEntry(ctx, adjustment); err != nil {
				return err
			}
		}

		if err = l.repo.UpdateAllocation(ctx, allocation.ID, name, balance); err != nil {
			return err
		}

		allocation.Name = name
		allocation.CurrentBalance = balance
		allocation.History, err = l.repo.GetHistory(ctx, allocation.ID)
		updated = allocation
		return err
	})
	if err != nil {
		return model.AllocationView{}, err
	}

	return updated.View(), nil
}

// Delete removes the allocation together with its history in one transaction.
func (l *Ledger) Delete(ctx context.Context, key string, date *string) error {
	return l.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		allocation, err := l.find(ctx, key, date)
		if err != nil {
			return err
		}
		return l.repo.DeleteAllocation(ctx, allocation.ID)
	})
}

func (l *Ledger) find(ctx context.Context, key string, date *string) (model.Allocation, error) {
	var (
		allocation model.Allocation
		err        error
	)

	if date != nil {
		allocation, err = l.repo.GetAllocation(ctx, key, *date)
	} else {
		allocation, err = l.repo.GetLatestAllocationByKey(ctx, key)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return model.Allocation{}, service.ErrNotFound
	}

	return allocation, err
}

func (l *Ledger) dateOrToday(date *string) string {
	if date != nil && *date != "" {
		return *date
	}
	return model.NewTick(l.now()).Date
}
