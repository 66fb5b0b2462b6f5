package postgres

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/crypto_vault_tracker/internal/converter/dbConverter"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model/dbModel"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const allocationColumns = `id, key, name, date, current_balance, created_at, updated_at`

// GetAllocation returns the (key, date) row without history; repository.ErrNotFound if absent.
func (p *Postgres) GetAllocation(ctx context.Context, key, date string) (allocation model.Allocation, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT ` + allocationColumns + ` FROM allocations WHERE key = $1 AND date = $2`

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.GetAllocation"), slog.String("key", key), slog.String("date", date))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.GetAllocation"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.GetAllocation"))
		}
	}()

	row := dbModel.Allocation{}
	if err = p.txOrDb(ctx).QueryRowxContext(ctx, query, key, date).StructScan(&row); err != nil {
		return model.Allocation{}, mapErr(err)
	}

	return dbConverter.ConvertAllocation(row), nil
}

// GetLatestAllocationByKey returns the most recent row of key without history.
func (p *Postgres) GetLatestAllocationByKey(ctx context.Context, key string) (allocation model.Allocation, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT ` + allocationColumns + ` FROM allocations WHERE key = $1 ORDER BY date DESC LIMIT 1`

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.GetLatestAllocationByKey"), slog.String("key", key))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.GetLatestAllocationByKey"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.GetLatestAllocationByKey"))
		}
	}()

	row := dbModel.Allocation{}
	if err = p.txOrDb(ctx).QueryRowxContext(ctx, query, key).StructScan(&row); err != nil {
		return model.Allocation{}, mapErr(err)
	}

	return dbConverter.ConvertAllocation(row), nil
}

// InsertAllocation returns repository.ErrAlreadyExists when (key, date) is taken.
func (p *Postgres) InsertAllocation(ctx context.Context, allocation model.Allocation) (created model.Allocation, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO allocations (key, name, date, current_balance)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + allocationColumns

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.InsertAllocation"), slog.String("key", allocation.Key))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.InsertAllocation"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.InsertAllocation"))
		}
	}()

	row := dbModel.Allocation{}
	err = p.txOrDb(ctx).QueryRowxContext(ctx, query,
		allocation.Key, allocation.Name, allocation.Date, allocation.CurrentBalance,
	).StructScan(&row)
	if err != nil {
		return model.Allocation{}, mapErr(err)
	}

	return dbConverter.ConvertAllocation(row), nil
}

func (p *Postgres) UpdateAllocation(ctx context.Context, id int64, name string, balance decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `UPDATE allocations SET name = $1, current_balance = $2, updated_at = now() WHERE id = $3`

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.UpdateAllocation"), slog.Int64("id", id))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.UpdateAllocation"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.UpdateAllocation"))
		}
	}()

	_, err = p.txOrDb(ctx).ExecContext(ctx, query, name, balance, id)
	return mapErr(err)
}

// DeleteAllocation removes the history first, then the allocation row.
func (p *Postgres) DeleteAllocation(ctx context.Context, id int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.DeleteAllocation"), slog.Int64("id", id))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.DeleteAllocation"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.DeleteAllocation"))
		}
	}()

	q := p.txOrDb(ctx)
	if _, err = q.ExecContext(ctx, `DELETE FROM allocation_history WHERE allocation_id = $1`, id); err != nil {
		return mapErr(err)
	}
	if _, err = q.ExecContext(ctx, `DELETE FROM allocations WHERE id = $1`, id); err != nil {
		return mapErr(err)
	}

	return nil
}

func (p *Postgres) InsertHistoryEntry(ctx context.Context, entry model.AllocationHistoryEntry) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO allocation_history (
			allocation_id, minute_key, starting_balance, minute_gain, minute_gain_percent, ending_balance, notes
		)
		VALUES (:allocation_id, :minute_key, :starting_balance, :minute_gain, :minute_gain_percent, :ending_balance, :notes)`

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.InsertHistoryEntry"), slog.Int64("allocationID", entry.AllocationID))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.InsertHistoryEntry"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.InsertHistoryEntry"))
		}
	}()

	row := dbModel.AllocationHistory{
		AllocationID:      entry.AllocationID,
		MinuteKey:         entry.MinuteKey,
		StartingBalance:   entry.StartingBalance,
		MinuteGain:        entry.MinuteGain,
		MinuteGainPercent: entry.MinuteGainPercent,
		EndingBalance:     entry.EndingBalance,
		Notes:             entry.Notes,
	}

	_, err = p.txOrDb(ctx).NamedExecContext(ctx, query, row)
	return mapErr(err)
}

// GetAllocationsByDate returns the allocations of one day with their full history.
func (p *Postgres) GetAllocationsByDate(ctx context.Context, date string) (allocations []model.Allocation, err error) {
	query := `SELECT ` + allocationColumns + ` FROM allocations WHERE date = $1 ORDER BY key`
	return p.selectAllocations(ctx, "Postgres.GetAllocationsByDate", query, date)
}

// GetLatestAllocations returns the most recent row of every key with its full history.
func (p *Postgres) GetLatestAllocations(ctx context.Context) (allocations []model.Allocation, err error) {
	query := `SELECT DISTINCT ON (key) ` + allocationColumns + ` FROM allocations ORDER BY key, date DESC`
	return p.selectAllocations(ctx, "Postgres.GetLatestAllocations", query)
}

func (p *Postgres) selectAllocations(ctx context.Context, op, query string, args ...any) (allocations []model.Allocation, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("rows", len(allocations)))
		}
	}()

	var rows []dbModel.Allocation
	if err = p.txOrDb(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapErr(err)
	}
	if len(rows) == 0 {
		return []model.Allocation{}, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	history, err := p.getHistory(ctx, ids)
	if err != nil {
		return nil, err
	}

	allocations = make([]model.Allocation, 0, len(rows))
	for _, row := range rows {
		allocation := dbConverter.ConvertAllocation(row)
		allocation.History = history[row.ID]
		allocations = append(allocations, allocation)
	}

	return allocations, nil
}

// GetHistory returns the entries of one allocation in insertion order.
func (p *Postgres) GetHistory(ctx context.Context, allocationID int64) ([]model.AllocationHistoryEntry, error) {
	history, err := p.getHistory(ctx, []int64{allocationID})
	if err != nil {
		return nil, err
	}
	return history[allocationID], nil
}

func (p *Postgres) getHistory(ctx context.Context, allocationIDs []int64) (map[int64][]model.AllocationHistoryEntry, error) {
	query, args, err := sqlx.In(`
		SELECT id, allocation_id, minute_key, starting_balance, minute_gain, minute_gain_percent,
			ending_balance, notes, created_at
		FROM allocation_history
		WHERE allocation_id IN (?)
		ORDER BY allocation_id, id`, allocationIDs)
	if err != nil {
		return nil, err
	}

	q := p.txOrDb(ctx)

	var rows []dbModel.AllocationHistory
	if err = q.SelectContext(ctx, &rows, q.Rebind(query), args...); err != nil {
		return nil, mapErr(err)
	}

	res := make(map[int64][]model.AllocationHistoryEntry, len(allocationIDs))
	for _, row := range rows {
		res[row.AllocationID] = append(res[row.AllocationID], dbConverter.ConvertAllocationHistory(row))
	}

	return res, nil
}
