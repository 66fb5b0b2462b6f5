package postgres

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/crypto_vault_tracker/internal/converter/dbConverter"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model/dbModel"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
)

const snapshotColumns = `id, date, minute_key, starting_nav, ending_nav, growth_percent,
	system_status, visual_flags, team_notes, report_text, price_source, created_at, updated_at`

// UpsertSnapshot writes the snapshot of one minute; a rerun of the same minute overwrites it.
func (p *Postgres) UpsertSnapshot(ctx context.Context, snapshot model.PortfolioSnapshot) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO portfolio_snapshots (
			date, minute_key, starting_nav, ending_nav, growth_percent,
			system_status, visual_flags, team_notes, report_text, price_source
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (date, minute_key) DO UPDATE SET
			starting_nav = EXCLUDED.starting_nav,
			ending_nav = EXCLUDED.ending_nav,
			growth_percent = EXCLUDED.growth_percent,
			system_status = EXCLUDED.system_status,
			visual_flags = EXCLUDED.visual_flags,
			team_notes = EXCLUDED.team_notes,
			report_text = EXCLUDED.report_text,
			price_source = EXCLUDED.price_source,
			updated_at = now()`

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.UpsertSnapshot"), slog.String("minuteKey", snapshot.MinuteKey))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.UpsertSnapshot"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.UpsertSnapshot"))
		}
	}()

	row, err := dbConverter.ConvertSnapshotToDB(snapshot)
	if err != nil {
		return err
	}

	_, err = p.txOrDb(ctx).ExecContext(ctx, query,
		row.Date, row.MinuteKey, row.StartingNav, row.EndingNav, row.GrowthPercent,
		row.SystemStatus, row.VisualFlags, row.TeamNotes, row.ReportText, row.PriceSource,
	)

	return mapErr(err)
}

// GetLatestSnapshot returns repository.ErrNotFound when no tick was persisted yet.
func (p *Postgres) GetLatestSnapshot(ctx context.Context) (snapshot model.PortfolioSnapshot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT ` + snapshotColumns + ` FROM portfolio_snapshots ORDER BY minute_key DESC LIMIT 1`

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.GetLatestSnapshot"))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.GetLatestSnapshot"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.GetLatestSnapshot"))
		}
	}()

	row := dbModel.PortfolioSnapshot{}
	err = p.txOrDb(ctx).QueryRowxContext(ctx, query).StructScan(&row)
	if err != nil {
		return model.PortfolioSnapshot{}, mapErr(err)
	}

	return dbConverter.ConvertSnapshot(row)
}

// GetSnapshots returns the newest limit snapshots in ascending time order.
func (p *Postgres) GetSnapshots(ctx context.Context, limit int) (snapshots []model.PortfolioSnapshot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT * FROM (
			SELECT ` + snapshotColumns + ` FROM portfolio_snapshots ORDER BY minute_key DESC LIMIT $1
		) AS recent
		ORDER BY minute_key ASC`

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.GetSnapshots"), slog.Int("limit", limit))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.GetSnapshots"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.GetSnapshots"), slog.Int("rows", len(snapshots)))
		}
	}()

	var rows []dbModel.PortfolioSnapshot
	if err = p.txOrDb(ctx).SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, mapErr(err)
	}

	snapshots = make([]model.PortfolioSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshot, convErr := dbConverter.ConvertSnapshot(row)
		if convErr != nil {
			return nil, convErr
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}
