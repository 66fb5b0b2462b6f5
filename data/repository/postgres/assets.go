package postgres

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/crypto_vault_tracker/internal/converter/dbConverter"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model/dbModel"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
)

const assetColumns = `id, symbol, date, minute_key, open, close, change_percent, volume_usd`

// ReplaceAssetPerformance drops the rows of one minute and writes the given ones in their place.
func (p *Postgres) ReplaceAssetPerformance(ctx context.Context, date, minuteKey string, assets []model.AssetPerformance) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	deleteQuery := `DELETE FROM asset_performance WHERE date = $1 AND minute_key = $2`
	insertQuery := `
		INSERT INTO asset_performance (symbol, date, minute_key, open, close, change_percent, volume_usd)
		VALUES (:symbol, :date, :minute_key, :open, :close, :change_percent, :volume_usd)`

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.ReplaceAssetPerformance"), slog.String("minuteKey", minuteKey))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.ReplaceAssetPerformance"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.ReplaceAssetPerformance"))
		}
	}()

	q := p.txOrDb(ctx)

	if _, err = q.ExecContext(ctx, deleteQuery, date, minuteKey); err != nil {
		return mapErr(err)
	}

	for _, asset := range assets {
		row := dbModel.AssetPerformance{
			Symbol:        asset.Symbol,
			Date:          date,
			MinuteKey:     minuteKey,
			Open:          asset.Open,
			Close:         asset.Close,
			ChangePercent: asset.ChangePercent,
			VolumeUsd:     asset.VolumeUsd,
		}
		if _, err = q.NamedExecContext(ctx, insertQuery, row); err != nil {
			return mapErr(err)
		}
	}

	return nil
}

func (p *Postgres) GetAssetPerformanceByMinute(ctx context.Context, date, minuteKey string) (assets []model.AssetPerformance, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT ` + assetColumns + ` FROM asset_performance WHERE date = $1 AND minute_key = $2 ORDER BY symbol`

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.GetAssetPerformanceByMinute"))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.GetAssetPerformanceByMinute"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.GetAssetPerformanceByMinute"))
		}
	}()

	var rows []dbModel.AssetPerformance
	if err = p.txOrDb(ctx).SelectContext(ctx, &rows, query, date, minuteKey); err != nil {
		return nil, mapErr(err)
	}

	return convertAssets(rows), nil
}

// GetAssetPerformance lists rows newest first, optionally for one symbol.
func (p *Postgres) GetAssetPerformance(ctx context.Context, symbol *string, limit int) (assets []model.AssetPerformance, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT ` + assetColumns + ` FROM asset_performance
		WHERE ($1::text IS NULL OR symbol = $1)
		ORDER BY minute_key DESC, symbol
		LIMIT $2`

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.GetAssetPerformance"), slog.Int("limit", limit))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.GetAssetPerformance"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.GetAssetPerformance"))
		}
	}()

	var rows []dbModel.AssetPerformance
	if err = p.txOrDb(ctx).SelectContext(ctx, &rows, query, symbol, limit); err != nil {
		return nil, mapErr(err)
	}

	return convertAssets(rows), nil
}

func convertAssets(rows []dbModel.AssetPerformance) []model.AssetPerformance {
	assets := make([]model.AssetPerformance, 0, len(rows))
	for _, row := range rows {
		assets = append(assets, dbConverter.ConvertAssetPerformance(row))
	}
	return assets
}
