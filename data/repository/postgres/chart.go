package postgres

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/crypto_vault_tracker/internal/converter/dbConverter"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model/dbModel"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
)

func (p *Postgres) UpsertChartPoint(ctx context.Context, point model.ChartPoint) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO chart_points (datetime, nav) VALUES ($1, $2)
		ON CONFLICT (datetime) DO UPDATE SET nav = EXCLUDED.nav`

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.UpsertChartPoint"))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.UpsertChartPoint"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.UpsertChartPoint"))
		}
	}()

	_, err = p.txOrDb(ctx).ExecContext(ctx, query, point.Datetime, point.Nav)
	return mapErr(err)
}

// GetChartPoints returns the trailing window of points in ascending order.
func (p *Postgres) GetChartPoints(ctx context.Context, limit int) (points []model.ChartPoint, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT datetime, nav FROM (
			SELECT datetime, nav FROM chart_points ORDER BY datetime DESC LIMIT $1
		) AS recent
		ORDER BY datetime ASC`

	slog.Debug("start", slog.String("rqID", rqID), slog.String("op", "Postgres.GetChartPoints"))
	defer func() {
		if err != nil {
			slog.Error("failed", slog.String("rqID", rqID), slog.String("op", "Postgres.GetChartPoints"), slog.String("err", err.Error()))
		} else {
			slog.Debug("completed", slog.String("rqID", rqID), slog.String("op", "Postgres.GetChartPoints"))
		}
	}()

	var rows []dbModel.ChartPoint
	if err = p.txOrDb(ctx).SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, mapErr(err)
	}

	points = make([]model.ChartPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, dbConverter.ConvertChartPoint(row))
	}

	return points, nil
}
