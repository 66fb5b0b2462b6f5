package dbModel

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

type PortfolioSnapshot struct {
	ID            int64           `db:"id"`
	Date          string          `db:"date"`
	MinuteKey     string          `db:"minute_key"`
	StartingNav   decimal.Decimal `db:"starting_nav"`
	EndingNav     decimal.Decimal `db:"ending_nav"`
	GrowthPercent decimal.Decimal `db:"growth_percent"`
	SystemStatus  types.JSONText  `db:"system_status"`
	VisualFlags   types.JSONText  `db:"visual_flags"`
	TeamNotes     types.JSONText  `db:"team_notes"`
	ReportText    string          `db:"report_text"`
	PriceSource   string          `db:"price_source"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

type AssetPerformance struct {
	ID            int64           `db:"id"`
	Symbol        string          `db:"symbol"`
	Date          string          `db:"date"`
	MinuteKey     string          `db:"minute_key"`
	Open          decimal.Decimal `db:"open"`
	Close         decimal.Decimal `db:"close"`
	ChangePercent decimal.Decimal `db:"change_percent"`
	VolumeUsd     decimal.Decimal `db:"volume_usd"`
}

type ChartPoint struct {
	Datetime time.Time       `db:"datetime"`
	Nav      decimal.Decimal `db:"nav"`
}
