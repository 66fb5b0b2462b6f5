package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type SystemStatus struct {
	RoutingActive      bool `json:"routing_active"`
	HedgingEngaged     bool `json:"hedging_engaged"`
	SmartLayerUnlocked bool `json:"smart_layer_unlocked"`
	DashboardBetaMode  bool `json:"dashboard_beta_mode"`
	LastSyncSuccess    bool `json:"last_sync_success"`
}

type TeamNotes struct {
	DevStatus       string `json:"dev_status"`
	Developer       string `json:"developer"`
	ExpectedPreview string `json:"expected_preview"`
	DataEntryMode   string `json:"data_entry_mode"`
}

type VisualFlags map[string]string

type PortfolioSnapshot struct {
	Date          string
	MinuteKey     string
	StartingNav   decimal.Decimal
	EndingNav     decimal.Decimal
	GrowthPercent decimal.Decimal
	SystemStatus  SystemStatus
	VisualFlags   VisualFlags
	TeamNotes     TeamNotes
	ReportText    string
	PriceSource   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type AssetPerformance struct {
	Symbol        string          `json:"symbol"`
	Date          string          `json:"date"`
	MinuteKey     string          `json:"minute_key"`
	Open          decimal.Decimal `json:"open"`
	Close         decimal.Decimal `json:"close"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	VolumeUsd     decimal.Decimal `json:"volume_usd"`
}

type ChartPoint struct {
	Datetime time.Time       `json:"datetime"`
	Nav      decimal.Decimal `json:"nav"`
}

// TickResult is everything one tick writes besides the allocation ledger.
type TickResult struct {
	Snapshot   PortfolioSnapshot
	Assets     []AssetPerformance
	ChartPoint ChartPoint
}

type NavView struct {
	StartingNav   decimal.Decimal `json:"starting_nav"`
	EndingNav     decimal.Decimal `json:"ending_nav"`
	GrowthPercent decimal.Decimal `json:"growth_percent"`
	ChartData     []ChartPoint    `json:"chart_data"`
}

// PortfolioView is the full dashboard state assembled from one snapshot and its siblings.
type PortfolioView struct {
	Date             string                      `json:"date"`
	MinuteKey        string                      `json:"minute_key"`
	LastUpdated      time.Time                   `json:"last_updated"`
	Nav              NavView                     `json:"nav"`
	Allocations      map[string]AllocationView   `json:"allocations"`
	AssetPerformance map[string]AssetPerformance `json:"asset_performance"`
	SystemStatus     SystemStatus                `json:"system_status"`
	VisualFlags      VisualFlags                 `json:"visual_flags"`
	ReportText       string                      `json:"daily_report_text"`
	TeamNotes        TeamNotes                   `json:"team_notes"`
	PriceSource      string                      `json:"price_source"`
}

type NavHistoryPoint struct {
	Date          string          `json:"date"`
	MinuteKey     string          `json:"minute_key"`
	EndingNav     decimal.Decimal `json:"ending_nav"`
	GrowthPercent decimal.Decimal `json:"growth_percent"`
	LastUpdated   time.Time       `json:"last_updated"`
}

type AllocationBreakdown struct {
	Key               string          `json:"key"`
	Name              string          `json:"name"`
	EndingBalance     decimal.Decimal `json:"ending_balance"`
	MinuteGainPercent decimal.Decimal `json:"minute_gain_percent"`
}

type PortfolioSummary struct {
	Nav                 decimal.Decimal       `json:"nav"`
	TotalAllocations    int                   `json:"total_allocations"`
	AllocationBreakdown []AllocationBreakdown `json:"allocation_breakdown"`
	DailyReport         string                `json:"daily_report"`
	LastUpdated         time.Time             `json:"last_updated"`
}

type SystemStatusView struct {
	SystemStatus
	LastUpdated time.Time   `json:"last_updated"`
	VisualFlags VisualFlags `json:"visual_flags"`
	TeamNotes   TeamNotes   `json:"team_notes"`
}

type CurrentPrices struct {
	BTC         *AssetPerformance `json:"BTC"`
	ETH         *AssetPerformance `json:"ETH"`
	LastUpdated time.Time         `json:"last_updated"`
}

type HealthStatus struct {
	Status         string            `json:"status"`
	Timestamp      time.Time         `json:"timestamp"`
	Database       bool              `json:"database"`
	ApiIntegration bool              `json:"api_integration"`
	Scheduler      string            `json:"scheduler"`
	Providers      map[string]string `json:"price_providers"`
	LastUpdate     *time.Time        `json:"last_update"`
}

type ChartDataPoint struct {
	Date          string          `json:"date"`
	MinuteKey     string          `json:"minute_key"`
	Nav           decimal.Decimal `json:"nav"`
	GrowthPercent decimal.Decimal `json:"growth_percent"`
}
