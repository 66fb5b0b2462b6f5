package portfolioService

import (
	"fmt"

	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service/priceOracle"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func (s *PortfolioService) buildTickResult(
	tick model.Tick,
	prices model.PriceSet,
	previousNav, newNav, growth decimal.Decimal,
) model.TickResult {
	liveFeed := prices.Source != priceOracle.SimulatedSource

	snapshot := model.PortfolioSnapshot{
		Date:          tick.Date,
		MinuteKey:     tick.MinuteKey,
		StartingNav:   previousNav,
		EndingNav:     newNav,
		GrowthPercent: growth,
		SystemStatus: model.SystemStatus{
			RoutingActive:      true,
			HedgingEngaged:     s.hedgingEngaged(),
			SmartLayerUnlocked: true,
			DashboardBetaMode:  true,
			LastSyncSuccess:    liveFeed,
		},
		VisualFlags: visualFlags(liveFeed),
		TeamNotes:   teamNotes(liveFeed),
		ReportText:  dailyReport(tick, growth, prices.BtcChange, prices.EthChange),
		PriceSource: prices.Source,
	}

	return model.TickResult{
		Snapshot: snapshot,
		Assets:   assetPerformance(tick, prices),
		ChartPoint: model.ChartPoint{
			Datetime: tick.Datetime(),
			Nav:      newNav,
		},
	}
}

// hedging stays engaged on nine ticks out of ten
func (s *PortfolioService) hedgingEngaged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64() > 0.1
}

func assetPerformance(tick model.Tick, prices model.PriceSet) []model.AssetPerformance {
	row := func(symbol model.Asset, price, change, volume decimal.Decimal) model.AssetPerformance {
		open := price.Mul(decimal.NewFromInt(1).Sub(change.Div(hundred)))
		return model.AssetPerformance{
			Symbol:        string(symbol),
			Date:          tick.Date,
			MinuteKey:     tick.MinuteKey,
			Open:          open.Round(2),
			Close:         price.Round(2),
			ChangePercent: change.Round(2),
			VolumeUsd:     volume,
		}
	}

	return []model.AssetPerformance{
		row(model.AssetBTC, prices.BtcPrice, prices.BtcChange, prices.BtcVolume),
		row(model.AssetETH, prices.EthPrice, prices.EthChange, prices.EthVolume),
	}
}

func visualFlags(liveFeed bool) model.VisualFlags {
	syncState := "Stable"
	if !liveFeed {
		syncState = "Degraded"
	}
	return model.VisualFlags{
		"Smart Routing":          "On",
		"Hedging Operational":    "Active",
		"Stablecoin Yield Layer": "Running",
		"System Sync":            syncState,
	}
}

func teamNotes(liveFeed bool) model.TeamNotes {
	mode := "API Integration"
	if !liveFeed {
		mode = "Simulated Feed"
	}
	return model.TeamNotes{
		DevStatus:       "Active Dev - Real-time Integration",
		Developer:       "Automated System",
		ExpectedPreview: "Live Now",
		DataEntryMode:   mode,
	}
}

func dailyReport(tick model.Tick, growth, btcChange, ethChange decimal.Decimal) string {
	performance := "faced headwinds"
	if growth.IsPositive() {
		performance = "delivered gains"
	}
	btcDirection := "declined"
	if btcChange.IsPositive() {
		btcDirection = "surged"
	}
	ethDirection := "lagged behind"
	if ethChange.IsPositive() {
		ethDirection = "followed suit"
	}

	return fmt.Sprintf(
		"%s %s with %s%% portfolio movement as BTC %s %s%% while ETH %s with %s%% change. "+
			"Automated rebalancing systems maintained optimal exposure across all asset classes.",
		tick.At.Format("January 2"),
		performance,
		growth.Abs().StringFixed(2),
		btcDirection,
		btcChange.Abs().StringFixed(2),
		ethDirection,
		ethChange.Abs().StringFixed(2),
	)
}
