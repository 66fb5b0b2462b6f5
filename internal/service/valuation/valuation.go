package valuation

import (
	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the precision of every stored monetary value.
const MoneyPlaces = 8

var hundred = decimal.NewFromInt(100)

// DefaultStableYield is the daily percent yield credited to stablecoin allocations.
var DefaultStableYield = decimal.RequireFromString("0.014")

type Engine struct {
	allocations     model.AllocationConfigs
	elapsedFraction decimal.Decimal
	stableYield     decimal.Decimal
}

// New builds an engine. elapsedFraction scales 24h changes down to one tick (1440 for one minute).
func New(allocations model.AllocationConfigs, elapsedFraction, stableYield decimal.Decimal) *Engine {
	if !elapsedFraction.IsPositive() {
		elapsedFraction = decimal.NewFromInt(1)
	}
	return &Engine{
		allocations:     allocations,
		elapsedFraction: elapsedFraction,
		stableYield:     stableYield,
	}
}

// Compute returns the new NAV and its growth percent relative to previousNav.
func (e *Engine) Compute(prices model.PriceSet, previousNav decimal.Decimal) (newNav, growth decimal.Decimal) {
	newNav = ComputeNav(prices, previousNav, e.elapsedFraction, e.allocations, e.stableYield)
	return newNav, GrowthPercent(previousNav, newNav)
}

// ComputeNav applies the weighted, interval-scaled change of every allocation to previousNav.
func ComputeNav(
	prices model.PriceSet,
	previousNav decimal.Decimal,
	elapsedFraction decimal.Decimal,
	allocations model.AllocationConfigs,
	stableYield decimal.Decimal,
) decimal.Decimal {
	if !elapsedFraction.IsPositive() {
		elapsedFraction = decimal.NewFromInt(1)
	}

	change := decimal.Zero
	for _, a := range allocations {
		assetChange := AssetChange(prices, a.Asset, stableYield)
		change = change.Add(a.Weight.Mul(assetChange.Div(elapsedFraction).Div(hundred)))
	}

	return previousNav.Mul(decimal.NewFromInt(1).Add(change)).Round(MoneyPlaces)
}

// AssetChange is the 24h percent change credited to an asset class.
func AssetChange(prices model.PriceSet, asset model.Asset, stableYield decimal.Decimal) decimal.Decimal {
	if asset == model.AssetStable {
		return stableYield
	}
	return prices.Change(asset)
}

// GrowthPercent is zero when there is no previous value to grow from.
func GrowthPercent(previousNav, newNav decimal.Decimal) decimal.Decimal {
	if previousNav.IsZero() {
		return decimal.Zero
	}
	return newNav.Sub(previousNav).Div(previousNav).Mul(hundred).Round(MoneyPlaces)
}
