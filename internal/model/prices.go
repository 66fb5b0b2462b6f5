package model

import "github.com/shopspring/decimal"

type Asset string

const (
	AssetBTC    Asset = "BTC"
	AssetETH    Asset = "ETH"
	AssetStable Asset = "STABLE"
)

// PriceSet is one reading of the tracked market. Changes are 24h percent values.
type PriceSet struct {
	BtcPrice  decimal.Decimal `json:"btc_price"`
	EthPrice  decimal.Decimal `json:"eth_price"`
	UsdcPrice decimal.Decimal `json:"usdc_price"`
	BtcChange decimal.Decimal `json:"btc_change"`
	EthChange decimal.Decimal `json:"eth_change"`
	BtcVolume decimal.Decimal `json:"btc_volume"`
	EthVolume decimal.Decimal `json:"eth_volume"`

	// Trend is the market direction for this reading: 1 or -1.
	Trend  int    `json:"trend"`
	Source string `json:"source"`

	// MissingChanges is set by providers that only quote prices.
	MissingChanges bool `json:"-"`
}

func (p PriceSet) Change(asset Asset) decimal.Decimal {
	switch asset {
	case AssetBTC:
		return p.BtcChange
	case AssetETH:
		return p.EthChange
	default:
		return decimal.Zero
	}
}

func TrendOf(change decimal.Decimal) int {
	if change.IsNegative() {
		return -1
	}
	return 1
}
