package priceOracle

import (
	"context"
	"math/rand"
	"sync"

	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/shopspring/decimal"
)

const SimulatedSource = "simulated"

const (
	baseBtcPrice   = 104870
	baseEthPrice   = 2530
	btcPriceSpread = 2000
	ethPriceSpread = 100
	btcChangeSpan  = 5.0
	ethChangeSpan  = 4.0
)

var (
	simulatedBtcVolume = decimal.NewFromInt(24_300_000_000)
	simulatedEthVolume = decimal.NewFromInt(14_500_000_000)
)

// Simulated produces plausible prices around fixed bases. One market trend is drawn per
// reading and pushes both changes the same way.
type Simulated struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSimulated(src rand.Source) *Simulated {
	return &Simulated{rnd: rand.New(src)}
}

func (s *Simulated) Name() string {
	return SimulatedSource
}

func (s *Simulated) FetchPrices(_ context.Context) (model.PriceSet, error) {
	btcChange, ethChange, trend := s.Changes()

	s.mu.Lock()
	btcPrice := baseBtcPrice + (s.rnd.Float64()-0.5)*btcPriceSpread
	ethPrice := baseEthPrice + (s.rnd.Float64()-0.5)*ethPriceSpread
	s.mu.Unlock()

	return model.PriceSet{
		BtcPrice:  decimal.NewFromFloat(btcPrice).Round(2),
		EthPrice:  decimal.NewFromFloat(ethPrice).Round(2),
		UsdcPrice: decimal.NewFromInt(1),
		BtcChange: btcChange,
		EthChange: ethChange,
		BtcVolume: simulatedBtcVolume,
		EthVolume: simulatedEthVolume,
		Trend:     trend,
		Source:    SimulatedSource,
	}, nil
}

// Changes draws 24h percent changes: BTC within (-5, 5), ETH within (-4, 4).
func (s *Simulated) Changes() (btcChange, ethChange decimal.Decimal, trend int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trend = 1
	if s.rnd.Float64() < 0.5 {
		trend = -1
	}
	bias := float64(trend) * s.rnd.Float64()

	btc := bias*btcChangeSpan/2 + (s.rnd.Float64()-0.5)*btcChangeSpan
	eth := bias*ethChangeSpan/2 + (s.rnd.Float64()-0.5)*ethChangeSpan

	return decimal.NewFromFloat(clamp(btc, btcChangeSpan)).Round(4),
		decimal.NewFromFloat(clamp(eth, ethChangeSpan)).Round(4),
		trend
}

func clamp(v, span float64) float64 {
	limit := span * 0.9999
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
