package allocationLedger

import (
	"fmt"
	"math/rand"
	"sync"
)

// notePicker chooses a history note for a key, leaning on the market trend of the tick.
type notePicker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newNotePicker(src rand.Source) *notePicker {
	return &notePicker{rnd: rand.New(src)}
}

func (n *notePicker) pick(key string, trend int) string {
	options := noteOptions(key, trend)

	n.mu.Lock()
	defer n.mu.Unlock()

	return options[n.rnd.Intn(len(options))]
}

func noteOptions(key string, trend int) []string {
	up := trend >= 0

	btcTrend, ethTrend := "bearish", "falling"
	if up {
		btcTrend, ethTrend = "bullish", "rising"
	}

	switch key {
	case "A":
		return []string{
			fmt.Sprintf("BTC showing %s momentum", btcTrend),
			"Bitcoin " + choose(up, "breaking resistance", "testing support"),
			choose(up, "Increasing", "Decreasing") + " institutional interest",
			"Market sentiment " + choose(up, "positive", "negative"),
		}
	case "B":
		return []string{
			fmt.Sprintf("ETH %s with %s BTC trend", ethTrend, btcTrend),
			"DeFi activity " + choose(up, "increasing", "decreasing"),
			"Layer 2 solutions gaining traction",
			choose(up, "Strong", "Weak") + " staking activity",
		}
	case "C":
		return []string{
			"Stablecoin yield optimization active",
			"Rebalancing stablecoin allocations",
			"Exploring high-yield protocols",
			"Risk management protocols engaged",
		}
	default:
		return []string{
			fmt.Sprintf("Allocation %s performing %s", key, choose(up, "well", "poorly")),
			"Monitoring allocation " + key,
			"Standard operations for allocation " + key,
			"Reviewing performance of allocation " + key,
		}
	}
}

func choose(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
