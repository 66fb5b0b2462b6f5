package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AllocationConfig describes one configured sub-allocation of the portfolio.
type AllocationConfig struct {
	Key    string
	Name   string
	Weight decimal.Decimal
	Asset  Asset
}

// AllocationConfigs is parsed from "KEY|Name|weight|ASSET;..."
type AllocationConfigs []AllocationConfig

func (a *AllocationConfigs) UnmarshalText(text []byte) error {
	var res AllocationConfigs
	seen := make(map[string]struct{})

	for _, item := range strings.Split(string(text), ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		parts := strings.Split(item, "|")
		if len(parts) != 4 {
			return fmt.Errorf("allocation %q: expected KEY|Name|weight|ASSET", item)
		}

		key := strings.TrimSpace(parts[0])
		if !IsAllocationKey(key) {
			return fmt.Errorf("allocation %q: key must be a single uppercase letter", item)
		}
		if _, ok := seen[key]; ok {
			return fmt.Errorf("allocation %q: duplicate key", item)
		}
		seen[key] = struct{}{}

		weight, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
		if err != nil {
			return fmt.Errorf("allocation %q: weight: %w", item, err)
		}
		if weight.IsNegative() {
			return fmt.Errorf("allocation %q: weight must be non-negative", item)
		}

		asset := Asset(strings.ToUpper(strings.TrimSpace(parts[3])))
		switch asset {
		case AssetBTC, AssetETH, AssetStable:
		default:
			return fmt.Errorf("allocation %q: unknown asset %s", item, asset)
		}

		res = append(res, AllocationConfig{
			Key:    key,
			Name:   strings.TrimSpace(parts[1]),
			Weight: weight,
			Asset:  asset,
		})
	}

	if len(res) == 0 {
		return fmt.Errorf("no allocations configured")
	}

	*a = res
	return nil
}

func (a AllocationConfigs) TotalWeight() decimal.Decimal {
	total := decimal.Zero
	for _, c := range a {
		total = total.Add(c.Weight)
	}
	return total
}

func IsAllocationKey(key string) bool {
	return len(key) == 1 && key[0] >= 'A' && key[0] <= 'Z'
}

type Allocation struct {
	ID             int64
	Key            string
	Name           string
	Date           string
	CurrentBalance decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
	History        []AllocationHistoryEntry
}

// AllocationHistoryEntry is immutable once written.
type AllocationHistoryEntry struct {
	AllocationID      int64           `json:"-"`
	MinuteKey         string          `json:"minute_key"`
	StartingBalance   decimal.Decimal `json:"starting_balance"`
	MinuteGain        decimal.Decimal `json:"minute_gain"`
	MinuteGainPercent decimal.Decimal `json:"minute_gain_percent"`
	EndingBalance     decimal.Decimal `json:"ending_balance"`
	Notes             string          `json:"notes"`
	CreatedAt         time.Time       `json:"created_at"`
}

type AllocationView struct {
	Name           string                   `json:"name"`
	Date           string                   `json:"date"`
	CurrentBalance decimal.Decimal          `json:"current_balance"`
	History        []AllocationHistoryEntry `json:"history"`
}

func (a Allocation) View() AllocationView {
	history := a.History
	if history == nil {
		history = []AllocationHistoryEntry{}
	}
	return AllocationView{
		Name:           a.Name,
		Date:           a.Date,
		CurrentBalance: a.CurrentBalance,
		History:        history,
	}
}

func (a Allocation) LastEntry() (AllocationHistoryEntry, bool) {
	if len(a.History) == 0 {
		return AllocationHistoryEntry{}, false
	}
	return a.History[len(a.History)-1], true
}
