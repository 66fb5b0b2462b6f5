package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Allocation struct {
	ID             int64           `db:"id"`
	Key            string          `db:"key"`
	Name           string          `db:"name"`
	Date           string          `db:"date"`
	CurrentBalance decimal.Decimal `db:"current_balance"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

type AllocationHistory struct {
	ID                int64           `db:"id"`
	AllocationID      int64           `db:"allocation_id"`
	MinuteKey         string          `db:"minute_key"`
	StartingBalance   decimal.Decimal `db:"starting_balance"`
	MinuteGain        decimal.Decimal `db:"minute_gain"`
	MinuteGainPercent decimal.Decimal `db:"minute_gain_percent"`
	EndingBalance     decimal.Decimal `db:"ending_balance"`
	Notes             string          `db:"notes"`
	CreatedAt         time.Time       `db:"created_at"`
}
