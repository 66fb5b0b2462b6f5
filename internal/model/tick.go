package model

import "time"

const (
	DateLayout      = "2006-01-02"
	MinuteKeyLayout = "2006-01-02-15-04"
)

// Tick identifies one run of the valuation cycle at minute granularity.
type Tick struct {
	Date      string
	MinuteKey string
	At        time.Time
}

func NewTick(t time.Time) Tick {
	t = t.UTC()
	return Tick{
		Date:      t.Format(DateLayout),
		MinuteKey: t.Format(MinuteKeyLayout),
		At:        t,
	}
}

// Datetime is the chart point identity of the tick.
func (t Tick) Datetime() time.Time {
	return t.At.Truncate(time.Minute)
}
