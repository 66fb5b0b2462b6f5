package model

import "time"

// LedgerReport is the input of the ledger workbook.
type LedgerReport struct {
	GeneratedAt time.Time
	Nav         []NavHistoryPoint
	Allocations []LedgerAllocation
}

type LedgerAllocation struct {
	Key string
	AllocationView
}
