package dbConverter

import (
	"testing"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model/dbModel"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotJSONColumnsSurviveConversion(t *testing.T) {
	snapshot := model.PortfolioSnapshot{
		Date:          "2025-06-01",
		MinuteKey:     "2025-06-01-10-15",
		StartingNav:   decimal.NewFromInt(100000),
		EndingNav:     decimal.RequireFromString("101302.8"),
		GrowthPercent: decimal.RequireFromString("1.3028"),
		SystemStatus:  model.SystemStatus{RoutingActive: true, LastSyncSuccess: true},
		VisualFlags:   model.VisualFlags{"Smart Routing": "On"},
		TeamNotes:     model.TeamNotes{Developer: "Automated System"},
		ReportText:    "report",
		PriceSource:   "coinmarketcap",
		CreatedAt:     time.Date(2025, 6, 1, 10, 15, 0, 0, time.UTC),
	}

	row, err := ConvertSnapshotToDB(snapshot)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Smart Routing":"On"}`, string(row.VisualFlags))

	back, err := ConvertSnapshot(row)
	require.NoError(t, err)
	assert.Equal(t, snapshot.SystemStatus, back.SystemStatus)
	assert.Equal(t, snapshot.VisualFlags, back.VisualFlags)
	assert.Equal(t, snapshot.TeamNotes, back.TeamNotes)
	assert.True(t, snapshot.EndingNav.Equal(back.EndingNav))
}

func TestConvertSnapshot_EmptyJSONColumns(t *testing.T) {
	back, err := ConvertSnapshot(dbModelSnapshotWithoutJSON())
	require.NoError(t, err)
	assert.Empty(t, back.VisualFlags)
	assert.False(t, back.SystemStatus.RoutingActive)
}

func dbModelSnapshotWithoutJSON() dbModel.PortfolioSnapshot {
	return dbModel.PortfolioSnapshot{Date: "2025-06-01", MinuteKey: "2025-06-01-10-15"}
}
