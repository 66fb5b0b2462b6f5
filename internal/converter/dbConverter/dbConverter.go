package dbConverter

import (
	"encoding/json"
	"fmt"

	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/model/dbModel"
)

func ConvertSnapshot(dbSnapshot dbModel.PortfolioSnapshot) (model.PortfolioSnapshot, error) {
	snapshot := model.PortfolioSnapshot{
		Date:          dbSnapshot.Date,
		MinuteKey:     dbSnapshot.MinuteKey,
		StartingNav:   dbSnapshot.StartingNav,
		EndingNav:     dbSnapshot.EndingNav,
		GrowthPercent: dbSnapshot.GrowthPercent,
		ReportText:    dbSnapshot.ReportText,
		PriceSource:   dbSnapshot.PriceSource,
		CreatedAt:     dbSnapshot.CreatedAt,
		UpdatedAt:     dbSnapshot.UpdatedAt,
		VisualFlags:   model.VisualFlags{},
	}

	if err := unmarshalJSONText(dbSnapshot.SystemStatus, &snapshot.SystemStatus); err != nil {
		return model.PortfolioSnapshot{}, fmt.Errorf("system_status: %w", err)
	}
	if err := unmarshalJSONText(dbSnapshot.VisualFlags, &snapshot.VisualFlags); err != nil {
		return model.PortfolioSnapshot{}, fmt.Errorf("visual_flags: %w", err)
	}
	if err := unmarshalJSONText(dbSnapshot.TeamNotes, &snapshot.TeamNotes); err != nil {
		return model.PortfolioSnapshot{}, fmt.Errorf("team_notes: %w", err)
	}

	return snapshot, nil
}

func ConvertSnapshotToDB(snapshot model.PortfolioSnapshot) (dbModel.PortfolioSnapshot, error) {
	systemStatus, err := json.Marshal(snapshot.SystemStatus)
	if err != nil {
		return dbModel.PortfolioSnapshot{}, err
	}
	visualFlags, err := json.Marshal(snapshot.VisualFlags)
	if err != nil {
		return dbModel.PortfolioSnapshot{}, err
	}
	teamNotes, err := json.Marshal(snapshot.TeamNotes)
	if err != nil {
		return dbModel.PortfolioSnapshot{}, err
	}

	return dbModel.PortfolioSnapshot{
		Date:          snapshot.Date,
		MinuteKey:     snapshot.MinuteKey,
		StartingNav:   snapshot.StartingNav,
		EndingNav:     snapshot.EndingNav,
		GrowthPercent: snapshot.GrowthPercent,
		SystemStatus:  systemStatus,
		VisualFlags:   visualFlags,
		TeamNotes:     teamNotes,
		ReportText:    snapshot.ReportText,
		PriceSource:   snapshot.PriceSource,
		CreatedAt:     snapshot.CreatedAt,
		UpdatedAt:     snapshot.UpdatedAt,
	}, nil
}

func ConvertAssetPerformance(dbAsset dbModel.AssetPerformance) model.AssetPerformance {
	return model.AssetPerformance{
		Symbol:        dbAsset.Symbol,
		Date:          dbAsset.Date,
		MinuteKey:     dbAsset.MinuteKey,
		Open:          dbAsset.Open,
		Close:         dbAsset.Close,
		ChangePercent: dbAsset.ChangePercent,
		VolumeUsd:     dbAsset.VolumeUsd,
	}
}

func ConvertChartPoint(dbPoint dbModel.ChartPoint) model.ChartPoint {
	return model.ChartPoint{
		Datetime: dbPoint.Datetime.UTC(),
		Nav:      dbPoint.Nav,
	}
}

func ConvertAllocation(dbAllocation dbModel.Allocation) model.Allocation {
	return model.Allocation{
		ID:             dbAllocation.ID,
		Key:            dbAllocation.Key,
		Name:           dbAllocation.Name,
		Date:           dbAllocation.Date,
		CurrentBalance: dbAllocation.CurrentBalance,
		CreatedAt:      dbAllocation.CreatedAt,
		UpdatedAt:      dbAllocation.UpdatedAt,
	}
}

func ConvertAllocationHistory(dbEntry dbModel.AllocationHistory) model.AllocationHistoryEntry {
	return model.AllocationHistoryEntry{
		AllocationID:      dbEntry.AllocationID,
		MinuteKey:         dbEntry.MinuteKey,
		StartingBalance:   dbEntry.StartingBalance,
		MinuteGain:        dbEntry.MinuteGain,
		MinuteGainPercent: dbEntry.MinuteGainPercent,
		EndingBalance:     dbEntry.EndingBalance,
		Notes:             dbEntry.Notes,
		CreatedAt:         dbEntry.CreatedAt,
	}
}

func ConvertUser(dbUser dbModel.User) model.User {
	return model.User{
		ID:           dbUser.ID,
		Email:        dbUser.Email,
		FullName:     dbUser.FullName,
		Role:         model.Role(dbUser.Role),
		PasswordHash: dbUser.PasswordHash,
		IsActive:     dbUser.IsStatus,
		CreatedAt:    dbUser.CreatedAt,
		UpdatedAt:    dbUser.UpdatedAt,
	}
}

func unmarshalJSONText(text []byte, dst any) error {
	if len(text) == 0 {
		return nil
	}
	return json.Unmarshal(text, dst)
}
