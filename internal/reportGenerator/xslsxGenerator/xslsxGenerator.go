package xslsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
	"github.com/xuri/excelize/v2"
)

const navSheet = "NAV history"

type XSLSXGenerator struct{}

func New() *XSLSXGenerator {
	return &XSLSXGenerator{}
}

// Generate renders the NAV history and every allocation ledger into one workbook.
func (g *XSLSXGenerator) Generate(ctx context.Context, report model.LedgerReport) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	if len(report.Nav) == 0 && len(report.Allocations) == 0 {
		return nil, "", errors.New("empty report")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"},
		},
	})
	if err != nil {
		return nil, "", err
	}

	if err = g.fillNavSheet(f, report, headerStyle); err != nil {
		slog.Error("got error while filling nav sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	for _, allocation := range report.Allocations {
		if err = g.fillAllocationSheet(f, allocation, headerStyle); err != nil {
			slog.Error("got error while filling allocation sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", allocation.Key), slog.String("err", err.Error()))
			return nil, "", err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XSLSXGenerator) fillNavSheet(f *excelize.File, report model.LedgerReport, headerStyle int) error {
	if _, err := f.NewSheet(navSheet); err != nil {
		return err
	}

	if err := f.MergeCell(navSheet, "A1", "D1"); err != nil {
		return err
	}
	_ = f.SetCellStr(navSheet, "A1", fmt.Sprintf("Portfolio NAV, generated %s", report.GeneratedAt.UTC().Format("2006-01-02 15:04 MST")))
	if err := f.SetCellStyle(navSheet, "A1", "A1", headerStyle); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(navSheet, "A2", "date")
	_ = f.SetCellStr(navSheet, "B2", "minute")
	_ = f.SetCellStr(navSheet, "C2", "ending nav")
	_ = f.SetCellStr(navSheet, "D2", "growth %")

	for i, point := range report.Nav {
		row := i + 3
		_ = f.SetCellStr(navSheet, fmt.Sprintf("A%d", row), point.Date)
		_ = f.SetCellStr(navSheet, fmt.Sprintf("B%d", row), point.MinuteKey)
		_ = f.SetCellValue(navSheet, fmt.Sprintf("C%d", row), point.EndingNav.InexactFloat64())
		_ = f.SetCellValue(navSheet, fmt.Sprintf("D%d", row), point.GrowthPercent.InexactFloat64())
	}

	return nil
}

func (g *XSLSXGenerator) fillAllocationSheet(f *excelize.File, allocation model.LedgerAllocation, headerStyle int) error {
	sheetName := fmt.Sprintf("%s. %s", allocation.Key, allocation.Name)
	if len(sheetName) > 31 {
		sheetName = sheetName[:31]
	}

	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "F1"); err != nil {
		return err
	}
	_ = f.SetCellStr(sheetName, "A1", fmt.Sprintf("%s (%s), balance %s", allocation.Name, allocation.Date, allocation.CurrentBalance.StringFixed(2)))
	if err := f.SetCellStyle(sheetName, "A1", "A1", headerStyle); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "minute")
	_ = f.SetCellStr(sheetName, "B2", "starting balance")
	_ = f.SetCellStr(sheetName, "C2", "gain")
	_ = f.SetCellStr(sheetName, "D2", "gain %")
	_ = f.SetCellStr(sheetName, "E2", "ending balance")
	_ = f.SetCellStr(sheetName, "F2", "notes")

	for i, entry := range allocation.History {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), entry.MinuteKey)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), entry.StartingBalance.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), entry.MinuteGain.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), entry.MinuteGainPercent.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), entry.EndingBalance.InexactFloat64())
		_ = f.SetCellStr(sheetName, fmt.Sprintf("F%d", row), entry.Notes)
	}

	return nil
}
