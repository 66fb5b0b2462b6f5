package reportService

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/KotFed0t/crypto_vault_tracker/internal/model"
	"github.com/KotFed0t/crypto_vault_tracker/internal/service"
	"github.com/KotFed0t/crypto_vault_tracker/utils"
)

// navRows bounds the NAV sheet to the most recent points.
const navRows = 1440

type Source interface {
	NavHistory(ctx context.Context, limit int) ([]model.NavHistoryPoint, error)
	Allocations(ctx context.Context, date *string) (map[string]model.AllocationView, error)
}

type Generator interface {
	Generate(ctx context.Context, report model.LedgerReport) (fileBytes []byte, fileExtension string, err error)
}

type Uploader interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

type ReportService struct {
	source    Source
	generator Generator
	uploader  Uploader
	now       func() time.Time
}

// New builds the service. A nil uploader disables publishing.
func New(source Source, generator Generator, uploader Uploader) *ReportService {
	return &ReportService{
		source:    source,
		generator: generator,
		uploader:  uploader,
		now:       time.Now,
	}
}

// LedgerWorkbook returns the workbook bytes and a file name for it.
func (s *ReportService) LedgerWorkbook(ctx context.Context) ([]byte, string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	now := s.now().UTC()

	nav, err := s.source.NavHistory(ctx, navRows)
	if err != nil {
		return nil, "", fmt.Errorf("nav history: %w", err)
	}

	allocations, err := s.source.Allocations(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("allocations: %w", err)
	}

	if len(nav) == 0 && len(allocations) == 0 {
		return nil, "", service.ErrNotFound
	}

	report := model.LedgerReport{GeneratedAt: now, Nav: nav}
	for key, view := range allocations {
		report.Allocations = append(report.Allocations, model.LedgerAllocation{Key: key, AllocationView: view})
	}
	sort.Slice(report.Allocations, func(i, j int) bool {
		return report.Allocations[i].Key < report.Allocations[j].Key
	})

	file, ext, err := s.generator.Generate(ctx, report)
	if err != nil {
		return nil, "", fmt.Errorf("generate workbook: %w", err)
	}

	filename := "ledger_" + now.Format("2006-01-02_15-04") + ext
	slog.Info("ledger workbook generated", slog.String("rqID", rqID), slog.String("op", "ReportService.LedgerWorkbook"), slog.String("filename", filename), slog.Int("bytes", len(file)))

	return file, filename, nil
}

// Publish uploads a fresh workbook and returns its public link.
func (s *ReportService) Publish(ctx context.Context) (string, error) {
	if s.uploader == nil {
		return "", service.ErrNotConfigured
	}

	file, filename, err := s.LedgerWorkbook(ctx)
	if err != nil {
		return "", err
	}

	link, err := s.uploader.UploadFile(ctx, bytes.NewReader(file), filename)
	if err != nil {
		return "", fmt.Errorf("upload workbook: %w", err)
	}

	return link, nil
}
