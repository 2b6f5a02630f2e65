package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/medinsight/medinsight/internal/entity"
	"github.com/medinsight/medinsight/internal/repository"
)

// Service is a tiny façade over the report repository that produces XLSX
// bytes for a user's report history. The privileged fields (extracted text,
// file path) never enter the workbook.
type Service struct {
	repo   repository.ReportRepository
	logger *slog.Logger
}

func NewService(repo repository.ReportRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportReportsXLSX returns an XLSX workbook (as bytes) with one row per
// report owned by the subject, newest first.
func (s *Service) ExportReportsXLSX(ctx context.Context, subject entity.Subject) ([]byte, error) {
	start := time.Now()

	recs, err := s.repo.ListByOwner(ctx, subject.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Reports"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Uploaded",
		"File Name",
		"Type",
		"Status",
		"Summary",
		"Abnormalities",
		"Recommendations",
		"Doctor Comments",
		"Reviewed At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.CreatedAt.Format("2006-01-02"))
		write(2, r.FileName)
		write(3, string(r.FileType))
		write(4, string(r.Status))
		write(5, truncate(r.Summary, 200))
		write(6, truncate(strings.Join(r.Abnormalities, "; "), 200))
		write(7, truncate(strings.Join(r.Recommendations, "; "), 200))
		write(8, truncate(r.DoctorComments, 140))
		if r.ReviewedAt != nil {
			write(9, r.ReviewedAt.Format("2006-01-02"))
		} else {
			write(9, "")
		}

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 28)
	_ = f.SetColWidth(sheet, "C", "D", 10)
	_ = f.SetColWidth(sheet, "E", "G", 48)
	_ = f.SetColWidth(sheet, "H", "H", 32)
	_ = f.SetColWidth(sheet, "I", "I", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"subject_id", subject.ID.String(),
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
