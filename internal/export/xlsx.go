// Package export renders stored problems as an XLSX workbook for offline
// review and grading.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/anhducmata/myath/internal/entity"
	"github.com/anhducmata/myath/internal/store"
)

const sheetName = "Problems"

var headers = []string{
	"ID", "Status", "Submitted", "Problem Type", "Statement",
	"Result", "Method", "Confidence", "Verified", "Failed Stage", "Error",
}

type Service struct {
	repo   store.ProblemRepository
	logger *slog.Logger
}

func NewService(repo store.ProblemRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// WriteXLSX writes every stored problem, one row each, newest first.
func (s *Service) WriteXLSX(ctx context.Context, w io.Writer) error {
	problems, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list problems: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	for i, p := range problems {
		cell := fmt.Sprintf("A%d", i+2)
		row := problemRow(p)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info("export.ok", "rows", len(problems))
	return nil
}

func problemRow(p *entity.Problem) []any {
	row := []any{
		p.ID.String(),
		string(p.Status),
		p.CreatedAt.UTC().Format(time.RFC3339),
		"", "", "", "", "", "", "", "",
	}
	if p.Parsed != nil {
		row[3] = string(p.Parsed.Type)
		row[4] = p.Parsed.Statement
	}
	if p.Solution != nil {
		row[5] = strings.Join(p.Solution.Results, ", ")
		row[6] = p.Solution.Method
		row[7] = p.Solution.Confidence
		if p.Solution.Verified != nil {
			row[8] = *p.Solution.Verified
		}
	}
	if p.Error != nil {
		row[9] = string(p.Error.Stage)
		row[10] = p.Error.Message
	}
	return row
}
