package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/paper-grader/internal/core/domain"
	"github.com/kirillkom/paper-grader/internal/infrastructure/storage/localfs"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

// Workbook writes the records to an XLSX file for spreadsheet review.
type Workbook struct {
	path string
}

func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

func (w *Workbook) Persist(_ context.Context, run domain.RunResult) error {
	f, err := BuildWorkbook(run)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return fmt.Errorf("render workbook: %w", err)
	}
	if err := localfs.WriteFile(w.path, &buf); err != nil {
		return fmt.Errorf("write workbook %s: %w", w.path, err)
	}
	return nil
}

// BuildWorkbook lays out one row per record plus a summary sheet.
func BuildWorkbook(run domain.RunResult) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{"File", "Score", "Status", "Reason", "Answer"}
	if err := f.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, rec := range run.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("cell name: %w", err)
		}
		row := []any{rec.File, rec.Score, string(rec.Status), rec.Reason, rec.Answer}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}
	stats := run.Stats()
	summary := [][]any{
		{"Run ID", run.RunID},
		{"Rubric", run.Rubric.Title},
		{"Started", run.StartedAt.UTC().Format("2006-01-02 15:04:05")},
		{"Papers", stats.Total},
		{"Graded", stats.Graded},
		{"Failed", stats.Failed},
		{"Average score", stats.AverageScore},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write summary: %w", err)
		}
	}
	return f, nil
}
