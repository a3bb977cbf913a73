// Package excel renders a completed analysis into a downloadable
// spreadsheet report.
package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/intelliinsight/paper-analysis/internal/core/domain"
)

const (
	sheetName   = "Analysis Report"
	contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Exporter struct{}

func New() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Export(rec *domain.AnalysisRecord) (*domain.ReportArtifact, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create report sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	rows := [][2]any{
		{"Title", rec.Title},
		{"Original File", rec.OriginalFileName},
		{"Uploaded", rec.UploadTimestamp.Format("2006-01-02 15:04:05 MST")},
		{"Document Type", string(rec.DocumentType)},
		{"Type Confidence", formatConfidence(rec.TypeConfidence)},
		{"Nature", string(rec.Nature)},
		{"Nature Confidence", formatConfidence(rec.NatureConfidence)},
		{"Processing Time", fmt.Sprintf("%d ms", rec.ProcessingTimeMs)},
		{"File Size", fmt.Sprintf("%d bytes", rec.FileSizeBytes)},
		{"Keywords", strings.Join(rec.Keywords, ", ")},
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheetName, cell, &[]any{row[0], row[1]}); err != nil {
			return nil, fmt.Errorf("write report row: %w", err)
		}
	}

	evidenceStart := len(rows) + 2
	if err := f.SetCellValue(sheetName, fmt.Sprintf("A%d", evidenceStart), "Evidence"); err != nil {
		return nil, fmt.Errorf("write evidence header: %w", err)
	}
	for i, sentence := range rec.Evidence {
		row := evidenceStart + 1 + i
		if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", row), &[]any{i + 1, sentence}); err != nil {
			return nil, fmt.Errorf("write evidence row: %w", err)
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 24); err != nil {
		return nil, fmt.Errorf("size label column: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "B", 90); err != nil {
		return nil, fmt.Errorf("size value column: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	return &domain.ReportArtifact{
		FileName:    reportFileName(rec.Title),
		ContentType: contentType,
		Data:        buf.Bytes(),
	}, nil
}

func formatConfidence(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func reportFileName(title string) string {
	name := strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	if name == "" {
		name = "analysis"
	}
	return name + "_report.xlsx"
}
