package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"churninsight/dashboard/internal/models"
)

// InspectBatchFile reads the header and counts the data rows of a .csv or
// .xlsx file. Files without a data row are rejected.
func InspectBatchFile(path string) (models.BatchFileSummary, error) {
	if err := ValidateBatchFileName(path); err != nil {
		return models.BatchFileSummary{}, err
	}

	var (
		summary models.BatchFileSummary
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		summary, err = inspectSpreadsheet(path)
	default:
		summary, err = inspectCSV(path)
	}
	if err != nil {
		return models.BatchFileSummary{}, err
	}
	if summary.Rows == 0 {
		return summary, &ValidationError{Message: "batch file has no data rows"}
	}
	return summary, nil
}

func inspectSpreadsheet(path string) (models.BatchFileSummary, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return models.BatchFileSummary{}, &ValidationError{Message: fmt.Sprintf("unreadable spreadsheet: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return models.BatchFileSummary{}, &ValidationError{Message: "spreadsheet has no sheets"}
	}

	// Only the first sheet is scored.
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return models.BatchFileSummary{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return summarize(rows), nil
}

func inspectCSV(path string) (models.BatchFileSummary, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.BatchFileSummary{}, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	var summary models.BatchFileSummary
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.BatchFileSummary{}, &ValidationError{Message: fmt.Sprintf("malformed csv: %v", err)}
		}
		if blank(record) {
			continue
		}
		if summary.Columns == nil {
			summary.Columns = header(record)
			continue
		}
		summary.Rows++
	}
	return summary, nil
}

func summarize(rows [][]string) models.BatchFileSummary {
	var summary models.BatchFileSummary
	for _, row := range rows {
		if blank(row) {
			continue
		}
		if summary.Columns == nil {
			summary.Columns = header(row)
			continue
		}
		summary.Rows++
	}
	return summary
}

func header(record []string) []string {
	cols := make([]string, 0, len(record))
	for _, c := range record {
		cols = append(cols, strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")))
	}
	return cols
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
