package doctext

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SpreadsheetExtractor renders workbook sheets as text, one sheet per
// page, cells joined by tabs so values stay findable by substring search.
type SpreadsheetExtractor struct{}

func (e *SpreadsheetExtractor) Extensions() []string {
	return []string{"xlsx", "xlsm", "csv"}
}

func (e *SpreadsheetExtractor) Extract(ctx context.Context, data []byte) ([]string, error) {
	if looksLikeZip(data) {
		return e.extractWorkbook(ctx, data)
	}
	return e.extractCSV(data)
}

func (e *SpreadsheetExtractor) extractWorkbook(ctx context.Context, data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var pages []string
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}

		var b strings.Builder
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
		pages = append(pages, b.String())
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return pages, nil
}

func (e *SpreadsheetExtractor) extractCSV(data []byte) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	var b strings.Builder
	for _, row := range records {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	return []string{b.String()}, nil
}

// looksLikeZip reports whether data starts with the PK zip signature
// (xlsx/xlsm are zip containers; csv is not).
func looksLikeZip(data []byte) bool {
	return len(data) >= 2 && data[0] == 'P' && data[1] == 'K'
}

var _ Extractor = (*SpreadsheetExtractor)(nil)
