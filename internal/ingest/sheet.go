package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const previewRows = 5

// extractSpreadsheet parses CSV or Excel content into a text preview plus
// sheet/row/column metadata.
func extractSpreadsheet(data []byte, mimeType string) (string, SheetMeta, error) {
	if mimeType == "text/csv" {
		return extractCSV(data)
	}
	return extractXLSX(data)
}

func extractCSV(data []byte) (string, SheetMeta, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return "", SheetMeta{}, fmt.Errorf("failed to parse csv: %w", err)
	}
	return summarizeRows("Sheet1", rows)
}

func extractXLSX(data []byte) (string, SheetMeta, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", SheetMeta{}, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", SheetMeta{}, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", SheetMeta{}, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	text, meta, err := summarizeRows(sheets[0], rows)
	if err != nil {
		return "", SheetMeta{}, err
	}
	meta.Sheets = sheets
	return text, meta, nil
}

// summarizeRows builds the header + first-rows preview and counts.
func summarizeRows(sheetName string, rows [][]string) (string, SheetMeta, error) {
	meta := SheetMeta{Sheets: []string{sheetName}, Rows: len(rows)}
	if len(rows) == 0 {
		return "", meta, nil
	}
	meta.Columns = len(rows[0])

	limit := previewRows + 1 // header plus data rows
	if limit > len(rows) {
		limit = len(rows)
	}
	var lines []string
	for _, row := range rows[:limit] {
		lines = append(lines, strings.Join(row, "\t"))
	}
	preview := strings.Join(lines, "\n")
	meta.Preview = preview
	return preview, meta, nil
}
