package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// Dataset is a table to export. Rows are keyed by header.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// CSVExporter renders datasets as RFC 4180 CSV.
type CSVExporter struct {
	// Sanitize prefixes cells that a spreadsheet would evaluate as a formula.
	Sanitize bool
}

// NewCSVExporter builds a CSV exporter with formula sanitising on.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{Sanitize: true}
}

// Render writes the header line followed by one line per row; missing keys become empty cells.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Headers))
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = e.cell(row[header])
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *CSVExporter) cell(value string) string {
	if !e.Sanitize || value == "" {
		return value
	}
	if strings.ContainsRune("=+-@", rune(value[0])) && !isNumber(value) {
		return "'" + value
	}
	return value
}

func isNumber(value string) bool {
	seenDigit := false
	for i, r := range value {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
		case (r == '-' || r == '+') && i == 0:
		case r == '.':
		default:
			return false
		}
	}
	return seenDigit
}
