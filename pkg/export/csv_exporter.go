package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

// Dataset defines tabular export content. Rows are keyed by header.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// ErrNoHeaders is returned when a dataset declares no columns.
var ErrNoHeaders = errors.New("export requires at least one header")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVExporter renders a Dataset as CSV.
type CSVExporter struct {
	// WithBOM prefixes the output so spreadsheet tools detect UTF-8 district names.
	WithBOM bool
	// EscapeFormulas prefixes cells that a spreadsheet would evaluate with a single quote.
	EscapeFormulas bool
}

// NewCSVExporter builds a CSV exporter for spreadsheet consumers.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{WithBOM: true, EscapeFormulas: true}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, ErrNoHeaders
	}
	var buf bytes.Buffer
	if e.WithBOM {
		buf.Write(utf8BOM)
	}
	w := csv.NewWriter(&buf)
	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Headers))
	for n, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = e.cell(row[header])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", n+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *CSVExporter) cell(value string) string {
	if !e.EscapeFormulas || value == "" {
		return value
	}
	if strings.ContainsRune("=+-@\t\r", rune(value[0])) && !isNumber(value) {
		return "'" + value
	}
	return value
}

func isNumber(value string) bool {
	if value[0] == '-' || value[0] == '+' {
		value = value[1:]
	}
	if value == "" {
		return false
	}
	dot := false
	for i := 0; i < len(value); i++ {
		switch c := value[i]; {
		case c == '.' && !dot:
			dot = true
		case c < '0' || c > '9':
			return false
		}
	}
	return true
}
