package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"salespulse/internal/datatable"
)

// Options configures an export. The zero value selects sensible defaults per
// format.
type Options struct {
	Delimiter rune   // CSV separator, default comma
	SheetName string // Excel sheet name, default "Sheet1"

	TableName string // SQL target table, required for the sql format
	Schema    string // SQL namespace, default "public"
	IfExists  string // SQL table handling: replace, fail or append; default replace
	BatchSize int    // rows per INSERT statement, default 100

	Compression string // Parquet codec: snappy, gzip or none; default snappy
}

// Exporter writes tables to files. Safe for concurrent use.
type Exporter struct {
	logger *slog.Logger
}

// New returns an Exporter logging through logger. A nil logger falls back to
// slog.Default.
func New(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

// Export writes t to path in the given format, creating the output directory
// when missing. An empty format is inferred from the file extension. The
// returned map merges format-specific details with common metadata: absolute
// path, format, timestamp, row/column counts and file size.
func (e *Exporter) Export(t *datatable.Table, path, format string, opts Options) (map[string]any, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if format == "xlsx" || format == "xlsm" {
			format = "excel"
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var (
		result map[string]any
		err    error
	)
	switch format {
	case "csv":
		result, err = e.exportCSV(t, path, opts)
	case "excel":
		result, err = e.exportExcel(t, path, opts)
	case "json":
		result, err = e.exportJSON(t, path)
	case "sql":
		result, err = e.exportSQL(t, path, opts)
	case "parquet":
		result, err = e.exportParquet(t, path, opts)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, err
	}

	abs, absErr := filepath.Abs(path)
	if absErr != nil {
		abs = path
	}
	var size int64
	if st, statErr := os.Stat(path); statErr == nil {
		size = st.Size()
	}
	result["filepath"] = abs
	result["format"] = format
	result["timestamp"] = time.Now().Format(time.RFC3339)
	result["rows_exported"] = t.RowCount()
	result["columns_exported"] = t.ColumnCount()
	result["file_size"] = size

	e.logger.Info("export finished",
		"path", abs, "format", format,
		"rows", t.RowCount(), "size_bytes", size)
	return result, nil
}

func (e *Exporter) exportCSV(t *datatable.Table, path string, opts Options) (map[string]any, error) {
	sep := opts.Delimiter
	if sep == 0 {
		sep = ','
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = sep
	if err := w.Write(t.Columns()); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	for _, row := range t.Rows() {
		record := make([]string, 0, t.ColumnCount())
		for _, col := range t.Columns() {
			record = append(record, row[col].Text())
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	return map[string]any{
		"success":   true,
		"separator": string(sep),
		"encoding":  "utf-8",
	}, nil
}

// maximum Excel column width; longer content is truncated visually, not in
// the cell.
const maxColumnWidth = 50

func (e *Exporter) exportExcel(t *datatable.Table, path string, opts Options) (map[string]any, error) {
	sheet := opts.SheetName
	if sheet == "" {
		sheet = "Sheet1"
	}

	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	header := make([]any, 0, t.ColumnCount())
	for _, col := range t.Columns() {
		header = append(header, col)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, row := range t.Rows() {
		record := make([]any, 0, t.ColumnCount())
		for _, col := range t.Columns() {
			record = append(record, row[col].Native())
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	// Auto-size columns to the longest stringified cell, capped.
	for idx, col := range t.Columns() {
		width := len([]rune(col))
		for _, row := range t.Rows() {
			if n := len([]rune(row[col].Text())); n > width {
				width = n
			}
		}
		if width+2 < maxColumnWidth {
			width += 2
		} else {
			width = maxColumnWidth
		}
		letter, err := excelize.ColumnNumberToName(idx + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to compute column name: %w", err)
		}
		if err := f.SetColWidth(sheet, letter, letter, float64(width)); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("failed to save spreadsheet: %w", err)
	}
	return map[string]any{
		"success":      true,
		"sheet_name":   sheet,
		"total_sheets": 1,
	}, nil
}

func (e *Exporter) exportJSON(t *datatable.Table, path string) (map[string]any, error) {
	records := t.Records()
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	return map[string]any{
		"success": true,
		"orient":  "records",
		"records": len(records),
	}, nil
}
