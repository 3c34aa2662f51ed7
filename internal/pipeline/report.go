package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Summary aggregates the errors of the current run into a report suitable for
// logging or an API response: totals, a histogram by error type, counts per
// column, and up to five sample errors.
func (p *Processor) Summary() map[string]any {
	byType := map[string]int{}
	byColumn := map[string]int{}
	for _, e := range p.errors {
		byType[e.ErrorType]++
		if e.Column != "" {
			byColumn[e.Column]++
		}
	}

	samples := make([]map[string]any, 0, 5)
	for _, e := range p.errors {
		if len(samples) == 5 {
			break
		}
		s := map[string]any{
			"column":        e.Column,
			"error_type":    e.ErrorType,
			"error_message": e.Message,
		}
		if e.RowIndex != nil {
			s["row_index"] = *e.RowIndex
		}
		samples = append(samples, s)
	}

	return map[string]any{
		"total_errors":     len(p.errors),
		"total_warnings":   len(p.warnings),
		"error_types":      byType,
		"errors_by_column": byColumn,
		"sample_errors":    samples,
	}
}

// errorRecord fixes the exported field order for error reports.
type errorRecord struct {
	RowIndex     *int   `json:"row_index"`
	Column       string `json:"column"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
	RawValue     string `json:"raw_value"`
	Timestamp    string `json:"timestamp"`
}

// ExportErrors writes the errors of the current run to path. Supported
// formats are "json" (indented array) and "csv" (header plus one line per
// error).
func (p *Processor) ExportErrors(path, format string) error {
	records := make([]errorRecord, 0, len(p.errors))
	for _, e := range p.errors {
		records = append(records, errorRecord{
			RowIndex:     e.RowIndex,
			Column:       e.Column,
			ErrorType:    e.ErrorType,
			ErrorMessage: e.Message,
			RawValue:     e.RawValue.Text(),
			Timestamp:    e.Timestamp.Format(time.RFC3339),
		})
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("encode error report: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write error report: %w", err)
		}
		return nil
	case "csv":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create error report: %w", err)
		}
		defer f.Close()

		w := csv.NewWriter(f)
		if err := w.Write([]string{"row_index", "column", "error_type", "error_message", "raw_value", "timestamp"}); err != nil {
			return fmt.Errorf("write error report header: %w", err)
		}
		for _, r := range records {
			rowIdx := ""
			if r.RowIndex != nil {
				rowIdx = strconv.Itoa(*r.RowIndex)
			}
			if err := w.Write([]string{rowIdx, r.Column, r.ErrorType, r.ErrorMessage, r.RawValue, r.Timestamp}); err != nil {
				return fmt.Errorf("write error report row: %w", err)
			}
		}
		w.Flush()
		return w.Error()
	default:
		return fmt.Errorf("unsupported error report format %q", format)
	}
}
