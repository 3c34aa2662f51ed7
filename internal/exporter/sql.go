package exporter

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"salespulse/internal/datatable"
)

// defaultBatchSize is the number of rows per INSERT statement.
const defaultBatchSize = 100

// exportSQL writes a plain-text SQL script: header comments, table handling
// per the IfExists mode, an inferred CREATE TABLE for replace/fail modes and
// batched INSERT statements. The literal formatting is stable so scripts for
// the same data diff cleanly.
func (e *Exporter) exportSQL(t *datatable.Table, path string, opts Options) (map[string]any, error) {
	if opts.TableName == "" {
		return nil, fmt.Errorf("sql export requires a table name")
	}
	schema := opts.Schema
	if schema == "" {
		schema = "public"
	}
	ifExists := opts.IfExists
	if ifExists == "" {
		ifExists = "replace"
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- Generated SQL for table %s.%s\n", schema, opts.TableName)
	fmt.Fprintf(&b, "-- Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "-- Total records: %d\n\n", t.RowCount())

	switch ifExists {
	case "replace":
		fmt.Fprintf(&b, "DROP TABLE IF EXISTS %s.%s;\n\n", schema, opts.TableName)
	case "fail":
		b.WriteString("-- Table must not exist\n\n")
	case "append":
		b.WriteString("-- Appending to existing table\n\n")
	default:
		return nil, fmt.Errorf("unsupported if_exists mode %q", ifExists)
	}

	if ifExists == "replace" || ifExists == "fail" {
		b.WriteString(createTableSQL(t, opts.TableName, schema))
		b.WriteString("\n\n")
	}

	quoted := make([]string, 0, t.ColumnCount())
	for _, col := range t.Columns() {
		quoted = append(quoted, `"`+col+`"`)
	}
	columnsStr := strings.Join(quoted, ", ")

	totalBatches := 0
	rows := t.Rows()
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		fmt.Fprintf(&b, "INSERT INTO %s.%s (%s) VALUES\n", schema, opts.TableName, columnsStr)
		tuples := make([]string, 0, end-start)
		for _, row := range rows[start:end] {
			literals := make([]string, 0, t.ColumnCount())
			for _, col := range t.Columns() {
				literals = append(literals, sqlLiteral(row[col]))
			}
			tuples = append(tuples, "("+strings.Join(literals, ", ")+")")
		}
		b.WriteString(strings.Join(tuples, ",\n"))
		b.WriteString(";\n\n")
		totalBatches++
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write sql script: %w", err)
	}
	return map[string]any{
		"success":       true,
		"table_name":    opts.TableName,
		"schema":        schema,
		"total_batches": totalBatches,
		"batch_size":    batchSize,
	}, nil
}

// sqlLiteral renders one cell as a SQL value literal: NULL for nulls, quoted
// and quote-doubled strings, native numbers and booleans, ISO timestamps,
// quoted text for everything else.
func sqlLiteral(v datatable.Value) string {
	switch v.Kind() {
	case datatable.KindNull:
		return "NULL"
	case datatable.KindInt:
		return strconv.FormatInt(v.IntValue(), 10)
	case datatable.KindFloat:
		s := strconv.FormatFloat(v.FloatValue(), 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case datatable.KindDecimal:
		return v.Text()
	case datatable.KindBool:
		if v.BoolValue() {
			return "TRUE"
		}
		return "FALSE"
	case datatable.KindTime:
		return "'" + v.TimeValue().Format("2006-01-02T15:04:05") + "'"
	default:
		return "'" + strings.ReplaceAll(v.Text(), "'", "''") + "'"
	}
}

// createTableSQL infers a CREATE TABLE statement from the native storage
// kinds of the table's columns. Text columns narrow to VARCHAR(n) when the
// longest observed value fits in 255 characters.
func createTableSQL(t *datatable.Table, table, schema string) string {
	lines := make([]string, 0, t.ColumnCount())
	for _, col := range t.Columns() {
		sqlType := inferSQLType(t, col)
		lines = append(lines, fmt.Sprintf(`    "%s" %s`, col, sqlType))
	}
	return fmt.Sprintf("CREATE TABLE %s.%s (\n%s\n);", schema, table, strings.Join(lines, ",\n"))
}

func inferSQLType(t *datatable.Table, col string) string {
	kind := datatable.KindNull
	for _, row := range t.Rows() {
		v := row[col]
		if v.IsNull() {
			continue
		}
		if kind == datatable.KindNull {
			kind = v.Kind()
			continue
		}
		if v.Kind() != kind {
			kind = datatable.KindString // mixed columns degrade to text
			break
		}
	}

	switch kind {
	case datatable.KindInt:
		return "INTEGER"
	case datatable.KindFloat, datatable.KindDecimal:
		return "REAL"
	case datatable.KindBool:
		return "BOOLEAN"
	case datatable.KindTime:
		return "TIMESTAMP"
	}

	if t.RowCount() == 0 {
		return "TEXT"
	}
	maxLen := 0
	for _, row := range t.Rows() {
		if n := len([]rune(row[col].Text())); n > maxLen {
			maxLen = n
		}
	}
	if maxLen <= 255 {
		return fmt.Sprintf("VARCHAR(%d)", maxLen)
	}
	return "TEXT"
}
