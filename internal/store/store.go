package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"salespulse/internal/datatable"
	"salespulse/internal/mapping"
)

// RecordStore is the write boundary of the ingestion core. The importer calls
// it once per table per import with the fully mapped, validated and converted
// row set.
type RecordStore interface {
	Insert(ctx context.Context, table string, records []map[string]any) (int, error)
	Upsert(ctx context.Context, table string, records []map[string]any, conflictKeys []string) (int, error)
}

// Filter is one WHERE predicate. Op is a comparison operator: =, >=, <=, >
// or <.
type Filter struct {
	Column string
	Op     string
	Value  any
}

// SQLStore implements RecordStore and the filtered reads of the service layer
// on a SQL database. Safe for concurrent use; the underlying pool serializes
// writes.
type SQLStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) a SQLite database at path and wraps it in a
// SQLStore.
func Open(path string, logger *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return NewSQLStore(db, logger), nil
}

// NewSQLStore wraps an existing database handle.
func NewSQLStore(db *sql.DB, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{db: db, logger: logger}
}

// DB exposes the underlying handle for health checks.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Close closes the database handle.
func (s *SQLStore) Close() error { return s.db.Close() }

// EnsureSchema creates the schema's table and indexes when missing. The
// schema's namespace is ignored; SQLite stores everything in one namespace.
func (s *SQLStore) EnsureSchema(ctx context.Context, schema *mapping.TableSchema) error {
	flat := *schema
	flat.Schema = ""
	if _, err := s.db.ExecContext(ctx, flat.CreateTableSQL()); err != nil {
		return fmt.Errorf("failed to create table %s: %w", schema.Table, err)
	}
	for _, stmt := range flat.CreateIndexSQL() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", schema.Table, err)
		}
	}
	return nil
}

// Insert writes all records in one transaction and returns the inserted row
// count. Column order is taken from the sorted key union of the records.
func (s *SQLStore) Insert(ctx context.Context, table string, records []map[string]any) (int, error) {
	return s.write(ctx, table, records, nil)
}

// Upsert writes all records in one transaction, updating existing rows on a
// conflict over conflictKeys.
func (s *SQLStore) Upsert(ctx context.Context, table string, records []map[string]any, conflictKeys []string) (int, error) {
	if len(conflictKeys) == 0 {
		return 0, fmt.Errorf("upsert into %s requires conflict keys", table)
	}
	return s.write(ctx, table, records, conflictKeys)
}

func (s *SQLStore) write(ctx context.Context, table string, records []map[string]any, conflictKeys []string) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	columns := recordColumns(records)
	stmt := buildInsertSQL(table, columns, conflictKeys)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert for %s: %w", table, err)
	}
	defer prepared.Close()

	count := 0
	for _, rec := range records {
		args := make([]any, 0, len(columns))
		for _, col := range columns {
			args = append(args, rec[col])
		}
		if _, err := prepared.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("failed to write row into %s: %w", table, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit write to %s: %w", table, err)
	}
	s.logger.Info("batch write finished", "table", table, "rows", count, "upsert", len(conflictKeys) > 0)
	return count, nil
}

// Select reads rows matching the filters, optionally ordered by one column.
func (s *SQLStore) Select(ctx context.Context, table string, filters []Filter, orderBy string, desc bool) (*datatable.Table, error) {
	var b strings.Builder
	fmt.Fprintf(&b, `SELECT * FROM "%s"`, table)
	args := appendWhere(&b, filters)
	if orderBy != "" {
		fmt.Fprintf(&b, ` ORDER BY "%s"`, orderBy)
		if desc {
			b.WriteString(" DESC")
		}
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()
	return scanTable(rows)
}

// Distinct returns the sorted distinct non-null values of one column,
// rendered as text.
func (s *SQLStore) Distinct(ctx context.Context, table, column string) ([]string, error) {
	stmt := fmt.Sprintf(`SELECT DISTINCT "%s" FROM "%s" WHERE "%s" IS NOT NULL ORDER BY "%s"`,
		column, table, column, column)
	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan distinct value: %w", err)
		}
		out = append(out, datatable.FromNative(v).Text())
	}
	return out, rows.Err()
}

func recordColumns(records []map[string]any) []string {
	seen := map[string]bool{}
	for _, rec := range records {
		for col := range rec {
			seen[col] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for col := range seen {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

func buildInsertSQL(table string, columns, conflictKeys []string) string {
	quoted := make([]string, 0, len(columns))
	holes := make([]string, 0, len(columns))
	for _, col := range columns {
		quoted = append(quoted, `"`+col+`"`)
		holes = append(holes, "?")
	}

	var b strings.Builder
	fmt.Fprintf(&b, `INSERT INTO "%s" (%s) VALUES (%s)`,
		table, strings.Join(quoted, ", "), strings.Join(holes, ", "))

	if len(conflictKeys) > 0 {
		keys := make(map[string]bool, len(conflictKeys))
		quotedKeys := make([]string, 0, len(conflictKeys))
		for _, k := range conflictKeys {
			keys[k] = true
			quotedKeys = append(quotedKeys, `"`+k+`"`)
		}
		updates := make([]string, 0, len(columns))
		for _, col := range columns {
			if !keys[col] {
				updates = append(updates, fmt.Sprintf(`"%s" = excluded."%s"`, col, col))
			}
		}
		if len(updates) == 0 {
			// Every column is part of the key: nothing to update on conflict.
			fmt.Fprintf(&b, " ON CONFLICT (%s) DO NOTHING", strings.Join(quotedKeys, ", "))
		} else {
			fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s",
				strings.Join(quotedKeys, ", "), strings.Join(updates, ", "))
		}
	}
	return b.String()
}

func appendWhere(b *strings.Builder, filters []Filter) []any {
	if len(filters) == 0 {
		return nil
	}
	args := make([]any, 0, len(filters))
	clauses := make([]string, 0, len(filters))
	for _, f := range filters {
		clauses = append(clauses, fmt.Sprintf(`"%s" %s ?`, f.Column, f.Op))
		args = append(args, f.Value)
	}
	b.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	return args
}

func scanTable(rows *sql.Rows) (*datatable.Table, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	t := datatable.New(columns...)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := datatable.Row{}
		for i, col := range columns {
			if bs, ok := values[i].([]byte); ok {
				values[i] = string(bs)
			}
			row[col] = datatable.FromNative(values[i])
		}
		t.AppendRow(row)
	}
	return t, rows.Err()
}
