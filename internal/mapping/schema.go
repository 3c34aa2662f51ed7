package mapping

import (
	"fmt"
	"strings"

	"salespulse/internal/datatable"
)

// ColumnDefinition describes one destination table column. Definitions are
// immutable after being added to a schema and owned by it.
type ColumnDefinition struct {
	Name        string
	Type        datatable.DataType
	Nullable    bool
	PrimaryKey  bool
	Unique      bool
	Default     datatable.Value // null means no default
	Constraints []string
}

// ColumnMapping is one source-column → target-column rule. TargetColumn is
// normalized on demand by CleanName and never stored pre-normalized.
type ColumnMapping struct {
	Source      string
	Target      string
	Type        datatable.DataType
	Transforms  []Transform
	Rules       []string // extra validation rule-set names applied by the importer
	Default     datatable.Value
	SkipIfEmpty bool
}

// CleanTarget returns the normalized destination column name.
func (m ColumnMapping) CleanTarget() string {
	return CleanName(m.Target)
}

// IndexSpec describes one table index.
type IndexSpec struct {
	Name    string
	Columns []string
	Unique  bool
}

// TableSchema aggregates the column definitions, mappings, indexes and
// constraints of one destination table. Columns are keyed by name and
// mappings by source name; a re-registration for the same key replaces the
// earlier one.
type TableSchema struct {
	Table  string
	Schema string

	columnOrder  []string
	columns      map[string]ColumnDefinition
	mappingOrder []string
	mappings     map[string]ColumnMapping
	indexes      []IndexSpec
	constraints  []string
}

// NewTableSchema creates an empty schema for a table in the "public"
// namespace.
func NewTableSchema(table string) *TableSchema {
	return &TableSchema{
		Table:    table,
		Schema:   "public",
		columns:  make(map[string]ColumnDefinition),
		mappings: make(map[string]ColumnMapping),
	}
}

// WithNamespace sets the SQL schema namespace and returns the schema for
// chaining.
func (s *TableSchema) WithNamespace(ns string) *TableSchema {
	s.Schema = ns
	return s
}

// AddColumn registers a column definition. Re-adding a name replaces the
// definition but keeps its original position.
func (s *TableSchema) AddColumn(def ColumnDefinition) *TableSchema {
	if _, exists := s.columns[def.Name]; !exists {
		s.columnOrder = append(s.columnOrder, def.Name)
	}
	s.columns[def.Name] = def
	return s
}

// AddMapping registers a source→target mapping. The last registration for a
// given source name wins.
func (s *TableSchema) AddMapping(m ColumnMapping) *TableSchema {
	if _, exists := s.mappings[m.Source]; !exists {
		s.mappingOrder = append(s.mappingOrder, m.Source)
	}
	s.mappings[m.Source] = m
	return s
}

// AddIndex registers an index over the given columns. When name is empty a
// deterministic one is derived from the table and column names.
func (s *TableSchema) AddIndex(columns []string, unique bool, name string) *TableSchema {
	if name == "" {
		name = fmt.Sprintf("idx_%s_%s", s.Table, strings.Join(columns, "_"))
	}
	s.indexes = append(s.indexes, IndexSpec{Name: name, Columns: columns, Unique: unique})
	return s
}

// AddConstraint registers a free-form table constraint.
func (s *TableSchema) AddConstraint(constraint string) *TableSchema {
	s.constraints = append(s.constraints, constraint)
	return s
}

// Columns returns the column definitions in declaration order.
func (s *TableSchema) Columns() []ColumnDefinition {
	out := make([]ColumnDefinition, 0, len(s.columnOrder))
	for _, name := range s.columnOrder {
		out = append(out, s.columns[name])
	}
	return out
}

// Column returns the definition for a column name.
func (s *TableSchema) Column(name string) (ColumnDefinition, bool) {
	def, ok := s.columns[name]
	return def, ok
}

// Mappings returns the column mappings in registration order.
func (s *TableSchema) Mappings() []ColumnMapping {
	out := make([]ColumnMapping, 0, len(s.mappingOrder))
	for _, source := range s.mappingOrder {
		out = append(out, s.mappings[source])
	}
	return out
}

// Mapping returns the mapping registered for a source column name.
func (s *TableSchema) Mapping(source string) (ColumnMapping, bool) {
	m, ok := s.mappings[source]
	return m, ok
}

// Indexes returns the registered index specs.
func (s *TableSchema) Indexes() []IndexSpec {
	return s.indexes
}

// ColumnTypes returns a column→type map over the declared columns.
func (s *TableSchema) ColumnTypes() map[string]datatable.DataType {
	out := make(map[string]datatable.DataType, len(s.columns))
	for name, def := range s.columns {
		out[name] = def.Type
	}
	return out
}

// RequiredColumns returns the names of columns that are non-nullable and
// carry no default, in declaration order.
func (s *TableSchema) RequiredColumns() []string {
	var out []string
	for _, name := range s.columnOrder {
		def := s.columns[name]
		if !def.Nullable && def.Default.IsNull() {
			out = append(out, name)
		}
	}
	return out
}

// PrimaryKeys returns the names of primary key columns in declaration order.
func (s *TableSchema) PrimaryKeys() []string {
	var out []string
	for _, name := range s.columnOrder {
		if s.columns[name].PrimaryKey {
			out = append(out, name)
		}
	}
	return out
}

// CreateTableSQL generates the deterministic CREATE TABLE statement: columns
// in declaration order, one per line, with PRIMARY KEY / NOT NULL / UNIQUE /
// DEFAULT clauses per flags.
func (s *TableSchema) CreateTableSQL() string {
	defs := make([]string, 0, len(s.columnOrder))
	for _, name := range s.columnOrder {
		def := s.columns[name]
		clause := fmt.Sprintf("%s %s", def.Name, def.Type.SQLType())
		if def.PrimaryKey {
			clause += " PRIMARY KEY"
		}
		if !def.Nullable {
			clause += " NOT NULL"
		}
		if def.Unique {
			clause += " UNIQUE"
		}
		if !def.Default.IsNull() {
			clause += " DEFAULT " + def.Default.Text()
		}
		defs = append(defs, clause)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", s.QualifiedName())
	for i, d := range defs {
		b.WriteString("    " + d)
		if i < len(defs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")
	return b.String()
}

// CreateIndexSQL generates one CREATE INDEX statement per registered index.
func (s *TableSchema) CreateIndexSQL() []string {
	out := make([]string, 0, len(s.indexes))
	for _, idx := range s.indexes {
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		out = append(out, fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s);",
			unique, idx.Name, s.QualifiedName(), strings.Join(idx.Columns, ", ")))
	}
	return out
}

// QualifiedName returns the namespace-qualified table name, or the bare table
// name when the namespace is empty (SQLite has no schema namespaces).
func (s *TableSchema) QualifiedName() string {
	if s.Schema == "" {
		return s.Table
	}
	return s.Schema + "." + s.Table
}
