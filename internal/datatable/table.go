package datatable

import (
	"fmt"
	"sort"
)

// Row maps column names to cell values. Missing keys read as null.
type Row map[string]Value

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an in-memory table with stable column order.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// New creates an empty table with the given columns, in order.
func New(columns ...string) *Table {
	t := &Table{index: make(map[string]int)}
	for _, c := range columns {
		t.addColumn(c)
	}
	return t
}

func (t *Table) addColumn(name string) {
	if _, ok := t.index[name]; ok {
		return
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
}

// Columns returns the column names in declaration order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// HasColumn reports whether the table declares the column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int { return len(t.rows) }

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int { return len(t.columns) }

// Row returns the i-th row. The returned map is the table's own storage.
func (t *Table) Row(i int) Row { return t.rows[i] }

// Rows returns the backing row slice.
func (t *Table) Rows() []Row { return t.rows }

// AppendRow adds a row. Keys not yet declared become new trailing columns in
// first-seen order, so a table can be built directly from mapped rows.
func (t *Table) AppendRow(r Row) {
	for _, c := range sortedNewKeys(t, r) {
		t.addColumn(c)
	}
	t.rows = append(t.rows, r)
}

// sortedNewKeys returns row keys absent from the table, in a deterministic
// order. Map iteration order is random, so unseen keys are sorted.
func sortedNewKeys(t *Table, r Row) []string {
	var fresh []string
	for k := range r {
		if _, ok := t.index[k]; !ok {
			fresh = append(fresh, k)
		}
	}
	sort.Strings(fresh)
	return fresh
}

// Cell returns the value at row i, column name. Absent cells are null.
func (t *Table) Cell(i int, name string) Value {
	if i < 0 || i >= len(t.rows) {
		return Null()
	}
	return t.rows[i][name]
}

// SetCell writes a value at row i, column name, declaring the column if new.
func (t *Table) SetCell(i int, name string, v Value) error {
	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("row index %d out of range (0..%d)", i, len(t.rows)-1)
	}
	t.addColumn(name)
	t.rows[i][name] = v
	return nil
}

// Column returns all values of a column, one per row.
func (t *Table) Column(name string) []Value {
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[name]
	}
	return out
}

// SetColumn replaces a column's values. The slice length must match the row
// count.
func (t *Table) SetColumn(name string, values []Value) error {
	if len(values) != len(t.rows) {
		return fmt.Errorf("column %s: %d values for %d rows", name, len(values), len(t.rows))
	}
	t.addColumn(name)
	for i := range t.rows {
		t.rows[i][name] = values[i]
	}
	return nil
}

// RenameColumn renames a column in place, keeping its position.
func (t *Table) RenameColumn(old, newName string) error {
	pos, ok := t.index[old]
	if !ok {
		return fmt.Errorf("column %s not found", old)
	}
	if old == newName {
		return nil
	}
	if _, exists := t.index[newName]; exists {
		return fmt.Errorf("column %s already exists", newName)
	}
	t.columns[pos] = newName
	delete(t.index, old)
	t.index[newName] = pos
	for _, r := range t.rows {
		if v, has := r[old]; has {
			r[newName] = v
			delete(r, old)
		}
	}
	return nil
}

// DropColumn removes a column and its cells. Unknown columns are a no-op.
func (t *Table) DropColumn(name string) {
	pos, ok := t.index[name]
	if !ok {
		return
	}
	t.columns = append(t.columns[:pos], t.columns[pos+1:]...)
	delete(t.index, name)
	for i, c := range t.columns {
		t.index[c] = i
	}
	for _, r := range t.rows {
		delete(r, name)
	}
}

// DropEmptyColumns removes columns whose every cell is empty.
func (t *Table) DropEmptyColumns() {
	var drop []string
	for _, c := range t.columns {
		empty := true
		for _, r := range t.rows {
			if !r[c].IsEmpty() {
				empty = false
				break
			}
		}
		if empty && len(t.rows) > 0 {
			drop = append(drop, c)
		}
	}
	for _, c := range drop {
		t.DropColumn(c)
	}
}

// DropEmptyRows removes rows whose every cell is empty.
func (t *Table) DropEmptyRows() {
	kept := t.rows[:0]
	for _, r := range t.rows {
		empty := true
		for _, c := range t.columns {
			if !r[c].IsEmpty() {
				empty = false
				break
			}
		}
		if !empty {
			kept = append(kept, r)
		}
	}
	t.rows = kept
}

// Clone returns a deep copy of column order and row maps. Cell values are
// immutable and shared.
func (t *Table) Clone() *Table {
	out := New(t.columns...)
	out.rows = make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		out.rows = append(out.rows, r.Clone())
	}
	return out
}

// Records renders every row as a map of native Go values, in row order.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for i, r := range t.rows {
		rec := make(map[string]any, len(t.columns))
		for _, c := range t.columns {
			rec[c] = r[c].Native()
		}
		out[i] = rec
	}
	return out
}
