package dataset

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// Table is an immutable row-major record table. Every transforming method
// returns a new Table and leaves the receiver untouched.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// ColumnMissing is a per-column missing value count.
type ColumnMissing struct {
	Column  string
	Missing int
}

// NewTable builds a table, copying columns and rows.
func NewTable(columns []string, rows [][]Value) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, errors.Newf("duplicate column %q", c)
		}
		index[c] = i
	}
	copied := make([][]Value, len(rows))
	for r, row := range rows {
		if len(row) != len(columns) {
			return nil, errors.Newf("row %d has %d cells, expected %d", r, len(row), len(columns))
		}
		copied[r] = append([]Value(nil), row...)
	}
	return &Table{
		columns: append([]string(nil), columns...),
		index:   index,
		rows:    copied,
	}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]Value, bool) {
	c, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]Value, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[c]
	}
	return out, true
}

// Cell returns the value at row r of the named column.
func (t *Table) Cell(r int, name string) (Value, bool) {
	c, ok := t.index[name]
	if !ok || r < 0 || r >= len(t.rows) {
		return Value{}, false
	}
	return t.rows[r][c], true
}

// WithColumn returns a table where the named column holds values.
func (t *Table) WithColumn(name string, values []Value) (*Table, error) {
	return t.ReplaceColumn(name, []string{name}, [][]Value{values})
}

// ReplaceColumn swaps the named column for the given columns at the same
// position. columns[i] holds the values of names[i].
func (t *Table) ReplaceColumn(name string, names []string, columns [][]Value) (*Table, error) {
	pos, ok := t.index[name]
	if !ok {
		return nil, errors.Newf("column %q not found", name)
	}
	if len(names) != len(columns) {
		return nil, errors.Newf("%d names for %d columns", len(names), len(columns))
	}
	for i, col := range columns {
		if len(col) != len(t.rows) {
			return nil, errors.Newf("column %q has %d values, table has %d rows", names[i], len(col), len(t.rows))
		}
	}

	newCols := make([]string, 0, len(t.columns)-1+len(names))
	newCols = append(newCols, t.columns[:pos]...)
	newCols = append(newCols, names...)
	newCols = append(newCols, t.columns[pos+1:]...)

	rows := make([][]Value, len(t.rows))
	for r, row := range t.rows {
		out := make([]Value, 0, len(newCols))
		out = append(out, row[:pos]...)
		for _, col := range columns {
			out = append(out, col[r])
		}
		out = append(out, row[pos+1:]...)
		rows[r] = out
	}
	return NewTable(newCols, rows)
}

// Drop removes the named columns. Names not present are returned as absent.
func (t *Table) Drop(names ...string) (*Table, []string, error) {
	drop := make(map[string]struct{}, len(names))
	var absent []string
	for _, n := range names {
		if !t.HasColumn(n) {
			absent = append(absent, n)
			continue
		}
		drop[n] = struct{}{}
	}
	keep := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if _, ok := drop[c]; !ok {
			keep = append(keep, c)
		}
	}
	out, err := t.Select(keep)
	return out, absent, err
}

// Select returns a table with exactly the named columns in the given order.
func (t *Table) Select(names []string) (*Table, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		c, ok := t.index[n]
		if !ok {
			return nil, errors.Newf("column %q not found", n)
		}
		idx[i] = c
	}
	rows := make([][]Value, len(t.rows))
	for r, row := range t.rows {
		out := make([]Value, len(idx))
		for i, c := range idx {
			out[i] = row[c]
		}
		rows[r] = out
	}
	return NewTable(names, rows)
}

// MissingCounts returns columns with missing values, most missing first.
func (t *Table) MissingCounts() []ColumnMissing {
	counts := make([]int, len(t.columns))
	for _, row := range t.rows {
		for c, v := range row {
			if v.IsMissing() {
				counts[c]++
			}
		}
	}
	var out []ColumnMissing
	for c, n := range counts {
		if n > 0 {
			out = append(out, ColumnMissing{Column: t.columns[c], Missing: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Missing > out[j].Missing })
	return out
}
