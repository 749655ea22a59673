package domain

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
)

// Null marks a missing value in a Table cell. The cleaning rules and the
// CSV writer both rely on the empty string being the only null marker.
const Null = ""

// Table is an in-memory tabular dataset with string cells. Every row has
// exactly len(Columns) cells once it leaves Reconcile or Concat.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table has no columns.
func (t Table) Empty() bool {
	return len(t.Columns) == 0
}

// ColumnIndex returns the position of the named column, or -1 when absent.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// SetColumn fills every cell of the named column with value, appending the
// column when it does not exist yet.
func (t *Table) SetColumn(name, value string) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		t.Columns = append(t.Columns, name)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], value)
		}
		return
	}
	for i := range t.Rows {
		t.Rows[i][idx] = value
	}
}

// RenameColumn renames the first column called old and reports whether a
// column was renamed.
func (t *Table) RenameColumn(old, new string) bool {
	idx := t.ColumnIndex(old)
	if idx < 0 {
		return false
	}
	t.Columns[idx] = new
	return true
}

// SortByColumn stably sorts rows by the named column's string value.
// Tables without the column are left untouched.
func (t *Table) SortByColumn(name string) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i][idx] < t.Rows[j][idx]
	})
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// WriteCSV writes the table as comma-separated UTF-8 with a header row.
// Null cells are written as empty fields.
func (t Table) WriteCSV(w io.Writer) error {
	if t.Empty() {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Concat stacks tables into one, building the union of their columns in
// first-seen order. Cells for columns a table lacks are null-filled.
// Tables without columns are skipped.
func Concat(tables ...Table) Table {
	var columns []string
	position := map[string]int{}
	for _, t := range tables {
		for _, c := range t.Columns {
			if _, ok := position[c]; !ok {
				position[c] = len(columns)
				columns = append(columns, c)
			}
		}
	}
	if len(columns) == 0 {
		return Table{}
	}

	var rows [][]string
	for _, t := range tables {
		idx := make([]int, len(t.Columns))
		for i, c := range t.Columns {
			idx[i] = position[c]
		}
		for _, row := range t.Rows {
			// Cells start out as Null (the empty string).
			aligned := make([]string, len(columns))
			for i, cell := range row {
				if i < len(idx) {
					aligned[idx[i]] = cell
				}
			}
			rows = append(rows, aligned)
		}
	}
	return Table{Columns: columns, Rows: rows}
}
