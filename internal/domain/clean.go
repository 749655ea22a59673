package domain

import (
	"math"
	"strconv"
	"strings"
)

// sentinelTokens are the upstream null markers replaced during cleaning.
// `\N` is the MySQL dump escape for NULL that the AXA exports carry.
var sentinelTokens = map[string]bool{`\N`: true, " ": true, Null: true}

// CleanSpec selects which cleaning rules apply to which columns. Columns
// the table does not have are ignored.
type CleanSpec struct {
	// NumericColumns are re-rendered as canonical floats; values that do
	// not parse become null.
	NumericColumns []string
	// BinaryColumns collapse to "true"/"false" with no nulls.
	BinaryColumns []string
	// RequiredColumns must all be non-null for a row to survive.
	RequiredColumns []string
}

// CleanStats counts the rows Clean removed, by rule.
type CleanStats struct {
	DuplicateRows       int
	RowsMissingRequired int
}

// Clean applies the cleaning rules in fixed order: duplicate rows are
// dropped (first occurrence wins), column names are trimmed and
// uppercased, sentinel tokens become nulls, numeric and binary columns
// are coerced, and rows with a null in any required column are removed.
//
// The input table is not modified. Each rule maps already-clean cells to
// themselves, so re-cleaning changes nothing except rows the coercions
// made identical, which only then count as duplicates.
func Clean(t Table, spec CleanSpec) (Table, CleanStats) {
	out := t.Clone()
	var stats CleanStats

	out, stats.DuplicateRows = dropDuplicateRows(out)
	normalizeColumnNames(out)
	replaceSentinels(out)
	coerceNumeric(out, spec.NumericColumns)
	coerceBinary(out, spec.BinaryColumns)
	out, stats.RowsMissingRequired = dropRowsMissingRequired(out, spec.RequiredColumns)

	return out, stats
}

func dropDuplicateRows(t Table) (Table, int) {
	seen := make(map[string]bool, len(t.Rows))
	kept := t.Rows[:0]
	removed := 0
	for _, row := range t.Rows {
		key := strings.Join(row, "\x1f")
		if seen[key] {
			removed++
			continue
		}
		seen[key] = true
		kept = append(kept, row)
	}
	t.Rows = kept
	return t, removed
}

func normalizeColumnNames(t Table) {
	for i, c := range t.Columns {
		t.Columns[i] = strings.ToUpper(strings.TrimSpace(c))
	}
}

func replaceSentinels(t Table) {
	for _, row := range t.Rows {
		for i, cell := range row {
			if sentinelTokens[cell] {
				row[i] = Null
			}
		}
	}
}

func coerceNumeric(t Table, columns []string) {
	for _, name := range columns {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			continue
		}
		for _, row := range t.Rows {
			row[idx] = coerceFloat(row[idx])
		}
	}
}

// coerceFloat re-renders a cell as a canonical float ("0019.40" → "19.4").
// Nulls stay null; unparsable, NaN and infinite values become null.
func coerceFloat(cell string) string {
	if cell == Null {
		return Null
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Null
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func coerceBinary(t Table, columns []string) {
	for _, name := range columns {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			continue
		}
		for _, row := range t.Rows {
			row[idx] = coerceBool(row[idx])
		}
	}
}

// coerceBool maps affirmative tokens to "true" and everything else, nulls
// included, to "false". "TRUE" is accepted alongside "SI" so a second
// cleaning pass leaves the column unchanged.
func coerceBool(cell string) string {
	switch strings.ToUpper(strings.TrimSpace(cell)) {
	case "SI", "TRUE":
		return "true"
	}
	return "false"
}

func dropRowsMissingRequired(t Table, columns []string) (Table, int) {
	var idxs []int
	for _, name := range columns {
		if i := t.ColumnIndex(name); i >= 0 {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) == 0 {
		return t, 0
	}

	kept := t.Rows[:0]
	dropped := 0
	for _, row := range t.Rows {
		missing := false
		for _, i := range idxs {
			if row[i] == Null {
				missing = true
				break
			}
		}
		if missing {
			dropped++
			continue
		}
		kept = append(kept, row)
	}
	t.Rows = kept
	return t, dropped
}
