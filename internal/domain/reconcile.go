package domain

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// sniffSampleSize caps how much of a file the delimiter sniffer inspects.
const sniffSampleSize = 8 * 1024

// delimiterCandidates in preference order. Ties resolve to the earlier one.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// Reconcile parses raw CSV bytes into a Table conforming to schema. It
// detects the delimiter, decides whether the first line is a header row
// (headerless files map to the schema by position), pads or truncates
// ragged rows, fills canonical columns absent from the file with nulls,
// drops columns outside the schema and reorders to the canonical order.
//
// With an empty schema the file's own header is trusted and no column
// alignment happens.
//
// Reconcile never touches the filesystem. Problems that do not prevent
// parsing are reported as warnings; a file that cannot be parsed at all
// yields an empty table and a warning explaining why.
func Reconcile(raw []byte, schema Schema) (Table, []string) {
	var warnings []string

	delim, ok := sniffDelimiter(raw)
	if !ok {
		warnings = append(warnings, "could not detect delimiter, assuming comma")
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return Table{}, append(warnings, fmt.Sprintf("unparsable file: %v", err))
	}
	if len(records) == 0 {
		return Table{}, append(warnings, "empty file")
	}

	var columns []string
	var rows [][]string
	if hasHeaderRow(raw, schema) {
		for _, name := range records[0] {
			columns = append(columns, strings.TrimSpace(name))
		}
		rows = records[1:]
	} else {
		columns = append([]string(nil), schema...)
		rows = records
	}

	rows, w := normalizeWidths(rows, len(columns))
	warnings = append(warnings, w...)

	table := Table{Columns: columns, Rows: rows}
	if !schema.Empty() {
		table, w = alignToSchema(table, schema)
		warnings = append(warnings, w...)
	}
	return table, warnings
}

// hasHeaderRow reports whether the first line of the file looks like a
// header: it must contain the schema's first canonical column name.
// Sources without a schema are assumed to carry a header.
func hasHeaderRow(raw []byte, schema Schema) bool {
	if schema.Empty() {
		return true
	}
	token := strings.ToUpper(schema.headerToken())
	return strings.Contains(strings.ToUpper(firstLine(raw)), token)
}

func firstLine(raw []byte) string {
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimRight(string(raw), "\r")
}

// normalizeWidths pads short rows with nulls and truncates long ones so
// every row has exactly width cells.
func normalizeWidths(rows [][]string, width int) ([][]string, []string) {
	padded, truncated := 0, 0
	out := make([][]string, len(rows))
	for i, row := range rows {
		switch {
		case len(row) < width:
			padded++
			grown := make([]string, width)
			copy(grown, row)
			out[i] = grown
		case len(row) > width:
			truncated++
			out[i] = row[:width]
		default:
			out[i] = row
		}
	}

	var warnings []string
	if padded > 0 {
		warnings = append(warnings, fmt.Sprintf("%d rows shorter than %d columns, padded with nulls", padded, width))
	}
	if truncated > 0 {
		warnings = append(warnings, fmt.Sprintf("%d rows longer than %d columns, extra fields dropped", truncated, width))
	}
	return out, warnings
}

// alignToSchema reshapes a parsed table to exactly the canonical column
// set: missing canonical columns are added null-filled, unknown columns
// are dropped and the result uses the canonical order and names. Parsed
// names match canonical ones case-insensitively, ignoring surrounding
// whitespace.
func alignToSchema(t Table, schema Schema) (Table, []string) {
	var warnings []string

	parsed := map[string]int{}
	for i, c := range t.Columns {
		parsed[strings.ToUpper(strings.TrimSpace(c))] = i
	}

	canonical := map[string]bool{}
	for _, name := range schema {
		canonical[strings.ToUpper(name)] = true
	}
	for _, c := range t.Columns {
		if !canonical[strings.ToUpper(strings.TrimSpace(c))] {
			warnings = append(warnings, fmt.Sprintf("dropping column %q: not in canonical schema", c))
		}
	}

	rows := make([][]string, len(t.Rows))
	for i := range rows {
		rows[i] = make([]string, len(schema))
	}
	for j, name := range schema {
		src, ok := parsed[strings.ToUpper(name)]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("missing column %q filled with nulls", name))
			continue
		}
		for i, row := range t.Rows {
			rows[i][j] = row[src]
		}
	}

	return Table{Columns: append([]string(nil), schema...), Rows: rows}, warnings
}

// sniffDelimiter counts candidate delimiters per line over the leading
// sample and picks the candidate whose count is the same nonzero number
// on every line. Quoted fields can defeat the count; in that case no
// candidate is consistent and the caller falls back to comma, which the
// CSV reader still parses correctly for quoted files.
func sniffDelimiter(raw []byte) (rune, bool) {
	sample := raw
	truncated := false
	if len(sample) > sniffSampleSize {
		sample = sample[:sniffSampleSize]
		truncated = true
	}
	lines := sampleLines(sample, truncated)
	if len(lines) == 0 {
		return ',', false
	}

	best := rune(0)
	bestCount := 0
	for _, cand := range delimiterCandidates {
		count := strings.Count(lines[0], string(cand))
		if count == 0 {
			continue
		}
		consistent := true
		for _, line := range lines[1:] {
			if strings.Count(line, string(cand)) != count {
				consistent = false
				break
			}
		}
		if consistent && count > bestCount {
			best, bestCount = cand, count
		}
	}
	if bestCount == 0 {
		return ',', false
	}
	return best, true
}

// sampleLines splits the sample into complete non-blank lines, dropping
// the trailing fragment when the sample was cut mid-line.
func sampleLines(sample []byte, truncated bool) []string {
	lines := strings.Split(string(sample), "\n")
	if truncated && len(lines) > 1 {
		lines = lines[:len(lines)-1]
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}
