// Command validate runs integrity checks over the cleaned files in the
// processed data area: canonical schema conformance for the incident
// table, coordinate and flag encoding, census year stamping, weather
// ordering with its derived date parts, duplicate rows, and report
// coverage. It exits non-zero when any check fails.
//
// Usage:
//
//	go run ./cmd/validate -processed-dir data/processed
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/datosviales/siniestros-etl/internal/domain"
)

// weatherTimeLayout matches the hour-resolution timestamps in FECHA_HORA.
const weatherTimeLayout = "2006-01-02T15:04"

// dateParts are the columns the tidy stage derives from FECHA_HORA.
var dateParts = []string{"FECHA", "AÑO", "MES", "DIA", "HORA"}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	processedDir := flag.String("processed-dir", "", "directory containing the cleaned output files")
	flag.Parse()

	if *processedDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*processedDir); code != 0 {
		os.Exit(code)
	}
}

func run(dir string) int {
	// ── Load cleaned tables ──
	fmt.Println("=== Processed Data Validation ===")
	fmt.Println()

	axa, err := loadTable(filepath.Join(dir, "axa_tidy.csv"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load incident table: %v\n", err)
		return 1
	}

	inegi, err := loadTable(filepath.Join(dir, "inegi_tidy.csv"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load census table: %v\n", err)
		return 1
	}

	weather, err := loadTable(filepath.Join(dir, "weather_tidy.csv"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load weather table: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateIncidentSchema(axa),
		validateIncidentValues(axa),
		validateTimeSeries(inegi, weather),
		validateDuplicatesAndReport(dir, axa, inegi, weather),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d incident, %d census, %d weather\n",
		len(axa.rows), len(inegi.rows), len(weather.rows))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// table is one loaded CSV, header plus data rows. Line numbers in error
// messages count from the top of the file, header included.
type table struct {
	name   string
	header []string
	rows   [][]string
}

func (t *table) columnIndex(name string) int {
	for i, c := range t.header {
		if c == name {
			return i
		}
	}
	return -1
}

func loadTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no header row in %s", path)
	}

	return &table{name: filepath.Base(path), header: all[0], rows: all[1:]}, nil
}

// ── Phase 1: Incident schema ──
// The cleaned incident table must carry exactly the canonical columns in
// canonical order, and every row must be full width.

func validateIncidentSchema(t *table) *phase {
	p := &phase{name: "Phase 1: Incident schema (axa_tidy.csv)"}

	if len(t.header) != len(domain.AXASchema) {
		p.errorf("header has %d columns, canonical schema has %d", len(t.header), len(domain.AXASchema))
	}
	for i, want := range domain.AXASchema {
		if i >= len(t.header) {
			p.errorf("column %d missing (want %q)", i, want)
			continue
		}
		if t.header[i] != want {
			p.errorf("column %d: got %q, want %q", i, t.header[i], want)
		}
	}

	for i, row := range t.rows {
		if len(row) != len(domain.AXASchema) {
			p.errorf("line %d: %d fields, want %d", i+2, len(row), len(domain.AXASchema))
		}
	}
	return p
}

// ── Phase 2: Incident values ──
// Required coordinates are present and numeric, numeric columns hold
// nothing but numbers or nulls, and every factor flag is true or false.

func validateIncidentValues(t *table) *phase {
	p := &phase{name: "Phase 2: Incident values (flags, coords)"}

	required := map[string]bool{}
	for _, col := range domain.AXACleanSpec.RequiredColumns {
		required[col] = true
		idx := t.columnIndex(col)
		if idx < 0 {
			p.errorf("required column %q missing", col)
			continue
		}
		for i, row := range t.rows {
			if idx >= len(row) {
				continue
			}
			v := row[idx]
			if v == "" {
				p.errorf("line %d: %s is null", i+2, col)
			} else if _, err := strconv.ParseFloat(v, 64); err != nil {
				p.errorf("line %d: %s %q is not numeric", i+2, col, v)
			}
		}
	}

	for _, col := range domain.AXACleanSpec.NumericColumns {
		if required[col] {
			continue
		}
		idx := t.columnIndex(col)
		if idx < 0 {
			continue // phase 1 reports missing canonical columns
		}
		for i, row := range t.rows {
			if idx >= len(row) || row[idx] == "" {
				continue
			}
			if _, err := strconv.ParseFloat(row[idx], 64); err != nil {
				p.errorf("line %d: %s %q is not numeric", i+2, col, row[idx])
			}
		}
	}

	for _, col := range domain.AXACleanSpec.BinaryColumns {
		idx := t.columnIndex(col)
		if idx < 0 {
			continue
		}
		for i, row := range t.rows {
			if idx >= len(row) {
				continue
			}
			if v := row[idx]; v != "true" && v != "false" {
				p.errorf("line %d: %s %q is not true/false", i+2, col, v)
			}
		}
	}
	return p
}

// ── Phase 3: Census and weather ──
// Census rows carry the year stamped from their source filename. Weather
// rows are sorted by FECHA_HORA and their date parts match it; rows whose
// timestamp does not parse keep null parts.

func validateTimeSeries(inegi, weather *table) *phase {
	p := &phase{name: "Phase 3: Census & weather (date parts)"}

	yearIdx := inegi.columnIndex("AÑO")
	if yearIdx < 0 {
		p.errorf("inegi: AÑO column missing")
	} else {
		for i, row := range inegi.rows {
			if yearIdx >= len(row) {
				continue
			}
			if _, err := strconv.Atoi(row[yearIdx]); err != nil {
				p.errorf("inegi line %d: AÑO %q is not a year", i+2, row[yearIdx])
			}
		}
	}

	tsIdx := weather.columnIndex("FECHA_HORA")
	if tsIdx < 0 {
		p.errorf("weather: FECHA_HORA column missing")
		return p
	}
	partIdx := map[string]int{}
	for _, col := range dateParts {
		idx := weather.columnIndex(col)
		if idx < 0 {
			p.errorf("weather: %s column missing", col)
		}
		partIdx[col] = idx
	}

	prev := ""
	for i, row := range weather.rows {
		if tsIdx >= len(row) {
			continue
		}
		stamp := row[tsIdx]
		if stamp < prev {
			p.errorf("weather line %d: FECHA_HORA %q out of order (previous %q)", i+2, stamp, prev)
		}
		prev = stamp

		want := map[string]string{}
		if ts, err := time.Parse(weatherTimeLayout, stamp); err == nil {
			want["FECHA"] = ts.Format("2006-01-02")
			want["AÑO"] = strconv.Itoa(ts.Year())
			want["MES"] = strconv.Itoa(int(ts.Month()))
			want["DIA"] = strconv.Itoa(ts.Day())
			want["HORA"] = strconv.Itoa(ts.Hour())
		}

		for _, col := range dateParts {
			idx := partIdx[col]
			if idx < 0 || idx >= len(row) {
				continue
			}
			if row[idx] != want[col] {
				p.errorf("weather line %d: %s %q does not match FECHA_HORA %q (want %q)",
					i+2, col, row[idx], stamp, want[col])
			}
		}
	}
	return p
}

// ── Phase 4: Duplicates and report ──
// Cleaned tables hold no exact-duplicate rows, and the processing report
// names every cleaned file.

func validateDuplicatesAndReport(dir string, tables ...*table) *phase {
	p := &phase{name: "Phase 4: Duplicates & report"}

	for _, t := range tables {
		seen := map[string]int{}
		for i, row := range t.rows {
			key := strings.Join(row, "\x1f")
			if first, ok := seen[key]; ok {
				p.errorf("%s line %d: duplicate of line %d", t.name, i+2, first)
				continue
			}
			seen[key] = i + 2
		}
	}

	reportPath := filepath.Join(dir, "reporte_procesamiento.txt")
	data, err := os.ReadFile(reportPath)
	if err != nil {
		p.errorf("report: %v", err)
		return p
	}
	for _, t := range tables {
		if !strings.Contains(string(data), t.name) {
			p.errorf("report does not mention %s", t.name)
		}
	}
	return p
}
