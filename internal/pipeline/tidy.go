package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/datosviales/siniestros-etl/internal/config"
	"github.com/datosviales/siniestros-etl/internal/domain"
	"github.com/datosviales/siniestros-etl/internal/observability"
	"github.com/datosviales/siniestros-etl/internal/report"
	"github.com/datosviales/siniestros-etl/internal/storage"
)

// Processed artifact names.
const (
	axaTidyFile     = "axa_tidy.csv"
	inegiTidyFile   = "inegi_tidy.csv"
	weatherTidyFile = "weather_tidy.csv"
	reportFile      = "reporte_procesamiento.txt"
)

// weatherTimeLayout is the hour-resolution local timestamp the weather API
// returns.
const weatherTimeLayout = "2006-01-02T15:04"

// weatherRenames maps the API's variable names to the dataset's Spanish
// column names.
var weatherRenames = []struct{ from, to string }{
	{"time", "FECHA_HORA"},
	{"temperature_2m", "TEMPERATURA_C"},
	{"rain", "LLUVIA_MM"},
	{"showers", "ALTA_LLUVIA_MM"},
	{"visibility", "VISIBILIDAD_M"},
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// Tidier turns the raw data area into cleaned per-source CSVs plus a
// processing report. Sources are independent: one failing source is
// reported as unprocessed while the others still land.
type Tidier struct {
	cfg       *config.Config
	raw       *storage.RawStore
	processed *storage.ProcessedStore
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
}

// NewTidier creates a Tidier reading from raw and writing to processed.
func NewTidier(cfg *config.Config, raw *storage.RawStore, processed *storage.ProcessedStore, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Tidier {
	return &Tidier{
		cfg:       cfg,
		raw:       raw,
		processed: processed,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
	}
}

// Run processes every source once and writes the report. Individual source
// failures only log; the returned error is non-nil when the context was
// cancelled or the report could not be written.
func (t *Tidier) Run(ctx context.Context) error {
	t.logger.Info("tidy started",
		"raw_dir", t.raw.Root(),
		"processed_dir", t.processed.Root(),
	)

	summaries := []report.SourceSummary{
		t.runSource(ctx, sourceAXA, "AXA", axaTidyFile, t.tidyAXA),
		t.runSource(ctx, sourceINEGI, "INEGI", inegiTidyFile, t.tidyINEGI),
		t.runSource(ctx, sourceWeather, "Weather", weatherTidyFile, t.tidyWeather),
	}

	if err := ctx.Err(); err != nil {
		t.logger.Info("tidy stopping", "reason", err)
		return err
	}

	path, err := t.processed.WriteReport(reportFile, report.NewWriter(t.clock).Render(summaries))
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	t.logger.Info("report written", "path", path)

	t.metrics.LastRunCompleted.WithLabelValues("tidy").Set(float64(t.clock.Now().Unix()))
	t.logger.Info("tidy finished")
	return nil
}

// tidySourceFunc loads one source's raw files and returns its cleaned table.
type tidySourceFunc func(ctx context.Context) (domain.Table, error)

// runSource runs one source end to end and summarizes the outcome for the
// report. A source that fails stays marked unprocessed.
func (t *Tidier) runSource(ctx context.Context, source, displayName, outputFile string, fn tidySourceFunc) report.SourceSummary {
	summary := report.SourceSummary{Name: displayName, OutputFile: outputFile}
	if ctx.Err() != nil {
		return summary
	}

	table, err := fn(ctx)
	if err != nil {
		t.logger.Error("source not processed", "source", source, "error", err)
		return summary
	}

	path, err := t.processed.WriteTable(outputFile, table)
	if err != nil {
		t.logger.Error("write cleaned table failed", "source", source, "error", err)
		return summary
	}

	t.metrics.RowsWritten.WithLabelValues(source).Add(float64(len(table.Rows)))
	t.logger.Info("cleaned table written",
		"source", source,
		"path", path,
		"rows", len(table.Rows),
		"columns", len(table.Columns),
	)

	summary.Processed = true
	summary.Rows = len(table.Rows)
	summary.Columns = table.Columns
	return summary
}

// tidyAXA combines the yearly incident files, aligned to the canonical
// incident schema, and cleans the result. The year stamped into AÑO comes
// from each filename, the one place it is always present.
func (t *Tidier) tidyAXA(ctx context.Context) (domain.Table, error) {
	paths, err := t.raw.Glob(sourceAXA, "incidentes_viales_*_axa.csv")
	if err != nil {
		return domain.Table{}, err
	}

	tables := make([]domain.Table, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return domain.Table{}, err
		}

		table, ok := t.loadCSV(sourceAXA, path, charmap.ISO8859_1, domain.AXASchema)
		if !ok {
			continue
		}

		if year, ok := yearFromFilename(path); ok {
			table.SetColumn("AÑO", strconv.Itoa(year))
		} else {
			t.logger.Warn("no year in filename, keeping file values",
				"source", sourceAXA, "path", path)
		}
		tables = append(tables, table)
	}
	if len(tables) == 0 {
		return domain.Table{}, fmt.Errorf("no incident files loaded from %s", t.raw.SourceDir(sourceAXA))
	}

	cleaned, stats := domain.Clean(domain.Concat(tables...), domain.AXACleanSpec)
	t.recordCleanStats(sourceAXA, stats)
	return cleaned, nil
}

// tidyINEGI combines the census files for the configured year range. Each
// file covers one year, named atus_anual_<year>.csv inside the archive's
// conjunto_de_datos directory.
func (t *Tidier) tidyINEGI(ctx context.Context) (domain.Table, error) {
	pattern := filepath.Join("conjunto_de_datos", "atus_anual_*.csv")
	paths, err := t.raw.Glob(sourceINEGI, pattern)
	if err != nil {
		return domain.Table{}, err
	}

	tables := make([]domain.Table, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return domain.Table{}, err
		}

		year, ok := yearFromFilename(path)
		if !ok {
			t.logger.Warn("no year in filename, skipping file",
				"source", sourceINEGI, "path", path)
			continue
		}
		if year < t.cfg.StartYear || year > t.cfg.EndYear {
			t.logger.Debug("year outside configured range, skipping file",
				"source", sourceINEGI, "path", path, "year", year)
			continue
		}

		table, ok := t.loadCSV(sourceINEGI, path, charmap.ISO8859_1, nil)
		if !ok {
			continue
		}
		table.SetColumn("AÑO", strconv.Itoa(year))
		tables = append(tables, table)
	}
	if len(tables) == 0 {
		return domain.Table{}, fmt.Errorf("no census files loaded from %s", t.raw.SourceDir(sourceINEGI))
	}

	cleaned, stats := domain.Clean(domain.Concat(tables...), domain.DatePartsCleanSpec)
	t.recordCleanStats(sourceINEGI, stats)
	return cleaned, nil
}

// tidyWeather renames the hourly series to the dataset's column names,
// derives calendar parts from the timestamps, and sorts by hour.
func (t *Tidier) tidyWeather(ctx context.Context) (domain.Table, error) {
	paths, err := t.raw.Glob(sourceWeather, "weather_data_*.csv")
	if err != nil {
		return domain.Table{}, err
	}

	tables := make([]domain.Table, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return domain.Table{}, err
		}
		table, ok := t.loadCSV(sourceWeather, path, nil, nil)
		if !ok {
			continue
		}
		tables = append(tables, table)
	}
	if len(tables) == 0 {
		return domain.Table{}, fmt.Errorf("no weather files loaded from %s", t.raw.SourceDir(sourceWeather))
	}

	combined := domain.Concat(tables...)
	for _, r := range weatherRenames {
		combined.RenameColumn(r.from, r.to)
	}
	addTimestampParts(&combined)

	cleaned, stats := domain.Clean(combined, domain.DatePartsCleanSpec)
	t.recordCleanStats(sourceWeather, stats)
	cleaned.SortByColumn("FECHA_HORA")
	return cleaned, nil
}

// loadCSV reads one raw file, decodes it to UTF-8 when an encoding is
// given, and reconciles it against the schema. Returns false when the file
// could not be read or yielded no usable table; reconcile warnings only
// log.
func (t *Tidier) loadCSV(source, path string, enc encoding.Encoding, schema domain.Schema) (domain.Table, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		t.logger.Error("read raw file failed", "source", source, "path", path, "error", err)
		return domain.Table{}, false
	}

	if enc != nil {
		decoded, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			t.logger.Error("decode raw file failed", "source", source, "path", path, "error", err)
			return domain.Table{}, false
		}
		raw = decoded
	}

	table, warnings := domain.Reconcile(raw, schema)
	for _, w := range warnings {
		t.logger.Warn("reconcile", "source", source, "file", filepath.Base(path), "detail", w)
	}
	t.metrics.ReconcileWarnings.WithLabelValues(source).Add(float64(len(warnings)))

	if len(table.Columns) == 0 {
		t.logger.Error("raw file unusable, skipping", "source", source, "path", path)
		return domain.Table{}, false
	}
	t.metrics.FilesReconciled.WithLabelValues(source).Inc()
	t.metrics.RowsLoaded.WithLabelValues(source).Add(float64(len(table.Rows)))

	t.logger.Debug("raw file loaded",
		"source", source,
		"file", filepath.Base(path),
		"rows", len(table.Rows),
		"warnings", len(warnings),
	)
	return table, true
}

func (t *Tidier) recordCleanStats(source string, stats domain.CleanStats) {
	if stats.DuplicateRows > 0 {
		t.metrics.RowsDropped.WithLabelValues(source, "duplicate").Add(float64(stats.DuplicateRows))
	}
	if stats.RowsMissingRequired > 0 {
		t.metrics.RowsDropped.WithLabelValues(source, "missing_required").Add(float64(stats.RowsMissingRequired))
	}
	t.logger.Info("cleaned",
		"source", source,
		"duplicate_rows", stats.DuplicateRows,
		"rows_missing_required", stats.RowsMissingRequired,
	)
}

// addTimestampParts derives FECHA, AÑO, MES, DIA and HORA from the
// FECHA_HORA column. Rows whose timestamp does not parse get null parts.
func addTimestampParts(t *domain.Table) {
	idx := t.ColumnIndex("FECHA_HORA")
	if idx < 0 {
		return
	}

	t.Columns = append(t.Columns, "FECHA", "AÑO", "MES", "DIA", "HORA")
	for i, row := range t.Rows {
		ts, err := time.Parse(weatherTimeLayout, row[idx])
		if err != nil {
			t.Rows[i] = append(row, domain.Null, domain.Null, domain.Null, domain.Null, domain.Null)
			continue
		}
		t.Rows[i] = append(row,
			ts.Format("2006-01-02"),
			strconv.Itoa(ts.Year()),
			strconv.Itoa(int(ts.Month())),
			strconv.Itoa(ts.Day()),
			strconv.Itoa(ts.Hour()),
		)
	}
}

// yearFromFilename pulls the first four-digit run out of the file's base
// name, the convention every raw source follows.
func yearFromFilename(path string) (int, bool) {
	m := yearPattern.FindString(filepath.Base(path))
	if m == "" {
		return 0, false
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return year, true
}
