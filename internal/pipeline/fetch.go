package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/datosviales/siniestros-etl/internal/adapter/inegi"
	"github.com/datosviales/siniestros-etl/internal/adapter/openmeteo"
	"github.com/datosviales/siniestros-etl/internal/config"
	"github.com/datosviales/siniestros-etl/internal/domain"
	"github.com/datosviales/siniestros-etl/internal/observability"
	"github.com/datosviales/siniestros-etl/internal/storage"
)

// Raw source directory names. The fetch stage writes under these and the
// tidy stage reads from them.
const (
	sourceAXA     = "axa"
	sourceINEGI   = "inegi"
	sourceWeather = "weather"
)

// IncidentArchiveFetcher downloads one yearly vehicle-incident archive and
// returns the CSV payload inside it.
type IncidentArchiveFetcher interface {
	FetchYear(ctx context.Context, year int) ([]byte, error)
}

// CensusArchiveFetcher downloads the road-accident census archive and
// returns its extracted members.
type CensusArchiveFetcher interface {
	FetchArchive(ctx context.Context) ([]inegi.File, error)
}

// WeatherFetcher retrieves an hourly weather series as a columnar table.
type WeatherFetcher interface {
	FetchHourly(ctx context.Context, req openmeteo.HourlyRequest) (domain.Table, error)
}

// Fetcher downloads every configured source into the raw data area and
// records provenance for whatever it managed to fetch. A failing source or
// year is logged and skipped; it never aborts the rest of the run.
type Fetcher struct {
	cfg       *config.Config
	store     *storage.RawStore
	incidents IncidentArchiveFetcher
	census    CensusArchiveFetcher
	weather   WeatherFetcher
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     clockwork.Clock
	runID     string
}

// NewFetcher creates a Fetcher over the given source clients and raw store.
func NewFetcher(cfg *config.Config, store *storage.RawStore, incidents IncidentArchiveFetcher, census CensusArchiveFetcher, weather WeatherFetcher, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock, runID string) *Fetcher {
	return &Fetcher{
		cfg:       cfg,
		store:     store,
		incidents: incidents,
		census:    census,
		weather:   weather,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
		runID:     runID,
	}
}

// Run downloads every source once. Individual failures only log; the
// returned error is non-nil only when the context was cancelled before the
// run finished.
func (f *Fetcher) Run(ctx context.Context) error {
	f.logger.Info("fetch started",
		"raw_dir", f.store.Root(),
		"start_year", f.cfg.StartYear,
		"end_year", f.cfg.EndYear,
	)

	f.fetchIncidents(ctx)
	f.fetchCensus(ctx)
	f.fetchWeather(ctx)

	if err := ctx.Err(); err != nil {
		f.logger.Info("fetch stopping", "reason", err)
		return err
	}

	f.metrics.LastRunCompleted.WithLabelValues("fetch").Set(float64(f.clock.Now().Unix()))
	f.logger.Info("fetch finished")
	return nil
}

// fetchIncidents downloads one incident archive per configured year. Years
// that fail to download or unpack are skipped.
func (f *Fetcher) fetchIncidents(ctx context.Context) {
	fetched := 0
	for year := f.cfg.StartYear; year <= f.cfg.EndYear; year++ {
		if ctx.Err() != nil {
			return
		}

		data, err := f.incidents.FetchYear(ctx, year)
		if err != nil {
			f.logger.Error("incident fetch failed, skipping year",
				"source", sourceAXA, "year", year, "error", err)
			f.metrics.DownloadErrors.WithLabelValues(sourceAXA).Inc()
			continue
		}
		f.metrics.Downloads.WithLabelValues(sourceAXA).Inc()

		name := fmt.Sprintf("incidentes_viales_%d_axa.csv", year)
		path, err := f.store.WriteFile(sourceAXA, name, data)
		if err != nil {
			f.logger.Error("write raw file failed",
				"source", sourceAXA, "file", name, "error", err)
			continue
		}
		f.metrics.RawFiles.WithLabelValues(sourceAXA).Inc()
		f.logger.Info("raw file saved",
			"source", sourceAXA, "path", path, "bytes", len(data))
		fetched++
	}

	if fetched == 0 {
		return
	}
	f.recordProvenance(sourceAXA, storage.ProvenanceEntry{
		Source: "AXA México – OpenData Incidentes Viales",
		URL:    f.cfg.AXABaseURL,
		Period: fmt.Sprintf("%d-%d", f.cfg.StartYear, f.cfg.EndYear),
	})
}

// fetchCensus downloads the census archive and writes every member,
// preserving the archive's internal directory layout.
func (f *Fetcher) fetchCensus(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	files, err := f.census.FetchArchive(ctx)
	if err != nil {
		f.logger.Error("census fetch failed, skipping source",
			"source", sourceINEGI, "error", err)
		f.metrics.DownloadErrors.WithLabelValues(sourceINEGI).Inc()
		return
	}
	f.metrics.Downloads.WithLabelValues(sourceINEGI).Inc()

	written := 0
	for _, file := range files {
		path, err := f.store.WriteFile(sourceINEGI, file.Name, file.Data)
		if err != nil {
			f.logger.Error("write raw file failed",
				"source", sourceINEGI, "file", file.Name, "error", err)
			continue
		}
		f.metrics.RawFiles.WithLabelValues(sourceINEGI).Inc()
		f.logger.Debug("raw file saved",
			"source", sourceINEGI, "path", path, "bytes", len(file.Data))
		written++
	}
	f.logger.Info("census archive extracted", "source", sourceINEGI, "files", written)

	if written == 0 {
		return
	}
	f.recordProvenance(sourceINEGI, storage.ProvenanceEntry{
		Source: "INEGI – Accidentes de Tránsito Terrestre",
		URL:    f.cfg.INEGIArchiveURL,
	})
}

// fetchWeather requests the configured hourly series and stores it as one
// CSV covering the whole year range.
func (f *Fetcher) fetchWeather(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	start, end := f.cfg.WeatherPeriod()
	table, err := f.weather.FetchHourly(ctx, openmeteo.HourlyRequest{
		Latitude:  f.cfg.WeatherLatitude,
		Longitude: f.cfg.WeatherLongitude,
		Variables: f.cfg.WeatherVariables,
		Start:     start,
		End:       end,
		Timezone:  f.cfg.WeatherTimezone,
	})
	if err != nil {
		f.logger.Error("weather fetch failed, skipping source",
			"source", sourceWeather, "error", err)
		f.metrics.DownloadErrors.WithLabelValues(sourceWeather).Inc()
		return
	}
	f.metrics.Downloads.WithLabelValues(sourceWeather).Inc()

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		f.logger.Error("encode weather series failed", "source", sourceWeather, "error", err)
		return
	}

	name := fmt.Sprintf("weather_data_%d_%d.csv", f.cfg.StartYear, f.cfg.EndYear)
	path, err := f.store.WriteFile(sourceWeather, name, buf.Bytes())
	if err != nil {
		f.logger.Error("write raw file failed",
			"source", sourceWeather, "file", name, "error", err)
		return
	}
	f.metrics.RawFiles.WithLabelValues(sourceWeather).Inc()
	f.logger.Info("raw file saved",
		"source", sourceWeather, "path", path, "rows", len(table.Rows))

	f.recordProvenance(sourceWeather, storage.ProvenanceEntry{
		Source: "Open Meteo – Historical Weather Data",
		URL:    f.cfg.WeatherBaseURL,
		Period: fmt.Sprintf("%s a %s", start, end),
	})
}

func (f *Fetcher) recordProvenance(source string, entry storage.ProvenanceEntry) {
	entry.RunID = f.runID
	entry.SavedTo = f.store.SourceDir(source)
	if err := f.store.AppendProvenance(source, entry); err != nil {
		f.logger.Error("append provenance failed", "source", source, "error", err)
	}
}
