package observability

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "siniestros_etl"

// Metrics holds the Prometheus counters and gauges for both pipeline
// stages. Each Metrics owns a private registry, so independent runs and
// tests never collide on registration, and Export can write the whole
// registry as a node_exporter textfile.
type Metrics struct {
	registry *prometheus.Registry

	Downloads      *prometheus.CounterVec // labels: source
	DownloadErrors *prometheus.CounterVec // labels: source
	RawFiles       *prometheus.CounterVec // labels: source

	FilesReconciled   *prometheus.CounterVec // labels: source
	ReconcileWarnings *prometheus.CounterVec // labels: source
	RowsLoaded        *prometheus.CounterVec // labels: source
	RowsDropped       *prometheus.CounterVec // labels: source, reason
	RowsWritten       *prometheus.CounterVec // labels: source

	LastRunCompleted *prometheus.GaugeVec // labels: stage
}

// NewMetrics creates all pipeline metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Successful downloads by source.",
		}, []string{"source"}),
		DownloadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_errors_total",
			Help:      "Failed downloads by source.",
		}, []string{"source"}),
		RawFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raw_files_written_total",
			Help:      "Raw files written to the raw data area.",
		}, []string{"source"}),
		FilesReconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_reconciled_total",
			Help:      "Raw files parsed and reconciled against their schema.",
		}, []string{"source"}),
		ReconcileWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_warnings_total",
			Help:      "Warnings emitted while reconciling raw files.",
		}, []string{"source"}),
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Rows loaded from raw files before cleaning.",
		}, []string{"source"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows removed during cleaning, by reason.",
		}, []string{"source", "reason"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to cleaned tables.",
		}, []string{"source"}),
		LastRunCompleted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_completed_timestamp_seconds",
			Help:      "Unix timestamp of the last completed run, by stage.",
		}, []string{"stage"}),
	}

	m.registry.MustRegister(
		m.Downloads,
		m.DownloadErrors,
		m.RawFiles,
		m.FilesReconciled,
		m.ReconcileWarnings,
		m.RowsLoaded,
		m.RowsDropped,
		m.RowsWritten,
		m.LastRunCompleted,
	)

	return m
}

// Export writes the registry in Prometheus textfile format, for the
// node_exporter textfile collector to pick up after the run exits.
func (m *Metrics) Export(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}
