// Package report renders the plain-text processing report written at the
// end of the tidy stage.
package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/jonboulle/clockwork"
)

// columnPreview caps how many column names a source lists in the report.
const columnPreview = 10

// SourceSummary describes one source's outcome for the report.
type SourceSummary struct {
	Name       string // e.g. "AXA"
	OutputFile string // e.g. "axa_tidy.csv"
	Processed  bool
	Rows       int
	Columns    []string
}

// Writer renders processing reports.
type Writer struct {
	clock clockwork.Clock
}

// NewWriter creates a report writer that stamps generation time from
// clock.
func NewWriter(clock clockwork.Clock) *Writer {
	return &Writer{clock: clock}
}

// Render produces the full report: a generation timestamp, one table row
// per source, and a column preview for each processed source.
func (w *Writer) Render(summaries []SourceSummary) string {
	var b strings.Builder
	b.WriteString("REPORTE DE PROCESAMIENTO DE DATOS\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "Fecha de procesamiento: %s\n\n", w.clock.Now().Format("2006-01-02 15:04:05"))

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"FUENTE", "ARCHIVO", "FILAS", "COLUMNAS", "ESTADO"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	for _, s := range summaries {
		if !s.Processed {
			tw.AppendRow(table.Row{s.Name, s.OutputFile, "-", "-", "no procesado"})
			continue
		}
		tw.AppendRow(table.Row{s.Name, s.OutputFile, humanize.Comma(int64(s.Rows)), len(s.Columns), "procesado"})
	}
	b.WriteString(tw.Render())
	b.WriteString("\n")

	for _, s := range summaries {
		if !s.Processed {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s\n", s.Name, previewColumns(s.Columns))
	}
	return b.String()
}

// previewColumns lists up to columnPreview names, noting how many more
// follow.
func previewColumns(columns []string) string {
	if len(columns) <= columnPreview {
		return strings.Join(columns, ", ")
	}
	return fmt.Sprintf("%s, ... (+%d más)",
		strings.Join(columns[:columnPreview], ", "), len(columns)-columnPreview)
}
