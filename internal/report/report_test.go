package report

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	frozen := time.Date(2026, 2, 11, 18, 30, 0, 0, time.UTC)
	w := NewWriter(clockwork.NewFakeClockAt(frozen))

	got := w.Render([]SourceSummary{
		{
			Name:       "AXA",
			OutputFile: "axa_tidy.csv",
			Processed:  true,
			Rows:       12345,
			Columns:    []string{"SINIESTRO", "LATITUD", "LONGITUD"},
		},
		{
			Name:       "INEGI",
			OutputFile: "inegi_tidy.csv",
			Processed:  false,
		},
		{
			Name:       "Weather",
			OutputFile: "weather_tidy.csv",
			Processed:  true,
			Rows:       61368,
			Columns: []string{
				"FECHA_HORA", "TEMPERATURA_C", "LLUVIA_MM", "ALTA_LLUVIA_MM",
				"VISIBILIDAD_M", "FECHA", "AÑO", "MES", "DIA", "HORA", "EXTRA_1", "EXTRA_2",
			},
		},
	})

	assert.Contains(t, got, "REPORTE DE PROCESAMIENTO DE DATOS")
	assert.Contains(t, got, "Fecha de procesamiento: 2026-02-11 18:30:00")

	// Row counts are grouped for readability.
	assert.Contains(t, got, "12,345")
	assert.Contains(t, got, "61,368")

	// The unprocessed source is marked, not omitted.
	assert.Contains(t, got, "INEGI")
	assert.Contains(t, got, "no procesado")

	// Column previews: full list when short, truncated when long.
	assert.Contains(t, got, "AXA: SINIESTRO, LATITUD, LONGITUD")
	assert.Contains(t, got, "(+2 más)")
	assert.NotContains(t, got, "EXTRA_1")
}

func TestPreviewColumns_NoTruncationAtLimit(t *testing.T) {
	columns := []string{"C1", "C2", "C3", "C4", "C5", "C6", "C7", "C8", "C9", "C10"}

	got := previewColumns(columns)

	assert.NotContains(t, got, "más")
	assert.Contains(t, got, "C10")
}
