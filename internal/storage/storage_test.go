package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datosviales/siniestros-etl/internal/domain"
)

func TestRawStore_WriteFileAndGlob(t *testing.T) {
	store := NewRawStore(t.TempDir(), clockwork.NewRealClock())

	_, err := store.WriteFile("axa", "incidentes_viales_2018_axa.csv", []byte("a"))
	require.NoError(t, err)
	_, err = store.WriteFile("axa", "incidentes_viales_2020_axa.csv", []byte("b"))
	require.NoError(t, err)
	_, err = store.WriteFile("inegi", "conjunto_de_datos/atus_anual_2020.csv", []byte("c"))
	require.NoError(t, err)

	t.Run("glob matches per source", func(t *testing.T) {
		files, err := store.Glob("axa", "incidentes_viales_*_axa.csv")
		require.NoError(t, err)
		require.Len(t, files, 2)
		// Sorted by path, so years come back in order.
		assert.Contains(t, files[0], "2018")
		assert.Contains(t, files[1], "2020")
	})

	t.Run("glob reaches archive subdirectories", func(t *testing.T) {
		files, err := store.Glob("inegi", filepath.Join("conjunto_de_datos", "atus_anual_*.csv"))
		require.NoError(t, err)
		require.Len(t, files, 1)

		data, err := os.ReadFile(files[0])
		require.NoError(t, err)
		assert.Equal(t, []byte("c"), data)
	})

	t.Run("no matches is not an error", func(t *testing.T) {
		files, err := store.Glob("weather", "weather_data_*.csv")
		require.NoError(t, err)
		assert.Empty(t, files)
	})
}

func TestRawStore_AppendProvenance(t *testing.T) {
	frozen := time.Date(2026, 2, 11, 18, 30, 0, 0, time.UTC)
	store := NewRawStore(t.TempDir(), clockwork.NewFakeClockAt(frozen))

	entry := ProvenanceEntry{
		Source:  "AXA México – OpenData Incidentes Viales",
		URL:     "https://files.i2ds.org/OpenDataAxaMx",
		Period:  "2018-2024",
		RunID:   "run-1",
		SavedTo: store.SourceDir("axa"),
	}
	require.NoError(t, store.AppendProvenance("axa", entry))

	entry.RunID = "run-2"
	require.NoError(t, store.AppendProvenance("axa", entry))

	data, err := os.ReadFile(filepath.Join(store.SourceDir("axa"), "fuentes_info.txt"))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "Fuente: AXA México – OpenData Incidentes Viales\n")
	assert.Contains(t, contents, "URL: https://files.i2ds.org/OpenDataAxaMx\n")
	assert.Contains(t, contents, "Rango: 2018-2024\n")
	assert.Contains(t, contents, "Fecha de descarga: 2026-02-11 18:30:00\n")
	assert.Contains(t, contents, "Run: run-1\n")
	// Appends, never truncates.
	assert.Contains(t, contents, "Run: run-2\n")
}

func TestRawStore_AppendProvenance_OmitsEmptyPeriod(t *testing.T) {
	store := NewRawStore(t.TempDir(), clockwork.NewRealClock())

	require.NoError(t, store.AppendProvenance("inegi", ProvenanceEntry{
		Source: "INEGI – Accidentes de Tránsito Terrestre",
		URL:    "https://www.inegi.org.mx",
		RunID:  "run-1",
	}))

	data, err := os.ReadFile(filepath.Join(store.SourceDir("inegi"), "fuentes_info.txt"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Rango:")
}

func TestProcessedStore_WriteTable(t *testing.T) {
	store := NewProcessedStore(filepath.Join(t.TempDir(), "processed"))

	tbl := domain.Table{
		Columns: []string{"LATITUD", "LONGITUD"},
		Rows:    [][]string{{"29.1", "-110.9"}},
	}
	path, err := store.WriteTable("axa_tidy.csv", tbl)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "LATITUD,LONGITUD\n29.1,-110.9\n", string(data))
}

func TestProcessedStore_WriteReport(t *testing.T) {
	store := NewProcessedStore(filepath.Join(t.TempDir(), "processed"))

	path, err := store.WriteReport("reporte_procesamiento.txt", "REPORTE\n")
	require.NoError(t, err)
	assert.Equal(t, store.Path("reporte_procesamiento.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "REPORTE\n", string(data))
}
