package pipeline_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/datosviales/siniestros-etl/internal/config"
	"github.com/datosviales/siniestros-etl/internal/domain"
	"github.com/datosviales/siniestros-etl/internal/observability"
	"github.com/datosviales/siniestros-etl/internal/pipeline"
	"github.com/datosviales/siniestros-etl/internal/storage"
)

// --- helpers ---

func newTidier(cfg *config.Config) (*pipeline.Tidier, *storage.RawStore, *storage.ProcessedStore) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 2, 11, 18, 30, 0, 0, time.UTC))
	raw := storage.NewRawStore(cfg.RawDir, clock)
	processed := storage.NewProcessedStore(cfg.ProcessedDir)
	tidier := pipeline.NewTidier(cfg, raw, processed, testLogger(), observability.NewMetrics(), clock)
	return tidier, raw, processed
}

func writeRaw(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// latin1 re-encodes a UTF-8 fixture the way the upstream portals serve
// their files.
func latin1(t *testing.T, s string) []byte {
	t.Helper()
	data, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return data
}

func readCSV(t *testing.T, path string) ([]string, [][]string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	return records[0], records[1:]
}

func cell(t *testing.T, header, row []string, name string) string {
	t.Helper()
	for i, h := range header {
		if h == name {
			return row[i]
		}
	}
	t.Fatalf("column %q not in header %v", name, header)
	return ""
}

// --- tests ---

func TestTidier_Run_Incidents(t *testing.T) {
	cfg := testConfig(t.TempDir(), t.TempDir())
	tidier, raw, processed := newTidier(cfg)

	// 2020 export: headered, comma-delimited, a duplicate row and a row
	// with no latitude.
	writeRaw(t, filepath.Join(raw.SourceDir("axa"), "incidentes_viales_2020_axa.csv"), latin1(t,
		"SINIESTRO,LATITUD,LONGITUD,CAUSA SINIESTRO,HOSPITALIZADO\n"+
			"1,29.10,-110.90,COLISIÓN,SI\n"+
			"1,29.10,-110.90,COLISIÓN,SI\n"+
			"2,,-110.95,ALCANCE,NO\n"))
	// 2021 export: same columns behind a semicolon delimiter.
	writeRaw(t, filepath.Join(raw.SourceDir("axa"), "incidentes_viales_2021_axa.csv"), latin1(t,
		"SINIESTRO;LATITUD;LONGITUD;CAUSA SINIESTRO;HOSPITALIZADO\n"+
			"3;29.20;-111.00;VOLCADURA;NO\n"))

	require.NoError(t, tidier.Run(context.Background()))

	header, rows := readCSV(t, processed.Path("axa_tidy.csv"))

	t.Run("canonical column contract", func(t *testing.T) {
		assert.Equal(t, []string(domain.AXASchema), header)
	})

	t.Run("duplicates and coordinate-less rows dropped", func(t *testing.T) {
		require.Len(t, rows, 2)
	})

	t.Run("year stamped from filename", func(t *testing.T) {
		assert.Equal(t, "2020", cell(t, header, rows[0], "AÑO"))
		assert.Equal(t, "2021", cell(t, header, rows[1], "AÑO"))
	})

	t.Run("values cleaned", func(t *testing.T) {
		assert.Equal(t, "29.1", cell(t, header, rows[0], "LATITUD"))
		assert.Equal(t, "-110.9", cell(t, header, rows[0], "LONGITUD"))
		assert.Equal(t, "COLISIÓN", cell(t, header, rows[0], "CAUSA SINIESTRO"))
		assert.Equal(t, "true", cell(t, header, rows[0], "HOSPITALIZADO"))
		assert.Equal(t, "false", cell(t, header, rows[1], "HOSPITALIZADO"))
		// Flags absent from the export collapse to false.
		assert.Equal(t, "false", cell(t, header, rows[0], "ALCOHOL"))
		// Columns absent from the export stay null.
		assert.Equal(t, domain.Null, cell(t, header, rows[0], "COLONIA"))
	})

	t.Run("report marks missing sources", func(t *testing.T) {
		data, err := os.ReadFile(processed.Path("reporte_procesamiento.txt"))
		require.NoError(t, err)
		contents := string(data)
		assert.Contains(t, contents, "AXA")
		assert.Contains(t, contents, "no procesado")
	})
}

func TestTidier_Run_Census(t *testing.T) {
	cfg := testConfig(t.TempDir(), t.TempDir())
	tidier, raw, processed := newTidier(cfg)

	dir := filepath.Join(raw.SourceDir("inegi"), "conjunto_de_datos")
	// 2019 is outside the configured 2020-2021 range.
	writeRaw(t, filepath.Join(dir, "atus_anual_2019.csv"), latin1(t,
		"COBERTURA,MUNICIPIO,MES,DIA\nMunicipal,VIEJO,01,01\n"))
	writeRaw(t, filepath.Join(dir, "atus_anual_2020.csv"), latin1(t,
		"COBERTURA,MUNICIPIO,MES,DIA\nMunicipal,MÉRIDA,03,15\n"))
	writeRaw(t, filepath.Join(dir, "atus_anual_2021.csv"), latin1(t,
		"COBERTURA,MUNICIPIO,MES,DIA\nMunicipal,OTHÓN P. BLANCO,04,20\n"))

	require.NoError(t, tidier.Run(context.Background()))

	header, rows := readCSV(t, processed.Path("inegi_tidy.csv"))
	assert.Equal(t, []string{"COBERTURA", "MUNICIPIO", "MES", "DIA", "AÑO"}, header)
	require.Len(t, rows, 2)

	assert.Equal(t, "2020", cell(t, header, rows[0], "AÑO"))
	assert.Equal(t, "MÉRIDA", cell(t, header, rows[0], "MUNICIPIO"))
	// Date parts re-rendered as canonical numbers.
	assert.Equal(t, "3", cell(t, header, rows[0], "MES"))
	assert.Equal(t, "15", cell(t, header, rows[0], "DIA"))

	assert.Equal(t, "2021", cell(t, header, rows[1], "AÑO"))
	assert.Equal(t, "OTHÓN P. BLANCO", cell(t, header, rows[1], "MUNICIPIO"))

	for _, row := range rows {
		assert.NotEqual(t, "2019", cell(t, header, row, "AÑO"))
	}
}

func TestTidier_Run_Weather(t *testing.T) {
	cfg := testConfig(t.TempDir(), t.TempDir())
	tidier, raw, processed := newTidier(cfg)

	writeRaw(t, filepath.Join(raw.SourceDir("weather"), "weather_data_2020_2021.csv"), []byte(
		"time,temperature_2m,rain,showers,visibility\n"+
			"2020-03-01T05:00,25.5,0,0,24140\n"+
			"2018-01-01T00:00,12.5,1.2,0.5,10000\n"+
			"2020-03-01T05:00,25.5,0,0,24140\n"+
			"bad-stamp,13,0,0,5000\n"))

	require.NoError(t, tidier.Run(context.Background()))

	header, rows := readCSV(t, processed.Path("weather_tidy.csv"))

	t.Run("renamed and derived columns", func(t *testing.T) {
		assert.Equal(t, []string{
			"FECHA_HORA", "TEMPERATURA_C", "LLUVIA_MM", "ALTA_LLUVIA_MM", "VISIBILIDAD_M",
			"FECHA", "AÑO", "MES", "DIA", "HORA",
		}, header)
	})

	t.Run("duplicate hours dropped, rows sorted by timestamp", func(t *testing.T) {
		require.Len(t, rows, 3)
		assert.Equal(t, "2018-01-01T00:00", cell(t, header, rows[0], "FECHA_HORA"))
		assert.Equal(t, "2020-03-01T05:00", cell(t, header, rows[1], "FECHA_HORA"))
	})

	t.Run("timestamp decomposed", func(t *testing.T) {
		assert.Equal(t, "2020-03-01", cell(t, header, rows[1], "FECHA"))
		assert.Equal(t, "2020", cell(t, header, rows[1], "AÑO"))
		assert.Equal(t, "3", cell(t, header, rows[1], "MES"))
		assert.Equal(t, "1", cell(t, header, rows[1], "DIA"))
		assert.Equal(t, "5", cell(t, header, rows[1], "HORA"))
	})

	t.Run("unparsable timestamp gets null parts", func(t *testing.T) {
		bad := rows[2]
		assert.Equal(t, "bad-stamp", cell(t, header, bad, "FECHA_HORA"))
		assert.Equal(t, domain.Null, cell(t, header, bad, "FECHA"))
		assert.Equal(t, domain.Null, cell(t, header, bad, "AÑO"))
		assert.Equal(t, domain.Null, cell(t, header, bad, "HORA"))
	})
}

func TestTidier_Run_NothingToProcess(t *testing.T) {
	cfg := testConfig(t.TempDir(), t.TempDir())
	tidier, _, processed := newTidier(cfg)

	require.NoError(t, tidier.Run(context.Background()))

	assert.NoFileExists(t, processed.Path("axa_tidy.csv"))
	assert.NoFileExists(t, processed.Path("inegi_tidy.csv"))
	assert.NoFileExists(t, processed.Path("weather_tidy.csv"))

	data, err := os.ReadFile(processed.Path("reporte_procesamiento.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "no procesado")
}

func TestTidier_Run_EmptyRawFile(t *testing.T) {
	cfg := testConfig(t.TempDir(), t.TempDir())
	tidier, raw, processed := newTidier(cfg)

	// A zero-byte download must not count as a loaded file, otherwise the
	// source would be reported processed with an empty table.
	writeRaw(t, filepath.Join(raw.SourceDir("axa"), "incidentes_viales_2020_axa.csv"), nil)

	require.NoError(t, tidier.Run(context.Background()))

	assert.NoFileExists(t, processed.Path("axa_tidy.csv"))

	data, err := os.ReadFile(processed.Path("reporte_procesamiento.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "no procesado")
}

func TestTidier_Run_CancelledContext(t *testing.T) {
	cfg := testConfig(t.TempDir(), t.TempDir())
	tidier, _, processed := newTidier(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tidier.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, processed.Path("reporte_procesamiento.txt"))
}
