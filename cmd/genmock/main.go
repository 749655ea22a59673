// Command genmock writes a deterministic mock raw data area so the tidy
// stage can be exercised without network access. The layout matches what
// the fetch stage produces: yearly AXA incident CSVs in Latin-1 with the
// quirks the cleaner handles, an extracted INEGI census archive, an
// Open-Meteo hourly CSV, and per-source provenance logs.
//
// Usage:
//
//	go run ./cmd/genmock -raw-dir data/raw -start-year 2020 -end-year 2022
package main

import (
	"bytes"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/text/encoding/charmap"

	"github.com/datosviales/siniestros-etl/internal/domain"
	"github.com/datosviales/siniestros-etl/internal/storage"
)

// genTime is the fixed clock for provenance entries, keeping generated
// output reproducible.
var genTime = time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)

// Catalog values for generated incidents. The accented entries matter:
// the real exports are Latin-1 and the generated files must be too.
var (
	causas    = []string{"COLISIÓN", "ALCANCE", "VOLCADURA", "CRISTALAZO", "ATROPELLO"}
	calles    = []string{"BLVD. LUIS ENCINAS", "AV. CULTURA", "CALLE REFORMA", "PERIFÉRICO PONIENTE"}
	colonias  = []string{"CENTRO", "LAS QUINTAS", "SAN BENITO", "VILLA SATÉLITE"}
	vehiculos = []string{"AUTOMOVIL", "PICK UP", "MOTOCICLETA", "CAMIÓN"}
	dias      = []string{"LUNES", "MARTES", "MIÉRCOLES", "JUEVES", "VIERNES", "SÁBADO", "DOMINGO"}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rawDir := flag.String("raw-dir", "", "destination raw data directory")
	startYear := flag.Int("start-year", 2018, "first year to generate")
	endYear := flag.Int("end-year", 2024, "last year to generate")
	flag.Parse()

	if *rawDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -raw-dir")
	}
	if *startYear > *endYear {
		return fmt.Errorf("start year %d is after end year %d", *startYear, *endYear)
	}

	store := storage.NewRawStore(*rawDir, clockwork.NewFakeClockAt(genTime))

	if err := writeIncidents(store, *startYear, *endYear); err != nil {
		return fmt.Errorf("axa: %w", err)
	}
	if err := writeCensus(store, *startYear, *endYear); err != nil {
		return fmt.Errorf("inegi: %w", err)
	}
	if err := writeWeather(store, *startYear, *endYear); err != nil {
		return fmt.Errorf("weather: %w", err)
	}

	log.Printf("mock raw data area written to %s", *rawDir)
	return nil
}

// writeIncidents generates one AXA export per year. Each file carries a
// couple of exact duplicates and some sentinel coordinates so the tidy
// stage has cleaning work to do.
func writeIncidents(store *storage.RawStore, startYear, endYear int) error {
	for year := startYear; year <= endYear; year++ {
		rng := rand.New(rand.NewSource(int64(year)))
		n := 30 + rng.Intn(20)

		rows := make([][]string, 0, n+2)
		for i := 0; i < n; i++ {
			rows = append(rows, incidentRow(rng, year))
		}
		rows = append(rows, rows[0], rows[n/2])

		// Real exports changed format in 2020: earlier years carry a
		// header row, later ones are headerless.
		var records [][]string
		if year < 2020 {
			records = append(records, domain.AXASchema)
		}
		records = append(records, rows...)

		data, err := encodeLatin1CSV(records)
		if err != nil {
			return err
		}
		path, err := store.WriteFile("axa", fmt.Sprintf("incidentes_viales_%d_axa.csv", year), data)
		if err != nil {
			return err
		}
		log.Printf("axa %d: %d rows -> %s", year, len(rows), path)
	}

	return store.AppendProvenance("axa", storage.ProvenanceEntry{
		Source:  "AXA México – OpenData Incidentes Viales (datos simulados)",
		URL:     "mock://genmock",
		Period:  fmt.Sprintf("%d-%d", startYear, endYear),
		RunID:   "genmock",
		SavedTo: store.SourceDir("axa"),
	})
}

// incidentRow builds one row in canonical column order. Cells with no
// generated value stay empty, as in the real exports.
func incidentRow(rng *rand.Rand, year int) []string {
	values := map[string]string{
		"SINIESTRO":       strconv.Itoa(100000 + rng.Intn(900000)),
		"LATITUD":         fmt.Sprintf("%.4f", 29.02+rng.Float64()*0.16),
		"LONGITUD":        fmt.Sprintf("%.4f", -111.05+rng.Float64()*0.12),
		"CODIGO POSTAL":   strconv.Itoa(83000 + rng.Intn(300)),
		"CALLE":           calles[rng.Intn(len(calles))],
		"COLONIA":         colonias[rng.Intn(len(colonias))],
		"CAUSA SINIESTRO": causas[rng.Intn(len(causas))],
		"TIPO VEHICULO":   vehiculos[rng.Intn(len(vehiculos))],
		"MODELO":          strconv.Itoa(2005 + rng.Intn(18)),
		"AÑO":             strconv.Itoa(year),
		"MES":             strconv.Itoa(1 + rng.Intn(12)),
		"DÍA NUMERO":      strconv.Itoa(1 + rng.Intn(28)),
		"DIA":             dias[rng.Intn(len(dias))],
		"HORA":            fmt.Sprintf("%02d:%02d", rng.Intn(24), rng.Intn(60)),
		"ESTADO":          "SONORA",
		"CIUDAD":          "HERMOSILLO",
		"LESIONADOS":      strconv.Itoa(rng.Intn(3)),
	}

	// Some rows carry the export's null sentinels instead of real values.
	if rng.Intn(8) == 0 {
		values["LATITUD"] = `\N`
		values["LONGITUD"] = `\N`
	}
	if rng.Intn(6) == 0 {
		values["COLONIA"] = " "
	}

	row := make([]string, len(domain.AXASchema))
	for i, col := range domain.AXASchema {
		if v, ok := values[col]; ok {
			row[i] = v
			continue
		}
		if isBinaryColumn(col) {
			row[i] = siNo(rng)
		}
	}
	return row
}

func isBinaryColumn(name string) bool {
	for _, col := range domain.AXABinaryColumns {
		if col == name {
			return true
		}
	}
	return false
}

func siNo(rng *rand.Rand) string {
	if rng.Intn(4) == 0 {
		return "SI"
	}
	return "NO"
}

// writeCensus generates the extracted-archive layout: one atus_anual file
// per year under conjunto_de_datos plus the data dictionary the tidy
// stage must ignore. Census columns drift across editions, so later years
// add one.
func writeCensus(store *storage.RawStore, startYear, endYear int) error {
	municipios := []string{"HERMOSILLO", "GUAYMAS", "CAJEME", "NOGALES", "SAN LUIS RÍO COLORADO"}

	for year := startYear; year <= endYear; year++ {
		rng := rand.New(rand.NewSource(int64(year) * 31))

		header := []string{"COBERTURA", "ID_ENTIDAD", "MUNICIPIO", "MES", "DIA", "HORA"}
		if year >= 2022 {
			header = append(header, "TIPACCID")
		}

		n := 20 + rng.Intn(15)
		records := [][]string{header}
		for i := 0; i < n; i++ {
			row := []string{
				"Municipal",
				"26",
				municipios[rng.Intn(len(municipios))],
				strconv.Itoa(1 + rng.Intn(12)),
				strconv.Itoa(1 + rng.Intn(28)),
				strconv.Itoa(rng.Intn(24)),
			}
			if year >= 2022 {
				row = append(row, "Colisión con vehículo automotor")
			}
			records = append(records, row)
		}

		data, err := encodeLatin1CSV(records)
		if err != nil {
			return err
		}
		path, err := store.WriteFile("inegi", fmt.Sprintf("conjunto_de_datos/atus_anual_%d.csv", year), data)
		if err != nil {
			return err
		}
		log.Printf("inegi %d: %d rows -> %s", year, n, path)
	}

	dict, err := encodeLatin1CSV([][]string{
		{"CAMPO", "DESCRIPCION"},
		{"COBERTURA", "Nivel de cobertura geográfica"},
		{"MES", "Mes de ocurrencia del accidente"},
	})
	if err != nil {
		return err
	}
	if _, err := store.WriteFile("inegi", "diccionario_de_datos/diccionario_datos_atus.csv", dict); err != nil {
		return err
	}

	return store.AppendProvenance("inegi", storage.ProvenanceEntry{
		Source:  "INEGI – Accidentes de Tránsito Terrestre (datos simulados)",
		URL:     "mock://genmock",
		RunID:   "genmock",
		SavedTo: store.SourceDir("inegi"),
	})
}

// writeWeather generates one day of hourly samples per year, enough to
// span the configured range without bulk.
func writeWeather(store *storage.RawStore, startYear, endYear int) error {
	records := [][]string{{"time", "temperature_2m", "rain", "showers", "visibility"}}

	for year := startYear; year <= endYear; year++ {
		rng := rand.New(rand.NewSource(int64(year) * 17))
		for hour := 0; hour < 24; hour++ {
			stamp := time.Date(year, time.July, 1, hour, 0, 0, 0, time.UTC)
			temp := 28 + 8*math.Sin(float64(hour-10)/24*2*math.Pi) + rng.Float64()
			rain := "0.00"
			if rng.Intn(10) == 0 {
				rain = fmt.Sprintf("%.2f", rng.Float64()*5)
			}
			records = append(records, []string{
				stamp.Format("2006-01-02T15:04"),
				fmt.Sprintf("%.1f", temp),
				rain,
				"0.00",
				fmt.Sprintf("%.2f", 20000+rng.Float64()*4140),
			})
		}
	}

	var buf bytes.Buffer
	if err := csv.NewWriter(&buf).WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	path, err := store.WriteFile("weather", fmt.Sprintf("weather_data_%d_%d.csv", startYear, endYear), buf.Bytes())
	if err != nil {
		return err
	}
	log.Printf("weather: %d rows -> %s", len(records)-1, path)

	return store.AppendProvenance("weather", storage.ProvenanceEntry{
		Source:  "Open Meteo – Historical Weather Data (datos simulados)",
		URL:     "mock://genmock",
		Period:  fmt.Sprintf("%d-01-01T00:00 a %d-12-31T23:00", startYear, endYear),
		RunID:   "genmock",
		SavedTo: store.SourceDir("weather"),
	})
}

// encodeLatin1CSV renders records as CSV and encodes the result to
// Latin-1, the encoding both real raw sources arrive in.
func encodeLatin1CSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	if err := csv.NewWriter(&buf).WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return charmap.ISO8859_1.NewEncoder().Bytes(buf.Bytes())
}
