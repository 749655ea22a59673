// Package config loads pipeline settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all pipeline settings, populated from environment
// variables. Defaults point at the public dataset locations, so both
// stages run with no configuration at all.
type Config struct {
	RawDir       string
	ProcessedDir string

	AXABaseURL      string
	INEGIArchiveURL string
	WeatherBaseURL  string

	StartYear int
	EndYear   int

	WeatherLatitude  float64
	WeatherLongitude float64
	WeatherTimezone  string
	WeatherVariables []string

	RequestTimeout time.Duration

	LogLevel    string
	LogFormat   string
	MetricsFile string // empty disables the textfile export
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honored when
// present; real environment variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	startYear, err := envInt("START_YEAR", 2018)
	if err != nil {
		return nil, err
	}
	endYear, err := envInt("END_YEAR", 2024)
	if err != nil {
		return nil, err
	}
	latitude, err := envFloat("WEATHER_LATITUDE", 29.1026)
	if err != nil {
		return nil, err
	}
	longitude, err := envFloat("WEATHER_LONGITUDE", -110.9773)
	if err != nil {
		return nil, err
	}
	timeout, err := envDuration("REQUEST_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		RawDir:           envOrDefault("RAW_DATA_DIR", "data/raw"),
		ProcessedDir:     envOrDefault("PROCESSED_DATA_DIR", "data/processed"),
		AXABaseURL:       envOrDefault("AXA_BASE_URL", "https://files.i2ds.org/OpenDataAxaMx"),
		INEGIArchiveURL:  envOrDefault("INEGI_ARCHIVE_URL", "https://www.inegi.org.mx/contenidos/programas/accidentes/datosabiertos/conjunto_de_datos_atus_anual_csv.zip"),
		WeatherBaseURL:   envOrDefault("WEATHER_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
		StartYear:        startYear,
		EndYear:          endYear,
		WeatherLatitude:  latitude,
		WeatherLongitude: longitude,
		WeatherTimezone:  envOrDefault("WEATHER_TIMEZONE", "America/Mazatlan"),
		WeatherVariables: envList("WEATHER_VARIABLES", []string{"temperature_2m", "rain", "showers", "visibility"}),
		RequestTimeout:   timeout,
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "text"),
		MetricsFile:      os.Getenv("METRICS_FILE"),
	}

	if cfg.StartYear > cfg.EndYear {
		return nil, fmt.Errorf("START_YEAR %d is after END_YEAR %d", cfg.StartYear, cfg.EndYear)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, errors.New("REQUEST_TIMEOUT must be positive")
	}
	if len(cfg.WeatherVariables) == 0 {
		return nil, errors.New("WEATHER_VARIABLES must name at least one variable")
	}

	return cfg, nil
}

// WeatherPeriod returns the weather fetch window: the first hour of
// StartYear through the last hour of EndYear, in the API's local
// timestamp form.
func (c *Config) WeatherPeriod() (start, end string) {
	return fmt.Sprintf("%d-01-01T00:00", c.StartYear), fmt.Sprintf("%d-12-31T23:00", c.EndYear)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func envList(key string, def []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
