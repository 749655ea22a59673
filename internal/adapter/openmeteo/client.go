// Package openmeteo fetches hourly weather series from the Open-Meteo API.
package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/datosviales/siniestros-etl/internal/domain"
)

// HourlyRequest describes one hourly-series query.
type HourlyRequest struct {
	Latitude  float64
	Longitude float64
	Variables []string // e.g. temperature_2m, rain, showers, visibility
	Start     string   // local time, "2018-01-01T00:00"
	End       string
	Timezone  string // IANA name, e.g. America/Mazatlan
}

// Client queries the Open-Meteo forecast API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchHourly requests the hourly series and returns it as a columnar
// table: a "time" column plus one column per requested variable, one row
// per hour. Missing samples become null cells.
func (c *Client) FetchHourly(ctx context.Context, req HourlyRequest) (domain.Table, error) {
	params := url.Values{
		"latitude":  {formatCoord(req.Latitude)},
		"longitude": {formatCoord(req.Longitude)},
		"hourly":    {strings.Join(req.Variables, ",")},
		"start":     {req.Start},
		"end":       {req.End},
		"timezone":  {req.Timezone},
	}

	payload, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return domain.Table{}, err
	}

	table, err := hourlyTable(payload, req.Variables)
	if err != nil {
		return domain.Table{}, err
	}
	c.logger.Debug("fetched hourly series", "rows", len(table.Rows), "variables", len(req.Variables))
	return table, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (*forecastResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &payload, nil
}

// forecastResponse mirrors the columnar JSON layout: parallel arrays
// keyed by variable name under "hourly", with "time" holding the hour
// labels.
type forecastResponse struct {
	Hourly map[string]json.RawMessage `json:"hourly"`
}

func hourlyTable(payload *forecastResponse, variables []string) (domain.Table, error) {
	if payload.Hourly == nil {
		return domain.Table{}, errors.New("response has no hourly block")
	}
	raw, ok := payload.Hourly["time"]
	if !ok {
		return domain.Table{}, errors.New("hourly block has no time series")
	}
	var times []string
	if err := json.Unmarshal(raw, &times); err != nil {
		return domain.Table{}, fmt.Errorf("decode time series: %w", err)
	}

	table := domain.Table{
		Columns: []string{"time"},
		Rows:    make([][]string, len(times)),
	}
	for i, ts := range times {
		row := make([]string, 1, len(variables)+1)
		row[0] = ts
		table.Rows[i] = row
	}

	for _, v := range variables {
		raw, ok := payload.Hourly[v]
		if !ok {
			return domain.Table{}, fmt.Errorf("hourly block missing variable %q", v)
		}
		var series []*float64
		if err := json.Unmarshal(raw, &series); err != nil {
			return domain.Table{}, fmt.Errorf("decode %s series: %w", v, err)
		}
		if len(series) != len(times) {
			return domain.Table{}, fmt.Errorf("%s series has %d samples, want %d", v, len(series), len(times))
		}
		table.Columns = append(table.Columns, v)
		for i, sample := range series {
			cell := domain.Null
			if sample != nil {
				cell = strconv.FormatFloat(*sample, 'f', -1, 64)
			}
			table.Rows[i] = append(table.Rows[i], cell)
		}
	}
	return table, nil
}
