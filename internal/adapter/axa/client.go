// Package axa downloads the AXA México vehicle-incident open-data archives.
package axa

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"
)

// Client downloads yearly incident archives from the AXA México open-data
// mirror. Each archive is a zip holding one Latin-1 CSV.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an AXA archive client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchYear downloads the archive for one year and returns the raw bytes
// of its first CSV member, still Latin-1 encoded.
func (c *Client) FetchYear(ctx context.Context, year int) ([]byte, error) {
	u := fmt.Sprintf("%s/incidentes_viales_%d_axa.zip", c.baseURL, year)

	data, err := c.download(ctx, u)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive for %d: %w", year, err)
	}

	for _, f := range zr.File {
		if !strings.EqualFold(path.Ext(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open member %s: %w", f.Name, err)
		}
		defer rc.Close()
		csvData, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read member %s: %w", f.Name, err)
		}
		c.logger.Debug("extracted csv member", "year", year, "member", f.Name, "bytes", len(csvData))
		return csvData, nil
	}
	return nil, fmt.Errorf("archive for %d contains no csv member", year)
}

func (c *Client) download(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fullURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", fullURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", fullURL, err)
	}
	return data, nil
}
