// Package inegi downloads the INEGI ATUS road-accident census archive.
package inegi

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"
)

// File is one regular file extracted from the census archive. Name is the
// forward-slash path of the entry inside the zip.
type File struct {
	Name string
	Data []byte
}

// Client downloads the yearly census zip, which bundles one CSV per year
// under conjunto_de_datos/ plus catalog and metadata files.
type Client struct {
	archiveURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an INEGI archive client.
func NewClient(archiveURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		archiveURL: archiveURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchArchive downloads the census archive and returns every regular
// file in it. Entries whose names are absolute or escape the extraction
// root are skipped with a warning.
func (c *Client) FetchArchive(ctx context.Context) ([]File, error) {
	data, err := c.download(ctx)
	if err != nil {
		return nil, err
	}

	// ErrInsecurePath still yields a usable reader; safeEntryName filters
	// the offending entries below.
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var files []File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !safeEntryName(f.Name) {
			c.logger.Warn("skipping unsafe archive entry", "entry", f.Name)
			continue
		}
		contents, err := readMember(f)
		if err != nil {
			return nil, fmt.Errorf("read member %s: %w", f.Name, err)
		}
		files = append(files, File{Name: f.Name, Data: contents})
	}
	if len(files) == 0 {
		return nil, errors.New("archive contains no files")
	}

	c.logger.Debug("extracted archive", "files", len(files))
	return files, nil
}

func (c *Client) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.archiveURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", c.archiveURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", c.archiveURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// safeEntryName rejects zip entries that would extract outside the raw
// data directory.
func safeEntryName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, `\`) {
		return false
	}
	clean := path.Clean(name)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}
