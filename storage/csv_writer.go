package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"itinerary-scraper/models"
)

// CSVWriter appends one row per download result to a single run-level CSV
// file. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	// Write header
	if err := w.Write([]string{
		"business", "locale", "source", "ordinal", "url", "outcome", "status_code", "saved_path", "bytes", "error", "finished_at",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends the manifest's results.
func (c *CSVWriter) Write(m *models.Manifest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range m.Results {
		savedPath := ""
		if r.SavedPath != nil {
			savedPath = *r.SavedPath
		}
		status := ""
		if r.StatusCode != 0 {
			status = strconv.Itoa(r.StatusCode)
		}
		row := []string{
			m.Target.BusinessName,
			m.Target.Locale,
			string(r.Asset.Source),
			strconv.Itoa(r.Asset.Ordinal),
			r.Asset.URL,
			string(r.Outcome),
			status,
			savedPath,
			strconv.FormatInt(r.Bytes, 10),
			r.Error,
			m.FinishedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
