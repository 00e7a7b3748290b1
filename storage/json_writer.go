package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"itinerary-scraper/models"
)

// ManifestFileName is the per-target manifest written next to the images.
const ManifestFileName = "manifest.json"

// JSONWriter writes each manifest to <target output dir>/manifest.json.
type JSONWriter struct{}

// NewJSONWriter returns a JSONWriter.
func NewJSONWriter() *JSONWriter {
	return &JSONWriter{}
}

func (w *JSONWriter) Write(m *models.Manifest) error {
	dir := m.Target.OutputDirectory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("json: create output dir: %w", err)
	}

	// image URLs carry & and must not be escaped to &
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(m); err != nil {
		return fmt.Errorf("json: encode manifest: %w", err)
	}

	path := filepath.Join(dir, ManifestFileName)
	if err := os.WriteFile(path, buffer.Bytes(), 0644); err != nil {
		return fmt.Errorf("json: write %q: %w", path, err)
	}
	return nil
}

func (w *JSONWriter) Close() error { return nil }
