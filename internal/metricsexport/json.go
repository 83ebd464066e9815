package metricsexport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONExporter appends one JSON object per line (JSON Lines), so a
// snapshot stream can be tailed or parsed incrementally without waiting
// for the file to close.
type JSONExporter struct {
	path string
	file *os.File
	enc  *json.Encoder
}

func NewJSON(path string) (*JSONExporter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("metricsexport: create dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("metricsexport: open %s: %w", path, err)
	}
	return &JSONExporter{path: path, file: f, enc: json.NewEncoder(f)}, nil
}

func (e *JSONExporter) Export(snap Snapshot) error {
	if err := e.enc.Encode(snap); err != nil {
		return fmt.Errorf("metricsexport: write json: %w", err)
	}
	return nil
}

func (e *JSONExporter) Close() error { return e.file.Close() }

func (e *JSONExporter) Name() string { return "json:" + e.path }
