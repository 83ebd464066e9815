package metricsexport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCSVExportWritesHeaderOnceAndOneRowPerLink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.csv")
	e, err := NewCSV(path)
	if err != nil {
		t.Fatalf("NewCSV: %v", err)
	}

	snap := Snapshot{
		SimTimeMs: 100,
		Nodes:     []NodeSample{{ID: 1, Alias: "a", Running: true}},
		Links:     []LinkSample{{From: 1, To: 2, MessagesSent: 3}},
	}
	if err := e.Export(snap); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if err := e.Export(snap); err != nil {
		t.Fatalf("second Export: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 1 header + 2 data rows, got %d lines: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "simulation_time_ms,") {
		t.Fatalf("expected a header row, got %q", lines[0])
	}
}

func TestCSVExportNodeOnlyRowWhenNoActiveLinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.csv")
	e, err := NewCSV(path)
	if err != nil {
		t.Fatalf("NewCSV: %v", err)
	}
	defer e.Close()

	snap := Snapshot{SimTimeMs: 1, Nodes: []NodeSample{{ID: 9, Running: false}}}
	if err := e.Export(snap); err != nil {
		t.Fatalf("Export: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "\n1,9,") {
		t.Fatalf("expected a node-only row keyed by node 9, got %q", string(data))
	}
}

func TestJSONExportWritesOneObjectPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	e, err := NewJSON(path)
	if err != nil {
		t.Fatalf("NewJSON: %v", err)
	}
	if err := e.Export(Snapshot{SimTimeMs: 1}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if err := e.Export(Snapshot{SimTimeMs: 2}); err != nil {
		t.Fatalf("second Export: %v", err)
	}
	e.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d", len(lines))
	}
}

func TestGraphvizExportOverwritesEachCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.dot")
	e, err := NewGraphviz(path)
	if err != nil {
		t.Fatalf("NewGraphviz: %v", err)
	}
	if err := e.Export(Snapshot{SimTimeMs: 1, Nodes: []NodeSample{{ID: 1, Running: true}}}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	first, _ := os.ReadFile(path)
	if err := e.Export(Snapshot{SimTimeMs: 2}); err != nil {
		t.Fatalf("second Export: %v", err)
	}
	second, _ := os.ReadFile(path)
	if strings.Contains(string(second), "n1") {
		t.Fatal("expected the second export to overwrite the first, dropping node n1")
	}
	if !strings.Contains(string(first), "n1") {
		t.Fatal("expected the first export to contain node n1")
	}
}
