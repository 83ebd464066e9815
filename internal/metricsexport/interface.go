package metricsexport

// Exporter is one metrics output destination: CSV, JSON, or Graphviz.
type Exporter interface {
	// Export appends (CSV, JSON) or overwrites the file with (Graphviz)
	// one snapshot.
	Export(snap Snapshot) error
	// Close flushes and releases any open file handles.
	Close() error
	// Name returns the export format and output path, as "format:path".
	Name() string
}
