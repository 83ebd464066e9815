package metricsexport

import "fmt"

// New builds an Exporter for the named format, writing to outputPrefix
// (a path prefix; each exporter appends its own extension).
func New(format, outputPrefix string) (Exporter, error) {
	switch format {
	case "csv":
		return NewCSV(outputPrefix + ".csv")
	case "json":
		return NewJSON(outputPrefix + ".json")
	case "graphviz":
		return NewGraphviz(outputPrefix + ".dot")
	default:
		return nil, fmt.Errorf("unknown metrics export format: %s", format)
	}
}

// NewAll builds one Exporter per requested format.
func NewAll(formats []string, outputPrefix string) ([]Exporter, error) {
	exporters := make([]Exporter, 0, len(formats))
	for _, f := range formats {
		e, err := New(f, outputPrefix)
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, e)
	}
	return exporters, nil
}
