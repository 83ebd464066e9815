package scenario

import (
	"strings"
	"testing"
)

func validDoc() *Document {
	return &Document{
		Simulation: SimulationConfig{Name: "test", TimeScale: 1},
		Nodes: []NodeEntry{
			{ID: "a", Prefix: "p", Password: "pw"},
			{ID: "b", Prefix: "p", Password: "pw"},
		},
		Topology: TopologyConfig{Type: "mesh"},
	}
}

func TestValidateAcceptsAMinimalValidDocument(t *testing.T) {
	if err := Validate(validDoc()); err != nil {
		t.Fatalf("expected a minimal valid document to pass, got %v", err)
	}
}

func TestValidateRejectsEmptyName(t *testing.T) {
	doc := validDoc()
	doc.Simulation.Name = "  "
	err := Validate(doc)
	if err == nil {
		t.Fatal("expected an error for an empty simulation name")
	}
	if !strings.Contains(err.Error(), "simulation.name") {
		t.Fatalf("expected the violation to mention simulation.name, got %v", err)
	}
}

func TestValidateRejectsNonPositiveTimeScale(t *testing.T) {
	doc := validDoc()
	doc.Simulation.TimeScale = 0
	if err := Validate(doc); err == nil {
		t.Fatal("expected an error for a zero time_scale")
	}
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	doc := &Document{
		Simulation: SimulationConfig{Name: "", TimeScale: -1},
		Nodes:      []NodeEntry{{ID: ""}},
	}
	err := Validate(doc)
	if err == nil {
		t.Fatal("expected an error")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Violations) < 3 {
		t.Fatalf("expected at least 3 collected violations (name, time_scale, node id + prefix/password), got %d: %v",
			len(ve.Violations), ve.Violations)
	}
}

func TestValidateRejectsDuplicateNodeIDs(t *testing.T) {
	doc := validDoc()
	doc.Nodes = append(doc.Nodes, NodeEntry{ID: "a", Prefix: "p", Password: "pw"})
	err := Validate(doc)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected a duplicate-id violation, got %v", err)
	}
}

func TestValidateRequiresMeshCredentials(t *testing.T) {
	doc := validDoc()
	doc.Nodes = []NodeEntry{{ID: "a"}}
	err := Validate(doc)
	if err == nil {
		t.Fatal("expected an error for missing mesh_prefix/mesh_password")
	}
	if !strings.Contains(err.Error(), "mesh_prefix") || !strings.Contains(err.Error(), "mesh_password") {
		t.Fatalf("expected violations naming both mesh_prefix and mesh_password, got %v", err)
	}
}

func TestValidateStarRequiresResolvableHub(t *testing.T) {
	doc := validDoc()
	doc.Topology = TopologyConfig{Type: "star", Hub: "nonexistent"}
	err := Validate(doc)
	if err == nil || !strings.Contains(err.Error(), "hub") {
		t.Fatalf("expected a hub-resolution violation, got %v", err)
	}
}

func TestValidateCustomTopologyRequiresResolvableEndpoints(t *testing.T) {
	doc := validDoc()
	doc.Topology = TopologyConfig{Type: "custom", Connections: [][]string{{"a", "ghost"}}}
	err := Validate(doc)
	if err == nil || !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("expected a violation naming the unresolved endpoint, got %v", err)
	}
}

func TestValidateEventTimeCannotExceedDuration(t *testing.T) {
	doc := validDoc()
	doc.Simulation.DurationS = 10
	doc.Events = []EventEntry{{TimeS: 20, Action: "network_heal"}}
	err := Validate(doc)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("expected a violation about event time exceeding duration, got %v", err)
	}
}

func TestValidateEventTargetMustResolve(t *testing.T) {
	doc := validDoc()
	doc.Events = []EventEntry{{Action: "node_stop", Fields: map[string]interface{}{"target": "ghost"}}}
	err := Validate(doc)
	if err == nil || !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("expected a violation naming the unresolved event target, got %v", err)
	}
}

func TestValidateBroadcastTargetIsExempt(t *testing.T) {
	doc := validDoc()
	doc.Events = []EventEntry{{Action: "inject_message", Fields: map[string]interface{}{"from": "a", "to": "broadcast"}}}
	if err := Validate(doc); err != nil {
		t.Fatalf("expected 'broadcast' to be exempt from node resolution, got %v", err)
	}
}

func TestValidateBandwidthRequiresBucketForRateLimit(t *testing.T) {
	doc := validDoc()
	doc.Network.Bandwidth = BandwidthEntry{MaxBytesPerSec: 100}
	err := Validate(doc)
	if err == nil || !strings.Contains(err.Error(), "bucket_size") {
		t.Fatalf("expected a bucket_size violation for a rate limit with no bucket, got %v", err)
	}
}

func TestValidateBandwidthOverrideChecked(t *testing.T) {
	doc := validDoc()
	doc.Network.Overrides = []LinkOverrideEntry{{
		From:      "a",
		To:        "b",
		Bandwidth: &BandwidthEntry{MaxMessagesPerSec: 5},
	}}
	err := Validate(doc)
	if err == nil || !strings.Contains(err.Error(), "overrides[0].bandwidth") {
		t.Fatalf("expected the override's bandwidth to be validated, got %v", err)
	}
}

func TestValidateUnknownMetricsExportFormat(t *testing.T) {
	doc := validDoc()
	doc.Metrics.Export = []string{"xml"}
	err := Validate(doc)
	if err == nil || !strings.Contains(err.Error(), "xml") {
		t.Fatalf("expected a violation naming the unknown export format, got %v", err)
	}
}
