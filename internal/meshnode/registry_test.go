package meshnode

import "testing"

func TestRegistryAddDuplicateID(t *testing.T) {
	r := NewRegistry(0)
	n1, _ := New(testConfig(1), nil, nil)
	n2, _ := New(testConfig(1), nil, nil)

	if err := r.Add(n1); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	err := r.Add(n2)
	if err == nil {
		t.Fatal("expected DuplicateIDError on second Add with the same ID")
	}
	if _, ok := err.(*DuplicateIDError); !ok {
		t.Fatalf("expected *DuplicateIDError, got %T", err)
	}
}

func TestRegistryCapExceeded(t *testing.T) {
	r := NewRegistry(1)
	n1, _ := New(testConfig(1), nil, nil)
	n2, _ := New(testConfig(2), nil, nil)

	if err := r.Add(n1); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	err := r.Add(n2)
	if err == nil {
		t.Fatal("expected CapExceededError")
	}
	if _, ok := err.(*CapExceededError); !ok {
		t.Fatalf("expected *CapExceededError, got %T", err)
	}
}

func TestRegistryDefaultCap(t *testing.T) {
	r := NewRegistry(0)
	if r.cap != DefaultPopulationCap {
		t.Fatalf("expected default cap %d, got %d", DefaultPopulationCap, r.cap)
	}
}

func TestRegistryGetNotFound(t *testing.T) {
	r := NewRegistry(0)
	if _, err := r.Get(42); err == nil {
		t.Fatal("expected NotFoundError for an unknown id")
	}
}

func TestRegistryGetByAlias(t *testing.T) {
	r := NewRegistry(0)
	cfg := testConfig(7)
	cfg.Alias = "node-seven"
	n, _ := New(cfg, nil, nil)
	if err := r.Add(n); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, err := r.GetByAlias("node-seven")
	if err != nil {
		t.Fatalf("GetByAlias: %v", err)
	}
	if got.ID() != 7 {
		t.Fatalf("expected resolved id 7, got %d", got.ID())
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(0)
	n, _ := New(testConfig(1), nil, nil)
	if err := r.Add(n); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Remove(1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := r.Get(1); err == nil {
		t.Fatal("expected node to be gone after Remove")
	}
	if err := r.Remove(1); err == nil {
		t.Fatal("expected NotFoundError removing an already-removed node")
	}
}

func TestIDFromAliasIsStableAndNonZero(t *testing.T) {
	a := IDFromAlias("node-1")
	b := IDFromAlias("node-1")
	if a != b {
		t.Fatalf("expected IDFromAlias to be stable, got %d and %d", a, b)
	}
	if a == 0 {
		t.Fatal("expected a non-zero id")
	}
	if IDFromAlias("node-2") == a {
		t.Fatal("expected different aliases to produce different ids (barring a hash collision)")
	}
}

func TestRunningIDsOnlyIncludesRunningNodes(t *testing.T) {
	r := NewRegistry(0)
	n1, _ := New(testConfig(1), nil, nil)
	n2, _ := New(testConfig(2), nil, nil)
	if err := r.Add(n1); err != nil {
		t.Fatalf("Add n1: %v", err)
	}
	if err := r.Add(n2); err != nil {
		t.Fatalf("Add n2: %v", err)
	}
	plane := newTestPlane(t, 1)
	if err := n1.Start(plane, 0); err != nil {
		t.Fatalf("Start n1: %v", err)
	}

	ids := r.RunningIDs()
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("expected only node 1 running, got %v", ids)
	}
}

func TestPartitionOfDefaultsToZero(t *testing.T) {
	r := NewRegistry(0)
	n, _ := New(testConfig(1), nil, nil)
	if err := r.Add(n); err != nil {
		t.Fatalf("Add: %v", err)
	}
	p, ok := r.PartitionOf(1)
	if !ok || p != 0 {
		t.Fatalf("expected a fresh node to have partition 0, got %d ok=%v", p, ok)
	}
	r.SetPartition(1, 3)
	p, _ = r.PartitionOf(1)
	if p != 3 {
		t.Fatalf("expected partition 3 after SetPartition, got %d", p)
	}
}

func TestStartAllStartsOnlyCreatedNodes(t *testing.T) {
	r := NewRegistry(0)
	n, _ := New(testConfig(1), nil, nil)
	if err := r.Add(n); err != nil {
		t.Fatalf("Add: %v", err)
	}
	plane := newTestPlane(t, 1)
	if err := r.StartAll(plane, 0); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if !n.IsRunning() {
		t.Fatal("expected StartAll to start the Created node")
	}
	// StartAll is safe to call again: nodes already running are skipped.
	if err := r.StartAll(plane, 0); err != nil {
		t.Fatalf("second StartAll: %v", err)
	}
}

func TestStopAllStopsEveryRunningNode(t *testing.T) {
	r := NewRegistry(0)
	n1, _ := New(testConfig(1), nil, nil)
	n2, _ := New(testConfig(2), nil, nil)
	if err := r.Add(n1); err != nil {
		t.Fatalf("Add n1: %v", err)
	}
	if err := r.Add(n2); err != nil {
		t.Fatalf("Add n2: %v", err)
	}
	plane := newTestPlane(t, 1)
	if err := r.StartAll(plane, 0); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	r.StopAll(plane, 10)
	if n1.IsRunning() || n2.IsRunning() {
		t.Fatal("expected every node to be stopped")
	}
}
