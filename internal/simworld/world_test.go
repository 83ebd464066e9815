package simworld

import (
	"testing"

	"github.com/meshsim/meshsim/internal/firmware"
	"github.com/meshsim/meshsim/internal/meshnode"
	"github.com/meshsim/meshsim/internal/protocol"
)

func TestNewWorldWiresCollaboratorsTogether(t *testing.T) {
	fwReg := firmware.NewRegistry()
	fwReg.Register("echo", firmware.NewEcho)
	w := New(10, 0, 42, protocol.NewFloodInstance, fwReg)

	if w.Registry() == nil || w.Links() == nil || w.Plane() == nil || w.Scheduler() == nil {
		t.Fatal("expected every collaborator to be non-nil")
	}
	if w.RNG().Seed() != 42 {
		t.Fatalf("expected seed 42, got %d", w.RNG().Seed())
	}
	if w.FirmwareRegistry() != fwReg {
		t.Fatal("expected the passed-in firmware registry to be retained")
	}
}

func TestWorldRegistryAndPlaneShareLinkState(t *testing.T) {
	w := New(10, 0, 1, protocol.NewFloodInstance, firmware.NewRegistry())
	n1, err := meshnode.New(meshnode.Config{ID: 1}, w.ProtocolFactory(), w.FirmwareRegistry())
	if err != nil {
		t.Fatalf("meshnode.New: %v", err)
	}
	if err := w.Registry().Add(n1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := n1.Start(w.Plane(), 0); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Partitioning through the registry must be visible through LinkState,
	// since LinkState's PartitionStore is the same Registry instance.
	w.Registry().SetPartition(1, 7)
	p, ok := w.Links().PartitionOf(1)
	if !ok || p != 7 {
		t.Fatalf("expected LinkState to see the registry's partition assignment, got %d ok=%v", p, ok)
	}
}

func TestNewWorldZeroSeedPicksNonZero(t *testing.T) {
	w := New(10, 0, 0, protocol.NewFloodInstance, firmware.NewRegistry())
	if w.RNG().Seed() == 0 {
		t.Fatal("expected a zero seed to be replaced with a non-zero effective seed")
	}
}
