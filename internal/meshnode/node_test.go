package meshnode

import (
	"testing"

	"github.com/meshsim/meshsim/internal/firmware"
	"github.com/meshsim/meshsim/internal/netmodel"
	"github.com/meshsim/meshsim/internal/network"
	"github.com/meshsim/meshsim/internal/protocol"
	"github.com/meshsim/meshsim/internal/rng"
)

type fakeLookup struct {
	running map[netmodel.NodeID]bool
}

func (f *fakeLookup) Exists(id netmodel.NodeID) bool {
	_, ok := f.running[id]
	return ok
}
func (f *fakeLookup) IsRunning(id netmodel.NodeID) bool { return f.running[id] }
func (f *fakeLookup) RunningIDs() []netmodel.NodeID {
	var ids []netmodel.NodeID
	for id, running := range f.running {
		if running {
			ids = append(ids, id)
		}
	}
	return ids
}

func newTestPlane(t *testing.T, selfID netmodel.NodeID) *network.Plane {
	t.Helper()
	lookup := &fakeLookup{running: map[netmodel.NodeID]bool{selfID: true, 2: true}}
	links := netmodel.New(&fakePartitionStore{})
	return network.New(links, lookup, rng.New(1), 0)
}

type fakePartitionStore struct{}

func (fakePartitionStore) PartitionOf(netmodel.NodeID) (uint32, bool) { return 0, true }
func (fakePartitionStore) SetPartition(netmodel.NodeID, uint32)       {}

func testConfig(id netmodel.NodeID) Config {
	return Config{ID: id, Alias: "n"}
}

func TestNewWithoutProtocolOrFirmware(t *testing.T) {
	n, err := New(testConfig(1), nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n.State() != StateCreated {
		t.Fatalf("expected Created state, got %s", n.State())
	}
}

func TestNewUnknownFirmwareFails(t *testing.T) {
	reg := firmware.NewRegistry()
	cfg := testConfig(1)
	cfg.Firmware = "bogus"
	if _, err := New(cfg, nil, reg); err == nil {
		t.Fatal("expected an error for an unregistered firmware type")
	}
}

func TestStartRunsFirmwareSetup(t *testing.T) {
	reg := firmware.NewRegistry()
	reg.Register("echo", firmware.NewEcho)
	cfg := testConfig(1)
	cfg.Firmware = "echo"
	n, err := New(cfg, nil, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	plane := newTestPlane(t, 1)
	if err := n.Start(plane, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !n.IsRunning() {
		t.Fatal("expected node to be running after Start")
	}
}

func TestStartTwiceFails(t *testing.T) {
	n, _ := New(testConfig(1), nil, nil)
	plane := newTestPlane(t, 1)
	if err := n.Start(plane, 0); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	err := n.Start(plane, 0)
	if err == nil {
		t.Fatal("expected InvalidLifecycleError on double start")
	}
	if _, ok := err.(*InvalidLifecycleError); !ok {
		t.Fatalf("expected *InvalidLifecycleError, got %T", err)
	}
}

func TestStopWhenNotRunningFails(t *testing.T) {
	n, _ := New(testConfig(1), nil, nil)
	plane := newTestPlane(t, 1)
	if err := n.Stop(plane, 0); err == nil {
		t.Fatal("expected error stopping a node that was never started")
	}
}

func TestCrashThenRestart(t *testing.T) {
	n, _ := New(testConfig(1), nil, nil)
	plane := newTestPlane(t, 1)
	if err := n.Start(plane, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := n.Crash(); err != nil {
		t.Fatalf("Crash: %v", err)
	}
	if n.IsRunning() {
		t.Fatal("expected node to not be running after Crash")
	}
	if err := n.Restart(plane, 10); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if !n.IsRunning() {
		t.Fatal("expected node to be running after Restart")
	}
	if n.Metrics().Restarts != 1 {
		t.Fatalf("expected Restarts=1, got %d", n.Metrics().Restarts)
	}
}

func TestCrashWhenNotRunningFails(t *testing.T) {
	n, _ := New(testConfig(1), nil, nil)
	if err := n.Crash(); err == nil {
		t.Fatal("expected error crashing a node that isn't running")
	}
}

func TestSendUpdatesOwnMetricsOnlyWhenEnqueued(t *testing.T) {
	n, _ := New(testConfig(1), nil, nil)
	plane := newTestPlane(t, 1)
	if err := n.Start(plane, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h := n.handle(plane, 0)
	if err := h.Send(2, []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	m := n.Metrics()
	if m.MessagesSent != 1 || m.BytesSent != 5 {
		t.Fatalf("expected MessagesSent=1 BytesSent=5, got %+v", m)
	}
}

func TestSendToUnknownRecipientDoesNotCountAsSent(t *testing.T) {
	n, _ := New(testConfig(1), nil, nil)
	plane := newTestPlane(t, 1)
	if err := n.Start(plane, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h := n.handle(plane, 0)
	_ = h.Send(999, []byte("hello"))
	if n.Metrics().MessagesSent != 0 {
		t.Fatalf("expected MessagesSent=0 for an undeliverable recipient, got %d", n.Metrics().MessagesSent)
	}
}

func TestOnReceiveIgnoredWhenNotRunning(t *testing.T) {
	n, _ := New(testConfig(1), nil, nil)
	plane := newTestPlane(t, 1)
	n.OnReceive(plane, 0, 2, []byte("x"))
	if n.Metrics().MessagesReceived != 0 {
		t.Fatal("expected a non-running node to ignore OnReceive")
	}
}

func TestOnReceiveForwardsToProtocolAndFirmware(t *testing.T) {
	reg := firmware.NewRegistry()
	reg.Register("echo", firmware.NewEcho)
	cfg := testConfig(1)
	cfg.Firmware = "echo"
	var protoFactory protocol.Factory = protocol.NewFloodInstance
	n, err := New(cfg, protoFactory, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	plane := newTestPlane(t, 1)
	if err := n.Start(plane, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	n.OnReceive(plane, 0, 2, []byte("hi"))
	m := n.Metrics()
	if m.MessagesReceived != 1 || m.BytesReceived != 2 {
		t.Fatalf("expected MessagesReceived=1 BytesReceived=2, got %+v", m)
	}
	// Echo firmware replies, which should be reflected in MessagesSent.
	if m.MessagesSent != 1 {
		t.Fatalf("expected the echo reply to count as a send, got %d", m.MessagesSent)
	}
}
