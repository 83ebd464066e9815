package driver

import (
	"context"
	"reflect"
	"testing"

	"github.com/meshsim/meshsim/internal/firmware"
	"github.com/meshsim/meshsim/internal/meshnode"
	"github.com/meshsim/meshsim/internal/metricsexport"
	"github.com/meshsim/meshsim/internal/netmodel"
	"github.com/meshsim/meshsim/internal/protocol"
	"github.com/meshsim/meshsim/internal/scheduler"
	"github.com/meshsim/meshsim/internal/simworld"
)

func newTwoNodeWorld(t *testing.T) (*simworld.World, *meshnode.VirtualNode, *meshnode.VirtualNode) {
	t.Helper()
	fwReg := firmware.NewRegistry()
	fwReg.Register("echo", firmware.NewEcho)
	w := simworld.New(10, 0, 1, protocol.NewFloodInstance, fwReg)

	mk := func(id netmodel.NodeID, fw string) *meshnode.VirtualNode {
		n, err := meshnode.New(meshnode.Config{ID: id, Firmware: fw}, w.ProtocolFactory(), w.FirmwareRegistry())
		if err != nil {
			t.Fatalf("meshnode.New: %v", err)
		}
		if err := w.Registry().Add(n); err != nil {
			t.Fatalf("Registry.Add: %v", err)
		}
		return n
	}
	n1 := mk(1001, "")
	n2 := mk(1002, "")
	return w, n1, n2
}

// A fixed 10ms uniform latency link with no loss delivers a message
// exactly 10ms after it is sent.
func TestTwoNodeFixedLatencyDelivery(t *testing.T) {
	w, _, _ := newTwoNodeWorld(t)
	if err := w.Links().DefaultLatencySet(netmodel.LatencyConfig{MinMs: 10, MaxMs: 10, Distribution: netmodel.DistUniform}); err != nil {
		t.Fatalf("DefaultLatencySet: %v", err)
	}

	w.Scheduler().Schedule(&scheduler.InjectMessage{From: 1001, To: 1002, Payload: []byte("hi")}, 1000)

	d := New(w, Config{DurationMs: 1020})
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	n2, err := w.Registry().Get(1002)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n2.Metrics().MessagesReceived != 1 {
		t.Fatalf("expected node 1002 to receive exactly 1 message, got %d", n2.Metrics().MessagesReceived)
	}
	stats := w.Links().Stats(netmodel.LinkKey{From: 1001, To: 1002})
	if stats.MessagesSent != 1 || stats.MessagesDelivered != 1 {
		t.Fatalf("expected sent=1 delivered=1, got %+v", stats)
	}
}

// A ConnectionDrop event at t=5s blocks a send attempted at t=6s.
func TestHardDropBlocksSubsequentSends(t *testing.T) {
	w, _, _ := newTwoNodeWorld(t)
	w.Scheduler().Schedule(&scheduler.ConnectionDrop{A: 1001, B: 1002}, 5000)
	w.Scheduler().Schedule(&scheduler.InjectMessage{From: 1001, To: 1002, Payload: []byte("x")}, 6000)

	d := New(w, Config{DurationMs: 6100})
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	n2, err := w.Registry().Get(1002)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n2.Metrics().MessagesReceived != 0 {
		t.Fatal("expected the send after the link was dropped to never be delivered")
	}
	stats := w.Links().Stats(netmodel.LinkKey{From: 1001, To: 1002})
	if stats.MessagesBlockedPartition == 0 {
		t.Fatal("expected messages_blocked_partition to be incremented for the blocked send")
	}
}

// rawSendEvent feeds exact bytes into the plane, bypassing the wire
// codec InjectMessage applies, for tests that assert byte-accurate
// token-bucket math. The plane itself is payload-agnostic, so this is
// a legitimate caller, not a test-only backdoor.
type rawSendEvent struct {
	from, to netmodel.NodeID
	payload  []byte
}

func (e *rawSendEvent) Name() string { return "rawSend" }
func (e *rawSendEvent) Execute(w scheduler.World, now int64) error {
	w.Plane().Send(e.from, e.to, e.payload, now)
	return nil
}

// A 1000 byte/sec, 1000-byte-bucket link admits exactly two 500-byte
// sends per second and throttles the rest. Events scheduled at t=0 run
// on the first tick (10ms), so the second batch is scheduled a full
// second after that.
func TestBandwidthTokenBucketThrottling(t *testing.T) {
	w, _, _ := newTwoNodeWorld(t)
	key := netmodel.LinkKey{From: 1001, To: 1002}
	if err := w.Links().OverrideBandwidth(key, netmodel.BandwidthConfig{MaxBytesPerSec: 1000, BucketSize: 1000}); err != nil {
		t.Fatalf("OverrideBandwidth: %v", err)
	}

	payload := make([]byte, 500)
	for i := 0; i < 10; i++ {
		w.Scheduler().Schedule(&rawSendEvent{from: 1001, to: 1002, payload: payload}, 0)
	}
	for i := 0; i < 10; i++ {
		w.Scheduler().Schedule(&rawSendEvent{from: 1001, to: 1002, payload: payload}, 1010)
	}

	d := New(w, Config{DurationMs: 1020})
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := w.Links().Stats(key)
	if stats.MessagesThrottledBandwidth != 16 {
		t.Fatalf("expected 16 throttled sends, got %d", stats.MessagesThrottledBandwidth)
	}
	if stats.MessagesDelivered != 4 {
		t.Fatalf("expected 4 delivered sends (2 per refill window), got %d", stats.MessagesDelivered)
	}
}

// Sends across a partition are blocked; after a heal they deliver
// again and every partition id is back to 0.
func TestPartitionThenHealRestoresDelivery(t *testing.T) {
	w, _, _ := newTwoNodeWorld(t)
	w.Scheduler().Schedule(&scheduler.NetworkPartition{Groups: [][]netmodel.NodeID{{1001}, {1002}}}, 30)
	w.Scheduler().Schedule(&scheduler.InjectMessage{From: 1001, To: 1002, Payload: []byte("blocked")}, 40)
	w.Scheduler().Schedule(&scheduler.NetworkHeal{}, 60)
	w.Scheduler().Schedule(&scheduler.InjectMessage{From: 1001, To: 1002, Payload: []byte("ok")}, 61)

	d := New(w, Config{DurationMs: 200})
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := w.Links().Stats(netmodel.LinkKey{From: 1001, To: 1002})
	if stats.MessagesBlockedPartition == 0 {
		t.Fatal("expected the cross-partition send to be blocked")
	}
	if stats.MessagesDelivered != 1 {
		t.Fatalf("expected exactly the post-heal send delivered, got %d", stats.MessagesDelivered)
	}
	for _, id := range w.Registry().IDs() {
		if p, _ := w.Registry().PartitionOf(id); p != 0 {
			t.Fatalf("expected node %d partition reset to 0 after heal, got %d", id, p)
		}
	}
}

// Two runs with an identical world and seed produce identical final
// snapshots, even with stochastic latency and loss in play.
func TestIdenticalSeedsProduceIdenticalSnapshots(t *testing.T) {
	runOnce := func() metricsexport.Snapshot {
		w, _, _ := newTwoNodeWorld(t)
		if err := w.Links().DefaultLatencySet(netmodel.LatencyConfig{MinMs: 10, MaxMs: 100, Distribution: netmodel.DistUniform}); err != nil {
			t.Fatalf("DefaultLatencySet: %v", err)
		}
		if err := w.Links().DefaultLossSet(netmodel.PacketLossConfig{Probability: 0.3}); err != nil {
			t.Fatalf("DefaultLossSet: %v", err)
		}
		for i := int64(0); i < 50; i++ {
			w.Scheduler().Schedule(&scheduler.InjectMessage{From: 1001, To: 1002, Payload: []byte("m")}, i*10)
		}
		d := New(w, Config{DurationMs: 2000})
		if err := d.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return metricsexport.Build(w, 2000)
	}

	first := runOnce()
	second := runOnce()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical snapshots for identical seeds:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestDriverRunWithZeroDurationExitsOnContextCancel(t *testing.T) {
	w, _, _ := newTwoNodeWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(w, Config{DurationMs: 0})
	if err := d.Run(ctx); err != nil {
		t.Fatalf("expected a cancelled context to stop the loop cleanly, got %v", err)
	}
}
