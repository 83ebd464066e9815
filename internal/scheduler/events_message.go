package scheduler

import (
	"github.com/meshsim/meshsim/internal/netmodel"
	"github.com/meshsim/meshsim/pkg/meshtastic"
)

// InjectMessage originates a message as though a node's firmware had
// called send() itself: the payload is encoded as a text mesh packet
// before it enters the plane, the same wire format every bundled
// firmware unit speaks. To is netmodel.BroadcastID for a broadcast.
type InjectMessage struct {
	From    netmodel.NodeID
	To      netmodel.NodeID
	Payload []byte
}

func (e *InjectMessage) Name() string { return "InjectMessage" }
func (e *InjectMessage) Execute(w World, now int64) error {
	// The packet id is the injection time, which the (time, sequence)
	// event ordering already makes deterministic for a given scenario.
	wire := meshtastic.EncodeMeshPacket(uint32(e.From), uint32(e.To), 0, uint32(now),
		meshtastic.PortNumTextMessageApp, e.Payload, uint32(now/1000), 0, 0, 3)
	w.Plane().Send(e.From, e.To, wire, now)
	return nil
}

// SnapshotSink receives a metrics snapshot at each MetricsSnapshot firing.
// Implemented by internal/metricsexport's collector so this package never
// imports the export layer directly.
type SnapshotSink interface {
	Snapshot(w World, simTimeMs int64)
}

// MetricsSnapshot backs the scenario's periodic metrics.interval_s
// capture: it re-schedules itself every IntervalMs so snapshot timing is
// part of the same (time, sequence) ordered stream as every other
// event, which keeps snapshot sequences reproducible for a given seed.
type MetricsSnapshot struct {
	IntervalMs int64
	Sink       SnapshotSink
}

func (e *MetricsSnapshot) Name() string { return "MetricsSnapshot" }
func (e *MetricsSnapshot) Execute(w World, now int64) error {
	if e.Sink != nil {
		e.Sink.Snapshot(w, now)
	}
	if e.IntervalMs > 0 {
		w.Scheduler().Schedule(e, now+e.IntervalMs)
	}
	return nil
}
