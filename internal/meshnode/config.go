// Package meshnode implements the VirtualNode and the NodeRegistry that
// owns the live population.
package meshnode

import "github.com/meshsim/meshsim/internal/netmodel"

// LifecycleState is the finite state machine a VirtualNode moves through.
type LifecycleState int

// Lifecycle states.
const (
	StateCreated LifecycleState = iota
	StateRunning
	StateStopped
	StateCrashed
)

func (s LifecycleState) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// Config describes a node at creation time. Alias is optional; when
// empty the node is addressed only by its numeric ID.
type Config struct {
	ID       netmodel.NodeID
	Alias    string
	Protocol string
	Firmware string
	// ProtocolParams configures the node's protocol Factory; FirmwareParams
	// configures its firmware Factory.
	ProtocolParams ProtocolParams
	FirmwareParams map[string]string
}

// ProtocolParams mirrors the Factory signature in package protocol:
// prefix/password/port is the shape Meshtastic-style channel config takes.
type ProtocolParams struct {
	Prefix   string
	Password string
	Port     int
}

// Metrics accumulates node-level counters the metric exporters read. Only
// successfully enqueued sends count toward MessagesSent/BytesSent; a send
// that the NetworkPlane rejects (unknown recipient, partition, hard drop,
// throttle, loss) is visible only in the NetworkPlane's own per-link stats,
// not here.
type Metrics struct {
	MessagesSent     uint64
	BytesSent        uint64
	MessagesReceived uint64
	BytesReceived    uint64
	Restarts         uint64
	Crashes          uint64
	// StartTimeMs is the simulated time of the most recent Start. Counters
	// survive stop/restart; only recreating the node resets them.
	StartTimeMs int64
}
