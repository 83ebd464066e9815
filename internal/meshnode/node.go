package meshnode

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/meshsim/meshsim/internal/firmware"
	"github.com/meshsim/meshsim/internal/logging"
	"github.com/meshsim/meshsim/internal/netmodel"
	"github.com/meshsim/meshsim/internal/network"
	"github.com/meshsim/meshsim/internal/protocol"
)

// InvalidLifecycleError is returned when a lifecycle transition is
// requested from a state that forbids it (e.g. starting a running node).
type InvalidLifecycleError struct {
	ID    netmodel.NodeID
	Op    string
	State LifecycleState
}

func (e *InvalidLifecycleError) Error() string {
	return fmt.Sprintf("node %d: cannot %s from state %s", e.ID, e.Op, e.State)
}

// VirtualNode is one simulated device: an identity, a lifecycle state, an
// optional mesh-protocol Instance, an optional firmware Unit, and its own
// metrics. It never holds a NetworkPlane or clock reference between
// calls; every method that needs one takes it as a parameter.
type VirtualNode struct {
	cfg     Config
	state   LifecycleState
	metrics Metrics

	proto protocol.Instance
	fw    firmware.Unit

	logger *zap.SugaredLogger
}

// New constructs a VirtualNode in the Created state. The protocol and
// firmware instances, if any, are built from their factories here; a nil
// protoFactory or an empty cfg.Firmware name yields a node with no
// protocol or firmware respectively.
func New(cfg Config, protoFactory protocol.Factory, fwRegistry *firmware.Registry) (*VirtualNode, error) {
	n := &VirtualNode{
		cfg:    cfg,
		state:  StateCreated,
		logger: logging.Component("node"),
	}

	if protoFactory != nil {
		inst, err := protoFactory(cfg.ProtocolParams.Prefix, cfg.ProtocolParams.Password, cfg.ProtocolParams.Port)
		if err != nil {
			return nil, fmt.Errorf("node %d: protocol factory: %w", cfg.ID, err)
		}
		n.proto = inst
	}

	if fwRegistry != nil {
		unit, err := fwRegistry.Create(cfg.Firmware, cfg.FirmwareParams)
		if err != nil {
			return nil, fmt.Errorf("node %d: firmware: %w", cfg.ID, err)
		}
		n.fw = unit
	}

	return n, nil
}

// ID returns the node's identifier.
func (n *VirtualNode) ID() netmodel.NodeID { return n.cfg.ID }

// Alias returns the node's human-friendly alias, or "" if none was set.
func (n *VirtualNode) Alias() string { return n.cfg.Alias }

// State returns the current lifecycle state.
func (n *VirtualNode) State() LifecycleState { return n.state }

// Metrics returns a copy of this node's accumulated counters.
func (n *VirtualNode) Metrics() Metrics { return n.metrics }

// IsRunning reports whether the node is in the Running state.
func (n *VirtualNode) IsRunning() bool { return n.state == StateRunning }

// Start transitions Created|Stopped|Crashed -> Running and runs firmware
// Setup. Starting an already-running node fails with *InvalidLifecycleError.
func (n *VirtualNode) Start(plane *network.Plane, now int64) error {
	if n.state == StateRunning {
		return &InvalidLifecycleError{ID: n.cfg.ID, Op: "start", State: n.state}
	}
	n.state = StateRunning
	n.metrics.StartTimeMs = now
	if n.fw != nil {
		if err := n.fw.Setup(n.handle(plane, now)); err != nil {
			n.state = StateCrashed
			return fmt.Errorf("node %d: firmware setup: %w", n.cfg.ID, err)
		}
	}
	return nil
}

// Stop gracefully transitions Running -> Stopped: firmware Teardown runs,
// and every packet this node originated and that is still pending in the
// NetworkPlane is retracted (it will never be delivered). Stopping a node
// that is not running fails with *InvalidLifecycleError.
func (n *VirtualNode) Stop(plane *network.Plane, now int64) error {
	if n.state != StateRunning {
		return &InvalidLifecycleError{ID: n.cfg.ID, Op: "stop", State: n.state}
	}
	if n.fw != nil {
		n.fw.Teardown(n.handle(plane, now))
	}
	plane.RetractFrom(n.cfg.ID)
	n.state = StateStopped
	return nil
}

// Crash transitions Running -> Crashed without running Teardown and
// without retracting in-flight deliveries: a crash is sudden, and packets
// already "on the wire" still land, simulating hardware that loses power
// mid-transmission but whose already-sent radio bursts are unaffected.
// Crashing a node that is not running fails with *InvalidLifecycleError.
func (n *VirtualNode) Crash() error {
	if n.state != StateRunning {
		return &InvalidLifecycleError{ID: n.cfg.ID, Op: "crash", State: n.state}
	}
	n.state = StateCrashed
	n.metrics.Crashes++
	return nil
}

// Restart transitions Stopped|Crashed -> Running again, re-running
// firmware Setup as if the device had power-cycled. Restarting a running
// node fails with *InvalidLifecycleError.
func (n *VirtualNode) Restart(plane *network.Plane, now int64) error {
	if n.state == StateRunning {
		return &InvalidLifecycleError{ID: n.cfg.ID, Op: "restart", State: n.state}
	}
	n.metrics.Restarts++
	n.state = StateStopped
	return n.Start(plane, now)
}

// Tick drives one simulation step: the protocol instance ticks first
// (route maintenance), then the firmware unit.
func (n *VirtualNode) Tick(plane *network.Plane, now int64) {
	if n.state != StateRunning {
		return
	}
	h := n.handle(plane, now)
	if n.proto != nil {
		n.proto.Tick(h)
	}
	if n.fw != nil {
		n.fw.Tick(h)
	}
}

// OnReceive delivers an inbound packet to both the protocol instance and
// the firmware unit, in that order, mirroring Tick.
func (n *VirtualNode) OnReceive(plane *network.Plane, now int64, from netmodel.NodeID, payload []byte) {
	if n.state != StateRunning {
		return
	}
	n.metrics.MessagesReceived++
	n.metrics.BytesReceived += uint64(len(payload))
	h := n.handle(plane, now)
	if n.proto != nil {
		n.proto.OnReceive(h, from, payload)
	}
	if n.fw != nil {
		n.fw.OnReceive(h, from, payload)
	}
}

// OnNewConnection, OnChangedConnections, OnDroppedConnection, and
// OnTimeAdjusted forward connectivity and clock events to the firmware
// unit only; the protocol.Instance interface does not define these
// hooks, since a mesh-routing protocol sees connectivity only through
// Tick/OnReceive.
func (n *VirtualNode) OnNewConnection(plane *network.Plane, now int64, peer netmodel.NodeID) {
	if n.state != StateRunning || n.fw == nil {
		return
	}
	n.fw.OnNewConnection(n.handle(plane, now), peer)
}

func (n *VirtualNode) OnChangedConnections(plane *network.Plane, now int64) {
	if n.state != StateRunning || n.fw == nil {
		return
	}
	n.fw.OnChangedConnections(n.handle(plane, now))
}

func (n *VirtualNode) OnDroppedConnection(plane *network.Plane, now int64, peer netmodel.NodeID) {
	if n.state != StateRunning || n.fw == nil {
		return
	}
	n.fw.OnDroppedConnection(n.handle(plane, now), peer)
}

func (n *VirtualNode) OnTimeAdjusted(plane *network.Plane, now int64, offsetMs int64) {
	if n.state != StateRunning || n.fw == nil {
		return
	}
	n.fw.OnTimeAdjusted(n.handle(plane, now), offsetMs)
}

// handle builds a fresh capability handle bound to this call's plane and
// simulated time. Never retained past the call that receives it.
func (n *VirtualNode) handle(plane *network.Plane, now int64) *nodeHandle {
	return &nodeHandle{node: n, plane: plane, now: now}
}

// nodeHandle implements both protocol.Handle and firmware.Handle. Sends
// are fire-and-forget from the caller's point of view: the
// NetworkPlane's SendResult is consulted only to update this node's own
// MessagesSent/BytesSent, never surfaced as an error.
type nodeHandle struct {
	node  *VirtualNode
	plane *network.Plane
	now   int64
}

func (h *nodeHandle) Self() netmodel.NodeID { return h.node.cfg.ID }
func (h *nodeHandle) Now() int64            { return h.now }

func (h *nodeHandle) Send(to netmodel.NodeID, payload []byte) error {
	result := h.plane.Send(h.node.cfg.ID, to, payload, h.now)
	if result == network.ResultEnqueued {
		h.node.metrics.MessagesSent++
		h.node.metrics.BytesSent += uint64(len(payload))
	}
	return nil
}

func (h *nodeHandle) Log(msg string, kv ...interface{}) {
	if h.node.logger == nil {
		return
	}
	args := append([]interface{}{"node_id", uint32(h.node.cfg.ID), "sim_time_ms", h.now}, kv...)
	h.node.logger.Infow(msg, args...)
}
