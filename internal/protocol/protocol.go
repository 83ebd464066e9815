// Package protocol defines the pluggable mesh-routing-protocol instance
// every VirtualNode embeds. The real routing protocol is an external
// collaborator; this package only specifies the shape a protocol
// implementation must have, plus one minimal flood-routing instance so
// the simulator has something concrete and testable to run.
package protocol

import "github.com/meshsim/meshsim/internal/netmodel"

// Handle is the capability a protocol instance is given for the duration
// of one call. It is never stored by the instance: the simulator owns
// it and passes a fresh Handle into Tick/OnReceive each time. The node
// identifier, not a shared pointer, is what a protocol instance should
// hold onto across calls if it needs to remember "which node am I".
type Handle interface {
	// Self returns the identifier of the node this instance belongs to.
	Self() netmodel.NodeID
	// Send originates a message to another node. Fire-and-forget: the
	// caller has no way to learn whether the packet was ultimately
	// delivered, throttled, or lost.
	Send(to netmodel.NodeID, payload []byte) error
	// Now returns the current simulated time in milliseconds.
	Now() int64
}

// Instance is the capability interface every mesh-protocol implementation
// satisfies. Composition over inheritance per the design notes: there is
// no base class, just this interface and a factory.
type Instance interface {
	// Tick runs one protocol step (route maintenance, retransmits, …).
	Tick(h Handle)
	// OnReceive handles a message addressed to this node.
	OnReceive(h Handle, from netmodel.NodeID, payload []byte)
	// Name identifies the protocol implementation, for logging and
	// metrics labeling.
	Name() string
}

// Factory builds a protocol Instance for a newly created node.
type Factory func(prefix, password string, port int) (Instance, error)
