// Package firmware defines the capability interface a pluggable firmware
// unit implements, plus an explicit registry of factories the scenario
// loader consults by name. There is no global singleton: a Registry
// value is built at startup from statically known factories and handed
// to the node registry.
package firmware

import (
	"fmt"
	"sort"

	"github.com/meshsim/meshsim/internal/netmodel"
)

// Handle is the capability a firmware unit receives for the duration of
// one call; it is never retained across calls.
type Handle interface {
	// Self returns this node's identifier.
	Self() netmodel.NodeID
	// Send originates a message to another node. Fire-and-forget.
	Send(to netmodel.NodeID, payload []byte) error
	// Now returns the current simulated time in milliseconds.
	Now() int64
	// Log records a structured diagnostic line tagged with this node's
	// identifier and the current simulated time.
	Log(msg string, kv ...interface{})
}

// Unit is the set of callbacks a firmware implementation may hook into.
// Every method has a no-op-friendly meaning: a firmware author only
// needs to implement the behavior they care about; BaseUnit (below)
// supplies no-op defaults for the rest via embedding.
type Unit interface {
	Setup(h Handle) error
	Tick(h Handle)
	OnReceive(h Handle, from netmodel.NodeID, payload []byte)
	OnNewConnection(h Handle, peer netmodel.NodeID)
	OnChangedConnections(h Handle)
	OnDroppedConnection(h Handle, peer netmodel.NodeID)
	OnTimeAdjusted(h Handle, offsetMs int64)
	Teardown(h Handle)
	Name() string
}

// BaseUnit supplies no-op implementations of every Unit method so a
// concrete firmware only needs to override what it cares about.
type BaseUnit struct{}

func (BaseUnit) Setup(Handle) error                          { return nil }
func (BaseUnit) Tick(Handle)                                 {}
func (BaseUnit) OnReceive(Handle, netmodel.NodeID, []byte)   {}
func (BaseUnit) OnNewConnection(Handle, netmodel.NodeID)     {}
func (BaseUnit) OnChangedConnections(Handle)                 {}
func (BaseUnit) OnDroppedConnection(Handle, netmodel.NodeID) {}
func (BaseUnit) OnTimeAdjusted(Handle, int64)                {}
func (BaseUnit) Teardown(Handle)                             {}
func (BaseUnit) Name() string                                { return "base" }

// Factory builds a Unit from a bag of scenario-supplied string params.
type Factory func(params map[string]string) (Unit, error)

// Registry maps firmware type names to factories. It is an explicit
// value passed into the node registry at startup, not a package-level
// global.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given firmware type name, overwriting
// any previous registration for that name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Create builds a Unit for the named firmware type. An empty name is
// valid and returns (nil, nil): not every node needs firmware.
func (r *Registry) Create(name string, params map[string]string) (Unit, error) {
	if name == "" {
		return nil, nil
	}
	f, ok := r.factories[name]
	if !ok {
		return nil, &UnknownFirmwareError{Requested: name, Registered: r.Names()}
	}
	return f(params)
}

// Names returns every registered firmware type name, sorted, for error
// messages.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// UnknownFirmwareError is returned when a scenario requests a firmware
// type name that no factory has been registered for.
type UnknownFirmwareError struct {
	Requested  string
	Registered []string
}

func (e *UnknownFirmwareError) Error() string {
	return fmt.Sprintf("unknown firmware type %q (registered: %v)", e.Requested, e.Registered)
}
