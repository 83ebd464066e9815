package meshnode

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/meshsim/meshsim/internal/netmodel"
	"github.com/meshsim/meshsim/internal/network"
)

// DefaultPopulationCap is the default ceiling on the number of live nodes
// a registry accepts.
const DefaultPopulationCap = 1000

// Registry owns the live node population: creation, lookup, lifecycle
// fan-out, and partition assignment. It implements netmodel.PartitionStore
// (so LinkState can resolve and mutate partition membership) and
// network.NodeLookup (so the NetworkPlane can check existence/liveness),
// keeping both of those packages decoupled from this one.
type Registry struct {
	cap        int
	nodes      map[netmodel.NodeID]*VirtualNode
	aliases    map[string]netmodel.NodeID
	partitions map[netmodel.NodeID]uint32
}

// NewRegistry creates an empty Registry with the given population cap. A
// cap of 0 uses DefaultPopulationCap.
func NewRegistry(cap int) *Registry {
	if cap <= 0 {
		cap = DefaultPopulationCap
	}
	return &Registry{
		cap:        cap,
		nodes:      make(map[netmodel.NodeID]*VirtualNode),
		aliases:    make(map[string]netmodel.NodeID),
		partitions: make(map[netmodel.NodeID]uint32),
	}
}

// DuplicateIDError is returned when Add is called with an ID already in
// the registry.
type DuplicateIDError struct{ ID netmodel.NodeID }

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("node id %d already exists", e.ID)
}

// CapExceededError is returned when Add would grow the population past
// the registry's cap.
type CapExceededError struct{ Cap int }

func (e *CapExceededError) Error() string {
	return fmt.Sprintf("node population cap of %d exceeded", e.Cap)
}

// NotFoundError is returned by Get/Remove for an unknown node.
type NotFoundError struct{ ID netmodel.NodeID }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("node %d not found", e.ID)
}

// IDFromAlias derives a stable NodeID from a human-chosen alias, so
// scenario authors can refer to nodes by name without the loader having
// to track a separate alias table for ID assignment. Two aliases never
// collide unless their FNV-1a hashes do.
func IDFromAlias(alias string) netmodel.NodeID {
	h := fnv.New32a()
	_, _ = h.Write([]byte(alias))
	v := h.Sum32()
	if v == 0 {
		v = 1
	}
	return netmodel.NodeID(v)
}

// Add inserts n. Returns an error if n's ID is 0, *DuplicateIDError if
// the ID is already present, or *CapExceededError if the registry is
// full.
func (r *Registry) Add(n *VirtualNode) error {
	if n.cfg.ID == 0 {
		return fmt.Errorf("node id 0 is reserved")
	}
	if _, exists := r.nodes[n.cfg.ID]; exists {
		return &DuplicateIDError{ID: n.cfg.ID}
	}
	if len(r.nodes) >= r.cap {
		return &CapExceededError{Cap: r.cap}
	}
	r.nodes[n.cfg.ID] = n
	if n.cfg.Alias != "" {
		r.aliases[n.cfg.Alias] = n.cfg.ID
	}
	r.partitions[n.cfg.ID] = 0
	return nil
}

// Remove deletes a node from the registry entirely (not merely stopping
// it). The caller is responsible for stopping it first if it is running.
func (r *Registry) Remove(id netmodel.NodeID) error {
	n, ok := r.nodes[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	delete(r.nodes, id)
	delete(r.partitions, id)
	if n.cfg.Alias != "" {
		delete(r.aliases, n.cfg.Alias)
	}
	return nil
}

// Get returns the node with the given ID.
func (r *Registry) Get(id netmodel.NodeID) (*VirtualNode, error) {
	n, ok := r.nodes[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return n, nil
}

// GetByAlias resolves an alias to its node.
func (r *Registry) GetByAlias(alias string) (*VirtualNode, error) {
	id, ok := r.aliases[alias]
	if !ok {
		return nil, fmt.Errorf("alias %q not found", alias)
	}
	return r.Get(id)
}

// Exists implements network.NodeLookup.
func (r *Registry) Exists(id netmodel.NodeID) bool {
	_, ok := r.nodes[id]
	return ok
}

// IsRunning implements network.NodeLookup.
func (r *Registry) IsRunning(id netmodel.NodeID) bool {
	n, ok := r.nodes[id]
	return ok && n.IsRunning()
}

// RunningIDs implements network.NodeLookup, returning every node
// currently in the Running state, sorted for deterministic broadcast
// fan-out order.
func (r *Registry) RunningIDs() []netmodel.NodeID {
	ids := make([]netmodel.NodeID, 0, len(r.nodes))
	for id, n := range r.nodes {
		if n.IsRunning() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PartitionOf implements netmodel.PartitionStore.
func (r *Registry) PartitionOf(id netmodel.NodeID) (uint32, bool) {
	p, ok := r.partitions[id]
	return p, ok
}

// SetPartition implements netmodel.PartitionStore.
func (r *Registry) SetPartition(id netmodel.NodeID, partitionID uint32) {
	if _, ok := r.nodes[id]; ok {
		r.partitions[id] = partitionID
	}
}

// IDs returns every node ID currently in the registry, sorted.
func (r *Registry) IDs() []netmodel.NodeID {
	ids := make([]netmodel.NodeID, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the current population size.
func (r *Registry) Len() int { return len(r.nodes) }

// StartAll starts every node currently in the Created state, in ID
// order, used once at world bootstrap.
func (r *Registry) StartAll(plane *network.Plane, now int64) error {
	for _, id := range r.IDs() {
		n := r.nodes[id]
		if n.State() == StateCreated {
			if err := n.Start(plane, now); err != nil {
				return err
			}
		}
	}
	return nil
}

// StopAll gracefully stops every running node, in ID order, used at
// simulation shutdown.
func (r *Registry) StopAll(plane *network.Plane, now int64) {
	for _, id := range r.IDs() {
		_ = r.nodes[id].Stop(plane, now)
	}
}

var _ network.NodeLookup = (*Registry)(nil)
var _ netmodel.PartitionStore = (*Registry)(nil)
