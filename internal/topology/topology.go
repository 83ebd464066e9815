// Package topology generates the initial set of connected node pairs for
// a scenario's topology section, modeled as an explicit ordered
// node-pair adjacency map. A pair absent from the returned adjacency is
// realized by the caller as a hard drop in both directions: topology is
// "which links exist", layered on top of (not a replacement for)
// LinkState's per-link config.
package topology

import (
	"fmt"
	"math/rand"

	"github.com/meshsim/meshsim/internal/netmodel"
)

// Adjacency is the set of connected ordered pairs. A mesh topology
// connects every pair both ways; sparser topologies connect fewer.
type Adjacency map[netmodel.LinkKey]bool

// Connected reports whether from can reach to directly under this
// topology.
func (a Adjacency) Connected(from, to netmodel.NodeID) bool {
	return a[netmodel.LinkKey{From: from, To: to}]
}

func connectBoth(a Adjacency, x, y netmodel.NodeID) {
	a[netmodel.LinkKey{From: x, To: y}] = true
	a[netmodel.LinkKey{From: y, To: x}] = true
}

// Mesh connects every node to every other node, both directions: no
// links are dropped.
func Mesh(ids []netmodel.NodeID) Adjacency {
	a := make(Adjacency, len(ids)*len(ids))
	for _, x := range ids {
		for _, y := range ids {
			if x != y {
				a[netmodel.LinkKey{From: x, To: y}] = true
			}
		}
	}
	return a
}

// Star connects hub to every other node, both directions, and no other
// pair.
func Star(ids []netmodel.NodeID, hub netmodel.NodeID) (Adjacency, error) {
	found := false
	for _, id := range ids {
		if id == hub {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("topology: star hub %d is not a defined node", hub)
	}
	a := make(Adjacency, len(ids)*2)
	for _, id := range ids {
		if id != hub {
			connectBoth(a, hub, id)
		}
	}
	return a, nil
}

// Ring connects each node to its successor; if bidirectional, also to
// its predecessor.
func Ring(ids []netmodel.NodeID, bidirectional bool) Adjacency {
	a := make(Adjacency, len(ids)*2)
	n := len(ids)
	for i, id := range ids {
		next := ids[(i+1)%n]
		a[netmodel.LinkKey{From: id, To: next}] = true
		if bidirectional {
			a[netmodel.LinkKey{From: next, To: id}] = true
		}
	}
	return a
}

// Random connects each ordered pair independently with probability
// density, consuming r for every candidate pair in a deterministic
// (sorted-id) order so the same seed reproduces the same topology.
func Random(ids []netmodel.NodeID, density float64, r *rand.Rand) Adjacency {
	a := make(Adjacency, len(ids)*len(ids))
	for _, x := range ids {
		for _, y := range ids {
			if x == y {
				continue
			}
			if r.Float64() < density {
				a[netmodel.LinkKey{From: x, To: y}] = true
			}
		}
	}
	return a
}

// Custom connects exactly the named pairs, both directions.
func Custom(connections [][2]netmodel.NodeID) Adjacency {
	a := make(Adjacency, len(connections)*2)
	for _, pair := range connections {
		connectBoth(a, pair[0], pair[1])
	}
	return a
}
