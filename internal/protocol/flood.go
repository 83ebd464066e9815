package protocol

import (
	"hash/fnv"

	"github.com/meshsim/meshsim/internal/netmodel"
	"github.com/meshsim/meshsim/pkg/meshtastic"
)

// seenCap bounds the dedup window so a long-running node's memory stays
// flat instead of growing with total traffic received.
const seenCap = 4096

// FloodInstance is a minimal stand-in for a real mesh-routing protocol:
// a node remembers recently seen packets so it does not act twice on a
// duplicate delivery, keyed by the wire format's packet id when the
// payload decodes as a mesh packet (so a retransmission with mutated
// metadata still deduplicates), falling back to a hash of the raw bytes
// otherwise. It performs no multi-hop forwarding of its own; the
// NetworkPlane already delivers point to point, and the real routing
// protocol is an external collaborator.
type FloodInstance struct {
	prefix string
	port   int
	seen   map[uint64]struct{}
	order  []uint64
}

// NewFloodInstance is a protocol.Factory that builds a FloodInstance.
func NewFloodInstance(prefix, _ string, port int) (Instance, error) {
	return &FloodInstance{
		prefix: prefix,
		port:   port,
		seen:   make(map[uint64]struct{}),
	}, nil
}

// Tick performs no periodic work; route maintenance is outside the core.
func (f *FloodInstance) Tick(_ Handle) {}

// OnReceive records the (from, payload) pair so a duplicate delivery of
// the same packet can be recognized by firmware-level logic that asks.
func (f *FloodInstance) OnReceive(_ Handle, from netmodel.NodeID, payload []byte) {
	key := seenKey(from, payload)
	if _, dup := f.seen[key]; dup {
		return
	}
	f.seen[key] = struct{}{}
	f.order = append(f.order, key)
	if len(f.order) > seenCap {
		oldest := f.order[0]
		f.order = f.order[1:]
		delete(f.seen, oldest)
	}
}

// Seen reports whether (from, payload) has already been observed.
func (f *FloodInstance) Seen(from netmodel.NodeID, payload []byte) bool {
	_, ok := f.seen[seenKey(from, payload)]
	return ok
}

// Name identifies this protocol implementation.
func (f *FloodInstance) Name() string { return "flood" }

func seenKey(from netmodel.NodeID, payload []byte) uint64 {
	if mp, err := meshtastic.DecodeMeshPacket(payload); err == nil && mp.ID != 0 {
		return uint64(from)<<32 | uint64(mp.ID)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte{byte(from >> 24), byte(from >> 16), byte(from >> 8), byte(from)})
	_, _ = h.Write(payload)
	return h.Sum64()
}
