package scheduler

import (
	"fmt"

	"github.com/meshsim/meshsim/internal/netmodel"
)

// InvalidEventError is returned for a malformed event payload.
type InvalidEventError struct {
	Event  string
	Reason string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid %s event: %s", e.Event, e.Reason)
}

// ConnectionDrop hard-drops both directions of the (a,b) link.
type ConnectionDrop struct{ A, B netmodel.NodeID }

func (e *ConnectionDrop) Name() string { return "ConnectionDrop" }
func (e *ConnectionDrop) Execute(w World, _ int64) error {
	w.Links().Drop(netmodel.LinkKey{From: e.A, To: e.B})
	w.Links().Drop(netmodel.LinkKey{From: e.B, To: e.A})
	return nil
}

// ConnectionRestore clears the hard-drop flag in both directions.
type ConnectionRestore struct{ A, B netmodel.NodeID }

func (e *ConnectionRestore) Name() string { return "ConnectionRestore" }
func (e *ConnectionRestore) Execute(w World, _ int64) error {
	w.Links().Restore(netmodel.LinkKey{From: e.A, To: e.B})
	w.Links().Restore(netmodel.LinkKey{From: e.B, To: e.A})
	return nil
}

// defaultDegradeLatency and defaultDegradeLoss are the fallbacks
// ConnectionDegrade applies when the scenario omits latency_cfg/loss_cfg.
var (
	defaultDegradeLatency = netmodel.LatencyConfig{MinMs: 500, MaxMs: 1000, Distribution: netmodel.DistUniform}
	defaultDegradeLoss    = netmodel.PacketLossConfig{Probability: 0.3}
)

// ConnectionDegrade applies latency/loss overrides to both directions of
// the (a,b) link, falling back to the documented defaults when a field
// is nil.
type ConnectionDegrade struct {
	A, B    netmodel.NodeID
	Latency *netmodel.LatencyConfig
	Loss    *netmodel.PacketLossConfig
}

func (e *ConnectionDegrade) Name() string { return "ConnectionDegrade" }
func (e *ConnectionDegrade) Execute(w World, _ int64) error {
	latency := defaultDegradeLatency
	if e.Latency != nil {
		latency = *e.Latency
	}
	loss := defaultDegradeLoss
	if e.Loss != nil {
		loss = *e.Loss
	}
	for _, key := range []netmodel.LinkKey{{From: e.A, To: e.B}, {From: e.B, To: e.A}} {
		if err := w.Links().OverrideLatency(key, latency); err != nil {
			return err
		}
		if err := w.Links().OverrideLoss(key, loss); err != nil {
			return err
		}
	}
	return nil
}

// NetworkPartition assigns partition ids 1..k to the k groups. Cross-group
// traffic is blocked through LinkState.PartitionsCompatible, consulted by
// the NetworkPlane's admission check, so no explicit per-link drop is
// needed. Requires at least 2 non-empty groups.
type NetworkPartition struct {
	Groups [][]netmodel.NodeID
}

func (e *NetworkPartition) Name() string { return "NetworkPartition" }
func (e *NetworkPartition) Execute(w World, _ int64) error {
	if len(e.Groups) < 2 {
		return &InvalidEventError{Event: e.Name(), Reason: "requires at least 2 groups"}
	}
	for i, group := range e.Groups {
		if len(group) == 0 {
			return &InvalidEventError{Event: e.Name(), Reason: fmt.Sprintf("group %d is empty", i)}
		}
		partitionID := uint32(i + 1)
		for _, id := range group {
			w.Links().SetPartition(id, partitionID)
		}
	}
	return nil
}

// NetworkHeal resets every node's partition id to 0 and clears every
// hard-drop flag. Idempotent.
type NetworkHeal struct{}

func (e *NetworkHeal) Name() string { return "NetworkHeal" }
func (e *NetworkHeal) Execute(w World, _ int64) error {
	for _, id := range w.Registry().IDs() {
		w.Links().SetPartition(id, 0)
	}
	w.Links().RestoreAll()
	return nil
}

// clampQuality restricts quality to [0,1].
func clampQuality(q float64) float64 {
	if q < 0 {
		return 0
	}
	if q > 1 {
		return 1
	}
	return q
}

// qualityToLatency maps quality linearly: latency scales between
// (5,15)ms at q=1 and (500,2000)ms at q=0.
func qualityToLatency(q float64) netmodel.LatencyConfig {
	q = clampQuality(q)
	return netmodel.LatencyConfig{
		MinMs:        int64(500 - q*(500-5)),
		MaxMs:        int64(2000 - q*(2000-15)),
		Distribution: netmodel.DistUniform,
	}
}

// qualityToLoss maps quality to loss probability, linearly from 0 at
// q=1 to 0.5 at q=0.
func qualityToLoss(q float64) netmodel.PacketLossConfig {
	q = clampQuality(q)
	return netmodel.PacketLossConfig{Probability: (1 - q) * 0.5}
}

// SetNetworkQuality translates a single [0,1] quality value into concrete
// latency/loss overrides. A nil Link applies the mapping to the
// scenario-wide defaults instead of a specific link.
type SetNetworkQuality struct {
	Link    *netmodel.LinkKey
	Quality float64
}

func (e *SetNetworkQuality) Name() string { return "SetNetworkQuality" }
func (e *SetNetworkQuality) Execute(w World, _ int64) error {
	latency := qualityToLatency(e.Quality)
	loss := qualityToLoss(e.Quality)
	if e.Link == nil {
		if err := w.Links().DefaultLatencySet(latency); err != nil {
			return err
		}
		return w.Links().DefaultLossSet(loss)
	}
	if err := w.Links().OverrideLatency(*e.Link, latency); err != nil {
		return err
	}
	return w.Links().OverrideLoss(*e.Link, loss)
}
