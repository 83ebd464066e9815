package scenario

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/meshsim/meshsim/internal/firmware"
	"github.com/meshsim/meshsim/internal/meshnode"
	"github.com/meshsim/meshsim/internal/netmodel"
	"github.com/meshsim/meshsim/internal/protocol"
	"github.com/meshsim/meshsim/internal/scheduler"
	"github.com/meshsim/meshsim/internal/simworld"
	"github.com/meshsim/meshsim/internal/topology"
)

// NewFirmwareRegistry returns the registry of every firmware type this
// repository ships, for a Build call that doesn't need a custom set.
func NewFirmwareRegistry() *firmware.Registry {
	r := firmware.NewRegistry()
	r.Register("echo", firmware.NewEcho)
	r.Register("bridge", firmware.NewBridge)
	return r
}

// Build turns a validated, expanded Document into a ready-to-run World:
// firmware and protocol wiring, the initial node population, link
// defaults and overrides, the topology-derived initial drop set, and the
// scheduled event stream. It does not start the Driver.
func Build(doc *Document, fwRegistry *firmware.Registry) (*simworld.World, int64, error) {
	if fwRegistry == nil {
		fwRegistry = NewFirmwareRegistry()
	}
	w := simworld.New(meshnode.DefaultPopulationCap, 0, doc.Simulation.Seed, protocol.NewFloodInstance, fwRegistry)

	if err := w.Links().DefaultLatencySet(toLatencyConfig(doc.Network.Latency)); err != nil {
		return nil, 0, err
	}
	if err := w.Links().DefaultLossSet(toLossConfig(doc.Network.PacketLoss)); err != nil {
		return nil, 0, err
	}
	if err := w.Links().DefaultBandwidthSet(toBandwidthConfig(doc.Network.Bandwidth)); err != nil {
		return nil, 0, err
	}

	nodeIDs := make(map[string]netmodel.NodeID, len(doc.Nodes))
	for _, entry := range doc.Nodes {
		id := meshnode.IDFromAlias(entry.ID)
		nodeIDs[entry.ID] = id
		cfg := meshnode.Config{
			ID:             id,
			Alias:          entry.ID,
			Firmware:       entry.Firmware,
			FirmwareParams: entry.Params,
			ProtocolParams: meshnode.ProtocolParams{
				Prefix:   entry.Prefix,
				Password: entry.Password,
				Port:     entry.Port,
			},
		}
		n, err := meshnode.New(cfg, w.ProtocolFactory(), w.FirmwareRegistry())
		if err != nil {
			return nil, 0, fmt.Errorf("scenario: node %s: %w", entry.ID, err)
		}
		if err := w.Registry().Add(n); err != nil {
			return nil, 0, fmt.Errorf("scenario: node %s: %w", entry.ID, err)
		}
	}

	for _, o := range doc.Network.Overrides {
		from, to := nodeIDs[o.From], nodeIDs[o.To]
		key := netmodel.LinkKey{From: from, To: to}
		if o.Latency != nil {
			if err := w.Links().OverrideLatency(key, toLatencyConfig(*o.Latency)); err != nil {
				return nil, 0, err
			}
		}
		if o.PacketLoss != nil {
			if err := w.Links().OverrideLoss(key, toLossConfig(*o.PacketLoss)); err != nil {
				return nil, 0, err
			}
		}
		if o.Bandwidth != nil {
			if err := w.Links().OverrideBandwidth(key, toBandwidthConfig(*o.Bandwidth)); err != nil {
				return nil, 0, err
			}
		}
	}

	if err := applyTopology(w, doc.Topology, nodeIDs); err != nil {
		return nil, 0, err
	}

	for i, ev := range doc.Events {
		event, err := buildEvent(ev, nodeIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("scenario: events[%d]: %w", i, err)
		}
		w.Scheduler().Schedule(event, int64(ev.TimeS*1000))
	}

	return w, int64(doc.Simulation.DurationS) * 1000, nil
}

// ScheduleMetricsSnapshot schedules the first MetricsSnapshot event, per
// metrics.interval_s, if metrics export is configured. Called
// separately from Build because the Sink (the metrics collector) is
// assembled by internal/metricsexport, which this package does not
// import.
func ScheduleMetricsSnapshot(w *simworld.World, intervalS uint64, sink scheduler.SnapshotSink) {
	if intervalS == 0 || sink == nil {
		return
	}
	intervalMs := int64(intervalS) * 1000
	w.Scheduler().Schedule(&scheduler.MetricsSnapshot{IntervalMs: intervalMs, Sink: sink}, intervalMs)
}

func toLatencyConfig(e LatencyEntry) netmodel.LatencyConfig {
	dist := netmodel.Distribution(e.Distribution)
	if dist == "" {
		dist = netmodel.DistUniform
	}
	return netmodel.LatencyConfig{MinMs: e.MinMs, MaxMs: e.MaxMs, Distribution: dist}
}

func toLossConfig(e PacketLossEntry) netmodel.PacketLossConfig {
	return netmodel.PacketLossConfig{Probability: e.Probability, BurstMode: e.BurstMode, BurstLength: e.BurstLength}
}

func toBandwidthConfig(e BandwidthEntry) netmodel.BandwidthConfig {
	return netmodel.BandwidthConfig{
		MaxBytesPerSec:    e.MaxBytesPerSec,
		MaxMessagesPerSec: e.MaxMessagesPerSec,
		BucketSize:        e.BucketSize,
	}
}

func applyTopology(w *simworld.World, t TopologyConfig, nodeIDs map[string]netmodel.NodeID) error {
	// Map iteration order is not stable; ring neighbor assignment and
	// random per-pair rolls both depend on the slice order, so sort.
	ids := make([]netmodel.NodeID, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var adj topology.Adjacency
	switch t.Type {
	case "", "mesh":
		adj = topology.Mesh(ids)
	case "star":
		a, err := topology.Star(ids, nodeIDs[t.Hub])
		if err != nil {
			return err
		}
		adj = a
	case "ring":
		adj = topology.Ring(ids, t.Bidirectional)
	case "random":
		adj = topology.Random(ids, t.Density, rand.New(rand.NewSource(int64(w.RNG().Seed()))))
	case "custom":
		pairs := make([][2]netmodel.NodeID, 0, len(t.Connections))
		for _, c := range t.Connections {
			if len(c) != 2 {
				continue
			}
			pairs = append(pairs, [2]netmodel.NodeID{nodeIDs[c[0]], nodeIDs[c[1]]})
		}
		adj = topology.Custom(pairs)
	default:
		return fmt.Errorf("scenario: unknown topology type %q", t.Type)
	}

	for _, x := range ids {
		for _, y := range ids {
			if x == y {
				continue
			}
			key := netmodel.LinkKey{From: x, To: y}
			if !adj[key] {
				w.Links().Drop(key)
			}
		}
	}
	return nil
}
