package scenario

import (
	"fmt"
	"strings"
)

// ValidationError collects every rule violation found, rather than
// failing on the first, so a scenario author can fix a whole file in
// one pass.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scenario validation failed (%d violation(s)):\n  - %s",
		len(e.Violations), strings.Join(e.Violations, "\n  - "))
}

func (e *ValidationError) add(format string, args ...interface{}) {
	e.Violations = append(e.Violations, fmt.Sprintf(format, args...))
}

// Validate checks doc against every scenario rule, collecting every
// violation. Call Expand(doc) first so template nodes are already
// materialized. Returns nil if doc is valid.
func Validate(doc *Document) error {
	ve := &ValidationError{}

	if strings.TrimSpace(doc.Simulation.Name) == "" {
		ve.add("simulation.name must be non-empty")
	}
	if doc.Simulation.TimeScale <= 0 {
		ve.add("simulation.time_scale must be > 0, got %v", doc.Simulation.TimeScale)
	}

	validateLatency("network.latency.default", doc.Network.Latency, ve)
	validateLoss("network.packet_loss.default", doc.Network.PacketLoss, ve)
	validateBandwidth("network.bandwidth.default", doc.Network.Bandwidth, ve)

	nodeIDs := make(map[string]bool, len(doc.Nodes))
	for i, n := range doc.Nodes {
		if n.IsTemplate() {
			continue // Expand should have already materialized these
		}
		if n.ID == "" {
			ve.add("nodes[%d].id must be non-empty", i)
		} else if nodeIDs[n.ID] {
			ve.add("nodes[%d].id %q is a duplicate", i, n.ID)
		}
		nodeIDs[n.ID] = true

		if n.Prefix == "" {
			ve.add("nodes[%d] (%s): mesh_prefix must be non-empty", i, n.ID)
		}
		if n.Password == "" {
			ve.add("nodes[%d] (%s): mesh_password must be non-empty", i, n.ID)
		}
	}

	for i, o := range doc.Network.Overrides {
		if o.Latency != nil {
			validateLatency(fmt.Sprintf("network.overrides[%d].latency", i), *o.Latency, ve)
		}
		if o.PacketLoss != nil {
			validateLoss(fmt.Sprintf("network.overrides[%d].packet_loss", i), *o.PacketLoss, ve)
		}
		if o.Bandwidth != nil {
			validateBandwidth(fmt.Sprintf("network.overrides[%d].bandwidth", i), *o.Bandwidth, ve)
		}
		if !nodeIDs[o.From] {
			ve.add("network.overrides[%d]: from %q does not resolve to a defined node", i, o.From)
		}
		if !nodeIDs[o.To] {
			ve.add("network.overrides[%d]: to %q does not resolve to a defined node", i, o.To)
		}
	}

	switch doc.Topology.Type {
	case "random", "star", "ring", "mesh", "custom", "":
	default:
		ve.add("topology.type %q is unknown (want random, star, ring, mesh, or custom)", doc.Topology.Type)
	}
	if doc.Topology.Type == "star" {
		if doc.Topology.Hub == "" {
			ve.add("topology.hub is required for star topology")
		} else if !nodeIDs[doc.Topology.Hub] {
			ve.add("topology.hub %q does not resolve to a defined node", doc.Topology.Hub)
		}
	}
	if doc.Topology.Type == "random" && (doc.Topology.Density < 0 || doc.Topology.Density > 1) {
		ve.add("topology.density must be in [0,1], got %v", doc.Topology.Density)
	}
	if doc.Topology.Type == "custom" {
		for i, pair := range doc.Topology.Connections {
			if len(pair) != 2 {
				ve.add("topology.connections[%d] must name exactly 2 endpoints", i)
				continue
			}
			if !nodeIDs[pair[0]] {
				ve.add("topology.connections[%d]: %q does not resolve to a defined node", i, pair[0])
			}
			if !nodeIDs[pair[1]] {
				ve.add("topology.connections[%d]: %q does not resolve to a defined node", i, pair[1])
			}
		}
	}

	durationMs := float64(doc.Simulation.DurationS) * 1000
	for i, ev := range doc.Events {
		if ev.Action == "" {
			ve.add("events[%d]: action must be non-empty", i)
		}
		if doc.Simulation.DurationS > 0 && ev.TimeS*1000 > durationMs {
			ve.add("events[%d]: time %vs exceeds simulation.duration_s %v", i, ev.TimeS, doc.Simulation.DurationS)
		}
		for _, key := range []string{"target", "a", "b", "from", "to", "hub"} {
			raw, ok := ev.Fields[key]
			if !ok {
				continue
			}
			alias, ok := raw.(string)
			if !ok || alias == "" || alias == "broadcast" {
				continue
			}
			if !nodeIDs[alias] {
				ve.add("events[%d] (%s): %s %q does not resolve to a defined node", i, ev.Action, key, alias)
			}
		}
		if groupsRaw, ok := ev.Fields["groups"]; ok {
			validateEventGroups(i, groupsRaw, nodeIDs, ve)
		}
	}

	for _, fmtName := range doc.Metrics.Export {
		switch fmtName {
		case "csv", "json", "graphviz":
		default:
			ve.add("metrics.export names unknown format %q (want csv, json, or graphviz)", fmtName)
		}
	}

	if len(ve.Violations) > 0 {
		return ve
	}
	return nil
}

func validateLatency(label string, cfg LatencyEntry, ve *ValidationError) {
	if cfg.MinMs > cfg.MaxMs {
		ve.add("%s: min_ms (%d) must be <= max_ms (%d)", label, cfg.MinMs, cfg.MaxMs)
	}
	switch cfg.Distribution {
	case "uniform", "normal", "exponential", "":
	default:
		ve.add("%s: unknown distribution %q", label, cfg.Distribution)
	}
}

func validateLoss(label string, cfg PacketLossEntry, ve *ValidationError) {
	if cfg.Probability < 0 || cfg.Probability > 1 {
		ve.add("%s: probability must be in [0,1], got %v", label, cfg.Probability)
	}
	if cfg.BurstMode && cfg.BurstLength == 0 {
		ve.add("%s: burst_length must be > 0 when burst_mode is enabled", label)
	}
}

func validateBandwidth(label string, cfg BandwidthEntry, ve *ValidationError) {
	if cfg.BucketSize == 0 && (cfg.MaxBytesPerSec > 0 || cfg.MaxMessagesPerSec > 0) {
		ve.add("%s: bucket_size must be > 0 when a rate limit is configured", label)
	}
}

func validateEventGroups(eventIdx int, raw interface{}, nodeIDs map[string]bool, ve *ValidationError) {
	groups, ok := raw.([]interface{})
	if !ok {
		ve.add("events[%d]: groups must be a list of lists of node ids", eventIdx)
		return
	}
	if len(groups) < 2 {
		ve.add("events[%d]: groups must name at least 2 groups", eventIdx)
	}
	for gi, g := range groups {
		members, ok := g.([]interface{})
		if !ok || len(members) == 0 {
			ve.add("events[%d]: groups[%d] must be a non-empty list", eventIdx, gi)
			continue
		}
		for _, m := range members {
			alias, ok := m.(string)
			if !ok || !nodeIDs[alias] {
				ve.add("events[%d]: groups[%d] member %v does not resolve to a defined node", eventIdx, gi, m)
			}
		}
	}
}
