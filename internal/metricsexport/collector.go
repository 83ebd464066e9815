package metricsexport

import (
	"github.com/meshsim/meshsim/internal/scheduler"
)

// Collector implements scheduler.SnapshotSink, turning a World's live
// registry and link state into a Snapshot and fanning it out to every
// configured Exporter. A failing exporter is logged and skipped; one
// bad output destination shouldn't stall the simulation.
type Collector struct {
	exporters []Exporter
	logFn     func(err error, exporter string)
}

// NewCollector builds a Collector over the given exporters. logFn may
// be nil, in which case export errors are silently dropped.
func NewCollector(exporters []Exporter, logFn func(err error, exporter string)) *Collector {
	return &Collector{exporters: exporters, logFn: logFn}
}

func (c *Collector) Snapshot(w scheduler.World, simTimeMs int64) {
	snap := Build(w, simTimeMs)
	for _, e := range c.exporters {
		if err := e.Export(snap); err != nil && c.logFn != nil {
			c.logFn(err, e.Name())
		}
	}
}

// Build reads the current state of a World's registry and link table
// into a Snapshot, independent of any particular Exporter.
func Build(w scheduler.World, simTimeMs int64) Snapshot {
	reg := w.Registry()
	links := w.Links()

	ids := reg.IDs()
	nodes := make([]NodeSample, 0, len(ids))
	for _, id := range ids {
		n, err := reg.Get(id)
		if err != nil {
			continue
		}
		partition, _ := reg.PartitionOf(id)
		m := n.Metrics()
		nodes = append(nodes, NodeSample{
			ID:               uint32(id),
			Alias:            n.Alias(),
			Running:          n.IsRunning(),
			PartitionID:      partition,
			MessagesSent:     m.MessagesSent,
			MessagesReceived: m.MessagesReceived,
			BytesSent:        m.BytesSent,
			BytesReceived:    m.BytesReceived,
		})
	}

	activeKeys := links.ActiveLinks()
	linkSamples := make([]LinkSample, 0, len(activeKeys))
	for _, key := range activeKeys {
		s := links.Stats(key)
		linkSamples = append(linkSamples, LinkSample{
			From:                       uint32(key.From),
			To:                         uint32(key.To),
			MessagesSent:               s.MessagesSent,
			MessagesDelivered:          s.MessagesDelivered,
			MessagesDroppedLoss:        s.MessagesDroppedLoss,
			MessagesThrottledBandwidth: s.MessagesThrottledBandwidth,
			MessagesBlockedPartition:   s.MessagesBlockedPartition,
			LatencyMinMs:               s.LatencyMinMs,
			LatencyMaxMs:               s.LatencyMaxMs,
			LatencyMeanMs:              s.LatencyRunningMeanMs,
		})
	}

	return Snapshot{SimTimeMs: simTimeMs, Nodes: nodes, Links: linkSamples}
}
