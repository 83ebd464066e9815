// Package metricsexport serializes periodic and final metric snapshots
// to CSV, JSON, or a Graphviz graph description, behind a small
// Exporter interface with a type-switch constructor.
package metricsexport

// Snapshot is one point-in-time capture of simulation state: the
// simulation time, per-node counters, and per-active-link counters.
type Snapshot struct {
	SimTimeMs int64        `json:"simulation_time_ms"`
	Nodes     []NodeSample `json:"nodes"`
	Links     []LinkSample `json:"links"`
}

// NodeSample is one node's row in a snapshot.
type NodeSample struct {
	ID               uint32 `json:"id"`
	Alias            string `json:"alias,omitempty"`
	Running          bool   `json:"running"`
	PartitionID      uint32 `json:"partition_id"`
	MessagesSent     uint64 `json:"messages_sent"`
	MessagesReceived uint64 `json:"messages_received"`
	BytesSent        uint64 `json:"bytes_sent"`
	BytesReceived    uint64 `json:"bytes_received"`
}

// LinkSample is one active link's row in a snapshot.
type LinkSample struct {
	From                       uint32  `json:"from"`
	To                         uint32  `json:"to"`
	MessagesSent               uint64  `json:"messages_sent"`
	MessagesDelivered          uint64  `json:"messages_delivered"`
	MessagesDroppedLoss        uint64  `json:"messages_dropped_loss"`
	MessagesThrottledBandwidth uint64  `json:"messages_throttled_bandwidth"`
	MessagesBlockedPartition   uint64  `json:"messages_blocked_partition"`
	LatencyMinMs               int64   `json:"latency_min_ms"`
	LatencyMaxMs               int64   `json:"latency_max_ms"`
	LatencyMeanMs              float64 `json:"latency_mean_ms"`
}
