// Package scenario loads, expands, and validates the scenario document.
// Files are read with viper and decoded through mapstructure tags,
// since the document is deeply nested (topology, templated node lists,
// free-form event fields).
package scenario

// Document is the root of a scenario file.
type Document struct {
	Simulation SimulationConfig `mapstructure:"simulation"`
	Network    NetworkConfig    `mapstructure:"network"`
	Nodes      []NodeEntry      `mapstructure:"nodes"`
	Topology   TopologyConfig   `mapstructure:"topology"`
	Events     []EventEntry     `mapstructure:"events"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// SimulationConfig is the *simulation* section.
type SimulationConfig struct {
	Name      string  `mapstructure:"name"`
	DurationS uint64  `mapstructure:"duration_s"`
	TimeScale float64 `mapstructure:"time_scale"`
	Seed      uint64  `mapstructure:"seed"`
}

// LatencyEntry mirrors netmodel.LatencyConfig in mapstructure form.
type LatencyEntry struct {
	MinMs        int64  `mapstructure:"min_ms"`
	MaxMs        int64  `mapstructure:"max_ms"`
	Distribution string `mapstructure:"distribution"`
}

// PacketLossEntry mirrors netmodel.PacketLossConfig.
type PacketLossEntry struct {
	Probability float64 `mapstructure:"probability"`
	BurstMode   bool    `mapstructure:"burst_mode"`
	BurstLength uint32  `mapstructure:"burst_length"`
}

// BandwidthEntry mirrors netmodel.BandwidthConfig.
type BandwidthEntry struct {
	MaxBytesPerSec    uint64 `mapstructure:"max_bytes_per_sec"`
	MaxMessagesPerSec uint64 `mapstructure:"max_messages_per_sec"`
	BucketSize        uint64 `mapstructure:"bucket_size"`
}

// LinkOverrideEntry matches two node aliases to an override bundle.
type LinkOverrideEntry struct {
	From       string           `mapstructure:"from"`
	To         string           `mapstructure:"to"`
	Latency    *LatencyEntry    `mapstructure:"latency"`
	PacketLoss *PacketLossEntry `mapstructure:"packet_loss"`
	Bandwidth  *BandwidthEntry  `mapstructure:"bandwidth"`
}

// NetworkConfig is the *network* section.
type NetworkConfig struct {
	Latency    LatencyEntry        `mapstructure:"latency"`
	PacketLoss PacketLossEntry     `mapstructure:"packet_loss"`
	Bandwidth  BandwidthEntry      `mapstructure:"bandwidth"`
	Overrides  []LinkOverrideEntry `mapstructure:"overrides"`
}

// NodeEntry is either a single node (ID non-empty) or a template
// (Template non-empty, expanded by Expand before validation runs).
type NodeEntry struct {
	ID       string            `mapstructure:"id"`
	Firmware string            `mapstructure:"firmware"`
	Prefix   string            `mapstructure:"mesh_prefix"`
	Password string            `mapstructure:"mesh_password"`
	Port     int               `mapstructure:"mesh_port"`
	Params   map[string]string `mapstructure:"params"`

	Template string `mapstructure:"template"`
	Count    int    `mapstructure:"count"`
	IDPrefix string `mapstructure:"id_prefix"`
}

// IsTemplate reports whether this entry expands to several nodes.
func (n NodeEntry) IsTemplate() bool { return n.Template != "" }

// TopologyConfig is the *topology* section.
type TopologyConfig struct {
	Type          string     `mapstructure:"type"` // random, star, ring, mesh, custom
	Hub           string     `mapstructure:"hub"`
	Density       float64    `mapstructure:"density"`
	Bidirectional bool       `mapstructure:"bidirectional"`
	Connections   [][]string `mapstructure:"connections"`
}

// EventEntry is one {time, action, ...} scenario event. Action-specific
// fields are read directly by the loader's event-building pass rather
// than modeled as a sum type, matching how loosely-typed event payloads
// are commonly decoded from YAML.
type EventEntry struct {
	TimeS  float64                `mapstructure:"time"`
	Action string                 `mapstructure:"action"`
	Fields map[string]interface{} `mapstructure:",remain"`
}

// MetricsConfig is the *metrics* section.
type MetricsConfig struct {
	Output    string   `mapstructure:"output"`
	IntervalS uint64   `mapstructure:"interval_s"`
	Collect   []string `mapstructure:"collect"`
	Export    []string `mapstructure:"export"`
}
