// Package netmodel holds the per-link configuration and state that the
// network plane consults on every send: latency, packet loss, bandwidth,
// hard drops, and partition membership.
package netmodel

import "fmt"

// NodeID is a non-zero 32-bit node identifier. Uniqueness across the live
// population is enforced by the node registry, not by this package.
type NodeID uint32

// BroadcastID is the reserved recipient identifier meaning "every
// running node except the sender". It is never a valid registry
// identifier (the registry forbids 0 and this value is otherwise
// out of the realistic population range, but is reserved by
// convention rather than by a range check).
const BroadcastID NodeID = 0xFFFFFFFF

// LinkKey is an ordered (from, to) pair. Every impairment is directional;
// a symmetric effect is modeled by setting both keys.
type LinkKey struct {
	From NodeID
	To   NodeID
}

func (k LinkKey) String() string {
	return fmt.Sprintf("%d->%d", k.From, k.To)
}

// Distribution selects the shape of a latency sample.
type Distribution string

// Supported latency distributions.
const (
	DistUniform     Distribution = "uniform"
	DistNormal      Distribution = "normal"
	DistExponential Distribution = "exponential"
)

// LatencyConfig describes how delivery delay is sampled for a link.
type LatencyConfig struct {
	MinMs        int64
	MaxMs        int64
	Distribution Distribution
}

// Validate checks the invariants in the data model: min <= max and a known
// distribution name.
func (c LatencyConfig) Validate() error {
	if c.MinMs < 0 || c.MaxMs < 0 {
		return fmt.Errorf("latency: min/max must be non-negative")
	}
	if c.MinMs > c.MaxMs {
		return fmt.Errorf("latency: min_ms (%d) must be <= max_ms (%d)", c.MinMs, c.MaxMs)
	}
	switch c.Distribution {
	case DistUniform, DistNormal, DistExponential, "":
	default:
		return fmt.Errorf("latency: unknown distribution %q", c.Distribution)
	}
	return nil
}

// PacketLossConfig describes the loss state machine for a link.
type PacketLossConfig struct {
	Probability float64
	BurstMode   bool
	BurstLength uint32
}

// Validate checks probability range and burst length.
func (c PacketLossConfig) Validate() error {
	if c.Probability < 0 || c.Probability > 1 {
		return fmt.Errorf("packet_loss: probability must be in [0,1], got %v", c.Probability)
	}
	if c.BurstMode && c.BurstLength == 0 {
		return fmt.Errorf("packet_loss: burst_length must be > 0 when burst_mode is enabled")
	}
	return nil
}

// BandwidthConfig describes the dual token-bucket rate limit for a link.
// A zero rate means that dimension is unlimited.
type BandwidthConfig struct {
	MaxBytesPerSec    uint64
	MaxMessagesPerSec uint64
	BucketSize        uint64
}

// Validate checks that no field is negative (fields are unsigned, so this
// only guards against a BucketSize of 0 paired with a nonzero rate, which
// would make every send fail the bandwidth check immediately).
func (c BandwidthConfig) Validate() error {
	if c.BucketSize == 0 && (c.MaxBytesPerSec > 0 || c.MaxMessagesPerSec > 0) {
		return fmt.Errorf("bandwidth: bucket_size must be > 0 when a rate limit is configured")
	}
	return nil
}

// LinkStats accumulates the counters the metric exporters read.
type LinkStats struct {
	MessagesSent                    uint64
	MessagesDelivered               uint64
	MessagesDroppedLoss             uint64
	MessagesThrottledBandwidth      uint64
	MessagesBlockedPartition        uint64
	MessagesBlockedUnknown          uint64
	MessagesUndeliverableAtDelivery uint64

	LatencyMinMs         int64
	LatencyMaxMs         int64
	LatencyRunningMeanMs float64
	latencySamples       uint64
}

func (s *LinkStats) recordLatency(d int64) {
	if s.latencySamples == 0 {
		s.LatencyMinMs = d
		s.LatencyMaxMs = d
	} else {
		if d < s.LatencyMinMs {
			s.LatencyMinMs = d
		}
		if d > s.LatencyMaxMs {
			s.LatencyMaxMs = d
		}
	}
	s.latencySamples++
	s.LatencyRunningMeanMs += (float64(d) - s.LatencyRunningMeanMs) / float64(s.latencySamples)
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
