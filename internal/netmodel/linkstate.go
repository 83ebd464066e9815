package netmodel

import (
	"fmt"
	"math/rand"
	"sort"
)

// PartitionStore is the subset of the node registry that LinkState needs
// to resolve partition compatibility and to carry out SetPartition. The
// authoritative partition assignment lives on the registry (it is a node
// property, not a link property); LinkState only consults and mutates it
// through this interface, keeping the two packages decoupled.
type PartitionStore interface {
	PartitionOf(id NodeID) (uint32, bool)
	SetPartition(id NodeID, partitionID uint32)
}

type lossState struct {
	bursting  bool
	remaining uint32
}

type tokenBucket struct {
	byteTokens   float64
	msgTokens    float64
	lastRefillMs int64
	seeded       bool
}

type linkEntry struct {
	latency   *LatencyConfig
	loss      *PacketLossConfig
	bandwidth *BandwidthConfig
	dropped   bool
	lossState lossState
	bucket    tokenBucket
	stats     LinkStats
}

// LinkState owns scenario-wide defaults, per-link overrides, hard-drop
// flags, and per-link stats. It never locks internally: the single
// cooperative Driver is the only caller.
type LinkState struct {
	defaultLatency   LatencyConfig
	defaultLoss      PacketLossConfig
	defaultBandwidth BandwidthConfig

	links map[LinkKey]*linkEntry
	parts PartitionStore
}

// New creates a LinkState with sane zero-value defaults: zero latency,
// zero loss, unlimited bandwidth. Callers should call the DefaultXSet
// methods before running any simulation.
func New(parts PartitionStore) *LinkState {
	return &LinkState{
		defaultLatency:   LatencyConfig{Distribution: DistUniform},
		defaultBandwidth: BandwidthConfig{},
		links:            make(map[LinkKey]*linkEntry),
		parts:            parts,
	}
}

func (ls *LinkState) entry(key LinkKey) *linkEntry {
	e, ok := ls.links[key]
	if !ok {
		e = &linkEntry{}
		ls.links[key] = e
	}
	return e
}

// DefaultLatencySet sets the scenario-wide default latency config.
func (ls *LinkState) DefaultLatencySet(cfg LatencyConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid default latency: %w", err)
	}
	ls.defaultLatency = cfg
	return nil
}

// DefaultLossSet sets the scenario-wide default packet loss config.
func (ls *LinkState) DefaultLossSet(cfg PacketLossConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid default packet loss: %w", err)
	}
	ls.defaultLoss = cfg
	return nil
}

// DefaultBandwidthSet sets the scenario-wide default bandwidth config.
func (ls *LinkState) DefaultBandwidthSet(cfg BandwidthConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid default bandwidth: %w", err)
	}
	ls.defaultBandwidth = cfg
	return nil
}

// OverrideLatency applies a per-directional latency override.
func (ls *LinkState) OverrideLatency(key LinkKey, cfg LatencyConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid latency override for %s: %w", key, err)
	}
	e := ls.entry(key)
	e.latency = &cfg
	return nil
}

// OverrideLoss applies a per-directional packet-loss override.
func (ls *LinkState) OverrideLoss(key LinkKey, cfg PacketLossConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid loss override for %s: %w", key, err)
	}
	e := ls.entry(key)
	e.loss = &cfg
	// A fresh override resets the loss state machine to idle.
	e.lossState = lossState{}
	return nil
}

// OverrideBandwidth applies a per-directional bandwidth override.
func (ls *LinkState) OverrideBandwidth(key LinkKey, cfg BandwidthConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid bandwidth override for %s: %w", key, err)
	}
	e := ls.entry(key)
	e.bandwidth = &cfg
	e.bucket = tokenBucket{}
	return nil
}

// ResolveLatency returns the effective latency config for a link: its
// override if present, else the scenario-wide default.
func (ls *LinkState) ResolveLatency(key LinkKey) LatencyConfig {
	if e, ok := ls.links[key]; ok && e.latency != nil {
		return *e.latency
	}
	return ls.defaultLatency
}

// ResolveLoss returns the effective packet-loss config for a link.
func (ls *LinkState) ResolveLoss(key LinkKey) PacketLossConfig {
	if e, ok := ls.links[key]; ok && e.loss != nil {
		return *e.loss
	}
	return ls.defaultLoss
}

// ResolveBandwidth returns the effective bandwidth config for a link.
func (ls *LinkState) ResolveBandwidth(key LinkKey) BandwidthConfig {
	if e, ok := ls.links[key]; ok && e.bandwidth != nil {
		return *e.bandwidth
	}
	return ls.defaultBandwidth
}

// Drop sets the hard-drop flag for one direction.
func (ls *LinkState) Drop(key LinkKey) {
	ls.entry(key).dropped = true
}

// Restore clears the hard-drop flag for one direction.
func (ls *LinkState) Restore(key LinkKey) {
	if e, ok := ls.links[key]; ok {
		e.dropped = false
	}
}

// IsDropped reports whether a direction is currently hard-dropped.
func (ls *LinkState) IsDropped(key LinkKey) bool {
	e, ok := ls.links[key]
	return ok && e.dropped
}

// RestoreAll clears every hard-drop flag. Invoked only by the NetworkHeal
// event.
func (ls *LinkState) RestoreAll() {
	for _, e := range ls.links {
		e.dropped = false
	}
}

// SetPartition mutates a node's partition assignment. The assignment is
// stored on the registry; this method exists so callers that only hold
// a LinkState can still reassign partitions.
func (ls *LinkState) SetPartition(node NodeID, id uint32) {
	ls.parts.SetPartition(node, id)
}

// PartitionOf reports a node's partition assignment. The assignment is
// stored on the registry; this method exists so callers that only hold
// a LinkState can still read partition assignments.
func (ls *LinkState) PartitionOf(id NodeID) (uint32, bool) {
	return ls.parts.PartitionOf(id)
}

// PartitionsCompatible reports whether two nodes may exchange packets:
// both unpartitioned, or both assigned to the same non-zero partition.
func (ls *LinkState) PartitionsCompatible(from, to NodeID) bool {
	pf, _ := ls.parts.PartitionOf(from)
	pt, _ := ls.parts.PartitionOf(to)
	if pf == 0 && pt == 0 {
		return true
	}
	return pf != 0 && pf == pt
}

// RollLoss applies the per-link loss state machine and reports whether the
// packet in question should be dropped. State transitions:
//
//	idle:     roll against probability; on trigger drop the current
//	          packet and enter bursting with counter = burst_length-1,
//	          so a triggered burst drops burst_length packets in total.
//	bursting: drop, decrement; when the counter reaches zero, return to
//	          idle. A fresh roll on the very next packet may re-trigger a
//	          new burst immediately; this is intentional.
func (ls *LinkState) RollLoss(key LinkKey, r *rand.Rand) bool {
	cfg := ls.ResolveLoss(key)
	e := ls.entry(key)

	if e.lossState.bursting {
		e.lossState.remaining--
		if e.lossState.remaining == 0 {
			e.lossState.bursting = false
		}
		return true
	}

	if !cfg.BurstMode {
		return r.Float64() < cfg.Probability
	}

	if r.Float64() < cfg.Probability {
		e.lossState.bursting = true
		e.lossState.remaining = cfg.BurstLength - 1
		if e.lossState.remaining == 0 {
			e.lossState.bursting = false
		}
		return true
	}
	return false
}

// TriggerBurst forces the loss state machine for a link into bursting,
// useful for scenario authors and tests that want deterministic burst
// behavior without relying on an unlucky roll.
func (ls *LinkState) TriggerBurst(key LinkKey) {
	cfg := ls.ResolveLoss(key)
	e := ls.entry(key)
	e.lossState.bursting = true
	e.lossState.remaining = cfg.BurstLength
}

// DebitBandwidth refills both token buckets up to now, then attempts to
// debit (size bytes, 1 message). Returns true if the send is admitted.
func (ls *LinkState) DebitBandwidth(key LinkKey, nowMs int64, size uint64) bool {
	cfg := ls.ResolveBandwidth(key)
	e := ls.entry(key)
	b := &e.bucket

	if !b.seeded {
		b.byteTokens = float64(cfg.BucketSize)
		b.msgTokens = float64(cfg.BucketSize)
		b.lastRefillMs = nowMs
		b.seeded = true
	}

	elapsedSec := float64(nowMs-b.lastRefillMs) / 1000.0
	if elapsedSec > 0 {
		if cfg.MaxBytesPerSec > 0 {
			b.byteTokens += elapsedSec * float64(cfg.MaxBytesPerSec)
			if b.byteTokens > float64(cfg.BucketSize) {
				b.byteTokens = float64(cfg.BucketSize)
			}
		}
		if cfg.MaxMessagesPerSec > 0 {
			b.msgTokens += elapsedSec * float64(cfg.MaxMessagesPerSec)
			if b.msgTokens > float64(cfg.BucketSize) {
				b.msgTokens = float64(cfg.BucketSize)
			}
		}
		b.lastRefillMs = nowMs
	}

	byteOK := cfg.MaxBytesPerSec == 0 || b.byteTokens >= float64(size)
	msgOK := cfg.MaxMessagesPerSec == 0 || b.msgTokens >= 1
	if !byteOK || !msgOK {
		return false
	}
	if cfg.MaxBytesPerSec > 0 {
		b.byteTokens -= float64(size)
	}
	if cfg.MaxMessagesPerSec > 0 {
		b.msgTokens--
	}
	return true
}

// RecordLatency folds a delivery-delay sample into the link's running
// min/max/mean.
func (ls *LinkState) RecordLatency(key LinkKey, d int64) {
	ls.entry(key).stats.recordLatency(d)
}

// IncrSent, IncrDelivered, ... mutate the per-link counters the metric
// exporters read.
func (ls *LinkState) IncrSent(key LinkKey)               { ls.entry(key).stats.MessagesSent++ }
func (ls *LinkState) IncrDelivered(key LinkKey)          { ls.entry(key).stats.MessagesDelivered++ }
func (ls *LinkState) IncrDroppedLoss(key LinkKey)        { ls.entry(key).stats.MessagesDroppedLoss++ }
func (ls *LinkState) IncrThrottledBandwidth(key LinkKey) { ls.entry(key).stats.MessagesThrottledBandwidth++ }
func (ls *LinkState) IncrBlockedPartition(key LinkKey)   { ls.entry(key).stats.MessagesBlockedPartition++ }
func (ls *LinkState) IncrBlockedUnknown(key LinkKey)     { ls.entry(key).stats.MessagesBlockedUnknown++ }
func (ls *LinkState) IncrUndeliverableAtDelivery(key LinkKey) {
	ls.entry(key).stats.MessagesUndeliverableAtDelivery++
}

// Stats returns a copy of a link's accumulated stats.
func (ls *LinkState) Stats(key LinkKey) LinkStats {
	if e, ok := ls.links[key]; ok {
		return e.stats
	}
	return LinkStats{}
}

// ActiveLinks returns every LinkKey that has been observed (has an entry),
// sorted by (from, to) so metric snapshots are identical across runs with
// the same seed.
func (ls *LinkState) ActiveLinks() []LinkKey {
	keys := make([]LinkKey, 0, len(ls.links))
	for k := range ls.links {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].From != keys[j].From {
			return keys[i].From < keys[j].From
		}
		return keys[i].To < keys[j].To
	})
	return keys
}
