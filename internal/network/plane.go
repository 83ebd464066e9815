// Package network implements the NetworkPlane: the gatekeeper every
// inter-node packet passes through on its way from one VirtualNode to
// another.
package network

import (
	"container/heap"
	"math/rand"

	"github.com/meshsim/meshsim/internal/netmodel"
	"github.com/meshsim/meshsim/internal/rng"
)

// NodeLookup is the subset of the node registry the plane needs: whether
// a node exists at all, and whether it is currently running. Kept as an
// interface so this package never imports the node registry (avoiding an
// import cycle, since the registry's VirtualNode.Tick takes a *Plane).
type NodeLookup interface {
	Exists(id netmodel.NodeID) bool
	IsRunning(id netmodel.NodeID) bool
	RunningIDs() []netmodel.NodeID
}

// SendResult classifies the outcome of one Send call. None of these are
// Go errors: they are statistical outcomes a firmware unit cannot
// observe, only the NetworkPlane's stats counters can.
type SendResult int

// Send outcomes, in admission-check order.
const (
	ResultEnqueued SendResult = iota
	ResultUndeliverableRecipient
	ResultBlockedByPartition
	ResultLinkDown
	ResultThrottled
	ResultLostInTransit
)

func (r SendResult) String() string {
	switch r {
	case ResultEnqueued:
		return "Enqueued"
	case ResultUndeliverableRecipient:
		return "UndeliverableRecipient"
	case ResultBlockedByPartition:
		return "BlockedByPartition"
	case ResultLinkDown:
		return "LinkDown"
	case ResultThrottled:
		return "Throttled"
	case ResultLostInTransit:
		return "LostInTransit"
	default:
		return "Unknown"
	}
}

// Plane is the NetworkPlane: it decides admission for every send, owns
// the pending-delivery min-heap, and drives per-link stats.
type Plane struct {
	linkState *netmodel.LinkState
	nodes     NodeLookup
	rngSrc    *rng.Source

	queue deliveryHeap
	seq   uint64

	// streams holds the live per-link roll sequence. ForLink returns a
	// stream positioned at its first draw; the plane keeps it so each
	// subsequent send on the link advances the same sequence.
	streams map[netmodel.LinkKey]*rand.Rand

	maxQueuePerLink int
}

// New creates a NetworkPlane. maxQueuePerLink of 0 means unbounded.
func New(linkState *netmodel.LinkState, nodes NodeLookup, rngSrc *rng.Source, maxQueuePerLink int) *Plane {
	p := &Plane{
		linkState:       linkState,
		nodes:           nodes,
		rngSrc:          rngSrc,
		streams:         make(map[netmodel.LinkKey]*rand.Rand),
		maxQueuePerLink: maxQueuePerLink,
	}
	heap.Init(&p.queue)
	return p
}

// Send runs the admission pipeline for one packet. A BroadcastID
// destination enumerates every other running node and issues one Send
// per recipient. For a concrete recipient, it checks existence and
// liveness, then partition, then hard-drop, then bandwidth, then loss,
// and on success samples a latency and enqueues a PendingDelivery.
func (p *Plane) Send(from, to netmodel.NodeID, payload []byte, now int64) SendResult {
	if to == netmodel.BroadcastID {
		worst := ResultUndeliverableRecipient
		sent := false
		for _, id := range p.nodes.RunningIDs() {
			if id == from {
				continue
			}
			if r := p.sendOne(from, id, payload, now); r == ResultEnqueued {
				sent = true
			} else {
				worst = r
			}
		}
		if sent {
			return ResultEnqueued
		}
		return worst
	}
	return p.sendOne(from, to, payload, now)
}

func (p *Plane) sendOne(from, to netmodel.NodeID, payload []byte, now int64) SendResult {
	key := netmodel.LinkKey{From: from, To: to}

	if !p.nodes.Exists(to) || !p.nodes.IsRunning(to) || !p.nodes.Exists(from) || !p.nodes.IsRunning(from) {
		p.linkState.IncrBlockedUnknown(key)
		return ResultUndeliverableRecipient
	}

	if !p.linkState.PartitionsCompatible(from, to) {
		p.linkState.IncrBlockedPartition(key)
		return ResultBlockedByPartition
	}

	if p.linkState.IsDropped(key) {
		p.linkState.IncrBlockedPartition(key)
		return ResultLinkDown
	}

	if p.maxQueuePerLink > 0 && p.linkQueueDepth(key) >= p.maxQueuePerLink {
		p.linkState.IncrThrottledBandwidth(key)
		return ResultThrottled
	}

	if !p.linkState.DebitBandwidth(key, now, uint64(len(payload))) {
		p.linkState.IncrThrottledBandwidth(key)
		return ResultThrottled
	}

	r := p.stream(key)
	if p.linkState.RollLoss(key, r) {
		p.linkState.IncrDroppedLoss(key)
		return ResultLostInTransit
	}

	latency := p.linkState.ResolveLatency(key)
	delay := latency.Sample(r)
	deliverAt := now + delay
	p.linkState.RecordLatency(key, delay)

	p.seq++
	heap.Push(&p.queue, &PendingDelivery{
		Source:      from,
		Destination: to,
		Payload:     payload,
		DeliverAt:   deliverAt,
		seq:         p.seq,
	})
	p.linkState.IncrSent(key)
	return ResultEnqueued
}

func (p *Plane) stream(key netmodel.LinkKey) *rand.Rand {
	r, ok := p.streams[key]
	if !ok {
		r = p.rngSrc.ForLink(uint32(key.From), uint32(key.To))
		p.streams[key] = r
	}
	return r
}

func (p *Plane) linkQueueDepth(key netmodel.LinkKey) int {
	n := 0
	for _, d := range p.queue {
		if d.Source == key.From && d.Destination == key.To {
			n++
		}
	}
	return n
}

// PollReady pops and returns every PendingDelivery whose DeliverAt <= now,
// in (DeliverAt, insertion order) order. A delivery whose destination has
// stopped running since it was enqueued is discarded here and counted as
// undeliverable-at-delivery, rather than being handed to the caller.
func (p *Plane) PollReady(now int64) []PendingDelivery {
	var ready []PendingDelivery
	for p.queue.Len() > 0 && p.queue[0].DeliverAt <= now {
		d := heap.Pop(&p.queue).(*PendingDelivery)
		key := netmodel.LinkKey{From: d.Source, To: d.Destination}
		if !p.nodes.Exists(d.Destination) || !p.nodes.IsRunning(d.Destination) {
			p.linkState.IncrUndeliverableAtDelivery(key)
			continue
		}
		p.linkState.IncrDelivered(key)
		ready = append(ready, *d)
	}
	return ready
}

// RetractFrom removes every pending delivery originated by node id from
// the queue. Called only by a graceful stop; Crash leaves in-flight
// deliveries alone so they still land (simulating packets already on
// the wire).
func (p *Plane) RetractFrom(id netmodel.NodeID) {
	kept := p.queue[:0]
	for _, d := range p.queue {
		if d.Source == id {
			continue
		}
		kept = append(kept, d)
	}
	p.queue = kept
	heap.Init(&p.queue)
}

// Size returns the number of deliveries currently pending in the queue.
func (p *Plane) Size() int {
	return p.queue.Len()
}
