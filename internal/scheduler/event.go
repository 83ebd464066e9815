// Package scheduler implements the EventScheduler: a time-ordered queue
// of scenario actions dispatched into the simulation world.
package scheduler

import (
	"container/heap"

	"github.com/meshsim/meshsim/internal/firmware"
	"github.com/meshsim/meshsim/internal/meshnode"
	"github.com/meshsim/meshsim/internal/netmodel"
	"github.com/meshsim/meshsim/internal/network"
	"github.com/meshsim/meshsim/internal/protocol"
)

// World is the façade an Event operates on. It is implemented by
// internal/simworld.World; defining the interface here (rather than
// importing simworld) keeps scheduler a leaf package with no dependency
// on the package that assembles it.
type World interface {
	Registry() *meshnode.Registry
	Links() *netmodel.LinkState
	Plane() *network.Plane
	Scheduler() *Scheduler
	ProtocolFactory() protocol.Factory
	FirmwareRegistry() *firmware.Registry
}

// Event is one scheduled action. Execute runs at the event's scheduled
// time (now == the time it was scheduled for, not necessarily the
// dispatch-call's argument, since dispatch may run several events that
// share a timestamp in one call).
type Event interface {
	Execute(w World, now int64) error
	// Name identifies the event kind for logging.
	Name() string
}

type scheduled struct {
	at    int64
	seq   uint64
	event Event
}

type eventHeap []*scheduled

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(*scheduled))
}
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*eventHeap)(nil)

// Scheduler is the EventScheduler: a min-heap keyed by (scheduled_time,
// insertion_sequence).
type Scheduler struct {
	queue eventHeap
	seq   uint64
}

// New returns an empty Scheduler.
func New() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.queue)
	return s
}

// Schedule adds event to the queue for dispatch once the clock reaches
// atMs.
func (s *Scheduler) Schedule(event Event, atMs int64) {
	s.seq++
	heap.Push(&s.queue, &scheduled{at: atMs, seq: s.seq, event: event})
}

// DispatchResult records one event's outcome, for logging by the caller.
type DispatchResult struct {
	Event Event
	At    int64
	Err   error
}

// DispatchDue pops and runs every event with scheduled_time <= now, in
// (time, sequence) order, and returns their outcomes. An event that
// errors is still fully dispatched; errors from individual events never
// abort the loop (a malformed event is logged and skipped, not fatal).
func (s *Scheduler) DispatchDue(now int64, w World) []DispatchResult {
	var results []DispatchResult
	for s.queue.Len() > 0 && s.queue[0].at <= now {
		item := heap.Pop(&s.queue).(*scheduled)
		err := item.event.Execute(w, item.at)
		results = append(results, DispatchResult{Event: item.event, At: item.at, Err: err})
	}
	return results
}

// Len returns the number of events still pending.
func (s *Scheduler) Len() int { return s.queue.Len() }
