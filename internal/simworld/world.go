// Package simworld bundles the NodeRegistry, LinkState, NetworkPlane,
// and EventScheduler into the single façade ("world") that event
// handlers and node ticks operate on. World is passed by reference and
// never stored by its collaborators: borrowed, not owned.
package simworld

import (
	"github.com/meshsim/meshsim/internal/firmware"
	"github.com/meshsim/meshsim/internal/meshnode"
	"github.com/meshsim/meshsim/internal/netmodel"
	"github.com/meshsim/meshsim/internal/network"
	"github.com/meshsim/meshsim/internal/protocol"
	"github.com/meshsim/meshsim/internal/rng"
	"github.com/meshsim/meshsim/internal/scheduler"
)

// World implements scheduler.World and is the one object the Driver
// constructs and owns for the lifetime of a simulation run.
type World struct {
	registry     *meshnode.Registry
	links        *netmodel.LinkState
	plane        *network.Plane
	sched        *scheduler.Scheduler
	rngSrc       *rng.Source
	protoFactory protocol.Factory
	fwRegistry   *firmware.Registry
}

// New assembles a World. maxQueuePerLink of 0 means the NetworkPlane's
// pending-delivery queue is unbounded per link.
func New(populationCap int, maxQueuePerLink int, seed uint64, protoFactory protocol.Factory, fwRegistry *firmware.Registry) *World {
	w := &World{
		registry:     meshnode.NewRegistry(populationCap),
		sched:        scheduler.New(),
		rngSrc:       rng.New(seed),
		protoFactory: protoFactory,
		fwRegistry:   fwRegistry,
	}
	w.links = netmodel.New(w.registry)
	w.plane = network.New(w.links, w.registry, w.rngSrc, maxQueuePerLink)
	return w
}

func (w *World) Registry() *meshnode.Registry         { return w.registry }
func (w *World) Links() *netmodel.LinkState           { return w.links }
func (w *World) Plane() *network.Plane                { return w.plane }
func (w *World) Scheduler() *scheduler.Scheduler      { return w.sched }
func (w *World) ProtocolFactory() protocol.Factory    { return w.protoFactory }
func (w *World) FirmwareRegistry() *firmware.Registry { return w.fwRegistry }
func (w *World) RNG() *rng.Source                     { return w.rngSrc }

var _ scheduler.World = (*World)(nil)
