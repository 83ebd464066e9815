package scheduler

import (
	"testing"

	"github.com/meshsim/meshsim/internal/firmware"
	"github.com/meshsim/meshsim/internal/meshnode"
	"github.com/meshsim/meshsim/internal/netmodel"
	"github.com/meshsim/meshsim/internal/network"
	"github.com/meshsim/meshsim/internal/protocol"
	"github.com/meshsim/meshsim/internal/rng"
)

// testWorld is a minimal, package-local implementation of World, built
// directly from meshnode/netmodel/network so this package's tests never
// need to import internal/simworld (which itself imports scheduler).
type testWorld struct {
	registry *meshnode.Registry
	links    *netmodel.LinkState
	plane    *network.Plane
	sched    *Scheduler
	fwReg    *firmware.Registry
}

func newTestWorld(t *testing.T) *testWorld {
	t.Helper()
	reg := meshnode.NewRegistry(0)
	links := netmodel.New(reg)
	rngSrc := rng.New(1)
	plane := network.New(links, reg, rngSrc, 0)
	fwReg := firmware.NewRegistry()
	fwReg.Register("echo", firmware.NewEcho)
	return &testWorld{
		registry: reg,
		links:    links,
		plane:    plane,
		sched:    New(),
		fwReg:    fwReg,
	}
}

func (w *testWorld) Registry() *meshnode.Registry         { return w.registry }
func (w *testWorld) Links() *netmodel.LinkState           { return w.links }
func (w *testWorld) Plane() *network.Plane                { return w.plane }
func (w *testWorld) Scheduler() *Scheduler                { return w.sched }
func (w *testWorld) ProtocolFactory() protocol.Factory    { return protocol.NewFloodInstance }
func (w *testWorld) FirmwareRegistry() *firmware.Registry { return w.fwReg }

func (w *testWorld) addRunningNode(t *testing.T, id netmodel.NodeID) *meshnode.VirtualNode {
	t.Helper()
	n, err := meshnode.New(meshnode.Config{ID: id}, protocol.NewFloodInstance, w.fwReg)
	if err != nil {
		t.Fatalf("meshnode.New: %v", err)
	}
	if err := w.registry.Add(n); err != nil {
		t.Fatalf("Registry.Add: %v", err)
	}
	if err := n.Start(w.plane, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return n
}

var _ World = (*testWorld)(nil)
