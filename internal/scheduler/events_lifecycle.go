package scheduler

import (
	"fmt"

	"github.com/meshsim/meshsim/internal/meshnode"
	"github.com/meshsim/meshsim/internal/netmodel"
)

// NodeStart requests that target transition to Running.
type NodeStart struct{ Target netmodel.NodeID }

func (e *NodeStart) Name() string { return "NodeStart" }
func (e *NodeStart) Execute(w World, now int64) error {
	n, err := w.Registry().Get(e.Target)
	if err != nil {
		return err
	}
	return n.Start(w.Plane(), now)
}

// NodeStop requests that target transition to Stopped.
type NodeStop struct{ Target netmodel.NodeID }

func (e *NodeStop) Name() string { return "NodeStop" }
func (e *NodeStop) Execute(w World, now int64) error {
	n, err := w.Registry().Get(e.Target)
	if err != nil {
		return err
	}
	return n.Stop(w.Plane(), now)
}

// NodeCrash requests that target transition to Crashed.
type NodeCrash struct{ Target netmodel.NodeID }

func (e *NodeCrash) Name() string { return "NodeCrash" }
func (e *NodeCrash) Execute(w World, now int64) error {
	n, err := w.Registry().Get(e.Target)
	if err != nil {
		return err
	}
	return n.Crash()
}

// NodeRestart requests that target transition back to Running.
type NodeRestart struct{ Target netmodel.NodeID }

func (e *NodeRestart) Name() string { return "NodeRestart" }
func (e *NodeRestart) Execute(w World, now int64) error {
	n, err := w.Registry().Get(e.Target)
	if err != nil {
		return err
	}
	return n.Restart(w.Plane(), now)
}

// NodeAdd bulk-creates Count nodes from a template and starts them,
// identifiers minted as IDPrefix+index via meshnode.IDFromAlias.
type NodeAdd struct {
	Count          int
	IDPrefix       string
	Firmware       string
	FirmwareParams map[string]string
	ProtocolParams meshnode.ProtocolParams
}

func (e *NodeAdd) Name() string { return "NodeAdd" }
func (e *NodeAdd) Execute(w World, now int64) error {
	for i := 0; i < e.Count; i++ {
		alias := fmt.Sprintf("%s%d", e.IDPrefix, i)
		cfg := meshnode.Config{
			ID:             meshnode.IDFromAlias(alias),
			Alias:          alias,
			Firmware:       e.Firmware,
			FirmwareParams: e.FirmwareParams,
			ProtocolParams: e.ProtocolParams,
		}
		n, err := meshnode.New(cfg, w.ProtocolFactory(), w.FirmwareRegistry())
		if err != nil {
			return err
		}
		if err := w.Registry().Add(n); err != nil {
			return err
		}
		if err := n.Start(w.Plane(), now); err != nil {
			return err
		}
	}
	return nil
}

// NodeRemove deletes target from the registry outright. The caller is
// expected to have stopped it first; Remove does not implicitly stop.
type NodeRemove struct{ Target netmodel.NodeID }

func (e *NodeRemove) Name() string { return "NodeRemove" }
func (e *NodeRemove) Execute(w World, now int64) error {
	return w.Registry().Remove(e.Target)
}
