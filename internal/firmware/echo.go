package firmware

import (
	"github.com/meshsim/meshsim/internal/netmodel"
	"github.com/meshsim/meshsim/pkg/meshtastic"
)

// Echo is a smoke-test firmware unit: it replies to every message with
// its text prefixed by "echo:". Useful for scenario authors who want to
// confirm a topology and link configuration actually delivers messages
// without writing custom firmware.
type Echo struct {
	BaseUnit
}

// NewEcho is a firmware.Factory for Echo. It takes no parameters.
func NewEcho(map[string]string) (Unit, error) {
	return &Echo{}, nil
}

// OnReceive replies to the sender with an "echo:" prefixed text packet.
// A payload that decodes as a mesh packet is echoed by its application
// text and correlated by the inbound packet id; anything else is echoed
// verbatim. The reply always goes back out wire-encoded.
func (e *Echo) OnReceive(h Handle, from netmodel.NodeID, payload []byte) {
	text := payload
	var id uint32
	if mp, err := meshtastic.DecodeMeshPacket(payload); err == nil && mp.Decoded != nil {
		text = mp.Decoded.Payload
		id = mp.ID
	}
	reply := make([]byte, 0, len(text)+5)
	reply = append(reply, "echo:"...)
	reply = append(reply, text...)
	wire := meshtastic.EncodeMeshPacket(uint32(h.Self()), uint32(from), 0, id,
		meshtastic.PortNumTextMessageApp, reply, uint32(h.Now()/1000), 0, 0, 3)
	_ = h.Send(from, wire)
}

// Name identifies this firmware type.
func (e *Echo) Name() string { return "echo" }
