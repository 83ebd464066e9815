package message

import (
	"time"

	"github.com/meshsim/meshsim/pkg/meshtastic"
)

// FromMeshPacket decodes a wire-format mesh packet (as delivered through
// the NetworkPlane) into the JSON-friendly Envelope used at the bridge
// and metric-export edges.
func FromMeshPacket(mp *meshtastic.MeshPacket, receivedAt time.Time) *Envelope {
	if mp == nil {
		return nil
	}

	e := &Envelope{
		ID:        mp.ID,
		From:      mp.From,
		To:        mp.To,
		Channel:   mp.Channel,
		SNR:       mp.RxSnr,
		RSSI:      mp.RxRssi,
		HopLimit:  mp.HopLimit,
		Timestamp: receivedAt,
	}

	if mp.Decoded != nil {
		e.PortNum = uint32(mp.Decoded.PortNum)
		e.Raw = mp.Decoded.Payload
		if mp.Decoded.PortNum == meshtastic.PortNumTextMessageApp {
			e.Text = string(mp.Decoded.Payload)
		}
	}

	return e
}

// ToWire encodes an Envelope back into the wire format the NetworkPlane
// transports, for bridge-originated sends. A non-empty Text replaces Raw
// as the payload.
func (e *Envelope) ToWire(now int64) []byte {
	payload := e.Raw
	if e.Text != "" {
		payload = []byte(e.Text)
	}
	portNum := meshtastic.PortNum(e.PortNum)
	if portNum == 0 && e.Text != "" {
		portNum = meshtastic.PortNumTextMessageApp
	}
	return meshtastic.EncodeMeshPacket(e.From, e.To, e.Channel, e.ID, portNum, payload, uint32(now/1000), e.SNR, e.RSSI, e.HopLimit)
}
