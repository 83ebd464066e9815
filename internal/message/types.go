// Package message provides a JSON-friendly envelope for mesh packets,
// used by bridge firmware. Wire transport inside the simulation core is
// handled by pkg/meshtastic's byte-level codec (the InjectMessage
// scheduler event encodes with it directly); this package is only for
// the human/operator-facing edges (MQTT/TCP/serial bridges).
package message

import "time"

// Envelope is the JSON-serializable view of one mesh packet, decoded
// from or destined for pkg/meshtastic's wire format.
type Envelope struct {
	// ID is the unique packet identifier.
	ID uint32 `json:"id"`

	// From is the sender's node number.
	From uint32 `json:"from"`

	// To is the recipient's node number (0xFFFFFFFF for broadcast).
	To uint32 `json:"to"`

	// Channel is the channel index.
	Channel uint32 `json:"channel"`

	// PortNum indicates the application type.
	PortNum uint32 `json:"port_num"`

	// Text holds the decoded text payload, when PortNum is a text
	// message app; empty for non-text payloads.
	Text string `json:"text,omitempty"`

	// Raw is the undecoded application payload.
	Raw []byte `json:"raw,omitempty"`

	// SNR is the signal-to-noise ratio recorded at delivery.
	SNR float32 `json:"snr,omitempty"`

	// RSSI is the received signal strength indicator.
	RSSI int32 `json:"rssi,omitempty"`

	// HopLimit is the remaining hop count.
	HopLimit uint32 `json:"hop_limit,omitempty"`

	// Timestamp is when the packet was produced or received.
	Timestamp time.Time `json:"timestamp"`
}
