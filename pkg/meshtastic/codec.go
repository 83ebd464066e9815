package meshtastic

// DecodeMeshPacket exposes the package's internal MeshPacket parser
// directly, without requiring callers to go through a full FromRadio
// envelope first. The simulator core uses this to decode the opaque
// byte payload a PendingDelivery carries.
func DecodeMeshPacket(data []byte) (*MeshPacket, error) {
	return parseMeshPacket(data)
}

// EncodeMeshPacket builds the wire bytes for a single-app-payload mesh
// packet: a Data submessage (port number + payload) wrapped in a
// MeshPacket. This mirrors the encoding pkg/meshtastic/simulator uses
// for its fake FromRadio stream, exposed here so the simulation core can
// produce the same wire format without importing the PTY-backed device
// harness.
func EncodeMeshPacket(from, to, channel, id uint32, portNum PortNum, payload []byte, rxTime uint32, snr float32, rssi int32, hopLimit uint32) []byte {
	data := encodeData(uint32(portNum), payload)
	return encodeMeshPacketBytes(from, to, channel, id, data, rxTime, snr, rssi, hopLimit)
}

func encodeVarint(v uint64) []byte {
	var buf []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			buf = append(buf, b|0x80)
		} else {
			buf = append(buf, b)
			break
		}
	}
	return buf
}

func encodeTag(fieldNum int, wireType int) []byte {
	return encodeVarint(uint64(fieldNum<<3 | wireType))
}

func encodeBytesField(fieldNum int, data []byte) []byte {
	out := encodeTag(fieldNum, 2)
	out = append(out, encodeVarint(uint64(len(data)))...)
	return append(out, data...)
}

func encodeUint32Field(fieldNum int, v uint32) []byte {
	return append(encodeTag(fieldNum, 0), encodeVarint(uint64(v))...)
}

func encodeFixed32Field(fieldNum int, v uint32) []byte {
	out := encodeTag(fieldNum, 5)
	return append(out, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func encodeData(portNum uint32, payload []byte) []byte {
	var out []byte
	out = append(out, encodeUint32Field(1, portNum)...)
	out = append(out, encodeBytesField(2, payload)...)
	return out
}

func encodeMeshPacketBytes(from, to, channel, id uint32, decoded []byte, rxTime uint32, snr float32, rssi int32, hopLimit uint32) []byte {
	var out []byte
	out = append(out, encodeUint32Field(1, from)...)
	out = append(out, encodeUint32Field(2, to)...)
	out = append(out, encodeUint32Field(3, channel)...)
	out = append(out, encodeBytesField(4, decoded)...)
	out = append(out, encodeUint32Field(6, id)...)
	out = append(out, encodeUint32Field(7, rxTime)...)
	out = append(out, encodeUint32Field(10, hopLimit)...)
	out = append(out, encodeUint32Field(13, uint32(int32(snr*4)))...)
	out = append(out, encodeFixed32Field(14, uint32(rssi))...)
	return out
}
