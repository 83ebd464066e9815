package firmware

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/meshsim/meshsim/internal/logging"
	"github.com/meshsim/meshsim/internal/message"
	"github.com/meshsim/meshsim/internal/netmodel"
	"github.com/meshsim/meshsim/pkg/meshtastic"
)

// Bridge role names. Only the primary republishes mesh traffic on the
// external transport; a secondary promotes itself when the primary's
// heartbeat goes silent, and a standby waits twice as long so a
// secondary wins the election when both are present.
const (
	bridgeRolePrimary   = "primary"
	bridgeRoleSecondary = "secondary"
	bridgeRoleStandby   = "standby"
)

// bridgeHeartbeat is the application payload of the private-app mesh
// packet a primary bridge broadcasts so other bridges on the mesh know
// one is alive. Never republished externally.
const bridgeHeartbeat = "bridge-hb"

const (
	bridgeHeartbeatIntervalMs = 1000
	bridgeHeartbeatTimeoutMs  = 3000
)

// Bridge is a firmware unit that gives its host node additional
// connectivity outside the simulated mesh. Exactly one of its three
// transports is active per instance; which one is chosen by the
// "transport" param passed to the factory ("mqtt", "tcp", or "serial").
// Mesh traffic the host node receives is republished on the external
// transport by the current primary; anything read from the external
// transport is queued and injected back into the mesh (broadcast) on
// the next Tick, keeping all core-visible state mutation on the
// cooperative tick boundary. Several bridge nodes may share a mesh:
// the "role" param and the heartbeat election above decide which one
// speaks for it.
type Bridge struct {
	BaseUnit

	transport string
	logger    *zap.Logger

	role              string
	lastHeartbeatMs   int64
	lastPrimarySeenMs int64

	mqttClient mqtt.Client
	mqttBroker string
	mqttTopic  string

	tcpAddr string
	tcpConn net.Conn

	serialPort string
	serialBaud int
	serialIO   serial.Port

	inbound chan []byte
	mu      sync.Mutex
	closed  bool
}

// NewBridge is a firmware.Factory for Bridge. Recognized params:
// "transport" (mqtt|tcp|serial, required), "role"
// (primary|secondary|standby, default primary), "broker"/"topic"
// (mqtt), "address" (tcp, host:port), "port"/"baud" (serial).
func NewBridge(params map[string]string) (Unit, error) {
	b := &Bridge{
		transport: params["transport"],
		logger:    logging.With(zap.String("firmware", "bridge")),
		inbound:   make(chan []byte, 64),
		role:      params["role"],
	}
	switch b.role {
	case "":
		b.role = bridgeRolePrimary
	case bridgeRolePrimary, bridgeRoleSecondary, bridgeRoleStandby:
	default:
		return nil, fmt.Errorf("bridge: unknown role %q (want primary, secondary, or standby)", b.role)
	}
	switch b.transport {
	case "mqtt":
		b.mqttTopic = params["topic"]
		if params["broker"] == "" || b.mqttTopic == "" {
			return nil, fmt.Errorf("bridge: mqtt transport requires broker and topic params")
		}
	case "tcp":
		b.tcpAddr = params["address"]
		if b.tcpAddr == "" {
			return nil, fmt.Errorf("bridge: tcp transport requires an address param")
		}
	case "serial":
		b.serialPort = params["port"]
		if b.serialPort == "" {
			return nil, fmt.Errorf("bridge: serial transport requires a port param")
		}
		b.serialBaud = 115200
		if baud, ok := params["baud"]; ok {
			if v, err := strconv.Atoi(baud); err == nil {
				b.serialBaud = v
			}
		}
	default:
		return nil, fmt.Errorf("bridge: unknown transport %q (want mqtt, tcp, or serial)", b.transport)
	}
	b.mqttBroker = params["broker"]
	return b, nil
}

func (b *Bridge) Setup(h Handle) error {
	// Give an existing primary a full timeout window before a freshly
	// started backup considers promoting itself.
	b.lastPrimarySeenMs = h.Now()
	switch b.transport {
	case "mqtt":
		return b.setupMQTT(h)
	case "tcp":
		return b.setupTCP(h)
	case "serial":
		return b.setupSerial(h)
	}
	return nil
}

func (b *Bridge) setupMQTT(h Handle) error {
	opts := mqtt.NewClientOptions().
		AddBroker(b.mqttBroker).
		SetClientID(fmt.Sprintf("meshsim-bridge-%d-%d", h.Self(), time.Now().UnixNano())).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	b.mqttClient = mqtt.NewClient(opts)
	token := b.mqttClient.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("bridge: mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("bridge: mqtt connect: %w", err)
	}
	subTok := b.mqttClient.Subscribe(b.mqttTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		b.enqueueInbound(msg.Payload())
	})
	subTok.Wait()
	return subTok.Error()
}

func (b *Bridge) setupTCP(_ Handle) error {
	conn, err := net.DialTimeout("tcp", b.tcpAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("bridge: tcp dial %s: %w", b.tcpAddr, err)
	}
	b.tcpConn = conn
	go b.readLoop(bufio.NewReader(conn))
	return nil
}

func (b *Bridge) setupSerial(_ Handle) error {
	mode := &serial.Mode{BaudRate: b.serialBaud}
	port, err := serial.Open(b.serialPort, mode)
	if err != nil {
		return fmt.Errorf("bridge: open serial %s: %w", b.serialPort, err)
	}
	b.serialIO = port
	go b.readLoop(bufio.NewReader(port))
	return nil
}

func (b *Bridge) readLoop(r *bufio.Reader) {
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			b.enqueueInbound(line)
		}
		if err != nil {
			return
		}
	}
}

func (b *Bridge) enqueueInbound(payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.inbound <- payload:
	default:
		b.logger.Warn("bridge inbound queue full, dropping message")
	}
}

// Tick runs the role election, emits the primary's heartbeat, then
// drains anything received from the external transport since the last
// tick and injects it into the mesh as a broadcast.
func (b *Bridge) Tick(h Handle) {
	now := h.Now()
	if b.role == bridgeRolePrimary {
		if now-b.lastHeartbeatMs >= bridgeHeartbeatIntervalMs {
			_ = h.Send(netmodel.BroadcastID, heartbeatWire(h.Self(), now))
			b.lastHeartbeatMs = now
		}
	} else {
		timeout := int64(bridgeHeartbeatTimeoutMs)
		if b.role == bridgeRoleStandby {
			timeout *= 2
		}
		if now-b.lastPrimarySeenMs > timeout {
			h.Log("bridge promoted to primary", "previous_role", b.role)
			b.role = bridgeRolePrimary
		}
	}
	for {
		select {
		case payload := <-b.inbound:
			env := &message.Envelope{From: uint32(h.Self()), To: uint32(netmodel.BroadcastID), Text: string(payload), Timestamp: time.Now()}
			_ = h.Send(netmodel.BroadcastID, env.ToWire(h.Now()))
		default:
			return
		}
	}
}

// OnReceive republishes mesh traffic onto the external transport, if
// this bridge currently holds the primary role. Another bridge's
// heartbeat only feeds the election and is never republished. Payloads
// that decode as mesh packets are republished by their application
// text; anything else goes out verbatim.
func (b *Bridge) OnReceive(h Handle, from netmodel.NodeID, payload []byte) {
	mp, err := meshtastic.DecodeMeshPacket(payload)
	if err == nil && isHeartbeat(mp) {
		b.lastPrimarySeenMs = h.Now()
		return
	}
	if b.role != bridgeRolePrimary {
		return
	}
	text := string(payload)
	if err == nil && mp.Decoded != nil {
		text = string(mp.Decoded.Payload)
	}
	out := fmt.Sprintf("from=%d %s\n", from, text)
	switch b.transport {
	case "mqtt":
		if b.mqttClient != nil && b.mqttClient.IsConnected() {
			b.mqttClient.Publish(b.mqttTopic+"/out", 0, false, out)
		}
	case "tcp":
		if b.tcpConn != nil {
			_, _ = b.tcpConn.Write([]byte(out))
		}
	case "serial":
		if b.serialIO != nil {
			_, _ = b.serialIO.Write([]byte(out))
		}
	}
}

func (b *Bridge) Teardown(Handle) {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	switch b.transport {
	case "mqtt":
		if b.mqttClient != nil {
			b.mqttClient.Disconnect(250)
		}
	case "tcp":
		if b.tcpConn != nil {
			_ = b.tcpConn.Close()
		}
	case "serial":
		if b.serialIO != nil {
			_ = b.serialIO.Close()
		}
	}
}

func (b *Bridge) Name() string { return "bridge:" + b.transport }

// heartbeatWire encodes the primary's heartbeat as a private-app mesh
// packet, so it travels the same wire format as every other payload.
func heartbeatWire(self netmodel.NodeID, nowMs int64) []byte {
	return meshtastic.EncodeMeshPacket(uint32(self), uint32(netmodel.BroadcastID), 0, uint32(nowMs),
		meshtastic.PortNumPrivateApp, []byte(bridgeHeartbeat), uint32(nowMs/1000), 0, 0, 3)
}

func isHeartbeat(mp *meshtastic.MeshPacket) bool {
	return mp != nil && mp.Decoded != nil &&
		mp.Decoded.PortNum == meshtastic.PortNumPrivateApp &&
		string(mp.Decoded.Payload) == bridgeHeartbeat
}
