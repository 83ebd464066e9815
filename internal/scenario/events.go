package scenario

import (
	"encoding/base64"
	"fmt"

	"github.com/meshsim/meshsim/internal/netmodel"
	"github.com/meshsim/meshsim/internal/scheduler"
)

// buildEvent translates one loosely-typed EventEntry into a concrete
// scheduler.Event, resolving any node-alias fields through nodeIDs.
func buildEvent(ev EventEntry, nodeIDs map[string]netmodel.NodeID) (scheduler.Event, error) {
	f := fields{m: ev.Fields, nodeIDs: nodeIDs}

	switch ev.Action {
	case "node_start":
		return &scheduler.NodeStart{Target: f.nodeID("target")}, f.err()
	case "node_stop":
		return &scheduler.NodeStop{Target: f.nodeID("target")}, f.err()
	case "node_crash":
		return &scheduler.NodeCrash{Target: f.nodeID("target")}, f.err()
	case "node_restart":
		return &scheduler.NodeRestart{Target: f.nodeID("target")}, f.err()
	case "node_add":
		return &scheduler.NodeAdd{
			Count:          f.int("count"),
			IDPrefix:       f.str("id_prefix"),
			Firmware:       f.str("firmware"),
			FirmwareParams: f.strMap("params"),
		}, f.err()
	case "node_remove":
		return &scheduler.NodeRemove{Target: f.nodeID("target")}, f.err()
	case "connection_drop":
		return &scheduler.ConnectionDrop{A: f.nodeID("a"), B: f.nodeID("b")}, f.err()
	case "connection_restore":
		return &scheduler.ConnectionRestore{A: f.nodeID("a"), B: f.nodeID("b")}, f.err()
	case "connection_degrade":
		return &scheduler.ConnectionDegrade{
			A:       f.nodeID("a"),
			B:       f.nodeID("b"),
			Latency: f.latency("latency_cfg"),
			Loss:    f.loss("loss_cfg"),
		}, f.err()
	case "network_partition":
		groups, err := f.groups("groups")
		if err != nil {
			return nil, err
		}
		return &scheduler.NetworkPartition{Groups: groups}, f.err()
	case "network_heal":
		return &scheduler.NetworkHeal{}, nil
	case "inject_message":
		to := netmodel.BroadcastID
		if f.str("to") != "broadcast" && f.str("to") != "" {
			to = f.nodeID("to")
		}
		payload := []byte(f.str("payload"))
		if enc := f.str("payload_base64"); enc != "" {
			decoded, err := base64.StdEncoding.DecodeString(enc)
			if err != nil {
				return nil, fmt.Errorf("inject_message: payload_base64: %w", err)
			}
			payload = decoded
		}
		return &scheduler.InjectMessage{From: f.nodeID("from"), To: to, Payload: payload}, f.err()
	case "set_network_quality":
		var link *netmodel.LinkKey
		if a, b := f.str("a"), f.str("b"); a != "" && b != "" {
			key := netmodel.LinkKey{From: f.nodeID("a"), To: f.nodeID("b")}
			link = &key
		}
		return &scheduler.SetNetworkQuality{Link: link, Quality: f.float("quality")}, f.err()
	default:
		return nil, &scheduler.InvalidEventError{Event: ev.Action, Reason: "unknown action"}
	}
}

// fields is a tiny accessor over an event's loosely-typed field map that
// accumulates the first error it hits so call sites can chain lookups
// and check once at the end via err().
type fields struct {
	m        map[string]interface{}
	nodeIDs  map[string]netmodel.NodeID
	firstErr error
}

func (f *fields) err() error { return f.firstErr }

func (f *fields) fail(format string, args ...interface{}) {
	if f.firstErr == nil {
		f.firstErr = fmt.Errorf(format, args...)
	}
}

func (f *fields) str(key string) string {
	v, ok := f.m[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		f.fail("field %q must be a string", key)
		return ""
	}
	return s
}

func (f *fields) nodeID(key string) netmodel.NodeID {
	alias := f.str(key)
	id, ok := f.nodeIDs[alias]
	if !ok {
		f.fail("field %q: %q does not resolve to a defined node", key, alias)
	}
	return id
}

func (f *fields) int(key string) int {
	switch v := f.m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (f *fields) float(key string) float64 {
	switch v := f.m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func (f *fields) strMap(key string) map[string]string {
	raw, ok := f.m[key].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func (f *fields) latency(key string) *netmodel.LatencyConfig {
	raw, ok := f.m[key].(map[string]interface{})
	if !ok {
		return nil
	}
	cfg := toLatencyConfig(LatencyEntry{
		MinMs:        int64(asFloat(raw["min_ms"])),
		MaxMs:        int64(asFloat(raw["max_ms"])),
		Distribution: asString(raw["distribution"]),
	})
	return &cfg
}

func (f *fields) loss(key string) *netmodel.PacketLossConfig {
	raw, ok := f.m[key].(map[string]interface{})
	if !ok {
		return nil
	}
	cfg := toLossConfig(PacketLossEntry{
		Probability: asFloat(raw["probability"]),
		BurstMode:   asBool(raw["burst_mode"]),
		BurstLength: uint32(asFloat(raw["burst_length"])),
	})
	return &cfg
}

func (f *fields) groups(key string) ([][]netmodel.NodeID, error) {
	raw, ok := f.m[key].([]interface{})
	if !ok {
		return nil, fmt.Errorf("field %q must be a list of lists of node ids", key)
	}
	groups := make([][]netmodel.NodeID, 0, len(raw))
	for _, g := range raw {
		members, ok := g.([]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q: each group must be a list", key)
		}
		ids := make([]netmodel.NodeID, 0, len(members))
		for _, m := range members {
			alias, ok := m.(string)
			if !ok {
				return nil, fmt.Errorf("field %q: group member must be a string node id", key)
			}
			id, ok := f.nodeIDs[alias]
			if !ok {
				return nil, fmt.Errorf("field %q: %q does not resolve to a defined node", key, alias)
			}
			ids = append(ids, id)
		}
		groups = append(groups, ids)
	}
	return groups, nil
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}
