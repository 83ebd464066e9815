package metricsexport

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// CSVExporter writes one flattened row per (snapshot, link) pair, with
// node-level figures repeated for the source node of each row. A
// snapshot with no active links writes one row per node instead, with
// the link fields zeroed.
type CSVExporter struct {
	path string
	file *os.File
	w    *csv.Writer
}

// NewCSV opens path for appending and writes the header row if the file
// is new.
func NewCSV(path string) (*CSVExporter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("metricsexport: create dir for %s: %w", path, err)
	}
	fresh := true
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		fresh = false
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("metricsexport: open %s: %w", path, err)
	}
	e := &CSVExporter{path: path, file: f, w: csv.NewWriter(f)}
	if fresh {
		_ = e.w.Write([]string{
			"simulation_time_ms", "node_id", "node_alias", "running", "partition_id",
			"messages_sent", "messages_received", "bytes_sent", "bytes_received",
			"link_from", "link_to", "link_messages_sent", "link_messages_delivered",
			"link_messages_dropped_loss", "link_messages_throttled_bandwidth",
			"link_messages_blocked_partition", "latency_min_ms", "latency_max_ms", "latency_mean_ms",
		})
	}
	return e, nil
}

// Export writes one row per active link; if there are no links, one row
// per node with link fields blank.
func (e *CSVExporter) Export(snap Snapshot) error {
	t := strconv.FormatInt(snap.SimTimeMs, 10)
	if len(snap.Links) == 0 {
		for _, n := range snap.Nodes {
			if err := e.w.Write(nodeRow(t, n, LinkSample{})); err != nil {
				return err
			}
		}
	} else {
		byID := make(map[uint32]NodeSample, len(snap.Nodes))
		for _, n := range snap.Nodes {
			byID[n.ID] = n
		}
		for _, l := range snap.Links {
			if err := e.w.Write(nodeRow(t, byID[l.From], l)); err != nil {
				return err
			}
		}
	}
	e.w.Flush()
	return e.w.Error()
}

func nodeRow(t string, n NodeSample, l LinkSample) []string {
	return []string{
		t,
		strconv.FormatUint(uint64(n.ID), 10),
		n.Alias,
		strconv.FormatBool(n.Running),
		strconv.FormatUint(uint64(n.PartitionID), 10),
		strconv.FormatUint(n.MessagesSent, 10),
		strconv.FormatUint(n.MessagesReceived, 10),
		strconv.FormatUint(n.BytesSent, 10),
		strconv.FormatUint(n.BytesReceived, 10),
		strconv.FormatUint(uint64(l.From), 10),
		strconv.FormatUint(uint64(l.To), 10),
		strconv.FormatUint(l.MessagesSent, 10),
		strconv.FormatUint(l.MessagesDelivered, 10),
		strconv.FormatUint(l.MessagesDroppedLoss, 10),
		strconv.FormatUint(l.MessagesThrottledBandwidth, 10),
		strconv.FormatUint(l.MessagesBlockedPartition, 10),
		strconv.FormatInt(l.LatencyMinMs, 10),
		strconv.FormatInt(l.LatencyMaxMs, 10),
		strconv.FormatFloat(l.LatencyMeanMs, 'f', 3, 64),
	}
}

func (e *CSVExporter) Close() error {
	e.w.Flush()
	return e.file.Close()
}

func (e *CSVExporter) Name() string { return "csv:" + e.path }
