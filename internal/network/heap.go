package network

import (
	"container/heap"

	"github.com/meshsim/meshsim/internal/netmodel"
)

// PendingDelivery is an enqueued but not-yet-delivered packet.
type PendingDelivery struct {
	Source      netmodel.NodeID
	Destination netmodel.NodeID
	Payload     []byte
	DeliverAt   int64
	seq         uint64
}

// Size returns the byte length of the payload.
func (d PendingDelivery) Size() int { return len(d.Payload) }

type deliveryHeap []*PendingDelivery

func (h deliveryHeap) Len() int { return len(h) }
func (h deliveryHeap) Less(i, j int) bool {
	if h[i].DeliverAt != h[j].DeliverAt {
		return h[i].DeliverAt < h[j].DeliverAt
	}
	return h[i].seq < h[j].seq
}
func (h deliveryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *deliveryHeap) Push(x interface{}) {
	*h = append(*h, x.(*PendingDelivery))
}
func (h *deliveryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*deliveryHeap)(nil)
