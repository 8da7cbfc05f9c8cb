package event

import (
	"sync"
	"sync/atomic"
)

// OrderEvent is the hot event type: one per venue ORDER frame. Pooling
// keeps the dispatch path allocation-free under bursts.
var orderEventPool = sync.Pool{
	New: func() any {
		return &OrderEvent{}
	},
}

// AcquireOrderEvent returns a cleared OrderEvent from the pool.
func AcquireOrderEvent() *OrderEvent {
	return orderEventPool.Get().(*OrderEvent)
}

// ReleaseOrderEvent resets and returns an event to the pool. Callers
// must not touch the event afterwards.
func ReleaseOrderEvent(ev *OrderEvent) {
	ev.Seq = 0
	ev.Asset = 0
	ev.Trades = ev.Trades[:0]
	ev.Unmatched = nil
	orderEventPool.Put(ev)
}

// Warmup pre-populates the pool so the first burst of fills does not
// pay allocation cost.
func Warmup() {
	const warm = 64
	events := make([]*OrderEvent, 0, warm)
	for i := 0; i < warm; i++ {
		events = append(events, AcquireOrderEvent())
	}
	for _, ev := range events {
		ReleaseOrderEvent(ev)
	}
}

// NextSeq generates the next sequence number atomically. All channels
// share one counter so the journal has a total order.
func NextSeq(ptr *uint64) uint64 {
	return atomic.AddUint64(ptr, 1)
}
