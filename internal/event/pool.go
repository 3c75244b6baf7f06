package event

import (
	"sync"
)

// orderEventPool recycles control events: one is built for every placement
// and replacement, and they are released once published.
//
// Usage:
//
//	ev := NewOrderEvent(TypeOrderPlaced, order)
//	sink.LogControl(ev)
//	// the sink consumer calls ReleaseOrderEvent(ev) after publishing
var orderEventPool = sync.Pool{
	New: func() interface{} {
		return &OrderEvent{}
	},
}

// AcquireOrderEvent gets an OrderEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireOrderEvent() *OrderEvent {
	return orderEventPool.Get().(*OrderEvent)
}

// ReleaseOrderEvent returns an OrderEvent to the pool.
// The event is reset to zero values before being pooled.
func ReleaseOrderEvent(ev *OrderEvent) {
	if ev == nil {
		return
	}
	*ev = OrderEvent{}
	orderEventPool.Put(ev)
}

// Warmup pre-allocates event objects to reduce GC pressure at startup.
func Warmup() {
	const batchSize = 256

	evs := make([]*OrderEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, AcquireOrderEvent())
	}
	for _, ev := range evs {
		ReleaseOrderEvent(ev)
	}
}
