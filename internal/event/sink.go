package event

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Sink receives control events. LogControl must never block.
type Sink interface {
	LogControl(ev *OrderEvent)
}

// Handler consumes control events taken off a ChannelSink.
type Handler func(ctx context.Context, ev *OrderEvent) error

// ChannelSink is a bounded, non-blocking Sink. Events that do not fit are
// dropped and counted.
type ChannelSink struct {
	ch      chan *OrderEvent
	seq     atomic.Uint64
	dropped atomic.Uint64
	onDrop  func()
}

// NewChannelSink creates a sink buffering up to size events. onDrop may be nil.
func NewChannelSink(size int, onDrop func()) *ChannelSink {
	return &ChannelSink{ch: make(chan *OrderEvent, size), onDrop: onDrop}
}

func (s *ChannelSink) LogControl(ev *OrderEvent) {
	ev.Seq = s.seq.Add(1)
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
		if s.onDrop != nil {
			s.onDrop()
		}
		ReleaseOrderEvent(ev)
	}
}

// Dropped is the number of events dropped so far.
func (s *ChannelSink) Dropped() uint64 { return s.dropped.Load() }

// Len is the number of buffered events.
func (s *ChannelSink) Len() int { return len(s.ch) }

// Run hands buffered events to handler until ctx is done. Events are
// released after the handler returns.
func (s *ChannelSink) Run(ctx context.Context, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.ch:
			if err := handler(ctx, ev); err != nil {
				slog.Warn("Control event not delivered",
					slog.String("order_id", ev.OrderID),
					slog.String("kind", string(ev.Kind)),
					slog.Any("error", err),
				)
			}
			ReleaseOrderEvent(ev)
		}
	}
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) LogControl(ev *OrderEvent) { ReleaseOrderEvent(ev) }
