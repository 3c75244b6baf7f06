package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"betexec/internal/event"
	"betexec/internal/infra"
)

// BookHandler consumes market data snapshots.
type BookHandler interface {
	ProcessMarketBook(ctx context.Context, ev *event.MarketBookEvent)
}

// OrdersHandler consumes venue current-order polls.
type OrdersHandler interface {
	ProcessCurrentOrders(ctx context.Context, ev *event.CurrentOrdersEvent)
}

// Processor is the single-threaded loop for market data and current-order
// polls. It runs independently of the exchange sequencers.
type Processor struct {
	inbox   chan event.Event
	pubMu   sync.Mutex
	pubSeq  uint64
	nextSeq uint64
	books   BookHandler
	orders  OrdersHandler
	log     *slog.Logger
}

func NewProcessor(inboxSize int, books BookHandler, orders OrdersHandler, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		inbox:   make(chan event.Event, inboxSize),
		nextSeq: 1,
		books:   books,
		orders:  orders,
		log:     log,
	}
}

// PublishBook stamps and queues a market book event, blocking until
// there is room or ctx is done.
func (p *Processor) PublishBook(ctx context.Context, ev *event.MarketBookEvent) error {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()
	ev.BaseEvent = p.stamp()
	return p.publish(ctx, ev)
}

// PublishCurrentOrders stamps and queues a current-orders event.
func (p *Processor) PublishCurrentOrders(ctx context.Context, ev *event.CurrentOrdersEvent) error {
	p.pubMu.Lock()
	defer p.pubMu.Unlock()
	ev.BaseEvent = p.stamp()
	return p.publish(ctx, ev)
}

// stamp and publish run under pubMu so sequence numbers reach the inbox in
// order.
func (p *Processor) stamp() event.BaseEvent {
	return event.BaseEvent{Seq: p.pubSeq + 1, Ts: time.Now().UnixMicro()}
}

func (p *Processor) publish(ctx context.Context, ev event.Event) error {
	select {
	case p.inbox <- ev:
		p.pubSeq++
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events until ctx is done. This MUST be run in a single
// goroutine. A sequence gap or a handler panic halts the loop and is
// returned as an error.
func (p *Processor) Run(ctx context.Context) (err error) {
	p.log.Info("Processor started")

	defer func() {
		if r := recover(); r != nil {
			p.log.Log(ctx, infra.LevelCritical, "CRITICAL_PANIC_DETECTED",
				slog.Any("panic", r), slog.Uint64("next_seq", p.nextSeq))
			err = fmt.Errorf("processor halted: %v", r)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Processor stopping...")
			return nil
		case ev := <-p.inbox:
			p.processEvent(ctx, ev)
		}
	}
}

func (p *Processor) processEvent(ctx context.Context, ev event.Event) {
	if ev.GetSeq() != p.nextSeq {
		panic(fmt.Sprintf("SEQUENCE_GAP_DETECTED: expected %d, got %d", p.nextSeq, ev.GetSeq()))
	}

	switch e := ev.(type) {
	case *event.MarketBookEvent:
		if p.books != nil {
			p.books.ProcessMarketBook(ctx, e)
		}
	case *event.CurrentOrdersEvent:
		if p.orders != nil {
			p.orders.ProcessCurrentOrders(ctx, e)
		}
	default:
		p.log.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}

	p.nextSeq++
}
