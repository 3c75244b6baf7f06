package process

import (
	"context"
	"log/slog"

	"betexec/internal/domain"
	"betexec/internal/event"
	"betexec/internal/market"
)

// LiveOrderGauge receives the live order count after every snapshot.
type LiveOrderGauge interface {
	SetLiveOrders(count int)
}

// MarketRemover forgets the per-market state of a closed market.
type MarketRemover interface {
	RemoveMarket(marketID string)
}

// BookProcessor applies market data snapshots: it keeps the market
// registry current and drives simulated matching.
type BookProcessor struct {
	markets    *market.Markets
	middleware *market.SimulatedMiddleware
	strategies MarketRemover
	gauge      LiveOrderGauge
	log        *slog.Logger
}

// NewBookProcessor creates a processor. A nil middleware disables simulated
// matching.
func NewBookProcessor(markets *market.Markets, middleware *market.SimulatedMiddleware, strategies MarketRemover, gauge LiveOrderGauge, log *slog.Logger) *BookProcessor {
	if log == nil {
		log = slog.Default()
	}
	return &BookProcessor{markets: markets, middleware: middleware, strategies: strategies, gauge: gauge, log: log}
}

func (p *BookProcessor) ProcessMarketBook(_ context.Context, ev *event.MarketBookEvent) {
	book := ev.Book
	if book == nil || book.MarketID == "" {
		return
	}

	m := p.markets.GetOrCreate(book.MarketID, ev.Exchange)
	m.SetBook(book)

	if p.middleware != nil {
		p.middleware.Process(m)
	}

	if book.Status == domain.MarketStatusClosed {
		if p.middleware != nil {
			p.middleware.RemoveMarket(m.ID())
		}
		if !m.Blotter().HasLiveOrders() {
			p.markets.Remove(m.ID())
			if p.strategies != nil {
				p.strategies.RemoveMarket(m.ID())
			}
			p.log.Info("Market closed", slog.String("market_id", m.ID()))
		}
	}

	if p.gauge != nil {
		p.gauge.SetLiveOrders(p.markets.LiveOrderCount())
	}
}
