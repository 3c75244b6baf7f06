package market

import (
	"sync"
	"time"

	"betexec/internal/domain"
)

// Market owns the blotter of one market, its latest book and a free-form
// context used by middleware.
type Market struct {
	id       string
	exchange domain.ExchangeType
	blotter  *Blotter

	mu      sync.RWMutex
	book    *domain.MarketBook
	updated time.Time
	context map[string]any
}

// NewMarket creates a market with an empty blotter.
func NewMarket(id string, exchange domain.ExchangeType, book *domain.MarketBook) *Market {
	m := &Market{
		id:       id,
		exchange: exchange,
		blotter:  NewBlotter(id),
		context:  make(map[string]any),
	}
	if book != nil {
		m.SetBook(book)
	}
	return m
}

func (m *Market) ID() string                    { return m.id }
func (m *Market) Exchange() domain.ExchangeType { return m.exchange }
func (m *Market) Blotter() *Blotter             { return m.blotter }

// SetBook stores the latest snapshot.
func (m *Market) SetBook(book *domain.MarketBook) {
	m.mu.Lock()
	m.book = book
	m.updated = time.Now()
	m.mu.Unlock()
}

// Book returns the latest snapshot, nil before the first update.
func (m *Market) Book() *domain.MarketBook {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book
}

// Status is the status of the latest snapshot, empty before the first update.
func (m *Market) Status() domain.MarketStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.book == nil {
		return ""
	}
	return m.book.Status
}

// Elapsed is the time since the last snapshot.
func (m *Market) Elapsed() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.updated.IsZero() {
		return 0
	}
	return time.Since(m.updated)
}

// SetContext stores a value in the market context.
func (m *Market) SetContext(key string, value any) {
	m.mu.Lock()
	m.context[key] = value
	m.mu.Unlock()
}

// Context reads a value from the market context.
func (m *Market) Context(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.context[key]
	return v, ok
}

// CompleteOrder removes a terminal order from the live orders. When it was
// the last live order of its trade, the trade is released from the
// strategy's runner context. Returns false if the order was already removed.
func (m *Market) CompleteOrder(o *domain.Order) bool {
	if !m.blotter.CompleteOrder(o) {
		return false
	}
	trade := o.Trade()
	if trade.Complete() {
		if s := trade.Strategy(); s != nil {
			if rc := s.GetRunnerContext(m.id, trade.SelectionID(), trade.Handicap()); rc != nil {
				rc.Reset(trade.ID())
			}
		}
	}
	return true
}
