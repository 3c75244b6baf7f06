package market

import (
	"sync"

	"betexec/internal/domain"
)

// Markets is the registry of markets known to the process.
type Markets struct {
	mu      sync.RWMutex
	markets map[string]*Market
}

func NewMarkets() *Markets {
	return &Markets{markets: make(map[string]*Market)}
}

// Add registers a market, returning the existing one if the id is known.
func (ms *Markets) Add(m *Market) *Market {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if existing, ok := ms.markets[m.ID()]; ok {
		return existing
	}
	ms.markets[m.ID()] = m
	return m
}

// GetOrCreate returns the market for id, creating it on first use.
func (ms *Markets) GetOrCreate(id string, exchange domain.ExchangeType) *Market {
	if m, ok := ms.Get(id); ok {
		return m
	}
	return ms.Add(NewMarket(id, exchange, nil))
}

func (ms *Markets) Get(id string) (*Market, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	m, ok := ms.markets[id]
	return m, ok
}

func (ms *Markets) Remove(id string) {
	ms.mu.Lock()
	delete(ms.markets, id)
	ms.mu.Unlock()
}

// All returns every registered market.
func (ms *Markets) All() []*Market {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]*Market, 0, len(ms.markets))
	for _, m := range ms.markets {
		out = append(out, m)
	}
	return out
}

// GetOrder looks an order up in one market's blotter.
func (ms *Markets) GetOrder(marketID, orderID string) (*domain.Order, *Market, bool) {
	m, ok := ms.Get(marketID)
	if !ok {
		return nil, nil, false
	}
	o, ok := m.Blotter().Get(orderID)
	if !ok {
		return nil, nil, false
	}
	return o, m, true
}

// FindOrder searches every market for an order id. Used for venues whose
// snapshots do not carry a market id.
func (ms *Markets) FindOrder(orderID string) (*domain.Order, *Market, bool) {
	for _, m := range ms.All() {
		if o, ok := m.Blotter().Get(orderID); ok {
			return o, m, true
		}
	}
	return nil, nil, false
}

// LiveOrderCount is the number of live orders across all markets.
func (ms *Markets) LiveOrderCount() int {
	n := 0
	for _, m := range ms.All() {
		n += len(m.Blotter().LiveOrders())
	}
	return n
}
