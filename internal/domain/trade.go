package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Trade groups the orders of one strategic decision on one runner.
//
// Its guard serialises state changes across all of its orders. Never hold
// two different trades' guards at the same time.
type Trade struct {
	guard sync.Mutex

	id          string
	marketID    string
	selectionID int64
	handicap    float64
	strategy    Strategy
	createdAt   time.Time

	ordersMu sync.RWMutex
	orders   []*Order
}

// NewTrade creates an empty trade owned by strategy.
func NewTrade(marketID string, selectionID int64, handicap float64, strategy Strategy) *Trade {
	return &Trade{
		id:          uuid.NewString(),
		marketID:    marketID,
		selectionID: selectionID,
		handicap:    handicap,
		strategy:    strategy,
		createdAt:   time.Now(),
	}
}

// Lock acquires the trade guard.
func (t *Trade) Lock() { t.guard.Lock() }

// Unlock releases the trade guard.
func (t *Trade) Unlock() { t.guard.Unlock() }

func (t *Trade) ID() string           { return t.id }
func (t *Trade) MarketID() string     { return t.marketID }
func (t *Trade) SelectionID() int64   { return t.selectionID }
func (t *Trade) Handicap() float64    { return t.handicap }
func (t *Trade) Strategy() Strategy   { return t.strategy }
func (t *Trade) CreatedAt() time.Time { return t.createdAt }

func (t *Trade) addOrder(o *Order) {
	t.ordersMu.Lock()
	t.orders = append(t.orders, o)
	t.ordersMu.Unlock()
}

// Orders returns the trade's orders in creation order.
func (t *Trade) Orders() []*Order {
	t.ordersMu.RLock()
	defer t.ordersMu.RUnlock()
	out := make([]*Order, len(t.orders))
	copy(out, t.orders)
	return out
}

// Complete reports whether every order of the trade is terminal.
func (t *Trade) Complete() bool {
	orders := t.Orders()
	if len(orders) == 0 {
		return false
	}
	for _, o := range orders {
		if !o.Complete() {
			return false
		}
	}
	return true
}
