package market

import (
	"sync"

	"betexec/internal/domain"

	"github.com/shopspring/decimal"
)

type strategySelectionKey struct {
	strategy    domain.Strategy
	selectionID int64
	handicap    float64
}

// Blotter is the ledger of every order placed on one market.
//
// orders keeps insertion order, liveOrders holds the non-terminal subset and
// the strategy/selection index lets exposure scans touch only the orders of
// one strategy on one runner.
type Blotter struct {
	mu       sync.RWMutex
	marketID string

	orders          map[string]*domain.Order
	orderIDs        []string
	liveOrders      []*domain.Order
	strategyOrders  map[domain.Strategy][]*domain.Order
	selectionOrders map[strategySelectionKey][]*domain.Order
}

// NewBlotter creates an empty blotter for a market.
func NewBlotter(marketID string) *Blotter {
	return &Blotter{
		marketID:        marketID,
		orders:          make(map[string]*domain.Order),
		strategyOrders:  make(map[domain.Strategy][]*domain.Order),
		selectionOrders: make(map[strategySelectionKey][]*domain.Order),
	}
}

func (b *Blotter) MarketID() string { return b.marketID }

// Add inserts an order into every index. Adding an id twice is a no-op.
func (b *Blotter) Add(o *domain.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orders[o.ID()]; ok {
		return
	}
	b.orders[o.ID()] = o
	b.orderIDs = append(b.orderIDs, o.ID())
	if !o.Complete() {
		b.liveOrders = append(b.liveOrders, o)
	}
	strategy := o.Trade().Strategy()
	b.strategyOrders[strategy] = append(b.strategyOrders[strategy], o)
	key := strategySelectionKey{strategy: strategy, selectionID: o.SelectionID(), handicap: o.Handicap()}
	b.selectionOrders[key] = append(b.selectionOrders[key], o)
}

// Get returns an order by local id.
func (b *Blotter) Get(id string) (*domain.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	return o, ok
}

// Has reports whether the order id is known.
func (b *Blotter) Has(id string) bool {
	_, ok := b.Get(id)
	return ok
}

// Len is the number of orders ever added.
func (b *Blotter) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orderIDs)
}

// Orders returns all orders in insertion order.
func (b *Blotter) Orders() []*domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*domain.Order, 0, len(b.orderIDs))
	for _, id := range b.orderIDs {
		out = append(out, b.orders[id])
	}
	return out
}

// LiveOrders returns the non-terminal orders in insertion order.
func (b *Blotter) LiveOrders() []*domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*domain.Order, len(b.liveOrders))
	copy(out, b.liveOrders)
	return out
}

// HasLiveOrders reports whether any order is still live.
func (b *Blotter) HasLiveOrders() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.liveOrders) > 0
}

// StrategyOrders returns every order of a strategy.
func (b *Blotter) StrategyOrders(strategy domain.Strategy) []*domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	src := b.strategyOrders[strategy]
	out := make([]*domain.Order, len(src))
	copy(out, src)
	return out
}

// StrategySelectionOrders returns a strategy's orders on one runner.
func (b *Blotter) StrategySelectionOrders(strategy domain.Strategy, selectionID int64, handicap float64) []*domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	src := b.selectionOrders[strategySelectionKey{strategy: strategy, selectionID: selectionID, handicap: handicap}]
	out := make([]*domain.Order, len(src))
	copy(out, src)
	return out
}

// CompleteOrder removes an order from the live orders. It returns true only
// the first time, so callers can run completion side effects exactly once.
func (b *Blotter) CompleteOrder(o *domain.Order) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, live := range b.liveOrders {
		if live == o {
			b.liveOrders = append(b.liveOrders[:i], b.liveOrders[i+1:]...)
			return true
		}
	}
	return false
}

// Exposures is the worst-case profit of a strategy on one runner. Negative
// values are losses.
type Exposures struct {
	MatchedProfitIfWin                decimal.Decimal
	MatchedProfitIfLose               decimal.Decimal
	WorstPotentialUnmatchedProfitWin  decimal.Decimal
	WorstPotentialUnmatchedProfitLose decimal.Decimal
	WorstPossibleProfitOnWin          decimal.Decimal
	WorstPossibleProfitOnLose         decimal.Decimal
}

// GetExposures aggregates a strategy's orders on a runner. Matched stakes
// count on both outcomes; unmatched stakes only count where they lose, as
// they may never match. exclusion, when not nil, is left out (REPLACE).
//
// Each order is read through its own snapshot; the aggregate may mix
// marginally stale values, which is acceptable as every new order is
// validated again.
func (b *Blotter) GetExposures(strategy domain.Strategy, selectionID int64, handicap float64, exclusion *domain.Order) Exposures {
	one := decimal.NewFromInt(1)
	var (
		matchedWin, matchedLose     decimal.Decimal
		unmatchedWin, unmatchedLose decimal.Decimal
		onCloseWin, onCloseLose     decimal.Decimal
	)
	for _, o := range b.StrategySelectionOrders(strategy, selectionID, handicap) {
		if o == exclusion {
			continue
		}
		v := o.ExposureView()
		if v.Status == domain.OrderStatusViolation {
			continue
		}
		switch v.OrderType.Name {
		case domain.OrderTypeLimit:
			if v.SizeMatched.IsPositive() {
				profit := v.AveragePriceMatched.Sub(one).Mul(v.SizeMatched)
				if v.Side == domain.SideBack {
					matchedWin = matchedWin.Add(profit)
					matchedLose = matchedLose.Sub(v.SizeMatched)
				} else {
					matchedWin = matchedWin.Sub(profit)
					matchedLose = matchedLose.Add(v.SizeMatched)
				}
			}
			if !v.Status.IsTerminal() && v.SizeRemaining.IsPositive() && v.OrderType.Price.IsPositive() {
				if v.Side == domain.SideBack {
					unmatchedLose = unmatchedLose.Sub(v.SizeRemaining)
				} else {
					unmatchedWin = unmatchedWin.Sub(v.OrderType.Price.Sub(one).Mul(v.SizeRemaining))
				}
			}
		case domain.OrderTypeLimitOnClose, domain.OrderTypeMarketOnClose:
			if v.Side == domain.SideBack {
				onCloseLose = onCloseLose.Sub(v.OrderType.Liability)
			} else {
				onCloseWin = onCloseWin.Sub(v.OrderType.Liability)
			}
		}
	}
	return Exposures{
		MatchedProfitIfWin:                matchedWin.Round(2),
		MatchedProfitIfLose:               matchedLose.Round(2),
		WorstPotentialUnmatchedProfitWin:  unmatchedWin.Round(2),
		WorstPotentialUnmatchedProfitLose: unmatchedLose.Round(2),
		WorstPossibleProfitOnWin:          matchedWin.Add(unmatchedWin).Add(onCloseWin).Round(2),
		WorstPossibleProfitOnLose:         matchedLose.Add(unmatchedLose).Add(onCloseLose).Round(2),
	}
}

// SelectionExposure is the largest loss a strategy can take on a runner,
// never negative.
func (b *Blotter) SelectionExposure(strategy domain.Strategy, selectionID int64, handicap float64) decimal.Decimal {
	e := b.GetExposures(strategy, selectionID, handicap, nil)
	worst := decimal.Min(e.WorstPossibleProfitOnWin, e.WorstPossibleProfitOnLose)
	return decimal.Max(worst.Neg(), decimal.Zero)
}
