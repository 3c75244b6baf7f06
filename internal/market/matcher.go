package market

import (
	"sort"

	"betexec/internal/domain"

	"github.com/shopspring/decimal"
)

// Matcher decides how much of a simulated order is filled by the latest
// traded delta. It returns the size matched and must take it out of budget.
// Matchers are called with the order's trade guard held.
type Matcher interface {
	Match(o *domain.Order, book *domain.MarketBook, budget *TradedBudget) decimal.Decimal
}

// TradedBudget is the traded delta of one runner not yet given to a
// simulated order in the current snapshot.
type TradedBudget struct {
	remaining map[domain.PriceKey]decimal.Decimal
}

// NewTradedBudget copies the last traded delta of ra. A nil ra gives an
// empty budget.
func NewTradedBudget(ra *RunnerAnalytics) *TradedBudget {
	b := &TradedBudget{remaining: map[domain.PriceKey]decimal.Decimal{}}
	if ra != nil {
		b.remaining = ra.Traded()
	}
	return b
}

// prices returns the prices a side can trade at limit, closest to the limit
// first: ascending for BACK, descending for LAY.
func (b *TradedBudget) prices(side domain.Side, limit domain.PriceKey) []domain.PriceKey {
	var out []domain.PriceKey
	for price, size := range b.remaining {
		if !size.IsPositive() {
			continue
		}
		if (side == domain.SideBack && price >= limit) || (side == domain.SideLay && price <= limit) {
			out = append(out, price)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if side == domain.SideLay {
			return out[i] > out[j]
		}
		return out[i] < out[j]
	})
	return out
}

// Available is the volume a side can still trade at limit or better.
func (b *TradedBudget) Available(side domain.Side, limit domain.PriceKey) decimal.Decimal {
	total := decimal.Zero
	for _, price := range b.prices(side, limit) {
		total = total.Add(b.remaining[price])
	}
	return total
}

// Consume takes size out of the budget, closest prices first.
func (b *TradedBudget) Consume(side domain.Side, limit domain.PriceKey, size decimal.Decimal) {
	for _, price := range b.prices(side, limit) {
		if !size.IsPositive() {
			return
		}
		take := decimal.Min(size, b.remaining[price])
		b.remaining[price] = b.remaining[price].Sub(take)
		size = size.Sub(take)
	}
}

// TradedMatcher fills LIMIT orders at their own price from volume traded at
// or better than it: BACK from prices >= the order price, LAY from <=.
type TradedMatcher struct{}

func (TradedMatcher) Match(o *domain.Order, _ *domain.MarketBook, budget *TradedBudget) decimal.Decimal {
	if budget == nil {
		return decimal.Zero
	}
	ot := o.OrderType()
	if ot.Name != domain.OrderTypeLimit || !ot.Price.IsPositive() {
		return decimal.Zero
	}
	limit := domain.NewPriceKey(ot.Price)

	available := budget.Available(o.Side(), limit)
	if !available.IsPositive() {
		return decimal.Zero
	}
	matched := o.ApplySimulatedFill(available, ot.Price)
	budget.Consume(o.Side(), limit, matched)
	return matched
}
