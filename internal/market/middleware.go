package market

import (
	"log/slog"
	"sync"

	"betexec/internal/domain"

	"github.com/shopspring/decimal"
)

// ContextSimulated is the market context key holding the
// map[RunnerKey]*RunnerAnalytics of the last processed snapshot.
const ContextSimulated = "simulated"

// RunnerKey identifies a runner within a market.
type RunnerKey struct {
	SelectionID int64
	Handicap    float64
}

// FillFunc is called after a simulated order was (partially) filled.
type FillFunc func(o *domain.Order, size decimal.Decimal)

// SimulatedMiddleware drives simulated matching from market snapshots.
type SimulatedMiddleware struct {
	mu      sync.Mutex
	markets map[string]map[RunnerKey]*RunnerAnalytics

	matcher Matcher
	onFill  FillFunc
	log     *slog.Logger
}

// MiddlewareOption configures a SimulatedMiddleware.
type MiddlewareOption func(*SimulatedMiddleware)

// WithFillFunc registers a callback for every simulated fill.
func WithFillFunc(fn FillFunc) MiddlewareOption {
	return func(sm *SimulatedMiddleware) { sm.onFill = fn }
}

// WithLogger sets the middleware logger.
func WithLogger(l *slog.Logger) MiddlewareOption {
	return func(sm *SimulatedMiddleware) { sm.log = l }
}

// NewSimulatedMiddleware creates a middleware. A nil matcher uses TradedMatcher.
func NewSimulatedMiddleware(matcher Matcher, opts ...MiddlewareOption) *SimulatedMiddleware {
	if matcher == nil {
		matcher = TradedMatcher{}
	}
	sm := &SimulatedMiddleware{
		markets: make(map[string]map[RunnerKey]*RunnerAnalytics),
		matcher: matcher,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// Process runs once per market snapshot: it updates the analytics of every
// ACTIVE runner, publishes them on the market context and feeds the live
// simulated orders to the matcher in placement order. Orders of a runner
// share one traded budget, so the total filled never exceeds the volume
// traded.
func (sm *SimulatedMiddleware) Process(m *Market) {
	book := m.Book()
	if book == nil {
		return
	}

	analytics := sm.updateAnalytics(m.ID(), book)
	m.SetContext(ContextSimulated, analytics)

	budgets := make(map[RunnerKey]*TradedBudget, len(analytics))
	for _, o := range m.Blotter().LiveOrders() {
		if !o.Simulated() {
			continue
		}
		key := RunnerKey{SelectionID: o.SelectionID(), Handicap: o.Handicap()}
		budget, ok := budgets[key]
		if !ok {
			budget = NewTradedBudget(analytics[key])
			budgets[key] = budget
		}

		matched, completed := sm.match(o, book, budget)
		if !matched.IsPositive() {
			continue
		}
		if sm.onFill != nil {
			sm.onFill(o, matched)
		}
		if completed {
			m.CompleteOrder(o)
		}
	}
}

// match fills one order under its trade guard. Only EXECUTABLE orders are
// matched; the status is checked again once the guard is held.
func (sm *SimulatedMiddleware) match(o *domain.Order, book *domain.MarketBook, budget *TradedBudget) (decimal.Decimal, bool) {
	trade := o.Trade()
	trade.Lock()
	defer trade.Unlock()

	if o.Status() != domain.OrderStatusExecutable {
		return decimal.Zero, false
	}
	matched := sm.matcher.Match(o, book, budget)
	if !matched.IsPositive() || o.SizeRemaining().IsPositive() {
		return matched, false
	}
	if err := o.ExecutionComplete(); err != nil {
		sm.log.Warn("Simulated order could not complete",
			slog.Any("order", o), slog.Any("error", err))
		return matched, false
	}
	return matched, true
}

// updateAnalytics returns a snapshot of the market's analytics after
// processing book.
func (sm *SimulatedMiddleware) updateAnalytics(marketID string, book *domain.MarketBook) map[RunnerKey]*RunnerAnalytics {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	marketAnalytics, ok := sm.markets[marketID]
	if !ok {
		marketAnalytics = make(map[RunnerKey]*RunnerAnalytics)
		sm.markets[marketID] = marketAnalytics
	}
	for _, runner := range book.Runners {
		if runner.Status != domain.RunnerStatusActive {
			continue
		}
		key := RunnerKey{SelectionID: runner.SelectionID, Handicap: runner.Handicap}
		ra, ok := marketAnalytics[key]
		if !ok {
			ra = NewRunnerAnalytics(runner)
			marketAnalytics[key] = ra
		}
		ra.Process(runner)
	}

	out := make(map[RunnerKey]*RunnerAnalytics, len(marketAnalytics))
	for k, v := range marketAnalytics {
		out[k] = v
	}
	return out
}

// Analytics returns the analytics of one runner, if seen.
func (sm *SimulatedMiddleware) Analytics(marketID string, selectionID int64, handicap float64) (*RunnerAnalytics, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	ra, ok := sm.markets[marketID][RunnerKey{SelectionID: selectionID, Handicap: handicap}]
	return ra, ok
}

// RemoveMarket drops the analytics of a closed market.
func (sm *SimulatedMiddleware) RemoveMarket(marketID string) {
	sm.mu.Lock()
	delete(sm.markets, marketID)
	sm.mu.Unlock()
}
