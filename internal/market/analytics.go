package market

import (
	"sync"

	"betexec/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	defaultMiddleBack = decimal.Zero
	defaultMiddleLay  = decimal.NewFromInt(1001)
	two               = decimal.NewFromInt(2)
)

// RunnerAnalytics tracks the traded volume of one runner between snapshots.
type RunnerAnalytics struct {
	mu           sync.RWMutex
	selectionID  int64
	handicap     float64
	prev         domain.RunnerBook
	tradedVolume map[domain.PriceKey]decimal.Decimal
	traded       map[domain.PriceKey]decimal.Decimal
	middle       decimal.Decimal
}

// NewRunnerAnalytics seeds the analytics with the first snapshot seen. The
// first Process call with the same ladder yields no trades.
func NewRunnerAnalytics(runner domain.RunnerBook) *RunnerAnalytics {
	return &RunnerAnalytics{
		selectionID:  runner.SelectionID,
		handicap:     runner.Handicap,
		prev:         runner,
		tradedVolume: ladderMap(runner.TradedVolume),
		traded:       map[domain.PriceKey]decimal.Decimal{},
	}
}

// Process recomputes the traded delta against the previous snapshot. The
// middle is taken from the previous snapshot, not runner, so that fills can
// not use liquidity the book has not shown yet.
func (ra *RunnerAnalytics) Process(runner domain.RunnerBook) {
	current := ladderMap(runner.TradedVolume)

	ra.mu.Lock()
	defer ra.mu.Unlock()
	ra.middle = middle(ra.prev)
	ra.traded = tradedDelta(ra.tradedVolume, current)
	ra.tradedVolume = current
	ra.prev = runner
}

func (ra *RunnerAnalytics) SelectionID() int64 { return ra.selectionID }
func (ra *RunnerAnalytics) Handicap() float64  { return ra.handicap }

// Traded returns a copy of the last computed delta, price -> size.
func (ra *RunnerAnalytics) Traded() map[domain.PriceKey]decimal.Decimal {
	ra.mu.RLock()
	defer ra.mu.RUnlock()
	out := make(map[domain.PriceKey]decimal.Decimal, len(ra.traded))
	for k, v := range ra.traded {
		out[k] = v
	}
	return out
}

// Middle is the mid price of the previous snapshot.
func (ra *RunnerAnalytics) Middle() decimal.Decimal {
	ra.mu.RLock()
	defer ra.mu.RUnlock()
	return ra.middle
}

func ladderMap(ladder []domain.PriceSize) map[domain.PriceKey]decimal.Decimal {
	out := make(map[domain.PriceKey]decimal.Decimal, len(ladder))
	for _, ps := range ladder {
		out[domain.NewPriceKey(ps.Price)] = ps.Size
	}
	return out
}

// tradedDelta keeps only strictly positive increases, rounded to 2dp.
func tradedDelta(prev, current map[domain.PriceKey]decimal.Decimal) map[domain.PriceKey]decimal.Decimal {
	out := make(map[domain.PriceKey]decimal.Decimal)
	for price, size := range current {
		delta := size.Sub(prev[price]).Round(2)
		if delta.IsPositive() {
			out[price] = delta
		}
	}
	return out
}

func middle(runner domain.RunnerBook) decimal.Decimal {
	back, ok := runner.BestBack()
	if !ok || back.IsZero() {
		back = defaultMiddleBack
	}
	lay, ok := runner.BestLay()
	if !ok || lay.IsZero() {
		lay = defaultMiddleLay
	}
	return back.Add(lay).Div(two)
}
