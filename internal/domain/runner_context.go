package domain

import (
	"sync"
	"time"
)

// RunnerContext tracks a strategy's trading activity on one runner.
type RunnerContext struct {
	mu          sync.Mutex
	selectionID int64
	invested    bool
	lastPlaced  time.Time
	tradeCount  int
	liveTrades  map[string]struct{}
}

// NewRunnerContext creates an empty context.
func NewRunnerContext(selectionID int64) *RunnerContext {
	return &RunnerContext{
		selectionID: selectionID,
		liveTrades:  make(map[string]struct{}),
	}
}

// Place records a placement made for tradeID.
func (rc *RunnerContext) Place(tradeID string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.invested = true
	rc.lastPlaced = time.Now()
	if _, ok := rc.liveTrades[tradeID]; !ok {
		rc.tradeCount++
		rc.liveTrades[tradeID] = struct{}{}
	}
}

// Reset removes tradeID from the live trades once it is complete.
func (rc *RunnerContext) Reset(tradeID string) {
	rc.mu.Lock()
	delete(rc.liveTrades, tradeID)
	rc.mu.Unlock()
}

func (rc *RunnerContext) SelectionID() int64 { return rc.selectionID }

func (rc *RunnerContext) Invested() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.invested
}

func (rc *RunnerContext) TradeCount() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.tradeCount
}

func (rc *RunnerContext) LiveTradeCount() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.liveTrades)
}

// IsLive reports whether tradeID has already placed on this runner.
func (rc *RunnerContext) IsLive(tradeID string) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	_, ok := rc.liveTrades[tradeID]
	return ok
}

// PlacedElapsed is the time since the last placement, zero if never placed.
func (rc *RunnerContext) PlacedElapsed() time.Duration {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.lastPlaced.IsZero() {
		return 0
	}
	return time.Since(rc.lastPlaced)
}
