package strategy

import (
	"fmt"
	"sync"

	"betexec/internal/domain"
	"betexec/internal/infra"

	"github.com/shopspring/decimal"
)

const (
	DefaultMaxTradeCount     = 1_000_000
	DefaultMaxLiveTradeCount = 1
)

// Strategy is a configured strategy instance.
type Strategy interface {
	domain.Strategy
	// ClientName is the venue client its orders are sent through.
	ClientName() string
	// Trades reports whether it trades a market.
	Trades(marketID string) bool
	RemoveMarket(marketID string)
}

type runnerKey struct {
	selectionID int64
	handicap    float64
}

// BaseStrategy holds the exposure limits and per-runner trade accounting
// shared by every strategy. It places no orders on its own.
type BaseStrategy struct {
	name                 string
	nameHash             string
	client               string
	markets              []string
	maxOrderExposure     decimal.Decimal
	maxSelectionExposure decimal.Decimal
	maxTradeCount        int
	maxLiveTradeCount    int

	mu       sync.Mutex
	contexts map[string]map[runnerKey]*domain.RunnerContext
}

var _ Strategy = (*BaseStrategy)(nil)

// NewBaseStrategy builds a strategy from its config. Zero trade counts use
// the defaults.
func NewBaseStrategy(cfg infra.StrategyConfig) *BaseStrategy {
	maxTrades := cfg.MaxTradeCount
	if maxTrades <= 0 {
		maxTrades = DefaultMaxTradeCount
	}
	maxLive := cfg.MaxLiveTradeCount
	if maxLive <= 0 {
		maxLive = DefaultMaxLiveTradeCount
	}
	return &BaseStrategy{
		name:                 cfg.Name,
		nameHash:             domain.NameHash(cfg.Name),
		client:               cfg.Client,
		markets:              append([]string(nil), cfg.Markets...),
		maxOrderExposure:     cfg.MaxOrderExposure,
		maxSelectionExposure: cfg.MaxSelectionExposure,
		maxTradeCount:        maxTrades,
		maxLiveTradeCount:    maxLive,
		contexts:             make(map[string]map[runnerKey]*domain.RunnerContext),
	}
}

func (s *BaseStrategy) Name() string                          { return s.name }
func (s *BaseStrategy) NameHash() string                      { return s.nameHash }
func (s *BaseStrategy) ClientName() string                    { return s.client }
func (s *BaseStrategy) MaxOrderExposure() decimal.Decimal     { return s.maxOrderExposure }
func (s *BaseStrategy) MaxSelectionExposure() decimal.Decimal { return s.maxSelectionExposure }

// GetRunnerContext returns the runner's context, creating it on first use.
func (s *BaseStrategy) GetRunnerContext(marketID string, selectionID int64, handicap float64) *domain.RunnerContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	runners, ok := s.contexts[marketID]
	if !ok {
		runners = make(map[runnerKey]*domain.RunnerContext)
		s.contexts[marketID] = runners
	}
	key := runnerKey{selectionID: selectionID, handicap: handicap}
	rc, ok := runners[key]
	if !ok {
		rc = domain.NewRunnerContext(selectionID)
		runners[key] = rc
	}
	return rc
}

// RemoveMarket drops the runner contexts of a closed market.
func (s *BaseStrategy) RemoveMarket(marketID string) {
	s.mu.Lock()
	delete(s.contexts, marketID)
	s.mu.Unlock()
}

// ValidateOrder limits how many trades the strategy opens on a runner.
// Further orders of a trade that is already live are always allowed.
func (s *BaseStrategy) ValidateOrder(rc *domain.RunnerContext, order *domain.Order) bool {
	if rc == nil || rc.IsLive(order.Trade().ID()) {
		return true
	}
	if n := rc.TradeCount(); n >= s.maxTradeCount {
		order.SetViolationMsg(fmt.Sprintf(
			"strategy.validate_order failed: trade_count (%d) >= max_trade_count (%d)", n, s.maxTradeCount))
		return false
	}
	if n := rc.LiveTradeCount(); n >= s.maxLiveTradeCount {
		order.SetViolationMsg(fmt.Sprintf(
			"strategy.validate_order failed: live_trade_count (%d) >= max_live_trade_count (%d)", n, s.maxLiveTradeCount))
		return false
	}
	return true
}

// Trades reports whether the strategy trades marketID.
func (s *BaseStrategy) Trades(marketID string) bool {
	if len(s.markets) == 0 {
		return true
	}
	for _, id := range s.markets {
		if id == marketID {
			return true
		}
	}
	return false
}
