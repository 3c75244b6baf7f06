package strategy_test

import (
	"errors"
	"testing"

	"betexec/internal/domain"
	"betexec/internal/infra"
	"betexec/internal/strategy"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(s domain.Strategy) *domain.Order {
	trade := domain.NewTrade("1.234", 1, 0, s)
	return domain.NewOrder(trade, domain.SideBack, domain.LimitOrder(decimal.NewFromInt(2), decimal.NewFromInt(2), ""), domain.OrderOptions{})
}

func TestBaseStrategyValidateOrder(t *testing.T) {
	s := strategy.NewBaseStrategy(infra.StrategyConfig{
		Name:              "test",
		MaxTradeCount:     2,
		MaxLiveTradeCount: 1,
	})
	rc := s.GetRunnerContext("1.234", 1, 0)
	assert.Same(t, rc, s.GetRunnerContext("1.234", 1, 0))
	assert.NotSame(t, rc, s.GetRunnerContext("1.234", 2, 0))

	first := newOrder(s)
	require.True(t, s.ValidateOrder(rc, first))
	rc.Place(first.Trade().ID())

	t.Run("same trade is allowed", func(t *testing.T) {
		second := domain.NewOrder(first.Trade(), domain.SideLay, domain.LimitOrder(decimal.NewFromInt(2), decimal.NewFromInt(2), ""), domain.OrderOptions{})
		assert.True(t, s.ValidateOrder(rc, second))
	})

	t.Run("live trade count", func(t *testing.T) {
		o := newOrder(s)
		assert.False(t, s.ValidateOrder(rc, o))
		assert.Equal(t, "strategy.validate_order failed: live_trade_count (1) >= max_live_trade_count (1)", o.ViolationMsg())
	})

	t.Run("trade count", func(t *testing.T) {
		rc.Reset(first.Trade().ID())
		next := newOrder(s)
		require.True(t, s.ValidateOrder(rc, next))
		rc.Place(next.Trade().ID())
		rc.Reset(next.Trade().ID())

		o := newOrder(s)
		assert.False(t, s.ValidateOrder(rc, o))
		assert.Equal(t, "strategy.validate_order failed: trade_count (2) >= max_trade_count (2)", o.ViolationMsg())
	})
}

func TestBaseStrategyDefaults(t *testing.T) {
	s := strategy.NewBaseStrategy(infra.StrategyConfig{
		Name:             "defaults",
		Client:           "betfair",
		MaxOrderExposure: decimal.NewFromInt(10),
	})
	assert.Equal(t, domain.NameHash("defaults"), s.NameHash())
	assert.Equal(t, "betfair", s.ClientName())
	assert.True(t, s.MaxOrderExposure().Equal(decimal.NewFromInt(10)))
	assert.True(t, s.Trades("any"))

	limited := strategy.NewBaseStrategy(infra.StrategyConfig{Name: "limited", Markets: []string{"1.1"}})
	assert.True(t, limited.Trades("1.1"))
	assert.False(t, limited.Trades("1.2"))
}

func TestRegistry(t *testing.T) {
	r := strategy.NewRegistry()
	assert.Equal(t, []string{strategy.KindBase}, r.Kinds())

	s, err := r.New(infra.StrategyConfig{Name: "plain"})
	require.NoError(t, err)
	assert.Equal(t, "plain", s.Name())

	_, err = r.New(infra.StrategyConfig{Name: "x", Kind: "missing"})
	assert.True(t, errors.Is(err, domain.ErrUnknownStrategy))

	require.NoError(t, r.Register("custom", func(cfg infra.StrategyConfig) (strategy.Strategy, error) {
		return strategy.NewBaseStrategy(cfg), nil
	}))
	assert.Error(t, r.Register("custom", nil))
	assert.Equal(t, []string{strategy.KindBase, "custom"}, r.Kinds())
}

func TestStrategies(t *testing.T) {
	all := strategy.NewStrategies()
	a := strategy.NewBaseStrategy(infra.StrategyConfig{Name: "a"})
	require.NoError(t, all.Add(a))
	require.Error(t, all.Add(strategy.NewBaseStrategy(infra.StrategyConfig{Name: "a"})))
	require.NoError(t, all.Add(strategy.NewBaseStrategy(infra.StrategyConfig{Name: "b"})))

	got, ok := all.ByNameHash(a.NameHash())
	require.True(t, ok)
	assert.Equal(t, "a", got.Name())

	_, ok = all.ByNameHash("0000000000000")
	assert.False(t, ok)
	_, ok = all.ByName("b")
	assert.True(t, ok)
	assert.Len(t, all.All(), 2)

	t.Run("remove market resets runner contexts", func(t *testing.T) {
		rc := a.GetRunnerContext("1.1", 7, 0)
		rc.Place("trade-1")
		other := a.GetRunnerContext("1.2", 7, 0)

		all.RemoveMarket("1.1")

		fresh := a.GetRunnerContext("1.1", 7, 0)
		assert.NotSame(t, rc, fresh)
		assert.Equal(t, 0, fresh.TradeCount())
		assert.Same(t, other, a.GetRunnerContext("1.2", 7, 0))
	})
}
