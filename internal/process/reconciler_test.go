package process

import (
	"context"
	"sync"
	"testing"

	"betexec/internal/domain"
	"betexec/internal/event"
	"betexec/internal/market"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStrategy struct {
	name string
	rc   *domain.RunnerContext
}

func (s *testStrategy) Name() string                          { return s.name }
func (s *testStrategy) NameHash() string                      { return domain.NameHash(s.name) }
func (s *testStrategy) MaxOrderExposure() decimal.Decimal     { return decimal.NewFromInt(100) }
func (s *testStrategy) MaxSelectionExposure() decimal.Decimal { return decimal.NewFromInt(100) }
func (s *testStrategy) GetRunnerContext(string, int64, float64) *domain.RunnerContext {
	return s.rc
}
func (s *testStrategy) ValidateOrder(*domain.RunnerContext, *domain.Order) bool { return true }

type strategyMap map[string]domain.Strategy

func (m strategyMap) ByNameHash(hash string) (domain.Strategy, bool) {
	s, ok := m[hash]
	return s, ok
}

type recordingSink struct {
	mu    sync.Mutex
	kinds []event.Type
}

func (s *recordingSink) LogControl(ev *event.OrderEvent) {
	s.mu.Lock()
	s.kinds = append(s.kinds, ev.Kind)
	s.mu.Unlock()
	event.ReleaseOrderEvent(ev)
}

type countingMetrics struct{ stale, placed int }

func (m *countingMetrics) IncStaleSnapshot()     { m.stale++ }
func (m *countingMetrics) IncOrderPlaced(string) { m.placed++ }

type fixture struct {
	strategy   *testStrategy
	markets    *market.Markets
	market     *market.Market
	sink       *recordingSink
	metrics    *countingMetrics
	reconciler *Reconciler
}

func newFixture() *fixture {
	s := &testStrategy{name: "strategy_name", rc: domain.NewRunnerContext(1)}
	f := &fixture{
		strategy: s,
		markets:  market.NewMarkets(),
		sink:     &recordingSink{},
		metrics:  &countingMetrics{},
	}
	f.market = f.markets.GetOrCreate("1.234", domain.ExchangeBetfair)
	f.reconciler = NewReconciler(f.markets, strategyMap{s.NameHash(): s}, nil, f.sink, nil, f.metrics)
	return f
}

func (f *fixture) order(opts domain.OrderOptions) *domain.Order {
	trade := domain.NewTrade("1.234", 1, 0, f.strategy)
	o := domain.NewOrder(trade, domain.SideBack, domain.LimitOrder(decimal.NewFromInt(10), decimal.NewFromInt(2), ""), opts)
	f.strategy.rc.Place(trade.ID())
	f.market.Blotter().Add(o)
	return o
}

func TestProcessCurrentOrders(t *testing.T) {
	f := newFixture()
	o := f.order(domain.OrderOptions{})
	require.True(t, o.SetBetID("b-1"))
	require.NoError(t, o.Executable())

	f.reconciler.ProcessCurrentOrders(context.Background(), &event.CurrentOrdersEvent{
		Exchange: domain.ExchangeBetfair,
		Orders: []domain.CurrentOrder{
			{CustomerOrderRef: o.CustomerOrderRef(), MarketID: "1.234", BetID: "b-1", Status: domain.CurrentStatusExecutionComplete},
			{CustomerOrderRef: "not-ours", MarketID: "1.234"},
			{CustomerOrderRef: o.CustomerOrderRef(), MarketID: "9.999", Status: domain.CurrentStatusExecutable},
		},
	})

	assert.Equal(t, domain.OrderStatusExecutionComplete, o.Status())
	assert.False(t, f.market.Blotter().HasLiveOrders())
	assert.Equal(t, 0, f.strategy.rc.LiveTradeCount())
}

func TestProcessCurrentOrder(t *testing.T) {
	t.Run("executable to complete", func(t *testing.T) {
		f := newFixture()
		o := f.order(domain.OrderOptions{})
		require.NoError(t, o.Executable())

		f.reconciler.ProcessCurrentOrder(context.Background(), o, domain.CurrentOrder{Status: domain.CurrentStatusExecutionComplete})
		assert.Equal(t, domain.OrderStatusExecutionComplete, o.Status())
		require.NotNil(t, o.CurrentOrder())
	})

	t.Run("async order picks up bet id", func(t *testing.T) {
		f := newFixture()
		o := f.order(domain.OrderOptions{Async: true})

		f.reconciler.ProcessCurrentOrder(context.Background(), o, domain.CurrentOrder{
			BetID:  "1234",
			Status: domain.CurrentStatusExecutable,
		})
		assert.Equal(t, "1234", o.BetID())
		assert.Equal(t, domain.OrderStatusExecutable, o.Status())
		assert.False(t, o.Responses().DatePlaced.IsZero())
		assert.Equal(t, []event.Type{event.TypeOrderPlaced}, f.sink.kinds)
	})

	t.Run("pending without bet id waits", func(t *testing.T) {
		f := newFixture()
		o := f.order(domain.OrderOptions{})
		f.reconciler.ProcessCurrentOrder(context.Background(), o, domain.CurrentOrder{Status: domain.CurrentStatusExecutable})
		assert.Equal(t, domain.OrderStatusPending, o.Status())
	})

	t.Run("updating returns to executable", func(t *testing.T) {
		f := newFixture()
		o := f.order(domain.OrderOptions{})
		require.NoError(t, o.Executable())
		require.NoError(t, o.Updating())
		f.reconciler.ProcessCurrentOrder(context.Background(), o, domain.CurrentOrder{Status: domain.CurrentStatusExecutable})
		assert.Equal(t, domain.OrderStatusExecutable, o.Status())
	})

	t.Run("terminal order never regresses", func(t *testing.T) {
		f := newFixture()
		o := f.order(domain.OrderOptions{})
		require.NoError(t, o.ExecutionComplete())
		f.reconciler.ProcessCurrentOrder(context.Background(), o, domain.CurrentOrder{Status: domain.CurrentStatusExecutable})
		assert.Equal(t, domain.OrderStatusExecutionComplete, o.Status())
	})
}

func TestCreateOrderFromCurrent(t *testing.T) {
	f := newFixture()
	ref := domain.CustomerOrderRef(f.strategy.NameHash(), "123")

	f.reconciler.ProcessCurrentOrders(context.Background(), &event.CurrentOrdersEvent{
		Exchange: domain.ExchangeBetfair,
		Orders: []domain.CurrentOrder{{
			CustomerOrderRef: ref,
			MarketID:         "1.234",
			BetID:            "b-9",
			SelectionID:      7,
			Handicap:         1.5,
			Side:             domain.SideLay,
			OrderType:        domain.OrderTypeLimit,
			Price:            decimal.NewFromInt(10),
			Size:             decimal.NewFromInt(2),
			PersistenceType:  domain.PersistencePersist,
			Status:           domain.CurrentStatusExecutable,
		}},
	})

	o, ok := f.market.Blotter().Get("123")
	require.True(t, ok)
	assert.Equal(t, "1.234", o.MarketID())
	assert.Equal(t, int64(7), o.SelectionID())
	assert.Equal(t, 1.5, o.Handicap())
	assert.Equal(t, domain.SideLay, o.Side())
	assert.Equal(t, "b-9", o.BetID())
	assert.Equal(t, domain.OrderStatusExecutable, o.Status())
	ot := o.OrderType()
	assert.Equal(t, domain.OrderTypeLimit, ot.Name)
	assert.True(t, ot.Price.Equal(decimal.NewFromInt(10)))
	assert.True(t, ot.Size.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, domain.PersistencePersist, ot.PersistenceType)
	assert.Equal(t, f.strategy, o.Trade().Strategy())
	assert.Equal(t, ref, o.CustomerOrderRef())

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := f.reconciler.CreateOrderFromCurrent(domain.ExchangeBetfair, domain.CurrentOrder{
			CustomerOrderRef: domain.CustomerOrderRef(domain.NameHash("other"), "5"),
			MarketID:         "1.234",
			OrderType:        domain.OrderTypeLimit,
		})
		assert.ErrorIs(t, err, domain.ErrUnknownStrategy)
	})

	t.Run("unknown market", func(t *testing.T) {
		_, err := f.reconciler.CreateOrderFromCurrent(domain.ExchangeBetfair, domain.CurrentOrder{
			CustomerOrderRef: domain.CustomerOrderRef(f.strategy.NameHash(), "6"),
			MarketID:         "9.999",
			OrderType:        domain.OrderTypeLimit,
		})
		assert.ErrorIs(t, err, domain.ErrUnknownMarket)
	})
}

func TestProcessBetdaqCurrentOrders(t *testing.T) {
	f := newFixture()
	o := f.order(domain.OrderOptions{Exchange: domain.ExchangeBetdaq})
	require.True(t, o.SetBetID("456"))
	require.NoError(t, o.Executable())

	f.reconciler.ProcessCurrentOrders(context.Background(), &event.CurrentOrdersEvent{
		Exchange: domain.ExchangeBetdaq,
		Orders: []domain.CurrentOrder{
			{CustomerReference: o.ID(), BetID: "456", Status: domain.BetdaqStatusMatched, SequenceNumber: 1},
			{CustomerReference: "unknown", Status: domain.BetdaqStatusMatched},
		},
	})

	assert.Equal(t, domain.OrderStatusExecutionComplete, o.Status())
	assert.False(t, f.market.Blotter().HasLiveOrders())
}

func TestProcessBetdaqCurrentOrder(t *testing.T) {
	tests := []struct {
		name     string
		status   domain.OrderStatus
		prev     *domain.CurrentOrder
		snapshot domain.CurrentOrder
		want     domain.OrderStatus
		stale    bool
	}{
		{
			name:     "pending unmatched",
			status:   domain.OrderStatusPending,
			snapshot: domain.CurrentOrder{BetID: "123", Status: domain.BetdaqStatusUnmatched},
			want:     domain.OrderStatusExecutable,
		},
		{
			name:     "pending matched",
			status:   domain.OrderStatusPending,
			snapshot: domain.CurrentOrder{BetID: "123", Status: domain.BetdaqStatusMatched},
			want:     domain.OrderStatusExecutionComplete,
		},
		{
			name:     "executable matched",
			status:   domain.OrderStatusExecutable,
			snapshot: domain.CurrentOrder{Status: domain.BetdaqStatusMatched},
			want:     domain.OrderStatusExecutionComplete,
		},
		{
			name:     "executable void",
			status:   domain.OrderStatusExecutable,
			snapshot: domain.CurrentOrder{Status: domain.BetdaqStatusVoid},
			want:     domain.OrderStatusVoided,
		},
		{
			name:     "updating sequence advanced unmatched",
			status:   domain.OrderStatusUpdating,
			prev:     &domain.CurrentOrder{SequenceNumber: 1, Status: domain.BetdaqStatusUnmatched},
			snapshot: domain.CurrentOrder{SequenceNumber: 2, Status: domain.BetdaqStatusUnmatched, Price: decimal.NewFromInt(999)},
			want:     domain.OrderStatusExecutable,
		},
		{
			name:     "updating sequence advanced matched",
			status:   domain.OrderStatusUpdating,
			prev:     &domain.CurrentOrder{SequenceNumber: 1, Status: domain.BetdaqStatusMatched},
			snapshot: domain.CurrentOrder{SequenceNumber: 2, Status: domain.BetdaqStatusMatched},
			want:     domain.OrderStatusExecutionComplete,
		},
		{
			name:     "updating race",
			status:   domain.OrderStatusUpdating,
			prev:     &domain.CurrentOrder{SequenceNumber: 1},
			snapshot: domain.CurrentOrder{SequenceNumber: 1, Status: domain.BetdaqStatusUnmatched},
			want:     domain.OrderStatusUpdating,
			stale:    true,
		},
		{
			name:     "replayed older snapshot",
			status:   domain.OrderStatusExecutable,
			prev:     &domain.CurrentOrder{SequenceNumber: 5, Status: domain.BetdaqStatusUnmatched},
			snapshot: domain.CurrentOrder{SequenceNumber: 3, Status: domain.BetdaqStatusMatched},
			want:     domain.OrderStatusExecutable,
			stale:    true,
		},
		{
			name:     "replayed first snapshot",
			status:   domain.OrderStatusExecutable,
			prev:     &domain.CurrentOrder{SequenceNumber: 0, Status: domain.BetdaqStatusUnmatched},
			snapshot: domain.CurrentOrder{SequenceNumber: 0, Status: domain.BetdaqStatusMatched},
			want:     domain.OrderStatusExecutable,
			stale:    true,
		},
		{
			name:     "first snapshot after zero",
			status:   domain.OrderStatusExecutable,
			prev:     &domain.CurrentOrder{SequenceNumber: 0, Status: domain.BetdaqStatusUnmatched},
			snapshot: domain.CurrentOrder{SequenceNumber: 1, Status: domain.BetdaqStatusMatched},
			want:     domain.OrderStatusExecutionComplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			o := f.order(domain.OrderOptions{Exchange: domain.ExchangeBetdaq})
			if tt.status != domain.OrderStatusPending {
				require.NoError(t, o.Executable())
			}
			if tt.status == domain.OrderStatusUpdating {
				require.NoError(t, o.Updating())
			}
			if tt.prev != nil {
				o.UpdateCurrentOrder(*tt.prev)
			}

			f.reconciler.ProcessBetdaqCurrentOrder(context.Background(), o, tt.snapshot)

			assert.Equal(t, tt.want, o.Status())
			if tt.stale {
				assert.Equal(t, 1, f.metrics.stale)
				require.NotNil(t, o.StaleSnapshot())
				assert.Equal(t, tt.prev.SequenceNumber, o.CurrentOrder().SequenceNumber)
			} else {
				assert.Equal(t, tt.snapshot.SequenceNumber, o.CurrentOrder().SequenceNumber)
			}
		})
	}
}

type removedMarkets []string

func (r *removedMarkets) RemoveMarket(marketID string) { *r = append(*r, marketID) }

func TestBookProcessor(t *testing.T) {
	markets := market.NewMarkets()
	middleware := market.NewSimulatedMiddleware(nil)
	var removed removedMarkets
	p := NewBookProcessor(markets, middleware, &removed, nil, nil)

	p.ProcessMarketBook(context.Background(), &event.MarketBookEvent{
		Exchange: domain.ExchangeSimulated,
		Book: &domain.MarketBook{
			MarketID: "1.234",
			Status:   domain.MarketStatusOpen,
			Runners:  []domain.RunnerBook{{SelectionID: 1, Status: domain.RunnerStatusActive}},
		},
	})

	m, ok := markets.Get("1.234")
	require.True(t, ok)
	assert.Equal(t, domain.MarketStatusOpen, m.Status())
	_, ok = m.Context(market.ContextSimulated)
	assert.True(t, ok)
	_, ok = middleware.Analytics("1.234", 1, 0)
	assert.True(t, ok)

	p.ProcessMarketBook(context.Background(), &event.MarketBookEvent{
		Exchange: domain.ExchangeSimulated,
		Book:     &domain.MarketBook{MarketID: "1.234", Status: domain.MarketStatusClosed},
	})
	_, ok = markets.Get("1.234")
	assert.False(t, ok)
	_, ok = middleware.Analytics("1.234", 1, 0)
	assert.False(t, ok)
	assert.Equal(t, removedMarkets{"1.234"}, removed)
}

func TestBookProcessorKeepsMarketWithLiveOrders(t *testing.T) {
	f := newFixture()
	var removed removedMarkets
	p := NewBookProcessor(f.markets, nil, &removed, nil, nil)

	o := f.order(domain.OrderOptions{})
	require.NoError(t, o.Executable())

	p.ProcessMarketBook(context.Background(), &event.MarketBookEvent{
		Book: &domain.MarketBook{MarketID: "1.234", Status: domain.MarketStatusClosed},
	})
	_, ok := f.markets.Get("1.234")
	assert.True(t, ok)
	assert.Empty(t, removed)
}
