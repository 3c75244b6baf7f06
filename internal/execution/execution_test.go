package execution

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"betexec/internal/domain"
	"betexec/internal/event"
	"betexec/internal/infra"
	"betexec/internal/market"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStrategy struct{ rc *domain.RunnerContext }

func (s *testStrategy) Name() string                          { return "test" }
func (s *testStrategy) NameHash() string                      { return domain.NameHash("test") }
func (s *testStrategy) MaxOrderExposure() decimal.Decimal     { return decimal.NewFromInt(100) }
func (s *testStrategy) MaxSelectionExposure() decimal.Decimal { return decimal.NewFromInt(100) }
func (s *testStrategy) GetRunnerContext(string, int64, float64) *domain.RunnerContext {
	return s.rc
}
func (s *testStrategy) ValidateOrder(*domain.RunnerContext, *domain.Order) bool { return true }

// fakeClient returns scripted reports; a nil script echoes the references.
type fakeClient struct {
	reports []domain.InstructionReport
	err     error
	calls   int
}

func (c *fakeClient) Name() string                  { return "fake" }
func (c *fakeClient) Exchange() domain.ExchangeType { return domain.ExchangeBetfair }
func (c *fakeClient) Limits() domain.ClientLimits   { return domain.ClientLimits{} }

func (c *fakeClient) answer(refs []string) ([]domain.InstructionReport, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if c.reports != nil {
		return c.reports, nil
	}
	out := make([]domain.InstructionReport, len(refs))
	for i, ref := range refs {
		out[i] = domain.InstructionReport{CustomerReference: ref, OrderID: "bet-" + ref}
	}
	return out, nil
}

func (c *fakeClient) Place(_ context.Context, _ string, in []domain.PlaceInstruction) ([]domain.InstructionReport, error) {
	refs := make([]string, len(in))
	for i := range in {
		refs[i] = in[i].CustomerReference
	}
	return c.answer(refs)
}

func (c *fakeClient) Cancel(_ context.Context, _ string, in []domain.CancelInstruction) ([]domain.InstructionReport, error) {
	refs := make([]string, len(in))
	for i := range in {
		refs[i] = in[i].CustomerReference
	}
	return c.answer(refs)
}

func (c *fakeClient) Update(_ context.Context, _ string, in []domain.UpdateInstruction) ([]domain.InstructionReport, error) {
	refs := make([]string, len(in))
	for i := range in {
		refs[i] = in[i].CustomerReference
	}
	return c.answer(refs)
}

func (c *fakeClient) Replace(_ context.Context, _ string, in []domain.ReplaceInstruction) ([]domain.InstructionReport, error) {
	refs := make([]string, len(in))
	for i := range in {
		refs[i] = in[i].CustomerReference
	}
	return c.answer(refs)
}

type recordingSink struct {
	mu     sync.Mutex
	events []event.OrderEvent
}

func (s *recordingSink) LogControl(ev *event.OrderEvent) {
	s.mu.Lock()
	s.events = append(s.events, *ev)
	s.mu.Unlock()
	event.ReleaseOrderEvent(ev)
}

func (s *recordingSink) kinds() []event.Type {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Type, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Kind)
	}
	return out
}

type recordingMetrics struct {
	placed, faults int
	errs           map[string]int
}

func (m *recordingMetrics) IncOrderPlaced(string) { m.placed++ }
func (m *recordingMetrics) IncExecutionError(_, kind string) {
	if m.errs == nil {
		m.errs = make(map[string]int)
	}
	m.errs[kind]++
}
func (m *recordingMetrics) IncCorrelationFault(string)                    { m.faults++ }
func (m *recordingMetrics) ObservePackageLatency(string, string, float64) {}

type fixture struct {
	markets *market.Markets
	market  *market.Market
	sink    *recordingSink
	metrics *recordingMetrics
	logs    *bytes.Buffer
	deps    Deps
	rc      *domain.RunnerContext
}

func newFixture() *fixture {
	f := &fixture{
		markets: market.NewMarkets(),
		sink:    &recordingSink{},
		metrics: &recordingMetrics{},
		logs:    &bytes.Buffer{},
		rc:      domain.NewRunnerContext(1),
	}
	f.market = f.markets.GetOrCreate("1.234", domain.ExchangeBetfair)
	f.deps = Deps{
		Markets: f.markets,
		Sink:    f.sink,
		Log:     slog.New(infra.NewHandler(f.logs, slog.LevelDebug)),
		Metrics: f.metrics,
	}
	return f
}

func (f *fixture) order(opts domain.OrderOptions) *domain.Order {
	trade := domain.NewTrade("1.234", 1, 0, &testStrategy{rc: f.rc})
	ot := domain.LimitOrder(decimal.NewFromInt(2), decimal.NewFromInt(5), domain.PersistenceLapse)
	o := domain.NewOrder(trade, domain.SideBack, ot, opts)
	f.rc.Place(trade.ID())
	f.market.Blotter().Add(o)
	return o
}

func TestVenueExecution_Place(t *testing.T) {
	f := newFixture()
	client := &fakeClient{}
	exec := NewVenueExecution(domain.ExchangeBetfair, f.deps)

	o := f.order(domain.OrderOptions{})
	exec.ExecutePlace(context.Background(), domain.NewOrderPackage(domain.OrderPackagePlace, client, "1.234", []*domain.Order{o}))

	assert.Equal(t, domain.OrderStatusExecutable, o.Status())
	assert.Equal(t, "bet-"+o.ID(), o.BetID())
	require.NotNil(t, o.Responses().PlaceResponse)
	assert.Equal(t, []event.Type{event.TypeOrderPlaced}, f.sink.kinds())
	assert.Equal(t, 1, f.metrics.placed)
}

func TestVenueExecution_PlaceRejected(t *testing.T) {
	f := newFixture()
	o := f.order(domain.OrderOptions{})
	client := &fakeClient{reports: []domain.InstructionReport{
		{CustomerReference: o.ID(), ErrorCode: "INVALID_ODDS"},
	}}
	exec := NewVenueExecution(domain.ExchangeBetfair, f.deps)

	exec.ExecutePlace(context.Background(), domain.NewOrderPackage(domain.OrderPackagePlace, client, "1.234", []*domain.Order{o}))

	assert.Equal(t, domain.OrderStatusExecutionComplete, o.Status())
	assert.Empty(t, f.sink.kinds())
	assert.False(t, f.market.Blotter().HasLiveOrders())
	assert.Equal(t, 0, f.rc.LiveTradeCount())
}

func TestVenueExecution_PlaceAsync(t *testing.T) {
	f := newFixture()
	o := f.order(domain.OrderOptions{Async: true})
	client := &fakeClient{reports: []domain.InstructionReport{{CustomerReference: o.ID()}}}
	exec := NewVenueExecution(domain.ExchangeBetfair, f.deps)

	exec.ExecutePlace(context.Background(), domain.NewOrderPackage(domain.OrderPackagePlace, client, "1.234", []*domain.Order{o}))

	assert.Equal(t, domain.OrderStatusPending, o.Status())
	assert.Empty(t, f.sink.kinds())
}

func TestVenueExecution_CorrelationMismatch(t *testing.T) {
	f := newFixture()
	o1 := f.order(domain.OrderOptions{})
	o2 := f.order(domain.OrderOptions{})
	client := &fakeClient{reports: []domain.InstructionReport{
		{CustomerReference: "someone-else", OrderID: "bet-x"},
		{CustomerReference: o2.ID(), OrderID: "bet-2"},
	}}
	exec := NewVenueExecution(domain.ExchangeBetfair, f.deps)

	require.NotPanics(t, func() {
		exec.ExecutePlace(context.Background(), domain.NewOrderPackage(domain.OrderPackagePlace, client, "1.234", []*domain.Order{o1, o2}))
	})

	assert.Equal(t, domain.OrderStatusPending, o1.Status())
	assert.Empty(t, o1.BetID())
	assert.Nil(t, o1.Responses().PlaceResponse)
	assert.Equal(t, domain.OrderStatusExecutable, o2.Status())
	assert.Equal(t, 1, f.metrics.faults)
	assert.Contains(t, f.logs.String(), `"level":"CRITICAL"`)
}

func TestVenueExecution_CallFailed(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		kind  string
		level string
	}{
		{"venue error", domain.NewVenueError(domain.ExchangeBetfair, "place", "TOO_MANY_REQUESTS", nil), "venue", `"level":"ERROR"`},
		{"unknown error", errors.New("connection reset"), "unknown", `"level":"CRITICAL"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			o := f.order(domain.OrderOptions{})
			exec := NewVenueExecution(domain.ExchangeBetfair, f.deps)

			exec.ExecutePlace(context.Background(), domain.NewOrderPackage(domain.OrderPackagePlace, &fakeClient{err: tt.err}, "1.234", []*domain.Order{o}))

			assert.Equal(t, domain.OrderStatusPending, o.Status())
			assert.Equal(t, 1, f.metrics.errs[tt.kind])
			assert.Contains(t, f.logs.String(), tt.level)
		})
	}
}

func TestVenueExecution_Cancel(t *testing.T) {
	f := newFixture()
	client := &fakeClient{}
	exec := NewVenueExecution(domain.ExchangeBetfair, f.deps)
	o := f.order(domain.OrderOptions{})
	exec.ExecutePlace(context.Background(), domain.NewOrderPackage(domain.OrderPackagePlace, client, "1.234", []*domain.Order{o}))

	client.reports = []domain.InstructionReport{{CustomerReference: o.ID(), ErrorCode: "BET_TAKEN_OR_LAPSED"}}
	exec.ExecuteCancel(context.Background(), domain.NewOrderPackage(domain.OrderPackageCancel, client, "1.234", []*domain.Order{o}))

	assert.Equal(t, domain.OrderStatusExecutionComplete, o.Status())
	require.NotNil(t, o.Responses().CancelResponse)
	assert.False(t, f.market.Blotter().HasLiveOrders())
}

func TestVenueExecution_UpdateAndReplace(t *testing.T) {
	f := newFixture()
	client := &fakeClient{}
	exec := NewVenueExecution(domain.ExchangeBetfair, f.deps)
	o := f.order(domain.OrderOptions{})
	exec.ExecutePlace(context.Background(), domain.NewOrderPackage(domain.OrderPackagePlace, client, "1.234", []*domain.Order{o}))

	t.Run("update leaves status to reconciliation", func(t *testing.T) {
		require.NoError(t, o.RequestUpdate(domain.PersistencePersist))
		exec.ExecuteUpdate(context.Background(), domain.NewOrderPackage(domain.OrderPackageUpdate, client, "1.234", []*domain.Order{o}))
		assert.Equal(t, domain.OrderStatusUpdating, o.Status())
		assert.Equal(t, domain.PersistencePersist, o.OrderType().PersistenceType)
		require.NoError(t, o.Executable())
	})

	t.Run("replace assigns the new bet id", func(t *testing.T) {
		require.NoError(t, o.RequestReplace(decimal.NewFromInt(3)))
		client.reports = []domain.InstructionReport{{CustomerReference: o.ID(), OrderID: "bet-new"}}
		exec.ExecuteReplace(context.Background(), domain.NewOrderPackage(domain.OrderPackageReplace, client, "1.234", []*domain.Order{o}))

		assert.Equal(t, "bet-new", o.BetID())
		assert.True(t, o.OrderType().Price.Equal(decimal.NewFromInt(3)))
		assert.Equal(t, []event.Type{event.TypeOrderPlaced, event.TypeOrderReplaced}, f.sink.kinds())
	})
}

func TestSimulatedExecution(t *testing.T) {
	f := newFixture()
	exec := NewSimulatedExecution(f.deps)
	client := NewSimulatedClient("sim", "", domain.ClientLimits{})
	o := f.order(domain.OrderOptions{Simulated: true})

	exec.ExecutePlace(context.Background(), domain.NewOrderPackage(domain.OrderPackagePlace, client, "1.234", []*domain.Order{o}))
	assert.Equal(t, domain.OrderStatusExecutable, o.Status())
	assert.NotEmpty(t, o.BetID())
	placedBetID := o.BetID()

	require.NoError(t, o.RequestReplace(decimal.RequireFromString("2.5")))
	exec.ExecuteReplace(context.Background(), domain.NewOrderPackage(domain.OrderPackageReplace, client, "1.234", []*domain.Order{o}))
	assert.Equal(t, domain.OrderStatusExecutable, o.Status())
	assert.NotEqual(t, placedBetID, o.BetID())
	assert.True(t, o.OrderType().Price.Equal(decimal.RequireFromString("2.5")))

	require.NoError(t, o.RequestUpdate(domain.PersistencePersist))
	exec.ExecuteUpdate(context.Background(), domain.NewOrderPackage(domain.OrderPackageUpdate, client, "1.234", []*domain.Order{o}))
	assert.Equal(t, domain.OrderStatusExecutable, o.Status())

	exec.ExecuteCancel(context.Background(), domain.NewOrderPackage(domain.OrderPackageCancel, client, "1.234", []*domain.Order{o}))
	assert.Equal(t, domain.OrderStatusExecutionComplete, o.Status())
	assert.True(t, o.Responses().CancelResponse.SizeCancelled.Equal(decimal.NewFromInt(5)))

	assert.Equal(t, []event.Type{event.TypeOrderPlaced, event.TypeOrderReplaced}, f.sink.kinds())
	assert.Equal(t, 0, f.rc.LiveTradeCount())
}

func TestSimulatedClientEchoesReferences(t *testing.T) {
	client := NewSimulatedClient("sim", domain.ExchangeBetdaq, domain.ClientLimits{MinBetSize: decimal.NewFromInt(2)})
	reports, err := client.Place(context.Background(), "1.234", []domain.PlaceInstruction{{CustomerReference: "a"}, {CustomerReference: "b"}})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "a", reports[0].CustomerReference)
	assert.NotEmpty(t, reports[1].OrderID)
	assert.Equal(t, domain.ExchangeBetdaq, client.Exchange())
}

func TestClients(t *testing.T) {
	clients := NewClients()
	require.NoError(t, clients.Add(NewSimulatedClient("first", "", domain.ClientLimits{MinBetSize: decimal.NewFromInt(2)})))
	require.NoError(t, clients.Add(NewSimulatedClient("second", "", domain.ClientLimits{})))
	assert.Error(t, clients.Add(NewSimulatedClient("first", "", domain.ClientLimits{})))

	c, ok := clients.Get("")
	require.True(t, ok)
	assert.Equal(t, "first", c.Name())

	limits, ok := clients.Limits("")
	require.True(t, ok)
	assert.True(t, limits.MinBetSize.Equal(decimal.NewFromInt(2)))

	_, ok = clients.Limits("missing")
	assert.False(t, ok)
	assert.Len(t, clients.All(), 2)
}
