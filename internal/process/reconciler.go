package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"betexec/internal/domain"
	"betexec/internal/event"
	"betexec/internal/market"
)

// StrategyLookup resolves the strategy that built a customer order ref.
type StrategyLookup interface {
	ByNameHash(hash string) (domain.Strategy, bool)
}

// ClientLookup resolves the client that owns orders rebuilt from a venue.
type ClientLookup interface {
	ForExchange(exchange domain.ExchangeType) (domain.VenueClient, bool)
}

// Recorder receives reconciliation metrics.
type Recorder interface {
	IncStaleSnapshot()
	IncOrderPlaced(exchange string)
}

type nopRecorder struct{}

func (nopRecorder) IncStaleSnapshot()     {}
func (nopRecorder) IncOrderPlaced(string) {}

// Reconciler converges local orders with the venue's current-order polls.
// It never moves an order backwards.
type Reconciler struct {
	markets    *market.Markets
	strategies StrategyLookup
	clients    ClientLookup
	sink       event.Sink
	log        *slog.Logger
	metrics    Recorder
}

func NewReconciler(markets *market.Markets, strategies StrategyLookup, clients ClientLookup, sink event.Sink, log *slog.Logger, metrics Recorder) *Reconciler {
	if sink == nil {
		sink = event.NopSink{}
	}
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Reconciler{
		markets:    markets,
		strategies: strategies,
		clients:    clients,
		sink:       sink,
		log:        log,
		metrics:    metrics,
	}
}

// ProcessCurrentOrders handles one poll, dispatching on the venue's format.
func (r *Reconciler) ProcessCurrentOrders(ctx context.Context, ev *event.CurrentOrdersEvent) {
	if ev.Exchange == domain.ExchangeBetdaq {
		r.ProcessBetdaqCurrentOrders(ctx, ev.Orders)
		return
	}

	for _, co := range ev.Orders {
		_, orderID, err := domain.ParseCustomerOrderRef(co.CustomerOrderRef)
		if err != nil {
			r.log.Debug("Current order not ours", slog.String("customer_order_ref", co.CustomerOrderRef))
			continue
		}
		m, ok := r.markets.Get(co.MarketID)
		if !ok {
			r.log.Debug("Current order for unknown market dropped",
				slog.String("market_id", co.MarketID), slog.String("bet_id", co.BetID))
			continue
		}

		o, ok := m.Blotter().Get(orderID)
		if !ok {
			if isTerminal(co.Status) {
				continue
			}
			o, err = r.CreateOrderFromCurrent(ev.Exchange, co)
			if err != nil {
				r.log.Warn("Unable to create order from current order",
					slog.String("bet_id", co.BetID), slog.Any("error", err))
				continue
			}
		}

		r.ProcessCurrentOrder(ctx, o, co)
		if o.Complete() {
			m.CompleteOrder(o)
		}
	}
}

// ProcessCurrentOrder applies one snapshot to its order.
func (r *Reconciler) ProcessCurrentOrder(ctx context.Context, o *domain.Order, co domain.CurrentOrder) {
	trade := o.Trade()
	trade.Lock()
	defer trade.Unlock()

	o.UpdateCurrentOrder(co)

	// async placements learn their bet id from the poll
	if o.Async() && !o.Simulated() && o.BetID() == "" && co.BetID != "" {
		o.Placed(nil)
		o.SetBetID(co.BetID)
		r.sink.LogControl(event.NewOrderEvent(event.TypeOrderPlaced, o))
		r.metrics.IncOrderPlaced(string(o.Exchange()))
	}

	switch o.Status() {
	case domain.OrderStatusPending:
		if o.BetID() == "" {
			return
		}
		if co.Status == domain.CurrentStatusExecutable {
			r.transition(o, o.Executable, domain.OrderStatusExecutable)
		} else if isTerminal(co.Status) {
			r.transition(o, o.ExecutionComplete, domain.OrderStatusExecutionComplete)
		}
	case domain.OrderStatusExecutable:
		if isTerminal(co.Status) {
			r.transition(o, o.ExecutionComplete, domain.OrderStatusExecutionComplete)
		}
	case domain.OrderStatusUpdating:
		if co.Status == domain.CurrentStatusExecutable {
			r.transition(o, o.Executable, domain.OrderStatusExecutable)
		} else if isTerminal(co.Status) {
			r.transition(o, o.ExecutionComplete, domain.OrderStatusExecutionComplete)
		}
	}
}

// ProcessBetdaqCurrentOrders handles a BETDAQ poll. Snapshots carry the
// bare local order id; the market id is optional.
func (r *Reconciler) ProcessBetdaqCurrentOrders(ctx context.Context, orders []domain.CurrentOrder) {
	for _, co := range orders {
		if co.CustomerReference == "" {
			continue
		}
		var (
			o  *domain.Order
			m  *market.Market
			ok bool
		)
		if co.MarketID != "" {
			o, m, ok = r.markets.GetOrder(co.MarketID, co.CustomerReference)
		} else {
			o, m, ok = r.markets.FindOrder(co.CustomerReference)
		}
		if !ok {
			r.log.Debug("BETDAQ current order not found",
				slog.String("customer_reference", co.CustomerReference),
				slog.String("bet_id", co.BetID))
			continue
		}

		r.ProcessBetdaqCurrentOrder(ctx, o, co)
		if o.Complete() {
			m.CompleteOrder(o)
		}
	}
}

// ProcessBetdaqCurrentOrder applies one BETDAQ snapshot. Once any snapshot
// has been applied, one whose sequence number does not advance is stale: it
// is kept for diagnostics and the order is left as is.
func (r *Reconciler) ProcessBetdaqCurrentOrder(ctx context.Context, o *domain.Order, co domain.CurrentOrder) {
	trade := o.Trade()
	trade.Lock()
	defer trade.Unlock()

	prev := o.CurrentOrder()
	if prev != nil && co.SequenceNumber <= prev.SequenceNumber {
		o.RecordStaleSnapshot(co)
		r.metrics.IncStaleSnapshot()
		r.log.Debug("Stale current order dropped",
			slog.Any("order", o),
			slog.Int64("sequence_number", co.SequenceNumber),
			slog.Int64("last_sequence_number", prev.SequenceNumber),
		)
		return
	}

	o.UpdateCurrentOrder(co)

	switch o.Status() {
	case domain.OrderStatusPending:
		if co.BetID != "" && o.SetBetID(co.BetID) && o.Async() {
			o.Placed(nil)
		}
		switch {
		case co.Status == domain.BetdaqStatusUnmatched:
			r.transition(o, o.Executable, domain.OrderStatusExecutable)
			if o.Async() {
				r.sink.LogControl(event.NewOrderEvent(event.TypeOrderPlaced, o))
				r.metrics.IncOrderPlaced(string(o.Exchange()))
			}
		case domain.BetdaqTerminal(co.Status):
			r.betdaqComplete(o, co.Status)
		}
	case domain.OrderStatusExecutable, domain.OrderStatusUpdating:
		switch {
		case domain.BetdaqTerminal(co.Status):
			r.betdaqComplete(o, co.Status)
		case co.Status == domain.BetdaqStatusUnmatched && o.Status() == domain.OrderStatusUpdating:
			r.transition(o, o.Executable, domain.OrderStatusExecutable)
		}
	}
}

func (r *Reconciler) betdaqComplete(o *domain.Order, status string) {
	if status == domain.BetdaqStatusVoid {
		r.transition(o, o.Voided, domain.OrderStatusVoided)
		return
	}
	r.transition(o, o.ExecutionComplete, domain.OrderStatusExecutionComplete)
}

// CreateOrderFromCurrent rebuilds an order the process does not know,
// e.g. after a restart, and adds it to its market's blotter. The order
// keeps its local id and starts PENDING with the venue bet id assigned.
func (r *Reconciler) CreateOrderFromCurrent(exchange domain.ExchangeType, co domain.CurrentOrder) (*domain.Order, error) {
	hash, orderID, err := domain.ParseCustomerOrderRef(co.CustomerOrderRef)
	if err != nil {
		return nil, err
	}
	if r.strategies == nil {
		return nil, domain.ErrUnknownStrategy
	}
	strategy, ok := r.strategies.ByNameHash(hash)
	if !ok {
		return nil, fmt.Errorf("%w: hash %s", domain.ErrUnknownStrategy, hash)
	}
	m, ok := r.markets.Get(co.MarketID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMarket, co.MarketID)
	}

	var ot domain.OrderType
	switch co.OrderType {
	case domain.OrderTypeLimit:
		ot = domain.LimitOrder(co.Price, co.Size, co.PersistenceType)
	case domain.OrderTypeLimitOnClose:
		ot = domain.LimitOnCloseOrder(co.Price, co.Liability)
	case domain.OrderTypeMarketOnClose:
		ot = domain.MarketOnCloseOrder(co.Liability)
	default:
		return nil, errors.New("unknown order type " + string(co.OrderType))
	}

	opts := domain.OrderOptions{ID: orderID, Exchange: exchange}
	if r.clients != nil {
		if client, ok := r.clients.ForExchange(exchange); ok {
			opts.ClientName = client.Name()
		}
	}

	trade := domain.NewTrade(co.MarketID, co.SelectionID, co.Handicap, strategy)
	o := domain.NewOrder(trade, co.Side, ot, opts)
	o.SetBetID(co.BetID)
	m.Blotter().Add(o)
	if rc := strategy.GetRunnerContext(co.MarketID, co.SelectionID, co.Handicap); rc != nil {
		rc.Place(trade.ID())
	}

	r.log.Info("Order created from current order",
		slog.Any("order", o), slog.String("strategy", strategy.Name()))
	return o, nil
}

func (r *Reconciler) transition(o *domain.Order, fn func() error, to domain.OrderStatus) {
	if err := fn(); err != nil {
		r.log.Warn("Order status not changed",
			slog.Any("order", o), slog.String("to", string(to)), slog.Any("error", err))
	}
}

func isTerminal(status string) bool {
	return status == domain.CurrentStatusExecutionComplete || status == domain.CurrentStatusExpired
}
