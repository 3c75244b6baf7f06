package service

import (
	"errors"
	"fmt"
	"log/slog"

	"betexec/internal/controls"
	"betexec/internal/domain"
	"betexec/internal/market"

	"github.com/shopspring/decimal"
)

// ClientLookup resolves the venue client of an order.
type ClientLookup interface {
	Get(name string) (domain.VenueClient, bool)
}

// routedStrategy is a strategy with a default client and a market list.
type routedStrategy interface {
	ClientName() string
	Trades(marketID string) bool
}

// Submitter queues a package for execution.
type Submitter interface {
	Submit(pkg *domain.OrderPackage) error
}

// OrderService is the strategy-facing entry point: it admits orders through
// the trading controls, records them in their market's blotter and hands
// packages to the exchange sequencers.
type OrderService struct {
	markets  *market.Markets
	clients  ClientLookup
	pipeline *controls.Pipeline
	router   Submitter
	log      *slog.Logger
}

func NewOrderService(markets *market.Markets, clients ClientLookup, pipeline *controls.Pipeline, router Submitter, log *slog.Logger) *OrderService {
	if pipeline == nil {
		pipeline = controls.NewPipeline()
	}
	if log == nil {
		log = slog.Default()
	}
	return &OrderService{
		markets:  markets,
		clients:  clients,
		pipeline: pipeline,
		router:   router,
		log:      log,
	}
}

type packageKey struct {
	marketID string
	client   string
}

// batch groups orders by market and client, keeping submission order.
type batch struct {
	keys   []packageKey
	orders map[packageKey][]*domain.Order
	client map[packageKey]domain.VenueClient
}

func newBatch() *batch {
	return &batch{
		orders: make(map[packageKey][]*domain.Order),
		client: make(map[packageKey]domain.VenueClient),
	}
}

func (b *batch) add(client domain.VenueClient, o *domain.Order) {
	key := packageKey{marketID: o.MarketID(), client: client.Name()}
	if _, ok := b.orders[key]; !ok {
		b.keys = append(b.keys, key)
		b.client[key] = client
	}
	b.orders[key] = append(b.orders[key], o)
}

// Place admits and submits new orders. Orders rejected by a control stay
// in the blotter as VIOLATION; the returned error joins every rejection.
func (s *OrderService) Place(orders ...*domain.Order) error {
	var errs []error
	b := newBatch()

	for _, o := range orders {
		m, client, err := s.resolve(o)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if o.Status() != domain.OrderStatusPending {
			errs = append(errs, fmt.Errorf("order %s is %s: %w", o.ID(), o.Status(), domain.ErrInvalidTransition))
			continue
		}
		if rs, ok := o.Trade().Strategy().(routedStrategy); ok && !rs.Trades(o.MarketID()) {
			errs = append(errs, fmt.Errorf("order %s: %w: %s", o.ID(), domain.ErrMarketNotTraded, o.MarketID()))
			continue
		}
		o.AssignClient(client.Name(), client.Exchange())

		err = s.pipeline.Validate(o, domain.OrderPackagePlace)
		m.Blotter().Add(o)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if st := o.Trade().Strategy(); st != nil {
			if rc := st.GetRunnerContext(o.MarketID(), o.SelectionID(), o.Handicap()); rc != nil {
				rc.Place(o.Trade().ID())
			}
		}
		b.add(client, o)
	}

	errs = append(errs, s.submit(domain.OrderPackagePlace, b)...)
	return errors.Join(errs...)
}

// Cancel cancels live orders. Only EXECUTABLE orders can be cancelled.
func (s *OrderService) Cancel(orders ...*domain.Order) error {
	var errs []error
	b := newBatch()
	for _, o := range orders {
		_, client, err := s.resolve(o)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if st := o.Status(); st != domain.OrderStatusExecutable {
			errs = append(errs, fmt.Errorf("cancel order %s in %s: %w", o.ID(), st, domain.ErrInvalidTransition))
			continue
		}
		b.add(client, o)
	}
	errs = append(errs, s.submit(domain.OrderPackageCancel, b)...)
	return errors.Join(errs...)
}

// Update changes the persistence type of a live LIMIT order.
func (s *OrderService) Update(o *domain.Order, persistence string) error {
	_, client, err := s.resolve(o)
	if err != nil {
		return err
	}
	trade := o.Trade()
	trade.Lock()
	err = o.RequestUpdate(persistence)
	trade.Unlock()
	if err != nil {
		return fmt.Errorf("update order %s: %w", o.ID(), err)
	}

	b := newBatch()
	b.add(client, o)
	return errors.Join(s.submit(domain.OrderPackageUpdate, b)...)
}

// Replace moves a live LIMIT order to a new price. The replacement is
// admitted through the controls with the order's current exposure excluded.
func (s *OrderService) Replace(o *domain.Order, price decimal.Decimal) error {
	_, client, err := s.resolve(o)
	if err != nil {
		return err
	}
	trade := o.Trade()
	trade.Lock()
	err = o.RequestReplace(price)
	trade.Unlock()
	if err != nil {
		return fmt.Errorf("replace order %s: %w", o.ID(), err)
	}

	if err := s.pipeline.Validate(o, domain.OrderPackageReplace); err != nil {
		if m, ok := s.markets.Get(o.MarketID()); ok {
			m.CompleteOrder(o)
		}
		return err
	}

	b := newBatch()
	b.add(client, o)
	return errors.Join(s.submit(domain.OrderPackageReplace, b)...)
}

func (s *OrderService) resolve(o *domain.Order) (*market.Market, domain.VenueClient, error) {
	m, ok := s.markets.Get(o.MarketID())
	if !ok {
		return nil, nil, fmt.Errorf("order %s: %w: %s", o.ID(), domain.ErrUnknownMarket, o.MarketID())
	}
	name := o.ClientName()
	if rs, ok := o.Trade().Strategy().(routedStrategy); ok && name == "" {
		name = rs.ClientName()
	}
	client, ok := s.clients.Get(name)
	if !ok {
		return nil, nil, fmt.Errorf("order %s: %w: %q", o.ID(), domain.ErrUnknownClient, name)
	}
	return m, client, nil
}

// submit hands one package per (market, client) to the router. Orders of a
// package the router refuses never reach the venue: new orders are closed
// as violations and pending updates are dropped.
func (s *OrderService) submit(packageType domain.OrderPackageType, b *batch) []error {
	var errs []error
	for _, key := range b.keys {
		orders := b.orders[key]
		pkg := domain.NewOrderPackage(packageType, b.client[key], key.marketID, orders)
		err := s.router.Submit(pkg)
		if err == nil {
			s.log.Debug("Order package submitted", slog.Any("package", pkg))
			continue
		}

		s.log.Error("Order package not submitted", slog.Any("package", pkg), slog.Any("error", err))
		errs = append(errs, err)
		for _, o := range orders {
			trade := o.Trade()
			trade.Lock()
			if packageType == domain.OrderPackagePlace {
				_ = o.Violation(err.Error())
			} else if o.Status() == domain.OrderStatusUpdating {
				_ = o.Executable()
			}
			trade.Unlock()
			if o.Complete() {
				if m, ok := s.markets.Get(o.MarketID()); ok {
					m.CompleteOrder(o)
				}
			}
		}
	}
	return errs
}
