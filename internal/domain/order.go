package domain

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the side of a bet.
type Side string

const (
	SideBack Side = "BACK"
	SideLay  Side = "LAY"
)

// ExchangeType identifies the venue an order is routed to.
type ExchangeType string

const (
	ExchangeBetfair   ExchangeType = "BETFAIR"
	ExchangeBetdaq    ExchangeType = "BETDAQ"
	ExchangeSimulated ExchangeType = "SIMULATED"
)

// OrderStatus is the local lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "PENDING"
	OrderStatusExecutable        OrderStatus = "EXECUTABLE"
	OrderStatusUpdating          OrderStatus = "UPDATING"
	OrderStatusExecutionComplete OrderStatus = "EXECUTION_COMPLETE"
	OrderStatusViolation         OrderStatus = "VIOLATION"
	OrderStatusVoided            OrderStatus = "VOIDED"
)

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusExecutionComplete, OrderStatusViolation, OrderStatusVoided:
		return true
	default:
		return false
	}
}

// canTransition encodes the forward-only state machine:
// PENDING -> EXECUTABLE <-> UPDATING -> terminal.
func canTransition(from, to OrderStatus) bool {
	switch from {
	case OrderStatusPending:
		return to == OrderStatusExecutable || to.IsTerminal()
	case OrderStatusExecutable:
		return to == OrderStatusUpdating || to.IsTerminal()
	case OrderStatusUpdating:
		return to == OrderStatusExecutable || to.IsTerminal()
	default:
		return false
	}
}

// Lookup identifies a runner within a market.
type Lookup struct {
	MarketID    string
	SelectionID int64
	Handicap    float64
}

// orderSeq hands out process-unique numeric order ids. Seeded from the clock
// so ids from consecutive runs do not collide on the venue side.
var orderSeq atomic.Uint64

func init() {
	orderSeq.Store(uint64(time.Now().UnixMicro()))
}

func nextOrderID() string {
	return strconv.FormatUint(orderSeq.Add(1), 10)
}

// Order is one order instruction plus its evolving execution state.
//
// Status changes must be made while holding the owning Trade's guard
// (Trade.Lock). The internal mutex only makes individual field reads and
// writes atomic so that readers not holding the guard (exposure scans,
// simulated matching) see a consistent snapshot.
type Order struct {
	mu sync.RWMutex

	id               string
	customerOrderRef string
	trade            *Trade
	selectionID      int64
	handicap         float64
	side             Side
	orderType        OrderType
	exchange         ExchangeType
	clientName       string
	simulated        bool
	async            bool
	createdAt        time.Time

	betID               string
	status              OrderStatus
	statusLog           []OrderStatus
	sizeMatched         decimal.Decimal
	sizeRemaining       decimal.Decimal
	averagePriceMatched decimal.Decimal
	responses           Responses
	currentOrder        *CurrentOrder
	staleOrder          *CurrentOrder
	violationMsg        string

	pendingPrice       decimal.Decimal
	pendingPersistence string
}

// OrderOptions carries the optional order attributes.
type OrderOptions struct {
	Exchange   ExchangeType
	ClientName string
	Simulated  bool
	Async      bool
	// ID overrides the generated local id, used when rebuilding an order from
	// a venue snapshot.
	ID string
}

// NewOrder creates a PENDING order and attaches it to the trade.
func NewOrder(trade *Trade, side Side, orderType OrderType, opts OrderOptions) *Order {
	id := opts.ID
	if id == "" {
		id = nextOrderID()
	}
	exchange := opts.Exchange
	if exchange == "" {
		exchange = ExchangeBetfair
	}
	o := &Order{
		id:            id,
		trade:         trade,
		selectionID:   trade.SelectionID(),
		handicap:      trade.Handicap(),
		side:          side,
		orderType:     orderType,
		exchange:      exchange,
		clientName:    opts.ClientName,
		simulated:     opts.Simulated,
		async:         opts.Async,
		createdAt:     time.Now(),
		status:        OrderStatusPending,
		statusLog:     []OrderStatus{OrderStatusPending},
		sizeRemaining: orderType.Size,
	}
	if s := trade.Strategy(); s != nil {
		o.customerOrderRef = CustomerOrderRef(s.NameHash(), id)
	} else {
		o.customerOrderRef = id
	}
	trade.addOrder(o)
	return o
}

func (o *Order) ID() string               { return o.id }
func (o *Order) CustomerOrderRef() string { return o.customerOrderRef }
func (o *Order) Trade() *Trade            { return o.trade }
func (o *Order) MarketID() string         { return o.trade.MarketID() }
func (o *Order) SelectionID() int64       { return o.selectionID }
func (o *Order) Handicap() float64        { return o.handicap }
func (o *Order) Side() Side               { return o.side }
func (o *Order) Exchange() ExchangeType   { return o.exchange }
func (o *Order) Async() bool              { return o.async }
func (o *Order) CreatedAt() time.Time     { return o.createdAt }

func (o *Order) ClientName() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.clientName
}

func (o *Order) Simulated() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.simulated
}

// AssignClient records the client a new order is placed through. Orders
// sent to a SIMULATED client are matched by the simulation.
func (o *Order) AssignClient(name string, exchange ExchangeType) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clientName = name
	if exchange == ExchangeSimulated {
		o.simulated = true
	}
}

// Lookup returns the (market, selection, handicap) the order is on.
func (o *Order) Lookup() Lookup {
	return Lookup{MarketID: o.MarketID(), SelectionID: o.selectionID, Handicap: o.handicap}
}

func (o *Order) OrderType() OrderType {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.orderType
}

func (o *Order) BetID() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.betID
}

func (o *Order) Status() OrderStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// StatusLog returns every status the order has been in, oldest first.
func (o *Order) StatusLog() []OrderStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]OrderStatus, len(o.statusLog))
	copy(out, o.statusLog)
	return out
}

// Complete reports whether the order reached a terminal status.
func (o *Order) Complete() bool {
	return o.Status().IsTerminal()
}

func (o *Order) SizeMatched() decimal.Decimal {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sizeMatched
}

func (o *Order) SizeRemaining() decimal.Decimal {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sizeRemaining
}

func (o *Order) AveragePriceMatched() decimal.Decimal {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.averagePriceMatched
}

// Responses returns a copy of the recorded venue responses.
func (o *Order) Responses() Responses {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.responses
}

// CurrentOrder returns the last venue snapshot applied, or nil.
func (o *Order) CurrentOrder() *CurrentOrder {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.currentOrder == nil {
		return nil
	}
	co := *o.currentOrder
	return &co
}

func (o *Order) ViolationMsg() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.violationMsg
}

// SetViolationMsg is used by strategies to explain a failed ValidateOrder.
func (o *Order) SetViolationMsg(msg string) {
	o.mu.Lock()
	o.violationMsg = msg
	o.mu.Unlock()
}

// ExposureView is a point-in-time copy of the fields exposure maths needs.
type ExposureView struct {
	Side                Side
	OrderType           OrderType
	Status              OrderStatus
	SizeMatched         decimal.Decimal
	SizeRemaining       decimal.Decimal
	AveragePriceMatched decimal.Decimal
}

// ExposureView reads all exposure-relevant fields atomically.
func (o *Order) ExposureView() ExposureView {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return ExposureView{
		Side:                o.side,
		OrderType:           o.orderType,
		Status:              o.status,
		SizeMatched:         o.sizeMatched,
		SizeRemaining:       o.sizeRemaining,
		AveragePriceMatched: o.averagePriceMatched,
	}
}

// Executable marks the order live on the book.
func (o *Order) Executable() error { return o.transition(OrderStatusExecutable) }

// ExecutionComplete marks the order fully matched, cancelled or rejected.
func (o *Order) ExecutionComplete() error { return o.transition(OrderStatusExecutionComplete) }

// Updating marks an UPDATE or REPLACE as in flight.
func (o *Order) Updating() error { return o.transition(OrderStatusUpdating) }

// Voided marks the order voided by the venue.
func (o *Order) Voided() error { return o.transition(OrderStatusVoided) }

// Violation rejects the order locally; it never reaches a venue afterwards.
func (o *Order) Violation(msg string) error {
	if err := o.transition(OrderStatusViolation); err != nil {
		return err
	}
	o.mu.Lock()
	o.violationMsg = msg
	o.mu.Unlock()
	return nil
}

func (o *Order) transition(to OrderStatus) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status == to {
		return nil
	}
	if !canTransition(o.status, to) {
		return fmt.Errorf("%w: %s -> %s (order %s)", ErrInvalidTransition, o.status, to, o.id)
	}
	o.status = to
	o.statusLog = append(o.statusLog, to)
	return nil
}

// SetBetID records the venue id. Once set it never changes, except through
// ReplaceBetID.
func (o *Order) SetBetID(betID string) bool {
	if betID == "" {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.betID != "" && o.betID != betID {
		return false
	}
	o.betID = betID
	return true
}

// ReplaceBetID assigns the id of the working order created by a REPLACE and
// applies the requested price.
func (o *Order) ReplaceBetID(betID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if betID != "" {
		o.betID = betID
	}
	if !o.pendingPrice.IsZero() {
		o.orderType.Price = o.pendingPrice
		o.pendingPrice = decimal.Zero
	}
}

// RequestReplace stores the new price to be sent in a REPLACE package.
func (o *Order) RequestReplace(newPrice decimal.Decimal) error {
	if err := o.Updating(); err != nil {
		return err
	}
	o.mu.Lock()
	o.pendingPrice = newPrice
	o.mu.Unlock()
	return nil
}

// RequestUpdate stores the new persistence type to be sent in an UPDATE package.
func (o *Order) RequestUpdate(persistence string) error {
	if err := o.Updating(); err != nil {
		return err
	}
	o.mu.Lock()
	o.pendingPersistence = persistence
	o.mu.Unlock()
	return nil
}

// PendingPrice is the price requested by RequestReplace, zero if none.
func (o *Order) PendingPrice() decimal.Decimal {
	price, _ := o.pending()
	return price
}

func (o *Order) pending() (decimal.Decimal, string) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pendingPrice, o.pendingPersistence
}

// Placed records a place acknowledgement. A nil report only stamps the time,
// used when an async placement is picked up by reconciliation.
func (o *Order) Placed(report *InstructionReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.responses.DatePlaced = time.Now()
	if report != nil {
		r := *report
		o.responses.PlaceResponse = &r
	}
}

// Cancelled records a cancel acknowledgement.
func (o *Order) Cancelled(report InstructionReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.responses.CancelResponse = &report
}

// Updated records an update acknowledgement and applies the new persistence.
func (o *Order) Updated(report InstructionReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.responses.UpdateResponse = &report
	if !report.Failed() && o.pendingPersistence != "" {
		o.orderType.PersistenceType = o.pendingPersistence
		o.pendingPersistence = ""
	}
}

// Replaced records a replace acknowledgement.
func (o *Order) Replaced(report InstructionReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.responses.ReplaceResponse = &report
}

// UpdateCurrentOrder caches a venue snapshot and copies its matched state.
func (o *Order) UpdateCurrentOrder(co CurrentOrder) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.currentOrder = &co
	o.responses.CurrentOrderUpdated = time.Now()
	if co.HasMatchState {
		o.sizeMatched = co.SizeMatched
		o.sizeRemaining = co.SizeRemaining
		o.averagePriceMatched = co.AveragePriceMatched
	}
}

// RecordStaleSnapshot keeps an out-of-order venue snapshot for diagnostics.
// Neither the cached snapshot nor the matched state changes.
func (o *Order) RecordStaleSnapshot(co CurrentOrder) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.staleOrder = &co
}

// StaleSnapshot returns the last snapshot dropped as stale, or nil.
func (o *Order) StaleSnapshot() *CurrentOrder {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.staleOrder == nil {
		return nil
	}
	co := *o.staleOrder
	return &co
}

// ApplySimulatedFill matches size at price, keeping a volume weighted
// average. It returns the size actually matched; terminal orders match
// nothing.
func (o *Order) ApplySimulatedFill(size, price decimal.Decimal) decimal.Decimal {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.IsTerminal() {
		return decimal.Zero
	}
	if size.GreaterThan(o.sizeRemaining) {
		size = o.sizeRemaining
	}
	if !size.IsPositive() {
		return decimal.Zero
	}
	total := o.sizeMatched.Add(size)
	o.averagePriceMatched = o.averagePriceMatched.Mul(o.sizeMatched).
		Add(price.Mul(size)).
		Div(total).
		Round(2)
	o.sizeMatched = total
	o.sizeRemaining = o.sizeRemaining.Sub(size)
	return size
}

// LogValue implements slog.LogValuer.
func (o *Order) LogValue() slog.Value {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slog.GroupValue(
		slog.String("id", o.id),
		slog.String("bet_id", o.betID),
		slog.String("market_id", o.trade.MarketID()),
		slog.Int64("selection_id", o.selectionID),
		slog.String("side", string(o.side)),
		slog.String("order_type", string(o.orderType.Name)),
		slog.String("status", string(o.status)),
		slog.String("size_matched", o.sizeMatched.String()),
		slog.String("size_remaining", o.sizeRemaining.String()),
	)
}
