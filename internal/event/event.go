package event

import (
	"time"

	"betexec/internal/domain"

	"github.com/shopspring/decimal"
)

// Type identifies an event.
type Type string

const (
	TypeOrderPlaced   Type = "ORDER_PLACED"
	TypeOrderReplaced Type = "ORDER_REPLACED"
	TypeCurrentOrders Type = "CURRENT_ORDERS"
	TypeMarketBook    Type = "MARKET_BOOK"
)

// Event is anything flowing through the process inboxes.
type Event interface {
	GetSeq() uint64
	GetType() Type
	GetTs() int64
}

// BaseEvent carries the sequence number and creation time (unix micros).
type BaseEvent struct {
	Seq uint64 `json:"seq"`
	Ts  int64  `json:"ts"`
}

func (e BaseEvent) GetSeq() uint64 { return e.Seq }
func (e BaseEvent) GetTs() int64   { return e.Ts }

// OrderEvent is the control-plane notification sent when an order is
// placed or replaced on a venue.
type OrderEvent struct {
	BaseEvent
	Kind             Type                 `json:"kind"`
	OrderID          string               `json:"order_id"`
	BetID            string               `json:"bet_id"`
	CustomerOrderRef string               `json:"customer_order_ref"`
	MarketID         string               `json:"market_id"`
	SelectionID      int64                `json:"selection_id"`
	Handicap         float64              `json:"handicap"`
	Side             domain.Side          `json:"side"`
	Exchange         domain.ExchangeType  `json:"exchange"`
	Strategy         string               `json:"strategy"`
	Status           domain.OrderStatus   `json:"status"`
	OrderType        domain.OrderTypeName `json:"order_type"`
	Price            decimal.Decimal      `json:"price"`
	Size             decimal.Decimal      `json:"size"`
	Liability        decimal.Decimal      `json:"liability"`
	SizeMatched      decimal.Decimal      `json:"size_matched"`
	Simulated        bool                 `json:"simulated"`
}

func (e *OrderEvent) GetType() Type { return e.Kind }

// Fill copies the order into the event.
func (e *OrderEvent) Fill(kind Type, o *domain.Order) {
	ot := o.OrderType()
	e.Ts = time.Now().UnixMicro()
	e.Kind = kind
	e.OrderID = o.ID()
	e.BetID = o.BetID()
	e.CustomerOrderRef = o.CustomerOrderRef()
	e.MarketID = o.MarketID()
	e.SelectionID = o.SelectionID()
	e.Handicap = o.Handicap()
	e.Side = o.Side()
	e.Exchange = o.Exchange()
	e.Strategy = ""
	if s := o.Trade().Strategy(); s != nil {
		e.Strategy = s.Name()
	}
	e.Status = o.Status()
	e.OrderType = ot.Name
	e.Price = ot.Price
	e.Size = ot.Size
	e.Liability = ot.Liability
	e.SizeMatched = o.SizeMatched()
	e.Simulated = o.Simulated()
}

// NewOrderEvent takes an event from the pool and fills it from the order.
func NewOrderEvent(kind Type, o *domain.Order) *OrderEvent {
	ev := AcquireOrderEvent()
	ev.Fill(kind, o)
	return ev
}

// CurrentOrdersEvent carries one poll of venue order snapshots.
type CurrentOrdersEvent struct {
	BaseEvent
	Exchange domain.ExchangeType
	Orders   []domain.CurrentOrder
}

func (e *CurrentOrdersEvent) GetType() Type { return TypeCurrentOrders }

// MarketBookEvent carries one market data snapshot.
type MarketBookEvent struct {
	BaseEvent
	Exchange domain.ExchangeType
	Book     *domain.MarketBook
}

func (e *MarketBookEvent) GetType() Type { return TypeMarketBook }
