package domain

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPackageType is the venue call an order package is destined for.
type OrderPackageType string

const (
	OrderPackagePlace   OrderPackageType = "PLACE"
	OrderPackageCancel  OrderPackageType = "CANCEL"
	OrderPackageUpdate  OrderPackageType = "UPDATE"
	OrderPackageReplace OrderPackageType = "REPLACE"
)

// PlaceInstruction is the venue view of an order to place.
type PlaceInstruction struct {
	CustomerReference string
	CustomerOrderRef  string
	SelectionID       int64
	Handicap          float64
	Side              Side
	OrderType         OrderTypeName
	Price             decimal.Decimal
	Size              decimal.Decimal
	Liability         decimal.Decimal
	PersistenceType   string
}

// CancelInstruction is the venue view of an order to cancel.
type CancelInstruction struct {
	CustomerReference string
	BetID             string
}

// UpdateInstruction changes the persistence of a live order.
type UpdateInstruction struct {
	CustomerReference  string
	BetID              string
	NewPersistenceType string
}

// ReplaceInstruction cancels a live order and places it again at NewPrice.
type ReplaceInstruction struct {
	CustomerReference string
	BetID             string
	NewPrice          decimal.Decimal
}

// OrderPackage is an immutable batch of orders for one venue call.
type OrderPackage struct {
	id          string
	packageType OrderPackageType
	client      VenueClient
	marketID    string
	orders      []*Order
	createdAt   time.Time
}

// NewOrderPackage builds a package; the order slice is copied.
func NewOrderPackage(packageType OrderPackageType, client VenueClient, marketID string, orders []*Order) *OrderPackage {
	cp := make([]*Order, len(orders))
	copy(cp, orders)
	return &OrderPackage{
		id:          uuid.NewString(),
		packageType: packageType,
		client:      client,
		marketID:    marketID,
		orders:      cp,
		createdAt:   time.Now(),
	}
}

func (p *OrderPackage) ID() string               { return p.id }
func (p *OrderPackage) Type() OrderPackageType   { return p.packageType }
func (p *OrderPackage) Client() VenueClient      { return p.client }
func (p *OrderPackage) MarketID() string         { return p.marketID }
func (p *OrderPackage) Len() int                 { return len(p.orders) }
func (p *OrderPackage) CreatedAt() time.Time     { return p.createdAt }
func (p *OrderPackage) Exchange() ExchangeType   { return p.client.Exchange() }

// Orders returns the orders in submission order.
func (p *OrderPackage) Orders() []*Order {
	out := make([]*Order, len(p.orders))
	copy(out, p.orders)
	return out
}

// PlaceInstructions returns one instruction per order, in submission order.
func (p *OrderPackage) PlaceInstructions() []PlaceInstruction {
	out := make([]PlaceInstruction, 0, len(p.orders))
	for _, o := range p.orders {
		ot := o.OrderType()
		out = append(out, PlaceInstruction{
			CustomerReference: o.ID(),
			CustomerOrderRef:  o.CustomerOrderRef(),
			SelectionID:       o.SelectionID(),
			Handicap:          o.Handicap(),
			Side:              o.Side(),
			OrderType:         ot.Name,
			Price:             ot.Price,
			Size:              ot.Size,
			Liability:         ot.Liability,
			PersistenceType:   ot.PersistenceType,
		})
	}
	return out
}

func (p *OrderPackage) CancelInstructions() []CancelInstruction {
	out := make([]CancelInstruction, 0, len(p.orders))
	for _, o := range p.orders {
		out = append(out, CancelInstruction{CustomerReference: o.ID(), BetID: o.BetID()})
	}
	return out
}

func (p *OrderPackage) UpdateInstructions() []UpdateInstruction {
	out := make([]UpdateInstruction, 0, len(p.orders))
	for _, o := range p.orders {
		_, persistence := o.pending()
		out = append(out, UpdateInstruction{
			CustomerReference:  o.ID(),
			BetID:              o.BetID(),
			NewPersistenceType: persistence,
		})
	}
	return out
}

func (p *OrderPackage) ReplaceInstructions() []ReplaceInstruction {
	out := make([]ReplaceInstruction, 0, len(p.orders))
	for _, o := range p.orders {
		price, _ := o.pending()
		out = append(out, ReplaceInstruction{
			CustomerReference: o.ID(),
			BetID:             o.BetID(),
			NewPrice:          price,
		})
	}
	return out
}

// LogValue implements slog.LogValuer.
func (p *OrderPackage) LogValue() slog.Value {
	ids := make([]string, 0, len(p.orders))
	for _, o := range p.orders {
		ids = append(ids, o.ID())
	}
	return slog.GroupValue(
		slog.String("id", p.id),
		slog.String("type", string(p.packageType)),
		slog.String("client", p.client.Name()),
		slog.String("market_id", p.marketID),
		slog.Any("order_ids", ids),
	)
}
