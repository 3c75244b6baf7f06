package domain

import "github.com/shopspring/decimal"

// OrderTypeName is the venue order type.
type OrderTypeName string

const (
	OrderTypeLimit         OrderTypeName = "LIMIT"
	OrderTypeLimitOnClose  OrderTypeName = "LIMIT_ON_CLOSE"
	OrderTypeMarketOnClose OrderTypeName = "MARKET_ON_CLOSE"
)

// Persistence types for LIMIT orders.
const (
	PersistenceLapse         = "LAPSE"
	PersistencePersist       = "PERSIST"
	PersistenceMarketOnClose = "MARKET_ON_CLOSE"
)

// OrderType holds the price/size (LIMIT) or liability (on-close) of an order.
type OrderType struct {
	Name            OrderTypeName
	Price           decimal.Decimal
	Size            decimal.Decimal
	Liability       decimal.Decimal
	PersistenceType string
}

// LimitOrder builds a LIMIT order type.
func LimitOrder(price, size decimal.Decimal, persistence string) OrderType {
	if persistence == "" {
		persistence = PersistenceLapse
	}
	return OrderType{Name: OrderTypeLimit, Price: price, Size: size, PersistenceType: persistence}
}

// LimitOnCloseOrder builds a LIMIT_ON_CLOSE order type.
func LimitOnCloseOrder(price, liability decimal.Decimal) OrderType {
	return OrderType{Name: OrderTypeLimitOnClose, Price: price, Liability: liability}
}

// MarketOnCloseOrder builds a MARKET_ON_CLOSE order type.
func MarketOnCloseOrder(liability decimal.Decimal) OrderType {
	return OrderType{Name: OrderTypeMarketOnClose, Liability: liability}
}

// IsOnClose reports whether the type is settled at the starting price.
func (t OrderType) IsOnClose() bool {
	return t.Name == OrderTypeLimitOnClose || t.Name == OrderTypeMarketOnClose
}

// Exposure is the worst-case loss of the whole order on its own:
// the stake for a BACK limit, (price-1)*stake for a LAY limit and the
// liability for on-close types. ok is false for unknown types.
func (t OrderType) Exposure(side Side) (exposure decimal.Decimal, ok bool) {
	switch t.Name {
	case OrderTypeLimit:
		if side == SideBack {
			return t.Size, true
		}
		return t.Price.Sub(decimal.NewFromInt(1)).Mul(t.Size), true
	case OrderTypeLimitOnClose, OrderTypeMarketOnClose:
		return t.Liability, true
	default:
		return decimal.Zero, false
	}
}
