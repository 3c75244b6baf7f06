package controls

import (
	"fmt"
	"log/slog"

	"betexec/internal/domain"
)

// LimitsLookup returns the venue minimums for the client an order uses.
type LimitsLookup interface {
	Limits(clientName string) (domain.ClientLimits, bool)
}

// OrderValidation checks order fields against the venue rules.
type OrderValidation struct {
	base
	limits LimitsLookup
}

func NewOrderValidation(limits LimitsLookup, log *slog.Logger, metrics ViolationRecorder) *OrderValidation {
	return &OrderValidation{base: newBase("ORDER_VALIDATION", log, metrics), limits: limits}
}

func (c *OrderValidation) Validate(order *domain.Order, _ domain.OrderPackageType) error {
	ot := order.OrderType()
	switch ot.Name {
	case domain.OrderTypeLimit:
		if err := c.validateSize(order, ot); err != nil {
			return err
		}
		if err := c.validatePrice(order, ot); err != nil {
			return err
		}
	case domain.OrderTypeLimitOnClose:
		if err := c.validatePrice(order, ot); err != nil {
			return err
		}
		if err := c.validateLiability(order, ot); err != nil {
			return err
		}
	case domain.OrderTypeMarketOnClose:
		if err := c.validateLiability(order, ot); err != nil {
			return err
		}
	default:
		return c.onError(order, "Unknown orderType")
	}
	return c.validateMinSize(order, ot)
}

func (c *OrderValidation) validateSize(order *domain.Order, ot domain.OrderType) error {
	if ot.Size.IsNegative() {
		return c.onError(order, "Order size is less than 0")
	}
	if !domain.HasMaxTwoDecimals(ot.Size) {
		return c.onError(order, "Order size has more than 2dp")
	}
	return nil
}

func (c *OrderValidation) validatePrice(order *domain.Order, ot domain.OrderType) error {
	if !domain.IsValidPrice(ot.Price) {
		return c.onError(order, "Order price is not valid")
	}
	return nil
}

func (c *OrderValidation) validateLiability(order *domain.Order, ot domain.OrderType) error {
	if ot.Liability.IsNegative() {
		return c.onError(order, "Order liability is less than 0")
	}
	if !domain.HasMaxTwoDecimals(ot.Liability) {
		return c.onError(order, "Order liability has more than 2dp")
	}
	return nil
}

// validateMinSize enforces the currency minimums. A LIMIT order passes if
// either its stake reaches min_bet_size or its payout reaches min_bet_payout.
func (c *OrderValidation) validateMinSize(order *domain.Order, ot domain.OrderType) error {
	if c.limits == nil {
		return nil
	}
	limits, ok := c.limits.Limits(order.ClientName())
	if !ok || !limits.MinBetValidation {
		return nil
	}

	switch ot.Name {
	case domain.OrderTypeLimit:
		if ot.Size.LessThan(limits.MinBetSize) && ot.Price.Mul(ot.Size).LessThan(limits.MinBetPayout) {
			return c.onError(order, fmt.Sprintf(
				"Order size is less than min bet size (%s) or payout (%s) for currency",
				limits.MinBetSize, limits.MinBetPayout))
		}
	default:
		if order.Side() == domain.SideBack {
			if ot.Liability.LessThan(limits.MinBetSize) {
				return c.onError(order, fmt.Sprintf(
					"Liability is less than min bet size (%s) for currency", limits.MinBetSize))
			}
		} else if ot.Liability.LessThan(limits.MinBSPLiability) {
			return c.onError(order, fmt.Sprintf(
				"Liability is less than min BSP payout (%s) for currency", limits.MinBSPLiability))
		}
	}
	return nil
}
