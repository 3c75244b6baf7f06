package controls

import (
	"log/slog"

	"betexec/internal/domain"
)

// MarketValidation rejects orders on markets that are not OPEN. Unknown
// markets pass: the market may not have streamed yet.
type MarketValidation struct {
	base
	markets MarketLookup
}

func NewMarketValidation(markets MarketLookup, log *slog.Logger, metrics ViolationRecorder) *MarketValidation {
	return &MarketValidation{base: newBase("MARKET_VALIDATION", log, metrics), markets: markets}
}

func (c *MarketValidation) Validate(order *domain.Order, _ domain.OrderPackageType) error {
	m, ok := c.markets.Get(order.MarketID())
	if !ok {
		return nil
	}
	if m.Status() == domain.MarketStatusOpen {
		return nil
	}

	// let the order pass through EXECUTABLE so the rejection follows the
	// same path as a cancel
	trade := order.Trade()
	trade.Lock()
	if st := order.Status(); st != domain.OrderStatusExecutable && st != domain.OrderStatusUpdating {
		if err := order.Executable(); err != nil {
			c.log.Warn("Order could not pass through EXECUTABLE",
				slog.String("control", c.name), slog.Any("order", order), slog.Any("error", err))
		}
	}
	trade.Unlock()
	return c.onError(order, "Market is not open")
}
