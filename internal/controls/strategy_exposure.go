package controls

import (
	"fmt"
	"log/slog"

	"betexec/internal/domain"

	"github.com/shopspring/decimal"
)

// StrategyExposure enforces the strategy's per-order and per-selection
// exposure limits, and gives the strategy a final say on new orders.
type StrategyExposure struct {
	base
	markets MarketLookup
}

func NewStrategyExposure(markets MarketLookup, log *slog.Logger, metrics ViolationRecorder) *StrategyExposure {
	return &StrategyExposure{base: newBase("STRATEGY_EXPOSURE", log, metrics), markets: markets}
}

func (c *StrategyExposure) Validate(order *domain.Order, packageType domain.OrderPackageType) error {
	strategy := order.Trade().Strategy()
	if strategy == nil {
		return nil
	}

	if packageType == domain.OrderPackagePlace {
		rc := strategy.GetRunnerContext(order.MarketID(), order.SelectionID(), order.Handicap())
		if !strategy.ValidateOrder(rc, order) {
			return c.onError(order, order.ViolationMsg())
		}
	}

	if packageType != domain.OrderPackagePlace && packageType != domain.OrderPackageReplace {
		return nil
	}

	ot := order.OrderType()
	var exclusion *domain.Order
	if packageType == domain.OrderPackageReplace {
		exclusion = order
		if price := order.PendingPrice(); price.IsPositive() {
			ot.Price = price
		}
	}

	orderExposure, ok := ot.Exposure(order.Side())
	if !ok {
		return nil
	}
	if orderExposure.GreaterThan(strategy.MaxOrderExposure()) {
		return c.onError(order, fmt.Sprintf(
			"Order exposure (%s) is greater than strategy.max_order_exposure (%s)",
			orderExposure, strategy.MaxOrderExposure()))
	}

	current := decimal.Zero
	if m, ok := c.markets.Get(order.MarketID()); ok {
		e := m.Blotter().GetExposures(strategy, order.SelectionID(), order.Handicap(), exclusion)
		if order.Side() == domain.SideBack {
			current = e.WorstPossibleProfitOnLose.Neg()
		} else {
			current = e.WorstPossibleProfitOnWin.Neg()
		}
	}
	potential := current.Add(orderExposure)
	if potential.GreaterThan(strategy.MaxSelectionExposure()) {
		return c.onError(order, fmt.Sprintf(
			"Potential selection exposure (%s) is greater than strategy.max_selection_exposure (%s)",
			potential.StringFixed(2), strategy.MaxSelectionExposure()))
	}
	return nil
}
