package execution

import (
	"context"
	"log/slog"
	"time"

	"betexec/internal/domain"
	"betexec/internal/event"
	"betexec/internal/infra"
	"betexec/internal/market"
)

// Recorder receives execution metrics.
type Recorder interface {
	IncOrderPlaced(exchange string)
	IncExecutionError(exchange, kind string)
	IncCorrelationFault(exchange string)
	ObservePackageLatency(exchange, packageType string, seconds float64)
}

type nopRecorder struct{}

func (nopRecorder) IncOrderPlaced(string)                         {}
func (nopRecorder) IncExecutionError(string, string)              {}
func (nopRecorder) IncCorrelationFault(string)                    {}
func (nopRecorder) ObservePackageLatency(string, string, float64) {}

// Deps are the collaborators shared by every execution.
type Deps struct {
	Markets *market.Markets
	Sink    event.Sink
	Log     *slog.Logger
	Metrics Recorder
}

func (d Deps) withDefaults() Deps {
	if d.Sink == nil {
		d.Sink = event.NopSink{}
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = nopRecorder{}
	}
	if d.Markets == nil {
		d.Markets = market.NewMarkets()
	}
	return d
}

// base holds the response handling common to live and simulated execution.
type base struct {
	exchange domain.ExchangeType
	deps     Deps
}

// reportFunc applies one venue report to its order. It runs with the
// order's trade guard held.
type reportFunc func(o *domain.Order, r domain.InstructionReport)

// callFailed logs a failed venue call. The package is abandoned: its orders
// keep their state until reconciliation finds the venue-side outcome.
func (b *base) callFailed(ctx context.Context, pkg *domain.OrderPackage, err error) {
	if domain.IsVenueError(err) {
		b.deps.Log.Error("Execution error",
			slog.Any("package", pkg), slog.Any("error", err))
		b.deps.Metrics.IncExecutionError(string(b.exchange), "venue")
		return
	}
	b.deps.Log.Log(ctx, infra.LevelCritical, "Execution unknown error",
		slog.Any("package", pkg), slog.Any("error", err))
	b.deps.Metrics.IncExecutionError(string(b.exchange), "unknown")
}

// applyReports pairs orders with reports in submission order. A report
// whose customer reference does not echo the order id is a correlation
// fault: the order is left untouched.
func (b *base) applyReports(ctx context.Context, pkg *domain.OrderPackage, reports []domain.InstructionReport, fn reportFunc) {
	orders := pkg.Orders()
	if len(orders) != len(reports) {
		b.deps.Log.Log(ctx, infra.LevelCritical, "Report count does not match package",
			slog.Any("package", pkg),
			slog.Int("orders", len(orders)),
			slog.Int("reports", len(reports)),
		)
	}

	for i, o := range orders {
		if i >= len(reports) {
			break
		}
		r := reports[i]
		if r.CustomerReference != o.ID() {
			b.deps.Log.Log(ctx, infra.LevelCritical, "Order id / customer reference mismatch",
				slog.Any("order", o),
				slog.String("customer_reference", r.CustomerReference),
				slog.String("package_type", string(pkg.Type())),
			)
			b.deps.Metrics.IncCorrelationFault(string(b.exchange))
			continue
		}

		trade := o.Trade()
		trade.Lock()
		fn(o, r)
		trade.Unlock()

		if o.Complete() {
			b.complete(pkg.MarketID(), o)
		}
	}
}

func (b *base) complete(marketID string, o *domain.Order) {
	if m, ok := b.deps.Markets.Get(marketID); ok {
		m.CompleteOrder(o)
	}
}

func (b *base) logControl(kind event.Type, o *domain.Order) {
	b.deps.Sink.LogControl(event.NewOrderEvent(kind, o))
}

func (b *base) observe(pkg *domain.OrderPackage, start time.Time) {
	b.deps.Metrics.ObservePackageLatency(string(b.exchange), string(pkg.Type()), time.Since(start).Seconds())
}

func (b *base) transitionFailed(o *domain.Order, to domain.OrderStatus, err error) {
	b.deps.Log.Warn("Order status not changed",
		slog.Any("order", o),
		slog.String("to", string(to)),
		slog.Any("error", err),
	)
}
