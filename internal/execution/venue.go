package execution

import (
	"context"
	"log/slog"
	"time"

	"betexec/internal/domain"
	"betexec/internal/event"
)

// VenueExecution sends order packages to a live venue through the package's
// client and applies the instruction reports to the orders. It must be
// driven from a single goroutine per exchange (see engine.Sequencer).
type VenueExecution struct {
	base
}

var _ domain.Execution = (*VenueExecution)(nil)

func NewVenueExecution(exchange domain.ExchangeType, deps Deps) *VenueExecution {
	return &VenueExecution{base: base{exchange: exchange, deps: deps.withDefaults()}}
}

func (e *VenueExecution) ExecutePlace(ctx context.Context, pkg *domain.OrderPackage) {
	start := time.Now()
	reports, err := pkg.Client().Place(ctx, pkg.MarketID(), pkg.PlaceInstructions())
	e.observe(pkg, start)
	if err != nil {
		e.callFailed(ctx, pkg, err)
		return
	}
	e.applyReports(ctx, pkg, reports, e.placed)
}

func (e *VenueExecution) placed(o *domain.Order, r domain.InstructionReport) {
	o.Placed(&r)
	if r.Failed() {
		e.deps.Log.Warn("Order place rejected",
			slog.Any("order", o),
			slog.Int("return_code", r.ReturnCode),
			slog.String("error_code", r.ErrorCode),
		)
		if err := o.ExecutionComplete(); err != nil {
			e.transitionFailed(o, domain.OrderStatusExecutionComplete, err)
		}
		return
	}

	if r.OrderID != "" && !o.SetBetID(r.OrderID) {
		e.deps.Log.Warn("Bet id already assigned",
			slog.Any("order", o), slog.String("report_bet_id", r.OrderID))
	}
	// async placements get their bet id from the current orders poll
	if o.Async() && o.BetID() == "" {
		return
	}
	if err := o.Executable(); err != nil {
		e.transitionFailed(o, domain.OrderStatusExecutable, err)
		return
	}
	e.logControl(event.TypeOrderPlaced, o)
	e.deps.Metrics.IncOrderPlaced(string(e.exchange))
}

func (e *VenueExecution) ExecuteCancel(ctx context.Context, pkg *domain.OrderPackage) {
	start := time.Now()
	reports, err := pkg.Client().Cancel(ctx, pkg.MarketID(), pkg.CancelInstructions())
	e.observe(pkg, start)
	if err != nil {
		e.callFailed(ctx, pkg, err)
		return
	}
	e.applyReports(ctx, pkg, reports, e.cancelled)
}

func (e *VenueExecution) cancelled(o *domain.Order, r domain.InstructionReport) {
	o.Cancelled(r)
	if err := o.ExecutionComplete(); err != nil {
		e.transitionFailed(o, domain.OrderStatusExecutionComplete, err)
	}
}

func (e *VenueExecution) ExecuteUpdate(ctx context.Context, pkg *domain.OrderPackage) {
	start := time.Now()
	reports, err := pkg.Client().Update(ctx, pkg.MarketID(), pkg.UpdateInstructions())
	e.observe(pkg, start)
	if err != nil {
		e.callFailed(ctx, pkg, err)
		return
	}
	e.applyReports(ctx, pkg, reports, func(o *domain.Order, r domain.InstructionReport) {
		o.Updated(r)
	})
}

func (e *VenueExecution) ExecuteReplace(ctx context.Context, pkg *domain.OrderPackage) {
	start := time.Now()
	reports, err := pkg.Client().Replace(ctx, pkg.MarketID(), pkg.ReplaceInstructions())
	e.observe(pkg, start)
	if err != nil {
		e.callFailed(ctx, pkg, err)
		return
	}
	e.applyReports(ctx, pkg, reports, e.replaced)
}

func (e *VenueExecution) replaced(o *domain.Order, r domain.InstructionReport) {
	o.Replaced(r)
	if r.Failed() {
		e.deps.Log.Warn("Order replace rejected",
			slog.Any("order", o),
			slog.Int("return_code", r.ReturnCode),
			slog.String("error_code", r.ErrorCode),
		)
		return
	}
	o.ReplaceBetID(r.OrderID)
	e.logControl(event.TypeOrderReplaced, o)
}
