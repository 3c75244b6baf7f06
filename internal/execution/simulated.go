package execution

import (
	"context"
	"time"

	"betexec/internal/domain"
	"betexec/internal/event"

	"github.com/google/uuid"
)

// SimulatedExecution acknowledges packages in process for backtesting.
// Fills come later from market.SimulatedMiddleware.
type SimulatedExecution struct {
	base
}

var _ domain.Execution = (*SimulatedExecution)(nil)

func NewSimulatedExecution(deps Deps) *SimulatedExecution {
	return &SimulatedExecution{base: base{exchange: domain.ExchangeSimulated, deps: deps.withDefaults()}}
}

// reports acknowledges every order of the package. newBetID assigns a
// synthetic venue id.
func (e *SimulatedExecution) reports(pkg *domain.OrderPackage, newBetID bool) []domain.InstructionReport {
	now := time.Now()
	out := make([]domain.InstructionReport, 0, pkg.Len())
	for _, o := range pkg.Orders() {
		r := domain.InstructionReport{
			CustomerReference: o.ID(),
			OrderID:           o.BetID(),
			PlacedDate:        now,
		}
		if newBetID {
			r.OrderID = uuid.NewString()
		}
		out = append(out, r)
	}
	return out
}

func (e *SimulatedExecution) ExecutePlace(ctx context.Context, pkg *domain.OrderPackage) {
	defer e.observe(pkg, time.Now())
	e.applyReports(ctx, pkg, e.reports(pkg, true), func(o *domain.Order, r domain.InstructionReport) {
		o.Placed(&r)
		o.SetBetID(r.OrderID)
		if err := o.Executable(); err != nil {
			e.transitionFailed(o, domain.OrderStatusExecutable, err)
			return
		}
		e.logControl(event.TypeOrderPlaced, o)
		e.deps.Metrics.IncOrderPlaced(string(e.exchange))
	})
}

func (e *SimulatedExecution) ExecuteCancel(ctx context.Context, pkg *domain.OrderPackage) {
	defer e.observe(pkg, time.Now())
	e.applyReports(ctx, pkg, e.reports(pkg, false), func(o *domain.Order, r domain.InstructionReport) {
		r.SizeCancelled = o.SizeRemaining()
		o.Cancelled(r)
		if err := o.ExecutionComplete(); err != nil {
			e.transitionFailed(o, domain.OrderStatusExecutionComplete, err)
		}
	})
}

func (e *SimulatedExecution) ExecuteUpdate(ctx context.Context, pkg *domain.OrderPackage) {
	defer e.observe(pkg, time.Now())
	e.applyReports(ctx, pkg, e.reports(pkg, false), func(o *domain.Order, r domain.InstructionReport) {
		o.Updated(r)
		if err := o.Executable(); err != nil {
			e.transitionFailed(o, domain.OrderStatusExecutable, err)
		}
	})
}

func (e *SimulatedExecution) ExecuteReplace(ctx context.Context, pkg *domain.OrderPackage) {
	defer e.observe(pkg, time.Now())
	e.applyReports(ctx, pkg, e.reports(pkg, true), func(o *domain.Order, r domain.InstructionReport) {
		o.Replaced(r)
		o.ReplaceBetID(r.OrderID)
		if err := o.Executable(); err != nil {
			e.transitionFailed(o, domain.OrderStatusExecutable, err)
			return
		}
		e.logControl(event.TypeOrderReplaced, o)
	})
}
