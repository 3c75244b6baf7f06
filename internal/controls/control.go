// Package controls holds the admission controls every order passes before
// it may be sent to a venue.
package controls

import (
	"errors"
	"log/slog"

	"betexec/internal/domain"
	"betexec/internal/market"
)

// Control validates one order for one package type. A rejection moves the
// order to VIOLATION and returns a *domain.ControlError.
//
// Controls are called without the order's trade guard held.
type Control interface {
	Name() string
	Validate(order *domain.Order, packageType domain.OrderPackageType) error
}

// MarketLookup resolves a market id.
type MarketLookup interface {
	Get(id string) (*market.Market, bool)
}

// ViolationRecorder counts rejections per control.
type ViolationRecorder interface {
	IncControlViolation(control string)
}

// base carries the shared rejection path.
type base struct {
	name    string
	log     *slog.Logger
	metrics ViolationRecorder
}

func newBase(name string, log *slog.Logger, metrics ViolationRecorder) base {
	if log == nil {
		log = slog.Default()
	}
	return base{name: name, log: log, metrics: metrics}
}

func (b base) Name() string { return b.name }

// onError rejects the order under its trade guard.
func (b base) onError(order *domain.Order, msg string) error {
	trade := order.Trade()
	trade.Lock()
	err := order.Violation(msg)
	trade.Unlock()
	if err != nil {
		b.log.Error("Order violation could not be recorded",
			slog.String("control", b.name), slog.Any("order", order), slog.Any("error", err))
	}

	b.log.Warn("Order has violated a trading control",
		slog.String("control", b.name),
		slog.String("error", msg),
		slog.Any("order", order),
	)
	if b.metrics != nil {
		b.metrics.IncControlViolation(b.name)
	}
	return &domain.ControlError{Control: b.name, Msg: msg}
}

// Pipeline runs controls in order and stops at the first rejection.
type Pipeline struct {
	controls []Control
}

func NewPipeline(controls ...Control) *Pipeline {
	return &Pipeline{controls: controls}
}

// Add appends a control to the end of the pipeline.
func (p *Pipeline) Add(c Control) {
	p.controls = append(p.controls, c)
}

// Validate returns the first control error, or nil if every control passed.
func (p *Pipeline) Validate(order *domain.Order, packageType domain.OrderPackageType) error {
	for _, c := range p.controls {
		if err := c.Validate(order, packageType); err != nil {
			return err
		}
	}
	return nil
}

// Names lists the controls in execution order.
func (p *Pipeline) Names() []string {
	out := make([]string, 0, len(p.controls))
	for _, c := range p.controls {
		out = append(out, c.Name())
	}
	return out
}

// IsControlError reports whether err is an admission rejection.
func IsControlError(err error) bool {
	var ce *domain.ControlError
	return errors.As(err, &ce)
}
