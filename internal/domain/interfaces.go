package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// ClientLimits are the venue/currency minimums used by order validation.
type ClientLimits struct {
	MinBetSize       decimal.Decimal
	MinBetPayout     decimal.Decimal
	MinBSPLiability  decimal.Decimal
	MinBetValidation bool
}

// VenueClient is the transport to one exchange account. Implementations
// return a *VenueError for known failures. Reports are returned in
// instruction order and have the same length.
type VenueClient interface {
	Name() string
	Exchange() ExchangeType
	Limits() ClientLimits
	Place(ctx context.Context, marketID string, instructions []PlaceInstruction) ([]InstructionReport, error)
	Cancel(ctx context.Context, marketID string, instructions []CancelInstruction) ([]InstructionReport, error)
	Update(ctx context.Context, marketID string, instructions []UpdateInstruction) ([]InstructionReport, error)
	Replace(ctx context.Context, marketID string, instructions []ReplaceInstruction) ([]InstructionReport, error)
}

// Execution dispatches order packages to a venue and reconciles responses.
// Implementations never return errors: failures are logged and left to
// reconciliation.
type Execution interface {
	ExecutePlace(ctx context.Context, pkg *OrderPackage)
	ExecuteCancel(ctx context.Context, pkg *OrderPackage)
	ExecuteUpdate(ctx context.Context, pkg *OrderPackage)
	ExecuteReplace(ctx context.Context, pkg *OrderPackage)
}

// Strategy is the part of a trading strategy the execution core relies on.
type Strategy interface {
	Name() string
	NameHash() string
	MaxOrderExposure() decimal.Decimal
	MaxSelectionExposure() decimal.Decimal
	GetRunnerContext(marketID string, selectionID int64, handicap float64) *RunnerContext
	// ValidateOrder gives the strategy a final say; on false it should set
	// the order's violation message.
	ValidateOrder(rc *RunnerContext, order *Order) bool
}
