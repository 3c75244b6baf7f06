package execution

import (
	"context"
	"time"

	"betexec/internal/domain"

	"github.com/google/uuid"
)

// SimulatedClient is a VenueClient that accepts every instruction without
// reaching a venue. It carries the account limits for order validation
// when running a backtest or a paper account.
type SimulatedClient struct {
	name     string
	exchange domain.ExchangeType
	limits   domain.ClientLimits
}

var _ domain.VenueClient = (*SimulatedClient)(nil)

func NewSimulatedClient(name string, exchange domain.ExchangeType, limits domain.ClientLimits) *SimulatedClient {
	if exchange == "" {
		exchange = domain.ExchangeSimulated
	}
	return &SimulatedClient{name: name, exchange: exchange, limits: limits}
}

func (c *SimulatedClient) Name() string                  { return c.name }
func (c *SimulatedClient) Exchange() domain.ExchangeType { return c.exchange }
func (c *SimulatedClient) Limits() domain.ClientLimits   { return c.limits }

func (c *SimulatedClient) Place(_ context.Context, _ string, instructions []domain.PlaceInstruction) ([]domain.InstructionReport, error) {
	now := time.Now()
	out := make([]domain.InstructionReport, len(instructions))
	for i, in := range instructions {
		out[i] = domain.InstructionReport{
			CustomerReference: in.CustomerReference,
			OrderID:           uuid.NewString(),
			PlacedDate:        now,
		}
	}
	return out, nil
}

func (c *SimulatedClient) Cancel(_ context.Context, _ string, instructions []domain.CancelInstruction) ([]domain.InstructionReport, error) {
	out := make([]domain.InstructionReport, len(instructions))
	for i, in := range instructions {
		out[i] = domain.InstructionReport{CustomerReference: in.CustomerReference, OrderID: in.BetID}
	}
	return out, nil
}

func (c *SimulatedClient) Update(_ context.Context, _ string, instructions []domain.UpdateInstruction) ([]domain.InstructionReport, error) {
	out := make([]domain.InstructionReport, len(instructions))
	for i, in := range instructions {
		out[i] = domain.InstructionReport{CustomerReference: in.CustomerReference, OrderID: in.BetID}
	}
	return out, nil
}

func (c *SimulatedClient) Replace(_ context.Context, _ string, instructions []domain.ReplaceInstruction) ([]domain.InstructionReport, error) {
	out := make([]domain.InstructionReport, len(instructions))
	for i, in := range instructions {
		out[i] = domain.InstructionReport{CustomerReference: in.CustomerReference, OrderID: uuid.NewString()}
	}
	return out, nil
}
