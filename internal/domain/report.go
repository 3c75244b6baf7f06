package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstructionReport is the venue's per-order answer to a package call.
type InstructionReport struct {
	// ReturnCode is zero on success (BETDAQ style).
	ReturnCode int
	// ErrorCode is empty on success (Betfair style).
	ErrorCode string
	// CustomerReference echoes the local order id.
	CustomerReference string
	// OrderID is the venue bet id, empty when not assigned.
	OrderID             string
	SizeMatched         decimal.Decimal
	AveragePriceMatched decimal.Decimal
	SizeCancelled       decimal.Decimal
	PlacedDate          time.Time
}

// Failed reports whether the venue rejected the instruction.
func (r InstructionReport) Failed() bool {
	return r.ReturnCode != 0 || r.ErrorCode != ""
}

// Responses caches the raw venue answers for one order.
type Responses struct {
	DatePlaced          time.Time
	PlaceResponse       *InstructionReport
	CancelResponse      *InstructionReport
	UpdateResponse      *InstructionReport
	ReplaceResponse     *InstructionReport
	CurrentOrderUpdated time.Time
}
