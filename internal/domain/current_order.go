package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Venue order statuses reported by current-order polling.
const (
	CurrentStatusExecutable        = "EXECUTABLE"
	CurrentStatusExecutionComplete = "EXECUTION_COMPLETE"
	CurrentStatusExpired           = "EXPIRED"

	BetdaqStatusUnmatched = "Unmatched"
	BetdaqStatusMatched   = "Matched"
	BetdaqStatusCancelled = "Cancelled"
	BetdaqStatusSettled   = "Settled"
	BetdaqStatusVoid      = "Void"
)

// CurrentOrder is a venue snapshot of one order.
type CurrentOrder struct {
	BetID       string
	MarketID    string
	SelectionID int64
	Handicap    float64
	// CustomerOrderRef is "<strategy hash>I<order id>".
	CustomerOrderRef string
	// CustomerReference is the bare local order id (BETDAQ).
	CustomerReference string
	Side              Side
	OrderType         OrderTypeName
	Price             decimal.Decimal
	Size              decimal.Decimal
	Liability         decimal.Decimal
	PersistenceType   string
	Status            string
	// SequenceNumber increases with every venue-side change; zero when the
	// venue does not provide one.
	SequenceNumber int64

	HasMatchState       bool
	SizeMatched         decimal.Decimal
	SizeRemaining       decimal.Decimal
	AveragePriceMatched decimal.Decimal
	PlacedDate          time.Time
}

// BetdaqTerminal reports whether a BETDAQ status is final.
func BetdaqTerminal(status string) bool {
	switch status {
	case BetdaqStatusMatched, BetdaqStatusCancelled, BetdaqStatusSettled, BetdaqStatusVoid:
		return true
	default:
		return false
	}
}
