package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketStatus is the venue trading status of a market.
type MarketStatus string

const (
	MarketStatusOpen      MarketStatus = "OPEN"
	MarketStatusSuspended MarketStatus = "SUSPENDED"
	MarketStatusClosed    MarketStatus = "CLOSED"
	MarketStatusInactive  MarketStatus = "INACTIVE"
)

// RunnerStatusActive marks a runner that can still be traded.
const RunnerStatusActive = "ACTIVE"

// PriceSize is one ladder level.
type PriceSize struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// RunnerBook is the snapshot of one selection.
// Ladders are ordered best price first.
type RunnerBook struct {
	SelectionID     int64           `json:"selection_id"`
	Handicap        float64         `json:"handicap"`
	Status          string          `json:"status"`
	LastPriceTraded decimal.Decimal `json:"last_price_traded"`
	AvailableToBack []PriceSize     `json:"available_to_back"`
	AvailableToLay  []PriceSize     `json:"available_to_lay"`
	TradedVolume    []PriceSize     `json:"traded_volume"`
}

// BestBack returns the best available-to-back price.
func (r RunnerBook) BestBack() (decimal.Decimal, bool) {
	if len(r.AvailableToBack) == 0 {
		return decimal.Zero, false
	}
	return r.AvailableToBack[0].Price, true
}

// BestLay returns the best available-to-lay price.
func (r RunnerBook) BestLay() (decimal.Decimal, bool) {
	if len(r.AvailableToLay) == 0 {
		return decimal.Zero, false
	}
	return r.AvailableToLay[0].Price, true
}

// MarketBook is a market data snapshot.
type MarketBook struct {
	MarketID    string       `json:"market_id"`
	Status      MarketStatus `json:"status"`
	InPlay      bool         `json:"in_play"`
	PublishTime time.Time    `json:"publish_time"`
	Runners     []RunnerBook `json:"runners"`
}

// Runner returns the runner book for a selection.
func (m *MarketBook) Runner(selectionID int64, handicap float64) (RunnerBook, bool) {
	for _, r := range m.Runners {
		if r.SelectionID == selectionID && r.Handicap == handicap {
			return r, true
		}
	}
	return RunnerBook{}, false
}
