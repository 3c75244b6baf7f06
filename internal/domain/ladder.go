package domain

import "github.com/shopspring/decimal"

// PriceKey is a price in hundredths. Exchange prices never carry more than
// two decimals, so it is exact and can be used as a map key.
type PriceKey int64

// NewPriceKey converts a price to its key, rounding to two decimals.
func NewPriceKey(price decimal.Decimal) PriceKey {
	return PriceKey(price.Shift(2).Round(0).IntPart())
}

// Decimal converts the key back to a price.
func (k PriceKey) Decimal() decimal.Decimal {
	return decimal.New(int64(k), -2)
}

type ladderBand struct {
	upTo decimal.Decimal
	step decimal.Decimal
}

var (
	minLadderPrice = decimal.RequireFromString("1.01")
	maxLadderPrice = decimal.NewFromInt(1000)

	ladderBands = []ladderBand{
		{decimal.NewFromInt(2), decimal.RequireFromString("0.01")},
		{decimal.NewFromInt(3), decimal.RequireFromString("0.02")},
		{decimal.NewFromInt(4), decimal.RequireFromString("0.05")},
		{decimal.NewFromInt(6), decimal.RequireFromString("0.1")},
		{decimal.NewFromInt(10), decimal.RequireFromString("0.2")},
		{decimal.NewFromInt(20), decimal.RequireFromString("0.5")},
		{decimal.NewFromInt(30), decimal.NewFromInt(1)},
		{decimal.NewFromInt(50), decimal.NewFromInt(2)},
		{decimal.NewFromInt(100), decimal.NewFromInt(5)},
		{decimal.NewFromInt(1000), decimal.NewFromInt(10)},
	}
)

// IsValidPrice reports whether price is a tick on the exchange ladder
// (1.01 to 1000).
func IsValidPrice(price decimal.Decimal) bool {
	if price.LessThan(minLadderPrice) || price.GreaterThan(maxLadderPrice) {
		return false
	}
	lower := decimal.NewFromInt(1)
	for _, band := range ladderBands {
		if price.LessThanOrEqual(band.upTo) {
			return price.Sub(lower).Mod(band.step).IsZero()
		}
		lower = band.upTo
	}
	return false
}

// HasMaxTwoDecimals reports whether v has at most two decimal places.
func HasMaxTwoDecimals(v decimal.Decimal) bool {
	return v.Equal(v.Round(2))
}
