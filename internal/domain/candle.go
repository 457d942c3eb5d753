package domain

import "github.com/shopspring/decimal"

// Candle is a price-bar summary received from the external signal source.
type Candle struct {
	// Open is the opening price.
	Open decimal.Decimal
	// Close is the closing price.
	Close decimal.Decimal
}

// Rising reports whether the candle closed above its open ("green").
// A flat candle counts as falling, matching the buy-biased source behavior.
func (c Candle) Rising() bool {
	return c.Close.GreaterThan(c.Open)
}
