package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketSnapshot is a consistent view of the inputs a trade decision needs:
// treasury balance and asset price captured together, stamped with the
// capture time. Decisions read the snapshot instead of re-fetching, so a
// multi-step evaluation cannot drift between checks.
type MarketSnapshot struct {
	BalanceUSD decimal.Decimal
	PriceUSD   decimal.Decimal
	AsOf       time.Time
}

// Holding is one asset's quantity and spot price used for portfolio valuation.
type Holding struct {
	Symbol   string
	Quantity decimal.Decimal
	PriceUSD decimal.Decimal
}

// Value returns the USD value of the holding.
func (h Holding) Value() decimal.Decimal {
	return h.Quantity.Mul(h.PriceUSD)
}
