package domain

import "github.com/shopspring/decimal"

// CycleState tracks the position inside the running DCA cycle. PoolUSD is
// fixed when Day is 0 and stays constant until the cycle wraps, regardless
// of wallet balance fluctuations in between.
type CycleState struct {
	// Day is the zero-based counter inside the cycle.
	Day int `json:"day"`
	// PoolUSD is the amount committed to the active cycle.
	PoolUSD decimal.Decimal `json:"pool_usd"`
}

// NewCycleState returns the initial cycle state.
func NewCycleState() CycleState {
	return CycleState{Day: 0, PoolUSD: decimal.Zero}
}
