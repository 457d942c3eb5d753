package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AllocationConfig carries the immutable ratio set driving every allocation
// decision. Loaded once at startup and passed into policy calls explicitly.
type AllocationConfig struct {
	// DCASplitRatio is the share of the wallet balance committed to a cycle.
	DCASplitRatio decimal.Decimal
	// DCADurationDays is the cycle length in daily tranches.
	DCADurationDays int
	// DCATokenSplit is each tradable asset's share of the daily tranche.
	DCATokenSplit decimal.Decimal
	// MonthlySkimRatio is the share of total portfolio value paid out monthly.
	MonthlySkimRatio decimal.Decimal
	// RedBuyRatio is the share of the wallet balance bought on a red candle.
	RedBuyRatio decimal.Decimal
	// GreenSellRatio is the share of held quantity sold on a qualifying green candle.
	GreenSellRatio decimal.Decimal
	// GreenSellGainThreshold is the minimum gain over average entry to sell.
	GreenSellGainThreshold decimal.Decimal
}

// Validate checks that all ratios are fractions in [0, 1], the cycle has a
// positive duration, and the per-asset split across numTradable assets does
// not allocate more than the whole daily tranche.
func (c AllocationConfig) Validate(numTradable int) error {
	ratios := map[string]decimal.Decimal{
		"dca_split_ratio":           c.DCASplitRatio,
		"dca_token_split":           c.DCATokenSplit,
		"monthly_skim_ratio":        c.MonthlySkimRatio,
		"red_buy_ratio":             c.RedBuyRatio,
		"green_sell_ratio":          c.GreenSellRatio,
		"green_sell_gain_threshold": c.GreenSellGainThreshold,
	}
	one := decimal.NewFromInt(1)
	for name, r := range ratios {
		if r.IsNegative() || r.GreaterThan(one) {
			return fmt.Errorf("%s must be a fraction in [0, 1], got %s", name, r.String())
		}
	}

	if c.DCADurationDays < 1 {
		return fmt.Errorf("dca_duration_days must be at least 1, got %d", c.DCADurationDays)
	}

	if numTradable > 0 {
		total := c.DCATokenSplit.Mul(decimal.NewFromInt(int64(numTradable)))
		if total.GreaterThan(one) {
			return fmt.Errorf("dca_token_split %s across %d assets exceeds the daily tranche",
				c.DCATokenSplit.String(), numTradable)
		}
	}

	return nil
}
