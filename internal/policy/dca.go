// Package policy holds the pure allocation math: DCA tranche sizing, skim
// payout computation and candle-signal trade decisions. Every function is
// side-effect free, state goes in and comes out explicitly.
package policy

import (
	"github.com/shopspring/decimal"

	"github.com/custosbot/custos/internal/domain"
)

// DCAPlan is the outcome of one daily DCA evaluation: the USD tranche per
// tradable asset and the advanced cycle state to persist after execution.
type DCAPlan struct {
	Tranches map[string]decimal.Decimal
	Cycle    domain.CycleState
}

// PlanDailyDCA computes today's tranches. The cycle pool is recomputed from
// the wallet balance only on day 0; for the rest of the cycle it stays
// fixed no matter how the balance moves. The day counter wraps to 0 when the
// configured duration is reached, so the next run starts a fresh cycle.
func PlanDailyDCA(walletBalanceUSD decimal.Decimal, cycle domain.CycleState,
	assets []domain.Asset, cfg domain.AllocationConfig) DCAPlan {

	if cycle.Day == 0 {
		cycle.PoolUSD = walletBalanceUSD.Mul(cfg.DCASplitRatio)
	}

	daily := cycle.PoolUSD.Div(decimal.NewFromInt(int64(cfg.DCADurationDays)))

	tranches := make(map[string]decimal.Decimal, len(assets))
	for _, asset := range assets {
		tranches[asset.Symbol] = daily.Mul(cfg.DCATokenSplit)
	}

	cycle.Day++
	if cycle.Day >= cfg.DCADurationDays {
		cycle.Day = 0
	}

	return DCAPlan{Tranches: tranches, Cycle: cycle}
}
