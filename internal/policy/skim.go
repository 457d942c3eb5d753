package policy

import (
	"github.com/shopspring/decimal"

	"github.com/custosbot/custos/internal/domain"
)

// PlanSkim values the whole portfolio (stable holdings included, priced at 1)
// and returns the USD payout for this skim. Transfer mechanics are the
// caller's concern.
func PlanSkim(holdings []domain.Holding, cfg domain.AllocationConfig) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.Value())
	}
	return total.Mul(cfg.MonthlySkimRatio)
}
