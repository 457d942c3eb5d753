package domain

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// AssetPosition tracks the lifetime cost basis of one asset: cumulative USD
// spent and cumulative quantity acquired across all recorded buys. Sells do
// not reduce either field, the basis is intentionally lifetime-scoped.
type AssetPosition struct {
	Symbol       string          `json:"symbol"`
	TotalCostUSD decimal.Decimal `json:"total_cost_usd"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// NewAssetPosition creates an empty position for the symbol.
func NewAssetPosition(symbol string) AssetPosition {
	return AssetPosition{
		Symbol:       symbol,
		TotalCostUSD: decimal.Zero,
		TotalAmount:  decimal.Zero,
	}
}

// ApplyBuy adds a confirmed buy to the position. Quantity is derived as
// costUSD/priceUSD. Rejects non-positive inputs before mutating.
func (p *AssetPosition) ApplyBuy(costUSD, priceUSD decimal.Decimal) error {
	if costUSD.LessThanOrEqual(decimal.Zero) {
		return errors.Wrapf(ErrInvalidInput, "cost %s", costUSD.String())
	}
	if priceUSD.LessThanOrEqual(decimal.Zero) {
		return errors.Wrapf(ErrInvalidInput, "price %s", priceUSD.String())
	}

	p.TotalCostUSD = p.TotalCostUSD.Add(costUSD)
	p.TotalAmount = p.TotalAmount.Add(costUSD.Div(priceUSD))
	return nil
}

// AveragePrice returns the cost-weighted average entry price. Fails with
// ErrNoPosition when nothing has been accumulated yet.
func (p AssetPosition) AveragePrice() (decimal.Decimal, error) {
	if p.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, errors.Wrapf(ErrNoPosition, "asset %s", p.Symbol)
	}
	return p.TotalCostUSD.Div(p.TotalAmount), nil
}

// IsEmpty reports whether the position has recorded no buys.
func (p AssetPosition) IsEmpty() bool {
	return p.TotalAmount.LessThanOrEqual(decimal.Zero)
}
