package policy

import (
	"github.com/shopspring/decimal"

	"github.com/custosbot/custos/internal/domain"
)

// DecideSignal evaluates one inbound candle against the current position and
// market snapshot. A falling ("red") candle is a buy candidate sized from the
// stable balance; a rising ("green") candle is a sell candidate that fires
// only when the gain over the average entry price clears the configured
// threshold. heldQuantity is the on-chain holding the sell ratio applies to.
func DecideSignal(candle domain.Candle, position domain.AssetPosition,
	snapshot domain.MarketSnapshot, heldQuantity decimal.Decimal,
	cfg domain.AllocationConfig) domain.SignalDecision {

	if !candle.Rising() {
		amount := snapshot.BalanceUSD.Mul(cfg.RedBuyRatio)
		if amount.LessThanOrEqual(decimal.Zero) {
			return domain.NoAction(domain.ReasonInsufficientFunds)
		}
		return domain.BuyDecision(amount, domain.ReasonRedCandleBuy)
	}

	avg, err := position.AveragePrice()
	if err != nil {
		return domain.NoAction(domain.ReasonNoEntryData)
	}

	gain := snapshot.PriceUSD.Sub(avg).Div(avg)
	if gain.LessThan(cfg.GreenSellGainThreshold) {
		return domain.NoAction(domain.ReasonThresholdNotMet)
	}

	quantity := heldQuantity.Mul(cfg.GreenSellRatio)
	if quantity.LessThanOrEqual(decimal.Zero) {
		return domain.NoAction(domain.ReasonNothingToSell)
	}

	return domain.SellDecision(quantity, domain.ReasonGainAboveThreshold)
}
