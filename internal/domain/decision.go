package domain

import "github.com/shopspring/decimal"

// DecisionKind classifies the outcome of one signal evaluation.
type DecisionKind int

const (
	// DecideNothing means the signal produced no trade.
	DecideNothing DecisionKind = iota
	// DecideBuy means spend AmountUSD of the stable currency on the asset.
	DecideBuy
	// DecideSell means sell Quantity of the asset back to the stable currency.
	DecideSell
)

// Decision reasons surfaced through the webhook boundary.
const (
	ReasonRedCandleBuy       = "red candle buy"
	ReasonGainAboveThreshold = "gain above threshold"
	ReasonNoEntryData        = "no average-entry data"
	ReasonThresholdNotMet    = "gain threshold not met"
	ReasonInsufficientFunds  = "insufficient balance"
	ReasonNothingToSell      = "no quantity to sell"
)

// SignalDecision is the result of evaluating one inbound candle signal.
// Each evaluation is stateless given the current ledger, balance and price.
type SignalDecision struct {
	Kind      DecisionKind
	AmountUSD decimal.Decimal
	Quantity  decimal.Decimal
	Reason    string
}

// NoAction builds an empty decision carrying the reason it was skipped.
func NoAction(reason string) SignalDecision {
	return SignalDecision{Kind: DecideNothing, Reason: reason}
}

// BuyDecision builds a buy for the given stable amount.
func BuyDecision(amountUSD decimal.Decimal, reason string) SignalDecision {
	return SignalDecision{Kind: DecideBuy, AmountUSD: amountUSD, Reason: reason}
}

// SellDecision builds a sell for the given asset quantity.
func SellDecision(quantity decimal.Decimal, reason string) SignalDecision {
	return SignalDecision{Kind: DecideSell, Quantity: quantity, Reason: reason}
}

// Action maps the decision to a trade direction. Only valid for buy/sell kinds.
func (d SignalDecision) Action() Action {
	if d.Kind == DecideSell {
		return ActionSell
	}
	return ActionBuy
}
