package domain

import "github.com/shopspring/decimal"

// SwapResult reports the outcome of one swap submitted through the relay.
// Ledger mutations are committed only when Confirmed is true.
type SwapResult struct {
	// Confirmed is true once the relay confirmed the batch.
	Confirmed bool
	// ExecutedQuantity is the asset quantity bought or sold.
	ExecutedQuantity decimal.Decimal
	// ExecutedPriceUSD is the oracle price the sizing was based on.
	ExecutedPriceUSD decimal.Decimal
	// TxHash identifies the multisig transaction.
	TxHash string
}
