package domain

import "github.com/pkg/errors"

// Sentinel errors shared across the treasury core. Callers match them with
// errors.Is after collaborator wrapping.
var (
	// ErrInvalidInput rejects non-positive cost, price or quantity inputs
	// before any state is mutated.
	ErrInvalidInput = errors.New("invalid input: cost and price must be positive")

	// ErrNoPosition is returned when an average entry price is requested for
	// an asset with zero accumulated quantity.
	ErrNoPosition = errors.New("no average-entry data")

	// ErrUnknownAsset is returned for signals referencing an asset outside
	// the configured set.
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrPriceUnavailable is returned when the price oracle has no quote.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrRelay is returned when the multisig transaction relay rejects or
	// fails to confirm a batch.
	ErrRelay = errors.New("relay failure")

	// ErrSwapRejected is returned when the swap executor could not place a
	// trade. No ledger mutation happens after it.
	ErrSwapRejected = errors.New("swap rejected")
)
