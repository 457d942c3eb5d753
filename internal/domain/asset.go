// Package domain defines core data structures used throughout the treasury bot.
package domain

import "github.com/pkg/errors"

// Asset describes one tracked ERC-20 token.
type Asset struct {
	// Symbol is the ledger key, e.g. "WBTC".
	Symbol string
	// Address is the token contract address (hex).
	Address string
	// Decimals is the token's on-chain precision.
	Decimals int32
	// CoingeckoID is the oracle identifier, e.g. "wrapped-bitcoin".
	CoingeckoID string
	// Stable marks the quote/treasury currency (priced at 1 USD).
	Stable bool
}

// AssetRegistry maps inbound signal tokens (e.g. "BTC") to configured assets.
type AssetRegistry struct {
	assets map[string]Asset
	order  []string
}

// NewAssetRegistry builds a registry preserving insertion order.
func NewAssetRegistry(assets map[string]Asset, order []string) *AssetRegistry {
	return &AssetRegistry{assets: assets, order: order}
}

// Lookup resolves a signal token key to its asset.
func (r *AssetRegistry) Lookup(token string) (Asset, error) {
	asset, ok := r.assets[token]
	if !ok {
		return Asset{}, errors.Wrapf(ErrUnknownAsset, "token %q", token)
	}
	return asset, nil
}

// Tradable returns the non-stable assets in registration order.
func (r *AssetRegistry) Tradable() []Asset {
	out := make([]Asset, 0, len(r.order))
	for _, key := range r.order {
		if a := r.assets[key]; !a.Stable {
			out = append(out, a)
		}
	}
	return out
}

// Stable returns the treasury quote asset, if one is registered.
func (r *AssetRegistry) Stable() (Asset, bool) {
	for _, key := range r.order {
		if a := r.assets[key]; a.Stable {
			return a, true
		}
	}
	return Asset{}, false
}

// All returns every registered asset, stable included, in registration order.
func (r *AssetRegistry) All() []Asset {
	out := make([]Asset, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.assets[key])
	}
	return out
}
