package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAssetPositionApplyBuy(t *testing.T) {
	pos := NewAssetPosition("WBTC")

	err := pos.ApplyBuy(decimal.NewFromInt(1000), decimal.NewFromInt(50000))
	require.NoError(t, err)

	require.True(t, pos.TotalCostUSD.Equal(decimal.NewFromInt(1000)))
	require.True(t, pos.TotalAmount.Equal(decimal.NewFromFloat(0.02)))

	avg, err := pos.AveragePrice()
	require.NoError(t, err)
	require.True(t, avg.Equal(decimal.NewFromInt(50000)))
}

func TestAssetPositionApplyBuyRejectsNonPositive(t *testing.T) {
	pos := NewAssetPosition("WETH")

	err := pos.ApplyBuy(decimal.Zero, decimal.NewFromInt(3000))
	require.True(t, errors.Is(err, ErrInvalidInput))

	err = pos.ApplyBuy(decimal.NewFromInt(100), decimal.NewFromInt(-1))
	require.True(t, errors.Is(err, ErrInvalidInput))

	// rejected buys must leave the position untouched
	require.True(t, pos.IsEmpty())
	require.True(t, pos.TotalCostUSD.IsZero())
}

func TestAssetPositionAveragePriceNoData(t *testing.T) {
	pos := NewAssetPosition("WBTC")

	_, err := pos.AveragePrice()
	require.True(t, errors.Is(err, ErrNoPosition))
}

func TestAssetPositionWeightedAverage(t *testing.T) {
	pos := NewAssetPosition("WETH")

	require.NoError(t, pos.ApplyBuy(decimal.NewFromInt(1000), decimal.NewFromInt(2000)))
	require.NoError(t, pos.ApplyBuy(decimal.NewFromInt(1000), decimal.NewFromInt(4000)))

	// 2000 USD for 0.5 + 0.25 units -> 2666.66... average
	avg, err := pos.AveragePrice()
	require.NoError(t, err)

	expected := decimal.NewFromInt(2000).Div(decimal.NewFromFloat(0.75))
	require.True(t, avg.Equal(expected), "got %s", avg)
}

func TestAssetRegistryLookup(t *testing.T) {
	registry := NewAssetRegistry(map[string]Asset{
		"BTC":  {Symbol: "WBTC", CoingeckoID: "wrapped-bitcoin"},
		"USDC": {Symbol: "USDC", CoingeckoID: "usd-coin", Stable: true},
	}, []string{"BTC", "USDC"})

	asset, err := registry.Lookup("BTC")
	require.NoError(t, err)
	require.Equal(t, "WBTC", asset.Symbol)

	_, err = registry.Lookup("DOGE")
	require.True(t, errors.Is(err, ErrUnknownAsset))

	tradable := registry.Tradable()
	require.Len(t, tradable, 1)
	require.Equal(t, "WBTC", tradable[0].Symbol)
}
