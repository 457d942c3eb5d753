package policy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/custosbot/custos/internal/domain"
)

func snapshotAt(balance, price int64) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		BalanceUSD: decimal.NewFromInt(balance),
		PriceUSD:   decimal.NewFromInt(price),
		AsOf:       time.Now(),
	}
}

func TestDecideSignalRedCandleBuys(t *testing.T) {
	cfg := testAllocation()
	candle := domain.Candle{Open: decimal.NewFromInt(100), Close: decimal.NewFromInt(90)}

	decision := DecideSignal(candle, domain.NewAssetPosition("WBTC"),
		snapshotAt(1000, 90), decimal.Zero, cfg)

	require.Equal(t, domain.DecideBuy, decision.Kind)
	require.True(t, decision.AmountUSD.Equal(decimal.NewFromInt(50)), "got %s", decision.AmountUSD)
	require.Equal(t, domain.ActionBuy, decision.Action())
}

func TestDecideSignalRedCandleEmptyWallet(t *testing.T) {
	cfg := testAllocation()
	candle := domain.Candle{Open: decimal.NewFromInt(100), Close: decimal.NewFromInt(90)}

	decision := DecideSignal(candle, domain.NewAssetPosition("WBTC"),
		snapshotAt(0, 90), decimal.Zero, cfg)

	require.Equal(t, domain.DecideNothing, decision.Kind)
	require.Equal(t, domain.ReasonInsufficientFunds, decision.Reason)
}

func TestDecideSignalGreenCandleNoEntryData(t *testing.T) {
	cfg := testAllocation()
	candle := domain.Candle{Open: decimal.NewFromInt(100), Close: decimal.NewFromInt(110)}

	decision := DecideSignal(candle, domain.NewAssetPosition("WBTC"),
		snapshotAt(1000, 110), decimal.NewFromInt(10), cfg)

	require.Equal(t, domain.DecideNothing, decision.Kind)
	require.Equal(t, domain.ReasonNoEntryData, decision.Reason)
}

func TestDecideSignalGreenCandleSellsAboveThreshold(t *testing.T) {
	cfg := testAllocation()
	candle := domain.Candle{Open: decimal.NewFromInt(100), Close: decimal.NewFromInt(110)}

	position := domain.NewAssetPosition("WBTC")
	require.NoError(t, position.ApplyBuy(decimal.NewFromInt(1000), decimal.NewFromInt(100)))

	// avg = 100, current = 110 -> gain 10% >= 6% threshold
	decision := DecideSignal(candle, position, snapshotAt(1000, 110), decimal.NewFromInt(10), cfg)

	require.Equal(t, domain.DecideSell, decision.Kind)
	require.True(t, decision.Quantity.Equal(decimal.NewFromFloat(0.5)), "got %s", decision.Quantity)
	require.Equal(t, domain.ActionSell, decision.Action())
}

func TestDecideSignalGreenCandleBelowThreshold(t *testing.T) {
	cfg := testAllocation()
	candle := domain.Candle{Open: decimal.NewFromInt(100), Close: decimal.NewFromInt(110)}

	position := domain.NewAssetPosition("WBTC")
	require.NoError(t, position.ApplyBuy(decimal.NewFromInt(1000), decimal.NewFromInt(100)))

	// avg = 100, current = 103 -> gain 3% < 6%
	decision := DecideSignal(candle, position, snapshotAt(1000, 103), decimal.NewFromInt(10), cfg)

	require.Equal(t, domain.DecideNothing, decision.Kind)
	require.Equal(t, domain.ReasonThresholdNotMet, decision.Reason)
}

func TestDecideSignalGreenCandleNothingHeld(t *testing.T) {
	cfg := testAllocation()
	candle := domain.Candle{Open: decimal.NewFromInt(100), Close: decimal.NewFromInt(110)}

	position := domain.NewAssetPosition("WBTC")
	require.NoError(t, position.ApplyBuy(decimal.NewFromInt(1000), decimal.NewFromInt(100)))

	decision := DecideSignal(candle, position, snapshotAt(1000, 110), decimal.Zero, cfg)

	require.Equal(t, domain.DecideNothing, decision.Kind)
	require.Equal(t, domain.ReasonNothingToSell, decision.Reason)
}

func TestDecideSignalFlatCandleCountsAsRed(t *testing.T) {
	cfg := testAllocation()
	candle := domain.Candle{Open: decimal.NewFromInt(100), Close: decimal.NewFromInt(100)}

	decision := DecideSignal(candle, domain.NewAssetPosition("WETH"),
		snapshotAt(200, 100), decimal.Zero, cfg)

	require.Equal(t, domain.DecideBuy, decision.Kind)
}
