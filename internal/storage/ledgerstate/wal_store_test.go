package ledgerstate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/custosbot/custos/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

func TestStorePositionRoundtrip(t *testing.T) {
	store := newTestStore(t)

	pos := domain.NewAssetPosition("WBTC")
	require.NoError(t, pos.ApplyBuy(decimal.NewFromInt(500), decimal.NewFromInt(50000)))
	require.NoError(t, store.SavePosition(pos))

	loaded, err := store.LoadPositions()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.True(t, loaded["WBTC"].TotalCostUSD.Equal(decimal.NewFromInt(500)))
}

func TestStoreLatestPositionWins(t *testing.T) {
	store := newTestStore(t)

	pos := domain.NewAssetPosition("WETH")
	require.NoError(t, pos.ApplyBuy(decimal.NewFromInt(100), decimal.NewFromInt(2000)))
	require.NoError(t, store.SavePosition(pos))

	require.NoError(t, pos.ApplyBuy(decimal.NewFromInt(100), decimal.NewFromInt(2500)))
	require.NoError(t, store.SavePosition(pos))

	loaded, err := store.LoadPositions()
	require.NoError(t, err)
	require.True(t, loaded["WETH"].TotalCostUSD.Equal(decimal.NewFromInt(200)))
}

func TestStoreCycleDefaultsWhenEmpty(t *testing.T) {
	store := newTestStore(t)

	cycle, err := store.LoadCycle()
	require.NoError(t, err)
	require.Equal(t, 0, cycle.Day)
	require.True(t, cycle.PoolUSD.IsZero())
}

func TestStoreCycleRoundtrip(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveCycle(domain.CycleState{Day: 7, PoolUSD: decimal.NewFromInt(8000)}))
	require.NoError(t, store.SaveCycle(domain.CycleState{Day: 8, PoolUSD: decimal.NewFromInt(8000)}))

	cycle, err := store.LoadCycle()
	require.NoError(t, err)
	require.Equal(t, 8, cycle.Day)
	require.True(t, cycle.PoolUSD.Equal(decimal.NewFromInt(8000)))
}

func TestStoreSignalJournal(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveSignalOutcome(SignalRecord{
		ID:        "a1",
		Token:     "BTC",
		Action:    "buy",
		Reason:    domain.ReasonRedCandleBuy,
		AmountUSD: "50",
		Timestamp: time.Now().Unix(),
	}))
	require.NoError(t, store.SaveSignalOutcome(SignalRecord{
		ID:     "a2",
		Token:  "ETH",
		Action: "none",
		Reason: domain.ReasonNoEntryData,
	}))

	records, err := store.SignalOutcomes()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "BTC", records[0].Token)
	require.Equal(t, domain.ReasonNoEntryData, records[1].Reason)
}
