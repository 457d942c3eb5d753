package ledger

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/custosbot/custos/internal/domain"
	"github.com/custosbot/custos/internal/storage/ledgerstate"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()

	store, err := ledgerstate.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	l, err := New(store)
	require.NoError(t, err)
	return l
}

func TestLedgerRecordBuyAccumulates(t *testing.T) {
	l := newTestLedger(t)

	require.NoError(t, l.RecordBuy("WBTC", decimal.NewFromInt(1000), decimal.NewFromInt(50000)))
	require.NoError(t, l.RecordBuy("WBTC", decimal.NewFromInt(500), decimal.NewFromInt(25000)))

	pos := l.Position("WBTC")
	require.True(t, pos.TotalCostUSD.Equal(decimal.NewFromInt(1500)))
	require.True(t, pos.TotalAmount.Equal(decimal.NewFromFloat(0.04)))
}

func TestLedgerAverageIsOrderIndependent(t *testing.T) {
	buys := []struct {
		cost  int64
		price int64
	}{
		{1000, 50000},
		{250, 20000},
		{730, 41000},
	}

	forward := newTestLedger(t)
	for _, b := range buys {
		require.NoError(t, forward.RecordBuy("WBTC", decimal.NewFromInt(b.cost), decimal.NewFromInt(b.price)))
	}

	backward := newTestLedger(t)
	for i := len(buys) - 1; i >= 0; i-- {
		require.NoError(t, backward.RecordBuy("WBTC", decimal.NewFromInt(buys[i].cost), decimal.NewFromInt(buys[i].price)))
	}

	avgForward, err := forward.AveragePrice("WBTC")
	require.NoError(t, err)
	avgBackward, err := backward.AveragePrice("WBTC")
	require.NoError(t, err)

	require.True(t, avgForward.Equal(avgBackward), "%s != %s", avgForward, avgBackward)
}

func TestLedgerRejectsInvalidInput(t *testing.T) {
	l := newTestLedger(t)

	err := l.RecordBuy("WETH", decimal.NewFromInt(-5), decimal.NewFromInt(2000))
	require.True(t, errors.Is(err, domain.ErrInvalidInput))

	err = l.RecordBuy("WETH", decimal.NewFromInt(100), decimal.Zero)
	require.True(t, errors.Is(err, domain.ErrInvalidInput))

	require.True(t, l.Position("WETH").IsEmpty(), "rejected buys must not mutate the position")
}

func TestLedgerUnknownAssetIsEmpty(t *testing.T) {
	l := newTestLedger(t)

	pos := l.Position("WBTC")
	require.True(t, pos.TotalCostUSD.IsZero())
	require.True(t, pos.TotalAmount.IsZero())

	_, err := l.AveragePrice("WBTC")
	require.True(t, errors.Is(err, domain.ErrNoPosition))
}

func TestLedgerRestoresFromStore(t *testing.T) {
	dir := t.TempDir()

	store, err := ledgerstate.NewStore(dir)
	require.NoError(t, err)

	l, err := New(store)
	require.NoError(t, err)
	require.NoError(t, l.RecordBuy("WBTC", decimal.NewFromInt(300), decimal.NewFromInt(60000)))
	require.NoError(t, store.Close())

	reopened, err := ledgerstate.NewStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, reopened.Close())
	})

	restored, err := New(reopened)
	require.NoError(t, err)

	pos := restored.Position("WBTC")
	require.True(t, pos.TotalCostUSD.Equal(decimal.NewFromInt(300)))
}

func TestLedgerConcurrentBuysSameAsset(t *testing.T) {
	l := newTestLedger(t)

	const workers = 8
	const buysPerWorker = 25

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < buysPerWorker; j++ {
				err := l.RecordBuy("WBTC", decimal.NewFromInt(10), decimal.NewFromInt(50000))
				require.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	pos := l.Position("WBTC")
	expectedCost := decimal.NewFromInt(10 * workers * buysPerWorker)
	require.True(t, pos.TotalCostUSD.Equal(expectedCost), "lost update: got %s, want %s",
		pos.TotalCostUSD, expectedCost)
}
