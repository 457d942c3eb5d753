package policy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/custosbot/custos/internal/domain"
)

func testAllocation() domain.AllocationConfig {
	return domain.AllocationConfig{
		DCASplitRatio:          decimal.NewFromFloat(0.8),
		DCADurationDays:        30,
		DCATokenSplit:          decimal.NewFromFloat(0.5),
		MonthlySkimRatio:       decimal.NewFromFloat(0.0005),
		RedBuyRatio:            decimal.NewFromFloat(0.05),
		GreenSellRatio:         decimal.NewFromFloat(0.05),
		GreenSellGainThreshold: decimal.NewFromFloat(0.06),
	}
}

func testAssets() []domain.Asset {
	return []domain.Asset{
		{Symbol: "WBTC", CoingeckoID: "wrapped-bitcoin"},
		{Symbol: "WETH", CoingeckoID: "weth"},
	}
}

func TestPlanDailyDCAInitializesPoolOnDayZero(t *testing.T) {
	cfg := testAllocation()
	cycle := domain.NewCycleState()

	plan := PlanDailyDCA(decimal.NewFromInt(10000), cycle, testAssets(), cfg)

	// pool = 10000 * 0.8, daily = 8000/30, per asset = daily * 0.5
	require.True(t, plan.Cycle.PoolUSD.Equal(decimal.NewFromInt(8000)))
	require.Equal(t, 1, plan.Cycle.Day)

	expected := decimal.NewFromInt(8000).
		Div(decimal.NewFromInt(30)).
		Mul(decimal.NewFromFloat(0.5))
	require.True(t, plan.Tranches["WBTC"].Equal(expected))
	require.True(t, plan.Tranches["WETH"].Equal(expected))
}

func TestPlanDailyDCAPoolFixedMidCycle(t *testing.T) {
	cfg := testAllocation()
	cycle := domain.CycleState{Day: 5, PoolUSD: decimal.NewFromInt(8000)}

	// balance moved since cycle start; pool must not follow it
	plan := PlanDailyDCA(decimal.NewFromInt(99999), cycle, testAssets(), cfg)

	require.True(t, plan.Cycle.PoolUSD.Equal(decimal.NewFromInt(8000)))
	require.Equal(t, 6, plan.Cycle.Day)
}

func TestPlanDailyDCADayCounterWraps(t *testing.T) {
	cfg := testAllocation()
	cycle := domain.NewCycleState()
	balance := decimal.NewFromInt(3000)

	for i := 0; i < 30; i++ {
		plan := PlanDailyDCA(balance, cycle, testAssets(), cfg)
		cycle = plan.Cycle
	}
	require.Equal(t, 0, cycle.Day, "cycle should restart after 30 runs")

	// 31st run recomputes the pool from the new balance
	plan := PlanDailyDCA(decimal.NewFromInt(5000), cycle, testAssets(), cfg)
	require.True(t, plan.Cycle.PoolUSD.Equal(decimal.NewFromInt(4000)))
	require.Equal(t, 1, plan.Cycle.Day)
}

func TestPlanDailyDCAZeroBalance(t *testing.T) {
	cfg := testAllocation()

	plan := PlanDailyDCA(decimal.Zero, domain.NewCycleState(), testAssets(), cfg)

	require.True(t, plan.Cycle.PoolUSD.IsZero())
	for symbol, tranche := range plan.Tranches {
		require.True(t, tranche.IsZero(), "tranche for %s should be zero", symbol)
	}
}

func TestPlanSkim(t *testing.T) {
	cfg := testAllocation()
	holdings := []domain.Holding{
		{Symbol: "WBTC", Quantity: decimal.NewFromFloat(0.01), PriceUSD: decimal.NewFromInt(60000)},
		{Symbol: "USDC", Quantity: decimal.NewFromInt(500), PriceUSD: decimal.NewFromInt(1)},
	}

	payout := PlanSkim(holdings, cfg)

	// total 1100 USD, skim 0.05% -> 0.55
	require.True(t, payout.Equal(decimal.NewFromFloat(0.55)), "got %s", payout)
}

func TestPlanSkimEmptyPortfolio(t *testing.T) {
	payout := PlanSkim(nil, testAllocation())
	require.True(t, payout.IsZero())
}
