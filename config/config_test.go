package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validYaml = `
listen_addr: ":9090"
state_dir: "state"
allocation:
  dca_split_ratio: "0.8"
  dca_duration_days: 30
  dca_token_split: "0.5"
  monthly_skim_ratio: "0.0005"
  red_buy_ratio: "0.05"
  green_sell_ratio: "0.05"
  green_sell_gain_threshold: "0.06"
assets:
  - token: BTC
    symbol: WBTC
    address: "0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f"
    decimals: 8
    coingecko_id: wrapped-bitcoin
  - token: ETH
    symbol: WETH
    address: "0x82af49447d8a07e3bd95bd0d56f35241523fbab1"
    decimals: 18
    coingecko_id: weth
  - token: USDC
    symbol: USDC
    address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
    decimals: 6
    stable: true
schedule:
  daily_dca: "0 10 * * *"
  monthly_skim: "0 0 1 * *"
min_gas_eth: "0.005"
`

func TestGetValidConfig(t *testing.T) {
	cfg, err := Get(writeConfig(t, validYaml))
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.ListenAddr)
	require.Equal(t, "state", cfg.StateDir)
	require.Equal(t, "0 10 * * *", cfg.Schedule.DailyDCA)
	require.True(t, cfg.Allocation.DCASplitRatio.Equal(decimal.RequireFromString("0.8")))
	require.Equal(t, 30, cfg.Allocation.DCADurationDays)
	require.True(t, cfg.MinGasETH.Equal(decimal.RequireFromString("0.005")))

	require.Len(t, cfg.Registry.Tradable(), 2)
	btc, err := cfg.Registry.Lookup("BTC")
	require.NoError(t, err)
	require.Equal(t, "WBTC", btc.Symbol)
	require.Equal(t, int32(8), btc.Decimals)

	stable, ok := cfg.Registry.Stable()
	require.True(t, ok)
	require.Equal(t, "USDC", stable.Symbol)
}

func TestGetAppliesDefaults(t *testing.T) {
	cfg, err := Get(writeConfig(t, `
assets:
  - token: BTC
    symbol: WBTC
    address: "0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f"
    decimals: 8
    coingecko_id: wrapped-bitcoin
  - token: USDC
    symbol: USDC
    address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
    decimals: 6
    stable: true
`))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.ListenAddr)
	require.Equal(t, "0 10 * * *", cfg.Schedule.DailyDCA)
	require.Equal(t, "0 0 1 * *", cfg.Schedule.MonthlySkim)
	require.Equal(t, 30, cfg.Allocation.DCADurationDays)
	require.True(t, cfg.Allocation.RedBuyRatio.Equal(decimal.RequireFromString("0.05")))
	require.True(t, cfg.Allocation.MonthlySkimRatio.Equal(decimal.RequireFromString("0.0005")))
}

func TestGetRejectsMissingStable(t *testing.T) {
	_, err := Get(writeConfig(t, `
assets:
  - token: BTC
    symbol: WBTC
    address: "0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f"
    decimals: 8
    coingecko_id: wrapped-bitcoin
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "stable")
}

func TestGetRejectsBadRatio(t *testing.T) {
	_, err := Get(writeConfig(t, `
allocation:
  red_buy_ratio: "1.5"
assets:
  - token: BTC
    symbol: WBTC
    address: "0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f"
    decimals: 8
    coingecko_id: wrapped-bitcoin
  - token: USDC
    symbol: USDC
    address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
    decimals: 6
    stable: true
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "red_buy_ratio")
}

func TestGetRejectsDuplicateToken(t *testing.T) {
	_, err := Get(writeConfig(t, `
assets:
  - token: BTC
    symbol: WBTC
    address: "0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f"
    decimals: 8
    coingecko_id: wrapped-bitcoin
  - token: BTC
    symbol: WBTC
    address: "0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f"
    decimals: 8
    coingecko_id: wrapped-bitcoin
  - token: USDC
    symbol: USDC
    address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
    decimals: 6
    stable: true
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")
}

func TestGetMissingFile(t *testing.T) {
	_, err := Get(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
