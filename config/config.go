package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/custosbot/custos/internal/domain"
)

// Config is the full runtime configuration loaded from the yaml file.
// Secrets (keys, endpoints) come from the environment, see Secrets.
type Config struct {
	ListenAddr string
	StateDir   string
	Allocation domain.AllocationConfig
	Registry   *domain.AssetRegistry
	Schedule   Schedule
	MinGasETH  decimal.Decimal
}

// Schedule holds the cron specs for the recurring jobs.
type Schedule struct {
	DailyDCA    string `yaml:"daily_dca"`
	MonthlySkim string `yaml:"monthly_skim"`
}

type configTmp struct {
	ListenAddr string        `yaml:"listen_addr"`
	StateDir   string        `yaml:"state_dir"`
	Allocation allocationTmp `yaml:"allocation"`
	Assets     []assetTmp    `yaml:"assets"`
	Schedule   Schedule      `yaml:"schedule"`
	MinGasETH  string        `yaml:"min_gas_eth"`
}

type allocationTmp struct {
	DCASplitRatio          string `yaml:"dca_split_ratio"`
	DCADurationDays        int    `yaml:"dca_duration_days"`
	DCATokenSplit          string `yaml:"dca_token_split"`
	MonthlySkimRatio       string `yaml:"monthly_skim_ratio"`
	RedBuyRatio            string `yaml:"red_buy_ratio"`
	GreenSellRatio         string `yaml:"green_sell_ratio"`
	GreenSellGainThreshold string `yaml:"green_sell_gain_threshold"`
}

type assetTmp struct {
	Token       string `yaml:"token"`
	Symbol      string `yaml:"symbol"`
	Address     string `yaml:"address"`
	Decimals    int32  `yaml:"decimals"`
	CoingeckoID string `yaml:"coingecko_id"`
	Stable      bool   `yaml:"stable"`
}

// Get reads and validates the yaml config at path.
func Get(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr: tmp.ListenAddr,
		StateDir:   tmp.StateDir,
		Schedule:   tmp.Schedule,
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.StateDir == "" {
		cfg.StateDir = "wal"
	}
	if cfg.Schedule.DailyDCA == "" {
		cfg.Schedule.DailyDCA = "0 10 * * *"
	}
	if cfg.Schedule.MonthlySkim == "" {
		cfg.Schedule.MonthlySkim = "0 0 1 * *"
	}

	cfg.Allocation, err = parseAllocation(tmp.Allocation)
	if err != nil {
		return Config{}, err
	}

	cfg.Registry, err = parseAssets(tmp.Assets)
	if err != nil {
		return Config{}, err
	}

	cfg.MinGasETH, err = ratioOrDefault(tmp.MinGasETH, "min_gas_eth", "0.005")
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Allocation.Validate(len(cfg.Registry.Tradable())); err != nil {
		return Config{}, fmt.Errorf("invalid allocation config: %w", err)
	}

	return cfg, nil
}

func parseAllocation(tmp allocationTmp) (domain.AllocationConfig, error) {
	alloc := domain.AllocationConfig{DCADurationDays: tmp.DCADurationDays}
	if alloc.DCADurationDays == 0 {
		alloc.DCADurationDays = 30
	}

	var err error
	for _, p := range []struct {
		dst   *decimal.Decimal
		raw   string
		name  string
		deflt string
	}{
		{&alloc.DCASplitRatio, tmp.DCASplitRatio, "dca_split_ratio", "0.8"},
		{&alloc.DCATokenSplit, tmp.DCATokenSplit, "dca_token_split", "0.5"},
		{&alloc.MonthlySkimRatio, tmp.MonthlySkimRatio, "monthly_skim_ratio", "0.0005"},
		{&alloc.RedBuyRatio, tmp.RedBuyRatio, "red_buy_ratio", "0.05"},
		{&alloc.GreenSellRatio, tmp.GreenSellRatio, "green_sell_ratio", "0.05"},
		{&alloc.GreenSellGainThreshold, tmp.GreenSellGainThreshold, "green_sell_gain_threshold", "0.06"},
	} {
		*p.dst, err = ratioOrDefault(p.raw, p.name, p.deflt)
		if err != nil {
			return domain.AllocationConfig{}, err
		}
	}

	return alloc, nil
}

func parseAssets(assets []assetTmp) (*domain.AssetRegistry, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("yaml config must list at least one asset")
	}

	byToken := make(map[string]domain.Asset, len(assets))
	order := make([]string, 0, len(assets))
	stables := 0
	for _, a := range assets {
		if a.Token == "" || a.Symbol == "" || a.Address == "" {
			return nil, fmt.Errorf("asset entry needs token, symbol and address, got %+v", a)
		}
		if _, ok := byToken[a.Token]; ok {
			return nil, fmt.Errorf("duplicate asset token %q in yaml config", a.Token)
		}
		if !a.Stable && a.CoingeckoID == "" {
			return nil, fmt.Errorf("asset %q needs a coingecko_id", a.Token)
		}
		if a.Stable {
			stables++
		}
		byToken[a.Token] = domain.Asset{
			Symbol:      a.Symbol,
			Address:     a.Address,
			Decimals:    a.Decimals,
			CoingeckoID: a.CoingeckoID,
			Stable:      a.Stable,
		}
		order = append(order, a.Token)
	}
	if stables != 1 {
		return nil, fmt.Errorf("yaml config must mark exactly one asset as stable, got %d", stables)
	}

	return domain.NewAssetRegistry(byToken, order), nil
}

func ratioOrDefault(raw, name, deflt string) (decimal.Decimal, error) {
	if raw == "" {
		raw = deflt
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("incorrect %q param in yaml config: %w", name, err)
	}
	return v, nil
}
