// Package setup is the interactive first-run wizard. It walks through the
// treasury settings and writes a ready-to-use yaml config file.
package setup

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const outputFile = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// yaml shapes mirroring the config file format
type generatedConfig struct {
	ListenAddr string              `yaml:"listen_addr"`
	StateDir   string              `yaml:"state_dir"`
	Allocation generatedAllocation `yaml:"allocation"`
	Assets     []generatedAsset    `yaml:"assets"`
	Schedule   generatedSchedule   `yaml:"schedule"`
	MinGasETH  string              `yaml:"min_gas_eth"`
}

type generatedAllocation struct {
	DCASplitRatio          string `yaml:"dca_split_ratio"`
	DCADurationDays        int    `yaml:"dca_duration_days"`
	DCATokenSplit          string `yaml:"dca_token_split"`
	MonthlySkimRatio       string `yaml:"monthly_skim_ratio"`
	RedBuyRatio            string `yaml:"red_buy_ratio"`
	GreenSellRatio         string `yaml:"green_sell_ratio"`
	GreenSellGainThreshold string `yaml:"green_sell_gain_threshold"`
}

type generatedAsset struct {
	Token       string `yaml:"token"`
	Symbol      string `yaml:"symbol"`
	Address     string `yaml:"address"`
	Decimals    int32  `yaml:"decimals"`
	CoingeckoID string `yaml:"coingecko_id,omitempty"`
	Stable      bool   `yaml:"stable,omitempty"`
}

type generatedSchedule struct {
	DailyDCA    string `yaml:"daily_dca"`
	MonthlySkim string `yaml:"monthly_skim"`
}

// arbitrumAssets is the default Arbitrum One token set.
var arbitrumAssets = []generatedAsset{
	{Token: "BTC", Symbol: "WBTC", Address: "0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f", Decimals: 8, CoingeckoID: "wrapped-bitcoin"},
	{Token: "ETH", Symbol: "WETH", Address: "0x82af49447d8a07e3bd95bd0d56f35241523fbab1", Decimals: 18, CoingeckoID: "weth"},
	{Token: "USDC", Symbol: "USDC", Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6, CoingeckoID: "usd-coin", Stable: true},
}

// RunTUI launches the terminal configuration wizard.
func RunTUI() error {
	var (
		listenAddr   = ":8080"
		stateDir     = "wal"
		splitRatio   = "0.8"
		durationDays = "30"
		tokenSplit   = "0.5"
		skimRatio    = "0.0005"
		redBuyRatio  = "0.05"
		sellRatio    = "0.05"
		gainThresh   = "0.06"
		dailySpec    = "0 10 * * *"
		monthlySpec  = "0 0 1 * *"
		minGas       = "0.005"
		tokens       []string
		confirm      bool
	)

	clearAndHeader("STEP 1: SERVER")
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Webhook Listen Address").
				Description("host:port the signal webhook binds to").
				Value(&listenAddr).
				Validate(notEmpty("listen address")),
			huh.NewInput().
				Title("State Directory").
				Description("Directory for the write-ahead log").
				Value(&stateDir).
				Validate(notEmpty("state directory")),
		),
	).Run()
	if err != nil {
		return err
	}

	clearAndHeader("STEP 2: ASSETS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Tokens to accumulate").
				Description("USDC stays as the treasury currency").
				Options(
					huh.NewOption("WBTC (wrapped Bitcoin)", "BTC").Selected(true),
					huh.NewOption("WETH (wrapped Ether)", "ETH").Selected(true),
				).
				Value(&tokens).
				Validate(func(sel []string) error {
					if len(sel) == 0 {
						return fmt.Errorf("pick at least one token")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	clearAndHeader("STEP 3: ALLOCATION")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("DCA Split Ratio").
				Description("Share of the wallet committed to a buying cycle (e.g. 0.8)").
				Value(&splitRatio).
				Validate(validateRatio),
			huh.NewInput().
				Title("DCA Duration Days").
				Description("Cycle length in daily tranches (e.g. 30)").
				Value(&durationDays).
				Validate(validateDays),
			huh.NewInput().
				Title("DCA Token Split").
				Description("Each token's share of the daily tranche (e.g. 0.5)").
				Value(&tokenSplit).
				Validate(validateRatio),
			huh.NewInput().
				Title("Monthly Skim Ratio").
				Description("Share of portfolio value paid out monthly (e.g. 0.0005)").
				Value(&skimRatio).
				Validate(validateRatio),
		),
	).Run()
	if err != nil {
		return err
	}

	clearAndHeader("STEP 4: SIGNAL TRADING")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Red Candle Buy Ratio").
				Description("Share of wallet balance bought on a red candle (e.g. 0.05)").
				Value(&redBuyRatio).
				Validate(validateRatio),
			huh.NewInput().
				Title("Green Sell Ratio").
				Description("Share of holdings sold on a qualifying green candle (e.g. 0.05)").
				Value(&sellRatio).
				Validate(validateRatio),
			huh.NewInput().
				Title("Green Sell Gain Threshold").
				Description("Minimum gain over average entry to sell (e.g. 0.06 = 6%)").
				Value(&gainThresh).
				Validate(validateRatio),
		),
	).Run()
	if err != nil {
		return err
	}

	clearAndHeader("STEP 5: TIMING")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Daily DCA Cron").
				Description("Standard 5-field cron spec").
				Value(&dailySpec).
				Validate(validateCron),
			huh.NewInput().
				Title("Monthly Skim Cron").
				Value(&monthlySpec).
				Validate(validateCron),
			huh.NewInput().
				Title("Min Gas Balance (ETH)").
				Description("Warn when the signer wallet drops below this (e.g. 0.005)").
				Value(&minGas).
				Validate(validateRatio),
		),
	).Run()
	if err != nil {
		return err
	}

	clearAndHeader("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Listen: %s\nTokens: %v\nDCA: %s of wallet over %s days\nSkim: %s monthly\nSignals: buy %s on red, sell %s above +%s\n",
		listenAddr, tokens, splitRatio, durationDays, skimRatio, redBuyRatio, sellRatio, gainThresh,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	days := 0
	fmt.Sscanf(durationDays, "%d", &days)

	cfg := generatedConfig{
		ListenAddr: listenAddr,
		StateDir:   stateDir,
		Allocation: generatedAllocation{
			DCASplitRatio:          splitRatio,
			DCADurationDays:        days,
			DCATokenSplit:          tokenSplit,
			MonthlySkimRatio:       skimRatio,
			RedBuyRatio:            redBuyRatio,
			GreenSellRatio:         sellRatio,
			GreenSellGainThreshold: gainThresh,
		},
		Assets:    selectAssets(tokens),
		Schedule:  generatedSchedule{DailyDCA: dailySpec, MonthlySkim: monthlySpec},
		MinGasETH: minGas,
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(
		fmt.Sprintf("\n✓ Configuration saved to %s\nSet RPC_URL, SIGNER_PRIVATE_KEY, SAFE_ADDRESS, SAFE_SERVICE_URL and PAYOUT_WALLET in the environment, then start the bot.", outputFile)))
	time.Sleep(1500 * time.Millisecond)
	return nil
}

func clearAndHeader(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("CUSTOS CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Automated treasury for your multisig.\n"))
	fmt.Println(stepStyle.Render(step))
}

func selectAssets(tokens []string) []generatedAsset {
	picked := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		picked[t] = true
	}

	var out []generatedAsset
	for _, a := range arbitrumAssets {
		if a.Stable || picked[a.Token] {
			out = append(out, a)
		}
	}
	return out
}

func notEmpty(name string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
		return nil
	}
}

func validateRatio(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("must be between 0 and 1")
	}
	return nil
}

func validateDays(s string) error {
	var days int
	if _, err := fmt.Sscanf(s, "%d", &days); err != nil || days < 1 {
		return fmt.Errorf("must be a positive whole number of days")
	}
	return nil
}

func validateCron(s string) error {
	_, err := cron.ParseStandard(s)
	return err
}
