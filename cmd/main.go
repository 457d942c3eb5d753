// Command custos runs the automated treasury bot for a Gnosis Safe multisig.
// It accumulates tokens with daily DCA buys, reacts to webhook candle
// signals, and skims a slice of the portfolio to a payout wallet monthly.
//
// Usage:
//
//	custos --config config.yaml
//	custos --setup  (interactive wizard, writes config.gen.yaml)
//
// Required environment variables (a .env file is honored):
//
//	RPC_URL, SIGNER_PRIVATE_KEY, SAFE_ADDRESS, SAFE_SERVICE_URL, PAYOUT_WALLET
//	CHAIN_ID is optional and defaults to Arbitrum One (42161).
package main

import (
	"context"
	"flag"
	"log"
	"math/big"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/custosbot/custos/config"
	"github.com/custosbot/custos/internal/ledger"
	"github.com/custosbot/custos/internal/scheduler"
	"github.com/custosbot/custos/internal/services/chain"
	"github.com/custosbot/custos/internal/services/pricer"
	"github.com/custosbot/custos/internal/services/relay"
	"github.com/custosbot/custos/internal/services/swap"
	"github.com/custosbot/custos/internal/setup"
	"github.com/custosbot/custos/internal/storage/ledgerstate"
	"github.com/custosbot/custos/internal/treasury"
	"github.com/custosbot/custos/internal/web"
)

// Uniswap V3 SwapRouter on Arbitrum One.
const swapRouterAddress = "0xE592427A0AEce92De3Edee1F18E0157C05861564"

var errNoStable = errors.New("config registry has no stable asset")

func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	runSetup := flag.Bool("setup", false, "run the interactive configuration wizard")
	flag.Parse()

	if *runSetup {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	_ = godotenv.Load()

	cfg, err := config.Get(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	secrets, err := config.SecretsFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, secrets, logger); err != nil {
		logger.Fatal("treasury bot stopped", zap.Error(err))
	}
}

func run(cfg config.Config, secrets config.Secrets, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	signerKey, err := crypto.HexToECDSA(secrets.SignerPrivateKey)
	if err != nil {
		return err
	}

	ethClient, err := ethclient.DialContext(ctx, secrets.RPCURL)
	if err != nil {
		return err
	}
	defer ethClient.Close()

	store, err := ledgerstate.NewStore(cfg.StateDir)
	if err != nil {
		return err
	}
	defer store.Close()

	book, err := ledger.New(store)
	if err != nil {
		return err
	}

	stable, ok := cfg.Registry.Stable()
	if !ok {
		return errNoStable
	}

	safeAddr := common.HexToAddress(secrets.SafeAddress)
	reader := chain.NewReader(ethClient)
	oracle := pricer.NewCoinGecko()
	safeRelay := relay.NewSafeRelay(secrets.SafeServiceURL, safeAddr, signerKey,
		big.NewInt(secrets.ChainID), logger)
	executor := swap.NewExecutor(reader, safeRelay, oracle,
		safeAddr, common.HexToAddress(swapRouterAddress), stable, logger)

	vault := treasury.New(treasury.Config{
		Registry:  cfg.Registry,
		Alloc:     cfg.Allocation,
		Ledger:    book,
		Store:     store,
		Swapper:   executor,
		Oracle:    oracle,
		Reader:    reader,
		Relay:     safeRelay,
		Safe:      safeAddr,
		Payout:    common.HexToAddress(secrets.PayoutWallet),
		Stable:    stable,
		MinGasWei: cfg.MinGasETH.Shift(18).BigInt(),
		Logger:    logger,
	})

	jobs := scheduler.New(logger)
	if err := jobs.Add(cfg.Schedule.DailyDCA,
		scheduler.JobFunc{JobName: "daily_dca", Fn: vault.RunDailyDCA}); err != nil {
		return err
	}
	if err := jobs.Add(cfg.Schedule.MonthlySkim,
		scheduler.JobFunc{JobName: "monthly_skim", Fn: vault.RunMonthlySkim}); err != nil {
		return err
	}
	jobs.Start()
	defer jobs.Stop()

	server := web.NewServer(cfg.ListenAddr, vault, cfg.Registry, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(ctx)
	})

	logger.Info("treasury bot started",
		zap.String("safe", secrets.SafeAddress),
		zap.String("listen", cfg.ListenAddr),
		zap.Int("tradable_assets", len(cfg.Registry.Tradable())))

	return g.Wait()
}
