// Package treasury orchestrates the three entry points of the bot: the
// daily DCA run, the monthly skim and the webhook-driven candle signal.
// All three share one ledger, one allocation policy and one swap path.
package treasury

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/custosbot/custos/internal/domain"
	"github.com/custosbot/custos/internal/ledger"
	"github.com/custosbot/custos/internal/policy"
	"github.com/custosbot/custos/internal/services/chain"
	"github.com/custosbot/custos/internal/services/relay"
	"github.com/custosbot/custos/internal/storage/ledgerstate"
)

const defaultOperationTimeout = 2 * time.Minute

type swapper interface {
	Swap(ctx context.Context, asset domain.Asset, action domain.Action, amountUSD decimal.Decimal) (domain.SwapResult, error)
}

type oracle interface {
	SpotPriceUSD(ctx context.Context, assetID string) (decimal.Decimal, error)
}

type chainReader interface {
	TokenBalance(ctx context.Context, token, holder common.Address) (*big.Int, error)
	ETHBalance(ctx context.Context, addr common.Address) (*big.Int, error)
}

type relaySubmitter interface {
	SubmitAndConfirm(ctx context.Context, calls []relay.Call) (string, error)
}

type stateStore interface {
	SaveCycle(cycle domain.CycleState) error
	LoadCycle() (domain.CycleState, error)
	SaveSignalOutcome(record ledgerstate.SignalRecord) error
}

// Treasury wires the allocation policy to the collaborators executing it.
type Treasury struct {
	registry *domain.AssetRegistry
	cfg      domain.AllocationConfig
	ledger   *ledger.Ledger
	store    stateStore
	swapper  swapper
	oracle   oracle
	reader   chainReader
	relay    relaySubmitter

	safe      common.Address
	payout    common.Address
	stable    domain.Asset
	minGasWei *big.Int
	opTimeout time.Duration

	logger *zap.Logger
}

// Config carries the treasury wiring.
type Config struct {
	Registry  *domain.AssetRegistry
	Alloc     domain.AllocationConfig
	Ledger    *ledger.Ledger
	Store     stateStore
	Swapper   swapper
	Oracle    oracle
	Reader    chainReader
	Relay     relaySubmitter
	Safe      common.Address
	Payout    common.Address
	Stable    domain.Asset
	MinGasWei *big.Int
	Logger    *zap.Logger
}

// New builds the treasury orchestrator.
func New(cfg Config) *Treasury {
	return &Treasury{
		registry:  cfg.Registry,
		cfg:       cfg.Alloc,
		ledger:    cfg.Ledger,
		store:     cfg.Store,
		swapper:   cfg.Swapper,
		oracle:    cfg.Oracle,
		reader:    cfg.Reader,
		relay:     cfg.Relay,
		safe:      cfg.Safe,
		payout:    cfg.Payout,
		stable:    cfg.Stable,
		minGasWei: cfg.MinGasWei,
		opTimeout: defaultOperationTimeout,
		logger:    cfg.Logger,
	}
}

// RunDailyDCA executes one DCA step: size today's tranches, buy each
// tradable asset, record confirmed buys in the ledger, then advance the
// cycle. On a failed buy the cycle is left unadvanced so a rerun resumes the
// same day; buys that already confirmed stay recorded.
func (t *Treasury) RunDailyDCA(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.opTimeout)
	defer cancel()

	balance, err := t.stableBalanceUSD(ctx)
	if err != nil {
		return errors.Wrap(err, "read treasury balance")
	}

	cycle, err := t.store.LoadCycle()
	if err != nil {
		return errors.Wrap(err, "load cycle state")
	}

	plan := policy.PlanDailyDCA(balance, cycle, t.registry.Tradable(), t.cfg)

	t.logger.Info("dca step",
		zap.Int("day", cycle.Day),
		zap.String("pool_usd", plan.Cycle.PoolUSD.String()),
		zap.String("balance_usd", balance.String()))

	for _, asset := range t.registry.Tradable() {
		amount := plan.Tranches[asset.Symbol]

		result, err := t.swapper.Swap(ctx, asset, domain.ActionBuy, amount)
		if err != nil {
			return errors.Wrapf(err, "dca buy %s", asset.Symbol)
		}
		if !result.Confirmed {
			continue // zero tranche, nothing bought
		}

		if err := t.ledger.RecordBuy(asset.Symbol, amount, result.ExecutedPriceUSD); err != nil {
			return errors.Wrapf(err, "record dca buy %s", asset.Symbol)
		}
	}

	if err := t.store.SaveCycle(plan.Cycle); err != nil {
		return errors.Wrap(err, "persist cycle state")
	}
	return nil
}

// RunMonthlySkim values the whole portfolio and transfers the configured
// fraction of it, in the stable currency, to the payout address.
func (t *Treasury) RunMonthlySkim(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.opTimeout)
	defer cancel()

	holdings, err := t.portfolioHoldings(ctx)
	if err != nil {
		return err
	}

	payout := policy.PlanSkim(holdings, t.cfg)
	units := chain.ToUnits(payout, t.stable.Decimals)
	if units.Sign() <= 0 {
		t.logger.Info("skim payout rounds to zero, skipping")
		return nil
	}

	t.logger.Info("monthly skim",
		zap.String("payout_usd", payout.String()),
		zap.String("to", t.payout.Hex()))

	stableAddr := common.HexToAddress(t.stable.Address)
	approveData, err := chain.PackApprove(t.payout, units)
	if err != nil {
		return errors.Wrap(err, "encode skim approve")
	}
	transferData, err := chain.PackTransfer(t.payout, units)
	if err != nil {
		return errors.Wrap(err, "encode skim transfer")
	}

	txHash, err := t.relay.SubmitAndConfirm(ctx, []relay.Call{
		{To: stableAddr, Value: big.NewInt(0), Data: approveData},
		{To: stableAddr, Value: big.NewInt(0), Data: transferData},
	})
	if err != nil {
		return errors.Wrap(err, "submit skim batch")
	}

	t.logger.Info("skim submitted", zap.String("tx", txHash))
	return nil
}

// SignalOutcome is the structured result surfaced through the webhook
// boundary and journaled for audit.
type SignalOutcome struct {
	Token     string
	Action    string
	Reason    string
	AmountUSD decimal.Decimal
	Quantity  decimal.Decimal
	TxHash    string
}

// HandleSignal evaluates one candle signal and executes the resulting trade.
// Unknown tokens fail with ErrUnknownAsset and change no state.
func (t *Treasury) HandleSignal(ctx context.Context, token string, candle domain.Candle) (SignalOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, t.opTimeout)
	defer cancel()

	asset, err := t.registry.Lookup(token)
	if err != nil {
		return SignalOutcome{}, err
	}

	t.checkGasBalance(ctx)

	snapshot, err := t.marketSnapshot(ctx, asset)
	if err != nil {
		return SignalOutcome{}, err
	}

	held, err := t.tokenQuantity(ctx, asset)
	if err != nil {
		return SignalOutcome{}, errors.Wrapf(err, "read %s holding", asset.Symbol)
	}

	decision := policy.DecideSignal(candle, t.ledger.Position(asset.Symbol), snapshot, held, t.cfg)
	outcome, err := t.executeDecision(ctx, asset, decision, snapshot)
	outcome.Token = token

	t.journal(outcome, err)
	return outcome, err
}

func (t *Treasury) executeDecision(ctx context.Context, asset domain.Asset,
	decision domain.SignalDecision, snapshot domain.MarketSnapshot) (SignalOutcome, error) {

	outcome := SignalOutcome{
		Action: "none",
		Reason: decision.Reason,
	}

	switch decision.Kind {
	case domain.DecideNothing:
		t.logger.Info("signal skipped",
			zap.String("asset", asset.Symbol),
			zap.String("reason", decision.Reason))
		return outcome, nil

	case domain.DecideBuy:
		outcome.Action = domain.ActionBuy.String()
		outcome.AmountUSD = decision.AmountUSD

		result, err := t.swapper.Swap(ctx, asset, domain.ActionBuy, decision.AmountUSD)
		if err != nil {
			return outcome, errors.Wrapf(err, "signal buy %s", asset.Symbol)
		}
		if result.Confirmed {
			outcome.TxHash = result.TxHash
			if err := t.ledger.RecordBuy(asset.Symbol, decision.AmountUSD, snapshot.PriceUSD); err != nil {
				return outcome, errors.Wrapf(err, "record signal buy %s", asset.Symbol)
			}
		}
		return outcome, nil

	default: // DecideSell
		outcome.Action = domain.ActionSell.String()
		outcome.Quantity = decision.Quantity

		// the executor sizes sells in USD; ledger basis stays untouched
		amountUSD := decision.Quantity.Mul(snapshot.PriceUSD)
		result, err := t.swapper.Swap(ctx, asset, domain.ActionSell, amountUSD)
		if err != nil {
			return outcome, errors.Wrapf(err, "signal sell %s", asset.Symbol)
		}
		outcome.TxHash = result.TxHash
		return outcome, nil
	}
}

func (t *Treasury) journal(outcome SignalOutcome, opErr error) {
	record := ledgerstate.SignalRecord{
		ID:        uuid.NewString(),
		Token:     outcome.Token,
		Action:    outcome.Action,
		Reason:    outcome.Reason,
		Timestamp: time.Now().Unix(),
	}
	if !outcome.AmountUSD.IsZero() {
		record.AmountUSD = outcome.AmountUSD.String()
	}
	if !outcome.Quantity.IsZero() {
		record.Quantity = outcome.Quantity.String()
	}
	if opErr != nil {
		record.Err = opErr.Error()
	}

	if err := t.store.SaveSignalOutcome(record); err != nil {
		t.logger.Error("failed to journal signal outcome", zap.Error(err))
	}
}

// checkGasBalance warns when the Safe is low on native gas. Purely advisory,
// a low balance does not block the signal.
func (t *Treasury) checkGasBalance(ctx context.Context) {
	if t.minGasWei == nil || t.minGasWei.Sign() <= 0 {
		return
	}

	balance, err := t.reader.ETHBalance(ctx, t.safe)
	if err != nil {
		t.logger.Warn("gas balance check failed", zap.Error(err))
		return
	}

	if balance.Cmp(t.minGasWei) < 0 {
		t.logger.Warn("low gas balance on safe",
			zap.String("balance_wei", balance.String()),
			zap.String("min_wei", t.minGasWei.String()))
	}
}

func (t *Treasury) stableBalanceUSD(ctx context.Context) (decimal.Decimal, error) {
	return t.tokenQuantity(ctx, t.stable)
}

func (t *Treasury) tokenQuantity(ctx context.Context, asset domain.Asset) (decimal.Decimal, error) {
	units, err := t.reader.TokenBalance(ctx, common.HexToAddress(asset.Address), t.safe)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "balance of %s", asset.Symbol)
	}
	return chain.FromUnits(units, asset.Decimals), nil
}

func (t *Treasury) marketSnapshot(ctx context.Context, asset domain.Asset) (domain.MarketSnapshot, error) {
	balance, err := t.stableBalanceUSD(ctx)
	if err != nil {
		return domain.MarketSnapshot{}, errors.Wrap(err, "read treasury balance")
	}

	price := decimal.NewFromInt(1)
	if !asset.Stable {
		price, err = t.oracle.SpotPriceUSD(ctx, asset.CoingeckoID)
		if err != nil {
			return domain.MarketSnapshot{}, errors.Wrapf(err, "price %s", asset.Symbol)
		}
	}

	return domain.MarketSnapshot{
		BalanceUSD: balance,
		PriceUSD:   price,
		AsOf:       time.Now(),
	}, nil
}

func (t *Treasury) portfolioHoldings(ctx context.Context) ([]domain.Holding, error) {
	assets := t.registry.All()
	holdings := make([]domain.Holding, 0, len(assets))

	for _, asset := range assets {
		quantity, err := t.tokenQuantity(ctx, asset)
		if err != nil {
			return nil, err
		}

		price := decimal.NewFromInt(1)
		if !asset.Stable {
			price, err = t.oracle.SpotPriceUSD(ctx, asset.CoingeckoID)
			if err != nil {
				return nil, errors.Wrapf(err, "price %s", asset.Symbol)
			}
		}

		holdings = append(holdings, domain.Holding{
			Symbol:   asset.Symbol,
			Quantity: quantity,
			PriceUSD: price,
		})
	}

	return holdings, nil
}
