// Package swap turns an (asset, direction, USD amount) instruction into a
// Uniswap V3 trade executed from the multisig: price the input token, size
// the raw amount, approve the router when the allowance is short, and send
// the batch through the relay.
package swap

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/custosbot/custos/internal/domain"
	"github.com/custosbot/custos/internal/services/chain"
	"github.com/custosbot/custos/internal/services/relay"
)

const (
	defaultPoolFee  = 500
	defaultDeadline = 600 * time.Second
)

type relaySubmitter interface {
	SubmitAndConfirm(ctx context.Context, calls []relay.Call) (string, error)
}

type oracle interface {
	SpotPriceUSD(ctx context.Context, assetID string) (decimal.Decimal, error)
}

type chainReader interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// Executor performs swaps between the stable treasury currency and tracked
// assets. Zero-amount instructions are no-ops and never reach the relay.
type Executor struct {
	reader   chainReader
	relay    relaySubmitter
	oracle   oracle
	safe     common.Address
	router   common.Address
	stable   domain.Asset
	poolFee  int64
	deadline time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewExecutor builds the swap executor.
func NewExecutor(reader chainReader, submitter relaySubmitter, oracle oracle,
	safe, router common.Address, stable domain.Asset, logger *zap.Logger) *Executor {

	return &Executor{
		reader:   reader,
		relay:    submitter,
		oracle:   oracle,
		safe:     safe,
		router:   router,
		stable:   stable,
		poolFee:  defaultPoolFee,
		deadline: defaultDeadline,
		logger:   logger,
		now:      time.Now,
	}
}

// Swap trades amountUSD between the stable currency and the asset. For buys
// the stable token is spent; for sells the asset is converted back. Ledger
// mutation must only follow a result with Confirmed set.
func (e *Executor) Swap(ctx context.Context, asset domain.Asset, action domain.Action,
	amountUSD decimal.Decimal) (domain.SwapResult, error) {

	if amountUSD.LessThanOrEqual(decimal.Zero) {
		e.logger.Debug("skipping zero-amount swap",
			zap.String("asset", asset.Symbol),
			zap.String("action", action.String()))
		return domain.SwapResult{}, nil
	}

	tokenIn, tokenOut := e.stable, asset
	if action == domain.ActionSell {
		tokenIn, tokenOut = asset, e.stable
	}

	assetPrice, err := e.price(ctx, asset)
	if err != nil {
		return domain.SwapResult{}, err
	}
	priceIn := assetPrice
	if tokenIn.Stable {
		priceIn = decimal.NewFromInt(1)
	}

	amountInHuman := amountUSD.Div(priceIn)
	amountIn := chain.ToUnits(amountInHuman, tokenIn.Decimals)
	if amountIn.Sign() <= 0 {
		e.logger.Debug("swap amount rounds to zero units",
			zap.String("asset", asset.Symbol),
			zap.String("amount_usd", amountUSD.String()))
		return domain.SwapResult{}, nil
	}

	calls, err := e.buildBatch(ctx, tokenIn, tokenOut, amountIn)
	if err != nil {
		return domain.SwapResult{}, err
	}

	txHash, err := e.relay.SubmitAndConfirm(ctx, calls)
	if err != nil {
		return domain.SwapResult{}, errors.Wrapf(err, "%s %s for %s USD",
			action.String(), asset.Symbol, amountUSD.String())
	}

	quantity := amountUSD.Div(assetPrice)
	if action == domain.ActionSell {
		quantity = amountInHuman
	}

	e.logger.Info("swap confirmed",
		zap.String("asset", asset.Symbol),
		zap.String("action", action.String()),
		zap.String("amount_usd", amountUSD.String()),
		zap.String("quantity", quantity.String()),
		zap.String("tx", txHash))

	return domain.SwapResult{
		Confirmed:        true,
		ExecutedQuantity: quantity,
		ExecutedPriceUSD: assetPrice,
		TxHash:           txHash,
	}, nil
}

func (e *Executor) price(ctx context.Context, asset domain.Asset) (decimal.Decimal, error) {
	if asset.Stable {
		return decimal.NewFromInt(1), nil
	}
	price, err := e.oracle.SpotPriceUSD(ctx, asset.CoingeckoID)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "price %s", asset.Symbol)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, errors.Wrapf(domain.ErrPriceUnavailable, "non-positive quote for %s", asset.Symbol)
	}
	return price, nil
}

func (e *Executor) buildBatch(ctx context.Context, tokenIn, tokenOut domain.Asset,
	amountIn *big.Int) ([]relay.Call, error) {

	tokenInAddr := common.HexToAddress(tokenIn.Address)

	allowance, err := e.reader.Allowance(ctx, tokenInAddr, e.safe, e.router)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrSwapRejected, "read allowance for %s: %v", tokenIn.Symbol, err)
	}

	var calls []relay.Call
	if allowance.Cmp(amountIn) < 0 {
		approveData, err := chain.PackApprove(e.router, amountIn)
		if err != nil {
			return nil, errors.Wrapf(domain.ErrSwapRejected, "encode approve: %v", err)
		}
		calls = append(calls, relay.Call{To: tokenInAddr, Value: big.NewInt(0), Data: approveData})
	}

	swapData, err := chain.PackExactInputSingle(chain.ExactInputSingleParams{
		TokenIn:           tokenInAddr,
		TokenOut:          common.HexToAddress(tokenOut.Address),
		Fee:               big.NewInt(e.poolFee),
		Recipient:         e.safe,
		Deadline:          big.NewInt(e.now().Add(e.deadline).Unix()),
		AmountIn:          amountIn,
		AmountOutMinimum:  big.NewInt(0),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, errors.Wrapf(domain.ErrSwapRejected, "encode swap: %v", err)
	}

	return append(calls, relay.Call{To: e.router, Value: big.NewInt(0), Data: swapData}), nil
}
