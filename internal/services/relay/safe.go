// Package relay submits transaction batches to a Gnosis Safe multisig
// through the Safe Transaction Service: propose, co-sign, then poll until
// the batch is executed. Callers treat an unexecuted batch as failed.
package relay

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/custosbot/custos/internal/domain"
	"github.com/custosbot/custos/pkg/retrier"
)

// Call is one item of a batch: a contract call executed from the Safe.
type Call struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

const (
	operationCall         = 0
	operationDelegateCall = 1

	defaultHTTPTimeout  = 15 * time.Second
	executionPollEvery  = 3 * time.Second
	executionPollMax    = 10
	multiSendCallOnly   = "0x40A2aCCbd92BCA938b02010E17A5b8929b49130D"
	multiSendSelectorID = "8d80ff0a" // multiSend(bytes)
)

var (
	domainSeparatorTypehash = crypto.Keccak256([]byte("EIP712Domain(uint256 chainId,address verifyingContract)"))
	safeTxTypehash          = crypto.Keccak256([]byte("SafeTx(address to,uint256 value,bytes data,uint8 operation,uint256 safeTxGas,uint256 baseGas,uint256 gasPrice,address gasToken,address refundReceiver,uint256 nonce)"))
)

// SafeRelay is a Safe Transaction Service client bound to one Safe.
type SafeRelay struct {
	httpClient *http.Client
	serviceURL string
	safe       common.Address
	signerKey  *ecdsa.PrivateKey
	signerAddr common.Address
	chainID    *big.Int
	retry      *retrier.Retrier
	logger     *zap.Logger
}

// NewSafeRelay builds the relay client. serviceURL is the transaction
// service base (e.g. https://safe-transaction-arbitrum.safe.global).
func NewSafeRelay(serviceURL string, safe common.Address, signerKey *ecdsa.PrivateKey,
	chainID *big.Int, logger *zap.Logger) *SafeRelay {

	return &SafeRelay{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		serviceURL: serviceURL,
		safe:       safe,
		signerKey:  signerKey,
		signerAddr: crypto.PubkeyToAddress(signerKey.PublicKey),
		chainID:    chainID,
		retry: retrier.New(
			retrier.WithInitialInterval(executionPollEvery),
			retrier.WithMaxRetries(executionPollMax),
		),
		logger: logger,
	}
}

// SubmitAndConfirm proposes the batch, records the signer's confirmation and
// waits for execution. Returns the safe transaction hash. Any failure, or a
// batch still unexecuted after the polling budget, yields ErrRelay so the
// caller never commits state for an unconfirmed trade.
func (r *SafeRelay) SubmitAndConfirm(ctx context.Context, calls []Call) (string, error) {
	if len(calls) == 0 {
		return "", errors.Wrap(domain.ErrRelay, "empty batch")
	}

	nonce, err := r.currentNonce(ctx)
	if err != nil {
		return "", errors.Wrapf(domain.ErrRelay, "fetch nonce: %v", err)
	}

	to, value, data, operation := flatten(calls)
	txHash := r.safeTxHash(to, value, data, operation, nonce)
	signature, err := r.signHash(txHash)
	if err != nil {
		return "", errors.Wrapf(domain.ErrRelay, "sign: %v", err)
	}

	hashHex := hexutil.Encode(txHash)
	if err := r.propose(ctx, to, value, data, operation, nonce, hashHex, signature); err != nil {
		return "", errors.Wrapf(domain.ErrRelay, "propose %s: %v", hashHex, err)
	}
	r.logger.Info("safe batch proposed",
		zap.String("safe_tx_hash", hashHex),
		zap.Int("calls", len(calls)),
		zap.Uint64("nonce", nonce))

	if err := r.confirm(ctx, hashHex, signature); err != nil {
		return "", errors.Wrapf(domain.ErrRelay, "confirm %s: %v", hashHex, err)
	}

	if err := r.waitExecuted(ctx, hashHex); err != nil {
		return "", err
	}

	r.logger.Info("safe batch executed", zap.String("safe_tx_hash", hashHex))
	return hashHex, nil
}

// flatten turns a batch into a single Safe transaction: one call is sent
// directly, several are wrapped into a MultiSendCallOnly delegatecall.
func flatten(calls []Call) (to common.Address, value *big.Int, data []byte, operation int) {
	if len(calls) == 1 {
		return calls[0].To, calls[0].Value, calls[0].Data, operationCall
	}

	var packed bytes.Buffer
	for _, call := range calls {
		packed.WriteByte(operationCall)
		packed.Write(call.To.Bytes())
		packed.Write(common.LeftPadBytes(call.Value.Bytes(), 32))
		packed.Write(common.LeftPadBytes(big.NewInt(int64(len(call.Data))).Bytes(), 32))
		packed.Write(call.Data)
	}

	inner := packed.Bytes()
	// multiSend(bytes): selector ++ offset ++ length ++ padded payload
	data = common.FromHex(multiSendSelectorID)
	data = append(data, common.LeftPadBytes(big.NewInt(32).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(int64(len(inner))).Bytes(), 32)...)
	data = append(data, common.RightPadBytes(inner, (len(inner)+31)/32*32)...)

	return common.HexToAddress(multiSendCallOnly), big.NewInt(0), data, operationDelegateCall
}

// safeTxHash computes the EIP-712 digest the Safe contracts verify.
func (r *SafeRelay) safeTxHash(to common.Address, value *big.Int, data []byte, operation int, nonce uint64) []byte {
	encodeUint := func(v *big.Int) []byte { return common.LeftPadBytes(v.Bytes(), 32) }
	encodeAddr := func(a common.Address) []byte { return common.LeftPadBytes(a.Bytes(), 32) }

	domainSeparator := crypto.Keccak256(
		domainSeparatorTypehash,
		encodeUint(r.chainID),
		encodeAddr(r.safe),
	)

	structHash := crypto.Keccak256(
		safeTxTypehash,
		encodeAddr(to),
		encodeUint(value),
		crypto.Keccak256(data),
		encodeUint(big.NewInt(int64(operation))),
		encodeUint(big.NewInt(0)), // safeTxGas
		encodeUint(big.NewInt(0)), // baseGas
		encodeUint(big.NewInt(0)), // gasPrice
		encodeAddr(common.Address{}),
		encodeAddr(common.Address{}),
		encodeUint(new(big.Int).SetUint64(nonce)),
	)

	return crypto.Keccak256([]byte{0x19, 0x01}, domainSeparator, structHash)
}

func (r *SafeRelay) signHash(hash []byte) (string, error) {
	sig, err := crypto.Sign(hash, r.signerKey)
	if err != nil {
		return "", err
	}
	// Safe expects the legacy 27/28 recovery id
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

type safeInfo struct {
	Nonce uint64 `json:"nonce"`
}

func (r *SafeRelay) currentNonce(ctx context.Context) (uint64, error) {
	var info safeInfo
	endpoint := fmt.Sprintf("%s/api/v1/safes/%s/", r.serviceURL, r.safe.Hex())
	if err := r.getJSON(ctx, endpoint, &info); err != nil {
		return 0, err
	}
	return info.Nonce, nil
}

type proposeRequest struct {
	Safe                    string `json:"safe"`
	To                      string `json:"to"`
	Value                   string `json:"value"`
	Data                    string `json:"data"`
	Operation               int    `json:"operation"`
	SafeTxGas               string `json:"safeTxGas"`
	BaseGas                 string `json:"baseGas"`
	GasPrice                string `json:"gasPrice"`
	GasToken                string `json:"gasToken"`
	RefundReceiver          string `json:"refundReceiver"`
	Nonce                   uint64 `json:"nonce"`
	ContractTransactionHash string `json:"contractTransactionHash"`
	Sender                  string `json:"sender"`
	Signature               string `json:"signature"`
}

func (r *SafeRelay) propose(ctx context.Context, to common.Address, value *big.Int, data []byte,
	operation int, nonce uint64, hashHex, signature string) error {

	zeroAddr := common.Address{}.Hex()
	body := proposeRequest{
		Safe:                    r.safe.Hex(),
		To:                      to.Hex(),
		Value:                   value.String(),
		Data:                    hexutil.Encode(data),
		Operation:               operation,
		SafeTxGas:               "0",
		BaseGas:                 "0",
		GasPrice:                "0",
		GasToken:                zeroAddr,
		RefundReceiver:          zeroAddr,
		Nonce:                   nonce,
		ContractTransactionHash: hashHex,
		Sender:                  r.signerAddr.Hex(),
		Signature:               signature,
	}

	endpoint := fmt.Sprintf("%s/api/v1/safes/%s/multisig-transactions/", r.serviceURL, r.safe.Hex())
	return r.postJSON(ctx, endpoint, body)
}

func (r *SafeRelay) confirm(ctx context.Context, hashHex, signature string) error {
	endpoint := fmt.Sprintf("%s/api/v1/multisig-transactions/%s/confirmations/", r.serviceURL, hashHex)
	return r.postJSON(ctx, endpoint, map[string]string{"signature": signature})
}

type txStatus struct {
	IsExecuted   bool  `json:"isExecuted"`
	IsSuccessful *bool `json:"isSuccessful"`
}

func (r *SafeRelay) waitExecuted(ctx context.Context, hashHex string) error {
	endpoint := fmt.Sprintf("%s/api/v1/multisig-transactions/%s/", r.serviceURL, hashHex)

	err := r.retry.Do(ctx, func(ctx context.Context) error {
		var status txStatus
		if err := r.getJSON(ctx, endpoint, &status); err != nil {
			return err
		}
		if !status.IsExecuted {
			return errors.New("not executed yet")
		}
		if status.IsSuccessful != nil && !*status.IsSuccessful {
			return retrier.Permanent(errors.New("execution reverted"))
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(domain.ErrRelay, "batch %s not confirmed: %v", hashHex, err)
	}
	return nil
}

func (r *SafeRelay) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: HTTP %d", endpoint, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (r *SafeRelay) postJSON(ctx context.Context, endpoint string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("POST %s: HTTP %d: %s", endpoint, resp.StatusCode, detail)
	}
	return nil
}
