package config

import (
	"fmt"
	"os"
	"strconv"
)

// Secrets carries credentials and endpoints taken from the environment
// (or a .env file) so they never end up in the yaml config on disk.
type Secrets struct {
	RPCURL           string
	SignerPrivateKey string
	SafeAddress      string
	SafeServiceURL   string
	PayoutWallet     string
	ChainID          int64
}

// SecretsFromEnv reads the required environment variables.
func SecretsFromEnv() (Secrets, error) {
	s := Secrets{
		RPCURL:           os.Getenv("RPC_URL"),
		SignerPrivateKey: os.Getenv("SIGNER_PRIVATE_KEY"),
		SafeAddress:      os.Getenv("SAFE_ADDRESS"),
		SafeServiceURL:   os.Getenv("SAFE_SERVICE_URL"),
		PayoutWallet:     os.Getenv("PAYOUT_WALLET"),
	}

	for name, v := range map[string]string{
		"RPC_URL":            s.RPCURL,
		"SIGNER_PRIVATE_KEY": s.SignerPrivateKey,
		"SAFE_ADDRESS":       s.SafeAddress,
		"SAFE_SERVICE_URL":   s.SafeServiceURL,
		"PAYOUT_WALLET":      s.PayoutWallet,
	} {
		if v == "" {
			return Secrets{}, fmt.Errorf("%s is not set", name)
		}
	}

	chainID := os.Getenv("CHAIN_ID")
	if chainID == "" {
		chainID = "42161"
	}
	id, err := strconv.ParseInt(chainID, 10, 64)
	if err != nil {
		return Secrets{}, fmt.Errorf("invalid CHAIN_ID %q: %w", chainID, err)
	}
	s.ChainID = id

	return s, nil
}
