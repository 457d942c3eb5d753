package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const swapRouterABIJSON = `[
	{"inputs":[{"components":[
		{"internalType":"address","name":"tokenIn","type":"address"},
		{"internalType":"address","name":"tokenOut","type":"address"},
		{"internalType":"uint24","name":"fee","type":"uint24"},
		{"internalType":"address","name":"recipient","type":"address"},
		{"internalType":"uint256","name":"deadline","type":"uint256"},
		{"internalType":"uint256","name":"amountIn","type":"uint256"},
		{"internalType":"uint256","name":"amountOutMinimum","type":"uint256"},
		{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}
	],"internalType":"struct ISwapRouter.ExactInputSingleParams","name":"params","type":"tuple"}],
	"name":"exactInputSingle",
	"outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"}],
	"stateMutability":"payable","type":"function"}
]`

var swapRouterABI = mustParseABI(swapRouterABIJSON)

// ExactInputSingleParams mirrors the Uniswap V3 router call parameters.
type ExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// PackExactInputSingle encodes a single-hop swap through the V3 router.
func PackExactInputSingle(p ExactInputSingleParams) ([]byte, error) {
	data, err := swapRouterABI.Pack("exactInputSingle", p)
	if err != nil {
		return nil, errors.Wrap(err, "pack exactInputSingle")
	}
	return data, nil
}
