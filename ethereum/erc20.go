package ethereum

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const erc20ABIJSON = `
[
  {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "account", "type": "address" }],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "Transfer",
    "type": "event",
    "inputs": [
      { "name": "from", "type": "address", "indexed": true },
      { "name": "to", "type": "address", "indexed": true },
      { "name": "value", "type": "uint256", "indexed": false }
    ]
  }
]
`

// TransferTopic is topic[0] of the ERC-20 Transfer event log.
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

var (
	erc20ABIOnce sync.Once
	erc20ABI     abi.ABI
	erc20ABIErr  error
)

func loadERC20ABI() (abi.ABI, error) {
	erc20ABIOnce.Do(func() {
		erc20ABI, erc20ABIErr = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20ABI, erc20ABIErr
}

func packBalanceOf(holder common.Address) ([]byte, error) {
	parsed, err := loadERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("unable to parse erc20 abi: %w", err)
	}
	return parsed.Pack("balanceOf", holder)
}

func unpackBalanceOf(result []byte) (*big.Int, error) {
	parsed, err := loadERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("unable to parse erc20 abi: %w", err)
	}
	values, err := parsed.Unpack("balanceOf", result)
	if err != nil {
		return nil, fmt.Errorf("unable to unpack balanceOf result: %w", err)
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", values[0])
	}
	return balance, nil
}

// ParseTransferLog decodes an ERC-20 Transfer event log. Returns ok=false
// when the log is not a Transfer event.
func ParseTransferLog(lg *ethtypes.Log) (from, to common.Address, value *big.Int, ok bool) {
	if len(lg.Topics) != 3 || lg.Topics[0] != TransferTopic {
		return common.Address{}, common.Address{}, nil, false
	}
	from = common.BytesToAddress(lg.Topics[1].Bytes())
	to = common.BytesToAddress(lg.Topics[2].Bytes())
	value = new(big.Int).SetBytes(lg.Data)
	return from, to, value, true
}
