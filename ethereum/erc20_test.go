package ethereum_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/Mrinallcx/payagent-core/ethereum"
)

const (
	fromAddr  = "0x1111111111111111111111111111111111111111"
	toAddr    = "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"
	tokenAddr = "0x037A54AaB062628C9Bbae1FDB1583c195585fe41"
)

func TestParseTransferLog(t *testing.T) {
	value := big.NewInt(123456789)
	lg := &ethtypes.Log{
		Address: common.HexToAddress(tokenAddr),
		Topics: []common.Hash{
			ethereum.TransferTopic,
			common.BytesToHash(common.HexToAddress(fromAddr).Bytes()),
			common.BytesToHash(common.HexToAddress(toAddr).Bytes()),
		},
		Data: common.LeftPadBytes(value.Bytes(), 32),
	}

	from, to, got, ok := ethereum.ParseTransferLog(lg)
	require.True(t, ok)
	require.Equal(t, common.HexToAddress(fromAddr), from)
	require.Equal(t, common.HexToAddress(toAddr), to)
	require.Zero(t, value.Cmp(got))
}

func TestParseTransferLogRejectsOtherEvents(t *testing.T) {
	// Approval has the same topic arity but a different signature hash
	lg := &ethtypes.Log{
		Topics: []common.Hash{
			common.HexToHash("0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925"),
			common.BytesToHash(common.HexToAddress(fromAddr).Bytes()),
			common.BytesToHash(common.HexToAddress(toAddr).Bytes()),
		},
		Data: common.LeftPadBytes(big.NewInt(1).Bytes(), 32),
	}
	_, _, _, ok := ethereum.ParseTransferLog(lg)
	require.False(t, ok)

	// indexed value variant (e.g. some NFT contracts) has 4 topics
	lg.Topics = append(lg.Topics, common.Hash{})
	lg.Topics[0] = ethereum.TransferTopic
	_, _, _, ok = ethereum.ParseTransferLog(lg)
	require.False(t, ok)
}

type balanceBackend struct {
	balance *big.Int
	gotCall goethereum.CallMsg
}

func (b *balanceBackend) TransactionReceipt(_ context.Context, _ common.Hash) (*ethtypes.Receipt, error) {
	return nil, goethereum.NotFound
}

func (b *balanceBackend) TransactionByHash(_ context.Context, _ common.Hash) (*ethtypes.Transaction, bool, error) {
	return nil, false, goethereum.NotFound
}

func (b *balanceBackend) CallContract(_ context.Context, call goethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.gotCall = call
	return common.LeftPadBytes(b.balance.Bytes(), 32), nil
}

func TestTokenBalance(t *testing.T) {
	want := new(big.Int)
	want.SetString("4000000000000000000", 10)
	backend := &balanceBackend{balance: want}
	client := ethereum.NewClientWithBackend(backend)

	got, err := client.TokenBalance(context.Background(), common.HexToAddress(tokenAddr), common.HexToAddress(toAddr))
	require.NoError(t, err)
	require.Equal(t, want.String(), got.String())

	require.Equal(t, common.HexToAddress(tokenAddr), *backend.gotCall.To)
	// balanceOf selector
	require.Equal(t, []byte{0x70, 0xa0, 0x82, 0x31}, backend.gotCall.Data[:4])
}
