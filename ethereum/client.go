package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	sdkmath "cosmossdk.io/math"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

const rpcTimeout = 10 * time.Second

// Backend is the subset of ethclient.Client the platform reads from. All
// chain access is read-only: receipts, transactions and eth_call.
type Backend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Client wraps one network's RPC endpoint. Every call carries a fixed
// timeout; a call that exceeds it is a failure, not an unknown.
type Client struct {
	rpcURL  string
	backend Backend
	closer  func()
}

func NewClient(rpcURL string) (*Client, error) {
	ec, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("unable to dial rpc endpoint %s: %w", rpcURL, err)
	}
	return &Client{rpcURL: rpcURL, backend: ec, closer: ec.Close}, nil
}

// NewClientWithBackend wires a prebuilt backend, used by tests.
func NewClientWithBackend(backend Backend) *Client {
	return &Client{backend: backend}
}

func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Receipt fetches the transaction receipt by hash. Returns
// go-ethereum's NotFound error when the transaction is unknown.
func (c *Client) Receipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	return c.backend.TransactionReceipt(ctx, txHash)
}

// Transaction fetches the full transaction object by hash.
func (c *Client) Transaction(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	return c.backend.TransactionByHash(ctx, hash)
}

// TokenBalance performs a read-only balanceOf call against token for holder.
func (c *Client) TokenBalance(ctx context.Context, token, holder common.Address) (sdkmath.Int, error) {
	data, err := packBalanceOf(holder)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("balanceOf call failed for %s: %w", token.Hex(), err)
	}

	balance, err := unpackBalanceOf(result)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return sdkmath.NewIntFromBigInt(balance), nil
}
