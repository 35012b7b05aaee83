package payments_test

import (
	"context"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"
	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/Mrinallcx/payagent-core/chains"
	"github.com/Mrinallcx/payagent-core/ethereum"
	"github.com/Mrinallcx/payagent-core/fees"
	"github.com/Mrinallcx/payagent-core/payments"
	"github.com/Mrinallcx/payagent-core/types"
	"github.com/Mrinallcx/payagent-core/verifier"
)

const (
	testTxHash   = "0x85bbf7e65a5992e6317a61f005e06d9972a033d71b514be183b179e1b47723fe"
	testReceiver = "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"
	testWallet   = "0x1111111111111111111111111111111111111111"
	usdcMainnet  = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

var logger = log.NewLogger(os.Stdout, log.LevelOption(zerolog.ErrorLevel))

type fakeBackend struct {
	receipts map[common.Hash]*ethtypes.Receipt
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	r, ok := f.receipts[txHash]
	if !ok {
		return nil, goethereum.NotFound
	}
	return r, nil
}

func (f *fakeBackend) TransactionByHash(_ context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error) {
	return nil, false, goethereum.NotFound
}

func (f *fakeBackend) CallContract(_ context.Context, _ goethereum.CallMsg, _ *big.Int) ([]byte, error) {
	return nil, goethereum.NotFound
}

type fakeBalances struct{}

func (fakeBalances) TokenBalance(_ context.Context, _ string, _, _ common.Address) (sdkmath.Int, error) {
	return sdkmath.ZeroInt(), nil
}

type fakePrices struct{}

func (fakePrices) PriceUSD(_ context.Context, asset string) decimal.Decimal {
	if asset == "LCX" {
		return decimal.RequireFromString("0.05")
	}
	return decimal.Zero
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []string
}

func (d *recordingDispatcher) Dispatch(eventType string, _ *types.Payment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, eventType)
}

func (d *recordingDispatcher) dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

func usdcTransferReceipt(to string, amount string) *ethtypes.Receipt {
	value := decimal.RequireFromString(amount).Shift(6).BigInt()
	return &ethtypes.Receipt{
		Status:      ethtypes.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(19_000_000),
		Logs: []*ethtypes.Log{{
			Address: common.HexToAddress(usdcMainnet),
			Topics: []common.Hash{
				ethereum.TransferTopic,
				common.BytesToHash(common.HexToAddress(testWallet).Bytes()),
				common.BytesToHash(common.HexToAddress(to).Bytes()),
			},
			Data: common.LeftPadBytes(value.Bytes(), 32),
		}},
	}
}

type processorFixture struct {
	store      *types.MemoryStore
	processor  *payments.Processor
	dispatcher *recordingDispatcher
}

func setupProcessor(t *testing.T, backend *fakeBackend) *processorFixture {
	t.Helper()

	registry := chains.NewRegistry(nil)
	pool := ethereum.NewPoolWithClients(registry, map[string]*ethereum.Client{
		"ethereum": ethereum.NewClientWithBackend(backend),
	})

	store := types.NewMemoryStore()
	dispatcher := &recordingDispatcher{}
	engine := fees.NewEngine(registry, fakeBalances{}, fakePrices{}, types.FeeSettings{}, logger)
	txVerifier := verifier.New(registry, pool, logger)

	return &processorFixture{
		store:      store,
		processor:  payments.NewProcessor(store, txVerifier, engine, dispatcher, logger, nil),
		dispatcher: dispatcher,
	}
}

func pendingPayment() *types.Payment {
	return &types.Payment{
		ID:           "pay-1",
		CreatorID:    "creator-1",
		Network:      "ethereum",
		TokenSymbol:  "USDC",
		TokenAddress: usdcMainnet,
		Amount:       decimal.RequireFromString("100"),
		Receiver:     testReceiver,
		PayerWallet:  testWallet,
		Status:       types.PaymentPending,
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func TestProcessVerificationSettles(t *testing.T) {
	hash := common.HexToHash(testTxHash)
	f := setupProcessor(t, &fakeBackend{receipts: map[common.Hash]*ethtypes.Receipt{
		hash: usdcTransferReceipt(testReceiver, "100"),
	}})

	ctx := context.Background()
	require.NoError(t, f.store.PutPayment(ctx, pendingPayment()))

	result, err := f.processor.ProcessVerification(ctx, "pay-1", testTxHash)
	require.NoError(t, err)
	require.True(t, result.Valid)

	payment, ok, err := f.store.GetPayment(ctx, "pay-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.PaymentCompleted, payment.Status)
	require.Equal(t, testTxHash, payment.TxHash)
	require.NotNil(t, payment.FeeQuote)
	require.True(t, payment.FeeQuote.Deducted)

	entries, err := f.store.FeeEntriesForPayment(ctx, "pay-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, entries[0].Quote.SharesBalanced())

	require.Equal(t, []string{types.EventPaymentCompleted}, f.dispatcher.dispatched())
}

func TestProcessVerificationIdempotent(t *testing.T) {
	hash := common.HexToHash(testTxHash)
	f := setupProcessor(t, &fakeBackend{receipts: map[common.Hash]*ethtypes.Receipt{
		hash: usdcTransferReceipt(testReceiver, "100"),
	}})

	ctx := context.Background()
	require.NoError(t, f.store.PutPayment(ctx, pendingPayment()))

	_, err := f.processor.ProcessVerification(ctx, "pay-1", testTxHash)
	require.NoError(t, err)

	// replaying the exact same request must not settle twice
	_, err = f.processor.ProcessVerification(ctx, "pay-1", testTxHash)
	require.ErrorIs(t, err, payments.ErrAlreadySettled)

	entries, err := f.store.FeeEntriesForPayment(ctx, "pay-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, []string{types.EventPaymentCompleted}, f.dispatcher.dispatched())
}

func TestProcessVerificationInvalidKeepsPending(t *testing.T) {
	f := setupProcessor(t, &fakeBackend{receipts: map[common.Hash]*ethtypes.Receipt{}})

	ctx := context.Background()
	require.NoError(t, f.store.PutPayment(ctx, pendingPayment()))

	result, err := f.processor.ProcessVerification(ctx, "pay-1", testTxHash)
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Equal(t, types.ReasonNotFound, result.Reason)

	payment, _, err := f.store.GetPayment(ctx, "pay-1")
	require.NoError(t, err)
	require.Equal(t, types.PaymentPending, payment.Status, "a failed verification is retryable")
	require.Empty(t, f.dispatcher.dispatched())
}

func TestProcessVerificationUnknownPayment(t *testing.T) {
	f := setupProcessor(t, &fakeBackend{})

	_, err := f.processor.ProcessVerification(context.Background(), "missing", testTxHash)
	require.ErrorIs(t, err, payments.ErrPaymentNotFound)
}

func TestExpirySweeper(t *testing.T) {
	f := setupProcessor(t, &fakeBackend{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	overdue := pendingPayment()
	overdue.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, f.store.PutPayment(ctx, overdue))

	fresh := pendingPayment()
	fresh.ID = "pay-2"
	require.NoError(t, f.store.PutPayment(ctx, fresh))

	sweeper := payments.NewExpirySweeper(f.store, f.dispatcher, logger, 10*time.Millisecond)
	go sweeper.Start(ctx)

	require.Eventually(t, func() bool {
		p, ok, err := f.store.GetPayment(ctx, "pay-1")
		return err == nil && ok && p.Status == types.PaymentExpired
	}, 5*time.Second, 20*time.Millisecond)

	p, _, err := f.store.GetPayment(ctx, "pay-2")
	require.NoError(t, err)
	require.Equal(t, types.PaymentPending, p.Status, "payments ahead of their deadline stay pending")

	require.Eventually(t, func() bool {
		events := f.dispatcher.dispatched()
		return len(events) == 1 && events[0] == types.EventPaymentExpired
	}, 5*time.Second, 20*time.Millisecond)
}
