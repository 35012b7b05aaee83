package verifier

import (
	"context"
	"fmt"
	"strings"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/Mrinallcx/payagent-core/chains"
	"github.com/Mrinallcx/payagent-core/ethereum"
	"github.com/Mrinallcx/payagent-core/types"
)

// slackFor returns half the token's smallest representable unit. Amount
// comparisons absorb rounding introduced by decimal-string conversion up
// to this much; a full unit short is underpayment. Receiver comparisons
// get no slack.
func slackFor(decimals uint8) decimal.Decimal {
	return decimal.New(5, -int32(decimals)-1)
}

// Request describes the expected transfer a claimed transaction must back.
type Request struct {
	TxHash               string
	ExpectedAmount       decimal.Decimal
	ExpectedTokenAddress string // empty for the native asset
	ExpectedReceiver     string
	TokenSymbol          string
	Network              string
}

// Verifier checks claimed transaction hashes against on-chain receipts.
// It owns no state; every verdict is a pure read of chain state at call
// time. Verification failures are typed results, not errors.
type Verifier struct {
	registry *chains.Registry
	pool     *ethereum.Pool
	logger   log.Logger
}

func New(registry *chains.Registry, pool *ethereum.Pool, logger log.Logger) *Verifier {
	return &Verifier{
		registry: registry,
		pool:     pool,
		logger:   logger.With("component", "verifier"),
	}
}

// Verify fetches the receipt for req.TxHash and decides validity. The only
// errors returned are configuration problems (unresolvable network, no RPC
// endpoint); everything observed on chain comes back as a typed result.
func (v *Verifier) Verify(ctx context.Context, req Request) (*types.VerificationResult, error) {
	canonical, ok := v.registry.Resolve(req.Network)
	if !ok {
		return nil, fmt.Errorf("unsupported network: %s", req.Network)
	}

	client, err := v.pool.ForNetwork(canonical)
	if err != nil {
		return nil, err
	}

	result := &types.VerificationResult{
		ExpectedAmount:   req.ExpectedAmount,
		ExpectedReceiver: req.ExpectedReceiver,
	}

	receipt, err := client.Receipt(ctx, common.HexToHash(req.TxHash))
	if err != nil || receipt == nil {
		if err != nil {
			v.logger.Debug("Receipt fetch failed", "tx", req.TxHash, "network", canonical, "error", err)
		}
		result.Reason = types.ReasonNotFound
		return result, nil
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		result.Reason = types.ReasonTxFailed
		result.BlockNumber = receipt.BlockNumber.Uint64()
		return result, nil
	}

	if v.registry.IsNative(req.TokenSymbol, canonical) {
		return v.verifyNative(ctx, client, req, receipt, result)
	}
	return v.verifyContract(req, canonical, receipt, result)
}

// verifyNative compares the transaction's own destination and value.
func (v *Verifier) verifyNative(ctx context.Context, client *ethereum.Client, req Request, receipt *ethtypes.Receipt, result *types.VerificationResult) (*types.VerificationResult, error) {
	result.TokenType = types.TokenTypeNative

	tx, _, err := client.Transaction(ctx, common.HexToHash(req.TxHash))
	if err != nil || tx == nil {
		if err != nil {
			v.logger.Debug("Transaction fetch failed", "tx", req.TxHash, "error", err)
		}
		result.Reason = types.ReasonNotFound
		return result, nil
	}

	to := tx.To()
	if to == nil {
		result.Reason = types.ReasonMismatch
		return result, nil
	}

	observed := decimal.NewFromBigInt(tx.Value(), -int32(chains.DefaultDecimals))
	result.ObservedAmount = observed
	result.ObservedReceiver = to.Hex()
	result.BlockNumber = receipt.BlockNumber.Uint64()

	if !strings.EqualFold(to.Hex(), req.ExpectedReceiver) || !amountCovers(observed, req.ExpectedAmount, chains.DefaultDecimals) {
		result.Reason = types.ReasonMismatch
		return result, nil
	}

	result.Valid = true
	return result, nil
}

// verifyContract scans the receipt's logs for a Transfer event emitted by
// the expected token contract. Logs from unrelated contracts in the same
// transaction are never considered.
func (v *Verifier) verifyContract(req Request, network string, receipt *ethtypes.Receipt, result *types.VerificationResult) (*types.VerificationResult, error) {
	result.TokenType = types.TokenTypeContract
	result.BlockNumber = receipt.BlockNumber.Uint64()

	tokenAddr := common.HexToAddress(req.ExpectedTokenAddress)
	decimals := v.registry.TokenDecimals(network, req.TokenSymbol)

	var candidate *types.VerificationResult
	for _, lg := range receipt.Logs {
		if lg.Address != tokenAddr {
			continue
		}
		_, to, value, ok := ethereum.ParseTransferLog(lg)
		if !ok {
			continue
		}

		observed := decimal.NewFromBigInt(value, -int32(decimals))
		if strings.EqualFold(to.Hex(), req.ExpectedReceiver) && amountCovers(observed, req.ExpectedAmount, decimals) {
			result.Valid = true
			result.ObservedAmount = observed
			result.ObservedReceiver = to.Hex()
			return result, nil
		}

		// remember the closest transfer for mismatch diagnostics,
		// preferring one that at least reached the right receiver
		if candidate == nil || strings.EqualFold(to.Hex(), req.ExpectedReceiver) {
			cp := *result
			cp.ObservedAmount = observed
			cp.ObservedReceiver = to.Hex()
			candidate = &cp
		}
	}

	if candidate == nil {
		result.Reason = types.ReasonNoTransferEvent
		return result, nil
	}

	candidate.Reason = types.ReasonMismatch
	return candidate, nil
}

// amountCovers applies observed >= expected with a sub-unit slack:
// overpayment is accepted, underpayment is not.
func amountCovers(observed, expected decimal.Decimal, decimals uint8) bool {
	return expected.Sub(observed).LessThanOrEqual(slackFor(decimals))
}
