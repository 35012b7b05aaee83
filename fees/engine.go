package fees

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/Mrinallcx/payagent-core/chains"
	"github.com/Mrinallcx/payagent-core/types"
)

// BalanceReader reads a wallet's token balance on a network.
type BalanceReader interface {
	TokenBalance(ctx context.Context, network string, token, holder common.Address) (sdkmath.Int, error)
}

// PriceSource returns a USD price for an asset symbol. It never fails;
// degraded values are the oracle's concern.
type PriceSource interface {
	PriceUSD(ctx context.Context, asset string) decimal.Decimal
}

// MetricsSink receives fee engine telemetry. A nil sink is valid.
type MetricsSink interface {
	IncFeeQuote(network, path string)
}

// Engine decides whether the settlement fee is charged in the incentive
// token or carved out of the payment token. It owns no persistent state;
// a quote is a pure function of chain state and config at call time.
type Engine struct {
	registry *chains.Registry
	balances BalanceReader
	prices   PriceSource
	cfg      types.FeeSettings
	logger   log.Logger
	metrics  MetricsSink
	clock    func() time.Time
}

func NewEngine(registry *chains.Registry, balances BalanceReader, prices PriceSource, cfg types.FeeSettings, logger log.Logger) *Engine {
	return &Engine{
		registry: registry,
		balances: balances,
		prices:   prices,
		cfg:      cfg,
		logger:   logger.With("component", "fee-engine"),
		clock:    time.Now,
	}
}

// WithMetrics attaches a metrics sink.
func (e *Engine) WithMetrics(m MetricsSink) *Engine {
	e.metrics = m
	return e
}

// ComputeFee quotes the settlement fee for a payment of paymentToken on
// network by payerWallet. The only hard failure is an unresolvable
// network; balance and price reads degrade gracefully because a failed
// quote would block all payments.
func (e *Engine) ComputeFee(ctx context.Context, payerWallet, network, paymentToken string) (*types.FeeQuote, error) {
	canonical, ok := e.registry.Resolve(network)
	if !ok {
		return nil, fmt.Errorf("unsupported network: %s", network)
	}

	incentive := e.cfg.IncentiveSymbol()
	incentiveDecimals := e.registry.TokenDecimals(canonical, incentive)
	flatUnits := e.cfg.FlatFeeUnits()

	balance := sdkmath.ZeroInt()
	if addr, ok := e.registry.TokenAddress(canonical, incentive); ok {
		b, err := e.balances.TokenBalance(ctx, canonical, common.HexToAddress(addr), common.HexToAddress(payerWallet))
		if err != nil {
			// never fail the quote because of a transient RPC blip
			e.logger.Warn("Balance read failed, treating balance as zero", "wallet", payerWallet, "network", canonical, "error", err)
		} else {
			balance = b
		}
	} else {
		e.logger.Debug("Incentive token has no contract on network, skipping balance check", "token", incentive, "network", canonical)
	}

	observedBalance := decimal.NewFromBigInt(balance.BigInt(), -int32(incentiveDecimals))
	threshold := sdkmath.NewIntWithDecimal(flatUnits, int(incentiveDecimals))
	flat := decimal.NewFromInt(flatUnits)

	quote := &types.FeeQuote{
		ObservedBalance: observedBalance,
		ComputedAt:      e.clock(),
	}

	switch {
	case balance.GTE(threshold):
		// payer holds enough of the incentive token: flat fee on top of
		// the payment, which is not reduced
		quote.FeeToken = incentive
		quote.FeeTotal = flat
		quote.Deducted = false
		e.observe(canonical, "flat")

	case strings.EqualFold(paymentToken, incentive):
		// balance insufficient but the payment itself is in the incentive
		// token: fee stays at the flat amount, no conversion
		quote.FeeToken = incentive
		quote.FeeTotal = flat
		quote.Deducted = true
		e.observe(canonical, "deducted")

	case e.registry.IsNative(paymentToken, canonical):
		incentivePrice := e.prices.PriceUSD(ctx, incentive)
		nativePrice := e.prices.PriceUSD(ctx, paymentToken)
		quote.FeeToken = strings.ToUpper(strings.TrimSpace(paymentToken))
		if nativePrice.IsZero() {
			e.logger.Warn("Native asset price unavailable, quoting zero fee", "asset", paymentToken, "network", canonical)
			quote.FeeTotal = decimal.Zero
		} else {
			quote.FeeTotal = flat.Mul(incentivePrice).Div(nativePrice)
		}
		quote.SourcePrice = &incentivePrice
		quote.Deducted = true
		e.observe(canonical, "deducted")

	default:
		// stable-valued payment token: USD price stands in directly
		incentivePrice := e.prices.PriceUSD(ctx, incentive)
		quote.FeeToken = strings.ToUpper(strings.TrimSpace(paymentToken))
		quote.FeeTotal = flat.Mul(incentivePrice)
		quote.SourcePrice = &incentivePrice
		quote.Deducted = true
		e.observe(canonical, "deducted")
	}

	e.split(quote, e.registry.TokenDecimals(canonical, quote.FeeToken))
	return quote, nil
}

// split rounds the total to the fee token's precision and apportions it
// into platform and creator shares. The platform share is truncated so any
// rounding remainder lands on the creator share and the two always sum
// exactly to the total.
func (e *Engine) split(quote *types.FeeQuote, decimals uint8) {
	ratio := decimal.New(e.cfg.PlatformRatioBps(), -4)
	quote.FeeTotal = quote.FeeTotal.Round(int32(decimals))
	quote.PlatformShare = quote.FeeTotal.Mul(ratio).Truncate(int32(decimals))
	quote.CreatorReward = quote.FeeTotal.Sub(quote.PlatformShare)
}

func (e *Engine) observe(network, path string) {
	if e.metrics != nil {
		e.metrics.IncFeeQuote(network, path)
	}
}
