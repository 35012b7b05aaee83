package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/log"
	"github.com/google/uuid"

	"github.com/Mrinallcx/payagent-core/fees"
	"github.com/Mrinallcx/payagent-core/types"
	"github.com/Mrinallcx/payagent-core/verifier"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrAlreadySettled is the idempotency guard: verifying the same
	// transaction against the same payment twice must not duplicate the
	// state transition, the ledger entry, or the webhook dispatch.
	ErrAlreadySettled = errors.New("payment already settled")
)

// EventDispatcher is the fire-and-forget notification collaborator.
type EventDispatcher interface {
	Dispatch(eventType string, payment *types.Payment)
}

// Processor runs the settlement pipeline for one inbound verification
// request: load payment, check the terminal-state precondition, confirm
// the on-chain fact, snapshot the fee, persist, notify.
type Processor struct {
	store      types.Store
	verifier   *verifier.Verifier
	fees       *fees.Engine
	dispatcher EventDispatcher
	logger     log.Logger
	metrics    *PromMetrics
}

func NewProcessor(store types.Store, v *verifier.Verifier, engine *fees.Engine, dispatcher EventDispatcher, logger log.Logger, metrics *PromMetrics) *Processor {
	return &Processor{
		store:      store,
		verifier:   v,
		fees:       engine,
		dispatcher: dispatcher,
		logger:     logger.With("component", "payment-processor"),
		metrics:    metrics,
	}
}

// ProcessVerification verifies txHash against the payment and, when valid,
// settles the payment exactly once. The caller gets the verification
// result back synchronously; webhook delivery happens asynchronously.
func (p *Processor) ProcessVerification(ctx context.Context, paymentID, txHash string) (*types.VerificationResult, error) {
	payment, ok, err := p.store.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("unable to load payment %s: %w", paymentID, err)
	}
	if !ok {
		return nil, ErrPaymentNotFound
	}

	// "already settled" is a checked precondition, not the verifier's
	// concern
	if payment.Settled() {
		return nil, ErrAlreadySettled
	}

	result, err := p.verifier.Verify(ctx, verifier.Request{
		TxHash:               txHash,
		ExpectedAmount:       payment.Amount,
		ExpectedTokenAddress: payment.TokenAddress,
		ExpectedReceiver:     payment.Receiver,
		TokenSymbol:          payment.TokenSymbol,
		Network:              payment.Network,
	})
	if err != nil {
		return nil, err
	}

	if p.metrics != nil {
		p.metrics.IncVerification(payment.Network, verificationOutcome(result))
	}

	if !result.Valid {
		p.logger.Info("Verification rejected", "payment", paymentID, "tx", txHash, "reason", result.Reason)
		return result, nil
	}

	// re-validate the fee against live chain state; the quote issued with
	// the payment instructions may be stale by settlement time
	quote, err := p.fees.ComputeFee(ctx, payment.PayerWallet, payment.Network, payment.TokenSymbol)
	if err != nil {
		p.logger.Error("Fee re-validation failed at settlement", "payment", paymentID, "error", err)
		quote = payment.FeeQuote
	} else if payment.FeeQuote != nil && payment.FeeQuote.FeeToken != quote.FeeToken {
		p.logger.Info("Fee path changed between quote and settlement", "payment", paymentID, "quoted", payment.FeeQuote.FeeToken, "settled", quote.FeeToken)
	}

	now := time.Now()
	updated, err := p.store.UpdatePaymentIfStatus(ctx, paymentID, types.PaymentPending, func(pm *types.Payment) {
		pm.Status = types.PaymentCompleted
		pm.TxHash = txHash
		pm.FeeQuote = quote
		pm.Updated = now
	})
	if err != nil {
		return nil, fmt.Errorf("unable to settle payment %s: %w", paymentID, err)
	}
	if !updated {
		// a concurrent request won the settlement race
		return nil, ErrAlreadySettled
	}

	if quote != nil {
		entry := &types.FeeLedgerEntry{
			ID:        uuid.NewString(),
			PaymentID: paymentID,
			Quote:     *quote,
			Created:   now,
		}
		if err := p.store.PutFeeEntry(ctx, entry); err != nil {
			p.logger.Error("Unable to write fee ledger entry", "payment", paymentID, "error", err)
		}
	}

	payment.Status = types.PaymentCompleted
	payment.TxHash = txHash
	payment.FeeQuote = quote
	payment.Updated = now

	if p.metrics != nil {
		p.metrics.IncPaymentSettled(payment.Network, payment.TokenSymbol)
	}

	p.dispatcher.Dispatch(types.EventPaymentCompleted, payment)

	p.logger.Info("Payment settled", "payment", paymentID, "tx", txHash, "network", payment.Network, "block", result.BlockNumber)
	return result, nil
}

func verificationOutcome(r *types.VerificationResult) string {
	if r.Valid {
		return "valid"
	}
	switch r.Reason {
	case types.ReasonNotFound:
		return "not_found"
	case types.ReasonTxFailed:
		return "failed"
	case types.ReasonNoTransferEvent:
		return "no_transfer_event"
	default:
		return "mismatch"
	}
}
