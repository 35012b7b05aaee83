package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeQuote is the derived fee decision for one payment. It is recomputed at
// settlement time and snapshotted into a ledger entry; it is never a source
// of truth on its own.
type FeeQuote struct {
	FeeToken        string          `json:"fee_token"`
	FeeTotal        decimal.Decimal `json:"fee_total"`
	PlatformShare   decimal.Decimal `json:"platform_share"`
	CreatorReward   decimal.Decimal `json:"creator_reward"`
	SourcePrice     *decimal.Decimal `json:"source_price,omitempty"` // nil when no conversion occurred
	ObservedBalance decimal.Decimal `json:"observed_balance"`        // payer's incentive-token balance at computation time
	Deducted        bool            `json:"deducted"`                // true when carved out of the payment amount
	ComputedAt      time.Time       `json:"computed_at"`
}

// SharesBalanced reports whether the two shares sum exactly to the total.
func (q *FeeQuote) SharesBalanced() bool {
	return q.PlatformShare.Add(q.CreatorReward).Equal(q.FeeTotal)
}

// FeeLedgerEntry is the durable snapshot written once a payment settles.
type FeeLedgerEntry struct {
	ID        string    `json:"id"`
	PaymentID string    `json:"payment_id"`
	Quote     FeeQuote  `json:"quote"`
	Created   time.Time `json:"created"`
}
