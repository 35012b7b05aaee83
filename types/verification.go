package types

import "github.com/shopspring/decimal"

const (
	TokenTypeNative   string = "native"
	TokenTypeContract string = "contract"
)

// Typed failure reasons. These are expected user-facing outcomes, not errors.
const (
	ReasonNotFound        string = "not found"
	ReasonTxFailed        string = "transaction failed"
	ReasonNoTransferEvent string = "no matching transfer event"
	ReasonMismatch        string = "amount or receiver mismatch"
)

// VerificationResult is the ephemeral outcome of checking one claimed
// transaction against its expected transfer. Callers fold it into a payment
// status transition; it is never persisted directly.
type VerificationResult struct {
	Valid     bool   `json:"valid"`
	TokenType string `json:"token_type,omitempty"` // native or contract
	Reason    string `json:"reason,omitempty"`

	ObservedAmount   decimal.Decimal `json:"observed_amount"`
	ObservedReceiver string          `json:"observed_receiver,omitempty"`
	BlockNumber      uint64          `json:"block_number,omitempty"`

	// Expected values are echoed back on mismatch for diagnostics.
	ExpectedAmount   decimal.Decimal `json:"expected_amount"`
	ExpectedReceiver string          `json:"expected_receiver,omitempty"`
}
