package types

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentPending   string = "pending"
	PaymentCompleted string = "completed"
	PaymentExpired   string = "expired"
	PaymentFailed    string = "failed"
)

const (
	EventPaymentCreated   string = "payment.created"
	EventPaymentCompleted string = "payment.completed"
	EventPaymentExpired   string = "payment.expired"
)

// Payment is the record a payer settles against. The verifier and fee
// engine never mutate it directly; all settlement writes go through the
// store's status-checked update.
type Payment struct {
	ID           string          `json:"id"`
	CreatorID    string          `json:"creator_id"`
	PayerID      string          `json:"payer_id"`
	Network      string          `json:"network"` // canonical registry name
	TokenSymbol  string          `json:"token_symbol"`
	TokenAddress string          `json:"token_address"` // empty for the native asset
	Amount       decimal.Decimal `json:"amount"`
	Receiver     string          `json:"receiver"`
	PayerWallet  string          `json:"payer_wallet"`
	TxHash       string          `json:"tx_hash"`
	Status       string          `json:"status"` // pending, completed, expired, failed
	FeeQuote     *FeeQuote       `json:"fee_quote,omitempty"`
	Created      time.Time       `json:"created"`
	Updated      time.Time       `json:"updated"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// Settled reports whether the payment has reached a terminal state.
func (p *Payment) Settled() bool {
	return p.Status == PaymentCompleted || p.Status == PaymentExpired || p.Status == PaymentFailed
}

// Parties returns the distinct party ids implicated in this payment's
// lifecycle events, in stable order.
func (p *Payment) Parties() []string {
	if p.PayerID == "" || p.PayerID == p.CreatorID {
		return []string{p.CreatorID}
	}
	return []string{p.CreatorID, p.PayerID}
}
