package webhooks

import (
	"encoding/json"
	"time"

	"github.com/Mrinallcx/payagent-core/types"
)

// Payload is the canonical JSON body POSTed to subscribers.
type Payload struct {
	Event     string         `json:"event"`
	Payment   PaymentSummary `json:"payment"`
	Fee       *FeeSummary    `json:"fee,omitempty"`
	Timestamp string         `json:"timestamp"`
}

type PaymentSummary struct {
	ID       string `json:"id"`
	Network  string `json:"network"`
	Token    string `json:"token"`
	Amount   string `json:"amount"`
	Receiver string `json:"receiver"`
	TxHash   string `json:"tx_hash,omitempty"`
	Status   string `json:"status"`
}

type FeeSummary struct {
	Token         string  `json:"token"`
	Total         string  `json:"total"`
	PlatformShare string  `json:"platform_share"`
	CreatorReward string  `json:"creator_reward"`
	SourcePrice   *string `json:"source_price,omitempty"`
}

// BuildPayload renders the canonical delivery body for an event. The fee
// block is present only when the payment carries a quote.
func BuildPayload(event string, payment *types.Payment, now time.Time) ([]byte, error) {
	p := Payload{
		Event: event,
		Payment: PaymentSummary{
			ID:       payment.ID,
			Network:  payment.Network,
			Token:    payment.TokenSymbol,
			Amount:   payment.Amount.String(),
			Receiver: payment.Receiver,
			TxHash:   payment.TxHash,
			Status:   payment.Status,
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}

	if q := payment.FeeQuote; q != nil {
		fee := &FeeSummary{
			Token:         q.FeeToken,
			Total:         q.FeeTotal.String(),
			PlatformShare: q.PlatformShare.String(),
			CreatorReward: q.CreatorReward.String(),
		}
		if q.SourcePrice != nil {
			s := q.SourcePrice.String()
			fee.SourcePrice = &s
		}
		p.Fee = fee
	}

	return json.Marshal(p)
}
