package types

import "time"

// WebhookSubscription is owned by the persistence collaborator; the
// dispatcher only mutates its delivery bookkeeping through the store's
// per-subscription atomic update.
type WebhookSubscription struct {
	ID              string    `json:"id"`
	PartyID         string    `json:"party_id"`
	URL             string    `json:"url"`
	EventTypes      []string  `json:"event_types"`
	Active          bool      `json:"active"`
	FailureCount    int       `json:"failure_count"`
	LastSuccess     time.Time `json:"last_success"`
	LastFailure     time.Time `json:"last_failure"`
	EncryptedSecret string    `json:"encrypted_secret"` // decrypted only at delivery time
	Created         time.Time `json:"created"`
	Updated         time.Time `json:"updated"`
}

// WantsEvent reports whether the subscription's event-type set contains event.
func (s *WebhookSubscription) WantsEvent(event string) bool {
	for _, e := range s.EventTypes {
		if e == event {
			return true
		}
	}
	return false
}

// RecordSuccess resets the consecutive-failure counter.
func (s *WebhookSubscription) RecordSuccess(now time.Time) {
	s.FailureCount = 0
	s.LastSuccess = now
	s.Updated = now
}

// RecordFailure increments the consecutive-failure counter and deactivates
// the subscription once it reaches limit. Returns true if this failure
// flipped the subscription inactive.
func (s *WebhookSubscription) RecordFailure(now time.Time, limit int) bool {
	s.FailureCount++
	s.LastFailure = now
	s.Updated = now
	if s.Active && s.FailureCount >= limit {
		s.Active = false
		return true
	}
	return false
}
