package types

import "time"

// AuthCredential pairs a public key identifier with an encrypted signing
// secret. Issued once at activation, replaceable via rotation (the previous
// secret stays valid for a grace window), revoked on deactivation.
type AuthCredential struct {
	KeyID           string    `json:"key_id"`
	PartyID         string    `json:"party_id"`
	EncryptedSecret string    `json:"encrypted_secret"`
	// PreviousSecret holds the pre-rotation secret (encrypted). It is
	// honoured until RotatedAt plus the configured grace window.
	PreviousSecret  string    `json:"previous_secret,omitempty"`
	RotatedAt      time.Time `json:"rotated_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Revoked        bool      `json:"revoked"`
	Created        time.Time `json:"created"`
}

// Usable reports whether the credential can authenticate requests at now.
func (c *AuthCredential) Usable(now time.Time) bool {
	if c.Revoked {
		return false
	}
	if !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt) {
		return false
	}
	return true
}

// PreviousUsable reports whether the pre-rotation secret is still inside
// its grace window at now.
func (c *AuthCredential) PreviousUsable(now time.Time, grace time.Duration) bool {
	if c.PreviousSecret == "" || c.RotatedAt.IsZero() {
		return false
	}
	return now.Before(c.RotatedAt.Add(grace))
}
