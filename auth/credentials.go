package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mrinallcx/payagent-core/types"
)

// CredentialManager issues, rotates and revokes signing credentials.
// Plaintext secrets are returned exactly once, at issue or rotation time;
// only the encrypted form is ever stored.
type CredentialManager struct {
	store  types.Store
	cipher *Cipher
	clock  Clock
}

func NewCredentialManager(store types.Store, cipher *Cipher) *CredentialManager {
	return &CredentialManager{store: store, cipher: cipher, clock: SystemClock}
}

// WithClock overrides the clock, used by tests.
func (m *CredentialManager) WithClock(clock Clock) *CredentialManager {
	m.clock = clock
	return m
}

// Issue creates a credential for partyID. Returns the credential and the
// plaintext secret.
func (m *CredentialManager) Issue(ctx context.Context, partyID string, ttl time.Duration) (*types.AuthCredential, string, error) {
	secret, err := newSecret()
	if err != nil {
		return nil, "", err
	}
	encrypted, err := m.cipher.Encrypt(secret)
	if err != nil {
		return nil, "", fmt.Errorf("unable to encrypt secret: %w", err)
	}

	now := m.clock.Now()
	cred := &types.AuthCredential{
		KeyID:           "pk_" + uuid.NewString(),
		PartyID:         partyID,
		EncryptedSecret: encrypted,
		Created:         now,
	}
	if ttl > 0 {
		cred.ExpiresAt = now.Add(ttl)
	}

	if err := m.store.PutCredential(ctx, cred); err != nil {
		return nil, "", err
	}
	return cred, secret, nil
}

// Rotate replaces the credential's secret. The old secret moves to the
// grace slot and stays valid until the configured window elapses.
func (m *CredentialManager) Rotate(ctx context.Context, keyID string) (string, error) {
	secret, err := newSecret()
	if err != nil {
		return "", err
	}
	encrypted, err := m.cipher.Encrypt(secret)
	if err != nil {
		return "", fmt.Errorf("unable to encrypt secret: %w", err)
	}

	now := m.clock.Now()
	ok, err := m.store.UpdateCredential(ctx, keyID, func(c *types.AuthCredential) {
		c.PreviousSecret = c.EncryptedSecret
		c.EncryptedSecret = encrypted
		c.RotatedAt = now
	})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrUnknownKey
	}
	return secret, nil
}

// Revoke permanently disables the credential.
func (m *CredentialManager) Revoke(ctx context.Context, keyID string) error {
	ok, err := m.store.UpdateCredential(ctx, keyID, func(c *types.AuthCredential) {
		c.Revoked = true
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownKey
	}
	return nil
}

func newSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("unable to generate secret: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
