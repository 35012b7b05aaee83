package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"cosmossdk.io/log"

	"github.com/Mrinallcx/payagent-core/types"
)

var (
	ErrExpiredTimestamp  = errors.New("request timestamp outside replay window")
	ErrUnknownKey        = errors.New("unknown key id")
	ErrRevokedCredential = errors.New("credential revoked or expired")
	ErrInvalidSignature  = errors.New("invalid request signature")
)

// Clock abstracts time for replay-window checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// SignRequest computes the canonical request signature:
// HMAC-SHA256(secret, timestamp + "\n" + METHOD + "\n" + path + "\n" + SHA256(body)).
func SignRequest(secret string, timestamp int64, method, path string, body []byte) string {
	bodyHash := sha256.Sum256(body)
	canonical := fmt.Sprintf("%d\n%s\n%s\n%s", timestamp, strings.ToUpper(method), path, hex.EncodeToString(bodyHash[:]))

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureVerifier recomputes and compares inbound request signatures.
// Authentication failures fail closed; there is no partial trust.
type SignatureVerifier struct {
	store  types.Store
	cipher *Cipher
	clock  Clock
	window time.Duration
	grace  time.Duration
	logger log.Logger
}

func NewSignatureVerifier(store types.Store, cipher *Cipher, cfg types.AuthSettings, logger log.Logger) *SignatureVerifier {
	return &SignatureVerifier{
		store:  store,
		cipher: cipher,
		clock:  SystemClock,
		window: cfg.ReplayWindow(),
		grace:  cfg.RotationGrace(),
		logger: logger.With("component", "auth"),
	}
}

// WithClock overrides the clock, used by tests.
func (v *SignatureVerifier) WithClock(clock Clock) *SignatureVerifier {
	v.clock = clock
	return v
}

// Verify checks a signed request. The replay window is enforced before any
// signature work: a request outside it is rejected regardless of signature
// validity.
func (v *SignatureVerifier) Verify(ctx context.Context, keyID string, timestamp int64, signature, method, path string, body []byte) error {
	now := v.clock.Now()
	drift := now.Sub(time.Unix(timestamp, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > v.window {
		return ErrExpiredTimestamp
	}

	cred, ok, err := v.store.GetCredential(ctx, keyID)
	if err != nil {
		return fmt.Errorf("credential lookup failed: %w", err)
	}
	if !ok {
		return ErrUnknownKey
	}
	if !cred.Usable(now) {
		return ErrRevokedCredential
	}

	secret, err := v.cipher.Decrypt(cred.EncryptedSecret)
	if err != nil {
		v.logger.Error("Unable to decrypt credential secret", "key_id", keyID, "error", err)
		return ErrInvalidSignature
	}

	if v.compare(secret, timestamp, signature, method, path, body) {
		return nil
	}

	// a rotated-out secret stays valid for the grace window
	if cred.PreviousUsable(now, v.grace) {
		previous, err := v.cipher.Decrypt(cred.PreviousSecret)
		if err == nil && v.compare(previous, timestamp, signature, method, path, body) {
			return nil
		}
	}

	return ErrInvalidSignature
}

func (v *SignatureVerifier) compare(secret string, timestamp int64, signature, method, path string, body []byte) bool {
	expected := SignRequest(secret, timestamp, method, path, body)
	expectedBytes, err := hex.DecodeString(expected)
	if err != nil {
		return false
	}
	providedBytes, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expectedBytes, providedBytes)
}
