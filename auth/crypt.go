package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const gcmTagSize = 16

// KeyProvider supplies the process-wide 32-byte encryption key. Abstracted
// so key rotation can be introduced without changing call sites.
type KeyProvider interface {
	EncryptionKey() ([]byte, error)
}

// StaticKeyProvider holds a fixed key loaded from configuration at startup.
type StaticKeyProvider struct {
	key []byte
}

func NewStaticKeyProvider(hexKey string) (*StaticKeyProvider, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	return &StaticKeyProvider{key: key}, nil
}

func (p *StaticKeyProvider) EncryptionKey() ([]byte, error) {
	return p.key, nil
}

// Cipher encrypts secrets at rest with AES-256-GCM. The stored form is
// iv:ciphertext:authTag, all hex. Decryption fails closed: a tampered
// ciphertext must never silently decrypt to garbage.
type Cipher struct {
	keys KeyProvider
}

func NewCipher(keys KeyProvider) *Cipher {
	return &Cipher{keys: keys}
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("unable to generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext := sealed[:len(sealed)-gcmTagSize]
	tag := sealed[len(sealed)-gcmTagSize:]

	return fmt.Sprintf("%s:%s:%s", hex.EncodeToString(iv), hex.EncodeToString(ciphertext), hex.EncodeToString(tag)), nil
}

func (c *Cipher) Decrypt(stored string) (string, error) {
	parts := strings.Split(stored, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed encrypted secret: expected iv:ciphertext:authTag")
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("malformed iv: %w", err)
	}
	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("malformed ciphertext: %w", err)
	}
	tag, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("malformed auth tag: %w", err)
	}

	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}
	if len(iv) != gcm.NonceSize() {
		return "", fmt.Errorf("malformed iv: expected %d bytes, got %d", gcm.NonceSize(), len(iv))
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("unable to decrypt secret: %w", err)
	}
	return string(plaintext), nil
}

func (c *Cipher) gcm() (cipher.AEAD, error) {
	key, err := c.keys.EncryptionKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
