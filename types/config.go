package types

import (
	"encoding/hex"
	"fmt"
	"time"
)

type Config struct {
	Chains   map[string]ChainOverride `yaml:"chains"`
	Oracle   OracleSettings           `yaml:"oracle"`
	Fees     FeeSettings              `yaml:"fees"`
	Auth     AuthSettings             `yaml:"auth"`
	Webhooks WebhookSettings          `yaml:"webhooks"`
	Store    StoreSettings            `yaml:"store"`

	API struct {
		ListenAddress  string   `yaml:"listen-address"`
		TrustedProxies []string `yaml:"trusted-proxies"`
	} `yaml:"api"`
}

// ChainOverride carries per-network runtime overrides. Anything not set
// falls back to the static registry defaults.
type ChainOverride struct {
	RPC string `yaml:"rpc"`
}

type OracleSettings struct {
	BaseURL                string `yaml:"base-url"`
	CacheTTLSeconds        int    `yaml:"cache-ttl-seconds"`
	RequestTimeoutSeconds  int    `yaml:"request-timeout-seconds"`
	EnablePriceMonitor     bool   `yaml:"enable-price-monitor"`
	RefreshIntervalSeconds int    `yaml:"refresh-interval-seconds"` // price monitor polling interval (default: 300)
}

func (o *OracleSettings) Validate() error {
	if o.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache-ttl-seconds cannot be negative")
	}
	if o.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("request-timeout-seconds cannot be negative")
	}
	if o.EnablePriceMonitor && o.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("refresh-interval-seconds cannot be negative when enable-price-monitor is true")
	}
	return nil
}

type FeeSettings struct {
	IncentiveToken   string `yaml:"incentive-token"`    // default: LCX
	FlatAmount       int64  `yaml:"flat-amount"`        // units of the incentive token (default: 4)
	PlatformShareBps int64  `yaml:"platform-share-bps"` // default: 5000 (even split)
}

func (f *FeeSettings) Validate() error {
	if f.FlatAmount < 0 {
		return fmt.Errorf("flat-amount cannot be negative")
	}
	if f.PlatformShareBps < 0 || f.PlatformShareBps > 10_000 {
		return fmt.Errorf("platform-share-bps must be between 0 and 10000")
	}
	return nil
}

func (f *FeeSettings) IncentiveSymbol() string {
	if f.IncentiveToken == "" {
		return "LCX"
	}
	return f.IncentiveToken
}

func (f *FeeSettings) FlatFeeUnits() int64 {
	if f.FlatAmount == 0 {
		return 4
	}
	return f.FlatAmount
}

func (f *FeeSettings) PlatformRatioBps() int64 {
	if f.PlatformShareBps == 0 {
		return 5000
	}
	return f.PlatformShareBps
}

type AuthSettings struct {
	EncryptionKey       string `yaml:"encryption-key"` // 32 bytes, hex encoded
	ReplayWindowSeconds int    `yaml:"replay-window-seconds"`
	RotationGraceHours  int    `yaml:"rotation-grace-hours"`
}

func (a *AuthSettings) Validate() error {
	key, err := hex.DecodeString(a.EncryptionKey)
	if err != nil {
		return fmt.Errorf("encryption-key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return fmt.Errorf("encryption-key must be 32 bytes, got %d", len(key))
	}
	if a.ReplayWindowSeconds < 0 {
		return fmt.Errorf("replay-window-seconds cannot be negative")
	}
	return nil
}

func (a *AuthSettings) ReplayWindow() time.Duration {
	if a.ReplayWindowSeconds == 0 {
		return 5 * time.Minute
	}
	return time.Duration(a.ReplayWindowSeconds) * time.Second
}

func (a *AuthSettings) RotationGrace() time.Duration {
	if a.RotationGraceHours == 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.RotationGraceHours) * time.Hour
}

type WebhookSettings struct {
	WorkerCount           uint32 `yaml:"worker-count"`
	QueueSize             int    `yaml:"queue-size"`
	DeliveryTimeoutSecs   int    `yaml:"delivery-timeout-seconds"` // default: 15
	MaxConsecutiveFailure int    `yaml:"max-consecutive-failures"` // default: 5
}

func (w *WebhookSettings) Validate() error {
	if w.DeliveryTimeoutSecs < 0 {
		return fmt.Errorf("delivery-timeout-seconds cannot be negative")
	}
	if w.MaxConsecutiveFailure < 0 {
		return fmt.Errorf("max-consecutive-failures cannot be negative")
	}
	return nil
}

func (w *WebhookSettings) DeliveryTimeout() time.Duration {
	if w.DeliveryTimeoutSecs == 0 {
		return 15 * time.Second
	}
	return time.Duration(w.DeliveryTimeoutSecs) * time.Second
}

func (w *WebhookSettings) FailureLimit() int {
	if w.MaxConsecutiveFailure == 0 {
		return 5
	}
	return w.MaxConsecutiveFailure
}

func (w *WebhookSettings) Workers() int {
	if w.WorkerCount == 0 {
		return 4
	}
	return int(w.WorkerCount)
}

type StoreSettings struct {
	Backend       string `yaml:"backend"` // memory or redis
	RedisAddr     string `yaml:"redis-addr"`
	RedisPassword string `yaml:"redis-password"`
	RedisDB       int    `yaml:"redis-db"`
}

func (s *StoreSettings) Validate() error {
	switch s.Backend {
	case "", "memory":
		return nil
	case "redis":
		if s.RedisAddr == "" {
			return fmt.Errorf("redis-addr is required when backend is redis")
		}
		return nil
	default:
		return fmt.Errorf("unknown store backend: %s", s.Backend)
	}
}

func (c *Config) Validate() error {
	if err := c.Oracle.Validate(); err != nil {
		return fmt.Errorf("oracle: %w", err)
	}
	if err := c.Fees.Validate(); err != nil {
		return fmt.Errorf("fees: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Webhooks.Validate(); err != nil {
		return fmt.Errorf("webhooks: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}
