package oracle

import (
	"context"
	"strings"
	"sync"
	"time"

	"cosmossdk.io/log"
	"github.com/shopspring/decimal"
)

const defaultCacheTTL = 5 * time.Minute

// Clock abstracts time so tests can force cache expiry without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// MetricsSink receives oracle telemetry. A nil sink is valid.
type MetricsSink interface {
	IncOracleFallback(asset, kind string)
	SetAssetPrice(asset string, price float64)
}

// fallbackPrices are served when the source fails and no cached value
// exists. They can diverge sharply from market price during extended
// outages; consumers accept that pricing error in exchange for keeping the
// payment flow available.
var fallbackPrices = map[string]decimal.Decimal{
	"LCX": decimal.NewFromFloat(0.05),
	"ETH": decimal.NewFromInt(2500),
	"POL": decimal.NewFromFloat(0.40),
}

type cacheEntry struct {
	price   decimal.Decimal
	fetched time.Time
}

// PriceOracle caches one USD price per asset with a freshness window. On a
// source failure it serves a stale cached value (degraded read) and only
// falls back to the hardcoded constant when nothing was ever cached.
// PriceUSD never fails.
type PriceOracle struct {
	mu      sync.RWMutex
	source  Source
	clock   Clock
	ttl     time.Duration
	logger  log.Logger
	metrics MetricsSink
	cache   map[string]cacheEntry
}

type Option func(*PriceOracle)

func WithClock(clock Clock) Option {
	return func(o *PriceOracle) { o.clock = clock }
}

func WithTTL(ttl time.Duration) Option {
	return func(o *PriceOracle) { o.ttl = ttl }
}

func WithMetrics(m MetricsSink) Option {
	return func(o *PriceOracle) { o.metrics = m }
}

func New(source Source, logger log.Logger, opts ...Option) *PriceOracle {
	o := &PriceOracle{
		source: source,
		clock:  SystemClock,
		ttl:    defaultCacheTTL,
		logger: logger.With("component", "price-oracle"),
		cache:  make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PriceUSD returns the USD price for asset. Degraded reads (stale cache,
// fallback constant) surface only as log warnings, never as failures.
func (o *PriceOracle) PriceUSD(ctx context.Context, asset string) decimal.Decimal {
	asset = strings.ToUpper(strings.TrimSpace(asset))
	now := o.clock.Now()

	o.mu.RLock()
	entry, cached := o.cache[asset]
	o.mu.RUnlock()

	if cached && now.Sub(entry.fetched) < o.ttl {
		return entry.price
	}

	price, err := o.source.FetchUSD(ctx, asset)
	if err == nil {
		o.mu.Lock()
		o.cache[asset] = cacheEntry{price: price, fetched: now}
		o.mu.Unlock()
		if o.metrics != nil {
			if f, ok := price.Float64(); ok || !price.IsZero() {
				o.metrics.SetAssetPrice(asset, f)
			}
		}
		return price
	}

	if cached {
		o.logger.Warn("Price source failed, serving stale cached price", "asset", asset, "age", now.Sub(entry.fetched).String(), "error", err)
		if o.metrics != nil {
			o.metrics.IncOracleFallback(asset, "stale")
		}
		return entry.price
	}

	fallback, ok := fallbackPrices[asset]
	if !ok {
		fallback = decimal.Zero
	}
	o.logger.Warn("Price source failed with no cached value, serving fallback constant", "asset", asset, "fallback", fallback.String(), "error", err)
	if o.metrics != nil {
		o.metrics.IncOracleFallback(asset, "constant")
	}
	return fallback
}
