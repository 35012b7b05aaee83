package oracle_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"cosmossdk.io/log"

	"github.com/Mrinallcx/payagent-core/oracle"
)

var logger = log.NewLogger(os.Stdout, log.LevelOption(zerolog.ErrorLevel))

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeSource struct {
	mu     sync.Mutex
	price  decimal.Decimal
	err    error
	visits int
}

func (s *fakeSource) FetchUSD(_ context.Context, asset string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visits++
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.price, nil
}

func (s *fakeSource) set(price decimal.Decimal, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price = price
	s.err = err
}

func (s *fakeSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visits
}

func TestPriceCachedInsideTTL(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	source := &fakeSource{price: decimal.NewFromFloat(0.07)}
	o := oracle.New(source, logger, oracle.WithClock(clock), oracle.WithTTL(5*time.Minute))

	ctx := context.Background()
	require.True(t, decimal.NewFromFloat(0.07).Equal(o.PriceUSD(ctx, "LCX")))
	require.True(t, decimal.NewFromFloat(0.07).Equal(o.PriceUSD(ctx, "lcx ")))
	require.Equal(t, 1, source.count(), "second read inside the TTL must hit the cache")

	clock.Advance(5*time.Minute + time.Second)
	source.set(decimal.NewFromFloat(0.08), nil)
	require.True(t, decimal.NewFromFloat(0.08).Equal(o.PriceUSD(ctx, "LCX")))
	require.Equal(t, 2, source.count())
}

func TestStaleCacheServedOnSourceFailure(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	source := &fakeSource{price: decimal.NewFromFloat(0.07)}
	o := oracle.New(source, logger, oracle.WithClock(clock), oracle.WithTTL(time.Minute))

	ctx := context.Background()
	require.True(t, decimal.NewFromFloat(0.07).Equal(o.PriceUSD(ctx, "LCX")))

	clock.Advance(2 * time.Hour)
	source.set(decimal.Zero, fmt.Errorf("upstream down"))
	require.True(t, decimal.NewFromFloat(0.07).Equal(o.PriceUSD(ctx, "LCX")), "stale price beats constant fallback")
}

func TestFallbackConstantWhenNothingCached(t *testing.T) {
	source := &fakeSource{err: fmt.Errorf("upstream down")}
	o := oracle.New(source, logger)

	ctx := context.Background()
	require.True(t, decimal.NewFromFloat(0.05).Equal(o.PriceUSD(ctx, "LCX")))
	require.True(t, decimal.NewFromInt(2500).Equal(o.PriceUSD(ctx, "ETH")))
	require.True(t, decimal.NewFromFloat(0.40).Equal(o.PriceUSD(ctx, "POL")))
	require.True(t, o.PriceUSD(ctx, "WAT").IsZero(), "unmapped asset has no fallback")
}

func TestHTTPSourceParsesSimplePrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/simple/price", r.URL.Path)
		require.Equal(t, "lcx", r.URL.Query().Get("ids"))
		require.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		fmt.Fprint(w, `{"lcx":{"usd":0.0712}}`)
	}))
	defer server.Close()

	source := oracle.NewHTTPSource(server.URL, time.Second)
	price, err := source.FetchUSD(context.Background(), "LCX")
	require.NoError(t, err)
	require.True(t, decimal.NewFromFloat(0.0712).Equal(price))
}

func TestHTTPSourceRejectsUnknownAsset(t *testing.T) {
	source := oracle.NewHTTPSource("http://localhost:1", time.Second)
	_, err := source.FetchUSD(context.Background(), "WAT")
	require.Error(t, err)
}

func TestHTTPSourceNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	source := oracle.NewHTTPSource(server.URL, time.Second)
	_, err := source.FetchUSD(context.Background(), "ETH")
	require.Error(t, err)
}
