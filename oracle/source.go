package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultRequestTimeout = 10 * time.Second

// Source fetches the current USD price for an asset symbol from an
// external market-data API.
type Source interface {
	FetchUSD(ctx context.Context, asset string) (decimal.Decimal, error)
}

// HTTPSource reads a CoinGecko-shaped simple price endpoint:
// GET {base}/simple/price?ids={id}&vs_currencies=usd -> { "{id}": { "usd": n } }
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	assetIDs   map[string]string // asset symbol -> upstream id
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}
	return &HTTPSource{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		assetIDs: map[string]string{
			"LCX": "lcx",
			"ETH": "ethereum",
			"POL": "polygon-ecosystem-token",
		},
	}
}

func (s *HTTPSource) FetchUSD(ctx context.Context, asset string) (decimal.Decimal, error) {
	id, ok := s.assetIDs[strings.ToUpper(strings.TrimSpace(asset))]
	if !ok {
		return decimal.Zero, fmt.Errorf("no upstream id for asset %s", asset)
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", s.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return decimal.Zero, fmt.Errorf("price source status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, err
	}

	var payload map[string]struct {
		USD json.Number `json:"usd"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse price response: %w", err)
	}

	entry, ok := payload[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("price response missing asset %s", id)
	}

	price, err := decimal.NewFromString(entry.USD.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse price %q: %w", entry.USD.String(), err)
	}
	if price.IsZero() || price.IsNegative() {
		return decimal.Zero, fmt.Errorf("price source returned non-positive price %s for %s", price, id)
	}
	return price, nil
}
