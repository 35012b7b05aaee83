package payments

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PromMetrics struct {
	Verifications     *prometheus.CounterVec
	FeeQuotes         *prometheus.CounterVec
	WebhookDeliveries *prometheus.CounterVec
	OracleFallbacks   *prometheus.CounterVec
	AssetPrice        *prometheus.GaugeVec
	PaymentsSettled   *prometheus.CounterVec
}

func InitPromMetrics(address string, port int16) *PromMetrics {
	reg := prometheus.NewRegistry()

	// labels
	var (
		verificationLabels = []string{"network", "outcome"}
		feeLabels          = []string{"network", "path"}
		deliveryLabels     = []string{"event", "outcome"}
		fallbackLabels     = []string{"asset", "kind"}
		priceLabels        = []string{"asset"}
		settledLabels      = []string{"network", "token"}
	)

	m := &PromMetrics{
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payagent_verifications_total",
			Help: "Transaction verification outcomes: valid, not_found, failed, no_transfer_event, mismatch",
		}, verificationLabels),
		FeeQuotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payagent_fee_quotes_total",
			Help: "Fee quotes by path: flat (incentive-token balance sufficient) or deducted",
		}, feeLabels),
		WebhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payagent_webhook_deliveries_total",
			Help: "Webhook delivery attempts by outcome. Note: retries count as separate attempts.",
		}, deliveryLabels),
		OracleFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payagent_oracle_fallbacks_total",
			Help: "Degraded oracle reads: stale (cached value served) or constant (hardcoded fallback)",
		}, fallbackLabels),
		AssetPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "payagent_asset_price_usd",
			Help: "Last observed USD price per asset",
		}, priceLabels),
		PaymentsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payagent_payments_settled_total",
			Help: "Payments settled after successful on-chain verification",
		}, settledLabels),
	}

	reg.MustRegister(m.Verifications)
	reg.MustRegister(m.FeeQuotes)
	reg.MustRegister(m.WebhookDeliveries)
	reg.MustRegister(m.OracleFallbacks)
	reg.MustRegister(m.AssetPrice)
	reg.MustRegister(m.PaymentsSettled)

	// Expose /metrics HTTP endpoint
	go func() {
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		server := &http.Server{
			Addr:        fmt.Sprintf("%s:%d", address, port),
			ReadTimeout: 3 * time.Second,
		}
		log.Fatal(server.ListenAndServe())
	}()

	return m
}

func (m *PromMetrics) IncVerification(network, outcome string) {
	m.Verifications.WithLabelValues(network, outcome).Inc()
}

func (m *PromMetrics) IncFeeQuote(network, path string) {
	m.FeeQuotes.WithLabelValues(network, path).Inc()
}

func (m *PromMetrics) IncWebhookDelivery(event, outcome string) {
	m.WebhookDeliveries.WithLabelValues(event, outcome).Inc()
}

func (m *PromMetrics) IncOracleFallback(asset, kind string) {
	m.OracleFallbacks.WithLabelValues(asset, kind).Inc()
}

func (m *PromMetrics) SetAssetPrice(asset string, price float64) {
	m.AssetPrice.WithLabelValues(asset).Set(price)
}

func (m *PromMetrics) IncPaymentSettled(network, token string) {
	m.PaymentsSettled.WithLabelValues(network, token).Inc()
}
