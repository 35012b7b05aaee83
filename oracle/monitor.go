package oracle

import (
	"context"
	"time"

	"cosmossdk.io/log"

	"github.com/Mrinallcx/payagent-core/types"
)

// PriceMonitor keeps the oracle cache warm for a fixed set of assets and
// exports the observed prices as gauges. Without it the cache is filled
// lazily on the first fee quote that needs a conversion.
type PriceMonitor struct {
	oracle   *PriceOracle
	logger   log.Logger
	assets   []string
	interval time.Duration
}

func NewPriceMonitor(o *PriceOracle, logger log.Logger, assets []string, interval time.Duration) *PriceMonitor {
	if interval == 0 {
		interval = 5 * time.Minute
	}
	return &PriceMonitor{
		oracle:   o,
		logger:   logger.With("component", "price-monitor"),
		assets:   assets,
		interval: interval,
	}
}

func (m *PriceMonitor) Start(ctx context.Context) {
	m.logger.Info("Starting price monitoring", "assets", m.assets, "interval", m.interval)
	m.refresh(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Stopping price monitoring")
			return
		case <-ticker.C:
			m.refresh(ctx)
		}
	}
}

func (m *PriceMonitor) refresh(ctx context.Context) {
	for _, asset := range m.assets {
		price := m.oracle.PriceUSD(ctx, asset)
		m.logger.Debug("Refreshed price", "asset", asset, "usd", price.String())
	}
}

// StartPriceMonitor starts background price refreshing when enabled by
// config. Returns nil when disabled.
func StartPriceMonitor(ctx context.Context, cfg types.OracleSettings, o *PriceOracle, logger log.Logger, assets []string) *PriceMonitor {
	if !cfg.EnablePriceMonitor {
		logger.Info("Price monitoring disabled by config")
		return nil
	}

	monitor := NewPriceMonitor(o, logger, assets, time.Duration(cfg.RefreshIntervalSeconds)*time.Second)
	go monitor.Start(ctx)
	return monitor
}
