package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mrinallcx/payagent-core/auth"
	"github.com/Mrinallcx/payagent-core/chains"
	"github.com/Mrinallcx/payagent-core/ethereum"
	"github.com/Mrinallcx/payagent-core/fees"
	"github.com/Mrinallcx/payagent-core/oracle"
	"github.com/Mrinallcx/payagent-core/payments"
	"github.com/Mrinallcx/payagent-core/types"
	"github.com/Mrinallcx/payagent-core/verifier"
	"github.com/Mrinallcx/payagent-core/webhooks"
)

func Start(a *AppState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the payment verification service",

		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.InitAppState()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := a.Logger
			cfg := a.Config

			port, err := cmd.Flags().GetInt16(flagMetricsPort)
			if err != nil {
				return fmt.Errorf("invalid port error=%w", err)
			}

			address, err := cmd.Flags().GetString(flagMetricsAddress)
			if err != nil {
				return fmt.Errorf("invalid address error=%w", err)
			}

			sweepInterval, err := cmd.Flags().GetDuration(flagSweepInterval)
			if err != nil {
				return fmt.Errorf("invalid sweep interval error=%w", err)
			}

			metrics := payments.InitPromMetrics(address, port)

			store, err := openStore(cfg.Store)
			if err != nil {
				return fmt.Errorf("error opening store error=%w", err)
			}

			registry := chains.NewRegistry(cfg.Chains)
			pool := ethereum.NewPool(registry)

			source := oracle.NewHTTPSource(cfg.Oracle.BaseURL, time.Duration(cfg.Oracle.RequestTimeoutSeconds)*time.Second)
			oracleOpts := []oracle.Option{oracle.WithMetrics(metrics)}
			if cfg.Oracle.CacheTTLSeconds > 0 {
				oracleOpts = append(oracleOpts, oracle.WithTTL(time.Duration(cfg.Oracle.CacheTTLSeconds)*time.Second))
			}
			prices := oracle.New(source, logger, oracleOpts...)

			oracle.StartPriceMonitor(cmd.Context(), cfg.Oracle, prices, logger, monitorAssets(cfg, registry))

			engine := fees.NewEngine(registry, pool, prices, cfg.Fees, logger).WithMetrics(metrics)
			txVerifier := verifier.New(registry, pool, logger)

			keys, err := auth.NewStaticKeyProvider(cfg.Auth.EncryptionKey)
			if err != nil {
				return fmt.Errorf("error loading encryption key error=%w", err)
			}
			cipher := auth.NewCipher(keys)
			sigVerifier := auth.NewSignatureVerifier(store, cipher, cfg.Auth, logger)
			credentials := auth.NewCredentialManager(store, cipher)

			dispatcher := webhooks.NewDispatcher(store, cipher, cfg.Webhooks, logger, webhooks.WithMetrics(metrics))
			dispatcher.Start(cmd.Context())

			processor := payments.NewProcessor(store, txVerifier, engine, dispatcher, logger, metrics)

			sweeper := payments.NewExpirySweeper(store, dispatcher, logger, sweepInterval)
			go sweeper.Start(cmd.Context())

			srv := &apiServer{
				appState:    a,
				store:       store,
				engine:      engine,
				processor:   processor,
				dispatcher:  dispatcher,
				credentials: credentials,
				cipher:      cipher,
				sigVerifier: sigVerifier,
				registry:    registry,
			}
			go srv.startAPI()

			<-cmd.Context().Done()

			pool.Close()
			if err := store.Close(); err != nil {
				logger.Error("Error closing store", "error", err)
			}

			return nil
		},
	}

	cmd.Flags().String(flagMetricsAddress, "", "metrics bind address (empty binds all interfaces)")
	cmd.Flags().Int16(flagMetricsPort, 2112, "metrics port")
	cmd.Flags().Duration(flagSweepInterval, time.Minute, "how often pending payments are swept for expiry")

	return cmd
}

func openStore(cfg types.StoreSettings) (types.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return types.NewMemoryStore(), nil
	case "redis":
		return types.NewRedisStore(cfg), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}

// monitorAssets is the set of symbols the background price monitor keeps
// warm: the incentive token plus every native asset in the registry.
func monitorAssets(cfg *types.Config, registry *chains.Registry) []string {
	seen := map[string]bool{cfg.Fees.IncentiveSymbol(): true}
	assets := []string{cfg.Fees.IncentiveSymbol()}
	for _, name := range registry.Names() {
		network, ok := registry.Network(name)
		if !ok || seen[network.NativeSymbol] {
			continue
		}
		seen[network.NativeSymbol] = true
		assets = append(assets, network.NativeSymbol)
	}
	return assets
}
