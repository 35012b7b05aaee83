package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

const (
	flagConfigPath     = "config"
	flagLogLevel       = "log-level"
	flagMetricsAddress = "metrics-address"
	flagMetricsPort    = "metrics-port"
	flagSweepInterval  = "sweep-interval"
)

// NewRootCmd builds the payagentd command tree.
func NewRootCmd() *cobra.Command {
	a := NewAppState()

	rootCmd := &cobra.Command{
		Use:   "payagentd",
		Short: "On-chain payment verification and notification service",
	}

	rootCmd.PersistentFlags().StringVar(&a.ConfigPath, flagConfigPath, "config.yaml", "file path of config file")
	rootCmd.PersistentFlags().StringVar(&a.LogLevel, flagLogLevel, "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		Start(a),
		Verify(a),
		Keys(a),
		configShow(a),
	)

	return rootCmd
}

// Execute runs the root command with signal-aware context cancellation.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func configShow(a *AppState) *cobra.Command {
	return &cobra.Command{
		Use:   "show-config",
		Short: "Print the parsed configuration",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.InitAppState()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(a.Config)
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		},
	}
}
