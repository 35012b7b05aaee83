package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Mrinallcx/payagent-core/chains"
	"github.com/Mrinallcx/payagent-core/ethereum"
	"github.com/Mrinallcx/payagent-core/verifier"
)

const (
	flagNetwork  = "network"
	flagTxHash   = "tx"
	flagToken    = "token"
	flagAmount   = "amount"
	flagReceiver = "receiver"
)

// Verify runs a single on-chain transfer check and prints the result.
// Useful for debugging a disputed payment without touching stored state.
func Verify(a *AppState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify one transaction against an expected transfer",

		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.InitAppState()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := a.Logger
			cfg := a.Config

			network, _ := cmd.Flags().GetString(flagNetwork)
			txHash, _ := cmd.Flags().GetString(flagTxHash)
			token, _ := cmd.Flags().GetString(flagToken)
			rawAmount, _ := cmd.Flags().GetString(flagAmount)
			receiver, _ := cmd.Flags().GetString(flagReceiver)

			amount, err := decimal.NewFromString(rawAmount)
			if err != nil {
				return fmt.Errorf("invalid amount error=%w", err)
			}

			registry := chains.NewRegistry(cfg.Chains)
			canonical, ok := registry.Resolve(network)
			if !ok {
				return fmt.Errorf("unsupported network: %s", network)
			}

			tokenAddress, _ := registry.TokenAddress(canonical, token)
			if tokenAddress == "" && !registry.IsNative(token, canonical) {
				return fmt.Errorf("unsupported token on %s: %s", canonical, token)
			}

			pool := ethereum.NewPool(registry)
			defer pool.Close()

			result, err := verifier.New(registry, pool, logger).Verify(cmd.Context(), verifier.Request{
				TxHash:               txHash,
				ExpectedAmount:       amount,
				ExpectedTokenAddress: tokenAddress,
				ExpectedReceiver:     receiver,
				TokenSymbol:          token,
				Network:              canonical,
			})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
			return nil
		},
	}

	cmd.Flags().String(flagNetwork, "", "network name or alias")
	cmd.Flags().String(flagTxHash, "", "transaction hash to check")
	cmd.Flags().String(flagToken, "", "expected token symbol")
	cmd.Flags().String(flagAmount, "", "expected amount in token units")
	cmd.Flags().String(flagReceiver, "", "expected receiving address")

	for _, f := range []string{flagNetwork, flagTxHash, flagToken, flagAmount, flagReceiver} {
		if err := cmd.MarkFlagRequired(f); err != nil {
			panic(err)
		}
	}

	return cmd
}
