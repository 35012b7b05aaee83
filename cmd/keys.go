package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mrinallcx/payagent-core/auth"
	"github.com/Mrinallcx/payagent-core/types"
)

const (
	flagParty = "party"
	flagTTL   = "ttl"
)

// Keys manages API credentials directly against the configured store.
// Issuance has to happen out-of-band: the HTTP surface requires a signed
// request, and the first key cannot sign anything.
func Keys(a *AppState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API credentials",

		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.InitAppState()
		},
	}

	cmd.AddCommand(keysIssue(a), keysRotate(a), keysRevoke(a))

	return cmd
}

func keysIssue(a *AppState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a new credential for a party",
		RunE: func(cmd *cobra.Command, args []string) error {
			party, _ := cmd.Flags().GetString(flagParty)
			ttl, _ := cmd.Flags().GetDuration(flagTTL)

			manager, store, err := credentialManager(a)
			if err != nil {
				return err
			}
			defer store.Close()

			credential, secret, err := manager.Issue(cmd.Context(), party, ttl)
			if err != nil {
				return fmt.Errorf("unable to issue credential error=%w", err)
			}

			cmd.Printf("key-id: %s\nsecret: %s\n", credential.KeyID, secret)
			cmd.Println("The secret is shown once and cannot be recovered.")
			return nil
		},
	}

	cmd.Flags().String(flagParty, "", "party the credential belongs to")
	cmd.Flags().Duration(flagTTL, 0, "credential lifetime (0 means no expiry)")
	if err := cmd.MarkFlagRequired(flagParty); err != nil {
		panic(err)
	}

	return cmd
}

func keysRotate(a *AppState) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate [key-id]",
		Short: "Rotate a credential's secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, store, err := credentialManager(a)
			if err != nil {
				return err
			}
			defer store.Close()

			secret, err := manager.Rotate(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("unable to rotate credential error=%w", err)
			}

			grace := a.Config.Auth.RotationGrace()
			cmd.Printf("secret: %s\n", secret)
			cmd.Printf("The previous secret keeps working for %s.\n", grace)
			return nil
		},
	}
}

func keysRevoke(a *AppState) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke [key-id]",
		Short: "Revoke a credential immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, store, err := credentialManager(a)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := manager.Revoke(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("unable to revoke credential error=%w", err)
			}

			cmd.Println("credential revoked")
			return nil
		},
	}
}

func credentialManager(a *AppState) (*auth.CredentialManager, types.Store, error) {
	store, err := openStore(a.Config.Store)
	if err != nil {
		return nil, nil, err
	}

	keys, err := auth.NewStaticKeyProvider(a.Config.Auth.EncryptionKey)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("error loading encryption key error=%w", err)
	}

	return auth.NewCredentialManager(store, auth.NewCipher(keys)), store, nil
}
