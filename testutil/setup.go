package testutil

import (
	"os"
	"testing"

	"github.com/joho/godotenv"

	"github.com/Mrinallcx/payagent-core/cmd"
	"github.com/Mrinallcx/payagent-core/types"
)

// TestEncryptionKey is a fixed 32-byte key for tests. Never use outside tests.
const TestEncryptionKey = "1111111111111111111111111111111111111111111111111111111111111111"

// GetEnvOrDefault returns the environment variable value or a default if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func init() {
	// Try to load .env file if it exists
	if err := godotenv.Load(".env"); err != nil {
		_ = godotenv.Load("../.env")
	}
}

func ConfigSetup(t *testing.T) *cmd.AppState {
	t.Helper()

	var testConfig = types.Config{
		Chains: map[string]types.ChainOverride{
			"sepolia": {
				RPC: GetEnvOrDefault("SEPOLIA_RPC", "https://ethereum-sepolia-rpc.publicnode.com"),
			},
		},
		Auth: types.AuthSettings{
			EncryptionKey: TestEncryptionKey,
		},
	}

	a := cmd.NewAppState()
	a.LogLevel = "debug"
	a.InitLogger()
	a.Config = &testConfig

	return a
}
