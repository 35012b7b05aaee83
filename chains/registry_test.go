package chains_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Mrinallcx/payagent-core/chains"
	"github.com/Mrinallcx/payagent-core/types"
)

func TestResolveAliases(t *testing.T) {
	r := chains.NewRegistry(nil)

	for alias, want := range map[string]string{
		"eth":          "ethereum",
		"ETH":          "ethereum",
		"  mainnet  ":  "ethereum",
		"matic":        "polygon",
		"basesepolia":  "base-sepolia",
		"base-sepolia": "base-sepolia",
		"sepolia":      "sepolia",
	} {
		got, ok := r.Resolve(alias)
		require.True(t, ok, "alias %q should resolve", alias)
		require.Equal(t, want, got)
	}
}

func TestResolveRejectsPartialMatches(t *testing.T) {
	r := chains.NewRegistry(nil)

	for _, input := range []string{"ether", "poly", "base-", "sepolia-base", "ethereum mainnet", ""} {
		_, ok := r.Resolve(input)
		require.False(t, ok, "input %q must not resolve", input)
	}
}

func TestTokenDecimals(t *testing.T) {
	r := chains.NewRegistry(nil)

	require.Equal(t, uint8(6), r.TokenDecimals("ethereum", "USDC"))
	require.Equal(t, uint8(18), r.TokenDecimals("ethereum", "LCX"))
	require.Equal(t, uint8(18), r.TokenDecimals("ethereum", "DAI"))

	// unknown tokens and native assets fall back to the EVM default
	require.Equal(t, chains.DefaultDecimals, r.TokenDecimals("ethereum", "ETH"))
	require.Equal(t, chains.DefaultDecimals, r.TokenDecimals("ethereum", "WAT"))
}

func TestTokenAddressNativeHasNone(t *testing.T) {
	r := chains.NewRegistry(nil)

	addr, ok := r.TokenAddress("ethereum", "LCX")
	require.True(t, ok)
	require.Equal(t, "0x037A54AaB062628C9Bbae1FDB1583c195585fe41", addr)

	_, ok = r.TokenAddress("ethereum", "ETH")
	require.False(t, ok)

	_, ok = r.TokenAddress("polygon", "POL")
	require.False(t, ok)
}

func TestIsNative(t *testing.T) {
	r := chains.NewRegistry(nil)

	require.True(t, r.IsNative("ETH", "ethereum"))
	require.True(t, r.IsNative("eth", "base"))
	require.True(t, r.IsNative("POL", "polygon"))
	require.False(t, r.IsNative("ETH", "polygon"))
	require.False(t, r.IsNative("USDC", "ethereum"))
}

func TestRPCEndpointPrecedence(t *testing.T) {
	r := chains.NewRegistry(map[string]types.ChainOverride{
		"eth": {RPC: "https://override.example"},
	})

	// config override wins, keyed by alias but applied to the canonical name
	require.Equal(t, "https://override.example", r.RPCEndpoint("ethereum"))

	// environment beats the builtin default
	t.Setenv("POLYGON_RPC", "https://env.example")
	require.Equal(t, "https://env.example", r.RPCEndpoint("polygon"))

	require.Equal(t, "https://base-rpc.publicnode.com", r.RPCEndpoint("base"))
}

func TestChainID(t *testing.T) {
	r := chains.NewRegistry(nil)

	id, ok := r.ChainID("base-sepolia")
	require.True(t, ok)
	require.Equal(t, uint64(84532), id)

	_, ok = r.ChainID("unknown")
	require.False(t, ok)
}
