package chains

import (
	"os"
	"strings"

	"github.com/Mrinallcx/payagent-core/types"
)

// DefaultDecimals is the precision assumed for native and unknown assets.
const DefaultDecimals uint8 = 18

// NetworkConfig is the immutable description of one supported network.
// Loaded once at process start, never mutated.
type NetworkConfig struct {
	Name         string
	ChainID      uint64
	Testnet      bool
	NativeSymbol string
	Tokens       map[string]string // token symbol -> contract address
	Decimals     map[string]uint8  // token symbol -> decimal precision
	DefaultRPC   string            // documented public fallback endpoint
}

// Registry resolves network aliases and token metadata. All lookups are
// pure and return zero values for unresolved input; callers treat "none"
// as unsupported, never as an error to propagate blindly.
type Registry struct {
	networks  map[string]NetworkConfig
	aliases   map[string]string
	overrides map[string]string // canonical name -> rpc endpoint from config
}

func NewRegistry(overrides map[string]types.ChainOverride) *Registry {
	r := &Registry{
		networks:  defaultNetworks(),
		aliases:   defaultAliases(),
		overrides: make(map[string]string),
	}
	for name, o := range overrides {
		if canonical, ok := r.Resolve(name); ok && o.RPC != "" {
			r.overrides[canonical] = o.RPC
		}
	}
	return r
}

// Resolve maps input to a canonical network name via exact alias lookup,
// case-insensitive and trimmed. No substring or fuzzy matching: a partial
// match scheme allows cross-network confusion.
func (r *Registry) Resolve(input string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(input))
	canonical, ok := r.aliases[key]
	return canonical, ok
}

func (r *Registry) Network(name string) (NetworkConfig, bool) {
	cfg, ok := r.networks[name]
	return cfg, ok
}

// Names returns the canonical names of all supported networks.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.networks))
	for name := range r.networks {
		names = append(names, name)
	}
	return names
}

// TokenAddress returns the contract address of symbol on network. The
// second return is false for unknown tokens and for the network's native
// asset, which has no contract address.
func (r *Registry) TokenAddress(network, symbol string) (string, bool) {
	cfg, ok := r.networks[network]
	if !ok {
		return "", false
	}
	addr, ok := cfg.Tokens[strings.ToUpper(strings.TrimSpace(symbol))]
	return addr, ok
}

// TokenDecimals returns the decimal precision of symbol on network,
// defaulting to 18 for native and unknown assets.
func (r *Registry) TokenDecimals(network, symbol string) uint8 {
	cfg, ok := r.networks[network]
	if !ok {
		return DefaultDecimals
	}
	if d, ok := cfg.Decimals[strings.ToUpper(strings.TrimSpace(symbol))]; ok {
		return d
	}
	return DefaultDecimals
}

// IsNative reports whether symbol is network's intrinsic currency.
func (r *Registry) IsNative(symbol, network string) bool {
	cfg, ok := r.networks[network]
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(symbol), cfg.NativeSymbol)
}

// IsStable reports whether symbol is a stable-valued asset. Used by the
// fee engine to decide whether a USD price can stand in for the token price.
func (r *Registry) IsStable(symbol string) bool {
	switch strings.ToUpper(strings.TrimSpace(symbol)) {
	case "USDC", "USDT", "DAI":
		return true
	default:
		return false
	}
}

// RPCEndpoint resolves the JSON-RPC endpoint for network: config override
// first, then the <NETWORK>_RPC environment variable, then the single
// documented public fallback. Empty string when the network is unknown.
func (r *Registry) RPCEndpoint(network string) string {
	cfg, ok := r.networks[network]
	if !ok {
		return ""
	}
	if rpc, ok := r.overrides[network]; ok {
		return rpc
	}
	envKey := strings.ToUpper(strings.ReplaceAll(network, "-", "_")) + "_RPC"
	if rpc := os.Getenv(envKey); rpc != "" {
		return rpc
	}
	return cfg.DefaultRPC
}

// ChainID returns the numeric chain identifier for network.
func (r *Registry) ChainID(network string) (uint64, bool) {
	cfg, ok := r.networks[network]
	if !ok {
		return 0, false
	}
	return cfg.ChainID, true
}
