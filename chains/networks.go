package chains

// Token contract addresses and decimal precisions below were verified
// against the canonical deployments on each network. Stable-value assets
// use 6 decimals; LCX and DAI use the EVM-standard 18.

func defaultNetworks() map[string]NetworkConfig {
	return map[string]NetworkConfig{
		"ethereum": {
			Name:         "ethereum",
			ChainID:      1,
			NativeSymbol: "ETH",
			Tokens: map[string]string{
				"USDC": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
				"USDT": "0xdAC17F958D2ee523a2206206994597C13D831ec7",
				"DAI":  "0x6B175474E89094C44Da98b954EedeAC495271d0F",
				"LCX":  "0x037A54AaB062628C9Bbae1FDB1583c195585fe41",
			},
			Decimals: map[string]uint8{
				"USDC": 6,
				"USDT": 6,
				"DAI":  18,
				"LCX":  18,
			},
			DefaultRPC: "https://ethereum-rpc.publicnode.com",
		},
		"sepolia": {
			Name:         "sepolia",
			ChainID:      11155111,
			Testnet:      true,
			NativeSymbol: "ETH",
			Tokens: map[string]string{
				"USDC": "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
				// test deployment of the incentive token
				"LCX": "0x9d1a7A3191102e9F900Faa10540837ba84dCBAE7",
			},
			Decimals: map[string]uint8{
				"USDC": 6,
				"LCX":  18,
			},
			DefaultRPC: "https://ethereum-sepolia-rpc.publicnode.com",
		},
		"base": {
			Name:         "base",
			ChainID:      8453,
			NativeSymbol: "ETH",
			Tokens: map[string]string{
				"USDC": "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
				"DAI":  "0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb",
			},
			Decimals: map[string]uint8{
				"USDC": 6,
				"DAI":  18,
			},
			DefaultRPC: "https://base-rpc.publicnode.com",
		},
		"base-sepolia": {
			Name:         "base-sepolia",
			ChainID:      84532,
			Testnet:      true,
			NativeSymbol: "ETH",
			Tokens: map[string]string{
				"USDC": "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
			},
			Decimals: map[string]uint8{
				"USDC": 6,
			},
			DefaultRPC: "https://base-sepolia-rpc.publicnode.com",
		},
		"polygon": {
			Name:         "polygon",
			ChainID:      137,
			NativeSymbol: "POL",
			Tokens: map[string]string{
				"USDC": "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
				"USDT": "0xc2132D05D31c914a87C6611C10748AEb04B58e8F",
			},
			Decimals: map[string]uint8{
				"USDC": 6,
				"USDT": 6,
			},
			DefaultRPC: "https://polygon-bor-rpc.publicnode.com",
		},
	}
}

// defaultAliases is the fixed alias table. Every entry resolves to exactly
// one canonical name; anything outside this table is unsupported.
func defaultAliases() map[string]string {
	return map[string]string{
		"ethereum":         "ethereum",
		"eth":              "ethereum",
		"mainnet":          "ethereum",
		"ethereum-mainnet": "ethereum",
		"sepolia":          "sepolia",
		"eth-sepolia":      "sepolia",
		"ethereum-sepolia": "sepolia",
		"base":             "base",
		"base-mainnet":     "base",
		"base-sepolia":     "base-sepolia",
		"basesepolia":      "base-sepolia",
		"polygon":          "polygon",
		"matic":            "polygon",
		"polygon-pos":      "polygon",
	}
}
