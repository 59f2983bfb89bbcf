package networkdefinition

import (
	"strings"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

// EthereumChainID is the chain every wrapped native price proxy is priced on.
const EthereumChainID = "0x1"

// Supported networks. Native coins are priced through ERC-20 tokens on Ethereum.
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.NetworkDefinition{
		ChainID:                   "0x1",
		ChainNumber:               1,
		Name:                      "Ethereum",
		Identifier:                "ethereum",
		CurrencyName:              "Ether",
		NativeSymbol:              "ETH",
		Decimals:                  18,
		WrappedNativeTokenAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", // WETH
		PriceChainID:              EthereumChainID,
		DEXScreenerChainID:        "ethereum",
		PrimaryRPCURL:             "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:           []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		BlockExplorerURL:          "https://etherscan.io",
	}
	Polygon = entity.NetworkDefinition{
		ChainID:                   "0x89",
		ChainNumber:               137,
		Name:                      "Polygon",
		Identifier:                "polygon",
		CurrencyName:              "Matic",
		NativeSymbol:              "MATIC",
		Decimals:                  18,
		WrappedNativeTokenAddress: "0x7c9f4C87d911613Fe9ca58b579f737911AAD2D43", // WMATIC on Ethereum
		PriceChainID:              EthereumChainID,
		DEXScreenerChainID:        "polygon",
		PrimaryRPCURL:             "https://polygon-rpc.com/",
		FallbackRPCURLs:           []string{"https://rpc.ankr.com/polygon", "https://polygon.publicnode.com"},
		BlockExplorerURL:          "https://polygonscan.com",
	}
	BSC = entity.NetworkDefinition{
		ChainID:                   "0x38",
		ChainNumber:               56,
		Name:                      "Binance Smart Chain",
		Identifier:                "bsc",
		CurrencyName:              "Binance Coin",
		NativeSymbol:              "BNB",
		Decimals:                  18,
		WrappedNativeTokenAddress: "0x418D75f65a02b3D53B2418FB8E1fe493759c7605", // WBNB on Ethereum
		PriceChainID:              EthereumChainID,
		DEXScreenerChainID:        "bsc",
		PrimaryRPCURL:             "https://1rpc.io/bnb",
		FallbackRPCURLs:           []string{"https://bsc-dataseed2.binance.org/", "https://bsc.publicnode.com"},
		BlockExplorerURL:          "https://bscscan.com",
	}
	Arbitrum = entity.NetworkDefinition{
		ChainID:                   "0xa4b1",
		ChainNumber:               42161,
		Name:                      "Arbitrum",
		Identifier:                "arbitrum",
		CurrencyName:              "Ether",
		NativeSymbol:              "ETH",
		Decimals:                  18,
		WrappedNativeTokenAddress: "0xB50721BCf8d664c30412Cfbc6cf7a15145234ad1", // ARB on Ethereum
		PriceChainID:              EthereumChainID,
		DEXScreenerChainID:        "arbitrum",
		PrimaryRPCURL:             "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:           []string{"https://arbitrum.llamarpc.com", "https://arbitrum.publicnode.com"},
		BlockExplorerURL:          "https://arbiscan.io",
	}
	// Optimism has no price proxy: its native balance is always valued at zero.
	Optimism = entity.NetworkDefinition{
		ChainID:            "0xa",
		ChainNumber:        10,
		Name:               "Optimism",
		Identifier:         "optimism",
		CurrencyName:       "Ether",
		NativeSymbol:       "ETH",
		Decimals:           18,
		DEXScreenerChainID: "optimism",
		PrimaryRPCURL:      "https://op-pokt.nodies.app",
		FallbackRPCURLs:    []string{"https://optimism.publicnode.com", "https://rpc.ankr.com/optimism"},
		BlockExplorerURL:   "https://optimistic.etherscan.io",
	}
	Avalanche = entity.NetworkDefinition{
		ChainID:                   "0xa86a",
		ChainNumber:               43114,
		Name:                      "Avalanche",
		Identifier:                "avalanche",
		CurrencyName:              "Avalanche",
		NativeSymbol:              "AVAX",
		Decimals:                  18,
		WrappedNativeTokenAddress: "0x85f138bfEE4ef8e540890CFb48F620571d67Eda3", // WAVAX on Ethereum
		PriceChainID:              EthereumChainID,
		DEXScreenerChainID:        "avalanche",
		PrimaryRPCURL:             "https://api.avax.network/ext/bc/C/rpc",
		FallbackRPCURLs:           []string{"https://avalanche.public-rpc.com", "https://rpc.ankr.com/avalanche"},
		BlockExplorerURL:          "https://snowtrace.io",
	}
)

// catalogOrder is the display order of the catalog.
var catalogOrder = []entity.NetworkDefinition{Ethereum, Polygon, BSC, Arbitrum, Optimism, Avalanche}

// NetworkDefinitionProvider serves the fixed network catalog, with RPC endpoints
// optionally replaced from configuration.
type NetworkDefinitionProvider struct {
	logger  port.Logger
	defs    []entity.NetworkDefinition
	byChain map[string]int
}

// NewNetworkDefinitionProvider creates the provider. rpcOverrides maps a network identifier
// to its RPC URLs; the first URL becomes the primary endpoint.
func NewNetworkDefinitionProvider(log port.Logger, rpcOverrides map[string][]string) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger:  log,
		defs:    make([]entity.NetworkDefinition, 0, len(catalogOrder)),
		byChain: make(map[string]int, len(catalogOrder)),
	}

	for _, def := range catalogOrder {
		if urls := rpcOverrides[def.Identifier]; len(urls) > 0 {
			def.PrimaryRPCURL = urls[0]
			def.FallbackRPCURLs = append([]string(nil), urls[1:]...)
			log.Debug("RPC endpoints overridden from config", "network", def.Identifier, "primary", def.PrimaryRPCURL)
		}
		p.byChain[def.ChainID] = len(p.defs)
		p.defs = append(p.defs, def)
	}

	for id := range rpcOverrides {
		if _, ok := p.byIdentifier(id); !ok {
			log.Warn("RPC override for unknown network ignored", "network", id)
		}
	}

	log.Info("Network catalog initialized", "networks", len(p.defs))
	return p
}

// GetAllNetworkDefinitions returns a copy of the catalog in display order.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	defsCopy := make([]entity.NetworkDefinition, len(p.defs))
	copy(defsCopy, p.defs)
	return defsCopy
}

// GetNetworkDefinitionByChainID looks a network up by hex chain id (case-insensitive).
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByChainID(chainID string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	idx, ok := p.byChain[strings.ToLower(strings.TrimSpace(chainID))]
	if !ok {
		return entity.NetworkDefinition{}, false
	}
	return p.defs[idx], true
}

func (p *NetworkDefinitionProvider) byIdentifier(identifier string) (entity.NetworkDefinition, bool) {
	for _, def := range p.defs {
		if def.Identifier == identifier {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}
