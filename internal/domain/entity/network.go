package entity

// NetworkDefinition is one entry of the supported-chain catalog.
type NetworkDefinition struct {
	ChainID      string `json:"chainId" yaml:"chainId"` // hex, e.g. "0x1"
	ChainNumber  uint64 `json:"chainNumber" yaml:"chainNumber"`
	Name         string `json:"name" yaml:"name"`
	Identifier   string `json:"identifier" yaml:"identifier"`
	CurrencyName string `json:"currencyName" yaml:"currencyName"`
	NativeSymbol string `json:"nativeSymbol" yaml:"nativeSymbol"`
	Decimals     uint8  `json:"decimals" yaml:"decimals"`

	// The native coin is priced through an ERC-20 wrapped token, which may live on another chain.
	WrappedNativeTokenAddress string `json:"wrappedNativeTokenAddress,omitempty" yaml:"wrappedNativeTokenAddress,omitempty"`
	PriceChainID              string `json:"priceChainId,omitempty" yaml:"priceChainId,omitempty"`

	DEXScreenerChainID string   `json:"dexScreenerChainId,omitempty" yaml:"dexScreenerChainId,omitempty"`
	PrimaryRPCURL      string   `json:"-" yaml:"primaryRpcUrl"`
	FallbackRPCURLs    []string `json:"-" yaml:"fallbackRpcUrls"`
	BlockExplorerURL   string   `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
}

// HasPriceProxy reports whether the native coin can be priced at all.
func (n NetworkDefinition) HasPriceProxy() bool {
	return n.WrappedNativeTokenAddress != "" && NormalizeAddress(n.WrappedNativeTokenAddress) != ZeroAddress
}
