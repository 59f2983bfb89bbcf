package entity

// NativePriceSentinel is the contract address under which a chain's native coin price is stored.
const NativePriceSentinel = "native"

// PriceKey identifies a price by chain and contract address.
type PriceKey struct {
	ChainID         string
	ContractAddress string
}

// NewPriceKey builds a PriceKey, lower-casing the contract address.
func NewPriceKey(chainID, contract string) PriceKey {
	return PriceKey{ChainID: chainID, ContractAddress: NormalizeAddress(contract)}
}

// NativePriceKey returns the key of the native coin price of chainID.
func NativePriceKey(chainID string) PriceKey {
	return PriceKey{ChainID: chainID, ContractAddress: NativePriceSentinel}
}

// IsNative reports whether the key refers to a native coin price.
func (k PriceKey) IsNative() bool {
	return k.ContractAddress == NativePriceSentinel
}

func (k PriceKey) String() string {
	return k.ChainID + "_" + k.ContractAddress
}

// PriceEntry is a resolved USD price.
type PriceEntry struct {
	Key      PriceKey
	USDPrice float64
}
