package entity

// TokenInfo holds the details of a token listed in a per-network token file.
// Only used when balances are read directly over JSON-RPC.
type TokenInfo struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}
