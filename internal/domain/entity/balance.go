package entity

import (
	"math/big"
	"strings"

	"portfolio_tracker/internal/pkg/utils"
)

// NativeBalance is the native coin balance of one wallet on one chain, as returned
// by a balance retriever.
type NativeBalance struct {
	ChainID       string   `json:"chainId"`
	WalletAddress string   `json:"walletAddress"`
	AmountRaw     *big.Int `json:"-"`
	Decimals      uint8    `json:"decimals"`
}

// Balance returns the decimal-normalised amount (raw / 10^decimals).
func (b NativeBalance) Balance() float64 {
	return utils.ToUnits(b.AmountRaw, b.Decimals)
}

// NativeHolding is the aggregate native balance of all tracked accounts on a chain.
type NativeHolding struct {
	ChainID string  `json:"chainId"`
	Name    string  `json:"name,omitempty"`
	Symbol  string  `json:"symbol,omitempty"`
	Balance float64 `json:"balance"`
}

// FungibleTokenBalance is one ERC-20 holding of one wallet. Entries are never merged
// at ingestion: the same contract held by two accounts yields two entries.
type FungibleTokenBalance struct {
	ChainID         string   `json:"chainId"`
	WalletAddress   string   `json:"walletAddress"`
	ContractAddress string   `json:"contractAddress"`
	Symbol          string   `json:"symbol"`
	Name            string   `json:"name"`
	AmountRaw       *big.Int `json:"-"`
	Decimals        uint8    `json:"decimals"`
	PossibleSpam    bool     `json:"possibleSpam,omitempty"`
}

// NewFungibleTokenBalance builds a token balance with the contract address normalised.
func NewFungibleTokenBalance(chainID, wallet, contract, symbol, name string, amount *big.Int, decimals uint8) FungibleTokenBalance {
	return FungibleTokenBalance{
		ChainID:         chainID,
		WalletAddress:   wallet,
		ContractAddress: NormalizeAddress(contract),
		Symbol:          symbol,
		Name:            name,
		AmountRaw:       amount,
		Decimals:        decimals,
	}
}

// Balance returns the decimal-normalised amount (raw / 10^decimals).
func (t FungibleTokenBalance) Balance() float64 {
	return utils.ToUnits(t.AmountRaw, t.Decimals)
}

// Key returns the price key of the token.
func (t FungibleTokenBalance) Key() PriceKey {
	return NewPriceKey(t.ChainID, t.ContractAddress)
}

// NormalizeAddress lower-cases and trims a contract or wallet address.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
