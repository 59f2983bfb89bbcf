package port

import (
	"context"

	"portfolio_tracker/internal/domain/entity"
)

// TokenProvider returns the token lists used to query balances over JSON-RPC.
type TokenProvider interface {
	// GetTokensByNetwork returns a map of hex chain id to the tokens listed for it.
	GetTokensByNetwork(networks []entity.NetworkDefinition) (map[string][]entity.TokenInfo, error)
}

// PriceRetriever fetches the USD price of an ERC-20 token.
type PriceRetriever interface {
	GetTokenPrice(ctx context.Context, chainID, contractAddress string) (float64, error)
}

// PriceLookup answers price queries from already-resolved prices. Unknown prices are reported
// with ok=false and value as zero.
type PriceLookup interface {
	NativePrice(chainID string) (float64, bool)
	TokenPrice(chainID, contractAddress string) (float64, bool)
}

// BatchPriceRetriever is implemented by price sources that can price many tokens of one chain
// in a single round trip. Tokens without a price are absent from the result. When only part of
// the request fails, the prices that were resolved are returned alongside the error.
type BatchPriceRetriever interface {
	GetTokenPrices(ctx context.Context, chainID string, contractAddresses []string) (map[string]float64, error)
}
