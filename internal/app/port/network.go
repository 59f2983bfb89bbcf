package port

import (
	"context"

	"portfolio_tracker/internal/domain/entity"
)

// BalanceRetriever fetches the holdings of one wallet on one chain.
type BalanceRetriever interface {
	// GetNativeBalance returns the native coin balance of the wallet.
	GetNativeBalance(ctx context.Context, wallet entity.Wallet) (entity.NativeBalance, error)

	// GetTokenBalances returns every ERC-20 balance of the wallet on its chain.
	GetTokenBalances(ctx context.Context, wallet entity.Wallet) ([]entity.FungibleTokenBalance, error)
}

// BlockchainClient executes batched JSON-RPC balance lookups on one EVM network.
type BlockchainClient interface {
	GetBalances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error)

	// Definition returns the network definition associated with this client.
	Definition() entity.NetworkDefinition
}

// BlockchainClientProvider hands out connected clients per network.
type BlockchainClientProvider interface {
	GetClient(networkDefinition entity.NetworkDefinition) (BlockchainClient, error)
}

// NetworkDefinitionProvider exposes the supported-chain catalog.
type NetworkDefinitionProvider interface {
	// GetAllNetworkDefinitions returns the catalog in display order.
	GetAllNetworkDefinitions() []entity.NetworkDefinition

	// GetNetworkDefinitionByChainID returns the definition for a hex chain id.
	GetNetworkDefinitionByChainID(chainID string) (entity.NetworkDefinition, bool)
}
