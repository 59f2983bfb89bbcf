package client

import (
	"context"
	"fmt"
	"strconv"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/utils"
)

// rpcBalanceRetriever implements port.BalanceRetriever with JSON-RPC batch calls.
// Without an indexer, token balances are only known for tokens listed by the TokenProvider.
type rpcBalanceRetriever struct {
	clients  port.BlockchainClientProvider
	networks port.NetworkDefinitionProvider
	tokens   port.TokenProvider
	logger   port.Logger
}

// NewRPCBalanceRetriever creates a BalanceRetriever reading balances straight from RPC nodes.
func NewRPCBalanceRetriever(
	clients port.BlockchainClientProvider,
	networks port.NetworkDefinitionProvider,
	tokens port.TokenProvider,
	logger port.Logger,
) port.BalanceRetriever {
	return &rpcBalanceRetriever{clients: clients, networks: networks, tokens: tokens, logger: logger}
}

func (r *rpcBalanceRetriever) clientFor(chainID string) (port.BlockchainClient, entity.NetworkDefinition, error) {
	def, ok := r.networks.GetNetworkDefinitionByChainID(chainID)
	if !ok {
		return nil, def, fmt.Errorf("%w: %s", entity.ErrUnsupportedChain, chainID)
	}
	c, err := r.clients.GetClient(def)
	if err != nil {
		return nil, def, err
	}
	return c, def, nil
}

// GetNativeBalance reads eth_getBalance for the wallet.
func (r *rpcBalanceRetriever) GetNativeBalance(ctx context.Context, wallet entity.Wallet) (entity.NativeBalance, error) {
	c, def, err := r.clientFor(wallet.ChainID)
	if err != nil {
		return entity.NativeBalance{}, err
	}

	results, err := c.GetBalances(ctx, []entity.BalanceRequestItem{{
		ID:            "native",
		Type:          entity.NativeBalanceRequest,
		WalletAddress: wallet.Address,
	}})
	if err != nil {
		return entity.NativeBalance{}, err
	}
	if results[0].Error != nil {
		return entity.NativeBalance{}, results[0].Error
	}

	return entity.NativeBalance{
		ChainID:       def.ChainID,
		WalletAddress: wallet.Address,
		AmountRaw:     results[0].Balance,
		Decimals:      def.Decimals,
	}, nil
}

// GetTokenBalances queries balanceOf for every listed token of the chain. Zero balances are
// dropped; individual token failures are logged and skipped.
func (r *rpcBalanceRetriever) GetTokenBalances(ctx context.Context, wallet entity.Wallet) ([]entity.FungibleTokenBalance, error) {
	c, def, err := r.clientFor(wallet.ChainID)
	if err != nil {
		return nil, err
	}

	byChain, err := r.tokens.GetTokensByNetwork([]entity.NetworkDefinition{def})
	if err != nil {
		return nil, fmt.Errorf("failed to load token list for %s: %w", def.Identifier, err)
	}
	tokens := byChain[def.ChainID]
	if len(tokens) == 0 {
		return []entity.FungibleTokenBalance{}, nil
	}

	requests := make([]entity.BalanceRequestItem, len(tokens))
	for i, token := range tokens {
		requests[i] = entity.BalanceRequestItem{
			ID:            strconv.Itoa(i),
			Type:          entity.TokenBalanceRequest,
			WalletAddress: wallet.Address,
			Token:         token,
		}
	}

	results, err := c.GetBalances(ctx, requests)
	if err != nil {
		return nil, err
	}

	balances := make([]entity.FungibleTokenBalance, 0, len(results))
	for _, res := range results {
		if res.Error != nil {
			r.logger.Warn("Token balance lookup failed", "chain", def.ChainID, "wallet", wallet.Address,
				"token", res.Token.Symbol, "error", res.Error)
			continue
		}
		if res.Balance == nil || res.Balance.Sign() == 0 {
			continue
		}
		if amount, err := utils.FormatBigInt(res.Balance, res.Token.Decimals); err == nil {
			r.logger.Debug("Token balance", "chain", def.ChainID, "wallet", wallet.Address, "token", res.Token.Symbol, "amount", amount)
		}
		balances = append(balances, entity.NewFungibleTokenBalance(
			def.ChainID, wallet.Address, res.Token.Address, res.Token.Symbol, res.Token.Name, res.Balance, res.Token.Decimals))
	}
	return balances, nil
}
