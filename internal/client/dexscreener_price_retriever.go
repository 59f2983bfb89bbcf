package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"portfolio_tracker/internal/app/port"
	domain "portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/entity"
	"portfolio_tracker/internal/pkg/utils"

	"go.uber.org/zap"
)

var stablecoinSymbols = map[string]struct{}{
	"USDC": {},
	"USDT": {},
	"DAI":  {},
}

// DEXScreenerPriceRetriever implements port.PriceRetriever and port.BatchPriceRetriever
// using on-chain DEX pair prices.
type DEXScreenerPriceRetriever struct {
	client   DEXScreenerClient
	networks port.NetworkDefinitionProvider
	logger   *zap.Logger
}

// NewDEXScreenerPriceRetriever creates a price retriever backed by DEX Screener.
func NewDEXScreenerPriceRetriever(client DEXScreenerClient, networks port.NetworkDefinitionProvider, logger *zap.Logger) *DEXScreenerPriceRetriever {
	return &DEXScreenerPriceRetriever{client: client, networks: networks, logger: logger.Named("DEXScreenerPrices")}
}

// GetTokenPrice returns the USD price of one token.
func (r *DEXScreenerPriceRetriever) GetTokenPrice(ctx context.Context, chainID, contractAddress string) (float64, error) {
	prices, err := r.GetTokenPrices(ctx, chainID, []string{contractAddress})
	price, ok := prices[domain.NormalizeAddress(contractAddress)]
	if !ok {
		if err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("no DEX pair with a USD price for %s on %s", contractAddress, chainID)
	}
	return price, nil
}

// GetTokenPrices prices many tokens of one chain, batching requests. Tokens without a usable
// pair are absent from the result. A failed batch does not stop the others: the prices that
// were resolved are returned together with the joined batch errors.
func (r *DEXScreenerPriceRetriever) GetTokenPrices(ctx context.Context, chainID string, contractAddresses []string) (map[string]float64, error) {
	def, ok := r.networks.GetNetworkDefinitionByChainID(chainID)
	if !ok || def.DEXScreenerChainID == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, chainID)
	}

	addresses := make([]string, 0, len(contractAddresses))
	for _, a := range contractAddresses {
		addresses = append(addresses, domain.NormalizeAddress(a))
	}
	addresses = utils.Dedupe(addresses)

	prices := make(map[string]float64, len(addresses))
	var errs []error
	for _, batch := range utils.BatchStrings(addresses, r.client.MaxTokensPerRequest()) {
		pairs, err := r.client.GetTokenPairsByAddresses(ctx, def.DEXScreenerChainID, batch)
		if err != nil {
			r.logger.Warn("Price batch failed", zap.String("chain", def.DEXScreenerChainID), zap.Int("tokens", len(batch)), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		for _, address := range batch {
			if price, ok := selectBestPriceFromPairs(pairs, address); ok {
				prices[address] = price
			} else {
				r.logger.Debug("No suitable price found from pairs", zap.String("token", address), zap.Int("pairs", len(pairs)))
			}
		}
	}
	return prices, errors.Join(errs...)
}

// selectBestPriceFromPairs picks the price of the deepest stablecoin-quoted pair with the token
// as base, falling back to the deepest pair of any quote.
func selectBestPriceFromPairs(pairs []entity.PairData, baseTokenAddress string) (float64, bool) {
	var bestOverall, bestStable *entity.PairData

	for i := range pairs {
		pair := &pairs[i]
		if !strings.EqualFold(pair.BaseToken.Address, baseTokenAddress) {
			continue
		}
		if p, err := strconv.ParseFloat(pair.PriceUsd, 64); err != nil || p <= 0 {
			continue
		}

		if _, isStable := stablecoinSymbols[strings.ToUpper(pair.QuoteToken.Symbol)]; isStable {
			if bestStable == nil || liquidityUSD(pair) > liquidityUSD(bestStable) {
				bestStable = pair
			}
		}
		if bestOverall == nil || liquidityUSD(pair) > liquidityUSD(bestOverall) {
			bestOverall = pair
		}
	}

	best := bestStable
	if best == nil {
		best = bestOverall
	}
	if best == nil {
		return 0, false
	}
	price, _ := strconv.ParseFloat(best.PriceUsd, 64)
	return price, true
}

func liquidityUSD(p *entity.PairData) float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.Usd
}
