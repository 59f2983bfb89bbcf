package moralis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/httpclient"
	"portfolio_tracker/internal/pkg/utils"

	"go.uber.org/zap"
)

// Config holds the Moralis Web3 Data API settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RateLimit  int // requests per minute
	MaxRetries int
}

// ErrPriceNotFound is returned when Moralis knows no price for a token.
var ErrPriceNotFound = errors.New("moralis: price not found")

// MoralisClient implements port.BalanceRetriever and port.PriceRetriever.
type MoralisClient struct {
	baseURL    string
	httpClient *httpclient.HTTPClient
	networks   port.NetworkDefinitionProvider
	logger     *zap.Logger
}

// NewMoralisClient creates a new MoralisClient.
func NewMoralisClient(cfg Config, networks port.NetworkDefinitionProvider, logger *zap.Logger) *MoralisClient {
	httpClient := httpclient.NewHTTPClient(httpclient.HTTPClientConfig{
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		MaxRetries: cfg.MaxRetries,
		XApiKey:    cfg.APIKey,
	}, logger)

	return &MoralisClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		networks:   networks,
		logger:     logger,
	}
}

func (m *MoralisClient) network(chainID string) (entity.NetworkDefinition, error) {
	def, ok := m.networks.GetNetworkDefinitionByChainID(chainID)
	if !ok {
		return def, fmt.Errorf("%w: %s", entity.ErrUnsupportedChain, chainID)
	}
	return def, nil
}

// GetNativeBalance calls GET /{address}/balance.
func (m *MoralisClient) GetNativeBalance(ctx context.Context, wallet entity.Wallet) (entity.NativeBalance, error) {
	def, err := m.network(wallet.ChainID)
	if err != nil {
		return entity.NativeBalance{}, err
	}

	var resp nativeBalanceResp
	url := fmt.Sprintf("%s/api/v2.2/%s/balance", m.baseURL, wallet.Address)
	if err := m.httpClient.Get(ctx, url, map[string]string{"chain": def.ChainID}, &resp); err != nil {
		return entity.NativeBalance{}, fmt.Errorf("fetch native balance failed, wallet: %s, chain: %s: %w", wallet.Address, def.ChainID, err)
	}

	amount, err := utils.ParseBigInt(resp.Balance)
	if err != nil {
		return entity.NativeBalance{}, err
	}
	return entity.NativeBalance{
		ChainID:       def.ChainID,
		WalletAddress: wallet.Address,
		AmountRaw:     amount,
		Decimals:      def.Decimals,
	}, nil
}

// GetTokenBalances calls GET /{address}/erc20. Entries with an unparsable balance are skipped.
func (m *MoralisClient) GetTokenBalances(ctx context.Context, wallet entity.Wallet) ([]entity.FungibleTokenBalance, error) {
	def, err := m.network(wallet.ChainID)
	if err != nil {
		return nil, err
	}

	var resp []tokenBalance
	url := fmt.Sprintf("%s/api/v2.2/%s/erc20", m.baseURL, wallet.Address)
	if err := m.httpClient.Get(ctx, url, map[string]string{"chain": def.ChainID}, &resp); err != nil {
		return nil, fmt.Errorf("fetch token balances failed, wallet: %s, chain: %s: %w", wallet.Address, def.ChainID, err)
	}

	balances := make([]entity.FungibleTokenBalance, 0, len(resp))
	for _, t := range resp {
		amount, err := utils.ParseBigInt(t.Balance)
		if err != nil {
			m.logger.Warn("Skipping token with invalid balance",
				zap.String("token", t.TokenAddress), zap.String("balance", t.Balance), zap.Error(err))
			continue
		}
		if t.Decimals < 0 || t.Decimals > 255 {
			m.logger.Warn("Skipping token with invalid decimals", zap.String("token", t.TokenAddress), zap.Int("decimals", t.Decimals))
			continue
		}
		b := entity.NewFungibleTokenBalance(def.ChainID, wallet.Address, t.TokenAddress, t.Symbol, t.Name, amount, uint8(t.Decimals))
		b.PossibleSpam = t.PossibleSpam
		balances = append(balances, b)
	}
	return balances, nil
}

// GetTokenPrice calls GET /erc20/{address}/price.
func (m *MoralisClient) GetTokenPrice(ctx context.Context, chainID, contractAddress string) (float64, error) {
	var resp tokenPriceResp
	url := fmt.Sprintf("%s/api/v2.2/erc20/%s/price", m.baseURL, contractAddress)
	err := m.httpClient.Get(ctx, url, map[string]string{"chain": chainID}, &resp)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusBadRequest) {
			return 0, fmt.Errorf("%w: %s on %s", ErrPriceNotFound, contractAddress, chainID)
		}
		return 0, fmt.Errorf("fetch token price failed, token: %s, chain: %s: %w", contractAddress, chainID, err)
	}
	return resp.USDPrice, nil
}

// Close releases the underlying HTTP client.
func (m *MoralisClient) Close() error {
	return m.httpClient.Close()
}
