package moralis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portfolio_tracker/internal/domain/entity"
	networkdefinition "portfolio_tracker/internal/infrastructure/network/definition"
	"portfolio_tracker/internal/pkg/logger"

	"go.uber.org/zap"
)

const testWallet = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2.2/"+testWallet+"/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("chain") != "0x1" {
			t.Errorf("chain = %q, want 0x1", r.URL.Query().Get("chain"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"balance":"2000000000000000000"}`))
	})
	mux.HandleFunc("/api/v2.2/"+testWallet+"/erc20", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"token_address":"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48","name":"USD Coin","symbol":"USDC","decimals":6,"balance":"100000000","possible_spam":false},
			{"token_address":"0x1111111111111111111111111111111111111111","name":"Airdrop","symbol":"SPAM","decimals":18,"balance":"not-a-number","possible_spam":true},
			{"token_address":"0x2222222222222222222222222222222222222222","name":"Free","symbol":"FREE","decimals":18,"balance":"5","possible_spam":true}
		]`))
	})
	mux.HandleFunc("/api/v2.2/erc20/0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2/price", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tokenSymbol":"WETH","usdPrice":1800.5}`))
	})
	mux.HandleFunc("/api/v2.2/erc20/0xdead/price", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, baseURL string) *MoralisClient {
	t.Helper()
	networks := networkdefinition.NewNetworkDefinitionProvider(logger.NewSlogAdapter(), nil)
	return NewMoralisClient(Config{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Timeout:    5 * time.Second,
		MaxRetries: 0,
	}, networks, zap.NewNop())
}

func TestMoralisClient_GetNativeBalance(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	got, err := c.GetNativeBalance(context.Background(), entity.Wallet{Address: testWallet, ChainID: "0x1"})
	if err != nil {
		t.Fatalf("GetNativeBalance() error = %v", err)
	}
	if got.Balance() != 2 || got.ChainID != "0x1" || got.Decimals != 18 {
		t.Errorf("GetNativeBalance() = %+v", got)
	}
}

func TestMoralisClient_GetNativeBalance_UnsupportedChain(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	_, err := c.GetNativeBalance(context.Background(), entity.Wallet{Address: testWallet, ChainID: "0x2105"})
	if !errors.Is(err, entity.ErrUnsupportedChain) {
		t.Errorf("GetNativeBalance() error = %v, want ErrUnsupportedChain", err)
	}
}

func TestMoralisClient_GetTokenBalances(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	got, err := c.GetTokenBalances(context.Background(), entity.Wallet{Address: testWallet, ChainID: "0x1"})
	if err != nil {
		t.Fatalf("GetTokenBalances() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetTokenBalances() returned %d entries, want 2", len(got))
	}
	if got[0].ContractAddress != "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48" {
		t.Errorf("contract address not normalised: %s", got[0].ContractAddress)
	}
	if got[0].Balance() != 100 {
		t.Errorf("USDC balance = %v, want 100", got[0].Balance())
	}
	if !got[1].PossibleSpam {
		t.Error("PossibleSpam flag lost")
	}
}

func TestMoralisClient_GetTokenPrice(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	price, err := c.GetTokenPrice(context.Background(), "0x1", "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	if err != nil {
		t.Fatalf("GetTokenPrice() error = %v", err)
	}
	if price != 1800.5 {
		t.Errorf("GetTokenPrice() = %v, want 1800.5", price)
	}

	if _, err := c.GetTokenPrice(context.Background(), "0x1", "0xdead"); !errors.Is(err, ErrPriceNotFound) {
		t.Errorf("GetTokenPrice() error = %v, want ErrPriceNotFound", err)
	}
}

func TestMoralisClient_Unauthorized(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	networks := networkdefinition.NewNetworkDefinitionProvider(logger.NewSlogAdapter(), nil)
	c := NewMoralisClient(Config{BaseURL: srv.URL, Timeout: time.Second}, networks, zap.NewNop())

	if _, err := c.GetNativeBalance(context.Background(), entity.Wallet{Address: testWallet, ChainID: "0x1"}); err == nil {
		t.Error("GetNativeBalance() expected error without API key")
	}
}
