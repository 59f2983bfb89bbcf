package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	domain "portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/entity"
	networkdefinition "portfolio_tracker/internal/infrastructure/network/definition"
	"portfolio_tracker/internal/pkg/logger"

	"go.uber.org/zap"
)

const (
	weth = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	link = "0x514910771af9ca656af840dff83e8264ecf986ca"
)

const pairsBody = `[
	{"chainId":"ethereum","pairAddress":"0x1","baseToken":{"address":"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2","symbol":"WETH"},
	 "quoteToken":{"symbol":"USDC"},"priceUsd":"1800.00","liquidity":{"usd":1000000}},
	{"chainId":"ethereum","pairAddress":"0x2","baseToken":{"address":"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2","symbol":"WETH"},
	 "quoteToken":{"symbol":"PEPE"},"priceUsd":"1750.00","liquidity":{"usd":9000000}},
	{"chainId":"ethereum","pairAddress":"0x3","baseToken":{"address":"0x514910771AF9Ca656af840dff83E8264EcF986CA","symbol":"LINK"},
	 "quoteToken":{"symbol":"WETH"},"priceUsd":"14.20","liquidity":null}
]`

func newDEXServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasPrefix(r.URL.Path, "/tokens/v1/ethereum/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pairsBody))
	}))
}

func newRetriever(t *testing.T, baseURL string, maxPerRequest int) *DEXScreenerPriceRetriever {
	t.Helper()
	networks := networkdefinition.NewNetworkDefinitionProvider(logger.NewSlogAdapter(), nil)
	c := NewDEXScreenerClient(baseURL, 5*time.Second, zap.NewNop(), maxPerRequest)
	return NewDEXScreenerPriceRetriever(c, networks, zap.NewNop())
}

func TestDEXScreenerPriceRetriever_GetTokenPrices(t *testing.T) {
	var hits atomic.Int32
	srv := newDEXServer(t, &hits)
	defer srv.Close()
	r := newRetriever(t, srv.URL, 30)

	prices, err := r.GetTokenPrices(context.Background(), "0x1", []string{weth, link, "0x0000000000000000000000000000000000000001"})
	if err != nil {
		t.Fatalf("GetTokenPrices() error = %v", err)
	}
	if prices[weth] != 1800 {
		t.Errorf("WETH price = %v, want the stablecoin pair price 1800", prices[weth])
	}
	if prices[link] != 14.2 {
		t.Errorf("LINK price = %v, want 14.2", prices[link])
	}
	if _, ok := prices["0x0000000000000000000000000000000000000001"]; ok {
		t.Error("token without pairs should be absent")
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
}

func TestDEXScreenerPriceRetriever_Batches(t *testing.T) {
	var hits atomic.Int32
	srv := newDEXServer(t, &hits)
	defer srv.Close()
	r := newRetriever(t, srv.URL, 1)

	if _, err := r.GetTokenPrices(context.Background(), "0x1", []string{weth, link, weth}); err != nil {
		t.Fatalf("GetTokenPrices() error = %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("server hit %d times, want 2 (one per distinct token)", n)
	}
}

func TestDEXScreenerPriceRetriever_PartialBatchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(strings.ToLower(r.URL.Path), link) {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pairsBody))
	}))
	defer srv.Close()
	r := newRetriever(t, srv.URL, 1)

	prices, err := r.GetTokenPrices(context.Background(), "0x1", []string{weth, link})
	if err == nil {
		t.Error("GetTokenPrices() error = nil, want the failed batch reported")
	}
	if prices[weth] != 1800 {
		t.Errorf("WETH price = %v, want 1800 from the successful batch", prices[weth])
	}
	if _, ok := prices[link]; ok {
		t.Error("LINK should be absent after its batch failed")
	}

	price, err := r.GetTokenPrice(context.Background(), "0x1", link)
	if err == nil || price != 0 {
		t.Errorf("GetTokenPrice(link) = %v, %v; want the batch error", price, err)
	}
}

func TestDEXScreenerPriceRetriever_GetTokenPrice(t *testing.T) {
	var hits atomic.Int32
	srv := newDEXServer(t, &hits)
	defer srv.Close()
	r := newRetriever(t, srv.URL, 30)

	price, err := r.GetTokenPrice(context.Background(), "0x1", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	if err != nil {
		t.Fatalf("GetTokenPrice() error = %v", err)
	}
	if price != 1800 {
		t.Errorf("GetTokenPrice() = %v, want 1800", price)
	}

	if _, err := r.GetTokenPrice(context.Background(), "0x2105", weth); !errors.Is(err, domain.ErrUnsupportedChain) {
		t.Errorf("GetTokenPrice() error = %v, want ErrUnsupportedChain", err)
	}
}

func TestDEXScreenerClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewDEXScreenerClient(srv.URL, time.Second, zap.NewNop(), 30)
	if _, err := c.GetTokenPairsByAddresses(context.Background(), "ethereum", []string{weth}); err == nil {
		t.Error("GetTokenPairsByAddresses() expected error on 429")
	}
}

func TestDecodePairs_Wrapped(t *testing.T) {
	pairs, err := decodePairs([]byte(`{"schemaVersion":"1.0.0","pairs":[{"priceUsd":"1"}]}`))
	if err != nil {
		t.Fatalf("decodePairs() error = %v", err)
	}
	if len(pairs) != 1 {
		t.Errorf("decodePairs() = %v", pairs)
	}
}

func TestSelectBestPriceFromPairs_SkipsZeroPrices(t *testing.T) {
	pairs := []entity.PairData{
		{BaseToken: entity.DEXToken{Address: weth}, QuoteToken: entity.DEXToken{Symbol: "USDT"}, PriceUsd: "0"},
		{BaseToken: entity.DEXToken{Address: weth}, QuoteToken: entity.DEXToken{Symbol: "WBTC"}, PriceUsd: "abc"},
	}
	if _, ok := selectBestPriceFromPairs(pairs, weth); ok {
		t.Error("selectBestPriceFromPairs() found a price among invalid pairs")
	}
}
