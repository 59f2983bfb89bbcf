package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/logger"
)

const (
	wethAddress   = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	wmaticAddress = "0x7c9f4c87d911613fe9ca58b579f737911aad2d43"
	tokenA        = "0x00000000000000000000000000000000000000aa"
	tokenB        = "0x00000000000000000000000000000000000000bb"
	account1      = "0x1111111111111111111111111111111111111111"
	account2      = "0x2222222222222222222222222222222222222222"
)

var (
	ethereum = entity.NetworkDefinition{
		ChainID: "0x1", ChainNumber: 1, Name: "Ethereum", Identifier: "ethereum",
		CurrencyName: "Ether", NativeSymbol: "ETH", Decimals: 18,
		WrappedNativeTokenAddress: wethAddress, PriceChainID: "0x1",
	}
	polygon = entity.NetworkDefinition{
		ChainID: "0x89", ChainNumber: 137, Name: "Polygon", Identifier: "polygon",
		CurrencyName: "Matic", NativeSymbol: "MATIC", Decimals: 18,
		WrappedNativeTokenAddress: wmaticAddress, PriceChainID: "0x1",
	}
	optimism = entity.NetworkDefinition{
		ChainID: "0xa", ChainNumber: 10, Name: "Optimism", Identifier: "optimism",
		CurrencyName: "Ether", NativeSymbol: "ETH", Decimals: 18,
	}

	testLogger = logger.NewSlogAdapter()
)

type fakeNetworks struct {
	defs []entity.NetworkDefinition
}

func newFakeNetworks() fakeNetworks {
	return fakeNetworks{defs: []entity.NetworkDefinition{ethereum, polygon, optimism}}
}

func (f fakeNetworks) GetAllNetworkDefinitions() []entity.NetworkDefinition { return f.defs }

func (f fakeNetworks) GetNetworkDefinitionByChainID(id string) (entity.NetworkDefinition, bool) {
	for _, d := range f.defs {
		if strings.EqualFold(d.ChainID, id) {
			return d, true
		}
	}
	return entity.NetworkDefinition{}, false
}

// units converts a whole-unit amount to raw base units.
func units(amount int64, decimals uint8) *big.Int {
	return new(big.Int).Mul(big.NewInt(amount), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

type fakeBalances struct {
	mu        sync.Mutex
	natives   map[entity.Wallet]*big.Int
	tokens    map[entity.Wallet][]entity.FungibleTokenBalance
	nativeErr map[entity.Wallet]error
	tokenErr  map[entity.Wallet]error
	calls     int

	// gate, when set, holds the next native lookup until closed.
	gate    chan struct{}
	started chan struct{}
}

func newFakeBalances() *fakeBalances {
	return &fakeBalances{
		natives:   map[entity.Wallet]*big.Int{},
		tokens:    map[entity.Wallet][]entity.FungibleTokenBalance{},
		nativeErr: map[entity.Wallet]error{},
		tokenErr:  map[entity.Wallet]error{},
		started:   make(chan struct{}, 1),
	}
}

func (f *fakeBalances) GetNativeBalance(ctx context.Context, w entity.Wallet) (entity.NativeBalance, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.gate = nil
	raw, err := f.natives[w], f.nativeErr[w]
	f.mu.Unlock()

	if gate != nil {
		f.started <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return entity.NativeBalance{}, ctx.Err()
		}
	}
	if err != nil {
		return entity.NativeBalance{}, err
	}
	if raw == nil {
		raw = big.NewInt(0)
	}
	return entity.NativeBalance{ChainID: w.ChainID, WalletAddress: w.Address, AmountRaw: raw, Decimals: 18}, nil
}

func (f *fakeBalances) GetTokenBalances(_ context.Context, w entity.Wallet) ([]entity.FungibleTokenBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.tokenErr[w]; err != nil {
		return nil, err
	}
	return f.tokens[w], nil
}

var errNoPrice = errors.New("price not found")

type fakePrices struct {
	mu     sync.Mutex
	prices map[string]float64
	calls  map[string]int
}

func newFakePrices(prices map[string]float64) *fakePrices {
	return &fakePrices{prices: prices, calls: map[string]int{}}
}

func (f *fakePrices) GetTokenPrice(_ context.Context, chainID, contract string) (float64, error) {
	key := entity.NewPriceKey(chainID, contract).String()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	p, ok := f.prices[key]
	if !ok {
		return 0, errNoPrice
	}
	return p, nil
}

func (f *fakePrices) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakeBatchPrices struct {
	*fakePrices
	batches int
	err     error

	// failing contracts are left out of a batch, which then reports partialErr with the rest.
	failing    map[string]bool
	partialErr error
}

func (f *fakeBatchPrices) GetTokenPrices(ctx context.Context, chainID string, contracts []string) (map[string]float64, error) {
	f.mu.Lock()
	f.batches++
	err, failing := f.err, f.failing
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := map[string]float64{}
	var batchErr error
	for _, c := range contracts {
		if failing[entity.NormalizeAddress(c)] {
			batchErr = f.partialErr
			continue
		}
		if p, err := f.GetTokenPrice(ctx, chainID, c); err == nil {
			out[entity.NormalizeAddress(c)] = p
		}
	}
	return out, batchErr
}

type fakeStore struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
	setErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (s *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *fakeStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.values[key] = value
	return nil
}

type fakeSeeds struct {
	accounts []string
	err      error
}

func (f fakeSeeds) GetAccounts() ([]string, error) { return f.accounts, f.err }
