package service

import (
	"sync"

	"portfolio_tracker/internal/domain/entity"

	"github.com/patrickmn/go-cache"
)

// PriceCache memoizes resolved USD prices by (chain, contract). Entries do not expire: a price
// known in the current generation is not fetched again, and a lookup that failed is not retried
// until the next generation.
type PriceCache struct {
	mu         sync.Mutex
	prices     *cache.Cache
	generation uint64
	failed     map[entity.PriceKey]struct{}
}

// NewPriceCache creates an empty cache at generation 0.
func NewPriceCache() *PriceCache {
	return &PriceCache{
		prices: cache.New(cache.NoExpiration, 0),
		failed: make(map[entity.PriceKey]struct{}),
	}
}

// Get returns the cached price for key.
func (c *PriceCache) Get(key entity.PriceKey) (float64, bool) {
	v, ok := c.prices.Get(key.String())
	if !ok {
		return 0, false
	}
	return v.(entity.PriceEntry).USDPrice, true
}

// Set stores a price regardless of generation, overwriting any previous value.
func (c *PriceCache) Set(key entity.PriceKey, price float64) {
	c.prices.Set(key.String(), entity.PriceEntry{Key: key, USDPrice: price}, cache.NoExpiration)
}

// NativePrice implements port.PriceLookup.
func (c *PriceCache) NativePrice(chainID string) (float64, bool) {
	return c.Get(entity.NativePriceKey(chainID))
}

// TokenPrice implements port.PriceLookup.
func (c *PriceCache) TokenPrice(chainID, contractAddress string) (float64, bool) {
	return c.Get(entity.NewPriceKey(chainID, contractAddress))
}

// Generation returns the generation the cache currently accepts writes for.
func (c *PriceCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// BeginGeneration switches the cache to gen. Prices for keys outside keep are dropped and
// failure marks are cleared, so failed lookups are attempted again. Older generations are ignored.
func (c *PriceCache) BeginGeneration(gen uint64, keep []entity.PriceKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen < c.generation {
		return
	}
	c.generation = gen
	c.failed = make(map[entity.PriceKey]struct{})

	wanted := make(map[entity.PriceKey]struct{}, len(keep))
	for _, k := range keep {
		wanted[k] = struct{}{}
	}
	for k, item := range c.prices.Items() {
		entry := item.Object.(entity.PriceEntry)
		if _, ok := wanted[entry.Key]; !ok {
			c.prices.Delete(k)
		}
	}
}

// NeedsFetch reports whether key has neither a cached price nor a failed lookup in the
// current generation.
func (c *PriceCache) NeedsFetch(key entity.PriceKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, failed := c.failed[key]; failed {
		return false
	}
	_, ok := c.prices.Get(key.String())
	return !ok
}

// Store records a price fetched for generation gen. Writes from other generations are
// dropped and reported with false.
func (c *PriceCache) Store(gen uint64, key entity.PriceKey, price float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return false
	}
	c.Set(key, price)
	return true
}

// MarkFailed records a failed lookup so it is not retried within gen.
func (c *PriceCache) MarkFailed(gen uint64, key entity.PriceKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return false
	}
	c.failed[key] = struct{}{}
	return true
}

// Table copies the cached prices of keys into an immutable lookup table.
func (c *PriceCache) Table(keys []entity.PriceKey) PriceTable {
	t := make(PriceTable, len(keys))
	for _, k := range keys {
		if p, ok := c.Get(k); ok {
			t[k] = p
		}
	}
	return t
}

// Len returns the number of cached prices.
func (c *PriceCache) Len() int {
	return c.prices.ItemCount()
}

// PriceTable is a frozen set of prices, published together with the balances of one generation.
type PriceTable map[entity.PriceKey]float64

// NativePrice implements port.PriceLookup.
func (t PriceTable) NativePrice(chainID string) (float64, bool) {
	p, ok := t[entity.NativePriceKey(chainID)]
	return p, ok
}

// TokenPrice implements port.PriceLookup.
func (t PriceTable) TokenPrice(chainID, contractAddress string) (float64, bool) {
	p, ok := t[entity.NewPriceKey(chainID, contractAddress)]
	return p, ok
}
