package service

import (
	"context"
	"errors"
	"sync"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/metrics"

	"github.com/sourcegraph/conc/pool"
)

const defaultPriceWorkers = 8

var errPriceUnavailable = errors.New("no price available")

// priceJob is one price to resolve: the cache key it fills and the token actually priced.
// Native coins are priced through their wrapped token, possibly on another chain.
type priceJob struct {
	key      entity.PriceKey
	chainID  string
	contract string
}

// PriceResult summarises one price resolution pass.
type PriceResult struct {
	Fetched int
	Errors  []entity.PortfolioError
}

// PriceService resolves the prices a generation needs into a PriceCache.
type PriceService struct {
	retriever  port.PriceRetriever
	cache      *PriceCache
	logger     port.Logger
	maxWorkers int
}

// NewPriceService creates a PriceService. maxWorkers bounds concurrent single-token lookups;
// values ≤ 0 use a default.
func NewPriceService(retriever port.PriceRetriever, cache *PriceCache, maxWorkers int, logger port.Logger) *PriceService {
	if maxWorkers <= 0 {
		maxWorkers = defaultPriceWorkers
	}
	return &PriceService{retriever: retriever, cache: cache, logger: logger, maxWorkers: maxWorkers}
}

// RequiredPriceKeys lists the price keys needed to value natives of chains and the given tokens,
// natives first, without duplicates.
func RequiredPriceKeys(chains []entity.NetworkDefinition, fts []entity.FungibleTokenBalance) []entity.PriceKey {
	keys := make([]entity.PriceKey, 0, len(chains)+len(fts))
	seen := make(map[entity.PriceKey]struct{}, cap(keys))
	add := func(k entity.PriceKey) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for _, c := range chains {
		add(entity.NativePriceKey(c.ChainID))
	}
	for _, t := range fts {
		add(t.Key())
	}
	return keys
}

// Resolve fetches, for generation gen, every price of chains' natives and of fts that the cache
// does not hold yet. Chains without a price proxy are left unpriced. Failed lookups are marked in
// the cache so the same generation does not ask again.
func (s *PriceService) Resolve(ctx context.Context, gen uint64, chains []entity.NetworkDefinition, fts []entity.FungibleTokenBalance) PriceResult {
	jobs := s.pendingJobs(chains, fts)
	if len(jobs) == 0 {
		return PriceResult{Errors: []entity.PortfolioError{}}
	}
	s.logger.Debug("Resolving prices", "generation", gen, "count", len(jobs))

	var (
		mu  sync.Mutex
		res = PriceResult{Errors: []entity.PortfolioError{}}
	)
	record := func(job priceJob, price float64, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.Errors = append(res.Errors, s.fail(gen, job, err.Error()))
			return
		}
		if s.cache.Store(gen, job.key, price) {
			res.Fetched++
			metrics.PricesFetched.WithLabelValues(job.key.ChainID).Inc()
		}
	}

	if batcher, ok := s.retriever.(port.BatchPriceRetriever); ok {
		s.resolveBatched(ctx, batcher, jobs, record)
	} else {
		s.resolveEach(ctx, jobs, record)
	}
	return res
}

func (s *PriceService) pendingJobs(chains []entity.NetworkDefinition, fts []entity.FungibleTokenBalance) []priceJob {
	var jobs []priceJob
	queued := make(map[entity.PriceKey]struct{})
	push := func(j priceJob) {
		if _, ok := queued[j.key]; ok || !s.cache.NeedsFetch(j.key) {
			return
		}
		queued[j.key] = struct{}{}
		jobs = append(jobs, j)
	}

	for _, c := range chains {
		if !c.HasPriceProxy() {
			continue
		}
		push(priceJob{
			key:      entity.NativePriceKey(c.ChainID),
			chainID:  c.PriceChainID,
			contract: entity.NormalizeAddress(c.WrappedNativeTokenAddress),
		})
	}
	for _, t := range fts {
		push(priceJob{key: t.Key(), chainID: t.ChainID, contract: t.ContractAddress})
	}
	return jobs
}

func (s *PriceService) resolveEach(ctx context.Context, jobs []priceJob, record func(priceJob, float64, error)) {
	workers := pool.New().WithMaxGoroutines(s.maxWorkers)
	for _, job := range jobs {
		job := job
		workers.Go(func() {
			price, err := s.retriever.GetTokenPrice(ctx, job.chainID, job.contract)
			record(job, price, err)
		})
	}
	workers.Wait()
}

func (s *PriceService) resolveBatched(ctx context.Context, batcher port.BatchPriceRetriever, jobs []priceJob, record func(priceJob, float64, error)) {
	byChain := make(map[string][]priceJob)
	var order []string
	for _, j := range jobs {
		if _, ok := byChain[j.chainID]; !ok {
			order = append(order, j.chainID)
		}
		byChain[j.chainID] = append(byChain[j.chainID], j)
	}

	workers := pool.New().WithMaxGoroutines(s.maxWorkers)
	for _, chainID := range order {
		chainID := chainID
		group := byChain[chainID]
		workers.Go(func() {
			contracts := make([]string, 0, len(group))
			for _, j := range group {
				contracts = append(contracts, j.contract)
			}
			prices, err := batcher.GetTokenPrices(ctx, chainID, contracts)
			if err == nil {
				err = errPriceUnavailable
			}
			for _, j := range group {
				if price, ok := prices[j.contract]; ok {
					record(j, price, nil)
					continue
				}
				record(j, 0, err)
			}
		})
	}
	workers.Wait()
}

// fail must be called with the result mutex held.
func (s *PriceService) fail(gen uint64, job priceJob, msg string) entity.PortfolioError {
	s.cache.MarkFailed(gen, job.key)
	metrics.RetrievalFailures.WithLabelValues(entity.FailurePrice, job.key.ChainID).Inc()
	s.logger.Warn("Failed to resolve price",
		"chainId", job.key.ChainID,
		"token", job.contract,
		"native", job.key.IsNative(),
		"error", msg)

	token := job.key.ContractAddress
	if job.key.IsNative() {
		token = ""
	}
	return entity.PortfolioError{
		ChainID:      job.key.ChainID,
		TokenAddress: token,
		IsNative:     job.key.IsNative(),
		Kind:         entity.FailurePrice,
		Message:      msg,
	}
}
