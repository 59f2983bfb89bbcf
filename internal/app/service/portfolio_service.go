package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/metrics"
	"portfolio_tracker/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// DefaultChainID is selected when no network selection has been persisted.
const DefaultChainID = "0x1"

const (
	defaultMaxConcurrentWallets = 10
	defaultReloadTimeout        = 60 * time.Second
)

// TrackerDeps are the collaborators of a Tracker. Seeds is optional.
type TrackerDeps struct {
	Balances port.BalanceRetriever
	Prices   port.PriceRetriever
	Networks port.NetworkDefinitionProvider
	Store    port.KeyValueStore
	Seeds    port.AccountSeedProvider
	Logger   port.Logger
}

// TrackerOptions tune valuation and retrieval. Zero values select the defaults.
type TrackerOptions struct {
	TopAssets            int
	DustThreshold        float64
	MergeDuplicates      bool
	HideDust             bool
	MaxConcurrentWallets int
	MaxConcurrentPrices  int
	Now                  func() time.Time

	// ReloadOnChange starts a background reload, bounded by ReloadTimeout, after every
	// account or network change.
	ReloadOnChange bool
	ReloadTimeout  time.Duration
}

// liveState is the published result of one generation. It is replaced as a whole, never mutated.
type liveState struct {
	generation uint64
	balances   []entity.NativeBalance
	natives    []entity.NativeHolding
	fts        []entity.FungibleTokenBalance
	prices     PriceTable
}

// Tracker owns the session state (accounts, selected networks, display settings) and
// coordinates reload generations.
type Tracker struct {
	balances   port.BalanceRetriever
	networks   port.NetworkDefinitionProvider
	store      port.KeyValueStore
	snapshots  *SnapshotStore
	cache      *PriceCache
	prices     *PriceService
	aggregator *PortfolioAggregator
	logger     port.Logger
	opts       TrackerOptions

	mu         sync.RWMutex
	generation uint64
	accounts   []string
	chains     []string
	hideDust   bool
	live       *liveState
}

var _ port.PortfolioTracker = (*Tracker)(nil)

// NewTracker creates a Tracker and restores the persisted accounts and network selection.
// Missing or malformed state falls back to defaults; only store I/O errors are returned.
func NewTracker(ctx context.Context, deps TrackerDeps, opts TrackerOptions) (*Tracker, error) {
	if opts.TopAssets <= 0 {
		opts.TopAssets = DefaultTopAssets
	}
	if opts.DustThreshold <= 0 {
		opts.DustThreshold = DefaultDustThreshold
	}
	if opts.MaxConcurrentWallets <= 0 {
		opts.MaxConcurrentWallets = defaultMaxConcurrentWallets
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = defaultReloadTimeout
	}

	cache := NewPriceCache()
	t := &Tracker{
		balances:   deps.Balances,
		networks:   deps.Networks,
		store:      deps.Store,
		snapshots:  NewSnapshotStore(deps.Store, deps.Logger),
		cache:      cache,
		prices:     NewPriceService(deps.Prices, cache, opts.MaxConcurrentPrices, deps.Logger),
		aggregator: NewPortfolioAggregator(opts.MergeDuplicates),
		logger:     deps.Logger,
		opts:       opts,
		hideDust:   opts.HideDust,
	}

	accounts, err := t.loadAccounts(ctx, deps.Seeds)
	if err != nil {
		return nil, err
	}
	chains, err := t.loadChains(ctx)
	if err != nil {
		return nil, err
	}
	t.accounts = accounts
	t.chains = chains

	t.logger.Info("Tracker state restored", "accounts", len(accounts), "chains", strings.Join(chains, ","))
	return t, nil
}

func (t *Tracker) loadAccounts(ctx context.Context, seeds port.AccountSeedProvider) ([]string, error) {
	stored, ok, err := t.loadStringList(ctx, AccountsKey)
	if err != nil {
		return nil, err
	}
	if ok {
		return sanitizeAccounts(stored, t.logger), nil
	}
	if seeds == nil {
		return []string{}, nil
	}

	seeded, err := seeds.GetAccounts()
	if err != nil {
		t.logger.Warn("Failed to load seed accounts, starting without accounts", "error", err)
		return []string{}, nil
	}
	accounts := sanitizeAccounts(seeded, t.logger)
	if err := t.persistStringList(ctx, AccountsKey, accounts); err != nil {
		return nil, err
	}
	t.logger.Info("Seeded accounts", "count", len(accounts))
	return accounts, nil
}

func (t *Tracker) loadChains(ctx context.Context) ([]string, error) {
	stored, ok, err := t.loadStringList(ctx, ChainsKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []string{DefaultChainID}, nil
	}

	chains := make([]string, 0, len(stored))
	for _, id := range stored {
		def, found := t.networks.GetNetworkDefinitionByChainID(id)
		if !found {
			t.logger.Warn("Dropping unsupported chain from stored selection", "chainId", id)
			continue
		}
		if !slices.Contains(chains, def.ChainID) {
			chains = append(chains, def.ChainID)
		}
	}
	return chains, nil
}

// loadStringList reads a JSON string array. ok is false when the key is absent or malformed.
func (t *Tracker) loadStringList(ctx context.Context, key string) ([]string, bool, error) {
	raw, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		t.logger.Warn("Stored value is malformed, using default", "key", key, "error", err)
		metrics.MalformedState.WithLabelValues(key).Inc()
		return nil, false, nil
	}
	if list == nil {
		list = []string{}
	}
	return list, true, nil
}

func (t *Tracker) persistStringList(ctx context.Context, key string, list []string) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := t.store.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

func sanitizeAccounts(in []string, logger port.Logger) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		addr := entity.NormalizeAddress(a)
		if !common.IsHexAddress(addr) {
			logger.Warn("Dropping invalid account address", "address", a)
			continue
		}
		out = append(out, addr)
	}
	return utils.Dedupe(out)
}

// AddAccount starts tracking address on every selected network.
func (t *Tracker) AddAccount(ctx context.Context, address string) error {
	addr := entity.NormalizeAddress(address)
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("%w: %q", entity.ErrInvalidAddress, address)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if slices.Contains(t.accounts, addr) {
		return fmt.Errorf("%w: %s", entity.ErrDuplicateAccount, addr)
	}

	next := append(slices.Clone(t.accounts), addr)
	if err := t.persistStringList(ctx, AccountsKey, next); err != nil {
		return err
	}
	t.accounts = next
	t.invalidateLocked()
	t.logger.Info("Account added", "address", addr)
	return nil
}

// RemoveAccount stops tracking address.
func (t *Tracker) RemoveAccount(ctx context.Context, address string) error {
	addr := entity.NormalizeAddress(address)

	t.mu.Lock()
	defer t.mu.Unlock()
	i := slices.Index(t.accounts, addr)
	if i < 0 {
		return fmt.Errorf("%w: %s", entity.ErrAccountNotFound, addr)
	}

	next := slices.Delete(slices.Clone(t.accounts), i, i+1)
	if err := t.persistStringList(ctx, AccountsKey, next); err != nil {
		return err
	}
	t.accounts = next
	t.invalidateLocked()
	t.logger.Info("Account removed", "address", addr)
	return nil
}

// Accounts returns the tracked accounts in insertion order.
func (t *Tracker) Accounts() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.accounts)
}

// ToggleNetwork selects or deselects chainID and reports whether it is now selected.
func (t *Tracker) ToggleNetwork(ctx context.Context, chainID string) (bool, error) {
	def, ok := t.networks.GetNetworkDefinitionByChainID(chainID)
	if !ok {
		return false, fmt.Errorf("%w: %s", entity.ErrUnsupportedChain, chainID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	next := slices.Clone(t.chains)
	selected := true
	if i := slices.Index(next, def.ChainID); i >= 0 {
		next = slices.Delete(next, i, i+1)
		selected = false
	} else {
		next = append(next, def.ChainID)
	}

	if err := t.persistStringList(ctx, ChainsKey, next); err != nil {
		return false, err
	}
	t.chains = next
	t.invalidateLocked()
	t.logger.Info("Network toggled", "chainId", def.ChainID, "selected", selected)
	return selected, nil
}

// Networks returns the selected networks in selection order.
func (t *Tracker) Networks() []entity.NetworkDefinition {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.selectedLocked()
}

// Catalog returns every supported network.
func (t *Tracker) Catalog() []entity.NetworkDefinition {
	return t.networks.GetAllNetworkDefinitions()
}

// SetHideDust toggles hiding of rows without value in portfolio views.
func (t *Tracker) SetHideDust(hide bool) {
	t.mu.Lock()
	t.hideDust = hide
	t.mu.Unlock()
}

func (t *Tracker) selectedLocked() []entity.NetworkDefinition {
	defs := make([]entity.NetworkDefinition, 0, len(t.chains))
	for _, id := range t.chains {
		if def, ok := t.networks.GetNetworkDefinitionByChainID(id); ok {
			defs = append(defs, def)
		}
	}
	return defs
}

// invalidateLocked makes any reload in flight stale and narrows the published state to the
// current accounts and networks.
func (t *Tracker) invalidateLocked() {
	t.generation++
	if t.live != nil {
		t.live = t.narrowLocked(t.live)
	}
	if t.opts.ReloadOnChange {
		go t.reloadAfterChange()
	}
}

// narrowLocked returns a copy of live without the holdings of removed accounts or
// deselected networks. Newly added accounts and networks appear with the next reload.
func (t *Tracker) narrowLocked(live *liveState) *liveState {
	chains := t.selectedLocked()
	tracked := func(wallet, chainID string) bool {
		return slices.Contains(t.accounts, entity.NormalizeAddress(wallet)) && slices.Contains(t.chains, chainID)
	}

	balances := make([]entity.NativeBalance, 0, len(live.balances))
	for _, b := range live.balances {
		if tracked(b.WalletAddress, b.ChainID) {
			balances = append(balances, b)
		}
	}
	fts := make([]entity.FungibleTokenBalance, 0, len(live.fts))
	for _, f := range live.fts {
		if tracked(f.WalletAddress, f.ChainID) {
			fts = append(fts, f)
		}
	}
	return &liveState{
		generation: live.generation,
		balances:   balances,
		natives:    t.aggregator.AggregateNatives(chains, balances),
		fts:        fts,
		prices:     live.prices,
	}
}

func (t *Tracker) reloadAfterChange() {
	ctx, cancel := context.WithTimeout(context.Background(), t.opts.ReloadTimeout)
	defer cancel()
	if _, err := t.Reload(ctx); err != nil {
		if IsStale(err) {
			t.logger.Debug("Reload after change superseded", "error", err)
			return
		}
		t.logger.Warn("Reload after change failed", "error", err)
	}
}

// Reload fetches balances for every (account, network) pair, then the prices they need, and
// publishes the result as the live portfolio. If the accounts, the networks or another reload
// changed the state meanwhile, the result is discarded with ErrStaleGeneration.
func (t *Tracker) Reload(ctx context.Context) (*port.ReloadReport, error) {
	start := time.Now()

	t.mu.Lock()
	t.generation++
	gen := t.generation
	accounts := slices.Clone(t.accounts)
	chains := t.selectedLocked()
	t.mu.Unlock()

	metrics.GenerationsStarted.Inc()
	t.logger.Info("Reload started", "generation", gen, "accounts", len(accounts), "chains", len(chains))

	wallets := make([]entity.Wallet, 0, len(accounts)*len(chains))
	for _, a := range accounts {
		for _, c := range chains {
			wallets = append(wallets, entity.Wallet{Address: a, ChainID: c.ChainID})
		}
	}

	nativeBalances, fts, errs := t.fetchBalances(ctx, wallets)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !t.isCurrent(gen) {
		return nil, t.discard(gen)
	}

	keys := RequiredPriceKeys(chains, fts)
	t.cache.BeginGeneration(gen, keys)
	priced := t.prices.Resolve(ctx, gen, chains, fts)
	errs = append(errs, priced.Errors...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state := &liveState{
		generation: gen,
		balances:   nativeBalances,
		natives:    t.aggregator.AggregateNatives(chains, nativeBalances),
		fts:        fts,
		prices:     t.cache.Table(keys),
	}
	_, total := t.aggregator.ComputeValues(state.natives, state.fts, state.prices)

	t.mu.Lock()
	if gen != t.generation {
		t.mu.Unlock()
		return nil, t.discard(gen)
	}
	t.live = state
	t.mu.Unlock()

	elapsed := time.Since(start)
	metrics.ReloadDuration.Observe(elapsed.Seconds())
	t.logger.Info("Reload published",
		"generation", gen,
		"wallets", len(wallets),
		"tokens", len(fts),
		"pricesFetched", priced.Fetched,
		"errors", len(errs),
		"totalUSD", total,
		"duration", elapsed)

	return &port.ReloadReport{
		Generation:    gen,
		Wallets:       len(wallets),
		Natives:       len(state.natives),
		FTs:           len(fts),
		PricesFetched: priced.Fetched,
		TotalValueUSD: total,
		Errors:        errs,
	}, nil
}

func (t *Tracker) isCurrent(gen uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return gen == t.generation
}

func (t *Tracker) discard(gen uint64) error {
	metrics.StaleGenerationsDiscarded.Inc()
	t.logger.Info("Discarding stale reload", "generation", gen)
	return fmt.Errorf("%w: generation %d", entity.ErrStaleGeneration, gen)
}

// fetchBalances queries every wallet concurrently. Failures are reported per wallet; results
// keep wallet order.
func (t *Tracker) fetchBalances(ctx context.Context, wallets []entity.Wallet) ([]entity.NativeBalance, []entity.FungibleTokenBalance, []entity.PortfolioError) {
	natives := make([]*entity.NativeBalance, len(wallets))
	tokens := make([][]entity.FungibleTokenBalance, len(wallets))
	failures := make([][]entity.PortfolioError, len(wallets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.MaxConcurrentWallets)
	for i, w := range wallets {
		i, w := i, w
		g.Go(func() error {
			nb, err := t.balances.GetNativeBalance(gctx, w)
			if err != nil {
				failures[i] = append(failures[i], t.balanceFailure(w, entity.FailureNativeBalance, err))
			} else {
				nb.ChainID = w.ChainID
				nb.WalletAddress = w.Address
				natives[i] = &nb
			}

			fts, err := t.balances.GetTokenBalances(gctx, w)
			if err != nil {
				failures[i] = append(failures[i], t.balanceFailure(w, entity.FailureTokenBalances, err))
			} else {
				owned := slices.Clone(fts)
				for j := range owned {
					owned[j].WalletAddress = w.Address
				}
				tokens[i] = owned
			}
			return nil
		})
	}
	_ = g.Wait()

	var (
		outNatives []entity.NativeBalance
		outTokens  = []entity.FungibleTokenBalance{}
		outErrs    = []entity.PortfolioError{}
	)
	for i := range wallets {
		if natives[i] != nil {
			outNatives = append(outNatives, *natives[i])
		}
		outTokens = append(outTokens, tokens[i]...)
		outErrs = append(outErrs, failures[i]...)
	}
	return outNatives, outTokens, outErrs
}

func (t *Tracker) balanceFailure(w entity.Wallet, kind string, err error) entity.PortfolioError {
	metrics.RetrievalFailures.WithLabelValues(kind, w.ChainID).Inc()
	t.logger.Warn("Balance lookup failed",
		"wallet", w.Address,
		"chainId", w.ChainID,
		"kind", kind,
		"error", err)
	return entity.PortfolioError{
		WalletAddress: w.Address,
		ChainID:       w.ChainID,
		IsNative:      kind == entity.FailureNativeBalance,
		Kind:          kind,
		Message:       err.Error(),
	}
}

// Portfolio returns the live portfolio for entity.LiveSnapshotIndex, or the stored snapshot at
// snapshotIndex.
func (t *Tracker) Portfolio(ctx context.Context, snapshotIndex int) (*entity.PortfolioView, error) {
	t.mu.RLock()
	hide := t.hideDust
	live := t.live
	t.mu.RUnlock()

	if snapshotIndex == entity.LiveSnapshotIndex {
		return t.liveView(live, hide), nil
	}
	if snapshotIndex < 0 {
		return nil, fmt.Errorf("%w: %d", entity.ErrIndexOutOfRange, snapshotIndex)
	}

	snap, err := t.snapshots.Select(ctx, snapshotIndex)
	if err != nil {
		return nil, err
	}
	return t.snapshotView(snap, snapshotIndex, hide), nil
}

func (t *Tracker) liveView(live *liveState, hide bool) *entity.PortfolioView {
	if live == nil {
		live = &liveState{prices: PriceTable{}}
	}
	assets, total := t.aggregator.ComputeValues(live.natives, live.fts, live.prices)

	natives := make([]entity.AssetRow, 0, len(live.natives))
	for _, n := range live.natives {
		price, _ := live.prices.NativePrice(n.ChainID)
		natives = append(natives, newAssetRow(n.ChainID, "", n.Name, n.Symbol, true, n.Balance, price))
	}
	fts := t.aggregator.PrepareTokens(live.fts)
	ftRows := make([]entity.AssetRow, 0, len(fts))
	for _, f := range fts {
		price, _ := live.prices.TokenPrice(f.ChainID, f.ContractAddress)
		ftRows = append(ftRows, newAssetRow(f.ChainID, f.ContractAddress, f.Name, f.Symbol, false, f.Balance(), price))
	}

	view := &entity.PortfolioView{
		Source:        entity.ViewSourceLive,
		SnapshotIndex: entity.LiveSnapshotIndex,
		Generation:    live.generation,
		TotalValueUSD: total,
		TotalDisplay:  utils.FormatUSD(total),
		Allocation:    SelectTopAssets(assets, t.opts.TopAssets, t.opts.DustThreshold),
	}
	applyRows(view, natives, ftRows, hide)
	return view
}

func (t *Tracker) snapshotView(s entity.Snapshot, index int, hide bool) *entity.PortfolioView {
	assets, total := ValuesFromSnapshot(s)

	natives := make([]entity.AssetRow, 0, len(s.Natives))
	for _, n := range s.Natives {
		natives = append(natives, newAssetRow(n.ChainID, "", n.Name, n.Symbol, true, n.Balance, n.Price))
	}
	fts := make([]entity.AssetRow, 0, len(s.FTs))
	for _, f := range s.FTs {
		fts = append(fts, newAssetRow(f.ChainID, f.TokenAddress, f.Name, f.Symbol, false, f.Balance, f.Price))
	}

	view := &entity.PortfolioView{
		Source:        entity.ViewSourceSnapshot,
		SnapshotIndex: index,
		Timestamp:     s.Timestamp,
		TotalValueUSD: total,
		TotalDisplay:  utils.FormatUSD(total),
		Allocation:    SelectTopAssets(assets, t.opts.TopAssets, t.opts.DustThreshold),
	}
	applyRows(view, natives, fts, hide)
	return view
}

func newAssetRow(chainID, token, name, symbol string, native bool, balance, price float64) entity.AssetRow {
	value := balance * price
	return entity.AssetRow{
		ChainID:        chainID,
		TokenAddress:   token,
		Name:           name,
		Symbol:         symbol,
		IsNative:       native,
		Balance:        balance,
		BalanceDisplay: utils.NormalizeAmount(balance),
		PriceUSD:       price,
		PriceDisplay:   utils.FormatUSD(price),
		ValueUSD:       value,
		ValueDisplay:   utils.FormatUSD(value),
	}
}

// applyRows sets the view rows, dropping rows without value when hide is set.
func applyRows(view *entity.PortfolioView, natives, fts []entity.AssetRow, hide bool) {
	view.HideDust = hide
	if !hide {
		view.Natives, view.FTs = natives, fts
		return
	}
	keep := func(rows []entity.AssetRow) []entity.AssetRow {
		out := make([]entity.AssetRow, 0, len(rows))
		for _, r := range rows {
			if r.ValueUSD > 0 {
				out = append(out, r)
			} else {
				view.HiddenRowsCount++
			}
		}
		return out
	}
	view.Natives = keep(natives)
	view.FTs = keep(fts)
}

// SaveSnapshot freezes the live portfolio with its prices and appends it to the store.
func (t *Tracker) SaveSnapshot(ctx context.Context) (entity.Snapshot, error) {
	t.mu.RLock()
	live := t.live
	t.mu.RUnlock()
	if live == nil {
		live = &liveState{prices: PriceTable{}}
	}

	natives, fts := t.aggregator.Serialize(live.natives, live.fts, live.prices)
	snap := entity.Snapshot{
		Timestamp:      t.opts.Now().UnixMilli(),
		Natives:        natives,
		FTs:            fts,
		PortfolioValue: SnapshotValue(natives, fts),
	}
	if err := t.snapshots.Append(ctx, snap); err != nil {
		return entity.Snapshot{}, err
	}

	metrics.SnapshotsSaved.Inc()
	t.logger.Info("Snapshot saved", "timestamp", snap.Timestamp, "valueUSD", snap.PortfolioValue, "generation", live.generation)
	return snap, nil
}

// Snapshots returns every stored snapshot in insertion order.
func (t *Tracker) Snapshots(ctx context.Context) ([]entity.Snapshot, error) {
	return t.snapshots.List(ctx)
}

// IsStale reports whether err is a discarded reload.
func IsStale(err error) bool {
	return errors.Is(err, entity.ErrStaleGeneration)
}
