package service

import (
	"math/big"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/domain/ranking"
)

const (
	// DefaultTopAssets is the number of assets shown individually in the allocation summary.
	DefaultTopAssets = 5
	// DefaultDustThreshold is the USD value under which an asset is left out of the summary.
	DefaultDustThreshold = 0.01
)

// PortfolioAggregator turns per-wallet balances and prices into valued assets.
// It holds no state besides its options and is safe for concurrent use.
type PortfolioAggregator struct {
	mergeDuplicates bool
}

// NewPortfolioAggregator creates an aggregator. With mergeDuplicates, token holdings of the same
// contract across accounts are summed into one entry before valuation.
func NewPortfolioAggregator(mergeDuplicates bool) *PortfolioAggregator {
	return &PortfolioAggregator{mergeDuplicates: mergeDuplicates}
}

// AggregateNatives sums native balances per chain. The result has one holding per selected
// chain, in selection order, zero when no balance arrived for it. Balances for chains outside
// the selection are ignored.
func (a *PortfolioAggregator) AggregateNatives(chains []entity.NetworkDefinition, balances []entity.NativeBalance) []entity.NativeHolding {
	holdings := make([]entity.NativeHolding, len(chains))
	index := make(map[string]int, len(chains))
	for i, c := range chains {
		holdings[i] = entity.NativeHolding{ChainID: c.ChainID, Name: c.CurrencyName, Symbol: c.NativeSymbol}
		index[c.ChainID] = i
	}

	for _, b := range balances {
		i, ok := index[b.ChainID]
		if !ok {
			continue
		}
		holdings[i].Balance += b.Balance()
	}
	return holdings
}

// PrepareTokens applies the duplicate-holding policy to the token list.
func (a *PortfolioAggregator) PrepareTokens(fts []entity.FungibleTokenBalance) []entity.FungibleTokenBalance {
	if !a.mergeDuplicates {
		return fts
	}
	return MergeDuplicateHoldings(fts)
}

// ComputeValues values every holding at its resolved price. Holdings without a price are valued
// at zero. Token holdings are valued individually: the same contract held by two accounts yields
// two assets unless duplicates are merged.
func (a *PortfolioAggregator) ComputeValues(natives []entity.NativeHolding, fts []entity.FungibleTokenBalance, prices port.PriceLookup) ([]entity.ValuedAsset, float64) {
	fts = a.PrepareTokens(fts)
	assets := make([]entity.ValuedAsset, 0, len(natives)+len(fts))
	total := 0.0

	for _, n := range natives {
		price, _ := prices.NativePrice(n.ChainID)
		v := n.Balance * price
		assets = append(assets, entity.ValuedAsset{Symbol: labelOf(n.Symbol), USDValue: v})
		total += v
	}
	for _, t := range fts {
		price, _ := prices.TokenPrice(t.ChainID, t.ContractAddress)
		v := t.Balance() * price
		assets = append(assets, entity.ValuedAsset{Symbol: labelOf(t.Symbol), USDValue: v})
		total += v
	}
	return assets, total
}

// SelectTopAssets ranks assets by value and returns the n largest that are worth at least
// dustThreshold, as fractions of the total value of all assets. Dust is skipped without counting
// toward n. When assets remain after n were taken, an "Others" entry carries the remainder.
// No assets, or a zero total, yields an empty allocation.
func SelectTopAssets(assets []entity.ValuedAsset, n int, dustThreshold float64) entity.Allocation {
	out := entity.Allocation{Labels: []string{}, Fractions: []float64{}}
	if len(assets) == 0 || n <= 0 {
		return out
	}

	total := 0.0
	h := ranking.New(len(assets))
	for _, a := range assets {
		h.Insert(a.Symbol, a.USDValue)
		total += a.USDValue
	}
	if total <= 0 {
		return out
	}

	sum := 0.0
	for len(out.Labels) < n {
		it, ok := h.ExtractMax()
		if !ok {
			break
		}
		if it.Value < dustThreshold {
			continue
		}
		f := it.Value / total
		out.Labels = append(out.Labels, it.Label)
		out.Fractions = append(out.Fractions, f)
		sum += f
	}

	if !h.IsEmpty() {
		rest := 1 - sum
		if rest < 0 {
			rest = 0
		}
		out.Labels = append(out.Labels, entity.OthersLabel)
		out.Fractions = append(out.Fractions, rest)
	}
	return out
}

// Serialize freezes holdings and their current prices for a snapshot. Every holding is kept,
// priced at zero when its price is unknown.
func (a *PortfolioAggregator) Serialize(natives []entity.NativeHolding, fts []entity.FungibleTokenBalance, prices port.PriceLookup) ([]entity.SerializedNative, []entity.SerializedFT) {
	fts = a.PrepareTokens(fts)
	sn := make([]entity.SerializedNative, 0, len(natives))
	for _, n := range natives {
		price, _ := prices.NativePrice(n.ChainID)
		sn = append(sn, entity.SerializedNative{
			ChainID: n.ChainID,
			Name:    n.Name,
			Symbol:  labelOf(n.Symbol),
			Balance: n.Balance,
			Price:   price,
		})
	}

	sf := make([]entity.SerializedFT, 0, len(fts))
	for _, t := range fts {
		price, _ := prices.TokenPrice(t.ChainID, t.ContractAddress)
		sf = append(sf, entity.SerializedFT{
			ChainID:      t.ChainID,
			TokenAddress: t.ContractAddress,
			Name:         t.Name,
			Symbol:       t.Symbol,
			Balance:      t.Balance(),
			Price:        price,
		})
	}
	return sn, sf
}

// SnapshotValue is the sum of balance × price over every entry.
func SnapshotValue(natives []entity.SerializedNative, fts []entity.SerializedFT) float64 {
	total := 0.0
	for _, n := range natives {
		total += n.Value()
	}
	for _, t := range fts {
		total += t.Value()
	}
	return total
}

// ValuesFromSnapshot returns the valued assets frozen in a snapshot together with the stored
// portfolio value, which is never recomputed.
func ValuesFromSnapshot(s entity.Snapshot) ([]entity.ValuedAsset, float64) {
	assets := make([]entity.ValuedAsset, 0, len(s.Natives)+len(s.FTs))
	for _, n := range s.Natives {
		assets = append(assets, entity.ValuedAsset{Symbol: labelOf(n.Symbol), USDValue: n.Value()})
	}
	for _, t := range s.FTs {
		assets = append(assets, entity.ValuedAsset{Symbol: labelOf(t.Symbol), USDValue: t.Value()})
	}
	return assets, s.PortfolioValue
}

// MergeDuplicateHoldings sums token holdings sharing (chain, contract), keeping the first
// occurrence's position and metadata.
func MergeDuplicateHoldings(fts []entity.FungibleTokenBalance) []entity.FungibleTokenBalance {
	out := make([]entity.FungibleTokenBalance, 0, len(fts))
	index := make(map[entity.PriceKey]int, len(fts))
	for _, t := range fts {
		key := t.Key()
		if i, ok := index[key]; ok {
			merged := out[i]
			merged.WalletAddress = ""
			merged.AmountRaw = addRaw(merged.AmountRaw, t.AmountRaw)
			merged.PossibleSpam = merged.PossibleSpam && t.PossibleSpam
			out[i] = merged
			continue
		}
		index[key] = len(out)
		out = append(out, t)
	}
	return out
}

func labelOf(symbol string) string {
	if symbol == "" {
		return entity.UnknownSymbol
	}
	return symbol
}

func addRaw(a, b *big.Int) *big.Int {
	sum := new(big.Int)
	if a != nil {
		sum.Add(sum, a)
	}
	if b != nil {
		sum.Add(sum, b)
	}
	return sum
}
