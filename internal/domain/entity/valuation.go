package entity

// OthersLabel is the label of the bucket that groups everything outside the top assets.
const OthersLabel = "Others"

// UnknownSymbol labels assets without a symbol.
const UnknownSymbol = "Unknown"

// ValuedAsset is a transient (label, USD value) pair fed into ranking.
type ValuedAsset struct {
	Symbol   string  `json:"symbol"`
	USDValue float64 `json:"usdValue"`
}

// Allocation is the top-N summary: parallel slices of labels and portfolio fractions.
type Allocation struct {
	Labels    []string  `json:"labels"`
	Fractions []float64 `json:"fractions"`
}

// Len returns the number of entries.
func (a Allocation) Len() int {
	return len(a.Labels)
}

// HasOthers reports whether the allocation ends with the "Others" bucket.
func (a Allocation) HasOthers() bool {
	return len(a.Labels) > 0 && a.Labels[len(a.Labels)-1] == OthersLabel
}
