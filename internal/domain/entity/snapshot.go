package entity

// SerializedNative is a frozen native holding inside a snapshot.
type SerializedNative struct {
	ChainID string  `json:"chainId"`
	Name    string  `json:"name,omitempty"`
	Symbol  string  `json:"symbol,omitempty"`
	Balance float64 `json:"balance"`
	Price   float64 `json:"price"`
}

// Value returns balance × price.
func (n SerializedNative) Value() float64 { return n.Balance * n.Price }

// SerializedFT is a frozen fungible token holding inside a snapshot.
type SerializedFT struct {
	ChainID      string  `json:"chainId,omitempty"`
	TokenAddress string  `json:"tokenAddress,omitempty"`
	Name         string  `json:"name,omitempty"`
	Symbol       string  `json:"symbol,omitempty"`
	Balance      float64 `json:"balance"`
	Price        float64 `json:"price"`
}

// Value returns balance × price.
func (t SerializedFT) Value() float64 { return t.Balance * t.Price }

// Snapshot is an immutable point-in-time valuation of the portfolio.
// PortfolioValue is fixed at creation and never recomputed.
type Snapshot struct {
	Timestamp      int64              `json:"timestamp"` // unix millis
	Natives        []SerializedNative `json:"natives"`
	FTs            []SerializedFT     `json:"fts"`
	PortfolioValue float64            `json:"portfolioValue"`
}
