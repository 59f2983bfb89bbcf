package entity

// Wallet is one tracked account on one selected network.
type Wallet struct {
	Address string `json:"address"`
	ChainID string `json:"chainId"`
}

// AssetRow is one line of the asset list shown to the user.
type AssetRow struct {
	ChainID        string  `json:"chainId,omitempty"`
	TokenAddress   string  `json:"tokenAddress,omitempty"`
	Name           string  `json:"name,omitempty"`
	Symbol         string  `json:"symbol,omitempty"`
	IsNative       bool    `json:"isNative"`
	Balance        float64 `json:"balance"`
	BalanceDisplay string  `json:"balanceDisplay"`
	PriceUSD       float64 `json:"priceUSD"`
	PriceDisplay   string  `json:"priceDisplay"`
	ValueUSD       float64 `json:"valueUSD"`
	ValueDisplay   string  `json:"valueDisplay"`
}

// PortfolioView is either the live portfolio or a stored snapshot, ready for display.
type PortfolioView struct {
	Source          string     `json:"source"` // "live" or "snapshot"
	SnapshotIndex   int        `json:"snapshotIndex"`
	Timestamp       int64      `json:"timestamp,omitempty"`
	Generation      uint64     `json:"generation"`
	Natives         []AssetRow `json:"natives"`
	FTs             []AssetRow `json:"fts"`
	TotalValueUSD   float64    `json:"totalValueUSD"`
	TotalDisplay    string     `json:"totalDisplay"`
	Allocation      Allocation `json:"allocation"`
	HideDust        bool       `json:"hideDust"`
	HiddenRowsCount int        `json:"hiddenRowsCount"`
}

// Sources of a PortfolioView.
const (
	ViewSourceLive     = "live"
	ViewSourceSnapshot = "snapshot"
)

// LiveSnapshotIndex selects the live portfolio instead of a stored snapshot.
const LiveSnapshotIndex = -1
