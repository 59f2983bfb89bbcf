package port

import (
	"context"

	"portfolio_tracker/internal/domain/entity"
)

// ReloadReport summarises one completed reload generation.
type ReloadReport struct {
	Generation    uint64                  `json:"generation"`
	Wallets       int                     `json:"wallets"`
	Natives       int                     `json:"natives"`
	FTs           int                     `json:"fts"`
	PricesFetched int                     `json:"pricesFetched"`
	TotalValueUSD float64                 `json:"totalValueUSD"`
	Errors        []entity.PortfolioError `json:"errors"`
}

// PortfolioTracker is the session-level API used by the display surfaces.
type PortfolioTracker interface {
	AddAccount(ctx context.Context, address string) error
	RemoveAccount(ctx context.Context, address string) error
	Accounts() []string

	ToggleNetwork(ctx context.Context, chainID string) (selected bool, err error)
	Networks() []entity.NetworkDefinition
	Catalog() []entity.NetworkDefinition

	SetHideDust(hide bool)

	// Reload starts a new generation and publishes its results unless a newer one started meanwhile.
	Reload(ctx context.Context) (*ReloadReport, error)

	// Portfolio returns the live view for index -1, or the stored snapshot at index.
	Portfolio(ctx context.Context, snapshotIndex int) (*entity.PortfolioView, error)

	SaveSnapshot(ctx context.Context) (entity.Snapshot, error)
	Snapshots(ctx context.Context) ([]entity.Snapshot, error)
}
