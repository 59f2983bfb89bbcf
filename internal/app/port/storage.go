package port

import "context"

// KeyValueStore persists string values under string keys.
type KeyValueStore interface {
	// Get returns the value and true, or "" and false when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// AccountSeedProvider supplies initial accounts when nothing is persisted yet.
type AccountSeedProvider interface {
	GetAccounts() ([]string, error)
}
