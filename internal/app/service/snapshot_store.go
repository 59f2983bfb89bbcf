package service

import (
	"context"
	"fmt"
	"sync"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/metrics"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Persisted state keys.
const (
	SnapshotsKey = "snapshots"
	AccountsKey  = "accounts"
	ChainsKey    = "chains"
)

// SnapshotStore keeps the append-only snapshot sequence as one JSON array under SnapshotsKey.
type SnapshotStore struct {
	store  port.KeyValueStore
	logger port.Logger
	mu     sync.Mutex
}

// NewSnapshotStore creates a SnapshotStore on top of a key/value store.
func NewSnapshotStore(store port.KeyValueStore, logger port.Logger) *SnapshotStore {
	return &SnapshotStore{store: store, logger: logger}
}

// Append adds s to the end of the sequence. Appends are serialized; the whole sequence is
// read, extended and written back.
func (s *SnapshotStore) Append(ctx context.Context, snap entity.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	list = append(list, snap)

	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to encode snapshots: %w", err)
	}
	if err := s.store.Set(ctx, SnapshotsKey, string(raw)); err != nil {
		return fmt.Errorf("failed to persist snapshots: %w", err)
	}
	return nil
}

// List returns every stored snapshot in insertion order.
func (s *SnapshotStore) List(ctx context.Context) ([]entity.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Select returns the snapshot at index, or ErrIndexOutOfRange outside [0, len).
func (s *SnapshotStore) Select(ctx context.Context, index int) (entity.Snapshot, error) {
	list, err := s.List(ctx)
	if err != nil {
		return entity.Snapshot{}, err
	}
	if index < 0 || index >= len(list) {
		return entity.Snapshot{}, fmt.Errorf("%w: %d not in [0, %d)", entity.ErrIndexOutOfRange, index, len(list))
	}
	return list[index], nil
}

// load decodes the stored sequence. A blob that is not a JSON array yields an empty sequence;
// entries that do not decode as snapshots are skipped.
func (s *SnapshotStore) load(ctx context.Context) ([]entity.Snapshot, error) {
	raw, ok, err := s.store.Get(ctx, SnapshotsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}
	if !ok || raw == "" {
		return []entity.Snapshot{}, nil
	}

	var items []jsoniter.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn("Stored snapshots are malformed, starting from an empty list", "error", err)
		metrics.MalformedState.WithLabelValues(SnapshotsKey).Inc()
		return []entity.Snapshot{}, nil
	}

	list := make([]entity.Snapshot, 0, len(items))
	for i, item := range items {
		var snap entity.Snapshot
		if err := json.Unmarshal(item, &snap); err != nil {
			s.logger.Warn("Skipping malformed snapshot entry", "index", i, "error", err)
			metrics.MalformedState.WithLabelValues(SnapshotsKey).Inc()
			continue
		}
		list = append(list, snap)
	}
	return list, nil
}
