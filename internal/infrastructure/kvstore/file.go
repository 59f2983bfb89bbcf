// Package kvstore implements port.KeyValueStore on a JSON file, Redis and process memory.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/pkg/metrics"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileStore keeps all keys in one JSON object on disk, rewritten atomically on every Set.
// A file that is not a JSON object is treated as empty and replaced by the next Set.
type FileStore struct {
	path   string
	logger port.Logger
	mu     sync.Mutex
}

// NewFileStore creates a store at path. The file is created on first write.
func NewFileStore(path string, logger port.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{path: path, logger: logger}, nil
}

// Get returns the value stored under key.
func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	data[key] = value

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (s *FileStore) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}
	data := map[string]string{}
	if len(raw) == 0 {
		return data, nil
	}

	var entries map[string]jsoniter.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn("State file is malformed, starting from an empty state", "path", s.path, "error", err)
		metrics.MalformedState.WithLabelValues(filepath.Base(s.path)).Inc()
		return data, nil
	}
	for key, value := range entries {
		// values written by hand as JSON instead of JSON strings are kept as their raw text
		var str string
		if err := json.Unmarshal(value, &str); err == nil {
			data[key] = str
			continue
		}
		data[key] = string(value)
	}
	return data, nil
}
