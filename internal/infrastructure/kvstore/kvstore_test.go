package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/pkg/logger"
)

func exerciseStore(t *testing.T, s port.KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "accounts"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}
	if err := s.Set(ctx, "accounts", `["0xabc"]`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "chains", `["0x1"]`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "accounts", `[]`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	v, ok, err := s.Get(ctx, "accounts")
	if err != nil || !ok || v != `[]` {
		t.Errorf("Get(accounts) = %q, %v, %v", v, ok, err)
	}
	v, ok, err = s.Get(ctx, "chains")
	if err != nil || !ok || v != `["0x1"]` {
		t.Errorf("Get(chains) = %q, %v, %v", v, ok, err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "portfolio.json")
	s, err := NewFileStore(path, logger.NewSlogAdapter())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	exerciseStore(t, s)

	// a second store on the same file sees the persisted values
	reopened, _ := NewFileStore(path, logger.NewSlogAdapter())
	v, ok, err := reopened.Get(context.Background(), "chains")
	if err != nil || !ok || v != `["0x1"]` {
		t.Errorf("reopened Get(chains) = %q, %v, %v", v, ok, err)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]string // expected Get results before any Set
	}{
		{name: "not json", content: "{not json", want: map[string]string{"accounts": ""}},
		{name: "not an object", content: `["0xabc"]`, want: map[string]string{"accounts": ""}},
		{
			name:    "raw json values",
			content: `{"accounts": ["0x1111111111111111111111111111111111111111"], "chains": "[\"0x89\"]"}`,
			want: map[string]string{
				"accounts": `["0x1111111111111111111111111111111111111111"]`,
				"chains":   `["0x89"]`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "portfolio.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			s, _ := NewFileStore(path, logger.NewSlogAdapter())

			for key, want := range tt.want {
				got, ok, err := s.Get(ctx, key)
				if err != nil {
					t.Fatalf("Get(%s) error = %v", key, err)
				}
				if ok != (want != "") || got != want {
					t.Errorf("Get(%s) = %q, %v, want %q", key, got, ok, want)
				}
			}

			if err := s.Set(ctx, "snapshots", `[]`); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			reopened, _ := NewFileStore(path, logger.NewSlogAdapter())
			if v, ok, err := reopened.Get(ctx, "snapshots"); err != nil || !ok || v != `[]` {
				t.Errorf("Get(snapshots) after rewrite = %q, %v, %v", v, ok, err)
			}
		})
	}
}

func TestRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisStore(ctx, RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}); err == nil {
		t.Error("NewRedisStore() expected error for unreachable server")
	}
}
