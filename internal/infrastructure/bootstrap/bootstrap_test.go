package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/pkg/logger"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	dir := t.TempDir()
	wallets := filepath.Join(dir, "wallets.txt")
	if err := os.WriteFile(wallets, []byte("# seed\n0x1111111111111111111111111111111111111111\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cfg  configloader.Config
	}{
		{
			name: "rpc, dexscreener, file",
			cfg: configloader.Config{
				Sources: configloader.SourcesConfig{Balances: configloader.SourceRPC, Prices: configloader.SourceDEXScreener},
				Storage: configloader.StorageConfig{Driver: configloader.StorageFile, FilePath: filepath.Join(dir, "state.json")},
				Tracker: configloader.TrackerConfig{WalletsFile: wallets},
			},
		},
		{
			name: "moralis, memory",
			cfg: configloader.Config{
				Sources: configloader.SourcesConfig{Balances: configloader.SourceMoralis, Prices: configloader.SourceMoralis},
				Moralis: configloader.MoralisConfig{BaseURL: "http://127.0.0.1:1", APIKey: "k", TimeoutSeconds: 1},
				Storage: configloader.StorageConfig{Driver: configloader.StorageMemory},
				Tracker: configloader.TrackerConfig{WalletsFile: wallets},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := New(context.Background(), &tt.cfg, zap.NewNop(), logger.NewSlogAdapter())
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer app.Close()

			if got := app.Tracker.Accounts(); len(got) != 1 {
				t.Errorf("Accounts() = %v, want the seeded account", got)
			}
			if len(app.Tracker.Catalog()) != 6 {
				t.Errorf("Catalog() = %d networks, want 6", len(app.Tracker.Catalog()))
			}
		})
	}
}

func TestNew_MalformedStateFile(t *testing.T) {
	dir := t.TempDir()
	wallets := filepath.Join(dir, "wallets.txt")
	if err := os.WriteFile(wallets, []byte("0x1111111111111111111111111111111111111111\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		state string
		want  string
	}{
		{name: "garbage falls back to seeds", state: "{not json", want: "0x1111111111111111111111111111111111111111"},
		{name: "hand-written list is restored", state: `{"accounts": ["0x2222222222222222222222222222222222222222"]}`, want: "0x2222222222222222222222222222222222222222"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statePath := filepath.Join(t.TempDir(), "state.json")
			if err := os.WriteFile(statePath, []byte(tt.state), 0o644); err != nil {
				t.Fatal(err)
			}
			cfg := configloader.Config{
				Sources: configloader.SourcesConfig{Balances: configloader.SourceRPC, Prices: configloader.SourceDEXScreener},
				Storage: configloader.StorageConfig{Driver: configloader.StorageFile, FilePath: statePath},
				Tracker: configloader.TrackerConfig{WalletsFile: wallets},
			}

			app, err := New(context.Background(), &cfg, zap.NewNop(), logger.NewSlogAdapter())
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer app.Close()

			if got := app.Tracker.Accounts(); len(got) != 1 || got[0] != tt.want {
				t.Errorf("Accounts() = %v, want [%s]", got, tt.want)
			}
		})
	}
}
