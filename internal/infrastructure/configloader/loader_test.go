package configloader

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  enableSwagger: true\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8080" || !cfg.Server.EnableSwagger {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Sources.Balances != SourceMoralis || cfg.Sources.Prices != SourceMoralis {
		t.Errorf("Sources = %+v", cfg.Sources)
	}
	if cfg.Storage.Driver != StorageFile || cfg.Storage.FilePath != "data/portfolio.json" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Tracker.TopAssets != 5 || cfg.Tracker.DustThreshold != 0.01 || !cfg.Tracker.HideDustEnabled() {
		t.Errorf("Tracker = %+v", cfg.Tracker)
	}
	if cfg.DEXScreener.MaxTokensPerRequest != 30 {
		t.Errorf("DEXScreener = %+v", cfg.DEXScreener)
	}
}

func TestLoad_FileValues(t *testing.T) {
	body := `
sources:
  balances: rpc
  prices: dexscreener
rpc:
  endpoints:
    ethereum: ["https://a.example", "https://b.example"]
storage:
  driver: redis
  redis:
    addr: redis:6379
tracker:
  topAssets: 3
  hideDust: false
  mergeDuplicates: true
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sources.Balances != SourceRPC || cfg.Sources.Prices != SourceDEXScreener {
		t.Errorf("Sources = %+v", cfg.Sources)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(cfg.RPC.Endpoints["ethereum"], want) {
		t.Errorf("RPC.Endpoints = %v", cfg.RPC.Endpoints)
	}
	if cfg.Storage.Driver != StorageRedis || cfg.Storage.Redis.Addr != "redis:6379" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Tracker.TopAssets != 3 || cfg.Tracker.HideDustEnabled() || !cfg.Tracker.MergeDuplicates {
		t.Errorf("Tracker = %+v", cfg.Tracker)
	}
	if cfg.UsesMoralis() {
		t.Error("UsesMoralis() = true with rpc and dexscreener sources")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORTFOLIO_MORALIS_API_KEY", "secret")
	t.Setenv("PORTFOLIO_SERVER_PORT", "9090")
	t.Setenv("PORTFOLIO_STORAGE_DRIVER", "memory")
	t.Setenv("PORTFOLIO_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "server:\n  port: \"8081\"\nmoralis:\n  apiKey: from-file\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Moralis.APIKey != "secret" || cfg.Server.Port != "9090" {
		t.Errorf("overrides not applied: key %q port %q", cfg.Moralis.APIKey, cfg.Server.Port)
	}
	if cfg.Storage.Driver != StorageMemory || cfg.Logging.Level != "debug" {
		t.Errorf("Storage.Driver = %q, Logging.Level = %q", cfg.Storage.Driver, cfg.Logging.Level)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad yaml", body: "server: [\n"},
		{name: "unknown balance source", body: "sources:\n  balances: etherscan\n"},
		{name: "unknown price source", body: "sources:\n  prices: coingecko\n"},
		{name: "unknown storage driver", body: "storage:\n  driver: sqlite\n"},
		{name: "bad log level", body: "logging:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Load() error = nil")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("Load(missing) error = nil")
	}
}
