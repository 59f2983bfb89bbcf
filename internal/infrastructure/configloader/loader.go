package configloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Balance and price sources.
const (
	SourceMoralis     = "moralis"
	SourceRPC         = "rpc"
	SourceDEXScreener = "dexscreener"
)

// Storage drivers.
const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// EnvPrefix prefixes every environment override, e.g. PORTFOLIO_MORALIS_API_KEY.
const EnvPrefix = "PORTFOLIO"

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port             string   `yaml:"port"`
	ReadTimeout      int      `yaml:"readTimeout"`  // seconds
	WriteTimeout     int      `yaml:"writeTimeout"` // seconds
	IdleTimeout      int      `yaml:"idleTimeout"`  // seconds
	CORSAllowOrigins []string `yaml:"corsAllowOrigins"`
	EnableSwagger    bool     `yaml:"enableSwagger"`
	EnablePprof      bool     `yaml:"enablePprof"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// SourcesConfig selects where balances and prices come from.
type SourcesConfig struct {
	Balances string `yaml:"balances"` // moralis | rpc
	Prices   string `yaml:"prices"`   // moralis | dexscreener
}

// MoralisConfig holds Moralis Web3 Data API settings.
type MoralisConfig struct {
	BaseURL            string `yaml:"baseURL"`
	APIKey             string `yaml:"apiKey"`
	TimeoutSeconds     int    `yaml:"timeoutSeconds"`
	RateLimitPerMinute int    `yaml:"rateLimitPerMinute"`
	MaxRetries         int    `yaml:"maxRetries"`
}

// DEXScreenerConfig holds DEXScreener API specific configurations.
type DEXScreenerConfig struct {
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	MaxTokensPerRequest  int    `yaml:"maxTokensPerRequest"`
}

// RPCConfig configures direct JSON-RPC balance retrieval.
type RPCConfig struct {
	// Endpoints overrides catalog RPC URLs by network identifier; the first URL is primary.
	Endpoints          map[string][]string `yaml:"endpoints"`
	CallTimeoutSeconds int                 `yaml:"callTimeoutSeconds"`
	TokensDir          string              `yaml:"tokensDir"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr               string `yaml:"addr"`
	Password           string `yaml:"password"`
	DB                 int    `yaml:"db"`
	KeyPrefix          string `yaml:"keyPrefix"`
	DialTimeoutSeconds int    `yaml:"dialTimeoutSeconds"`
}

// StorageConfig selects the key/value store for persisted state.
type StorageConfig struct {
	Driver   string      `yaml:"driver"` // file | redis | memory
	FilePath string      `yaml:"filePath"`
	Redis    RedisConfig `yaml:"redis"`
}

// PerformanceConfig holds performance-related configurations.
type PerformanceConfig struct {
	MaxConcurrentWallets int `yaml:"maxConcurrentWallets"`
	MaxConcurrentPrices  int `yaml:"maxConcurrentPrices"`
	ReloadTimeoutSeconds int `yaml:"reloadTimeoutSeconds"`
}

// TrackerConfig holds valuation and display settings.
type TrackerConfig struct {
	TopAssets       int     `yaml:"topAssets"`
	DustThreshold   float64 `yaml:"dustThreshold"`
	MergeDuplicates bool    `yaml:"mergeDuplicates"`
	HideDust        *bool   `yaml:"hideDust"`
	WalletsFile     string  `yaml:"walletsFile"`
}

// HideDustEnabled reports the initial hide-dust setting, on unless disabled explicitly.
func (t TrackerConfig) HideDustEnabled() bool {
	return t.HideDust == nil || *t.HideDust
}

// Config is the top-level configuration structure.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Sources     SourcesConfig     `yaml:"sources"`
	Moralis     MoralisConfig     `yaml:"moralis"`
	DEXScreener DEXScreenerConfig `yaml:"dexScreener"`
	RPC         RPCConfig         `yaml:"rpc"`
	Storage     StorageConfig     `yaml:"storage"`
	Performance PerformanceConfig `yaml:"performance"`
	Tracker     TrackerConfig     `yaml:"tracker"`
}

// envOverrides are read from PORTFOLIO_* variables (or the bare names) after the file.
type envOverrides struct {
	MoralisAPIKey string `envconfig:"MORALIS_API_KEY"`
	ServerPort    string `envconfig:"SERVER_PORT"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	LogLevel      string `envconfig:"LOG_LEVEL"`
	StorageDriver string `envconfig:"STORAGE_DRIVER"`
}

// Load reads the YAML configuration file from the given path, applies defaults and environment
// overrides, and validates the result. A .env file in the working directory is loaded first
// when present.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("Failed to load .env file: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to process environment overrides: %w", err)
	}

	if env.MoralisAPIKey != "" {
		cfg.Moralis.APIKey = env.MoralisAPIKey
	}
	if env.ServerPort != "" {
		logrus.Infof("Server port overridden from environment: %s", env.ServerPort)
		cfg.Server.Port = env.ServerPort
	}
	if env.RedisAddr != "" {
		cfg.Storage.Redis.Addr = env.RedisAddr
	}
	if env.RedisPassword != "" {
		cfg.Storage.Redis.Password = env.RedisPassword
	}
	if env.LogLevel != "" {
		cfg.Logging.Level = env.LogLevel
	}
	if env.StorageDriver != "" {
		logrus.Infof("Storage driver overridden from environment: %s", env.StorageDriver)
		cfg.Storage.Driver = env.StorageDriver
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
		logrus.Infof("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 10
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 120
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = 60
	}
	if len(cfg.Server.CORSAllowOrigins) == 0 {
		cfg.Server.CORSAllowOrigins = []string{"*"}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Sources.Balances == "" {
		cfg.Sources.Balances = SourceMoralis
		logrus.Infof("Sources.Balances not set, defaulting to %s", cfg.Sources.Balances)
	}
	if cfg.Sources.Prices == "" {
		cfg.Sources.Prices = SourceMoralis
		logrus.Infof("Sources.Prices not set, defaulting to %s", cfg.Sources.Prices)
	}

	if cfg.Moralis.BaseURL == "" {
		cfg.Moralis.BaseURL = "https://deep-index.moralis.io"
	}
	if cfg.Moralis.TimeoutSeconds <= 0 {
		cfg.Moralis.TimeoutSeconds = 15
	}
	if cfg.Moralis.RateLimitPerMinute <= 0 {
		cfg.Moralis.RateLimitPerMinute = 1500
	}
	if cfg.Moralis.MaxRetries < 0 {
		cfg.Moralis.MaxRetries = 0
	}

	if cfg.DEXScreener.BaseURL == "" {
		cfg.DEXScreener.BaseURL = "https://api.dexscreener.com"
		logrus.Infof("DEXScreener.BaseURL not set, defaulting to %s", cfg.DEXScreener.BaseURL)
	}
	if cfg.DEXScreener.RequestTimeoutMillis <= 0 {
		cfg.DEXScreener.RequestTimeoutMillis = 10000
		logrus.Infof("DEXScreener.RequestTimeoutMillis not set, defaulting to %d ms", cfg.DEXScreener.RequestTimeoutMillis)
	}
	if cfg.DEXScreener.MaxTokensPerRequest <= 0 {
		cfg.DEXScreener.MaxTokensPerRequest = 30 // DEXScreener limit
	}

	if cfg.RPC.CallTimeoutSeconds <= 0 {
		cfg.RPC.CallTimeoutSeconds = 10
	}
	if cfg.RPC.TokensDir == "" {
		cfg.RPC.TokensDir = "data/tokens"
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageFile
		logrus.Infof("Storage.Driver not set, defaulting to %s", cfg.Storage.Driver)
	}
	if cfg.Storage.FilePath == "" {
		cfg.Storage.FilePath = "data/portfolio.json"
	}
	if cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = "localhost:6379"
	}
	if cfg.Storage.Redis.KeyPrefix == "" {
		cfg.Storage.Redis.KeyPrefix = "portfolio:"
	}
	if cfg.Storage.Redis.DialTimeoutSeconds <= 0 {
		cfg.Storage.Redis.DialTimeoutSeconds = 5
	}

	if cfg.Performance.MaxConcurrentWallets <= 0 {
		cfg.Performance.MaxConcurrentWallets = 10
		logrus.Infof("Performance.MaxConcurrentWallets not set, defaulting to %d", cfg.Performance.MaxConcurrentWallets)
	}
	if cfg.Performance.MaxConcurrentPrices <= 0 {
		cfg.Performance.MaxConcurrentPrices = 8
	}
	if cfg.Performance.ReloadTimeoutSeconds <= 0 {
		cfg.Performance.ReloadTimeoutSeconds = 90
	}

	if cfg.Tracker.TopAssets <= 0 {
		cfg.Tracker.TopAssets = 5
	}
	if cfg.Tracker.DustThreshold <= 0 {
		cfg.Tracker.DustThreshold = 0.01
	}
}

func validate(cfg *Config) error {
	switch cfg.Sources.Balances {
	case SourceMoralis, SourceRPC:
	default:
		return fmt.Errorf("unknown balance source %q", cfg.Sources.Balances)
	}
	switch cfg.Sources.Prices {
	case SourceMoralis, SourceDEXScreener:
	default:
		return fmt.Errorf("unknown price source %q", cfg.Sources.Prices)
	}
	switch cfg.Storage.Driver {
	case StorageFile, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.UsesMoralis() && cfg.Moralis.APIKey == "" {
		logrus.Warnf("Moralis is selected but no API key is configured; set %s_MORALIS_API_KEY", EnvPrefix)
	}
	if _, err := logrus.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging level %q: %w", cfg.Logging.Level, err)
	}
	return nil
}

// UsesMoralis reports whether any source is served by Moralis.
func (c *Config) UsesMoralis() bool {
	return c.Sources.Balances == SourceMoralis || c.Sources.Prices == SourceMoralis
}

// Seconds converts a seconds setting to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
