package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix     = "MC"
	ConfigPathEnv = "MC_CONFIG"
)

// Config holds everything the drivers need, the engine itself reads none of it
type Config struct {
	Server     ServerConfig     `yaml:"server" split_words:"true"`
	Database   DatabaseConfig   `yaml:"database" split_words:"true"`
	MarketData MarketDataConfig `yaml:"market_data" split_words:"true"`
	Simulation SimulationConfig `yaml:"simulation" split_words:"true"`
	Sync       SyncConfig       `yaml:"sync" split_words:"true"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	AllowedOrigins  []string      `yaml:"allowed_origins" split_words:"true"`
}

// DatabaseConfig is optional, without a url forecasts run straight off the market data provider
type DatabaseConfig struct {
	URL      string `yaml:"url" envconfig:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns" split_words:"true"`
	MinConns int32  `yaml:"min_conns" split_words:"true"`
}

type MarketDataConfig struct {
	Host              string        `yaml:"host" split_words:"true"`
	APIKey            string        `yaml:"api_key" envconfig:"COINGECKO_API_KEY"`
	APIKeyHeader      string        `yaml:"api_key_header" split_words:"true"`
	Timeout           time.Duration `yaml:"timeout" split_words:"true"`
	RequestsPerSecond float64       `yaml:"requests_per_second" split_words:"true"`
	Burst             int           `yaml:"burst" split_words:"true"`
	VsCurrency        string        `yaml:"vs_currency" split_words:"true"`
	HistoryStart      string        `yaml:"history_start" split_words:"true"` // YYYY-MM-DD
}

type SimulationConfig struct {
	Simulations int     `yaml:"simulations" split_words:"true"`
	Steps       int     `yaml:"steps" split_words:"true"`
	Start       float64 `yaml:"start" split_words:"true"`
	Workers     int     `yaml:"workers" split_words:"true"`
	BatchSize   int     `yaml:"batch_size" split_words:"true"`
}

type SyncConfig struct {
	Cron            string        `yaml:"cron" split_words:"true"`
	Coins           []string      `yaml:"coins" split_words:"true"`
	RefreshInterval time.Duration `yaml:"refresh_interval" split_words:"true"`
}

// Load reads .env, then the optional yaml file (MC_CONFIG), then environment overrides, then fills defaults.
// Environment variables only win when they are actually set. Keys are MC_<SECTION>_<FIELD>, only
// DATABASE_URL and COINGECKO_API_KEY are also read without the prefix.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not loaded: %v", err)
	}

	cfg := &Config{}
	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("config file %s not found, using env and defaults", path)
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Server.Addr, ":8080")
	setDefault(&c.Server.ReadTimeout, 10*time.Second)
	setDefault(&c.Server.WriteTimeout, 60*time.Second)
	setDefault(&c.Server.ShutdownTimeout, 10*time.Second)
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}

	setDefault(&c.Database.MaxConns, 10)
	setDefault(&c.Database.MinConns, 2)

	setDefault(&c.MarketData.Host, "api.coingecko.com")
	setDefault(&c.MarketData.APIKeyHeader, "x-cg-demo-api-key")
	setDefault(&c.MarketData.Timeout, 30*time.Second)
	setDefault(&c.MarketData.RequestsPerSecond, 0.5) // public tier is roughly 30 calls a minute
	setDefault(&c.MarketData.Burst, 1)
	setDefault(&c.MarketData.VsCurrency, "usd")
	setDefault(&c.MarketData.HistoryStart, "2022-11-01")

	setDefault(&c.Simulation.Simulations, 1000)
	setDefault(&c.Simulation.Steps, 7)
	setDefault(&c.Simulation.Start, 1.0)
	setDefault(&c.Simulation.Workers, 8)
	setDefault(&c.Simulation.BatchSize, 10_000)

	setDefault(&c.Sync.Cron, "0 15 0 * * *")
	setDefault(&c.Sync.RefreshInterval, 24*time.Hour)
}

// Validate catches values that would only blow up later, deep in a request
func (c *Config) Validate() error {
	if _, err := c.MarketData.HistoryStartDate(); err != nil {
		return err
	}
	if c.MarketData.RequestsPerSecond <= 0 {
		return fmt.Errorf("market data requests per second must be positive, got %v", c.MarketData.RequestsPerSecond)
	}
	if c.Simulation.Simulations < 1 || c.Simulation.Steps < 1 {
		return fmt.Errorf("simulation defaults need at least 1 simulation and 1 step, got %d and %d", c.Simulation.Simulations, c.Simulation.Steps)
	}
	return nil
}

// HistoryStartDate parses HistoryStart as a UTC date
func (mdc MarketDataConfig) HistoryStartDate() (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, mdc.HistoryStart, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid history start %q: %w", mdc.HistoryStart, err)
	}
	return t, nil
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
