package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "api.coingecko.com", cfg.MarketData.Host)
	assert.Equal(t, "usd", cfg.MarketData.VsCurrency)
	assert.Equal(t, 1000, cfg.Simulation.Simulations)
	assert.Equal(t, 7, cfg.Simulation.Steps)
	assert.Equal(t, 1.0, cfg.Simulation.Start)
	assert.Equal(t, 24*time.Hour, cfg.Sync.RefreshInterval)

	start, err := cfg.MarketData.HistoryStartDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, time.November, 1, 0, 0, 0, 0, time.UTC), start)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
simulation:
  simulations: 5000
  steps: 30
market_data:
  vs_currency: eur
sync:
  coins: [bitcoin, ethereum]
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv(ConfigPathEnv, path)
	t.Setenv("MC_SIMULATION_STEPS", "14")
	t.Setenv("DATABASE_URL", "postgres://mc:mc@localhost:5432/mc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Simulation.Simulations, "file value kept")
	assert.Equal(t, 14, cfg.Simulation.Steps, "env wins over file")
	assert.Equal(t, "eur", cfg.MarketData.VsCurrency)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, cfg.Sync.Coins)
	assert.Equal(t, "postgres://mc:mc@localhost:5432/mc", cfg.Database.URL, "unprefixed DATABASE_URL is honoured")
}

func TestLoadRejectsBadHistoryStart(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")
	t.Setenv("MC_MARKET_DATA_HISTORY_START", "november")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	t.Setenv(ConfigPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Simulation.Steps)
}
