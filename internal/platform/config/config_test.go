package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"Venues": {
			"Binance": {"Enabled": true, "Pairs": ["BTCUSDT"], "TakerFee": 0.001}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Aggregator.Capacity)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.001, cfg.Venues["Binance"].TakerFee)
}

func TestLoadRejectsUnknownVenue(t *testing.T) {
	path := writeConfig(t, `{
		"Venues": {"Binanse": {"Enabled": true, "Pairs": ["BTCUSDT"]}}
	}`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsEnabledVenueWithoutPairs(t *testing.T) {
	path := writeConfig(t, `{
		"Venues": {"Kraken": {"Enabled": true}}
	}`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadValidatesBookFeeds(t *testing.T) {
	path := writeConfig(t, `{
		"BookFeeds": [{"Venue": "Binance", "Pair": ""}]
	}`)
	_, err := Load(path)
	assert.Error(t, err)

	path = writeConfig(t, `{
		"BookFeeds": [{"Venue": "Nope", "Pair": "BTCUSDT"}]
	}`)
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `{
		"Venues": {
			"Coinbase": {"Enabled": true, "Pairs": ["BTC-USD"], "TakerFee": 0.006},
			"CoinGecko": {"Enabled": true, "Pairs": ["bitcoin/usd"], "PollIntervalMs": 15000}
		},
		"Aggregator": {"Capacity": 256},
		"BookFeeds": [{"Venue": "Coinbase", "Pair": "BTC-USD", "Depth": 50}],
		"Arbitrage": {"MinNetEdge": 0.002},
		"Database": {"Path": "signals.db"},
		"Server": {"Port": 9090},
		"Log": {"Level": "debug", "Console": true}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Aggregator.Capacity)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 15000, cfg.Venues["CoinGecko"].PollIntervalMs)
	require.Len(t, cfg.BookFeeds, 1)
	assert.Equal(t, 50, cfg.BookFeeds[0].Depth)
	assert.Equal(t, 0.002, cfg.Arbitrage.MinNetEdge)
	assert.Equal(t, "signals.db", cfg.Database.Path)
	assert.True(t, cfg.Log.Console)
}
