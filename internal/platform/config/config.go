package config

import (
	"encoding/json"
	"fmt"
	"os"

	"crypto-market-pipeline/internal/domain"
)

// VenueConfig holds one venue's subscription parameters. Pairs are in the
// venue's native symbol format (BTCUSDT, BTC-USD, XBT/USD, bitcoin/usd).
type VenueConfig struct {
	Enabled        bool
	Pairs          []string
	TakerFee       float64
	PollIntervalMs int // REST pollers only
}

type BookFeedConfig struct {
	Venue string
	Pair  string
	Depth int
}

type Config struct {
	Venues map[string]VenueConfig

	Aggregator struct {
		Capacity int
	}

	BookFeeds []BookFeedConfig

	Arbitrage struct {
		MinNetEdge float64
	}

	Database struct {
		Path string
	}

	Discord struct {
		WebhookUrl string
	}

	Server struct {
		Port int
	}

	Log struct {
		Level   string
		Dir     string
		Console bool
	}
}

// Load reads the configuration file once, on behalf of the process entry
// point. There is no ambient getter; callers pass the result down.
func Load(path string) (*Config, error) {
	configBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var config Config
	if err := json.Unmarshal(configBytes, &config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	if config.Aggregator.Capacity <= 0 {
		config.Aggregator.Capacity = 1024
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	return &config, nil
}

func (c *Config) validate() error {
	for name, venue := range c.Venues {
		if _, err := domain.ParseVenue(name); err != nil {
			return fmt.Errorf("config venue %q: %w", name, err)
		}
		if venue.Enabled && len(venue.Pairs) == 0 {
			return fmt.Errorf("config venue %q enabled with no pairs", name)
		}
	}
	for _, feed := range c.BookFeeds {
		if _, err := domain.ParseVenue(feed.Venue); err != nil {
			return fmt.Errorf("config book feed: %w", err)
		}
		if feed.Pair == "" {
			return fmt.Errorf("config book feed for %s has no pair", feed.Venue)
		}
	}
	return nil
}
