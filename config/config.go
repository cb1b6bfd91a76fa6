package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// HTTP configuration
	Port string

	// Ledger configuration
	StartingBalance int64   // points granted on first authentication
	MinimumStake    int64   // smallest bet accepted at the boundary
	PlacementFee    float64 // base fraction of each stake retained by the platform
	TradingFee      float64 // additional fraction layered on by the HTTP boundary
	CreationFee     int64   // flat points charge for creating a market

	// Wallet addresses authorized to resolve markets
	ResolverWallets []string

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        os.Getenv("PORT"),

		// Ledger settings with defaults
		StartingBalance: 10000,
		MinimumStake:    50,
		PlacementFee:    0.01,
		TradingFee:      0.02,
		CreationFee:     500,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if config.Port == "" {
		config.Port = "8080"
	}

	// Override defaults if environment variables are set
	if balance := os.Getenv("STARTING_BALANCE"); balance != "" {
		if parsed, err := strconv.ParseInt(balance, 10, 64); err == nil {
			config.StartingBalance = parsed
		}
	}
	if stake := os.Getenv("MINIMUM_STAKE"); stake != "" {
		if parsed, err := strconv.ParseInt(stake, 10, 64); err == nil {
			config.MinimumStake = parsed
		}
	}
	if fee := os.Getenv("PLACEMENT_FEE"); fee != "" {
		if parsed, err := strconv.ParseFloat(fee, 64); err == nil {
			config.PlacementFee = parsed
		}
	}
	if fee := os.Getenv("TRADING_FEE"); fee != "" {
		if parsed, err := strconv.ParseFloat(fee, 64); err == nil {
			config.TradingFee = parsed
		}
	}
	if fee := os.Getenv("CREATION_FEE"); fee != "" {
		if parsed, err := strconv.ParseInt(fee, 10, 64); err == nil {
			config.CreationFee = parsed
		}
	}

	// Parse resolver wallet addresses
	if resolvers := os.Getenv("RESOLVER_WALLETS"); resolvers != "" {
		for _, addr := range strings.Split(resolvers, ",") {
			addr = strings.TrimSpace(addr)
			if addr != "" {
				config.ResolverWallets = append(config.ResolverWallets, addr)
			}
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
