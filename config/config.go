package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken     string
	DiscordChannelID string

	// Database configuration
	DatabaseURL string

	// Casino configuration
	StartingBalance  int64
	DailyGrantAmount int64
	HouseSeed        string // hex seed for the shared round draw stream

	// Session configuration
	SessionTimeout time.Duration // idle time before a pending game forfeits

	// Round configuration
	RoundBettingWindow  time.Duration
	RoundUpdateInterval time.Duration

	// Cashback configuration
	RakebackPercent float64
	RakebackMinimum int64
	LossbackPercent float64
	LossbackMinimum int64

	// Settings cache
	SettingsCacheTTL time.Duration

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
		// Discord
		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Casino settings with defaults
		StartingBalance:  1000,
		DailyGrantAmount: 100,
		HouseSeed:        os.Getenv("HOUSE_SEED"),

		// Session
		SessionTimeout: 10 * time.Minute,

		// Rounds
		RoundBettingWindow:  30 * time.Second,
		RoundUpdateInterval: 5 * time.Second,

		// Cashback
		RakebackPercent: 0.05,
		RakebackMinimum: 10,
		LossbackPercent: 0.10,
		LossbackMinimum: 10,

		// Settings cache
		SettingsCacheTTL: time.Minute,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if balance := os.Getenv("STARTING_BALANCE"); balance != "" {
		if parsed, err := strconv.ParseInt(balance, 10, 64); err == nil {
			config.StartingBalance = parsed
		}
	}
	if grant := os.Getenv("DAILY_GRANT_AMOUNT"); grant != "" {
		if parsed, err := strconv.ParseInt(grant, 10, 64); err == nil {
			config.DailyGrantAmount = parsed
		}
	}
	if timeout := os.Getenv("SESSION_TIMEOUT"); timeout != "" {
		if parsed, err := time.ParseDuration(timeout); err == nil {
			config.SessionTimeout = parsed
		}
	}
	if window := os.Getenv("ROUND_BETTING_WINDOW"); window != "" {
		if parsed, err := time.ParseDuration(window); err == nil {
			config.RoundBettingWindow = parsed
		}
	}
	if interval := os.Getenv("ROUND_UPDATE_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil {
			config.RoundUpdateInterval = parsed
		}
	}
	if ttl := os.Getenv("SETTINGS_CACHE_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil {
			config.SettingsCacheTTL = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.HouseSeed == "" {
			return nil, fmt.Errorf("HOUSE_SEED is required")
		}
	}

	return config, nil
}
