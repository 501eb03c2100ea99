package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Market source names accepted in MARKET_SOURCES.
const (
	SourcePolymarket = "polymarket"
	SourceKalshi     = "kalshi"
	SourcePostgres   = "postgres"
	SourceDemo       = "demo"
)

// Dedup backends accepted in ALERT_DEDUP_BACKEND.
const (
	DedupMemory = "memory"
	DedupRedis  = "redis"
)

// Scan interval bounds.
const (
	MinScanInterval = 5 * time.Second
	MaxScanInterval = 300 * time.Second
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel    string
	HTTPPort    string
	HTTPEnabled bool

	// Scanning
	MarketSources    []string
	MarketLimit      int
	ScanInterval     time.Duration
	ScanErrorBackoff time.Duration

	// Detection thresholds (fractions, 0.02 = 2%)
	MinInternalProfit      decimal.Decimal
	MinCrossPlatformProfit decimal.Decimal
	MinHedgingProfit       decimal.Decimal
	HedgingEnabled         bool
	MatchingConfigPath     string
	// ValidateResolution drops cross-platform pairs whose resolution rules
	// disagree.
	ValidateResolution bool

	// Alerts
	MaxAlertsPerBatch  int
	ConsoleAlerts      bool
	DiscordWebhookURL  string
	TelegramBotToken   string
	TelegramChatID     string
	AlertDedupBackend  string
	AlertDedupTTL      time.Duration
	AlertDedupCapacity int64
	RedisAddr          string
	RedisPassword      string
	RedisDB            int

	// Venues
	PolymarketGammaURL string
	KalshiAPIURL       string
	KalshiAPIKey       string
	BinanceOptionsURL  string
	BinanceAPIKey      string
	VenueRateLimit     float64
	VenueHTTPTimeout   time.Duration

	// Postgres market source
	PostgresHost        string
	PostgresPort        string
	PostgresUser        string
	PostgresPass        string
	PostgresDB          string
	PostgresSSL         string
	PostgresMarketVenue string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort:    getEnvOrDefault("HTTP_PORT", "8080"),
		HTTPEnabled: getBoolOrDefault("HTTP_ENABLED", true),

		// Scanning defaults
		MarketSources:    getListOrDefault("MARKET_SOURCES", []string{SourcePolymarket, SourceKalshi}),
		MarketLimit:      getIntOrDefault("MARKET_LIMIT", 100),
		ScanInterval:     getDurationOrDefault("SCAN_INTERVAL", 30*time.Second),
		ScanErrorBackoff: getDurationOrDefault("SCAN_ERROR_BACKOFF", 10*time.Second),

		// Detection defaults
		MinInternalProfit:      getDecimalOrDefault("MIN_INTERNAL_ARB_PROFIT", "0.005"),
		MinCrossPlatformProfit: getDecimalOrDefault("MIN_CROSS_PLATFORM_ARB_PROFIT", "0.02"),
		MinHedgingProfit:       getDecimalOrDefault("MIN_HEDGING_ARB_PROFIT", "0.03"),
		HedgingEnabled:         getBoolOrDefault("HEDGING_ENABLED", true),
		MatchingConfigPath:     os.Getenv("MATCHING_CONFIG_PATH"),
		ValidateResolution:     getBoolOrDefault("CROSS_PLATFORM_VALIDATE_RESOLUTION", false),

		// Alert defaults
		MaxAlertsPerBatch:  getIntOrDefault("MAX_ALERTS_PER_BATCH", 5),
		ConsoleAlerts:      getBoolOrDefault("CONSOLE_ALERTS", true),
		DiscordWebhookURL:  os.Getenv("DISCORD_WEBHOOK_URL"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:     os.Getenv("TELEGRAM_CHAT_ID"),
		AlertDedupBackend:  getEnvOrDefault("ALERT_DEDUP_BACKEND", DedupMemory),
		AlertDedupTTL:      getDurationOrDefault("ALERT_DEDUP_TTL", 24*time.Hour),
		AlertDedupCapacity: int64(getIntOrDefault("ALERT_DEDUP_CAPACITY", 10000)),
		RedisAddr:          getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getIntOrDefault("REDIS_DB", 0),

		// Venue defaults
		PolymarketGammaURL: getEnvOrDefault("POLYMARKET_GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		KalshiAPIURL:       getEnvOrDefault("KALSHI_API_URL", "https://api.elections.kalshi.com/trade-api/v2"),
		KalshiAPIKey:       os.Getenv("KALSHI_API_KEY"),
		BinanceOptionsURL:  getEnvOrDefault("BINANCE_OPTIONS_API_URL", "https://eapi.binance.com"),
		BinanceAPIKey:      os.Getenv("BINANCE_API_KEY"),
		VenueRateLimit:     getFloat64OrDefault("VENUE_RATE_LIMIT", 5),
		VenueHTTPTimeout:   getDurationOrDefault("VENUE_HTTP_TIMEOUT", 30*time.Second),

		// Postgres defaults
		PostgresHost:        getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:        getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser:        getEnvOrDefault("POSTGRES_USER", "aubit"),
		PostgresPass:        getEnvOrDefault("POSTGRES_PASSWORD", "aubit"),
		PostgresDB:          getEnvOrDefault("POSTGRES_DB", "aubit_poly"),
		PostgresSSL:         getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		PostgresMarketVenue: getEnvOrDefault("POSTGRES_MARKET_VENUE", SourcePolymarket),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPEnabled && c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if len(c.MarketSources) == 0 {
		return fmt.Errorf("MARKET_SOURCES cannot be empty")
	}
	for _, s := range c.MarketSources {
		if !slices.Contains([]string{SourcePolymarket, SourceKalshi, SourcePostgres, SourceDemo}, s) {
			return fmt.Errorf("MARKET_SOURCES contains unknown source %q", s)
		}
	}

	if c.MarketLimit <= 0 {
		return fmt.Errorf("MARKET_LIMIT must be positive, got %d", c.MarketLimit)
	}

	if c.ScanInterval < MinScanInterval || c.ScanInterval > MaxScanInterval {
		return fmt.Errorf("SCAN_INTERVAL must be between %s and %s, got %s", MinScanInterval, MaxScanInterval, c.ScanInterval)
	}

	if c.ScanErrorBackoff <= 0 {
		return fmt.Errorf("SCAN_ERROR_BACKOFF must be positive, got %s", c.ScanErrorBackoff)
	}

	thresholds := map[string]decimal.Decimal{
		"MIN_INTERNAL_ARB_PROFIT":       c.MinInternalProfit,
		"MIN_CROSS_PLATFORM_ARB_PROFIT": c.MinCrossPlatformProfit,
		"MIN_HEDGING_ARB_PROFIT":        c.MinHedgingProfit,
	}
	for key, v := range thresholds {
		if v.IsNegative() || v.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("%s must be in [0, 1), got %s", key, v)
		}
	}

	if c.MaxAlertsPerBatch <= 0 {
		return fmt.Errorf("MAX_ALERTS_PER_BATCH must be positive, got %d", c.MaxAlertsPerBatch)
	}

	if c.AlertDedupBackend != DedupMemory && c.AlertDedupBackend != DedupRedis {
		return fmt.Errorf("ALERT_DEDUP_BACKEND must be 'memory' or 'redis', got %q", c.AlertDedupBackend)
	}

	if c.AlertDedupBackend == DedupRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR cannot be empty with the redis dedup backend")
	}

	if c.AlertDedupTTL <= 0 {
		return fmt.Errorf("ALERT_DEDUP_TTL must be positive, got %s", c.AlertDedupTTL)
	}

	if (c.TelegramBotToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	if c.VenueRateLimit < 0 {
		return fmt.Errorf("VENUE_RATE_LIMIT cannot be negative, got %f", c.VenueRateLimit)
	}

	return nil
}

// HasSource reports whether name is one of the configured market sources.
func (c *Config) HasSource(name string) bool {
	return slices.Contains(c.MarketSources, name)
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

// getDecimalOrDefault parses thresholds exactly; the default must be valid.
func getDecimalOrDefault(key string, defaultValue string) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return decimal.RequireFromString(defaultValue)
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.RequireFromString(defaultValue)
	}

	return d
}

func getListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
