package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mohamedkhairy/market-intel/internal/data"
	"github.com/mohamedkhairy/market-intel/internal/models"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Redis
	Redis RedisConfig

	// Database
	Database DatabaseConfig

	// Engine
	Cache CacheConfig
	Intel IntelConfig
	News  NewsConfig

	// Gateway
	WSGateway WSGatewayConfig
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// DatabaseConfig holds PostgreSQL configuration for narrative history
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// CacheConfig holds settings for state kept across invocations
type CacheConfig struct {
	TTL              time.Duration // TTL for breadth series and volatility readings
	BreadthSeriesLen int
	TopN             int
	TopMoversTTL     time.Duration
	SnapshotTTL      time.Duration // TTL of the latest published snapshot
}

// IntelConfig holds settings for the market intelligence service
type IntelConfig struct {
	HealthCheckPort int
	APIRateLimit    int // requests per second per client, 0 disables
	AssetClasses    []models.AssetClass
	Symbols         map[models.AssetClass][]string
	PayloadDir      string
	RulesFile       string // empty means the built-in rule set
	Interval        time.Duration
	RunOnce         bool
	Publish         bool
}

// WSGatewayConfig holds configuration for the snapshot WebSocket gateway
type WSGatewayConfig struct {
	Port           int
	MaxConnections int
	PingInterval   time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	SendBufferSize int
	JWTSecret      string // empty allows anonymous connections
}

// NewsConfig holds the news sentiment provider configuration
type NewsConfig struct {
	APIKey            string
	APIURL            string
	DaysBack          int
	PageSize          int
	Timeout           time.Duration
	CacheTTL          time.Duration
	RequestsPerMinute int // 0 disables client-side rate limiting
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	assetClasses, err := parseAssetClasses(getEnvAsStringSlice("INTEL_ASSET_CLASSES", []string{"forex", "stocks", "crypto"}))
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", true),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvAsBool("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "market_intel"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Cache: CacheConfig{
			TTL:              getEnvAsDuration("CACHE_TTL", 300*time.Second),
			BreadthSeriesLen: getEnvAsInt("CACHE_BREADTH_SERIES_LEN", 20),
			TopN:             getEnvAsInt("CACHE_TOP_N", 5),
			TopMoversTTL:     getEnvAsDuration("CACHE_TOP_MOVERS_TTL", 30*time.Second),
			SnapshotTTL:      getEnvAsDuration("CACHE_SNAPSHOT_TTL", 10*time.Minute),
		},
		Intel: IntelConfig{
			HealthCheckPort: getEnvAsInt("INTEL_HEALTH_PORT", 8095),
			APIRateLimit:    getEnvAsInt("INTEL_API_RATE_LIMIT", 50),
			AssetClasses:    assetClasses,
			Symbols: map[models.AssetClass][]string{
				models.AssetClassForex:  getEnvAsSymbols("INTEL_FOREX_SYMBOLS", []string{"EURUSD", "GBPUSD", "USDJPY", "AUDUSD"}),
				models.AssetClassStocks: getEnvAsSymbols("INTEL_STOCK_SYMBOLS", []string{"AAPL", "MSFT", "GOOGL", "AMZN"}),
				models.AssetClassCrypto: getEnvAsSymbols("INTEL_CRYPTO_SYMBOLS", []string{"BTCUSD", "ETHUSD", "XRPUSD"}),
			},
			PayloadDir: getEnv("INTEL_PAYLOAD_DIR", "./data"),
			RulesFile:  getEnv("INTEL_RULES_FILE", ""),
			Interval:   getEnvAsDuration("INTEL_INTERVAL", 1*time.Minute),
			RunOnce:    getEnvAsBool("INTEL_RUN_ONCE", false),
			Publish:    getEnvAsBool("INTEL_PUBLISH", true),
		},
		News: NewsConfig{
			APIKey:            getEnv("NEWS_API_KEY", ""),
			APIURL:            getEnv("NEWS_API_URL", "https://newsapi.org/v2/everything"),
			DaysBack:          getEnvAsInt("NEWS_DAYS_BACK", 7),
			PageSize:          getEnvAsInt("NEWS_PAGE_SIZE", 20),
			Timeout:           getEnvAsDuration("NEWS_TIMEOUT", 10*time.Second),
			CacheTTL:          getEnvAsDuration("NEWS_CACHE_TTL", 15*time.Minute),
			RequestsPerMinute: getEnvAsInt("NEWS_REQUESTS_PER_MINUTE", 30),
		},
		WSGateway: WSGatewayConfig{
			Port:           getEnvAsInt("WS_GATEWAY_PORT", 8088),
			MaxConnections: getEnvAsInt("WS_GATEWAY_MAX_CONNECTIONS", 1000),
			PingInterval:   getEnvAsDuration("WS_GATEWAY_PING_INTERVAL", 30*time.Second),
			ReadTimeout:    getEnvAsDuration("WS_GATEWAY_READ_TIMEOUT", 60*time.Second),
			WriteTimeout:   getEnvAsDuration("WS_GATEWAY_WRITE_TIMEOUT", 10*time.Second),
			SendBufferSize: getEnvAsInt("WS_GATEWAY_SEND_BUFFER", 64),
			JWTSecret:      getEnv("JWT_SECRET", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Redis.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required when REDIS_ENABLED is true")
	}
	if c.Database.Enabled && c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required when DB_ENABLED is true")
	}
	if len(c.Intel.AssetClasses) == 0 {
		return fmt.Errorf("INTEL_ASSET_CLASSES must contain at least one asset class")
	}
	for _, class := range c.Intel.AssetClasses {
		if len(c.Intel.Symbols[class]) == 0 {
			return fmt.Errorf("no symbols configured for asset class %s", class)
		}
	}
	if c.Cache.BreadthSeriesLen <= 0 {
		return fmt.Errorf("CACHE_BREADTH_SERIES_LEN must be positive, got %d", c.Cache.BreadthSeriesLen)
	}
	if c.Cache.TopN <= 0 {
		return fmt.Errorf("CACHE_TOP_N must be positive, got %d", c.Cache.TopN)
	}
	if c.Intel.APIRateLimit < 0 {
		return fmt.Errorf("INTEL_API_RATE_LIMIT cannot be negative")
	}
	if c.WSGateway.PingInterval >= c.WSGateway.ReadTimeout {
		return fmt.Errorf("WS_GATEWAY_PING_INTERVAL must be shorter than WS_GATEWAY_READ_TIMEOUT")
	}
	if !c.Intel.RunOnce && c.Intel.Interval <= 0 {
		return fmt.Errorf("INTEL_INTERVAL must be positive")
	}
	return nil
}

func parseAssetClasses(values []string) ([]models.AssetClass, error) {
	out := make([]models.AssetClass, 0, len(values))
	for _, v := range values {
		class, err := models.ParseAssetClass(v)
		if err != nil {
			return nil, err
		}
		out = append(out, class)
	}
	return out, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
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

// getEnvAsSymbols reads a symbol list in the canonical form the normalizer
// resolves payload keys against
func getEnvAsSymbols(key string, defaultValue []string) []string {
	values := getEnvAsStringSlice(key, defaultValue)
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = data.CanonicalSymbol(v)
	}
	return out
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
