package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Env      string
	LogLevel string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Search   SearchConfig
	OTEL     OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SearchConfig holds tuning for the search engine
type SearchConfig struct {
	// Store selects the entity store backing the adapters: "postgres" or "memory".
	Store string

	ResultTTL     time.Duration
	SuggestionTTL time.Duration
	TrendingTTL   time.Duration

	// AdapterTimeout bounds every entity adapter call in a fan-out.
	AdapterTimeout time.Duration

	DefaultLimit       int
	MaxLimit           int
	DefaultSuggestions int
	MaxSuggestions     int

	DidYouMeanThreshold float64

	TrendingRefreshInterval time.Duration
	TrendingWindow          time.Duration
	TrendingLimit           int

	// AnalyticsTimeout bounds each detached analytics write.
	AnalyticsTimeout time.Duration

	// LocalCacheSize is the entry budget of the in-memory cache used when Redis is down.
	LocalCacheSize int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "fundbrave"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Search: SearchConfig{
			Store:                   getEnv("SEARCH_STORE", "postgres"),
			ResultTTL:               getEnvAsDuration("SEARCH_RESULT_TTL", time.Minute),
			SuggestionTTL:           getEnvAsDuration("SEARCH_SUGGESTION_TTL", 5*time.Minute),
			TrendingTTL:             getEnvAsDuration("SEARCH_TRENDING_TTL", 10*time.Minute),
			AdapterTimeout:          getEnvAsDuration("SEARCH_ADAPTER_TIMEOUT", 3*time.Second),
			DefaultLimit:            getEnvAsInt("SEARCH_DEFAULT_LIMIT", 10),
			MaxLimit:                getEnvAsInt("SEARCH_MAX_LIMIT", 50),
			DefaultSuggestions:      getEnvAsInt("SEARCH_DEFAULT_SUGGESTIONS", 8),
			MaxSuggestions:          getEnvAsInt("SEARCH_MAX_SUGGESTIONS", 20),
			DidYouMeanThreshold:     getEnvAsFloat("SEARCH_DID_YOU_MEAN_THRESHOLD", 0.3),
			TrendingRefreshInterval: getEnvAsDuration("SEARCH_TRENDING_REFRESH", 5*time.Minute),
			TrendingWindow:          getEnvAsDuration("SEARCH_TRENDING_WINDOW", 24*time.Hour),
			TrendingLimit:           getEnvAsInt("SEARCH_TRENDING_LIMIT", 10),
			AnalyticsTimeout:        getEnvAsDuration("SEARCH_ANALYTICS_TIMEOUT", 5*time.Second),
			LocalCacheSize:          getEnvAsInt("SEARCH_LOCAL_CACHE_SIZE", 2048),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "fundbrave-search"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Search.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultSearchConfig returns the search tuning used when no environment is set
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Store:                   "postgres",
		ResultTTL:               time.Minute,
		SuggestionTTL:           5 * time.Minute,
		TrendingTTL:             10 * time.Minute,
		AdapterTimeout:          3 * time.Second,
		DefaultLimit:            10,
		MaxLimit:                50,
		DefaultSuggestions:      8,
		MaxSuggestions:          20,
		DidYouMeanThreshold:     0.3,
		TrendingRefreshInterval: 5 * time.Minute,
		TrendingWindow:          24 * time.Hour,
		TrendingLimit:           10,
		AnalyticsTimeout:        5 * time.Second,
		LocalCacheSize:          2048,
	}
}

// Validate checks the search tuning for values the engine cannot work with
func (c *SearchConfig) Validate() error {
	switch c.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid SEARCH_STORE %q: want postgres or memory", c.Store)
	}
	if c.DefaultLimit <= 0 || c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("invalid search limits: default=%d max=%d", c.DefaultLimit, c.MaxLimit)
	}
	if c.DefaultSuggestions <= 0 || c.MaxSuggestions < c.DefaultSuggestions {
		return fmt.Errorf("invalid suggestion limits: default=%d max=%d", c.DefaultSuggestions, c.MaxSuggestions)
	}
	if c.DidYouMeanThreshold < 0 || c.DidYouMeanThreshold > 1 {
		return fmt.Errorf("invalid did-you-mean threshold %v", c.DidYouMeanThreshold)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if len(items) > 0 {
			return items
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
