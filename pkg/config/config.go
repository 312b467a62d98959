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
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Locking   LockingConfig
	Typesense TypesenseConfig
	Search    SearchConfig
	Auth      AuthConfig
	OTEL      OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

// StoreConfig selects the backing store for providers, calendars and appointments
type StoreConfig struct {
	Driver      string
	SeedOnStart bool
	SeedDays    int
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// LockingConfig holds slot lock configuration
type LockingConfig struct {
	Backend string
	TTL     time.Duration
	Wait    time.Duration
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	Enabled bool
	URL     string
	APIKey  string
}

// SearchConfig holds provider search defaults
type SearchConfig struct {
	DefaultRadiusKm float64
	DefaultLimit    int
	MaxLimit        int
}

// AuthConfig holds requester identity settings
type AuthConfig struct {
	// DefaultRequesterID is used when no X-Requester-ID header is present.
	// Leave empty outside development.
	DefaultRequesterID string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"

	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8002),
			Env:            getEnv("SERVER_ENV", "development"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Store: StoreConfig{
			Driver:      getEnv("STORE_DRIVER", StoreDriverMemory),
			SeedOnStart: getEnvAsBool("STORE_SEED_ON_START", true),
			SeedDays:    getEnvAsInt("STORE_SEED_DAYS", 7),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "careslot"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Locking: LockingConfig{
			Backend: getEnv("LOCK_BACKEND", LockBackendLocal),
			TTL:     time.Duration(getEnvAsInt("LOCK_TTL_MS", 5000)) * time.Millisecond,
			Wait:    time.Duration(getEnvAsInt("LOCK_WAIT_MS", 2000)) * time.Millisecond,
		},
		Typesense: TypesenseConfig{
			Enabled: getEnvAsBool("TYPESENSE_ENABLED", false),
			URL:     getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey:  getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		Search: SearchConfig{
			DefaultRadiusKm: getEnvAsFloat("SEARCH_DEFAULT_RADIUS_KM", 10.0),
			DefaultLimit:    getEnvAsInt("SEARCH_DEFAULT_LIMIT", 10),
			MaxLimit:        getEnvAsInt("SEARCH_MAX_LIMIT", 100),
		},
		Auth: AuthConfig{
			DefaultRequesterID: getEnv("AUTH_DEFAULT_REQUESTER_ID", ""),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "careslot-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option combinations that cannot work at runtime
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverMemory, StoreDriverPostgres:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q (got %q)", StoreDriverMemory, StoreDriverPostgres, c.Store.Driver)
	}

	switch c.Locking.Backend {
	case LockBackendLocal:
	case LockBackendRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("LOCK_BACKEND=redis requires REDIS_ENABLED=true")
		}
	default:
		return fmt.Errorf("LOCK_BACKEND must be %q or %q (got %q)", LockBackendLocal, LockBackendRedis, c.Locking.Backend)
	}

	if c.Locking.TTL <= 0 || c.Locking.Wait <= 0 {
		return fmt.Errorf("LOCK_TTL_MS and LOCK_WAIT_MS must be positive")
	}
	if c.Store.SeedDays < 1 {
		return fmt.Errorf("STORE_SEED_DAYS must be at least 1")
	}
	if c.Search.DefaultRadiusKm <= 0 {
		return fmt.Errorf("SEARCH_DEFAULT_RADIUS_KM must be positive")
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxLimit <= 0 || c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("SEARCH_DEFAULT_LIMIT must be positive and not exceed SEARCH_MAX_LIMIT")
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

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
