package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server     ServerConfig
	App        AppConfig
	Redis      RedisConfig
	Ledger     LedgerDBConfig
	Catalog    CatalogDBConfig
	Settlement SettlementConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"mediahub-credits-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// RedisConfig holds Redis settings (sessions, catalog cache, event fan-out).
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`

	EventChannel string        `envconfig:"REDIS_EVENT_CHANNEL" default:"mediahub:settlement:events"`
	CacheTTL     time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"5m"`
}

// LedgerDBConfig holds the settlement database settings (balances, grants,
// sales, idempotency keys).
type LedgerDBConfig struct {
	Path string `envconfig:"LEDGER_DB_PATH" default:"./data/settlement.db"`
}

// CatalogDBConfig holds media catalog settings.
type CatalogDBConfig struct {
	Type string `envconfig:"CATALOG_DB_TYPE" default:"sqlite"` // sqlite or mysql
	Path string `envconfig:"CATALOG_DB_PATH" default:"./data/catalog.db"`
	// MySQL settings (shared platform catalog)
	Host     string `envconfig:"CATALOG_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"CATALOG_DB_PORT" default:"3306"`
	Name     string `envconfig:"CATALOG_DB_NAME" default:"mediahub"`
	User     string `envconfig:"CATALOG_DB_USER" default:"root"`
	Password string `envconfig:"CATALOG_DB_PASS" default:""`
}

// SettlementConfig holds the settlement policy constants.
type SettlementConfig struct {
	CreatorSharePercent  int64         `envconfig:"SETTLEMENT_CREATOR_SHARE_PERCENT" default:"70"`
	GrantTTL             time.Duration `envconfig:"SETTLEMENT_GRANT_TTL" default:"24h"`
	StoreTimeout         time.Duration `envconfig:"SETTLEMENT_STORE_TIMEOUT" default:"5s"`
	IdempotencyRetention time.Duration `envconfig:"SETTLEMENT_IDEMPOTENCY_RETENTION" default:"48h"`
	CleanupInterval      time.Duration `envconfig:"SETTLEMENT_CLEANUP_INTERVAL" default:"1h"`
}

// MySQLDSN returns the MySQL data source name for the catalog.
func (c *CatalogDBConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the Redis address in host:port format.
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
