package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Currency CurrencySetConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string

	// Name is the server-scope tag. It must be unique per server when
	// multiple servers share one database; local currency tables are
	// namespaced with it.
	Name string
}

// StorageConfig holds storage backend configuration
type StorageConfig struct {
	// Type selects the backend: memory, postgres, sqlite, or mysql
	Type string

	PostgresURL string
	MySQLDSN    string
	SQLitePath  string

	// TablePrefix is prepended to every table name
	TablePrefix string

	// SaveInterval is how often dirty users are flushed to storage
	SaveInterval time.Duration

	// HousekeeperInterval is how often idle users are swept from the cache
	HousekeeperInterval time.Duration

	// HousekeeperIdleAfter is how long a clean, disconnected user stays
	// cached before eviction
	HousekeeperIdleAfter time.Duration
}

// CurrencySetConfig holds the raw currency definitions
type CurrencySetConfig struct {
	// Definitions is a comma-separated list of currency definitions:
	// identifier:scope:decimalPlaces:payable:defaultBalance:taxRate
	Definitions string
}

// CurrencyConfig is one parsed currency definition
type CurrencyConfig struct {
	Identifier     string
	Scope          string
	DecimalPlaces  int
	Payable        bool
	DefaultBalance string
	TaxRate        string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
			Name: getEnv("SERVER_NAME", "server1"),
		},
		Storage: StorageConfig{
			Type:                 getEnv("STORAGE_TYPE", "memory"),
			PostgresURL:          getEnv("DATABASE_URL", ""),
			MySQLDSN:             getEnv("MYSQL_DSN", ""),
			SQLitePath:           getEnv("SQLITE_PATH", "playerbank.db"),
			TablePrefix:          getEnv("TABLE_PREFIX", "playerbank"),
			SaveInterval:         getEnvSeconds("SAVE_INTERVAL_SECONDS", 5),
			HousekeeperInterval:  getEnvSeconds("HOUSEKEEPER_INTERVAL_SECONDS", 60),
			HousekeeperIdleAfter: getEnvSeconds("HOUSEKEEPER_IDLE_SECONDS", 300),
		},
		Currency: CurrencySetConfig{
			Definitions: getEnv("CURRENCIES", "coins:LOCAL:2:true:0:0,gems:GLOBAL:0:false:0:0"),
		},
	}
}

// Parse splits the raw currency definitions into individual configs
func (c *CurrencySetConfig) Parse() ([]CurrencyConfig, error) {
	var out []CurrencyConfig

	for _, def := range strings.Split(c.Definitions, ",") {
		def = strings.TrimSpace(def)
		if def == "" {
			continue
		}

		parts := strings.Split(def, ":")
		if len(parts) != 6 {
			return nil, fmt.Errorf("invalid currency definition %q: want identifier:scope:decimals:payable:default:taxRate", def)
		}

		decimals, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid decimal places in currency definition %q: %w", def, err)
		}
		payable, err := strconv.ParseBool(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid payable flag in currency definition %q: %w", def, err)
		}

		out = append(out, CurrencyConfig{
			Identifier:     parts[0],
			Scope:          strings.ToUpper(parts[1]),
			DecimalPlaces:  decimals,
			Payable:        payable,
			DefaultBalance: parts[4],
			TaxRate:        parts[5],
		})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no currencies configured")
	}
	return out, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvSeconds gets an integer environment variable as a duration in seconds
func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Second
		}
	}
	return time.Duration(defaultSeconds) * time.Second
}
