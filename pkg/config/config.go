package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	Store       string `mapstructure:"STORE"`
	PostgresURL string `mapstructure:"POSTGRES_URL"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`

	// RedisAddr empty disables site locks, run summaries, the pending queue and extraction markers.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	SitesFile          string        `mapstructure:"SITES_FILE"`
	FetchTimeout       time.Duration `mapstructure:"FETCH_TIMEOUT"`
	MaxConcurrency     int           `mapstructure:"MAX_CONCURRENCY"`
	PolitenessInterval time.Duration `mapstructure:"POLITENESS_INTERVAL"`
	SiteLockTTL        time.Duration `mapstructure:"SITE_LOCK_TTL"`
	ExtractionTTL      time.Duration `mapstructure:"EXTRACTION_TTL"`
	// ExtractionInterval paces product page fetches within an extraction batch.
	ExtractionInterval time.Duration `mapstructure:"EXTRACTION_INTERVAL"`
	// DiscoverySchedule is a cron expression used by serve; empty disables scheduling.
	DiscoverySchedule string `mapstructure:"DISCOVERY_SCHEDULE"`

	Headless   bool   `mapstructure:"HEADLESS"`
	ChromePath string `mapstructure:"CHROME_PATH"`
	// Proxies is a comma separated list; UserAgents is separated by "|".
	Proxies    string `mapstructure:"PROXIES"`
	UserAgents string `mapstructure:"USER_AGENTS"`
}

// Load reads configuration from envFile (if present) and environment variables.
// Environment variables win over the file.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// A missing .env is fine; configuration may come purely from the environment.
	_ = v.ReadInConfig()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE", StoreSQLite)
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("SQLITE_PATH", "cardscout.db")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SITES_FILE", "configs/sites.yaml")
	v.SetDefault("FETCH_TIMEOUT", "30s")
	v.SetDefault("MAX_CONCURRENCY", 2)
	v.SetDefault("POLITENESS_INTERVAL", "15s")
	v.SetDefault("SITE_LOCK_TTL", "10m")
	v.SetDefault("EXTRACTION_TTL", "24h")
	v.SetDefault("EXTRACTION_INTERVAL", "2s")
	v.SetDefault("DISCOVERY_SCHEDULE", "")
	v.SetDefault("HEADLESS", true)
	v.SetDefault("CHROME_PATH", "")
	v.SetDefault("PROXIES", "")
	v.SetDefault("USER_AGENTS", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StorePostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required when STORE=%s", StorePostgres)
		}
	case StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("MAX_CONCURRENCY must be positive, got %d", c.MaxConcurrency)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout)
	}
	if c.ExtractionInterval < 0 {
		return fmt.Errorf("EXTRACTION_INTERVAL must not be negative, got %s", c.ExtractionInterval)
	}
	if c.PolitenessInterval < 0 {
		return fmt.Errorf("POLITENESS_INTERVAL must not be negative, got %s", c.PolitenessInterval)
	}
	return nil
}

// ProxyList returns the configured proxies.
func (c *Config) ProxyList() []string {
	return splitList(c.Proxies, ",")
}

// UserAgentList returns the configured user agents.
func (c *Config) UserAgentList() []string {
	return splitList(c.UserAgents, "|")
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
