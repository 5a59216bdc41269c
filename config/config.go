package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Octopart OctopartConfig `mapstructure:"octopart"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// OctopartConfig holds pricing API configuration
type OctopartConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ScrapeConfig controls remote price reconciliation
type ScrapeConfig struct {
	Workers       int           `mapstructure:"workers"`
	Retries       int           `mapstructure:"retries"`
	ThrottleDelay time.Duration `mapstructure:"throttle_delay"`
	BatchSize     int           `mapstructure:"batch_size"`
}

// CacheConfig holds offer cache configuration
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith loads configuration into a caller-supplied viper instance, so
// command-line flags bound to v take precedence over files and env vars.
func LoadWith(v *viper.Viper) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/kicost/")

	v.SetEnvPrefix("KICOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads a .env file from the working directory if one exists.
// Variables already present in the environment are not overridden.
func loadEnvFile() error {
	err := godotenv.Load()
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	v.SetDefault("octopart.api_key", "")
	v.SetDefault("octopart.base_url", "https://octopart.com/api/v3")
	v.SetDefault("octopart.timeout", "30s")

	v.SetDefault("scrape.workers", 4)
	v.SetDefault("scrape.retries", 5)
	v.SetDefault("scrape.throttle_delay", "5s")
	v.SetDefault("scrape.batch_size", 20)

	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Octopart.BaseURL == "" {
		return fmt.Errorf("octopart base URL is required (set KICOST_OCTOPART_BASE_URL)")
	}
	if config.Scrape.Workers < 1 {
		return fmt.Errorf("scrape workers must be at least 1, got: %d", config.Scrape.Workers)
	}
	if config.Scrape.Retries < 1 {
		return fmt.Errorf("scrape retries must be at least 1, got: %d", config.Scrape.Retries)
	}
	if config.Scrape.BatchSize < 1 {
		return fmt.Errorf("scrape batch size must be at least 1, got: %d", config.Scrape.BatchSize)
	}
	if config.Scrape.ThrottleDelay < 0 {
		return fmt.Errorf("scrape throttle delay cannot be negative, got: %s", config.Scrape.ThrottleDelay)
	}
	return nil
}
