// Package config loads rvault configuration from the environment and an
// optional config file under the rvault home directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime knobs for the engine. Every field can be set via
// environment variables with the RVAULT_ prefix (RVAULT_DB_PATH, ...) or via
// ~/.rvault/config.yaml.
type Config struct {
	DBPath               string        `mapstructure:"db_path"`
	BraveAPIKey          string        `mapstructure:"brave_api_key"`
	AllowPrivateNetworks bool          `mapstructure:"allow_private_networks"`
	FetchTimeout         time.Duration `mapstructure:"fetch_timeout"`
	WatchIngestTopN      int           `mapstructure:"watch_ingest_top_n"`
	VerifyIngestTopN     int           `mapstructure:"verify_ingest_top_n"`
	SearchCacheTTLHours  int           `mapstructure:"search_cache_ttl_hours"`
	TrustTablePath       string        `mapstructure:"trust_table_path"`
	LogLevel             string        `mapstructure:"log_level"`
	LogFormat            string        `mapstructure:"log_format"`
}

// Home returns the rvault home directory (~/.rvault).
func Home() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".rvault"), nil
}

// Load reads configuration from the environment and, when present, the config
// file. Missing values fall back to defaults; a missing config file is not an
// error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("db_path", "")
	v.SetDefault("brave_api_key", "")
	v.SetDefault("allow_private_networks", false)
	v.SetDefault("fetch_timeout", 15*time.Second)
	v.SetDefault("watch_ingest_top_n", 3)
	v.SetDefault("verify_ingest_top_n", 3)
	v.SetDefault("search_cache_ttl_hours", 24)
	v.SetDefault("trust_table_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetEnvPrefix("RVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if dir, err := Home(); err == nil {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// BRAVE_API_KEY without the prefix is honored for compatibility with the
	// original tooling.
	if v.GetString("brave_api_key") == "" {
		if key := os.Getenv("BRAVE_API_KEY"); key != "" {
			v.Set("brave_api_key", key)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.DBPath == "" {
		dir, err := Home()
		if err != nil {
			return nil, err
		}
		cfg.DBPath = filepath.Join(dir, "rvault.db")
	}

	return &cfg, nil
}
