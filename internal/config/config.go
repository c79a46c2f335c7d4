// Package config loads generator settings from file, environment,
// and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/everstacklabs/blocksmith/internal/classify"
	"github.com/everstacklabs/blocksmith/internal/feed"
)

// Config holds all configuration for the generator.
type Config struct {
	OutputDir             string    `mapstructure:"output_dir"`
	CacheDir              string    `mapstructure:"cache_dir"`
	CacheTTL              string    `mapstructure:"cache_ttl"`
	NoCache               bool      `mapstructure:"no_cache"`
	SkipFree              bool      `mapstructure:"skip_free"`
	RateLimit             float64   `mapstructure:"rate_limit"`
	AutocompleteModels    []string  `mapstructure:"autocomplete_models"`
	ApplyContextThreshold int       `mapstructure:"apply_context_threshold"`
	API                   APIConfig `mapstructure:"api"`
	LogLevel              string    `mapstructure:"log_level"`
}

// APIConfig holds Together API settings.
type APIConfig struct {
	Key     string `mapstructure:"key"`
	BaseURL string `mapstructure:"base_url"`
}

// DefaultAutocompleteModels are the models approved for the
// autocomplete role out of the box. Small instruct models whose
// latency is acceptable for inline completion.
var DefaultAutocompleteModels = []string{
	// Meta Llama 3 family (8B variants only)
	"Meta Llama 3 8B Instruct Lite",
	"Meta Llama 3 8B Instruct Turbo",
	"Meta Llama 3.1 8B Instruct Turbo",
	"Meta Llama 3 8B Instruct Reference",

	// Google
	"Gemma Instruct (2B)",
	"Gemma-2 Instruct (9B)",

	// Mistral
	"Mistral (7B) Instruct v0.2",
	"Mistral (7B)",
}

// Load reads configuration from file, environment, and defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("output_dir", "./blocks/public")
	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("cache_ttl", "1h")
	v.SetDefault("no_cache", false)
	v.SetDefault("skip_free", false)
	v.SetDefault("rate_limit", 2.0)
	v.SetDefault("autocomplete_models", DefaultAutocompleteModels)
	v.SetDefault("apply_context_threshold", classify.DefaultApplyThreshold)
	v.SetDefault("log_level", "info")
	v.SetDefault("api.base_url", feed.DefaultBaseURL)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/blocksmith")
	}

	// Environment variables
	v.SetEnvPrefix("BLOCKSMITH")
	v.AutomaticEnv()

	// Bind specific env vars
	_ = v.BindEnv("api.key", "TOGETHER_API_KEY")
	_ = v.BindEnv("api.base_url", "BLOCKSMITH_API_BASE_URL")
	_ = v.BindEnv("output_dir", "BLOCKSMITH_OUTPUT_DIR")
	_ = v.BindEnv("log_level", "BLOCKSMITH_LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Resolve output dir to absolute
	if !filepath.IsAbs(cfg.OutputDir) {
		abs, err := filepath.Abs(cfg.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("resolving output dir: %w", err)
		}
		cfg.OutputDir = abs
	}

	return &cfg, nil
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/blocksmith-cache"
	}
	return filepath.Join(home, ".cache", "blocksmith")
}
