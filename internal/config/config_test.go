package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/everstacklabs/blocksmith/internal/feed"
)

// clearEnv blanks the env vars Load binds so ambient shell state can't
// leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TOGETHER_API_KEY",
		"BLOCKSMITH_API_BASE_URL",
		"BLOCKSMITH_OUTPUT_DIR",
		"BLOCKSMITH_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !filepath.IsAbs(cfg.OutputDir) {
		t.Errorf("output dir not absolute: %q", cfg.OutputDir)
	}
	if !strings.HasSuffix(cfg.OutputDir, filepath.Join("blocks", "public")) {
		t.Errorf("output dir = %q", cfg.OutputDir)
	}
	if cfg.CacheTTL != "1h" {
		t.Errorf("cache_ttl = %q, want 1h", cfg.CacheTTL)
	}
	if cfg.RateLimit != 2.0 {
		t.Errorf("rate_limit = %v, want 2.0", cfg.RateLimit)
	}
	if cfg.ApplyContextThreshold != 8192 {
		t.Errorf("apply_context_threshold = %d, want 8192", cfg.ApplyContextThreshold)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log_level = %q, want info", cfg.LogLevel)
	}
	if cfg.API.BaseURL != feed.DefaultBaseURL {
		t.Errorf("api.base_url = %q", cfg.API.BaseURL)
	}
	if len(cfg.AutocompleteModels) != len(DefaultAutocompleteModels) {
		t.Fatalf("autocomplete_models = %v", cfg.AutocompleteModels)
	}
	found := false
	for _, m := range cfg.AutocompleteModels {
		if m == "Mistral (7B)" {
			found = true
		}
	}
	if !found {
		t.Error("default allow-list missing Mistral (7B)")
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	outDir := filepath.Join(dir, "blocks")
	content := `output_dir: ` + outDir + `
rate_limit: 5
skip_free: true
apply_context_threshold: 4096
autocomplete_models:
  - Only Model
api:
  key: from-file
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.OutputDir != outDir {
		t.Errorf("output_dir = %q, want %q", cfg.OutputDir, outDir)
	}
	if cfg.RateLimit != 5 {
		t.Errorf("rate_limit = %v, want 5", cfg.RateLimit)
	}
	if !cfg.SkipFree {
		t.Error("skip_free not applied")
	}
	if cfg.ApplyContextThreshold != 4096 {
		t.Errorf("apply_context_threshold = %d, want 4096", cfg.ApplyContextThreshold)
	}
	if len(cfg.AutocompleteModels) != 1 || cfg.AutocompleteModels[0] != "Only Model" {
		t.Errorf("autocomplete_models = %v", cfg.AutocompleteModels)
	}
	if cfg.API.Key != "from-file" {
		t.Errorf("api.key = %q", cfg.API.Key)
	}

	// Unset keys keep their defaults.
	if cfg.CacheTTL != "1h" {
		t.Errorf("cache_ttl = %q, want default 1h", cfg.CacheTTL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	outDir := t.TempDir()
	t.Setenv("TOGETHER_API_KEY", "env-key")
	t.Setenv("BLOCKSMITH_OUTPUT_DIR", outDir)
	t.Setenv("BLOCKSMITH_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.API.Key != "env-key" {
		t.Errorf("api.key = %q, want env-key", cfg.API.Key)
	}
	if cfg.OutputDir != outDir {
		t.Errorf("output_dir = %q, want %q", cfg.OutputDir, outDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}
