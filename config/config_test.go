// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
)

// --- Test: DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	// Engine defaults come from the recommend package
	if cfg.Engine.Limits.DefaultLimit != 20 {
		t.Errorf("Engine.Limits.DefaultLimit = %d, want 20", cfg.Engine.Limits.DefaultLimit)
	}
	if cfg.Engine.Variety.Capacity != 50 {
		t.Errorf("Engine.Variety.Capacity = %d, want 50", cfg.Engine.Variety.Capacity)
	}

	// History defaults (disabled, opt-in)
	if cfg.History.Enabled {
		t.Error("History.Enabled should be false by default")
	}
	if cfg.History.URL != "nats://127.0.0.1:4222" {
		t.Errorf("History.URL = %q, want nats://127.0.0.1:4222", cfg.History.URL)
	}
	if cfg.History.MaxReconnects != -1 {
		t.Errorf("History.MaxReconnects = %d, want -1", cfg.History.MaxReconnects)
	}
	if cfg.History.ReconnectWait != 2*time.Second {
		t.Errorf("History.ReconnectWait = %v, want 2s", cfg.History.ReconnectWait)
	}
	if cfg.History.ReconnectBuffer != 8*1024*1024 {
		t.Errorf("History.ReconnectBuffer = %d, want 8MB", cfg.History.ReconnectBuffer)
	}
	if !cfg.History.TrackMsgID {
		t.Error("History.TrackMsgID should be true by default")
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

// --- Test: HistoryConfig ---

func TestHistoryConfigPublisherConfig(t *testing.T) {
	t.Parallel()

	hc := HistoryConfig{
		Enabled:         true,
		URL:             "nats://broker.local:4222",
		MaxReconnects:   5,
		ReconnectWait:   time.Second,
		ReconnectBuffer: 1024,
		TrackMsgID:      true,
	}

	pc := hc.PublisherConfig()
	if pc.URL != "nats://broker.local:4222" {
		t.Errorf("URL = %q, want nats://broker.local:4222", pc.URL)
	}
	if pc.MaxReconnects != 5 {
		t.Errorf("MaxReconnects = %d, want 5", pc.MaxReconnects)
	}
	if pc.ReconnectWait != time.Second {
		t.Errorf("ReconnectWait = %v, want 1s", pc.ReconnectWait)
	}
	if pc.ReconnectBuffer != 1024 {
		t.Errorf("ReconnectBuffer = %d, want 1024", pc.ReconnectBuffer)
	}
	if !pc.EnableTrackMsgID {
		t.Error("EnableTrackMsgID should be true")
	}
}

func TestHistoryConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     HistoryConfig
		wantErr bool
	}{
		{
			name: "disabled section is always valid",
			cfg:  HistoryConfig{Enabled: false},
		},
		{
			name:    "enabled without url",
			cfg:     HistoryConfig{Enabled: true},
			wantErr: true,
		},
		{
			name: "enabled with url",
			cfg:  HistoryConfig{Enabled: true, URL: "nats://127.0.0.1:4222"},
		},
		{
			name:    "negative reconnect wait",
			cfg:     HistoryConfig{Enabled: true, URL: "nats://127.0.0.1:4222", ReconnectWait: -time.Second},
			wantErr: true,
		},
		{
			name:    "negative reconnect buffer",
			cfg:     HistoryConfig{Enabled: true, URL: "nats://127.0.0.1:4222", ReconnectBuffer: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

// --- Test: Config.Validate ---

func TestConfigValidateSectionPrefixes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "engine failure is prefixed",
			mutate:  func(c *Config) { c.Engine.Resolver.MinimumAccepted = 0 },
			wantSub: "engine:",
		},
		{
			name:    "history failure is prefixed",
			mutate:  func(c *Config) { c.History.Enabled = true; c.History.URL = "" },
			wantSub: "history:",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantSub: "logging:",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "logfmt" },
			wantSub: "logging:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tt.wantSub)
			}
		})
	}
}

// --- Test: envTransformFunc ---

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		// Engine limits
		{"ATTUNE_DEFAULT_LIMIT", "engine.limits.default_limit"},
		{"ATTUNE_MAX_LIMIT", "engine.limits.max_limit"},
		{"ATTUNE_REQUEST_TIMEOUT", "engine.limits.request_timeout"},
		{"ATTUNE_SEED", "engine.seed"},

		// Resolver
		{"ATTUNE_RESOLVER_LOOKUP_RATE", "engine.resolver.lookup_rate"},
		{"ATTUNE_RESOLVER_TIMEOUT", "engine.resolver.per_call_timeout"},

		// Fetcher
		{"ATTUNE_FETCHER_MAX_CONCURRENT", "engine.fetcher.max_concurrent"},
		{"ATTUNE_FETCHER_POPULARITY_MIN", "engine.fetcher.popularity_min"},

		// Variety
		{"ATTUNE_VARIETY_CAPACITY", "engine.variety.capacity"},
		{"ATTUNE_VARIETY_HIGH_WATER_MARK", "engine.variety.high_water_mark"},

		// Cascade
		{"ATTUNE_CASCADE_TIER_TIMEOUT", "engine.cascade.tier_timeout"},

		// Aggregator
		{"ATTUNE_AGGREGATOR_MOOD_PRIORITY", "engine.aggregator.mood_priority"},
		{"ATTUNE_AGGREGATOR_JITTER_MAX", "engine.aggregator.jitter_max"},

		// Response cache
		{"ATTUNE_RESPONSE_CACHE_ENABLED", "engine.response_cache.enabled"},
		{"ATTUNE_RESPONSE_CACHE_TTL", "engine.response_cache.ttl"},

		// History
		{"ATTUNE_HISTORY_ENABLED", "history.enabled"},
		{"ATTUNE_HISTORY_NATS_URL", "history.url"},
		{"ATTUNE_HISTORY_TRACK_MSG_ID", "history.track_msg_id"},

		// Logging
		{"ATTUNE_LOG_LEVEL", "logging.level"},
		{"ATTUNE_LOG_FORMAT", "logging.format"},

		// Unknown (should return empty to skip)
		{"ATTUNE_RANDOM_VAR", ""},
		{"ATTUNE_CONFIG_PATH", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			result := envTransformFunc(tt.input)
			if result != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// --- Test: findConfigFile ---

func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	t.Setenv(ConfigPathEnvVar, "")

	if result := findConfigFile(); result != "" {
		t.Errorf("findConfigFile() with no file = %q, want empty", result)
	}

	configPath := filepath.Join(tmpDir, "attune.yaml")
	if err := os.WriteFile(configPath, []byte("logging:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	if result := findConfigFile(); result != "attune.yaml" {
		t.Errorf("findConfigFile() = %q, want attune.yaml", result)
	}

	customPath := filepath.Join(tmpDir, "custom.yaml")
	if err := os.WriteFile(customPath, []byte("logging:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("write custom config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, customPath)
	if result := findConfigFile(); result != customPath {
		t.Errorf("findConfigFile() = %q, want %q (env override)", result, customPath)
	}

	t.Setenv(ConfigPathEnvVar, "/non/existent/attune.yaml")
	if result := findConfigFile(); result != "attune.yaml" {
		t.Errorf("findConfigFile() with missing env path = %q, want attune.yaml fallback", result)
	}
}

// --- Test: processSliceFields ---

func TestProcessSliceFields(t *testing.T) {
	t.Parallel()

	k := koanf.New(".")

	if err := k.Set("engine.aggregator.mood_priority", "deezer, youtube ,lastfm"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := k.Set("engine.aggregator.category_priority", []string{"youtube", "lastfm"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := processSliceFields(k); err != nil {
		t.Fatalf("processSliceFields() error = %v", err)
	}

	mood := k.Strings("engine.aggregator.mood_priority")
	want := []string{"deezer", "youtube", "lastfm"}
	if len(mood) != len(want) {
		t.Fatalf("mood_priority = %v, want %v", mood, want)
	}
	for i := range want {
		if mood[i] != want[i] {
			t.Errorf("mood_priority[%d] = %q, want %q", i, mood[i], want[i])
		}
	}

	category := k.Strings("engine.aggregator.category_priority")
	if len(category) != 2 || category[0] != "youtube" {
		t.Errorf("category_priority = %v, want [youtube lastfm] unchanged", category)
	}
}

// --- Test: Load ---

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.Limits.DefaultLimit != 20 {
		t.Errorf("Engine.Limits.DefaultLimit = %d, want 20", cfg.Engine.Limits.DefaultLimit)
	}
	if cfg.Engine.Limits.RequestTimeout != 30*time.Second {
		t.Errorf("Engine.Limits.RequestTimeout = %v, want 30s", cfg.Engine.Limits.RequestTimeout)
	}
	if got := cfg.Engine.Aggregator.ProviderBonus["lastfm"]; got != 0.3 {
		t.Errorf("Engine.Aggregator.ProviderBonus[lastfm] = %v, want 0.3", got)
	}
	if len(cfg.Engine.Aggregator.MoodPriority) != 3 || cfg.Engine.Aggregator.MoodPriority[0] != "lastfm" {
		t.Errorf("Engine.Aggregator.MoodPriority = %v, want [lastfm deezer youtube]", cfg.Engine.Aggregator.MoodPriority)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled should default to false")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("ATTUNE_VARIETY_CAPACITY", "100")
	t.Setenv("ATTUNE_REQUEST_TIMEOUT", "45s")
	t.Setenv("ATTUNE_FETCHER_POPULARITY_MIN", "0.1")
	t.Setenv("ATTUNE_AGGREGATOR_MOOD_PRIORITY", "deezer, youtube ,lastfm")
	t.Setenv("ATTUNE_HISTORY_ENABLED", "true")
	t.Setenv("ATTUNE_HISTORY_NATS_URL", "nats://broker.local:4222")
	t.Setenv("ATTUNE_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.Variety.Capacity != 100 {
		t.Errorf("Engine.Variety.Capacity = %d, want 100", cfg.Engine.Variety.Capacity)
	}
	if cfg.Engine.Limits.RequestTimeout != 45*time.Second {
		t.Errorf("Engine.Limits.RequestTimeout = %v, want 45s", cfg.Engine.Limits.RequestTimeout)
	}
	if cfg.Engine.Fetcher.PopularityMin != 0.1 {
		t.Errorf("Engine.Fetcher.PopularityMin = %v, want 0.1", cfg.Engine.Fetcher.PopularityMin)
	}

	mood := cfg.Engine.Aggregator.MoodPriority
	want := []string{"deezer", "youtube", "lastfm"}
	if len(mood) != len(want) {
		t.Fatalf("Engine.Aggregator.MoodPriority = %v, want %v", mood, want)
	}
	for i := range want {
		if mood[i] != want[i] {
			t.Errorf("MoodPriority[%d] = %q, want %q", i, mood[i], want[i])
		}
	}

	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if cfg.History.URL != "nats://broker.local:4222" {
		t.Errorf("History.URL = %q, want nats://broker.local:4222", cfg.History.URL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}

	// Defaults still apply for unset values
	if cfg.Engine.Limits.MaxLimit != 100 {
		t.Errorf("Engine.Limits.MaxLimit = %d, want 100 (default)", cfg.Engine.Limits.MaxLimit)
	}
	if !cfg.History.TrackMsgID {
		t.Error("History.TrackMsgID should keep its default true")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	configContent := `
engine:
  limits:
    default_limit: 10
  aggregator:
    mood_priority:
      - deezer
      - lastfm

history:
  enabled: true
  url: "nats://broker.local:4222"

logging:
  level: "warn"
`
	configPath := filepath.Join(tmpDir, "custom.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.Limits.DefaultLimit != 10 {
		t.Errorf("Engine.Limits.DefaultLimit = %d, want 10", cfg.Engine.Limits.DefaultLimit)
	}
	if len(cfg.Engine.Aggregator.MoodPriority) != 2 || cfg.Engine.Aggregator.MoodPriority[0] != "deezer" {
		t.Errorf("Engine.Aggregator.MoodPriority = %v, want [deezer lastfm]", cfg.Engine.Aggregator.MoodPriority)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if cfg.History.URL != "nats://broker.local:4222" {
		t.Errorf("History.URL = %q, want nats://broker.local:4222", cfg.History.URL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}

	// Defaults still apply for unset values
	if cfg.Engine.Limits.MaxLimit != 100 {
		t.Errorf("Engine.Limits.MaxLimit = %d, want 100 (default)", cfg.Engine.Limits.MaxLimit)
	}
	if !cfg.History.TrackMsgID {
		t.Error("History.TrackMsgID should keep its default true")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	configContent := `
engine:
  limits:
    default_limit: 10

history:
  url: "nats://file.local:4222"

logging:
  level: "warn"
`
	configPath := filepath.Join(tmpDir, "custom.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("ATTUNE_DEFAULT_LIMIT", "15")
	t.Setenv("ATTUNE_LOG_LEVEL", "error")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Env wins over file
	if cfg.Engine.Limits.DefaultLimit != 15 {
		t.Errorf("Engine.Limits.DefaultLimit = %d, want 15 (env override)", cfg.Engine.Limits.DefaultLimit)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error (env override)", cfg.Logging.Level)
	}

	// File values without env overrides survive
	if cfg.History.URL != "nats://file.local:4222" {
		t.Errorf("History.URL = %q, want nats://file.local:4222 (from file)", cfg.History.URL)
	}
}

func TestLoadValidationFailure(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("ATTUNE_VARIETY_HIGH_WATER_MARK", "3.5")

	if _, err := Load(); err == nil {
		t.Error("Load() with invalid high_water_mark expected error, got nil")
	}
}
