// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"attune.yaml",
	"attune.yml",
	"/etc/attune/attune.yaml",
	"/etc/attune/attune.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "ATTUNE_CONFIG_PATH"

// envPrefix namespaces all Attune environment variables.
const envPrefix = "ATTUNE_"

// Load loads configuration with layered sources:
//  1. Defaults: built-in production defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: ATTUNE_-prefixed overrides
//
// Precedence is ENV > file > defaults. The merged configuration is
// validated before it is returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	defaults := DefaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	// Names are transformed to koanf paths:
	// ATTUNE_VARIETY_CAPACITY -> engine.variety.capacity
	// ATTUNE_HISTORY_NATS_URL -> history.url
	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file. The ATTUNE_CONFIG_PATH
// environment variable wins over the default search paths. Returns an
// empty string when no file is found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as
// comma-separated slices when they arrive as env strings.
var sliceConfigPaths = []string{
	"engine.aggregator.category_priority",
	"engine.aggregator.mood_priority",
}

// processSliceFields converts comma-separated string values to slices
// for known slice fields. Env vars come in as strings, but the config
// expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf
// config paths.
//
// Examples:
//   - ATTUNE_VARIETY_CAPACITY -> engine.variety.capacity
//   - ATTUNE_RESOLVER_LOOKUP_RATE -> engine.resolver.lookup_rate
//   - ATTUNE_HISTORY_NATS_URL -> history.url
//   - ATTUNE_LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	envMappings := map[string]string{
		// Engine limits
		"default_limit":   "engine.limits.default_limit",
		"max_limit":       "engine.limits.max_limit",
		"default_minimum": "engine.limits.default_minimum",
		"request_timeout": "engine.limits.request_timeout",
		"seed":            "engine.seed",

		// Resolver
		"resolver_minimum_accepted": "engine.resolver.minimum_accepted",
		"resolver_max_attempts":     "engine.resolver.max_attempts",
		"resolver_search_window":    "engine.resolver.search_window",
		"resolver_lookup_rate":      "engine.resolver.lookup_rate",
		"resolver_lookup_burst":     "engine.resolver.lookup_burst",
		"resolver_timeout":          "engine.resolver.per_call_timeout",

		// Fetcher
		"fetcher_timeout":        "engine.fetcher.per_call_timeout",
		"fetcher_max_concurrent": "engine.fetcher.max_concurrent",
		"fetcher_max_tags":       "engine.fetcher.max_tags",
		"fetcher_per_call_limit": "engine.fetcher.per_call_limit",
		"fetcher_offset_spread":  "engine.fetcher.offset_spread",
		"fetcher_popularity_min": "engine.fetcher.popularity_min",

		// Scoring
		"scoring_user_affinity_boost":      "engine.scoring.user_affinity_boost",
		"scoring_genre_boost_min":          "engine.scoring.genre_boost_min",
		"scoring_genre_boost_max":          "engine.scoring.genre_boost_max",
		"scoring_location_boost":           "engine.scoring.location_boost",
		"scoring_cultural_boost":           "engine.scoring.cultural_boost",
		"scoring_popular_strategy_boost":   "engine.scoring.popular_strategy_boost",
		"scoring_diversity_strategy_boost": "engine.scoring.diversity_strategy_boost",

		// Variety cache
		"variety_capacity":        "engine.variety.capacity",
		"variety_floor":           "engine.variety.floor",
		"variety_high_water_mark": "engine.variety.high_water_mark",

		// Cascade
		"cascade_tier_timeout":        "engine.cascade.tier_timeout",
		"cascade_max_history_artists": "engine.cascade.max_history_artists",
		"cascade_similar_per_artist":  "engine.cascade.similar_per_artist",
		"cascade_similar_timeout":     "engine.cascade.similar_timeout",

		// Aggregator
		"aggregator_max_providers":     "engine.aggregator.max_providers",
		"aggregator_min_per_provider":  "engine.aggregator.min_per_provider",
		"aggregator_max_total":         "engine.aggregator.max_total",
		"aggregator_quota_slack":       "engine.aggregator.quota_slack",
		"aggregator_timeout":           "engine.aggregator.per_call_timeout",
		"aggregator_category_priority": "engine.aggregator.category_priority",
		"aggregator_mood_priority":     "engine.aggregator.mood_priority",
		"aggregator_default_bonus":     "engine.aggregator.default_bonus",
		"aggregator_keyword_boost":     "engine.aggregator.keyword_boost",
		"aggregator_jitter_max":        "engine.aggregator.jitter_max",

		// Response cache
		"response_cache_enabled": "engine.response_cache.enabled",
		"response_cache_ttl":     "engine.response_cache.ttl",
		"response_cache_size":    "engine.response_cache.size",

		// Janitor
		"janitor_interval": "engine.janitor.interval",

		// History event sink
		"history_enabled":          "history.enabled",
		"history_nats_url":         "history.url",
		"history_max_reconnects":   "history.max_reconnects",
		"history_reconnect_wait":   "history.reconnect_wait",
		"history_reconnect_buffer": "history.reconnect_buffer",
		"history_track_msg_id":     "history.track_msg_id",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped so unrelated ATTUNE_-prefixed variables
	// (ATTUNE_CONFIG_PATH in particular) do not pollute the config.
	return ""
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
// The caller is responsible for mutex protection when swapping
// configuration during reloads.
//
// Example usage:
//
//	err := config.WatchConfigFile(path, func() {
//	    newCfg, err := config.Load()
//	    if err != nil {
//	        logger.Error().Err(err).Msg("config reload failed")
//	        return
//	    }
//	    app.SwapConfig(newCfg)
//	})
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
