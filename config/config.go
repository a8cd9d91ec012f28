// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

// Package config loads Attune configuration for embedding applications.
//
// Configuration is layered with clear precedence: built-in defaults,
// then an optional YAML file, then ATTUNE_-prefixed environment
// variables. Applications that construct recommend.Config directly do
// not need this package; it exists for deployments that want file and
// environment driven setup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	logger, err := logging.New(cfg.Logging)
//	engine, err := recommend.NewEngine(cfg.Engine, logger, deps)
package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/attune/history"
	"github.com/tomtom215/attune/logging"
	"github.com/tomtom215/attune/recommend"
)

// Config is the top-level Attune configuration.
type Config struct {
	// Engine is the recommendation engine configuration.
	Engine recommend.Config `koanf:"engine" json:"engine"`

	// History configures the served-response event sink.
	History HistoryConfig `koanf:"history" json:"history"`

	// Logging configures the root logger.
	Logging logging.Config `koanf:"logging" json:"logging"`
}

// HistoryConfig configures history event publishing to NATS.
type HistoryConfig struct {
	// Enabled turns on history event publishing. Default: false.
	Enabled bool `koanf:"enabled" json:"enabled"`

	// URL is the NATS server URL.
	// Default: nats://127.0.0.1:4222
	URL string `koanf:"url" json:"url"`

	// MaxReconnects bounds reconnection attempts; -1 means unlimited.
	// Default: -1
	MaxReconnects int `koanf:"max_reconnects" json:"max_reconnects"`

	// ReconnectWait is the delay between reconnection attempts.
	// Default: 2s
	ReconnectWait time.Duration `koanf:"reconnect_wait" json:"reconnect_wait"`

	// ReconnectBuffer is the outgoing buffer size in bytes while
	// disconnected. Default: 8MB
	ReconnectBuffer int `koanf:"reconnect_buffer" json:"reconnect_buffer"`

	// TrackMsgID enables JetStream publish deduplication by message ID.
	// Default: true
	TrackMsgID bool `koanf:"track_msg_id" json:"track_msg_id"`
}

// PublisherConfig converts the section to the history package's
// publisher configuration.
func (c HistoryConfig) PublisherConfig() history.PublisherConfig {
	return history.PublisherConfig{
		URL:              c.URL,
		MaxReconnects:    c.MaxReconnects,
		ReconnectWait:    c.ReconnectWait,
		ReconnectBuffer:  c.ReconnectBuffer,
		EnableTrackMsgID: c.TrackMsgID,
	}
}

// Validate checks the history section. A disabled section is always
// valid.
func (c HistoryConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" {
		return fmt.Errorf("url must be set when history publishing is enabled")
	}
	if c.ReconnectWait < 0 {
		return fmt.Errorf("reconnect_wait must not be negative, got %v", c.ReconnectWait)
	}
	if c.ReconnectBuffer < 0 {
		return fmt.Errorf("reconnect_buffer must not be negative, got %d", c.ReconnectBuffer)
	}
	return nil
}

// DefaultConfig returns a configuration with production defaults.
// History publishing is disabled by default; embedding apps opt in.
func DefaultConfig() *Config {
	return &Config{
		Engine: recommend.DefaultConfig(),
		History: HistoryConfig{
			Enabled:         false,
			URL:             "nats://127.0.0.1:4222",
			MaxReconnects:   -1, // Unlimited
			ReconnectWait:   2 * time.Second,
			ReconnectBuffer: 8 * 1024 * 1024, // 8MB
			TrackMsgID:      true,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Validate checks every section and returns the first failure, prefixed
// with the section name.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if c.Logging.Level != "" {
		if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("logging: %w", err)
		}
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging: unknown log format %q (want json or console)", c.Logging.Format)
	}
	return nil
}
