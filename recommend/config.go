// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"fmt"
	"time"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Resolver contains descriptor-to-tag resolution parameters.
	Resolver ResolverConfig `json:"resolver" koanf:"resolver"`

	// Fetcher contains primary retrieval parameters.
	Fetcher FetcherConfig `json:"fetcher" koanf:"fetcher"`

	// Scoring contains deduplication and boost parameters.
	Scoring ScoringConfig `json:"scoring" koanf:"scoring"`

	// Variety contains repetition-suppression cache parameters.
	Variety VarietyConfig `json:"variety" koanf:"variety"`

	// Cascade contains fallback tier parameters.
	Cascade CascadeConfig `json:"cascade" koanf:"cascade"`

	// Aggregator contains secondary provider merge parameters.
	Aggregator AggregatorConfig `json:"aggregator" koanf:"aggregator"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits" koanf:"limits"`

	// ResponseCache contains whole-response cache parameters.
	ResponseCache ResponseCacheConfig `json:"response_cache" koanf:"response_cache"`

	// Janitor contains background maintenance parameters.
	Janitor JanitorConfig `json:"janitor" koanf:"janitor"`

	// Seed is the random seed for aggregation jitter and history
	// shuffling. If zero, a fixed default seed is used.
	Seed int64 `json:"seed" koanf:"seed"`
}

// ResolverConfig contains descriptor-to-tag resolution parameters.
type ResolverConfig struct {
	// MinimumAccepted is the tag count at which resolution stops early.
	// Default: 3.
	MinimumAccepted int `json:"minimum_accepted" koanf:"minimum_accepted"`

	// MaxAttempts bounds taxonomy lookups per request. Default: 10.
	MaxAttempts int `json:"max_attempts" koanf:"max_attempts"`

	// SearchWindow is the number of taxonomy entries requested per
	// lookup. Default: 10.
	SearchWindow int `json:"search_window" koanf:"search_window"`

	// LookupRate is the taxonomy lookup rate limit in calls per second.
	// Default: 20.
	LookupRate float64 `json:"lookup_rate" koanf:"lookup_rate"`

	// LookupBurst is the rate limiter burst size. Default: 1.
	LookupBurst int `json:"lookup_burst" koanf:"lookup_burst"`

	// PerCallTimeout bounds each taxonomy lookup. Default: 5s.
	PerCallTimeout time.Duration `json:"per_call_timeout" koanf:"per_call_timeout"`
}

// FetcherConfig contains primary retrieval parameters.
type FetcherConfig struct {
	// PerCallTimeout bounds each retrieval call. Default: 8s.
	PerCallTimeout time.Duration `json:"per_call_timeout" koanf:"per_call_timeout"`

	// MaxConcurrent bounds in-flight retrieval calls. Default: 8.
	MaxConcurrent int `json:"max_concurrent" koanf:"max_concurrent"`

	// MaxTags caps how many resolved tags are queried. Default: 5.
	MaxTags int `json:"max_tags" koanf:"max_tags"`

	// PerCallLimit is the entity count requested per retrieval call.
	// Default: 25.
	PerCallLimit int `json:"per_call_limit" koanf:"per_call_limit"`

	// OffsetSpread bounds seed-derived pagination offsets. Default: 50.
	OffsetSpread int `json:"offset_spread" koanf:"offset_spread"`

	// PopularityMin drops entities below this popularity on the primary
	// tier. Broadened retrieval ignores it. Default: 0.05.
	PopularityMin float64 `json:"popularity_min" koanf:"popularity_min"`
}

// ScoringConfig contains relevance boost multipliers. All boosts are
// multiplicative on a popularity base, so they must be at least 1.
type ScoringConfig struct {
	// UserAffinityBoost applies when a candidate matches the user's own
	// top artists or tracks, or was retrieved signal-aware. Default: 2.0.
	UserAffinityBoost float64 `json:"user_affinity_boost" koanf:"user_affinity_boost"`

	// GenreBoostMin is the genre-intersection boost at low overlap or
	// low energy. Default: 1.2.
	GenreBoostMin float64 `json:"genre_boost_min" koanf:"genre_boost_min"`

	// GenreBoostMax is the genre-intersection boost at high overlap or
	// high energy. Default: 1.4.
	GenreBoostMax float64 `json:"genre_boost_max" koanf:"genre_boost_max"`

	// LocationBoost applies when a candidate matches the request
	// locality. Default: 1.3.
	LocationBoost float64 `json:"location_boost" koanf:"location_boost"`

	// CulturalBoost applies when a candidate matches cultural context
	// elements. Default: 1.2.
	CulturalBoost float64 `json:"cultural_boost" koanf:"cultural_boost"`

	// PopularStrategyBoost applies to candidates from the
	// popularity-targeted strategy. Default: 1.1.
	PopularStrategyBoost float64 `json:"popular_strategy_boost" koanf:"popular_strategy_boost"`

	// DiversityStrategyBoost applies to candidates from the
	// offset-diversity strategy. Default: 1.05.
	DiversityStrategyBoost float64 `json:"diversity_strategy_boost" koanf:"diversity_strategy_boost"`
}

// VarietyConfig contains repetition-suppression cache parameters.
type VarietyConfig struct {
	// Capacity is the maximum suppressed identity count. Default: 50.
	Capacity int `json:"capacity" koanf:"capacity"`

	// Floor is the result count below which filtered-out candidates are
	// re-admitted in score order. Default: 20.
	Floor int `json:"floor" koanf:"floor"`

	// HighWaterMark is the utilization at which the janitor clears the
	// cache, in (0,1]. Default: 0.8.
	HighWaterMark float64 `json:"high_water_mark" koanf:"high_water_mark"`
}

// CascadeConfig contains fallback tier parameters.
type CascadeConfig struct {
	// TierTimeout bounds each tier's total work. Default: 12s.
	TierTimeout time.Duration `json:"tier_timeout" koanf:"tier_timeout"`

	// MaxHistoryArtists caps how many of the user's own artists seed the
	// history substitution tier. Default: 10.
	MaxHistoryArtists int `json:"max_history_artists" koanf:"max_history_artists"`

	// SimilarPerArtist is the similar-entity enrichment count per history
	// artist. Zero disables enrichment. Default: 2.
	SimilarPerArtist int `json:"similar_per_artist" koanf:"similar_per_artist"`

	// SimilarTimeout bounds each similar-entity lookup. Default: 15s.
	SimilarTimeout time.Duration `json:"similar_timeout" koanf:"similar_timeout"`
}

// AggregatorConfig contains secondary provider merge parameters.
type AggregatorConfig struct {
	// MaxProviders is the provider count queried per aggregation.
	// Default: 3.
	MaxProviders int `json:"max_providers" koanf:"max_providers"`

	// MinPerProvider is the smallest per-provider request size.
	// Default: 5.
	MinPerProvider int `json:"min_per_provider" koanf:"min_per_provider"`

	// MaxTotal caps the merged candidate count. Default: 50.
	MaxTotal int `json:"max_total" koanf:"max_total"`

	// QuotaSlack is added to the per-provider merge quota so one provider
	// can cover another's shortfall. Default: 2.
	QuotaSlack int `json:"quota_slack" koanf:"quota_slack"`

	// PerCallTimeout bounds each provider call. Default: 10s.
	PerCallTimeout time.Duration `json:"per_call_timeout" koanf:"per_call_timeout"`

	// CategoryPriority orders providers for category-driven requests.
	// Default: youtube, lastfm, deezer.
	CategoryPriority []string `json:"category_priority" koanf:"category_priority"`

	// MoodPriority orders providers for mood-driven requests.
	// Default: lastfm, deezer, youtube.
	MoodPriority []string `json:"mood_priority" koanf:"mood_priority"`

	// ProviderBonus maps provider name to a variety score bonus.
	// Default: lastfm 0.3.
	ProviderBonus map[string]float64 `json:"provider_bonus" koanf:"provider_bonus"`

	// DefaultBonus is the variety score bonus for providers absent from
	// ProviderBonus. Default: 0.2.
	DefaultBonus float64 `json:"default_bonus" koanf:"default_bonus"`

	// KeywordBoost is added when a candidate matches the request keyword.
	// Default: 0.3.
	KeywordBoost float64 `json:"keyword_boost" koanf:"keyword_boost"`

	// JitterMax is the upper bound of the uniform tie-breaking jitter
	// added to variety scores. Default: 0.3.
	JitterMax float64 `json:"jitter_max" koanf:"jitter_max"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// DefaultLimit is the result count when the request omits one.
	// Default: 20.
	DefaultLimit int `json:"default_limit" koanf:"default_limit"`

	// MaxLimit caps the requestable result count. Default: 100.
	MaxLimit int `json:"max_limit" koanf:"max_limit"`

	// DefaultMinimum is the cascade advance floor when the request omits
	// one. Default: 5.
	DefaultMinimum int `json:"default_minimum" koanf:"default_minimum"`

	// RequestTimeout bounds the whole request. Default: 30s.
	RequestTimeout time.Duration `json:"request_timeout" koanf:"request_timeout"`
}

// ResponseCacheConfig contains whole-response cache parameters.
type ResponseCacheConfig struct {
	// Enabled turns the response cache on. Default: true.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// TTL is the response lifetime. Default: 5m.
	TTL time.Duration `json:"ttl" koanf:"ttl"`

	// Size is the maximum cached response count. Default: 256.
	Size int `json:"size" koanf:"size"`
}

// JanitorConfig contains background maintenance parameters.
type JanitorConfig struct {
	// Interval is the maintenance sweep period. Default: 30s.
	Interval time.Duration `json:"interval" koanf:"interval"`
}

// DefaultConfig returns a configuration with production defaults.
func DefaultConfig() Config {
	return Config{
		Resolver: ResolverConfig{
			MinimumAccepted: 3,
			MaxAttempts:     10,
			SearchWindow:    10,
			LookupRate:      20,
			LookupBurst:     1,
			PerCallTimeout:  5 * time.Second,
		},
		Fetcher: FetcherConfig{
			PerCallTimeout: 8 * time.Second,
			MaxConcurrent:  8,
			MaxTags:        5,
			PerCallLimit:   25,
			OffsetSpread:   50,
			PopularityMin:  0.05,
		},
		Scoring: ScoringConfig{
			UserAffinityBoost:      2.0,
			GenreBoostMin:          1.2,
			GenreBoostMax:          1.4,
			LocationBoost:          1.3,
			CulturalBoost:          1.2,
			PopularStrategyBoost:   1.1,
			DiversityStrategyBoost: 1.05,
		},
		Variety: VarietyConfig{
			Capacity:      50,
			Floor:         20,
			HighWaterMark: 0.8,
		},
		Cascade: CascadeConfig{
			TierTimeout:       12 * time.Second,
			MaxHistoryArtists: 10,
			SimilarPerArtist:  2,
			SimilarTimeout:    15 * time.Second,
		},
		Aggregator: AggregatorConfig{
			MaxProviders:     3,
			MinPerProvider:   5,
			MaxTotal:         50,
			QuotaSlack:       2,
			PerCallTimeout:   10 * time.Second,
			CategoryPriority: []string{"youtube", "lastfm", "deezer"},
			MoodPriority:     []string{"lastfm", "deezer", "youtube"},
			ProviderBonus:    map[string]float64{"lastfm": 0.3},
			DefaultBonus:     0.2,
			KeywordBoost:     0.3,
			JitterMax:        0.3,
		},
		Limits: LimitsConfig{
			DefaultLimit:   20,
			MaxLimit:       100,
			DefaultMinimum: 5,
			RequestTimeout: 30 * time.Second,
		},
		ResponseCache: ResponseCacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
			Size:    256,
		},
		Janitor: JanitorConfig{
			Interval: 30 * time.Second,
		},
		Seed: 0,
	}
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Resolver.MinimumAccepted <= 0 {
		return fmt.Errorf("resolver.minimum_accepted must be positive, got %d", c.Resolver.MinimumAccepted)
	}
	if c.Resolver.MaxAttempts < c.Resolver.MinimumAccepted {
		return fmt.Errorf("resolver.max_attempts must be at least minimum_accepted (%d), got %d",
			c.Resolver.MinimumAccepted, c.Resolver.MaxAttempts)
	}
	if c.Resolver.SearchWindow <= 0 {
		return fmt.Errorf("resolver.search_window must be positive, got %d", c.Resolver.SearchWindow)
	}
	if c.Resolver.LookupRate <= 0 {
		return fmt.Errorf("resolver.lookup_rate must be positive, got %f", c.Resolver.LookupRate)
	}
	if c.Resolver.LookupBurst <= 0 {
		return fmt.Errorf("resolver.lookup_burst must be positive, got %d", c.Resolver.LookupBurst)
	}
	if c.Resolver.PerCallTimeout <= 0 {
		return fmt.Errorf("resolver.per_call_timeout must be positive, got %s", c.Resolver.PerCallTimeout)
	}
	if c.Fetcher.PerCallTimeout <= 0 {
		return fmt.Errorf("fetcher.per_call_timeout must be positive, got %s", c.Fetcher.PerCallTimeout)
	}
	if c.Fetcher.MaxConcurrent <= 0 {
		return fmt.Errorf("fetcher.max_concurrent must be positive, got %d", c.Fetcher.MaxConcurrent)
	}
	if c.Fetcher.MaxTags <= 0 {
		return fmt.Errorf("fetcher.max_tags must be positive, got %d", c.Fetcher.MaxTags)
	}
	if c.Fetcher.PerCallLimit <= 0 {
		return fmt.Errorf("fetcher.per_call_limit must be positive, got %d", c.Fetcher.PerCallLimit)
	}
	if c.Fetcher.OffsetSpread <= 0 {
		return fmt.Errorf("fetcher.offset_spread must be positive, got %d", c.Fetcher.OffsetSpread)
	}
	if c.Fetcher.PopularityMin < 0 || c.Fetcher.PopularityMin >= 1 {
		return fmt.Errorf("fetcher.popularity_min must be in [0,1), got %f", c.Fetcher.PopularityMin)
	}
	for name, v := range map[string]float64{
		"scoring.user_affinity_boost":      c.Scoring.UserAffinityBoost,
		"scoring.genre_boost_min":          c.Scoring.GenreBoostMin,
		"scoring.genre_boost_max":          c.Scoring.GenreBoostMax,
		"scoring.location_boost":           c.Scoring.LocationBoost,
		"scoring.cultural_boost":           c.Scoring.CulturalBoost,
		"scoring.popular_strategy_boost":   c.Scoring.PopularStrategyBoost,
		"scoring.diversity_strategy_boost": c.Scoring.DiversityStrategyBoost,
	} {
		if v < 1 {
			return fmt.Errorf("%s must be at least 1, got %f", name, v)
		}
	}
	if c.Scoring.GenreBoostMax < c.Scoring.GenreBoostMin {
		return fmt.Errorf("scoring.genre_boost_max must be at least genre_boost_min (%f), got %f",
			c.Scoring.GenreBoostMin, c.Scoring.GenreBoostMax)
	}
	if c.Variety.Capacity <= 0 {
		return fmt.Errorf("variety.capacity must be positive, got %d", c.Variety.Capacity)
	}
	if c.Variety.Floor < 0 {
		return fmt.Errorf("variety.floor must not be negative, got %d", c.Variety.Floor)
	}
	if c.Variety.HighWaterMark <= 0 || c.Variety.HighWaterMark > 1 {
		return fmt.Errorf("variety.high_water_mark must be in (0,1], got %f", c.Variety.HighWaterMark)
	}
	if c.Cascade.TierTimeout <= 0 {
		return fmt.Errorf("cascade.tier_timeout must be positive, got %s", c.Cascade.TierTimeout)
	}
	if c.Cascade.MaxHistoryArtists <= 0 {
		return fmt.Errorf("cascade.max_history_artists must be positive, got %d", c.Cascade.MaxHistoryArtists)
	}
	if c.Cascade.SimilarPerArtist < 0 {
		return fmt.Errorf("cascade.similar_per_artist must not be negative, got %d", c.Cascade.SimilarPerArtist)
	}
	if c.Cascade.SimilarTimeout <= 0 {
		return fmt.Errorf("cascade.similar_timeout must be positive, got %s", c.Cascade.SimilarTimeout)
	}
	if c.Aggregator.MaxProviders <= 0 {
		return fmt.Errorf("aggregator.max_providers must be positive, got %d", c.Aggregator.MaxProviders)
	}
	if c.Aggregator.MinPerProvider <= 0 {
		return fmt.Errorf("aggregator.min_per_provider must be positive, got %d", c.Aggregator.MinPerProvider)
	}
	if c.Aggregator.MaxTotal <= 0 {
		return fmt.Errorf("aggregator.max_total must be positive, got %d", c.Aggregator.MaxTotal)
	}
	if c.Aggregator.QuotaSlack < 0 {
		return fmt.Errorf("aggregator.quota_slack must not be negative, got %d", c.Aggregator.QuotaSlack)
	}
	if c.Aggregator.PerCallTimeout <= 0 {
		return fmt.Errorf("aggregator.per_call_timeout must be positive, got %s", c.Aggregator.PerCallTimeout)
	}
	if c.Aggregator.DefaultBonus < 0 {
		return fmt.Errorf("aggregator.default_bonus must not be negative, got %f", c.Aggregator.DefaultBonus)
	}
	if c.Aggregator.KeywordBoost < 0 {
		return fmt.Errorf("aggregator.keyword_boost must not be negative, got %f", c.Aggregator.KeywordBoost)
	}
	if c.Aggregator.JitterMax < 0 {
		return fmt.Errorf("aggregator.jitter_max must not be negative, got %f", c.Aggregator.JitterMax)
	}
	if c.Limits.DefaultLimit <= 0 {
		return fmt.Errorf("limits.default_limit must be positive, got %d", c.Limits.DefaultLimit)
	}
	if c.Limits.MaxLimit < c.Limits.DefaultLimit {
		return fmt.Errorf("limits.max_limit must be at least default_limit (%d), got %d",
			c.Limits.DefaultLimit, c.Limits.MaxLimit)
	}
	if c.Limits.DefaultMinimum <= 0 {
		return fmt.Errorf("limits.default_minimum must be positive, got %d", c.Limits.DefaultMinimum)
	}
	if c.Limits.RequestTimeout <= 0 {
		return fmt.Errorf("limits.request_timeout must be positive, got %s", c.Limits.RequestTimeout)
	}
	if c.ResponseCache.Enabled {
		if c.ResponseCache.TTL <= 0 {
			return fmt.Errorf("response_cache.ttl must be positive, got %s", c.ResponseCache.TTL)
		}
		if c.ResponseCache.Size <= 0 {
			return fmt.Errorf("response_cache.size must be positive, got %d", c.ResponseCache.Size)
		}
	}
	if c.Janitor.Interval <= 0 {
		return fmt.Errorf("janitor.interval must be positive, got %s", c.Janitor.Interval)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() Config {
	out := *c
	out.Aggregator.CategoryPriority = append([]string(nil), c.Aggregator.CategoryPriority...)
	out.Aggregator.MoodPriority = append([]string(nil), c.Aggregator.MoodPriority...)
	if c.Aggregator.ProviderBonus != nil {
		out.Aggregator.ProviderBonus = make(map[string]float64, len(c.Aggregator.ProviderBonus))
		for k, v := range c.Aggregator.ProviderBonus {
			out.Aggregator.ProviderBonus[k] = v
		}
	}
	return out
}
