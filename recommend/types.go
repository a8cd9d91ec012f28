// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"fmt"
	"strings"
	"time"
)

// Domain identifies the content vertical a request targets.
type Domain int

const (
	// DomainMusic targets music artists.
	DomainMusic Domain = iota

	// DomainMovie targets feature films.
	DomainMovie

	// DomainTV targets television shows.
	DomainTV

	// DomainPodcast targets podcasts.
	DomainPodcast

	// DomainBook targets books.
	DomainBook
)

// String returns the canonical lowercase name of the domain.
func (d Domain) String() string {
	switch d {
	case DomainMusic:
		return "music"
	case DomainMovie:
		return "movie"
	case DomainTV:
		return "tv"
	case DomainPodcast:
		return "podcast"
	case DomainBook:
		return "book"
	default:
		return "unknown"
	}
}

// Valid reports whether the domain is one of the known verticals.
func (d Domain) Valid() bool {
	return d >= DomainMusic && d <= DomainBook
}

// EntityLabel returns the label applied to candidates in this domain.
func (d Domain) EntityLabel() string {
	switch d {
	case DomainMusic:
		return "artist"
	default:
		return d.String()
	}
}

// ParseDomain converts a lowercase domain name to a Domain.
func ParseDomain(s string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "music", "artist":
		return DomainMusic, nil
	case "movie", "film":
		return DomainMovie, nil
	case "tv", "tv_show", "show":
		return DomainTV, nil
	case "podcast":
		return DomainPodcast, nil
	case "book":
		return DomainBook, nil
	default:
		return DomainMusic, fmt.Errorf("unknown domain %q", s)
	}
}

// MatchConfidence describes how a taxonomy tag was obtained.
type MatchConfidence int

const (
	// MatchTyped means the tag was resolved from a caller-supplied descriptor.
	MatchTyped MatchConfidence = iota

	// MatchFallback means the tag was resolved from the fallback vocabulary
	// after caller descriptors failed to produce enough matches.
	MatchFallback
)

// String returns the confidence label used in logs and metadata.
func (c MatchConfidence) String() string {
	switch c {
	case MatchTyped:
		return "typed"
	case MatchFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// ResolvedTag pairs a descriptor with the taxonomy identifier it resolved to.
type ResolvedTag struct {
	// Query is the descriptor that was searched.
	Query string `json:"query"`

	// TagID is the provider taxonomy identifier.
	TagID string `json:"tag_id"`

	// Name is the display name of the matched taxonomy entry.
	Name string `json:"name"`

	// Type is the taxonomy type of the matched entry, used to prefer
	// genre and mood categories over generic matches.
	Type string `json:"type"`

	// Domain is the vertical the tag was resolved for.
	Domain Domain `json:"domain"`

	// Confidence records whether the tag came from a caller descriptor
	// or from the fallback vocabulary.
	Confidence MatchConfidence `json:"confidence"`
}

// UserSignal carries caller-collected taste evidence for one user.
// All fields are optional; an empty signal disables affinity boosting
// and the history substitution tier.
type UserSignal struct {
	// ArtistIDs are provider entity identifiers for the user's top artists.
	ArtistIDs []string `json:"artist_ids,omitempty"`

	// ArtistNames are display names for the user's top artists, used for
	// affinity matching and history substitution.
	ArtistNames []string `json:"artist_names,omitempty"`

	// TrackIDs are provider entity identifiers for the user's top tracks.
	TrackIDs []string `json:"track_ids,omitempty"`

	// TrackNames are display names for the user's top tracks.
	TrackNames []string `json:"track_names,omitempty"`

	// PreferredGenres are the user's inferred genre preferences.
	PreferredGenres []string `json:"preferred_genres,omitempty"`

	// Country is the user's ISO 3166-1 alpha-2 country code.
	Country string `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`

	// Location is a free-form locality override. When empty, a locality
	// is derived from Country.
	Location string `json:"location,omitempty" validate:"omitempty,max=128"`

	// LocationRadiusMeters bounds location-filtered retrieval.
	LocationRadiusMeters int `json:"location_radius_meters,omitempty" validate:"gte=0,lte=500000"`
}

// HasTaste reports whether the signal carries any entity-level evidence.
func (s *UserSignal) HasTaste() bool {
	if s == nil {
		return false
	}
	return len(s.ArtistIDs) > 0 || len(s.TrackIDs) > 0 ||
		len(s.ArtistNames) > 0 || len(s.TrackNames) > 0
}

// CulturalContext describes the cultural frame a request should honor.
type CulturalContext struct {
	// Region is a coarse cultural region label such as "south_asia".
	Region string `json:"region,omitempty" validate:"omitempty,max=64"`

	// LanguagePreference is the preferred content language, lowercase.
	LanguagePreference string `json:"language_preference,omitempty" validate:"omitempty,max=32"`

	// CulturalElements are context keywords (e.g. "bollywood", "k-pop")
	// that boost matching candidates.
	CulturalElements []string `json:"cultural_elements,omitempty" validate:"max=16,dive,min=1,max=64"`

	// PopularGenres are genres popular in the region, merged into the
	// genre-intersection boost.
	PopularGenres []string `json:"popular_genres,omitempty" validate:"max=16,dive,min=1,max=64"`
}

// Intent carries the output of an upstream intent classifier. The engine
// consumes it as opaque input; it never runs classification itself.
type Intent struct {
	// PrimaryMood is the dominant mood extracted from free text.
	PrimaryMood string `json:"primary_mood,omitempty" validate:"omitempty,max=64"`

	// ActivityType names the activity the content should accompany.
	ActivityType string `json:"activity_type,omitempty" validate:"omitempty,max=64"`

	// EnergyLevel is one of "low", "medium", or "high". Unknown values
	// are treated as "medium".
	EnergyLevel string `json:"energy_level,omitempty" validate:"omitempty,oneof=low medium high"`
}

// Candidate is one recommendable entity flowing through the pipeline.
type Candidate struct {
	// Identity is the canonical deduplication key: the normalized name,
	// or the provider identifier when no name is available.
	Identity string `json:"identity"`

	// ProviderID is the upstream entity identifier, when known.
	ProviderID string `json:"provider_id,omitempty"`

	// Name is the display name.
	Name string `json:"name"`

	// Type is the entity label, e.g. "artist".
	Type string `json:"type"`

	// Popularity is the provider popularity normalized to [0,1].
	Popularity float64 `json:"popularity"`

	// Tags are genre and descriptor labels attached by the source.
	Tags []string `json:"tags,omitempty"`

	// SourceStrategy names the retrieval strategy that produced the
	// candidate ("baseline", "diversity", "popular", "signal", "aggregate").
	SourceStrategy string `json:"source_strategy,omitempty"`

	// SourceProvider names the upstream that produced the candidate.
	SourceProvider string `json:"source_provider,omitempty"`

	// VarietySeed is the seed of the request that retrieved the candidate.
	VarietySeed uint64 `json:"variety_seed,omitempty"`

	// CulturalRelevance is the cultural-match component in [0,1].
	CulturalRelevance float64 `json:"cultural_relevance,omitempty"`

	// LocationRelevance is the location-match component in [0,1].
	LocationRelevance float64 `json:"location_relevance,omitempty"`

	// UserTasteRelevance marks candidates that matched the user's own
	// top artists or tracks, or were retrieved signal-aware.
	UserTasteRelevance bool `json:"user_taste_relevance,omitempty"`

	// RelevanceScore is the final ranking score.
	RelevanceScore float64 `json:"relevance_score"`
}

// Request asks the engine for recommendations.
type Request struct {
	// RequestID correlates logs, metadata, and history events. When
	// empty, the engine generates one.
	RequestID string `json:"request_id,omitempty" validate:"omitempty,max=128"`

	// UserKey identifies the requesting user for history events and
	// response caching. Optional; anonymous requests are served.
	UserKey string `json:"user_key,omitempty" validate:"omitempty,max=256"`

	// Domain selects the content vertical. Defaults to music.
	Domain Domain `json:"domain" validate:"gte=0,lte=4"`

	// Descriptors are free-form taste terms ("melancholic indie").
	// May be empty; resolution then starts from the fallback vocabulary.
	Descriptors []string `json:"descriptors,omitempty" validate:"max=32,dive,min=1,max=128"`

	// Limit is the maximum number of candidates to return. Zero selects
	// the configured default.
	Limit int `json:"limit,omitempty" validate:"gte=0,lte=200"`

	// MinimumResults is the floor below which the fallback cascade
	// advances to the next tier. Zero selects the configured default.
	MinimumResults int `json:"minimum_results,omitempty" validate:"gte=0,lte=200"`

	// Signal is the user's taste evidence. Optional.
	Signal *UserSignal `json:"signal,omitempty"`

	// Cultural is the cultural frame. Optional.
	Cultural *CulturalContext `json:"cultural,omitempty"`

	// Intent is the upstream classifier output. Optional.
	Intent *Intent `json:"intent,omitempty"`
}

// Response is the engine's answer to a Request. Candidates is never
// empty unless the request itself was rejected as invalid.
type Response struct {
	// Candidates are the ranked recommendations, highest score first.
	Candidates []Candidate `json:"candidates"`

	// Metadata describes how the response was produced.
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata carries provenance for observability and debugging.
type ResponseMetadata struct {
	// RequestID echoes or assigns the request correlation identifier.
	RequestID string `json:"request_id"`

	// Domain is the served vertical.
	Domain string `json:"domain"`

	// GeneratedAt is the UTC completion time.
	GeneratedAt time.Time `json:"generated_at"`

	// LatencyMS is the end-to-end serving latency in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// TierServed is the cascade tier that produced the response (1-5).
	TierServed int `json:"tier_served"`

	// TierName is the human-readable tier label.
	TierName string `json:"tier_name"`

	// VarietySeed is the deterministic seed used for retrieval offsets.
	VarietySeed uint64 `json:"variety_seed"`

	// TagIDs are the taxonomy identifiers the request resolved to.
	TagIDs []string `json:"tag_ids,omitempty"`

	// StrategiesUsed names the retrieval strategies that ran.
	StrategiesUsed []string `json:"strategies_used,omitempty"`

	// ProvidersUsed names the upstream providers that contributed.
	ProvidersUsed []string `json:"providers_used,omitempty"`

	// ProviderCounts maps provider name to contributed candidate count.
	ProviderCounts map[string]int `json:"provider_counts,omitempty"`

	// PoolSize is the merged candidate count before deduplication.
	PoolSize int `json:"pool_size"`

	// Deduplicated is the number of candidates dropped as duplicates.
	Deduplicated int `json:"deduplicated"`

	// FilteredByVariety is the number of candidates suppressed because
	// they were surfaced recently.
	FilteredByVariety int `json:"filtered_by_variety"`

	// CacheHit marks responses served from the response cache.
	CacheHit bool `json:"cache_hit"`

	// VarietyCache is a snapshot of variety cache occupancy.
	VarietyCache CacheStats `json:"variety_cache"`
}

// CacheStats is a point-in-time snapshot of variety cache occupancy.
type CacheStats struct {
	// Count is the number of identities currently suppressed.
	Count int `json:"count"`

	// Capacity is the configured maximum identity count.
	Capacity int `json:"capacity"`

	// Utilization is Count divided by Capacity.
	Utilization float64 `json:"utilization"`
}
