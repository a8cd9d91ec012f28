// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// SortOrder selects how the primary provider orders retrieval results.
type SortOrder int

const (
	// SortRelevance orders by provider affinity to the query tags.
	SortRelevance SortOrder = iota

	// SortPopularity orders by global popularity.
	SortPopularity
)

// String returns the wire value passed to the primary provider.
func (s SortOrder) String() string {
	switch s {
	case SortPopularity:
		return "popularity"
	default:
		return "relevance"
	}
}

// TagEntry is one taxonomy search result from the primary provider.
type TagEntry struct {
	// ID is the taxonomy identifier, e.g. "urn:tag:genre:music:indie".
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Type is the taxonomy type, e.g. "urn:tag:genre:music". Resolution
	// prefers genre, mood, and style types over generic matches.
	Type string `json:"type"`
}

// RawEntity is one entity returned by primary retrieval, already lifted
// out of the provider envelope by the client.
type RawEntity struct {
	// ID is the provider entity identifier.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Type is the provider entity type label.
	Type string `json:"type"`

	// Popularity is the provider popularity score, expected in [0,1].
	Popularity float64 `json:"popularity"`

	// Tags are genre and descriptor labels attached by the provider.
	Tags []string `json:"tags,omitempty"`

	// Payload preserves provider fields the engine does not model.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RetrievalFilters narrows primary retrieval.
type RetrievalFilters struct {
	// Domain selects the entity vertical to retrieve.
	Domain Domain

	// PopularityMin drops entities below this popularity. Zero disables
	// the filter.
	PopularityMin float64

	// Location biases retrieval toward a locality. Empty disables.
	Location string

	// RadiusMeters bounds the location bias. Zero selects the provider
	// default.
	RadiusMeters int

	// SignalEntityIDs are user taste entities the provider should weight.
	SignalEntityIDs []string
}

// TaxonomySearcher resolves free-form descriptors against the primary
// provider's tag taxonomy.
type TaxonomySearcher interface {
	// SearchTags returns taxonomy entries matching the query, most
	// relevant first.
	SearchTags(ctx context.Context, query string, limit int) ([]TagEntry, error)
}

// PrimaryRetriever fetches entities from the primary knowledge provider.
type PrimaryRetriever interface {
	// FetchByTags returns entities associated with the given taxonomy
	// identifiers, honoring filters, ordering, and pagination.
	FetchByTags(ctx context.Context, tagIDs []string, filters RetrievalFilters, sort SortOrder, offset, limit int) ([]RawEntity, error)

	// SearchEntity resolves a display name to a provider entity, or
	// returns nil when nothing matches.
	SearchEntity(ctx context.Context, name string, domain Domain) (*RawEntity, error)
}

// DiscoveryProvider is one secondary content discovery source. Methods
// return provider-native JSON documents; the aggregator normalizes their
// heterogeneous shapes into candidates.
type DiscoveryProvider interface {
	// Name returns the stable provider name used for metrics, priority
	// ordering, and score bonuses (e.g. "lastfm").
	Name() string

	// SearchByCategory returns entries for a category keyword such as
	// "bollywood" or "k-pop".
	SearchByCategory(ctx context.Context, category string, limit int) ([]json.RawMessage, error)

	// SearchByMood returns entries for a mood keyword such as "upbeat".
	SearchByMood(ctx context.Context, mood string, limit int) ([]json.RawMessage, error)

	// SearchByName returns entries matching an entity name.
	SearchByName(ctx context.Context, query string, limit int) ([]json.RawMessage, error)
}

// SimilarityProvider is an optional capability of a DiscoveryProvider:
// lookup of entities similar to a named one, used to enrich the history
// substitution tier.
type SimilarityProvider interface {
	// SimilarByName returns entries similar to the named entity.
	SimilarByName(ctx context.Context, name string, limit int) ([]json.RawMessage, error)
}

// HistoryRecord is the engine's write-only account of a served response.
type HistoryRecord struct {
	// RequestID correlates the record with logs and response metadata.
	RequestID string `json:"request_id"`

	// UserKey identifies the user the response was served to.
	UserKey string `json:"user_key,omitempty"`

	// Domain is the served vertical.
	Domain string `json:"domain"`

	// Descriptors are the caller's original taste terms.
	Descriptors []string `json:"descriptors,omitempty"`

	// TagIDs are the taxonomy identifiers the request resolved to.
	TagIDs []string `json:"tag_ids,omitempty"`

	// TierServed is the cascade tier that produced the response.
	TierServed int `json:"tier_served"`

	// Candidates are the served recommendations.
	Candidates []Candidate `json:"candidates"`

	// GeneratedAt is the UTC serving time.
	GeneratedAt time.Time `json:"generated_at"`
}

// HistoryRecorder persists served responses for downstream analytics.
// The engine only writes; it never reads history back. Failures are
// logged and never affect the response.
type HistoryRecorder interface {
	// Record persists one served response.
	Record(ctx context.Context, rec HistoryRecord) error
}
