// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

// Package recommend implements a recommendation aggregation and variety
// engine for taste-based content discovery.
//
// # Architecture
//
// The engine turns free-form taste descriptors into a ranked, deduplicated,
// repetition-aware list of candidates by running a fixed pipeline:
//
//   - TagResolver: descriptors -> provider taxonomy identifiers
//   - CandidateFetcher: parallel multi-strategy retrieval from the primary provider
//   - Scorer: deduplication and multiplicative relevance boosting
//   - VarietyCache: cross-request suppression of recently surfaced candidates
//   - FallbackCascade: degradation tiers that guarantee a non-empty result
//   - ProviderAggregator: quota-based merging of secondary discovery providers
//
// # Design Principles
//
// The engine is designed with the following production-grade requirements:
//
//   - Deterministic: Same inputs in the same minute produce identical
//     retrieval offsets (seeded variety hashing)
//   - Degraded, never empty: every upstream failure is absorbed by a
//     cascade tier, terminating in a static regional list
//   - Auditable: All operations are logged with structured fields
//   - Observable: Metrics exposed for monitoring
//   - Traceable: Request IDs propagated through responses and history events
//
// # Fallback Tiers
//
// When the primary pipeline returns fewer results than the caller's
// minimum, the cascade advances through progressively simpler sources:
//
//   - Tier 1: primary retrieval with full signal weighting
//   - Tier 2: broadened primary retrieval without signal filters
//   - Tier 3: secondary provider aggregation
//   - Tier 4: substitution from the user's own listening history
//   - Tier 5: static regional lists (always succeeds)
//
// # Usage
//
//	cfg := recommend.DefaultConfig()
//	engine, err := recommend.NewEngine(cfg, logger, recommend.Dependencies{
//	    Taxonomy:  taxonomyClient,
//	    Retriever: insightsClient,
//	    Providers: []recommend.DiscoveryProvider{lastfm, deezer, youtube},
//	    History:   recorder,
//	})
//
//	resp, err := engine.Recommend(ctx, recommend.Request{
//	    Descriptors: []string{"melancholic indie", "shoegaze"},
//	    Domain:      recommend.DomainMusic,
//	    Limit:       20,
//	})
//
// # Thread Safety
//
// The engine is safe for concurrent use. The variety cache serializes
// filter and record operations behind a single mutex, and the seeded
// random source used for aggregation jitter is mutex-guarded.
package recommend
