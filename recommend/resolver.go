// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/attune/internal/metrics"
)

// TagResolver maps free-text descriptors to taxonomy identifiers
// understood by the primary provider. When caller descriptors resolve
// fewer than the configured minimum, it retries with domain-specific
// fallback vocabulary tiers until the minimum is reached or the attempt
// budget is exhausted.
//
// Resolve never returns an error. On total failure it returns an empty
// list; callers fall back to the hardcoded domain tag set.
type TagResolver struct {
	taxonomy TaxonomySearcher
	cfg      ResolverConfig
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// NewTagResolver creates a resolver. The taxonomy searcher may be nil;
// resolution then always returns empty.
func NewTagResolver(taxonomy TaxonomySearcher, cfg ResolverConfig, logger zerolog.Logger) *TagResolver {
	return &TagResolver{
		taxonomy: taxonomy,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.LookupRate), cfg.LookupBurst),
		logger:   logger.With().Str("component", "resolver").Logger(),
	}
}

// queuedDescriptor is one pending taxonomy lookup.
type queuedDescriptor struct {
	query      string
	confidence MatchConfidence
}

// Resolve maps descriptors to taxonomy tags for a domain. Duplicate
// descriptors and duplicate resolved identifiers are dropped. The result
// may be empty; zero tags is a valid, non-error outcome.
func (r *TagResolver) Resolve(ctx context.Context, descriptors []string, domain Domain) []ResolvedTag {
	minAccepted := r.cfg.MinimumAccepted
	maxAttempts := r.cfg.MaxAttempts
	vocab := fallbackVocabulary(domain)

	resolved := make([]ResolvedTag, 0, minAccepted)
	if r.taxonomy == nil {
		return resolved
	}

	seenIDs := make(map[string]struct{})
	tried := make(map[string]struct{})

	queue := make([]queuedDescriptor, 0, len(descriptors))
	for _, d := range descriptors {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		key := strings.ToLower(d)
		if _, ok := tried[key]; ok {
			continue
		}
		tried[key] = struct{}{}
		queue = append(queue, queuedDescriptor{query: d, confidence: MatchTyped})
	}

	attempts := 0
	tierIdx := 0

	for i := 0; ; i++ {
		// Top up the queue from the next vocabulary tier once caller
		// descriptors are exhausted and the minimum is still unmet.
		for i >= len(queue) && len(resolved) < minAccepted && attempts < maxAttempts && tierIdx < len(vocab) {
			added := 0
			for _, term := range vocab[tierIdx] {
				key := strings.ToLower(term)
				if _, ok := tried[key]; ok {
					continue
				}
				tried[key] = struct{}{}
				queue = append(queue, queuedDescriptor{query: term, confidence: MatchFallback})
				added++
			}
			r.logger.Info().
				Int("tier", tierIdx+1).
				Int("added", added).
				Int("resolved", len(resolved)).
				Msg("appending fallback vocabulary tier")
			tierIdx++
		}
		if i >= len(queue) || len(resolved) >= minAccepted || attempts >= maxAttempts {
			break
		}

		item := queue[i]
		attempts++

		if err := r.limiter.Wait(ctx); err != nil {
			r.logger.Debug().Err(err).Msg("resolution interrupted")
			break
		}

		lookupCtx, cancel := context.WithTimeout(ctx, r.cfg.PerCallTimeout)
		entries, err := r.taxonomy.SearchTags(lookupCtx, item.query, r.cfg.SearchWindow)
		cancel()
		if err != nil {
			metrics.RecordResolverLookup("error")
			r.logger.Debug().Err(err).Str("query", item.query).Msg("taxonomy lookup failed")
			continue
		}
		if len(entries) == 0 {
			metrics.RecordResolverLookup("miss")
			continue
		}

		entry := pickTagEntry(entries)
		if _, ok := seenIDs[entry.ID]; ok {
			metrics.RecordResolverLookup("miss")
			continue
		}
		seenIDs[entry.ID] = struct{}{}

		resolved = append(resolved, ResolvedTag{
			Query:      item.query,
			TagID:      entry.ID,
			Name:       entry.Name,
			Type:       entry.Type,
			Domain:     domain,
			Confidence: item.confidence,
		})
		metrics.RecordResolverLookup(item.confidence.String())
	}

	metrics.ResolverAttempts.Observe(float64(attempts))
	if len(resolved) < minAccepted {
		metrics.ResolverShortfalls.Inc()
		r.logger.Warn().
			Int("resolved", len(resolved)).
			Int("minimum", minAccepted).
			Int("attempts", attempts).
			Str("domain", domain.String()).
			Msg("resolution below minimum after exhausting vocabulary or attempts")
	} else {
		r.logger.Debug().
			Int("resolved", len(resolved)).
			Int("attempts", attempts).
			Msg("resolution complete")
	}

	return resolved
}

// pickTagEntry selects the best entry from a relevance-sorted window:
// the earliest entry with the most preferred taxonomy type, or the top
// result when nothing is preferred.
func pickTagEntry(entries []TagEntry) TagEntry {
	best := entries[0]
	bestRank, bestPreferred := tagTypeRank(best.Type)
	for _, e := range entries[1:] {
		rank, preferred := tagTypeRank(e.Type)
		if preferred && (!bestPreferred || rank < bestRank) {
			best = e
			bestRank = rank
			bestPreferred = true
		}
	}
	return best
}
