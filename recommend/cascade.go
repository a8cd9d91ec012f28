// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/attune/internal/metrics"
)

// requestState carries per-request derived context across cascade tiers
// and back to the engine for response metadata.
type requestState struct {
	tags     []ResolvedTag
	location string
	region   string
	language string
	category string
	mood     string

	fetch             FetchInfo
	poolSize          int
	rankedSize        int
	filteredByVariety int
	providersUsed     map[string]int
	strategies        []string
}

// tagIDs returns the resolved taxonomy identifiers.
func (st *requestState) tagIDs() []string {
	ids := make([]string, 0, len(st.tags))
	for _, t := range st.tags {
		ids = append(ids, t.TagID)
	}
	return ids
}

// noteProvider accumulates per-provider contribution counts.
func (st *requestState) noteProvider(name string, count int) {
	if st.providersUsed == nil {
		st.providersUsed = make(map[string]int)
	}
	st.providersUsed[name] += count
}

// cascadeTier is one degradation stage.
type cascadeTier struct {
	number  int
	name    string
	produce func(ctx context.Context, req *Request, st *requestState) []Candidate
}

// Tier names, used in metadata and metrics.
const (
	tierPrimary   = "primary"
	tierBroadened = "broadened"
	tierAggregate = "aggregate"
	tierHistory   = "history"
	tierStatic    = "static"
)

// FallbackCascade tries degradation tiers in order until one satisfies
// the caller's minimum, ending in a static tier that always produces.
// Tier failures (errors, empty output, provider unavailability) advance
// to the next tier; the cascade never returns an error to the engine.
type FallbackCascade struct {
	fetcher    *CandidateFetcher
	scorer     *Scorer
	aggregator *ProviderAggregator
	providers  []DiscoveryProvider
	variety    *VarietyCache
	cfg        CascadeConfig
	rng        *seededRand
	logger     zerolog.Logger
	tiers      []cascadeTier
}

// NewFallbackCascade wires the five standard tiers.
func NewFallbackCascade(
	fetcher *CandidateFetcher,
	scorer *Scorer,
	aggregator *ProviderAggregator,
	providers []DiscoveryProvider,
	variety *VarietyCache,
	cfg CascadeConfig,
	rng *seededRand,
	logger zerolog.Logger,
) *FallbackCascade {
	c := &FallbackCascade{
		fetcher:    fetcher,
		scorer:     scorer,
		aggregator: aggregator,
		providers:  providers,
		variety:    variety,
		cfg:        cfg,
		rng:        rng,
		logger:     logger.With().Str("component", "cascade").Logger(),
	}
	c.tiers = []cascadeTier{
		{1, tierPrimary, c.tierPrimary},
		{2, tierBroadened, c.tierBroadened},
		{3, tierAggregate, c.tierAggregate},
		{4, tierHistory, c.tierHistory},
		{5, tierStatic, c.tierStatic},
	}
	return c
}

// Run advances tier by tier until one tier's variety-filtered output
// meets req.MinimumResults. The terminal static tier is served whatever
// its size, so the result is non-empty for every input.
func (c *FallbackCascade) Run(ctx context.Context, req *Request, st *requestState) ([]Candidate, int, string) {
	var bestCandidates []Candidate
	bestTier := 0
	bestName := ""

	for _, tier := range c.tiers {
		tierCtx, cancel := context.WithTimeout(ctx, c.cfg.TierTimeout)
		candidates := tier.produce(tierCtx, req, st)
		cancel()

		if len(candidates) == 0 {
			metrics.RecordTierShortfall(tier.name, "empty")
			c.logger.Debug().
				Str("tier", tier.name).
				Msg("tier produced nothing, advancing")
			continue
		}

		filtered := c.variety.Filter(candidates)
		st.filteredByVariety += len(candidates) - len(filtered)

		terminal := tier.number == len(c.tiers)
		if len(filtered) >= req.MinimumResults || (terminal && len(filtered) > 0) {
			metrics.RecordTierServed(tier.name)
			if tier.number > 1 {
				c.logger.Info().
					Str("tier", tier.name).
					Int("count", len(filtered)).
					Int("minimum", req.MinimumResults).
					Msg("serving from fallback tier")
			}
			return filtered, tier.number, tier.name
		}

		metrics.RecordTierShortfall(tier.name, "below_floor")
		c.logger.Debug().
			Str("tier", tier.name).
			Int("count", len(filtered)).
			Int("minimum", req.MinimumResults).
			Msg("tier below minimum, advancing")

		if len(filtered) > len(bestCandidates) {
			bestCandidates = filtered
			bestTier = tier.number
			bestName = tier.name
		}
	}

	// The static tier returns non-empty for every input, so reaching
	// here means it was variety-starved in a way Filter could not heal.
	// Serve the best earlier output rather than nothing.
	if len(bestCandidates) > 0 {
		metrics.RecordTierServed(bestName)
		return bestCandidates, bestTier, bestName
	}

	ultimate := StaticCandidates(req.Domain, "global", "any")
	metrics.RecordTierServed(tierStatic)
	return ultimate, len(c.tiers), tierStatic
}

// tierPrimary is tag-based retrieval with full signal weighting.
func (c *FallbackCascade) tierPrimary(ctx context.Context, req *Request, st *requestState) []Candidate {
	if len(st.tags) == 0 {
		return nil
	}

	pool, info := c.fetcher.Fetch(ctx, st.tags, req.Signal, st.location, req.Limit, FetchOptions{})
	st.fetch = info
	st.strategies = appendUnique(st.strategies, info.Strategies...)
	st.poolSize = len(pool)

	ranked := c.scorer.ScoreAndRank(pool, req.Signal, req.Cultural, st.location, req.Intent)
	st.rankedSize = len(ranked)
	if len(ranked) > 0 {
		st.noteProvider("primary", len(ranked))
	}
	return ranked
}

// tierBroadened retries primary retrieval without signal weighting or
// the popularity floor, topping the tag set up with the hardcoded domain
// tags.
func (c *FallbackCascade) tierBroadened(ctx context.Context, req *Request, st *requestState) []Candidate {
	tags := append(append([]ResolvedTag(nil), st.tags...), DefaultDomainTags(req.Domain)...)
	seen := make(map[string]struct{}, len(tags))
	unique := tags[:0]
	for _, t := range tags {
		if _, dup := seen[t.TagID]; dup {
			continue
		}
		seen[t.TagID] = struct{}{}
		unique = append(unique, t)
	}

	pool, info := c.fetcher.Fetch(ctx, unique, req.Signal, st.location, req.Limit, FetchOptions{Broadened: true})
	if st.fetch.Seed == 0 {
		st.fetch = info
	}
	st.strategies = appendUnique(st.strategies, info.Strategies...)
	if len(pool) > st.poolSize {
		st.poolSize = len(pool)
	}

	ranked := c.scorer.ScoreAndRank(pool, nil, req.Cultural, st.location, req.Intent)
	if len(ranked) > st.rankedSize {
		st.rankedSize = len(ranked)
	}
	if len(ranked) > 0 {
		st.noteProvider("primary", len(ranked))
	}
	return ranked
}

// tierAggregate merges independent discovery providers.
func (c *FallbackCascade) tierAggregate(ctx context.Context, req *Request, st *requestState) []Candidate {
	if c.aggregator == nil {
		return nil
	}

	res := c.aggregator.Aggregate(ctx, AggregateRequest{
		Category: st.category,
		Mood:     st.mood,
		Region:   st.region,
		Domain:   req.Domain,
		Limit:    req.Limit,
	})
	for name, count := range res.Stats.PerProvider {
		st.noteProvider(name, count)
	}
	if len(res.Candidates) > 0 {
		st.strategies = appendUnique(st.strategies, "aggregate")
	}
	return res.Candidates
}

// tierHistory substitutes the user's own top artists, optionally
// enriched with similar-entity lookups, in seeded shuffled order.
func (c *FallbackCascade) tierHistory(ctx context.Context, req *Request, st *requestState) []Candidate {
	if req.Signal == nil || len(req.Signal.ArtistNames) == 0 {
		return nil
	}

	names := req.Signal.ArtistNames
	if len(names) > c.cfg.MaxHistoryArtists {
		names = names[:c.cfg.MaxHistoryArtists]
	}

	candidates := make([]Candidate, 0, len(names)*(1+c.cfg.SimilarPerArtist))
	seen := make(map[string]struct{}, cap(candidates))

	for i, name := range names {
		identity := CanonicalIdentity(name, "")
		if identity == "" {
			continue
		}
		if _, dup := seen[identity]; dup {
			continue
		}
		seen[identity] = struct{}{}

		// Rank position stands in for popularity; the provider is not
		// consulted for the user's own artists.
		pop := 0.9 - 0.03*float64(i)
		candidates = append(candidates, Candidate{
			Identity:           identity,
			Name:               name,
			Type:               req.Domain.EntityLabel(),
			Popularity:         pop,
			SourceStrategy:     tierHistory,
			SourceProvider:     tierHistory,
			UserTasteRelevance: true,
			RelevanceScore:     pop,
		})
	}

	if c.cfg.SimilarPerArtist > 0 {
		c.enrichSimilar(ctx, req.Domain, names, seen, &candidates)
	}

	if len(candidates) > 1 && c.rng != nil {
		c.rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
	}
	if len(candidates) > 0 {
		st.noteProvider(tierHistory, len(candidates))
		st.strategies = appendUnique(st.strategies, tierHistory)
	}
	return candidates
}

// enrichSimilar appends similar-entity lookups for the top history
// artists from the first similarity-capable provider.
func (c *FallbackCascade) enrichSimilar(ctx context.Context, domain Domain, names []string, seen map[string]struct{}, out *[]Candidate) {
	var sp SimilarityProvider
	var spName string
	for _, p := range c.providers {
		if s, ok := p.(SimilarityProvider); ok {
			sp = s
			spName = p.Name()
			break
		}
	}
	if sp == nil {
		return
	}

	const maxSeedArtists = 3
	seedNames := names
	if len(seedNames) > maxSeedArtists {
		seedNames = seedNames[:maxSeedArtists]
	}

	for _, name := range seedNames {
		lookupCtx, cancel := context.WithTimeout(ctx, c.cfg.SimilarTimeout)
		entries, err := sp.SimilarByName(lookupCtx, name, c.cfg.SimilarPerArtist)
		cancel()
		if err != nil {
			c.logger.Debug().
				Err(err).
				Str("provider", spName).
				Str("artist", name).
				Msg("similarity lookup failed")
			continue
		}

		for _, raw := range entries {
			cand, ok := c.aggregator.normalizeEntry(spName, raw, domain)
			if !ok {
				continue
			}
			if _, dup := seen[cand.Identity]; dup {
				continue
			}
			seen[cand.Identity] = struct{}{}

			cand.SourceStrategy = "history_similar"
			if cand.Popularity == 0 {
				cand.Popularity = 0.5
			}
			cand.RelevanceScore = cand.Popularity
			*out = append(*out, cand)
		}
	}
}

// tierStatic serves the hand-curated regional lists. Always non-empty.
func (c *FallbackCascade) tierStatic(_ context.Context, req *Request, st *requestState) []Candidate {
	candidates := StaticCandidates(req.Domain, st.region, st.language)
	st.noteProvider("static", len(candidates))
	st.strategies = appendUnique(st.strategies, "static")
	return candidates
}

// appendUnique appends values not already present, preserving order.
func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range dst {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
