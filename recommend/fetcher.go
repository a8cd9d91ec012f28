// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/attune/internal/metrics"
)

// Strategy is one retrieval angle: a sort order plus a pagination offset.
// Offsets are derived from the variety seed so repeated requests in the
// same minute reuse them while different contexts or minutes diverge.
type Strategy struct {
	// Name labels the strategy in candidates, metadata, and metrics.
	Name string

	// Sort is the provider ordering for this strategy.
	Sort SortOrder

	// Offset is the seed-derived pagination offset.
	Offset int

	// UseSignals marks the strategy that weights user taste entities.
	UseSignals bool
}

// Strategy names. The scorer keys boosts off these.
const (
	strategyBaseline  = "baseline"
	strategyDiversity = "diversity"
	strategyPopular   = "popular"
	strategySignal    = "signal"
)

// strategiesForSeed derives the fixed strategy set from a variety seed.
// The signal strategy is only emitted when the request carries taste
// evidence.
func strategiesForSeed(seed uint64, spread int, withSignals bool) []Strategy {
	if spread <= 0 {
		spread = 1
	}
	strategies := []Strategy{
		{Name: strategyBaseline, Sort: SortRelevance, Offset: 0},
		{Name: strategyDiversity, Sort: SortRelevance, Offset: 1 + int(seed%uint64(spread))},
		{Name: strategyPopular, Sort: SortPopularity, Offset: int((seed >> 4) % uint64(spread/2+1))},
	}
	if withSignals {
		strategies = append(strategies, Strategy{
			Name:       strategySignal,
			Sort:       SortRelevance,
			Offset:     1 + int((seed>>8)%uint64(spread)),
			UseSignals: true,
		})
	}
	return strategies
}

// FetchOptions adjusts retrieval for fallback tiers.
type FetchOptions struct {
	// Broadened disables signal weighting and the popularity floor,
	// widening retrieval when the primary tier fell short.
	Broadened bool
}

// FetchInfo describes one fetch run for response metadata.
type FetchInfo struct {
	// Seed is the variety seed the offsets were derived from.
	Seed uint64

	// Strategies names the strategies that ran.
	Strategies []string

	// Calls is the number of (tag, strategy) retrieval calls issued.
	Calls int

	// Failures is the number of calls that errored.
	Failures int

	// Empties is the number of calls that returned nothing.
	Empties int
}

// CandidateFetcher retrieves candidates from the primary provider by
// issuing one call per (tag, strategy) pair, concurrently and bounded.
// Individual call failures are absorbed; a short pool is acceptable and
// handled by the fallback cascade.
type CandidateFetcher struct {
	retriever PrimaryRetriever
	cfg       FetcherConfig
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCandidateFetcher creates a fetcher. The retriever may be nil;
// fetching then always returns an empty pool.
func NewCandidateFetcher(retriever PrimaryRetriever, cfg FetcherConfig, logger zerolog.Logger) *CandidateFetcher {
	return &CandidateFetcher{
		retriever: retriever,
		cfg:       cfg,
		logger:    logger.With().Str("component", "fetcher").Logger(),
		now:       time.Now,
	}
}

// fetchCall is one queued (tag, strategy) retrieval.
type fetchCall struct {
	tag      ResolvedTag
	strategy Strategy
}

// fetchResult is the outcome of one retrieval call.
type fetchResult struct {
	entities []RawEntity
	err      error
}

// Fetch retrieves the raw candidate pool for the resolved tags. Results
// are merged in deterministic (tag, strategy) submission order regardless
// of call completion order. Location, when non-empty, is passed through
// as a retrieval-time signal so the provider biases results itself.
func (f *CandidateFetcher) Fetch(ctx context.Context, tags []ResolvedTag, signal *UserSignal, location string, limit int, opts FetchOptions) ([]Candidate, FetchInfo) {
	info := FetchInfo{}
	if f.retriever == nil || len(tags) == 0 {
		return nil, info
	}

	if len(tags) > f.cfg.MaxTags {
		tags = tags[:f.cfg.MaxTags]
	}

	domain := tags[0].Domain
	tagIDs := make([]string, 0, len(tags))
	for _, t := range tags {
		tagIDs = append(tagIDs, t.TagID)
	}

	country := ""
	radius := 0
	var signalIDs []string
	if signal != nil {
		country = signal.Country
		radius = signal.LocationRadiusMeters
		signalIDs = append(signalIDs, signal.ArtistIDs...)
		signalIDs = append(signalIDs, signal.TrackIDs...)
	}

	seed := computeVarietySeed(country, location, tagIDs, f.now())
	withSignals := !opts.Broadened && len(signalIDs) > 0
	strategies := strategiesForSeed(seed, f.cfg.OffsetSpread, withSignals)

	info.Seed = seed
	for _, s := range strategies {
		info.Strategies = append(info.Strategies, s.Name)
	}

	popularityMin := f.cfg.PopularityMin
	if opts.Broadened {
		popularityMin = 0
	}

	perCall := f.cfg.PerCallLimit
	if limit > perCall {
		perCall = limit
	}

	calls := make([]fetchCall, 0, len(tags)*len(strategies))
	for _, tag := range tags {
		for _, s := range strategies {
			calls = append(calls, fetchCall{tag: tag, strategy: s})
		}
	}
	info.Calls = len(calls)

	results := make([]fetchResult, len(calls))
	sem := make(chan struct{}, f.cfg.MaxConcurrent)
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c fetchCall) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			filters := RetrievalFilters{
				Domain:        domain,
				PopularityMin: popularityMin,
				Location:      location,
				RadiusMeters:  radius,
			}
			if c.strategy.UseSignals {
				filters.SignalEntityIDs = signalIDs
			}
			results[idx] = f.runSingleFetch(ctx, c, filters, perCall)
		}(i, call)
	}
	wg.Wait()

	pool := make([]Candidate, 0, len(calls)*8)
	for i, res := range results {
		call := calls[i]
		switch {
		case res.err != nil:
			info.Failures++
			metrics.RecordRetrievalCall(call.strategy.Name, "error")
			f.logger.Debug().
				Err(res.err).
				Str("tag", call.tag.TagID).
				Str("strategy", call.strategy.Name).
				Msg("retrieval call failed")
		case len(res.entities) == 0:
			info.Empties++
			metrics.RecordRetrievalCall(call.strategy.Name, "empty")
		default:
			metrics.RecordRetrievalCall(call.strategy.Name, "ok")
			for _, e := range res.entities {
				pool = append(pool, f.toCandidate(e, call, domain, seed))
			}
		}
	}

	f.logger.Debug().
		Uint64("seed", seed).
		Int("calls", info.Calls).
		Int("failures", info.Failures).
		Int("pool", len(pool)).
		Msg("fetch complete")

	return pool, info
}

// runSingleFetch runs one retrieval call under its own timeout.
func (f *CandidateFetcher) runSingleFetch(ctx context.Context, call fetchCall, filters RetrievalFilters, limit int) fetchResult {
	callCtx, cancel := context.WithTimeout(ctx, f.cfg.PerCallTimeout)
	defer cancel()

	entities, err := f.retriever.FetchByTags(callCtx, []string{call.tag.TagID}, filters, call.strategy.Sort, call.strategy.Offset, limit)
	return fetchResult{entities: entities, err: err}
}

// toCandidate converts a provider entity into the pipeline shape.
func (f *CandidateFetcher) toCandidate(e RawEntity, call fetchCall, domain Domain, seed uint64) Candidate {
	entityType := e.Type
	if entityType == "" {
		entityType = domain.EntityLabel()
	}
	return Candidate{
		Identity:           CanonicalIdentity(e.Name, e.ID),
		ProviderID:         e.ID,
		Name:               e.Name,
		Type:               entityType,
		Popularity:         clamp01(e.Popularity),
		Tags:               e.Tags,
		SourceStrategy:     call.strategy.Name,
		SourceProvider:     "primary",
		VarietySeed:        seed,
		UserTasteRelevance: call.strategy.UseSignals,
	}
}

// clamp01 bounds a score to [0,1].
func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
