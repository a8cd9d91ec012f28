// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/tomtom215/attune/internal/metrics"
)

// Dependencies are the external collaborators an engine is wired with.
// Any of them may be nil; the engine degrades through the fallback
// cascade instead of failing.
type Dependencies struct {
	// Taxonomy resolves descriptors against the primary provider.
	Taxonomy TaxonomySearcher

	// Retriever fetches entities from the primary provider.
	Retriever PrimaryRetriever

	// Providers are secondary discovery sources for aggregation.
	Providers []DiscoveryProvider

	// History receives write-only records of served responses.
	History HistoryRecorder
}

// cachedResponse is one response cache entry with lazy TTL expiry.
type cachedResponse struct {
	response  Response
	expiresAt time.Time
}

// Engine orchestrates the recommendation pipeline. Safe for concurrent
// use; cross-request state is confined to the variety cache and the
// response cache, both internally synchronized.
type Engine struct {
	cfg      Config
	logger   zerolog.Logger
	validate *validator.Validate

	resolver   *TagResolver
	fetcher    *CandidateFetcher
	scorer     *Scorer
	aggregator *ProviderAggregator
	cascade    *FallbackCascade
	variety    *VarietyCache
	history    HistoryRecorder
	rng        *seededRand

	respCache *lru.Cache[uint64, cachedResponse]

	closed        atomic.Bool
	historyWG     sync.WaitGroup
	totalRequests atomic.Int64
	cacheHits     atomic.Int64
	totalLatency  atomic.Int64
	tierCounts    [5]atomic.Int64
}

// EngineMetrics is a point-in-time snapshot of engine counters.
type EngineMetrics struct {
	// TotalRequests is the count of successfully served requests.
	TotalRequests int64 `json:"total_requests"`

	// CacheHits is the count of responses served from the response cache.
	CacheHits int64 `json:"cache_hits"`

	// CacheHitRate is CacheHits divided by TotalRequests.
	CacheHitRate float64 `json:"cache_hit_rate"`

	// AvgLatencyMS is the mean serving latency of non-cached responses.
	AvgLatencyMS float64 `json:"avg_latency_ms"`

	// ServedByTier maps tier name to the count of responses it served.
	ServedByTier map[string]int64 `json:"served_by_tier"`

	// VarietyCache is the current variety cache occupancy.
	VarietyCache CacheStats `json:"variety_cache"`
}

// NewEngine creates an engine. External collaborators are wrapped with
// circuit breakers so repeated upstream failure fails fast.
func NewEngine(cfg Config, logger zerolog.Logger, deps Dependencies) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg = cfg.Clone()

	var taxonomy TaxonomySearcher
	if deps.Taxonomy != nil {
		taxonomy = newResilientTaxonomy(deps.Taxonomy, logger)
	}
	var retriever PrimaryRetriever
	if deps.Retriever != nil {
		retriever = newResilientRetriever(deps.Retriever, logger)
	}
	providers := make([]DiscoveryProvider, 0, len(deps.Providers))
	for _, p := range deps.Providers {
		if p != nil {
			providers = append(providers, wrapProvider(p, logger))
		}
	}

	rng := newSeededRand(cfg.Seed)
	variety := NewVarietyCache(cfg.Variety, logger)
	scorer := NewScorer(cfg.Scoring, logger)
	fetcher := NewCandidateFetcher(retriever, cfg.Fetcher, logger)
	resolver := NewTagResolver(taxonomy, cfg.Resolver, logger)
	aggregator := NewProviderAggregator(providers, cfg.Aggregator, rng, logger)
	cascade := NewFallbackCascade(fetcher, scorer, aggregator, providers, variety, cfg.Cascade, rng, logger)

	e := &Engine{
		cfg:        cfg,
		logger:     logger.With().Str("component", "engine").Logger(),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		resolver:   resolver,
		fetcher:    fetcher,
		scorer:     scorer,
		aggregator: aggregator,
		cascade:    cascade,
		variety:    variety,
		history:    deps.History,
		rng:        rng,
	}

	if cfg.ResponseCache.Enabled {
		cache, err := lru.New[uint64, cachedResponse](cfg.ResponseCache.Size)
		if err != nil {
			return nil, fmt.Errorf("%w: response cache: %v", ErrInvalidConfig, err)
		}
		e.respCache = cache
	}

	e.logger.Info().
		Bool("taxonomy", taxonomy != nil).
		Bool("retriever", retriever != nil).
		Int("providers", len(providers)).
		Bool("history", deps.History != nil).
		Int64("seed", cfg.Seed).
		Msg("engine initialized")

	return e, nil
}

// Recommend serves a ranked, deduplicated, repetition-aware candidate
// list. Upstream failures degrade through the fallback cascade; the only
// error conditions are an invalid request and a closed engine.
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	start := time.Now()

	if err := e.prepareRequest(&req); err != nil {
		metrics.RecordRequest(req.Domain.String(), "invalid", time.Since(start), 0)
		return nil, err
	}

	logger := e.logger.With().Str("request_id", req.RequestID).Logger()

	var cacheKey uint64
	if e.respCache != nil {
		cacheKey = responseCacheKey(&req)
		if entry, ok := e.respCache.Get(cacheKey); ok {
			if time.Now().Before(entry.expiresAt) {
				e.cacheHits.Add(1)
				e.totalRequests.Add(1)
				metrics.ResponseCacheHits.Inc()
				resp := cloneResponse(entry.response)
				resp.Metadata.CacheHit = true
				resp.Metadata.RequestID = req.RequestID
				logger.Debug().Msg("served from response cache")
				return &resp, nil
			}
			e.respCache.Remove(cacheKey)
		}
		metrics.ResponseCacheMisses.Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Limits.RequestTimeout)
	defer cancel()

	st := e.deriveState(&req)
	st.tags = e.resolver.Resolve(ctx, req.Descriptors, req.Domain)

	candidates, tierNum, tierName := e.cascade.Run(ctx, &req, st)
	if len(candidates) > req.Limit {
		candidates = candidates[:req.Limit]
	}

	e.variety.Record(candidates)

	resp := e.buildResponse(&req, st, candidates, tierNum, tierName, start)

	e.recordHistory(&req, st, resp)

	if e.respCache != nil {
		e.respCache.Add(cacheKey, cachedResponse{
			response:  cloneResponse(*resp),
			expiresAt: time.Now().Add(e.cfg.ResponseCache.TTL),
		})
	}

	e.totalRequests.Add(1)
	e.totalLatency.Add(resp.Metadata.LatencyMS)
	if tierNum >= 1 && tierNum <= len(e.tierCounts) {
		e.tierCounts[tierNum-1].Add(1)
	}
	metrics.RecordRequest(req.Domain.String(), "ok", time.Since(start), len(resp.Candidates))

	logger.Info().
		Str("domain", req.Domain.String()).
		Int("candidates", len(resp.Candidates)).
		Str("tier", tierName).
		Int64("latency_ms", resp.Metadata.LatencyMS).
		Msg("request served")

	return resp, nil
}

// Aggregate exposes multi-provider discovery aggregation directly,
// bypassing taxonomy resolution. Used for global browse surfaces.
func (e *Engine) Aggregate(ctx context.Context, req AggregateRequest) (*AggregateResult, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if !req.Domain.Valid() {
		req.Domain = DomainMusic
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Limits.RequestTimeout)
	defer cancel()

	return e.aggregator.Aggregate(ctx, req), nil
}

// VarietyCacheStats returns the current variety cache occupancy.
func (e *Engine) VarietyCacheStats() CacheStats {
	return e.variety.Stats()
}

// ClearVarietyCache empties the variety cache. Exposed for manual
// operational resets.
func (e *Engine) ClearVarietyCache() {
	e.variety.Clear()
	e.logger.Info().Msg("variety cache cleared manually")
}

// PurgeResponses empties the response cache.
func (e *Engine) PurgeResponses() {
	if e.respCache != nil {
		e.respCache.Purge()
		e.logger.Info().Msg("response cache purged")
	}
}

// sweepExpiredResponses drops response cache entries past their TTL.
// Expiry is otherwise lazy, checked on read; the janitor calls this so
// entries that are never read again do not pin memory for the LRU's
// lifetime.
func (e *Engine) sweepExpiredResponses(now time.Time) int {
	if e.respCache == nil {
		return 0
	}
	removed := 0
	for _, key := range e.respCache.Keys() {
		if entry, ok := e.respCache.Peek(key); ok && now.After(entry.expiresAt) {
			e.respCache.Remove(key)
			removed++
		}
	}
	return removed
}

// Metrics returns a snapshot of engine counters.
func (e *Engine) Metrics() EngineMetrics {
	total := e.totalRequests.Load()
	hits := e.cacheHits.Load()

	m := EngineMetrics{
		TotalRequests: total,
		CacheHits:     hits,
		ServedByTier:  make(map[string]int64, len(e.tierCounts)),
		VarietyCache:  e.variety.Stats(),
	}
	if total > 0 {
		m.CacheHitRate = float64(hits) / float64(total)
	}
	if served := total - hits; served > 0 {
		m.AvgLatencyMS = float64(e.totalLatency.Load()) / float64(served)
	}
	names := []string{tierPrimary, tierBroadened, tierAggregate, tierHistory, tierStatic}
	for i := range e.tierCounts {
		if count := e.tierCounts[i].Load(); count > 0 {
			m.ServedByTier[names[i]] = count
		}
	}
	return m
}

// Close stops accepting requests and waits for in-flight history writes.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.historyWG.Wait()
	e.logger.Info().Msg("engine closed")
	return nil
}

// prepareRequest validates the request and fills defaults.
func (e *Engine) prepareRequest(req *Request) error {
	if !req.Domain.Valid() {
		return fmt.Errorf("%w: unknown domain %d", ErrInvalidRequest, req.Domain)
	}
	if err := e.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	if req.Limit <= 0 {
		req.Limit = e.cfg.Limits.DefaultLimit
	}
	if req.Limit > e.cfg.Limits.MaxLimit {
		req.Limit = e.cfg.Limits.MaxLimit
	}
	if req.MinimumResults <= 0 {
		req.MinimumResults = e.cfg.Limits.DefaultMinimum
	}
	return nil
}

// deriveState computes per-request context shared across tiers.
func (e *Engine) deriveState(req *Request) *requestState {
	st := &requestState{
		region:   "global",
		language: "any",
	}

	if req.Signal != nil {
		if req.Signal.Location != "" {
			st.location = req.Signal.Location
		} else if req.Signal.Country != "" {
			st.location = LocationForCountry(req.Signal.Country)
		}
		if req.Signal.Country != "" {
			st.region = RegionForCountry(req.Signal.Country)
		}
	}
	if req.Cultural != nil {
		if req.Cultural.Region != "" {
			st.region = req.Cultural.Region
		}
		if req.Cultural.LanguagePreference != "" {
			st.language = req.Cultural.LanguagePreference
		}
		if len(req.Cultural.CulturalElements) > 0 {
			st.category = req.Cultural.CulturalElements[0]
		}
	}
	if req.Intent != nil {
		st.mood = req.Intent.PrimaryMood
	}
	return st
}

// buildResponse assembles the response and its provenance metadata.
func (e *Engine) buildResponse(req *Request, st *requestState, candidates []Candidate, tierNum int, tierName string, start time.Time) *Response {
	return &Response{
		Candidates: candidates,
		Metadata: ResponseMetadata{
			RequestID:         req.RequestID,
			Domain:            req.Domain.String(),
			GeneratedAt:       time.Now().UTC(),
			LatencyMS:         time.Since(start).Milliseconds(),
			TierServed:        tierNum,
			TierName:          tierName,
			VarietySeed:       st.fetch.Seed,
			TagIDs:            st.tagIDs(),
			StrategiesUsed:    st.strategies,
			ProvidersUsed:     providerNames(st.providersUsed),
			ProviderCounts:    st.providersUsed,
			PoolSize:          st.poolSize,
			Deduplicated:      st.poolSize - st.rankedSize,
			FilteredByVariety: st.filteredByVariety,
			VarietyCache:      e.variety.Stats(),
		},
	}
}

// recordHistory writes the served response to the history sink without
// blocking the response path. Failures are logged, never surfaced.
func (e *Engine) recordHistory(req *Request, st *requestState, resp *Response) {
	if e.history == nil {
		return
	}

	rec := HistoryRecord{
		RequestID:   req.RequestID,
		UserKey:     req.UserKey,
		Domain:      req.Domain.String(),
		Descriptors: append([]string(nil), req.Descriptors...),
		TagIDs:      st.tagIDs(),
		TierServed:  resp.Metadata.TierServed,
		Candidates:  append([]Candidate(nil), resp.Candidates...),
		GeneratedAt: resp.Metadata.GeneratedAt,
	}

	e.historyWG.Add(1)
	go func() {
		defer e.historyWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.history.Record(ctx, rec); err != nil {
			e.logger.Warn().
				Err(err).
				Str("request_id", rec.RequestID).
				Msg("history record failed")
		}
	}()
}

// providerNames extracts sorted-free provider names from the counts map.
func providerNames(counts map[string]int) []string {
	if len(counts) == 0 {
		return nil
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	return names
}

// cloneResponse deep-copies the parts of a response that callers could
// mutate, so cached responses stay immutable.
func cloneResponse(r Response) Response {
	out := r
	out.Candidates = append([]Candidate(nil), r.Candidates...)
	out.Metadata.TagIDs = append([]string(nil), r.Metadata.TagIDs...)
	out.Metadata.StrategiesUsed = append([]string(nil), r.Metadata.StrategiesUsed...)
	out.Metadata.ProvidersUsed = append([]string(nil), r.Metadata.ProvidersUsed...)
	if r.Metadata.ProviderCounts != nil {
		out.Metadata.ProviderCounts = make(map[string]int, len(r.Metadata.ProviderCounts))
		for k, v := range r.Metadata.ProviderCounts {
			out.Metadata.ProviderCounts[k] = v
		}
	}
	return out
}
