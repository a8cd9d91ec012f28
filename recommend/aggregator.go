// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/attune/internal/metrics"
)

// AggregateRequest asks the aggregator for merged discovery results.
type AggregateRequest struct {
	// Category is a cultural or genre keyword such as "bollywood".
	// Category-driven requests prefer the category provider ordering.
	Category string `json:"category,omitempty"`

	// Mood is a mood keyword such as "upbeat", used when Category is
	// empty.
	Mood string `json:"mood,omitempty"`

	// Region biases nothing by itself but is recorded in stats and used
	// as the query of last resort.
	Region string `json:"region,omitempty"`

	// Domain labels the produced candidates. Defaults to music.
	Domain Domain `json:"domain"`

	// Limit caps the merged result. Zero selects the configured maximum.
	Limit int `json:"limit,omitempty"`
}

// AggregateStats describes one aggregation run.
type AggregateStats struct {
	// TotalFound is the entry count across providers before merging.
	TotalFound int `json:"total_found"`

	// UniqueReturned is the candidate count after dedup and truncation.
	UniqueReturned int `json:"unique_returned"`

	// PerProvider maps provider name to its contribution after quota.
	PerProvider map[string]int `json:"per_provider"`

	// Failures is the number of provider calls that errored.
	Failures int `json:"failures"`

	// ElapsedMS is the aggregation wall time in milliseconds.
	ElapsedMS int64 `json:"elapsed_ms"`
}

// AggregateResult is the aggregator's answer.
type AggregateResult struct {
	// Candidates are merged results sorted by variety score.
	Candidates []Candidate `json:"candidates"`

	// ProvidersUsed names providers that contributed at least one entry.
	ProvidersUsed []string `json:"providers_used"`

	// Stats describes the run.
	Stats AggregateStats `json:"stats"`
}

// ProviderAggregator fans a request out to secondary discovery providers
// and merges their heterogeneous payloads into a balanced candidate list.
// No single provider may dominate: per-provider contributions are capped
// at limit/providers plus a small slack before merging.
type ProviderAggregator struct {
	providers []DiscoveryProvider
	cfg       AggregatorConfig
	logger    zerolog.Logger

	// rng adds tie-breaking jitter to variety scores. Seeded for
	// reproducibility; guarded because aggregations run concurrently.
	rng *seededRand
}

// NewProviderAggregator creates an aggregator over the given providers.
// Providers should already be breaker-wrapped by the engine.
func NewProviderAggregator(providers []DiscoveryProvider, cfg AggregatorConfig, rng *seededRand, logger zerolog.Logger) *ProviderAggregator {
	return &ProviderAggregator{
		providers: providers,
		cfg:       cfg,
		rng:       rng,
		logger:    logger.With().Str("component", "aggregator").Logger(),
	}
}

// providerResult is one provider call outcome.
type providerResult struct {
	provider string
	entries  []json.RawMessage
	err      error
}

// Aggregate queries up to MaxProviders providers concurrently, each under
// its own timeout, and merges the results. Provider failures reduce the
// result instead of erroring; an exhausted provider set yields an empty
// result, never an error.
func (a *ProviderAggregator) Aggregate(ctx context.Context, req AggregateRequest) *AggregateResult {
	start := time.Now()

	result := &AggregateResult{
		Stats: AggregateStats{PerProvider: make(map[string]int)},
	}

	limit := req.Limit
	if limit <= 0 || limit > a.cfg.MaxTotal {
		limit = a.cfg.MaxTotal
	}

	selected := a.selectProviders(req)
	if len(selected) == 0 {
		result.Stats.ElapsedMS = time.Since(start).Milliseconds()
		return result
	}

	perCall := limit
	if perCall < a.cfg.MinPerProvider {
		perCall = a.cfg.MinPerProvider
	}

	results := make([]providerResult, len(selected))
	var wg sync.WaitGroup
	for i, p := range selected {
		wg.Add(1)
		go func(idx int, provider DiscoveryProvider) {
			defer wg.Done()
			results[idx] = a.runSingleProvider(ctx, provider, req, perCall)
		}(i, p)
	}
	wg.Wait()

	// Provider-balance quota: no provider may exceed its fair share of
	// the requested limit plus slack.
	quota := limit/len(selected) + a.cfg.QuotaSlack

	keyword := strings.ToLower(firstNonEmpty(req.Category, req.Mood))
	seen := make(map[string]struct{})
	merged := make([]Candidate, 0, limit)

	for _, res := range results {
		if res.err != nil {
			result.Stats.Failures++
			a.logger.Debug().
				Err(res.err).
				Str("provider", res.provider).
				Msg("provider call failed")
			continue
		}
		result.Stats.TotalFound += len(res.entries)

		contributed := 0
		for _, raw := range res.entries {
			if contributed >= quota {
				break
			}
			cand, ok := a.normalizeEntry(res.provider, raw, req.Domain)
			if !ok {
				continue
			}
			if _, dup := seen[cand.Identity]; dup {
				continue
			}
			seen[cand.Identity] = struct{}{}

			cand.RelevanceScore = a.varietyScore(cand, res.provider, keyword)
			merged = append(merged, cand)
			contributed++
		}

		if contributed > 0 {
			result.ProvidersUsed = append(result.ProvidersUsed, res.provider)
			result.Stats.PerProvider[res.provider] = contributed
			metrics.ProviderContribution.WithLabelValues(res.provider).Observe(float64(contributed))
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].RelevanceScore != merged[j].RelevanceScore {
			return merged[i].RelevanceScore > merged[j].RelevanceScore
		}
		return merged[i].Popularity > merged[j].Popularity
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	result.Candidates = merged
	result.Stats.UniqueReturned = len(merged)
	result.Stats.ElapsedMS = time.Since(start).Milliseconds()

	a.logger.Debug().
		Int("providers", len(selected)).
		Int("found", result.Stats.TotalFound).
		Int("returned", len(merged)).
		Int("failures", result.Stats.Failures).
		Msg("aggregation complete")

	return result
}

// selectProviders orders available providers by the request-appropriate
// priority list and takes up to MaxProviders. Providers absent from the
// priority list follow in registration order.
func (a *ProviderAggregator) selectProviders(req AggregateRequest) []DiscoveryProvider {
	if len(a.providers) == 0 {
		return nil
	}

	priority := a.cfg.MoodPriority
	if req.Category != "" {
		priority = a.cfg.CategoryPriority
	}

	byName := make(map[string]DiscoveryProvider, len(a.providers))
	for _, p := range a.providers {
		byName[p.Name()] = p
	}

	selected := make([]DiscoveryProvider, 0, a.cfg.MaxProviders)
	taken := make(map[string]struct{}, a.cfg.MaxProviders)

	for _, name := range priority {
		if len(selected) >= a.cfg.MaxProviders {
			break
		}
		if p, ok := byName[name]; ok {
			selected = append(selected, p)
			taken[name] = struct{}{}
		}
	}
	for _, p := range a.providers {
		if len(selected) >= a.cfg.MaxProviders {
			break
		}
		if _, ok := taken[p.Name()]; !ok {
			selected = append(selected, p)
			taken[p.Name()] = struct{}{}
		}
	}
	return selected
}

// runSingleProvider issues one provider call under its own timeout,
// choosing the method the request shape calls for.
func (a *ProviderAggregator) runSingleProvider(ctx context.Context, provider DiscoveryProvider, req AggregateRequest, limit int) providerResult {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.PerCallTimeout)
	defer cancel()

	name := provider.Name()
	start := time.Now()

	var (
		entries []json.RawMessage
		err     error
		method  string
	)
	switch {
	case req.Category != "":
		method = "category"
		entries, err = provider.SearchByCategory(callCtx, req.Category, limit)
	case req.Mood != "":
		method = "mood"
		entries, err = provider.SearchByMood(callCtx, req.Mood, limit)
	default:
		method = "category"
		query := firstNonEmpty(req.Region, "popular")
		entries, err = provider.SearchByCategory(callCtx, query, limit)
	}

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case len(entries) == 0:
		outcome = "empty"
	}
	metrics.RecordProviderCall(name, method, outcome, time.Since(start))

	return providerResult{provider: name, entries: entries, err: err}
}

// flexNumber decodes numeric fields that some providers quote as
// strings ("listeners": "1043200") and others send bare. Unparseable
// values zero out instead of failing the whole entry.
type flexNumber float64

// UnmarshalJSON implements tolerant numeric decoding.
func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexNumber(v)
	return nil
}

// providerEnvelope tolerantly decodes the fields providers spell
// differently. Unknown fields are ignored; absent ones zero out.
type providerEnvelope struct {
	Name       string     `json:"name"`
	Title      string     `json:"title"`
	Artist     string     `json:"artist"`
	ID         string     `json:"id"`
	Popularity flexNumber `json:"popularity"`
	Listeners  flexNumber `json:"listeners"`
	Playcount  flexNumber `json:"playcount"`
	Fans       flexNumber `json:"nb_fan"`
	ViewCount  flexNumber `json:"view_count"`
	Genres     []string   `json:"genres"`
	Tags       []string   `json:"tags"`
}

// Normalization caps for audience counts that stand in for popularity.
const (
	listenersCap = 1_000_000
	fansCap      = 1_000_000
	viewsCap     = 100_000_000
)

// normalizeEntry converts one provider-native document into a Candidate.
// Entries without a usable name are dropped.
func (a *ProviderAggregator) normalizeEntry(provider string, raw json.RawMessage, domain Domain) (Candidate, bool) {
	var env providerEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		a.logger.Debug().Err(err).Str("provider", provider).Msg("unparseable provider entry")
		return Candidate{}, false
	}

	name := firstNonEmpty(env.Name, env.Title, env.Artist)
	if strings.TrimSpace(name) == "" {
		return Candidate{}, false
	}

	popularity := float64(env.Popularity)
	if popularity > 1 {
		// Some providers report percentages.
		popularity = popularity / 100
	}
	if popularity <= 0 {
		switch {
		case env.Listeners > 0:
			popularity = float64(env.Listeners) / listenersCap
		case env.Playcount > 0:
			popularity = float64(env.Playcount) / (listenersCap * 10)
		case env.Fans > 0:
			popularity = float64(env.Fans) / fansCap
		case env.ViewCount > 0:
			popularity = float64(env.ViewCount) / viewsCap
		}
	}

	tags := env.Genres
	if len(tags) == 0 {
		tags = env.Tags
	}

	return Candidate{
		Identity:       CanonicalIdentity(name, ""),
		ProviderID:     env.ID,
		Name:           name,
		Type:           domain.EntityLabel(),
		Popularity:     clamp01(popularity),
		Tags:           tags,
		SourceStrategy: "aggregate",
		SourceProvider: provider,
	}, true
}

// varietyScore composes popularity, keyword match, provider diversity
// bonus, and uniform tie-breaking jitter.
func (a *ProviderAggregator) varietyScore(c Candidate, provider, keyword string) float64 {
	score := c.Popularity

	if keyword != "" {
		haystack := candidateText(c)
		if strings.Contains(haystack, keyword) {
			score += a.cfg.KeywordBoost
		}
	}

	bonus, ok := a.cfg.ProviderBonus[provider]
	if !ok {
		bonus = a.cfg.DefaultBonus
	}
	score += bonus

	if a.cfg.JitterMax > 0 && a.rng != nil {
		score += a.rng.Float64() * a.cfg.JitterMax
	}

	return math.Round(score*10000) / 10000
}

// firstNonEmpty returns the first non-blank string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
