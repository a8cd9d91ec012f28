// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the recommendation engine:
// - Request throughput, latency, and which cascade tier served each request
// - Tag resolution outcomes (typed match, fallback vocabulary, shortfall)
// - Primary retrieval and discovery provider call health
// - Variety cache pressure (size, filtered, evictions, clears)
// - Response cache efficiency
// - Circuit breaker state per collaborator
// - History event publishing

var (
	// Request Metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attune_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"domain", "outcome"}, // outcome: "ok", "invalid"
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attune_request_duration_seconds",
			Help:    "End-to-end recommendation request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"domain"},
	)

	RequestCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attune_request_candidates",
			Help:    "Number of candidates returned per request",
			Buckets: []float64{1, 5, 10, 15, 20, 30, 50, 100},
		},
	)

	// Cascade Metrics
	CascadeTierServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attune_cascade_tier_served_total",
			Help: "Requests served per cascade tier (1=primary .. 5=static)",
		},
		[]string{"tier"},
	)

	CascadeTierShortfalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attune_cascade_tier_shortfalls_total",
			Help: "Tier attempts that under-delivered and advanced the cascade",
		},
		[]string{"tier", "reason"}, // reason: "empty", "below_floor", "error"
	)

	// Tag Resolution Metrics
	ResolverLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attune_resolver_lookups_total",
			Help: "Taxonomy lookups by outcome",
		},
		[]string{"outcome"}, // "typed", "fallback", "miss", "error"
	)

	ResolverShortfalls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attune_resolver_shortfalls_total",
			Help: "Resolutions that finished below the requested minimum",
		},
	)

	ResolverAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attune_resolver_attempts",
			Help:    "Lookup attempts consumed per resolution",
			Buckets: []float64{1, 2, 3, 5, 7, 10},
		},
	)

	// Primary Retrieval Metrics
	RetrievalCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attune_retrieval_calls_total",
			Help: "Primary retrieval calls by strategy and outcome",
		},
		[]string{"strategy", "outcome"}, // outcome: "ok", "empty", "error"
	)

	// Discovery Provider Metrics
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attune_provider_calls_total",
			Help: "Discovery provider calls by provider, method, and outcome",
		},
		[]string{"provider", "method", "outcome"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attune_provider_call_duration_seconds",
			Help:    "Discovery provider call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	ProviderContribution = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attune_provider_contribution",
			Help:    "Candidates contributed per provider after quota capping",
			Buckets: []float64{1, 2, 5, 10, 15, 25, 50},
		},
		[]string{"provider"},
	)

	// Variety Cache Metrics
	VarietyCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "attune_variety_cache_entries",
			Help: "Current number of identities in the variety cache",
		},
	)

	VarietyCacheFiltered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attune_variety_cache_filtered_total",
			Help: "Candidates suppressed because their identity was recently surfaced",
		},
	)

	VarietyCacheReadmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attune_variety_cache_readmitted_total",
			Help: "Suppressed candidates re-admitted to honor the result floor",
		},
	)

	VarietyCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attune_variety_cache_evictions_total",
			Help: "Oldest-first evictions caused by capacity pressure",
		},
	)

	VarietyCacheClears = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attune_variety_cache_clears_total",
			Help: "Wholesale cache clears by trigger",
		},
		[]string{"reason"}, // "manual", "self_heal", "high_water"
	)

	// Response Cache Metrics
	ResponseCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attune_response_cache_hits_total",
			Help: "Responses served from the short-TTL response cache",
		},
	)

	ResponseCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attune_response_cache_misses_total",
			Help: "Requests that could not be served from the response cache",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "attune_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attune_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// History Publishing Metrics
	HistoryEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attune_history_events_published_total",
			Help: "Recommendation history events published by outcome",
		},
		[]string{"outcome"}, // "ok", "error", "dropped"
	)
)

// RecordRequest records throughput and latency for one engine request.
func RecordRequest(domain, outcome string, duration time.Duration, returned int) {
	RequestsTotal.WithLabelValues(domain, outcome).Inc()
	RequestDuration.WithLabelValues(domain).Observe(duration.Seconds())
	if returned > 0 {
		RequestCandidates.Observe(float64(returned))
	}
}

// RecordTierServed marks which cascade tier produced the response.
func RecordTierServed(tier string) {
	CascadeTierServed.WithLabelValues(tier).Inc()
}

// RecordTierShortfall marks a tier that under-delivered and why.
func RecordTierShortfall(tier, reason string) {
	CascadeTierShortfalls.WithLabelValues(tier, reason).Inc()
}

// RecordResolverLookup records one taxonomy lookup outcome.
func RecordResolverLookup(outcome string) {
	ResolverLookups.WithLabelValues(outcome).Inc()
}

// RecordRetrievalCall records one primary retrieval call.
func RecordRetrievalCall(strategy, outcome string) {
	RetrievalCalls.WithLabelValues(strategy, outcome).Inc()
}

// RecordProviderCall records a discovery provider call with its duration.
func RecordProviderCall(provider, method, outcome string, duration time.Duration) {
	ProviderCalls.WithLabelValues(provider, method, outcome).Inc()
	ProviderCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordBreakerTransition records a circuit breaker state change and updates
// the state gauge. State values: closed=0, half-open=1, open=2.
func RecordBreakerTransition(name, from, to string, stateValue float64) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(stateValue)
}

// RecordHistoryPublish records the outcome of a history event publish.
func RecordHistoryPublish(outcome string) {
	HistoryEventsPublished.WithLabelValues(outcome).Inc()
}
