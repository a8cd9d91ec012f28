// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

/*
Package metrics provides Prometheus metrics for the recommendation engine.

All collectors register on the default Prometheus registry via promauto, so
an embedding application only has to mount promhttp.Handler() to export them:

	import "github.com/prometheus/client_golang/prometheus/promhttp"

	http.Handle("/metrics", promhttp.Handler())

# Available Metrics

Request metrics:
  - attune_requests_total (counter): labels domain, outcome
  - attune_request_duration_seconds (histogram): label domain
  - attune_request_candidates (histogram): result list sizes

Cascade metrics:
  - attune_cascade_tier_served_total (counter): label tier
  - attune_cascade_tier_shortfalls_total (counter): labels tier, reason

Resolution metrics:
  - attune_resolver_lookups_total (counter): label outcome
  - attune_resolver_shortfalls_total (counter)
  - attune_resolver_attempts (histogram)

Retrieval and provider metrics:
  - attune_retrieval_calls_total (counter): labels strategy, outcome
  - attune_provider_calls_total (counter): labels provider, method, outcome
  - attune_provider_call_duration_seconds (histogram): label provider
  - attune_provider_contribution (histogram): label provider

Variety cache metrics:
  - attune_variety_cache_entries (gauge)
  - attune_variety_cache_filtered_total (counter)
  - attune_variety_cache_readmitted_total (counter)
  - attune_variety_cache_evictions_total (counter)
  - attune_variety_cache_clears_total (counter): label reason

Response cache metrics:
  - attune_response_cache_hits_total / attune_response_cache_misses_total

Circuit breaker metrics:
  - attune_circuit_breaker_state (gauge): label name
  - attune_circuit_breaker_state_transitions_total (counter)

History metrics:
  - attune_history_events_published_total (counter): label outcome

# Cardinality

Label values are drawn from small fixed sets (tier numbers, strategy names,
provider names, outcome constants). No user- or request-scoped values are
ever used as labels.

# Thread Safety

All recording functions are safe for concurrent use; synchronization is
handled by the Prometheus client library.
*/
package metrics
