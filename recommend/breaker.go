// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/attune/internal/metrics"
)

// newBreaker creates a circuit breaker guarding one upstream collaborator.
// Configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func newBreaker(name string, logger zerolog.Logger) *gobreaker.CircuitBreaker[interface{}] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logger.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := breakerStateString(from)
			toStr := breakerStateString(to)
			logger.Info().
				Str("breaker", name).
				Str("from", fromStr).
				Str("to", toStr).
				Msg("circuit breaker state transition")
			metrics.RecordBreakerTransition(name, fromStr, toStr, breakerStateFloat(to))
		},
	})
}

// breakerStateFloat converts circuit breaker state to a numeric value for metrics.
func breakerStateFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// breakerStateString converts circuit breaker state to a string for logging.
func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// castSlice type-casts a circuit breaker result carrying a slice.
func castSlice[T any](result interface{}, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	typed, ok := result.([]T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// castPtr type-casts a circuit breaker result carrying a pointer.
func castPtr[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// resilientTaxonomy wraps a TaxonomySearcher with circuit breaker protection.
type resilientTaxonomy struct {
	inner TaxonomySearcher
	cb    *gobreaker.CircuitBreaker[interface{}]
}

var _ TaxonomySearcher = (*resilientTaxonomy)(nil)

func newResilientTaxonomy(inner TaxonomySearcher, logger zerolog.Logger) *resilientTaxonomy {
	return &resilientTaxonomy{
		inner: inner,
		cb:    newBreaker("taxonomy", logger),
	}
}

// SearchTags resolves descriptors with circuit breaker protection.
func (r *resilientTaxonomy) SearchTags(ctx context.Context, query string, limit int) ([]TagEntry, error) {
	return castSlice[TagEntry](r.cb.Execute(func() (interface{}, error) {
		return r.inner.SearchTags(ctx, query, limit)
	}))
}

// resilientRetriever wraps a PrimaryRetriever with circuit breaker protection.
type resilientRetriever struct {
	inner PrimaryRetriever
	cb    *gobreaker.CircuitBreaker[interface{}]
}

var _ PrimaryRetriever = (*resilientRetriever)(nil)

func newResilientRetriever(inner PrimaryRetriever, logger zerolog.Logger) *resilientRetriever {
	return &resilientRetriever{
		inner: inner,
		cb:    newBreaker("primary-retrieval", logger),
	}
}

// FetchByTags retrieves entities with circuit breaker protection.
func (r *resilientRetriever) FetchByTags(ctx context.Context, tagIDs []string, filters RetrievalFilters, sort SortOrder, offset, limit int) ([]RawEntity, error) {
	return castSlice[RawEntity](r.cb.Execute(func() (interface{}, error) {
		return r.inner.FetchByTags(ctx, tagIDs, filters, sort, offset, limit)
	}))
}

// SearchEntity resolves an entity name with circuit breaker protection.
func (r *resilientRetriever) SearchEntity(ctx context.Context, name string, domain Domain) (*RawEntity, error) {
	return castPtr[RawEntity](r.cb.Execute(func() (interface{}, error) {
		return r.inner.SearchEntity(ctx, name, domain)
	}))
}

// resilientProvider wraps a DiscoveryProvider with circuit breaker protection.
// One breaker per provider, so a failing provider opens alone.
type resilientProvider struct {
	inner DiscoveryProvider
	cb    *gobreaker.CircuitBreaker[interface{}]
}

var _ DiscoveryProvider = (*resilientProvider)(nil)

// resilientSimilarityProvider additionally exposes similarity lookup when
// the wrapped provider supports it.
type resilientSimilarityProvider struct {
	resilientProvider
	similar SimilarityProvider
}

var _ SimilarityProvider = (*resilientSimilarityProvider)(nil)

// wrapProvider wraps a provider, preserving the optional similarity
// capability of the inner implementation.
func wrapProvider(inner DiscoveryProvider, logger zerolog.Logger) DiscoveryProvider {
	rp := resilientProvider{
		inner: inner,
		cb:    newBreaker("provider-"+inner.Name(), logger),
	}
	if s, ok := inner.(SimilarityProvider); ok {
		return &resilientSimilarityProvider{resilientProvider: rp, similar: s}
	}
	return &rp
}

// Name returns the wrapped provider's name.
func (r *resilientProvider) Name() string {
	return r.inner.Name()
}

// SearchByCategory queries the provider with circuit breaker protection.
func (r *resilientProvider) SearchByCategory(ctx context.Context, category string, limit int) ([]json.RawMessage, error) {
	return castSlice[json.RawMessage](r.cb.Execute(func() (interface{}, error) {
		return r.inner.SearchByCategory(ctx, category, limit)
	}))
}

// SearchByMood queries the provider with circuit breaker protection.
func (r *resilientProvider) SearchByMood(ctx context.Context, mood string, limit int) ([]json.RawMessage, error) {
	return castSlice[json.RawMessage](r.cb.Execute(func() (interface{}, error) {
		return r.inner.SearchByMood(ctx, mood, limit)
	}))
}

// SearchByName queries the provider with circuit breaker protection.
func (r *resilientProvider) SearchByName(ctx context.Context, query string, limit int) ([]json.RawMessage, error) {
	return castSlice[json.RawMessage](r.cb.Execute(func() (interface{}, error) {
		return r.inner.SearchByName(ctx, query, limit)
	}))
}

// SimilarByName queries the provider with circuit breaker protection.
func (r *resilientSimilarityProvider) SimilarByName(ctx context.Context, name string, limit int) ([]json.RawMessage, error) {
	return castSlice[json.RawMessage](r.cb.Execute(func() (interface{}, error) {
		return r.similar.SimilarByName(ctx, name, limit)
	}))
}
