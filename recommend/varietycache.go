// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/attune/internal/metrics"
)

// varietyEntry is one suppressed identity in the FIFO list.
type varietyEntry struct {
	identity string
	prev     *varietyEntry
	next     *varietyEntry
}

// VarietyCache suppresses recently surfaced identities across requests
// so consecutive responses vary. It is a bounded FIFO set: Record
// inserts served identities and evicts the oldest once capacity is
// exceeded; Filter drops candidates whose identity is still cached.
//
// Filtering never starves a response: when suppression would drop a
// result below the floor, filtered-out candidates are re-admitted in
// score order, and when the entire set is suppressed the cache clears
// itself and retries once.
//
// The cache is shared, mutable, cross-request state. A single mutex
// serializes Filter and Record so two concurrent requests cannot both
// pass the "not yet cached" check for one identity.
type VarietyCache struct {
	mu sync.Mutex

	// capacity is the maximum number of suppressed identities.
	capacity int

	// floor is the result size Filter protects via re-admission.
	floor int

	// items maps identities to linked list nodes for O(1) lookup.
	items map[string]*varietyEntry

	// head and tail are sentinel nodes for the doubly-linked list.
	// head.next is the oldest insertion, tail.prev the newest.
	head *varietyEntry
	tail *varietyEntry

	logger zerolog.Logger
}

// NewVarietyCache creates a variety cache with the given capacity and
// re-admission floor.
func NewVarietyCache(cfg VarietyConfig, logger zerolog.Logger) *VarietyCache {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 50
	}
	floor := cfg.Floor
	if floor < 0 {
		floor = 0
	}

	c := &VarietyCache{
		capacity: capacity,
		floor:    floor,
		items:    make(map[string]*varietyEntry, capacity),
		head:     &varietyEntry{},
		tail:     &varietyEntry{},
		logger:   logger.With().Str("component", "variety_cache").Logger(),
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Filter removes candidates whose identity was recently surfaced.
// Candidates must arrive in score order; re-admission preserves it.
// The returned slice keeps the input's relative order.
func (c *VarietyCache) Filter(candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fresh := 0
	suppressed := 0
	cached := make([]bool, len(candidates))
	for i, cand := range candidates {
		if _, ok := c.items[cand.Identity]; ok {
			cached[i] = true
			suppressed++
		} else {
			fresh++
		}
	}

	if suppressed == 0 {
		return candidates
	}

	if fresh >= c.floor {
		metrics.VarietyCacheFiltered.Add(float64(suppressed))
		out := make([]Candidate, 0, fresh)
		for i, cand := range candidates {
			if !cached[i] {
				out = append(out, cand)
			}
		}
		return out
	}

	need := c.floor - fresh
	if need >= suppressed {
		// The entire candidate set would be re-admitted: the cache has
		// saturated this context. Self-heal by clearing and retrying,
		// which passes everything through.
		c.clearLocked("self_heal")
		c.logger.Info().
			Int("candidates", len(candidates)).
			Int("fresh", fresh).
			Msg("variety cache exhausted candidate set, cleared and retried")
		return candidates
	}

	// Re-admit the highest-scored suppressed candidates to reach the floor.
	metrics.VarietyCacheFiltered.Add(float64(suppressed - need))
	metrics.VarietyCacheReadmitted.Add(float64(need))
	out := make([]Candidate, 0, c.floor)
	for i, cand := range candidates {
		if cached[i] {
			if need == 0 {
				continue
			}
			need--
		}
		out = append(out, cand)
	}
	return out
}

// Record inserts the identities of served candidates, evicting the
// oldest entries once capacity is exceeded. Re-recording an identity
// refreshes its age.
func (c *VarietyCache) Record(candidates []Candidate) {
	if len(candidates) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cand := range candidates {
		if cand.Identity == "" {
			continue
		}
		if entry, ok := c.items[cand.Identity]; ok {
			c.unlink(entry)
			c.pushNewest(entry)
			continue
		}
		entry := &varietyEntry{identity: cand.Identity}
		c.pushNewest(entry)
		c.items[cand.Identity] = entry

		for len(c.items) > c.capacity {
			oldest := c.head.next
			c.unlink(oldest)
			delete(c.items, oldest.identity)
			metrics.VarietyCacheEvictions.Inc()
		}
	}

	metrics.VarietyCacheSize.Set(float64(len(c.items)))
}

// Clear empties the cache. Exposed for manual resets.
func (c *VarietyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked("manual")
}

// ClearIfAbove clears the cache when utilization is at or above the
// given mark, atomically. Returns whether it cleared. The janitor uses
// this for proactive high-water maintenance.
func (c *VarietyCache) ClearIfAbove(mark float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if float64(len(c.items)) < mark*float64(c.capacity) {
		return false
	}
	c.clearLocked("high_water")
	return true
}

// clearLocked empties the cache. Caller holds the mutex.
func (c *VarietyCache) clearLocked(reason string) {
	c.items = make(map[string]*varietyEntry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
	metrics.VarietyCacheClears.WithLabelValues(reason).Inc()
	metrics.VarietyCacheSize.Set(0)
	c.logger.Debug().Str("reason", reason).Msg("variety cache cleared")
}

// Contains reports whether an identity is currently suppressed.
func (c *VarietyCache) Contains(identity string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[identity]
	return ok
}

// Len returns the suppressed identity count.
func (c *VarietyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a point-in-time occupancy snapshot.
func (c *VarietyCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Count:       len(c.items),
		Capacity:    c.capacity,
		Utilization: float64(len(c.items)) / float64(c.capacity),
	}
}

// pushNewest appends an entry before the tail sentinel.
func (c *VarietyCache) pushNewest(entry *varietyEntry) {
	entry.prev = c.tail.prev
	entry.next = c.tail
	c.tail.prev.next = entry
	c.tail.prev = entry
}

// unlink removes an entry from the list.
func (c *VarietyCache) unlink(entry *varietyEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	entry.prev = nil
	entry.next = nil
}
