// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"math/rand"
	"sync"
)

// defaultSeed is used when the configuration leaves Seed at zero, so
// behavior stays reproducible by default.
const defaultSeed = 42

// seededRand is a mutex-guarded seeded random source shared by the
// aggregator (score jitter) and the history tier (shuffling). math/rand
// sources are not safe for concurrent use.
type seededRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// newSeededRand creates a guarded source. A zero seed selects the
// package default.
func newSeededRand(seed int64) *seededRand {
	if seed == 0 {
		seed = defaultSeed
	}
	return &seededRand{rng: rand.New(rand.NewSource(seed))}
}

// Float64 returns a uniform value in [0,1).
func (s *seededRand) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Shuffle pseudo-randomizes element order via the swap function.
func (s *seededRand) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(n, swap)
}
