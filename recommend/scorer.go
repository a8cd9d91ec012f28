// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Scorer deduplicates the raw pool and ranks it with multiplicative
// relevance boosts on a popularity base. Boosts are independent; every
// satisfied boost applies.
type Scorer struct {
	cfg    ScoringConfig
	logger zerolog.Logger
}

// NewScorer creates a scorer.
func NewScorer(cfg ScoringConfig, logger zerolog.Logger) *Scorer {
	return &Scorer{
		cfg:    cfg,
		logger: logger.With().Str("component", "scorer").Logger(),
	}
}

// ScoreAndRank deduplicates and ranks a pool, descending by relevance.
// The first occurrence of an identity wins; later duplicates are dropped,
// not merged. Ties break by raw popularity, then by insertion order, so
// the final order is deterministic regardless of fetch arrival order.
func (s *Scorer) ScoreAndRank(pool []Candidate, signal *UserSignal, cultural *CulturalContext, location string, intent *Intent) []Candidate {
	affinityIDs := make(map[string]struct{})
	affinityNames := make(map[string]struct{})
	preferredGenres := make(map[string]struct{})

	if signal != nil {
		for _, id := range signal.ArtistIDs {
			affinityIDs[id] = struct{}{}
		}
		for _, id := range signal.TrackIDs {
			affinityIDs[id] = struct{}{}
		}
		for _, n := range signal.ArtistNames {
			affinityNames[normalizeName(n)] = struct{}{}
		}
		for _, n := range signal.TrackNames {
			affinityNames[normalizeName(n)] = struct{}{}
		}
		for _, g := range signal.PreferredGenres {
			preferredGenres[strings.ToLower(strings.TrimSpace(g))] = struct{}{}
		}
	}

	var culturalElements []string
	if cultural != nil {
		for _, el := range cultural.CulturalElements {
			if el = strings.ToLower(strings.TrimSpace(el)); el != "" {
				culturalElements = append(culturalElements, el)
			}
		}
		for _, g := range cultural.PopularGenres {
			preferredGenres[strings.ToLower(strings.TrimSpace(g))] = struct{}{}
		}
	}

	locationPhrase := strings.ToLower(strings.TrimSpace(location))
	locationTokens := locationKeywords(locationPhrase)

	energy := ""
	if intent != nil {
		energy = intent.EnergyLevel
	}

	seen := make(map[string]struct{}, len(pool))
	ranked := make([]Candidate, 0, len(pool))
	dropped := 0

	for _, c := range pool {
		if c.Identity == "" {
			c.Identity = CanonicalIdentity(c.Name, c.ProviderID)
		}
		if c.Identity == "" {
			dropped++
			continue
		}
		if _, dup := seen[c.Identity]; dup {
			dropped++
			continue
		}
		seen[c.Identity] = struct{}{}

		haystack := candidateText(c)

		c.CulturalRelevance = culturalRelevance(haystack, culturalElements)
		c.LocationRelevance = locationRelevance(haystack, locationPhrase, locationTokens)
		if !c.UserTasteRelevance {
			if _, ok := affinityIDs[c.ProviderID]; ok && c.ProviderID != "" {
				c.UserTasteRelevance = true
			} else if _, ok := affinityNames[normalizeName(c.Name)]; ok {
				c.UserTasteRelevance = true
			}
		}

		boost := 1.0
		if c.UserTasteRelevance {
			boost *= s.cfg.UserAffinityBoost
		}
		if overlap := genreOverlap(c.Tags, preferredGenres); overlap > 0 {
			boost *= s.genreBoost(overlap, energy)
		}
		if c.LocationRelevance > 0 {
			boost *= s.cfg.LocationBoost
		}
		if c.CulturalRelevance > 0 {
			boost *= s.cfg.CulturalBoost
		}
		switch c.SourceStrategy {
		case strategyPopular:
			boost *= s.cfg.PopularStrategyBoost
		case strategyDiversity:
			boost *= s.cfg.DiversityStrategyBoost
		}

		c.RelevanceScore = c.Popularity * boost
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RelevanceScore != ranked[j].RelevanceScore {
			return ranked[i].RelevanceScore > ranked[j].RelevanceScore
		}
		return ranked[i].Popularity > ranked[j].Popularity
	})

	s.logger.Debug().
		Int("pool", len(pool)).
		Int("ranked", len(ranked)).
		Int("dropped", dropped).
		Msg("scoring complete")

	return ranked
}

// genreBoost maps genre overlap and energy level into the configured
// boost range. High energy pins the top of the range, low energy the
// bottom, otherwise overlap scales it.
func (s *Scorer) genreBoost(overlap int, energy string) float64 {
	switch energy {
	case "high":
		return s.cfg.GenreBoostMax
	case "low":
		return s.cfg.GenreBoostMin
	}
	span := s.cfg.GenreBoostMax - s.cfg.GenreBoostMin
	steps := float64(overlap - 1)
	if steps > 2 {
		steps = 2
	}
	return s.cfg.GenreBoostMin + span*steps/2
}

// candidateText builds the lowercase haystack used for keyword matching.
func candidateText(c Candidate) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(c.Name))
	for _, t := range c.Tags {
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(t))
	}
	return b.String()
}

// culturalRelevance counts cultural element matches, 0.3 each, capped at 1.
func culturalRelevance(haystack string, elements []string) float64 {
	relevance := 0.0
	for _, el := range elements {
		if strings.Contains(haystack, el) {
			relevance += 0.3
		}
	}
	if relevance > 1 {
		relevance = 1
	}
	return relevance
}

// locationRelevance scores locality matches: the full phrase scores 0.8,
// any single token 0.5.
func locationRelevance(haystack, phrase string, tokens []string) float64 {
	if phrase == "" {
		return 0
	}
	if strings.Contains(haystack, phrase) {
		return 0.8
	}
	for _, tok := range tokens {
		if strings.Contains(haystack, tok) {
			return 0.5
		}
	}
	return 0
}

// locationKeywords splits a locality phrase into match tokens, dropping
// fragments too short to be meaningful.
func locationKeywords(phrase string) []string {
	fields := strings.FieldsFunc(phrase, func(r rune) bool {
		return r == ',' || r == ' ' || r == '.'
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 3 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// genreOverlap counts candidate tags present in the preferred set.
func genreOverlap(tags []string, preferred map[string]struct{}) int {
	if len(preferred) == 0 {
		return 0
	}
	overlap := 0
	for _, t := range tags {
		if _, ok := preferred[strings.ToLower(strings.TrimSpace(t))]; ok {
			overlap++
		}
	}
	return overlap
}
