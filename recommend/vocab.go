// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import "strings"

// preferredTagTypes orders taxonomy type keywords from most to least
// desirable. Resolution picks the best-typed entry from each search
// window before falling back to the top result.
var preferredTagTypes = []string{
	"music",
	"genre",
	"style",
	"audience",
	"character",
	"theme",
	"plot",
	"subgenre",
	"mood",
	"emotion",
}

// tagTypeRank returns the preference rank of a taxonomy type, lower is
// better, and whether the type is preferred at all.
func tagTypeRank(tagType string) (int, bool) {
	t := strings.ToLower(tagType)
	for i, kw := range preferredTagTypes {
		if strings.Contains(t, kw) {
			return i, true
		}
	}
	return len(preferredTagTypes), false
}

// fallbackVocabularies holds per-domain descriptor tiers appended when
// caller descriptors resolve too few tags. Earlier tiers carry broad
// mainstream terms, later tiers carry narrower mood and genre terms.
var fallbackVocabularies = map[Domain][][]string{
	DomainMusic: {
		{"pop", "mainstream", "contemporary", "cultural", "diverse"},
		{"energetic", "upbeat", "romantic", "drama"},
		{"electronic", "dance", "indie", "alternative"},
	},
	DomainMovie: {
		{"drama", "romantic", "action", "comedy", "family"},
		{"thriller", "classic", "acclaimed", "adventure"},
	},
	DomainTV: {
		{"drama", "romantic", "comedy", "family", "reality"},
		{"crime", "documentary", "classic", "acclaimed"},
	},
	DomainPodcast: {
		{"entertainment", "interviews", "music", "cultural", "lifestyle"},
		{"comedy", "storytelling", "news", "education"},
	},
	DomainBook: {
		{"romance", "drama", "fiction", "cultural", "contemporary"},
		{"mystery", "classic", "biography", "fantasy"},
	},
}

// fallbackVocabulary returns the descriptor tiers for a domain. Unknown
// domains use the music vocabulary.
func fallbackVocabulary(domain Domain) [][]string {
	if tiers, ok := fallbackVocabularies[domain]; ok {
		return tiers
	}
	return fallbackVocabularies[DomainMusic]
}

// defaultDomainTags are hardcoded taxonomy identifiers used when
// resolution produces nothing at all. They track the primary provider's
// stable genre URNs.
var defaultDomainTags = map[Domain][]string{
	DomainMusic: {
		"urn:tag:genre:music:pop",
		"urn:tag:genre:music:rock",
		"urn:tag:genre:music:electronic",
		"urn:tag:genre:music:hip_hop",
		"urn:tag:genre:music:indie",
	},
	DomainMovie: {
		"urn:tag:genre:media:drama",
		"urn:tag:genre:media:comedy",
		"urn:tag:genre:media:action",
		"urn:tag:genre:media:romance",
		"urn:tag:genre:media:thriller",
	},
	DomainTV: {
		"urn:tag:genre:media:drama",
		"urn:tag:genre:media:comedy",
		"urn:tag:genre:media:reality",
		"urn:tag:genre:media:documentary",
	},
	DomainPodcast: {
		"urn:tag:genre:podcast:comedy",
		"urn:tag:genre:podcast:interviews",
		"urn:tag:genre:podcast:news",
		"urn:tag:genre:podcast:culture",
	},
	DomainBook: {
		"urn:tag:genre:book:fiction",
		"urn:tag:genre:book:romance",
		"urn:tag:genre:book:mystery",
		"urn:tag:genre:book:biography",
	},
}

// DefaultDomainTags returns hardcoded taxonomy identifiers for a domain,
// used as the last resolution resort. Unknown domains use music tags.
func DefaultDomainTags(domain Domain) []ResolvedTag {
	ids, ok := defaultDomainTags[domain]
	if !ok {
		ids = defaultDomainTags[DomainMusic]
	}
	tags := make([]ResolvedTag, 0, len(ids))
	for _, id := range ids {
		name := id
		if i := strings.LastIndex(id, ":"); i >= 0 {
			name = strings.ReplaceAll(id[i+1:], "_", " ")
		}
		tags = append(tags, ResolvedTag{
			Query:      name,
			TagID:      id,
			Name:       name,
			Type:       "urn:tag:genre",
			Domain:     domain,
			Confidence: MatchFallback,
		})
	}
	return tags
}
