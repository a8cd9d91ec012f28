// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import "strings"

// countryLocations maps ISO 3166-1 alpha-2 country codes to the locality
// used for location-biased retrieval when the caller supplies none.
var countryLocations = map[string]string{
	"IN": "Mumbai, India",
	"US": "New York, USA",
	"GB": "London, UK",
	"CA": "Toronto, Canada",
	"AU": "Sydney, Australia",
	"DE": "Berlin, Germany",
	"FR": "Paris, France",
	"JP": "Tokyo, Japan",
	"KR": "Seoul, South Korea",
	"BR": "São Paulo, Brazil",
}

// defaultLocation is used for unknown or missing country codes.
const defaultLocation = "New York, USA"

// LocationForCountry returns the locality used for location-biased
// retrieval for a country code. Unknown codes map to a global default.
func LocationForCountry(country string) string {
	if loc, ok := countryLocations[strings.ToUpper(strings.TrimSpace(country))]; ok {
		return loc
	}
	return defaultLocation
}

// southAsianCountries are codes mapped to the south_asia region.
var southAsianCountries = map[string]struct{}{
	"IN": {}, "PK": {}, "BD": {}, "LK": {}, "NP": {},
}

// westernCountries are codes mapped to the western region.
var westernCountries = map[string]struct{}{
	"US": {}, "GB": {}, "CA": {}, "AU": {}, "NZ": {}, "IE": {},
	"DE": {}, "FR": {}, "NL": {}, "SE": {}, "NO": {}, "DK": {},
}

// RegionForCountry maps a country code to the coarse cultural region
// used for static list selection.
func RegionForCountry(country string) string {
	c := strings.ToUpper(strings.TrimSpace(country))
	if _, ok := southAsianCountries[c]; ok {
		return "south_asia"
	}
	if _, ok := westernCountries[c]; ok {
		return "western"
	}
	return "global"
}

// staticEntry is one curated fallback entity.
type staticEntry struct {
	name       string
	popularity float64
	tags       []string
}

// staticArtistLists holds curated music fallbacks keyed by region, then
// language. Popularity values are hand-assigned so the tier still ranks.
var staticArtistLists = map[string]map[string][]staticEntry{
	"south_asia": {
		"hindi": {
			{"Arijit Singh", 0.95, []string{"bollywood", "romantic"}},
			{"Neha Kakkar", 0.90, []string{"bollywood", "pop"}},
			{"Badshah", 0.89, []string{"bollywood", "hip hop"}},
			{"Harrdy Sandhu", 0.84, []string{"punjabi", "pop"}},
			{"Shreya Ghoshal", 0.92, []string{"bollywood", "classical"}},
			{"Atif Aslam", 0.88, []string{"bollywood", "romantic"}},
			{"Pritam", 0.87, []string{"bollywood", "soundtrack"}},
			{"A.R. Rahman", 0.93, []string{"bollywood", "soundtrack"}},
			{"Diljit Dosanjh", 0.86, []string{"punjabi", "pop"}},
			{"Guru Randhawa", 0.83, []string{"punjabi", "pop"}},
		},
		"any": {
			{"Arijit Singh", 0.95, []string{"bollywood", "romantic"}},
			{"A.R. Rahman", 0.93, []string{"bollywood", "soundtrack"}},
			{"Shreya Ghoshal", 0.92, []string{"bollywood", "classical"}},
			{"Badshah", 0.89, []string{"bollywood", "hip hop"}},
			{"Diljit Dosanjh", 0.86, []string{"punjabi", "pop"}},
		},
	},
	"western": {
		"english": {
			{"The Weeknd", 0.97, []string{"pop", "r&b"}},
			{"Ed Sheeran", 0.95, []string{"pop", "singer-songwriter"}},
			{"Taylor Swift", 0.98, []string{"pop", "country"}},
			{"Post Malone", 0.93, []string{"pop", "hip hop"}},
			{"Dua Lipa", 0.92, []string{"pop", "dance"}},
			{"Billie Eilish", 0.94, []string{"pop", "alternative"}},
			{"Harry Styles", 0.91, []string{"pop", "rock"}},
			{"Coldplay", 0.90, []string{"rock", "pop"}},
			{"Imagine Dragons", 0.88, []string{"rock", "pop"}},
			{"Maroon 5", 0.87, []string{"pop", "rock"}},
		},
		"any": {
			{"Martin Garrix", 0.89, []string{"electronic", "dance"}},
			{"The Chainsmokers", 0.87, []string{"electronic", "pop"}},
			{"Calvin Harris", 0.88, []string{"electronic", "dance"}},
			{"David Guetta", 0.86, []string{"electronic", "dance"}},
			{"Marshmello", 0.85, []string{"electronic", "dance"}},
		},
	},
	"global": {
		"any": {
			{"The Weeknd", 0.97, []string{"pop", "r&b"}},
			{"Ed Sheeran", 0.95, []string{"pop", "singer-songwriter"}},
			{"Arijit Singh", 0.95, []string{"bollywood", "romantic"}},
			{"Taylor Swift", 0.98, []string{"pop", "country"}},
			{"Post Malone", 0.93, []string{"pop", "hip hop"}},
		},
	},
}

// staticDomainLists holds curated non-music fallbacks, globally known
// titles only.
var staticDomainLists = map[Domain][]staticEntry{
	DomainMovie: {
		{"The Shawshank Redemption", 0.96, []string{"drama"}},
		{"Inception", 0.94, []string{"thriller", "sci-fi"}},
		{"The Dark Knight", 0.95, []string{"action", "thriller"}},
		{"Parasite", 0.91, []string{"drama", "thriller"}},
		{"Spirited Away", 0.90, []string{"animation", "fantasy"}},
	},
	DomainTV: {
		{"Breaking Bad", 0.96, []string{"drama", "crime"}},
		{"Planet Earth", 0.92, []string{"documentary"}},
		{"Friends", 0.94, []string{"comedy"}},
		{"The Office", 0.93, []string{"comedy"}},
		{"Stranger Things", 0.91, []string{"drama", "sci-fi"}},
	},
	DomainPodcast: {
		{"The Daily", 0.93, []string{"news"}},
		{"This American Life", 0.92, []string{"storytelling"}},
		{"Radiolab", 0.90, []string{"science", "storytelling"}},
		{"Stuff You Should Know", 0.89, []string{"education"}},
		{"TED Radio Hour", 0.87, []string{"education", "interviews"}},
	},
	DomainBook: {
		{"To Kill a Mockingbird", 0.93, []string{"fiction", "classic"}},
		{"1984", 0.94, []string{"fiction", "dystopia"}},
		{"The Alchemist", 0.91, []string{"fiction"}},
		{"Pride and Prejudice", 0.92, []string{"romance", "classic"}},
		{"One Hundred Years of Solitude", 0.90, []string{"fiction", "classic"}},
	},
}

// ultimateFallback is the single entry returned when every lookup path
// somehow yields nothing. The engine must never answer with zero
// candidates.
var ultimateFallback = staticEntry{"The Weeknd", 0.97, []string{"pop", "r&b"}}

// StaticCandidates returns the curated fallback list for a domain,
// region, and language preference. The result is never empty.
func StaticCandidates(domain Domain, region, language string) []Candidate {
	var entries []staticEntry

	if domain == DomainMusic {
		region = strings.ToLower(strings.TrimSpace(region))
		language = strings.ToLower(strings.TrimSpace(language))
		if region == "" {
			region = "global"
		}
		byLang, ok := staticArtistLists[region]
		if !ok {
			byLang = staticArtistLists["global"]
		}
		entries, ok = byLang[language]
		if !ok {
			entries = byLang["any"]
		}
		if len(entries) == 0 {
			entries = staticArtistLists["global"]["any"]
		}
	} else {
		entries = staticDomainLists[domain]
	}

	if len(entries) == 0 {
		entries = []staticEntry{ultimateFallback}
	}

	out := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		out = append(out, Candidate{
			Identity:       CanonicalIdentity(e.name, ""),
			Name:           e.name,
			Type:           domain.EntityLabel(),
			Popularity:     e.popularity,
			Tags:           append([]string(nil), e.tags...),
			SourceStrategy: "static",
			SourceProvider: "static",
			RelevanceScore: e.popularity,
		})
	}
	return out
}
