// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Matches any run of characters that is not a lowercase letter or digit.
var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// placeholderIDs are provider identifiers that carry no identity.
var placeholderIDs = map[string]struct{}{
	"unknown": {},
	"none":    {},
	"null":    {},
	"n/a":     {},
	"0":       {},
}

// CanonicalIdentity derives the deduplication key for a candidate: the
// provider identifier when present and non-placeholder, else the
// normalized display name. "Beyoncé" and "beyonce " collapse to the
// same key, so providers spelling the same entity differently still
// deduplicate. Returns empty when neither input carries identity.
func CanonicalIdentity(name, providerID string) string {
	id := strings.TrimSpace(providerID)
	if id != "" {
		if _, placeholder := placeholderIDs[strings.ToLower(id)]; !placeholder {
			return id
		}
	}
	return normalizeName(name)
}

// normalizeName lowercases, strips accents, and collapses punctuation
// and whitespace so spelling variants of one name compare equal.
func normalizeName(name string) string {
	s := norm.NFKD.String(name)

	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
