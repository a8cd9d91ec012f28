// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"testing"
)

// --- Test: Domain ---

func TestDomain_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		domain Domain
		want   string
	}{
		{DomainMusic, "music"},
		{DomainMovie, "movie"},
		{DomainTV, "tv"},
		{DomainPodcast, "podcast"},
		{DomainBook, "book"},
		{Domain(99), "unknown"},
		{Domain(-1), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.domain.String(); got != tt.want {
			t.Errorf("Domain(%d).String() = %q, want %q", tt.domain, got, tt.want)
		}
	}
}

func TestDomain_Valid(t *testing.T) {
	t.Parallel()

	for d := DomainMusic; d <= DomainBook; d++ {
		if !d.Valid() {
			t.Errorf("Domain(%d).Valid() = false, want true", d)
		}
	}
	if Domain(-1).Valid() {
		t.Error("Domain(-1).Valid() = true, want false")
	}
	if Domain(5).Valid() {
		t.Error("Domain(5).Valid() = true, want false")
	}
}

func TestDomain_EntityLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		domain Domain
		want   string
	}{
		{DomainMusic, "artist"},
		{DomainMovie, "movie"},
		{DomainTV, "tv"},
		{DomainPodcast, "podcast"},
		{DomainBook, "book"},
	}

	for _, tt := range tests {
		if got := tt.domain.EntityLabel(); got != tt.want {
			t.Errorf("Domain(%d).EntityLabel() = %q, want %q", tt.domain, got, tt.want)
		}
	}
}

func TestParseDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Domain
		wantErr bool
	}{
		{"music", DomainMusic, false},
		{"MUSIC", DomainMusic, false},
		{"  tv  ", DomainTV, false},
		{"movie", DomainMovie, false},
		{"podcast", DomainPodcast, false},
		{"book", DomainBook, false},
		{"opera", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseDomain(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDomain(%q) = nil error, want error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDomain(%q) error = %v, want nil", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDomain(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// --- Test: MatchConfidence ---

func TestMatchConfidence_String(t *testing.T) {
	t.Parallel()

	if got := MatchTyped.String(); got != "typed" {
		t.Errorf("MatchTyped.String() = %q, want %q", got, "typed")
	}
	if got := MatchFallback.String(); got != "fallback" {
		t.Errorf("MatchFallback.String() = %q, want %q", got, "fallback")
	}
}

// --- Test: SortOrder ---

func TestSortOrder_String(t *testing.T) {
	t.Parallel()

	if got := SortRelevance.String(); got != "relevance" {
		t.Errorf("SortRelevance.String() = %q, want %q", got, "relevance")
	}
	if got := SortPopularity.String(); got != "popularity" {
		t.Errorf("SortPopularity.String() = %q, want %q", got, "popularity")
	}
}

// --- Test: UserSignal.HasTaste ---

func TestUserSignal_HasTaste(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		signal *UserSignal
		want   bool
	}{
		{
			name:   "nil signal",
			signal: nil,
			want:   false,
		},
		{
			name:   "empty signal",
			signal: &UserSignal{},
			want:   false,
		},
		{
			name:   "country only is not taste",
			signal: &UserSignal{Country: "IN"},
			want:   false,
		},
		{
			name:   "artist ids",
			signal: &UserSignal{ArtistIDs: []string{"a1"}},
			want:   true,
		},
		{
			name:   "artist names",
			signal: &UserSignal{ArtistNames: []string{"The Weeknd"}},
			want:   true,
		},
		{
			name:   "track ids",
			signal: &UserSignal{TrackIDs: []string{"t1"}},
			want:   true,
		},
		{
			name:   "track names",
			signal: &UserSignal{TrackNames: []string{"Blinding Lights"}},
			want:   true,
		},
		{
			name:   "genres alone are not entity evidence",
			signal: &UserSignal{PreferredGenres: []string{"shoegaze"}},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.signal.HasTaste(); got != tt.want {
				t.Errorf("HasTaste() = %v, want %v", got, tt.want)
			}
		})
	}
}
