// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package history

import (
	"testing"
	"time"

	"github.com/tomtom215/attune/recommend"
)

// servedRecord builds the engine-side history record used across the
// package tests.
func servedRecord() recommend.HistoryRecord {
	return recommend.HistoryRecord{
		RequestID:   "req-42",
		UserKey:     "user-1",
		Domain:      "music",
		Descriptors: []string{"indie", "dream pop"},
		TagIDs:      []string{"t-indie", "t-dreampop"},
		TierServed:  1,
		Candidates: []recommend.Candidate{
			{Identity: "beach house", Name: "Beach House", Type: "artist", Popularity: 0.8, RelevanceScore: 0.91},
			{Identity: "alvvays", Name: "Alvvays", Type: "artist", Popularity: 0.6, RelevanceScore: 0.87},
		},
		GeneratedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

// --- Test: NewRecommendationEvent ---

func TestNewRecommendationEvent(t *testing.T) {
	t.Parallel()

	rec := servedRecord()
	event := NewRecommendationEvent(rec)

	if event.EventID == "" {
		t.Error("expected EventID to be set")
	}
	if event.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", event.SchemaVersion, SchemaVersion)
	}
	if event.RequestID != "req-42" {
		t.Errorf("RequestID = %q, want %q", event.RequestID, "req-42")
	}
	if event.UserKey != "user-1" {
		t.Errorf("UserKey = %q, want %q", event.UserKey, "user-1")
	}
	if event.Domain != "music" {
		t.Errorf("Domain = %q, want %q", event.Domain, "music")
	}
	if event.TierServed != 1 {
		t.Errorf("TierServed = %d, want 1", event.TierServed)
	}
	if len(event.Candidates) != 2 {
		t.Fatalf("len(Candidates) = %d, want 2", len(event.Candidates))
	}
	if event.Candidates[0].Name != "Beach House" {
		t.Errorf("Candidates[0].Name = %q, want %q", event.Candidates[0].Name, "Beach House")
	}
	if !event.GeneratedAt.Equal(rec.GeneratedAt) {
		t.Errorf("GeneratedAt = %v, want %v", event.GeneratedAt, rec.GeneratedAt)
	}
}

func TestNewRecommendationEventDefaultsGeneratedAt(t *testing.T) {
	t.Parallel()

	rec := servedRecord()
	rec.GeneratedAt = time.Time{}

	event := NewRecommendationEvent(rec)
	if event.GeneratedAt.IsZero() {
		t.Error("expected zero GeneratedAt to be defaulted")
	}
}

func TestNewRecommendationEventUniqueIDs(t *testing.T) {
	t.Parallel()

	first := NewRecommendationEvent(servedRecord())
	second := NewRecommendationEvent(servedRecord())

	if first.EventID == second.EventID {
		t.Errorf("expected unique event IDs, both were %q", first.EventID)
	}
}

// --- Test: Validate ---

func TestRecommendationEventValidate(t *testing.T) {
	t.Parallel()

	valid := func() *RecommendationEvent {
		return NewRecommendationEvent(servedRecord())
	}

	tests := []struct {
		name   string
		mutate func(*RecommendationEvent)
		errMsg string
	}{
		{
			name:   "valid event",
			mutate: func(*RecommendationEvent) {},
		},
		{
			name:   "missing event_id",
			mutate: func(e *RecommendationEvent) { e.EventID = "" },
			errMsg: "event_id: required",
		},
		{
			name:   "missing request_id",
			mutate: func(e *RecommendationEvent) { e.RequestID = "" },
			errMsg: "request_id: required",
		},
		{
			name:   "missing domain",
			mutate: func(e *RecommendationEvent) { e.Domain = "" },
			errMsg: "domain: required",
		},
		{
			name:   "no candidates",
			mutate: func(e *RecommendationEvent) { e.Candidates = nil },
			errMsg: "candidates: required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			event := valid()
			tt.mutate(event)

			err := event.Validate()
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if err.Error() != tt.errMsg {
				t.Errorf("Validate() error = %q, want %q", err.Error(), tt.errMsg)
			}
		})
	}
}

// --- Test: Topic ---

func TestRecommendationEventTopic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		domain string
		want   string
	}{
		{domain: "music", want: "recommendations.served.music"},
		{domain: "movies", want: "recommendations.served.movies"},
	}

	for _, tt := range tests {
		event := &RecommendationEvent{Domain: tt.domain}
		if got := event.Topic(); got != tt.want {
			t.Errorf("Topic() with domain %q = %q, want %q", tt.domain, got, tt.want)
		}
	}
}

// --- Test: GetSchemaVersion ---

func TestGetSchemaVersion(t *testing.T) {
	t.Parallel()

	legacy := &RecommendationEvent{}
	if got := legacy.GetSchemaVersion(); got != 1 {
		t.Errorf("GetSchemaVersion() on unversioned event = %d, want 1", got)
	}

	versioned := &RecommendationEvent{SchemaVersion: 3}
	if got := versioned.GetSchemaVersion(); got != 3 {
		t.Errorf("GetSchemaVersion() = %d, want 3", got)
	}
}

// --- Test: SerializeEvent ---

func TestSerializeEventRoundTrip(t *testing.T) {
	t.Parallel()

	event := NewRecommendationEvent(servedRecord())

	data, err := SerializeEvent(event)
	if err != nil {
		t.Fatalf("SerializeEvent() error = %v", err)
	}

	decoded, err := DeserializeEvent(data)
	if err != nil {
		t.Fatalf("DeserializeEvent() error = %v", err)
	}

	if decoded.EventID != event.EventID {
		t.Errorf("EventID = %q, want %q", decoded.EventID, event.EventID)
	}
	if decoded.RequestID != event.RequestID {
		t.Errorf("RequestID = %q, want %q", decoded.RequestID, event.RequestID)
	}
	if len(decoded.Candidates) != len(event.Candidates) {
		t.Fatalf("len(Candidates) = %d, want %d", len(decoded.Candidates), len(event.Candidates))
	}
	if decoded.Candidates[1].RelevanceScore != event.Candidates[1].RelevanceScore {
		t.Errorf("Candidates[1].RelevanceScore = %v, want %v",
			decoded.Candidates[1].RelevanceScore, event.Candidates[1].RelevanceScore)
	}
	if !decoded.GeneratedAt.Equal(event.GeneratedAt) {
		t.Errorf("GeneratedAt = %v, want %v", decoded.GeneratedAt, event.GeneratedAt)
	}
}

func TestSerializeEventRejectsInvalid(t *testing.T) {
	t.Parallel()

	event := NewRecommendationEvent(servedRecord())
	event.RequestID = ""

	if _, err := SerializeEvent(event); err == nil {
		t.Error("SerializeEvent() expected validation error, got nil")
	}
}

func TestDeserializeEventRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := DeserializeEvent([]byte("{not json")); err == nil {
		t.Error("DeserializeEvent() expected error, got nil")
	}
}
