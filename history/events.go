// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package history

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/attune/recommend"
)

// SchemaVersion is the current event schema version. Increment it when
// making breaking changes to RecommendationEvent.
const SchemaVersion = 1

// TopicPrefix is the subject prefix for served-response events. The
// full subject appends the domain, e.g. recommendations.served.music.
const TopicPrefix = "recommendations.served"

// RecommendationEvent is the canonical record of one served response.
// Consumers should tolerate older schema versions; use GetSchemaVersion
// when reading events that may predate explicit versioning.
type RecommendationEvent struct {
	// SchemaVersion tracks the event format version (default: 1).
	SchemaVersion int `json:"schema_version,omitempty"`

	// EventID uniquely identifies this event. It doubles as the NATS
	// message ID for JetStream deduplication.
	EventID string `json:"event_id"`

	// RequestID correlates the event with engine logs and the response
	// metadata returned to the caller.
	RequestID string `json:"request_id"`

	// UserKey identifies the user the response was served to.
	UserKey string `json:"user_key,omitempty"`

	// Domain is the served vertical, e.g. "music".
	Domain string `json:"domain"`

	// Descriptors are the caller's original taste terms.
	Descriptors []string `json:"descriptors,omitempty"`

	// TagIDs are the taxonomy identifiers the request resolved to.
	TagIDs []string `json:"tag_ids,omitempty"`

	// TierServed is the cascade tier that produced the response.
	TierServed int `json:"tier_served"`

	// Candidates are the served recommendations in ranked order.
	Candidates []recommend.Candidate `json:"candidates"`

	// GeneratedAt is the UTC serving time.
	GeneratedAt time.Time `json:"generated_at"`
}

// NewRecommendationEvent builds an event from an engine history record.
// The event gets a fresh unique ID and the current schema version. A
// zero GeneratedAt is replaced with the current UTC time.
func NewRecommendationEvent(rec recommend.HistoryRecord) *RecommendationEvent {
	generatedAt := rec.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}

	return &RecommendationEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		RequestID:     rec.RequestID,
		UserKey:       rec.UserKey,
		Domain:        rec.Domain,
		Descriptors:   rec.Descriptors,
		TagIDs:        rec.TagIDs,
		TierServed:    rec.TierServed,
		Candidates:    rec.Candidates,
		GeneratedAt:   generatedAt,
	}
}

// GetSchemaVersion returns the schema version, defaulting to 1 for
// events written before explicit versioning.
func (e *RecommendationEvent) GetSchemaVersion() int {
	if e.SchemaVersion == 0 {
		return 1
	}
	return e.SchemaVersion
}

// Validate checks required fields and returns an error if validation fails.
func (e *RecommendationEvent) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	if e.RequestID == "" {
		return &ValidationError{Field: "request_id", Message: "required"}
	}
	if e.Domain == "" {
		return &ValidationError{Field: "domain", Message: "required"}
	}
	if len(e.Candidates) == 0 {
		return &ValidationError{Field: "candidates", Message: "required"}
	}
	return nil
}

// Topic returns the NATS subject for this event.
// Format: recommendations.served.<domain>
// Example: recommendations.served.music
func (e *RecommendationEvent) Topic() string {
	return TopicPrefix + "." + e.Domain
}

// SerializeEvent validates an event and marshals it to JSON.
func SerializeEvent(event *RecommendationEvent) ([]byte, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	return data, nil
}

// DeserializeEvent unmarshals JSON bytes to an event.
func DeserializeEvent(data []byte) (*RecommendationEvent, error) {
	var event RecommendationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}

	return &event, nil
}

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
