// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package history

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/attune/recommend"
)

// Recorder implements recommend.HistoryRecorder by publishing one
// RecommendationEvent per served response. The engine invokes Record
// off the request path and logs failures itself, so Record stays
// synchronous and simply reports errors.
type Recorder struct {
	publisher *Publisher
	logger    zerolog.Logger
}

var _ recommend.HistoryRecorder = (*Recorder)(nil)

// NewRecorder creates a recorder backed by the given publisher.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRecorder(pub *Publisher, logger zerolog.Logger) (*Recorder, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher required")
	}

	return &Recorder{
		publisher: pub,
		logger:    logger.With().Str("component", "history").Logger(),
	}, nil
}

// Record converts the engine record into an event and publishes it.
func (r *Recorder) Record(ctx context.Context, rec recommend.HistoryRecord) error {
	event := NewRecommendationEvent(rec)

	if err := r.publisher.PublishEvent(ctx, event); err != nil {
		return fmt.Errorf("publish history event: %w", err)
	}

	r.logger.Debug().
		Str("event_id", event.EventID).
		Str("request_id", event.RequestID).
		Str("topic", event.Topic()).
		Int("candidates", len(event.Candidates)).
		Msg("history event published")

	return nil
}
