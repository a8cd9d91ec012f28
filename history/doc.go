// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

// Package history publishes served recommendation responses as events
// using Watermill, so embedding applications can feed analytics, taste
// profiling, or replay pipelines without coupling them to the engine.
//
// The engine treats history as write-only: it emits one event per served
// response through the recommend.HistoryRecorder interface and never
// reads history back. Publish failures are logged by the engine and
// never affect the response.
//
// # Components
//
//   - RecommendationEvent: the versioned wire format for a served response
//   - Publisher: a Watermill publisher wrapper with closed-state guarding,
//     optional circuit breaker protection, and NATS message deduplication
//   - Recorder: the recommend.HistoryRecorder implementation that converts
//     engine records into events and publishes them
//
// # Usage
//
//	pub, err := history.NewNATSPublisher(
//	    history.DefaultPublisherConfig("nats://localhost:4222"),
//	    logging.NewWatermillLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	defer pub.Close()
//
//	recorder, err := history.NewRecorder(pub, logger)
//	if err != nil {
//	    return err
//	}
//
//	engine, err := recommend.NewEngine(cfg, logger, recommend.Dependencies{
//	    History: recorder,
//	    // ...
//	})
//
// Any message.Publisher works in place of NATS; tests use Watermill's
// GoChannel pub/sub. Events are published to per-domain subjects
// (recommendations.served.music) with the event ID doubling as the
// Nats-Msg-Id header for JetStream deduplication.
package history
