// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/tomtom215/attune/logging"
)

// Janitor performs periodic engine upkeep: it clears the variety cache
// when occupancy crosses the high-water mark and sweeps expired response
// cache entries. It implements suture.Service.
type Janitor struct {
	engine *Engine
	cfg    JanitorConfig
	logger zerolog.Logger
	name   string
}

// NewJanitor creates a janitor for the given engine.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewJanitor(engine *Engine, cfg JanitorConfig, logger zerolog.Logger) *Janitor {
	return &Janitor{
		engine: engine,
		cfg:    cfg,
		logger: logger.With().Str("service", "janitor").Logger(),
		name:   "recommend-janitor",
	}
}

// Serve implements the suture.Service interface. It runs the upkeep
// loop until the context is canceled.
func (j *Janitor) Serve(ctx context.Context) error {
	interval := j.cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	j.logger.Info().
		Dur("interval", interval).
		Float64("high_water_mark", j.engine.cfg.Variety.HighWaterMark).
		Msg("janitor starting")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("janitor shutting down")
			return ctx.Err()

		case <-ticker.C:
			j.sweep()
		}
	}
}

// sweep runs one upkeep cycle.
func (j *Janitor) sweep() {
	if j.engine.variety.ClearIfAbove(j.engine.cfg.Variety.HighWaterMark) {
		j.logger.Info().
			Float64("high_water_mark", j.engine.cfg.Variety.HighWaterMark).
			Msg("variety cache cleared at high water mark")
	}

	if removed := j.engine.sweepExpiredResponses(time.Now()); removed > 0 {
		j.logger.Debug().
			Int("removed", removed).
			Msg("expired response cache entries swept")
	}
}

// String returns the service name for logging.
func (j *Janitor) String() string {
	return j.name
}

// Supervise builds a supervisor running the engine's janitor. Callers
// embedding the engine in a larger supervisor tree can instead add
// NewJanitor's service to their own tree; this helper covers standalone
// use:
//
//	sup := recommend.Supervise(engine, logger)
//	go sup.Serve(ctx)
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Supervise(engine *Engine, logger zerolog.Logger) *suture.Supervisor {
	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger(logger)}

	sup := suture.New("attune", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})
	sup.Add(NewJanitor(engine, engine.cfg.Janitor, logger))
	return sup
}
