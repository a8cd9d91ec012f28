// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import "errors"

// Sentinel errors returned by the engine. Upstream provider failures are
// absorbed by the fallback cascade and never surface to callers; only
// contract violations do.
var (
	// ErrInvalidConfig is returned by NewEngine when the configuration
	// fails validation.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrInvalidRequest is returned by Recommend when the request fails
	// validation. It is the only per-request hard failure.
	ErrInvalidRequest = errors.New("invalid recommendation request")

	// ErrEngineClosed is returned after Close has been called.
	ErrEngineClosed = errors.New("engine is closed")
)
