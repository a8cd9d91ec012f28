// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
)

// --- Test: WatermillAdapter ---

func TestWatermillAdapterLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewWatermillLogger(NewTestLogger(&buf))

	adapter.Info("publisher ready", watermill.LogFields{"topic": "served.music"})
	adapter.Error("publish failed", errors.New("broken pipe"), nil)

	out := buf.String()
	if !strings.Contains(out, `"level":"info"`) || !strings.Contains(out, "publisher ready") {
		t.Errorf("expected info entry in output, got %q", out)
	}
	if !strings.Contains(out, `"topic":"served.music"`) {
		t.Errorf("expected watermill field in output, got %q", out)
	}
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, "broken pipe") {
		t.Errorf("expected error entry with cause in output, got %q", out)
	}
}

func TestWatermillAdapterDebugFiltered(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Output: &buf, Timestamp: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	adapter := NewWatermillLogger(logger)

	adapter.Debug("suppressed", nil)
	adapter.Trace("also suppressed", nil)

	if out := buf.String(); out != "" {
		t.Errorf("debug and trace should be filtered at info level, got %q", out)
	}
}

func TestWatermillAdapterWith(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := NewWatermillLogger(NewTestLogger(&buf))

	child := adapter.With(watermill.LogFields{"component": "history"})
	child.Info("event published", watermill.LogFields{"message_uuid": "abc"})

	out := buf.String()
	if !strings.Contains(out, `"component":"history"`) {
		t.Errorf("expected inherited field in output, got %q", out)
	}
	if !strings.Contains(out, `"message_uuid":"abc"`) {
		t.Errorf("expected call-site field in output, got %q", out)
	}
}

func TestWatermillAdapterWithEmptyFields(t *testing.T) {
	t.Parallel()

	adapter := NewWatermillLogger(Nop())
	if got := adapter.With(nil); got != watermill.LoggerAdapter(adapter) {
		t.Error("With(nil) should return the same adapter")
	}
}
