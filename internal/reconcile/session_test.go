// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(deltas ...Delta) <-chan Delta {
	ch := make(chan Delta, len(deltas))
	for _, d := range deltas {
		ch <- d
	}
	close(ch)
	return ch
}

func testSessionConfig() SessionConfig {
	cfg := DefaultSessionConfig()
	cfg.RenderDelay = 0
	cfg.Logger = quietLogger()
	return cfg
}

func TestSession_Completes(t *testing.T) {
	s := newSurface(t, "<p>old</p>")
	cfg := testSessionConfig()

	var started string
	var finished Result
	var checkpoints int
	cfg.Callbacks = Callbacks{
		OnStart:      func(id string) { started = id },
		OnCheckpoint: func(Checkpoint) { checkpoints++ },
		OnFinish:     func(r Result) { finished = r },
		OnError:      func(err error) { t.Errorf("unexpected error: %v", err) },
	}

	res := NewSession(s, cfg).Run(context.Background(), feed(
		Text{"<p>Hel"}, Text{"lo</p>"}, Text{"<p>World</p>"}, End{Reason: "stop"},
	))

	assert.Equal(t, StatusCompleted, res.Status)
	assert.NoError(t, res.Err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, res.ID, started)
	assert.Equal(t, 3, res.Deltas)
	assert.Equal(t, len("<p>Hel")+len("lo</p>")+len("<p>World</p>"), res.Bytes)
	assert.Equal(t, 3, res.Checkpoints, "two mid-stream checkpoints plus the final flush")
	assert.Equal(t, 3, checkpoints)
	assert.Equal(t, "stop", res.Reason)
	assert.True(t, res.Whole)
	assert.Equal(t, s.Size(), res.End)
	assert.Equal(t, res.ID, finished.ID)
	assert.Equal(t, "<p>Hello</p><p>World</p>", s.HTML())
}

func TestSession_ClosedChannelFinishes(t *testing.T) {
	s := newSurface(t, "<p></p>")
	res := NewSession(s, testSessionConfig()).Run(context.Background(), feed(Text{"<p>tail"}))

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 1, res.Checkpoints)
	assert.Equal(t, "<p>tail</p>", s.HTML())
}

func TestSession_UpstreamFailure(t *testing.T) {
	s := newSurface(t, "<p>old</p>")
	cfg := testSessionConfig()
	var reported error
	cfg.Callbacks.OnError = func(err error) { reported = err }

	res := NewSession(s, cfg).Run(context.Background(), feed(
		Text{"<p>partial"}, Failure{Err: errBoom}, Text{"<p>ignored</p>"},
	))

	assert.Equal(t, StatusFailed, res.Status)
	assert.True(t, errors.Is(res.Err, errBoom))
	assert.True(t, errors.Is(reported, errBoom))
	assert.Equal(t, "<p>Error while processing the request</p>", s.HTML())
	assert.Equal(t, 1, res.Deltas)
}

func TestSession_FailureBeforeAnyText(t *testing.T) {
	s := newSurface(t, "<p>old</p>")
	res := NewSession(s, testSessionConfig()).Run(context.Background(), feed(Failure{Err: errBoom}))

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "<p>Error while processing the request</p>", s.HTML())
}

func TestSession_Canceled(t *testing.T) {
	s := newSurface(t, "<p>old</p>")
	ch := make(chan Delta, 1)
	ch <- Text{"<p>one</p>"}

	ctx, cancel := context.WithCancel(context.Background())
	cfg := testSessionConfig()
	cfg.Callbacks.OnCheckpoint = func(Checkpoint) { cancel() }

	done := make(chan Result, 1)
	go func() { done <- NewSession(s, cfg).Run(ctx, ch) }()

	select {
	case res := <-done:
		assert.Equal(t, StatusCanceled, res.Status)
		assert.True(t, errors.Is(res.Err, context.Canceled))
		assert.Equal(t, "<p>Error while processing the request</p>", s.HTML())
	case <-time.After(5 * time.Second):
		t.Fatal("session did not observe cancellation")
	}
}

func TestSession_ReplaceFailure(t *testing.T) {
	s := newSurface(t, "<p>old</p>")
	s.failOn = 1
	res := NewSession(s, testSessionConfig()).Run(context.Background(), feed(Text{"<p>x</p>"}, End{}))

	assert.Equal(t, StatusFailed, res.Status)
	assert.True(t, errors.Is(res.Err, ErrReplaceFailed))
	require.Len(t, s.calls, 2)
	assert.Equal(t, "<p>Error while processing the request</p>", s.HTML())
}

func TestSession_RenderDelayPaces(t *testing.T) {
	s := newSurface(t, "<p></p>")
	cfg := testSessionConfig()
	cfg.RenderDelay = 10 * time.Millisecond

	res := NewSession(s, cfg).Run(context.Background(), feed(
		Text{"<p>a"}, Text{"b"}, Text{"c"}, Text{"d</p>"}, End{},
	))

	assert.Equal(t, StatusCompleted, res.Status)
	assert.GreaterOrEqual(t, res.Duration, 25*time.Millisecond)
	assert.Equal(t, "<p>abcd</p>", s.HTML())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "completed", StatusCompleted.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "canceled", StatusCanceled.String())
	assert.Equal(t, "unknown", Status(42).String())
}
