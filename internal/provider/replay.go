// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/jeranaias/inkwell/internal/reconcile"
)

// DefaultReplayChunk is the number of runes per replayed delta.
const DefaultReplayChunk = 8

// ErrInjected is the failure a Replay emits at FailAfter.
var ErrInjected = errors.New("replay: injected stream failure")

// Replay plays back recorded markup in fixed-size rune chunks. The
// request is ignored.
type Replay struct {
	Markup string
	// Chunk is the number of runes per delta.
	Chunk int
	// Interval is the pause between deltas.
	Interval time.Duration
	// FailAfter, when positive, replaces the rest of the stream with a
	// Failure after that many deltas.
	FailAfter int
	// Err is the injected failure (default ErrInjected).
	Err error
}

// NewReplay creates a replay of markup.
func NewReplay(markup string, chunk int) *Replay {
	if chunk <= 0 {
		chunk = DefaultReplayChunk
	}
	return &Replay{Markup: markup, Chunk: chunk}
}

// LoadReplay reads the markup to replay from path.
func LoadReplay(path string, chunk int) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load replay: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("load replay %s: not valid UTF-8", path)
	}
	return NewReplay(string(data), chunk), nil
}

func (r *Replay) Name() string  { return "replay" }
func (r *Replay) Model() string { return "" }

// Chunks returns the deltas the replay emits, in order.
func (r *Replay) Chunks() []string {
	size := r.Chunk
	if size <= 0 {
		size = DefaultReplayChunk
	}
	var out []string
	s := r.Markup
	for s != "" {
		n, i := 0, 0
		for i < len(s) && n < size {
			_, w := utf8.DecodeRuneInString(s[i:])
			i += w
			n++
		}
		out = append(out, s[:i])
		s = s[i:]
	}
	return out
}

// Stream implements Provider.
func (r *Replay) Stream(ctx context.Context, _ Request) <-chan reconcile.Delta {
	return run(ctx, func(e emitter) {
		for i, chunk := range r.Chunks() {
			if r.FailAfter > 0 && i == r.FailAfter {
				e.send(reconcile.Failure{Err: r.failure()})
				return
			}
			if i > 0 && r.Interval > 0 {
				t := time.NewTimer(r.Interval)
				select {
				case <-ctx.Done():
					t.Stop()
					return
				case <-t.C:
				}
			}
			if !e.send(reconcile.Text{Text: chunk}) {
				return
			}
		}
		e.send(reconcile.End{Reason: "replay"})
	})
}

func (r *Replay) failure() error {
	if r.Err != nil {
		return r.Err
	}
	return ErrInjected
}
