// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jeranaias/inkwell/internal/document"
)

// DefaultRenderDelay is the pause after each delta that lets a view
// repaint before the next one is read.
const DefaultRenderDelay = 5 * time.Millisecond

// Status is the outcome of a session.
type Status int

const (
	StatusCompleted Status = iota
	StatusFailed
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Result summarizes one generation request.
type Result struct {
	ID          string
	Status      Status
	Err         error
	Whole       bool
	Start       int
	End         int
	Checkpoints int
	Deltas      int
	Bytes       int
	Reason      string
	Duration    time.Duration
}

// Callbacks observe a session. All are optional and run on the goroutine
// calling Run.
type Callbacks struct {
	OnStart      func(id string)
	OnCheckpoint func(Checkpoint)
	OnFinish     func(Result)
	OnError      func(error)
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Reconciler  Config
	RenderDelay time.Duration
	Callbacks   Callbacks
	Logger      *log.Logger
}

// DefaultSessionConfig returns the default reconciler settings and render
// delay.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{Reconciler: DefaultConfig(), RenderDelay: DefaultRenderDelay}
}

// Session drives one Reconciler from a delta channel.
type Session struct {
	surface Surface
	cfg     SessionConfig
	log     *log.Logger
}

// NewSession creates a session writing into surface.
func NewSession(surface Surface, cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	if cfg.Reconciler.Logger == nil {
		cfg.Reconciler.Logger = logger
	}
	return &Session{surface: surface, cfg: cfg, log: logger}
}

// Run consumes deltas until the stream ends, fails or ctx is canceled.
// Every outcome ends in a document mutation for a non-empty request and is
// reported through the returned Result; Run does not return errors or
// panic.
func (s *Session) Run(ctx context.Context, deltas <-chan Delta) (res Result) {
	res.ID = uuid.NewString()
	started := time.Now()

	rcfg := s.cfg.Reconciler
	userCheckpoint := rcfg.OnCheckpoint
	rcfg.OnCheckpoint = func(cp Checkpoint) {
		res.Checkpoints++
		res.End = cp.End
		if userCheckpoint != nil {
			userCheckpoint(cp)
		}
		if s.cfg.Callbacks.OnCheckpoint != nil {
			s.cfg.Callbacks.OnCheckpoint(cp)
		}
	}
	rec := NewWithConfig(s.surface, rcfg)

	var limiter *rate.Limiter
	if s.cfg.RenderDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(s.cfg.RenderDelay), 1)
	}

	defer func() {
		if p := recover(); p != nil {
			s.log.Printf("PANIC_RECOVERED | session=%s error=%v", res.ID, p)
			res.Status = StatusFailed
			res.Err = fmt.Errorf("reconcile: session panic: %v", p)
			if rec.Active() {
				_ = rec.Abort(res.Err)
			}
			s.notifyError(res.Err)
		}
		res.Duration = time.Since(started)
		s.log.Printf("SESSION_FINISH | session=%s status=%s checkpoints=%d deltas=%d bytes=%d duration=%s",
			res.ID, res.Status, res.Checkpoints, res.Deltas, res.Bytes, res.Duration.Round(time.Millisecond))
		if s.cfg.Callbacks.OnFinish != nil {
			s.cfg.Callbacks.OnFinish(res)
		}
	}()

	sel := s.surface.Selection()
	res.Whole = sel.Empty()
	res.Start, res.End = ownedStart(sel), sel.To
	s.log.Printf("SESSION_START | session=%s whole=%t from=%d to=%d", res.ID, res.Whole, sel.From, sel.To)
	if s.cfg.Callbacks.OnStart != nil {
		s.cfg.Callbacks.OnStart(res.ID)
	}

	for {
		if err := ctx.Err(); err != nil {
			s.abort(rec, &res, StatusCanceled, err)
			return res
		}
		select {
		case <-ctx.Done():
			s.abort(rec, &res, StatusCanceled, ctx.Err())
			return res
		case d, ok := <-deltas:
			if !ok {
				s.finish(rec, &res)
				return res
			}
			switch d := d.(type) {
			case Text:
				res.Deltas++
				res.Bytes += len(d.Text)
				if err := rec.Ingest(d.Text); err != nil {
					s.fail(&res, StatusFailed, err)
					return res
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						s.abort(rec, &res, StatusCanceled, ctx.Err())
						return res
					}
				}
			case End:
				res.Reason = d.Reason
				s.finish(rec, &res)
				return res
			case Failure:
				s.log.Printf("STREAM_ERROR | session=%s error=%v", res.ID, d.Err)
				s.abort(rec, &res, StatusFailed, d.Err)
				return res
			}
		}
	}
}

func ownedStart(sel document.Range) int {
	if sel.Empty() {
		return 0
	}
	return sel.From
}

func (s *Session) finish(rec *Reconciler, res *Result) {
	if err := rec.Finish(); err != nil {
		s.fail(res, StatusFailed, err)
		return
	}
	if res.Whole {
		res.End = s.surface.Size()
	}
	res.Status = StatusCompleted
}

func (s *Session) abort(rec *Reconciler, res *Result, status Status, reason error) {
	if reason == nil {
		reason = errors.New("reconcile: stream aborted")
	}
	s.log.Printf("SESSION_ABORT | session=%s status=%s reason=%v", res.ID, status, reason)
	err := rec.Abort(reason)
	if err != nil {
		reason = errors.Join(reason, err)
	}
	s.fail(res, status, reason)
}

func (s *Session) fail(res *Result, status Status, err error) {
	res.Status = status
	res.Err = err
	s.notifyError(err)
}

func (s *Session) notifyError(err error) {
	if s.cfg.Callbacks.OnError != nil {
		s.cfg.Callbacks.OnError(err)
	}
}
