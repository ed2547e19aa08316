// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"errors"
	"sync"

	"github.com/jeranaias/inkwell/internal/document"
)

// ErrSuperseded is returned for writes through a lease that is no longer
// the current generation.
var ErrSuperseded = errors.New("reconcile: generation superseded")

// Coordinator serializes generation requests against one surface. Begin
// cancels the request in flight, waits until it has released its lease,
// and only then hands out the next one.
type Coordinator struct {
	surface Surface

	mu     sync.Mutex
	gen    uint64
	active *Lease
}

// NewCoordinator creates a coordinator for surface.
func NewCoordinator(surface Surface) *Coordinator {
	return &Coordinator{surface: surface}
}

// Begin starts a new generation. The returned lease's context is canceled
// when a later Begin or Cancel supersedes it. The caller must Release the
// lease when its session returns.
func (c *Coordinator) Begin(ctx context.Context) (*Lease, error) {
	for {
		c.mu.Lock()
		prev := c.active
		if prev == nil {
			break
		}
		c.mu.Unlock()

		prev.cancel()
		select {
		case <-prev.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	defer c.mu.Unlock()

	c.gen++
	lctx, cancel := context.WithCancel(ctx)
	l := &Lease{
		c:      c,
		gen:    c.gen,
		ctx:    lctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.active = l
	return l, nil
}

// Cancel cancels the generation in flight, if any.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	l := c.active
	c.mu.Unlock()
	if l != nil {
		l.cancel()
	}
}

// Busy reports whether a lease is outstanding.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Generation returns the number of leases handed out.
func (c *Coordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *Coordinator) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil && c.active.gen == gen
}

// Lease is one generation's exclusive right to write to the surface.
type Lease struct {
	c      *Coordinator
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Context is canceled when the lease is superseded or canceled.
func (l *Lease) Context() context.Context { return l.ctx }

// Generation identifies the lease.
func (l *Lease) Generation() uint64 { return l.gen }

// Surface returns a view of the coordinator's surface that rejects
// replacements with ErrSuperseded once the lease is released.
func (l *Lease) Surface() Surface {
	return &leasedSurface{lease: l, inner: l.c.surface}
}

// Release ends the lease and lets a waiting Begin proceed. It is safe to
// call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.c.mu.Lock()
		if l.c.active == l {
			l.c.active = nil
		}
		l.c.mu.Unlock()
		l.cancel()
		close(l.done)
	})
}

type leasedSurface struct {
	lease *Lease
	inner Surface
}

func (s *leasedSurface) Size() int                 { return s.inner.Size() }
func (s *leasedSurface) Selection() document.Range { return s.inner.Selection() }

func (s *leasedSurface) Parse(markup string) (document.Slice, error) {
	return s.inner.Parse(markup)
}

func (s *leasedSurface) ReplaceRange(from, to int, slice document.Slice) (int, error) {
	if !s.lease.c.current(s.lease.gen) {
		return 0, ErrSuperseded
	}
	return s.inner.ReplaceRange(from, to, slice)
}
