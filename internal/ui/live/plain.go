// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package live

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jeranaias/inkwell/internal/generate"
	"github.com/jeranaias/inkwell/internal/reconcile"
	"github.com/jeranaias/inkwell/internal/ui/styles"
)

// frameInterval bounds how often Plain prints progress.
const frameInterval = 100 * time.Millisecond

// Plain runs req through svc and reports progress as plain lines on w.
// It is used when stdout is not a terminal.
func Plain(ctx context.Context, svc *generate.Service, req generate.Request, w io.Writer) (reconcile.Result, error) {
	pr := &progress{w: w, now: time.Now}
	req.Callbacks = chainCallbacks(req.Callbacks, pr.callbacks())
	res, err := svc.Generate(ctx, req)
	if err != nil {
		return res, err
	}
	pr.summary(res)
	return res, nil
}

// progress throttles checkpoint lines to one per frameInterval.
type progress struct {
	mu   sync.Mutex
	w    io.Writer
	now  func() time.Time
	last time.Time
	seen int
}

func (p *progress) callbacks() reconcile.Callbacks {
	return reconcile.Callbacks{
		OnStart: func(id string) {
			p.mu.Lock()
			defer p.mu.Unlock()
			fmt.Fprintf(p.w, "%s generation %s\n", styles.StatusIndicators.Pending, shortID(id))
		},
		OnCheckpoint: func(cp reconcile.Checkpoint) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.seen = cp.Seq
			now := p.now()
			if !cp.Final && now.Sub(p.last) < frameInterval {
				return
			}
			p.last = now
			fmt.Fprintf(p.w, "  checkpoint %d: %d bytes, range [%d, %d)\n", cp.Seq, cp.Bytes, cp.Replaced.From, cp.End)
		},
		OnError: func(err error) {
			p.mu.Lock()
			defer p.mu.Unlock()
			fmt.Fprintf(p.w, "%s %v\n", styles.StatusIndicators.Warning, err)
		},
	}
}

func (p *progress) summary(res reconcile.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	detail := fmt.Sprintf("%d checkpoints, %d bytes in %s",
		res.Checkpoints, res.Bytes, res.Duration.Round(time.Millisecond))
	if res.Reason != "" {
		detail += " (" + res.Reason + ")"
	}
	fmt.Fprintln(p.w, styles.RenderStatus(res.Status.String())+" "+detail)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
