// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package live

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/inkwell/internal/document"
	"github.com/jeranaias/inkwell/internal/generate"
	"github.com/jeranaias/inkwell/internal/reconcile"
	"github.com/jeranaias/inkwell/internal/storage"
)

// IO redirects the program's terminal. Zero values use the process's
// stdin and stdout.
type IO struct {
	In  io.Reader
	Out io.Writer
}

func (o IO) options() []tea.ProgramOption {
	var opts []tea.ProgramOption
	if o.In != nil {
		opts = append(opts, tea.WithInput(o.In))
	}
	if o.Out != nil {
		opts = append(opts, tea.WithOutput(o.Out))
	}
	return opts
}

// Generate runs req through svc while showing the document live. It
// returns once the generation has finished and the view has closed.
func Generate(ctx context.Context, svc *generate.Service, req generate.Request, cfg Config, term IO) (reconcile.Result, error) {
	gctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg.Cancel = cancel
	if cfg.Provider == "" {
		cfg.Provider = svc.Provider().Name()
		cfg.Model = svc.Provider().Model()
	}
	if cfg.Prompt == "" {
		cfg.Prompt = req.Prompt
	}

	m := New(req.Document, cfg, true)
	p := tea.NewProgram(m, append(term.options(), tea.WithContext(ctx))...)

	req.Callbacks = chainCallbacks(req.Callbacks, reconcile.Callbacks{
		OnStart:      func(id string) { p.Send(StartedMsg{ID: id}) },
		OnCheckpoint: func(cp reconcile.Checkpoint) { p.Send(CheckpointMsg{Checkpoint: cp}) },
	})

	type outcome struct {
		res reconcile.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := svc.Generate(gctx, req)
		done <- outcome{res, err}
		p.Send(FinishedMsg{Result: res, Err: err})
	}()

	final, runErr := p.Run()
	// The view may close first; stop the generation and wait for it.
	cancel()
	out := <-done

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return out.res, fmt.Errorf("live view: %w", runErr)
	}
	if out.err != nil {
		return out.res, out.err
	}
	if fm, ok := final.(Model); ok {
		if res, ok := fm.Result(); ok {
			return res, nil
		}
	}
	return out.res, nil
}

// Preview shows doc until the user quits. With watchPath set, the view
// follows changes to that file.
func Preview(ctx context.Context, doc *document.Document, cfg Config, watchPath string, term IO) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(doc, cfg, false), append(term.options(), tea.WithContext(ctx))...)

	if watchPath != "" {
		schema := doc.Schema()
		go func() {
			err := storage.WatchDocument(ctx, watchPath, schema, storage.DefaultDebounce, func(d *document.Document, err error) {
				p.Send(DocumentMsg{Doc: d, Err: err})
			})
			if err != nil {
				p.Send(DocumentMsg{Err: err})
			}
		}()
	}

	_, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}

// chainCallbacks runs a then b for every event.
func chainCallbacks(a, b reconcile.Callbacks) reconcile.Callbacks {
	return reconcile.Callbacks{
		OnStart: func(id string) {
			if a.OnStart != nil {
				a.OnStart(id)
			}
			if b.OnStart != nil {
				b.OnStart(id)
			}
		},
		OnCheckpoint: func(cp reconcile.Checkpoint) {
			if a.OnCheckpoint != nil {
				a.OnCheckpoint(cp)
			}
			if b.OnCheckpoint != nil {
				b.OnCheckpoint(cp)
			}
		},
		OnFinish: func(r reconcile.Result) {
			if a.OnFinish != nil {
				a.OnFinish(r)
			}
			if b.OnFinish != nil {
				b.OnFinish(r)
			}
		},
		OnError: func(err error) {
			if a.OnError != nil {
				a.OnError(err)
			}
			if b.OnError != nil {
				b.OnError(err)
			}
		},
	}
}
