// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/inkwell/internal/ollama"
	"github.com/jeranaias/inkwell/internal/reconcile"
)

// Local generates with a local Ollama server.
type Local struct {
	client *ollama.Client
	model  string
	opts   *ollama.Options
}

// NewLocal creates a provider for model. opts may be nil.
func NewLocal(client *ollama.Client, model string, opts *ollama.Options) *Local {
	if model == "" {
		model = client.Config().DefaultModel
	}
	return &Local{client: client, model: model, opts: opts}
}

func (l *Local) Name() string  { return "local" }
func (l *Local) Model() string { return l.model }

// Stream implements Provider.
func (l *Local) Stream(ctx context.Context, req Request) <-chan reconcile.Delta {
	return run(ctx, func(e emitter) {
		if err := req.Validate(); err != nil {
			e.send(reconcile.Failure{Err: err})
			return
		}

		turns := req.Turns()
		messages := make([]ollama.Message, len(turns))
		for i, t := range turns {
			messages[i] = ollama.Message{Role: t.Role, Content: t.Content}
		}

		var reason string
		for chunk := range l.client.ChatStreamChan(ctx, l.model, messages, l.opts) {
			if chunk.Error != nil {
				if ctx.Err() != nil {
					return
				}
				e.send(reconcile.Failure{Err: l.explain(ctx, chunk.Error)})
				return
			}
			if chunk.Content != "" {
				e.send(reconcile.Text{Text: chunk.Content})
			}
			if chunk.Done {
				reason = chunk.DoneReason
			}
		}
		if ctx.Err() != nil {
			return
		}
		e.send(reconcile.End{Reason: reason})
	})
}

// explain adds the installed models to a model-not-found error.
func (l *Local) explain(ctx context.Context, err error) error {
	if !ollama.IsModelNotFound(err) {
		return err
	}
	models, listErr := l.client.ListModels(ctx)
	if listErr != nil || len(models) == 0 {
		return fmt.Errorf("%w: %s", err, l.model)
	}
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	return fmt.Errorf("%w: %s (installed: %s)", err, l.model, strings.Join(names, ", "))
}
