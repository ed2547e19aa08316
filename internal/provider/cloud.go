// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"

	"github.com/jeranaias/inkwell/internal/cloud"
	"github.com/jeranaias/inkwell/internal/reconcile"
)

// Cloud generates with an OpenAI-compatible API.
type Cloud struct {
	client *cloud.Client
}

// NewCloud creates a provider backed by client.
func NewCloud(client *cloud.Client) *Cloud {
	return &Cloud{client: client}
}

func (c *Cloud) Name() string  { return "cloud" }
func (c *Cloud) Model() string { return c.client.Model() }

// Stream implements Provider.
func (c *Cloud) Stream(ctx context.Context, req Request) <-chan reconcile.Delta {
	return run(ctx, func(e emitter) {
		if err := req.Validate(); err != nil {
			e.send(reconcile.Failure{Err: err})
			return
		}

		turns := req.Turns()
		messages := make([]cloud.Message, len(turns))
		for i, t := range turns {
			messages[i] = cloud.Message{Role: t.Role, Content: t.Content}
		}

		var reason string
		err := c.client.Stream(ctx, messages, func(chunk cloud.StreamChunk) {
			if chunk.Content != "" {
				e.send(reconcile.Text{Text: chunk.Content})
			}
			if chunk.Done {
				reason = chunk.FinishReason
			}
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			e.send(reconcile.Failure{Err: err})
			return
		}
		e.send(reconcile.End{Reason: reason})
	})
}
