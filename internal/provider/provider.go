// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jeranaias/inkwell/internal/cloud"
	"github.com/jeranaias/inkwell/internal/config"
	"github.com/jeranaias/inkwell/internal/ollama"
	"github.com/jeranaias/inkwell/internal/reconcile"
)

// ErrEmptyPrompt is returned by Request.Validate for a blank prompt.
var ErrEmptyPrompt = errors.New("provider: empty prompt")

// Request is one generation request. Fields are passed to the model as
// given.
type Request struct {
	// System is the system prompt.
	System string
	// Selection is the document text the prompt refers to. It is sent as
	// its own user turn ahead of the prompt when not empty.
	Selection string
	// Prompt is the user's instruction.
	Prompt string
}

// Validate reports whether the request can be sent.
func (r Request) Validate() error {
	if r.Prompt == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// Turn is one role-tagged message.
type Turn struct {
	Role    string
	Content string
}

// Turns returns the request as chat turns: system, selection, prompt.
func (r Request) Turns() []Turn {
	turns := make([]Turn, 0, 3)
	if r.System != "" {
		turns = append(turns, Turn{Role: "system", Content: r.System})
	}
	if r.Selection != "" {
		turns = append(turns, Turn{Role: "user", Content: r.Selection})
	}
	return append(turns, Turn{Role: "user", Content: r.Prompt})
}

// Provider streams generated markup.
type Provider interface {
	// Name identifies the provider in logs and the journal.
	Name() string
	// Model is the model the provider generates with, if any.
	Model() string
	// Stream starts generating. The returned channel carries Text deltas
	// and then exactly one End or Failure before it is closed. When ctx is
	// canceled the channel is closed without a terminal delta.
	Stream(ctx context.Context, req Request) <-chan reconcile.Delta
}

// emitter writes deltas to a channel and gives up once ctx is done.
type emitter struct {
	ctx context.Context
	ch  chan<- reconcile.Delta
}

func (e emitter) send(d reconcile.Delta) bool {
	select {
	case e.ch <- d:
		return true
	case <-e.ctx.Done():
		return false
	}
}

// run starts fn on a goroutine with an emitter bound to a fresh channel
// and closes the channel when fn returns.
func run(ctx context.Context, fn func(emitter)) <-chan reconcile.Delta {
	ch := make(chan reconcile.Delta)
	go func() {
		defer close(ch)
		fn(emitter{ctx: ctx, ch: ch})
	}()
	return ch
}

// FromConfig builds the provider selected by cfg.Provider.Name.
func FromConfig(cfg *config.Config, logger *log.Logger) (Provider, error) {
	switch cfg.Provider.Name {
	case "local":
		client := ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:      cfg.Local.OllamaURL,
			DefaultModel: cfg.Local.Model,
		})
		return NewLocal(client, cfg.Local.Model, nil), nil

	case "cloud":
		api, err := cloud.ParseAPI(cfg.Cloud.API)
		if err != nil {
			return nil, err
		}
		client := cloud.NewClient(cloud.Config{
			APIKey:          cfg.Cloud.APIKey,
			BaseURL:         cfg.Cloud.BaseURL,
			Model:           cfg.Cloud.Model,
			API:             api,
			Temperature:     cfg.Cloud.Temperature,
			MaxOutputTokens: cfg.Cloud.MaxOutputTokens,
			MaxRetries:      cfg.Cloud.MaxRetries,
			Logger:          logger,
		})
		if !client.IsConfigured() {
			return nil, fmt.Errorf("provider cloud: %w (set cloud.api_key or INKWELL_API_KEY)", cloud.ErrNotConfigured)
		}
		return NewCloud(client), nil

	case "replay":
		r, err := LoadReplay(cfg.Provider.ReplayFile, cfg.Provider.ReplayChunk)
		if err != nil {
			return nil, err
		}
		r.Interval = time.Duration(cfg.Stream.RenderDelayMs) * time.Millisecond
		return r, nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
}
