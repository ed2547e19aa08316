// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/inkwell/internal/config"
	"github.com/jeranaias/inkwell/internal/document"
	"github.com/jeranaias/inkwell/internal/provider"
	"github.com/jeranaias/inkwell/internal/reconcile"
	"github.com/jeranaias/inkwell/internal/storage"
)

// scripted is a provider that plays fixed deltas and keeps the last
// request it saw.
type scripted struct {
	deltas []reconcile.Delta
	hold   chan struct{}

	mu   sync.Mutex
	last provider.Request
}

func (p *scripted) Name() string  { return "scripted" }
func (p *scripted) Model() string { return "m1" }

func (p *scripted) Stream(ctx context.Context, req provider.Request) <-chan reconcile.Delta {
	p.mu.Lock()
	p.last = req
	deltas, hold := p.deltas, p.hold
	p.mu.Unlock()

	ch := make(chan reconcile.Delta)
	go func() {
		defer close(ch)
		for _, d := range deltas {
			select {
			case ch <- d:
			case <-ctx.Done():
				return
			}
		}
		if hold != nil {
			select {
			case <-hold:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}

func (p *scripted) script(deltas []reconcile.Delta, hold chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deltas, p.hold = deltas, hold
}

func (p *scripted) request() provider.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Stream.RenderDelayMs = 0
	cfg.Prompt.System = "sys"
	return cfg
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func newService(t *testing.T, p provider.Provider, j *storage.Journal) *Service {
	t.Helper()
	svc, err := New(Options{Provider: p, Journal: j, Config: testConfig(), Logger: quiet()})
	require.NoError(t, err)
	return svc
}

func openJournal(t *testing.T) *storage.Journal {
	t.Helper()
	j, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestNew_RequiresProvider(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestGenerate_WholeDocumentReplay(t *testing.T) {
	j := openJournal(t)
	svc := newService(t, provider.NewReplay("<h1>Title</h1><p>Body text</p>", 3), j)
	doc := document.New(nil)

	var cps int
	res, err := svc.Generate(context.Background(), Request{
		Document:  doc,
		Name:      "notes.html",
		Prompt:    "write",
		Callbacks: reconcile.Callbacks{OnCheckpoint: func(reconcile.Checkpoint) { cps++ }},
	})
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusCompleted, res.Status)
	assert.True(t, res.Whole)
	assert.Equal(t, "replay", res.Reason)
	assert.Equal(t, "<h1>Title</h1><p>Body text</p>", doc.HTML())
	assert.Equal(t, res.Checkpoints, cps)
	assert.False(t, svc.Busy(doc))

	entries, err := j.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, res.ID, e.ID)
	assert.Equal(t, "notes.html", e.Document)
	assert.Equal(t, "replay", e.Provider)
	assert.Equal(t, storage.ModeWhole, e.Mode)
	assert.Equal(t, "completed", e.Status)
	assert.Equal(t, doc.HTML(), e.FinalHTML)
	assert.Empty(t, e.Error)
}

func TestGenerate_SendsSelectionAndSystemPrompt(t *testing.T) {
	p := &scripted{deltas: []reconcile.Delta{reconcile.Text{Text: "<p>fine</p>"}, reconcile.End{Reason: "stop"}}}
	svc := newService(t, p, nil)

	doc, err := document.FromHTML(nil, "<p>Check if test ok</p>")
	require.NoError(t, err)
	require.NoError(t, doc.SetSelection(document.Range{From: 10, To: 14}))

	res, err := svc.Generate(context.Background(), Request{Document: doc, Prompt: "fix it"})
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusCompleted, res.Status)
	assert.False(t, res.Whole)
	assert.Equal(t, "<p>Check if fine ok</p>", doc.HTML())

	req := p.request()
	assert.Equal(t, "sys", req.System)
	assert.Equal(t, "test", req.Selection)
	assert.Equal(t, "fix it", req.Prompt)
}

func TestGenerate_EmptySelectionSendsWholeText(t *testing.T) {
	p := &scripted{deltas: []reconcile.Delta{reconcile.End{}}}
	svc := newService(t, p, nil)

	doc, err := document.FromHTML(nil, "<p>one</p><p>two</p>")
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), Request{Document: doc, Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, doc.Text(), p.request().Selection)
	assert.Contains(t, p.request().Selection, "one")
}

func TestGenerate_FailureWritesMarkerAndJournals(t *testing.T) {
	j := openJournal(t)
	p := &scripted{deltas: []reconcile.Delta{
		reconcile.Text{Text: "<p>partial"},
		reconcile.Failure{Err: errors.New("upstream closed")},
	}}
	svc := newService(t, p, j)
	doc := document.New(nil)

	res, err := svc.Generate(context.Background(), Request{Document: doc, Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusFailed, res.Status)
	assert.Equal(t, "<p>Error while processing the request</p>", doc.HTML())

	e, err := j.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "failed", e.Status)
	assert.Contains(t, e.Error, "upstream closed")
	assert.Equal(t, "scripted", e.Provider)
	assert.Equal(t, "m1", e.Model)
}

func TestGenerate_Validation(t *testing.T) {
	svc := newService(t, &scripted{}, nil)

	_, err := svc.Generate(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrNoDocument)

	_, err = svc.Generate(context.Background(), Request{Document: document.New(nil)})
	assert.ErrorIs(t, err, provider.ErrEmptyPrompt)
}

func TestGenerate_NewRequestSupersedesInFlight(t *testing.T) {
	j := openJournal(t)
	first := &scripted{
		deltas: []reconcile.Delta{reconcile.Text{Text: "<p>first</p>"}},
		hold:   make(chan struct{}),
	}
	svc := newService(t, first, j)
	doc := document.New(nil)

	started := make(chan struct{})
	done := make(chan reconcile.Result, 1)
	go func() {
		res, err := svc.Generate(context.Background(), Request{
			Document:  doc,
			Prompt:    "one",
			Callbacks: reconcile.Callbacks{OnCheckpoint: func(reconcile.Checkpoint) { close(started) }},
		})
		assert.NoError(t, err)
		done <- res
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never rendered")
	}
	assert.True(t, svc.Busy(doc))

	first.script([]reconcile.Delta{reconcile.Text{Text: "<p>second</p>"}, reconcile.End{}}, nil)
	res, err := svc.Generate(context.Background(), Request{Document: doc, Prompt: "two"})
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusCompleted, res.Status)

	prev := <-done
	assert.Equal(t, reconcile.StatusCanceled, prev.Status)
	assert.Equal(t, "<p>second</p>", doc.HTML())

	n, err := j.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCancel(t *testing.T) {
	p := &scripted{deltas: []reconcile.Delta{reconcile.Text{Text: "<p>a</p>"}}, hold: make(chan struct{})}
	svc := newService(t, p, nil)
	doc := document.New(nil)

	rendered := make(chan struct{})
	go func() {
		<-rendered
		svc.Cancel(doc)
	}()

	res, err := svc.Generate(context.Background(), Request{
		Document:  doc,
		Prompt:    "x",
		Callbacks: reconcile.Callbacks{OnCheckpoint: func(reconcile.Checkpoint) { close(rendered) }},
	})
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusCanceled, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, "<p>Error while processing the request</p>", doc.HTML())

	// nothing in flight
	svc.Cancel(document.New(nil))
	svc.CancelAll()
}

func TestGenerate_PrunesJournal(t *testing.T) {
	j := openJournal(t)
	cfg := testConfig()
	cfg.Storage.MaxEntries = 2
	svc, err := New(Options{Provider: provider.NewReplay("<p>x</p>", 0), Journal: j, Config: cfg, Logger: quiet()})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := svc.Generate(context.Background(), Request{Document: document.New(nil), Prompt: "x"})
		require.NoError(t, err)
	}
	n, err := j.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNew_FallsBackToGlobalConfig(t *testing.T) {
	cfg := testConfig()
	config.SetGlobal(cfg)
	t.Cleanup(config.ResetGlobalForTesting)

	svc, err := New(Options{Provider: provider.NewReplay("<p>x</p>", 0), Logger: quiet()})
	require.NoError(t, err)
	assert.Same(t, cfg, svc.cfg)
}
