// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package live

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/inkwell/internal/config"
	"github.com/jeranaias/inkwell/internal/document"
	"github.com/jeranaias/inkwell/internal/generate"
	"github.com/jeranaias/inkwell/internal/provider"
	"github.com/jeranaias/inkwell/internal/reconcile"
	"github.com/jeranaias/inkwell/internal/ui/styles"
)

func mustDoc(t *testing.T, markup string) *document.Document {
	t.Helper()
	doc, err := document.FromHTML(nil, markup)
	if err != nil {
		t.Fatalf("FromHTML(%q): %v", markup, err)
	}
	return doc
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func testConfig() Config {
	return Config{Theme: styles.NewThemeFor("dark"), Title: "notes.html", Provider: "replay"}
}

// =============================================================================
// MODEL TESTS
// =============================================================================

func TestModelViewBeforeResize(t *testing.T) {
	m := New(mustDoc(t, "<p>hi</p>"), testConfig(), false)
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() before size = %q", got)
	}
}

func TestModelRendersDocument(t *testing.T) {
	m := sized(New(mustDoc(t, "<h1>Heading</h1><p>Body text</p>"), testConfig(), false))

	view := m.View()
	for _, want := range []string{"notes.html", "Heading", "Body", "quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestModelCheckpointRefreshes(t *testing.T) {
	doc := mustDoc(t, "<p>old</p>")
	m := sized(New(doc, testConfig(), true))

	slice, err := doc.Parse("<p>fresh words</p>")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := doc.ReplaceRange(0, doc.Size(), slice); err != nil {
		t.Fatalf("ReplaceRange: %v", err)
	}

	next, _ := m.Update(CheckpointMsg{Checkpoint: reconcile.Checkpoint{Seq: 3}})
	m = next.(Model)
	if m.checkpoints != 3 {
		t.Errorf("checkpoints = %d, want 3", m.checkpoints)
	}
	view := m.View()
	if !strings.Contains(view, "fresh") {
		t.Error("View() should show the replaced content")
	}
	if !strings.Contains(view, "cancel") {
		t.Error("status bar should offer cancel while generating")
	}
}

func TestModelFinished(t *testing.T) {
	cfg := testConfig()
	cfg.AutoQuit = true
	m := sized(New(mustDoc(t, "<p>x</p>"), cfg, true))

	res := reconcile.Result{ID: "abc", Status: reconcile.StatusCompleted, Checkpoints: 2}
	next, cmd := m.Update(FinishedMsg{Result: res})
	m = next.(Model)

	if cmd == nil {
		t.Fatal("AutoQuit should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("AutoQuit should quit")
	}
	got, ok := m.Result()
	if !ok || got.ID != "abc" {
		t.Errorf("Result() = %+v, %v", got, ok)
	}
	if m.generating {
		t.Error("generating should be cleared")
	}
}

func TestModelFinishedWithError(t *testing.T) {
	m := sized(New(mustDoc(t, "<p>x</p>"), testConfig(), true))
	boom := errors.New("provider unreachable")

	next, cmd := m.Update(FinishedMsg{Err: boom})
	m = next.(Model)
	if cmd != nil {
		t.Error("without AutoQuit the view should stay open")
	}
	if !errors.Is(m.Err(), boom) {
		t.Errorf("Err() = %v", m.Err())
	}
	if _, ok := m.Result(); ok {
		t.Error("Result() should be empty when the request never started")
	}
	if !strings.Contains(m.View(), "provider unreachable") {
		t.Error("View() should show the error")
	}
}

func TestModelDocumentSwap(t *testing.T) {
	m := sized(New(mustDoc(t, "<p>first</p>"), testConfig(), false))

	next, _ := m.Update(DocumentMsg{Doc: mustDoc(t, "<p>second</p>")})
	m = next.(Model)
	if !strings.Contains(m.View(), "second") {
		t.Error("View() should show the reloaded document")
	}

	next, _ = m.Update(DocumentMsg{Err: errors.New("bad file")})
	m = next.(Model)
	if m.Err() == nil || !strings.Contains(m.View(), "second") {
		t.Error("a reload error should keep the last document")
	}
}

func TestModelKeys(t *testing.T) {
	canceled := 0
	cfg := testConfig()
	cfg.Cancel = func() { canceled++ }

	m := sized(New(mustDoc(t, "<p>x</p>"), cfg, true))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd != nil {
		t.Error("q should be ignored while generating")
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd != nil || canceled != 1 {
		t.Errorf("esc while generating: cmd=%v canceled=%d", cmd != nil, canceled)
	}

	next, _ := m.Update(FinishedMsg{Result: reconcile.Result{Status: reconcile.StatusCanceled}})
	m = next.(Model)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c when idle should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c when idle should quit")
	}
	if canceled != 1 {
		t.Errorf("Cancel called %d times, want 1", canceled)
	}
}

// =============================================================================
// CALLBACK AND PLAIN OUTPUT TESTS
// =============================================================================

func TestChainCallbacks(t *testing.T) {
	var order []string
	a := reconcile.Callbacks{
		OnStart:  func(string) { order = append(order, "a.start") },
		OnFinish: func(reconcile.Result) { order = append(order, "a.finish") },
	}
	b := reconcile.Callbacks{
		OnStart:      func(string) { order = append(order, "b.start") },
		OnCheckpoint: func(reconcile.Checkpoint) { order = append(order, "b.checkpoint") },
	}

	c := chainCallbacks(a, b)
	c.OnStart("id")
	c.OnCheckpoint(reconcile.Checkpoint{})
	c.OnFinish(reconcile.Result{})
	c.OnError(errors.New("ignored"))

	want := "a.start b.start b.checkpoint a.finish"
	if got := strings.Join(order, " "); got != want {
		t.Errorf("order = %q, want %q", got, want)
	}
}

func TestProgressThrottle(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	p := &progress{w: &buf, now: func() time.Time { return now }}
	cb := p.callbacks()

	cb.OnCheckpoint(reconcile.Checkpoint{Seq: 1, Bytes: 10})
	cb.OnCheckpoint(reconcile.Checkpoint{Seq: 2, Bytes: 20})
	now = now.Add(frameInterval)
	cb.OnCheckpoint(reconcile.Checkpoint{Seq: 3, Bytes: 30})
	cb.OnCheckpoint(reconcile.Checkpoint{Seq: 4, Bytes: 40, Final: true})

	out := buf.String()
	for _, want := range []string{"checkpoint 1:", "checkpoint 3:", "checkpoint 4:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "checkpoint 2:") {
		t.Errorf("checkpoint 2 should be throttled:\n%s", out)
	}
}

func TestPlain(t *testing.T) {
	cfg := config.Default()
	cfg.Stream.RenderDelayMs = 0
	svc, err := generate.New(generate.Options{
		Provider: provider.NewReplay("<h1>Title</h1><p>Body</p>", 4),
		Config:   cfg,
		Logger:   log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("generate.New: %v", err)
	}

	doc := document.New(nil)
	var buf bytes.Buffer
	res, err := Plain(context.Background(), svc, generate.Request{Document: doc, Name: "doc.html", Prompt: "write"}, &buf)
	if err != nil {
		t.Fatalf("Plain: %v", err)
	}
	if res.Status != reconcile.StatusCompleted {
		t.Errorf("Status = %v", res.Status)
	}
	if got := doc.HTML(); got != "<h1>Title</h1><p>Body</p>" {
		t.Errorf("HTML() = %q", got)
	}
	out := buf.String()
	if !strings.Contains(out, "generation") || !strings.Contains(out, "completed") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
