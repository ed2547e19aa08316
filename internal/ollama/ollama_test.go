// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// STREAM READER TESTS
// =============================================================================

func TestStreamReader_Chunks(t *testing.T) {
	body := strings.Join([]string{
		`{"model":"m","message":{"role":"assistant","content":"<p>He"}}`,
		``,
		`not json`,
		`{"model":"m","message":{"role":"assistant","content":"llo</p>"}}`,
		`{"model":"m","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","eval_count":10,"eval_duration":2000000000}`,
	}, "\n")

	r := NewStreamReader(strings.NewReader(body))
	var got []StreamChunk
	if err := r.Process(context.Background(), func(c StreamChunk) { got = append(got, c) }); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("got %d chunks, want 3", len(got))
	}
	if r.Accumulated() != "<p>Hello</p>" {
		t.Errorf("Accumulated() = %q", r.Accumulated())
	}
	if r.Chunks() != 2 {
		t.Errorf("Chunks() = %d, want 2", r.Chunks())
	}
	last := got[2]
	if !last.Done || last.DoneReason != "stop" {
		t.Errorf("final chunk = %+v", last)
	}
	if last.TokensPerSecond() != 5 {
		t.Errorf("TokensPerSecond() = %v, want 5", last.TokensPerSecond())
	}
	if r.Model() != "m" {
		t.Errorf("Model() = %q", r.Model())
	}
}

func TestStreamReader_ErrorLine(t *testing.T) {
	r := NewStreamReader(strings.NewReader(`{"error":"model crashed"}` + "\n"))
	err := r.Process(context.Background(), func(StreamChunk) {})
	var ce *ClientError
	if !errors.As(err, &ce) || ce.Message != "model crashed" {
		t.Fatalf("Process() error = %v, want model crashed", err)
	}
}

func TestStreamReader_EOFWithoutDone(t *testing.T) {
	r := NewStreamReader(strings.NewReader(`{"message":{"content":"x"}}`))
	chunk, err := r.Next()
	if err != nil || chunk.Content != "x" {
		t.Fatalf("Next() = %+v, %v", chunk, err)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("Next() error = %v, want EOF", err)
	}
}

func TestStreamReader_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewStreamReader(strings.NewReader(`{"message":{"content":"x"}}`))
	if err := r.Process(ctx, func(StreamChunk) {}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Process() error = %v, want canceled", err)
	}
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

func TestChatStream_SendsRequest(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"message":{"content":"<p>a</p>"}}`+"\n")
		io.WriteString(w, `{"message":{"content":""},"done":true}`+"\n")
	}))
	defer srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL, DefaultModel: "def"})
	var content strings.Builder
	err := c.ChatStream(context.Background(), "", []Message{NewSystemMessage("s"), NewUserMessage("u")},
		&Options{Temperature: 0.7, NumPredict: 4000}, func(ch StreamChunk) { content.WriteString(ch.Content) })
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}
	if content.String() != "<p>a</p>" {
		t.Errorf("content = %q", content.String())
	}
	if got.Model != "def" || !got.Stream || len(got.Messages) != 2 {
		t.Errorf("request = %+v", got)
	}
	if got.Options == nil || got.Options.NumPredict != 4000 {
		t.Errorf("options = %+v", got.Options)
	}
}

func TestChatStream_ModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	err := c.ChatStream(context.Background(), "missing", nil, nil, func(StreamChunk) {})
	if !IsModelNotFound(err) {
		t.Fatalf("error = %v, want model not found", err)
	}
}

func TestChatStream_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"out of memory"}`)
	}))
	defer srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL})
	err := c.ChatStream(context.Background(), "m", nil, nil, func(StreamChunk) {})
	if err == nil || err.Error() != "out of memory" {
		t.Fatalf("error = %v, want out of memory", err)
	}
}

func TestChatStreamChan_DeliversErrorChunk(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	var last StreamChunk
	for chunk := range c.ChatStreamChan(context.Background(), "m", nil, nil) {
		last = chunk
	}
	if last.Error == nil || !IsNotRunning(last.Error) {
		t.Fatalf("last chunk error = %v, want not running", last.Error)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"models":[{"name":"llama3.1:8b","size":42}]}`)
	}))
	defer srv.Close()

	models, err := NewClientWithConfig(&ClientConfig{BaseURL: srv.URL}).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 1 || models[0].Name != "llama3.1:8b" {
		t.Errorf("models = %+v", models)
	}
}

func TestDefaultConfig(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{})
	if c.Config().BaseURL != "http://127.0.0.1:11434" {
		t.Errorf("BaseURL = %q", c.Config().BaseURL)
	}
	if c.Config().DefaultModel == "" {
		t.Error("DefaultModel is empty")
	}
}
