// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// =============================================================================
// STREAMING TYPES
// =============================================================================

// maxEventBytes bounds one SSE line.
const maxEventBytes = 1 << 20

// StreamChunk is one piece of a streamed completion.
type StreamChunk struct {
	Content      string
	Done         bool
	FinishReason string
	Model        string
}

// StreamCallback is called for each received chunk.
type StreamCallback func(chunk StreamChunk)

// StreamError is a failure after streaming began. Partial holds the
// content received before it.
type StreamError struct {
	Partial string
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	scanner *bufio.Scanner
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventBytes)
	return &SSEReader{scanner: sc}
}

// ReadEvent reads the next event and returns its type and data. Multiple
// data lines are joined with newlines. It returns io.EOF when the stream
// ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte

	for s.scanner.Scan() {
		line := bytes.TrimRight(s.scanner.Bytes(), "\r")

		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			eventType = ""
			continue
		}

		switch {
		case line[0] == ':':
			// comment / keep-alive
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := line[len("data:"):]
			if len(data) > 0 && data[0] == ' ' {
				data = data[1:]
			}
			dataLines = append(dataLines, bytes.Clone(data))
		}
	}
	if err := s.scanner.Err(); err != nil {
		return "", nil, err
	}
	if len(dataLines) > 0 {
		return eventType, bytes.Join(dataLines, []byte("\n")), nil
	}
	return "", nil, io.EOF
}

// =============================================================================
// STREAMING
// =============================================================================

// Stream sends messages to the configured API and calls callback for each
// content chunk, in order, on the calling goroutine. The final callback
// has Done set. Failures before the first byte are retried; failures after
// it are returned as *StreamError.
func (c *Client) Stream(ctx context.Context, messages []Message, callback StreamCallback) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	path, reqBody := c.endpoint(messages)
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.open(ctx, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var decode eventDecoder = &chatDecoder{}
	if c.cfg.API == APIResponses {
		decode = &responsesDecoder{}
	}
	return c.process(ctx, NewSSEReader(resp.Body), decode, callback)
}

func (c *Client) process(ctx context.Context, reader *SSEReader, decode eventDecoder, callback StreamCallback) error {
	var partial strings.Builder
	model := c.cfg.Model

	fail := func(err error) error {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &StreamError{Partial: partial.String(), Err: err}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		event, data, err := reader.ReadEvent()
		if errors.Is(err, io.EOF) {
			// A stream that ends without a terminal event still produced
			// usable content.
			callback(StreamChunk{Done: true, FinishReason: "eof", Model: model})
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fail(err)
		}

		chunk, done, err := decode.decode(event, data)
		if err != nil {
			return fail(err)
		}
		if chunk.Model != "" {
			model = chunk.Model
		}
		chunk.Model = model
		if chunk.Content != "" {
			partial.WriteString(chunk.Content)
			callback(chunk)
		}
		if done {
			callback(StreamChunk{Done: true, FinishReason: chunk.FinishReason, Model: model})
			return nil
		}
	}
}

// eventDecoder turns one SSE event into a chunk. done reports a terminal
// event.
type eventDecoder interface {
	decode(event string, data []byte) (chunk StreamChunk, done bool, err error)
}

// =============================================================================
// CHAT COMPLETIONS
// =============================================================================

type chatEvent struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Code    json.RawMessage `json:"code"`
		Type    string          `json:"type"`
		Message string          `json:"message"`
	} `json:"error"`
}

type chatDecoder struct {
	finish string
}

func (d *chatDecoder) decode(_ string, data []byte) (StreamChunk, bool, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("[DONE]")) {
		return StreamChunk{FinishReason: d.finish}, true, nil
	}
	var ev chatEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		// Providers occasionally interleave non-JSON keep-alives.
		return StreamChunk{}, false, nil
	}
	if ev.Error != nil {
		return StreamChunk{}, false, &APIError{Code: errorCode(ev.Error.Code, ev.Error.Type), Message: ev.Error.Message}
	}
	chunk := StreamChunk{Model: ev.Model}
	for _, choice := range ev.Choices {
		chunk.Content += choice.Delta.Content
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			d.finish = *choice.FinishReason
		}
	}
	return chunk, false, nil
}

// =============================================================================
// RESPONSES API
// =============================================================================

type responsesEvent struct {
	Type     string          `json:"type"`
	Delta    string          `json:"delta"`
	Code     json.RawMessage `json:"code"`
	Message  string          `json:"message"`
	Response *struct {
		Model             string `json:"model"`
		Status            string `json:"status"`
		IncompleteDetails *struct {
			Reason string `json:"reason"`
		} `json:"incomplete_details"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"response"`
}

type responsesDecoder struct{}

func (d *responsesDecoder) decode(event string, data []byte) (StreamChunk, bool, error) {
	var ev responsesEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return StreamChunk{}, false, nil
	}
	kind := ev.Type
	if kind == "" {
		kind = event
	}

	var chunk StreamChunk
	if ev.Response != nil {
		chunk.Model = ev.Response.Model
	}

	switch kind {
	case "response.output_text.delta":
		chunk.Content = ev.Delta
		return chunk, false, nil
	case "response.completed":
		chunk.FinishReason = "stop"
		return chunk, true, nil
	case "response.incomplete":
		chunk.FinishReason = "incomplete"
		if ev.Response != nil && ev.Response.IncompleteDetails != nil {
			chunk.FinishReason = ev.Response.IncompleteDetails.Reason
		}
		return chunk, true, nil
	case "response.failed":
		apiErr := &APIError{Message: "response failed"}
		if ev.Response != nil && ev.Response.Error != nil {
			apiErr.Code = ev.Response.Error.Code
			apiErr.Message = ev.Response.Error.Message
		}
		return chunk, false, apiErr
	case "error":
		return chunk, false, &APIError{Code: errorCode(ev.Code, ""), Message: ev.Message}
	}
	return chunk, false, nil
}

// =============================================================================
// CHANNEL STREAMING
// =============================================================================

// StreamChan runs Stream in a goroutine. Chunks arrive on the first
// channel; the stream's error, or nil, is sent on the second once the
// first is closed.
func (c *Client) StreamChan(ctx context.Context, messages []Message) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk)
	errCh := make(chan error, 1)

	go func() {
		err := c.Stream(ctx, messages, func(chunk StreamChunk) {
			select {
			case chunks <- chunk:
			case <-ctx.Done():
			}
		})
		close(chunks)
		errCh <- err
		close(errCh)
	}()

	return chunks, errCh
}
