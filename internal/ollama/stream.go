// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"
)

// maxLineBytes bounds one NDJSON line.
const maxLineBytes = 1 << 20

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader parses a streaming /api/chat body line by line.
type StreamReader struct {
	scanner     *bufio.Scanner
	accumulator strings.Builder
	chunks      int
	model       string
}

// NewStreamReader creates a stream reader over r.
func NewStreamReader(r io.Reader) *StreamReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &StreamReader{scanner: sc}
}

// Process reads the stream and calls callback for each chunk. It returns
// nil after the done chunk or at EOF, ctx.Err() on cancellation, and a
// ClientError for an in-stream error line.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := s.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		callback(chunk)
		if chunk.Done {
			return nil
		}
	}
}

// Next returns the next chunk. Blank and malformed lines are skipped.
func (s *StreamReader) Next() (StreamChunk, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var resp chatLine
		if err := json.Unmarshal(line, &resp); err != nil {
			continue
		}
		if resp.Error != "" {
			return StreamChunk{}, &ClientError{Type: ErrTypeInvalidResponse, Message: resp.Error}
		}
		return s.chunk(resp), nil
	}
	if err := s.scanner.Err(); err != nil {
		return StreamChunk{}, &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
	}
	return StreamChunk{}, io.EOF
}

func (s *StreamReader) chunk(resp chatLine) StreamChunk {
	if resp.Model != "" {
		s.model = resp.Model
	}
	content := resp.Message.Content
	if content != "" {
		s.accumulator.WriteString(content)
		s.chunks++
	}
	chunk := StreamChunk{
		Content:    content,
		Done:       resp.Done,
		DoneReason: resp.DoneReason,
		Model:      s.model,
	}
	if resp.Done {
		chunk.TotalDuration = time.Duration(resp.TotalDuration)
		chunk.EvalDuration = time.Duration(resp.EvalDuration)
		chunk.PromptTokens = resp.PromptEvalCount
		chunk.CompletionTokens = resp.EvalCount
	}
	return chunk
}

// Accumulated returns all content read so far.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}

// Chunks returns the number of content-bearing chunks read.
func (s *StreamReader) Chunks() int {
	return s.chunks
}

// Model returns the model name reported by the stream.
func (s *StreamReader) Model() string {
	return s.model
}
