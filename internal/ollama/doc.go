// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for a local Ollama server.
//
// Only what generation needs is implemented: a health check, the model
// list and streaming /api/chat, which Ollama serves as newline-delimited
// JSON.
//
// # Key Types
//
//   - Client: HTTP client for the Ollama API
//   - StreamReader: NDJSON reader producing StreamChunk values
//   - ClientError: typed error with IsNotRunning / IsTimeout helpers
//
// # Usage
//
//	client := ollama.NewClient()
//	for chunk := range client.ChatStreamChan(ctx, "llama3.1:8b", messages, nil) {
//	    if chunk.Error != nil {
//	        return chunk.Error
//	    }
//	    fmt.Print(chunk.Content)
//	}
package ollama
