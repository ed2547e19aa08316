// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides a streaming client for OpenAI-compatible APIs.
//
// Two endpoints are supported. The responses API (the default) streams
// response.output_text.delta events; the chat completions API streams
// choice deltas terminated by [DONE]. Both arrive as Server-Sent Events.
//
// Requests are retried with exponential backoff on transport errors, 429
// and 5xx responses, but only until the first byte of the stream arrives.
// A failure after that is returned as *StreamError carrying the partial
// content.
//
// # Usage
//
//	client := cloud.NewClient(cloud.Config{APIKey: key})
//	err := client.Stream(ctx, []cloud.Message{cloud.NewUserMessage(prompt)},
//	    func(chunk cloud.StreamChunk) { fmt.Print(chunk.Content) })
package cloud
