// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider adapts model backends to the reconcile delta stream.
//
// Each Provider turns a Request into a channel of reconcile.Delta values:
// Text fragments followed by one End or Failure. Local talks to Ollama,
// Cloud to an OpenAI-compatible API, and Replay plays back a recorded
// response for offline runs and tests.
package provider
