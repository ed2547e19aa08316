// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package live shows a document in the terminal while a generation
// streams into it. Generate and Preview drive a Bubble Tea program;
// Plain reports the same progress as text lines when no terminal is
// attached.
package live
