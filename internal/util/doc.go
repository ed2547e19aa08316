// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across inkwell.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//   - TruncateWidth, PadWidth: column-aware truncation for status lines
//   - SingleLine: whitespace collapsing for one-line previews
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0644)
//	status := util.TruncateWidth(text, width)
package util
