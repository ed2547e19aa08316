// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes documents out in shareable formats.
//
// # Formats
//
//   - HTML: a standalone page with embedded light, dark or auto theme CSS
//   - Markdown: the document as Markdown with optional YAML frontmatter
//   - JSON: the node tree plus metadata
//
// # Usage
//
//	src := &export.Source{Doc: doc, Path: "notes.html"}
//	exp, _ := export.ForFormat("md", nil)
//	path, err := export.ExportToFile(src, exp, nil)
package export
