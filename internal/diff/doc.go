// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package diff provides diff computation and formatting for document changes.
//
// Documents are compared through their Markdown rendering, which puts one
// block per line, so a diff reads as a list of changed paragraphs.
//
// # Key Types
//
//   - LineType: Type of diff line (context, added, removed)
//   - Line: Single line in a diff with type and content
//   - Hunk: Group of related diff lines with line numbers
//   - Diff: Complete diff result with hunks and stats
//
// # Usage
//
//	d := diff.Documents("notes.html", before, after)
//	fmt.Println(d.Summary())
//	fmt.Print(d.Unified())
package diff
