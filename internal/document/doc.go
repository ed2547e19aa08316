// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package document provides the structured rich-text document that
// generated content is streamed into.
//
// Content is a tree of schema-typed nodes. Positions address the gaps in
// the flattened content: every character, leaf, node opening and node
// closing occupies one position, so a paragraph holding "Hi" has size 4.
//
// # Key Types
//
//   - Schema: node and mark types (DefaultSchema returns the shared one)
//   - Node, Fragment: immutable content trees
//   - Slice: content with open edges, produced by ParseHTML
//   - Document: the live document with atomic ReplaceRange
//
// # Usage
//
//	doc := document.New(nil)
//	slice, err := doc.Parse("<p>Hello <strong>world</strong></p>")
//	if err != nil {
//	    return err
//	}
//	end, err := doc.ReplaceRange(0, doc.Size(), slice)
package document
