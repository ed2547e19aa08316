// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package generate connects a provider to a document.
//
// A Service takes a prompt, reads the document's selection (or its whole
// text when nothing is selected), streams the provider's markup through a
// reconcile.Session into the document and records the outcome in the
// journal.
//
// # Usage
//
//	svc, _ := generate.New(generate.Options{Provider: p, Journal: j, Config: cfg})
//	res, err := svc.Generate(ctx, generate.Request{
//	    Document: doc,
//	    Name:     "notes.html",
//	    Prompt:   "Turn this into a bulleted summary",
//	})
package generate
