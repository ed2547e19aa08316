// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists documents and the generation journal.
//
// Documents are plain HTML files written atomically. The journal is a
// SQLite database (pure Go driver) with one row per generation: what was
// asked, which provider answered, how the stream ended and the markup
// that was finally applied.
//
// # Usage
//
//	j, err := storage.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer j.Close()
//	id, err := j.Record(ctx, storage.Entry{Provider: "local", Status: "completed"})
package storage
