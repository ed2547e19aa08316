// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jeranaias/inkwell/internal/document"
	"github.com/jeranaias/inkwell/internal/util"
)

// LoadDocument reads an HTML document file. A missing file yields an
// empty document so that generate can create new files.
func LoadDocument(path string, schema *document.Schema) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return document.New(schema), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	doc, err := document.FromHTML(schema, string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", path, err)
	}
	return doc, nil
}

// SaveDocument writes doc as HTML, atomically.
func SaveDocument(path string, doc *document.Document) error {
	data := []byte(doc.HTML() + "\n")
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}
