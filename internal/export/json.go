// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/inkwell/internal/document"
	"github.com/jeranaias/inkwell/internal/storage"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports the document tree as JSON. JSON exports always
// include the full tree and metadata regardless of options.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// JSONDocument is the top-level shape of a JSON export.
type JSONDocument struct {
	Title    string         `json:"title"`
	Source   string         `json:"source,omitempty"`
	Exported time.Time      `json:"exported"`
	Size     int            `json:"size"`
	HTML     string         `json:"html"`
	Last     *storage.Entry `json:"last_generation,omitempty"`
	Root     *JSONNode      `json:"root"`
}

// JSONNode is one node of the exported tree.
type JSONNode struct {
	Type    string            `json:"type"`
	Attrs   map[string]string `json:"attrs,omitempty"`
	Text    string            `json:"text,omitempty"`
	Marks   []JSONMark        `json:"marks,omitempty"`
	Content []*JSONNode       `json:"content,omitempty"`
}

// JSONMark is one mark on a text node.
type JSONMark struct {
	Type  string            `json:"type"`
	Attrs map[string]string `json:"attrs,omitempty"`
}

// Export converts a document to JSON.
func (e *JSONExporter) Export(src *Source) ([]byte, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	out := JSONDocument{
		Title:    src.DisplayTitle(),
		Source:   src.Path,
		Exported: e.options.now().UTC(),
		Size:     src.Doc.Size(),
		HTML:     src.Doc.HTML(),
		Last:     src.Last,
		Root:     nodeJSON(src.Doc.Root()),
	}
	if out.Last != nil {
		last := *out.Last
		last.FinalHTML = ""
		out.Last = &last
	}
	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

func nodeJSON(n *document.Node) *JSONNode {
	out := &JSONNode{Type: n.Type.Name, Attrs: n.Attrs, Text: n.Text}
	for _, m := range n.Marks {
		out.Marks = append(out.Marks, JSONMark{Type: m.Type.Name, Attrs: m.Attrs})
	}
	for _, c := range n.Content {
		out.Content = append(out.Content, nodeJSON(c))
	}
	return out
}
