// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/inkwell/internal/document"
	"github.com/jeranaias/inkwell/internal/storage"
)

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func testOptions() *Options {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func testSource(t *testing.T) *Source {
	t.Helper()
	doc, err := document.FromHTML(nil, `<h1>Field Notes</h1><p>Hello <strong>world</strong> &amp; friends</p><ul><li>one</li></ul>`)
	require.NoError(t, err)
	started := fixedNow.Add(-time.Minute)
	return &Source{
		Doc:  doc,
		Path: "notes/field.html",
		Last: &storage.Entry{
			ID:         "abc",
			Provider:   "cloud",
			Model:      "gpt-4o",
			Status:     "completed",
			FinalHTML:  doc.HTML(),
			StartedAt:  started,
			FinishedAt: started.Add(2500 * time.Millisecond),
		},
	}
}

func TestDisplayTitle(t *testing.T) {
	src := testSource(t)
	assert.Equal(t, "Field Notes", src.DisplayTitle())

	src.Title = "Custom"
	assert.Equal(t, "Custom", src.DisplayTitle())

	plain, err := document.FromHTML(nil, "<p>no heading</p>")
	require.NoError(t, err)
	assert.Equal(t, "draft", (&Source{Doc: plain, Path: "/tmp/draft.html"}).DisplayTitle())
	assert.Equal(t, "Untitled", (&Source{Doc: plain}).DisplayTitle())
}

func TestHTMLExporter(t *testing.T) {
	opts := testOptions()
	opts.Theme = "dark"
	out, err := NewHTMLExporter(opts).Export(testSource(t))
	require.NoError(t, err)
	page := string(out)

	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<title>Field Notes</title>")
	assert.Contains(t, page, `<body class="dark-theme">`)
	assert.Contains(t, page, "<strong>world</strong> &amp; friends")
	assert.Contains(t, page, "cloud/gpt-4o, completed")
	assert.Contains(t, page, "2.50s")
	assert.Contains(t, page, "June 1, 2025")
}

func TestHTMLExporter_ThemesAndMetadata(t *testing.T) {
	opts := testOptions()
	opts.Theme = "neon"
	opts.IncludeMetadata = false
	out, err := NewHTMLExporter(opts).Export(testSource(t))
	require.NoError(t, err)
	assert.Contains(t, string(out), `<body class="auto-theme">`)
	assert.NotContains(t, string(out), `class="header"`)
}

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions()).Export(testSource(t))
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: Field Notes\n"))
	assert.Contains(t, md, "provider: cloud\n")
	assert.Contains(t, md, "exported: 2025-06-01T09:30:00Z\n")
	assert.Contains(t, md, "# Field Notes\n\nHello **world**")
	assert.Contains(t, md, "- one\n")
}

func TestMarkdownExporter_NoMetadata(t *testing.T) {
	opts := testOptions()
	opts.IncludeMetadata = false
	src := testSource(t)
	out, err := NewMarkdownExporter(opts).Export(src)
	require.NoError(t, err)
	assert.Equal(t, src.Doc.Markdown(), string(out))
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `""`, escapeYAML(""))
	assert.Equal(t, `"a: b"`, escapeYAML("a: b"))
	assert.Equal(t, `"say \"hi\""`, escapeYAML(`say "hi"`))
}

func TestJSONExporter(t *testing.T) {
	src := testSource(t)
	out, err := NewJSONExporter(testOptions()).Export(src)
	require.NoError(t, err)

	var got JSONDocument
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "Field Notes", got.Title)
	assert.Equal(t, src.Doc.Size(), got.Size)
	assert.Equal(t, src.Doc.HTML(), got.HTML)
	require.NotNil(t, got.Last)
	assert.Empty(t, got.Last.FinalHTML, "the tree already carries the content")
	assert.NotEmpty(t, src.Last.FinalHTML, "source entry left untouched")

	require.NotNil(t, got.Root)
	assert.Equal(t, document.NodeDoc, got.Root.Type)
	require.Len(t, got.Root.Content, 3)
	heading := got.Root.Content[0]
	assert.Equal(t, document.NodeHeading, heading.Type)
	assert.Equal(t, "1", heading.Attrs["level"])

	para := got.Root.Content[1]
	var bold *JSONNode
	for _, c := range para.Content {
		if len(c.Marks) > 0 {
			bold = c
		}
	}
	require.NotNil(t, bold)
	assert.Equal(t, "world", bold.Text)
	assert.Equal(t, document.MarkBold, bold.Marks[0].Type)
}

func TestExporters_NilDocument(t *testing.T) {
	for _, format := range []string{"html", "md", "json"} {
		exp, err := ForFormat(format, nil)
		require.NoError(t, err)
		_, err = exp.Export(&Source{})
		assert.ErrorIs(t, err, ErrNoDocument, format)
	}
	_, err := ForFormat("pdf", nil)
	assert.Error(t, err)
}

func TestExportToFile(t *testing.T) {
	opts := testOptions()
	opts.OutputDir = filepath.Join(t.TempDir(), "out")

	path, err := ExportToFile(testSource(t), NewMarkdownExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(opts.OutputDir, "Field_Notes_20250601_093000.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hello **world**")
}

func TestSanitizeFilename(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"Simple", "Simple"},
		{"with space", "with_space"},
		{`a/b\c:d*e?f"g<h>i|j`, "a-b-c-d-e-f-g-h-i-j"},
		{"", "document"},
		{"tab\there", "tab_here"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, sanitizeFilename(tc.input), tc.input)
	}
}
