// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports documents to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a document to Markdown, with YAML frontmatter when
// metadata is enabled.
func (e *MarkdownExporter) Export(src *Source) ([]byte, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(src.DisplayTitle()))
		if src.Path != "" {
			fmt.Fprintf(&sb, "source: %s\n", escapeYAML(src.Path))
		}
		fmt.Fprintf(&sb, "words: %d\n", wordCount(src.Doc))
		if last := src.Last; last != nil {
			fmt.Fprintf(&sb, "provider: %s\n", escapeYAML(last.Provider))
			if last.Model != "" {
				fmt.Fprintf(&sb, "model: %s\n", escapeYAML(last.Model))
			}
			fmt.Fprintf(&sb, "generated: %s\n", last.StartedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(&sb, "exported: %s\n", e.options.now().Format(time.RFC3339))
		sb.WriteString("generator: inkwell\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(src.Doc.Markdown())
	if !strings.HasSuffix(sb.String(), "\n") {
		sb.WriteString("\n")
	}
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// escapeYAML quotes a scalar when it contains characters YAML would
// otherwise interpret.
func escapeYAML(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, ":#[]{}|>&*!%@`'\",\n") || strings.TrimSpace(s) != s {
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, `"`, `\"`)
		s = strings.ReplaceAll(s, "\n", `\n`)
		return `"` + s + `"`
	}
	return s
}
