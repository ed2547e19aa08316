// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports documents to a standalone HTML page with embedded CSS.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export wraps the document's HTML in a page.
func (e *HTMLExporter) Export(src *Source) ([]byte, error) {
	if err := src.validate(); err != nil {
		return nil, err
	}
	title := src.DisplayTitle()
	now := e.options.now()

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", html.EscapeString(title))
	sb.WriteString("    <meta name=\"generator\" content=\"inkwell\">\n")
	fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", now.Format(time.RFC3339))
	sb.WriteString(css)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s\">\n", themeClass(e.options.Theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(src, title))
	}

	sb.WriteString("        <article class=\"document\">\n")
	sb.WriteString(src.Doc.HTML())
	sb.WriteString("\n        </article>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	fmt.Fprintf(&sb, "            <p>Exported from <strong>inkwell</strong> on %s</p>\n",
		now.Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

func themeClass(theme string) string {
	switch theme {
	case "dark", "light":
		return theme + "-theme"
	default:
		return "auto-theme"
	}
}

// renderHeader renders the header section with metadata.
func (e *HTMLExporter) renderHeader(src *Source, title string) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(&sb, "            <h1>%s</h1>\n", html.EscapeString(title))
	sb.WriteString("            <div class=\"metadata\">\n")
	if src.Path != "" {
		metaItem(&sb, "File", src.Path)
	}
	metaItem(&sb, "Words", fmt.Sprint(wordCount(src.Doc)))
	metaItem(&sb, "Size", fmt.Sprint(src.Doc.Size()))
	if last := src.Last; last != nil {
		gen := last.Provider
		if last.Model != "" {
			gen += "/" + last.Model
		}
		metaItem(&sb, "Last generation", fmt.Sprintf("%s, %s, %s (%s)",
			gen, last.Status, formatTimestamp(last.StartedAt), formatDuration(last.Duration())))
	}
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	return sb.String()
}

func metaItem(sb *strings.Builder, label, value string) {
	fmt.Fprintf(sb, "                <span class=\"meta-item\"><strong>%s:</strong> %s</span>\n",
		label, html.EscapeString(value))
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const css = `    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            --font-mono: "SF Mono", "Monaco", "Inconsolata", "Fira Code", "Source Code Pro", monospace;
        }

        .dark-theme {
            --bg-primary: #1a1b26;
            --bg-secondary: #24283b;
            --bg-tertiary: #414868;
            --text-primary: #c0caf5;
            --text-secondary: #a9b1d6;
            --border-color: #414868;
            --code-bg: #1a1b26;
            --accent: #7aa2f7;
        }

        .light-theme, .auto-theme {
            --bg-primary: #ffffff;
            --bg-secondary: #f7f8fa;
            --bg-tertiary: #e1e4e8;
            --text-primary: #24292e;
            --text-secondary: #586069;
            --border-color: #e1e4e8;
            --code-bg: #f6f8fa;
            --accent: #0366d6;
        }

        @media (prefers-color-scheme: dark) {
            .auto-theme {
                --bg-primary: #1a1b26;
                --bg-secondary: #24283b;
                --bg-tertiary: #414868;
                --text-primary: #c0caf5;
                --text-secondary: #a9b1d6;
                --border-color: #414868;
                --code-bg: #1a1b26;
                --accent: #7aa2f7;
            }
        }

        body {
            font-family: var(--font-sans);
            font-size: 16px;
            line-height: 1.6;
            color: var(--text-primary);
            background: var(--bg-primary);
            padding: 20px;
        }

        .container {
            max-width: 860px;
            margin: 0 auto;
            background: var(--bg-secondary);
            border-radius: 12px;
            overflow: hidden;
        }

        .header {
            padding: 32px;
            background: var(--bg-tertiary);
            border-bottom: 2px solid var(--border-color);
        }

        .header h1 { font-size: 28px; margin-bottom: 16px; }

        .metadata {
            display: flex;
            flex-wrap: wrap;
            gap: 16px;
            font-size: 14px;
            color: var(--text-secondary);
        }

        .document { padding: 24px 32px; }
        .document h1, .document h2, .document h3 { margin: 24px 0 12px; }
        .document p, .document ul, .document ol, .document blockquote, .document pre { margin-bottom: 12px; }
        .document ul, .document ol { padding-left: 28px; }
        .document blockquote {
            border-left: 4px solid var(--accent);
            padding-left: 16px;
            color: var(--text-secondary);
        }
        .document a { color: var(--accent); }
        .document hr { border: none; border-top: 1px solid var(--border-color); margin: 24px 0; }
        .document code {
            font-family: var(--font-mono);
            background: var(--code-bg);
            padding: 2px 6px;
            border-radius: 4px;
            font-size: 0.9em;
        }
        .document pre {
            background: var(--code-bg);
            border: 1px solid var(--border-color);
            border-radius: 6px;
            padding: 16px;
            overflow-x: auto;
        }
        .document pre code { padding: 0; background: none; }

        .footer {
            padding: 20px 32px;
            text-align: center;
            font-size: 13px;
            color: var(--text-secondary);
            border-top: 1px solid var(--border-color);
        }

        @media print {
            body { padding: 0; }
            .container { border-radius: 0; }
        }
    </style>
`
