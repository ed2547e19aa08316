// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/jeranaias/inkwell/internal/document"
)

// contextLines is the number of unchanged lines kept around each change.
const contextLines = 3

// =============================================================================
// DIFF TYPES
// =============================================================================

// LineType represents the type of a diff line.
type LineType int

const (
	LineContext LineType = iota
	LineAdded
	LineRemoved
)

// String returns the string representation of a diff line type.
func (t LineType) String() string {
	switch t {
	case LineContext:
		return "context"
	case LineAdded:
		return "added"
	case LineRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Prefix returns the unified diff prefix for this line type.
func (t LineType) Prefix() string {
	switch t {
	case LineAdded:
		return "+"
	case LineRemoved:
		return "-"
	default:
		return " "
	}
}

// Line is a single line in a diff.
type Line struct {
	Type    LineType
	Content string
	OldLine int // 0 if added
	NewLine int // 0 if removed
}

// Hunk is a contiguous section of changes with surrounding context.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// Stats holds statistics about a diff.
type Stats struct {
	Additions int
	Deletions int
	Mode      string // "new", "modified", "deleted" or "unchanged"
}

// Diff is a complete line diff between two renderings of a document.
type Diff struct {
	Name  string
	Old   string
	New   string
	Hunks []Hunk
	Stats Stats
}

// =============================================================================
// DIFF COMPUTATION
// =============================================================================

// Compute diffs two texts line by line.
func Compute(name, oldText, newText string) *Diff {
	d := &Diff{Name: name, Old: oldText, New: newText}

	lines := lineDiff(oldText, newText)
	for _, l := range lines {
		switch l.Type {
		case LineAdded:
			d.Stats.Additions++
		case LineRemoved:
			d.Stats.Deletions++
		}
	}

	switch {
	case oldText == "" && newText != "":
		d.Stats.Mode = "new"
	case oldText != "" && newText == "":
		d.Stats.Mode = "deleted"
	case d.Stats.Additions == 0 && d.Stats.Deletions == 0:
		d.Stats.Mode = "unchanged"
	default:
		d.Stats.Mode = "modified"
	}

	d.Hunks = hunks(lines)
	return d
}

// Documents diffs the Markdown renderings of two documents. A nil document
// counts as empty.
func Documents(name string, before, after *document.Document) *Diff {
	return Compute(name, markdown(before), markdown(after))
}

func markdown(doc *document.Document) string {
	if doc == nil {
		return ""
	}
	return doc.Markdown()
}

// lineDiff runs a line-mode diff and numbers the resulting lines.
func lineDiff(oldText, newText string) []Line {
	dmp := diffmatchpatch.New()
	a, b, table := dmp.DiffLinesToChars(withNewline(oldText), withNewline(newText))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), table)

	var out []Line
	oldNo, newNo := 1, 1
	for _, df := range diffs {
		for _, content := range splitLines(df.Text) {
			switch df.Type {
			case diffmatchpatch.DiffEqual:
				out = append(out, Line{Type: LineContext, Content: content, OldLine: oldNo, NewLine: newNo})
				oldNo++
				newNo++
			case diffmatchpatch.DiffDelete:
				out = append(out, Line{Type: LineRemoved, Content: content, OldLine: oldNo})
				oldNo++
			case diffmatchpatch.DiffInsert:
				out = append(out, Line{Type: LineAdded, Content: content, NewLine: newNo})
				newNo++
			}
		}
	}
	return out
}

// withNewline terminates the last line so that a missing final newline
// does not show up as a change.
func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// hunks groups lines into hunks, keeping contextLines of context on each
// side of a change and merging hunks whose context overlaps.
func hunks(lines []Line) []Hunk {
	var out []Hunk
	start, end := -1, -1
	flush := func() {
		if start < 0 {
			return
		}
		h := Hunk{Lines: lines[start:end]}
		for _, l := range h.Lines {
			if l.Type != LineAdded {
				if h.OldStart == 0 {
					h.OldStart = l.OldLine
				}
				h.OldCount++
			}
			if l.Type != LineRemoved {
				if h.NewStart == 0 {
					h.NewStart = l.NewLine
				}
				h.NewCount++
			}
		}
		out = append(out, h)
		start, end = -1, -1
	}

	for i, l := range lines {
		if l.Type == LineContext {
			continue
		}
		lo := max(0, i-contextLines)
		hi := min(len(lines), i+contextLines+1)
		if start >= 0 && lo > end {
			flush()
		}
		if start < 0 {
			start = lo
		}
		end = hi
	}
	flush()
	return out
}

// =============================================================================
// FORMATTING
// =============================================================================

// Unified returns the diff in unified diff format.
func (d *Diff) Unified() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n", d.Name)
	fmt.Fprintf(&sb, "+++ b/%s\n", d.Name)
	for _, h := range d.Hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, l := range h.Lines {
			sb.WriteString(l.Type.Prefix())
			sb.WriteString(l.Content)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Summary returns a human-readable summary of the diff.
func (d *Diff) Summary() string {
	var parts []string
	switch d.Stats.Mode {
	case "new":
		parts = append(parts, "New document")
	case "deleted":
		parts = append(parts, "Document emptied")
	case "unchanged":
		return "No changes"
	default:
		parts = append(parts, "Modified")
	}
	if d.Stats.Additions > 0 {
		parts = append(parts, fmt.Sprintf("+%d", d.Stats.Additions))
	}
	if d.Stats.Deletions > 0 {
		parts = append(parts, fmt.Sprintf("-%d", d.Stats.Deletions))
	}
	return strings.Join(parts, " ")
}

// Changed reports whether the texts differ.
func (d *Diff) Changed() bool {
	return d.Stats.Additions > 0 || d.Stats.Deletions > 0
}
