// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jeranaias/inkwell/internal/document"
)

func TestCompute_New(t *testing.T) {
	d := Compute("doc", "", "line1\nline2\nline3")

	if d.Stats.Mode != "new" {
		t.Errorf("Expected mode 'new', got '%s'", d.Stats.Mode)
	}
	if d.Stats.Additions != 3 || d.Stats.Deletions != 0 {
		t.Errorf("Expected +3 -0, got +%d -%d", d.Stats.Additions, d.Stats.Deletions)
	}
	if len(d.Hunks) != 1 {
		t.Fatalf("Expected 1 hunk, got %d", len(d.Hunks))
	}
	if h := d.Hunks[0]; h.OldCount != 0 || h.NewStart != 1 || h.NewCount != 3 {
		t.Errorf("unexpected hunk header %+v", h)
	}
}

func TestCompute_Deleted(t *testing.T) {
	d := Compute("doc", "line1\nline2\nline3\n", "")

	if d.Stats.Mode != "deleted" {
		t.Errorf("Expected mode 'deleted', got '%s'", d.Stats.Mode)
	}
	if d.Stats.Deletions != 3 {
		t.Errorf("Expected 3 deletions, got %d", d.Stats.Deletions)
	}
}

func TestCompute_Modified(t *testing.T) {
	d := Compute("doc", "line1\nline2\nline3", "line1\nmodified\nline3\nline4")

	if d.Stats.Mode != "modified" {
		t.Errorf("Expected mode 'modified', got '%s'", d.Stats.Mode)
	}
	if d.Stats.Additions != 2 {
		t.Errorf("Expected 2 additions, got %d", d.Stats.Additions)
	}
	if d.Stats.Deletions != 1 {
		t.Errorf("Expected 1 deletion, got %d", d.Stats.Deletions)
	}
}

func TestCompute_TrailingNewlineIgnored(t *testing.T) {
	d := Compute("doc", "a\nb", "a\nb\n")
	if d.Changed() {
		t.Errorf("trailing newline reported as change: %s", d.Unified())
	}
	if d.Summary() != "No changes" {
		t.Errorf("Summary = %q", d.Summary())
	}
}

func TestCompute_SeparateHunks(t *testing.T) {
	var old, cur []string
	for i := 1; i <= 20; i++ {
		old = append(old, fmt.Sprintf("line%d", i))
		cur = append(cur, fmt.Sprintf("line%d", i))
	}
	cur[1] = "changed2"
	cur[17] = "changed18"

	d := Compute("doc", strings.Join(old, "\n"), strings.Join(cur, "\n"))
	if len(d.Hunks) != 2 {
		t.Fatalf("Expected 2 hunks, got %d:\n%s", len(d.Hunks), d.Unified())
	}
	if h := d.Hunks[0]; h.OldStart != 1 || h.OldCount != 5 || h.NewCount != 5 {
		t.Errorf("first hunk = -%d,%d +%d,%d", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	}
	if h := d.Hunks[1]; h.OldStart != 15 || h.OldCount != 6 {
		t.Errorf("second hunk = -%d,%d +%d,%d", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	}
}

func TestCompute_CloseChangesMerge(t *testing.T) {
	old := "a\nb\nc\nd\ne\nf\ng"
	cur := "A\nb\nc\nd\ne\nF\ng"
	d := Compute("doc", old, cur)
	if len(d.Hunks) != 1 {
		t.Fatalf("Expected 1 merged hunk, got %d", len(d.Hunks))
	}
}

func TestUnified(t *testing.T) {
	d := Compute("notes.html", "one\ntwo\n", "one\n2\n")
	want := "--- a/notes.html\n+++ b/notes.html\n@@ -1,2 +1,2 @@\n one\n-two\n+2\n"
	if got := d.Unified(); got != want {
		t.Errorf("Unified() =\n%s\nwant\n%s", got, want)
	}
}

func TestSummary(t *testing.T) {
	testCases := []struct {
		old, cur, want string
	}{
		{"", "a", "New document +1"},
		{"a", "", "Document emptied -1"},
		{"a\nb", "a\nc", "Modified +1 -1"},
		{"a", "a", "No changes"},
	}
	for _, tc := range testCases {
		if got := Compute("d", tc.old, tc.cur).Summary(); got != tc.want {
			t.Errorf("Summary(%q -> %q) = %q, want %q", tc.old, tc.cur, got, tc.want)
		}
	}
}

func TestDocuments(t *testing.T) {
	before, err := document.FromHTML(nil, "<h1>Title</h1><p>old body</p>")
	if err != nil {
		t.Fatal(err)
	}
	after, err := document.FromHTML(nil, "<h1>Title</h1><p>new body</p>")
	if err != nil {
		t.Fatal(err)
	}

	d := Documents("doc.html", before, after)
	if d.Stats.Additions != 1 || d.Stats.Deletions != 1 {
		t.Errorf("Expected +1 -1, got %s", d.Summary())
	}
	u := d.Unified()
	if !strings.Contains(u, "-old body") || !strings.Contains(u, "+new body") {
		t.Errorf("unexpected diff:\n%s", u)
	}

	if d := Documents("doc.html", nil, after); d.Stats.Mode != "new" {
		t.Errorf("nil before: mode %s", d.Stats.Mode)
	}
}
