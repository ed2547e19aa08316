// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"strings"
	"unicode/utf8"
)

// =============================================================================
// MARKS
// =============================================================================

// Mark is a formatting mark applied to inline content.
type Mark struct {
	Type  *MarkType
	Attrs map[string]string
}

// Eq reports whether two marks have the same type and attributes.
func (m Mark) Eq(o Mark) bool {
	return m.Type == o.Type && attrsEqual(m.Attrs, o.Attrs)
}

func marksEqual(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Eq(b[i]) {
			return false
		}
	}
	return true
}

// addMark inserts m into a rank-ordered mark set, replacing a mark of the
// same type.
func addMark(set []Mark, m Mark) []Mark {
	out := make([]Mark, 0, len(set)+1)
	placed := false
	for _, existing := range set {
		if existing.Type == m.Type {
			continue
		}
		if !placed && m.Type.rank < existing.Type.rank {
			out = append(out, m)
			placed = true
		}
		out = append(out, existing)
	}
	if !placed {
		out = append(out, m)
	}
	return out
}

func attrsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func copyAttrs(a map[string]string) map[string]string {
	if len(a) == 0 {
		return nil
	}
	out := make(map[string]string, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// =============================================================================
// NODE
// =============================================================================

// Node is an immutable document tree node. Text nodes carry Text and
// Marks; containers carry Content.
type Node struct {
	Type    *NodeType
	Attrs   map[string]string
	Content []*Node
	Text    string
	Marks   []Mark
}

// Attr returns an attribute value or "".
func (n *Node) Attr(key string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[key]
}

// Size is the number of positions the node occupies.
func (n *Node) Size() int {
	switch {
	case n.Type.IsText():
		return utf8.RuneCountInString(n.Text)
	case n.Type.IsLeaf():
		return 1
	default:
		return 2 + Fragment(n.Content).Size()
	}
}

// ContentSize is the size of the node's content, excluding its own
// open and close positions.
func (n *Node) ContentSize() int {
	return Fragment(n.Content).Size()
}

// TextContent concatenates all text below the node.
func (n *Node) TextContent() string {
	if n.Type.IsText() {
		return n.Text
	}
	var sb strings.Builder
	for _, c := range n.Content {
		sb.WriteString(c.TextContent())
	}
	return sb.String()
}

// Eq reports deep structural equality.
func (n *Node) Eq(o *Node) bool {
	if n == o {
		return true
	}
	if n == nil || o == nil {
		return false
	}
	if n.Type != o.Type || n.Text != o.Text || !attrsEqual(n.Attrs, o.Attrs) || !marksEqual(n.Marks, o.Marks) {
		return false
	}
	return Fragment(n.Content).Eq(Fragment(o.Content))
}

// String renders a compact debug form such as paragraph("Hello").
func (n *Node) String() string {
	if n.Type.IsText() {
		var sb strings.Builder
		for _, m := range n.Marks {
			sb.WriteString(m.Type.Name)
			sb.WriteString("(")
		}
		sb.WriteString(`"` + n.Text + `"`)
		sb.WriteString(strings.Repeat(")", len(n.Marks)))
		return sb.String()
	}
	if n.Type.IsLeaf() {
		return n.Type.Name
	}
	return n.Type.Name + "(" + Fragment(n.Content).String() + ")"
}

// =============================================================================
// FRAGMENT
// =============================================================================

// Fragment is an ordered sequence of sibling nodes.
type Fragment []*Node

// Size sums the sizes of the nodes.
func (f Fragment) Size() int {
	size := 0
	for _, n := range f {
		size += n.Size()
	}
	return size
}

// Eq reports deep equality of two fragments.
func (f Fragment) Eq(o Fragment) bool {
	if len(f) != len(o) {
		return false
	}
	for i := range f {
		if !f[i].Eq(o[i]) {
			return false
		}
	}
	return true
}

func (f Fragment) String() string {
	parts := make([]string, len(f))
	for i, n := range f {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

// =============================================================================
// SLICE
// =============================================================================

// Slice is a piece of document content whose outer edges may be open:
// OpenStart levels of its first node chain and OpenEnd levels of its last
// node chain are considered cut, so their boundaries merge with the
// surrounding content when the slice is inserted.
type Slice struct {
	Content   Fragment
	OpenStart int
	OpenEnd   int
}

// EmptySlice holds no content.
var EmptySlice = Slice{}

// Size is the number of positions the slice adds when inserted with its
// open edges merged.
func (s Slice) Size() int {
	return s.Content.Size() - s.OpenStart - s.OpenEnd
}

// Empty reports whether the slice has no content.
func (s Slice) Empty() bool { return len(s.Content) == 0 }

// Eq reports whether two slices hold equal content with equal openness.
func (s Slice) Eq(o Slice) bool {
	return s.OpenStart == o.OpenStart && s.OpenEnd == o.OpenEnd && s.Content.Eq(o.Content)
}

// MaxOpen builds a slice that is open as deep as the fragment allows on
// both sides, descending through non-leaf first and last children.
func MaxOpen(f Fragment) Slice {
	s := Slice{Content: f}
	if len(f) == 0 {
		return s
	}
	for n := f[0]; n != nil && !n.Type.IsLeaf(); n = firstChild(n) {
		s.OpenStart++
	}
	for n := f[len(f)-1]; n != nil && !n.Type.IsLeaf(); n = lastChild(n) {
		s.OpenEnd++
	}
	return s
}

// innerStart returns the innermost node the open start edge reaches.
func (s Slice) innerStart() *Node {
	if s.OpenStart == 0 || len(s.Content) == 0 {
		return nil
	}
	n := s.Content[0]
	for d := 1; d < s.OpenStart; d++ {
		n = firstChild(n)
	}
	return n
}

// innerEnd returns the innermost node the open end edge reaches.
func (s Slice) innerEnd() *Node {
	if s.OpenEnd == 0 || len(s.Content) == 0 {
		return nil
	}
	n := s.Content[len(s.Content)-1]
	for d := 1; d < s.OpenEnd; d++ {
		n = lastChild(n)
	}
	return n
}

func firstChild(n *Node) *Node {
	if len(n.Content) == 0 {
		return nil
	}
	return n.Content[0]
}

func lastChild(n *Node) *Node {
	if len(n.Content) == 0 {
		return nil
	}
	return n.Content[len(n.Content)-1]
}
