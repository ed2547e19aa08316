// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrOutOfRange is returned when a position or range lies outside the
// document.
var ErrOutOfRange = errors.New("document: range out of bounds")

// Range is a half-open span [From, To) of document positions.
type Range struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Empty reports whether the range selects nothing.
func (r Range) Empty() bool { return r.From == r.To }

// Len is the number of positions in the range.
func (r Range) Len() int { return r.To - r.From }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.From, r.To) }

// Change describes one applied replacement.
type Change struct {
	From    int
	To      int
	End     int
	Size    int
	Version uint64
}

// Document is a live, schema-constrained rich-text document. All methods
// are safe for concurrent use; ReplaceRange applies atomically.
type Document struct {
	mu      sync.RWMutex
	schema  *Schema
	root    *Node
	tokens  []token
	sel     Range
	version uint64

	subsMu sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

// New returns a document holding a single empty paragraph.
func New(schema *Schema) *Document {
	if schema == nil {
		schema = DefaultSchema()
	}
	content, _ := build(schema, schema.Node(NodeDoc), nil, 0, true)
	return newDocument(schema, content)
}

// FromHTML returns a document built from markup.
func FromHTML(schema *Schema, markup string) (*Document, error) {
	if schema == nil {
		schema = DefaultSchema()
	}
	s, err := ParseHTML(schema, markup)
	if err != nil {
		return nil, err
	}
	content, _ := build(schema, schema.Node(NodeDoc), flatten(s.Content), 0, true)
	return newDocument(schema, content), nil
}

func newDocument(schema *Schema, content Fragment) *Document {
	d := &Document{schema: schema}
	d.setContent(content)
	return d
}

func (d *Document) setContent(content Fragment) {
	d.root = &Node{Type: d.schema.Node(NodeDoc), Content: content}
	d.tokens = flatten(content)
}

// Schema returns the document's schema.
func (d *Document) Schema() *Schema { return d.schema }

// Size returns the number of positions in the document content.
func (d *Document) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.tokens)
}

// Root returns the current document node. Nodes are never mutated, so the
// returned tree stays valid after later replacements.
func (d *Document) Root() *Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root
}

// Version counts applied replacements.
func (d *Document) Version() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Selection returns the current selection.
func (d *Document) Selection() Range {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sel
}

// SetSelection sets the selection. From and To may be given in either
// order.
func (d *Document) SetSelection(r Range) error {
	if r.From > r.To {
		r.From, r.To = r.To, r.From
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if r.From < 0 || r.To > len(d.tokens) {
		return fmt.Errorf("%w: selection %s, size %d", ErrOutOfRange, r, len(d.tokens))
	}
	d.sel = r
	return nil
}

// Parse converts markup into content for ReplaceRange.
func (d *Document) Parse(markup string) (Slice, error) {
	return ParseHTML(d.schema, markup)
}

// ReplaceRange replaces [from, to) with s in one step and returns the
// position right after the inserted content. Open textblock edges of s
// merge into textblocks at the boundaries; the result is repaired into a
// valid tree. The selection is mapped through the change and subscribers
// are notified after the lock is released.
func (d *Document) ReplaceRange(from, to int, s Slice) (int, error) {
	d.mu.Lock()
	size := len(d.tokens)
	if from < 0 || to < from || to > size {
		d.mu.Unlock()
		return 0, fmt.Errorf("%w: replace [%d,%d), size %d", ErrOutOfRange, from, to, size)
	}

	ins := fitSlice(d.tokens, from, to, s)
	toks := make([]token, 0, size-(to-from)+len(ins))
	toks = append(toks, d.tokens[:from]...)
	toks = append(toks, ins...)
	toks = append(toks, d.tokens[to:]...)

	content, end := build(d.schema, d.schema.Node(NodeDoc), toks, from, true)
	d.setContent(content)
	newSize := len(d.tokens)
	d.sel = mapRange(d.sel, from, to, end, newSize-size, newSize)
	d.version++
	change := Change{From: from, To: to, End: end, Size: newSize, Version: d.version}
	d.mu.Unlock()

	d.notify(change)
	return end, nil
}

// mapRange moves r through a replacement of [from, to) that now ends at
// end and changed the document size by delta.
func mapRange(r Range, from, to, end, delta, size int) Range {
	mapPos := func(p int) int {
		switch {
		case p <= from:
		case p >= to:
			p += delta
		default:
			p = end
		}
		return min(max(p, 0), size)
	}
	out := Range{From: mapPos(r.From), To: mapPos(r.To)}
	if out.To < out.From {
		out.To = out.From
	}
	return out
}

// Subscribe registers fn to run after every replacement. The returned
// function removes the subscription.
func (d *Document) Subscribe(fn func(Change)) func() {
	d.subsMu.Lock()
	defer d.subsMu.Unlock()
	if d.subs == nil {
		d.subs = make(map[int]func(Change))
	}
	id := d.nextID
	d.nextID++
	d.subs[id] = fn
	return func() {
		d.subsMu.Lock()
		delete(d.subs, id)
		d.subsMu.Unlock()
	}
}

func (d *Document) notify(c Change) {
	d.subsMu.Lock()
	fns := make([]func(Change), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.subsMu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// =============================================================================
// TEXT ACCESS
// =============================================================================

// Text returns the plain text of the document with blocks separated by
// newlines.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return textBetween(d.tokens, 0, len(d.tokens), "\n")
}

// TextBetween returns the plain text in [from, to), inserting sep between
// text of different blocks.
func (d *Document) TextBetween(from, to int, sep string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if from < 0 || to < from || to > len(d.tokens) {
		return "", fmt.Errorf("%w: text [%d,%d), size %d", ErrOutOfRange, from, to, len(d.tokens))
	}
	return textBetween(d.tokens, from, to, sep), nil
}

func textBetween(toks []token, from, to int, sep string) string {
	var sb strings.Builder
	pendingSep := false
	for _, t := range toks[from:to] {
		switch t.kind {
		case tokChar:
			if pendingSep && sb.Len() > 0 {
				sb.WriteString(sep)
			}
			pendingSep = false
			sb.WriteRune(t.r)
		case tokLeaf:
			if t.typ.Inline {
				sb.WriteString("\n")
			} else {
				pendingSep = true
			}
		case tokOpen, tokClose:
			if t.typ.IsTextblock() {
				pendingSep = true
			}
		}
	}
	return sb.String()
}

// HTML serializes the document content.
func (d *Document) HTML() string {
	return SerializeHTML(d.Root().Content)
}

// Markdown serializes the document content as Markdown.
func (d *Document) Markdown() string {
	return SerializeMarkdown(d.Root().Content)
}
