// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

// =============================================================================
// TOKEN STREAM
// =============================================================================

// tokenKind classifies one position-occupying token of flattened content.
type tokenKind int

const (
	tokOpen tokenKind = iota
	tokClose
	tokChar
	tokLeaf
)

// token is one unit of the flat position space. Position p is the gap
// before token p, so a document's size equals its token count.
type token struct {
	kind  tokenKind
	typ   *NodeType
	attrs map[string]string
	r     rune
	marks []Mark

	// inserted flags tokens that came from a replacement slice.
	inserted bool
}

// flatten converts a fragment into its token stream.
func flatten(f Fragment) []token {
	toks := make([]token, 0, f.Size())
	return appendTokens(toks, f)
}

func appendTokens(toks []token, f Fragment) []token {
	for _, n := range f {
		switch {
		case n.Type.IsText():
			for _, r := range n.Text {
				toks = append(toks, token{kind: tokChar, typ: n.Type, r: r, marks: n.Marks})
			}
		case n.Type.IsLeaf():
			toks = append(toks, token{kind: tokLeaf, typ: n.Type, attrs: n.Attrs})
		default:
			toks = append(toks, token{kind: tokOpen, typ: n.Type, attrs: n.Attrs})
			toks = appendTokens(toks, n.Content)
			toks = append(toks, token{kind: tokClose, typ: n.Type})
		}
	}
	return toks
}

// parentAt returns the type of the innermost node containing position pos,
// or nil at the top level.
func parentAt(toks []token, pos int) *NodeType {
	var stack []*NodeType
	for _, t := range toks[:pos] {
		switch t.kind {
		case tokOpen:
			stack = append(stack, t.typ)
		case tokClose:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// fitSlice produces the tokens inserted for s at [from, to). An open
// textblock edge of the slice merges into a textblock surrounding the
// corresponding boundary; every other edge is inserted closed.
func fitSlice(doc []token, from, to int, s Slice) []token {
	ins := flatten(s.Content)
	if len(ins) == 0 {
		return nil
	}
	for i := range ins {
		ins[i].inserted = true
	}

	dropStart, dropEnd := -1, -1
	if inner := s.innerStart(); inner != nil && inner.Type.IsTextblock() {
		if p := parentAt(doc, from); p != nil && p.IsTextblock() {
			dropStart = s.OpenStart - 1
		}
	}
	if inner := s.innerEnd(); inner != nil && inner.Type.IsTextblock() {
		if p := parentAt(doc, to); p != nil && p.IsTextblock() {
			dropEnd = len(ins) - s.OpenEnd
		}
	}

	out := ins[:0:0]
	for i, t := range ins {
		if i == dropStart || i == dropEnd {
			continue
		}
		out = append(out, t)
	}
	return out
}

// =============================================================================
// REPAIRING BUILDER
// =============================================================================

// frame is a node under construction.
type frame struct {
	typ      *NodeType
	textType *NodeType
	attrs    map[string]string
	content  []*Node
	run      []rune
	runMarks []Mark
}

// builder turns an arbitrary token stream into a schema-valid tree.
// Misplaced tokens are repaired rather than rejected: blocks split open
// textblocks, stray inline content gets an implicit paragraph, list items
// get an implicit list, orphan closes are dropped.
type builder struct {
	schema *Schema
	stack  []*frame
	pos    int

	// split remembers the last textblock closed by a block that landed
	// inside it, so trailing inline content resumes with the same type.
	split      *frame
	splitDepth int

	insertedEnd int
}

func newBuilder(schema *Schema, root *NodeType) *builder {
	return &builder{
		schema: schema,
		stack:  []*frame{{typ: root, textType: schema.Node(NodeText)}},
	}
}

// build runs toks through a builder rooted at root. The returned int is the
// output position right after the last inserted token, or the output
// position of input index anchor when no inserted token exists.
func build(schema *Schema, root *NodeType, toks []token, anchor int, fillRoot bool) (Fragment, int) {
	b := newBuilder(schema, root)
	b.insertedEnd = -1
	anchorPos := -1
	for i, t := range toks {
		if i == anchor {
			anchorPos = b.pos
		}
		b.add(t)
		if t.inserted {
			b.insertedEnd = b.pos
		}
	}
	if anchorPos < 0 {
		anchorPos = b.pos
	}
	content := b.finish(fillRoot)
	if b.insertedEnd < 0 {
		return content, anchorPos
	}
	return content, b.insertedEnd
}

// buildFragment builds toks into top-level block content.
func buildFragment(schema *Schema, toks []token) Fragment {
	content, _ := build(schema, schema.Node(NodeDoc), toks, 0, false)
	return content
}

func (b *builder) top() *frame { return b.stack[len(b.stack)-1] }

func (b *builder) push(typ *NodeType, attrs map[string]string) {
	b.top().flush()
	b.stack = append(b.stack, &frame{typ: typ, textType: b.schema.Node(NodeText), attrs: copyAttrs(attrs)})
	b.pos++
}

// pop closes the top frame and attaches it to its parent.
func (b *builder) pop() {
	f := b.top()
	f.flush()
	if f.typ.Content == ContentBlocks && len(f.content) == 0 {
		b.fill(f)
	}
	b.stack = b.stack[:len(b.stack)-1]
	b.pos++
	b.top().content = append(b.top().content, &Node{Type: f.typ, Attrs: f.attrs, Content: f.content})
}

// fill gives an empty block container its minimal child.
func (b *builder) fill(f *frame) {
	child := b.schema.defaultTextblock()
	if f.typ.Only != "" {
		child = b.schema.Node(f.typ.Only)
	}
	b.push(child, nil)
	b.pop()
}

func (b *builder) add(t token) {
	switch t.kind {
	case tokOpen:
		b.closeTextblock()
		b.enterContainer(t.typ)
		b.push(t.typ, t.attrs)
	case tokClose:
		b.close(t.typ)
	case tokChar:
		b.ensureInline()
		b.top().addChar(t.r, t.marks)
		b.pos++
	case tokLeaf:
		if t.typ.Inline {
			b.ensureInline()
			f := b.top()
			f.flush()
			f.content = append(f.content, &Node{Type: t.typ, Attrs: copyAttrs(t.attrs)})
		} else {
			b.closeTextblock()
			b.enterContainer(t.typ)
			f := b.top()
			f.flush()
			f.content = append(f.content, &Node{Type: t.typ, Attrs: copyAttrs(t.attrs)})
		}
		b.pos++
	}
}

// closeTextblock splits an open textblock so a block can follow.
func (b *builder) closeTextblock() {
	f := b.top()
	if !f.typ.IsTextblock() {
		return
	}
	b.pop()
	b.split = f
	b.splitDepth = len(b.stack)
}

// enterContainer makes sure the top frame may hold a block of type typ.
func (b *builder) enterContainer(typ *NodeType) {
	top := b.top()
	if top.typ.Only != "" && top.typ.Only != typ.Name {
		b.push(b.schema.Node(top.typ.Only), nil)
		top = b.top()
	}
	if typ.Name == NodeListItem && top.typ.Only != NodeListItem {
		b.push(b.schema.Node(NodeBulletList), nil)
	}
}

// ensureInline makes the top frame a textblock.
func (b *builder) ensureInline() {
	if b.top().typ.IsTextblock() {
		return
	}
	if only := b.top().typ.Only; only != "" {
		b.push(b.schema.Node(only), nil)
	}
	typ, attrs := b.schema.defaultTextblock(), map[string]string(nil)
	if b.split != nil && b.splitDepth == len(b.stack) {
		typ, attrs = b.split.typ, b.split.attrs
		b.split = nil
	}
	b.push(typ, attrs)
}

// close handles a close token. A textblock close always ends the open
// textblock; other closes pop to the nearest frame of the same type and
// are dropped when none is open.
func (b *builder) close(typ *NodeType) {
	if typ.IsTextblock() {
		if b.top().typ.IsTextblock() {
			b.pop()
		}
		b.split = nil
		return
	}
	depth := -1
	for i := len(b.stack) - 1; i > 0; i-- {
		if b.stack[i].typ == typ {
			depth = i
			break
		}
	}
	if depth < 0 {
		return
	}
	for len(b.stack) > depth {
		b.pop()
	}
	if b.split != nil && b.splitDepth > len(b.stack) {
		b.split = nil
	}
}

// finish closes every open frame and returns the root content.
func (b *builder) finish(fillRoot bool) Fragment {
	for len(b.stack) > 1 {
		b.pop()
	}
	root := b.stack[0]
	root.flush()
	if fillRoot && len(root.content) == 0 {
		b.fill(root)
	}
	return root.content
}

func (f *frame) addChar(r rune, marks []Mark) {
	if f.typ.Plain {
		marks = nil
	}
	if len(f.run) > 0 && !marksEqual(f.runMarks, marks) {
		f.flush()
	}
	if len(f.run) == 0 {
		f.runMarks = marks
	}
	f.run = append(f.run, r)
}

// flush turns pending characters into a text node, merging with a
// preceding text node that carries the same marks.
func (f *frame) flush() {
	if len(f.run) == 0 {
		return
	}
	text := string(f.run)
	if n := len(f.content); n > 0 {
		if last := f.content[n-1]; last.Type.IsText() && marksEqual(last.Marks, f.runMarks) {
			f.content[n-1] = &Node{Type: last.Type, Text: last.Text + text, Marks: last.Marks}
			f.run, f.runMarks = f.run[:0], nil
			return
		}
	}
	f.content = append(f.content, &Node{Type: f.textType, Text: text, Marks: f.runMarks})
	f.run, f.runMarks = f.run[:0], nil
}
