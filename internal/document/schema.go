// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import "sync"

// =============================================================================
// NODE AND MARK TYPES
// =============================================================================

// ContentKind describes what a node type may contain.
type ContentKind int

const (
	// ContentNone marks a leaf: text, hard breaks, horizontal rules.
	ContentNone ContentKind = iota
	// ContentBlocks marks a block container (doc, blockquote, lists, list items).
	ContentBlocks
	// ContentInline marks a textblock (paragraph, heading, code block).
	ContentInline
)

// NodeType describes one kind of node in a Schema.
type NodeType struct {
	Name    string
	Content ContentKind

	// Inline is true for text and inline leaves.
	Inline bool

	// Tag is the HTML element used when serializing. Headings derive
	// their tag from the level attribute.
	Tag string

	// Only restricts a block container to a single child type
	// (lists only hold list items). Empty means any block.
	Only string

	// Plain textblocks hold unmarked text only (code blocks).
	Plain bool
}

// IsTextblock reports whether the type holds inline content.
func (t *NodeType) IsTextblock() bool { return t.Content == ContentInline }

// IsLeaf reports whether the type has no content.
func (t *NodeType) IsLeaf() bool { return t.Content == ContentNone }

// IsText reports whether this is the text node type.
func (t *NodeType) IsText() bool { return t.Name == NodeText }

// IsBlock reports whether nodes of this type live in block containers.
func (t *NodeType) IsBlock() bool { return !t.Inline }

// MarkType describes an inline formatting mark.
type MarkType struct {
	Name string
	Tag  string
	// rank orders nested marks when serializing; lower ranks wrap outer.
	rank int
}

// Node type names in the default schema.
const (
	NodeDoc            = "doc"
	NodeParagraph      = "paragraph"
	NodeHeading        = "heading"
	NodeBlockquote     = "blockquote"
	NodeBulletList     = "bullet_list"
	NodeOrderedList    = "ordered_list"
	NodeListItem       = "list_item"
	NodeCodeBlock      = "code_block"
	NodeHorizontalRule = "horizontal_rule"
	NodeHardBreak      = "hard_break"
	NodeText           = "text"
)

// Mark type names in the default schema.
const (
	MarkLink      = "link"
	MarkBold      = "bold"
	MarkItalic    = "italic"
	MarkUnderline = "underline"
	MarkStrike    = "strike"
	MarkCode      = "code"
)

// =============================================================================
// SCHEMA
// =============================================================================

// Schema is the set of node and mark types a document may use.
// A Schema is immutable once built and safe for concurrent use.
type Schema struct {
	nodes map[string]*NodeType
	marks map[string]*MarkType
}

// NewSchema builds a schema from node and mark types. Mark ranks follow
// the order they are given in.
func NewSchema(nodes []*NodeType, marks []*MarkType) *Schema {
	s := &Schema{
		nodes: make(map[string]*NodeType, len(nodes)),
		marks: make(map[string]*MarkType, len(marks)),
	}
	for _, n := range nodes {
		s.nodes[n.Name] = n
	}
	for i, m := range marks {
		m.rank = i
		s.marks[m.Name] = m
	}
	return s
}

// Node returns the node type with the given name, or nil.
func (s *Schema) Node(name string) *NodeType { return s.nodes[name] }

// Mark returns the mark type with the given name, or nil.
func (s *Schema) Mark(name string) *MarkType { return s.marks[name] }

// defaultTextblock is the type used to wrap stray inline content.
func (s *Schema) defaultTextblock() *NodeType { return s.nodes[NodeParagraph] }

var (
	defaultSchema     *Schema
	defaultSchemaOnce sync.Once
)

// DefaultSchema returns the rich-text schema used by the editor.
func DefaultSchema() *Schema {
	defaultSchemaOnce.Do(func() {
		defaultSchema = NewSchema(
			[]*NodeType{
				{Name: NodeDoc, Content: ContentBlocks},
				{Name: NodeParagraph, Content: ContentInline, Tag: "p"},
				{Name: NodeHeading, Content: ContentInline, Tag: "h1"},
				{Name: NodeBlockquote, Content: ContentBlocks, Tag: "blockquote"},
				{Name: NodeBulletList, Content: ContentBlocks, Tag: "ul", Only: NodeListItem},
				{Name: NodeOrderedList, Content: ContentBlocks, Tag: "ol", Only: NodeListItem},
				{Name: NodeListItem, Content: ContentBlocks, Tag: "li"},
				{Name: NodeCodeBlock, Content: ContentInline, Tag: "pre", Plain: true},
				{Name: NodeHorizontalRule, Content: ContentNone, Tag: "hr"},
				{Name: NodeHardBreak, Content: ContentNone, Tag: "br", Inline: true},
				{Name: NodeText, Content: ContentNone, Inline: true},
			},
			[]*MarkType{
				{Name: MarkLink, Tag: "a"},
				{Name: MarkBold, Tag: "strong"},
				{Name: MarkItalic, Tag: "em"},
				{Name: MarkUnderline, Tag: "u"},
				{Name: MarkStrike, Tag: "s"},
				{Name: MarkCode, Tag: "code"},
			},
		)
	})
	return defaultSchema
}

// NewNode builds a node of the named type. It panics on an unknown name.
func (s *Schema) NewNode(name string, attrs map[string]string, content ...*Node) *Node {
	t := s.nodes[name]
	if t == nil {
		panic("document: unknown node type " + name)
	}
	return &Node{Type: t, Attrs: attrs, Content: content}
}

// Text builds a text node carrying the named marks.
func (s *Schema) Text(text string, marks ...string) *Node {
	n := &Node{Type: s.nodes[NodeText], Text: text}
	for _, name := range marks {
		n.Marks = addMark(n.Marks, Mark{Type: s.marks[name]})
	}
	return n
}
