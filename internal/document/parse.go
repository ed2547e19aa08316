// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MaxMarkupBytes bounds the markup ParseHTML accepts.
const MaxMarkupBytes = 1 << 20

var (
	// ErrInvalidEncoding is returned for markup that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("document: markup is not valid UTF-8")

	// ErrTooLarge is returned for markup longer than MaxMarkupBytes.
	ErrTooLarge = errors.New("document: markup exceeds size limit")
)

// ParseHTML parses an HTML fragment into a maximally open slice of schema
// content. The parse is lenient: unknown elements are transparent, stray
// inline content is wrapped in paragraphs and unclosed tags are closed.
func ParseHTML(schema *Schema, markup string) (Slice, error) {
	if schema == nil {
		schema = DefaultSchema()
	}
	if len(markup) > MaxMarkupBytes {
		return Slice{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(markup))
	}
	if !utf8.ValidString(markup) {
		return Slice{}, ErrInvalidEncoding
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return Slice{}, fmt.Errorf("document: parse markup: %w", err)
	}

	p := &domWalker{schema: schema, lineStart: true}
	for _, n := range nodes {
		p.walk(n, nil)
	}
	p.trimTrailingSpace()
	return MaxOpen(buildFragment(schema, p.toks)), nil
}

// domWalker converts a parsed DOM into a token stream.
type domWalker struct {
	schema *Schema
	toks   []token

	// pre counts enclosing <pre> elements.
	pre int

	// lineStart is true where leading whitespace must be dropped.
	lineStart bool
}

var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Head:     true,
	atom.Title:    true,
	atom.Template: true,
	atom.Noscript: true,
	atom.Iframe:   true,
	atom.Object:   true,
}

// breaking elements have no node of their own but still separate blocks.
var breaking = map[atom.Atom]bool{
	atom.Div:        true,
	atom.Section:    true,
	atom.Article:    true,
	atom.Header:     true,
	atom.Footer:     true,
	atom.Main:       true,
	atom.Nav:        true,
	atom.Aside:      true,
	atom.Figure:     true,
	atom.Figcaption: true,
	atom.Table:      true,
	atom.Tr:         true,
	atom.Dl:         true,
	atom.Dt:         true,
	atom.Dd:         true,
	atom.Address:    true,
}

func (w *domWalker) walk(n *html.Node, marks []Mark) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data, marks)
		return
	case html.ElementNode:
	case html.DocumentNode:
		w.children(n, marks)
		return
	default:
		return
	}

	if skipped[n.DataAtom] {
		return
	}
	if typ, attrs := w.blockFor(n); typ != nil {
		w.block(n, typ, attrs, marks)
		return
	}
	if typ := w.leafFor(n); typ != nil {
		w.leaf(typ)
		return
	}
	if m, ok := w.markFor(n); ok {
		w.children(n, addMark(marks, m))
		return
	}
	if breaking[n.DataAtom] {
		w.boundary()
		w.children(n, marks)
		w.boundary()
		return
	}
	w.children(n, marks)
}

func (w *domWalker) children(n *html.Node, marks []Mark) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, marks)
	}
}

func (w *domWalker) block(n *html.Node, typ *NodeType, attrs map[string]string, marks []Mark) {
	w.trimTrailingSpace()
	w.toks = append(w.toks, token{kind: tokOpen, typ: typ, attrs: attrs})
	w.lineStart = true
	if typ.Plain {
		w.pre++
	}
	w.children(n, marks)
	w.trimTrailingSpace()
	if typ.Plain {
		w.pre--
	}
	w.toks = append(w.toks, token{kind: tokClose, typ: typ})
	w.lineStart = true
}

func (w *domWalker) leaf(typ *NodeType) {
	if typ.Name == NodeHardBreak && w.pre > 0 {
		w.toks = append(w.toks, token{kind: tokChar, r: '\n'})
		return
	}
	w.trimTrailingSpace()
	w.toks = append(w.toks, token{kind: tokLeaf, typ: typ})
	w.lineStart = true
}

// boundary ends any implicit paragraph opened for loose inline content.
func (w *domWalker) boundary() {
	w.trimTrailingSpace()
	w.toks = append(w.toks, token{kind: tokClose, typ: w.schema.defaultTextblock()})
	w.lineStart = true
}

func (w *domWalker) text(s string, marks []Mark) {
	if w.pre > 0 {
		for _, r := range s {
			w.toks = append(w.toks, token{kind: tokChar, r: r})
		}
		w.lineStart = false
		return
	}
	for _, r := range s {
		if isSpace(r) {
			if w.lineStart || w.lastIsSpace() {
				continue
			}
			r = ' '
		}
		w.toks = append(w.toks, token{kind: tokChar, r: r, marks: marks})
		w.lineStart = false
	}
}

func (w *domWalker) lastIsSpace() bool {
	n := len(w.toks)
	return n > 0 && w.toks[n-1].kind == tokChar && w.toks[n-1].r == ' '
}

// trimTrailingSpace removes a collapsed space before a block edge.
func (w *domWalker) trimTrailingSpace() {
	if w.pre > 0 {
		return
	}
	for w.lastIsSpace() {
		w.toks = w.toks[:len(w.toks)-1]
	}
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

// =============================================================================
// ELEMENT MAPPING
// =============================================================================

func (w *domWalker) blockFor(n *html.Node) (*NodeType, map[string]string) {
	s := w.schema
	switch n.DataAtom {
	case atom.P:
		return s.Node(NodeParagraph), nil
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return s.Node(NodeHeading), map[string]string{"level": n.Data[1:]}
	case atom.Blockquote:
		return s.Node(NodeBlockquote), nil
	case atom.Ul:
		return s.Node(NodeBulletList), nil
	case atom.Ol:
		if start, err := strconv.Atoi(attr(n, "start")); err == nil && start != 1 {
			return s.Node(NodeOrderedList), map[string]string{"start": strconv.Itoa(start)}
		}
		return s.Node(NodeOrderedList), nil
	case atom.Li:
		return s.Node(NodeListItem), nil
	case atom.Pre:
		if lang := codeLanguage(n); lang != "" {
			return s.Node(NodeCodeBlock), map[string]string{"language": lang}
		}
		return s.Node(NodeCodeBlock), nil
	}
	return nil, nil
}

func (w *domWalker) leafFor(n *html.Node) *NodeType {
	switch n.DataAtom {
	case atom.Br:
		return w.schema.Node(NodeHardBreak)
	case atom.Hr:
		return w.schema.Node(NodeHorizontalRule)
	}
	return nil
}

func (w *domWalker) markFor(n *html.Node) (Mark, bool) {
	s := w.schema
	switch n.DataAtom {
	case atom.Strong, atom.B:
		return Mark{Type: s.Mark(MarkBold)}, true
	case atom.Em, atom.I:
		return Mark{Type: s.Mark(MarkItalic)}, true
	case atom.U:
		return Mark{Type: s.Mark(MarkUnderline)}, true
	case atom.S, atom.Strike, atom.Del:
		return Mark{Type: s.Mark(MarkStrike)}, true
	case atom.Code:
		if w.pre > 0 {
			return Mark{}, false
		}
		return Mark{Type: s.Mark(MarkCode)}, true
	case atom.A:
		if href := attr(n, "href"); href != "" {
			return Mark{Type: s.Mark(MarkLink), Attrs: map[string]string{"href": href}}, true
		}
	}
	return Mark{}, false
}

// codeLanguage reads a language-x class from a <pre> or its <code> child.
func codeLanguage(n *html.Node) string {
	if lang := languageClass(attr(n, "class")); lang != "" {
		return lang
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Code {
			return languageClass(attr(c, "class"))
		}
	}
	return ""
}

func languageClass(class string) string {
	for _, f := range strings.Fields(class) {
		for _, prefix := range []string{"language-", "lang-"} {
			if lang, ok := strings.CutPrefix(f, prefix); ok && lang != "" {
				return lang
			}
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
