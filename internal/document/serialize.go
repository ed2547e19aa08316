// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SerializeHTML renders block content as HTML. Marks shared by adjacent
// text nodes stay open across them.
func SerializeHTML(f Fragment) string {
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range f {
		root.AppendChild(htmlNode(n))
	}
	var sb strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		// Render only fails on writer errors; strings.Builder has none.
		_ = html.Render(&sb, c)
	}
	return sb.String()
}

func htmlNode(n *Node) *html.Node {
	switch n.Type.Name {
	case NodeText:
		return &html.Node{Type: html.TextNode, Data: n.Text}
	case NodeHeading:
		level, err := strconv.Atoi(n.Attr("level"))
		if err != nil || level < 1 || level > 6 {
			level = 1
		}
		el := element("h" + strconv.Itoa(level))
		appendInline(el, n.Content)
		return el
	case NodeOrderedList:
		el := element(n.Type.Tag)
		if start := n.Attr("start"); start != "" {
			el.Attr = append(el.Attr, html.Attribute{Key: "start", Val: start})
		}
		appendBlocks(el, n.Content)
		return el
	case NodeCodeBlock:
		pre := element("pre")
		code := element("code")
		if lang := n.Attr("language"); lang != "" {
			code.Attr = append(code.Attr, html.Attribute{Key: "class", Val: "language-" + lang})
		}
		code.AppendChild(&html.Node{Type: html.TextNode, Data: n.TextContent()})
		pre.AppendChild(code)
		return pre
	}

	el := element(n.Type.Tag)
	switch {
	case n.Type.IsLeaf():
	case n.Type.IsTextblock():
		appendInline(el, n.Content)
	default:
		appendBlocks(el, n.Content)
	}
	return el
}

func appendBlocks(parent *html.Node, content []*Node) {
	for _, c := range content {
		parent.AppendChild(htmlNode(c))
	}
}

// appendInline adds inline nodes, nesting mark elements by rank.
func appendInline(parent *html.Node, content []*Node) {
	type openMark struct {
		mark Mark
		el   *html.Node
	}
	var open []openMark
	for _, n := range content {
		keep := 0
		for keep < len(open) && keep < len(n.Marks) && open[keep].mark.Eq(n.Marks[keep]) {
			keep++
		}
		open = open[:keep]
		cur := parent
		if keep > 0 {
			cur = open[keep-1].el
		}
		for _, m := range n.Marks[keep:] {
			el := markElement(m)
			cur.AppendChild(el)
			open = append(open, openMark{mark: m, el: el})
			cur = el
		}
		cur.AppendChild(htmlNode(n))
	}
}

func markElement(m Mark) *html.Node {
	el := element(m.Type.Tag)
	if href, ok := m.Attrs["href"]; ok {
		el.Attr = append(el.Attr, html.Attribute{Key: "href", Val: href})
	}
	return el
}

func element(tag string) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}
