// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"strconv"
	"strings"
)

// SerializeMarkdown renders block content as CommonMark.
func SerializeMarkdown(f Fragment) string {
	return strings.TrimRight(mdBlocks(f), "\n") + "\n"
}

func mdBlocks(f Fragment) string {
	parts := make([]string, 0, len(f))
	for _, n := range f {
		parts = append(parts, mdBlock(n))
	}
	return strings.Join(parts, "\n\n")
}

func mdBlock(n *Node) string {
	switch n.Type.Name {
	case NodeParagraph:
		return mdInline(n.Content)
	case NodeHeading:
		level, err := strconv.Atoi(n.Attr("level"))
		if err != nil || level < 1 || level > 6 {
			level = 1
		}
		return strings.Repeat("#", level) + " " + mdInline(n.Content)
	case NodeBlockquote:
		return prefixLines(mdBlocks(n.Content), "> ", "> ")
	case NodeBulletList, NodeOrderedList:
		return mdList(n)
	case NodeCodeBlock:
		return "```" + n.Attr("language") + "\n" + strings.TrimSuffix(n.TextContent(), "\n") + "\n```"
	case NodeHorizontalRule:
		return "---"
	case NodeListItem:
		return mdBlocks(n.Content)
	}
	return mdInline(n.Content)
}

func mdList(n *Node) string {
	start := 1
	if s, err := strconv.Atoi(n.Attr("start")); err == nil {
		start = s
	}
	tight := true
	items := make([]string, 0, len(n.Content))
	for i, item := range n.Content {
		marker := "- "
		if n.Type.Name == NodeOrderedList {
			marker = strconv.Itoa(start+i) + ". "
		}
		if len(item.Content) > 1 {
			tight = false
		}
		body := mdBlocks(item.Content)
		items = append(items, prefixLines(body, marker, strings.Repeat(" ", len(marker))))
	}
	if tight {
		return strings.Join(items, "\n")
	}
	return strings.Join(items, "\n\n")
}

// prefixLines prefixes the first line with first and the rest with rest.
// Blank lines get the trimmed prefix.
func prefixLines(s, first, rest string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		p := rest
		if i == 0 {
			p = first
		}
		if line == "" {
			p = strings.TrimRight(p, " ")
		}
		lines[i] = p + line
	}
	return strings.Join(lines, "\n")
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
)

func mdInline(content []*Node) string {
	var sb strings.Builder
	var open []Mark
	closeTo := func(keep int) {
		for i := len(open) - 1; i >= keep; i-- {
			sb.WriteString(mdMarkClose(open[i]))
		}
		open = open[:keep]
	}
	for _, n := range content {
		keep := 0
		for keep < len(open) && keep < len(n.Marks) && open[keep].Eq(n.Marks[keep]) {
			keep++
		}
		closeTo(keep)
		for _, m := range n.Marks[keep:] {
			sb.WriteString(mdMarkOpen(m))
			open = append(open, m)
		}
		switch {
		case n.Type.IsText():
			if len(n.Marks) > 0 && n.Marks[len(n.Marks)-1].Type.Name == MarkCode {
				sb.WriteString(n.Text)
			} else {
				sb.WriteString(mdEscaper.Replace(n.Text))
			}
		case n.Type.Name == NodeHardBreak:
			sb.WriteString("\\\n")
		}
	}
	closeTo(0)
	return sb.String()
}

func mdMarkOpen(m Mark) string {
	switch m.Type.Name {
	case MarkBold:
		return "**"
	case MarkItalic:
		return "_"
	case MarkStrike:
		return "~~"
	case MarkCode:
		return "`"
	case MarkLink:
		return "["
	case MarkUnderline:
		return "<u>"
	}
	return ""
}

func mdMarkClose(m Mark) string {
	switch m.Type.Name {
	case MarkLink:
		return "](" + m.Attrs["href"] + ")"
	case MarkUnderline:
		return "</u>"
	}
	return mdMarkOpen(m)
}
