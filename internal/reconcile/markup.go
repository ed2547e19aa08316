// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// CheckpointMode selects how strictly a buffer must be formed before it is
// rendered mid-stream.
type CheckpointMode string

const (
	// CheckpointStrict renders only buffers whose tags balance exactly.
	CheckpointStrict CheckpointMode = "strict"

	// CheckpointLenient renders any buffer that does not end inside a tag,
	// letting the parser close whatever is still open.
	CheckpointLenient CheckpointMode = "lenient"
)

// ParseCheckpointMode maps a config value to a mode. Unknown values yield
// strict.
func ParseCheckpointMode(s string) CheckpointMode {
	if strings.EqualFold(strings.TrimSpace(s), string(CheckpointLenient)) {
		return CheckpointLenient
	}
	return CheckpointStrict
}

var (
	// cleanPattern matches code fence delimiters with an optional language
	// tag and stray emphasis asterisks.
	cleanPattern = regexp.MustCompile("```[A-Za-z0-9_+-]*|\\*")

	// formingFence matches a buffer that may still be growing a fence.
	formingFence = regexp.MustCompile("`+[A-Za-z0-9_+-]*$")

	// formingEntity matches a trailing character reference in progress.
	formingEntity = regexp.MustCompile(`&#?[A-Za-z0-9]*$`)
)

// Clean strips fence delimiters and asterisks the model wraps around
// markup.
func Clean(buf string) string {
	return cleanPattern.ReplaceAllString(buf, "")
}

// EndsDocument reports whether the buffer ends with a closing </body> or
// </html>.
func EndsDocument(buf string) bool {
	t := strings.ToLower(strings.TrimSpace(buf))
	return strings.HasSuffix(t, "</body>") || strings.HasSuffix(t, "</html>")
}

// IsCheckpoint reports whether buf is safe to render.
func IsCheckpoint(buf string, mode CheckpointMode) bool {
	if EndsDocument(buf) {
		return true
	}
	if formingFence.MatchString(buf) {
		return false
	}
	cleaned := Clean(buf)
	if strings.TrimSpace(cleaned) == "" || formingEntity.MatchString(cleaned) {
		return false
	}
	if mode == CheckpointLenient {
		return !partialTag(cleaned)
	}
	return WellFormed(cleaned)
}

// voidElements never take an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// WellFormed reports whether every non-void start tag in markup is closed
// by a matching end tag in nesting order and no tag is left unfinished.
// "<p>Hello" is not well-formed; "<p>Hello</p>" is.
func WellFormed(markup string) bool {
	if partialTag(markup) {
		return false
	}
	z := html.NewTokenizer(strings.NewReader(markup))
	var open []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return errors.Is(z.Err(), io.EOF) && len(open) == 0
		case html.StartTagToken:
			name, _ := z.TagName()
			if !voidElements[string(name)] {
				open = append(open, string(name))
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if voidElements[tag] {
				continue
			}
			if len(open) == 0 || open[len(open)-1] != tag {
				return false
			}
			open = open[:len(open)-1]
		}
	}
}

// partialTag reports whether markup ends inside a tag or comment.
func partialTag(markup string) bool {
	lt := strings.LastIndexByte(markup, '<')
	return lt >= 0 && lt > strings.LastIndexByte(markup, '>')
}
