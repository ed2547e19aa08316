// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/inkwell/internal/document"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits command arguments into flags and positionals.
//
// Accepted forms are --flag value, --flag=value, -f value and bare
// switches. Names passed as switches never consume the next argument, so
// "--live notes.html" keeps notes.html positional.
type ArgParser struct {
	flags      map[string]string
	switches   map[string]bool
	positional []string
}

// NewArgParser parses raw. A lone "--" ends flag parsing.
func NewArgParser(raw []string, switches ...string) *ArgParser {
	isSwitch := make(map[string]bool, len(switches))
	for _, s := range switches {
		isSwitch[s] = true
	}

	p := &ArgParser{
		flags:    make(map[string]string),
		switches: make(map[string]bool),
	}
	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		if arg == "--" {
			p.positional = append(p.positional, raw[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if key, val, ok := strings.Cut(name, "="); ok {
			if isSwitch[key] {
				p.switches[key] = val == "true" || val == "1"
			} else {
				p.flags[key] = val
			}
			continue
		}
		if !isSwitch[name] && i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			p.flags[name] = raw[i+1]
			i++
			continue
		}
		p.switches[name] = true
	}
	return p
}

// Flag returns the value of a string flag, or "".
func (p *ArgParser) Flag(name string) string {
	return p.flags[strings.TrimLeft(name, "-")]
}

// FlagOrDefault returns the flag value or def when unset.
func (p *ArgParser) FlagOrDefault(name, def string) string {
	if v := p.Flag(name); v != "" {
		return v
	}
	return def
}

// FlagInt returns a positive integer flag, def when unset.
func (p *ArgParser) FlagInt(name string, def int) (int, error) {
	v := p.Flag(name)
	if v == "" {
		return def, nil
	}
	return ParsePositiveInt(v, "--"+name)
}

// Bool reports whether a switch was given.
func (p *ArgParser) Bool(name string) bool {
	return p.switches[strings.TrimLeft(name, "-")]
}

// Positional returns the positional argument at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns the positionals from index on.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index < 0 || index >= len(p.positional) {
		return nil
	}
	return p.positional[index:]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// =============================================================================
// VALUE HELPERS
// =============================================================================

// ParsePositiveInt parses s and rejects values below 1.
func ParsePositiveInt(s, field string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, NewValidationErrorWithExample(field, s, "must be an integer", field+" 20")
	}
	if n <= 0 {
		return 0, NewValidationError(field, s, "must be positive")
	}
	return n, nil
}

// ParseRange parses "FROM:TO" (also "FROM-TO" and "FROM,TO") into a
// document range. A bare "N" selects the empty range at N.
func ParseRange(s string) (document.Range, error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, ":-,")
	if sep < 0 {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return document.Range{}, NewValidationErrorWithExample("--select", s, "invalid position", "--select 12:40")
		}
		return document.Range{From: n, To: n}, nil
	}
	from, err1 := strconv.Atoi(strings.TrimSpace(s[:sep]))
	to, err2 := strconv.Atoi(strings.TrimSpace(s[sep+1:]))
	if err1 != nil || err2 != nil || from < 0 || to < from {
		return document.Range{}, NewValidationErrorWithExample("--select", s, "invalid range", "--select 12:40")
	}
	return document.Range{From: from, To: to}, nil
}

// ParseBoolString parses a boolean from true/false, yes/no, y/n, 1/0 or
// on/off (case-insensitive).
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "on":
		return true, nil
	case "false", "no", "n", "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value: %s", s)
}
