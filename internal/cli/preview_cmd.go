// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// preview_cmd.go - the "inkwell preview" command.
//
// Examples:
//
//	inkwell preview notes.html
//	inkwell preview notes.html --watch
//	inkwell preview notes.html --raw > notes.md
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/inkwell/internal/document"
	"github.com/jeranaias/inkwell/internal/storage"
	"github.com/jeranaias/inkwell/internal/ui/live"
)

// PreviewData is the --json output of preview.
type PreviewData struct {
	File     string `json:"file"`
	Size     int    `json:"size"`
	HTML     string `json:"html"`
	Markdown string `json:"markdown"`
}

// HandlePreview renders a document file in the terminal.
func HandlePreview(ctx context.Context, env *Env) error {
	p := NewArgParser(env.Args.Raw, "watch", "raw")

	path := p.Positional(0)
	if path == "" {
		return ErrMissingArgument("FILE", "inkwell preview notes.html")
	}
	doc, err := loadExisting(path)
	if err != nil {
		return err
	}

	if env.Args.JSON {
		return env.WriteJSON("preview", PreviewData{
			File:     path,
			Size:     doc.Size(),
			HTML:     doc.HTML(),
			Markdown: doc.Markdown(),
		})
	}
	if p.Bool("raw") {
		_, err := fmt.Fprint(env.Term.Out, doc.Markdown())
		return err
	}

	if env.Term.Interactive() {
		watch := ""
		if p.Bool("watch") {
			watch = path
		}
		return live.Preview(ctx, doc, live.Config{
			Theme:    env.Theme,
			Title:    path,
			WordWrap: env.Config.UI.WordWrap,
		}, watch, live.IO{In: env.Term.In, Out: env.Term.Out})
	}

	if p.Bool("watch") {
		env.Warnf("--watch needs a terminal; rendering once")
	}
	out, err := renderMarkdown(doc.Markdown(), env.Theme.GlamourStyle(), env.Config.UI.WordWrap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(env.Term.Out, out)
	return err
}

// loadExisting loads path and reports a missing file as NotFoundError.
func loadExisting(path string) (*document.Document, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Resource: "document", ID: path, Err: err}
	}
	return storage.LoadDocument(path, document.DefaultSchema())
}

// renderMarkdown renders md with glamour. Without colors the notty style
// is used so output stays plain text.
func renderMarkdown(md, style string, wrap int) (string, error) {
	if wrap <= 0 {
		wrap = min(GetTerminalWidth(), 100) - 4
	}
	if !ColorsEnabled() {
		style = "notty"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return "", fmt.Errorf("markdown renderer: %w", err)
	}
	return r.Render(md)
}
