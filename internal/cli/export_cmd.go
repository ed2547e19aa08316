// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - the "inkwell export" command.
//
// Examples:
//
//	inkwell export notes.html                        Standalone HTML page in .
//	inkwell export notes.html --format md --out docs
//	inkwell export notes.html --format json --stdout | jq .root
//	inkwell export notes.html --format md --clipboard
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"

	"github.com/jeranaias/inkwell/internal/export"
	"github.com/jeranaias/inkwell/internal/storage"
)

// ExportData is the --json output of export.
type ExportData struct {
	File      string `json:"file"`
	Format    string `json:"format"`
	Output    string `json:"output,omitempty"`
	Bytes     int    `json:"bytes"`
	Clipboard bool   `json:"clipboard"`
}

// writeClipboard is replaced in tests.
var writeClipboard = func(text string) error {
	if clipboard.Unsupported {
		return errors.New("clipboard is not available on this system")
	}
	return clipboard.WriteAll(text)
}

// HandleExport writes a document file in another format.
func HandleExport(ctx context.Context, env *Env) error {
	p := NewArgParser(env.Args.Raw, "clipboard", "no-metadata", "open", "stdout")

	path := p.Positional(0)
	if path == "" {
		return ErrMissingArgument("FILE", "inkwell export notes.html --format md")
	}
	doc, err := loadExisting(path)
	if err != nil {
		return err
	}

	format := p.FlagOrDefault("format", "html")
	opts := export.DefaultOptions()
	opts.OutputDir = p.FlagOrDefault("out", ".")
	opts.Theme = p.FlagOrDefault("theme", env.Config.UI.Theme)
	opts.IncludeMetadata = !p.Bool("no-metadata")
	opts.OpenAfterExport = p.Bool("open")

	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return NewValidationErrorWithExample("--format", format, "unsupported format", "--format html|md|json")
	}

	src := &export.Source{
		Doc:   doc,
		Path:  path,
		Title: p.Flag("title"),
		Last:  lastEntryFor(ctx, env, path),
	}
	data := ExportData{File: path, Format: format}

	switch {
	case p.Bool("clipboard") || p.Bool("stdout"):
		content, err := exporter.Export(src)
		if err != nil {
			return err
		}
		data.Bytes = len(content)
		if p.Bool("stdout") {
			_, err := env.Term.Out.Write(content)
			return err
		}
		if err := writeClipboard(string(content)); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		data.Clipboard = true
		env.Printf("%s\n", SuccessStyle.Render(fmt.Sprintf("Copied %s (%d bytes) to the clipboard", exporter.MimeType(), len(content))))

	default:
		out, err := export.ExportToFile(src, exporter, opts)
		if err != nil {
			return err
		}
		data.Output = out
		if fi, err := os.Stat(out); err == nil {
			data.Bytes = int(fi.Size())
		}
		env.Printf("%s\n", SuccessStyle.Render("Exported to "+out))
	}

	env.Logger.Printf("EXPORT | file=%s format=%s output=%s bytes=%d clipboard=%t",
		path, format, data.Output, data.Bytes, data.Clipboard)
	if env.Args.JSON {
		return env.WriteJSON("export", data)
	}
	return nil
}

// lastEntryFor returns the newest journal entry for the document at path,
// or nil.
func lastEntryFor(ctx context.Context, env *Env, path string) *storage.Entry {
	j, err := env.Journal()
	if err != nil || j == nil {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil
	}
	entries, err := j.List(ctx, 200)
	if err != nil {
		env.Logger.Printf("JOURNAL_ERROR | list err=%v", err)
		return nil
	}
	for i := range entries {
		if entries[i].Document == abs {
			return &entries[i]
		}
	}
	return nil
}
