// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// generate_cmd.go - the "inkwell generate" command.
//
// Examples:
//
//	inkwell generate notes.html "Write an outline about tides"
//	inkwell generate notes.html "Tighten this" --select 40:180 --diff
//	inkwell generate notes.html "Draft" --replay recorded.html --live
//	echo "Summarize" | inkwell generate notes.html -
package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/inkwell/internal/config"
	"github.com/jeranaias/inkwell/internal/diff"
	"github.com/jeranaias/inkwell/internal/document"
	"github.com/jeranaias/inkwell/internal/generate"
	"github.com/jeranaias/inkwell/internal/reconcile"
	"github.com/jeranaias/inkwell/internal/storage"
	"github.com/jeranaias/inkwell/internal/ui/live"
	"github.com/jeranaias/inkwell/internal/ui/styles"
)

const generateUsage = `inkwell generate notes.html "Write an outline about tides"`

// GenerateData is the --json output of generate.
type GenerateData struct {
	ID          string `json:"id"`
	File        string `json:"file"`
	Status      string `json:"status"`
	Mode        string `json:"mode"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Checkpoints int    `json:"checkpoints"`
	Deltas      int    `json:"deltas"`
	Bytes       int    `json:"bytes"`
	DurationMs  int64  `json:"duration_ms"`
	Reason      string `json:"reason,omitempty"`
	Error       string `json:"error,omitempty"`
	Saved       bool   `json:"saved"`
	Diff        string `json:"diff,omitempty"`
}

// HandleGenerate streams a model response into a document file.
func HandleGenerate(ctx context.Context, env *Env) error {
	p := NewArgParser(env.Args.Raw, "live", "diff", "dry-run", "auto-quit")

	path := p.Positional(0)
	if path == "" {
		return ErrMissingArgument("FILE", generateUsage)
	}
	prompt, err := readPrompt(strings.Join(p.PositionalFrom(1), " "), env.Term.In)
	if err != nil {
		return err
	}
	if prompt == "" {
		return ErrMissingArgument("prompt", generateUsage)
	}
	if err := applyProviderFlags(env.Config, p); err != nil {
		return err
	}

	doc, err := storage.LoadDocument(path, document.DefaultSchema())
	if err != nil {
		return err
	}
	before, err := document.FromHTML(doc.Schema(), doc.HTML())
	if err != nil {
		return err
	}
	if sel := p.Flag("select"); sel != "" {
		r, err := ParseRange(sel)
		if err != nil {
			return err
		}
		if err := doc.SetSelection(r); err != nil {
			return NewValidationErrorWithExample("--select", sel,
				fmt.Sprintf("outside the document (size %d)", doc.Size()), "--select 0:10")
		}
	}

	svc, err := env.Service()
	if err != nil {
		return err
	}

	startVersion := doc.Version()
	abs, _ := filepath.Abs(path)
	req := generate.Request{Document: doc, Name: abs, Prompt: prompt}
	res, err := runGeneration(ctx, env, svc, req, path, p.Bool("live"), p.Bool("auto-quit"))
	if err != nil {
		return err
	}

	data := GenerateData{
		ID:          res.ID,
		File:        path,
		Status:      res.Status.String(),
		Mode:        string(storage.ModeSelection),
		Start:       res.Start,
		End:         res.End,
		Checkpoints: res.Checkpoints,
		Deltas:      res.Deltas,
		Bytes:       res.Bytes,
		DurationMs:  res.Duration.Milliseconds(),
		Reason:      res.Reason,
	}
	if res.Whole {
		data.Mode = string(storage.ModeWhole)
	}
	if res.Err != nil {
		data.Error = res.Err.Error()
	}

	if doc.Version() != startVersion {
		if p.Bool("dry-run") {
			env.Printf("%s\n", DimStyle.Render("dry run: "+path+" not written"))
		} else {
			if err := storage.SaveDocument(path, doc); err != nil {
				return err
			}
			data.Saved = true
			env.Logger.Printf("DOCUMENT_SAVED | path=%s size=%d", path, doc.Size())
		}
	}

	if p.Bool("diff") {
		d := diff.Documents(filepath.Base(path), before, doc)
		if env.Args.JSON {
			data.Diff = d.Unified()
		} else {
			writeDiff(env.Stdout(), env.Theme, d)
		}
	}

	if env.Args.JSON {
		if err := env.WriteJSON("generate", data); err != nil {
			return err
		}
	} else if data.Saved {
		env.Printf("%s\n", SuccessStyle.Render("Saved "+path))
	}

	if res.Status != reconcile.StatusCompleted {
		return &GenerationError{Result: res}
	}
	return nil
}

// runGeneration picks the live view, plain progress lines, or silence.
func runGeneration(ctx context.Context, env *Env, svc *generate.Service, req generate.Request, title string, liveView, autoQuit bool) (reconcile.Result, error) {
	if liveView && !env.Args.JSON {
		if env.Term.Interactive() {
			return live.Generate(ctx, svc, req, live.Config{
				Theme:    env.Theme,
				Title:    title,
				WordWrap: env.Config.UI.WordWrap,
				AutoQuit: autoQuit,
			}, live.IO{In: env.Term.In, Out: env.Term.Out})
		}
		env.Warnf("--live needs a terminal; printing progress instead")
	}
	if env.Args.Quiet {
		return svc.Generate(ctx, req)
	}
	return live.Plain(ctx, svc, req, env.Stdout())
}

// readPrompt returns arg, or all of in when arg is "-".
func readPrompt(arg string, in io.Reader) (string, error) {
	if arg != "-" {
		return strings.TrimSpace(arg), nil
	}
	data, err := io.ReadAll(io.LimitReader(in, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read prompt from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// applyProviderFlags overlays --provider, --model, --replay and --chunk on
// cfg and revalidates it.
func applyProviderFlags(cfg *config.Config, p *ArgParser) error {
	if name := p.Flag("provider"); name != "" {
		cfg.Provider.Name = strings.ToLower(name)
	}
	if file := p.Flag("replay"); file != "" {
		cfg.Provider.Name = "replay"
		cfg.Provider.ReplayFile = file
	}
	chunk, err := p.FlagInt("chunk", cfg.Provider.ReplayChunk)
	if err != nil {
		return err
	}
	cfg.Provider.ReplayChunk = chunk
	if model := p.Flag("model"); model != "" {
		if cfg.Provider.Name == "cloud" {
			cfg.Cloud.Model = model
		} else {
			cfg.Local.Model = model
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

// writeDiff prints d with the theme's diff colors.
func writeDiff(w io.Writer, theme *styles.Theme, d *diff.Diff) {
	if !d.Changed() {
		fmt.Fprintln(w, DimStyle.Render(d.Summary()))
		return
	}
	fmt.Fprintln(w, theme.DiffHunk.Render(fmt.Sprintf("--- a/%s", d.Name)))
	fmt.Fprintln(w, theme.DiffHunk.Render(fmt.Sprintf("+++ b/%s", d.Name)))
	for _, h := range d.Hunks {
		fmt.Fprintln(w, theme.DiffHunk.Render(fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)))
		for _, l := range h.Lines {
			line := l.Type.Prefix() + l.Content
			switch l.Type {
			case diff.LineAdded:
				fmt.Fprintln(w, theme.DiffAdded.Render(line))
			case diff.LineRemoved:
				fmt.Fprintln(w, theme.DiffRemoved.Render(line))
			default:
				fmt.Fprintln(w, theme.DiffContext.Render(line))
			}
		}
	}
	fmt.Fprintln(w, DimStyle.Render(d.Summary()))
}

func formatAge(t time.Time, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	return t.Local().Format("2006-01-02")
}
