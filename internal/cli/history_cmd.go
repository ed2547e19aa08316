// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - the "inkwell history" command.
//
// Examples:
//
//	inkwell history                    Last 20 generations
//	inkwell history notes.html         Only generations into notes.html
//	inkwell history --show 3f2a9c1e    One entry in full
//	inkwell history --diff 3f2a9c1e    What changed in the file since that entry
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/jeranaias/inkwell/internal/diff"
	"github.com/jeranaias/inkwell/internal/document"
	"github.com/jeranaias/inkwell/internal/storage"
	"github.com/jeranaias/inkwell/internal/ui/styles"
	"github.com/jeranaias/inkwell/internal/util"
)

// errJournalDisabled is returned when history is asked for without a journal.
var errJournalDisabled = errors.New("the journal is disabled (set storage.journal_enabled = true)")

// HandleHistory lists and inspects recorded generations.
func HandleHistory(ctx context.Context, env *Env) error {
	p := NewArgParser(env.Args.Raw)

	j, err := env.Journal()
	if err != nil {
		return err
	}
	if j == nil {
		return errJournalDisabled
	}

	if id := p.Flag("show"); id != "" {
		e, err := getEntry(ctx, j, id)
		if err != nil {
			return err
		}
		if env.Args.JSON {
			return env.WriteJSON("history", e)
		}
		writeEntry(env.Term.Out, env.Theme, e)
		return nil
	}

	if id := p.Flag("diff"); id != "" {
		return historyDiff(ctx, env, j, id, p.Positional(0))
	}

	limit, err := p.FlagInt("limit", 20)
	if err != nil {
		return err
	}
	entries, err := listEntries(ctx, j, limit, p.Positional(0))
	if err != nil {
		return err
	}
	if env.Args.JSON {
		return env.WriteJSON("history", entries)
	}
	if len(entries) == 0 {
		env.Printf("%s\n", DimStyle.Render("No generations recorded yet."))
		return nil
	}
	writeEntryTable(env.Term.Out, env.Theme, entries, time.Now())
	return nil
}

func getEntry(ctx context.Context, j *storage.Journal, id string) (storage.Entry, error) {
	e, err := j.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return e, &NotFoundError{Resource: "journal entry", ID: id, Err: err}
	}
	return e, err
}

// listEntries returns up to limit entries, only those for file when set.
func listEntries(ctx context.Context, j *storage.Journal, limit int, file string) ([]storage.Entry, error) {
	if file == "" {
		return j.List(ctx, limit)
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	all, err := j.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	var out []storage.Entry
	for _, e := range all {
		if e.Document == abs {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// historyDiff compares the document an entry produced with the file as it
// is now.
func historyDiff(ctx context.Context, env *Env, j *storage.Journal, id, file string) error {
	e, err := getEntry(ctx, j, id)
	if err != nil {
		return err
	}
	if file == "" {
		file = e.Document
	}
	if file == "" {
		return ErrMissingArgument("FILE", "inkwell history --diff "+id+" notes.html")
	}
	then, err := document.FromHTML(document.DefaultSchema(), e.FinalHTML)
	if err != nil {
		return fmt.Errorf("entry %s: %w", shortID(e.ID), err)
	}
	now, err := loadExisting(file)
	if err != nil {
		return err
	}
	d := diff.Documents(filepath.Base(file), then, now)
	if env.Args.JSON {
		return env.WriteJSON("history", map[string]any{
			"id":        e.ID,
			"file":      file,
			"summary":   d.Summary(),
			"additions": d.Stats.Additions,
			"deletions": d.Stats.Deletions,
			"diff":      d.Unified(),
		})
	}
	writeDiff(env.Term.Out, env.Theme, d)
	return nil
}

// =============================================================================
// RENDERING
// =============================================================================

func writeEntryTable(w io.Writer, theme *styles.Theme, entries []storage.Entry, now time.Time) {
	width := GetTerminalWidth()
	for _, e := range entries {
		who := e.Provider
		if e.Model != "" {
			who += "/" + e.Model
		}
		head := fmt.Sprintf("%s  %s  %s  %s",
			theme.JournalID.Render(shortID(e.ID)),
			styles.RenderStatus(e.Status),
			theme.JournalMeta.Render(util.PadWidth(formatAge(e.StartedAt, now), 10)),
			theme.ProviderStyle(e.Provider).Render(who))
		fmt.Fprintln(w, head)

		prompt := util.TruncateWidth(util.SingleLine(e.Prompt), max(width-6, 20))
		fmt.Fprintf(w, "    %s\n", theme.JournalPrompt.Render(prompt))
		meta := fmt.Sprintf("%s [%d, %d)  %d checkpoints  %d bytes  %s",
			e.Mode, e.Start, e.End, e.Checkpoints, e.Bytes, e.Duration().Round(time.Millisecond))
		if e.Document != "" {
			meta += "  " + filepath.Base(e.Document)
		}
		fmt.Fprintf(w, "    %s\n", theme.JournalMeta.Render(meta))
	}
}

func writeEntry(w io.Writer, theme *styles.Theme, e storage.Entry) {
	fmt.Fprintln(w, TitleStyle.Render("Generation "+e.ID))
	fmt.Fprintln(w, RenderField("Status", styles.RenderStatus(e.Status)))
	if e.Error != "" {
		fmt.Fprintln(w, RenderField("Error", ErrorStyle.Render(e.Error)))
	}
	fmt.Fprintln(w, RenderField("Document", e.Document))
	who := e.Provider
	if e.Model != "" {
		who += " / " + e.Model
	}
	fmt.Fprintln(w, RenderField("Provider", who))
	fmt.Fprintln(w, RenderField("Mode", fmt.Sprintf("%s [%d, %d)", e.Mode, e.Start, e.End)))
	fmt.Fprintln(w, RenderField("Checkpoints", fmt.Sprint(e.Checkpoints)))
	fmt.Fprintln(w, RenderField("Deltas", fmt.Sprintf("%d (%d bytes)", e.Deltas, e.Bytes)))
	fmt.Fprintln(w, RenderField("Started", e.StartedAt.Local().Format(time.DateTime)))
	fmt.Fprintln(w, RenderField("Duration", e.Duration().Round(time.Millisecond).String()))

	fmt.Fprintln(w, SectionStyle.Render("Prompt"))
	fmt.Fprintln(w, theme.JournalPrompt.Render(e.Prompt))
	if e.FinalHTML != "" {
		fmt.Fprintln(w, SectionStyle.Render("Result"))
		fmt.Fprintln(w, e.FinalHTML)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
