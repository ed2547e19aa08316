// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// repl_cmd.go - the "inkwell repl" command.
//
// Every line typed is a prompt generated into FILE; lines starting with a
// slash are commands. The file is saved after each generation.
//
// Interactive Commands:
//
//	/select FROM:TO     Generate into a range (no argument clears it)
//	/show               Render the document
//	/html               Print the document's HTML
//	/diff               Diff against the state before the last generation
//	/undo               Restore the state before the last generation
//	/live [on|off]      Toggle the live view
//	/history            Recent generations for this file
//	/help               Show commands
//	/quit               Exit (also Ctrl+D)
//	Ctrl+C              Cancel the running generation
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/inkwell/internal/config"
	"github.com/jeranaias/inkwell/internal/diff"
	"github.com/jeranaias/inkwell/internal/document"
	"github.com/jeranaias/inkwell/internal/generate"
	"github.com/jeranaias/inkwell/internal/reconcile"
	"github.com/jeranaias/inkwell/internal/storage"
)

// replHistoryFile is the liner history kept in the config directory.
const replHistoryFile = "repl_history"

var replCommands = []string{"/select", "/show", "/html", "/diff", "/undo", "/live", "/history", "/help", "/quit"}

// lineReader is the input side of the repl.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// =============================================================================
// LINE READERS
// =============================================================================

// linerReader provides history and line editing on a terminal.
type linerReader struct {
	state       *liner.State
	historyFile string
}

func newLinerReader() *linerReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(func(line string) []string {
		var out []string
		for _, c := range replCommands {
			if strings.HasPrefix(c, line) {
				out = append(out, c)
			}
		}
		return out
	})

	r := &linerReader{state: state}
	if dir, err := config.ConfigDir(); err == nil {
		r.historyFile = filepath.Join(dir, replHistoryFile)
		if f, err := os.Open(r.historyFile); err == nil {
			state.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	line, err := r.state.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		r.state.AppendHistory(line)
	}
	return line, nil
}

func (r *linerReader) Close() error {
	if r.historyFile != "" && config.EnsureConfigDir() == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.state.WriteHistory(f)
			f.Close()
		}
	}
	return r.state.Close()
}

// scriptReader reads prompts from a pipe, one per line.
type scriptReader struct {
	scanner *bufio.Scanner
}

func newScriptReader(in io.Reader) *scriptReader {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 64*1024), 1<<20)
	return &scriptReader{scanner: s}
}

func (r *scriptReader) Prompt(string) (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scriptReader) Close() error { return nil }

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	env  *Env
	svc  *generate.Service
	path string
	abs  string
	doc  *document.Document
	live bool
	// undo holds the HTML before each generation, newest last.
	undo []string
}

// HandleRepl runs an interactive generation loop on one document.
func HandleRepl(ctx context.Context, env *Env) error {
	p := NewArgParser(env.Args.Raw, "live")

	path := p.Positional(0)
	if path == "" {
		return ErrMissingArgument("FILE", "inkwell repl notes.html")
	}
	if err := applyProviderFlags(env.Config, p); err != nil {
		return err
	}
	doc, err := storage.LoadDocument(path, document.DefaultSchema())
	if err != nil {
		return err
	}
	svc, err := env.Service()
	if err != nil {
		return err
	}
	abs, _ := filepath.Abs(path)

	r := &repl{env: env, svc: svc, path: path, abs: abs, doc: doc}
	defer svc.CancelAll()
	var in lineReader
	if env.Term.Interactive() {
		in = newLinerReader()
		r.live = p.Bool("live")
		r.printWelcome()
	} else {
		in = newScriptReader(env.Term.In)
	}
	defer in.Close()

	return r.loop(ctx, in)
}

func (r *repl) loop(ctx context.Context, in lineReader) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := in.Prompt("inkwell> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			r.env.Printf("\n")
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case strings.HasPrefix(line, "/"):
			quit, err := r.command(ctx, line)
			if err != nil {
				DisplayError(r.env.Term.Err, err, false)
			}
			if quit {
				return nil
			}
		default:
			if err := r.generate(ctx, line); err != nil {
				DisplayError(r.env.Term.Err, err, false)
			}
		}
	}
}

// command runs a slash command and reports whether the repl should exit.
func (r *repl) command(ctx context.Context, line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	out := r.env.Stdout()

	switch strings.ToLower(name) {
	case "/quit", "/q", "/exit":
		return true, nil

	case "/help", "/h", "/?":
		r.printHelp()

	case "/select", "/sel":
		if arg == "" {
			_ = r.doc.SetSelection(document.Range{})
			r.env.Printf("%s\n", DimStyle.Render("selection cleared: generating into the whole document"))
			return false, nil
		}
		rng, err := ParseRange(arg)
		if err != nil {
			return false, err
		}
		if err := r.doc.SetSelection(rng); err != nil {
			return false, NewValidationError("selection", arg, fmt.Sprintf("outside the document (size %d)", r.doc.Size()))
		}
		text, _ := r.doc.TextBetween(rng.From, rng.To, " ")
		r.env.Printf("%s %s\n", DimStyle.Render(fmt.Sprintf("selected [%d, %d):", rng.From, rng.To)), text)

	case "/show":
		rendered, err := renderMarkdown(r.doc.Markdown(), r.env.Theme.GlamourStyle(), r.env.Config.UI.WordWrap)
		if err != nil {
			return false, err
		}
		fmt.Fprint(out, rendered)

	case "/html":
		fmt.Fprintln(out, r.doc.HTML())

	case "/diff":
		if len(r.undo) == 0 {
			r.env.Printf("%s\n", DimStyle.Render("nothing generated yet"))
			return false, nil
		}
		before, err := document.FromHTML(r.doc.Schema(), r.undo[len(r.undo)-1])
		if err != nil {
			return false, err
		}
		writeDiff(out, r.env.Theme, diff.Documents(filepath.Base(r.path), before, r.doc))

	case "/undo":
		if len(r.undo) == 0 {
			r.env.Printf("%s\n", DimStyle.Render("nothing to undo"))
			return false, nil
		}
		prev := r.undo[len(r.undo)-1]
		if err := setHTML(r.doc, prev); err != nil {
			return false, err
		}
		r.undo = r.undo[:len(r.undo)-1]
		if err := r.save(); err != nil {
			return false, err
		}
		r.env.Printf("%s\n", SuccessStyle.Render("restored previous version"))

	case "/live":
		switch strings.ToLower(arg) {
		case "", "toggle":
			r.live = !r.live
		default:
			on, err := ParseBoolString(arg)
			if err != nil {
				return false, err
			}
			r.live = on
		}
		if r.live && !r.env.Term.Interactive() {
			r.live = false
			return false, errors.New("the live view needs a terminal")
		}
		r.env.Printf("%s\n", DimStyle.Render(fmt.Sprintf("live view %s", onOff(r.live))))

	case "/history":
		j, err := r.env.Journal()
		if err != nil {
			return false, err
		}
		if j == nil {
			return false, errJournalDisabled
		}
		entries, err := listEntries(ctx, j, 10, r.path)
		if err != nil {
			return false, err
		}
		writeEntryTable(out, r.env.Theme, entries, time.Now())

	default:
		return false, NewValidationErrorWithExample("command", name, "unknown command", "/help")
	}
	return false, nil
}

// generate runs one prompt. Ctrl+C cancels the generation, not the repl.
func (r *repl) generate(ctx context.Context, prompt string) error {
	gctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	r.undo = append(r.undo, r.doc.HTML())
	startVersion := r.doc.Version()

	req := generate.Request{Document: r.doc, Name: r.abs, Prompt: prompt}
	res, err := runGeneration(gctx, r.env, r.svc, req, r.path, r.live, true)
	if err != nil {
		r.undo = r.undo[:len(r.undo)-1]
		return err
	}
	if r.doc.Version() != startVersion {
		if err := r.save(); err != nil {
			return err
		}
	} else {
		r.undo = r.undo[:len(r.undo)-1]
	}
	if res.Status != reconcile.StatusCompleted {
		return &GenerationError{Result: res}
	}
	return nil
}

func (r *repl) save() error {
	if err := storage.SaveDocument(r.path, r.doc); err != nil {
		return err
	}
	r.env.Logger.Printf("DOCUMENT_SAVED | path=%s size=%d", r.path, r.doc.Size())
	return nil
}

func (r *repl) printWelcome() {
	r.env.Printf("%s\n", TitleStyle.Render("inkwell repl: "+r.path))
	who := r.svc.Provider().Name()
	if m := r.svc.Provider().Model(); m != "" {
		who += "/" + m
	}
	r.env.Printf("%s\n", RenderField("Provider", who))
	r.env.Printf("%s\n", RenderField("Document", fmt.Sprintf("%d positions", r.doc.Size())))
	r.env.Printf("%s\n\n", DimStyle.Render("Type a prompt to generate, /help for commands, Ctrl+D to exit."))
}

func (r *repl) printHelp() {
	out := r.env.Stdout()
	fmt.Fprintln(out, SectionStyle.Render("Commands"))
	for _, c := range [][2]string{
		{"/select FROM:TO", "generate into a range (no argument clears it)"},
		{"/show", "render the document"},
		{"/html", "print the document's HTML"},
		{"/diff", "diff against the state before the last generation"},
		{"/undo", "restore the state before the last generation"},
		{"/live [on|off]", "toggle the live view"},
		{"/history", "recent generations for this file"},
		{"/quit", "exit (also Ctrl+D)"},
	} {
		fmt.Fprintf(out, "  %s %s\n", PromptStyle.Render(fmt.Sprintf("%-16s", c[0])), DimStyle.Render(c[1]))
	}
}

// setHTML replaces the whole content of doc with markup.
func setHTML(doc *document.Document, markup string) error {
	slice, err := doc.Parse(markup)
	if err != nil {
		return err
	}
	_, err = doc.ReplaceRange(0, doc.Size(), slice)
	return err
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
