// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/jeranaias/inkwell/internal/config"
	"github.com/jeranaias/inkwell/internal/generate"
	"github.com/jeranaias/inkwell/internal/provider"
	"github.com/jeranaias/inkwell/internal/storage"
	"github.com/jeranaias/inkwell/internal/ui/styles"
)

// LogFileName is the log written under the config directory unless
// --verbose sends it to stderr.
const LogFileName = "inkwell.log"

// Env is what a command handler runs against: parsed flags, streams,
// configuration and logger.
type Env struct {
	Args   Args
	Term   Terminal
	Config *config.Config
	// ConfigPath is the file the config was read from or will be saved to.
	ConfigPath string
	Logger     *log.Logger
	Theme      *styles.Theme

	logFile io.Closer
	journal *storage.Journal
}

// NewEnv loads the configuration and opens the log.
func NewEnv(args Args, term Terminal) (*Env, error) {
	env := &Env{Args: args, Term: term.withDefaults()}

	cfg, path, err := loadConfig(args.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	config.SetGlobal(cfg)
	env.Config = cfg
	env.ConfigPath = path
	env.Theme = styles.NewThemeFor(cfg.UI.Theme)

	env.Logger, env.logFile = openLog(args.Verbose, env.Term.Err)
	env.Logger.Printf("START | version=%s cmd=%s config=%s provider=%s", Version, args.Name, path, cfg.Provider.Name)
	return env, nil
}

func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, "", err
		}
		p, _ := config.ConfigPathTOML()
		return cfg, p, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		// A missing explicit file means defaults; `config init` creates it.
		cfg := config.Default()
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
		return cfg, path, cfg.Validate()
	}
	cfg, err := config.LoadFromPath(path)
	return cfg, path, err
}

func openLog(verbose bool, stderr io.Writer) (*log.Logger, io.Closer) {
	if verbose {
		return log.New(stderr, "inkwell: ", log.LstdFlags|log.Lmicroseconds), nil
	}
	dir, err := config.ConfigDir()
	if err == nil {
		err = os.MkdirAll(dir, 0700)
	}
	if err != nil {
		return log.New(io.Discard, "", 0), nil
	}
	f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return log.New(io.Discard, "", 0), nil
	}
	return log.New(f, "", log.LstdFlags|log.Lmicroseconds), f
}

// Close releases the journal and the log file.
func (e *Env) Close() {
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			e.Logger.Printf("JOURNAL_ERROR | close err=%v", err)
		}
		e.journal = nil
	}
	if e.logFile != nil {
		e.logFile.Close()
		e.logFile = nil
	}
}

// Journal opens the generation journal on first use. It returns nil when
// the journal is disabled.
func (e *Env) Journal() (*storage.Journal, error) {
	if e.journal != nil || !e.Config.Storage.JournalEnabled {
		return e.journal, nil
	}
	path, err := e.Config.JournalPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("journal directory: %w", err)
	}
	j, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	e.journal = j
	e.Logger.Printf("JOURNAL_OPEN | path=%s", j.Path())
	return j, nil
}

// Service builds the generation service for the configured provider.
func (e *Env) Service() (*generate.Service, error) {
	p, err := provider.FromConfig(e.Config, e.Logger)
	if err != nil {
		return nil, err
	}
	j, err := e.Journal()
	if err != nil {
		// A broken journal should not block generating.
		e.Logger.Printf("JOURNAL_ERROR | open err=%v", err)
		e.Warnf("journal unavailable: %v", err)
		j = nil
	}
	return generate.New(generate.Options{
		Provider: p,
		Journal:  j,
		Config:   e.Config,
		Logger:   e.Logger,
	})
}

// =============================================================================
// OUTPUT
// =============================================================================

// Stdout is where human-readable output goes: stderr in JSON mode so
// stdout stays parseable.
func (e *Env) Stdout() io.Writer {
	if e.Args.JSON {
		return e.Term.Err
	}
	return e.Term.Out
}

// Printf writes informational output unless --quiet.
func (e *Env) Printf(format string, args ...any) {
	if e.Args.Quiet {
		return
	}
	fmt.Fprintf(e.Stdout(), format, args...)
}

// Warnf writes a warning to stderr.
func (e *Env) Warnf(format string, args ...any) {
	fmt.Fprintf(e.Term.Err, "%s %s\n", WarningStyle.Render("[WARN]"), fmt.Sprintf(format, args...))
}

// WriteJSON writes the --json envelope for command.
func (e *Env) WriteJSON(command string, data any) error {
	return NewJSONResponse(command, data).Write(e.Term.Out)
}
