// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - command parsing and dispatch for inkwell.
package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdHelp Command = iota
	CmdGenerate
	CmdPreview
	CmdExport
	CmdHistory
	CmdRepl
	CmdConfig
	CmdVersion
	CmdUnknown
)

func (c Command) String() string {
	switch c {
	case CmdGenerate:
		return "generate"
	case CmdPreview:
		return "preview"
	case CmdExport:
		return "export"
	case CmdHistory:
		return "history"
	case CmdRepl:
		return "repl"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds the global flags and the command's own arguments.
type Args struct {
	// ConfigPath overrides the config file location.
	ConfigPath string
	Verbose    bool
	Quiet      bool
	// JSON switches command output to JSON on stdout.
	JSON bool

	// Name is the command word as typed.
	Name string
	// Raw holds the arguments after the command word.
	Raw []string
}

const usageText = `inkwell - stream model output into HTML documents

Usage:
  inkwell generate FILE "prompt"    Generate into FILE (whole document or --select range)
  inkwell preview FILE              Render FILE in the terminal
  inkwell export FILE               Export FILE as a standalone page, Markdown or JSON
  inkwell history                   List recorded generations
  inkwell repl FILE                 Interactive generation loop on FILE
  inkwell config [show|path|init|get|set|keys]
  inkwell version
  inkwell help

Generate:
  --select FROM:TO     Replace only the document range [FROM, TO)
  --live               Show the document updating in the terminal
  --diff               Print a diff of the document after generating
  --provider NAME      local, cloud or replay (overrides config)
  --model NAME         Model for the selected provider
  --replay FILE        Replay recorded markup instead of calling a model
  --dry-run            Do not write FILE back

Preview:
  --watch              Re-render whenever FILE changes on disk

Export:
  --format FMT         html, md or json (default: html)
  --out DIR            Output directory (default: .)
  --theme THEME        HTML theme: auto, dark or light
  --no-metadata        Omit the metadata header
  --clipboard          Copy the result to the clipboard instead of writing a file
  --open               Open the exported file

History:
  --limit N            Number of entries to list (default: 20)
  --show ID            Show one entry (ID prefix is enough)
  --diff ID            Diff an entry's result against the current file

Global flags:
  --config PATH        Use a specific config file
  -v, --verbose        Log to stderr instead of ~/.inkwell/inkwell.log
  -q, --quiet          Minimal output
  --json               JSON output

Environment:
  INKWELL_HOME, INKWELL_PROVIDER, INKWELL_MODEL, INKWELL_OLLAMA_URL,
  INKWELL_API_KEY (or OPENAI_API_KEY), INKWELL_BASE_URL, INKWELL_LOCALE,
  INKWELL_RENDER_DELAY_MS

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "inkwell version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s\n", runtime.Version())
}

// Parse splits argv (without the program name) into a command and args.
func Parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)
	if len(remaining) == 0 {
		return CmdHelp, args
	}

	args.Name = strings.ToLower(remaining[0])
	args.Raw = remaining[1:]

	switch args.Name {
	case "generate", "gen", "g":
		return CmdGenerate, args
	case "preview", "view", "p":
		return CmdPreview, args
	case "export":
		return CmdExport, args
	case "history", "log":
		return CmdHistory, args
	case "repl", "edit":
		return CmdRepl, args
	case "config":
		return CmdConfig, args
	case "version", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	default:
		return CmdUnknown, args
	}
}

// parseGlobalFlags extracts global flags from anywhere in args.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	var args Args

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-q" || arg == "--quiet":
			args.Quiet = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "--json":
			args.JSON = true
		case arg == "--config":
			if i+1 < len(argv) {
				i++
				args.ConfigPath = argv[i]
			}
		case strings.HasPrefix(arg, "--config="):
			args.ConfigPath = strings.TrimPrefix(arg, "--config=")
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args
}

// Run parses argv, executes the command and returns the process exit code.
func Run(ctx context.Context, argv []string, term Terminal) int {
	cmd, args := Parse(argv)
	term = term.withDefaults()

	switch cmd {
	case CmdHelp:
		PrintUsage(term.Out)
		return ExitSuccess
	case CmdVersion:
		if args.JSON {
			_ = NewJSONResponse("version", versionData()).Write(term.Out)
			return ExitSuccess
		}
		PrintVersion(term.Out)
		return ExitSuccess
	case CmdUnknown:
		err := NewValidationErrorWithExample("command", args.Name, "unknown command", "inkwell help")
		DisplayError(term.Err, err, false)
		return GetExitCode(err)
	}

	env, err := NewEnv(args, term)
	if err != nil {
		DisplayError(term.Err, err, args.JSON)
		return GetExitCode(err)
	}
	defer env.Close()

	switch cmd {
	case CmdGenerate:
		err = HandleGenerate(ctx, env)
	case CmdPreview:
		err = HandlePreview(ctx, env)
	case CmdExport:
		err = HandleExport(ctx, env)
	case CmdHistory:
		err = HandleHistory(ctx, env)
	case CmdRepl:
		err = HandleRepl(ctx, env)
	case CmdConfig:
		err = HandleConfig(env)
	}
	if err != nil {
		env.Logger.Printf("COMMAND_ERROR | cmd=%s err=%v", cmd, err)
		DisplayError(term.Err, err, args.JSON)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// VersionData is the JSON form of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

func versionData() VersionData {
	return VersionData{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
}
