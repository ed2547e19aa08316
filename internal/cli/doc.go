// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the inkwell command line.
//
// Run parses the global flags, builds an Env (configuration, logger,
// theme, lazily opened journal) and dispatches to one handler per command:
//
//   - generate: stream a model response into an HTML file
//   - preview: render a file in the terminal, optionally watching it
//   - export: write a standalone page, Markdown or JSON
//   - history: list and diff recorded generations
//   - repl: prompt-by-prompt generation with undo
//   - config: show and edit the configuration file
//
// Handlers return errors; Run maps them to exit codes with GetExitCode and
// prints them with DisplayError, as JSON when --json is set.
package cli
