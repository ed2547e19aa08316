// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/inkwell/internal/config"
	"github.com/jeranaias/inkwell/internal/document"
	"github.com/jeranaias/inkwell/internal/ollama"
	"github.com/jeranaias/inkwell/internal/provider"
	"github.com/jeranaias/inkwell/internal/reconcile"
	"github.com/jeranaias/inkwell/internal/storage"
)

const replayMarkup = "<h1>Title</h1><p>Body text</p>"

// isolate points the config directory at a temp dir and clears the
// environment overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("INKWELL_HOME", dir)
	t.Setenv("NO_COLOR", "1")
	for _, name := range []string{
		"INKWELL_PROVIDER", "INKWELL_MODEL", "INKWELL_OLLAMA_URL", "INKWELL_API_KEY",
		"OPENAI_API_KEY", "INKWELL_BASE_URL", "INKWELL_LOCALE",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("INKWELL_RENDER_DELAY_MS", "0")
	return dir
}

type runResult struct {
	code int
	out  string
	err  string
}

func run(t *testing.T, stdin string, argv ...string) runResult {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Run(context.Background(), argv, Terminal{
		In:  strings.NewReader(stdin),
		Out: &out,
		Err: &errOut,
	})
	return runResult{code: code, out: out.String(), err: errOut.String()}
}

func writeReplay(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "recorded.html")
	require.NoError(t, os.WriteFile(path, []byte(replayMarkup), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// =============================================================================
// PARSING
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		argv []string
		cmd  Command
		args Args
	}{
		{nil, CmdHelp, Args{}},
		{[]string{"gen", "a.html", "hi"}, CmdGenerate, Args{Name: "gen", Raw: []string{"a.html", "hi"}}},
		{[]string{"--json", "view", "a.html"}, CmdPreview, Args{JSON: true, Name: "view", Raw: []string{"a.html"}}},
		{[]string{"export", "a.html", "-q"}, CmdExport, Args{Quiet: true, Name: "export", Raw: []string{"a.html"}}},
		{[]string{"log", "--config", "c.toml"}, CmdHistory, Args{ConfigPath: "c.toml", Name: "log", Raw: []string{}}},
		{[]string{"--config=c.toml", "-v", "edit", "a.html"}, CmdRepl, Args{ConfigPath: "c.toml", Verbose: true, Name: "edit", Raw: []string{"a.html"}}},
		{[]string{"config"}, CmdConfig, Args{Name: "config", Raw: []string{}}},
		{[]string{"--version"}, CmdVersion, Args{Name: "--version", Raw: []string{}}},
		{[]string{"frobnicate"}, CmdUnknown, Args{Name: "frobnicate", Raw: []string{}}},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.argv, " "), func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.args.Name, args.Name)
			assert.Equal(t, tt.args.JSON, args.JSON)
			assert.Equal(t, tt.args.Quiet, args.Quiet)
			assert.Equal(t, tt.args.Verbose, args.Verbose)
			assert.Equal(t, tt.args.ConfigPath, args.ConfigPath)
			if tt.args.Raw != nil {
				assert.ElementsMatch(t, tt.args.Raw, args.Raw)
			}
		})
	}
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"doc.html", "--live", "tighten", "--select", "3:9", "--chunk=4", "-", "--", "--not-a-flag"}, "live")

	assert.True(t, p.Bool("live"))
	assert.Equal(t, "3:9", p.Flag("select"))
	assert.Equal(t, "", p.Flag("live"))
	n, err := p.FlagInt("chunk", 8)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	n, err = p.FlagInt("missing", 8)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	assert.Equal(t, []string{"doc.html", "tighten", "-", "--not-a-flag"}, p.PositionalFrom(0))
	assert.Equal(t, 4, p.PositionalCount())
	assert.Equal(t, "", p.Positional(9))
	assert.Equal(t, "html", p.FlagOrDefault("format", "html"))

	_, err = NewArgParser([]string{"--chunk", "lots"}).FlagInt("chunk", 8)
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		want    document.Range
		wantErr bool
	}{
		{"3:9", document.Range{From: 3, To: 9}, false},
		{"3-9", document.Range{From: 3, To: 9}, false},
		{" 3 , 9 ", document.Range{From: 3, To: 9}, false},
		{"7", document.Range{From: 7, To: 7}, false},
		{"9:3", document.Range{}, true},
		{"a:b", document.Range{}, true},
		{"-1", document.Range{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRange(tt.in)
			if tt.wantErr {
				var ve *ValidationError
				assert.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"on", "YES", "1", "true"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	v, err := ParseBoolString("off")
	require.NoError(t, err)
	assert.False(t, v)
	_, err = ParseBoolString("maybe")
	assert.Error(t, err)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", ErrMissingArgument("FILE", "x"), ExitUsageError},
		{"out of range", fmt.Errorf("select: %w", document.ErrOutOfRange), ExitUsageError},
		{"empty prompt", provider.ErrEmptyPrompt, ExitUsageError},
		{"config", fmt.Errorf("%w: bad", ErrConfig), ExitConfigError},
		{"not found", &NotFoundError{Resource: "document", ID: "a.html"}, ExitNotFoundError},
		{"journal miss", fmt.Errorf("get: %w", storage.ErrNotFound), ExitNotFoundError},
		{"canceled generation", &GenerationError{Result: reconcile.Result{Status: reconcile.StatusCanceled}}, ExitCanceled},
		{"failed generation", &GenerationError{Result: reconcile.Result{Status: reconcile.StatusFailed, Err: errors.New("boom")}}, ExitGeneralError},
		{"context", context.Canceled, ExitCanceled},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, &NotFoundError{Resource: "document", ID: "a.html"}, true)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, false, got["success"])
	assert.Equal(t, "not_found_error", got["error_type"])
	assert.Equal(t, float64(ExitNotFoundError), got["exit_code"])
}

func TestDisplayErrorHint(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, fmt.Errorf("stream: %w", ollama.ErrTimeout), false)
	assert.Contains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), "may still be loading")

	buf.Reset()
	DisplayError(&buf, &GenerationError{Result: reconcile.Result{Status: reconcile.StatusFailed, Err: ollama.ErrModelNotFound}}, false)
	assert.Contains(t, buf.String(), "ollama pull")
	assert.Equal(t, ExitProviderError, GetExitCode(&GenerationError{Result: reconcile.Result{Status: reconcile.StatusFailed, Err: ollama.ErrModelNotFound}}))
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestRunHelpVersionUnknown(t *testing.T) {
	isolate(t)

	r := run(t, "")
	assert.Equal(t, ExitSuccess, r.code)
	assert.Contains(t, r.out, "inkwell generate FILE")

	r = run(t, "", "version", "--json")
	assert.Equal(t, ExitSuccess, r.code)
	var resp struct {
		Data VersionData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.out), &resp))
	assert.Equal(t, Version, resp.Data.Version)

	r = run(t, "", "frobnicate")
	assert.Equal(t, ExitUsageError, r.code)
	assert.Contains(t, r.err, "unknown command")
}

func TestGenerateReplay(t *testing.T) {
	dir := isolate(t)
	replay := writeReplay(t, dir)
	path := filepath.Join(dir, "notes.html")

	r := run(t, "", "generate", path, "write a page", "--replay", replay, "--chunk", "5")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Equal(t, replayMarkup+"\n", readFile(t, path))
	assert.Contains(t, r.out, "completed")
	assert.Contains(t, r.out, "Saved")

	r = run(t, "", "history")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "write a page")
	assert.Contains(t, r.out, "completed")
}

func TestGenerateJSONAndShow(t *testing.T) {
	dir := isolate(t)
	replay := writeReplay(t, dir)
	path := filepath.Join(dir, "notes.html")

	r := run(t, "", "--json", "generate", path, "draft", "--replay", replay, "--diff")
	require.Equal(t, ExitSuccess, r.code, r.err)

	var resp struct {
		Success bool         `json:"success"`
		Data    GenerateData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.out), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "completed", resp.Data.Status)
	assert.Equal(t, string(storage.ModeWhole), resp.Data.Mode)
	assert.True(t, resp.Data.Saved)
	assert.Contains(t, resp.Data.Diff, "+# Title")
	require.NotEmpty(t, resp.Data.ID)

	r = run(t, "", "history", "--show", resp.Data.ID[:8])
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, resp.Data.ID)
	assert.Contains(t, r.out, replayMarkup)

	r = run(t, "", "history", "--show", "ffffffff")
	assert.Equal(t, ExitNotFoundError, r.code)
}

func TestGenerateSelection(t *testing.T) {
	dir := isolate(t)
	replay := filepath.Join(dir, "recorded.html")
	require.NoError(t, os.WriteFile(replay, []byte("<p>new</p>"), 0644))
	path := filepath.Join(dir, "notes.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>old</p><p>keep</p>"), 0644))

	doc, err := storage.LoadDocument(path, document.DefaultSchema())
	require.NoError(t, err)
	first := doc.Root().Content[0].Size()

	r := run(t, "", "-q", "generate", path, "rewrite", "--replay", replay, "--select", fmt.Sprintf("0:%d", first))
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Equal(t, "<p>new</p><p>keep</p>\n", readFile(t, path))
	assert.Empty(t, r.out)
}

func TestGenerateUsageErrors(t *testing.T) {
	dir := isolate(t)
	replay := writeReplay(t, dir)
	path := filepath.Join(dir, "notes.html")

	r := run(t, "", "generate", path, "--replay", replay)
	assert.Equal(t, ExitUsageError, r.code)
	assert.Contains(t, r.err, "prompt")

	r = run(t, "", "generate")
	assert.Equal(t, ExitUsageError, r.code)

	r = run(t, "", "generate", path, "x", "--replay", replay, "--select", "5:900")
	assert.Equal(t, ExitUsageError, r.code)
	assert.NoFileExists(t, path)
}

func TestGeneratePromptFromStdin(t *testing.T) {
	dir := isolate(t)
	replay := writeReplay(t, dir)
	path := filepath.Join(dir, "notes.html")

	r := run(t, "summarize\n", "generate", path, "-", "--replay", replay, "--dry-run")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "dry run")
	assert.NoFileExists(t, path)
}

func TestPreviewAndExport(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "notes.html")
	require.NoError(t, os.WriteFile(path, []byte(replayMarkup), 0644))

	r := run(t, "", "preview", path, "--raw")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Equal(t, "# Title\n\nBody text\n", r.out)

	r = run(t, "", "preview", filepath.Join(dir, "missing.html"))
	assert.Equal(t, ExitNotFoundError, r.code)

	r = run(t, "", "export", path, "--format", "md", "--stdout", "--no-metadata")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Equal(t, "# Title\n\nBody text\n", r.out)

	var copied string
	old := writeClipboard
	writeClipboard = func(text string) error { copied = text; return nil }
	t.Cleanup(func() { writeClipboard = old })

	r = run(t, "", "export", path, "--format", "md", "--clipboard")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, copied, "title: notes.html")
	assert.Contains(t, r.out, "clipboard")

	out := filepath.Join(dir, "site")
	r = run(t, "", "--json", "export", path, "--out", out)
	require.Equal(t, ExitSuccess, r.code, r.err)
	var resp struct {
		Data ExportData `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.out), &resp))
	assert.FileExists(t, resp.Data.Output)
	assert.Greater(t, resp.Data.Bytes, 0)
	assert.Contains(t, readFile(t, resp.Data.Output), "<h1>Title</h1>")

	r = run(t, "", "export", path, "--format", "pdf")
	assert.Equal(t, ExitUsageError, r.code)
}

func TestReplScript(t *testing.T) {
	dir := isolate(t)
	replay := writeReplay(t, dir)
	path := filepath.Join(dir, "notes.html")

	script := strings.Join([]string{
		"/undo",
		"write a page",
		"/html",
		"/bogus",
		"/quit",
		"never reached",
	}, "\n")
	r := run(t, script, "repl", path, "--replay", replay)
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "nothing to undo")
	assert.Contains(t, r.out, replayMarkup)
	assert.Contains(t, r.err, "unknown command")
	assert.Equal(t, replayMarkup+"\n", readFile(t, path))

	j, err := storage.Open(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	defer j.Close()
	n, err := j.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReplUndo(t *testing.T) {
	dir := isolate(t)
	replay := filepath.Join(dir, "recorded.html")
	require.NoError(t, os.WriteFile(replay, []byte("<p>second</p>"), 0644))
	path := filepath.Join(dir, "notes.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>first</p>"), 0644))

	r := run(t, "again\n/diff\n/undo\n", "repl", path, "--replay", replay)
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "+second")
	assert.Contains(t, r.out, "restored previous version")
	assert.Equal(t, "<p>first</p>\n", readFile(t, path))
}

func TestConfigCommands(t *testing.T) {
	dir := isolate(t)
	cfgPath := filepath.Join(dir, "custom.toml")

	r := run(t, "", "--config", cfgPath, "config", "init")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.FileExists(t, cfgPath)

	r = run(t, "", "--config", cfgPath, "config", "init")
	assert.Equal(t, ExitUsageError, r.code)

	r = run(t, "", "--config", cfgPath, "config", "get", "stream.checkpoint")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Equal(t, "strict\n", r.out)

	r = run(t, "", "--config", cfgPath, "config", "set", "stream.checkpoint", "lenient")
	require.Equal(t, ExitSuccess, r.code, r.err)

	r = run(t, "", "--config", cfgPath, "config", "get", "stream.checkpoint")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Equal(t, "lenient\n", r.out)

	r = run(t, "", "--config", cfgPath, "config", "set", "stream.checkpoint", "sloppy")
	assert.Equal(t, ExitConfigError, r.code)

	r = run(t, "", "--config", cfgPath, "config", "get", "no.such.key")
	assert.Equal(t, ExitUsageError, r.code)

	r = run(t, "", "--config", cfgPath, "config", "keys")
	require.Equal(t, ExitSuccess, r.code, r.err)
	assert.Contains(t, r.out, "stream.checkpoint")

	r = run(t, "", "--config", cfgPath, "config", "path")
	assert.Equal(t, cfgPath+"\n", r.out)
}

func TestConfigSetIgnoresEnvironment(t *testing.T) {
	dir := isolate(t)
	cfgPath := filepath.Join(dir, "config.toml")
	t.Setenv("INKWELL_MODEL", "from-env")

	r := run(t, "", "config", "set", "ui.word_wrap", "72")
	require.Equal(t, ExitSuccess, r.code, r.err)

	cfg, err := config.DecodeFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 72, cfg.UI.WordWrap)
	assert.Equal(t, config.Default().Local.Model, cfg.Local.Model)
}

func TestBrokenConfig(t *testing.T) {
	dir := isolate(t)
	cfgPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[stream]\nwhatever = 1\n"), 0644))

	r := run(t, "", "history")
	assert.Equal(t, ExitConfigError, r.code)
	assert.Contains(t, r.err, "unknown configuration key")
}

func TestConfigInitJSON(t *testing.T) {
	dir := isolate(t)
	cfgPath := filepath.Join(dir, "inkwell.json")

	r := run(t, "", "--config", cfgPath, "config", "init")
	require.Equal(t, ExitSuccess, r.code, r.err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(readFile(t, cfgPath)), &decoded))
	assert.Contains(t, decoded, "stream")

	r = run(t, "", "--config", cfgPath, "config", "set", "ui.theme", "dark")
	require.Equal(t, ExitSuccess, r.code, r.err)
	cfg, err := config.DecodeFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "dark", cfg.UI.Theme)
}
