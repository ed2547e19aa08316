// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/inkwell/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete inkwell configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Provider ProviderConfig `toml:"provider" json:"provider"`
	Local    LocalConfig    `toml:"local" json:"local"`
	Cloud    CloudConfig    `toml:"cloud" json:"cloud"`
	Stream   StreamConfig   `toml:"stream" json:"stream"`
	Prompt   PromptConfig   `toml:"prompt" json:"prompt"`
	Storage  StorageConfig  `toml:"storage" json:"storage"`
	UI       UIConfig       `toml:"ui" json:"ui"`
}

// ProviderConfig selects the token source.
type ProviderConfig struct {
	// Name is "local", "cloud" or "replay".
	Name string `toml:"name" json:"name"`
	// ReplayFile is the recorded markup played back by the replay provider.
	ReplayFile string `toml:"replay_file" json:"replay_file"`
	// ReplayChunk is the number of runes per replayed delta.
	ReplayChunk int `toml:"replay_chunk" json:"replay_chunk"`
}

// LocalConfig contains local Ollama configuration.
type LocalConfig struct {
	OllamaURL string `toml:"ollama_url" json:"ollama_url"`
	Model     string `toml:"model" json:"model"`
}

// CloudConfig contains OpenAI-compatible API configuration.
type CloudConfig struct {
	APIKey  string `toml:"api_key" json:"api_key"`
	BaseURL string `toml:"base_url" json:"base_url"`
	Model   string `toml:"model" json:"model"`
	// API is "responses" or "chat".
	API             string  `toml:"api" json:"api"`
	Temperature     float64 `toml:"temperature" json:"temperature"`
	MaxOutputTokens int     `toml:"max_output_tokens" json:"max_output_tokens"`
	MaxRetries      int     `toml:"max_retries" json:"max_retries"`
}

// StreamConfig tunes how streamed markup is applied to documents.
type StreamConfig struct {
	// RenderDelayMs is the pause after each delta.
	RenderDelayMs int `toml:"render_delay_ms" json:"render_delay_ms"`
	// Locale selects the failure marker language.
	Locale string `toml:"locale" json:"locale"`
	// Checkpoint is "strict" or "lenient".
	Checkpoint string `toml:"checkpoint" json:"checkpoint"`
}

// PromptConfig holds the system prompt passed through to the model.
type PromptConfig struct {
	System string `toml:"system" json:"system"`
}

// StorageConfig configures the generation journal.
type StorageConfig struct {
	// JournalPath is the sqlite file (empty = ~/.inkwell/journal.db).
	JournalPath    string `toml:"journal_path" json:"journal_path"`
	JournalEnabled bool   `toml:"journal_enabled" json:"journal_enabled"`
	// MaxEntries caps the journal; older entries are pruned (0 = unlimited).
	MaxEntries int `toml:"max_entries" json:"max_entries"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme    string `toml:"theme" json:"theme"`
	WordWrap int    `toml:"word_wrap" json:"word_wrap"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// DefaultSystemPrompt asks the model for markup the document model accepts.
const DefaultSystemPrompt = "Respond with HTML using only p, h1-h6, ul, ol, li, blockquote, pre, code, strong, em, u, s, a and br elements. Do not wrap the answer in a code fence."

// Default returns a config populated with defaults.
func Default() *Config {
	return &Config{
		Version: "1",
		Provider: ProviderConfig{
			Name:        "local",
			ReplayChunk: 8,
		},
		Local: LocalConfig{
			OllamaURL: "http://127.0.0.1:11434",
			Model:     "llama3.1:8b",
		},
		Cloud: CloudConfig{
			BaseURL:         "https://api.openai.com/v1",
			Model:           "gpt-4o",
			API:             "responses",
			Temperature:     0.7,
			MaxOutputTokens: 4000,
			MaxRetries:      3,
		},
		Stream: StreamConfig{
			RenderDelayMs: 5,
			Locale:        "en",
			Checkpoint:    "strict",
		},
		Prompt: PromptConfig{
			System: DefaultSystemPrompt,
		},
		Storage: StorageConfig{
			JournalEnabled: true,
			MaxEntries:     500,
		},
		UI: UIConfig{
			Theme:    "auto",
			WordWrap: 80,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the inkwell configuration directory. INKWELL_HOME
// overrides the default ~/.inkwell.
func ConfigDir() (string, error) {
	if dir := os.Getenv("INKWELL_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".inkwell"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// JournalPath returns the effective journal path.
func (c *Config) JournalPath() (string, error) {
	if c.Storage.JournalPath != "" {
		return c.Storage.JournalPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "journal.db"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.inkwell. TOML is tried first, then
// JSON, then built-in defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}
	if path, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file. Files ending in
// .json are decoded as JSON, anything else as TOML. Keys missing from the
// file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// DecodeFile reads a config file over the defaults without applying
// environment overrides or validating. `config set` edits this view.
func DecodeFile(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config %s: %w", path, err)
		}
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOML config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, ValidateErrors{{Field: strings.Join(keys, ", "), Message: "unknown configuration key"}}
	}
	return cfg, nil
}

// SetDefaults fills zero values that have no meaningful zero.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Provider.Name == "" {
		c.Provider.Name = d.Provider.Name
	}
	if c.Provider.ReplayChunk == 0 {
		c.Provider.ReplayChunk = d.Provider.ReplayChunk
	}
	if c.Local.OllamaURL == "" {
		c.Local.OllamaURL = d.Local.OllamaURL
	}
	if c.Local.Model == "" {
		c.Local.Model = d.Local.Model
	}
	if c.Cloud.BaseURL == "" {
		c.Cloud.BaseURL = d.Cloud.BaseURL
	}
	if c.Cloud.Model == "" {
		c.Cloud.Model = d.Cloud.Model
	}
	if c.Cloud.API == "" {
		c.Cloud.API = d.Cloud.API
	}
	if c.Cloud.MaxOutputTokens == 0 {
		c.Cloud.MaxOutputTokens = d.Cloud.MaxOutputTokens
	}
	if c.Cloud.MaxRetries == 0 {
		c.Cloud.MaxRetries = d.Cloud.MaxRetries
	}
	if c.Stream.Locale == "" {
		c.Stream.Locale = d.Stream.Locale
	}
	if c.Stream.Checkpoint == "" {
		c.Stream.Checkpoint = d.Stream.Checkpoint
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveFile writes cfg to path as JSON when path ends in .json and as TOML
// otherwise.
func SaveFile(cfg *Config, path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return SaveJSON(cfg, path)
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# inkwell configuration file\n")
	b.WriteString("# Environment variables INKWELL_* override these values.\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, []byte(b.String()), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration as JSON.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns ValidateErrors listing
// every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Provider.Name {
	case "local", "cloud", "replay":
	default:
		add("provider.name", "must be local, cloud or replay (got %q)", c.Provider.Name)
	}
	if c.Provider.Name == "replay" && c.Provider.ReplayFile == "" {
		add("provider.replay_file", "required when provider.name is replay")
	}
	if c.Provider.ReplayChunk < 0 {
		add("provider.replay_chunk", "must not be negative")
	}

	if err := validateURL(c.Local.OllamaURL); err != nil {
		add("local.ollama_url", "%v", err)
	}
	if err := validateURL(c.Cloud.BaseURL); err != nil {
		add("cloud.base_url", "%v", err)
	}
	switch c.Cloud.API {
	case "responses", "chat":
	default:
		add("cloud.api", "must be responses or chat (got %q)", c.Cloud.API)
	}
	if c.Cloud.Temperature < 0 || c.Cloud.Temperature > 2 {
		add("cloud.temperature", "must be between 0 and 2")
	}
	if c.Cloud.MaxOutputTokens < 0 {
		add("cloud.max_output_tokens", "must not be negative")
	}
	if c.Cloud.MaxRetries < 0 || c.Cloud.MaxRetries > 10 {
		add("cloud.max_retries", "must be between 0 and 10")
	}

	if c.Stream.RenderDelayMs < 0 || c.Stream.RenderDelayMs > 1000 {
		add("stream.render_delay_ms", "must be between 0 and 1000")
	}
	switch c.Stream.Checkpoint {
	case "strict", "lenient":
	default:
		add("stream.checkpoint", "must be strict or lenient (got %q)", c.Stream.Checkpoint)
	}

	if c.Storage.MaxEntries < 0 {
		add("storage.max_entries", "must not be negative")
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "must be auto, dark or light (got %q)", c.UI.Theme)
	}
	if c.UI.WordWrap < 0 {
		add("ui.word_wrap", "must not be negative")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https (got %q)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL has no host")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - INKWELL_PROVIDER: overrides provider.name
//   - INKWELL_MODEL: overrides the model of the selected provider
//   - INKWELL_OLLAMA_URL: overrides local.ollama_url
//   - INKWELL_API_KEY, OPENAI_API_KEY: override cloud.api_key (first wins)
//   - INKWELL_BASE_URL: overrides cloud.base_url
//   - INKWELL_LOCALE: overrides stream.locale
//   - INKWELL_RENDER_DELAY_MS: overrides stream.render_delay_ms
func (c *Config) ApplyEnvOverrides() {
	if name := os.Getenv("INKWELL_PROVIDER"); name != "" {
		c.Provider.Name = strings.ToLower(name)
	}

	if model := os.Getenv("INKWELL_MODEL"); model != "" {
		if c.Provider.Name == "cloud" {
			c.Cloud.Model = model
		} else {
			c.Local.Model = model
		}
	}

	if u := os.Getenv("INKWELL_OLLAMA_URL"); u != "" {
		c.Local.OllamaURL = u
	}

	if key := os.Getenv("INKWELL_API_KEY"); key != "" {
		c.Cloud.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Cloud.APIKey == "" {
		c.Cloud.APIKey = key
	}

	if u := os.Getenv("INKWELL_BASE_URL"); u != "" {
		c.Cloud.BaseURL = u
	}

	if locale := os.Getenv("INKWELL_LOCALE"); locale != "" {
		c.Stream.Locale = locale
	}

	if delay := os.Getenv("INKWELL_RENDER_DELAY_MS"); delay != "" {
		if ms, err := strconv.Atoi(delay); err == nil {
			c.Stream.RenderDelayMs = ms
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value by dot-notation key, e.g. "cloud.model". Keys
// match the TOML names.
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value by dot-notation key. String values are converted to
// the field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if field.Kind() == reflect.Struct {
		return fmt.Errorf("cannot set section %q", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field %q is not a section", strings.Join(parts[:i], "."))
		}
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return v, nil
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tomlName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tomlName(f reflect.StructField) string {
	tag := f.Tag.Get("toml")
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return strings.ToLower(f.Name)
}

func setFieldValue(field reflect.Value, value any) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(n)
			return nil
		case reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(f)
			return nil
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(b)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.New("nil value")
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns every leaf key in dot notation, sorted.
func Keys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := prefix + tomlName(f)
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, name+".")
				continue
			}
			keys = append(keys, name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.Cloud.APIKey != "" {
		safe.Cloud.APIKey = "[REDACTED]"
	}
	return safe
}

// String returns the configuration as TOML with secrets redacted.
func (c *Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c.Redacted()); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig   *Config
	globalConfigMu sync.RWMutex
)

// Global returns the global configuration, loading it on first access.
// A load failure is reported on stderr and defaults are used.
func Global() *Config {
	globalConfigMu.RLock()
	cfg := globalConfig
	globalConfigMu.RUnlock()
	if cfg != nil {
		return cfg
	}

	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	if globalConfig == nil {
		loaded, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			loaded = Default()
		}
		globalConfig = loaded
	}
	return globalConfig
}

// SetGlobal sets the global configuration instance.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the global configuration.
func ResetGlobalForTesting() {
	SetGlobal(nil)
}
