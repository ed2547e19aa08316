// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style

	// Document pane
	Document      lipgloss.Style
	DocumentFocus lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	ProviderName lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// Streaming
	Spinner    lipgloss.Style
	StreamInfo lipgloss.Style

	// Diff lines
	DiffAdded   lipgloss.Style
	DiffRemoved lipgloss.Style
	DiffHunk    lipgloss.Style
	DiffContext lipgloss.Style

	// Journal listing
	JournalID     lipgloss.Style
	JournalPrompt lipgloss.Style
	JournalMeta   lipgloss.Style

	// Errors
	ErrorBox     lipgloss.Style
	ErrorTitle   lipgloss.Style
	ErrorMessage lipgloss.Style
}

// NewTheme creates a theme for the detected terminal background.
func NewTheme() *Theme {
	return NewThemeFor("auto")
}

// NewThemeFor creates a theme for a "light", "dark" or "auto" preference.
// A fixed preference overrides background detection for every adaptive
// color in the process.
func NewThemeFor(preference string) *Theme {
	profile := termenv.ColorProfile()
	isDark := termenv.HasDarkBackground()
	switch preference {
	case "dark":
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case "light":
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	}

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

// GlamourStyle is the glamour style name matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.HeaderMeta = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)

	t.Document = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.DocumentFocus = t.Document.BorderForeground(Purple)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.ProviderName = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().Foreground(Purple)
	t.StreamInfo = lipgloss.NewStyle().Foreground(TextMuted)

	t.DiffAdded = lipgloss.NewStyle().Foreground(Emerald)
	t.DiffRemoved = lipgloss.NewStyle().Foreground(Rose)
	t.DiffHunk = lipgloss.NewStyle().Foreground(Cyan).Faint(true)
	t.DiffContext = lipgloss.NewStyle().Foreground(TextSecondary)

	t.JournalID = lipgloss.NewStyle().Foreground(Purple)
	t.JournalPrompt = lipgloss.NewStyle().Foreground(TextPrimary)
	t.JournalMeta = lipgloss.NewStyle().Foreground(TextMuted)

	t.ErrorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)
	t.ErrorTitle = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.ErrorMessage = lipgloss.NewStyle().Foreground(TextPrimary)
}

// ProviderStyle colors a provider name: local is green, cloud amber.
func (t *Theme) ProviderStyle(name string) lipgloss.Style {
	switch name {
	case "cloud":
		return t.ProviderName.Foreground(Amber)
	case "replay":
		return t.ProviderName.Foreground(Purple)
	default:
		return t.ProviderName
	}
}

// =============================================================================
// SPINNERS
// =============================================================================

// SpinnerConfig describes a frame animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// LineSpinner is an ASCII line rotation.
var LineSpinner = SpinnerConfig{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    10,
}

// DotsSpinner is a three-dot animation.
var DotsSpinner = SpinnerConfig{
	Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
	FPS:    6,
}

// Duration returns the duration of each frame.
func (s SpinnerConfig) Duration() time.Duration {
	if s.FPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(s.FPS)
}

// Bubble converts the config for use with the bubbles spinner.
func (s SpinnerConfig) Bubble() spinner.Spinner {
	return spinner.Spinner{Frames: s.Frames, FPS: s.Duration()}
}
