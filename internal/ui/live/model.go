// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/inkwell/internal/document"
	"github.com/jeranaias/inkwell/internal/reconcile"
	"github.com/jeranaias/inkwell/internal/ui/styles"
	"github.com/jeranaias/inkwell/internal/util"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StartedMsg reports that a generation session has started.
type StartedMsg struct {
	ID string
}

// CheckpointMsg reports a replacement in the document.
type CheckpointMsg struct {
	Checkpoint reconcile.Checkpoint
}

// FinishedMsg reports the end of a generation. Err is set when the
// request never started.
type FinishedMsg struct {
	Result reconcile.Result
	Err    error
}

// DocumentMsg swaps the displayed document, e.g. after a file reload.
type DocumentMsg struct {
	Doc *document.Document
	Err error
}

// =============================================================================
// MODEL
// =============================================================================

// Config configures a Model.
type Config struct {
	Theme *styles.Theme
	// Title is shown in the header, usually the document path.
	Title string
	// Provider and Model label the status bar. Empty for plain previews.
	Provider string
	Model    string
	// Prompt is shown under the title while generating.
	Prompt string
	// WordWrap caps the rendered width. Zero follows the terminal.
	WordWrap int
	// AutoQuit exits once the generation finishes.
	AutoQuit bool
	// Cancel is called when the user interrupts a running generation.
	Cancel func()
}

// Model renders a document while a generation writes into it.
type Model struct {
	cfg      Config
	theme    *styles.Theme
	doc      *document.Document
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	wrap     int

	width   int
	height  int
	ready   bool
	version uint64

	generating  bool
	started     time.Time
	sessionID   string
	checkpoints int
	result      *reconcile.Result
	err         error
	quitting    bool
}

// New creates a Model showing doc. Set generating when a generation is
// about to write into doc.
func New(doc *document.Document, cfg Config, generating bool) Model {
	theme := cfg.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	sp := spinner.New()
	sp.Spinner = styles.LineSpinner.Bubble()
	sp.Style = theme.Spinner

	m := Model{
		cfg:        cfg,
		theme:      theme,
		doc:        doc,
		viewport:   viewport.New(80, 20),
		spinner:    sp,
		generating: generating,
		started:    time.Now(),
	}
	return m
}

// Result returns the finished generation, if any.
func (m Model) Result() (reconcile.Result, bool) {
	if m.result == nil {
		return reconcile.Result{}, false
	}
	return *m.result, true
}

// Err returns the last error shown.
func (m Model) Err() error { return m.err }

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	if m.generating {
		return m.spinner.Tick
	}
	return nil
}

// Update handles input, window size, and generation events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StartedMsg:
		m.sessionID = msg.ID
		m.started = time.Now()
		return m, nil

	case CheckpointMsg:
		m.checkpoints = msg.Checkpoint.Seq
		m.refresh(true)
		return m, nil

	case FinishedMsg:
		m.generating = false
		if msg.Err != nil {
			m.err = msg.Err
		} else {
			res := msg.Result
			m.result = &res
			m.err = res.Err
		}
		m.refresh(true)
		if m.cfg.AutoQuit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case DocumentMsg:
		m.err = msg.Err
		if msg.Doc != nil {
			m.doc = msg.Doc
			m.version = 0
			m.refresh(false)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.generating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		if m.generating && m.cfg.Cancel != nil {
			m.cfg.Cancel()
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit
	case "q":
		if !m.generating {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case "g", "home":
		m.viewport.GotoTop()
		return m, nil
	case "G", "end":
		m.viewport.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// =============================================================================
// LAYOUT AND RENDERING
// =============================================================================

const (
	headerHeight = 4
	statusHeight = 1
)

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.viewport.Width = max(width-2, 10)
	m.viewport.Height = max(height-headerHeight-statusHeight-2, 3)

	wrap := m.viewport.Width - 2
	if m.cfg.WordWrap > 0 && m.cfg.WordWrap < wrap {
		wrap = m.cfg.WordWrap
	}
	if wrap != m.wrap || m.renderer == nil {
		m.wrap = wrap
		m.renderer = nil
	}
	m.ready = true
	m.version = 0
	m.refresh(false)
}

// refresh re-renders the document when it changed since the last render.
func (m *Model) refresh(follow bool) {
	if m.doc == nil {
		return
	}
	v := m.doc.Version()
	if m.version != 0 && v == m.version {
		return
	}
	m.version = v
	m.viewport.SetContent(m.render())
	if follow && m.generating {
		m.viewport.GotoBottom()
	}
}

func (m *Model) render() string {
	md := m.doc.Markdown()
	if m.renderer == nil {
		wrap := m.wrap
		if wrap <= 0 {
			wrap = 80
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.theme.GlamourStyle()),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return md
		}
		m.renderer = r
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

// View renders the header, document and status bar.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header(),
		m.theme.Document.Width(m.viewport.Width).Render(m.viewport.View()),
		m.statusBar(),
	)
}

func (m Model) header() string {
	width := max(m.width-4, 10)
	title := m.theme.HeaderTitle.Render(util.TruncateWidth(m.cfg.Title, width))
	var meta string
	if m.cfg.Prompt != "" {
		meta = m.theme.HeaderMeta.Render(util.TruncateWidth(util.SingleLine(m.cfg.Prompt), width))
	}
	return m.theme.Header.Width(max(m.width-2, 10)).Render(lipgloss.JoinVertical(lipgloss.Left, title, meta))
}

func (m Model) statusBar() string {
	var parts []string
	if m.cfg.Provider != "" {
		label := m.cfg.Provider
		if m.cfg.Model != "" {
			label += "/" + m.cfg.Model
		}
		parts = append(parts, m.theme.ProviderStyle(m.cfg.Provider).Render(label))
	}

	switch {
	case m.generating:
		elapsed := time.Since(m.started).Round(100 * time.Millisecond)
		parts = append(parts, m.spinner.View()+" "+
			m.theme.StreamInfo.Render(fmt.Sprintf("generating %s, %d checkpoints", elapsed, m.checkpoints)))
	case m.result != nil:
		parts = append(parts, styles.RenderStatus(m.result.Status.String())+" "+
			m.theme.StreamInfo.Render(fmt.Sprintf("%d checkpoints in %s",
				m.result.Checkpoints, m.result.Duration.Round(time.Millisecond))))
	}
	if m.err != nil {
		parts = append(parts, m.theme.ErrorTitle.Render(util.TruncateWidth(m.err.Error(), 60)))
	}

	keys := "q quit"
	if m.generating {
		keys = "esc cancel"
	}
	parts = append(parts, m.theme.ShortcutKey.Render(keys))

	return m.theme.StatusBar.Width(max(m.width, 10)).Render(strings.Join(parts, "  "))
}
