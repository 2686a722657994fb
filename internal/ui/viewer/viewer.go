// Package viewer is a terminal pager that highlights fluff in the lines on
// screen and re-highlights as the reader scrolls, the file changes or the
// settings change.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/zjrosen/defluff/internal/cachemanager"
	"github.com/zjrosen/defluff/internal/config"
	"github.com/zjrosen/defluff/internal/engine"
	"github.com/zjrosen/defluff/internal/keys"
	"github.com/zjrosen/defluff/internal/log"
	"github.com/zjrosen/defluff/internal/render"
	"github.com/zjrosen/defluff/internal/scan"
	"github.com/zjrosen/defluff/internal/structure"
	"github.com/zjrosen/defluff/internal/ui/styles"
	"github.com/zjrosen/defluff/internal/watcher"
)

// Messages.
type (
	// DocLoadedMsg carries a fresh copy of the document.
	DocLoadedMsg struct {
		Text string
		Err  error
	}

	// SettingsLoadedMsg carries settings re-read from the config file.
	SettingsLoadedMsg struct {
		Settings config.Settings
		Err      error
	}

	// FileChangedMsg wraps a watcher notification.
	FileChangedMsg watcher.Change

	savedMsg struct{ err error }
)

// Options configures a Model.
type Options struct {
	Path       string
	ConfigPath string // empty disables persisting toggles and reloading settings
	Text       string
	Engine     *engine.Engine
	Documents  *structure.Cache
	Changes    <-chan watcher.Change // may be nil
	Renderer   *lipgloss.Renderer    // nil uses the default renderer

	// Reload re-reads the settings. Nil reads ConfigPath with config.LoadFile.
	Reload func() (config.Settings, error)
}

// Model is the bubbletea model of the viewer.
type Model struct {
	path       string
	configPath string
	engine     *engine.Engine
	docs       *structure.Cache
	changes    <-chan watcher.Change
	renderer   *lipgloss.Renderer
	reload     func() (config.Settings, error)

	keys keys.KeyMap
	help help.Model

	text       string
	lineStarts []int
	top        int
	width      int
	height     int

	spans     []scan.Span
	region    scan.Region
	docDirty  bool
	viewDirty bool

	status string
	err    error
}

// New returns a viewer over opts.Text.
func New(opts Options) Model {
	m := Model{
		path:       opts.Path,
		configPath: opts.ConfigPath,
		engine:     opts.Engine,
		docs:       opts.Documents,
		changes:    opts.Changes,
		renderer:   opts.Renderer,
		reload:     opts.Reload,
		keys:       keys.DefaultKeyMap(),
		help:       help.New(),
		width:      80,
		height:     24,
	}
	if m.reload == nil && m.configPath != "" {
		path := m.configPath
		m.reload = func() (config.Settings, error) { return config.LoadFile(path) }
	}
	if m.docs == nil {
		m.docs = structure.NewCache(structure.NewParser(), cachemanager.DefaultExpiration)
	}
	m.setText(opts.Text)
	m.refresh()
	return m
}

// Init starts listening for file changes.
func (m Model) Init() tea.Cmd {
	return m.waitForChange()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.clampTop()
		m.viewDirty = true

	case tea.KeyMsg:
		return m.handleKey(msg)

	case DocLoadedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			log.ErrorErr(log.CatUI, "Failed to reload document", msg.Err, "path", m.path)
			break
		}
		m.err = nil
		m.setText(msg.Text)
		m.clampTop()

	case SettingsLoadedMsg:
		if errors.Is(msg.Err, config.ErrReadConfig) {
			// Keep the current settings while the file is unreadable.
			m.err = msg.Err
			break
		}
		if msg.Err != nil {
			log.Warn(log.CatUI, "settings reloaded with errors", "error", msg.Err)
		}
		if err := m.engine.Apply(msg.Settings); err != nil {
			m.err = err
			break
		}
		m.err = nil
		m.status = "settings reloaded"

	case FileChangedMsg:
		change := watcher.Change(msg)
		var cmds []tea.Cmd
		if change.Has(m.path) {
			cmds = append(cmds, loadDoc(m.path))
		}
		if m.configPath != "" && change.Has(m.configPath) {
			cmds = append(cmds, m.loadSettings())
		}
		cmds = append(cmds, m.waitForChange())
		m.refresh()
		return m, tea.Batch(cmds...)

	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
			log.ErrorErr(log.CatUI, "Failed to save settings", msg.err, "path", m.configPath)
		}
	}

	m.refresh()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.scroll(-1)
	case key.Matches(msg, m.keys.Down):
		m.scroll(1)
	case key.Matches(msg, m.keys.PageUp):
		m.scroll(-m.bodyHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.scroll(m.bodyHeight())
	case key.Matches(msg, m.keys.Top):
		m.scroll(-len(m.lineStarts))
	case key.Matches(msg, m.keys.Bottom):
		m.scroll(len(m.lineStarts))
	case key.Matches(msg, m.keys.Toggle):
		s := m.engine.Toggle()
		m.status = "highlighting off"
		if s.Enabled {
			m.status = "highlighting on"
		}
		cmd = m.save(s, config.FieldEnabled)
	case key.Matches(msg, m.keys.Style):
		s := m.engine.Settings()
		s.HighlightStyle = nextStyle(s.HighlightStyle)
		if err := m.engine.Apply(s); err != nil {
			m.err = err
			break
		}
		m.status = "style " + string(s.HighlightStyle)
		cmd = m.save(s, config.FieldHighlightStyle)
	case key.Matches(msg, m.keys.Reload):
		m.status = "reloading"
		cmd = tea.Batch(loadDoc(m.path), m.loadSettings())
	}

	m.refresh()
	return m, cmd
}

// View renders the visible lines, a status bar and help.
func (m Model) View() string {
	var b strings.Builder

	body := m.renderBody()
	b.WriteString(body)

	b.WriteString("\n")
	b.WriteString(m.statusBar())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// Spans returns the spans drawn in the last refresh, in document offsets.
func (m Model) Spans() []scan.Span {
	return slices.Clone(m.spans)
}

// Region returns the byte range currently on screen.
func (m Model) Region() scan.Region {
	return m.region
}

// Top returns the index of the first visible line.
func (m Model) Top() int {
	return m.top
}

func (m *Model) setText(text string) {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	m.text = text
	m.lineStarts = starts
	m.docDirty = true
}

func (m *Model) scroll(delta int) {
	m.top += delta
	m.clampTop()
	m.viewDirty = true
}

func (m *Model) clampTop() {
	maxTop := max(len(m.lineStarts)-m.bodyHeight(), 0)
	m.top = min(max(m.top, 0), maxTop)
}

// bodyHeight is the number of document lines on screen.
func (m Model) bodyHeight() int {
	helpLines := 1
	if m.help.ShowAll {
		helpLines = len(m.keys.FullHelp()[0])
	}
	return max(m.height-1-helpLines, 1)
}

// visibleRegion maps the scroll window onto document bytes.
func (m Model) visibleRegion() scan.Region {
	first := min(m.top, len(m.lineStarts)-1)
	last := first + m.bodyHeight()
	end := len(m.text)
	if last < len(m.lineStarts) {
		end = m.lineStarts[last] - 1 // drop the newline ending the last visible line
	}
	return scan.Region{Start: m.lineStarts[first], End: max(end, m.lineStarts[first])}
}

// refresh re-highlights when the document, the window or the settings changed.
func (m *Model) refresh() {
	region := m.visibleRegion()
	u := engine.Update{DocChanged: m.docDirty, ViewportChanged: m.viewDirty || region != m.region}
	if !m.engine.NeedsUpdate(u) {
		return
	}
	doc := m.docs.Document(context.Background(), m.text)
	m.spans = m.engine.Highlight(context.Background(), m.text, []scan.Region{region}, doc)
	m.region = region
	m.docDirty, m.viewDirty = false, false
}

func (m Model) renderBody() string {
	start, end := min(m.region.Start, len(m.text)), min(m.region.End, len(m.text))
	visible := m.text[start:end]
	local := make([]scan.Span, 0, len(m.spans))
	for _, s := range m.spans {
		local = append(local, scan.Span{Start: s.Start - start, End: s.End - start, Category: s.Category})
	}
	highlighted := render.NewANSI(m.renderer, m.engine.Settings().HighlightStyle).Render(visible, local)

	lines := strings.Split(highlighted, "\n")
	for len(lines) < m.bodyHeight() {
		lines = append(lines, "~")
	}
	for i, line := range lines {
		lines[i] = truncate.StringWithTail(line, uint(max(m.width, 1)), "…")
	}
	return strings.Join(lines, "\n")
}

func (m Model) statusBar() string {
	s := m.engine.Settings()
	badge := styles.OnBadgeStyle.Render("ON")
	if !s.Enabled {
		badge = styles.OffBadgeStyle.Render("OFF")
	}

	name := m.path
	if name == "" {
		name = "[stdin]"
	}
	left := fmt.Sprintf("%s %s  %d/%d  %d highlights  %s",
		badge, name, m.top+1, len(m.lineStarts), len(m.spans), s.HighlightStyle)

	if m.err != nil {
		left += "  " + styles.ErrorStyle.Render(m.err.Error())
	} else if m.status != "" {
		left += "  " + styles.HelpStyle.Render(m.status)
	}
	return styles.StatusBarStyle.Render(left)
}

func (m Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	return func() tea.Msg {
		change, ok := <-ch
		if !ok {
			return nil
		}
		return FileChangedMsg(change)
	}
}

// save writes only the changed field, so settings given on the command line
// never end up in the file.
func (m Model) save(s config.Settings, field config.Field) tea.Cmd {
	if m.configPath == "" {
		return nil
	}
	path := m.configPath
	return func() tea.Msg {
		return savedMsg{err: config.Save(path, s, field)}
	}
}

func loadDoc(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return DocLoadedMsg{Err: fmt.Errorf("reading %s: %w", path, err)}
		}
		return DocLoadedMsg{Text: string(data)}
	}
}

func (m Model) loadSettings() tea.Cmd {
	if m.reload == nil {
		return nil
	}
	reload := m.reload
	return func() tea.Msg {
		s, err := reload()
		return SettingsLoadedMsg{Settings: s, Err: err}
	}
}

func nextStyle(cur config.HighlightStyle) config.HighlightStyle {
	i := slices.Index(config.HighlightStyles, cur)
	return config.HighlightStyles[(i+1)%len(config.HighlightStyles)]
}
