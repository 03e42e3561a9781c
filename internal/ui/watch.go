package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	constants "sysmon/config"
	"sysmon/internal/metrics"
	"sysmon/internal/publisher"
)

type eventMsg publisher.Event

type streamClosedMsg struct{}

type watchKeys struct {
	Quit key.Binding
	Up   key.Binding
	Down key.Binding
}

var defaultWatchKeys = watchKeys{
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
	Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
}

// WatchModel is the live view fed by publisher events.
type WatchModel struct {
	events   <-chan publisher.Event
	keys     watchKeys
	spinner  spinner.Model
	viewport viewport.Model
	ready    bool

	snapshot *metrics.Snapshot
	lastErr  string
	closed   bool
	now      func() time.Time
}

// NewWatchModel creates a model that renders every event from events.
func NewWatchModel(events <-chan publisher.Event) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = PrimaryStyle
	return WatchModel{
		events:   events,
		keys:     defaultWatchKeys,
		spinner:  s,
		viewport: viewport.New(DefaultWidth+4, 30),
		now:      time.Now,
	}
}

func waitForEvent(events <-chan publisher.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 2
		m.ready = true
		m.refresh()
	case eventMsg:
		switch msg.Name {
		case constants.EVENT_SYSTEM_UPDATE:
			m.snapshot = msg.Snapshot
			m.lastErr = ""
		case constants.EVENT_BACKEND_ERROR:
			m.lastErr = msg.Message
		}
		m.refresh()
		return m, waitForEvent(m.events)
	case streamClosedMsg:
		m.closed = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.snapshot != nil {
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

func (m *WatchModel) refresh() {
	if m.snapshot == nil {
		return
	}
	m.viewport.SetContent(RenderSnapshot(m.snapshot, m.now()))
}

// Snapshot returns the last snapshot received.
func (m WatchModel) Snapshot() *metrics.Snapshot { return m.snapshot }

// LastError returns the last backend error message, cleared by the next
// successful update.
func (m WatchModel) LastError() string { return m.lastErr }

func (m WatchModel) View() string {
	if m.snapshot == nil {
		return "\n  " + m.spinner.View() + " " + WhiteStyle.Render("Waiting for the first sample...") + "\n"
	}

	footer := MutedStyle.Render("  " + m.keys.Quit.Help().Key + " " + m.keys.Quit.Help().Desc +
		" • " + m.keys.Up.Help().Key + "/" + m.keys.Down.Help().Key + " scroll")
	if m.lastErr != "" {
		footer = RenderStatus("error", m.lastErr) + "\n" + footer
	}
	return m.viewport.View() + "\n" + footer
}
