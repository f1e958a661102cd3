package channelctl

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justapithecus/channeld/metrics"
)

// pollInterval is how often the TUI re-fetches the debug endpoint.
const pollInterval = time.Second

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Model is the Bubble Tea model polling a channeld debug endpoint.
type Model struct {
	client   *http.Client
	addr     string
	snap     metrics.Snapshot
	fetchErr error
	quitting bool
}

// New builds a Model polling addr (a "host:port" serving /metrics.json).
func New(addr string) Model {
	return Model{client: &http.Client{Timeout: 2 * time.Second}, addr: addr}
}

type snapshotMsg metrics.Snapshot
type errMsg struct{ err error }
type tickMsg time.Time

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) fetch() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.Get(fmt.Sprintf("http://%s/metrics.json", m.addr))
		if err != nil {
			return errMsg{err}
		}
		defer resp.Body.Close()

		var snap metrics.Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return errMsg{err}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	case tickMsg:
		return m, tea.Batch(m.fetch(), tick())
	case snapshotMsg:
		m.snap = metrics.Snapshot(msg)
		m.fetchErr = nil
	case errMsg:
		m.fetchErr = msg.err
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b string
	b += titleStyle.Render(fmt.Sprintf("channeld — %s / %s (%s)", m.snap.ChannelID, m.snap.WorldID, m.addr))
	b += "\n\n"

	if m.fetchErr != nil {
		b += errorStyle.Render(fmt.Sprintf("fetch failed: %v", m.fetchErr))
		b += "\n\n"
	}

	sessionBoxes := []string{
		renderStatBox("Accepted", m.snap.SessionsAccepted, highlightColor),
		renderStatBox("Authenticated", m.snap.SessionsAuthenticated, successColor),
		renderStatBox("Disconnected", m.snap.SessionsDisconnected, mutedColor),
		renderStatBox("Handshake Fail", m.snap.HandshakeFailures, errorColor),
	}
	b += lipgloss.JoinHorizontal(lipgloss.Top, sessionBoxes...)
	b += "\n\n"

	worldBoxes := []string{
		renderStatBox("Map Joins", m.snap.MapJoins, highlightColor),
		renderStatBox("Map Leaves", m.snap.MapLeaves, mutedColor),
		renderStatBox("Monsters Killed", m.snap.MonstersKilled, warningColor),
		renderStatBox("Reactors", m.snap.ReactorsTriggered, successColor),
	}
	b += lipgloss.JoinHorizontal(lipgloss.Top, worldBoxes...)
	b += "\n\n"

	flushBoxes := []string{
		renderStatBox("Flushes OK", m.snap.FlushesSucceeded, successColor),
		renderStatBox("Flushes Failed", m.snap.FlushesFailed, errorColor),
		renderStatBox("Worker Q Max", m.snap.WorkerQueueDepthMax, highlightColor),
		renderStatBox("Handoffs", m.snap.CoordinatorHandoffs, mutedColor),
	}
	b += lipgloss.JoinHorizontal(lipgloss.Top, flushBoxes...)

	b += "\n" + helpStyle.Render("Press q or Ctrl+C to quit")
	return b
}

// Run starts the TUI against addr and blocks until the user quits.
func Run(addr string) error {
	_, err := tea.NewProgram(New(addr), tea.WithAltScreen()).Run()
	return err
}
