package channelctl

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/justapithecus/channeld/metrics"
)

func TestUpdateAppliesSnapshot(t *testing.T) {
	m := New("127.0.0.1:7580")

	updated, _ := m.Update(snapshotMsg(metrics.Snapshot{
		ChannelID:             "ch-1",
		SessionsAuthenticated: 3,
	}))
	model := updated.(Model)

	if model.snap.SessionsAuthenticated != 3 {
		t.Errorf("SessionsAuthenticated = %d, want 3", model.snap.SessionsAuthenticated)
	}
	if model.fetchErr != nil {
		t.Errorf("fetchErr = %v, want nil", model.fetchErr)
	}
}

func TestUpdateRecordsFetchError(t *testing.T) {
	m := New("127.0.0.1:7580")

	updated, _ := m.Update(errMsg{errors.New("connection refused")})
	model := updated.(Model)

	if model.fetchErr == nil {
		t.Fatal("expected fetchErr to be set")
	}
}

func TestUpdateQuitsOnQKey(t *testing.T) {
	m := New("127.0.0.1:7580")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	model := updated.(Model)

	if !model.quitting {
		t.Error("expected quitting = true after 'q'")
	}
	if cmd == nil {
		t.Error("expected a tea.Quit command")
	}
}

func TestViewRendersSnapshotFields(t *testing.T) {
	m := New("127.0.0.1:7580")
	updated, _ := m.Update(snapshotMsg(metrics.Snapshot{ChannelID: "ch-1", WorldID: "world-1"}))
	model := updated.(Model)

	out := model.View()
	if out == "" {
		t.Fatal("expected non-empty view output")
	}
	if !strings.Contains(out, "ch-1") {
		t.Errorf("view output does not show channel id ch-1:\n%s", out)
	}
}

func TestViewIsEmptyWhenQuitting(t *testing.T) {
	m := New("127.0.0.1:7580")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	model := updated.(Model)

	if model.View() != "" {
		t.Error("expected empty view after quitting")
	}
}
