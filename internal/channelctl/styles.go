// Package channelctl implements the read-only Bubble Tea introspection
// TUI (SPEC_FULL.md §4.16) that polls a running channeld's debug
// endpoint and renders live worker/room/flush metrics.
package channelctl

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#3B82F6")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	statBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlightColor).
			Padding(0, 2).
			Width(20).
			Align(lipgloss.Center)

	statLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Align(lipgloss.Center)

	statValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Align(lipgloss.Center)
)

func renderStatBox(label string, value int64, color lipgloss.Color) string {
	box := statBoxStyle.BorderForeground(color)
	valueStr := statValueStyle.Foreground(color).Render(strconv.FormatInt(value, 10))
	labelStr := statLabelStyle.Render(label)
	return box.Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}
