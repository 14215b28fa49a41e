package tui

import "github.com/charmbracelet/lipgloss"

// Layout.
const (
	minProgressWidth = 20
	maxProgressWidth = 100
	progressMargin   = 10
	activityEntries  = 5
)

//nolint:gochecknoglobals // Shared lipgloss styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2) //nolint:mnd // Box padding

	fileItemCompleteStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42"))

	fileItemSkippedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	fileItemErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196"))
)
