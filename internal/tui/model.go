// Package tui renders a running sync session, either as a bubbletea progress view or
// as plain progress lines when no terminal is attached.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joe/img-updater/internal/syncengine"
)

// Controller is the part of a session the view drives.
type Controller interface {
	Cancel()
	Summary() syncengine.Summary
}

// Model is the bubbletea model for a running session.
type Model struct {
	session Controller
	events  <-chan syncengine.Event

	spinner  spinner.Model
	progress progress.Model
	width    int

	folder    string
	fileCount int
	done      int
	lastFile  string
	activity  []string
	failures  []string

	transferred int
	skipped     int
	missing     int

	cancelling bool
	finishing  bool
	finished   bool
	summary    syncengine.Summary
}

// NewModel creates a model that consumes events from session.
func NewModel(session Controller, events <-chan syncengine.Event) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		session:  session,
		events:   events,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

// Init starts the spinner and begins listening for events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, ListenCmd(m.events))
}

// Finished reports whether the session has finished.
func (m Model) Finished() bool {
	return m.finished
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.finished {
				return m, tea.Quit
			}

			if !m.cancelling {
				m.cancelling = true
				m.session.Cancel()
			}
		}

		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(max(msg.Width-progressMargin, minProgressWidth), maxProgressWidth)

		return m, nil

	case EventMsg:
		m = m.apply(msg.Event)
		if m.finished {
			return m, tea.Sequence(tea.SetWindowTitle(m.title()), tea.Quit)
		}

		return m, tea.Batch(ListenCmd(m.events), tea.SetWindowTitle(m.title()))

	case StreamClosedMsg:
		m.finished = true

		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case progress.FrameMsg:
		updated, cmd := m.progress.Update(msg)
		if bar, ok := updated.(progress.Model); ok {
			m.progress = bar
		}

		return m, cmd
	}

	return m, nil
}

func (m Model) apply(event syncengine.Event) Model {
	switch event := event.(type) {
	case syncengine.CollectingFiles:
		m.folder = event.Type
		m.fileCount = 0
		m.done = 0
	case syncengine.FileCount:
		m.fileCount = event.FileCount
	case syncengine.File:
		m.done = event.Number
		m.lastFile = event.Name
		m.activity = appendBounded(m.activity, describeFile(event), activityEntries)

		switch {
		case event.Skipped:
			m.skipped++
		case event.Existed:
			m.transferred++
		default:
			m.missing++
		}
	case syncengine.FolderFailed:
		m.failures = append(m.failures, fmt.Sprintf("%s: %v", event.Folder, event.Err))
	case syncengine.Finishing:
		m.finishing = true
	case syncengine.Finished:
		m.finished = true
		m.summary = m.session.Summary()
	}

	return m
}

func (m Model) percent() float64 {
	if m.fileCount == 0 {
		return 0
	}

	return float64(m.done) / float64(m.fileCount)
}

// title mirrors the progress in the terminal window title.
func (m Model) title() string {
	switch {
	case m.finished:
		return "img-updater: done"
	case m.fileCount > 0:
		return fmt.Sprintf("img-updater: %s %d/%d", m.folder, m.done, m.fileCount)
	default:
		return "img-updater"
	}
}

// View renders the TUI
func (m Model) View() string {
	var builder strings.Builder

	builder.WriteString(titleStyle.Render("Image updater"))
	builder.WriteString("\n")

	if m.finished {
		builder.WriteString(m.renderSummary())

		return boxStyle.Render(builder.String())
	}

	builder.WriteString(m.spinner.View())
	builder.WriteString(" ")
	builder.WriteString(m.status())
	builder.WriteString("\n\n")
	builder.WriteString(m.progress.ViewAs(m.percent()))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf("downloaded %d · up to date %d · gone %d",
		m.transferred, m.skipped, m.missing)))
	builder.WriteString("\n")

	if m.lastFile != "" {
		builder.WriteString(dimStyle.Render(filepath.Base(m.lastFile)))
		builder.WriteString("\n")
	}

	if len(m.activity) > 0 {
		builder.WriteString("\n")
		builder.WriteString(labelStyle.Render("Recent"))
		builder.WriteString("\n")

		for _, line := range m.activity {
			builder.WriteString("  ")
			builder.WriteString(line)
			builder.WriteString("\n")
		}
	}

	for _, failure := range m.failures {
		builder.WriteString(errorStyle.Render("✗ " + failure))
		builder.WriteString("\n")
	}

	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render("q / ctrl+c: stop after the current transfers"))

	return boxStyle.Render(builder.String())
}

func (m Model) status() string {
	switch {
	case m.cancelling && !m.finishing:
		return warningStyle.Render("Stopping...")
	case m.cancelling:
		return warningStyle.Render("Stopping, waiting for transfers in flight...")
	case m.finishing:
		return "Finishing..."
	case m.folder == "":
		return "Starting..."
	case m.fileCount == 0 && m.done == 0:
		return fmt.Sprintf("Collecting files for %s...", labelStyle.Render(m.folder))
	default:
		return fmt.Sprintf("Updating %s: %d / %d", labelStyle.Render(m.folder), m.done, m.fileCount)
	}
}

func (m Model) renderSummary() string {
	heading := successStyle.Render("✓ Update complete")
	if m.cancelling {
		heading = warningStyle.Render("Update stopped")
	}

	lines := []string{
		heading,
		"",
		fmt.Sprintf("%s %d", labelStyle.Render("Downloaded:"), m.summary.Transferred),
		fmt.Sprintf("%s %d", labelStyle.Render("Up to date:"), m.summary.Skipped),
		fmt.Sprintf("%s %d", labelStyle.Render("Gone from remote:"), m.summary.Missing),
		fmt.Sprintf("%s %s in %s", labelStyle.Render("Transferred:"),
			FormatBytes(m.summary.Bytes), FormatDuration(m.summary.Elapsed)),
	}

	if m.summary.Failed > 0 || m.summary.FoldersFailed > 0 {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("Failed: %d files, %d folders (see log)",
			m.summary.Failed, m.summary.FoldersFailed)))
	}

	return strings.Join(lines, "\n")
}

func describeFile(event syncengine.File) string {
	switch {
	case event.Skipped:
		return fileItemSkippedStyle.Render("= " + event.Name)
	case event.Existed:
		return fileItemCompleteStyle.Render("✓ " + event.Name)
	default:
		return fileItemErrorStyle.Render("✗ " + event.Name)
	}
}

func appendBounded(lines []string, line string, limit int) []string {
	lines = append(lines, line)
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}

	return lines
}
