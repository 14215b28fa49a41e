package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/img-updater/internal/syncengine"
)

// Run shows the progress view until the session finishes.
func Run(session Controller, events <-chan syncengine.Event) error {
	program := tea.NewProgram(NewModel(session, events))

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("progress view failed: %w", err)
	}

	return nil
}
