package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/img-updater/internal/syncengine"
)

// EventMsg wraps a syncengine.Event for use as a tea.Msg.
type EventMsg struct {
	Event syncengine.Event
}

// StreamClosedMsg is sent once the session event stream has closed.
type StreamClosedMsg struct{}

// ListenCmd returns a tea.Cmd that blocks until the next event arrives.
// Issue it again after handling each EventMsg to keep listening.
func ListenCmd(events <-chan syncengine.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return StreamClosedMsg{}
		}

		return EventMsg{Event: event}
	}
}
