// Package console renders the session timeline as a terminal UI. The
// bubbletea update loop is the single event loop of the client: every
// transport notice and every user action passes through it, so the
// session state never needs locking.
package console

import tea "github.com/charmbracelet/bubbletea"

// Panel is a composable TUI region with its own state, update logic,
// and view. The root App orchestrates panels without knowing their
// internals.
type Panel interface {
	Update(tea.Msg) (Panel, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// LogLineMsg carries one log line from the intercepted logger.
type LogLineMsg struct{ Line string }

// InputSubmitMsg is emitted when the user presses Enter in the input
// panel.
type InputSubmitMsg struct{ Text string }
