package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// TimelinePanel displays the reconciled timeline in a scrollable
// viewport. Replace semantics mutate earlier entries, so the whole
// content is rebuilt on every refresh instead of accumulating lines.
type TimelinePanel struct {
	viewport viewport.Model
}

// NewTimelinePanel creates an empty timeline panel.
func NewTimelinePanel() *TimelinePanel {
	vp := viewport.New(0, 0)
	vp.SetContent("")
	return &TimelinePanel{viewport: vp}
}

// SetLines replaces the rendered timeline and scrolls to the bottom.
func (p *TimelinePanel) SetLines(lines []string) {
	p.viewport.SetContent(strings.Join(lines, "\n"))
	p.viewport.GotoBottom()
}

func (p *TimelinePanel) Update(msg tea.Msg) (Panel, tea.Cmd) {
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *TimelinePanel) View() string {
	return p.viewport.View()
}

func (p *TimelinePanel) SetSize(width, height int) {
	p.viewport.Width = width
	p.viewport.Height = height
}
