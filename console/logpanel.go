package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxLogLines = 500

var logLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

// LogPanel displays intercepted logger output in a scrollable viewport.
type LogPanel struct {
	viewport viewport.Model
	lines    []string
}

// NewLogPanel creates a log panel.
func NewLogPanel() *LogPanel {
	vp := viewport.New(0, 0)
	vp.SetContent("")
	return &LogPanel{viewport: vp}
}

func (p *LogPanel) Update(msg tea.Msg) (Panel, tea.Cmd) {
	if m, ok := msg.(LogLineMsg); ok {
		p.lines = append(p.lines, logLineStyle.Render(strings.TrimRight(m.Line, "\n")))
		if len(p.lines) > maxLogLines {
			p.lines = p.lines[len(p.lines)-maxLogLines:]
		}
		p.viewport.SetContent(strings.Join(p.lines, "\n"))
		p.viewport.GotoBottom()
		return p, nil
	}
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *LogPanel) View() string {
	return p.viewport.View()
}

func (p *LogPanel) SetSize(width, height int) {
	p.viewport.Width = width
	p.viewport.Height = height
}
