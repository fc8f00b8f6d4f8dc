package console

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/renvins/webpilot/event"
	"github.com/renvins/webpilot/logger"
	"github.com/renvins/webpilot/session"
	"github.com/renvins/webpilot/transport"
)

const logRatio = 0.25

var (
	separatorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	connectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	disconnectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// noticeMsg wraps one transport notice for the update loop.
type noticeMsg transport.Notice

// noticesDoneMsg signals that the transport notice stream ended.
type noticesDoneMsg struct{}

// App is the root bubbletea model: it owns the session state and feeds
// it transport notices and user actions, one at a time.
type App struct {
	state *session.State
	conn  *transport.Conn

	timeline *TimelinePanel
	logPanel *LogPanel
	input    *InputPanel
	spin     spinner.Model

	width, height int
}

// NewApp wires a session and its transport into the TUI.
func NewApp(state *session.State, conn *transport.Conn) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &App{
		state:    state,
		conn:     conn,
		timeline: NewTimelinePanel(),
		logPanel: NewLogPanel(),
		input:    NewInputPanel("webpilot> "),
		spin:     sp,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.listen(), a.spin.Tick)
}

// listen waits for the next transport notice. Re-issued after every
// delivery so notices arrive strictly one at a time.
func (a *App) listen() tea.Cmd {
	return func() tea.Msg {
		n, ok := <-a.conn.Notices()
		if !ok {
			return noticesDoneMsg{}
		}
		return noticeMsg(n)
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.recalcLayout()
		a.refreshTimeline()
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		p, cmd := a.input.Update(msg)
		a.input = p.(*InputPanel)
		cmds = append(cmds, cmd)

	case InputSubmitMsg:
		if cmd := a.handleInput(msg.Text); cmd != nil {
			cmds = append(cmds, cmd)
		}
		a.refreshTimeline()

	case noticeMsg:
		a.handleNotice(transport.Notice(msg))
		a.refreshTimeline()
		cmds = append(cmds, a.listen())

	case noticesDoneMsg:
		return a, tea.Quit

	case LogLineMsg:
		p, cmd := a.logPanel.Update(msg)
		a.logPanel = p.(*LogPanel)
		cmds = append(cmds, cmd)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		cmds = append(cmds, cmd)

	default:
		p, cmd := a.input.Update(msg)
		a.input = p.(*InputPanel)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

// handleNotice routes one transport notification into the session.
func (a *App) handleNotice(n transport.Notice) {
	switch n.Kind {
	case transport.NoticeOpen:
		a.state.HandleOpen()
	case transport.NoticeClosed:
		a.state.HandleClosed()
	case transport.NoticeFrame:
		ev, err := event.Decode(n.Data, time.Now())
		if err != nil {
			// Fail closed: the frame is dropped, the session survives.
			logger.Warn("dropping malformed frame", "err", err)
			return
		}
		a.state.Apply(ev)
	}
}

// handleInput interprets one submitted line: slash commands operate on
// the newest clarification or filter panel, anything else is sent as a
// plain instruction.
func (a *App) handleInput(text string) tea.Cmd {
	ctx := context.Background()
	text = strings.TrimSpace(text)

	switch {
	case text == "/quit" || text == "/exit":
		return tea.Quit

	case text == "/submit":
		panel := a.state.LatestFilterPanel()
		if panel == nil {
			logger.Warn("no filter panel to submit")
			return nil
		}
		if err := a.state.SubmitFilters(ctx, panel); err != nil {
			logger.Error("filter submit failed", "err", err)
		}

	case text == "/clear":
		panel := a.state.LatestFilterPanel()
		if panel == nil {
			logger.Warn("no filter panel to clear")
			return nil
		}
		a.state.ClearFilters(event.PanelID(panel))

	case strings.HasPrefix(text, "/filter "):
		// Options can be multi-word ("Rose Gold"), so everything after
		// the field is the option.
		rest := strings.TrimSpace(strings.TrimPrefix(text, "/filter "))
		field, option, ok := strings.Cut(rest, " ")
		option = strings.TrimSpace(option)
		if !ok || option == "" {
			logger.Warn("usage: /filter <field> <option>")
			return nil
		}
		panel := a.state.LatestFilterPanel()
		if panel == nil {
			logger.Warn("no filter panel active")
			return nil
		}
		a.state.ToggleFilterOption(event.PanelID(panel), field, option)

	case strings.HasPrefix(text, "/"):
		n, err := strconv.Atoi(text[1:])
		if err != nil {
			logger.Warn("unknown command", "input", text)
			return nil
		}
		cl := a.state.LatestClarification()
		if cl == nil {
			logger.Warn("no open clarification to answer")
			return nil
		}
		if err := a.state.SelectClarificationOption(ctx, cl, n-1); err != nil {
			logger.Error("clarification answer failed", "err", err)
		}

	default:
		if !a.state.Connected() {
			logger.Warn("not connected; instruction dropped", "input", text)
			return nil
		}
		if err := a.state.SendInstruction(ctx, text); err != nil {
			logger.Error("instruction send failed", "err", err)
		}
	}
	return nil
}

func (a *App) refreshTimeline() {
	events := a.state.Timeline()
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, RenderEvent(ev, a.state))
	}
	a.timeline.SetLines(lines)
}

func (a *App) statusLine() string {
	var parts []string
	if a.state.Connected() {
		parts = append(parts, connectedStyle.Render("● connected"))
	} else {
		parts = append(parts, disconnectedStyle.Render("○ reconnecting..."))
	}
	if a.state.Loading() {
		parts = append(parts, a.spin.View()+"working")
	}
	return strings.Join(parts, "  ")
}

func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return "initializing..."
	}

	sep := separatorStyle.Render(strings.Repeat("─", a.width))

	return lipgloss.JoinVertical(lipgloss.Left,
		a.logPanel.View(),
		sep,
		a.timeline.View(),
		sep,
		a.statusLine(),
		a.input.View(),
	)
}

func (a *App) recalcLayout() {
	const inputH = 1
	const statusH = 1
	const sepLines = 2

	usable := max(a.height-inputH-statusH-sepLines, 2)
	logH := max(int(float64(usable)*logRatio), 1)
	timelineH := max(usable-logH, 1)

	a.logPanel.SetSize(a.width, logH)
	a.timeline.SetSize(a.width, timelineH)
	a.input.SetSize(a.width, inputH)
}
