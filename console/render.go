package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/gjson"

	"github.com/renvins/webpilot/event"
	"github.com/renvins/webpilot/session"
)

var (
	systemStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	blockedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)

	executingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderEvent formats one timeline entry. Rendering is stateless per
// entry except for interaction marks (answered options, current filter
// selections) read from the session.
func RenderEvent(ev *event.Event, st *session.State) string {
	switch ev.Type {
	case event.TypeSystem:
		return systemStyle.Render("-- " + ev.Message)
	case event.TypeUser:
		return userStyle.Render("> " + ev.Message)
	case event.TypeStatus:
		return statusStyle.Render("· " + ev.Message)
	case event.TypeActionStatus:
		return renderActionStatus(ev)
	case event.TypePlan:
		return renderPlan(ev)
	case event.TypeError:
		return renderError(ev)
	case event.TypeClarification:
		return renderClarification(ev, st)
	case event.TypeBlocked:
		return renderBlocked(ev)
	case event.TypeFilterOptions:
		return renderFilterPanel(ev, st)
	default:
		// Unknown kinds stay visible; never drop them silently.
		if ev.Message != "" {
			return hintStyle.Render(fmt.Sprintf("[%s] %s", ev.Type, ev.Message))
		}
		return hintStyle.Render(fmt.Sprintf("[%s]", ev.Type))
	}
}

func renderActionStatus(ev *event.Event) string {
	var style lipgloss.Style
	switch ev.Status {
	case event.StatusExecuting:
		style = executingStyle
	case event.StatusCompleted:
		style = completedStyle
	case event.StatusError:
		style = failedStyle
	default:
		style = pendingStyle
	}

	var b strings.Builder
	if ev.Step != nil && ev.Total > 0 {
		fmt.Fprintf(&b, "[%d/%d] ", *ev.Step, ev.Total)
	} else if ev.Step != nil {
		fmt.Fprintf(&b, "[%d] ", *ev.Step)
	}
	b.WriteString(ev.Action)
	b.WriteString(" — ")
	b.WriteString(ev.Status)

	if count := gjson.GetBytes(ev.Result, "count"); count.Exists() {
		fmt.Fprintf(&b, " (%d results)", count.Int())
	}
	return style.Render(b.String())
}

func renderPlan(ev *event.Event) string {
	lines := []string{statusStyle.Render("plan:")}
	for i, step := range ev.Plan {
		line := fmt.Sprintf("  %d. %s", i+1, step.Action)
		if step.Selector != "" {
			line += hintStyle.Render("  " + step.Selector)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func renderError(ev *event.Event) string {
	lines := []string{errorStyle.Render("error: " + ev.Message)}
	if ev.Action != "" {
		lines = append(lines, hintStyle.Render("  while: "+ev.Action))
	}
	for _, s := range ev.Suggestions {
		lines = append(lines, hintStyle.Render("  try: "+s))
	}
	return strings.Join(lines, "\n")
}

func renderClarification(ev *event.Event, st *session.State) string {
	lines := []string{questionStyle.Render("? " + ev.Question)}
	answered := st.Answered(event.ClarificationID(ev))
	for i, opt := range ev.Options {
		mark := "  "
		if st.Answered(event.OptionID(ev, i)) {
			mark = selectedStyle.Render("✓ ")
		}
		lines = append(lines, fmt.Sprintf("  %s%d. %s", mark, i+1, opt.Label))
	}
	if !answered {
		lines = append(lines, hintStyle.Render("  answer with /1../"+fmt.Sprint(len(ev.Options))))
	}
	return strings.Join(lines, "\n")
}

func renderBlocked(ev *event.Event) string {
	lines := []string{blockedStyle.Render("blocked: " + ev.Message)}
	for i, alt := range ev.Alternatives {
		lines = append(lines, fmt.Sprintf("    %d. %s", i+1, alt.Label))
	}
	return strings.Join(lines, "\n")
}

func renderFilterPanel(ev *event.Event, st *session.State) string {
	panelID := event.PanelID(ev)

	var lines []string
	if ev.Message != "" {
		lines = append(lines, statusStyle.Render(ev.Message))
	}
	if ev.Question != "" {
		lines = append(lines, questionStyle.Render("? "+ev.Question))
	}
	for _, group := range ev.Filters {
		selected := st.Selection(panelID, group.Field)
		var opts []string
		for _, o := range group.Options {
			if o == selected {
				opts = append(opts, selectedStyle.Render("["+o+"]"))
			} else {
				opts = append(opts, o)
			}
		}
		lines = append(lines, fmt.Sprintf("  %s: %s", group.Label, strings.Join(opts, " ")))
	}
	lines = append(lines, hintStyle.Render("  /filter <field> <option> to toggle, /submit, /clear"))
	return strings.Join(lines, "\n")
}
