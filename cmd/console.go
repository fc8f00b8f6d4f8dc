package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/renvins/webpilot/config"
	"github.com/renvins/webpilot/console"
	"github.com/renvins/webpilot/event"
	"github.com/renvins/webpilot/logger"
	"github.com/renvins/webpilot/session"
	"github.com/renvins/webpilot/transport"
)

var consoleEndpoint string

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the interactive automation console",
	Long: `Connect to the automation backend and open the interactive console.

With a terminal attached this runs the full-screen TUI; otherwise it
falls back to a plain line-oriented mode suitable for pipes.`,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().StringVar(&consoleEndpoint, "endpoint", "", "Backend websocket URL (overrides config)")
	rootCmd.AddCommand(consoleCmd)
}

func runConsole(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if consoleEndpoint != "" {
		cfg.Server.Endpoint = consoleEndpoint
	}

	conn := transport.New(transport.Config{
		URL:        cfg.Server.Endpoint,
		RetryDelay: cfg.RetryDelay(),
		ReadLimit:  cfg.Server.ReadLimit,
	})
	state := session.NewState(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn.Start(ctx)
	defer conn.Teardown()

	if term.IsTerminal(int(os.Stdin.Fd())) {
		return runTUI(state, conn)
	}
	return runPlain(ctx, state, conn)
}

// logWriter forwards intercepted logger output into the TUI log panel.
type logWriter struct {
	program *tea.Program
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.program.Send(console.LogLineMsg{Line: string(p)})
	return len(p), nil
}

func runTUI(state *session.State, conn *transport.Conn) error {
	app := console.NewApp(state, conn)
	program := tea.NewProgram(app, tea.WithAltScreen())

	logger.Intercept(&logWriter{program: program})
	defer logger.Restore()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("console error: %w", err)
	}
	return nil
}

// runPlain is the non-TTY console: events print as lines, input reads
// from stdin. The select loop below is the session's single event loop.
func runPlain(ctx context.Context, state *session.State, conn *transport.Conn) error {
	inputs := make(chan string)
	go func() {
		defer close(inputs)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			inputs <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case n, ok := <-conn.Notices():
			if !ok {
				return nil
			}
			applyNoticePlain(state, n)

		case line, ok := <-inputs:
			if !ok {
				return nil
			}
			if err := handlePlainInput(ctx, state, line); err != nil {
				logger.Error("input failed", "err", err)
			}
		}
	}
}

// applyNoticePlain mutates the session and prints each applied entry as
// a log line. Replaced cards print again with their new status; plain
// mode is a stream, not a screen.
func applyNoticePlain(state *session.State, n transport.Notice) {
	switch n.Kind {
	case transport.NoticeOpen:
		state.HandleOpen()
	case transport.NoticeClosed:
		state.HandleClosed()
	case transport.NoticeFrame:
		ev, err := event.Decode(n.Data, time.Now())
		if err != nil {
			logger.Warn("dropping malformed frame", "err", err)
			return
		}
		state.Apply(ev)
	}
	timeline := state.Timeline()
	if len(timeline) > 0 {
		fmt.Println(console.RenderEvent(timeline[len(timeline)-1], state))
	}
}

func handlePlainInput(ctx context.Context, state *session.State, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	switch {
	case line == "/submit":
		if panel := state.LatestFilterPanel(); panel != nil {
			return state.SubmitFilters(ctx, panel)
		}
	case line == "/clear":
		if panel := state.LatestFilterPanel(); panel != nil {
			state.ClearFilters(event.PanelID(panel))
		}
	case strings.HasPrefix(line, "/filter "):
		rest := strings.TrimSpace(strings.TrimPrefix(line, "/filter "))
		field, option, ok := strings.Cut(rest, " ")
		option = strings.TrimSpace(option)
		if !ok || option == "" {
			return fmt.Errorf("usage: /filter <field> <option>")
		}
		if panel := state.LatestFilterPanel(); panel != nil {
			state.ToggleFilterOption(event.PanelID(panel), field, option)
		}
	case strings.HasPrefix(line, "/"):
		n, err := strconv.Atoi(line[1:])
		if err != nil {
			return fmt.Errorf("unknown command %q", line)
		}
		if cl := state.LatestClarification(); cl != nil {
			return state.SelectClarificationOption(ctx, cl, n-1)
		}
	default:
		if !state.Connected() {
			return fmt.Errorf("not connected")
		}
		return state.SendInstruction(ctx, line)
	}
	return nil
}
