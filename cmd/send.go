package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/renvins/webpilot/config"
	"github.com/renvins/webpilot/console"
	"github.com/renvins/webpilot/event"
	"github.com/renvins/webpilot/logger"
	"github.com/renvins/webpilot/session"
	"github.com/renvins/webpilot/transport"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a single instruction and print the event stream",
	Long: `Connect to the backend, send one instruction, and print events until
the run completes. Clarifications cannot be answered in this mode; use
the console for interactive runs.`,
	RunE: runSend,
}

var (
	sendText    string
	sendTimeout int
)

func init() {
	sendCmd.Flags().StringVar(&sendText, "text", "", "Instruction text (required)")
	sendCmd.Flags().IntVar(&sendTimeout, "timeout", 120, "Seconds to wait for completion")
	_ = sendCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(sendCmd)
}

func runSend(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(sendTimeout)*time.Second)
	defer cancel()

	conn := transport.New(transport.Config{
		URL:        cfg.Server.Endpoint,
		RetryDelay: cfg.RetryDelay(),
		ReadLimit:  cfg.Server.ReadLimit,
	})
	state := session.NewState(conn)

	conn.Start(ctx)
	defer conn.Teardown()

	sent := false
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for completion")

		case n, ok := <-conn.Notices():
			if !ok {
				return nil
			}
			switch n.Kind {
			case transport.NoticeOpen:
				state.HandleOpen()
				if !sent {
					if err := state.SendInstruction(ctx, sendText); err != nil {
						return fmt.Errorf("send instruction: %w", err)
					}
					sent = true
				}
			case transport.NoticeClosed:
				state.HandleClosed()
				timeline := state.Timeline()
				fmt.Println(console.RenderEvent(timeline[len(timeline)-1], state))
			case transport.NoticeFrame:
				ev, err := event.Decode(n.Data, time.Now())
				if err != nil {
					logger.Warn("dropping malformed frame", "err", err)
					continue
				}
				state.Apply(ev)
				fmt.Println(console.RenderEvent(ev, state))

				// The backend sends one terminal status per cycle.
				if ev.Type == event.TypeStatus && strings.Contains(ev.Message, "completed") {
					return nil
				}
			}
		}
	}
}
