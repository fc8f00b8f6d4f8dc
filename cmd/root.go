// Package cmd implements the webpilot command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/renvins/webpilot/config"
)

var configDirFlag string

var rootCmd = &cobra.Command{
	Use:   "webpilot",
	Short: "Console client for the webpilot browser-automation backend",
	Long: `webpilot is a terminal console for a conversational browser-automation
backend. It keeps a persistent websocket session, reconciles the event
stream into a live timeline, and lets you answer clarifications and
refine result filters interactively.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if configDirFlag != "" {
			config.SetConfigDir(configDirFlag)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config", "", "Config directory (default ~/.webpilot)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
