package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/renvins/webpilot/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize webpilot configuration",
	Long:  `Create the webpilot configuration directory and default config file.`,
	RunE:  runOnboard,
}

func init() {
	rootCmd.AddCommand(onboardCmd)
}

func runOnboard(_ *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("Config already exists at:", configPath)
		fmt.Println("To reconfigure, edit the file directly or delete it first.")
		return nil
	}

	cfg := config.DefaultConfig()

	logToFile := true
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend websocket URL").
				Description("The automation backend's websocket endpoint.").
				Value(&cfg.Server.Endpoint),
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("info", "info"),
					huh.NewOption("debug", "debug"),
					huh.NewOption("warn", "warn"),
					huh.NewOption("error", "error"),
				).
				Value(&cfg.Logging.Level),
			huh.NewConfirm().
				Title("Write logs to a file?").
				Description("Kept inside the config directory.").
				Value(&logToFile),
		),
	).Run()
	if err != nil {
		return err
	}

	if !logToFile {
		cfg.Logging.File = ""
		cfg.Logging.Stdout = true
	}

	if err := config.Save(cfg); err != nil {
		return err
	}

	fmt.Println("Config written to:", configPath)
	fmt.Println("Run 'webpilot console' to connect.")
	return nil
}
