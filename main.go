// webpilot is a terminal console client for a conversational
// browser-automation backend.
package main

import (
	"fmt"
	"os"

	"github.com/renvins/webpilot/cmd"
	"github.com/renvins/webpilot/config"
	"github.com/renvins/webpilot/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	dir, _ := config.ConfigDir()
	if err := logger.Init(logger.Config(cfg.Logging), dir); err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
	}
	cmd.Execute()
}
