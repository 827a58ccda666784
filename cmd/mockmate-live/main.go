package main

import (
	"log/slog"

	"github.com/mockmate-app/mockmate-live/internal/cli"
	"github.com/mockmate-app/mockmate-live/internal/logging"
)

func main() {
	// Keep the log stream quiet under the TUI; LOG_LEVEL overrides.
	logging.Init(slog.LevelError)
	cli.Execute()
}
