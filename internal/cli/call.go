package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mockmate-app/mockmate-live/internal/config"
	"github.com/mockmate-app/mockmate-live/internal/media"
	"github.com/mockmate-app/mockmate-live/internal/room"
	"github.com/mockmate-app/mockmate-live/internal/ui"
)

func loadConfig() (*config.Config, error) {
	return config.Load(config.Options{
		ServerURL:      flagServer,
		Origin:         flagOrigin,
		STUNServer:     flagSTUN,
		TURNServer:     flagTURN,
		TURNUser:       flagTURNUser,
		TURNPass:       flagTURNPass,
		ForceRelay:     flagRelay,
		MicrophoneAddr: flagMicAddr,
		CameraAddr:     flagCameraAddr,
		ScreenAddr:     flagScreenAddr,
		Synthetic:      flagSynthetic,
	})
}

func newCapture(cfg *config.Config) media.Capture {
	if cfg.Synthetic {
		return &media.Synthetic{}
	}
	return media.NewRTPCapture(media.RTPConfig{
		MicrophoneAddr: cfg.MicrophoneAddr,
		CameraAddr:     cfg.CameraAddr,
		ScreenAddr:     cfg.ScreenAddr,
	})
}

// runCall drives the whole call lifecycle, rebuilding the session whenever
// the relay connection drops, the same way the webapp reloads the call page.
func runCall(cfg *config.Config, code string, host bool) error {
	capture := newCapture(cfg)
	ctx := context.Background()
	first := true

	for {
		stopSpinner := ui.RunConnectionSpinner("Connecting to relay...")

		var (
			call *room.Call
			err  error
		)
		if first && host {
			call, err = room.Host(ctx, cfg, capture)
		} else {
			call, err = room.Join(ctx, cfg, capture, code)
		}
		if err != nil {
			stopSpinner()
			return err
		}
		code = call.Code
		stopSpinner()

		if first {
			ui.NewRoomInfo(call.Code, call.Link).Render()
			fmt.Println()
		}
		first = false

		reconnect := make(chan struct{})
		call.Controller.OnReconnect(func() { close(reconnect) })

		model := ui.NewCallModel(call)
		if _, err := tea.NewProgram(model).Run(); err != nil {
			call.Close()
			return fmt.Errorf("ui error: %w", err)
		}

		if call.Controller.IsTerminated() {
			call.Chat.Close()
			ui.RenderCallSummary(model.Summary())
			return nil
		}

		// The relay connection dropped; wait out the backoff the
		// controller scheduled, then rebuild everything.
		call.Close()
		ui.PrintWarning("connection lost, rejoining room " + code)
		<-reconnect
	}
}
