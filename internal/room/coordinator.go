package room

import (
	"context"
	"fmt"

	"github.com/mockmate-app/mockmate-live/internal/chat"
	"github.com/mockmate-app/mockmate-live/internal/config"
	"github.com/mockmate-app/mockmate-live/internal/media"
	"github.com/mockmate-app/mockmate-live/internal/session"
	"github.com/mockmate-app/mockmate-live/internal/signaling"
)

// Call bundles everything a live interview needs: the room identity, the
// chat side-channel, and the peer session controller. Chat and video run on
// separate relay connections, mirroring how the webapp opens one socket per
// concern.
type Call struct {
	Code string
	Link string

	Chat       *chat.Channel
	Controller *session.Controller
}

// Host creates a fresh room and joins it as the first participant.
func Host(ctx context.Context, cfg *config.Config, capture media.Capture) (*Call, error) {
	return open(ctx, cfg, capture, GenerateCode())
}

// Join enters an existing room. The input may be a bare room code or a full
// invite link.
func Join(ctx context.Context, cfg *config.Config, capture media.Capture, input string) (*Call, error) {
	code, err := ParseInput(input)
	if err != nil {
		return nil, err
	}
	return open(ctx, cfg, capture, code)
}

func open(ctx context.Context, cfg *config.Config, capture media.Capture, code string) (*Call, error) {
	chatChannel, err := chat.Open(cfg.ServerURL, code)
	if err != nil {
		return nil, fmt.Errorf("opening chat channel: %w", err)
	}

	videoClient := signaling.NewClient(cfg.ServerURL)
	if err := videoClient.Connect(); err != nil {
		chatChannel.Close()
		return nil, fmt.Errorf("connecting video channel: %w", err)
	}

	handler := signaling.NewHandler(videoClient)
	go handler.Start()

	controller := session.NewController(cfg, videoClient, handler, capture)
	if err := controller.Start(ctx, code); err != nil {
		videoClient.Close()
		chatChannel.Close()
		return nil, err
	}

	return &Call{
		Code:       code,
		Link:       BuildLink(cfg.Origin, code),
		Chat:       chatChannel,
		Controller: controller,
	}, nil
}

// Close hangs up the session and tears down both relay connections.
func (c *Call) Close() {
	c.Controller.HangUp()
	c.Chat.Close()
}
