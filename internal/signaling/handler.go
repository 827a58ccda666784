package signaling

import (
	"encoding/json"
	"log/slog"
)

// Handler routes incoming relay events to typed channels so callers can
// select on exactly the events they care about.
type Handler struct {
	client *Client

	// Connected delivers the relay-assigned connection id from the hello.
	Connected chan string

	// UserJoined delivers the connection id of a peer that joined the video
	// room; receiving it makes the local side the negotiation initiator.
	UserJoined chan string

	// OtherUser delivers an initial offer for the responder role.
	OtherUser chan *RemoteSignal

	// Signal delivers answers and trickled candidates.
	Signal chan *RemoteSignal

	// Messages delivers chat traffic.
	Messages chan *ChatMessage

	// Disconnected closes once the relay connection is gone.
	Disconnected chan struct{}
}

func NewHandler(client *Client) *Handler {
	return &Handler{
		client:       client,
		Connected:    make(chan string, 1),
		UserJoined:   make(chan string, 4),
		OtherUser:    make(chan *RemoteSignal, 4),
		Signal:       make(chan *RemoteSignal, 32),
		Messages:     make(chan *ChatMessage, 32),
		Disconnected: make(chan struct{}),
	}
}

// Start consumes the client's incoming stream until the transport closes,
// then closes Disconnected. Run it in its own goroutine.
//
// Every dispatch is non-blocking: the relay broadcasts room traffic to all
// of a participant's connections, so a connection opened for video still
// receives chat events and vice versa. Events nobody drains are dropped
// instead of wedging the dispatch loop.
func (h *Handler) Start() {
	defer close(h.Disconnected)

	for msg := range h.client.Incoming() {
		switch msg.Type {

		case MessageTypeConnected:
			var id string
			if err := json.Unmarshal(msg.Payload, &id); err != nil {
				continue
			}
			deliver(h.Connected, id, msg.Type)

		case MessageTypeUserJoined:
			var id string
			if err := json.Unmarshal(msg.Payload, &id); err != nil {
				continue
			}
			deliver(h.UserJoined, id, msg.Type)

		case MessageTypeOtherUser:
			if rs := decodeRemoteSignal(msg); rs != nil {
				deliver(h.OtherUser, rs, msg.Type)
			}

		case MessageTypeSignal:
			if rs := decodeRemoteSignal(msg); rs != nil {
				deliver(h.Signal, rs, msg.Type)
			}

		case MessageTypeReceiveMessage:
			var chat ChatMessage
			if err := json.Unmarshal(msg.Payload, &chat); err != nil {
				continue
			}
			deliver(h.Messages, &chat, msg.Type)

		default:
			slog.Debug("ignoring relay event", "type", msg.Type)
		}
	}
}

func deliver[T any](ch chan T, v T, event string) {
	select {
	case ch <- v:
	default:
		slog.Debug("dropping undrained relay event", "type", event)
	}
}

func decodeRemoteSignal(msg *Message) *RemoteSignal {
	var rs RemoteSignal
	if err := json.Unmarshal(msg.Payload, &rs); err != nil {
		slog.Debug("malformed signal event", "err", err)
		return nil
	}
	return &rs
}
