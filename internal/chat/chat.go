// Package chat runs the text side-channel of a live interview. It opens its
// own relay connection so chat keeps working while the video connection is
// renegotiating.
package chat

import (
	"sync"
	"time"

	"github.com/mockmate-app/mockmate-live/internal/signaling"
)

const helloTimeout = 10 * time.Second

type Channel struct {
	client  *signaling.Client
	handler *signaling.Handler
	room    string
	ownID   string

	mu      sync.Mutex
	history []*signaling.ChatMessage

	incoming chan *signaling.ChatMessage
}

// Open dials the relay, waits for the connection id, and joins the chat
// scope of the room.
func Open(serverURL, room string) (*Channel, error) {
	client := signaling.NewClient(serverURL)
	if err := client.Connect(); err != nil {
		return nil, err
	}

	handler := signaling.NewHandler(client)
	go handler.Start()

	ch := &Channel{
		client:   client,
		handler:  handler,
		room:     room,
		incoming: make(chan *signaling.ChatMessage, 32),
	}

	select {
	case id := <-handler.Connected:
		ch.ownID = id
	case <-handler.Disconnected:
		client.Close()
		return nil, signaling.ErrConnectionLost
	case <-time.After(helloTimeout):
		client.Close()
		return nil, signaling.ErrHelloTimeout
	}

	client.SendMessage(&signaling.Message{
		Type: signaling.MessageTypeJoinRoom,
		Room: room,
	})

	go ch.pump()
	return ch, nil
}

func (c *Channel) pump() {
	defer close(c.incoming)

	for {
		select {
		case msg, ok := <-c.handler.Messages:
			if !ok {
				return
			}
			c.mu.Lock()
			c.history = append(c.history, msg)
			c.mu.Unlock()

			select {
			case c.incoming <- msg:
			default:
			}

		case <-c.handler.Disconnected:
			return
		}
	}
}

// Send relays a message to the room. The relay does not echo messages back
// to the sender, so the local copy goes straight into history.
func (c *Channel) Send(text string) *signaling.ChatMessage {
	msg := &signaling.ChatMessage{
		Room:    c.room,
		Author:  c.ownID,
		Message: text,
		Time:    time.Now().Format("15:04"),
	}

	payload, err := signaling.EncodeChat(msg)
	if err != nil {
		return msg
	}
	c.client.SendMessage(payload)

	c.mu.Lock()
	c.history = append(c.history, msg)
	c.mu.Unlock()

	return msg
}

// Incoming delivers messages from the other participant. It closes when the
// relay connection is lost.
func (c *Channel) Incoming() <-chan *signaling.ChatMessage {
	return c.incoming
}

// History returns a copy of everything sent and received this session.
func (c *Channel) History() []*signaling.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*signaling.ChatMessage, len(c.history))
	copy(out, c.history)
	return out
}

// OwnID returns the relay-assigned id used as the author of sent messages.
func (c *Channel) OwnID() string {
	return c.ownID
}

func (c *Channel) Close() {
	c.client.Close()
}
