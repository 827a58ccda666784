package relay

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/mockmate-app/mockmate-live/internal/signaling"
)

// inbound couples a decoded envelope with the connection it arrived on.
type inbound struct {
	msg  *signaling.Message
	from *Client
}

// Hub is the relay's single source of truth: it owns room membership and
// forwards signaling and chat traffic between members of the same room
// without interpreting payloads beyond the signal "type" peek needed for
// routing. All state is mutated from the Run goroutine only.
type Hub struct {
	rooms map[string]*Room

	Register   chan *Client
	Unregister chan *Client
	Inbound    chan *inbound

	roomCount atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *inbound),
	}
}

// RoomCount reports the number of live rooms. Safe for concurrent use; the
// health endpoint reads it outside the hub goroutine.
func (h *Hub) RoomCount() int {
	return int(h.roomCount.Load())
}

// Run processes registration, disconnects and message routing until the
// process exits. Start it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			slog.Info("client connected", "conn", client.ID, "addr", client.Conn.RemoteAddr())

			// Hello with the assigned connection id; chat authors and signal
			// sender ids are all derived from it client-side.
			id, _ := json.Marshal(client.ID)
			client.Send <- &signaling.Message{Type: signaling.MessageTypeConnected, Payload: id}

		case client := <-h.Unregister:
			slog.Info("client disconnected", "conn", client.ID)
			h.leaveRoom(client)
			close(client.Send)

		case in := <-h.Inbound:
			h.route(in.msg, in.from)
		}
	}
}

func (h *Hub) route(msg *signaling.Message, from *Client) {
	switch msg.Type {

	case signaling.MessageTypeJoinRoom:
		// Chat scope: silent membership, nobody is notified. Joining a room
		// with zero members just waits.
		h.joinRoom(from, msg.Room)

	case signaling.MessageTypeJoinVideoRoom:
		// Video scope: same membership, but existing members are told so that
		// exactly one of them becomes the negotiation initiator.
		h.joinRoom(from, msg.Room)
		id, _ := json.Marshal(from.ID)
		h.broadcast(msg.Room, &signaling.Message{
			Type:    signaling.MessageTypeUserJoined,
			Payload: id,
		}, from)

	case signaling.MessageTypeSignal:
		var env signaling.SignalEnvelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			slog.Debug("unroutable signal payload", "conn", from.ID, "err", err)
			return
		}

		// Offers are routed as "other-user" so the answering peer can tell
		// the initial offer apart from the rest of the negotiation traffic.
		var peek struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(env.Signal, &peek)

		event := signaling.MessageTypeSignal
		if peek.Type == "offer" {
			event = signaling.MessageTypeOtherUser
		}

		payload, err := json.Marshal(signaling.RemoteSignal{Signal: env.Signal, ID: from.ID})
		if err != nil {
			return
		}
		h.broadcast(env.Room, &signaling.Message{Type: event, Payload: payload}, from)

	case signaling.MessageTypeSendMessage:
		var chat signaling.ChatMessage
		if err := json.Unmarshal(msg.Payload, &chat); err != nil {
			slog.Debug("unroutable chat payload", "conn", from.ID, "err", err)
			return
		}
		// Relayed verbatim; the relay trusts the author field the same way
		// it trusts everything else inside a room.
		h.broadcast(chat.Room, &signaling.Message{
			Type:    signaling.MessageTypeReceiveMessage,
			Payload: msg.Payload,
		}, from)

	default:
		slog.Debug("unknown message type", "type", msg.Type, "conn", from.ID)
	}
}

// joinRoom moves the client into the named room, creating it on demand. A
// connection belongs to at most one room; re-joining moves it.
func (h *Hub) joinRoom(c *Client, code string) {
	if code == "" || c.Room == code {
		return
	}
	h.leaveRoom(c)

	room, ok := h.rooms[code]
	if !ok {
		room = newRoom(code)
		h.rooms[code] = room
		h.roomCount.Store(int64(len(h.rooms)))
		slog.Info("room created", "room", code)
	}
	room.Members[c] = struct{}{}
	c.Room = code
	slog.Info("joined room", "room", code, "conn", c.ID, "members", len(room.Members))
}

// leaveRoom removes the client from its room and garbage-collects the room
// once empty. Remaining members are not notified; peers detect departure
// through their own transport, not a relay event.
func (h *Hub) leaveRoom(c *Client) {
	if c.Room == "" {
		return
	}
	room, ok := h.rooms[c.Room]
	c.Room = ""
	if !ok {
		return
	}
	delete(room.Members, c)
	if len(room.Members) == 0 {
		delete(h.rooms, room.Code)
		h.roomCount.Store(int64(len(h.rooms)))
		slog.Info("room deleted", "room", room.Code)
	}
}

// broadcast queues msg for every member of the room except the sender. A
// full send queue drops the message for that member rather than blocking the
// hub loop.
func (h *Hub) broadcast(code string, msg *signaling.Message, exclude *Client) {
	room, ok := h.rooms[code]
	if !ok {
		return
	}
	for member := range room.Members {
		if member == exclude {
			continue
		}
		select {
		case member.Send <- msg:
		default:
			slog.Warn("dropping message for slow client", "room", code, "conn", member.ID)
		}
	}
}
