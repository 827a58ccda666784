package signaling

import "encoding/json"

// Message is the envelope for all websocket traffic between clients and the
// relay. Payload contents depend on Type and are left opaque here; the relay
// never interprets a signal beyond peeking at its "type" field.
type Message struct {
	Type    string          `json:"type"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client-to-relay event types.
const (
	MessageTypeJoinRoom      = "join_room"  // chat-room scope
	MessageTypeJoinVideoRoom = "join-room"  // video-negotiation room scope
	MessageTypeSignal        = "signal"     // carries {room, signal} outbound
	MessageTypeSendMessage   = "send_message"
)

// Relay-to-client event types.
const (
	MessageTypeConnected      = "connected"  // hello carrying the connection id
	MessageTypeUserJoined     = "user-joined"
	MessageTypeOtherUser      = "other-user" // initial offer for the responder
	MessageTypeReceiveMessage = "receive_message"
)

// SignalEnvelope is the outbound signal payload: the room to route through
// and the opaque SDP/ICE blob produced by the local peer connection.
type SignalEnvelope struct {
	Room   string          `json:"room"`
	Signal json.RawMessage `json:"signal"`
}

// RemoteSignal is the inbound counterpart, delivered as either an
// "other-user" or a "signal" event together with the sender's connection id.
type RemoteSignal struct {
	Signal json.RawMessage `json:"signal"`
	ID     string          `json:"id"`
}

// SignalData is the negotiation blob itself: a session description
// ({type, sdp}) or a trickled ICE candidate. Kept free of any WebRTC library
// type so the wire surface stays independent of the implementation.
type SignalData struct {
	Type      string     `json:"type,omitempty"`
	SDP       string     `json:"sdp,omitempty"`
	Candidate *Candidate `json:"candidate,omitempty"`
}

// Candidate mirrors the browser's RTCIceCandidateInit shape.
type Candidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// ChatMessage is relayed verbatim between members of a chat room and kept
// only in each client's in-memory history.
type ChatMessage struct {
	Room    string `json:"room"`
	Author  string `json:"author"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// EncodeChat wraps a chat message for sending through the relay.
func EncodeChat(msg *ChatMessage) (*Message, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return &Message{Type: MessageTypeSendMessage, Room: msg.Room, Payload: payload}, nil
}

// EncodeSignal wraps a signal blob for sending through the relay.
func EncodeSignal(room string, signal any) (*Message, error) {
	blob, err := json.Marshal(signal)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(SignalEnvelope{Room: room, Signal: blob})
	if err != nil {
		return nil, err
	}
	return &Message{Type: MessageTypeSignal, Payload: payload}, nil
}
