package control

import "github.com/vmihailenco/msgpack/v5"

// Data channel message types
const (
	TypeHello      = "hello"
	TypePeerStatus = "peer-status"
	TypeHangUp     = "hang-up"
)

// ChannelLabel is the label of the control data channel opened by the
// initiating peer alongside the media tracks.
const ChannelLabel = "control"

// Message represents all control data channel messages
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// HelloPayload is sent by each peer once the channel opens
type HelloPayload struct {
	ClientName    string `msgpack:"clientName"`
	ClientVersion string `msgpack:"clientVersion"`
}

// PeerStatusPayload is sent whenever a peer toggles a local device
type PeerStatusPayload struct {
	AudioEnabled  bool `msgpack:"audioEnabled"`
	VideoEnabled  bool `msgpack:"videoEnabled"`
	ScreenSharing bool `msgpack:"screenSharing"`
}

// HangUpPayload is sent right before a peer tears its connection down
type HangUpPayload struct {
	Reason string `msgpack:"reason"`
}

// DecodePayload decodes the message payload into the provided struct
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// NewMessage creates a new Message with the given type and payload
func NewMessage(t string, payload any) (Message, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, err
	}

	return Message{
		Type:    t,
		Payload: b,
	}, nil
}

// Encode marshals the full message for transmission on the data channel.
func (m Message) Encode() ([]byte, error) {
	return msgpack.Marshal(m)
}

// Decode unmarshals a data channel frame into a Message.
func Decode(b []byte) (Message, error) {
	var m Message
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}
