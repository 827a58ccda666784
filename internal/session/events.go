package session

import (
	"time"

	"github.com/mockmate-app/mockmate-live/internal/control"
)

// State describes where the session is in its lifecycle.
type State int

const (
	// StateIdle means no peer connection exists yet.
	StateIdle State = iota

	// StateAwaitingPeer means we joined the room and are waiting for the
	// other participant.
	StateAwaitingPeer

	// StateNegotiatingInitiator means we sent an offer and are waiting for
	// the answer.
	StateNegotiatingInitiator

	// StateNegotiatingResponder means we received an offer and sent back an
	// answer.
	StateNegotiatingResponder

	// StateConnected means media is flowing.
	StateConnected

	// StateTerminated means the session ended and will not recover.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPeer:
		return "awaiting peer"
	case StateNegotiatingInitiator:
		return "negotiating (initiator)"
	case StateNegotiatingResponder:
		return "negotiating (responder)"
	case StateConnected:
		return "connected"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// EventType identifies what an Event carries.
type EventType int

const (
	EventStateChanged EventType = iota
	EventError
	EventRemoteTrack
	EventPeerStatus
	EventPeerHangUp
	EventReconnectScheduled
)

// Event is emitted by the controller for the UI to consume.
type Event struct {
	Type EventType

	// State is set for EventStateChanged.
	State State

	// Err is set for EventError.
	Err error

	// TrackKind ("audio" or "video") is set for EventRemoteTrack.
	TrackKind string

	// PeerStatus is set for EventPeerStatus.
	PeerStatus *control.PeerStatusPayload

	// Delay is set for EventReconnectScheduled.
	Delay time.Duration
}
