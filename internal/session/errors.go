package session

import (
	"errors"
	"fmt"
)

var (
	ErrPeerDisconnected   = errors.New("peer disconnected")
	ErrSignalingError     = errors.New("signaling server error")
	ErrTimeout            = errors.New("timeout")
	ErrConnectionFailed   = errors.New("connection failed")
	ErrNoAudioSender      = errors.New("no outgoing audio slot")
	ErrNoVideoSender      = errors.New("no outgoing video slot")
	ErrScreenShareActive  = errors.New("screen share is active")
	ErrSessionTerminated  = errors.New("session terminated")
	ErrUnexpectedSignal   = errors.New("unexpected signal type")
	ErrControlChannelDown = errors.New("control channel not open")
)

type SessionError struct {
	Op      string
	Err     error
	Details string
}

func (e *SessionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *SessionError {
	return &SessionError{Op: op, Err: err, Details: details}
}
