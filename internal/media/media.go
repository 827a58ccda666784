// Package media models the capture capability the peer session controller
// consumes: acquiring microphone, camera and screen tracks, each of which
// can fail with a typed reason and must release its device handle when
// stopped. The production implementation ingests RTP from a local encoder
// pipeline; a synthetic implementation backs tests and soak runs.
package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Typed acquisition failures. Callers degrade to receive-only on any of
// these rather than aborting the session.
var (
	ErrDeviceNotFound   = errors.New("device not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrDeviceInUse      = errors.New("device in use")
	ErrUnsupported      = errors.New("unsupported constraints")
)

// CaptureError wraps a typed failure with the device kind it concerns.
type CaptureError struct {
	Kind    Kind
	Err     error
	Details string
}

func (e *CaptureError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("capture %s: %v (%s)", e.Kind, e.Err, e.Details)
	}
	return fmt.Sprintf("capture %s: %v", e.Kind, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Track is one live outgoing media source. Stop releases the underlying
// device handle; it is idempotent, and after it returns no more media flows.
// Exactly one controller owns a track at a time.
type Track interface {
	Local() webrtc.TrackLocal
	Kind() Kind
	Stop() error
}

// Capture acquires tracks from the local devices. Each call hands out a
// fresh track; re-acquiring after a Stop is how a toggled device comes back.
type Capture interface {
	Microphone(ctx context.Context) (Track, error)
	Camera(ctx context.Context) (Track, error)
	Screen(ctx context.Context) (Track, error)
}
