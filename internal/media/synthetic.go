package media

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

// opusSilence is a canonical silent Opus frame.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// Synthetic is a capture implementation that needs no hardware at all:
// silence on the audio track, a flat test pattern on video. It backs tests
// and the --synthetic client mode used for soak runs against a deployment.
// The error fields let tests inject typed acquisition failures.
type Synthetic struct {
	MicrophoneErr error
	CameraErr     error
	ScreenErr     error
}

func (s *Synthetic) Microphone(ctx context.Context) (Track, error) {
	if s.MicrophoneErr != nil {
		return nil, &CaptureError{Kind: KindAudio, Err: s.MicrophoneErr}
	}
	return newSyntheticTrack(ctx, KindAudio,
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "mockmate-mic",
		opusSilence, 20*time.Millisecond)
}

func (s *Synthetic) Camera(ctx context.Context) (Track, error) {
	if s.CameraErr != nil {
		return nil, &CaptureError{Kind: KindVideo, Err: s.CameraErr}
	}
	return newSyntheticTrack(ctx, KindVideo,
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "mockmate-camera",
		testPattern(), 33*time.Millisecond)
}

func (s *Synthetic) Screen(ctx context.Context) (Track, error) {
	if s.ScreenErr != nil {
		return nil, &CaptureError{Kind: KindVideo, Err: s.ScreenErr}
	}
	return newSyntheticTrack(ctx, KindVideo,
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "mockmate-screen",
		testPattern(), 33*time.Millisecond)
}

func testPattern() []byte {
	return make([]byte, 64)
}

type syntheticTrack struct {
	kind    Kind
	local   *webrtc.TrackLocalStaticSample
	cancel  context.CancelFunc
	stopped atomic.Bool
}

func newSyntheticTrack(ctx context.Context, kind Kind, codec webrtc.RTPCodecCapability, id, streamID string, frame []byte, interval time.Duration) (*syntheticTrack, error) {
	local, err := webrtc.NewTrackLocalStaticSample(codec, id, streamID)
	if err != nil {
		return nil, &CaptureError{Kind: kind, Err: ErrUnsupported, Details: err.Error()}
	}

	runCtx, cancel := context.WithCancel(ctx)
	t := &syntheticTrack{kind: kind, local: local, cancel: cancel}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				_ = local.WriteSample(pionmedia.Sample{Data: frame, Duration: interval})
			}
		}
	}()

	return t, nil
}

func (t *syntheticTrack) Local() webrtc.TrackLocal { return t.local }
func (t *syntheticTrack) Kind() Kind               { return t.kind }

func (t *syntheticTrack) Stop() error {
	if t.stopped.Swap(true) {
		return nil
	}
	t.cancel()
	return nil
}

// Stopped reports whether the track has been released. Used by tests to
// verify that every replacement path stops the previous hardware track.
func (t *syntheticTrack) Stopped() bool {
	return t.stopped.Load()
}
