package session_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mockmate-app/mockmate-live/internal/config"
	"github.com/mockmate-app/mockmate-live/internal/media"
	"github.com/mockmate-app/mockmate-live/internal/relay"
	"github.com/mockmate-app/mockmate-live/internal/server"
	"github.com/mockmate-app/mockmate-live/internal/session"
	"github.com/mockmate-app/mockmate-live/internal/signaling"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func startRelay(t *testing.T) string {
	t.Helper()

	hub := relay.NewHub()
	go hub.Run()

	srv := httptest.NewServer(server.NewRouter(hub, server.DefaultConfig()))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

// recordingCapture hands out synthetic tracks and remembers them so tests
// can check that replacement paths stopped the previous track.
type recordingCapture struct {
	media.Synthetic
	mu     sync.Mutex
	tracks []media.Track
}

func (c *recordingCapture) record(track media.Track, err error) (media.Track, error) {
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.tracks = append(c.tracks, track)
	c.mu.Unlock()
	return track, nil
}

func (c *recordingCapture) Microphone(ctx context.Context) (media.Track, error) {
	return c.record(c.Synthetic.Microphone(ctx))
}

func (c *recordingCapture) Camera(ctx context.Context) (media.Track, error) {
	return c.record(c.Synthetic.Camera(ctx))
}

func (c *recordingCapture) Screen(ctx context.Context) (media.Track, error) {
	return c.record(c.Synthetic.Screen(ctx))
}

func (c *recordingCapture) handedOut() []media.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]media.Track, len(c.tracks))
	copy(out, c.tracks)
	return out
}

func stopped(track media.Track) bool {
	return track.(interface{ Stopped() bool }).Stopped()
}

// eventRecorder drains a controller's event stream so nothing is dropped and
// lets tests wait for a particular event.
type eventRecorder struct {
	mu     sync.Mutex
	events []session.Event
}

func recordEvents(ctrl *session.Controller) *eventRecorder {
	r := &eventRecorder{}
	go func() {
		for ev := range ctrl.Events() {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		}
	}()
	return r
}

func (r *eventRecorder) waitFor(t *testing.T, what string, pred func(session.Event) bool) session.Event {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		for _, ev := range r.events {
			if pred(ev) {
				r.mu.Unlock()
				return ev
			}
		}
		r.mu.Unlock()
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("never observed %s", what)
	return session.Event{}
}

func newController(t *testing.T, url string, capture media.Capture) *session.Controller {
	t.Helper()

	cfg := &config.Config{ServerURL: url}

	client := signaling.NewClient(url)
	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)

	handler := signaling.NewHandler(client)
	go handler.Start()

	return session.NewController(cfg, client, handler, capture)
}

func waitForState(t *testing.T, ctrl *session.Controller, want session.State) {
	t.Helper()

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.State() == want {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("state=%v, never reached %v", ctrl.State(), want)
}

func startPair(t *testing.T, room string) (a, b *session.Controller, capA, capB *recordingCapture) {
	t.Helper()

	url := startRelay(t)
	ctx := context.Background()

	capA = &recordingCapture{}
	capB = &recordingCapture{}
	a = newController(t, url, capA)
	b = newController(t, url, capB)

	if err := a.Start(ctx, room); err != nil {
		t.Fatalf("start a: %v", err)
	}
	waitForState(t, a, session.StateAwaitingPeer)

	if err := b.Start(ctx, room); err != nil {
		t.Fatalf("start b: %v", err)
	}

	waitForState(t, a, session.StateConnected)
	waitForState(t, b, session.StateConnected)
	return a, b, capA, capB
}

func TestPeersNegotiateAndConnect(t *testing.T) {
	a, b, _, _ := startPair(t, "QQQQ11")
	defer a.HangUp()
	defer b.HangUp()

	if a.OwnID() == "" || b.OwnID() == "" {
		t.Fatal("controllers have no connection ids")
	}
	if a.OwnID() == b.OwnID() {
		t.Fatal("controllers share a connection id")
	}

	status := a.LocalStatus()
	if !status.AudioEnabled || !status.VideoEnabled {
		t.Fatalf("local status=%+v, want audio and video live", status)
	}
}

func TestToggleAudioStopsAndReacquires(t *testing.T) {
	a, b, capA, _ := startPair(t, "RRRR22")
	defer a.HangUp()
	defer b.HangUp()

	events := recordEvents(b)

	first := capA.handedOut()[0] // the microphone acquired at Start
	if stopped(first) {
		t.Fatal("microphone stopped while enabled")
	}

	if err := a.ToggleAudio(); err != nil {
		t.Fatalf("mute: %v", err)
	}
	if a.LocalStatus().AudioEnabled {
		t.Fatal("audio still enabled after mute")
	}
	if !stopped(first) {
		t.Fatal("muting did not stop the hardware track")
	}

	events.waitFor(t, "muted peer status", func(ev session.Event) bool {
		return ev.Type == session.EventPeerStatus && !ev.PeerStatus.AudioEnabled
	})

	if err := a.ToggleAudio(); err != nil {
		t.Fatalf("unmute: %v", err)
	}
	if !a.LocalStatus().AudioEnabled {
		t.Fatal("audio not enabled after unmute")
	}

	tracks := capA.handedOut()
	fresh := tracks[len(tracks)-1]
	if fresh == first {
		t.Fatal("unmute reused the stopped track")
	}
	if stopped(fresh) {
		t.Fatal("fresh microphone track already stopped")
	}
}

func TestScreenShareReplacesCamera(t *testing.T) {
	a, b, capA, _ := startPair(t, "SSSS33")
	defer a.HangUp()
	defer b.HangUp()

	events := recordEvents(b)

	camera := capA.handedOut()[1] // acquired after the microphone at Start

	if err := a.ShareScreen(); err != nil {
		t.Fatalf("share screen: %v", err)
	}
	if !a.LocalStatus().ScreenSharing {
		t.Fatal("screen share not reported locally")
	}
	if !stopped(camera) {
		t.Fatal("starting a screen share did not stop the camera track")
	}

	if err := a.ToggleVideo(); !errors.Is(err, session.ErrScreenShareActive) {
		t.Fatalf("toggle video during share err=%v, want %v", err, session.ErrScreenShareActive)
	}

	events.waitFor(t, "screen-sharing peer status", func(ev session.Event) bool {
		return ev.Type == session.EventPeerStatus && ev.PeerStatus.ScreenSharing
	})

	if err := a.StopScreenShare(); err != nil {
		t.Fatalf("stop screen share: %v", err)
	}
	status := a.LocalStatus()
	if status.ScreenSharing || !status.VideoEnabled {
		t.Fatalf("status after stopping share=%+v, want camera back", status)
	}

	tracks := capA.handedOut()
	screen := tracks[2]
	if !stopped(screen) {
		t.Fatal("stopping the share did not stop the screen track")
	}
}

func TestCameraFailureDegradesToReceiveOnly(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	capA := &recordingCapture{Synthetic: media.Synthetic{CameraErr: media.ErrPermissionDenied}}
	capB := &recordingCapture{}
	a := newController(t, url, capA)
	b := newController(t, url, capB)

	if err := a.Start(ctx, "TTTT44"); err != nil {
		t.Fatalf("start a: %v", err)
	}
	if err := b.Start(ctx, "TTTT44"); err != nil {
		t.Fatalf("start b: %v", err)
	}
	defer a.HangUp()
	defer b.HangUp()

	waitForState(t, a, session.StateConnected)
	waitForState(t, b, session.StateConnected)

	status := a.LocalStatus()
	if status.VideoEnabled {
		t.Fatal("video reported live despite a permission failure")
	}
	if !status.AudioEnabled {
		t.Fatal("audio should be unaffected by the camera failure")
	}

	// With no video sender there is nothing to swap a screen track into.
	if err := a.ShareScreen(); !errors.Is(err, session.ErrNoVideoSender) {
		t.Fatalf("share screen err=%v, want %v", err, session.ErrNoVideoSender)
	}

	// The camera coming back cannot help mid-call either: the session
	// negotiated recvonly video, so there is no sender to put a fresh
	// track into until the next negotiation.
	capA.Synthetic.CameraErr = nil
	if err := a.ToggleVideo(); !errors.Is(err, session.ErrNoVideoSender) {
		t.Fatalf("toggle video err=%v, want %v", err, session.ErrNoVideoSender)
	}
	if a.LocalStatus().VideoEnabled {
		t.Fatal("video reported live on a receive-only session")
	}
}

func TestMicrophoneFailureRefusesUnmute(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	capA := &recordingCapture{Synthetic: media.Synthetic{MicrophoneErr: media.ErrDeviceNotFound}}
	a := newController(t, url, capA)
	b := newController(t, url, &recordingCapture{})

	if err := a.Start(ctx, "XXXX88"); err != nil {
		t.Fatalf("start a: %v", err)
	}
	if err := b.Start(ctx, "XXXX88"); err != nil {
		t.Fatalf("start b: %v", err)
	}
	defer a.HangUp()
	defer b.HangUp()

	waitForState(t, a, session.StateConnected)
	waitForState(t, b, session.StateConnected)

	capA.Synthetic.MicrophoneErr = nil
	if err := a.ToggleAudio(); !errors.Is(err, session.ErrNoAudioSender) {
		t.Fatalf("toggle audio err=%v, want %v", err, session.ErrNoAudioSender)
	}
	if a.LocalStatus().AudioEnabled {
		t.Fatal("audio reported live on a receive-only session")
	}
}

func TestLateJoinReplacesPeerConnection(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	capA := &recordingCapture{}
	a := newController(t, url, capA)
	b := newController(t, url, &recordingCapture{})

	if err := a.Start(ctx, "YYYY99"); err != nil {
		t.Fatalf("start a: %v", err)
	}
	waitForState(t, a, session.StateAwaitingPeer)
	if err := b.Start(ctx, "YYYY99"); err != nil {
		t.Fatalf("start b: %v", err)
	}
	waitForState(t, a, session.StateConnected)
	waitForState(t, b, session.StateConnected)
	defer a.HangUp()

	eventsA := recordEvents(a)

	// B drops out of the call entirely and a replacement participant
	// joins the same room. The repeated join must make A destroy the
	// existing peer connection and negotiate a fresh one.
	b.HangUp()
	eventsA.waitFor(t, "peer hang-up", func(ev session.Event) bool {
		return ev.Type == session.EventPeerHangUp
	})

	b2 := newController(t, url, &recordingCapture{})
	if err := b2.Start(ctx, "YYYY99"); err != nil {
		t.Fatalf("start b2: %v", err)
	}
	defer b2.HangUp()

	eventsA.waitFor(t, "renegotiation", func(ev session.Event) bool {
		return ev.Type == session.EventStateChanged && ev.State == session.StateNegotiatingInitiator
	})
	waitForState(t, a, session.StateConnected)
	waitForState(t, b2, session.StateConnected)

	// The replacement connection is the one carrying traffic: a device
	// change on A must reach the newcomer over the fresh control channel.
	eventsB2 := recordEvents(b2)
	eventsB2.waitFor(t, "remote media from the rebuilt connection", func(ev session.Event) bool {
		return ev.Type == session.EventRemoteTrack
	})
	if err := a.ToggleAudio(); err != nil {
		t.Fatalf("mute: %v", err)
	}
	eventsB2.waitFor(t, "muted peer status", func(ev session.Event) bool {
		return ev.Type == session.EventPeerStatus && !ev.PeerStatus.AudioEnabled
	})
}

func TestHangUpNotifiesPeerAndStopsMedia(t *testing.T) {
	a, b, capA, _ := startPair(t, "UUUU55")

	events := recordEvents(b)

	a.HangUp()
	if !a.IsTerminated() {
		t.Fatal("controller not terminated after HangUp")
	}
	for i, track := range capA.handedOut() {
		if !stopped(track) {
			t.Fatalf("track %d still running after HangUp", i)
		}
	}

	events.waitFor(t, "peer hang-up", func(ev session.Event) bool {
		return ev.Type == session.EventPeerHangUp
	})
	b.HangUp()
}

func TestRelayLossSchedulesReconnect(t *testing.T) {
	url := startRelay(t)
	ctx := context.Background()

	capture := &recordingCapture{}
	ctrl := newController(t, url, capture)
	ctrl.ReconnectDelay = 50 * time.Millisecond

	reconnected := make(chan struct{})
	ctrl.OnReconnect(func() { close(reconnected) })

	if err := ctrl.Start(ctx, "VVVV66"); err != nil {
		t.Fatalf("start: %v", err)
	}
	events := recordEvents(ctrl)
	waitForState(t, ctrl, session.StateAwaitingPeer)

	// Kill the controller's own relay connection from underneath it.
	ctrl.CloseTransport()

	events.waitFor(t, "reconnect scheduling", func(ev session.Event) bool {
		return ev.Type == session.EventReconnectScheduled
	})

	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnReconnect never fired")
	}

	for i, track := range capture.handedOut() {
		if !stopped(track) {
			t.Fatalf("track %d still running after the relay dropped", i)
		}
	}
}
