package media

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// RTPConfig names the local UDP addresses an encoder pipeline (GStreamer,
// ffmpeg) delivers RTP to, one per device. An empty address means the device
// is absent on this host.
type RTPConfig struct {
	MicrophoneAddr string
	CameraAddr     string
	ScreenAddr     string
}

// RTPCapture acquires tracks by binding the device's UDP port and pumping
// RTP packets into a local track. Binding doubles as the hardware handle:
// while a track is live nobody else can bind the port, and Stop releases it.
type RTPCapture struct {
	cfg RTPConfig
}

func NewRTPCapture(cfg RTPConfig) *RTPCapture {
	return &RTPCapture{cfg: cfg}
}

func (c *RTPCapture) Microphone(ctx context.Context) (Track, error) {
	return c.acquire(ctx, KindAudio, c.cfg.MicrophoneAddr,
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "mockmate-mic", 1200)
}

func (c *RTPCapture) Camera(ctx context.Context) (Track, error) {
	return c.acquire(ctx, KindVideo, c.cfg.CameraAddr,
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "mockmate-camera", 1400)
}

func (c *RTPCapture) Screen(ctx context.Context) (Track, error) {
	return c.acquire(ctx, KindVideo, c.cfg.ScreenAddr,
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "mockmate-screen", 1400)
}

func (c *RTPCapture) acquire(ctx context.Context, kind Kind, addr string, codec webrtc.RTPCodecCapability, id, streamID string, mtu int) (Track, error) {
	if addr == "" {
		return nil, &CaptureError{Kind: kind, Err: ErrDeviceNotFound, Details: "no ingest address configured"}
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, &CaptureError{Kind: kind, Err: ErrUnsupported, Details: err.Error()}
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		// The port is the device handle; failing to bind means another
		// session still holds it.
		return nil, &CaptureError{Kind: kind, Err: ErrDeviceInUse, Details: err.Error()}
	}

	local, err := webrtc.NewTrackLocalStaticRTP(codec, id, streamID)
	if err != nil {
		conn.Close()
		return nil, &CaptureError{Kind: kind, Err: ErrUnsupported, Details: err.Error()}
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	t := &rtpTrack{
		kind:   kind,
		local:  local,
		conn:   conn,
		cancel: cancel,
	}
	go t.pump(pumpCtx, mtu)
	return t, nil
}

type rtpTrack struct {
	kind    Kind
	local   *webrtc.TrackLocalStaticRTP
	conn    *net.UDPConn
	cancel  context.CancelFunc
	stopped bool
}

func (t *rtpTrack) Local() webrtc.TrackLocal { return t.local }
func (t *rtpTrack) Kind() Kind               { return t.kind }

// Stop cancels the pump and closes the socket, releasing the device handle.
func (t *rtpTrack) Stop() error {
	if t.stopped {
		return nil
	}
	t.stopped = true
	t.cancel()
	return t.conn.Close()
}

// pump copies RTP packets from the ingest socket onto the track until the
// track is stopped. Short read deadlines keep cancellation prompt.
func (t *rtpTrack) pump(ctx context.Context, mtu int) {
	buf := make([]byte, mtu)
	for {
		_ = t.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))

		n, _, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				select {
				case <-ctx.Done():
					return
				default:
					continue
				}
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Error("rtp ingest read failed", "kind", t.kind, "err", err)
			return
		}

		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			// ignore non-RTP
			continue
		}
		if err := t.local.WriteRTP(&pkt); err != nil {
			slog.Error("write to track failed", "kind", t.kind, "err", err)
			return
		}
	}
}
