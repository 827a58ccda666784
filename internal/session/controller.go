package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/mockmate-app/mockmate-live/internal/config"
	"github.com/mockmate-app/mockmate-live/internal/control"
	"github.com/mockmate-app/mockmate-live/internal/media"
	"github.com/mockmate-app/mockmate-live/internal/signaling"
)

const (
	clientName    = "mockmate-live"
	clientVersion = "1.0.0"

	helloTimeout = 10 * time.Second

	// DefaultReconnectDelay matches the pause the webapp takes before
	// reloading the call page after a dropped relay connection.
	DefaultReconnectDelay = 2 * time.Second
)

// Controller drives one peer session: it joins the video room, negotiates a
// single peer connection through the relay, and owns the local capture
// tracks for the lifetime of the call.
//
// The relay decides roles implicitly. Whoever is already in the room when
// the second participant arrives receives "user-joined" and initiates;
// the newcomer receives the offer as "other-user" and responds. A repeated
// offer tears the current peer connection down and builds a fresh one, so a
// peer reloading mid-call renegotiates cleanly.
type Controller struct {
	cfg     *config.Config
	client  *signaling.Client
	handler *signaling.Handler
	capture media.Capture

	room  string
	ownID string
	ctx   context.Context

	mu          sync.Mutex
	state       State
	pc          *webrtc.PeerConnection
	dataChannel *webrtc.DataChannel

	audioTrack  media.Track
	videoTrack  media.Track
	screenTrack media.Track
	audioSender *webrtc.RTPSender
	videoSender *webrtc.RTPSender

	audioEnabled  bool
	videoEnabled  bool
	screenSharing bool

	events chan Event
	done   chan struct{}
	once   sync.Once

	// ReconnectDelay is how long to wait after losing the relay before
	// calling the reconnect callback.
	ReconnectDelay time.Duration

	onReconnect func()
}

// NewController wires a controller onto an already-connected signaling
// client whose handler has been started.
func NewController(cfg *config.Config, client *signaling.Client, handler *signaling.Handler, capture media.Capture) *Controller {
	return &Controller{
		cfg:            cfg,
		client:         client,
		handler:        handler,
		capture:        capture,
		state:          StateIdle,
		events:         make(chan Event, 32),
		done:           make(chan struct{}),
		ReconnectDelay: DefaultReconnectDelay,
	}
}

// OnReconnect registers a callback invoked once, ReconnectDelay after the
// relay connection drops mid-call. Callers typically rebuild the whole
// session in it.
func (c *Controller) OnReconnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReconnect = fn
}

// Events returns the stream the UI renders from.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// OwnID returns the relay-assigned connection id. Empty before Start.
func (c *Controller) OwnID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ownID
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LocalStatus reports which local devices are live.
func (c *Controller) LocalStatus() control.PeerStatusPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return control.PeerStatusPayload{
		AudioEnabled:  c.audioEnabled,
		VideoEnabled:  c.videoEnabled,
		ScreenSharing: c.screenSharing,
	}
}

// Start waits for the relay hello, acquires local media, joins the video
// room, and begins handling negotiation traffic. Capture failures degrade to
// a receive-only session rather than aborting.
func (c *Controller) Start(ctx context.Context, room string) error {
	select {
	case id := <-c.handler.Connected:
		c.mu.Lock()
		c.ownID = id
		c.mu.Unlock()
	case <-c.handler.Disconnected:
		return NewError("join room", ErrSignalingError)
	case <-time.After(helloTimeout):
		return WrapError("join room", ErrTimeout, "no hello from relay")
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	c.ctx = ctx
	c.room = room

	if track, err := c.capture.Microphone(ctx); err != nil {
		slog.Warn("microphone unavailable, continuing without audio", "err", err)
		c.emit(Event{Type: EventError, Err: err})
	} else {
		c.audioTrack = track
		c.audioEnabled = true
	}

	if track, err := c.capture.Camera(ctx); err != nil {
		slog.Warn("camera unavailable, continuing without video", "err", err)
		c.emit(Event{Type: EventError, Err: err})
	} else {
		c.videoTrack = track
		c.videoEnabled = true
	}

	c.setStateLocked(StateAwaitingPeer)
	c.mu.Unlock()

	c.client.SendMessage(&signaling.Message{
		Type: signaling.MessageTypeJoinVideoRoom,
		Room: room,
	})

	go c.run()
	return nil
}

func (c *Controller) run() {
	for {
		select {
		case <-c.done:
			return

		case id := <-c.handler.UserJoined:
			slog.Debug("peer joined, initiating", "peer", id)
			if err := c.startInitiator(); err != nil {
				c.emit(Event{Type: EventError, Err: err})
			}

		case rs := <-c.handler.OtherUser:
			slog.Debug("offer received, responding", "peer", rs.ID)
			if err := c.startResponder(rs); err != nil {
				c.emit(Event{Type: EventError, Err: err})
			}

		case rs := <-c.handler.Signal:
			if err := c.handleSignal(rs); err != nil {
				c.emit(Event{Type: EventError, Err: err})
			}

		case <-c.handler.Disconnected:
			c.handleDisconnect()
			return
		}
	}
}

// startInitiator builds a peer connection, attaches local media and the
// control channel, and sends a complete offer through the relay.
func (c *Controller) startInitiator() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateTerminated {
		return nil
	}

	c.destroyPeerLocked()

	pc, err := newPeerConnection(c.cfg)
	if err != nil {
		return NewError("create peer connection", err)
	}
	c.pc = pc
	c.setupPeerLocked(pc)

	if err := c.attachLocalLocked(pc); err != nil {
		return err
	}

	dc, err := pc.CreateDataChannel(control.ChannelLabel, nil)
	if err != nil {
		return NewError("create control channel", err)
	}
	c.setupControlChannelLocked(dc)

	offer, err := createOffer(pc)
	if err != nil {
		return err
	}

	msg, err := signaling.EncodeSignal(c.room, signaling.SignalData{
		Type: offer.Type.String(),
		SDP:  offer.SDP,
	})
	if err != nil {
		return WrapError("send offer", err, "")
	}
	c.client.SendMessage(msg)

	c.setStateLocked(StateNegotiatingInitiator)
	return nil
}

// startResponder answers an incoming offer. Any existing peer connection is
// destroyed first.
func (c *Controller) startResponder(rs *signaling.RemoteSignal) error {
	sd, err := decodeSignalData(rs.Signal)
	if err != nil {
		return err
	}
	if sd.Type != "offer" {
		return WrapError("respond", ErrUnexpectedSignal, sd.Type)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateTerminated {
		return nil
	}

	c.destroyPeerLocked()

	pc, err := newPeerConnection(c.cfg)
	if err != nil {
		return NewError("create peer connection", err)
	}
	c.pc = pc
	c.setupPeerLocked(pc)

	if err := c.attachLocalLocked(pc); err != nil {
		return err
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != control.ChannelLabel {
			return
		}
		c.mu.Lock()
		c.setupControlChannelLocked(dc)
		c.mu.Unlock()
	})

	if err := pc.SetRemoteDescription(toSessionDescription(sd)); err != nil {
		return NewError("set remote offer", err)
	}

	answer, err := createAnswer(pc)
	if err != nil {
		return err
	}

	msg, err := signaling.EncodeSignal(c.room, signaling.SignalData{
		Type: answer.Type.String(),
		SDP:  answer.SDP,
	})
	if err != nil {
		return WrapError("send answer", err, "")
	}
	c.client.SendMessage(msg)

	c.setStateLocked(StateNegotiatingResponder)
	return nil
}

// handleSignal applies an answer or a trickled candidate from the peer.
func (c *Controller) handleSignal(rs *signaling.RemoteSignal) error {
	sd, err := decodeSignalData(rs.Signal)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pc == nil {
		return nil
	}

	switch {
	case sd.Candidate != nil:
		if err := c.pc.AddICECandidate(toICECandidateInit(sd.Candidate)); err != nil {
			return NewError("add candidate", err)
		}

	case sd.Type == "answer":
		if c.state != StateNegotiatingInitiator {
			return nil
		}
		if err := c.pc.SetRemoteDescription(toSessionDescription(sd)); err != nil {
			return NewError("set remote answer", err)
		}

	default:
		return WrapError("handle signal", ErrUnexpectedSignal, sd.Type)
	}

	return nil
}

func (c *Controller) setupPeerLocked(pc *webrtc.PeerConnection) {
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateConnected:
			c.mu.Lock()
			// A stale callback from a destroyed connection must not
			// resurrect the session.
			if c.pc == pc {
				c.setStateLocked(StateConnected)
			}
			c.mu.Unlock()

		case webrtc.PeerConnectionStateFailed:
			c.emit(Event{Type: EventError, Err: NewError("peer connection", ErrConnectionFailed)})
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.emit(Event{Type: EventRemoteTrack, TrackKind: track.Kind().String()})

		// Keep the receive pipeline draining so congestion feedback stays
		// accurate. Rendering is out of scope for the terminal client.
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := track.Read(buf); err != nil {
					return
				}
			}
		}()
	})
}

func (c *Controller) attachLocalLocked(pc *webrtc.PeerConnection) error {
	if c.audioTrack != nil {
		sender, err := pc.AddTrack(c.audioTrack.Local())
		if err != nil {
			return NewError("add audio track", err)
		}
		c.audioSender = sender
		go drainRTCP(sender)
	} else {
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			return NewError("add audio transceiver", err)
		}
		c.audioSender = nil
	}

	track := c.videoTrack
	if c.screenSharing {
		track = c.screenTrack
	}
	if track != nil {
		sender, err := pc.AddTrack(track.Local())
		if err != nil {
			return NewError("add video track", err)
		}
		c.videoSender = sender
		go drainRTCP(sender)
	} else {
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			return NewError("add video transceiver", err)
		}
		c.videoSender = nil
	}

	return nil
}

// drainRTCP reads and discards incoming RTCP packets. The interceptor chain
// needs the reads to happen for NACK and congestion control to work.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

func (c *Controller) setupControlChannelLocked(dc *webrtc.DataChannel) {
	c.dataChannel = dc

	dc.OnOpen(func() {
		c.sendControl(control.TypeHello, control.HelloPayload{
			ClientName:    clientName,
			ClientVersion: clientVersion,
		})
		c.sendControl(control.TypePeerStatus, c.LocalStatus())
	})

	dc.OnMessage(func(raw webrtc.DataChannelMessage) {
		msg, err := control.Decode(raw.Data)
		if err != nil {
			slog.Debug("malformed control message", "err", err)
			return
		}

		switch msg.Type {
		case control.TypePeerStatus:
			var status control.PeerStatusPayload
			if err := msg.DecodePayload(&status); err != nil {
				return
			}
			c.emit(Event{Type: EventPeerStatus, PeerStatus: &status})

		case control.TypeHangUp:
			c.emit(Event{Type: EventPeerHangUp})

		case control.TypeHello:
			// informational only
		}
	})
}

func (c *Controller) sendControl(msgType string, payload any) {
	c.mu.Lock()
	dc := c.dataChannel
	c.mu.Unlock()

	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return
	}

	msg, err := control.NewMessage(msgType, payload)
	if err != nil {
		return
	}
	b, err := msg.Encode()
	if err != nil {
		return
	}
	if err := dc.Send(b); err != nil {
		slog.Debug("control send failed", "type", msgType, "err", err)
	}
}

func (c *Controller) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.emit(Event{Type: EventStateChanged, State: s})
}

func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		slog.Warn("dropping session event", "type", ev.Type)
	}
}

// destroyPeerLocked closes the current peer connection but leaves capture
// tracks running so they can be re-attached to a replacement connection.
func (c *Controller) destroyPeerLocked() {
	if c.pc == nil {
		return
	}
	if err := c.pc.Close(); err != nil {
		slog.Debug("closing peer connection", "err", err)
	}
	c.pc = nil
	c.dataChannel = nil
	c.audioSender = nil
	c.videoSender = nil
}

func (c *Controller) stopTracksLocked() {
	for _, t := range []media.Track{c.audioTrack, c.videoTrack, c.screenTrack} {
		if t != nil {
			if err := t.Stop(); err != nil {
				slog.Debug("stopping track", "err", err)
			}
		}
	}
	c.audioTrack = nil
	c.videoTrack = nil
	c.screenTrack = nil
	c.audioEnabled = false
	c.videoEnabled = false
	c.screenSharing = false
}

func (c *Controller) handleDisconnect() {
	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return
	}

	c.stopTracksLocked()
	c.destroyPeerLocked()
	c.setStateLocked(StateIdle)
	delay := c.ReconnectDelay
	reconnect := c.onReconnect
	c.mu.Unlock()

	c.emit(Event{Type: EventError, Err: NewError("relay", ErrSignalingError)})
	c.emit(Event{Type: EventReconnectScheduled, Delay: delay})

	if reconnect != nil {
		time.AfterFunc(delay, reconnect)
	}
}

// HangUp notifies the peer, releases all media, and permanently terminates
// the session.
func (c *Controller) HangUp() {
	c.sendControl(control.TypeHangUp, control.HangUpPayload{Reason: "hang-up"})

	c.mu.Lock()
	c.stopTracksLocked()
	c.destroyPeerLocked()
	c.setStateLocked(StateTerminated)
	c.mu.Unlock()

	c.once.Do(func() { close(c.done) })
	c.client.Close()
}

// CloseTransport drops the relay connection without terminating the
// session, triggering the same recovery path as a real network loss.
func (c *Controller) CloseTransport() {
	c.client.Close()
}

// IsTerminated reports whether HangUp completed.
func (c *Controller) IsTerminated() bool {
	return c.State() == StateTerminated
}
