package session

import (
	"encoding/json"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/mockmate-app/mockmate-live/internal/config"
	"github.com/mockmate-app/mockmate-live/internal/netutil"
	"github.com/mockmate-app/mockmate-live/internal/signaling"
)

const gatherTimeout = 10 * time.Second

func newPeerConnection(cfg *config.Config) (*webrtc.PeerConnection, error) {
	var iceServers []webrtc.ICEServer
	if stun := cfg.GetSTUNServers(); len(stun) > 0 {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()

	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	// ForceRelay uses only TURN servers (useful behind restrictive networks)
	// Otherwise use All to try direct P2P first, fall back to TURN if needed
	policy := webrtc.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || netutil.ShouldForceRelay()) {
		policy = webrtc.ICETransportPolicyRelay
	}

	return webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
}

// createOffer produces a local offer and blocks until ICE gathering finishes,
// so the returned description carries every candidate. The web client runs
// without trickle ICE and expects a single complete offer.
func createOffer(pc *webrtc.PeerConnection) (*webrtc.SessionDescription, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, NewError("create offer", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, NewError("set local description", err)
	}

	select {
	case <-gatherComplete:
	case <-time.After(gatherTimeout):
		return nil, WrapError("gather candidates", ErrTimeout, "offer")
	}

	return pc.LocalDescription(), nil
}

// createAnswer mirrors createOffer for the responding side.
func createAnswer(pc *webrtc.PeerConnection) (*webrtc.SessionDescription, error) {
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, NewError("create answer", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return nil, NewError("set local description", err)
	}

	select {
	case <-gatherComplete:
	case <-time.After(gatherTimeout):
		return nil, WrapError("gather candidates", ErrTimeout, "answer")
	}

	return pc.LocalDescription(), nil
}

func decodeSignalData(raw json.RawMessage) (*signaling.SignalData, error) {
	var sd signaling.SignalData
	if err := json.Unmarshal(raw, &sd); err != nil {
		return nil, WrapError("decode signal", err, "")
	}
	return &sd, nil
}

func toSessionDescription(sd *signaling.SignalData) webrtc.SessionDescription {
	return webrtc.SessionDescription{
		Type: webrtc.NewSDPType(sd.Type),
		SDP:  sd.SDP,
	}
}

func toICECandidateInit(c *signaling.Candidate) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}
