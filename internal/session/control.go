package session

import (
	"log/slog"

	"github.com/mockmate-app/mockmate-live/internal/control"
)

// ToggleAudio mutes or unmutes the microphone. Muting stops the capture
// track outright so the device indicator goes dark; unmuting acquires a
// fresh track and swaps it into the live sender without renegotiating.
func (c *Controller) ToggleAudio() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateTerminated {
		return NewError("toggle audio", ErrSessionTerminated)
	}

	if c.audioEnabled {
		if c.audioTrack != nil {
			if err := c.audioTrack.Stop(); err != nil {
				slog.Debug("stopping microphone", "err", err)
			}
			c.audioTrack = nil
		}
		if c.audioSender != nil {
			if err := c.audioSender.ReplaceTrack(nil); err != nil {
				return NewError("toggle audio", err)
			}
		}
		c.audioEnabled = false
	} else {
		// A session that negotiated without a microphone has only a
		// recvonly audio transceiver; there is no sender to swap a fresh
		// track into until the next negotiation.
		if c.pc != nil && c.audioSender == nil {
			return NewError("toggle audio", ErrNoAudioSender)
		}
		track, err := c.capture.Microphone(c.ctx)
		if err != nil {
			return WrapError("toggle audio", err, "reacquire microphone")
		}
		if c.audioSender != nil {
			if err := c.audioSender.ReplaceTrack(track.Local()); err != nil {
				track.Stop()
				return NewError("toggle audio", err)
			}
		}
		c.audioTrack = track
		c.audioEnabled = true
	}

	c.notifyPeerStatusLocked()
	return nil
}

// ToggleVideo mutes or unmutes the camera with the same stop-and-replace
// semantics as ToggleAudio. It refuses to touch the video sender while a
// screen share is running.
func (c *Controller) ToggleVideo() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateTerminated {
		return NewError("toggle video", ErrSessionTerminated)
	}
	if c.screenSharing {
		return NewError("toggle video", ErrScreenShareActive)
	}

	if c.videoEnabled {
		if c.videoTrack != nil {
			if err := c.videoTrack.Stop(); err != nil {
				slog.Debug("stopping camera", "err", err)
			}
			c.videoTrack = nil
		}
		if c.videoSender != nil {
			if err := c.videoSender.ReplaceTrack(nil); err != nil {
				return NewError("toggle video", err)
			}
		}
		c.videoEnabled = false
	} else {
		if c.pc != nil && c.videoSender == nil {
			return NewError("toggle video", ErrNoVideoSender)
		}
		track, err := c.capture.Camera(c.ctx)
		if err != nil {
			return WrapError("toggle video", err, "reacquire camera")
		}
		if c.videoSender != nil {
			if err := c.videoSender.ReplaceTrack(track.Local()); err != nil {
				track.Stop()
				return NewError("toggle video", err)
			}
		}
		c.videoTrack = track
		c.videoEnabled = true
	}

	c.notifyPeerStatusLocked()
	return nil
}

// ShareScreen swaps the outgoing video from the camera to a screen capture
// track. The camera track is stopped, not paused; StopScreenShare acquires a
// fresh one.
func (c *Controller) ShareScreen() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateTerminated {
		return NewError("share screen", ErrSessionTerminated)
	}
	if c.screenSharing {
		return nil
	}
	if c.videoSender == nil {
		return NewError("share screen", ErrNoVideoSender)
	}

	screen, err := c.capture.Screen(c.ctx)
	if err != nil {
		return WrapError("share screen", err, "acquire screen")
	}

	if err := c.videoSender.ReplaceTrack(screen.Local()); err != nil {
		screen.Stop()
		return NewError("share screen", err)
	}

	if c.videoTrack != nil {
		if err := c.videoTrack.Stop(); err != nil {
			slog.Debug("stopping camera", "err", err)
		}
		c.videoTrack = nil
	}

	c.screenTrack = screen
	c.screenSharing = true
	c.videoEnabled = false

	c.notifyPeerStatusLocked()
	return nil
}

// StopScreenShare returns the outgoing video to the camera. If the camera
// cannot be reacquired the video slot goes dark instead of failing the call.
func (c *Controller) StopScreenShare() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.screenSharing {
		return nil
	}

	if c.screenTrack != nil {
		if err := c.screenTrack.Stop(); err != nil {
			slog.Debug("stopping screen capture", "err", err)
		}
		c.screenTrack = nil
	}
	c.screenSharing = false

	track, err := c.capture.Camera(c.ctx)
	if err != nil {
		if c.videoSender != nil {
			c.videoSender.ReplaceTrack(nil)
		}
		c.notifyPeerStatusLocked()
		return WrapError("stop screen share", err, "reacquire camera")
	}

	if c.videoSender != nil {
		if err := c.videoSender.ReplaceTrack(track.Local()); err != nil {
			track.Stop()
			c.notifyPeerStatusLocked()
			return NewError("stop screen share", err)
		}
	}
	c.videoTrack = track
	c.videoEnabled = true

	c.notifyPeerStatusLocked()
	return nil
}

// notifyPeerStatusLocked pushes the local device status over the control
// channel. Called with c.mu held; the send itself happens off-lock.
func (c *Controller) notifyPeerStatusLocked() {
	status := control.PeerStatusPayload{
		AudioEnabled:  c.audioEnabled,
		VideoEnabled:  c.videoEnabled,
		ScreenSharing: c.screenSharing,
	}
	go c.sendControl(control.TypePeerStatus, status)
}
