package config

import (
	"fmt"
	"os"
	"strings"
)

// Default configuration values (production)
const (
	DefaultServerURL = "wss://signal.mockmateapp.dev/ws"
	DefaultOrigin    = "https://mockmateapp.dev"
)

// DefaultSTUNServers mirrors the webapp's ICE list.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun2.l.google.com:19302",
	"stun:stun3.l.google.com:19302",
	"stun:stun4.l.google.com:19302",
}

// Config holds client configuration for the live-interview CLI.
type Config struct {
	// ServerURL is the relay websocket endpoint.
	ServerURL string

	// Origin is the webapp origin used to build shareable join links.
	Origin string

	// ICE servers for WebRTC
	STUNServers []string
	TURNServer  string
	TURNUser    string
	TURNPass    string
	ForceRelay  bool

	// RTP ingest addresses for the local encoder pipeline; ignored when
	// Synthetic is set.
	MicrophoneAddr string
	CameraAddr     string
	ScreenAddr     string
	Synthetic      bool
}

// Options carries CLI flag overrides into Load.
type Options struct {
	ServerURL  string
	Origin     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	MicrophoneAddr string
	CameraAddr     string
	ScreenAddr     string
	Synthetic      bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		ServerURL:      layered(opts.ServerURL, "MOCKMATE_SERVER", DefaultServerURL),
		Origin:         layered(opts.Origin, "MOCKMATE_ORIGIN", DefaultOrigin),
		TURNServer:     layered(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:       layered(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:       layered(opts.TURNPass, "TURN_PASSWORD", ""),
		ForceRelay:     opts.ForceRelay,
		MicrophoneAddr: layered(opts.MicrophoneAddr, "MIC_RTP_ADDR", "127.0.0.1:5004"),
		CameraAddr:     layered(opts.CameraAddr, "CAMERA_RTP_ADDR", "127.0.0.1:5006"),
		ScreenAddr:     layered(opts.ScreenAddr, "SCREEN_RTP_ADDR", "127.0.0.1:5008"),
		Synthetic:      opts.Synthetic,
	}

	if stun := layered(opts.STUNServer, "STUN_SERVER", ""); stun != "" {
		cfg.STUNServers = []string{stun}
	} else {
		cfg.STUNServers = DefaultSTUNServers
	}

	if !strings.HasPrefix(cfg.ServerURL, "ws://") && !strings.HasPrefix(cfg.ServerURL, "wss://") {
		return nil, fmt.Errorf("server URL must be a ws:// or wss:// endpoint, got %q", cfg.ServerURL)
	}

	return cfg, nil
}

func layered(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// GetSTUNServers returns STUN server URLs as strings.
func (c *Config) GetSTUNServers() []string {
	return c.STUNServers
}

// GetTURNServers returns TURN server URLs if configured.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("turn:%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns the TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

