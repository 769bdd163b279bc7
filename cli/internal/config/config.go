package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

const (
	DefaultServer = "ws://localhost:3000"
	DefaultSTUN   = "stun:stun.l.google.com:19302"

	// signalingPath carries "webrtc" so the server marks this client as
	// WebRTC capable.
	signalingPath = "/ws/webrtc"
)

var ErrRelayWithoutTURN = errors.New("cannot force relay mode without a TURN server")

// Config is the resolved client configuration.
type Config struct {
	// Server is the signaling server base URL (ws, wss, http or https).
	Server string

	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
}

// Options carries command line overrides. Empty fields fall through to the
// environment and then to the defaults.
type Options struct {
	Server     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
}

// Session identifies this client to the signaling server.
type Session struct {
	PeerID  string
	Code    string
	RoomID  string
	RoomKey string
}

// Load resolves each setting as flag > env > default.
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		Server:     pick(opts.Server, "KEYDROP_SERVER", DefaultServer),
		STUNServer: pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer: pick(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:   pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:   pick(opts.TURNPass, "TURN_PASSWORD", ""),
		ForceRelay: opts.ForceRelay,
	}

	if !cfg.ForceRelay {
		if v := os.Getenv("FORCE_RELAY"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("FORCE_RELAY: %w", err)
			}
			cfg.ForceRelay = b
		}
	}

	if _, err := cfg.SignalingURL(Session{}); err != nil {
		return nil, err
	}
	if cfg.ForceRelay && cfg.TURNServer == "" {
		return nil, ErrRelayWithoutTURN
	}
	return cfg, nil
}

func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// SignalingURL builds the websocket URL for s. http(s) schemes are mapped to
// ws(s), and a bare host gets the default signaling path.
func (c *Config) SignalingURL(s Session) (string, error) {
	u, err := url.Parse(c.Server)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server URL %q: unsupported scheme", c.Server)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", c.Server)
	}
	if strings.Trim(u.Path, "/") == "" {
		u.Path = signalingPath
	}

	q := u.Query()
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("peerid", s.PeerID)
	set("code", s.Code)
	set("roomid", s.RoomID)
	set("roomkey", s.RoomKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// GetSTUNServers returns STUN server URLs
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN URLs for udp, tcp and tls, or nil when no
// TURN server is configured. A server given with a scheme is used as is.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	if strings.HasPrefix(c.TURNServer, "turn:") || strings.HasPrefix(c.TURNServer, "turns:") {
		return []string{c.TURNServer}
	}
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("turn:%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
