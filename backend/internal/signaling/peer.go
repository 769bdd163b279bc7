package signaling

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/BioHazard786/Keydrop/backend/internal/metrics"
	"github.com/BioHazard786/Keydrop/backend/internal/useragent"
)

const (
	roomKeyLength = 6
	loopbackIPv4  = "127.0.0.1"
)

var ErrMissingPeerID = errors.New("missing peerid")

// Name is the display tuple of a peer, fixed at connection time.
type Name struct {
	Model       string `json:"model,omitempty"`
	OS          string `json:"os,omitempty"`
	Browser     string `json:"browser,omitempty"`
	Type        string `json:"type,omitempty"`
	DeviceName  string `json:"deviceName"`
	DisplayName string `json:"displayName"`
}

// PeerInfo is what other room members learn about a peer.
type PeerInfo struct {
	ID           string `json:"id"`
	Name         Name   `json:"name"`
	RTCSupported bool   `json:"rtcSupported"`
}

// Peer is one connected client.
type Peer struct {
	ID           string
	Code         string
	RoomID       string
	RoomIsIP     bool
	RoomKey      string
	RTCSupported bool
	Name         Name

	conn    Conn
	metrics *metrics.Metrics

	mu        sync.Mutex
	lastBeat  time.Time
	keepalive *Keepalive

	gone sync.Once
}

// PeerOptions controls how request metadata becomes a Peer.
type PeerOptions struct {
	TrustForwardedFor bool
	ParseUserAgent    func(string) useragent.Info
	Now               func() time.Time
	Metrics           *metrics.Metrics
}

// NewPeer builds a Peer from the session request. Only peerid is required.
func NewPeer(conn Conn, r *http.Request, opts PeerOptions) (*Peer, error) {
	q := r.URL.Query()

	id := q.Get("peerid")
	if id == "" {
		return nil, ErrMissingPeerID
	}

	p := &Peer{
		ID:           id,
		Code:         q.Get("code"),
		RoomKey:      ParseRoomKey(q.Get("roomkey")),
		RTCSupported: strings.Contains(r.URL.Path, "webrtc"),
		conn:         conn,
		metrics:      opts.Metrics,
	}

	if roomID := q.Get("roomid"); roomID == "" || roomID == "null" {
		p.RoomID = ClientIP(r, opts.TrustForwardedFor)
		p.RoomIsIP = true
	} else {
		p.RoomID = roomID
	}

	parse := opts.ParseUserAgent
	if parse == nil {
		parse = useragent.Parse
	}
	ua := parse(r.UserAgent())
	p.Name = Name{
		Model:       ua.Model,
		OS:          ua.OS,
		Browser:     ua.Browser,
		Type:        ua.Type,
		DeviceName:  ua.DeviceName(),
		DisplayName: p.Code,
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	p.lastBeat = now()

	return p, nil
}

// ParseRoomKey strips every non-digit from raw and returns the result when
// exactly six digits remain, or "" otherwise.
func ParseRoomKey(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() != roomKeyLength {
		return ""
	}
	return b.String()
}

// ClientIP resolves the address used as an implicit room id. The first
// X-Forwarded-For entry wins when trustProxy is set.
func ClientIP(r *http.Request, trustProxy bool) string {
	var ip string
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		ip, _, _ = strings.Cut(fwd, ",")
		ip = strings.TrimSpace(ip)
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	} else {
		ip = r.RemoteAddr
	}

	if ip == "::1" || ip == "::ffff:127.0.0.1" {
		return loopbackIPv4
	}
	return ip
}

func (p *Peer) Info() PeerInfo {
	return PeerInfo{ID: p.ID, Name: p.Name, RTCSupported: p.RTCSupported}
}

func (p *Peer) String() string {
	return "<Peer id=" + p.ID + " room=" + p.RoomID + ">"
}

// LastBeat is the time of the last liveness evidence.
func (p *Peer) LastBeat() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastBeat
}

// Beat records liveness evidence at t.
func (p *Peer) Beat(t time.Time) {
	p.mu.Lock()
	p.lastBeat = t
	p.mu.Unlock()
}

func (p *Peer) setKeepalive(k *Keepalive) {
	p.mu.Lock()
	p.keepalive = k
	p.mu.Unlock()
}

// stopKeepalive cancels the peer's keepalive, if any.
func (p *Peer) stopKeepalive() {
	p.mu.Lock()
	k := p.keepalive
	p.mu.Unlock()
	if k != nil {
		k.Stop()
	}
}

// send encodes v and queues it. Delivery is best effort.
func (p *Peer) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	p.sendRaw(data)
}

func (p *Peer) sendRaw(data []byte) {
	switch err := p.conn.Send(data); {
	case errors.Is(err, ErrQueueFull):
		p.metrics.Dropped(metrics.DropQueueFull)
	case errors.Is(err, ErrConnClosed):
		p.metrics.Dropped(metrics.DropClosed)
	}
}

func (p *Peer) terminate() {
	p.conn.Terminate()
}
