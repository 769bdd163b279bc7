package signaling

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BioHazard786/Keydrop/backend/internal/metrics"
	"github.com/BioHazard786/Keydrop/backend/internal/useragent"
)

// Config tunes the router. Zero values fall back to the defaults.
type Config struct {
	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration
	KeyRoomTTL        time.Duration
	TrustForwardedFor bool

	ParseUserAgent func(string) useragent.Info
	Now            func() time.Time
}

// Router is the entry point for sessions: it admits peers into their rooms
// and dispatches everything they send.
type Router struct {
	cfg      Config
	rooms    *RoomRegistry
	keyRooms *KeyRoomRegistry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewRouter creates a router with empty registries.
func NewRouter(cfg Config, logger *slog.Logger, m *metrics.Metrics) *Router {
	if cfg.KeepaliveInterval <= 0 {
		cfg.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if cfg.KeepaliveTimeout <= 0 {
		cfg.KeepaliveTimeout = 2 * cfg.KeepaliveInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:      cfg,
		rooms:    NewRoomRegistry(m),
		keyRooms: NewKeyRoomRegistry(cfg.KeyRoomTTL, m),
		logger:   logger,
		metrics:  m,
	}
}

func (r *Router) Rooms() *RoomRegistry       { return r.rooms }
func (r *Router) KeyRooms() *KeyRoomRegistry { return r.keyRooms }

// Connect admits a new session: the peer learns its own name, joins its
// room and, with a room key, its key room. Then the keepalive starts.
func (r *Router) Connect(conn Conn, req *http.Request) (*Peer, error) {
	p, err := NewPeer(conn, req, PeerOptions{
		TrustForwardedFor: r.cfg.TrustForwardedFor,
		ParseUserAgent:    r.cfg.ParseUserAgent,
		Now:               r.cfg.Now,
		Metrics:           r.metrics,
	})
	if err != nil {
		return nil, err
	}
	r.metrics.PeerConnected()

	p.send(DisplayNameMessage{
		Type: TypeDisplayName,
		Message: DisplayName{
			DisplayName: p.Name.DisplayName,
			DeviceName:  p.Name.DeviceName,
			RoomIsIP:    p.RoomIsIP,
			RoomID:      p.RoomID,
			RoomKey:     p.RoomKey,
		},
	})

	// Owned by p before it becomes visible, so a leave always cancels it.
	k := newKeepalive(p, r.cfg.KeepaliveInterval, r.cfg.KeepaliveTimeout, r.cfg.Now, r.timeout)
	p.setKeepalive(k)

	r.rooms.Join(p)
	if p.RoomKey != "" {
		r.keyRooms.Join(p)
	}
	k.Start()

	r.logger.Debug("peer connected",
		"peer_id", p.ID,
		"room_id", p.RoomID,
		"room_is_ip", p.RoomIsIP,
		"room_key", p.RoomKey,
		"rtc", p.RTCSupported,
	)
	return p, nil
}

// HandleMessage dispatches one raw inbound message from p. Malformed or
// unroutable input is dropped without a reply.
func (r *Router) HandleMessage(p *Peer, raw []byte) {
	msg, err := ParseInbound(raw)
	if err != nil {
		r.metrics.Dropped(metrics.DropMalformed)
		return
	}

	switch m := msg.(type) {
	case Disconnect:
		r.leave(p)
	case Pong:
		p.Beat(r.cfg.Now())
	case Relay:
		r.relay(p, m)
	}
}

// HandleError reports a transport error. The connection is left alone.
func (r *Router) HandleError(p *Peer, err error) {
	r.logger.Warn("transport error", "peer_id", p.ID, "err", err)
}

// Disconnect is called once the transport of p has closed.
func (r *Router) Disconnect(p *Peer) {
	r.leave(p)
	p.gone.Do(func() {
		r.metrics.PeerDisconnected()
		r.logger.Debug("peer disconnected", "peer_id", p.ID, "room_id", p.RoomID)
	})
}

func (r *Router) leave(p *Peer) {
	r.rooms.Leave(p)
	r.keyRooms.Leave(p)
}

func (r *Router) timeout(p *Peer) {
	r.metrics.KeepaliveTimeout()
	r.logger.Info("peer timed out", "peer_id", p.ID, "room_id", p.RoomID)
	r.rooms.Leave(p)
}

func (r *Router) relay(from *Peer, m Relay) {
	data, err := m.Stamp(from.ID)
	if err != nil {
		r.metrics.Dropped(metrics.DropMalformed)
		return
	}

	switch err := r.rooms.Deliver(from, m.To, data); {
	case err == nil:
		r.metrics.Relayed()
	case errors.Is(err, ErrUnknownRecipient):
		r.metrics.Dropped(metrics.DropUnknownRecipient)
	default:
		r.metrics.Dropped(metrics.DropNotInRoom)
	}
}
