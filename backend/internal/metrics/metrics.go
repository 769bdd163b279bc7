// Package metrics holds the Prometheus collectors of the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "keydrop"

// Drop reasons for relayed messages.
const (
	DropMalformed        = "malformed"
	DropUnknownRecipient = "unknown_recipient"
	DropNotInRoom        = "not_in_room"
	DropQueueFull        = "queue_full"
	DropClosed           = "closed"
)

// Key-room lifecycle events.
const (
	KeyRoomCreated    = "created"
	KeyRoomFull       = "full"
	KeyRoomInvalidKey = "invalid_key"
	KeyRoomHandedOff  = "handed_off"
	KeyRoomDeleted    = "deleted"
	KeyRoomExpired    = "expired"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	peers             prometheus.Gauge
	rooms             prometheus.Gauge
	keyRooms          prometheus.Gauge
	relayed           prometheus.Counter
	dropped           *prometheus.CounterVec
	keyRoomEvents     *prometheus.CounterVec
	keepaliveTimeouts prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the relay collectors on reg. A nil reg uses a fresh
// private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		peers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_peers",
			Help:      "Number of peers with an open session.",
		}),
		rooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Number of rooms with at least one member.",
		}),
		keyRooms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "key_rooms",
			Help:      "Number of live key rooms.",
		}),
		relayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_messages_total",
			Help:      "Addressed messages forwarded to a room member.",
		}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_messages_total",
			Help:      "Inbound or outbound messages discarded, by reason.",
		}, []string{"reason"}),
		keyRoomEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_room_events_total",
			Help:      "Key room lifecycle events, by event.",
		}, []string{"event"}),
		keepaliveTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keepalive_timeouts_total",
			Help:      "Peers removed because no pong arrived in time.",
		}),
		gatherer: reg,
	}
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) PeerConnected() {
	if m != nil {
		m.peers.Inc()
	}
}

func (m *Metrics) PeerDisconnected() {
	if m != nil {
		m.peers.Dec()
	}
}

func (m *Metrics) RoomCreated() {
	if m != nil {
		m.rooms.Inc()
	}
}

func (m *Metrics) RoomDeleted() {
	if m != nil {
		m.rooms.Dec()
	}
}

// KeyRoomEvent counts event and keeps the live key-room gauge in step.
func (m *Metrics) KeyRoomEvent(event string) {
	if m == nil {
		return
	}
	m.keyRoomEvents.WithLabelValues(event).Inc()
	switch event {
	case KeyRoomCreated:
		m.keyRooms.Inc()
	case KeyRoomDeleted, KeyRoomExpired:
		m.keyRooms.Dec()
	}
}

func (m *Metrics) Relayed() {
	if m != nil {
		m.relayed.Inc()
	}
}

func (m *Metrics) Dropped(reason string) {
	if m != nil {
		m.dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) KeepaliveTimeout() {
	if m != nil {
		m.keepaliveTimeouts.Inc()
	}
}
