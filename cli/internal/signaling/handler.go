package signaling

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrConnectionClosed = errors.New("signaling connection closed")

// Handler routes server messages. Room membership is folded into a roster;
// everything else is delivered on typed channels.
type Handler struct {
	client *Client

	Self     chan DisplayName
	PeerLeft chan string
	KeyRoom  chan KeyRoomEvent
	Signal   chan *Message

	mu      sync.Mutex
	peers   map[string]Peer
	order   []string
	changed chan struct{}
	synced  chan struct{}

	closed chan struct{}
}

func NewHandler(client *Client) *Handler {
	return &Handler{
		client:   client,
		Self:     make(chan DisplayName, 1),
		PeerLeft: make(chan string, 16),
		KeyRoom:  make(chan KeyRoomEvent, 8),
		Signal:   make(chan *Message, 64),
		peers:    make(map[string]Peer),
		changed:  make(chan struct{}),
		synced:   make(chan struct{}),
		closed:   make(chan struct{}),
	}
}

// Start consumes the client's messages until the connection ends.
func (h *Handler) Start() {
	defer close(h.closed)

	for msg := range h.client.Incoming() {
		h.dispatch(msg)
	}
}

func (h *Handler) dispatch(msg *Message) {
	switch msg.Type {
	case TypeDisplayName:
		if msg.Message != nil {
			offer(h.Self, *msg.Message)
		}

	case TypePeers:
		h.mu.Lock()
		h.peers = make(map[string]Peer, len(msg.Peers))
		h.order = h.order[:0]
		for _, p := range msg.Peers {
			h.addLocked(p)
		}
		h.notifyLocked()
		select {
		case <-h.synced:
		default:
			close(h.synced)
		}
		h.mu.Unlock()

	case TypePeerJoined:
		if msg.Peer == nil {
			return
		}
		h.mu.Lock()
		h.addLocked(*msg.Peer)
		h.notifyLocked()
		h.mu.Unlock()

	case TypePeerLeft:
		h.mu.Lock()
		h.removeLocked(msg.PeerID)
		h.notifyLocked()
		h.mu.Unlock()
		offer(h.PeerLeft, msg.PeerID)

	case TypeKeyRoomCreated, TypeKeyRoomFull, TypeKeyRoomInvalidRoomKey,
		TypeKeyRoomRoomID, TypeKeyRoomRoomIDReceived, TypeKeyRoomDeleted:
		offer(h.KeyRoom, KeyRoomEvent{Type: msg.Type, RoomKey: msg.RoomKey, RoomID: msg.RoomID})

	case TypeSignal:
		if msg.Sender == "" {
			return
		}
		select {
		case h.Signal <- msg:
		case <-h.client.done:
		}

	default:
		slog.Debug("ignoring signaling message", "type", msg.Type)
	}
}

// offer delivers v unless the channel is full. Buffered channels here hold
// state changes nobody may be waiting for.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

func (h *Handler) addLocked(p Peer) {
	if _, ok := h.peers[p.ID]; !ok {
		h.order = append(h.order, p.ID)
	}
	h.peers[p.ID] = p
}

func (h *Handler) removeLocked(id string) {
	if _, ok := h.peers[id]; !ok {
		return
	}
	delete(h.peers, id)
	for i, v := range h.order {
		if v == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *Handler) notifyLocked() {
	close(h.changed)
	h.changed = make(chan struct{})
}

// Peers returns the current room members in join order.
func (h *Handler) Peers() []Peer {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Peer, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.peers[id])
	}
	return out
}

// Lookup returns the member with the given id.
func (h *Handler) Lookup(id string) (Peer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.peers[id]
	return p, ok
}

// WaitForPeer blocks until a member satisfies match, the context ends or
// the connection closes.
func (h *Handler) WaitForPeer(ctx context.Context, match func(Peer) bool) (Peer, error) {
	for {
		h.mu.Lock()
		for _, id := range h.order {
			if p := h.peers[id]; match(p) {
				h.mu.Unlock()
				return p, nil
			}
		}
		changed := h.changed
		h.mu.Unlock()

		select {
		case <-changed:
		case <-h.closed:
			return Peer{}, ErrConnectionClosed
		case <-ctx.Done():
			return Peer{}, ctx.Err()
		}
	}
}

// Synced is closed once the first room snapshot has arrived.
func (h *Handler) Synced() <-chan struct{} {
	return h.synced
}

// Closed is closed once the server connection has ended.
func (h *Handler) Closed() <-chan struct{} {
	return h.closed
}
