package signaling

import (
	"errors"
	"sync"

	"github.com/BioHazard786/Keydrop/backend/internal/metrics"
)

var (
	ErrNotInRoom        = errors.New("sender is not a room member")
	ErrUnknownRecipient = errors.New("recipient is not in the room")
)

// room is the membership of one room id, in join order.
type room struct {
	mu      sync.Mutex
	id      string
	members []*Peer
	// dead is set once the room has been removed from the registry.
	dead bool
}

func (r *room) indexOf(p *Peer) int {
	for i, m := range r.members {
		if m == p {
			return i
		}
	}
	return -1
}

func (r *room) indexOfID(id string) int {
	for i, m := range r.members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// RoomRegistry tracks which peers share a room. The registry lock only
// guards the id to room map; membership changes lock the room itself.
type RoomRegistry struct {
	mu      sync.Mutex
	rooms   map[string]*room
	metrics *metrics.Metrics
}

func NewRoomRegistry(m *metrics.Metrics) *RoomRegistry {
	return &RoomRegistry{
		rooms:   make(map[string]*room),
		metrics: m,
	}
}

// acquire returns the live room for id, creating it when missing, with its
// lock held.
func (rr *RoomRegistry) acquire(id string) *room {
	for {
		rr.mu.Lock()
		r, ok := rr.rooms[id]
		if !ok {
			r = &room{id: id}
			rr.rooms[id] = r
			rr.metrics.RoomCreated()
		}
		rr.mu.Unlock()

		r.mu.Lock()
		if !r.dead {
			return r
		}
		// Emptied and dropped between lookup and lock; look again.
		r.mu.Unlock()
	}
}

// lookup returns the live room for id with its lock held, or nil.
func (rr *RoomRegistry) lookup(id string) *room {
	rr.mu.Lock()
	r := rr.rooms[id]
	rr.mu.Unlock()
	if r == nil {
		return nil
	}
	r.mu.Lock()
	if r.dead {
		r.mu.Unlock()
		return nil
	}
	return r
}

// Join announces p to the room, sends p the members that were already
// there and then adds p.
func (rr *RoomRegistry) Join(p *Peer) {
	r := rr.acquire(p.RoomID)
	defer r.mu.Unlock()

	// A second session with the same id replaces the first.
	replaced := r.indexOfID(p.ID)

	joined := PeerJoinedMessage{Type: TypePeerJoined, Peer: p.Info()}
	others := make([]PeerInfo, 0, len(r.members))
	for i, m := range r.members {
		if i == replaced {
			continue
		}
		m.send(joined)
		others = append(others, m.Info())
	}
	p.send(PeersMessage{Type: TypePeers, Peers: others})

	if replaced >= 0 {
		old := r.members[replaced]
		r.members[replaced] = p
		old.stopKeepalive()
		old.terminate()
		return
	}
	r.members = append(r.members, p)
}

// Leave removes p from its room. It reports false when p was not a member.
func (rr *RoomRegistry) Leave(p *Peer) bool {
	r := rr.lookup(p.RoomID)
	if r == nil {
		return false
	}
	defer r.mu.Unlock()

	i := r.indexOf(p)
	if i < 0 {
		return false
	}

	p.stopKeepalive()
	r.members = append(r.members[:i], r.members[i+1:]...)
	p.terminate()

	if len(r.members) == 0 {
		r.dead = true
		rr.mu.Lock()
		if rr.rooms[r.id] == r {
			delete(rr.rooms, r.id)
			rr.metrics.RoomDeleted()
		}
		rr.mu.Unlock()
		return true
	}

	left := PeerLeftMessage{Type: TypePeerLeft, PeerID: p.ID}
	for _, m := range r.members {
		m.send(left)
	}
	return true
}

// Deliver sends data to the member of from's room whose id is to.
func (rr *RoomRegistry) Deliver(from *Peer, to string, data []byte) error {
	r := rr.lookup(from.RoomID)
	if r == nil {
		return ErrNotInRoom
	}
	defer r.mu.Unlock()

	if r.indexOf(from) < 0 {
		return ErrNotInRoom
	}
	i := r.indexOfID(to)
	if i < 0 {
		return ErrUnknownRecipient
	}
	r.members[i].sendRaw(data)
	return nil
}

// Members lists the peers in roomID in join order.
func (rr *RoomRegistry) Members(roomID string) []PeerInfo {
	r := rr.lookup(roomID)
	if r == nil {
		return nil
	}
	defer r.mu.Unlock()

	out := make([]PeerInfo, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m.Info())
	}
	return out
}

// Contains reports whether p is currently a member of its room.
func (rr *RoomRegistry) Contains(p *Peer) bool {
	r := rr.lookup(p.RoomID)
	if r == nil {
		return false
	}
	defer r.mu.Unlock()
	return r.indexOf(p) >= 0
}

// Len is the number of live rooms.
func (rr *RoomRegistry) Len() int {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return len(rr.rooms)
}
