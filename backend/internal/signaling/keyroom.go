package signaling

import (
	"sync"
	"time"

	"github.com/BioHazard786/Keydrop/backend/internal/metrics"
)

const DefaultKeyRoomTTL = 10 * time.Minute

// keyRoom is a pairing room. members[0] is the creator.
type keyRoom struct {
	mu      sync.Mutex
	key     string
	members []*Peer
	expiry  *time.Timer
	dead    bool
}

func (kr *keyRoom) indexOf(p *Peer) int {
	for i, m := range kr.members {
		if m == p {
			return i
		}
	}
	return -1
}

// KeyRoomRegistry hands the room id of a creator to peers that know the
// creator's six digit key.
type KeyRoomRegistry struct {
	mu      sync.Mutex
	rooms   map[string]*keyRoom
	ttl     time.Duration
	metrics *metrics.Metrics
}

func NewKeyRoomRegistry(ttl time.Duration, m *metrics.Metrics) *KeyRoomRegistry {
	if ttl <= 0 {
		ttl = DefaultKeyRoomTTL
	}
	return &KeyRoomRegistry{
		rooms:   make(map[string]*keyRoom),
		ttl:     ttl,
		metrics: m,
	}
}

// Join creates a key room when p chose its room explicitly, and resolves
// the key for p otherwise. Peers without a room key are ignored.
func (kr *KeyRoomRegistry) Join(p *Peer) {
	if p.RoomKey == "" {
		return
	}
	if p.RoomIsIP {
		kr.resolve(p)
		return
	}
	kr.create(p)
}

func (kr *KeyRoomRegistry) create(p *Peer) {
	kr.mu.Lock()
	if _, exists := kr.rooms[p.RoomKey]; exists {
		kr.mu.Unlock()
		p.send(KeyRoomMessage{Type: TypeKeyRoomFull, RoomKey: p.RoomKey})
		kr.metrics.KeyRoomEvent(metrics.KeyRoomFull)
		return
	}

	room := &keyRoom{key: p.RoomKey}
	// Locked before it is visible so no one else can hold it yet.
	room.mu.Lock()
	kr.rooms[p.RoomKey] = room
	kr.mu.Unlock()
	defer room.mu.Unlock()

	p.send(KeyRoomMessage{Type: TypeKeyRoomCreated, RoomKey: p.RoomKey})
	room.members = append(room.members, p)
	room.expiry = time.AfterFunc(kr.ttl, func() { kr.expire(room) })
	kr.metrics.KeyRoomEvent(metrics.KeyRoomCreated)
}

func (kr *KeyRoomRegistry) resolve(p *Peer) {
	kr.mu.Lock()
	room := kr.rooms[p.RoomKey]
	kr.mu.Unlock()

	if room == nil {
		kr.rejectKey(p)
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.dead || len(room.members) == 0 {
		kr.rejectKey(p)
		return
	}

	creator := room.members[0]
	p.send(KeyRoomIDMessage{Type: TypeKeyRoomRoomID, RoomID: creator.RoomID})
	creator.send(KeyRoomMessage{Type: TypeKeyRoomRoomIDReceived, RoomKey: p.RoomKey})
	kr.metrics.KeyRoomEvent(metrics.KeyRoomHandedOff)
}

func (kr *KeyRoomRegistry) rejectKey(p *Peer) {
	p.send(KeyRoomMessage{Type: TypeKeyRoomInvalidRoomKey, RoomKey: p.RoomKey})
	kr.metrics.KeyRoomEvent(metrics.KeyRoomInvalidKey)
}

// Leave removes p from its key room. The room goes away with its creator
// or its last member.
func (kr *KeyRoomRegistry) Leave(p *Peer) bool {
	if p.RoomKey == "" {
		return false
	}
	kr.mu.Lock()
	room := kr.rooms[p.RoomKey]
	kr.mu.Unlock()
	if room == nil {
		return false
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.dead {
		return false
	}
	i := room.indexOf(p)
	if i < 0 {
		return false
	}

	room.members = append(room.members[:i], room.members[i+1:]...)
	if i == 0 || len(room.members) == 0 {
		kr.destroy(room, metrics.KeyRoomDeleted)
	}
	return true
}

func (kr *KeyRoomRegistry) expire(room *keyRoom) {
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.dead {
		return
	}
	kr.destroy(room, metrics.KeyRoomExpired)
}

// destroy tells the remaining members, cancels the expiry and drops the
// room. The caller holds room.mu.
func (kr *KeyRoomRegistry) destroy(room *keyRoom, event string) {
	deleted := KeyRoomMessage{Type: TypeKeyRoomDeleted, RoomKey: room.key}
	for _, m := range room.members {
		m.send(deleted)
	}
	room.members = nil
	room.dead = true
	if room.expiry != nil {
		room.expiry.Stop()
	}

	kr.mu.Lock()
	if kr.rooms[room.key] == room {
		delete(kr.rooms, room.key)
	}
	kr.mu.Unlock()
	kr.metrics.KeyRoomEvent(event)
}

// Exists reports whether a live key room holds key.
func (kr *KeyRoomRegistry) Exists(key string) bool {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	_, ok := kr.rooms[key]
	return ok
}

// Len is the number of live key rooms.
func (kr *KeyRoomRegistry) Len() int {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	return len(kr.rooms)
}
