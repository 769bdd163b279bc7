package signaling

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Message types sent by the server.
const (
	TypeDisplayName           = "display-name"
	TypePeers                 = "peers"
	TypePeerJoined            = "peer-joined"
	TypePeerLeft              = "peer-left"
	TypePing                  = "ping"
	TypeKeyRoomCreated        = "key-room-created"
	TypeKeyRoomFull           = "key-room-full"
	TypeKeyRoomInvalidRoomKey = "key-room-invalid-room-key"
	TypeKeyRoomRoomID         = "key-room-room-id"
	TypeKeyRoomRoomIDReceived = "key-room-room-id-received"
	TypeKeyRoomDeleted        = "key-room-deleted"
)

// Control types understood from clients.
const (
	TypeDisconnect = "disconnect"
	TypePong       = "pong"
)

// DisplayName tells a freshly connected peer how the server sees it.
type DisplayName struct {
	DisplayName string `json:"displayName"`
	DeviceName  string `json:"deviceName"`
	RoomIsIP    bool   `json:"roomIsIp"`
	RoomID      string `json:"roomId"`
	RoomKey     string `json:"roomKey,omitempty"`
}

type DisplayNameMessage struct {
	Type    string      `json:"type"`
	Message DisplayName `json:"message"`
}

type PeersMessage struct {
	Type  string     `json:"type"`
	Peers []PeerInfo `json:"peers"`
}

type PeerJoinedMessage struct {
	Type string   `json:"type"`
	Peer PeerInfo `json:"peer"`
}

type PeerLeftMessage struct {
	Type   string `json:"type"`
	PeerID string `json:"peerId"`
}

// KeyRoomMessage carries the pairing key for every key-room reply except
// the room id hand-off.
type KeyRoomMessage struct {
	Type    string `json:"type"`
	RoomKey string `json:"roomKey"`
}

type KeyRoomIDMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

type PingMessage struct {
	Type string `json:"type"`
}

// Inbound is a parsed client message: Disconnect, Pong, Relay or Ignored.
type Inbound interface {
	inbound()
}

// Disconnect asks the server to remove the sender from its rooms.
type Disconnect struct{}

// Pong acknowledges liveness.
type Pong struct{}

// Relay is an addressed message for another member of the sender's room.
// Fields holds the original members minus "to", untouched.
type Relay struct {
	Type   string
	To     string
	Fields map[string]json.RawMessage
}

// Ignored is a well-formed message the server has nothing to do with.
type Ignored struct {
	Type string
}

func (Disconnect) inbound() {}
func (Pong) inbound()       {}
func (Relay) inbound()      {}
func (Ignored) inbound()    {}

var ErrMalformed = errors.New("malformed message")

// ParseInbound decodes raw into one of the Inbound variants. Anything that
// is not a JSON object is ErrMalformed.
func ParseInbound(raw []byte) (Inbound, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, ErrMalformed
	}

	typ := stringField(fields, "type")
	switch typ {
	case TypeDisconnect:
		return Disconnect{}, nil
	case TypePong:
		return Pong{}, nil
	}

	to := stringField(fields, "to")
	if to == "" {
		return Ignored{Type: typ}, nil
	}
	delete(fields, "to")
	return Relay{Type: typ, To: to, Fields: fields}, nil
}

// Stamp returns the relay payload with sender set to senderID.
func (r Relay) Stamp(senderID string) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	id, err := json.Marshal(senderID)
	if err != nil {
		return nil, err
	}
	out["sender"] = id
	return json.Marshal(out)
}

// stringField returns fields[key] when it holds a JSON string.
func stringField(fields map[string]json.RawMessage, key string) string {
	v, ok := fields[key]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(v), []byte(`"`)) {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}
