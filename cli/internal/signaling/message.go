package signaling

// Server message types.
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

// Client message types. Signal is relayed to the peer named in To; the
// others are handled by the server itself.
const (
	TypeSignal     = "signal"
	TypePong       = "pong"
	TypeDisconnect = "disconnect"
)

// Name is how the server describes a device.
type Name struct {
	Model       string `json:"model,omitempty"`
	OS          string `json:"os,omitempty"`
	Browser     string `json:"browser,omitempty"`
	Type        string `json:"type,omitempty"`
	DeviceName  string `json:"deviceName"`
	DisplayName string `json:"displayName"`
}

// Peer is another member of the room.
type Peer struct {
	ID           string `json:"id"`
	Name         Name   `json:"name"`
	RTCSupported bool   `json:"rtcSupported"`
}

// Label is the friendliest non-empty identifier of p.
func (p Peer) Label() string {
	switch {
	case p.Name.DisplayName != "":
		return p.Name.DisplayName
	case p.Name.DeviceName != "":
		return p.Name.DeviceName
	default:
		return p.ID
	}
}

// DisplayName is the first message of every session.
type DisplayName struct {
	DisplayName string `json:"displayName"`
	DeviceName  string `json:"deviceName"`
	RoomIsIP    bool   `json:"roomIsIp"`
	RoomID      string `json:"roomId"`
	RoomKey     string `json:"roomKey,omitempty"`
}

// SessionDescription is an SDP offer or answer.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// ICECandidate uses the browser RTCIceCandidateInit field names.
type ICECandidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// Message is the union of every frame exchanged with the server. Only the
// fields relevant to Type are populated.
type Message struct {
	Type string `json:"type"`

	Message *DisplayName `json:"message,omitempty"`
	Peers   []Peer       `json:"peers,omitempty"`
	Peer    *Peer        `json:"peer,omitempty"`
	PeerID  string       `json:"peerId,omitempty"`
	RoomKey string       `json:"roomKey,omitempty"`
	RoomID  string       `json:"roomId,omitempty"`

	To     string              `json:"to,omitempty"`
	Sender string              `json:"sender,omitempty"`
	SDP    *SessionDescription `json:"sdp,omitempty"`
	ICE    *ICECandidate       `json:"ice,omitempty"`
}

// NewSDPSignal addresses an offer or answer to peer to.
func NewSDPSignal(to string, desc SessionDescription) *Message {
	return &Message{Type: TypeSignal, To: to, SDP: &desc}
}

// NewICESignal addresses a trickled candidate to peer to.
func NewICESignal(to string, ice ICECandidate) *Message {
	return &Message{Type: TypeSignal, To: to, ICE: &ice}
}

// KeyRoomEvent is one reply of the pairing protocol.
type KeyRoomEvent struct {
	Type    string
	RoomKey string
	RoomID  string
}
