package transfer

import (
	"sync"

	"github.com/BioHazard786/Keydrop/cli/internal/config"
	"github.com/BioHazard786/Keydrop/cli/internal/signaling"
	"github.com/BioHazard786/Keydrop/cli/internal/utils"
	pion "github.com/pion/webrtc/v4"
)

// NewPeerConnection builds a peer connection from the configured STUN and
// TURN servers. Relay-only policy applies when forced or when the host looks
// tunnelled, and only if a TURN server exists.
func NewPeerConnection(cfg *config.Config) (*pion.PeerConnection, error) {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || utils.ShouldForceRelay()) {
		policy = pion.ICETransportPolicyRelay
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

// SetupICEHandlers trickles local candidates to peer to and closes failed
// once the connection fails or closes.
func SetupICEHandlers(pc *pion.PeerConnection, client *signaling.Client, to string, failed chan struct{}) {
	var once sync.Once
	pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		if state == pion.ICEConnectionStateFailed || state == pion.ICEConnectionStateClosed {
			once.Do(func() { close(failed) })
		}
	})

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		client.Send(signaling.NewICESignal(to, ToSignalCandidate(c.ToJSON())))
	})
}

// CreateDataChannel opens the ordered, reliable transfer channel.
func CreateDataChannel(pc *pion.PeerConnection, label string) (*pion.DataChannel, error) {
	ordered := true
	dc, err := pc.CreateDataChannel(label, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, NewError("create data channel", err)
	}
	return dc, nil
}

// CreateOffer sets and returns the local offer. Candidates trickle
// separately.
func CreateOffer(pc *pion.PeerConnection) (*pion.SessionDescription, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, NewError("create offer", err)
	}
	if err = pc.SetLocalDescription(offer); err != nil {
		return nil, NewError("set local description", err)
	}
	return pc.LocalDescription(), nil
}

func CreateAnswer(pc *pion.PeerConnection, offer pion.SessionDescription) (*pion.SessionDescription, error) {
	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, NewError("set remote description", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, NewError("create answer", err)
	}
	if err = pc.SetLocalDescription(answer); err != nil {
		return nil, NewError("set local description", err)
	}
	return pc.LocalDescription(), nil
}

// ToSignalDescription converts a pion description into its relay form.
func ToSignalDescription(desc pion.SessionDescription) signaling.SessionDescription {
	return signaling.SessionDescription{Type: desc.Type.String(), SDP: desc.SDP}
}

// FromSignalDescription accepts only offers and answers.
func FromSignalDescription(desc signaling.SessionDescription) (pion.SessionDescription, error) {
	switch t := pion.NewSDPType(desc.Type); t {
	case pion.SDPTypeOffer, pion.SDPTypeAnswer:
		return pion.SessionDescription{Type: t, SDP: desc.SDP}, nil
	default:
		return pion.SessionDescription{}, WrapError("handle signal", ErrUnexpectedSignal, desc.Type)
	}
}

func ToSignalCandidate(c pion.ICECandidateInit) signaling.ICECandidate {
	return signaling.ICECandidate{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}

func FromSignalCandidate(c signaling.ICECandidate) pion.ICECandidateInit {
	return pion.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}

// CandidateQueue holds remote candidates that arrive before the remote
// description, then applies them in order.
type CandidateQueue struct {
	mu      sync.Mutex
	pc      *pion.PeerConnection
	ready   bool
	pending []pion.ICECandidateInit
}

func NewCandidateQueue(pc *pion.PeerConnection) *CandidateQueue {
	return &CandidateQueue{pc: pc}
}

// Add applies c now, or later if the remote description is not set yet.
func (q *CandidateQueue) Add(c pion.ICECandidateInit) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.ready {
		q.pending = append(q.pending, c)
		return nil
	}
	if err := q.pc.AddICECandidate(c); err != nil {
		return NewError("add ICE candidate", err)
	}
	return nil
}

// Ready marks the remote description as set and flushes the queue.
func (q *CandidateQueue) Ready() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ready = true
	pending := q.pending
	q.pending = nil
	for _, c := range pending {
		if err := q.pc.AddICECandidate(c); err != nil {
			return NewError("add ICE candidate", err)
		}
	}
	return nil
}
