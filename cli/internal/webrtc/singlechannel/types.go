// Package singlechannel runs one file transfer between two room members over
// a single ordered data channel, negotiated through relayed signal messages.
package singlechannel

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BioHazard786/Keydrop/cli/internal/signaling"
	"github.com/BioHazard786/Keydrop/cli/internal/transfer"
	pion "github.com/pion/webrtc/v4"
)

// SenderSession offers files to one peer.
type SenderSession struct {
	conn       *pion.PeerConnection
	channel    *pion.DataChannel
	sender     *transfer.Sender
	client     *signaling.Client
	handler    *signaling.Handler
	peer       signaling.Peer
	candidates *transfer.CandidateQueue

	answered chan struct{}
	failed   chan struct{}
	stop     context.CancelFunc
}

// ReceiverSession answers the first offer addressed to this client.
type ReceiverSession struct {
	conn       *pion.PeerConnection
	client     *signaling.Client
	handler    *signaling.Handler
	from       string
	candidates *transfer.CandidateQueue

	receiver chan *transfer.Receiver
	opened   chan struct{}
	failed   chan struct{}
	stop     context.CancelFunc
}

// watch returns a context that ends when the transfer can no longer make
// progress: peerID leaves the room, ICE fails or the server goes away.
// context.Cause reports which.
func watch(ctx context.Context, h *signaling.Handler, peerID string, failed <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(ctx)
	go func() {
		for {
			select {
			case id := <-h.PeerLeft:
				if id != peerID {
					continue
				}
				cancel(transfer.ErrPeerDisconnected)
			case <-failed:
				cancel(transfer.ErrConnectionFailed)
			case <-h.Closed():
				cancel(transfer.ErrSignalingClosed)
			case <-ctx.Done():
			}
			return
		}
	}()
	return ctx, func() { cancel(context.Canceled) }
}

// causeOf swaps a bare cancellation for the reason the context ended.
func causeOf(ctx context.Context, err error) error {
	if err == nil || !errors.Is(err, context.Canceled) {
		return err
	}
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return err
}

// pumpSignals applies descriptions and candidates relayed from peer until
// ctx ends. Signals from anyone else are dropped.
func pumpSignals(ctx context.Context, h *signaling.Handler, peer string, q *transfer.CandidateQueue, onDescription func(pion.SessionDescription) error) {
	for {
		select {
		case msg := <-h.Signal:
			if msg.Sender != peer {
				slog.Debug("dropping signal from unexpected peer", "sender", msg.Sender)
				continue
			}
			applySignal(msg, q, onDescription)
		case <-h.Closed():
			return
		case <-ctx.Done():
			return
		}
	}
}

func applySignal(msg *signaling.Message, q *transfer.CandidateQueue, onDescription func(pion.SessionDescription) error) {
	if msg.SDP != nil {
		desc, err := transfer.FromSignalDescription(*msg.SDP)
		if err != nil {
			slog.Warn("bad session description", "err", err)
			return
		}
		if err := onDescription(desc); err != nil {
			slog.Warn("failed to apply session description", "err", err)
		}
	}
	if msg.ICE != nil {
		if err := q.Add(transfer.FromSignalCandidate(*msg.ICE)); err != nil {
			slog.Warn("failed to add candidate", "err", err)
		}
	}
}
