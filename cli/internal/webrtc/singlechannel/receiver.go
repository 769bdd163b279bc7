package singlechannel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BioHazard786/Keydrop/cli/internal/config"
	"github.com/BioHazard786/Keydrop/cli/internal/signaling"
	"github.com/BioHazard786/Keydrop/cli/internal/transfer"
	"github.com/BioHazard786/Keydrop/cli/internal/ui"
	"github.com/BioHazard786/Keydrop/cli/internal/utils"
	"github.com/BioHazard786/Keydrop/cli/internal/webrtc"
	pion "github.com/pion/webrtc/v4"
)

func NewReceiverSession(client *signaling.Client, handler *signaling.Handler, cfg *config.Config) (*ReceiverSession, error) {
	pc, err := transfer.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}

	s := &ReceiverSession{
		conn:       pc,
		client:     client,
		handler:    handler,
		candidates: transfer.NewCandidateQueue(pc),
		receiver:   make(chan *transfer.Receiver, 1),
		opened:     make(chan struct{}),
		failed:     make(chan struct{}),
		stop:       func() {},
	}

	pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() != webrtc.DataChannelLabel {
			slog.Debug("ignoring data channel", "label", dc.Label())
			return
		}
		r := transfer.NewReceiver(dc)
		dc.OnOpen(func() {
			if err := r.Hello(); err != nil {
				slog.Warn("failed to send device info", "err", err)
			}
			select {
			case s.receiver <- r:
				close(s.opened)
			default:
			}
		})
		dc.OnMessage(func(msg pion.DataChannelMessage) {
			r.HandleMessage(msg.Data)
		})
		dc.OnClose(r.Close)
	})

	return s, nil
}

// From is the id of the peer whose offer was accepted.
func (s *ReceiverSession) From() string {
	return s.from
}

// Start waits for an offer whose sender passes accept, answers it and
// waits for the data channel to open. A nil accept takes the first offer.
func (s *ReceiverSession) Start(ctx context.Context, accept func(senderID string) bool) error {
	stopSpinner := ui.RunWaitingSpinner("Waiting for a sender...")
	offer, early, err := s.waitForOffer(ctx, accept)
	stopSpinner()
	if err != nil {
		return err
	}
	s.from = offer.Sender

	stopSpinner = ui.RunConnectionSpinner("Connecting to " + s.FromLabel() + "...")
	defer stopSpinner()

	transfer.SetupICEHandlers(s.conn, s.client, s.from, s.failed)

	desc, err := transfer.FromSignalDescription(*offer.SDP)
	if err != nil {
		return err
	}
	answer, err := transfer.CreateAnswer(s.conn, desc)
	if err != nil {
		return err
	}
	for _, ice := range early {
		if err := s.candidates.Add(transfer.FromSignalCandidate(ice)); err != nil {
			slog.Warn("failed to queue candidate", "err", err)
		}
	}
	if err := s.candidates.Ready(); err != nil {
		slog.Warn("failed to apply candidates", "err", err)
	}
	if !s.client.Send(signaling.NewSDPSignal(s.from, transfer.ToSignalDescription(*answer))) {
		return transfer.ErrSignalingClosed
	}

	signalCtx, stop := context.WithCancel(context.Background())
	s.stop = stop
	go pumpSignals(signalCtx, s.handler, s.from, s.candidates, func(d pion.SessionDescription) error {
		return transfer.WrapError("handle signal", transfer.ErrUnexpectedSignal, d.Type.String())
	})

	ctx, cancel := watch(ctx, s.handler, s.from, s.failed)
	defer cancel()

	select {
	case <-s.opened:
		return nil
	case <-ctx.Done():
		return causeOf(ctx, ctx.Err())
	case <-time.After(utils.SignalTimeout):
		return transfer.NewError("open data channel", transfer.ErrTimeout)
	}
}

// waitForOffer returns the first acceptable offer plus any candidates its
// sender trickled ahead of it.
func (s *ReceiverSession) waitForOffer(ctx context.Context, accept func(string) bool) (*signaling.Message, []signaling.ICECandidate, error) {
	early := make(map[string][]signaling.ICECandidate)
	for {
		select {
		case msg := <-s.handler.Signal:
			if accept != nil && !accept(msg.Sender) {
				slog.Debug("ignoring signal", "sender", msg.Sender)
				continue
			}
			if msg.ICE != nil {
				early[msg.Sender] = append(early[msg.Sender], *msg.ICE)
			}
			if msg.SDP != nil && msg.SDP.Type == pion.SDPTypeOffer.String() {
				return msg, early[msg.Sender], nil
			}
		case <-s.handler.Closed():
			return nil, nil, transfer.ErrSignalingClosed
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

// FromLabel names the sender for prompts.
func (s *ReceiverSession) FromLabel() string {
	if p, ok := s.handler.Lookup(s.from); ok {
		return p.Label()
	}
	return s.from
}

func (s *ReceiverSession) current() *transfer.Receiver {
	r := <-s.receiver
	s.receiver <- r
	return r
}

// Metadata waits for the sender to announce its files.
func (s *ReceiverSession) Metadata(ctx context.Context) ([]webrtc.FileMetadata, error) {
	ctx, cancel := watch(ctx, s.handler, s.from, s.failed)
	defer cancel()

	metas, err := s.current().WaitForMetadata(ctx)
	return metas, causeOf(ctx, err)
}

// Decline tells the sender the files were refused.
func (s *ReceiverSession) Decline() error {
	return s.current().Decline()
}

// Transfer receives metas into opts.OutputDir and returns the written paths.
func (s *ReceiverSession) Transfer(ctx context.Context, metas []webrtc.FileMetadata, opts *transfer.TransferOptions) ([]string, error) {
	ctx, cancel := watch(ctx, s.handler, s.from, s.failed)
	defer cancel()

	tracker := transfer.NewMetadataTracker(metas)
	tracker.Start()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		select {
		case <-tracker.UI.Cancelled():
			stop()
		case <-runCtx.Done():
		}
	}()

	paths, err := s.current().Receive(runCtx, metas, opts, tracker.UI)
	tracker.Stop()
	if err != nil {
		return paths, causeOf(ctx, err)
	}

	tracker.RenderSummary(fmt.Sprintf("%s Received from %s", ui.IconReceive, s.FromLabel()))
	return paths, nil
}

func (s *ReceiverSession) Close() error {
	s.stop()
	select {
	case r := <-s.receiver:
		r.Close()
	default:
	}
	return s.conn.Close()
}
