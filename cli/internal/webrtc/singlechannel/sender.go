package singlechannel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BioHazard786/Keydrop/cli/internal/config"
	"github.com/BioHazard786/Keydrop/cli/internal/files"
	"github.com/BioHazard786/Keydrop/cli/internal/signaling"
	"github.com/BioHazard786/Keydrop/cli/internal/transfer"
	"github.com/BioHazard786/Keydrop/cli/internal/ui"
	"github.com/BioHazard786/Keydrop/cli/internal/utils"
	"github.com/BioHazard786/Keydrop/cli/internal/webrtc"
	pion "github.com/pion/webrtc/v4"
)

// NewSenderSession prepares a connection to peer carrying list.
func NewSenderSession(client *signaling.Client, handler *signaling.Handler, cfg *config.Config, peer signaling.Peer, list []files.FileInfo) (*SenderSession, error) {
	pc, err := transfer.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}

	dc, err := transfer.CreateDataChannel(pc, webrtc.DataChannelLabel)
	if err != nil {
		pc.Close()
		return nil, err
	}

	s := &SenderSession{
		conn:       pc,
		channel:    dc,
		sender:     transfer.NewSender(dc, list),
		client:     client,
		handler:    handler,
		peer:       peer,
		candidates: transfer.NewCandidateQueue(pc),
		answered:   make(chan struct{}),
		failed:     make(chan struct{}),
		stop:       func() {},
	}

	dc.OnOpen(func() {
		if err := s.sender.SendMetadata(); err != nil {
			slog.Error("failed to send metadata", "err", err)
		}
	})
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		s.sender.HandleMessage(msg.Data)
	})

	return s, nil
}

// Start sends the offer and waits for the answer.
func (s *SenderSession) Start(ctx context.Context) error {
	transfer.SetupICEHandlers(s.conn, s.client, s.peer.ID, s.failed)

	signalCtx, stop := context.WithCancel(context.Background())
	s.stop = stop
	go pumpSignals(signalCtx, s.handler, s.peer.ID, s.candidates, s.applyAnswer)

	stopSpinner := ui.RunConnectionSpinner("Connecting to " + s.peer.Label() + "...")
	defer stopSpinner()

	offer, err := transfer.CreateOffer(s.conn)
	if err != nil {
		return err
	}
	if !s.client.Send(signaling.NewSDPSignal(s.peer.ID, transfer.ToSignalDescription(*offer))) {
		return transfer.ErrSignalingClosed
	}

	ctx, cancel := watch(ctx, s.handler, s.peer.ID, s.failed)
	defer cancel()

	select {
	case <-s.answered:
		return nil
	case <-ctx.Done():
		return causeOf(ctx, ctx.Err())
	case <-time.After(utils.SignalTimeout):
		return transfer.NewError("wait for answer", transfer.ErrTimeout)
	}
}

func (s *SenderSession) applyAnswer(desc pion.SessionDescription) error {
	if desc.Type != pion.SDPTypeAnswer {
		return transfer.WrapError("handle signal", transfer.ErrUnexpectedSignal, desc.Type.String())
	}
	select {
	case <-s.answered:
		return nil
	default:
	}
	if err := s.conn.SetRemoteDescription(desc); err != nil {
		return transfer.NewError("set remote description", err)
	}
	close(s.answered)
	return s.candidates.Ready()
}

// Transfer waits for the receiver to accept, then streams every file.
func (s *SenderSession) Transfer(ctx context.Context) error {
	ctx, cancel := watch(ctx, s.handler, s.peer.ID, s.failed)
	defer cancel()

	stopSpinner := ui.RunWaitingSpinner("Waiting for " + s.peer.Label() + " to accept...")
	first, err := s.sender.WaitForConsent(ctx)
	stopSpinner()
	if err != nil {
		return causeOf(ctx, err)
	}

	if device, ok := s.sender.Device(); ok {
		slog.Info("receiver device", "name", device.DeviceName, "version", device.DeviceVersion)
	}

	tracker := transfer.NewProgressTracker(ui.ModeSend, s.names(), s.sizes())
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

	err = s.sender.Run(runCtx, first, tracker.UI)
	tracker.Stop()
	if err != nil {
		return causeOf(ctx, err)
	}

	tracker.RenderSummary(fmt.Sprintf("%s Sent to %s", ui.IconSend, s.peer.Label()))
	return nil
}

func (s *SenderSession) names() []string {
	out := make([]string, len(s.sender.Files()))
	for i, f := range s.sender.Files() {
		out[i] = f.Name
	}
	return out
}

func (s *SenderSession) sizes() []int64 {
	out := make([]int64, len(s.sender.Files()))
	for i, f := range s.sender.Files() {
		out[i] = f.Size
	}
	return out
}

// Close tears down the peer connection. The signaling connection belongs
// to the caller.
func (s *SenderSession) Close() error {
	s.stop()
	if s.channel != nil {
		s.channel.Close()
	}
	return s.conn.Close()
}
