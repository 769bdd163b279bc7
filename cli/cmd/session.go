package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/BioHazard786/Keydrop/cli/internal/config"
	"github.com/BioHazard786/Keydrop/cli/internal/names"
	"github.com/BioHazard786/Keydrop/cli/internal/signaling"
	"github.com/BioHazard786/Keydrop/cli/internal/transfer"
	"github.com/BioHazard786/Keydrop/cli/internal/ui"
	"github.com/BioHazard786/Keydrop/cli/internal/utils"
	"github.com/google/uuid"
)

// ConnectionContext is one live session with the signaling server.
type ConnectionContext struct {
	Client  *signaling.Client
	Handler *signaling.Handler
	Config  *config.Config
	Session config.Session
	Self    signaling.DisplayName
}

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, transfer.NewError("load config", err)
	}
	return cfg, nil
}

// newSession identifies a fresh connection. code is kept across reconnects
// so the device keeps its name.
func newSession(code, roomID, roomKey string) config.Session {
	if code == "" {
		code = names.Generate(nil)
	}
	return config.Session{
		PeerID:  uuid.NewString(),
		Code:    code,
		RoomID:  roomID,
		RoomKey: roomKey,
	}
}

// Connect dials the server and waits for it to name this device.
func Connect(ctx context.Context, cfg *config.Config, sess config.Session) (*ConnectionContext, error) {
	rawURL, err := cfg.SignalingURL(sess)
	if err != nil {
		return nil, transfer.NewError("build server URL", err)
	}

	stopSpinner := ui.RunConnectionSpinner("Connecting to " + cfg.Server + "...")
	defer stopSpinner()

	client, err := signaling.Dial(ctx, rawURL)
	if err != nil {
		return nil, transfer.NewError("connect to server", err)
	}

	handler := signaling.NewHandler(client)
	go handler.Start()

	conn := &ConnectionContext{
		Client:  client,
		Handler: handler,
		Config:  cfg,
		Session: sess,
	}

	select {
	case conn.Self = <-handler.Self:
		return conn, nil
	case <-handler.Closed():
		conn.Close()
		return nil, transfer.NewError("join room", transfer.ErrSignalingClosed)
	case <-ctx.Done():
		conn.Close()
		return nil, ctx.Err()
	case <-time.After(utils.SignalTimeout):
		conn.Close()
		return nil, transfer.NewError("join room", transfer.ErrTimeout)
	}
}

// RoomLabel describes the joined room for humans.
func (c *ConnectionContext) RoomLabel() string {
	if c.Self.RoomIsIP {
		return "devices on your network"
	}
	return c.Self.RoomID
}

// WaitForSnapshot blocks until the room member list has arrived.
func (c *ConnectionContext) WaitForSnapshot(ctx context.Context) error {
	select {
	case <-c.Handler.Synced():
		return nil
	case <-c.Handler.Closed():
		return transfer.ErrSignalingClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(utils.SignalTimeout):
		return transfer.NewError("list peers", transfer.ErrTimeout)
	}
}

// AwaitKeyRoom waits for the pairing reply of type want. Failure replies
// become errors.
func (c *ConnectionContext) AwaitKeyRoom(ctx context.Context, want string) (signaling.KeyRoomEvent, error) {
	for {
		select {
		case ev := <-c.Handler.KeyRoom:
			if err := keyRoomError(ev); err != nil {
				return ev, err
			}
			if ev.Type == want {
				return ev, nil
			}
		case <-c.Handler.Closed():
			return signaling.KeyRoomEvent{}, transfer.ErrSignalingClosed
		case <-ctx.Done():
			return signaling.KeyRoomEvent{}, ctx.Err()
		}
	}
}

func keyRoomError(ev signaling.KeyRoomEvent) error {
	switch ev.Type {
	case signaling.TypeKeyRoomInvalidRoomKey:
		return transfer.ErrInvalidRoomKey
	case signaling.TypeKeyRoomFull:
		return transfer.ErrRoomFull
	case signaling.TypeKeyRoomDeleted:
		return transfer.ErrPairingExpired
	default:
		return nil
	}
}

// Close says goodbye to the server.
func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

func printSelf(c *ConnectionContext) {
	fmt.Println()
	fmt.Println(ui.SelfView(c.Self.DisplayName, c.Self.DeviceName, c.RoomLabel()))
	fmt.Println()
}
