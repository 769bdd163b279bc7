package cmd

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/BioHazard786/Keydrop/cli/internal/signaling"
	"github.com/BioHazard786/Keydrop/cli/internal/transfer"
	"github.com/BioHazard786/Keydrop/cli/internal/ui"
	"github.com/google/uuid"
)

const roomKeyDigits = 6

// keyAttempts bounds retries when a freshly drawn key is already taken.
const keyAttempts = 3

func newRoomKey() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", transfer.NewError("generate pairing key", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// parseRoomKey accepts "123456", "123 456" or "123-456".
func parseRoomKey(input string) (string, error) {
	key := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, input)

	if len(key) != roomKeyDigits {
		return "", transfer.WrapError("parse pairing key", transfer.ErrInvalidRoomKey, input)
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return "", transfer.WrapError("parse pairing key", transfer.ErrInvalidRoomKey, input)
		}
	}
	return key, nil
}

// matchPeer selects a peer by id or, ignoring case, by name. An empty
// target takes the first peer that can do WebRTC.
func matchPeer(target string) func(signaling.Peer) bool {
	if target == "" {
		return func(p signaling.Peer) bool { return p.RTCSupported }
	}
	return func(p signaling.Peer) bool {
		return p.ID == target ||
			strings.EqualFold(p.Name.DisplayName, target) ||
			strings.EqualFold(p.Name.DeviceName, target)
	}
}

// hostPairing opens a private room guarded by a fresh key and waits for
// another device to redeem it. It returns the connection to that room.
func hostPairing(ctx context.Context, connect func(roomID, roomKey string) (*ConnectionContext, error)) (*ConnectionContext, error) {
	for attempt := 1; ; attempt++ {
		key, err := newRoomKey()
		if err != nil {
			return nil, err
		}

		conn, err := connect(uuid.NewString(), key)
		if err != nil {
			return nil, err
		}

		_, err = conn.AwaitKeyRoom(ctx, signaling.TypeKeyRoomCreated)
		if errors.Is(err, transfer.ErrRoomFull) && attempt < keyAttempts {
			conn.Close()
			continue
		}
		if err != nil {
			conn.Close()
			return nil, transfer.NewError("create pairing", err)
		}

		fmt.Println()
		fmt.Println(ui.PairingView(key, "keydrop receive --key "+key))
		fmt.Println()

		stop := ui.RunWaitingSpinner("Waiting for the other device to enter the key...")
		_, err = conn.AwaitKeyRoom(ctx, signaling.TypeKeyRoomRoomIDReceived)
		stop()
		if err != nil {
			conn.Close()
			return nil, transfer.NewError("pair", err)
		}
		ui.PrintSuccess("Key accepted")
		return conn, nil
	}
}

// redeemPairing trades a key for the room id of the device that made it.
func redeemPairing(ctx context.Context, key string, connect func(roomID, roomKey string) (*ConnectionContext, error)) (string, error) {
	conn, err := connect("", key)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	ev, err := conn.AwaitKeyRoom(ctx, signaling.TypeKeyRoomRoomID)
	if err != nil {
		return "", transfer.NewError("pair", err)
	}
	return ev.RoomID, nil
}
