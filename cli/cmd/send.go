package cmd

import (
	"context"
	"fmt"

	"github.com/BioHazard786/Keydrop/cli/internal/config"
	"github.com/BioHazard786/Keydrop/cli/internal/files"
	"github.com/BioHazard786/Keydrop/cli/internal/names"
	"github.com/BioHazard786/Keydrop/cli/internal/transfer"
	"github.com/BioHazard786/Keydrop/cli/internal/ui"
	"github.com/BioHazard786/Keydrop/cli/internal/webrtc/singlechannel"
	"github.com/spf13/cobra"
)

var (
	flagSendTo   string
	flagSendRoom string
	flagSendPair bool
)

var sendCmd = &cobra.Command{
	Use:     "send FILE...",
	Aliases: []string{"s"},
	Short:   "Send files to a device in your room",
	Long: `Send files directly to another device over WebRTC.

The recipient is picked with --to (display name or id); otherwise the first
WebRTC-capable device in the room gets the offer. With --pair a private room
is created and a 6-digit key is shown for the other device to enter.

Examples:
  keydrop send report.pdf
  keydrop send --to "Brave Otter" a.txt b.txt
  keydrop send --room team-share photo.jpg
  keydrop send --pair --relay backup.tar`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagSendPair && flagSendRoom != "" {
			return fmt.Errorf("--pair and --room cannot be used together")
		}
		return sendFiles(cmd.Context(), args)
	},
}

func sendFiles(ctx context.Context, paths []string) error {
	stopSpinner := ui.RunSpinner("Validating files...")
	list, err := files.ValidateFiles(paths)
	stopSpinner()
	if err != nil {
		return err
	}
	displayFileTable(list)

	cfg, err := LoadConfig(connOpts)
	if err != nil {
		return err
	}

	conn, err := joinForSending(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	stopSpinner = ui.RunWaitingSpinner("Waiting for a recipient to appear...")
	peer, err := conn.Handler.WaitForPeer(ctx, matchPeer(flagSendTo))
	stopSpinner()
	if err != nil {
		return transfer.NewError("find recipient", err)
	}
	ui.PrintInfof("Sending to %s", ui.BoldStyle.Render(peer.Label()))

	session, err := singlechannel.NewSenderSession(conn.Client, conn.Handler, cfg, peer, list)
	if err != nil {
		return transfer.NewError("create session", err)
	}
	defer session.Close()

	if err := session.Start(ctx); err != nil {
		return transfer.NewError("connect to peer", err)
	}
	if err := session.Transfer(ctx); err != nil {
		return transfer.NewError("send", err)
	}
	return nil
}

func joinForSending(ctx context.Context, cfg *config.Config) (*ConnectionContext, error) {
	code := names.Generate(nil)
	connect := func(roomID, roomKey string) (*ConnectionContext, error) {
		return Connect(ctx, cfg, newSession(code, roomID, roomKey))
	}

	var (
		conn *ConnectionContext
		err  error
	)
	if flagSendPair {
		conn, err = hostPairing(ctx, connect)
	} else {
		conn, err = connect(flagSendRoom, "")
	}
	if err != nil {
		return nil, err
	}
	printSelf(conn)
	return conn, nil
}

func displayFileTable(list []files.FileInfo) {
	items := make([]ui.FileTableItem, len(list))
	for i, f := range list {
		items[i] = ui.FileTableItem{Index: i + 1, Name: f.Name, Size: f.Size, Type: f.Type}
	}
	fmt.Println()
	ui.RenderFileTable(items)
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().StringVar(&flagSendTo, "to", "", "Recipient display name or id")
	sendCmd.Flags().StringVar(&flagSendRoom, "room", "", "Join this room instead of your network's")
	sendCmd.Flags().BoolVar(&flagSendPair, "pair", false, "Create a private room and show a pairing key")
}
