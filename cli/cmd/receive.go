package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BioHazard786/Keydrop/cli/internal/config"
	"github.com/BioHazard786/Keydrop/cli/internal/names"
	"github.com/BioHazard786/Keydrop/cli/internal/signaling"
	"github.com/BioHazard786/Keydrop/cli/internal/transfer"
	"github.com/BioHazard786/Keydrop/cli/internal/ui"
	"github.com/BioHazard786/Keydrop/cli/internal/utils"
	"github.com/BioHazard786/Keydrop/cli/internal/webrtc/singlechannel"
	"github.com/spf13/cobra"
)

var (
	flagReceiveKey  string
	flagReceiveRoom string
	flagReceiveFrom string
	flagReceiveDir  string
	flagReceiveZip  bool
	flagReceiveYes  bool
)

var receiveCmd = &cobra.Command{
	Use:     "receive",
	Aliases: []string{"r"},
	Short:   "Receive files from a device in your room",
	Long: `Wait in the room for a sender's offer and receive its files.

With --key the 6-digit pairing key shown by "keydrop send --pair" is traded
for the sender's private room, which is then joined.

Examples:
  keydrop receive
  keydrop receive --key 123456
  keydrop receive --room team-share --dir ~/Downloads
  keydrop receive --from "Brave Otter" --zip --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagReceiveKey != "" && flagReceiveRoom != "" {
			return fmt.Errorf("--key and --room cannot be used together")
		}
		return receiveFiles(cmd.Context())
	},
}

func receiveFiles(ctx context.Context) error {
	cfg, err := LoadConfig(connOpts)
	if err != nil {
		return err
	}

	conn, err := joinForReceiving(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	opts, tempDir, cleanup, err := prepareTransferOptions(flagReceiveZip, flagReceiveDir)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	session, err := singlechannel.NewReceiverSession(conn.Client, conn.Handler, cfg)
	if err != nil {
		return transfer.NewError("create session", err)
	}
	defer session.Close()

	if err := session.Start(ctx, acceptSender(conn.Handler, flagReceiveFrom)); err != nil {
		return transfer.NewError("connect to peer", err)
	}

	metas, err := session.Metadata(ctx)
	if err != nil {
		return transfer.NewError("read file list", err)
	}

	fmt.Println()
	ui.RenderFileTable(transfer.BuildFileTable(metas))

	if !flagReceiveYes && !transfer.PromptConsent(os.Stdin, os.Stdout, session.FromLabel()) {
		if err := session.Decline(); err != nil {
			return transfer.NewError("decline", err)
		}
		ui.PrintWarning("Transfer declined")
		return nil
	}

	paths, err := session.Transfer(ctx, metas, opts)
	if err != nil {
		return transfer.NewError("receive", err)
	}

	if flagReceiveZip {
		return finalizeTransfer(flagReceiveDir, tempDir)
	}
	for _, p := range paths {
		ui.PrintSuccessf("Saved %s", p)
	}
	return nil
}

func joinForReceiving(ctx context.Context, cfg *config.Config) (*ConnectionContext, error) {
	code := names.Generate(nil)
	connect := func(roomID, roomKey string) (*ConnectionContext, error) {
		return Connect(ctx, cfg, newSession(code, roomID, roomKey))
	}

	roomID := flagReceiveRoom
	if flagReceiveKey != "" {
		key, err := parseRoomKey(flagReceiveKey)
		if err != nil {
			return nil, err
		}
		if roomID, err = redeemPairing(ctx, key, connect); err != nil {
			return nil, err
		}
		ui.PrintSuccess("Paired")
	}

	conn, err := connect(roomID, "")
	if err != nil {
		return nil, err
	}
	printSelf(conn)
	return conn, nil
}

// acceptSender limits offers to the peer named by from. Names are resolved
// against the room roster when the offer arrives.
func acceptSender(h *signaling.Handler, from string) func(string) bool {
	if from == "" {
		return nil
	}
	match := matchPeer(from)
	return func(id string) bool {
		if id == from {
			return true
		}
		p, ok := h.Lookup(id)
		return ok && match(p)
	}
}

func prepareTransferOptions(zipMode bool, outputDir string) (*transfer.TransferOptions, string, func(), error) {
	opts := &transfer.TransferOptions{
		ZipMode:   zipMode,
		OutputDir: outputDir,
	}
	if !zipMode {
		return opts, "", nil, nil
	}

	tempDir, err := os.MkdirTemp("", "keydrop-receive-*")
	if err != nil {
		return nil, "", nil, transfer.NewError("create temp dir", err)
	}
	opts.OutputDir = tempDir
	return opts, tempDir, func() { os.RemoveAll(tempDir) }, nil
}

func finalizeTransfer(outputDir, tempDir string) error {
	zipName := fmt.Sprintf("keydrop-download-%d.zip", time.Now().UnixMilli())
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return transfer.NewError("create output dir", err)
		}
		zipName = filepath.Join(outputDir, zipName)
	}

	fmt.Println()
	s := ui.NewWaitingSpinner("Zipping files...")
	s.Start()
	if err := utils.ZipDirectory(tempDir, zipName); err != nil {
		s.Stop()
		return transfer.NewError("zip files", err)
	}
	s.Success(fmt.Sprintf("Files zipped to %s", zipName))
	return nil
}

func init() {
	rootCmd.AddCommand(receiveCmd)

	receiveCmd.Flags().StringVarP(&flagReceiveKey, "key", "k", "", "Pairing key shown by the sender")
	receiveCmd.Flags().StringVar(&flagReceiveRoom, "room", "", "Join this room instead of your network's")
	receiveCmd.Flags().StringVar(&flagReceiveFrom, "from", "", "Only accept offers from this display name or id")
	receiveCmd.Flags().StringVarP(&flagReceiveDir, "dir", "d", "", "Directory to save received files")
	receiveCmd.Flags().BoolVarP(&flagReceiveZip, "zip", "z", false, "Zip received files")
	receiveCmd.Flags().BoolVarP(&flagReceiveYes, "yes", "y", false, "Accept without asking")
}
