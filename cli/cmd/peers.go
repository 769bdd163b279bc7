package cmd

import (
	"fmt"
	"time"

	"github.com/BioHazard786/Keydrop/cli/internal/signaling"
	"github.com/BioHazard786/Keydrop/cli/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagPeersRoom string
	flagPeersWait time.Duration
)

var peersCmd = &cobra.Command{
	Use:     "peers",
	Aliases: []string{"p", "ls"},
	Short:   "List devices in your room",
	Long: `Join the room and list the devices already in it.

Without --room the server places you with every device that shares your
public IP address.

Examples:
  keydrop peers
  keydrop peers --room team-share
  keydrop peers --wait 10s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := LoadConfig(connOpts)
		if err != nil {
			return err
		}

		conn, err := Connect(ctx, cfg, newSession("", flagPeersRoom, ""))
		if err != nil {
			return err
		}
		defer conn.Close()
		printSelf(conn)

		if err := conn.WaitForSnapshot(ctx); err != nil {
			return err
		}

		if flagPeersWait > 0 {
			sp := ui.NewWaitingSpinner(fmt.Sprintf("Watching the room for %s...", flagPeersWait))
			sp.Start()
			select {
			case <-time.After(flagPeersWait):
			case <-conn.Handler.Closed():
			case <-ctx.Done():
			}
			sp.Stop()
		}

		ui.RenderPeerTable(peerTable(conn.Handler.Peers()))
		return nil
	},
}

func peerTable(peers []signaling.Peer) []ui.PeerTableItem {
	items := make([]ui.PeerTableItem, len(peers))
	for i, p := range peers {
		items[i] = ui.PeerTableItem{
			Index:        i + 1,
			DisplayName:  p.Label(),
			Device:       p.Name.DeviceName,
			ID:           p.ID,
			RTCSupported: p.RTCSupported,
		}
	}
	return items
}

func init() {
	rootCmd.AddCommand(peersCmd)

	peersCmd.Flags().StringVar(&flagPeersRoom, "room", "", "Join this room instead of your network's")
	peersCmd.Flags().DurationVarP(&flagPeersWait, "wait", "w", 0, "Keep watching for devices this long before listing")
}
