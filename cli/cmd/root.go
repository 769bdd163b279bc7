package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/BioHazard786/Keydrop/cli/internal/config"
	"github.com/BioHazard786/Keydrop/cli/internal/ui"
	"github.com/BioHazard786/Keydrop/cli/internal/version"
	"github.com/spf13/cobra"
)

// Connection flags shared by every command.
var connOpts config.Options

var rootCmd = &cobra.Command{
	Use:   "keydrop",
	Short: "Send files to nearby devices over WebRTC",
	Long: `Keydrop finds other devices on your network (or in a shared room) through a
signaling server and transfers files to them directly over WebRTC.

Devices behind different networks can pair with a 6-digit key.`,
	Version:       version.Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the command line. Interrupts cancel the running command so
// it can say goodbye to the server.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			ui.PrintWarning("Cancelled")
			os.Exit(130)
		}
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&connOpts.Server, "server", "", "Signaling server URL (env KEYDROP_SERVER)")
	flags.StringVarP(&connOpts.STUNServer, "stun", "s", "", "STUN server (env STUN_SERVER)")
	flags.StringVarP(&connOpts.TURNServer, "turn", "t", "", "TURN server (env TURN_SERVER)")
	flags.StringVar(&connOpts.TURNUser, "turn-user", "", "TURN username (env TURN_USERNAME)")
	flags.StringVar(&connOpts.TURNPass, "turn-pass", "", "TURN password (env TURN_PASSWORD)")
	flags.BoolVarP(&connOpts.ForceRelay, "relay", "r", false, "Force relay through TURN (env FORCE_RELAY)")
}
