// Package cli implements the roam command line client: the device-side face
// of the offline-first sync core. Every command opens the local store, talks
// to the remote API when it can, and keeps working when it cannot.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/roamledger/roamledger/logger"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
	// StorePath and RemoteURL override the configured values when set.
	StorePath string
	RemoteURL string
}

// NewRootCommand creates the root command for the roam CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "roam",
		Short: "Track travel expenses, online or off",
		Long: `roam keeps trips and expenses in a local store on this device and
mirrors them to the expense API whenever the network allows. Writes made
offline are kept locally and pushed by "roam flush" or the next sync.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.Verbose {
				_ = os.Setenv("LOG_LEVEL", "debug")
			} else if os.Getenv("LOG_LEVEL") == "" {
				// Keep command output readable; the log stream is opt-in.
				_ = os.Setenv("LOG_LEVEL", "error")
			}
			logger.InitLogger()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")
	cmd.PersistentFlags().StringVar(&opts.StorePath, "store", "", "path to the local store database")
	cmd.PersistentFlags().StringVar(&opts.RemoteURL, "remote", "", "base URL of the expense API")

	cmd.AddCommand(newIdentityCommand(opts))
	cmd.AddCommand(newTripCommand(opts))
	cmd.AddCommand(newExpenseCommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newVerifyCommand(opts))
	cmd.AddCommand(newFlushCommand(opts))
	cmd.AddCommand(newExportCommand(opts))

	return cmd
}
