package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roamledger/roamledger/internal/reconcile"
	"github.com/roamledger/roamledger/internal/sync"
	"github.com/roamledger/roamledger/logger"
)

func newSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push pending writes and pull the server's trips",
		Long: `Flush locally pending writes to the server, then pull the server's
trips for this identity into the local store. The pull is additive: trips
that exist only on this device are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), rootOpts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer app.Close()

			identity, err := app.identity(cmd.Context())
			if err != nil {
				return err
			}

			flushPending(cmd.Context(), app)

			changed, err := app.reconciler.SyncTripsFromServer(cmd.Context(), identity)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sync complete, %d trip(s) updated from server\n", changed)
			return nil
		},
	}
}

func newVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Rebuild the local store as an exact mirror of the server",
		Long: `Flush pending writes, then replace the local store's contents with the
server's trips and expenses for this identity. Local records the server does
not know about are removed; the flush beforehand shrinks that loss to writes
the server actively refused.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), rootOpts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer app.Close()

			identity, err := app.identity(cmd.Context())
			if err != nil {
				return err
			}

			flushPending(cmd.Context(), app)

			report := app.reconciler.VerifyAndFixDatabase(cmd.Context(), identity)
			switch report.Strategy {
			case reconcile.StrategyFull:
				fmt.Fprintf(cmd.OutOrStdout(), "local store verified, mirroring %d record(s)\n", report.Repaired)
			case reconcile.StrategyLight:
				fmt.Fprintf(cmd.OutOrStdout(),
					"full verification failed, fell back to a partial refresh (%d trip(s) updated)\n",
					report.Repaired)
			default:
				return report.Err
			}
			return nil
		},
	}
}

func newFlushCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Push writes made while offline to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd.Context(), rootOpts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.engine.FlushPending(cmd.Context())
			if err != nil {
				return err
			}
			printFlushReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

// flushPending runs a best-effort flush before reconciliation. Failures are
// logged and do not stop the pull: an unreachable server fails the pull with
// its own clearer error.
func flushPending(ctx context.Context, app *app) {
	report, err := app.engine.FlushPending(ctx)
	if err != nil {
		logger.GetLogger().Warnw("Flush before reconciliation failed", "error", err)
		return
	}
	if !report.Empty() {
		printFlushReport(app.out, report)
	}
}

func printFlushReport(out io.Writer, report *sync.FlushReport) {
	if report.Empty() {
		fmt.Fprintln(out, "nothing pending")
		return
	}
	fmt.Fprintf(out, "pushed %d trip(s) and %d expense(s)", report.TripsPushed, report.ExpensesPushed)
	if report.Conflicts > 0 {
		fmt.Fprintf(out, ", %d conflict(s)", report.Conflicts)
	}
	if report.Remaining > 0 {
		fmt.Fprintf(out, ", %d still pending", report.Remaining)
	}
	fmt.Fprintln(out)
}
