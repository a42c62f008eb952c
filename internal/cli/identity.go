package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/internal/reconcile"
	"github.com/roamledger/roamledger/types"
)

func newIdentityCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage the identity your trips are correlated by",
	}
	cmd.AddCommand(newIdentitySetCommand(rootOpts))
	cmd.AddCommand(newIdentityShowCommand(rootOpts))
	return cmd
}

func newIdentitySetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <11-digit value>",
		Short: "Set or replace this device's identity value",
		Long: `Set the identity value trips are filed under. Punctuation is accepted
and stripped, so 123.456.789-09 and 12345678909 are the same identity.
The same value entered on another device shares the same trips.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity := types.Identity{Value: types.NormalizeIdentity(args[0])}
			if err := identity.Validate(); err != nil {
				return err
			}

			app, err := openApp(cmd.Context(), rootOpts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer app.Close()

			_, getErr := app.store.GetIdentity(cmd.Context())
			firstUse := apperrors.IsType(getErr, apperrors.RecordNotFoundError)

			if err := app.store.PutIdentity(cmd.Context(), identity); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "identity set to %s\n", identity.Display())

			// A fresh device pulls its history from the server right away.
			// Offline is fine: sync or verify catches up later.
			if firstUse {
				report := app.reconciler.VerifyAndFixDatabase(cmd.Context(), identity)
				switch report.Strategy {
				case reconcile.StrategyFull:
					fmt.Fprintf(cmd.OutOrStdout(), "pulled %d record(s) from the server\n", report.Repaired)
				case reconcile.StrategyLight:
					fmt.Fprintf(cmd.OutOrStdout(), "pulled %d trip(s) from the server\n", report.Repaired)
				default:
					fmt.Fprintln(cmd.OutOrStdout(),
						"could not reach the server; run \"roam sync\" later to pull your trips")
				}
			}
			return nil
		},
	}
}

func newIdentityShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the configured identity value",
		Args:  cobra.NoArgs,
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
			fmt.Fprintln(cmd.OutOrStdout(), identity.Display())
			return nil
		},
	}
}
