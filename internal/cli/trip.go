package cli

import (
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/types"
)

const dateLayout = "2006-01-02"

func newTripCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trip",
		Short: "Create, list, edit and delete trips",
	}
	cmd.AddCommand(newTripAddCommand(rootOpts))
	cmd.AddCommand(newTripListCommand(rootOpts))
	cmd.AddCommand(newTripUpdateCommand(rootOpts))
	cmd.AddCommand(newTripDeleteCommand(rootOpts))
	return cmd
}

// parseDateFlag parses an optional YYYY-MM-DD flag value.
func parseDateFlag(value, name string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return nil, apperrors.ValidationFailed("Invalid "+name, "expected YYYY-MM-DD, got "+value)
	}
	return &parsed, nil
}

func parseID(arg, entity string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ValidationFailed("Invalid "+entity+" ID", arg)
	}
	return id, nil
}

func newTripAddCommand(rootOpts *RootOptions) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a trip",
		Args:  cobra.ExactArgs(1),
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

			trip := types.Trip{Name: args[0], IdentityValue: identity.Value}
			if trip.StartDate, err = parseDateFlag(start, "start date"); err != nil {
				return err
			}
			if trip.EndDate, err = parseDateFlag(end, "end date"); err != nil {
				return err
			}

			result, err := app.engine.SaveTrip(cmd.Context(), &trip)
			if err != nil {
				return err
			}
			app.printSaveResult("trip", result)
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	return cmd
}

func newTripListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List this identity's trips from the local store",
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

			trips, err := app.engine.TripsByIdentity(cmd.Context(), identity.Value)
			if err != nil {
				return err
			}
			// Store listings are key-ordered; show creation order instead.
			sort.SliceStable(trips, func(i, j int) bool {
				return trips[i].CreatedAt.Before(trips[j].CreatedAt)
			})

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTART\tEND\tSTATUS")
			for i := range trips {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					trips[i].ID,
					trips[i].Name,
					formatDate(trips[i].StartDate),
					formatDate(trips[i].EndDate),
					statusLabel(trips[i].SyncStatus),
				)
			}
			return w.Flush()
		},
	}
}

func newTripUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var name, start, end string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "trip")
			if err != nil {
				return err
			}

			app, err := openApp(cmd.Context(), rootOpts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer app.Close()

			trip, err := app.engine.GetTrip(cmd.Context(), id)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("name") {
				trip.Name = name
			}
			if cmd.Flags().Changed("start") {
				if trip.StartDate, err = parseDateFlag(start, "start date"); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("end") {
				if trip.EndDate, err = parseDateFlag(end, "end date"); err != nil {
					return err
				}
			}

			result, err := app.engine.UpdateTrip(cmd.Context(), trip)
			if err != nil {
				return err
			}
			app.printSaveResult("trip", result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new trip name")
	cmd.Flags().StringVar(&start, "start", "", "new start date (YYYY-MM-DD, empty clears)")
	cmd.Flags().StringVar(&end, "end", "", "new end date (YYYY-MM-DD, empty clears)")
	return cmd
}

func newTripDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a trip and all its expenses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "trip")
			if err != nil {
				return err
			}

			app, err := openApp(cmd.Context(), rootOpts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.engine.DeleteTrip(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "trip #%d deleted\n", id)
			return nil
		},
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}

func statusLabel(status types.SyncStatus) string {
	if status.Pending() {
		return "pending"
	}
	switch status {
	case types.SyncStatusSynced:
		return "synced"
	case types.SyncStatusConflict:
		return "conflict"
	default:
		return string(status)
	}
}
