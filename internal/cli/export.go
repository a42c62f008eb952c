package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/internal/export"
)

func newExportCommand(rootOpts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <trip-id>",
		Short: "Export a trip report",
		Long: `Render a trip and its expenses into a report file. The format follows
the output extension: .xlsx for a spreadsheet, .txt for a plain-text
document. Reports read the local store only; sync first for fresh data.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tripID, err := parseID(args[0], "trip")
			if err != nil {
				return err
			}

			app, err := openApp(cmd.Context(), rootOpts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer app.Close()

			identity, err := app.identity(cmd.Context())
			if err != nil {
				return err
			}
			trip, err := app.engine.GetTrip(cmd.Context(), tripID)
			if err != nil {
				return err
			}
			expenses, err := app.engine.ExpensesByTrip(cmd.Context(), tripID)
			if err != nil {
				return err
			}

			report := &export.TripReport{
				Identity: identity,
				Trip:     *trip,
				Expenses: expenses,
			}

			switch strings.ToLower(filepath.Ext(out)) {
			case ".xlsx":
				err = export.SaveXLSX(out, report)
			case ".txt":
				err = export.SaveDocument(out, report)
			default:
				return apperrors.ValidationFailed("Unsupported report format",
					"output file must end in .xlsx or .txt")
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "report for %q written to %s\n", trip.Name, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (.xlsx or .txt)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
