package cli

import (
	"encoding/base64"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/types"
)

func newExpenseCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Record, list, edit and delete expenses",
	}
	cmd.AddCommand(newExpenseAddCommand(rootOpts))
	cmd.AddCommand(newExpenseListCommand(rootOpts))
	cmd.AddCommand(newExpenseUpdateCommand(rootOpts))
	cmd.AddCommand(newExpenseDeleteCommand(rootOpts))
	return cmd
}

// expenseFlags collects the amount and detail flags shared by add and update.
type expenseFlags struct {
	date          string
	destination   string
	justification string
	breakfast     string
	lunch         string
	dinner        string
	transport     string
	parking       string
	other         string
	otherDesc     string
	mileage       int64
	receiptPath   string
}

func (f *expenseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "expense date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.destination, "destination", "", "where the expense happened")
	cmd.Flags().StringVar(&f.justification, "justification", "", "why the expense happened")
	cmd.Flags().StringVar(&f.breakfast, "breakfast", "", "breakfast amount")
	cmd.Flags().StringVar(&f.lunch, "lunch", "", "lunch amount")
	cmd.Flags().StringVar(&f.dinner, "dinner", "", "dinner amount")
	cmd.Flags().StringVar(&f.transport, "transport", "", "transport amount")
	cmd.Flags().StringVar(&f.parking, "parking", "", "parking amount")
	cmd.Flags().StringVar(&f.other, "other", "", "other amount")
	cmd.Flags().StringVar(&f.otherDesc, "other-description", "", "what the other amount covers")
	cmd.Flags().Int64Var(&f.mileage, "mileage", 0, "distance driven in kilometers")
	cmd.Flags().StringVar(&f.receiptPath, "receipt", "", "path to the receipt image file")
}

// parseAmount parses a decimal amount flag; empty means zero.
func parseAmount(value, name string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, apperrors.ValidationFailed("Invalid "+name+" amount", value)
	}
	return amount, nil
}

// loadReceipt reads an image file and encodes it as a base64 data URI, the
// representation receipts keep end to end.
func loadReceipt(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.ValidationFailed("Cannot read receipt file", err.Error())
	}
	mime := mimetype.Detect(raw)
	dataURI := "data:" + mime.String() + ";base64," + base64.StdEncoding.EncodeToString(raw)
	if err := types.ValidateReceipt(dataURI); err != nil {
		return "", err
	}
	return dataURI, nil
}

// apply copies every changed flag onto the expense.
func (f *expenseFlags) apply(cmd *cobra.Command, expense *types.Expense) error {
	var err error
	if cmd.Flags().Changed("date") {
		date, err := parseDateFlag(f.date, "date")
		if err != nil {
			return err
		}
		if date == nil {
			return apperrors.ValidationFailed("Invalid date", "date must not be empty")
		}
		expense.Date = *date
	}
	if cmd.Flags().Changed("destination") {
		expense.Destination = f.destination
	}
	if cmd.Flags().Changed("justification") {
		expense.Justification = f.justification
	}
	amounts := []struct {
		flag  string
		value string
		field *decimal.Decimal
	}{
		{"breakfast", f.breakfast, &expense.Breakfast},
		{"lunch", f.lunch, &expense.Lunch},
		{"dinner", f.dinner, &expense.Dinner},
		{"transport", f.transport, &expense.Transport},
		{"parking", f.parking, &expense.Parking},
		{"other", f.other, &expense.Other},
	}
	for _, a := range amounts {
		if !cmd.Flags().Changed(a.flag) {
			continue
		}
		if *a.field, err = parseAmount(a.value, a.flag); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("other-description") {
		expense.OtherDescription = f.otherDesc
	}
	if cmd.Flags().Changed("mileage") {
		expense.Mileage = f.mileage
	}
	if cmd.Flags().Changed("receipt") {
		if expense.Receipt, err = loadReceipt(f.receiptPath); err != nil {
			return err
		}
	}
	return nil
}

func newExpenseAddCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &expenseFlags{}

	cmd := &cobra.Command{
		Use:   "add <trip-id>",
		Short: "Record an expense under a trip",
		Args:  cobra.ExactArgs(1),
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

			expense := types.Expense{TripID: tripID}
			if err := flags.apply(cmd, &expense); err != nil {
				return err
			}

			result, err := app.engine.SaveExpense(cmd.Context(), &expense)
			if err != nil {
				return err
			}
			app.printSaveResult("expense", result)
			return nil
		},
	}

	flags.register(cmd)
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("destination")
	_ = cmd.MarkFlagRequired("justification")
	_ = cmd.MarkFlagRequired("receipt")
	return cmd
}

func newExpenseListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <trip-id>",
		Short: "List a trip's expenses from the local store",
		Args:  cobra.ExactArgs(1),
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

			expenses, err := app.engine.ExpensesByTrip(cmd.Context(), tripID)
			if err != nil {
				return err
			}
			sort.SliceStable(expenses, func(i, j int) bool {
				if !expenses[i].Date.Equal(expenses[j].Date) {
					return expenses[i].Date.Before(expenses[j].Date)
				}
				return expenses[i].ID < expenses[j].ID
			})

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tDESTINATION\tTOTAL\tSTATUS")
			total := decimal.Zero
			for i := range expenses {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					expenses[i].ID,
					expenses[i].Date.Format(dateLayout),
					expenses[i].Destination,
					expenses[i].Total.StringFixed(2),
					statusLabel(expenses[i].SyncStatus),
				)
				total = total.Add(expenses[i].Total)
			}
			fmt.Fprintf(w, "\t\t\t%s\t\n", total.StringFixed(2))
			return w.Flush()
		},
	}
}

func newExpenseUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &expenseFlags{}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "expense")
			if err != nil {
				return err
			}

			app, err := openApp(cmd.Context(), rootOpts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer app.Close()

			expense, err := app.engine.GetExpense(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, expense); err != nil {
				return err
			}

			result, err := app.engine.UpdateExpense(cmd.Context(), expense)
			if err != nil {
				return err
			}
			app.printSaveResult("expense", result)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newExpenseDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "expense")
			if err != nil {
				return err
			}

			app, err := openApp(cmd.Context(), rootOpts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.engine.DeleteExpense(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expense #%d deleted\n", id)
			return nil
		},
	}
}
