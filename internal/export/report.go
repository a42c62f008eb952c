// Package export renders a trip and its expenses into shareable report
// formats: an XLSX workbook and a plain-text document. Exports read whatever
// the local store holds; they do not touch the network.
package export

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/roamledger/roamledger/types"
)

// TripReport bundles everything one report needs.
type TripReport struct {
	Identity types.Identity
	Trip     types.Trip
	Expenses []types.Expense
}

// sortedExpenses returns the expenses ordered by date, then by ID for equal
// dates. Store listings are key-ordered, which is not presentation order.
func (r *TripReport) sortedExpenses() []types.Expense {
	expenses := make([]types.Expense, len(r.Expenses))
	copy(expenses, r.Expenses)
	sort.SliceStable(expenses, func(i, j int) bool {
		if !expenses[i].Date.Equal(expenses[j].Date) {
			return expenses[i].Date.Before(expenses[j].Date)
		}
		return expenses[i].ID < expenses[j].ID
	})
	return expenses
}

type reportTotals struct {
	Meals decimal.Decimal
	Grand decimal.Decimal
}

func (r *TripReport) totals() reportTotals {
	t := reportTotals{}
	for i := range r.Expenses {
		t.Meals = t.Meals.Add(r.Expenses[i].MealTotal)
		t.Grand = t.Grand.Add(r.Expenses[i].Total)
	}
	return t
}

// period renders the trip's date range for display.
func (r *TripReport) period() string {
	start, end := r.Trip.StartDate, r.Trip.EndDate
	switch {
	case start != nil && end != nil:
		return start.Format("2006-01-02") + " to " + end.Format("2006-01-02")
	case start != nil:
		return "from " + start.Format("2006-01-02")
	case end != nil:
		return "until " + end.Format("2006-01-02")
	default:
		return "not specified"
	}
}
