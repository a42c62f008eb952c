package export

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/roamledger/roamledger/types"
)

const documentTemplate = `TRAVEL EXPENSE REPORT

Traveler:    {{.Traveler}}
Trip:        {{.TripName}}
Period:      {{.Period}}

{{range .Expenses -}}
{{.Date}}  {{.Destination}}
  Justification: {{.Justification}}
  Breakfast: {{.Breakfast}}  Lunch: {{.Lunch}}  Dinner: {{.Dinner}}
  Transport: {{.Transport}}  Parking: {{.Parking}}  Other: {{.Other}}{{if .OtherNote}} ({{.OtherNote}}){{end}}
  Mileage: {{.Mileage}}
  Meal total: {{.MealTotal}}  Total: {{.Total}}

{{end -}}
SUMMARY

Expenses:    {{.Count}}
Meal total:  {{.MealTotalSum}}
Grand total: {{.GrandTotal}}
`

var documentTmpl = template.Must(template.New("document").Parse(documentTemplate))

type documentExpense struct {
	Date          string
	Destination   string
	Justification string
	Breakfast     string
	Lunch         string
	Dinner        string
	Transport     string
	Parking       string
	Other         string
	OtherNote     string
	Mileage       string
	MealTotal     string
	Total         string
}

type documentData struct {
	Traveler     string
	TripName     string
	Period       string
	Expenses     []documentExpense
	Count        int
	MealTotalSum string
	GrandTotal   string
}

// WriteDocument renders the report as a plain-text document.
func WriteDocument(w io.Writer, report *TripReport) error {
	expenses := report.sortedExpenses()
	data := documentData{
		Traveler: report.Identity.Display(),
		TripName: report.Trip.Name,
		Period:   report.period(),
		Expenses: make([]documentExpense, 0, len(expenses)),
		Count:    len(expenses),
	}
	for i := range expenses {
		data.Expenses = append(data.Expenses, newDocumentExpense(&expenses[i]))
	}
	totals := report.totals()
	data.MealTotalSum = totals.Meals.StringFixed(2)
	data.GrandTotal = totals.Grand.StringFixed(2)

	if err := documentTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render document: %w", err)
	}
	return nil
}

// SaveDocument writes the document to a file path.
func SaveDocument(path string, report *TripReport) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := WriteDocument(file, report); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func newDocumentExpense(e *types.Expense) documentExpense {
	return documentExpense{
		Date:          e.Date.Format("2006-01-02"),
		Destination:   e.Destination,
		Justification: e.Justification,
		Breakfast:     e.Breakfast.StringFixed(2),
		Lunch:         e.Lunch.StringFixed(2),
		Dinner:        e.Dinner.StringFixed(2),
		Transport:     e.Transport.StringFixed(2),
		Parking:       e.Parking.StringFixed(2),
		Other:         e.Other.StringFixed(2),
		OtherNote:     e.OtherDescription,
		Mileage:       fmt.Sprintf("%d km = %s", e.Mileage, e.MileageValue.StringFixed(2)),
		MealTotal:     e.MealTotal.StringFixed(2),
		Total:         e.Total.StringFixed(2),
	}
}
