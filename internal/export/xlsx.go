package export

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Expenses"

var xlsxHeaders = []string{
	"Date", "Destination", "Justification",
	"Breakfast", "Lunch", "Dinner", "Transport", "Parking", "Other", "Other note",
	"Mileage (km)", "Mileage value", "Meal total", "Total",
}

// WriteXLSX renders the report as an XLSX workbook. Amounts are written as
// decimal strings, the same representation they are stored and transmitted in.
func WriteXLSX(w io.Writer, report *TripReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("prepare sheet: %w", err)
	}

	f.SetCellValue(sheetName, "A1", "Trip")
	f.SetCellValue(sheetName, "B1", report.Trip.Name)
	f.SetCellValue(sheetName, "A2", "Traveler")
	f.SetCellValue(sheetName, "B2", report.Identity.Display())
	f.SetCellValue(sheetName, "A3", "Period")
	f.SetCellValue(sheetName, "B3", report.period())

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("prepare style: %w", err)
	}

	const headerRow = 5
	for col, header := range xlsxHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, headerRow)
		if err != nil {
			return fmt.Errorf("address header cell: %w", err)
		}
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	expenses := report.sortedExpenses()
	for i := range expenses {
		e := &expenses[i]
		values := []interface{}{
			e.Date.Format("2006-01-02"),
			e.Destination,
			e.Justification,
			e.Breakfast.StringFixed(2),
			e.Lunch.StringFixed(2),
			e.Dinner.StringFixed(2),
			e.Transport.StringFixed(2),
			e.Parking.StringFixed(2),
			e.Other.StringFixed(2),
			e.OtherDescription,
			e.Mileage,
			e.MileageValue.StringFixed(2),
			e.MealTotal.StringFixed(2),
			e.Total.StringFixed(2),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, headerRow+1+i)
			if err != nil {
				return fmt.Errorf("address data cell: %w", err)
			}
			f.SetCellValue(sheetName, cell, value)
		}
	}

	totals := report.totals()
	totalsRow := headerRow + len(expenses) + 2
	labelCell, err := excelize.CoordinatesToCellName(len(xlsxHeaders)-1, totalsRow)
	if err != nil {
		return fmt.Errorf("address totals cell: %w", err)
	}
	valueCell, err := excelize.CoordinatesToCellName(len(xlsxHeaders), totalsRow)
	if err != nil {
		return fmt.Errorf("address totals cell: %w", err)
	}
	f.SetCellValue(sheetName, labelCell, "Grand total")
	f.SetCellStyle(sheetName, labelCell, labelCell, headerStyle)
	f.SetCellValue(sheetName, valueCell, totals.Grand.StringFixed(2))

	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "C", 24)
	f.SetColWidth(sheetName, "D", "N", 12)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes the workbook to a file path.
func SaveXLSX(path string, report *TripReport) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := WriteXLSX(file, report); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
