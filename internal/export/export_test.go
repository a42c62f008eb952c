package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/roamledger/roamledger/types"
)

func fixtureReport(t *testing.T) *TripReport {
	t.Helper()
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)

	first := types.Expense{
		ID:            9,
		TripID:        4,
		Date:          time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Destination:   "Porto",
		Justification: "Customer onboarding",
		Breakfast:     decimal.RequireFromString("12.50"),
		Lunch:         decimal.RequireFromString("25.00"),
		Mileage:       120,
		Receipt:       "data:image/png;base64,aGk=",
	}
	first.ComputeTotals()

	second := types.Expense{
		ID:               10,
		TripID:           4,
		Date:             time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		Destination:      "Matosinhos",
		Justification:    "Site survey",
		Dinner:           decimal.RequireFromString("30.00"),
		Parking:          decimal.RequireFromString("4.50"),
		Other:            decimal.RequireFromString("10.00"),
		OtherDescription: "Toll fees",
		Receipt:          "data:image/png;base64,aGk=",
	}
	second.ComputeTotals()

	return &TripReport{
		Identity: types.Identity{Value: "12345678901"},
		Trip: types.Trip{
			ID:            4,
			Name:          "Client visit Porto",
			StartDate:     &start,
			EndDate:       &end,
			IdentityValue: "12345678901",
		},
		// Out of date order on purpose; the report sorts.
		Expenses: []types.Expense{second, first},
	}
}

func TestWriteDocument_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, fixtureReport(t)))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "trip_report", buf.Bytes())
}

func TestWriteDocument_EmptyTripGolden(t *testing.T) {
	report := &TripReport{
		Identity: types.Identity{Value: "12345678901"},
		Trip:     types.Trip{ID: 1, Name: "Quick hop", IdentityValue: "12345678901"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, report))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "empty_trip", buf.Bytes())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, fixtureReport(t)))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	cell := func(ref string) string {
		value, err := f.GetCellValue(sheetName, ref)
		require.NoError(t, err)
		return value
	}

	assert.Equal(t, "Client visit Porto", cell("B1"))
	assert.Equal(t, "123.456.789-01", cell("B2"))
	assert.Equal(t, "2024-05-01 to 2024-05-03", cell("B3"))

	assert.Equal(t, "Date", cell("A5"))
	assert.Equal(t, "Total", cell("N5"))

	// Data rows come out date-sorted even though the input was not.
	assert.Equal(t, "2024-05-02", cell("A6"))
	assert.Equal(t, "Porto", cell("B6"))
	assert.Equal(t, "12.50", cell("D6"))
	assert.Equal(t, "120", cell("K6"))
	assert.Equal(t, "130.80", cell("L6"))
	assert.Equal(t, "168.30", cell("N6"))

	assert.Equal(t, "2024-05-03", cell("A7"))
	assert.Equal(t, "Toll fees", cell("J7"))
	assert.Equal(t, "44.50", cell("N7"))

	assert.Equal(t, "Grand total", cell("M9"))
	assert.Equal(t, "212.80", cell("N9"))
}

func TestSaveXLSXAndDocument(t *testing.T) {
	dir := t.TempDir()
	report := fixtureReport(t)

	xlsxPath := dir + "/report.xlsx"
	require.NoError(t, SaveXLSX(xlsxPath, report))
	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	f.Close()

	docPath := dir + "/report.txt"
	require.NoError(t, SaveDocument(docPath, report))
	assert.FileExists(t, docPath)
}

func TestPeriodFormatting(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start *time.Time
		end   *time.Time
		want  string
	}{
		{name: "both", start: &start, end: &end, want: "2024-05-01 to 2024-05-03"},
		{name: "start only", start: &start, want: "from 2024-05-01"},
		{name: "end only", end: &end, want: "until 2024-05-03"},
		{name: "neither", want: "not specified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := &TripReport{Trip: types.Trip{StartDate: tt.start, EndDate: tt.end}}
			assert.Equal(t, tt.want, report.period())
		})
	}
}
