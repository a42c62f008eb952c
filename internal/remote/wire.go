package remote

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/types"
)

// Wire payloads carry dates as RFC 3339 UTC strings and amounts as decimal
// strings. Sync status never crosses the wire; it is device-local state.

type tripPayload struct {
	ID            int64  `json:"id,omitempty"`
	Name          string `json:"name"`
	StartDate     string `json:"startDate,omitempty"`
	EndDate       string `json:"endDate,omitempty"`
	IdentityValue string `json:"identityValue"`
	CreatedAt     string `json:"createdAt,omitempty"`
}

type expensePayload struct {
	ID               int64           `json:"id,omitempty"`
	TripID           int64           `json:"tripId"`
	Date             string          `json:"date"`
	Destination      string          `json:"destination"`
	Justification    string          `json:"justification"`
	Breakfast        decimal.Decimal `json:"breakfast"`
	Lunch            decimal.Decimal `json:"lunch"`
	Dinner           decimal.Decimal `json:"dinner"`
	Transport        decimal.Decimal `json:"transport"`
	Parking          decimal.Decimal `json:"parking"`
	Other            decimal.Decimal `json:"other"`
	OtherDescription string          `json:"otherDescription,omitempty"`
	Mileage          int64           `json:"mileage"`
	MileageValue     decimal.Decimal `json:"mileageValue"`
	Receipt          string          `json:"receipt"`
	Total            decimal.Decimal `json:"total"`
	MealTotal        decimal.Decimal `json:"mealTotal"`
	CreatedAt        string          `json:"createdAt,omitempty"`
}

func toTripPayload(t *types.Trip) tripPayload {
	p := tripPayload{
		ID:            t.ID,
		Name:          t.Name,
		IdentityValue: t.IdentityValue,
	}
	if t.StartDate != nil {
		p.StartDate = t.StartDate.UTC().Format(time.RFC3339)
	}
	if t.EndDate != nil {
		p.EndDate = t.EndDate.UTC().Format(time.RFC3339)
	}
	if !t.CreatedAt.IsZero() {
		p.CreatedAt = t.CreatedAt.UTC().Format(time.RFC3339)
	}
	return p
}

func (p tripPayload) toTrip() (*types.Trip, error) {
	t := &types.Trip{
		ID:            p.ID,
		Name:          p.Name,
		IdentityValue: p.IdentityValue,
	}
	var err error
	if t.StartDate, err = parseOptionalDate(p.StartDate); err != nil {
		return nil, err
	}
	if t.EndDate, err = parseOptionalDate(p.EndDate); err != nil {
		return nil, err
	}
	if p.CreatedAt != "" {
		created, err := parseDate(p.CreatedAt)
		if err != nil {
			return nil, err
		}
		t.CreatedAt = created
	}
	return t, nil
}

func toExpensePayload(e *types.Expense) expensePayload {
	p := expensePayload{
		ID:               e.ID,
		TripID:           e.TripID,
		Date:             e.Date.UTC().Format(time.RFC3339),
		Destination:      e.Destination,
		Justification:    e.Justification,
		Breakfast:        e.Breakfast,
		Lunch:            e.Lunch,
		Dinner:           e.Dinner,
		Transport:        e.Transport,
		Parking:          e.Parking,
		Other:            e.Other,
		OtherDescription: e.OtherDescription,
		Mileage:          e.Mileage,
		MileageValue:     e.MileageValue,
		Receipt:          e.Receipt,
		Total:            e.Total,
		MealTotal:        e.MealTotal,
	}
	if !e.CreatedAt.IsZero() {
		p.CreatedAt = e.CreatedAt.UTC().Format(time.RFC3339)
	}
	return p
}

func (p expensePayload) toExpense() (*types.Expense, error) {
	date, err := parseDate(p.Date)
	if err != nil {
		return nil, err
	}
	e := &types.Expense{
		ID:               p.ID,
		TripID:           p.TripID,
		Date:             date,
		Destination:      p.Destination,
		Justification:    p.Justification,
		Breakfast:        p.Breakfast,
		Lunch:            p.Lunch,
		Dinner:           p.Dinner,
		Transport:        p.Transport,
		Parking:          p.Parking,
		Other:            p.Other,
		OtherDescription: p.OtherDescription,
		Mileage:          p.Mileage,
		MileageValue:     p.MileageValue,
		Receipt:          p.Receipt,
		Total:            p.Total,
		MealTotal:        p.MealTotal,
	}
	if p.CreatedAt != "" {
		if e.CreatedAt, err = parseDate(p.CreatedAt); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperrors.New(apperrors.RemoteRequestFailedError,
			"Remote API returned a malformed date", value)
	}
	return t.UTC(), nil
}

func parseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := parseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
