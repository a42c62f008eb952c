package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roamledger/roamledger/errors"
)

// MileageRate is the fixed reimbursement rate per kilometer driven.
var MileageRate = decimal.RequireFromString("1.09")

// Expense is one spend event within a trip. Monetary amounts are decimals
// end to end and serialize as decimal strings; they are never floats.
type Expense struct {
	ID               int64           `json:"id"`
	TripID           int64           `json:"tripId"`
	Date             time.Time       `json:"date"`
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
	CreatedAt        time.Time       `json:"createdAt"`
	SyncStatus       SyncStatus      `json:"syncStatus,omitempty"`
}

// ComputeTotals recomputes the derived fields from the sub-amounts. Stored
// totals are never trusted; every write path calls this before persisting.
// MealTotal predates the split meal amounts and is kept so older records
// keep reading correctly.
func (e *Expense) ComputeTotals() {
	mileageValue := decimal.NewFromInt(e.Mileage).Mul(MileageRate)
	e.MileageValue = mileageValue.Round(2)
	e.MealTotal = e.Breakfast.Add(e.Lunch).Add(e.Dinner)
	e.Total = e.MealTotal.
		Add(e.Transport).
		Add(e.Parking).
		Add(e.Other).
		Add(mileageValue).
		Round(2)
}

// Validate checks the expense before any write is attempted.
func (e *Expense) Validate() error {
	if e.TripID == 0 {
		return errors.ValidationFailed("Invalid expense", "trip id must be set")
	}
	if e.Date.IsZero() {
		return errors.ValidationFailed("Invalid expense", "date must be set")
	}
	if strings.TrimSpace(e.Destination) == "" {
		return errors.ValidationFailed("Invalid expense", "destination must not be empty")
	}
	if strings.TrimSpace(e.Justification) == "" {
		return errors.ValidationFailed("Invalid expense", "justification must not be empty")
	}
	if e.Mileage < 0 {
		return errors.ValidationFailed("Invalid expense", "mileage must not be negative")
	}
	for _, amount := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"breakfast", e.Breakfast},
		{"lunch", e.Lunch},
		{"dinner", e.Dinner},
		{"transport", e.Transport},
		{"parking", e.Parking},
		{"other", e.Other},
	} {
		if amount.value.IsNegative() {
			return errors.ValidationFailed("Invalid expense", amount.name+" must not be negative")
		}
	}
	if err := ValidateReceipt(e.Receipt); err != nil {
		return err
	}
	return nil
}
