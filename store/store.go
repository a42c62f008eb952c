// Package store defines the persistence interfaces the API server depends
// on. Implementations live in store/postgres.
package store

import (
	"context"

	"github.com/roamledger/roamledger/types"
)

// TripStore persists trips under server-assigned IDs.
type TripStore interface {
	Create(ctx context.Context, trip *types.Trip) (int64, error)
	GetByID(ctx context.Context, id int64) (*types.Trip, error)
	// Update replaces the trip stored under trip.ID, scoped to the trip's
	// identity. A missing row or an identity mismatch reports RecordNotFound;
	// clients rely on that 404 to distinguish "update" from "create" when
	// pushing offline work.
	Update(ctx context.Context, trip *types.Trip) (*types.Trip, error)
	// Delete removes the identity's trip and, through the schema cascade,
	// its expenses. Deleting an absent trip, or one recorded under another
	// identity, is a no-op rather than an error.
	Delete(ctx context.Context, id int64, identityValue string) error
	ListByIdentity(ctx context.Context, identityValue string) ([]types.Trip, error)
}

// ExpenseStore persists expenses under their trips.
type ExpenseStore interface {
	// Create inserts the expense under its trip. An unknown trip reports
	// RecordNotFound.
	Create(ctx context.Context, expense *types.Expense) (int64, error)
	GetByID(ctx context.Context, id int64) (*types.Expense, error)
	// Update replaces the expense, scoped through the owning trip to the
	// given identity. An expense that is absent or belongs to another
	// identity's trip reports RecordNotFound, matching trip Update.
	Update(ctx context.Context, expense *types.Expense, identityValue string) (*types.Expense, error)
	// Delete removes the identity's expense. Absent or foreign expenses
	// are a no-op.
	Delete(ctx context.Context, id int64, identityValue string) error
	ListByTrip(ctx context.Context, tripID int64) ([]types.Expense, error)
}
