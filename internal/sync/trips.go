package sync

import (
	"context"
	"time"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/logger"
	"github.com/roamledger/roamledger/types"
)

// SaveTrip writes a new trip remote-first. On remote success the
// server-assigned ID is adopted and the local mirror is marked synced; when
// the remote fails the trip is stored locally under an auto-assigned ID and
// marked pending. Validation failures abort before any write.
func (e *Engine) SaveTrip(ctx context.Context, trip *types.Trip) (*SaveResult, error) {
	log := logger.GetLogger()
	normalizeTrip(trip)
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = time.Now().UTC()
	}
	if err := trip.Validate(); err != nil {
		return nil, err
	}

	created, err := e.remote.CreateTrip(ctx, trip)
	if err == nil {
		trip.ID = created.ID
		if !created.CreatedAt.IsZero() {
			trip.CreatedAt = created.CreatedAt
		}
		trip.SyncStatus = types.SyncStatusSynced
		if _, err := e.store.PutTrip(ctx, trip); err != nil {
			log.Errorw("Trip saved remotely but local mirror failed", "tripId", trip.ID, "error", err)
			return nil, err
		}
		return &SaveResult{ID: trip.ID, Synced: true}, nil
	}
	if !apperrors.IsRemoteFailure(err) {
		return nil, err
	}

	log.Warnw("Remote unavailable, saving trip locally", "name", trip.Name, "error", err)
	trip.ID = 0
	trip.SyncStatus = types.SyncStatusPendingCreate
	stored, storeErr := e.store.PutTrip(ctx, trip)
	if storeErr != nil {
		return nil, storeErr
	}
	return &SaveResult{ID: stored.ID, Synced: false}, nil
}

// UpdateTrip replaces an existing trip remote-first. When the remote fails,
// the update lands locally only if the trip already exists there; a pending
// update never creates a record.
func (e *Engine) UpdateTrip(ctx context.Context, trip *types.Trip) (*SaveResult, error) {
	log := logger.GetLogger()
	normalizeTrip(trip)
	if trip.ID == 0 {
		return nil, apperrors.ValidationFailed("Trip ID is required for updates", "")
	}
	if err := trip.Validate(); err != nil {
		return nil, err
	}

	updated, err := e.remote.UpdateTrip(ctx, trip)
	if err == nil {
		if !updated.CreatedAt.IsZero() {
			trip.CreatedAt = updated.CreatedAt
		}
		trip.SyncStatus = types.SyncStatusSynced
		if _, err := e.store.PutTrip(ctx, trip); err != nil {
			log.Errorw("Trip updated remotely but local mirror failed", "tripId", trip.ID, "error", err)
			return nil, err
		}
		return &SaveResult{ID: trip.ID, Synced: true}, nil
	}
	if !apperrors.IsRemoteFailure(err) {
		return nil, err
	}

	existing, getErr := e.store.GetTrip(ctx, trip.ID)
	if getErr != nil {
		return nil, getErr
	}
	log.Warnw("Remote unavailable, updating trip locally", "tripId", trip.ID, "error", err)
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = existing.CreatedAt
	}
	// Editing a record the server has never seen keeps it a pending
	// creation; its local key must never reach the remote API.
	if existing.SyncStatus == types.SyncStatusPendingCreate {
		trip.SyncStatus = types.SyncStatusPendingCreate
	} else {
		trip.SyncStatus = types.SyncStatusPendingPush
	}
	if _, err := e.store.PutTrip(ctx, trip); err != nil {
		return nil, err
	}
	return &SaveResult{ID: trip.ID, Synced: false}, nil
}

// DeleteTrip removes a trip and its expenses everywhere. Remote deletes are
// attempted first, expenses before the trip; a remote failure is logged and
// skipped since the rows are already gone or will be overwritten by a later
// reconciliation. Rows the server has never seen carry local keys that may
// collide with someone else's server records, so they are never deleted
// remotely. The local cascade always runs and is idempotent.
func (e *Engine) DeleteTrip(ctx context.Context, id int64) error {
	log := logger.GetLogger()

	trip, err := e.store.GetTrip(ctx, id)
	if apperrors.IsType(err, apperrors.RecordNotFoundError) {
		return e.store.DeleteTrip(ctx, id)
	}
	if err != nil {
		return err
	}

	expenses, err := e.store.ExpensesByTrip(ctx, id)
	if err != nil {
		return err
	}
	for i := range expenses {
		if expenses[i].SyncStatus == types.SyncStatusPendingCreate {
			continue
		}
		if err := e.remote.DeleteExpense(ctx, expenses[i].ID, trip.IdentityValue); err != nil {
			if !apperrors.IsRemoteFailure(err) {
				return err
			}
			log.Warnw("Remote expense delete failed", "expenseId", expenses[i].ID, "error", err)
		}
	}
	if trip.SyncStatus != types.SyncStatusPendingCreate {
		if err := e.remote.DeleteTrip(ctx, id, trip.IdentityValue); err != nil {
			if !apperrors.IsRemoteFailure(err) {
				return err
			}
			log.Warnw("Remote trip delete failed", "tripId", id, "error", err)
		}
	}

	return e.store.DeleteTrip(ctx, id)
}

// TripsByIdentity reads trips from the local store. Reads never touch the
// remote; reconciliation is responsible for keeping the mirror current.
func (e *Engine) TripsByIdentity(ctx context.Context, identityValue string) ([]types.Trip, error) {
	return e.store.TripsByIdentity(ctx, identityValue)
}

// GetTrip reads one trip from the local store.
func (e *Engine) GetTrip(ctx context.Context, id int64) (*types.Trip, error) {
	return e.store.GetTrip(ctx, id)
}
