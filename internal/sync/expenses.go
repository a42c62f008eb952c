package sync

import (
	"context"
	"time"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/logger"
	"github.com/roamledger/roamledger/types"
)

// SaveExpense writes a new expense remote-first. Totals are recomputed from
// the amount fields before validation, so a stored total can never disagree
// with its parts. When the expense's trip only exists locally the remote
// rejects the unknown trip ID and the expense falls back to the local store;
// FlushPending pushes the trip first and the expense follows under the
// adopted trip ID.
func (e *Engine) SaveExpense(ctx context.Context, expense *types.Expense) (*SaveResult, error) {
	log := logger.GetLogger()
	normalizeExpense(expense)
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	if err := expense.Validate(); err != nil {
		return nil, err
	}

	created, err := e.remote.CreateExpense(ctx, expense)
	if err == nil {
		expense.ID = created.ID
		if !created.CreatedAt.IsZero() {
			expense.CreatedAt = created.CreatedAt
		}
		expense.SyncStatus = types.SyncStatusSynced
		if _, err := e.store.PutExpense(ctx, expense); err != nil {
			log.Errorw("Expense saved remotely but local mirror failed", "expenseId", expense.ID, "error", err)
			return nil, err
		}
		return &SaveResult{ID: expense.ID, Synced: true}, nil
	}
	if !apperrors.IsRemoteFailure(err) {
		return nil, err
	}

	log.Warnw("Remote unavailable, saving expense locally",
		"tripId", expense.TripID, "destination", expense.Destination, "error", err)
	expense.ID = 0
	expense.SyncStatus = types.SyncStatusPendingCreate
	stored, storeErr := e.store.PutExpense(ctx, expense)
	if storeErr != nil {
		return nil, storeErr
	}
	return &SaveResult{ID: stored.ID, Synced: false}, nil
}

// UpdateExpense replaces an existing expense remote-first. A pending update
// requires the expense to already exist locally; it never creates one. The
// owning trip supplies the identity the remote update is scoped by.
func (e *Engine) UpdateExpense(ctx context.Context, expense *types.Expense) (*SaveResult, error) {
	log := logger.GetLogger()
	normalizeExpense(expense)
	if expense.ID == 0 {
		return nil, apperrors.ValidationFailed("Expense ID is required for updates", "")
	}
	if err := expense.Validate(); err != nil {
		return nil, err
	}

	trip, err := e.store.GetTrip(ctx, expense.TripID)
	if err != nil {
		return nil, err
	}

	updated, err := e.remote.UpdateExpense(ctx, expense, trip.IdentityValue)
	if err == nil {
		if !updated.CreatedAt.IsZero() {
			expense.CreatedAt = updated.CreatedAt
		}
		expense.SyncStatus = types.SyncStatusSynced
		if _, err := e.store.PutExpense(ctx, expense); err != nil {
			log.Errorw("Expense updated remotely but local mirror failed", "expenseId", expense.ID, "error", err)
			return nil, err
		}
		return &SaveResult{ID: expense.ID, Synced: true}, nil
	}
	if !apperrors.IsRemoteFailure(err) {
		return nil, err
	}

	existing, getErr := e.store.GetExpense(ctx, expense.ID)
	if getErr != nil {
		return nil, getErr
	}
	log.Warnw("Remote unavailable, updating expense locally", "expenseId", expense.ID, "error", err)
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = existing.CreatedAt
	}
	if existing.SyncStatus == types.SyncStatusPendingCreate {
		expense.SyncStatus = types.SyncStatusPendingCreate
	} else {
		expense.SyncStatus = types.SyncStatusPendingPush
	}
	if _, err := e.store.PutExpense(ctx, expense); err != nil {
		return nil, err
	}
	return &SaveResult{ID: expense.ID, Synced: false}, nil
}

// DeleteExpense removes an expense everywhere. The remote attempt comes
// first; a remote failure is logged and skipped. An expense the server has
// never seen carries a local key, so only the local delete runs for it. The
// local delete always runs and is idempotent.
func (e *Engine) DeleteExpense(ctx context.Context, id int64) error {
	expense, err := e.store.GetExpense(ctx, id)
	if apperrors.IsType(err, apperrors.RecordNotFoundError) {
		return e.store.DeleteExpense(ctx, id)
	}
	if err != nil {
		return err
	}

	if expense.SyncStatus != types.SyncStatusPendingCreate {
		trip, err := e.store.GetTrip(ctx, expense.TripID)
		if err != nil {
			return err
		}
		if err := e.remote.DeleteExpense(ctx, id, trip.IdentityValue); err != nil {
			if !apperrors.IsRemoteFailure(err) {
				return err
			}
			logger.GetLogger().Warnw("Remote expense delete failed", "expenseId", id, "error", err)
		}
	}
	return e.store.DeleteExpense(ctx, id)
}

// ExpensesByTrip reads a trip's expenses from the local store.
func (e *Engine) ExpensesByTrip(ctx context.Context, tripID int64) ([]types.Expense, error) {
	return e.store.ExpensesByTrip(ctx, tripID)
}

// GetExpense reads one expense from the local store.
func (e *Engine) GetExpense(ctx context.Context, id int64) (*types.Expense, error) {
	return e.store.GetExpense(ctx, id)
}
