package sync

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/logger"
	"github.com/roamledger/roamledger/types"
)

// FlushReport summarizes one flush pass.
type FlushReport struct {
	TripsPushed    int `json:"tripsPushed"`
	ExpensesPushed int `json:"expensesPushed"`
	Conflicts      int `json:"conflicts"`
	Remaining      int `json:"remaining"`
}

// Empty reports whether the flush found nothing pending.
func (r *FlushReport) Empty() bool {
	return r.TripsPushed == 0 && r.ExpensesPushed == 0 && r.Conflicts == 0 && r.Remaining == 0
}

// FlushPending pushes every pending record to the remote API, trips before
// expenses so that locally created trips obtain their server IDs first; the
// ID adoption re-keys their expenses, which then push under the adopted trip
// ID. Records the remote still refuses stay pending for the next flush. A
// partial report is returned alongside any local store error.
func (e *Engine) FlushPending(ctx context.Context) (*FlushReport, error) {
	log := logger.GetLogger()
	report := &FlushReport{}

	trips, err := e.pendingTrips(ctx)
	if err != nil {
		return report, err
	}
	for i := range trips {
		trip := &trips[i]
		if e.policy.ResolveTrip(trip) == ResolutionConflict {
			trip.SyncStatus = types.SyncStatusConflict
			if _, err := e.store.PutTrip(ctx, trip); err != nil {
				return report, err
			}
			report.Conflicts++
			continue
		}
		remoteID, err := e.pushTrip(ctx, trip)
		if err != nil {
			log.Warnw("Trip push failed, keeping it pending", "tripId", trip.ID, "error", err)
			report.Remaining++
			continue
		}
		if err := e.store.AdoptTripID(ctx, trip.ID, remoteID); err != nil {
			return report, err
		}
		report.TripsPushed++
	}

	expenses, err := e.pendingExpenses(ctx)
	if err != nil {
		return report, err
	}
	for i := range expenses {
		expense := &expenses[i]
		if e.policy.ResolveExpense(expense) == ResolutionConflict {
			expense.SyncStatus = types.SyncStatusConflict
			if _, err := e.store.PutExpense(ctx, expense); err != nil {
				return report, err
			}
			report.Conflicts++
			continue
		}
		remoteID, err := e.pushExpense(ctx, expense)
		if err != nil {
			log.Warnw("Expense push failed, keeping it pending", "expenseId", expense.ID, "error", err)
			report.Remaining++
			continue
		}
		if err := e.store.AdoptExpenseID(ctx, expense.ID, remoteID); err != nil {
			return report, err
		}
		report.ExpensesPushed++
	}

	if !report.Empty() {
		log.Infow("Flush complete",
			"tripsPushed", report.TripsPushed,
			"expensesPushed", report.ExpensesPushed,
			"conflicts", report.Conflicts,
			"remaining", report.Remaining)
	}
	return report, nil
}

// pendingTrips lists every trip awaiting a push, creations before edits.
func (e *Engine) pendingTrips(ctx context.Context) ([]types.Trip, error) {
	creates, err := e.store.TripsByStatus(ctx, types.SyncStatusPendingCreate)
	if err != nil {
		return nil, err
	}
	edits, err := e.store.TripsByStatus(ctx, types.SyncStatusPendingPush)
	if err != nil {
		return nil, err
	}
	return append(creates, edits...), nil
}

func (e *Engine) pendingExpenses(ctx context.Context) ([]types.Expense, error) {
	creates, err := e.store.ExpensesByStatus(ctx, types.SyncStatusPendingCreate)
	if err != nil {
		return nil, err
	}
	edits, err := e.store.ExpensesByStatus(ctx, types.SyncStatusPendingPush)
	if err != nil {
		return nil, err
	}
	return append(creates, edits...), nil
}

// pushTrip sends one pending trip remote-ward and hands back the server's
// ID. A pending creation carries a local key the server never issued, so it
// pushes as a creation without the key; the local key must never reach the
// remote API, where it could collide with another record. A pending edit
// updates in place, falling back to a creation only when the server reports
// its record gone.
func (e *Engine) pushTrip(ctx context.Context, trip *types.Trip) (int64, error) {
	if trip.SyncStatus == types.SyncStatusPendingCreate {
		fresh := *trip
		fresh.ID = 0
		created, err := e.remote.CreateTrip(ctx, &fresh)
		if err != nil {
			return 0, err
		}
		return created.ID, nil
	}

	updated, err := e.remote.UpdateTrip(ctx, trip)
	if err == nil {
		return updated.ID, nil
	}
	if !isRemoteNotFound(err) {
		return 0, err
	}
	fresh := *trip
	fresh.ID = 0
	created, err := e.remote.CreateTrip(ctx, &fresh)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

// pushExpense mirrors pushTrip. Edits are scoped by the owning trip's
// identity, read from the local store; by the time expenses push, their trip
// has already synced.
func (e *Engine) pushExpense(ctx context.Context, expense *types.Expense) (int64, error) {
	if expense.SyncStatus == types.SyncStatusPendingCreate {
		fresh := *expense
		fresh.ID = 0
		created, err := e.remote.CreateExpense(ctx, &fresh)
		if err != nil {
			return 0, err
		}
		return created.ID, nil
	}

	trip, err := e.store.GetTrip(ctx, expense.TripID)
	if err != nil {
		return 0, err
	}
	updated, err := e.remote.UpdateExpense(ctx, expense, trip.IdentityValue)
	if err == nil {
		return updated.ID, nil
	}
	if !isRemoteNotFound(err) {
		return 0, err
	}
	fresh := *expense
	fresh.ID = 0
	created, err := e.remote.CreateExpense(ctx, &fresh)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

func isRemoteNotFound(err error) bool {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Type == apperrors.RemoteRequestFailedError &&
		appErr.RemoteStatus == http.StatusNotFound
}
