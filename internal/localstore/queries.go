package localstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/logger"
	"github.com/roamledger/roamledger/types"
)

// querier implements the row-level operations against either the store's
// own handle or a transaction. Store and Tx embed it.
type querier struct {
	db DBTX
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PutIdentity stores the identity record, overwriting any previous value.
// At most one identity row ever exists.
func (q querier) PutIdentity(ctx context.Context, identity types.Identity) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO identity (id, identity_value) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET identity_value = excluded.identity_value`,
		identity.Value)
	if err != nil {
		logger.GetLogger().Errorw("Failed to store identity", "error", err)
		return apperrors.NewDatabaseError(err)
	}
	return nil
}

// GetIdentity returns the identity record, or RecordNotFound when none has
// been set yet.
func (q querier) GetIdentity(ctx context.Context) (*types.Identity, error) {
	var value string
	err := q.db.QueryRowContext(ctx, `SELECT identity_value FROM identity WHERE id = 1`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Identity", 1)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return &types.Identity{Value: value}, nil
}

// PutTrip inserts or overwrites a trip. A zero ID lets the store assign the
// next local key; a non-zero ID stores the row under that exact key,
// overwriting any row already there (remote keys are adopted this way).
// The stored trip is returned with its assigned ID.
func (q querier) PutTrip(ctx context.Context, trip *types.Trip) (*types.Trip, error) {
	if !trip.SyncStatus.IsValid() {
		return nil, apperrors.ValidationFailed("Invalid trip", "unknown sync status "+trip.SyncStatus.String())
	}

	var idArg any
	if trip.ID != 0 {
		idArg = trip.ID
	}
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO trips (id, name, start_date, end_date, identity_value, created_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			identity_value = excluded.identity_value,
			created_at = excluded.created_at,
			sync_status = excluded.sync_status`,
		idArg, trip.Name, nullTime(trip.StartDate), nullTime(trip.EndDate),
		trip.IdentityValue, trip.CreatedAt.UTC(), trip.SyncStatus.String())
	if err != nil {
		logger.GetLogger().Errorw("Failed to store trip", "tripID", trip.ID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	stored := *trip
	if stored.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}
		stored.ID = id
	}
	return &stored, nil
}

// GetTrip returns one trip by key.
func (q querier) GetTrip(ctx context.Context, id int64) (*types.Trip, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, name, start_date, end_date, identity_value, created_at, sync_status
		FROM trips WHERE id = ?`, id)
	trip, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Trip", id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return trip, nil
}

// TripsByIdentity lists the identity's trips in key order.
func (q querier) TripsByIdentity(ctx context.Context, identityValue string) ([]types.Trip, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, start_date, end_date, identity_value, created_at, sync_status
		FROM trips WHERE identity_value = ? ORDER BY id`, identityValue)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	defer rows.Close()

	var trips []types.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}
		trips = append(trips, *trip)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return trips, nil
}

// TripsByStatus lists trips carrying the given sync status in key order.
func (q querier) TripsByStatus(ctx context.Context, status types.SyncStatus) ([]types.Trip, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, start_date, end_date, identity_value, created_at, sync_status
		FROM trips WHERE sync_status = ? ORDER BY id`, status.String())
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	defer rows.Close()

	var trips []types.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}
		trips = append(trips, *trip)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return trips, nil
}

// DeleteTrip removes the trip's expenses and then the trip itself. Absent
// rows are a no-op. Callers group it with WithTx; the Store method does so
// automatically.
func (q querier) DeleteTrip(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM expenses WHERE trip_id = ?`, id); err != nil {
		logger.GetLogger().Errorw("Failed to delete trip expenses", "tripID", id, "error", err)
		return apperrors.NewDatabaseError(err)
	}
	if _, err := q.db.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id); err != nil {
		logger.GetLogger().Errorw("Failed to delete trip", "tripID", id, "error", err)
		return apperrors.NewDatabaseError(err)
	}
	return nil
}

// AdoptTripID re-keys a trip under its remote identifier and marks it synced.
// Expense rows follow through the trip_id cascade. A stale row already under
// the remote key is overwritten, matching put-by-key semantics.
func (q querier) AdoptTripID(ctx context.Context, oldID, newID int64) error {
	if oldID == newID {
		res, err := q.db.ExecContext(ctx,
			`UPDATE trips SET sync_status = ? WHERE id = ?`,
			types.SyncStatusSynced.String(), oldID)
		return adoptionResult(res, err, "Trip", oldID)
	}

	if _, err := q.db.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, newID); err != nil {
		return apperrors.NewDatabaseError(err)
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE trips SET id = ?, sync_status = ? WHERE id = ?`,
		newID, types.SyncStatusSynced.String(), oldID)
	return adoptionResult(res, err, "Trip", oldID)
}

// PutExpense inserts or overwrites an expense, mirroring PutTrip's key rules.
func (q querier) PutExpense(ctx context.Context, expense *types.Expense) (*types.Expense, error) {
	if !expense.SyncStatus.IsValid() {
		return nil, apperrors.ValidationFailed("Invalid expense", "unknown sync status "+expense.SyncStatus.String())
	}

	var idArg any
	if expense.ID != 0 {
		idArg = expense.ID
	}
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO expenses (
			id, trip_id, date, destination, justification,
			breakfast, lunch, dinner, transport, parking, other,
			other_description, mileage, mileage_value, receipt,
			total, meal_total, created_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			trip_id = excluded.trip_id,
			date = excluded.date,
			destination = excluded.destination,
			justification = excluded.justification,
			breakfast = excluded.breakfast,
			lunch = excluded.lunch,
			dinner = excluded.dinner,
			transport = excluded.transport,
			parking = excluded.parking,
			other = excluded.other,
			other_description = excluded.other_description,
			mileage = excluded.mileage,
			mileage_value = excluded.mileage_value,
			receipt = excluded.receipt,
			total = excluded.total,
			meal_total = excluded.meal_total,
			created_at = excluded.created_at,
			sync_status = excluded.sync_status`,
		idArg, expense.TripID, expense.Date.UTC(), expense.Destination, expense.Justification,
		expense.Breakfast, expense.Lunch, expense.Dinner, expense.Transport, expense.Parking, expense.Other,
		expense.OtherDescription, expense.Mileage, expense.MileageValue, expense.Receipt,
		expense.Total, expense.MealTotal, expense.CreatedAt.UTC(), expense.SyncStatus.String())
	if err != nil {
		logger.GetLogger().Errorw("Failed to store expense", "expenseID", expense.ID, "tripID", expense.TripID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	stored := *expense
	if stored.ID == 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}
		stored.ID = id
	}
	return &stored, nil
}

// GetExpense returns one expense by key.
func (q querier) GetExpense(ctx context.Context, id int64) (*types.Expense, error) {
	row := q.db.QueryRowContext(ctx, expenseColumns+` FROM expenses WHERE id = ?`, id)
	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("Expense", id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return expense, nil
}

// ExpensesByTrip lists the trip's expenses in key order.
func (q querier) ExpensesByTrip(ctx context.Context, tripID int64) ([]types.Expense, error) {
	rows, err := q.db.QueryContext(ctx, expenseColumns+` FROM expenses WHERE trip_id = ? ORDER BY id`, tripID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

// ExpensesByStatus lists expenses carrying the given sync status in key order.
func (q querier) ExpensesByStatus(ctx context.Context, status types.SyncStatus) ([]types.Expense, error) {
	rows, err := q.db.QueryContext(ctx, expenseColumns+` FROM expenses WHERE sync_status = ? ORDER BY id`, status.String())
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

// DeleteExpense removes one expense. Absent rows are a no-op.
func (q querier) DeleteExpense(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		logger.GetLogger().Errorw("Failed to delete expense", "expenseID", id, "error", err)
		return apperrors.NewDatabaseError(err)
	}
	return nil
}

// AdoptExpenseID re-keys an expense under its remote identifier and marks it
// synced, overwriting any stale row under the remote key.
func (q querier) AdoptExpenseID(ctx context.Context, oldID, newID int64) error {
	if oldID == newID {
		res, err := q.db.ExecContext(ctx,
			`UPDATE expenses SET sync_status = ? WHERE id = ?`,
			types.SyncStatusSynced.String(), oldID)
		return adoptionResult(res, err, "Expense", oldID)
	}

	if _, err := q.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, newID); err != nil {
		return apperrors.NewDatabaseError(err)
	}
	res, err := q.db.ExecContext(ctx,
		`UPDATE expenses SET id = ?, sync_status = ? WHERE id = ?`,
		newID, types.SyncStatusSynced.String(), oldID)
	return adoptionResult(res, err, "Expense", oldID)
}

const expenseColumns = `
	SELECT id, trip_id, date, destination, justification,
		breakfast, lunch, dinner, transport, parking, other,
		other_description, mileage, mileage_value, receipt,
		total, meal_total, created_at, sync_status`

func adoptionResult(res sql.Result, err error, entity string, oldID int64) error {
	if err != nil {
		logger.GetLogger().Errorw("Failed to adopt remote identifier", "entity", entity, "oldID", oldID, "error", err)
		return apperrors.NewDatabaseError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}
	if affected == 0 {
		return apperrors.NotFound(entity, oldID)
	}
	return nil
}

func scanTrip(row rowScanner) (*types.Trip, error) {
	var t types.Trip
	var start, end sql.NullTime
	var status string
	if err := row.Scan(&t.ID, &t.Name, &start, &end, &t.IdentityValue, &t.CreatedAt, &status); err != nil {
		return nil, err
	}
	if start.Valid {
		v := start.Time.UTC()
		t.StartDate = &v
	}
	if end.Valid {
		v := end.Time.UTC()
		t.EndDate = &v
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.SyncStatus = types.SyncStatus(status)
	return &t, nil
}

func scanExpense(row rowScanner) (*types.Expense, error) {
	var e types.Expense
	var status string
	if err := row.Scan(
		&e.ID, &e.TripID, &e.Date, &e.Destination, &e.Justification,
		&e.Breakfast, &e.Lunch, &e.Dinner, &e.Transport, &e.Parking, &e.Other,
		&e.OtherDescription, &e.Mileage, &e.MileageValue, &e.Receipt,
		&e.Total, &e.MealTotal, &e.CreatedAt, &status); err != nil {
		return nil, err
	}
	e.Date = e.Date.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.SyncStatus = types.SyncStatus(status)
	return &e, nil
}

func collectExpenses(rows *sql.Rows) ([]types.Expense, error) {
	var expenses []types.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}
		expenses = append(expenses, *expense)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return expenses, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
