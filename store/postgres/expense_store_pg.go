package postgres

import (
	"context"
	"errors"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/logger"
	"github.com/roamledger/roamledger/store"
	"github.com/roamledger/roamledger/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var _ store.ExpenseStore = (*pgExpenseStore)(nil)

type pgExpenseStore struct {
	db DB
}

// NewPgExpenseStore creates a new PostgreSQL expense store.
func NewPgExpenseStore(db DB) store.ExpenseStore {
	return &pgExpenseStore{db: db}
}

// isForeignKeyViolation reports whether err is Postgres error 23503, raised
// when an expense references a trip that does not exist.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func scanExpense(row pgx.Row, exp *types.Expense) error {
	return row.Scan(
		&exp.ID,
		&exp.TripID,
		&exp.Date,
		&exp.Destination,
		&exp.Justification,
		&exp.Breakfast,
		&exp.Lunch,
		&exp.Dinner,
		&exp.Transport,
		&exp.Parking,
		&exp.Other,
		&exp.OtherDescription,
		&exp.Mileage,
		&exp.MileageValue,
		&exp.Receipt,
		&exp.Total,
		&exp.MealTotal,
		&exp.CreatedAt,
	)
}

// Create inserts a new expense under its trip and returns the
// server-assigned ID. An unknown trip reports RecordNotFound; clients lean
// on the resulting 404 to queue the expense until its trip has been pushed.
func (s *pgExpenseStore) Create(ctx context.Context, exp *types.Expense) (int64, error) {
	log := logger.GetLogger()

	err := s.db.QueryRow(ctx, `
        INSERT INTO expenses (
            trip_id, date, destination, justification,
            breakfast, lunch, dinner, transport, parking, other,
            other_description, mileage, mileage_value, receipt,
            total, meal_total, created_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, COALESCE($17, now()))
        RETURNING id, created_at`,
		exp.TripID,
		exp.Date,
		exp.Destination,
		exp.Justification,
		exp.Breakfast,
		exp.Lunch,
		exp.Dinner,
		exp.Transport,
		exp.Parking,
		exp.Other,
		exp.OtherDescription,
		exp.Mileage,
		exp.MileageValue,
		exp.Receipt,
		exp.Total,
		exp.MealTotal,
		createdAtArg(exp.CreatedAt),
	).Scan(&exp.ID, &exp.CreatedAt)

	if err != nil {
		if isForeignKeyViolation(err) {
			log.Warnw("Refused expense for unknown trip", "tripID", exp.TripID)
			return 0, apperrors.NotFound("Trip", exp.TripID)
		}
		log.Errorw("Failed to insert expense", "tripID", exp.TripID, "error", err)
		return 0, apperrors.NewDatabaseError(err)
	}

	log.Infow("Expense created", "expenseID", exp.ID, "tripID", exp.TripID)
	return exp.ID, nil
}

// GetByID retrieves a single expense.
func (s *pgExpenseStore) GetByID(ctx context.Context, id int64) (*types.Expense, error) {
	log := logger.GetLogger()

	var exp types.Expense
	err := scanExpense(s.db.QueryRow(ctx, `
        SELECT id, trip_id, date, destination, justification,
               breakfast, lunch, dinner, transport, parking, other,
               other_description, mileage, mileage_value, receipt,
               total, meal_total, created_at
        FROM expenses
        WHERE id = $1`,
		id,
	), &exp)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Warnw("Expense not found", "expenseID", id)
			return nil, apperrors.NotFound("Expense", id)
		}
		log.Errorw("Failed to get expense", "expenseID", id, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	return &exp, nil
}

// Update replaces the stored expense. The WHERE clause joins the owning
// trip and scopes it to the given identity, and the target trip must belong
// to the same identity, so an expense under another identity's trip reports
// RecordNotFound rather than being rewritten.
func (s *pgExpenseStore) Update(ctx context.Context, exp *types.Expense, identityValue string) (*types.Expense, error) {
	log := logger.GetLogger()

	var updated types.Expense
	err := scanExpense(s.db.QueryRow(ctx, `
        UPDATE expenses
        SET trip_id = $1, date = $2, destination = $3, justification = $4,
            breakfast = $5, lunch = $6, dinner = $7, transport = $8, parking = $9, other = $10,
            other_description = $11, mileage = $12, mileage_value = $13, receipt = $14,
            total = $15, meal_total = $16
        FROM trips
        WHERE expenses.id = $17
          AND expenses.trip_id = trips.id
          AND trips.identity_value = $18
          AND $1 IN (SELECT id FROM trips WHERE identity_value = $18)
        RETURNING expenses.id, expenses.trip_id, expenses.date, expenses.destination, expenses.justification,
            expenses.breakfast, expenses.lunch, expenses.dinner, expenses.transport, expenses.parking, expenses.other,
            expenses.other_description, expenses.mileage, expenses.mileage_value, expenses.receipt,
            expenses.total, expenses.meal_total, expenses.created_at`,
		exp.TripID,
		exp.Date,
		exp.Destination,
		exp.Justification,
		exp.Breakfast,
		exp.Lunch,
		exp.Dinner,
		exp.Transport,
		exp.Parking,
		exp.Other,
		exp.OtherDescription,
		exp.Mileage,
		exp.MileageValue,
		exp.Receipt,
		exp.Total,
		exp.MealTotal,
		exp.ID,
		identityValue,
	), &updated)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Warnw("Expense missing or owned by another identity, refusing update",
				"expenseID", exp.ID, "identity", logger.MaskIdentity(identityValue))
			return nil, apperrors.NotFound("Expense", exp.ID)
		}
		if isForeignKeyViolation(err) {
			log.Warnw("Refused expense move to unknown trip", "expenseID", exp.ID, "tripID", exp.TripID)
			return nil, apperrors.NotFound("Trip", exp.TripID)
		}
		log.Errorw("Failed to update expense", "expenseID", exp.ID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	log.Infow("Expense updated", "expenseID", updated.ID)
	return &updated, nil
}

// Delete removes an expense, scoped through its owning trip to the given
// identity. Deleting an absent or foreign expense succeeds.
func (s *pgExpenseStore) Delete(ctx context.Context, id int64, identityValue string) error {
	log := logger.GetLogger()

	tag, err := s.db.Exec(ctx, `
        DELETE FROM expenses
        USING trips
        WHERE expenses.id = $1
          AND expenses.trip_id = trips.id
          AND trips.identity_value = $2`,
		id, identityValue)
	if err != nil {
		log.Errorw("Failed to delete expense", "expenseID", id, "error", err)
		return apperrors.NewDatabaseError(err)
	}

	log.Infow("Expense deleted", "expenseID", id, "rowsAffected", tag.RowsAffected())
	return nil
}

// ListByTrip retrieves every expense recorded under the given trip, ordered
// by expense date.
func (s *pgExpenseStore) ListByTrip(ctx context.Context, tripID int64) ([]types.Expense, error) {
	log := logger.GetLogger()

	rows, err := s.db.Query(ctx, `
        SELECT id, trip_id, date, destination, justification,
               breakfast, lunch, dinner, transport, parking, other,
               other_description, mileage, mileage_value, receipt,
               total, meal_total, created_at
        FROM expenses
        WHERE trip_id = $1
        ORDER BY date ASC, id ASC`,
		tripID,
	)
	if err != nil {
		log.Errorw("Failed to list expenses", "tripID", tripID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}
	defer rows.Close()

	expenses := make([]types.Expense, 0)
	for rows.Next() {
		var exp types.Expense
		if err := scanExpense(rows, &exp); err != nil {
			log.Errorw("Failed to scan expense row", "tripID", tripID, "error", err)
			return nil, apperrors.NewDatabaseError(err)
		}
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		log.Errorw("Error iterating expense rows", "tripID", tripID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	log.Debugw("Listed expenses", "tripID", tripID, "count", len(expenses))
	return expenses, nil
}
