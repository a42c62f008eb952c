package postgres

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/logger"
	"github.com/roamledger/roamledger/store"
	"github.com/roamledger/roamledger/types"
	"github.com/jackc/pgx/v5"
)

var _ store.TripStore = (*pgTripStore)(nil)

type pgTripStore struct {
	db DB
}

// NewPgTripStore creates a new PostgreSQL trip store.
func NewPgTripStore(db DB) store.TripStore {
	return &pgTripStore{db: db}
}

// createdAtArg maps a zero CreatedAt to NULL so the column default applies,
// while creation times carried over from offline records survive the push.
func createdAtArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// Create inserts a new trip and returns the server-assigned ID.
func (s *pgTripStore) Create(ctx context.Context, trip *types.Trip) (int64, error) {
	log := logger.GetLogger()

	err := s.db.QueryRow(ctx, `
        INSERT INTO trips (name, start_date, end_date, identity_value, created_at)
        VALUES ($1, $2, $3, $4, COALESCE($5, now()))
        RETURNING id, created_at`,
		trip.Name,
		trip.StartDate,
		trip.EndDate,
		trip.IdentityValue,
		createdAtArg(trip.CreatedAt),
	).Scan(&trip.ID, &trip.CreatedAt)

	if err != nil {
		log.Errorw("Failed to insert trip", "name", trip.Name, "error", err)
		return 0, apperrors.NewDatabaseError(err)
	}

	log.Infow("Trip created", "tripID", trip.ID, "identity", logger.MaskIdentity(trip.IdentityValue))
	return trip.ID, nil
}

// GetByID retrieves a single trip.
func (s *pgTripStore) GetByID(ctx context.Context, id int64) (*types.Trip, error) {
	log := logger.GetLogger()

	var trip types.Trip
	err := s.db.QueryRow(ctx, `
        SELECT id, name, start_date, end_date, identity_value, created_at
        FROM trips
        WHERE id = $1`,
		id,
	).Scan(
		&trip.ID,
		&trip.Name,
		&trip.StartDate,
		&trip.EndDate,
		&trip.IdentityValue,
		&trip.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Warnw("Trip not found", "tripID", id)
			return nil, apperrors.NotFound("Trip", id)
		}
		log.Errorw("Failed to get trip", "tripID", id, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	return &trip, nil
}

// Update replaces the stored trip. The WHERE clause is scoped to the trip's
// identity value, so an ID that exists under another identity reports
// RecordNotFound rather than overwriting a stranger's trip.
func (s *pgTripStore) Update(ctx context.Context, trip *types.Trip) (*types.Trip, error) {
	log := logger.GetLogger()

	var updated types.Trip
	err := s.db.QueryRow(ctx, `
        UPDATE trips
        SET name = $1, start_date = $2, end_date = $3
        WHERE id = $4 AND identity_value = $5
        RETURNING id, name, start_date, end_date, identity_value, created_at`,
		trip.Name,
		trip.StartDate,
		trip.EndDate,
		trip.ID,
		trip.IdentityValue,
	).Scan(
		&updated.ID,
		&updated.Name,
		&updated.StartDate,
		&updated.EndDate,
		&updated.IdentityValue,
		&updated.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Warnw("Trip missing or owned by another identity, refusing update",
				"tripID", trip.ID, "identity", logger.MaskIdentity(trip.IdentityValue))
			return nil, apperrors.NotFound("Trip", trip.ID)
		}
		log.Errorw("Failed to update trip", "tripID", trip.ID, "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	log.Infow("Trip updated", "tripID", updated.ID)
	return &updated, nil
}

// Delete removes a trip; its expenses go with it through the schema cascade.
// The WHERE clause is scoped to the identity like Update, so an ID recorded
// under another identity is untouched. Deleting an absent or foreign trip
// succeeds so that retried deletes stay harmless.
func (s *pgTripStore) Delete(ctx context.Context, id int64, identityValue string) error {
	log := logger.GetLogger()

	tag, err := s.db.Exec(ctx, `DELETE FROM trips WHERE id = $1 AND identity_value = $2`,
		id, identityValue)
	if err != nil {
		log.Errorw("Failed to delete trip", "tripID", id, "error", err)
		return apperrors.NewDatabaseError(err)
	}

	log.Infow("Trip deleted", "tripID", id, "rowsAffected", tag.RowsAffected())
	return nil
}

// ListByIdentity retrieves every trip recorded under the given identity,
// oldest first.
func (s *pgTripStore) ListByIdentity(ctx context.Context, identityValue string) ([]types.Trip, error) {
	log := logger.GetLogger()

	rows, err := s.db.Query(ctx, `
        SELECT id, name, start_date, end_date, identity_value, created_at
        FROM trips
        WHERE identity_value = $1
        ORDER BY created_at ASC, id ASC`,
		identityValue,
	)
	if err != nil {
		log.Errorw("Failed to list trips", "identity", logger.MaskIdentity(identityValue), "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}
	defer rows.Close()

	trips := make([]types.Trip, 0)
	for rows.Next() {
		var trip types.Trip
		if err := rows.Scan(
			&trip.ID,
			&trip.Name,
			&trip.StartDate,
			&trip.EndDate,
			&trip.IdentityValue,
			&trip.CreatedAt,
		); err != nil {
			log.Errorw("Failed to scan trip row", "error", err)
			return nil, apperrors.NewDatabaseError(err)
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		log.Errorw("Error iterating trip rows", "error", err)
		return nil, apperrors.NewDatabaseError(err)
	}

	log.Debugw("Listed trips", "identity", logger.MaskIdentity(identityValue), "count", len(trips))
	return trips, nil
}
