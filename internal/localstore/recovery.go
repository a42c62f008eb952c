package localstore

import (
	"context"
	"os"
	"strings"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/logger"
)

// requiredTables are the collections every usable store must carry.
var requiredTables = []string{"identity", "trips", "expenses"}

// EnsureSchema brings the schema up to date and repairs structural damage.
// Missing collections are recreated additively by re-running the embedded
// migrations; rows in surviving collections are never touched. Only when the
// additive path itself fails is the store destroyed and rebuilt, surfaced as
// StoreRecreated. Safe to call repeatedly; a healthy store is a no-op.
func (s *Store) EnsureSchema(ctx context.Context) error {
	log := logger.GetLogger()

	if err := s.CheckSchema(ctx); err != nil {
		switch {
		case apperrors.IsType(err, apperrors.StoreCorruptError):
			if empty, eerr := s.hasNoTables(ctx); eerr == nil && empty {
				log.Infow("Initializing new local store", "path", s.path)
			} else {
				log.Warnw("Local store is missing collections, repairing additively", "detail", err.Error())
				// The migration bookkeeping claims these collections exist.
				// Reset it so the migrations run again; the IF NOT EXISTS
				// guards keep surviving collections and their rows intact.
				if _, derr := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS schema_migrations`); derr != nil {
					return s.recreateAs(ctx, derr)
				}
			}
		default:
			// The schema cannot even be inspected; the file is likely not a
			// database at all.
			log.Errorw("Local store is unreadable, recreating", "path", s.path, "error", err)
			return s.recreateAs(ctx, err)
		}
	}

	if err := runMigrations(s.path); err != nil {
		log.Errorw("Local store migration failed, recreating store", "path", s.path, "error", err)
		return s.recreateAs(ctx, err)
	}

	if err := s.CheckSchema(ctx); err != nil {
		log.Errorw("Local store still missing collections after repair", "detail", err.Error())
		return s.recreateAs(ctx, err)
	}
	return nil
}

// CheckSchema inspects the schema without repairing it. It returns
// StoreCorrupt naming the missing collections, or nil when all are present.
func (s *Store) CheckSchema(ctx context.Context) error {
	missing, err := s.missingTables(ctx)
	if err != nil {
		return apperrors.StoreUnavailable("cannot inspect store schema", err)
	}
	if len(missing) > 0 {
		return apperrors.StoreCorrupt(strings.Join(missing, ", "))
	}
	return nil
}

func (s *Store) missingTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name IN (?, ?, ?)`,
		requiredTables[0], requiredTables[1], requiredTables[2])
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	present := make(map[string]bool, len(requiredTables))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, table := range requiredTables {
		if !present[table] {
			missing = append(missing, table)
		}
	}
	return missing, nil
}

func (s *Store) hasNoTables(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'`).Scan(&count)
	return count == 0, err
}

// recreateAs rebuilds the store from scratch and surfaces StoreRecreated
// carrying the original cause.
func (s *Store) recreateAs(ctx context.Context, cause error) error {
	if err := s.recreate(ctx); err != nil {
		return err
	}
	return apperrors.StoreRecreated(cause)
}

// recreate closes the handle, removes the database file and its journal
// sidecars, and rebuilds an empty schema on a fresh handle.
func (s *Store) recreate(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		logger.GetLogger().Warnw("Failed to close store before recreate", "error", err)
	}

	for _, f := range []string{s.path, s.path + "-wal", s.path + "-shm"} {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return apperrors.StoreUnavailable("cannot remove store file "+f, err)
		}
	}

	if err := runMigrations(s.path); err != nil {
		return apperrors.StoreUnavailable("cannot rebuild store schema", err)
	}

	db, err := openHandle(s.path)
	if err != nil {
		return apperrors.StoreUnavailable("cannot reopen store file", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return apperrors.StoreUnavailable("recreated store is not accessible", err)
	}

	s.db = db
	s.querier = querier{db: db}
	return nil
}
