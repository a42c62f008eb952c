// Package localstore persists the device-side mirror of the identity record,
// trips and expenses in a single SQLite database file. It is the durable half
// of the offline-first core: every record the sync engine writes lands here,
// whether or not the remote write succeeded, tagged with a sync status.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/logger"
	"github.com/roamledger/roamledger/types"
)

// DBTX is the subset of database/sql used by the store's queries.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the device-local persistent store. Its operations are available
// directly on the store (each statement in its own implicit transaction) or
// grouped atomically through WithTx.
type Store struct {
	querier
	path string
	db   *sql.DB
}

// Tx exposes the store's operations inside one transaction.
type Tx struct {
	querier
}

// Open opens (or creates) the local store at path, brings its schema up to
// date and repairs missing collections before returning.
//
// When the error is StoreRecreated the returned store is open and fully
// usable, but prior local history is gone and the caller must tell the user.
// Any other non-nil error means no usable store could be produced.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.StoreUnavailable("cannot create store directory "+dir, err)
		}
	}

	db, err := openHandle(path)
	if err != nil {
		return nil, apperrors.StoreUnavailable("cannot open store file "+path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.StoreUnavailable("store file is not accessible", err)
	}

	s := &Store{querier: querier{db: db}, path: path, db: db}
	if err := s.EnsureSchema(ctx); err != nil {
		if apperrors.IsType(err, apperrors.StoreRecreatedError) {
			return s, err
		}
		s.db.Close()
		return nil, err
	}

	logger.GetLogger().Debugw("Local store opened", "path", path)
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the store's database file path.
func (s *Store) Path() string {
	return s.path
}

// WithTx begins a transaction, runs fn against it, and commits on success or
// rolls back on error/panic. Panics are rethrown.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(&Tx{querier{db: tx}})
	return err
}

// DeleteTrip removes the trip and all its expenses in one transaction.
// Deleting an absent trip is a no-op.
func (s *Store) DeleteTrip(ctx context.Context, id int64) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		return tx.DeleteTrip(ctx, id)
	})
}

// AdoptTripID re-keys a trip under its remote identifier in one transaction.
func (s *Store) AdoptTripID(ctx context.Context, oldID, newID int64) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		return tx.AdoptTripID(ctx, oldID, newID)
	})
}

// AdoptExpenseID re-keys an expense under its remote identifier in one transaction.
func (s *Store) AdoptExpenseID(ctx context.Context, oldID, newID int64) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		return tx.AdoptExpenseID(ctx, oldID, newID)
	})
}

// ReplaceAll wipes every collection and repopulates the store from the given
// records in a single transaction. It is the full-reconciliation primitive:
// either the store ends up an exact mirror of the inputs or it is left
// untouched. The identity record is re-persisted so the singleton survives
// the wipe.
func (s *Store) ReplaceAll(ctx context.Context, identity types.Identity, trips []types.Trip, expenses []types.Expense) error {
	log := logger.GetLogger()

	err := s.WithTx(ctx, func(tx *Tx) error {
		for _, stmt := range []string{
			`DELETE FROM expenses`,
			`DELETE FROM trips`,
			`DELETE FROM identity`,
		} {
			if _, err := tx.db.ExecContext(ctx, stmt); err != nil {
				return apperrors.NewDatabaseError(err)
			}
		}
		if err := tx.PutIdentity(ctx, identity); err != nil {
			return err
		}
		for i := range trips {
			if _, err := tx.PutTrip(ctx, &trips[i]); err != nil {
				return err
			}
		}
		for i := range expenses {
			if _, err := tx.PutExpense(ctx, &expenses[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Errorw("Failed to replace local store contents", "error", err)
		return err
	}

	log.Infow("Replaced local store contents",
		"trips", len(trips),
		"expenses", len(expenses),
		"identity", logger.MaskIdentity(identity.Value))
	return nil
}

// DeleteAndRecreate destroys the store file and rebuilds an empty schema.
// All local data is lost. Callers outside the recovery path must warn the
// user before invoking it.
func (s *Store) DeleteAndRecreate(ctx context.Context) error {
	logger.GetLogger().Warnw("Recreating local store from scratch", "path", s.path)
	return s.recreate(ctx)
}

// openHandle opens the SQLite file with the store's connection settings.
// A single connection avoids writer contention between the pooled handles.
func openHandle(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
