package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/types"
)

func TestEnsureSchema_HealthyStoreIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.PutIdentity(ctx, types.Identity{Value: "12345678901"}))
	require.NoError(t, s.EnsureSchema(ctx))

	got, err := s.GetIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "12345678901", got.Value)
}

func TestEnsureSchema_RepairsDroppedTablesAdditively(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.PutIdentity(ctx, types.Identity{Value: "12345678901"}))

	// Structural damage: the trip collections vanish, identity survives.
	_, err := s.db.ExecContext(ctx, `DROP TABLE expenses`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `DROP TABLE trips`)
	require.NoError(t, err)

	err = s.CheckSchema(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.StoreCorruptError))
	assert.Contains(t, err.Error(), "trips")
	assert.Contains(t, err.Error(), "expenses")

	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.CheckSchema(ctx))

	// Additive repair must not have touched the surviving collection.
	got, err := s.GetIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "12345678901", got.Value)

	// The repaired collections are usable again.
	_, err = s.PutTrip(ctx, testTrip("12345678901"))
	require.NoError(t, err)
}

func TestOpen_UnusablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// The parent "directory" is a regular file; no store can live below it.
	_, err := Open(context.Background(), filepath.Join(blocker, "roam.db"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.StoreUnavailableError))
}

func TestOpen_GarbageFileIsRecreated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "roam.db")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a sqlite database"), 0o644))

	s, err := Open(ctx, path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.StoreRecreatedError))
	require.NotNil(t, s, "a recreated store must still be returned")
	defer s.Close()

	// The rebuilt store is empty but fully usable.
	require.NoError(t, s.CheckSchema(ctx))
	trip, err := s.PutTrip(ctx, testTrip("12345678901"))
	require.NoError(t, err)
	got, err := s.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, trip.Name, got.Name)
}
