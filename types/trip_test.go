package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/roamledger/roamledger/errors"
)

func TestTripValidate(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	t.Run("valid with both dates", func(t *testing.T) {
		trip := Trip{Name: "Conference", StartDate: &start, EndDate: &end, IdentityValue: "12345678901"}
		require.NoError(t, trip.Validate())
	})

	t.Run("valid open ended", func(t *testing.T) {
		trip := Trip{Name: "Relocation", StartDate: &start, IdentityValue: "12345678901"}
		require.NoError(t, trip.Validate())

		trip = Trip{Name: "Undated", IdentityValue: "12345678901"}
		require.NoError(t, trip.Validate())
	})

	t.Run("end before start rejected", func(t *testing.T) {
		trip := Trip{Name: "Backwards", StartDate: &end, EndDate: &start, IdentityValue: "12345678901"}
		err := trip.Validate()
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ValidationError))
	})

	t.Run("same day allowed", func(t *testing.T) {
		trip := Trip{Name: "Day trip", StartDate: &start, EndDate: &start, IdentityValue: "12345678901"}
		require.NoError(t, trip.Validate())
	})

	t.Run("blank name rejected", func(t *testing.T) {
		trip := Trip{Name: "   ", IdentityValue: "12345678901"}
		assert.Error(t, trip.Validate())
	})

	t.Run("missing identity rejected", func(t *testing.T) {
		trip := Trip{Name: "Orphan"}
		assert.Error(t, trip.Validate())
	})
}
