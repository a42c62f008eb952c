package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "with detail",
			err:      New(ValidationError, "Invalid trip", "startDate after endDate"),
			expected: "VALIDATION_ERROR: Invalid trip (startDate after endDate)",
		},
		{
			name:     "without detail",
			err:      &AppError{Type: DatabaseError, Message: "Database operation failed"},
			expected: "DATABASE_ERROR: Database operation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		errType  ErrorType
		expected int
	}{
		{ValidationError, http.StatusBadRequest},
		{RecordNotFoundError, http.StatusNotFound},
		{AuthError, http.StatusUnauthorized},
		{RemoteUnreachableError, http.StatusBadGateway},
		{RemoteRequestFailedError, http.StatusBadGateway},
		{StoreUnavailableError, http.StatusInternalServerError},
		{StoreCorruptError, http.StatusInternalServerError},
		{StoreRecreatedError, http.StatusInternalServerError},
		{DatabaseError, http.StatusInternalServerError},
		{ServerError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.errType, "msg", "").GetHTTPStatus())
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, DatabaseError, "ignored"))
	})

	t.Run("wraps and unwraps", func(t *testing.T) {
		raw := errors.New("connection reset")
		wrapped := Wrap(raw, RemoteUnreachableError, "Remote API unreachable")

		require.NotNil(t, wrapped)
		assert.Equal(t, RemoteUnreachableError, wrapped.Type)
		assert.Equal(t, "connection reset", wrapped.Detail)
		assert.ErrorIs(t, wrapped, raw)
	})
}

func TestIsType(t *testing.T) {
	err := NotFound("Trip", 42)
	assert.True(t, IsType(err, RecordNotFoundError))
	assert.False(t, IsType(err, ValidationError))

	// Still detected through further wrapping.
	wrapped := fmt.Errorf("saving trip: %w", err)
	assert.True(t, IsType(wrapped, RecordNotFoundError))

	assert.False(t, IsType(errors.New("plain"), RecordNotFoundError))
	assert.False(t, IsType(nil, RecordNotFoundError))
}

func TestIsRemoteFailure(t *testing.T) {
	assert.True(t, IsRemoteFailure(RemoteUnreachable(errors.New("dial tcp: timeout"))))
	assert.True(t, IsRemoteFailure(RemoteRequestFailed(http.StatusServiceUnavailable, "maintenance")))
	assert.False(t, IsRemoteFailure(StoreCorrupt("trips")))
	assert.False(t, IsRemoteFailure(nil))
}

func TestRemoteRequestFailed_PreservesStatusAndBody(t *testing.T) {
	err := RemoteRequestFailed(http.StatusConflict, `{"error":"duplicate"}`)

	assert.Equal(t, http.StatusConflict, err.RemoteStatus)
	assert.Equal(t, `{"error":"duplicate"}`, err.Detail)
	assert.Contains(t, err.Message, "409")
	assert.Equal(t, http.StatusBadGateway, err.GetHTTPStatus())
}

func TestNotFound(t *testing.T) {
	err := NotFound("Expense", 7)
	assert.Equal(t, "Expense not found", err.Message)
	assert.Equal(t, "ID: 7", err.Detail)
	assert.Equal(t, http.StatusNotFound, err.GetHTTPStatus())
}

func TestStoreRecreated(t *testing.T) {
	raw := errors.New("malformed database schema")
	err := StoreRecreated(raw)

	assert.Equal(t, StoreRecreatedError, err.Type)
	assert.Contains(t, err.Message, "recreated")
	assert.ErrorIs(t, err, raw)
}
