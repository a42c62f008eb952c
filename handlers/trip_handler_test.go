package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/logger"
	"github.com/roamledger/roamledger/middleware"
	"github.com/roamledger/roamledger/types"
)

func init() {
	logger.IsTest = true
	gin.SetMode(gin.TestMode)
}

// newTripRouter builds a minimal engine for trip handler tests: the
// error-handler middleware plus the trip routes, no session gate.
func newTripRouter(store *mockTripStore) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())

	h := NewTripHandler(store)
	r.POST("/v1/trips", h.CreateTrip)
	r.PUT("/v1/trips/:id", h.UpdateTrip)
	r.DELETE("/v1/trips/:id", h.DeleteTrip)
	r.GET("/v1/trips/by-identity/:identity", h.ListTripsByIdentity)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTripHandler_CreateTrip(t *testing.T) {
	store := &mockTripStore{}
	r := newTripRouter(store)

	store.On("Create", mock.Anything, mock.MatchedBy(func(trip *types.Trip) bool {
		return trip.Name == "Lisbon onboarding" && trip.ID == 0
	})).Return(int64(42), nil)

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	w := doJSON(t, r, http.MethodPost, "/v1/trips", types.Trip{
		// A client-side draft ID must not survive; the server assigns keys.
		ID:            7,
		Name:          "Lisbon onboarding",
		StartDate:     &start,
		IdentityValue: "12345678901",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var created types.Trip
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, int64(42), created.ID)
	store.AssertExpectations(t)
}

func TestTripHandler_CreateTrip_ValidationFailure(t *testing.T) {
	store := &mockTripStore{}
	r := newTripRouter(store)

	tests := []struct {
		name string
		trip types.Trip
	}{
		{"empty name", types.Trip{IdentityValue: "12345678901"}},
		{"end before start", func() types.Trip {
			start := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
			end := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
			return types.Trip{Name: "Backwards", StartDate: &start, EndDate: &end, IdentityValue: "12345678901"}
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/v1/trips", tt.trip)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTripHandler_UpdateTrip(t *testing.T) {
	store := &mockTripStore{}
	r := newTripRouter(store)

	updated := &types.Trip{ID: 42, Name: "Renamed", IdentityValue: "12345678901"}
	store.On("Update", mock.Anything, mock.MatchedBy(func(trip *types.Trip) bool {
		return trip.ID == 42
	})).Return(updated, nil)

	w := doJSON(t, r, http.MethodPut, "/v1/trips/42", types.Trip{
		Name:          "Renamed",
		IdentityValue: "12345678901",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got types.Trip
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Renamed", got.Name)
	store.AssertExpectations(t)
}

func TestTripHandler_UpdateTrip_IDMismatch(t *testing.T) {
	store := &mockTripStore{}
	r := newTripRouter(store)

	w := doJSON(t, r, http.MethodPut, "/v1/trips/42", types.Trip{
		ID:            99,
		Name:          "Renamed",
		IdentityValue: "12345678901",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestTripHandler_UpdateTrip_NotFound(t *testing.T) {
	store := &mockTripStore{}
	r := newTripRouter(store)

	store.On("Update", mock.Anything, mock.Anything).Return(nil, apperrors.NotFound("Trip", 42))

	w := doJSON(t, r, http.MethodPut, "/v1/trips/42", types.Trip{
		Name:          "Ghost",
		IdentityValue: "12345678901",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTripHandler_DeleteTrip(t *testing.T) {
	store := &mockTripStore{}
	r := newTripRouter(store)

	store.On("Delete", mock.Anything, int64(42), "12345678901").Return(nil)

	// Punctuated display form normalizes to the same identity.
	w := doJSON(t, r, http.MethodDelete, "/v1/trips/42?identity=123.456.789-01", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.DeleteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Deleted)
	assert.Equal(t, int64(42), resp.ID)
	store.AssertExpectations(t)
}

func TestTripHandler_DeleteTrip_InvalidID(t *testing.T) {
	store := &mockTripStore{}
	r := newTripRouter(store)

	w := doJSON(t, r, http.MethodDelete, "/v1/trips/not-a-number?identity=12345678901", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestTripHandler_DeleteTrip_MissingIdentity(t *testing.T) {
	store := &mockTripStore{}
	r := newTripRouter(store)

	w := doJSON(t, r, http.MethodDelete, "/v1/trips/42", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestTripHandler_ListTripsByIdentity(t *testing.T) {
	store := &mockTripStore{}
	r := newTripRouter(store)

	trips := []types.Trip{{ID: 1, Name: "Porto", IdentityValue: "12345678901"}}
	store.On("ListByIdentity", mock.Anything, "12345678901").Return(trips, nil)

	// Punctuated display form normalizes to the same identity.
	w := doJSON(t, r, http.MethodGet, "/v1/trips/by-identity/123.456.789-01", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []types.Trip
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Porto", got[0].Name)
	store.AssertExpectations(t)
}

func TestTripHandler_ListTripsByIdentity_InvalidIdentity(t *testing.T) {
	store := &mockTripStore{}
	r := newTripRouter(store)

	w := doJSON(t, r, http.MethodGet, "/v1/trips/by-identity/123", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	store.AssertNotCalled(t, "ListByIdentity", mock.Anything, mock.Anything)
}
