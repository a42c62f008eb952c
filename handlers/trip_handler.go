package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/logger"
	"github.com/roamledger/roamledger/store"
	"github.com/roamledger/roamledger/types"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripStore store.TripStore
}

// NewTripHandler creates a TripHandler over the given store.
func NewTripHandler(tripStore store.TripStore) *TripHandler {
	return &TripHandler{tripStore: tripStore}
}

// parseIDParam reads a positive integer path parameter.
func parseIDParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ValidationFailed("Invalid "+name, "must be a positive integer")
	}
	return id, nil
}

// CreateTrip handles POST /v1/trips. The server assigns the ID; any client
// ID in the body is ignored so an offline-created record pushed later cannot
// collide with a server-assigned key.
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var trip types.Trip
	if err := c.ShouldBindJSON(&trip); err != nil {
		handleError(c, apperrors.ValidationFailed("Invalid trip payload", err.Error()))
		return
	}
	trip.ID = 0
	trip.SyncStatus = ""
	if err := trip.Validate(); err != nil {
		handleError(c, err)
		return
	}

	if _, err := h.tripStore.Create(c.Request.Context(), &trip); err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trip)
}

// UpdateTrip handles PUT /v1/trips/:id. The path parameter is canonical; a
// mismatched body ID is rejected rather than silently re-keyed.
func (h *TripHandler) UpdateTrip(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		handleError(c, err)
		return
	}

	var trip types.Trip
	if err := c.ShouldBindJSON(&trip); err != nil {
		handleError(c, apperrors.ValidationFailed("Invalid trip payload", err.Error()))
		return
	}
	if trip.ID != 0 && trip.ID != id {
		handleError(c, apperrors.ValidationFailed("Trip ID mismatch", "body ID does not match path ID"))
		return
	}
	trip.ID = id
	trip.SyncStatus = ""
	if err := trip.Validate(); err != nil {
		handleError(c, err)
		return
	}

	updated, err := h.tripStore.Update(c.Request.Context(), &trip)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// identityQuery reads and validates the identity query parameter that
// scopes deletes and expense updates to their owner.
func identityQuery(c *gin.Context) (string, error) {
	identity := types.Identity{Value: types.NormalizeIdentity(c.Query("identity"))}
	if err := identity.Validate(); err != nil {
		return "", err
	}
	return identity.Value, nil
}

// DeleteTrip handles DELETE /v1/trips/:id?identity=... The schema cascade
// removes the trip's expenses with it; deleting an absent trip, or one
// recorded under another identity, succeeds as a no-op so client retries
// stay idempotent.
func (h *TripHandler) DeleteTrip(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		handleError(c, err)
		return
	}
	identityValue, err := identityQuery(c)
	if err != nil {
		handleError(c, err)
		return
	}

	if err := h.tripStore.Delete(c.Request.Context(), id, identityValue); err != nil {
		handleError(c, err)
		return
	}

	logger.GetLogger().Infow("Trip deleted", "tripID", id)
	c.JSON(http.StatusOK, types.DeleteResponse{ID: id, Deleted: true})
}

// ListTripsByIdentity handles GET /v1/trips/by-identity/:identity. An
// identity with no trips returns an empty list, not 404; reconciliation
// treats the two cases the same way.
func (h *TripHandler) ListTripsByIdentity(c *gin.Context) {
	identity := types.Identity{Value: types.NormalizeIdentity(c.Param("identity"))}
	if err := identity.Validate(); err != nil {
		handleError(c, err)
		return
	}

	trips, err := h.tripStore.ListByIdentity(c.Request.Context(), identity.Value)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, trips)
}
