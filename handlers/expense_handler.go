package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/logger"
	"github.com/roamledger/roamledger/store"
	"github.com/roamledger/roamledger/types"
)

// ReceiptArchiver offloads receipt images to object storage. Archiving is
// best effort: the authoritative copy lives inline in the expense row, so an
// archive failure is logged and never fails the request.
type ReceiptArchiver interface {
	Archive(ctx context.Context, expenseID int64, dataURI string) error
	Remove(ctx context.Context, expenseID int64) error
}

// ExpenseHandler handles HTTP requests for expenses.
type ExpenseHandler struct {
	expenseStore store.ExpenseStore
	archive      ReceiptArchiver
}

// NewExpenseHandler creates an ExpenseHandler. archive may be nil when no
// receipt archive is configured.
func NewExpenseHandler(expenseStore store.ExpenseStore, archive ReceiptArchiver) *ExpenseHandler {
	return &ExpenseHandler{expenseStore: expenseStore, archive: archive}
}

// bindExpense binds an expense body without validating it. Validation waits
// until the caller has applied the path parameters, since a creation body
// may legitimately omit the trip ID the path already names.
func bindExpense(c *gin.Context) (*types.Expense, error) {
	var expense types.Expense
	if err := c.ShouldBindJSON(&expense); err != nil {
		return nil, apperrors.ValidationFailed("Invalid expense payload", err.Error())
	}
	expense.SyncStatus = ""
	return &expense, nil
}

// CreateExpense handles POST /v1/trips/:id/expenses. The parameter is the
// owning trip's ID; gin requires the same parameter name as the other
// /trips/:id routes. Derived totals are recomputed server-side; stored
// totals are never taken from the client.
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	tripID, err := parseIDParam(c, "id")
	if err != nil {
		handleError(c, err)
		return
	}

	expense, err := bindExpense(c)
	if err != nil {
		handleError(c, err)
		return
	}
	if expense.TripID != 0 && expense.TripID != tripID {
		handleError(c, apperrors.ValidationFailed("Trip ID mismatch", "body trip ID does not match path"))
		return
	}
	expense.TripID = tripID
	expense.ID = 0
	expense.ComputeTotals()
	if err := expense.Validate(); err != nil {
		handleError(c, err)
		return
	}

	if _, err := h.expenseStore.Create(c.Request.Context(), expense); err != nil {
		handleError(c, err)
		return
	}
	h.archiveReceipt(c.Request.Context(), expense.ID, expense.Receipt)
	c.JSON(http.StatusCreated, expense)
}

// UpdateExpense handles PUT /v1/expenses/:id?identity=... The identity
// scopes the update through the expense's owning trip.
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
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

	expense, err := bindExpense(c)
	if err != nil {
		handleError(c, err)
		return
	}
	if expense.ID != 0 && expense.ID != id {
		handleError(c, apperrors.ValidationFailed("Expense ID mismatch", "body ID does not match path ID"))
		return
	}
	expense.ID = id
	expense.ComputeTotals()
	if err := expense.Validate(); err != nil {
		handleError(c, err)
		return
	}

	updated, err := h.expenseStore.Update(c.Request.Context(), expense, identityValue)
	if err != nil {
		handleError(c, err)
		return
	}
	h.archiveReceipt(c.Request.Context(), updated.ID, updated.Receipt)
	c.JSON(http.StatusOK, updated)
}

// DeleteExpense handles DELETE /v1/expenses/:id?identity=... Idempotent
// like trip delete; an expense under another identity's trip is untouched.
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
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

	if err := h.expenseStore.Delete(c.Request.Context(), id, identityValue); err != nil {
		handleError(c, err)
		return
	}
	if h.archive != nil {
		if err := h.archive.Remove(c.Request.Context(), id); err != nil {
			logger.GetLogger().Warnw("Failed to remove archived receipt", "expenseID", id, "error", err)
		}
	}

	logger.GetLogger().Infow("Expense deleted", "expenseID", id)
	c.JSON(http.StatusOK, types.DeleteResponse{ID: id, Deleted: true})
}

// ListExpensesByTrip handles GET /v1/expenses/by-trip/:tripID.
func (h *ExpenseHandler) ListExpensesByTrip(c *gin.Context) {
	tripID, err := parseIDParam(c, "tripID")
	if err != nil {
		handleError(c, err)
		return
	}

	expenses, err := h.expenseStore.ListByTrip(c.Request.Context(), tripID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, expenses)
}

func (h *ExpenseHandler) archiveReceipt(ctx context.Context, expenseID int64, dataURI string) {
	if h.archive == nil {
		return
	}
	if err := h.archive.Archive(ctx, expenseID, dataURI); err != nil {
		logger.GetLogger().Warnw("Failed to archive receipt", "expenseID", expenseID, "error", err)
	}
}
