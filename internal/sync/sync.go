// Package sync implements the dual-write engine. Every write goes to the
// remote API first; when the remote cannot take it the write lands in the
// local store marked pending, and FlushPending pushes it later. Reads always
// come from the local store, so the device keeps working with no connectivity.
package sync

import (
	"context"
	"strings"
	"time"

	"github.com/roamledger/roamledger/internal/localstore"
	"github.com/roamledger/roamledger/types"
)

// RemoteAPI is the slice of the remote client the engine writes through.
// Deletes and expense updates carry the owning identity so the server can
// refuse operations on another identity's records; trip updates carry the
// identity in the trip itself.
type RemoteAPI interface {
	CreateTrip(ctx context.Context, trip *types.Trip) (*types.Trip, error)
	UpdateTrip(ctx context.Context, trip *types.Trip) (*types.Trip, error)
	DeleteTrip(ctx context.Context, id int64, identityValue string) error
	CreateExpense(ctx context.Context, expense *types.Expense) (*types.Expense, error)
	UpdateExpense(ctx context.Context, expense *types.Expense, identityValue string) (*types.Expense, error)
	DeleteExpense(ctx context.Context, id int64, identityValue string) error
}

// SaveResult reports where a write landed. Synced is false when the remote
// was unavailable and the record sits in the local store awaiting a flush;
// the write itself still succeeded.
type SaveResult struct {
	ID     int64 `json:"id"`
	Synced bool  `json:"synced"`
}

// Engine coordinates the remote client and the local store.
type Engine struct {
	store  *localstore.Store
	remote RemoteAPI
	policy ConflictPolicy
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithConflictPolicy replaces the default last-write-wins policy.
func WithConflictPolicy(policy ConflictPolicy) EngineOption {
	return func(e *Engine) {
		e.policy = policy
	}
}

// NewEngine creates a sync engine over the given store and remote client.
func NewEngine(store *localstore.Store, remote RemoteAPI, opts ...EngineOption) *Engine {
	engine := &Engine{
		store:  store,
		remote: remote,
		policy: LastWriteWins{},
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// utcMidnight truncates a timestamp to the start of its UTC day. Trip and
// expense dates are day-granular; normalizing here keeps every device's copy
// byte-identical regardless of the zone it was entered in.
func utcMidnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeTrip(trip *types.Trip) {
	trip.Name = strings.TrimSpace(trip.Name)
	if trip.StartDate != nil {
		d := utcMidnight(*trip.StartDate)
		trip.StartDate = &d
	}
	if trip.EndDate != nil {
		d := utcMidnight(*trip.EndDate)
		trip.EndDate = &d
	}
}

func normalizeExpense(expense *types.Expense) {
	expense.Destination = strings.TrimSpace(expense.Destination)
	expense.Justification = strings.TrimSpace(expense.Justification)
	expense.OtherDescription = strings.TrimSpace(expense.OtherDescription)
	if !expense.Date.IsZero() {
		expense.Date = utcMidnight(expense.Date)
	}
	expense.ComputeTotals()
}
