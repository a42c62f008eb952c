package sync

import "github.com/roamledger/roamledger/types"

// Resolution is a ConflictPolicy verdict for one pending record.
type Resolution int

const (
	// ResolutionPush means the local copy overwrites whatever the server holds.
	ResolutionPush Resolution = iota
	// ResolutionConflict parks the record under the conflict status for manual
	// review instead of pushing it.
	ResolutionConflict
)

// ConflictPolicy decides what happens to a locally pending record whose remote
// counterpart may have changed in the meantime. FlushPending consults it once
// per record before pushing.
type ConflictPolicy interface {
	ResolveTrip(trip *types.Trip) Resolution
	ResolveExpense(expense *types.Expense) Resolution
}

// LastWriteWins pushes every pending record unconditionally: the most recent
// writer, whichever device it was, owns the final state.
type LastWriteWins struct{}

func (LastWriteWins) ResolveTrip(*types.Trip) Resolution       { return ResolutionPush }
func (LastWriteWins) ResolveExpense(*types.Expense) Resolution { return ResolutionPush }
