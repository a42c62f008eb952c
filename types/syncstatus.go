package types

type SyncStatus string

const (
	SyncStatusSynced        SyncStatus = "SYNCED"         // Row mirrors a successful remote write
	SyncStatusPendingCreate SyncStatus = "PENDING_CREATE" // Row was created locally and the server has never seen it
	SyncStatusPendingPush   SyncStatus = "PENDING_PUSH"   // Row synced once and was edited while the remote was unavailable
	SyncStatusConflict      SyncStatus = "CONFLICT"       // Reserved for policies that detect concurrent edits
)

// String provides a string representation of the status
func (s SyncStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a known sync status
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusSynced, SyncStatusPendingCreate, SyncStatusPendingPush, SyncStatusConflict:
		return true
	default:
		return false
	}
}

// Pending reports whether the row awaits a push to the server. A pending
// create carries a local key the server never issued; a pending push carries
// a server key the remote already knows.
func (s SyncStatus) Pending() bool {
	return s == SyncStatusPendingCreate || s == SyncStatusPendingPush
}
