package types

import (
	"strings"
	"time"

	"github.com/roamledger/roamledger/errors"
)

// Trip groups expenses under one journey. The ID is assigned by the local
// store on creation and overwritten with the remote identifier after the
// first successful remote write; from then on the remote id is the canonical
// key on both sides, and every later mutation carries it.
type Trip struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	StartDate     *time.Time `json:"startDate,omitempty"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	IdentityValue string     `json:"identityValue"`
	CreatedAt     time.Time  `json:"createdAt"`
	SyncStatus    SyncStatus `json:"syncStatus,omitempty"`
}

// Validate checks the trip before any write is attempted.
func (t *Trip) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.ValidationFailed("Invalid trip", "name must not be empty")
	}
	if t.IdentityValue == "" {
		return errors.ValidationFailed("Invalid trip", "identity value must be set")
	}
	if t.StartDate != nil && t.EndDate != nil && t.EndDate.Before(*t.StartDate) {
		return errors.ValidationFailed("Invalid trip", "end date must not be before start date")
	}
	return nil
}
