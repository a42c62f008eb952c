// Package reconcile pulls the server's records into the local store. The
// light strategy is additive and safe to run anytime; the full strategy
// rebuilds the local mirror from the server and is the recovery path for a
// store that has drifted or been recreated.
package reconcile

import (
	"context"
	"time"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/internal/localstore"
	"github.com/roamledger/roamledger/logger"
	"github.com/roamledger/roamledger/types"
)

// RemoteReader is the read-only slice of the remote client reconciliation
// needs.
type RemoteReader interface {
	TripsByIdentity(ctx context.Context, identityValue string) ([]types.Trip, error)
	ExpensesByTrip(ctx context.Context, tripID int64) ([]types.Expense, error)
}

// Notifier observes reconciliation outcomes. The CLI registers one to refresh
// its view after the local store changes underneath it.
type Notifier interface {
	TripsChanged()
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func()

func (f NotifierFunc) TripsChanged() { f() }

// Strategy names which reconciliation path actually ran.
type Strategy string

const (
	StrategyFull  Strategy = "full"
	StrategyLight Strategy = "light"
	StrategyNone  Strategy = "none"
)

// Report describes one reconciliation run. Err is set only when no strategy
// could complete.
type Report struct {
	Strategy Strategy `json:"strategy"`
	Repaired int      `json:"repaired"`
	Err      error    `json:"-"`
}

// Service reconciles the local store against the remote API.
type Service struct {
	store    *localstore.Store
	remote   RemoteReader
	notifier Notifier
}

// ServiceOption configures the service.
type ServiceOption func(*Service)

// WithNotifier registers an observer for "trips changed" events.
func WithNotifier(notifier Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// NewService creates a reconciliation service over the given store and remote.
func NewService(store *localstore.Store, remote RemoteReader, opts ...ServiceOption) *Service {
	service := &Service{store: store, remote: remote}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// SyncTripsFromServer runs the light strategy: fetch the identity's remote
// trips and upsert each by its server ID. Local rows the server does not
// know are left alone, as are rows holding unpushed local records. Returns
// the number of rows written. The notifier fires on every successful run,
// written rows or not, so observers can refresh unconditionally.
func (s *Service) SyncTripsFromServer(ctx context.Context, identity types.Identity) (int, error) {
	remoteTrips, err := s.remote.TripsByIdentity(ctx, identity.Value)
	if err != nil {
		return 0, err
	}
	changed, err := s.upsertTrips(ctx, remoteTrips)
	if err != nil {
		return changed, err
	}
	s.notifyTripsChanged()
	return changed, nil
}

// VerifyAndFixDatabase runs the full strategy: fetch the identity's complete
// remote state and atomically replace the local mirror with it. Records that
// exist only locally do not survive; callers flush pending writes first. On
// any failure past the initial trip fetch the service degrades to the light
// strategy so the store still gains whatever the server could provide.
func (s *Service) VerifyAndFixDatabase(ctx context.Context, identity types.Identity) *Report {
	log := logger.GetLogger()

	remoteTrips, err := s.remote.TripsByIdentity(ctx, identity.Value)
	if err != nil {
		log.Warnw("Reconciliation could not reach the server",
			"identity", logger.MaskIdentity(identity.Value), "error", err)
		return &Report{Strategy: StrategyNone, Err: err}
	}

	trips := make([]types.Trip, 0, len(remoteTrips))
	expenses := make([]types.Expense, 0)
	for i := range remoteTrips {
		trip := remoteTrips[i]
		trip.SyncStatus = types.SyncStatusSynced
		trips = append(trips, trip)

		tripExpenses, err := s.remote.ExpensesByTrip(ctx, trip.ID)
		if err != nil {
			log.Warnw("Expense fetch failed, degrading to light reconciliation",
				"tripId", trip.ID, "error", err)
			return s.lightFallback(ctx, remoteTrips, err)
		}
		for j := range tripExpenses {
			expense := tripExpenses[j]
			expense.SyncStatus = types.SyncStatusSynced
			expenses = append(expenses, expense)
		}
	}

	if err := s.store.ReplaceAll(ctx, identity, trips, expenses); err != nil {
		log.Errorw("Local mirror replacement failed, degrading to light reconciliation", "error", err)
		return s.lightFallback(ctx, remoteTrips, err)
	}

	s.notifyTripsChanged()
	return &Report{Strategy: StrategyFull, Repaired: len(trips) + len(expenses)}
}

func (s *Service) lightFallback(ctx context.Context, remoteTrips []types.Trip, cause error) *Report {
	changed, err := s.upsertTrips(ctx, remoteTrips)
	if err != nil {
		return &Report{Strategy: StrategyNone, Repaired: changed, Err: err}
	}
	s.notifyTripsChanged()
	logger.GetLogger().Infow("Light reconciliation completed after full strategy failed",
		"repaired", changed, "cause", cause)
	return &Report{Strategy: StrategyLight, Repaired: changed}
}

func (s *Service) upsertTrips(ctx context.Context, remoteTrips []types.Trip) (int, error) {
	log := logger.GetLogger()
	changed := 0
	for i := range remoteTrips {
		remoteTrip := remoteTrips[i]
		remoteTrip.SyncStatus = types.SyncStatusSynced

		existing, err := s.store.GetTrip(ctx, remoteTrip.ID)
		switch {
		case apperrors.IsType(err, apperrors.RecordNotFoundError):
			if _, err := s.store.PutTrip(ctx, &remoteTrip); err != nil {
				return changed, err
			}
			changed++
		case err != nil:
			return changed, err
		case existing.SyncStatus.Pending(),
			existing.SyncStatus == types.SyncStatusConflict:
			// An unpushed local record outranks the server copy until it is
			// flushed. A pending creation under this key is a different
			// record entirely; overwriting it would lose the local write.
			log.Debugw("Skipping trip with unpushed local changes", "tripId", remoteTrip.ID)
		case tripsDiffer(existing, &remoteTrip):
			if _, err := s.store.PutTrip(ctx, &remoteTrip); err != nil {
				return changed, err
			}
			changed++
		}
	}
	return changed, nil
}

func (s *Service) notifyTripsChanged() {
	if s.notifier != nil {
		s.notifier.TripsChanged()
	}
}

func tripsDiffer(a, b *types.Trip) bool {
	if a.Name != b.Name || a.IdentityValue != b.IdentityValue {
		return true
	}
	if !timePtrEqual(a.StartDate, b.StartDate) || !timePtrEqual(a.EndDate, b.EndDate) {
		return true
	}
	return a.SyncStatus != b.SyncStatus
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
