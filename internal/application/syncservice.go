package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
	"github.com/ericfisherdev/timepanel/internal/domain/port/driven"
)

// ErrSyncInFlight is returned when a sync is requested for an
// (activity, integration) pair that already has a call in flight. The caller
// retries after the first call settles; duplicates are rejected, never issued.
var ErrSyncInFlight = errors.New("sync already in flight for this activity and integration")

// syncCallTimeout bounds a single remote sync call independently of the
// caller's context, so an abandoned caller does not cancel the external write
// mid-flight.
const syncCallTimeout = 60 * time.Second

// syncKey identifies one in-flight external write.
type syncKey struct {
	activityID  int64
	integration string
}

// SyncService orchestrates pushing activities to external ticket systems.
// Each sync runs as an independent goroutine; a per-key in-progress set
// guarantees at most one external call per (activity, integration) pair at a
// time. Failed syncs are reported to the caller and never retried
// automatically.
type SyncService struct {
	registry *IntegrationRegistry
	store    driven.ActivityStore

	mu       sync.Mutex
	inFlight map[syncKey]struct{}
}

// NewSyncService creates a SyncService over the given registry and store.
func NewSyncService(registry *IntegrationRegistry, store driven.ActivityStore) *SyncService {
	return &SyncService{
		registry: registry,
		store:    store,
		inFlight: make(map[syncKey]struct{}),
	}
}

// syncResult carries a finished call back to the waiting caller.
type syncResult struct {
	outcome model.SyncOutcome
	err     error
}

// Sync pushes the identified activity to the named integration against the
// extracted ticket id. It blocks until the call settles or ctx is canceled;
// on cancellation the underlying call still runs to completion in the
// background and releases its in-flight slot, so state is never corrupted.
func (s *SyncService) Sync(ctx context.Context, activityID int64, integrationName, ticketID string) (model.SyncOutcome, error) {
	integration, err := s.registry.Get(integrationName)
	if err != nil {
		return model.SyncOutcome{}, err
	}
	if !integration.IsEnabled() {
		return model.SyncOutcome{}, fmt.Errorf("integration %q is disabled", integrationName)
	}

	activity, err := s.store.GetByID(ctx, activityID)
	if err != nil {
		return model.SyncOutcome{}, fmt.Errorf("load activity %d: %w", activityID, err)
	}
	if activity == nil {
		return model.SyncOutcome{}, fmt.Errorf("activity %d not found", activityID)
	}

	key := syncKey{activityID: activityID, integration: integrationName}
	if !s.acquire(key) {
		return model.SyncOutcome{}, ErrSyncInFlight
	}

	resultCh := make(chan syncResult, 1)
	go func() {
		defer s.release(key)

		callCtx, cancel := context.WithTimeout(context.Background(), syncCallTimeout)
		defer cancel()

		outcome, err := integration.SyncTimeEntry(callCtx, *activity, ticketID)
		if err != nil {
			slog.Error("sync failed",
				"activity", activityID,
				"integration", integrationName,
				"ticket", ticketID,
				"error", err,
			)
		} else {
			slog.Info("sync complete",
				"activity", activityID,
				"integration", integrationName,
				"ticket", ticketID,
				"external_id", outcome.ExternalID,
			)
		}
		resultCh <- syncResult{outcome: outcome, err: err}
	}()

	select {
	case r := <-resultCh:
		return r.outcome, r.err
	case <-ctx.Done():
		// The caller abandons waiting; the goroutine finishes on its own.
		return model.SyncOutcome{}, ctx.Err()
	}
}

// ExtractTicket loads the activity and runs the named integration's
// extraction rules against it. ok is false when no rule matches.
func (s *SyncService) ExtractTicket(ctx context.Context, activityID int64, integrationName string) (string, bool, error) {
	integration, err := s.registry.Get(integrationName)
	if err != nil {
		return "", false, err
	}

	activity, err := s.store.GetByID(ctx, activityID)
	if err != nil {
		return "", false, fmt.Errorf("load activity %d: %w", activityID, err)
	}
	if activity == nil {
		return "", false, fmt.Errorf("activity %d not found", activityID)
	}

	ticketID, ok := integration.ExtractTicketID(*activity)
	return ticketID, ok, nil
}

// TicketMatches loads the activity and collects every enabled integration's
// ticket extraction against it, in configured order.
func (s *SyncService) TicketMatches(ctx context.Context, activityID int64) ([]model.TicketMatch, error) {
	activity, err := s.store.GetByID(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("load activity %d: %w", activityID, err)
	}
	if activity == nil {
		return nil, fmt.Errorf("activity %d not found", activityID)
	}
	return s.registry.ExtractAll(*activity), nil
}

// InFlight reports whether a sync for the pair is currently running.
func (s *SyncService) InFlight(activityID int64, integrationName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[syncKey{activityID: activityID, integration: integrationName}]
	return ok
}

// TestConnection verifies the named integration's connectivity.
func (s *SyncService) TestConnection(ctx context.Context, integrationName string) error {
	integration, err := s.registry.Get(integrationName)
	if err != nil {
		return err
	}
	return integration.TestConnection(ctx)
}

func (s *SyncService) acquire(key syncKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.inFlight[key]; exists {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *SyncService) release(key syncKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}
