package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
)

// ErrIntegrationNotFound is returned when a sync or test targets an
// integration name that is not present in the registry.
var ErrIntegrationNotFound = errors.New("integration not found")

// Integration defines the driven port for an external ticket-tracking
// service. New service types implement this interface and register with the
// integration registry; existing implementations are never modified to add a
// service.
type Integration interface {
	// Name is the unique configured name of this integration instance.
	Name() string
	// DisplayName is the human-readable service type name, e.g. "Redmine".
	DisplayName() string
	// IsEnabled reports whether the integration participates in extraction
	// and sync.
	IsEnabled() bool
	// ExtractTicketID runs the integration's extraction rules, in configured
	// order, against the activity. The first rule producing a capture group
	// wins. ok is false when no rule matches.
	ExtractTicketID(activity model.ActivityRecord) (ticketID string, ok bool)
	// SyncTimeEntry pushes the activity's duration to the external service
	// against the given ticket. The error message is surfaced verbatim to the
	// caller; syncs are never retried automatically.
	SyncTimeEntry(ctx context.Context, activity model.ActivityRecord, ticketID string) (model.SyncOutcome, error)
	// TestConnection verifies credentials and reachability.
	TestConnection(ctx context.Context) error
}
