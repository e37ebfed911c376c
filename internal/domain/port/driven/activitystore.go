package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
)

// ActivityStore defines the driven port for activity record persistence.
// The store is append-only: records are inserted once when a session closes
// and are never updated or deleted afterwards.
type ActivityStore interface {
	// Insert persists one finished record and returns it with the assigned ID.
	Insert(ctx context.Context, record model.ActivityRecord) (model.ActivityRecord, error)
	// GetByRange returns records whose start time falls in [from, to),
	// ordered by start time ascending.
	GetByRange(ctx context.Context, from, to time.Time) ([]model.ActivityRecord, error)
	// GetByID returns a single record, or nil when no such record exists.
	GetByID(ctx context.Context, id int64) (*model.ActivityRecord, error)
	// SumByProcess returns per-process duration totals for records starting
	// in [from, to), ordered by total descending then name ascending.
	SumByProcess(ctx context.Context, from, to time.Time) ([]model.GroupTotal, error)
	// SumByDomain is SumByProcess grouped by domain, restricted to rows with
	// a non-null domain.
	SumByDomain(ctx context.Context, from, to time.Time) ([]model.GroupTotal, error)
}
