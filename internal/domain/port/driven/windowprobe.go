package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
)

// ErrNoForegroundWindow is returned by a WindowProbe when the OS reports no
// focused top-level window (lock screen, desktop transition, secure prompt).
// It is a transient condition, never fatal.
var ErrNoForegroundWindow = errors.New("no foreground window")

// WindowProbe defines the driven port for sampling the currently focused
// window. Implementations are platform specific. A returned error means this
// tick produced no information; callers skip the tick and retry on the next.
type WindowProbe interface {
	Sample(ctx context.Context) (model.Sample, error)
}
