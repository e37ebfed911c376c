package driven

import (
	"context"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
)

// DomainResolver defines the driven port for classifying browser samples by
// visited domain. Resolve returns the normalized host for a recognized
// browser sample, or "" when the process is not a browser, the host cannot be
// determined, or the bounded timeout elapses. Resolve never returns an error:
// a missing domain degrades the sample, it does not fail it.
type DomainResolver interface {
	// IsBrowser reports whether the process name is in the recognized-browser set.
	IsBrowser(processName string) bool
	// Resolve extracts the visited domain for the sample. The context carries
	// the resolution deadline; on expiry Resolve returns "".
	Resolve(ctx context.Context, sample model.Sample) string
}
