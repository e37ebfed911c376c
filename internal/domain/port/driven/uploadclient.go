package driven

import (
	"context"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
)

// UploadClient defines the driven port for pushing daily aggregate summaries
// to the upstream collector. The server URL is passed per call: it comes from
// the integrations config, which can change on reload.
type UploadClient interface {
	Upload(ctx context.Context, serverURL string, payload model.UploadPayload) (model.UploadResult, error)
}
