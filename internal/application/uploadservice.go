package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
	"github.com/ericfisherdev/timepanel/internal/domain/port/driven"
)

// ErrUploadNotConfigured is returned when an upload is requested but the
// integrations config carries no enabled upload section or no server URL.
var ErrUploadNotConfigured = errors.New("upload is not configured")

// defaultUploadInterval paces the auto-upload loop while no interval is
// configured.
const defaultUploadInterval = time.Hour

// UploadService pushes daily aggregate summaries to the collector, either on
// demand or on the configured auto-upload interval. Settings are resolved
// from the registry on every call so a config reload takes effect without a
// restart.
type UploadService struct {
	registry *IntegrationRegistry
	summary  *SummaryService
	client   driven.UploadClient

	now func() time.Time
}

// NewUploadService creates an UploadService wired to the registry's upload
// settings.
func NewUploadService(registry *IntegrationRegistry, summary *SummaryService, client driven.UploadClient) *UploadService {
	return &UploadService{
		registry: registry,
		summary:  summary,
		client:   client,
		now:      time.Now,
	}
}

// UploadDay aggregates the given day and pushes it to the collector. A server
// rejection comes back as a result with Success=false, not an error.
func (s *UploadService) UploadDay(ctx context.Context, day time.Time) (model.UploadResult, error) {
	settings := s.registry.UploadSettings()
	if settings == nil || !settings.Enabled || settings.ServerURL == "" {
		return model.UploadResult{}, ErrUploadNotConfigured
	}

	payload, err := s.summary.BuildUploadPayload(ctx, day, settings)
	if err != nil {
		return model.UploadResult{}, fmt.Errorf("build upload payload: %w", err)
	}

	result, err := s.client.Upload(ctx, settings.ServerURL, payload)
	if err != nil {
		return model.UploadResult{}, fmt.Errorf("upload day %s: %w", payload.Date, err)
	}
	return result, nil
}

// UploadToday is UploadDay for the current day.
func (s *UploadService) UploadToday(ctx context.Context) (model.UploadResult, error) {
	return s.UploadDay(ctx, s.now())
}

// Run drives the auto-upload loop until ctx is cancelled. The loop keeps
// ticking even while auto-upload is off so that enabling it via a config
// reload takes effect without a restart; failures never stop the loop.
func (s *UploadService) Run(ctx context.Context) {
	slog.Info("auto-upload loop started")

	for {
		select {
		case <-ctx.Done():
			slog.Info("auto-upload stopped")
			return
		case <-time.After(s.nextInterval()):
			s.autoUpload(ctx)
		}
	}
}

// nextInterval reads the configured auto-upload cadence, falling back to the
// default when uploads are not configured.
func (s *UploadService) nextInterval() time.Duration {
	if settings := s.registry.UploadSettings(); settings != nil && settings.IntervalMinutes > 0 {
		return time.Duration(settings.IntervalMinutes) * time.Minute
	}
	return defaultUploadInterval
}

// autoUpload runs one loop iteration: a no-op while auto-upload is off.
func (s *UploadService) autoUpload(ctx context.Context) {
	settings := s.registry.UploadSettings()
	if settings == nil || !settings.Enabled || !settings.AutoUpload {
		return
	}

	result, err := s.UploadToday(ctx)
	switch {
	case err != nil:
		slog.Error("auto-upload failed", "error", err)
	case !result.Success:
		slog.Warn("auto-upload rejected",
			"error_code", result.ErrorCode,
			"message", result.Message)
	default:
		slog.Info("auto-upload completed")
	}
}
