package httphandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/timepanel/internal/application"
	"github.com/ericfisherdev/timepanel/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	tracker   *application.TrackerService
	summary   *application.SummaryService
	registry  *application.IntegrationRegistry
	syncSvc   *application.SyncService
	uploadSvc *application.UploadService
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	tracker *application.TrackerService,
	summary *application.SummaryService,
	registry *application.IntegrationRegistry,
	syncSvc *application.SyncService,
	uploadSvc *application.UploadService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		tracker:   tracker,
		summary:   summary,
		registry:  registry,
		syncSvc:   syncSvc,
		uploadSvc: uploadSvc,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/activities", h.ListActivities)
	mux.HandleFunc("GET /api/v1/summary/apps", h.AppSummaries)
	mux.HandleFunc("GET /api/v1/summary/domains", h.DomainSummaries)
	mux.HandleFunc("GET /api/v1/tracking", h.TrackingState)
	mux.HandleFunc("POST /api/v1/tracking/start", h.StartTracking)
	mux.HandleFunc("POST /api/v1/tracking/stop", h.StopTracking)
	mux.HandleFunc("GET /api/v1/integrations", h.ListIntegrations)
	mux.HandleFunc("POST /api/v1/integrations/reload", h.ReloadIntegrations)
	mux.HandleFunc("POST /api/v1/integrations/{name}/test", h.TestIntegration)
	mux.HandleFunc("GET /api/v1/activities/{id}/tickets", h.ActivityTickets)
	mux.HandleFunc("POST /api/v1/activities/{id}/sync/{integration}", h.SyncActivity)
	mux.HandleFunc("POST /api/v1/upload", h.Upload)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListActivities returns the recorded sessions for one day, ordered by start
// time. The day defaults to today.
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date: expected YYYY-MM-DD")
		return
	}

	activities, err := h.summary.ActivitiesForDay(r.Context(), day)
	if err != nil {
		h.logger.Error("failed to list activities", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]ActivityResponse, 0, len(activities))
	for _, a := range activities {
		resp = append(resp, toActivityResponse(a))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AppSummaries returns per-application usage totals for a range.
func (h *Handler) AppSummaries(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summaries, err := h.summary.AppSummaries(r.Context(), from, to)
	if err != nil {
		h.logger.Error("failed to summarize apps", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// DomainSummaries returns per-domain usage totals for a range.
func (h *Handler) DomainSummaries(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summaries, err := h.summary.DomainSummaries(r.Context(), from, to)
	if err != nil {
		h.logger.Error("failed to summarize domains", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// TrackingState reports whether tracking is enabled.
func (h *Handler) TrackingState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, TrackingResponse{Tracking: h.tracker.IsTracking()})
}

// StartTracking enables foreground window tracking.
func (h *Handler) StartTracking(w http.ResponseWriter, _ *http.Request) {
	h.tracker.Enable()
	writeJSON(w, http.StatusOK, TrackingResponse{Tracking: true})
}

// StopTracking disables tracking, flushing any open session first.
func (h *Handler) StopTracking(w http.ResponseWriter, _ *http.Request) {
	h.tracker.Disable()
	writeJSON(w, http.StatusOK, TrackingResponse{Tracking: false})
}

// ListIntegrations returns the configured integrations.
func (h *Handler) ListIntegrations(w http.ResponseWriter, _ *http.Request) {
	integrations := h.registry.List()

	resp := make([]IntegrationResponse, 0, len(integrations))
	for _, in := range integrations {
		resp = append(resp, IntegrationResponse{
			Name:        in.Name(),
			DisplayName: in.DisplayName(),
			Enabled:     in.IsEnabled(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// ReloadIntegrations re-reads the integrations config and rebuilds the
// registry, then returns the new set.
func (h *Handler) ReloadIntegrations(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Reload(); err != nil {
		h.logger.Error("failed to reload integrations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reload integrations config")
		return
	}

	h.ListIntegrations(w, r)
}

// TestIntegration verifies connectivity of the named integration.
func (h *Handler) TestIntegration(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := h.syncSvc.TestConnection(r.Context(), name); err != nil {
		if errors.Is(err, driven.ErrIntegrationNotFound) {
			writeError(w, http.StatusNotFound, "integration not found")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ActivityTickets returns the ticket ids each enabled integration's
// extraction rules mine from the activity.
func (h *Handler) ActivityTickets(w http.ResponseWriter, r *http.Request) {
	activityID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	matches, err := h.syncSvc.TicketMatches(r.Context(), activityID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	resp := make([]TicketMatchResponse, 0, len(matches))
	for _, m := range matches {
		resp = append(resp, TicketMatchResponse{
			Integration: m.Integration,
			TicketID:    m.TicketID,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// SyncActivity pushes one activity's time to the named integration. The
// ticket id comes from the request body when present, otherwise from the
// integration's extraction rules.
func (h *Handler) SyncActivity(w http.ResponseWriter, r *http.Request) {
	activityID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}
	integrationName := r.PathValue("integration")

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ticketID := req.TicketID
	if ticketID == "" {
		extracted, ok, err := h.syncSvc.ExtractTicket(r.Context(), activityID, integrationName)
		if err != nil {
			writeSyncError(w, err)
			return
		}
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "no ticket id found in activity")
			return
		}
		ticketID = extracted
	}

	outcome, err := h.syncSvc.Sync(r.Context(), activityID, integrationName, ticketID)
	if err != nil {
		writeSyncError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SyncResponse{
		Success:    outcome.Success,
		Message:    outcome.Message,
		TicketID:   ticketID,
		ExternalID: outcome.ExternalID,
	})
}

// Upload aggregates one day and pushes it to the collector. The day defaults
// to today.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date: expected YYYY-MM-DD")
		return
	}

	result, err := h.uploadSvc.UploadDay(r.Context(), day)
	if err != nil {
		if errors.Is(err, application.ErrUploadNotConfigured) {
			writeError(w, http.StatusConflict, "upload is not configured")
			return
		}
		h.logger.Error("upload failed", "error", err)
		writeError(w, http.StatusBadGateway, "upload failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeSyncError maps sync service errors to HTTP statuses. Integration
// errors are surfaced verbatim so the caller sees the external service's
// message.
func writeSyncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, driven.ErrIntegrationNotFound):
		writeError(w, http.StatusNotFound, "integration not found")
	case errors.Is(err, application.ErrSyncInFlight):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// parseDay reads an optional date=YYYY-MM-DD query parameter, defaulting to
// the current UTC day.
func parseDay(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}

// parseRange resolves the summary endpoints' time window: either explicit
// from/to RFC3339 bounds or a single date, defaulting to today.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()

	if rawFrom := q.Get("from"); rawFrom != "" {
		from, err := time.Parse(time.RFC3339, rawFrom)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid from: expected RFC3339 timestamp")
		}
		to, err := time.Parse(time.RFC3339, q.Get("to"))
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid to: expected RFC3339 timestamp")
		}
		return from, to, nil
	}

	day, err := parseDay(r)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid date: expected YYYY-MM-DD")
	}
	from, to := application.DayRange(day)
	return from, to, nil
}
