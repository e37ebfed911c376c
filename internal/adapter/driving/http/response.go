package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// ActivityResponse is the JSON representation of one recorded activity session.
type ActivityResponse struct {
	ID          int64  `json:"id"`
	ProcessName string `json:"process_name"`
	WindowTitle string `json:"window_title"`
	Domain      string `json:"domain,omitempty"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Duration    int64  `json:"duration_seconds"`
}

// TrackingResponse is the JSON representation of the tracking toggle state.
type TrackingResponse struct {
	Tracking bool `json:"tracking"`
}

// IntegrationResponse is the JSON representation of a configured integration.
type IntegrationResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Enabled     bool   `json:"enabled"`
}

// SyncRequest is the optional JSON body of the sync endpoint. When TicketID
// is empty the integration's extraction rules supply it.
type SyncRequest struct {
	TicketID string `json:"ticket_id"`
}

// TicketMatchResponse pairs an integration with the ticket id it extracted.
type TicketMatchResponse struct {
	Integration string `json:"integration"`
	TicketID    string `json:"ticket_id"`
}

// SyncResponse is the JSON representation of a settled sync call.
type SyncResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	TicketID   string `json:"ticket_id"`
	ExternalID string `json:"external_id,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toActivityResponse converts a domain ActivityRecord to its JSON representation.
func toActivityResponse(a model.ActivityRecord) ActivityResponse {
	return ActivityResponse{
		ID:          a.ID,
		ProcessName: a.ProcessName,
		WindowTitle: a.WindowTitle,
		Domain:      a.Domain,
		StartTime:   a.StartTime.UTC().Format(time.RFC3339),
		EndTime:     a.EndTime.UTC().Format(time.RFC3339),
		Duration:    a.Duration,
	}
}
