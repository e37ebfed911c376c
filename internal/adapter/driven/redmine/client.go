// Package redmine implements the Integration port against the Redmine REST API.
package redmine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
	"github.com/ericfisherdev/timepanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Integration = (*Integration)(nil)

// timeEntryRequest is the Redmine time-entry creation payload.
type timeEntryRequest struct {
	TimeEntry timeEntryData `json:"time_entry"`
}

type timeEntryData struct {
	IssueID    int64   `json:"issue_id"`
	Hours      float64 `json:"hours"`
	ActivityID int64   `json:"activity_id,omitempty"`
	Comments   string  `json:"comments"`
	SpentOn    string  `json:"spent_on"`
}

// timeEntryResponse is the creation response; only the assigned id matters.
type timeEntryResponse struct {
	TimeEntry struct {
		ID int64 `json:"id"`
	} `json:"time_entry"`
}

// currentUserResponse is the /users/current.json shape used by TestConnection.
type currentUserResponse struct {
	User struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
	} `json:"user"`
}

// Integration is a single configured Redmine instance. It extracts ticket ids
// from activities via its rule set and pushes time entries to the Redmine
// time-entry API.
type Integration struct {
	name              string
	enabled           bool
	baseURL           string
	apiKey            string
	defaultActivityID int64
	rules             model.RuleSet
	client            *http.Client
}

// New creates a Redmine integration. The HTTP transport wraps an in-memory
// httpcache so repeated TestConnection GETs hit conditional requests.
func New(name string, enabled bool, baseURL, apiKey string, defaultActivityID int64, rules model.RuleSet) (*Integration, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("redmine integration %q: url is required", name)
	}

	client := &http.Client{
		Transport: httpcache.NewMemoryCacheTransport(),
		Timeout:   30 * time.Second,
	}

	return &Integration{
		name:              name,
		enabled:           enabled,
		baseURL:           strings.TrimRight(baseURL, "/"),
		apiKey:            apiKey,
		defaultActivityID: defaultActivityID,
		rules:             rules,
		client:            client,
	}, nil
}

// NewWithHTTPClient creates an Integration with a custom http.Client. This
// constructor is intended for testing, allowing injection of an httptest server.
func NewWithHTTPClient(client *http.Client, name, baseURL, apiKey string, rules model.RuleSet) *Integration {
	return &Integration{
		name:    name,
		enabled: true,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		rules:   rules,
		client:  client,
	}
}

// Name returns the configured instance name.
func (i *Integration) Name() string { return i.name }

// DisplayName returns the service type name.
func (i *Integration) DisplayName() string { return "Redmine" }

// IsEnabled reports whether this instance participates in extraction and sync.
func (i *Integration) IsEnabled() bool { return i.enabled }

// ExtractTicketID runs the configured extraction rules against the activity.
func (i *Integration) ExtractTicketID(activity model.ActivityRecord) (string, bool) {
	return i.rules.Extract(activity)
}

// SyncTimeEntry creates a Redmine time entry for the activity against the
// given issue. The entry's hours are the activity duration converted to
// fractional hours; spent_on is the activity's start date.
func (i *Integration) SyncTimeEntry(ctx context.Context, activity model.ActivityRecord, ticketID string) (model.SyncOutcome, error) {
	issueID, err := strconv.ParseInt(ticketID, 10, 64)
	if err != nil {
		return model.SyncOutcome{}, fmt.Errorf("invalid ticket id %q: %w", ticketID, err)
	}

	payload := timeEntryRequest{
		TimeEntry: timeEntryData{
			IssueID:    issueID,
			Hours:      float64(activity.Duration) / 3600.0,
			ActivityID: i.defaultActivityID,
			Comments:   fmt.Sprintf("%s - %s", activity.ProcessName, activity.WindowTitle),
			SpentOn:    activity.Date(),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return model.SyncOutcome{}, fmt.Errorf("encode time entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+"/time_entries.json", bytes.NewReader(body))
	if err != nil {
		return model.SyncOutcome{}, fmt.Errorf("build time entry request: %w", err)
	}
	req.Header.Set("X-Redmine-API-Key", i.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return model.SyncOutcome{}, fmt.Errorf("post time entry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return model.SyncOutcome{}, fmt.Errorf("redmine API error (%s): %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var created timeEntryResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return model.SyncOutcome{}, fmt.Errorf("decode time entry response: %w", err)
	}

	externalID := strconv.FormatInt(created.TimeEntry.ID, 10)
	return model.SyncOutcome{
		Success:    true,
		Message:    fmt.Sprintf("created time entry #%s", externalID),
		ExternalID: externalID,
	}, nil
}

// TestConnection verifies the configured URL and API key by fetching the
// current user.
func (i *Integration) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.baseURL+"/users/current.json", nil)
	if err != nil {
		return fmt.Errorf("build connection test request: %w", err)
	}
	req.Header.Set("X-Redmine-API-Key", i.apiKey)

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("connection test: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authentication failed: %s", resp.Status)
	}

	var user currentUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return fmt.Errorf("decode connection test response: %w", err)
	}

	return nil
}
