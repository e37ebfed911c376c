package redmine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/timepanel/internal/adapter/driven/redmine"
	"github.com/ericfisherdev/timepanel/internal/domain/model"
)

// newTestIntegration creates an Integration backed by the given httptest handler.
func newTestIntegration(t *testing.T, handler http.Handler, rules model.RuleSet) *redmine.Integration {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return redmine.NewWithHTTPClient(server.Client(), "test-redmine", server.URL, "test-key", rules)
}

func makeActivity() model.ActivityRecord {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	return model.ActivityRecord{
		ID:          7,
		ProcessName: "code.exe",
		WindowTitle: "Fix bug #123 - main.go",
		StartTime:   start,
		EndTime:     start.Add(1800 * time.Second),
		Duration:    1800,
	}
}

func TestExtractTicketID(t *testing.T) {
	rules := model.RuleSet{
		{Pattern: regexp.MustCompile(`#(\d+)`), Source: model.RuleSourceWindowTitle},
	}
	integration := newTestIntegration(t, http.NotFoundHandler(), rules)

	id, ok := integration.ExtractTicketID(makeActivity())
	require.True(t, ok)
	assert.Equal(t, "123", id)
}

func TestExtractTicketID_NoMatch(t *testing.T) {
	rules := model.RuleSet{
		{Pattern: regexp.MustCompile(`JIRA-(\d+)`), Source: model.RuleSourceWindowTitle},
	}
	integration := newTestIntegration(t, http.NotFoundHandler(), rules)

	_, ok := integration.ExtractTicketID(makeActivity())
	assert.False(t, ok)
}

func TestSyncTimeEntry_Success(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]map[string]any

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Redmine-API-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"time_entry":{"id":5501}}`))
	})

	integration := newTestIntegration(t, handler, nil)

	outcome, err := integration.SyncTimeEntry(context.Background(), makeActivity(), "123")
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, "5501", outcome.ExternalID)
	assert.Contains(t, outcome.Message, "5501")

	assert.Equal(t, "/time_entries.json", gotPath)
	assert.Equal(t, "test-key", gotKey)

	entry := gotBody["time_entry"]
	assert.EqualValues(t, 123, entry["issue_id"])
	assert.InDelta(t, 0.5, entry["hours"], 1e-9)
	assert.Equal(t, "2026-03-10", entry["spent_on"])
	assert.Equal(t, "code.exe - Fix bug #123 - main.go", entry["comments"])
}

func TestSyncTimeEntry_APIError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":["Issue does not exist"]}`))
	})

	integration := newTestIntegration(t, handler, nil)

	_, err := integration.SyncTimeEntry(context.Background(), makeActivity(), "123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Issue does not exist")
}

func TestSyncTimeEntry_InvalidTicketID(t *testing.T) {
	integration := newTestIntegration(t, http.NotFoundHandler(), nil)

	_, err := integration.SyncTimeEntry(context.Background(), makeActivity(), "not-a-number")
	assert.Error(t, err)
}

func TestTestConnection_Success(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/current.json", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Redmine-API-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"id":12,"login":"tracker"}}`))
	})

	integration := newTestIntegration(t, handler, nil)

	assert.NoError(t, integration.TestConnection(context.Background()))
}

func TestTestConnection_AuthFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	integration := newTestIntegration(t, handler, nil)

	err := integration.TestConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := redmine.New("broken", true, "", "key", 0, nil)
	assert.Error(t, err)
}
