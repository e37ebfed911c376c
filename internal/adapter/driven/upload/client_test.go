package upload_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/timepanel/internal/adapter/driven/upload"
	"github.com/ericfisherdev/timepanel/internal/domain/model"
)

func makePayload() model.UploadPayload {
	return model.UploadPayload{
		UserID:             "user-1",
		MachineName:        "workstation",
		Date:               "2026-03-10",
		MinDurationSeconds: 60,
		Apps: []model.AppSummary{
			{ProcessName: "code.exe", TotalSeconds: 3600, Percentage: 75},
			{ProcessName: "chrome.exe", TotalSeconds: 1200, Percentage: 25},
		},
		Domains: []model.DomainSummary{
			{Domain: "github.com", TotalSeconds: 1200, Percentage: 100},
		},
	}
}

func TestUpload_Success(t *testing.T) {
	var got model.UploadPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(server.Close)

	client := upload.NewClientWithHTTPClient(server.Client())

	result, err := client.Upload(context.Background(), server.URL, makePayload())
	require.NoError(t, err)
	assert.True(t, result.Success)

	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "2026-03-10", got.Date)
	assert.Equal(t, int64(60), got.MinDurationSeconds)
	require.Len(t, got.Apps, 2)
	assert.Equal(t, "code.exe", got.Apps[0].ProcessName)
}

func TestUpload_ServerRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error_code":"unknown_user","message":"user not registered"}`))
	}))
	t.Cleanup(server.Close)

	client := upload.NewClientWithHTTPClient(server.Client())

	result, err := client.Upload(context.Background(), server.URL, makePayload())
	require.NoError(t, err, "a decodable failure envelope is a result, not an error")
	assert.False(t, result.Success)
	assert.Equal(t, "unknown_user", result.ErrorCode)
}

func TestUpload_UndecodableError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	t.Cleanup(server.Close)

	client := upload.NewClientWithHTTPClient(server.Client())

	_, err := client.Upload(context.Background(), server.URL, makePayload())
	assert.Error(t, err)
}
