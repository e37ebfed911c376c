// Package upload implements the UploadClient port: pushing daily aggregate
// summaries to the upstream collector over JSON HTTP.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
	"github.com/ericfisherdev/timepanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UploadClient = (*Client)(nil)

// Client posts aggregate payloads to a collector endpoint. The endpoint URL
// is supplied per call because it lives in the reloadable integrations
// config, not in process configuration.
type Client struct {
	client *http.Client
}

// NewClient creates an upload client.
func NewClient() *Client {
	return &Client{client: &http.Client{Timeout: 30 * time.Second}}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client for tests.
func NewClientWithHTTPClient(client *http.Client) *Client {
	return &Client{client: client}
}

// Upload posts the payload to serverURL and decodes the collector's response
// envelope. A non-2xx status with a decodable envelope is returned as a
// failed UploadResult rather than an error, so callers can surface the
// collector's machine-readable error code.
func (c *Client) Upload(ctx context.Context, serverURL string, payload model.UploadPayload) (model.UploadResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return model.UploadResult{}, fmt.Errorf("encode upload payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(serverURL, "/"), bytes.NewReader(body))
	if err != nil {
		return model.UploadResult{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return model.UploadResult{}, fmt.Errorf("post upload: %w", err)
	}
	defer resp.Body.Close()

	var result model.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return model.UploadResult{}, fmt.Errorf("upload failed (%s)", resp.Status)
		}
		return model.UploadResult{}, fmt.Errorf("decode upload response: %w", err)
	}

	return result, nil
}
