// Package sdes specifies the external Secure Data Exchange Service
// notification call at its interface (out of scope per the service
// specification) and provides the HTTP-backed implementation used in
// production plus the worker that drains Submitted items through it.
package sdes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBody caps the amount of response data read from SDES to
// prevent memory exhaustion on a misbehaving endpoint.
const maxResponseBody int64 = 1 << 20

// NotifyRequest is the payload sent to SDES for a forwarded submission.
type NotifyRequest struct {
	CorrelationID       string `json:"correlationId"`
	InformationType     string `json:"informationType"`
	RecipientOrSender   string `json:"recipientOrSender"`
	ObjectStoreLocation string `json:"objectStoreLocation"`
}

// Client notifies SDES that a submission's object is ready to be picked up.
type Client interface {
	Notify(ctx context.Context, req NotifyRequest) error
}

// HTTPClient is the production Client, modeled on the same request/timeout
// /status-check shape used for every outbound HTTP collaborator in this
// service (see internal/callback.HTTPClient).
type HTTPClient struct {
	Endpoint string
	HTTP     *http.Client
}

// NewHTTPClient creates an HTTPClient with the given per-call timeout.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		Endpoint: endpoint,
		HTTP:     &http.Client{Timeout: timeout},
	}
}

// Notify POSTs the notification to the configured SDES endpoint. Any
// non-2xx response or network error is a Transient failure — the caller
// (the SDES worker) is expected to retry on its next tick.
func (c *HTTPClient) Notify(ctx context.Context, req NotifyRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("sdes: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sdes: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sdes: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sdes: notify status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
