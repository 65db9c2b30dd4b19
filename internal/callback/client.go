// Package callback specifies the outbound client-notification call at its
// interface (out of scope per the service specification) and provides the
// HTTP-backed implementation plus the worker that drains terminal items
// through it.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hazyhaar/dms-submission/internal/store"
)

const maxResponseBody int64 = 1 << 20

// Notification is the payload POSTed to the caller's callbackUrl.
type Notification struct {
	ID            string               `json:"id"`
	Status        store.Status         `json:"status"`
	ObjectSummary *store.ObjectSummary `json:"objectSummary,omitempty"`
	FailureReason *string              `json:"failureReason,omitempty"`
}

// Client notifies a submitting client that its submission reached a
// terminal state. Anything other than HTTP 200 counts as failure.
type Client interface {
	Notify(ctx context.Context, callbackURL string, n Notification) error
}

// HTTPClient is the production Client.
type HTTPClient struct {
	HTTP *http.Client
}

// NewHTTPClient creates an HTTPClient with the given per-call timeout.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{HTTP: &http.Client{Timeout: timeout}}
}

// Notify POSTs n to callbackURL. Only HTTP 200 counts as success; any other
// status or network error is reported back so the caller can increment the
// item's failureCount.
func (c *HTTPClient) Notify(ctx context.Context, callbackURL string, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("callback: encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("callback: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("callback: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("callback: status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
