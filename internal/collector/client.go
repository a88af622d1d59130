// Package collector is the HTTP client side of the collector contract:
// liveness probe, session start, page/marker records, and event batches.
package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clicktrail/internal/models"
)

// DefaultTimeout bounds a single collector request.
const DefaultTimeout = 5 * time.Second

// Client talks to a collector service. All methods are safe for concurrent
// use; the zero value is not usable, construct with NewClient.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the collector at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Verify probes collector liveness. Any transport error or non-2xx status is
// a failure.
func (c *Client) Verify(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/verify", nil)
	if err != nil {
		return fmt.Errorf("build verify request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	defer drainAndClose(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("verify: collector returned %d", resp.StatusCode)
	}
	return nil
}

// StartSession asks the collector to open a session and returns the
// collector-confirmed session name (possibly disambiguated).
func (c *Client) StartSession(ctx context.Context, name string) (string, error) {
	var out models.StartSessionResponse
	err := c.postJSON(ctx, "/start-session", models.StartSessionRequest{SessionName: name}, &out)
	if err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	if out.SessionName == "" {
		return "", fmt.Errorf("start session: collector returned empty session name")
	}
	return out.SessionName, nil
}

// RecordPage submits a page visit or lifecycle marker.
func (c *Client) RecordPage(ctx context.Context, session string, visit models.PageVisit) error {
	req := models.RecordPageRequest{
		SessionName: session,
		URL:         visit.URL,
		WindowSize:  visit.WindowSize(),
		Timestamp:   visit.TSUTC,
	}
	if err := c.postJSON(ctx, "/record-page", req, nil); err != nil {
		return fmt.Errorf("record page: %w", err)
	}
	return nil
}

// RecordEvents submits a drained batch. Failures are the caller's to absorb;
// the contract is fire-and-forget with no retry.
func (c *Client) RecordEvents(ctx context.Context, session string, events []models.InteractionEvent) error {
	if len(events) == 0 {
		return nil
	}
	req := models.RecordEventRequest{SessionName: session, Events: events}
	if err := c.postJSON(ctx, "/record-event", req, nil); err != nil {
		return fmt.Errorf("record events: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("collector returned %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
