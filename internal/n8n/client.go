// Package n8n posts help-desk events to an n8n workflow webhook.
package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrUnavailable wraps delivery failures after the retry budget runs out.
var ErrUnavailable = errors.New("n8n unavailable")

// Client delivers events to a single n8n webhook URL. A client with an empty
// URL is disabled and drops events silently.
type Client struct {
	webhookURL string
	authToken  string
	client     *http.Client
	maxWait    time.Duration
}

// NewClient builds a webhook client. authToken, when set, is sent as a
// bearer token so the workflow can authenticate the caller.
func NewClient(webhookURL, authToken string) *Client {
	return &Client{
		webhookURL: webhookURL,
		authToken:  authToken,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxWait:    10 * time.Second,
	}
}

// Enabled reports whether a webhook URL is configured.
func (c *Client) Enabled() bool { return c.webhookURL != "" }

// HelpRequestEvent is the payload sent when a help request is created.
type HelpRequestEvent struct {
	Event       string `json:"event"`
	RequestID   int64  `json:"request_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	Priority    string `json:"priority"`
	SubmittedAt string `json:"submitted_at"`
}

// SendHelpRequest notifies the workflow about a new help request.
func (c *Client) SendHelpRequest(ctx context.Context, event HelpRequestEvent) error {
	if event.Event == "" {
		event.Event = "help.request"
	}
	return c.post(ctx, event)
}

func (c *Client) post(ctx context.Context, payload any) error {
	if !c.Enabled() {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		if c.authToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.authToken)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(c.maxWait)), 3), ctx)
	return backoff.Retry(operation, policy)
}
