// Package twilio provides the client for the Twilio Verify API used for
// phone number confirmation.
package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Channel selects how the verification code is delivered.
type Channel string

const (
	ChannelSMS  Channel = "sms"
	ChannelCall Channel = "call"
)

var (
	// ErrInvalidInput means Twilio rejected the request because of the
	// caller's data (bad phone number, unknown verification). Maps to a
	// client error upstream.
	ErrInvalidInput = errors.New("twilio rejected input")

	// ErrUnavailable means Twilio itself failed. Callers must report this as
	// a server-side failure, never as a client error.
	ErrUnavailable = errors.New("twilio unavailable")
)

// Client calls the Twilio Verify v2 API.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	serviceSID string
	client     *http.Client
	maxWait    time.Duration
}

// NewClient builds a Verify client. baseURL is overridable for tests.
func NewClient(baseURL, accountSID, authToken, serviceSID string) *Client {
	if baseURL == "" {
		baseURL = "https://verify.twilio.com"
	}
	return &Client{
		baseURL:    baseURL,
		accountSID: accountSID,
		authToken:  authToken,
		serviceSID: serviceSID,
		client:     &http.Client{Timeout: 15 * time.Second},
		maxWait:    10 * time.Second,
	}
}

// Verification is the provider's view of a started verification.
type Verification struct {
	SID     string `json:"sid"`
	To      string `json:"to"`
	Channel string `json:"channel"`
	Status  string `json:"status"`
}

// StartVerification sends a code to the phone number over the given channel.
func (c *Client) StartVerification(ctx context.Context, phone string, channel Channel) (*Verification, error) {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("Channel", string(channel))

	var out Verification
	path := fmt.Sprintf("/v2/Services/%s/Verifications", url.PathEscape(c.serviceSID))
	if err := c.postForm(ctx, path, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckResult is the outcome of a code check.
type CheckResult struct {
	SID    string `json:"sid"`
	To     string `json:"to"`
	Status string `json:"status"`
}

// Approved reports whether the submitted code matched.
func (r *CheckResult) Approved() bool { return r.Status == "approved" }

// CheckVerification submits a code for the phone number. A wrong code comes
// back with a non-approved status, not an error.
func (c *Client) CheckVerification(ctx context.Context, phone, code string) (*CheckResult, error) {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("Code", code)

	var out CheckResult
	path := fmt.Sprintf("/v2/Services/%s/VerificationCheck", url.PathEscape(c.serviceSID))
	if err := c.postForm(ctx, path, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, dest any) error {
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
			strings.NewReader(form.Encode()))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.SetBasicAuth(c.accountSID, c.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
		}

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode)
		case resp.StatusCode == http.StatusTooManyRequests:
			// Provider-side throttling is surfaced as unavailable; the
			// service layer applies its own request cooldowns.
			return backoff.Permanent(fmt.Errorf("%w: rate limited", ErrUnavailable))
		case resp.StatusCode >= 400:
			var apiErr apiError
			if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
				return backoff.Permanent(fmt.Errorf("%w: %s (code %d)", ErrInvalidInput, apiErr.Message, apiErr.Code))
			}
			return backoff.Permanent(fmt.Errorf("%w: http %d", ErrInvalidInput, resp.StatusCode))
		}

		if dest != nil {
			if err := json.Unmarshal(raw, dest); err != nil {
				return backoff.Permanent(fmt.Errorf("decode response: %w", err))
			}
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(c.maxWait)), 2), ctx)
	return backoff.Retry(operation, policy)
}
