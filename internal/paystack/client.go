// Package paystack provides the HTTP client for the Paystack payments API.
package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client talks to the Paystack REST API. All amounts cross this boundary
// in kobo, Paystack's smallest currency unit.
type Client struct {
	baseURL   string
	secretKey string
	client    *http.Client
	maxWait   time.Duration
}

// APIError is a definitive rejection from Paystack (status=false or a 4xx
// response). These are never retried.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack: %s (http %d)", e.Message, e.StatusCode)
}

// ErrUnavailable wraps network failures and 5xx responses that survived the
// retry budget.
var ErrUnavailable = errors.New("paystack unavailable")

// NewClient builds a Paystack client for the given base URL and secret key.
func NewClient(baseURL, secretKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 30 * time.Second},
		maxWait:   15 * time.Second,
	}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeInput starts a hosted checkout session.
type InitializeInput struct {
	Email       string `json:"email"`
	AmountKobo  int64  `json:"amount"`
	Reference   string `json:"reference"`
	Currency    string `json:"currency,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// Authorization is the hosted checkout handle Paystack returns.
type Authorization struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// InitializeTransaction creates a checkout session for a deposit.
func (c *Client) InitializeTransaction(ctx context.Context, input InitializeInput) (*Authorization, error) {
	var out Authorization
	if err := c.post(ctx, "/transaction/initialize", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TransactionStatus is the settlement state of a charge.
type TransactionStatus struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	Reference  string `json:"reference"`
	AmountKobo int64  `json:"amount"`
	Channel    string `json:"channel"`
	PaidAt     string `json:"paid_at"`
	Customer   struct {
		Email        string `json:"email"`
		CustomerCode string `json:"customer_code"`
	} `json:"customer"`
}

// VerifyTransaction fetches the settlement state of a charge by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*TransactionStatus, error) {
	var out TransactionStatus
	if err := c.get(ctx, "/transaction/verify/"+url.PathEscape(reference), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Customer is a Paystack customer record.
type Customer struct {
	ID           int64  `json:"id"`
	CustomerCode string `json:"customer_code"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

// CreateCustomerInput registers a customer ahead of DVA creation.
type CreateCustomerInput struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// CreateCustomer registers a customer at Paystack.
func (c *Client) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*Customer, error) {
	var out Customer
	if err := c.post(ctx, "/customer", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DedicatedAccount is a provider-issued virtual collection account.
type DedicatedAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	Bank          struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	} `json:"bank"`
	Currency string `json:"currency"`
}

// CreateDedicatedAccount requests a dedicated virtual account for a customer.
func (c *Client) CreateDedicatedAccount(ctx context.Context, customerCode, preferredBank string) (*DedicatedAccount, error) {
	if preferredBank == "" {
		preferredBank = "wema-bank"
	}
	body := map[string]string{
		"customer":       customerCode,
		"preferred_bank": preferredBank,
	}
	var out DedicatedAccount
	if err := c.post(ctx, "/dedicated_account", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recipient is a registered transfer destination.
type Recipient struct {
	RecipientCode string `json:"recipient_code"`
	Type          string `json:"type"`
	Name          string `json:"name"`
	Details       struct {
		AccountNumber string `json:"account_number"`
		AccountName   string `json:"account_name"`
		BankCode      string `json:"bank_code"`
		BankName      string `json:"bank_name"`
	} `json:"details"`
}

// CreateRecipientInput registers a payout destination.
type CreateRecipientInput struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Currency      string `json:"currency"`
}

// CreateTransferRecipient registers a bank account for transfers.
func (c *Client) CreateTransferRecipient(ctx context.Context, input CreateRecipientInput) (*Recipient, error) {
	if input.Type == "" {
		input.Type = "nuban"
	}
	if input.Currency == "" {
		input.Currency = "NGN"
	}
	var out Recipient
	if err := c.post(ctx, "/transferrecipient", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TransferInput moves funds to a registered recipient.
type TransferInput struct {
	Source        string `json:"source"`
	AmountKobo    int64  `json:"amount"`
	RecipientCode string `json:"recipient"`
	Reference     string `json:"reference"`
	Reason        string `json:"reason,omitempty"`
}

// Transfer is the provider view of a payout.
type Transfer struct {
	ID           int64  `json:"id"`
	Status       string `json:"status"`
	Reference    string `json:"reference"`
	TransferCode string `json:"transfer_code"`
	AmountKobo   int64  `json:"amount"`
}

// InitiateTransfer starts a payout. Status "otp" means the transfer needs
// finalization with a one-time code.
func (c *Client) InitiateTransfer(ctx context.Context, input TransferInput) (*Transfer, error) {
	if input.Source == "" {
		input.Source = "balance"
	}
	var out Transfer
	if err := c.post(ctx, "/transfer", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FinalizeTransfer completes an OTP-gated payout.
func (c *Client) FinalizeTransfer(ctx context.Context, transferCode, otp string) (*Transfer, error) {
	body := map[string]string{
		"transfer_code": transferCode,
		"otp":           otp,
	}
	var out Transfer
	if err := c.post(ctx, "/transfer/finalize_transfer", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Bank is one entry of the supported bank list.
type Bank struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Code string `json:"code"`
	Type string `json:"type"`
}

// ListBanks fetches the supported Nigerian bank list.
func (c *Client) ListBanks(ctx context.Context) ([]Bank, error) {
	var out []Bank
	if err := c.get(ctx, "/bank?currency=NGN", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolvedAccount is the owner of a verified bank account.
type ResolvedAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// ResolveAccount verifies an account number against a bank code.
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*ResolvedAccount, error) {
	path := fmt.Sprintf("/bank/resolve?account_number=%s&bank_code=%s",
		url.QueryEscape(accountNumber), url.QueryEscape(bankCode))
	var out ResolvedAccount
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifySignature checks an x-paystack-signature header against the raw
// webhook body using HMAC-SHA512 with the secret key.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	return VerifySignature(c.secretKey, body, signature)
}

// VerifySignature implements the webhook signature check independent of a
// client instance so handlers can unit-test it.
func VerifySignature(secretKey string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	return c.do(ctx, http.MethodGet, path, nil, dest)
}

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload, dest)
}

// do performs one API call with exponential backoff on transport errors and
// 5xx responses. Definitive rejections surface immediately as *APIError.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, dest any) error {
	operation := func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.secretKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode)
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		if resp.StatusCode >= 400 || !env.Status {
			message := env.Message
			if message == "" {
				message = http.StatusText(resp.StatusCode)
			}
			return backoff.Permanent(&APIError{StatusCode: resp.StatusCode, Message: message})
		}
		if dest != nil && len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, dest); err != nil {
				return backoff.Permanent(fmt.Errorf("decode data: %w", err))
			}
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(c.maxWait)), 3), ctx)
	return backoff.Retry(operation, policy)
}
