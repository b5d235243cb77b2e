package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success","data":{"reference":"TXN_abc"}}`)

	assert.True(t, VerifySignature(secret, body, signBody(secret, body)))
	assert.False(t, VerifySignature(secret, body, signBody("other_secret", body)))
	assert.False(t, VerifySignature(secret, body, ""))
	assert.False(t, VerifySignature(secret, []byte("tampered"), signBody(secret, body)))
}

func TestInitializeTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"TXN_ref1"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test")
	auth, err := client.InitializeTransaction(context.Background(), InitializeInput{
		Email:      "a@b.com",
		AmountKobo: 50000,
		Reference:  "TXN_ref1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc", auth.AuthorizationURL)
	assert.Equal(t, "TXN_ref1", auth.Reference)
}

func TestAPIErrorNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":false,"message":"Invalid account number"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test")
	_, err := client.ResolveAccount(context.Background(), "0000000000", "058")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid account number", apiErr.Message)
	assert.Equal(t, 1, calls)
}

func TestServerErrorRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"status":"success","reference":"TXN_ref2","amount":10000}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test")
	status, err := client.VerifyTransaction(context.Background(), "TXN_ref2")
	require.NoError(t, err)
	assert.Equal(t, "success", status.Status)
	assert.Equal(t, int64(10000), status.AmountKobo)
	assert.Equal(t, 3, calls)
}

func TestUnavailableAfterRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test")
	_, err := client.ListBanks(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable))
}
