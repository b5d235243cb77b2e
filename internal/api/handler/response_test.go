package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcellar/xcellar/internal/service"
	"github.com/xcellar/xcellar/internal/support/i18n"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRespondSuccessTranslatesMessage(t *testing.T) {
	translator, err := i18n.NewManager()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	respondSuccess(t.Context(), rec, http.StatusCreated, "success.created", map[string]any{"id": 1}, translator)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeBody(t, rec)
	assert.Equal(t, "Created successfully", body["message"])
	assert.NotNil(t, body["data"])
}

func TestRespondSuccessPassesThroughUnknownKeys(t *testing.T) {
	translator, err := i18n.NewManager()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	respondSuccess(t.Context(), rec, http.StatusOK, "Order accepted", nil, translator)

	body := decodeBody(t, rec)
	assert.Equal(t, "Order accepted", body["message"])
	_, hasData := body["data"]
	assert.False(t, hasData)
}

func TestRespondServiceErrorStatuses(t *testing.T) {
	translator, err := i18n.NewManager()
	require.NoError(t, err)

	cases := []struct {
		err    error
		status int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrInvalidRefreshToken, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrAccountDisabled, http.StatusForbidden},
		{service.ErrCooldownActive, http.StatusTooManyRequests},
		{service.ErrTooManyAttempts, http.StatusTooManyRequests},
		{service.ErrProviderFailure, http.StatusInternalServerError},
		{service.ErrValidation, http.StatusBadRequest},
		{service.ErrInsufficientBalance, http.StatusBadRequest},
		{service.ErrOrderNotAvailable, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		respondServiceError(t.Context(), rec, tc.err, translator)
		assert.Equalf(t, tc.status, rec.Code, "error %v", tc.err)
		body := decodeBody(t, rec)
		assert.NotEmptyf(t, body["error"], "error %v", tc.err)
	}
}

func TestRespondServiceErrorWrappedSentinel(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := fmt.Errorf("%w: amount below minimum", service.ErrValidation)
	respondServiceError(t.Context(), rec, wrapped, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["error"], "amount below minimum")
}

func TestRespondServiceErrorUnknownIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	respondServiceError(t.Context(), rec, fmt.Errorf("disk on fire"), nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	// Internal details never leak to the client.
	assert.NotContains(t, body["error"], "disk on fire")
}

func TestMoneyConversion(t *testing.T) {
	assert.Equal(t, 1500.50, naira(150_050))
	assert.EqualValues(t, 150_050, kobo(1500.50))
	assert.EqualValues(t, 10, kobo(0.1))
	assert.Zero(t, kobo(0))
}

func TestClientIPDirectPeer(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:4567"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")

	// Forwarding headers from untrusted peers are ignored.
	assert.Equal(t, "203.0.113.9", clientIP(r))
}

func TestClientIPTrustedProxy(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.5:4567"
	r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.5")
	assert.Equal(t, "198.51.100.1", clientIP(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "172.20.1.1:80"
	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", clientIP(r))

	// 172.x outside the private block is not a proxy.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "172.40.1.1:80"
	r.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "172.40.1.1", clientIP(r))
}

func TestClientIPNoHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "127.0.0.1:9000"
	assert.Equal(t, "127.0.0.1", clientIP(r))
}
