package n8n

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendHelpRequest(t *testing.T) {
	var got HelpRequestEvent
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "workflow-token")
	err := client.SendHelpRequest(t.Context(), HelpRequestEvent{
		RequestID: 42,
		Name:      "Jane Doe",
		Email:     "jane@example.com",
		Subject:   "Missing parcel",
		Message:   "My order never arrived",
		Priority:  "HIGH",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer workflow-token", auth)
	assert.Equal(t, "help.request", got.Event)
	assert.EqualValues(t, 42, got.RequestID)
	assert.Equal(t, "Missing parcel", got.Subject)
}

func TestDisabledClientDropsEvents(t *testing.T) {
	client := NewClient("", "")
	assert.False(t, client.Enabled())
	assert.NoError(t, client.SendHelpRequest(t.Context(), HelpRequestEvent{RequestID: 1}))
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	err := client.SendHelpRequest(t.Context(), HelpRequestEvent{RequestID: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-token")
	err := client.SendHelpRequest(t.Context(), HelpRequestEvent{RequestID: 1})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 1, calls.Load())
}
