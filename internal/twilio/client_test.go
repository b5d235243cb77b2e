package twilio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartVerification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/Services/VA123/Verifications", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+2348012345678", r.PostForm.Get("To"))
		assert.Equal(t, "sms", r.PostForm.Get("Channel"))
		w.Write([]byte(`{"sid":"VE1","to":"+2348012345678","channel":"sms","status":"pending"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "AC1", "token", "VA123")
	v, err := client.StartVerification(context.Background(), "+2348012345678", ChannelSMS)
	require.NoError(t, err)
	assert.Equal(t, "pending", v.Status)
}

func TestCheckVerificationWrongCodeNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sid":"VE1","to":"+2348012345678","status":"pending"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "AC1", "token", "VA123")
	result, err := client.CheckVerification(context.Background(), "+2348012345678", "000000")
	require.NoError(t, err)
	assert.False(t, result.Approved())
}

func TestInvalidInputIsClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("{\"code\":60200,\"message\":\"Invalid parameter `To`\"}"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "AC1", "token", "VA123")
	_, err := client.StartVerification(context.Background(), "not-a-phone", ChannelSMS)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestProviderFailureIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "AC1", "token", "VA123")
	_, err := client.StartVerification(context.Background(), "+2348012345678", ChannelCall)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.False(t, errors.Is(err, ErrInvalidInput))
}
