package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendOTPPostsBrevoPayload(t *testing.T) {
	var got message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "secret", APIURL: srv.URL, From: "noreply@hrms.com"})
	require.NoError(t, c.SendOTP(context.Background(), "a@example.com", "123456", "<Ann>"))

	assert.Equal(t, "HRMS Lite - Password Reset OTP", got.Subject)
	assert.Equal(t, "HRMS Lite", got.Sender.Name)
	assert.Equal(t, []contact{{Email: "a@example.com", Name: "<Ann>"}}, got.To)
	assert.Contains(t, got.HTMLContent, "123456")
	assert.Contains(t, got.HTMLContent, "&lt;Ann&gt;")
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", APIURL: srv.URL})
	require.NoError(t, c.SendInvitation(context.Background(), "b@example.com", "http://x/accept-invitation?token=t", "Acme", "Ann"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad sender", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", APIURL: srv.URL})
	err := c.SendOTP(context.Background(), "a@example.com", "123456", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Brevo API error: 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendWithoutKey(t *testing.T) {
	c := New(Config{})
	err := c.SendLeaveDecision(context.Background(), LeaveDecision{To: "a@example.com", Status: "Approved"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
