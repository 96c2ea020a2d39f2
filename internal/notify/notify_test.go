package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pairworks/tpsflow/internal/models"
	"github.com/pairworks/tpsflow/internal/types"
)

func TestWebhookDeliversPayload(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	to := &models.User{ID: "u1", Email: "mina@example.com"}
	err := NewWebhook(srv.URL).Send(to, "TPS report submitted", "A report awaits your review.")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got.Email != "mina@example.com" || got.Subject != "TPS report submitted" {
		t.Errorf("Unexpected payload: %+v", got)
	}
}

func TestWebhookFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	to := &models.User{ID: "u1", Email: "mina@example.com"}
	if err := NewWebhook(srv.URL).Send(to, "s", "b"); !types.IsUnavailable(err) {
		t.Errorf("Expected unavailable error, got %v", err)
	}

	srv.Close()
	if err := NewWebhook(srv.URL).Send(to, "s", "b"); !types.IsUnavailable(err) {
		t.Errorf("Expected unavailable error for dead endpoint, got %v", err)
	}
}
