// Package notify carries transition notifications out of the service. The
// corpus has no mail transport; the integration point is a JSON webhook,
// with a log-only fallback when none is configured. Either way the contract
// is best-effort: callers log failures and move on.
package notify

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/pairworks/tpsflow/internal/models"
	"github.com/pairworks/tpsflow/internal/types"
)

// Webhook posts each notification to a configured URL.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	To      string `json:"to"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (w *Webhook) Send(to *models.User, subject, body string) error {
	payload, err := json.Marshal(webhookPayload{
		To:      to.ID,
		Email:   to.Email,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return types.Unavailable("notification encode failed: %v", err)
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return types.Unavailable("notification delivery failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.Unavailable("notification webhook returned %d", resp.StatusCode)
	}
	return nil
}

// LogOnly writes notifications to the server log. Used when no webhook URL
// is configured.
type LogOnly struct{}

func (LogOnly) Send(to *models.User, subject, body string) error {
	log.Printf("Notification for %s: %s", to.Email, subject)
	return nil
}
