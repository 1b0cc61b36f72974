package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DeliveryHeader carries a unique id per webhook delivery so receivers can
// de-duplicate retries.
const DeliveryHeader = "X-Switchboard-Delivery"

// Webhook POSTs the alert as JSON to a URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook returns a Webhook channel. A nil client uses a 10s-timeout default.
func NewWebhook(url string, client *http.Client) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("notify: webhook url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{url: url, client: client}, nil
}

// Name implements Channel.
func (w *Webhook) Name() string { return "webhook" }

type webhookPayload struct {
	Event string `json:"event"`
	Alert
}

// Notify implements Dispatcher.
func (w *Webhook) Notify(ctx context.Context, a Alert) error {
	body, err := json.Marshal(webhookPayload{Event: "qa.issue", Alert: a})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(DeliveryHeader, uuid.NewString())

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", w.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post %s: status %d: %s", w.url, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}
