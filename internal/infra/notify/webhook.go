package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Webhook posts messages to a Discord-compatible webhook.
type Webhook struct {
	url        string
	username   string
	httpClient *http.Client
}

// NewWebhook creates a webhook sink.
func NewWebhook(url, username string) *Webhook {
	if username == "" {
		username = "empire-bot"
	}
	return &Webhook{
		url:        url,
		username:   username,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Content  string `json:"content"`
	Username string `json:"username,omitempty"`
}

// Send implements Sink.
func (w *Webhook) Send(ctx context.Context, m Message) error {
	body, err := json.Marshal(webhookPayload{
		Content:  fmt.Sprintf("[%s] %s", m.Category, m.Text),
		Username: w.username,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook error: status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
