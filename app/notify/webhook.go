package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const DiscordMaxLength = 2000

// Webhook posts a JSON message to an incoming-webhook URL.
type Webhook struct {
	name      string
	url       string
	field     string
	maxLength int
	client    *http.Client
}

var _ Sender = (*Webhook)(nil)

// NewSlack posts {"text": ...} to a Slack incoming webhook.
func NewSlack(webhookURL string) *Webhook {
	return newWebhook("slack", webhookURL, "text", 0)
}

// NewDiscord posts {"content": ...} to a Discord webhook.
func NewDiscord(webhookURL string) *Webhook {
	return newWebhook("discord", webhookURL, "content", DiscordMaxLength)
}

func newWebhook(name, webhookURL, field string, maxLength int) *Webhook {
	return &Webhook{
		name:      name,
		url:       webhookURL,
		field:     field,
		maxLength: maxLength,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *Webhook) Name() string       { return w.name }
func (w *Webhook) Audience() Audience { return Broadcast }
func (w *Webhook) MaxLength() int     { return w.maxLength }

func (w *Webhook) Send(ctx context.Context, _ string, text string) error {
	if w.url == "" {
		return fmt.Errorf("%s webhook URL is not configured", w.name)
	}

	payload, err := json.Marshal(map[string]string{w.field: text})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s webhook error: %s", w.name, resp.Status)
	}

	return nil
}
