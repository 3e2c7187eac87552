package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const NtfyMaxLength = 4096

// Ntfy publishes messages to an ntfy topic.
type Ntfy struct {
	topicURL string
	client   *http.Client
}

var _ Sender = (*Ntfy)(nil)

func NewNtfy(topicURL string) *Ntfy {
	return &Ntfy{
		topicURL: topicURL,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (n *Ntfy) Name() string       { return "ntfy" }
func (n *Ntfy) Audience() Audience { return Broadcast }
func (n *Ntfy) MaxLength() int     { return NtfyMaxLength }

func (n *Ntfy) Send(ctx context.Context, _ string, text string) error {
	if n.topicURL == "" {
		return fmt.Errorf("ntfy topic URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topicURL, strings.NewReader(text))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Tags", "t-rex")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy error: %s", resp.Status)
	}

	return nil
}
