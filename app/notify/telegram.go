package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	TelegramAPIBase   = "https://api.telegram.org"
	TelegramMaxLength = 4096 // UTF-16 code units, as the Bot API counts
)

// Telegram sends messages to chats via the Bot API.
type Telegram struct {
	botToken string
	apiBase  string
	client   *http.Client
}

var _ Sender = (*Telegram)(nil)

func NewTelegram(botToken string) *Telegram {
	return &Telegram{
		botToken: botToken,
		apiBase:  TelegramAPIBase,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// WithAPIBase points the sender at another Bot API host.
func (t *Telegram) WithAPIBase(base string) *Telegram {
	t.apiBase = strings.TrimRight(base, "/")
	return t
}

func (t *Telegram) Name() string       { return "telegram" }
func (t *Telegram) Audience() Audience { return PerRecipient }
func (t *Telegram) MaxLength() int     { return TelegramMaxLength }

func (t *Telegram) MessageLength(text string) int {
	return UTF16Length(text)
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Send(ctx context.Context, chatID, text string) error {
	if t.botToken == "" || chatID == "" {
		return fmt.Errorf("telegram sender misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var result telegramResponse
	if err := json.Unmarshal(body, &result); err != nil || resp.StatusCode != http.StatusOK || !result.OK {
		if result.Description != "" {
			return fmt.Errorf("telegram error: %s: %s", resp.Status, result.Description)
		}
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}
