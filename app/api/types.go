package api

import (
	"context"

	"github.com/lysyi3m/paleo-digest/app/database"
	"github.com/lysyi3m/paleo-digest/app/feed"
	"github.com/lysyi3m/paleo-digest/app/tasks"
)

// DigestItemLimit is the number of items served in the digest feed.
const DigestItemLimit = 50

type GeneratorInterface interface {
	Run(items []database.Item) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

// MessageSender delivers a bot reply to a chat.
type MessageSender interface {
	Send(ctx context.Context, to, text string) error
}

type Handler struct {
	items      database.ArticleStore
	recipients database.RecipientRegistry
	runs       database.RunRecorder
	generator  GeneratorInterface
	scheduler  tasks.TaskSchedulerInterface
	bot        *Bot
}

// Telegram webhook payload. Only the fields the bot reads are decoded.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64        `json:"message_id"`
	Text      string       `json:"text"`
	Chat      Chat         `json:"chat"`
	From      *MessageUser `json:"from"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type MessageUser struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type recipientRequest struct {
	ExternalID  string `json:"external_id" binding:"required"`
	DisplayName string `json:"display_name"`
	IsAdmin     bool   `json:"is_admin"`
}

// keywordsRequest sets a filter. A null or missing list means "everything".
type keywordsRequest struct {
	Keywords []string `json:"keywords"`
}
