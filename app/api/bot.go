package api

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lysyi3m/paleo-digest/app/database"
)

const (
	botHelpText = "🦴 PaleoDigest bot commands\n\n" +
		"/start - subscribe\n" +
		"/stop - unsubscribe\n" +
		"/keywords - show your keywords\n" +
		"/keywords <word1> <word2> ... - set keywords\n" +
		"/keywords * - receive everything\n" +
		"/help - this help"

	botWelcomeText = "🦴 Welcome to PaleoDigest!\n\n" +
		"You will receive a daily paleontology news briefing.\n" +
		"You currently receive all news.\n\n" +
		"Commands:\n" +
		"/keywords <word1> <word2> ... - set interest keywords\n" +
		"/keywords - show current keywords\n" +
		"/keywords * - receive everything\n" +
		"/stop - unsubscribe"
)

// Bot implements the self-service subscription commands.
type Bot struct {
	recipients database.RecipientRegistry
	sender     MessageSender
}

func NewBot(recipients database.RecipientRegistry, sender MessageSender) *Bot {
	return &Bot{recipients: recipients, sender: sender}
}

// HandleUpdate processes one webhook update and sends the reply. Updates
// without a command are ignored.
func (b *Bot) HandleUpdate(ctx context.Context, update Update) error {
	msg := update.Message
	if msg == nil || !strings.HasPrefix(msg.Text, "/") {
		return nil
	}

	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	reply, err := b.Reply(ctx, chatID, displayName(msg.From), msg.Text)
	if err != nil {
		return err
	}
	if reply == "" {
		return nil
	}

	if err := b.sender.Send(ctx, chatID, reply); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// Reply runs a command for chatID and returns the text to send back.
func (b *Bot) Reply(ctx context.Context, chatID, name, text string) (string, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}

	command, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	switch command {
	case "/start":
		return b.start(ctx, chatID, name)
	case "/stop":
		return b.stop(ctx, chatID)
	case "/keywords":
		return b.keywords(ctx, chatID, args)
	case "/help":
		return botHelpText, nil
	}

	return "Unknown command. Use /help to see the available commands.", nil
}

func (b *Bot) start(ctx context.Context, chatID, name string) (string, error) {
	existing, err := b.recipients.GetByExternalID(ctx, chatID)
	if err != nil {
		return "", err
	}

	if existing == nil {
		if _, err := b.recipients.Add(ctx, chatID, name, false); err != nil {
			return "", err
		}
		slog.Info("Recipient subscribed", "chat_id", chatID)
		return botWelcomeText, nil
	}

	if !existing.IsActive {
		if err := b.recipients.SetActive(ctx, existing.ID, true); err != nil {
			return "", err
		}
		slog.Info("Recipient reactivated", "chat_id", chatID)
		return "Your subscription is active again!\n" +
			"Use /keywords to set interest keywords.", nil
	}

	return "You are already subscribed!\n" +
		"Use /keywords to set interest keywords.\n" +
		"Use /stop to unsubscribe.", nil
}

func (b *Bot) stop(ctx context.Context, chatID string) (string, error) {
	existing, err := b.recipients.GetByExternalID(ctx, chatID)
	if err != nil {
		return "", err
	}

	if existing == nil || !existing.IsActive {
		return "You are not subscribed. Use /start to subscribe.", nil
	}

	if err := b.recipients.SetActive(ctx, existing.ID, false); err != nil {
		return "", err
	}
	slog.Info("Recipient unsubscribed", "chat_id", chatID)

	return "You have been unsubscribed.\nUse /start to subscribe again.", nil
}

func (b *Bot) keywords(ctx context.Context, chatID string, args []string) (string, error) {
	existing, err := b.recipients.GetByExternalID(ctx, chatID)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "Please subscribe with /start first.", nil
	}

	switch {
	case len(args) == 0:
		if existing.KeywordFilter == nil {
			return "Current setting: all news\n" +
				"To set keywords: /keywords dinosaur fossil mammoth", nil
		}
		if len(existing.KeywordFilter) == 0 {
			return "Current keywords: none (receiving nothing)\n\n" +
				"Change: /keywords <word1> <word2> ...\n" +
				"All news: /keywords *", nil
		}
		return fmt.Sprintf("Current keywords: %s\n\n"+
			"Change: /keywords <word1> <word2> ...\n"+
			"All news: /keywords *", strings.Join(existing.KeywordFilter, ", ")), nil

	case len(args) == 1 && args[0] == "*":
		if err := b.recipients.SetKeywordFilter(ctx, existing.ID, nil); err != nil {
			return "", err
		}
		return "You will now receive all news.", nil
	}

	if err := b.recipients.SetKeywordFilter(ctx, existing.ID, args); err != nil {
		return "", err
	}
	slog.Info("Recipient keywords updated", "chat_id", chatID, "keywords", args)

	return fmt.Sprintf("Keywords set: %s\n"+
		"You will only receive news containing these keywords.", strings.Join(args, ", ")), nil
}

func displayName(u *MessageUser) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
