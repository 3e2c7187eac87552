package notify

import (
	"log/slog"

	"github.com/lysyi3m/paleo-digest/app/cfg"
)

// NewSenders builds the senders for the enabled channels, in dispatch order.
// Channels without credentials are skipped with a warning.
func NewSenders(settings cfg.ChannelSettings, c *cfg.Cfg) []Sender {
	var senders []Sender

	for _, name := range settings.EnabledChannels() {
		switch name {
		case cfg.ChannelTelegram:
			if c.TelegramBotToken == "" {
				slog.Warn("Channel enabled without credentials, skipping", "channel", name, "missing", "TELEGRAM_BOT_TOKEN")
				continue
			}
			senders = append(senders, NewTelegram(c.TelegramBotToken))
		case cfg.ChannelEmail:
			email := settings.Email
			senders = append(senders, NewEmail(email.SMTPHost, email.SMTPPort, email.Sender, c.EmailPassword, email.Recipients))
		case cfg.ChannelSlack:
			if c.SlackWebhookURL == "" {
				slog.Warn("Channel enabled without credentials, skipping", "channel", name, "missing", "SLACK_WEBHOOK_URL")
				continue
			}
			senders = append(senders, NewSlack(c.SlackWebhookURL))
		case cfg.ChannelDiscord:
			if c.DiscordWebhookURL == "" {
				slog.Warn("Channel enabled without credentials, skipping", "channel", name, "missing", "DISCORD_WEBHOOK_URL")
				continue
			}
			senders = append(senders, NewDiscord(c.DiscordWebhookURL))
		case cfg.ChannelNtfy:
			if c.NtfyTopicURL == "" {
				slog.Warn("Channel enabled without credentials, skipping", "channel", name, "missing", "NTFY_TOPIC_URL")
				continue
			}
			senders = append(senders, NewNtfy(c.NtfyTopicURL))
		}
	}

	return senders
}
