package cfg

import "time"

type Cfg struct {
	// Storage and settings
	DBPath     string
	ConfigFile string

	// HTTP server
	Port              string
	BaseUrl           string
	APIAccessKey      string
	SchedulerInterval int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string

	// Credentials
	AnthropicAPIKey    string
	TelegramBotToken   string
	TelegramWebhookKey string
	AdminChatID        string
	EmailPassword      string
	SlackWebhookURL    string
	DiscordWebhookURL  string
	NtfyTopicURL       string
}

func (c *Cfg) GetSchedulerInterval() time.Duration {
	if c.SchedulerInterval <= 0 {
		return 0
	}
	return time.Duration(c.SchedulerInterval) * time.Second
}
