package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage and settings
	DBPath     string `long:"db-path" env:"DB_PATH" default:"paleo-digest.db" description:"SQLite database file"`
	ConfigFile string `long:"config" env:"CONFIG_FILE" default:"config.yaml" description:"Pipeline settings file (YAML)"`

	// HTTP server
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://digest.example.com)"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"21600" description:"Pipeline interval in seconds for serve (0 disables)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"PaleoDigest/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Seoul)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	// Credentials
	AnthropicAPIKey    string `long:"anthropic-api-key" env:"ANTHROPIC_API_KEY" description:"Anthropic API key for translation and the relevance judge"`
	TelegramBotToken   string `long:"telegram-bot-token" env:"TELEGRAM_BOT_TOKEN" description:"Telegram bot token"`
	TelegramWebhookKey string `long:"telegram-webhook-secret" env:"TELEGRAM_WEBHOOK_SECRET" description:"Secret token expected on Telegram webhook calls"`
	AdminChatID        string `long:"admin-chat-id" env:"TELEGRAM_CHAT_ID" description:"Telegram chat id of the administrator"`
	EmailPassword      string `long:"email-password" env:"EMAIL_PASSWORD" description:"SMTP password for the email channel"`
	SlackWebhookURL    string `long:"slack-webhook-url" env:"SLACK_WEBHOOK_URL" description:"Slack incoming webhook URL"`
	DiscordWebhookURL  string `long:"discord-webhook-url" env:"DISCORD_WEBHOOK_URL" description:"Discord webhook URL"`
	NtfyTopicURL       string `long:"ntfy-topic-url" env:"NTFY_TOPIC_URL" description:"ntfy topic URL"`
}

var globalCfg *Cfg

// Loader owns the go-flags parser so that commands can be registered on it
// before parsing.
type Loader struct {
	raw    rawCfg
	Parser *flags.Parser
}

func NewLoader() *Loader {
	l := &Loader{}
	l.Parser = flags.NewParser(&l.raw, flags.Default)
	l.Parser.Name = "paleo-digest"
	return l
}

// Finalize converts the parsed options into the global Cfg.
func (l *Loader) Finalize() (*Cfg, error) {
	raw := l.raw

	if raw.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if raw.SchedulerInterval < 0 {
		return nil, fmt.Errorf("scheduler interval must be non-negative")
	}

	cfg := &Cfg{
		DBPath:             raw.DBPath,
		ConfigFile:         raw.ConfigFile,
		Port:               raw.Port,
		BaseUrl:            raw.BaseUrl,
		APIAccessKey:       raw.APIAccessKey,
		SchedulerInterval:  raw.SchedulerInterval,
		UserAgent:          raw.UserAgent,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
		AnthropicAPIKey:    raw.AnthropicAPIKey,
		TelegramBotToken:   raw.TelegramBotToken,
		TelegramWebhookKey: raw.TelegramWebhookKey,
		AdminChatID:        raw.AdminChatID,
		EmailPassword:      raw.EmailPassword,
		SlackWebhookURL:    raw.SlackWebhookURL,
		DiscordWebhookURL:  raw.DiscordWebhookURL,
		NtfyTopicURL:       raw.NtfyTopicURL,
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

// Load parses args without commands. It returns nil, nil when help was shown.
func Load(args []string) (*Cfg, error) {
	l := NewLoader()

	if _, err := l.Parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return l.Finalize()
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration.
func Set(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return err
		}
		time.Local = loc
	}
	return nil
}
