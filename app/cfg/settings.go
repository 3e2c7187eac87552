package cfg

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ChannelTelegram = "telegram"
	ChannelEmail    = "email"
	ChannelSlack    = "slack"
	ChannelDiscord  = "discord"
	ChannelNtfy     = "ntfy"
)

// DefaultKeywords is the topic keyword list used when the settings file
// does not name one.
var DefaultKeywords = []string{
	"paleontolog", "palaeontolog", "fossil", "dinosaur", "pterosaur",
	"ichthyosaur", "plesiosaur", "mosasaur", "mammoth", "mastodon",
	"trilobite", "ammonite", "extinct", "cretaceous", "jurassic",
	"triassic", "permian", "cambrian", "devonian", "hominin", "neanderthal",
	"amber",
}

// Settings is the pipeline configuration read from the YAML file.
type Settings struct {
	SourcesFile    string             `yaml:"sources_file"`
	DedicatedFeeds []string           `yaml:"dedicated_feeds"`
	Filter         FilterSettings     `yaml:"filter"`
	Crawler        CrawlerSettings    `yaml:"crawler"`
	Summarizer     SummarizerSettings `yaml:"summarizer"`
	Channels       ChannelSettings    `yaml:"channels"`
	LegacyChannels []string           `yaml:"legacy_channels"`
}

type FilterSettings struct {
	Keywords  []string          `yaml:"keywords"`
	LLMFilter LLMFilterSettings `yaml:"llm_filter"`
}

type LLMFilterSettings struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
}

type CrawlerSettings struct {
	Enabled   *bool   `yaml:"enabled"`
	MaxPerRun int     `yaml:"max_per_run"`
	Delay     float64 `yaml:"delay"` // seconds
	Timeout   int     `yaml:"timeout"`
}

type SummarizerSettings struct {
	Model             string `yaml:"model"`
	MaxArticlesPerRun int    `yaml:"max_articles_per_run"`
	Language          string `yaml:"language"`
}

type ChannelSettings struct {
	Telegram TelegramSettings `yaml:"telegram"`
	Email    EmailSettings    `yaml:"email"`
	Slack    ToggleSettings   `yaml:"slack"`
	Discord  ToggleSettings   `yaml:"discord"`
	Ntfy     ToggleSettings   `yaml:"ntfy"`
}

type TelegramSettings struct {
	Enabled *bool `yaml:"enabled"`
}

type EmailSettings struct {
	Enabled    bool     `yaml:"enabled"`
	SMTPHost   string   `yaml:"smtp_host"`
	SMTPPort   int      `yaml:"smtp_port"`
	Sender     string   `yaml:"sender"`
	Recipients []string `yaml:"recipients"`
}

type ToggleSettings struct {
	Enabled bool `yaml:"enabled"`
}

// IsEnabled reports whether the crawler runs. It is on unless disabled.
func (c CrawlerSettings) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

func (c CrawlerSettings) GetDelay() time.Duration {
	return time.Duration(c.Delay * float64(time.Second))
}

func (c CrawlerSettings) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// IsEnabled reports whether Telegram delivery runs. It is on unless disabled.
func (t TelegramSettings) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// EnabledChannels lists enabled channel names in dispatch order.
func (c ChannelSettings) EnabledChannels() []string {
	var names []string
	if c.Telegram.IsEnabled() {
		names = append(names, ChannelTelegram)
	}
	if c.Email.Enabled {
		names = append(names, ChannelEmail)
	}
	if c.Slack.Enabled {
		names = append(names, ChannelSlack)
	}
	if c.Discord.Enabled {
		names = append(names, ChannelDiscord)
	}
	if c.Ntfy.Enabled {
		names = append(names, ChannelNtfy)
	}
	return names
}

func DefaultSettings() *Settings {
	s := &Settings{}
	applySettingsDefaults(s)
	return s
}

// LoadSettings reads the settings file. A missing file yields defaults.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Settings file not found, using defaults", "path", path)
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	return ParseSettings(data)
}

func ParseSettings(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applySettingsDefaults(&s)

	if err := validateSettings(&s); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &s, nil
}

func applySettingsDefaults(s *Settings) {
	if s.SourcesFile == "" {
		s.SourcesFile = "sources.txt"
	}
	if s.Filter.Keywords == nil {
		s.Filter.Keywords = slices.Clone(DefaultKeywords)
	}
	if s.Filter.LLMFilter.Model == "" {
		s.Filter.LLMFilter.Model = "claude-haiku-4-5"
	}
	if s.Crawler.MaxPerRun == 0 {
		s.Crawler.MaxPerRun = 20
	}
	if s.Crawler.Delay == 0 {
		s.Crawler.Delay = 1.5
	}
	if s.Crawler.Timeout == 0 {
		s.Crawler.Timeout = 15
	}
	if s.Summarizer.Model == "" {
		s.Summarizer.Model = "claude-sonnet-4-5"
	}
	if s.Summarizer.MaxArticlesPerRun == 0 {
		s.Summarizer.MaxArticlesPerRun = 20
	}
	if s.Summarizer.Language == "" {
		s.Summarizer.Language = "Korean"
	}
	if s.Channels.Email.SMTPHost == "" {
		s.Channels.Email.SMTPHost = "smtp.gmail.com"
	}
	if s.Channels.Email.SMTPPort == 0 {
		s.Channels.Email.SMTPPort = 587
	}
	if s.LegacyChannels == nil {
		s.LegacyChannels = []string{ChannelTelegram}
	}
}

func validateSettings(s *Settings) error {
	nonNegativeFields := map[string]float64{
		"crawler max_per_run":             float64(s.Crawler.MaxPerRun),
		"crawler delay":                   s.Crawler.Delay,
		"crawler timeout":                 float64(s.Crawler.Timeout),
		"summarizer max_articles_per_run": float64(s.Summarizer.MaxArticlesPerRun),
		"email smtp_port":                 float64(s.Channels.Email.SMTPPort),
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	validChannels := map[string]bool{
		ChannelTelegram: true,
		ChannelEmail:    true,
		ChannelSlack:    true,
		ChannelDiscord:  true,
		ChannelNtfy:     true,
	}
	for i, name := range s.LegacyChannels {
		if !validChannels[name] {
			return fmt.Errorf("invalid legacy channel at index %d: %s", i, name)
		}
	}

	if s.Channels.Email.Enabled {
		if s.Channels.Email.Sender == "" {
			return fmt.Errorf("email sender is required when the email channel is enabled")
		}
		if len(s.Channels.Email.Recipients) == 0 {
			return fmt.Errorf("email recipients are required when the email channel is enabled")
		}
	}

	return nil
}
