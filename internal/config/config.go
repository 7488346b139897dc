package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "NEWS_RELAY_CONFIG"
	databaseDSNEnv  = "DATABASE_DSN"
	discordTokenEnv = "DISCORD_BOT_TOKEN"
	discordChanEnv  = "DISCORD_CHANNEL_ID"
	statePathEnv    = "NEWS_RELAY_STATE"
	ocrEndpointEnv  = "OCR_ENDPOINT"
	ocrAPIKeyEnv    = "OCR_API_KEY"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	News      NewsConfig      `yaml:"news"`
	Community CommunityConfig `yaml:"community"`
	Discord   DiscordConfig   `yaml:"discord"`
	State     StateConfig     `yaml:"state"`
	Database  DatabaseConfig  `yaml:"database"`
	Match     MatchConfig     `yaml:"match"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	OCR       OCRConfig       `yaml:"ocr"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SchedulerConfig defines when the relay should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NewsConfig describes the official announcement site.
type NewsConfig struct {
	ListURL        string `yaml:"listUrl"`
	BaseURL        string `yaml:"baseUrl"`
	CandidateLimit int    `yaml:"candidateLimit"`
}

// CommunityConfig describes the community supplement feed.
type CommunityConfig struct {
	FeedURL   string `yaml:"feedUrl"`
	ItemLimit int    `yaml:"itemLimit"`
}

// DiscordConfig wires the delivery channel.
type DiscordConfig struct {
	BotToken          string  `yaml:"botToken"`
	ChannelID         string  `yaml:"channelId"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	MaxAttempts       int     `yaml:"maxAttempts"`
	BackoffSeconds    int     `yaml:"backoffSeconds"`
}

// StateConfig selects the file-backed state document.
type StateConfig struct {
	Path      string `yaml:"path"`
	Capacity  int    `yaml:"capacity"`
	RelayName string `yaml:"relayName"`
}

// DatabaseConfig describes the optional Postgres state store; when DSN is
// set it takes precedence over the file store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// MatchConfig tunes the matching engine and its diagnostics.
type MatchConfig struct {
	Threshold      float64 `yaml:"threshold"`
	RetryUnmatched bool    `yaml:"retryUnmatched"`
}

// PipelineConfig caps per-run publish volume.
type PipelineConfig struct {
	MaxOfficialPerRun  int  `yaml:"maxOfficialPerRun"`
	MaxCommunityPerRun int  `yaml:"maxCommunityPerRun"`
	DisableBootstrap   bool `yaml:"disableBootstrap"`
}

// OCRConfig enables the optional image-text fallback matcher when an
// endpoint is configured.
type OCRConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Validate checks required credentials before any state is touched.
func (c Config) Validate() error {
	if c.Discord.BotToken == "" {
		return fmt.Errorf("missing discord bot token (set %s)", discordTokenEnv)
	}
	if c.Discord.ChannelID == "" {
		return fmt.Errorf("missing discord channel id (set %s)", discordChanEnv)
	}
	if c.News.ListURL == "" {
		return fmt.Errorf("news list url is not configured")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(discordTokenEnv); v != "" {
		c.Discord.BotToken = v
	}
	if v := os.Getenv(discordChanEnv); v != "" {
		c.Discord.ChannelID = v
	}
	if v := os.Getenv(statePathEnv); v != "" {
		c.State.Path = v
	}
	if v := os.Getenv(ocrEndpointEnv); v != "" {
		c.OCR.Endpoint = v
	}
	if v := os.Getenv(ocrAPIKeyEnv); v != "" {
		c.OCR.APIKey = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.News.ListURL != "" {
		base.News.ListURL = override.News.ListURL
	}
	if override.News.BaseURL != "" {
		base.News.BaseURL = override.News.BaseURL
	}
	if override.News.CandidateLimit > 0 {
		base.News.CandidateLimit = override.News.CandidateLimit
	}

	if override.Community.FeedURL != "" {
		base.Community.FeedURL = override.Community.FeedURL
	}
	if override.Community.ItemLimit > 0 {
		base.Community.ItemLimit = override.Community.ItemLimit
	}

	if override.Discord.BotToken != "" {
		base.Discord.BotToken = override.Discord.BotToken
	}
	if override.Discord.ChannelID != "" {
		base.Discord.ChannelID = override.Discord.ChannelID
	}
	if override.Discord.RequestsPerSecond > 0 {
		base.Discord.RequestsPerSecond = override.Discord.RequestsPerSecond
	}
	if override.Discord.MaxAttempts > 0 {
		base.Discord.MaxAttempts = override.Discord.MaxAttempts
	}
	if override.Discord.BackoffSeconds > 0 {
		base.Discord.BackoffSeconds = override.Discord.BackoffSeconds
	}

	if override.State.Path != "" {
		base.State.Path = override.State.Path
	}
	if override.State.Capacity > 0 {
		base.State.Capacity = override.State.Capacity
	}
	if override.State.RelayName != "" {
		base.State.RelayName = override.State.RelayName
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Match.Threshold > 0 {
		base.Match.Threshold = override.Match.Threshold
	}
	if override.Match.RetryUnmatched {
		base.Match.RetryUnmatched = true
	}

	if override.Pipeline.MaxOfficialPerRun > 0 {
		base.Pipeline.MaxOfficialPerRun = override.Pipeline.MaxOfficialPerRun
	}
	if override.Pipeline.MaxCommunityPerRun > 0 {
		base.Pipeline.MaxCommunityPerRun = override.Pipeline.MaxCommunityPerRun
	}
	if override.Pipeline.DisableBootstrap {
		base.Pipeline.DisableBootstrap = true
	}

	if override.OCR.Endpoint != "" {
		base.OCR.Endpoint = override.OCR.Endpoint
	}
	if override.OCR.APIKey != "" {
		base.OCR.APIKey = override.OCR.APIKey
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info"},
		Scheduler: SchedulerConfig{CronExpression: "*/30 * * * *", Timezone: defaultTimezone, location: tz},
		News: NewsConfig{
			ListURL:        "https://pokemongolive.com/news",
			BaseURL:        "https://pokemongolive.com",
			CandidateLimit: 10,
		},
		Community: CommunityConfig{
			FeedURL:   "",
			ItemLimit: 20,
		},
		Discord: DiscordConfig{
			RequestsPerSecond: 1,
			MaxAttempts:       3,
			BackoffSeconds:    5,
		},
		State: StateConfig{
			Path:      "state.json",
			Capacity:  200,
			RelayName: "pokemongo-news",
		},
		Match: MatchConfig{
			Threshold: 0.38,
		},
		Pipeline: PipelineConfig{
			MaxOfficialPerRun:  5,
			MaxCommunityPerRun: 10,
		},
	}
}
