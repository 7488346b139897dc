package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Match.Threshold != 0.38 {
		t.Fatalf("unexpected default threshold: %f", cfg.Match.Threshold)
	}
	if cfg.State.Capacity != 200 {
		t.Fatalf("unexpected default capacity: %d", cfg.State.Capacity)
	}
	if cfg.News.CandidateLimit != 10 {
		t.Fatalf("unexpected default candidate limit: %d", cfg.News.CandidateLimit)
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
discord:
  botToken: from-file
  channelId: chan-file
match:
  threshold: 0.5
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(discordTokenEnv, "from-env")

	cfg := Load()

	// Env wins over file, file wins over defaults.
	if cfg.Discord.BotToken != "from-env" {
		t.Fatalf("env override lost: %s", cfg.Discord.BotToken)
	}
	if cfg.Discord.ChannelID != "chan-file" {
		t.Fatalf("file value lost: %s", cfg.Discord.ChannelID)
	}
	if cfg.Match.Threshold != 0.5 {
		t.Fatalf("file threshold lost: %f", cfg.Match.Threshold)
	}
	if cfg.Pipeline.MaxOfficialPerRun != 5 {
		t.Fatalf("default lost after merge: %d", cfg.Pipeline.MaxOfficialPerRun)
	}
}

func TestValidateRequiresCredentials(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation failure without credentials")
	}

	cfg.Discord.BotToken = "t"
	cfg.Discord.ChannelID = "c"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}
