// Package config loads runtime settings from environment variables, with an
// optional .env overlay for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// DiscordToken authenticates the bot session. Required for the service.
	DiscordToken string
	// GuildID restricts commands to one server; empty allows any guild.
	GuildID string
	// AdminRoleID gates the credit-system toggle command.
	AdminRoleID string

	// DataDir holds tokens.json and settings.json.
	DataDir string
	// StagingDir holds ephemeral job files.
	StagingDir string
	// BinDir and ProjectDir feed tool discovery.
	BinDir     string
	ProjectDir string

	CommandPrefix string
	HealthAddr    string
	ToolTimeout   time.Duration
	URLRetention  time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DiscordToken:  os.Getenv("DISCORD_TOKEN"),
		GuildID:       os.Getenv("DEOBF_GUILD_ID"),
		AdminRoleID:   os.Getenv("DEOBF_ADMIN_ROLE_ID"),
		DataDir:       envOr("DEOBF_DATA_DIR", "data"),
		StagingDir:    envOr("DEOBF_STAGING_DIR", os.TempDir()),
		BinDir:        envOr("DEOBF_BIN_DIR", "bin"),
		ProjectDir:    envOr("DEOBF_PROJECT_DIR", "."),
		CommandPrefix: envOr("DEOBF_COMMAND_PREFIX", "."),
		HealthAddr:    envOr("DEOBF_HEALTH_ADDR", ":8080"),
		ToolTimeout:   90 * time.Second,
		URLRetention:  10 * time.Minute,
	}

	if raw := os.Getenv("DEOBF_TOOL_TIMEOUT_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("DEOBF_TOOL_TIMEOUT_SECONDS must be a positive integer, got %q", raw)
		}
		cfg.ToolTimeout = time.Duration(seconds) * time.Second
	}
	if raw := os.Getenv("DEOBF_URL_RETENTION_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			return nil, fmt.Errorf("DEOBF_URL_RETENTION_SECONDS must be a non-negative integer, got %q", raw)
		}
		cfg.URLRetention = time.Duration(seconds) * time.Second
	}
	return cfg, nil
}

// RequireToken is the service-side check; deobfctl works without a token.
func (c *Config) RequireToken() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN environment variable is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
