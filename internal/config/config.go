// Package config reads the bot configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	DEFAULT_CONFIG_PATH        = "config.json"
	DEFAULT_PLAYERS_CACHE_PATH = "players.cache.json"
	DEFAULT_TIMEZONE           = "America/New_York"
	DEFAULT_SLEEPER_BASE_URL   = "https://api.sleeper.app/v1"
	DEFAULT_HTTP_TIMEOUT       = 10 * time.Second
)

var ErrMissingToken = errors.New("DISCORD_TOKEN is missing, set it in .env")

type Config struct {
	DiscordToken     string
	LeagueId         string
	GuildId          string
	CommissionerIds  map[string]struct{}
	ConfigPath       string
	PlayersCachePath string
	Location         *time.Location
	SleeperBaseUrl   string
	HTTPTimeout      time.Duration
	MetricsAddr      string
	LogLevel         string
}

// Read the configuration from environment variables. Values that cannot be
// parsed are an error, missing ones take their default
func Load() (*Config, error) {
	timeout, err := envDuration("HTTP_TIMEOUT", DEFAULT_HTTP_TIMEOUT)
	if err != nil {
		return nil, err
	}
	zone := envOr("BOT_TIMEZONE", DEFAULT_TIMEZONE)
	location, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("invalid BOT_TIMEZONE %q: %w", zone, err)
	}

	return &Config{
		DiscordToken:     strings.TrimSpace(os.Getenv("DISCORD_TOKEN")),
		LeagueId:         strings.TrimSpace(os.Getenv("SLEEPER_LEAGUE_ID")),
		GuildId:          guildId(os.Getenv("DISCORD_GUILD_ID")),
		CommissionerIds:  ParseIds(os.Getenv("COMMISSIONER_IDS")),
		ConfigPath:       envOr("CONFIG_PATH", DEFAULT_CONFIG_PATH),
		PlayersCachePath: envOr("PLAYERS_CACHE_PATH", DEFAULT_PLAYERS_CACHE_PATH),
		Location:         location,
		SleeperBaseUrl:   strings.TrimRight(envOr("SLEEPER_BASE_URL", DEFAULT_SLEEPER_BASE_URL), "/"),
		HTTPTimeout:      timeout,
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
	}, nil
}

// Checks needed before connecting to discord
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return ErrMissingToken
	}
	return nil
}

// First characters of the token, enough to recognise it without leaking it
func (c *Config) TokenSnippet() string {
	if len(c.DiscordToken) <= 10 {
		return c.DiscordToken
	}
	return c.DiscordToken[:10]
}

// Comma separated list of numeric ids. Anything that is not a number is ignored
func ParseIds(value string) map[string]struct{} {
	ids := map[string]struct{}{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, err := strconv.ParseUint(part, 10, 64); err != nil {
			continue
		}
		ids[part] = struct{}{}
	}
	return ids
}

// "0" and empty both mean no home guild
func guildId(value string) string {
	value = strings.TrimSpace(value)
	if value == "0" {
		return ""
	}
	return value
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Accepts go durations ("15s") or a plain number of seconds
func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return d, nil
}
