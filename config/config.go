// Package config turns command-line flags and environment variables into a
// validated Config for a single recording run.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// Platform names accepted by --platform.
const (
	PlatformDemo    = "demo"
	PlatformDiscord = "discord"
	PlatformSlack   = "slack"
	PlatformIRC     = "irc"
	PlatformTwitch  = "twitch"
)

// Format names accepted by --format.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatTxt      = "txt"
)

// Config holds everything one recording session needs. Parse fills it from
// flags with environment fallbacks for secrets and tuning; Validate enforces
// the per-platform parameter shape before any source is constructed.
type Config struct {
	Platform string
	Format   string
	Output   string // empty means "generate a name"
	Channel  string

	Limit    int           // history platforms: max messages
	Duration time.Duration // live platforms: capture window
	Count    int           // demo: exact message count

	Token       string // discord/slack required, twitch optional
	BotUsername string // twitch authenticated mode
	Nick        string // irc nick
	Server      string // irc server host
	Port        int    // irc server port

	set map[string]bool // flags explicitly given on the command line
}

// ConfigError reports an invalid or inconsistent parameter combination. It
// always surfaces before any network or file activity.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "config: " + e.Reason }

func errf(msg string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(msg, args...)}
}

// Parse builds a Config from command-line arguments (without the program
// name). Token-style settings fall back to DISCORD_TOKEN, SLACK_TOKEN,
// TWITCH_OAUTH_TOKEN, TWITCH_BOT_USERNAME and IRC_NICK so secrets can stay
// out of shell history. Errors are *ConfigError except flag.ErrHelp, which
// is passed through for the caller to exit cleanly.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("chatrec", flag.ContinueOnError)

	cfg := &Config{}
	fs.StringVar(&cfg.Platform, "platform", "", "chat platform: demo, discord, slack, irc or twitch")
	fs.StringVar(&cfg.Format, "format", FormatJSON, "output format: json, csv, markdown or txt")
	fs.StringVar(&cfg.Output, "output", "", "output file path (default: generated name in the working directory)")
	fs.StringVar(&cfg.Channel, "channel", "", "channel to record (id, name or #name depending on platform)")
	fs.IntVar(&cfg.Limit, "limit", 100, "history platforms: maximum number of messages to fetch")
	durationMin := fs.Int("duration", 30, "live platforms: capture window in minutes")
	fs.IntVar(&cfg.Count, "count", 10, "demo: number of synthetic messages")
	fs.StringVar(&cfg.Token, "token", "", "API token (falls back to the platform's token env var)")
	fs.StringVar(&cfg.Server, "server", "", "irc server host")
	fs.IntVar(&cfg.Port, "port", 6667, "irc server port")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, err
		}
		return nil, &ConfigError{Reason: err.Error()}
	}

	cfg.Duration = time.Duration(*durationMin) * time.Minute
	cfg.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { cfg.set[f.Name] = true })

	if cfg.Token == "" {
		switch cfg.Platform {
		case PlatformDiscord:
			cfg.Token = os.Getenv("DISCORD_TOKEN")
		case PlatformSlack:
			cfg.Token = os.Getenv("SLACK_TOKEN")
		case PlatformTwitch:
			cfg.Token = os.Getenv("TWITCH_OAUTH_TOKEN")
		}
	}
	cfg.BotUsername = os.Getenv("TWITCH_BOT_USERNAME")
	cfg.Nick = getenv("IRC_NICK", "recorder_bot")

	return cfg, nil
}

// Validate checks the parameter shape for the selected platform and returns
// a *ConfigError for the first problem found. Each platform accepts exactly
// one bounding parameter: --limit for history fetches, --duration for live
// captures, --count for demo.
func (c *Config) Validate() error {
	switch c.Platform {
	case "":
		return errf("--platform is required (demo, discord, slack, irc or twitch)")
	case PlatformDemo, PlatformDiscord, PlatformSlack, PlatformIRC, PlatformTwitch:
	default:
		return errf("unknown platform %q", c.Platform)
	}

	switch c.Format {
	case FormatJSON, FormatCSV, FormatMarkdown, FormatTxt:
	default:
		return errf("unknown format %q", c.Format)
	}

	if c.Platform != PlatformDemo && c.Channel == "" {
		return errf("--channel is required for platform %q", c.Platform)
	}

	if c.Platform != PlatformIRC && (c.set["server"] || c.set["port"]) {
		return errf("--server and --port only apply to irc")
	}
	if (c.Platform == PlatformDemo || c.Platform == PlatformIRC) && c.set["token"] {
		return errf("--token does not apply to %s", c.Platform)
	}

	switch c.Platform {
	case PlatformDiscord, PlatformSlack:
		if c.set["duration"] {
			return errf("--duration does not apply to %s; use --limit", c.Platform)
		}
		if c.set["count"] {
			return errf("--count only applies to the demo platform")
		}
		if c.Limit <= 0 {
			return errf("--limit must be positive, got %d", c.Limit)
		}
		if c.Token == "" {
			return errf("%s requires --token or the %s environment variable", c.Platform, tokenEnv(c.Platform))
		}
	case PlatformIRC, PlatformTwitch:
		if c.set["limit"] {
			return errf("--limit does not apply to %s; use --duration", c.Platform)
		}
		if c.set["count"] {
			return errf("--count only applies to the demo platform")
		}
		if c.Duration <= 0 {
			return errf("--duration must be positive")
		}
		if c.Platform == PlatformIRC {
			if c.Server == "" {
				return errf("--server is required for irc")
			}
			if c.Port <= 0 || c.Port > 65535 {
				return errf("--port must be between 1 and 65535, got %d", c.Port)
			}
		}
	case PlatformDemo:
		if c.set["limit"] {
			return errf("--limit does not apply to demo; use --count")
		}
		if c.set["duration"] {
			return errf("--duration does not apply to demo; use --count")
		}
		if c.Count < 0 {
			return errf("--count must not be negative, got %d", c.Count)
		}
	}

	return nil
}

func tokenEnv(platform string) string {
	switch platform {
	case PlatformDiscord:
		return "DISCORD_TOKEN"
	case PlatformSlack:
		return "SLACK_TOKEN"
	case PlatformTwitch:
		return "TWITCH_OAUTH_TOKEN"
	}
	return ""
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
