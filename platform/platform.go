package platform

import (
	"context"
	"fmt"

	"github.com/onnwee/chatrec/config"
	"github.com/onnwee/chatrec/message"
)

// Source is a single-use message source for one channel on one platform.
type Source interface {
	// Platform returns the platform name used in logs, metrics and
	// generated file names.
	Platform() string
	// Fetch captures messages and returns them in chronological order.
	// Live sources return what they collected so far when ctx is
	// cancelled; history sources treat cancellation as an error.
	Fetch(ctx context.Context) ([]message.Message, error)
}

// New builds the source for the configured platform. The config must have
// passed Validate.
func New(cfg *config.Config) (Source, error) {
	switch cfg.Platform {
	case config.PlatformDemo:
		return NewDemoSource(cfg.Count), nil
	case config.PlatformDiscord:
		return NewDiscordSource(cfg.Token, cfg.Channel, cfg.Limit), nil
	case config.PlatformSlack:
		return NewSlackSource(cfg.Token, cfg.Channel, cfg.Limit), nil
	case config.PlatformIRC:
		return NewIRCSource(cfg.Server, cfg.Port, cfg.Nick, cfg.Channel, cfg.Duration), nil
	case config.PlatformTwitch:
		return NewTwitchSource(cfg.BotUsername, cfg.Token, cfg.Channel, cfg.Duration), nil
	default:
		return nil, fmt.Errorf("no source for platform %q", cfg.Platform)
	}
}
