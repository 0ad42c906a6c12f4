package platform

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/onnwee/chatrec/discordapi"
	"github.com/onnwee/chatrec/message"
	"github.com/onnwee/chatrec/telemetry"
)

// Spacing between history page requests keeps us clear of rate limits.
var pageDelay = 300 * time.Millisecond

// DiscordSource fetches channel history through the Discord REST API.
type DiscordSource struct {
	client  *discordapi.Client
	channel string
	limit   int
}

func NewDiscordSource(token, channelID string, limit int) *DiscordSource {
	return &DiscordSource{
		client:  discordapi.New(token),
		channel: channelID,
		limit:   limit,
	}
}

func (s *DiscordSource) Platform() string { return "discord" }

// Fetch resolves the channel first as an access check, then pages the
// history newest to oldest until the limit is reached or the archive is
// exhausted. The result is chronological and clamped to the limit.
func (s *DiscordSource) Fetch(ctx context.Context) ([]message.Message, error) {
	var ch *discordapi.Channel
	attempts, err := withRetry(ctx, "discord", "resolve channel", func() error {
		c, err := s.client.GetChannel(ctx, s.channel)
		if err != nil {
			return err
		}
		ch = c
		return nil
	})
	if err != nil {
		return nil, s.wrapErr(attempts, err)
	}

	var raw []discordapi.ChannelMessage
	before := ""
	for {
		pageSize := s.limit - len(raw)
		if pageSize > discordapi.MaxPageSize {
			pageSize = discordapi.MaxPageSize
		}
		var page []discordapi.ChannelMessage
		attempts, err := withRetry(ctx, "discord", "fetch page", func() error {
			p, err := s.client.GetMessages(ctx, s.channel, pageSize, before)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, s.wrapErr(attempts, err)
		}
		if len(page) == 0 {
			break
		}
		raw = append(raw, page...)
		before = page[len(page)-1].ID
		slog.Debug("fetched history page", slog.String("platform", "discord"), slog.String("channel", ch.Name), slog.Int("page_size", len(page)), slog.Int("total", len(raw)))
		if len(raw) >= s.limit || len(page) < pageSize {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pageDelay):
		}
	}
	if len(raw) > s.limit {
		raw = raw[:s.limit]
	}

	// The API returns newest first; walk backward for chronological order.
	msgs := make([]message.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		m, err := toDiscordMessage(ch.Name, raw[i])
		if err != nil {
			slog.Warn("skipping malformed message", slog.String("platform", "discord"), slog.String("id", raw[i].ID), slog.Any("err", err))
			continue
		}
		msgs = append(msgs, m)
	}
	telemetry.AddMessagesCaptured("discord", len(msgs))
	return msgs, nil
}

func (s *DiscordSource) wrapErr(attempts int, err error) error {
	if Classify(err) == ClassAccess {
		return &AccessError{Platform: "discord", Channel: s.channel, Err: err}
	}
	return &FetchError{Platform: "discord", Attempts: attempts, Err: err}
}

func toDiscordMessage(channelName string, m discordapi.ChannelMessage) (message.Message, error) {
	ts, err := time.Parse(time.RFC3339, m.Timestamp)
	if err != nil {
		return message.Message{}, err
	}
	msg := message.Message{
		Timestamp: ts.UTC(),
		Channel:   channelName,
		User:      m.Author.Username,
		Content:   m.Content,
		ID:        m.ID,
	}
	meta := map[string]any{}
	if m.EditedTimestamp != "" {
		meta["edited"] = true
	}
	if len(m.Attachments) > 0 {
		urls := make([]string, 0, len(m.Attachments))
		for _, a := range m.Attachments {
			urls = append(urls, a.URL)
		}
		meta["attachments"] = strings.Join(urls, " ")
	}
	if len(m.Reactions) > 0 {
		emoji := make([]string, 0, len(m.Reactions))
		for _, r := range m.Reactions {
			emoji = append(emoji, r.Emoji.Name)
		}
		meta["reactions"] = strings.Join(emoji, ",")
	}
	if len(meta) > 0 {
		msg.Metadata = meta
	}
	return msg, nil
}
