package platform

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/chatrec/message"
	"github.com/onnwee/chatrec/slackapi"
	"github.com/onnwee/chatrec/telemetry"
)

// SlackSource fetches channel history through the Slack Web API.
type SlackSource struct {
	client  *slackapi.Client
	channel string
	limit   int
	users   map[string]string // user id -> display name, cached per session
}

func NewSlackSource(token, channelID string, limit int) *SlackSource {
	return &SlackSource{
		client:  slackapi.New(token),
		channel: channelID,
		limit:   limit,
		users:   make(map[string]string),
	}
}

func (s *SlackSource) Platform() string { return "slack" }

// Fetch resolves the channel via conversations.info as an access check,
// then walks conversations.history by cursor until the limit is reached
// or the history is exhausted. The result is chronological and clamped
// to the limit.
func (s *SlackSource) Fetch(ctx context.Context) ([]message.Message, error) {
	var ch *slackapi.Channel
	attempts, err := withRetry(ctx, "slack", "resolve channel", func() error {
		c, err := s.client.GetChannelInfo(ctx, s.channel)
		if err != nil {
			return err
		}
		ch = c
		return nil
	})
	if err != nil {
		return nil, s.wrapErr(attempts, err)
	}

	var raw []slackapi.HistoryMessage
	cursor := ""
	for {
		pageSize := s.limit - len(raw)
		if pageSize > slackapi.MaxPageSize {
			pageSize = slackapi.MaxPageSize
		}
		var page []slackapi.HistoryMessage
		var next string
		attempts, err := withRetry(ctx, "slack", "fetch page", func() error {
			p, n, err := s.client.GetHistory(ctx, s.channel, pageSize, cursor)
			if err != nil {
				return err
			}
			page, next = p, n
			return nil
		})
		if err != nil {
			return nil, s.wrapErr(attempts, err)
		}
		for _, hm := range page {
			// Joins, topic changes and other subtyped events are not chat.
			if hm.Subtype != "" || hm.TS == "" {
				continue
			}
			raw = append(raw, hm)
		}
		slog.Debug("fetched history page", slog.String("platform", "slack"), slog.String("channel", ch.Name), slog.Int("page_size", len(page)), slog.Int("total", len(raw)))
		if next == "" || len(raw) >= s.limit {
			break
		}
		cursor = next
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pageDelay):
		}
	}
	if len(raw) > s.limit {
		raw = raw[:s.limit]
	}

	// Pages arrive newest first; walk backward for chronological order.
	msgs := make([]message.Message, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		m, err := s.toMessage(ctx, ch.Name, raw[i])
		if err != nil {
			slog.Warn("skipping malformed message", slog.String("platform", "slack"), slog.String("ts", raw[i].TS), slog.Any("err", err))
			continue
		}
		msgs = append(msgs, m)
	}
	telemetry.AddMessagesCaptured("slack", len(msgs))
	return msgs, nil
}

func (s *SlackSource) wrapErr(attempts int, err error) error {
	if Classify(err) == ClassAccess {
		return &AccessError{Platform: "slack", Channel: s.channel, Err: err}
	}
	return &FetchError{Platform: "slack", Attempts: attempts, Err: err}
}

func (s *SlackSource) toMessage(ctx context.Context, channelName string, hm slackapi.HistoryMessage) (message.Message, error) {
	ts, err := slackapi.ParseTS(hm.TS)
	if err != nil {
		return message.Message{}, err
	}
	msg := message.Message{
		Timestamp: ts,
		Channel:   channelName,
		User:      s.userName(ctx, hm.User),
		Content:   hm.Text,
		ID:        hm.TS,
	}
	meta := map[string]any{}
	if hm.User != "" {
		meta["user_id"] = hm.User
	}
	if hm.ThreadTS != "" && hm.ThreadTS != hm.TS {
		meta["thread_ts"] = hm.ThreadTS
	}
	if len(meta) > 0 {
		msg.Metadata = meta
	}
	return msg, nil
}

// userName resolves a user id to a display name, caching the answer for
// the session. Lookup failures fall back to the raw id so one deleted
// account does not abort a capture.
func (s *SlackSource) userName(ctx context.Context, id string) string {
	if id == "" {
		return "unknown"
	}
	if name, ok := s.users[id]; ok {
		return name
	}
	name := id
	if u, err := s.client.GetUser(ctx, id); err != nil {
		slog.Warn("user lookup failed, keeping raw id", slog.String("platform", "slack"), slog.String("user_id", id), slog.Any("err", err))
	} else {
		switch {
		case u.Profile.DisplayName != "":
			name = u.Profile.DisplayName
		case u.RealName != "":
			name = u.RealName
		case u.Name != "":
			name = u.Name
		}
	}
	s.users[id] = name
	return name
}
