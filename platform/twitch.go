package platform

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/chatrec/message"
	"github.com/onnwee/chatrec/telemetry"
)

// TwitchSource records live messages from one Twitch channel. Without
// credentials it connects anonymously, which is enough for read-only
// capture.
type TwitchSource struct {
	username string
	token    string
	channel  string // without the # prefix, the way JOIN wants it
	duration time.Duration

	mu   sync.Mutex
	msgs []message.Message
}

func NewTwitchSource(username, token, channel string, duration time.Duration) *TwitchSource {
	return &TwitchSource{
		username: username,
		token:    token,
		channel:  strings.TrimPrefix(channel, "#"),
		duration: duration,
	}
}

func (s *TwitchSource) Platform() string { return "twitch" }

// Fetch connects to Twitch chat and collects messages until the duration
// timer or the external context ends the session. A connection that
// drops after capture started yields the partial buffer with nil error.
func (s *TwitchSource) Fetch(ctx context.Context) ([]message.Message, error) {
	var client *twitch.Client
	if s.username != "" && s.token != "" {
		client = twitch.NewClient(s.username, oauthToken(s.token))
	} else {
		client = twitch.NewAnonymousClient()
		slog.Info("no twitch credentials, connecting anonymously", slog.String("channel", s.channel))
	}

	capCtx, cancel := context.WithTimeout(ctx, s.duration)
	defer cancel()

	var connected atomic.Bool
	client.OnConnect(func() {
		connected.Store(true)
		slog.Info("connected to twitch chat", slog.String("channel", s.channel), slog.Duration("duration", s.duration))
	})
	client.OnPrivateMessage(s.append)
	client.Join(s.channel)

	// Handle the capture window and external cancellation by closing the
	// client, which makes Connect return.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-capCtx.Done():
			slog.Debug("capture window over, disconnecting", slog.String("platform", "twitch"))
			_ = client.Disconnect()
		case <-done:
		}
	}()

	telemetry.SetCaptureActive(true)
	defer telemetry.SetCaptureActive(false)

	err := client.Connect()
	if err != nil && !connected.Load() && capCtx.Err() == nil {
		if errors.Is(err, twitch.ErrLoginAuthenticationFailed) {
			return nil, &AccessError{Platform: "twitch", Channel: "#" + s.channel, Err: err}
		}
		return nil, &FetchError{Platform: "twitch", Attempts: 1, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]message.Message(nil), s.msgs...), nil
}

func (s *TwitchSource) append(pm twitch.PrivateMessage) {
	m := message.Message{
		Timestamp: pm.Time.UTC(),
		Channel:   "#" + pm.Channel,
		User:      pm.User.Name,
		Content:   pm.Message,
		ID:        pm.ID,
	}
	meta := map[string]any{}
	if pm.User.ID != "" {
		meta["user_id"] = pm.User.ID
	}
	if pm.Bits > 0 {
		meta["bits"] = pm.Bits
	}
	if len(meta) > 0 {
		m.Metadata = meta
	}
	s.mu.Lock()
	if m.ID == "" {
		m.ID = strconv.Itoa(len(s.msgs) + 1)
	}
	s.msgs = append(s.msgs, m)
	s.mu.Unlock()
	telemetry.RecordMessageCaptured("twitch")
	slog.Debug("captured message", slog.String("platform", "twitch"), slog.String("user", m.User))
}

// gempir wants the oauth: prefix; accept tokens with or without it.
func oauthToken(token string) string {
	if strings.HasPrefix(token, "oauth:") {
		return token
	}
	return "oauth:" + token
}
