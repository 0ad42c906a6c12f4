package platform

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/chatrec/message"
	"github.com/onnwee/chatrec/telemetry"
)

const (
	ircDialTimeout      = 15 * time.Second
	ircHandshakeTimeout = 30 * time.Second
)

// IRCSource records live messages from one channel on a plain IRC server.
// The protocol is a line protocol over TCP, so the source speaks it
// directly: register with NICK/USER, JOIN on the server welcome, answer
// PING, and collect PRIVMSG lines for the configured duration.
type IRCSource struct {
	server   string
	port     int
	nick     string
	channel  string
	duration time.Duration
}

func NewIRCSource(server string, port int, nick, channel string, duration time.Duration) *IRCSource {
	return &IRCSource{
		server:   server,
		port:     port,
		nick:     nick,
		channel:  channel,
		duration: duration,
	}
}

func (s *IRCSource) Platform() string { return "irc" }

// joinedChannel is the channel name as sent to the server. IRC channels
// start with #, but the flag value may omit it.
func (s *IRCSource) joinedChannel() string {
	if strings.HasPrefix(s.channel, "#") {
		return s.channel
	}
	return "#" + s.channel
}

// Fetch connects, registers and captures the channel for the configured
// duration. Once the session is established every exit path except a
// join rejection returns the messages collected so far with nil error;
// losing the connection mid-capture is a partial result, not a failure.
func (s *IRCSource) Fetch(ctx context.Context) ([]message.Message, error) {
	addr := net.JoinHostPort(s.server, strconv.Itoa(s.port))
	dialer := net.Dialer{Timeout: ircDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &FetchError{Platform: "irc", Attempts: 1, Err: err}
	}
	defer conn.Close()

	// One goroutine owns reading; everything else happens in the select
	// loop below. The stop channel keeps the reader from leaking when we
	// return before the connection closes.
	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		sc := bufio.NewScanner(conn)
		sc.Buffer(make([]byte, 0, 64*1024), 512*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-stop:
				return
			}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		readErr <- err
	}()

	send := func(format string, args ...any) error {
		_, err := fmt.Fprintf(conn, format+"\r\n", args...)
		return err
	}

	if err := send("NICK %s", s.nick); err != nil {
		return nil, &FetchError{Platform: "irc", Attempts: 1, Err: err}
	}
	if err := send("USER %s 0 * :%s", s.nick, s.nick); err != nil {
		return nil, &FetchError{Platform: "irc", Attempts: 1, Err: err}
	}

	channel := s.joinedChannel()
	welcome := time.NewTimer(ircHandshakeTimeout)
	defer welcome.Stop()
	for joined := false; !joined; {
		select {
		case line := <-lines:
			m := parseIRC(line)
			switch m.command {
			case "PING":
				if err := send("PONG :%s", pongToken(m)); err != nil {
					return nil, &FetchError{Platform: "irc", Attempts: 1, Err: err}
				}
			case "001":
				if err := send("JOIN %s", channel); err != nil {
					return nil, &FetchError{Platform: "irc", Attempts: 1, Err: err}
				}
				joined = true
			case "433":
				return nil, &FetchError{Platform: "irc", Attempts: 1, Err: fmt.Errorf("nickname %q already in use", s.nick)}
			case "ERROR":
				return nil, &FetchError{Platform: "irc", Attempts: 1, Err: fmt.Errorf("server error: %s", m.trailing)}
			}
		case err := <-readErr:
			return nil, &FetchError{Platform: "irc", Attempts: 1, Err: fmt.Errorf("disconnected during registration: %w", err)}
		case <-welcome.C:
			return nil, &FetchError{Platform: "irc", Attempts: 1, Err: fmt.Errorf("timed out waiting for server welcome")}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	slog.Info("joined channel", slog.String("platform", "irc"), slog.String("channel", channel), slog.Duration("duration", s.duration))

	capCtx, cancel := context.WithTimeout(ctx, s.duration)
	defer cancel()
	telemetry.SetCaptureActive(true)
	defer telemetry.SetCaptureActive(false)

	var msgs []message.Message
	for {
		select {
		case line := <-lines:
			m := parseIRC(line)
			switch m.command {
			case "PING":
				if err := send("PONG :%s", pongToken(m)); err != nil {
					return msgs, nil
				}
			case "PRIVMSG":
				if len(m.params) == 0 || !strings.EqualFold(m.params[0], channel) {
					continue
				}
				msgs = append(msgs, message.Message{
					Timestamp: time.Now().UTC(),
					Channel:   channel,
					User:      m.nick,
					Content:   m.trailing,
					ID:        strconv.Itoa(len(msgs) + 1),
				})
				telemetry.RecordMessageCaptured("irc")
				slog.Debug("captured message", slog.String("platform", "irc"), slog.String("user", m.nick), slog.Int("seq", len(msgs)))
			case "403", "405", "471", "473", "474", "475":
				return nil, &AccessError{Platform: "irc", Channel: channel, Err: fmt.Errorf("join rejected (%s): %s", m.command, m.trailing)}
			case "ERROR":
				return msgs, nil
			}
		case err := <-readErr:
			slog.Info("server closed connection, keeping partial capture", slog.String("platform", "irc"), slog.Int("messages", len(msgs)), slog.Any("err", err))
			return msgs, nil
		case <-capCtx.Done():
			return msgs, nil
		}
	}
}

// ircLine is one parsed server line: optional :prefix, a command, middle
// params and the trailing text after " :".
type ircLine struct {
	nick     string
	command  string
	params   []string
	trailing string
}

func parseIRC(line string) ircLine {
	var m ircLine
	rest := line
	if strings.HasPrefix(rest, ":") {
		prefix, r, _ := strings.Cut(rest[1:], " ")
		rest = r
		m.nick = prefix
		if i := strings.IndexAny(prefix, "!@"); i >= 0 {
			m.nick = prefix[:i]
		}
	}
	if body, trailing, ok := strings.Cut(rest, " :"); ok {
		m.trailing = trailing
		rest = body
	}
	m.params = strings.Fields(rest)
	if len(m.params) > 0 {
		m.command = strings.ToUpper(m.params[0])
		m.params = m.params[1:]
	}
	return m
}

func pongToken(m ircLine) string {
	if m.trailing != "" {
		return m.trailing
	}
	if len(m.params) > 0 {
		return m.params[0]
	}
	return ""
}
