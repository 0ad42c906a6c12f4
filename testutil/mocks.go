package testutil

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// MockDiscordServer creates a test server that mocks Discord REST API responses
type MockDiscordServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu       sync.Mutex
	requests []string
}

// NewMockDiscordServer creates a new mock Discord API server. Unhandled
// paths get the API's unknown-channel error shape.
func NewMockDiscordServer(t *testing.T) *MockDiscordServer {
	t.Helper()
	m := &MockDiscordServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Unknown Channel", "code": 10003}`)) //nolint:errcheck // test mock response
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *MockDiscordServer) record(r *http.Request) {
	key := r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.RawQuery
	}
	m.mu.Lock()
	m.requests = append(m.requests, key)
	m.mu.Unlock()
}

// Requests returns every path (with query) the server has seen so far.
func (m *MockDiscordServer) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// HandleChannel adds a handler for the channel lookup endpoint
func (m *MockDiscordServer) HandleChannel(id, name string) {
	m.Handlers["/channels/"+id] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id, "name": name}) //nolint:errcheck // test mock response
	}
}

// HandleMessages adds a handler for the channel messages endpoint. The
// history slice must be newest-first, the way the real API returns it;
// limit and before query parameters are honored so pagination behaves
// like the live service.
func (m *MockDiscordServer) HandleMessages(channelID string, history []map[string]any) {
	m.Handlers["/channels/"+channelID+"/messages"] = func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}
		start := 0
		if before := r.URL.Query().Get("before"); before != "" {
			for i, msg := range history {
				if msg["id"] == before {
					start = i + 1
					break
				}
			}
		}
		end := start + limit
		if end > len(history) {
			end = len(history)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(history[start:end]) //nolint:errcheck // test mock response
	}
}

// DiscordMessage builds one history entry for HandleMessages.
func DiscordMessage(id, user, content, ts string) map[string]any {
	return map[string]any{
		"id":        id,
		"content":   content,
		"timestamp": ts,
		"author":    map[string]string{"id": "u-" + id, "username": user},
	}
}

// MockSlackServer creates a test server that mocks Slack Web API responses
type MockSlackServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu       sync.Mutex
	requests []string
}

// HistoryPage is one conversations.history response keyed by the cursor
// that requests it ("" for the first page).
type HistoryPage struct {
	Messages   []map[string]any
	NextCursor string
}

// NewMockSlackServer creates a new mock Slack API server. Unhandled
// methods answer ok:false the way the real API does.
func NewMockSlackServer(t *testing.T) *MockSlackServer {
	t.Helper()
	m := &MockSlackServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": false, "error": "unknown_method"}`)) //nolint:errcheck // test mock response
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *MockSlackServer) record(r *http.Request) {
	key := r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.RawQuery
	}
	m.mu.Lock()
	m.requests = append(m.requests, key)
	m.mu.Unlock()
}

// Requests returns every path (with query) the server has seen so far.
func (m *MockSlackServer) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// HandleChannelInfo adds a handler for conversations.info
func (m *MockSlackServer) HandleChannelInfo(id, name string) {
	m.Handlers["/conversations.info"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]any{
			"ok":      true,
			"channel": map[string]string{"id": id, "name": name},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// HandleChannelError makes conversations.info fail with the given reason
func (m *MockSlackServer) HandleChannelError(reason string) {
	m.Handlers["/conversations.info"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": reason}) //nolint:errcheck // test mock response
	}
}

// HandleHistory adds a handler for conversations.history serving the
// given pages by cursor.
func (m *MockSlackServer) HandleHistory(pages map[string]HistoryPage) {
	m.Handlers["/conversations.history"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		page, ok := pages[r.URL.Query().Get("cursor")]
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "invalid_cursor"}) //nolint:errcheck // test mock response
			return
		}
		response := map[string]any{
			"ok":       true,
			"messages": page.Messages,
		}
		if page.NextCursor != "" {
			response["has_more"] = true
			response["response_metadata"] = map[string]string{"next_cursor": page.NextCursor}
		}
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// HandleUsers adds a handler for users.info resolving the given id to
// name mapping; unknown ids get user_not_found.
func (m *MockSlackServer) HandleUsers(names map[string]string) {
	m.Handlers["/users.info"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		id := r.URL.Query().Get("user")
		name, ok := names[id]
		if !ok {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "user_not_found"}) //nolint:errcheck // test mock response
			return
		}
		response := map[string]any{
			"ok":   true,
			"user": map[string]any{"id": id, "name": name},
		}
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// SlackMessage builds one conversations.history entry
func SlackMessage(user, text, ts string) map[string]any {
	return map[string]any{
		"type": "message",
		"user": user,
		"text": text,
		"ts":   ts,
	}
}

// MockChatLine is one scripted chat message for MockIRCServer.
type MockChatLine struct {
	User string
	Text string
}

// MockIRCScript drives what a MockIRCServer does after the client joins.
type MockIRCScript struct {
	Messages   []MockChatLine
	Delay      time.Duration // pause before each message
	SendPing   bool          // send a PING before the messages
	Drop       bool          // close the connection after the script
	RejectJoin string        // numeric reply to JOIN, e.g. "473"
}

// MockIRCServer is a minimal scripted IRC server for one client
// connection. It completes registration, answers JOIN and then plays
// its script.
type MockIRCServer struct {
	listener net.Listener
	script   MockIRCScript

	mu       sync.Mutex
	received []string
}

// NewMockIRCServer starts a mock IRC server on a random local port.
func NewMockIRCServer(t *testing.T, script MockIRCScript) *MockIRCServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	m := &MockIRCServer{listener: ln, script: script}
	go m.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return m
}

// Addr returns the host and port the server listens on.
func (m *MockIRCServer) Addr() (string, int) {
	_, portStr, _ := net.SplitHostPort(m.listener.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return "127.0.0.1", port
}

// Received returns every line the client has sent so far.
func (m *MockIRCServer) Received() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.received...)
}

func (m *MockIRCServer) serve() {
	conn, err := m.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	var nick string
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Text()
		m.mu.Lock()
		m.received = append(m.received, line)
		m.mu.Unlock()

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "NICK":
			if len(fields) > 1 {
				nick = fields[1]
			}
		case "USER":
			fmt.Fprintf(conn, ":mock.server 001 %s :Welcome to the mock network\r\n", nick)
		case "JOIN":
			if len(fields) < 2 {
				continue
			}
			channel := fields[1]
			if m.script.RejectJoin != "" {
				fmt.Fprintf(conn, ":mock.server %s %s %s :Cannot join channel\r\n", m.script.RejectJoin, nick, channel)
				continue
			}
			fmt.Fprintf(conn, ":%s!rec@mock JOIN :%s\r\n", nick, channel)
			if done := m.play(conn, channel); done {
				return
			}
		}
	}
}

func (m *MockIRCServer) play(conn net.Conn, channel string) bool {
	if m.script.SendPing {
		fmt.Fprintf(conn, "PING :mock.server\r\n")
	}
	for _, msg := range m.script.Messages {
		if m.script.Delay > 0 {
			time.Sleep(m.script.Delay)
		}
		fmt.Fprintf(conn, ":%s!%s@mock PRIVMSG %s :%s\r\n", msg.User, strings.ToLower(msg.User), channel, msg.Text)
	}
	return m.script.Drop
}
