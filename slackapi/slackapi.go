// Package slackapi is a thin client for the Slack Web API methods the
// recorder needs: conversations.info, conversations.history and users.info.
package slackapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the production Slack Web API endpoint.
const DefaultBaseURL = "https://slack.com/api"

// MaxPageSize is Slack's recommended upper bound for conversations.history.
const MaxPageSize = 200

// Client talks to the Slack Web API. Construct with New; BaseURL and
// HTTPClient are exported so tests can point it at a fake.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a client that authenticates every request with the given
// bearer token (xoxb-/xoxp-).
func New(token string) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{
		BaseURL:    DefaultBaseURL,
		HTTPClient: oauth2.NewClient(context.Background(), src),
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Channel is the subset of a Slack conversation object the recorder uses.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HistoryMessage is one entry from conversations.history. Subtyped entries
// (joins, topic changes, bot events) are not ordinary chat.
type HistoryMessage struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype"`
	User     string `json:"user"`
	Text     string `json:"text"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
}

// User is the users.info subset used for display-name resolution.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name"`
	Profile  struct {
		DisplayName string `json:"display_name"`
	} `json:"profile"`
}

// APIError is a Slack API failure: a non-2xx status, or HTTP 200 with an
// ok:false envelope carrying a reason string such as channel_not_found.
type APIError struct {
	StatusCode int
	Reason     string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("slack: %s (status %d)", e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("slack: unexpected status %d", e.StatusCode)
}

type channelInfoResponse struct {
	OK      bool    `json:"ok"`
	Error   string  `json:"error"`
	Channel Channel `json:"channel"`
}

type historyResponse struct {
	OK               bool             `json:"ok"`
	Error            string           `json:"error"`
	Messages         []HistoryMessage `json:"messages"`
	HasMore          bool             `json:"has_more"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type userInfoResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	User  User   `json:"user"`
}

// GetChannelInfo resolves a conversation by id. This doubles as the access
// check: unknown or forbidden channels come back as ok:false reasons.
func (c *Client) GetChannelInfo(ctx context.Context, channelID string) (*Channel, error) {
	q := url.Values{}
	q.Set("channel", channelID)
	var out channelInfoResponse
	if err := c.call(ctx, "conversations.info", q, &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, &APIError{StatusCode: http.StatusOK, Reason: out.Error}
	}
	return &out.Channel, nil
}

// GetHistory returns one page of conversation history, newest first, plus
// the cursor for the next page ("" when the history is exhausted).
func (c *Client) GetHistory(ctx context.Context, channelID string, limit int, cursor string) ([]HistoryMessage, string, error) {
	q := url.Values{}
	q.Set("channel", channelID)
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var out historyResponse
	if err := c.call(ctx, "conversations.history", q, &out); err != nil {
		return nil, "", err
	}
	if !out.OK {
		return nil, "", &APIError{StatusCode: http.StatusOK, Reason: out.Error}
	}
	next := ""
	if out.HasMore {
		next = out.ResponseMetadata.NextCursor
	}
	return out.Messages, next, nil
}

// GetUser fetches one user for display-name resolution.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	q := url.Values{}
	q.Set("user", userID)
	var out userInfoResponse
	if err := c.call(ctx, "users.info", q, &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, &APIError{StatusCode: http.StatusOK, Reason: out.Error}
	}
	return &out.User, nil
}

func (c *Client) call(ctx context.Context, method string, q url.Values, out any) error {
	u := c.BaseURL + "/" + method
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ParseTS converts a Slack ts value like "1709294400.000100" (fractional
// epoch seconds) into a UTC time.
func ParseTS(ts string) (time.Time, error) {
	f, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse ts %q: %w", ts, err)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}
