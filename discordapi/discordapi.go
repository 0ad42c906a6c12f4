// Package discordapi is a thin client for the parts of the Discord REST API
// the recorder needs: resolving a channel and paging its message history.
package discordapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the production Discord REST endpoint.
const DefaultBaseURL = "https://discord.com/api/v10"

// MaxPageSize is the largest page Discord serves per messages request.
const MaxPageSize = 100

// Client talks to the Discord REST API. Construct with New; BaseURL and
// HTTPClient are exported so tests can point it at a fake.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a client that authenticates every request with the given bot
// token ("Authorization: Bot <token>").
func New(token string) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bot"})
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

// Channel is the subset of the Discord channel object the recorder uses.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Author is the message author subset.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Attachment is a message attachment subset.
type Attachment struct {
	URL string `json:"url"`
}

// Reaction is a message reaction subset.
type Reaction struct {
	Count int `json:"count"`
	Emoji struct {
		Name string `json:"name"`
	} `json:"emoji"`
}

// ChannelMessage is the subset of the Discord message object the recorder
// maps into its canonical form. EditedTimestamp is empty for unedited
// messages (Discord sends null).
type ChannelMessage struct {
	ID              string       `json:"id"`
	Content         string       `json:"content"`
	Timestamp       string       `json:"timestamp"`
	EditedTimestamp string       `json:"edited_timestamp"`
	Author          Author       `json:"author"`
	Attachments     []Attachment `json:"attachments"`
	Reactions       []Reaction   `json:"reactions"`
}

// APIError is a non-2xx Discord response. Code and Message come from the
// error body when Discord sends one.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("discord: status %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("discord: unexpected status %d", e.StatusCode)
}

// GetChannel resolves a channel by id. This doubles as the access check:
// bad tokens, missing permissions and unknown channels all come back as an
// *APIError with the telling status code.
func (c *Client) GetChannel(ctx context.Context, channelID string) (*Channel, error) {
	var ch Channel
	if err := c.get(ctx, "/channels/"+url.PathEscape(channelID), nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetMessages returns one page of channel messages, newest first. before may
// be empty for the first page; limit must be within 1..MaxPageSize.
func (c *Client) GetMessages(ctx context.Context, channelID string, limit int, before string) ([]ChannelMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if before != "" {
		q.Set("before", before)
	}
	var msgs []ChannelMessage
	if err := c.get(ctx, "/channels/"+url.PathEscape(channelID)+"/messages", q, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.BaseURL + path
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
		apiErr := &APIError{StatusCode: resp.StatusCode}
		// Error bodies are JSON when Discord itself answers; a proxy's
		// body may not be, in which case the status alone has to do.
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
