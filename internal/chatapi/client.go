// ABOUTME: HTTP client for the chat server's request/response API
// ABOUTME: Login, friends, history, posting, and indirection fetches over one cookie-carrying resty client

package chatapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/2389/coven-chat/internal/inbox"
)

// ErrUnexpectedStatus is returned for responses outside the 2xx range.
var ErrUnexpectedStatus = errors.New("unexpected status")

// User is an entry of the friend list.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Message is one chat message of a conversation history.
type Message struct {
	MessageID int64    `json:"message_id"`
	FromUser  string   `json:"from_user"`
	Inbox     inbox.ID `json:"inbox"`
	Text      string   `json:"text"`
	// Timestamp is milliseconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`
}

// Time returns the message timestamp as a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

type friendsResponse struct {
	OK    bool   `json:"ok"`
	Users []User `json:"users"`
}

type historyResponse struct {
	OK       bool      `json:"ok"`
	Messages []Message `json:"messages"`
}

type loginRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
}

// Client talks to the chat server API. The underlying resty client keeps the
// session cookie set by Login and is shared with the event stream transport.
type Client struct {
	http         *resty.Client
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for the client and for resty's own messages.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFetchTimeout bounds each indirection fetch. Zero means no bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.fetchTimeout = d
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "chatapi")

	c.http = resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetLogger(restyLogger{c.logger})
	return c
}

// Resty returns the underlying resty client.
func (c *Client) Resty() *resty.Client {
	return c.http
}

// Login authenticates as userID, registering the user with username if the
// server does not know it yet.
func (c *Client) Login(ctx context.Context, userID, username string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(loginRequest{UserID: userID, Username: username}).
		Post("/api/auth")
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("logging in: %w", err)
	}

	var status string
	if err := json.Unmarshal(resp.Body(), &status); err != nil || status != "ok" {
		return fmt.Errorf("logging in: unexpected response %q", strings.TrimSpace(resp.String()))
	}

	c.logger.Info("logged in", "user_id", userID)
	return nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Delete("/api/auth")
	if err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// Friends returns the users the current user can chat with.
func (c *Client) Friends(ctx context.Context) ([]User, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get("/api/friends")
	if err != nil {
		return nil, fmt.Errorf("fetching friends: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("fetching friends: %w", err)
	}

	var out friendsResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decoding friends: %w", err)
	}
	return out.Users, nil
}

// FetchHistory returns the messages of a conversation, starting after marker
// when one is given.
func (c *Client) FetchHistory(ctx context.Context, id inbox.ID, marker string) ([]Message, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("inbox", id.String())
	if marker != "" {
		req.SetQueryParam("marker", marker)
	}

	resp, err := req.Get("/api/chats")
	if err != nil {
		return nil, fmt.Errorf("fetching history of %s: %w", id, err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("fetching history of %s: %w", id, err)
	}

	var out historyResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decoding history of %s: %w", id, err)
	}

	c.logger.Debug("history fetched", "inbox", id, "marker", marker, "messages", len(out.Messages))
	return out.Messages, nil
}

// PostMessage sends text to a conversation.
func (c *Client) PostMessage(ctx context.Context, id inbox.ID, text string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain; charset=utf-8").
		SetQueryParam("inbox", id.String()).
		SetBody(text).
		Post("/api/chats")
	if err != nil {
		return fmt.Errorf("posting to %s: %w", id, err)
	}
	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("posting to %s: %w", id, err)
	}
	return nil
}

// Fetch GETs an indirection address and returns the raw body. Relative
// addresses resolve against the server URL.
func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(uri)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", uri, err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", uri, err)
	}
	return resp.Body(), nil
}

// checkResponse turns a non-2xx response into an ErrUnexpectedStatus error.
func checkResponse(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	body := strings.TrimSpace(resp.String())
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Errorf("%w %d %s: %s", ErrUnexpectedStatus, resp.StatusCode(), http.StatusText(resp.StatusCode()), body)
}

// restyLogger routes resty's printf-style logging into slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
