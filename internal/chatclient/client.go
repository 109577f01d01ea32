// Package chatclient calls the chat relay the way the browser widget does.
package chatclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mazleon/portfolio-website/internal/chat"
	"github.com/mazleon/portfolio-website/internal/identity"
)

// Fallback replies shown to the visitor when the relay cannot answer.
const (
	ErrorReply      = "I encountered an error. Please try again."
	ConnectionReply = "I'm having trouble connecting. Please try again later."
)

// Reply is the outcome of a send. Fallback is true when Content is one of the
// fallback strings rather than a model answer.
type Reply struct {
	Content  string
	Fallback bool
}

// Client posts chat requests to a relay.
type Client struct {
	http      *resty.Client
	path      string
	sessionID string
}

// Option configures a Client.
type Option func(*Client)

// WithSessionID sends id in the session header so the relay can enforce the quota.
func WithSessionID(id string) Option {
	return func(c *Client) { c.sessionID = id }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithPath overrides the relay path.
func WithPath(p string) Option {
	return func(c *Client) { c.path = p }
}

// New creates a client for the relay at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Content-Type", "application/json").
			SetTimeout(30 * time.Second),
		path: "/api/chat",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestBody struct {
	Message string      `json:"message"`
	History []chat.Turn `json:"history"`
}

type responseBody struct {
	Content *string `json:"content"`
	Error   string  `json:"error"`
}

// Send posts message with the prior history. It never fails: any problem is
// mapped to a fallback reply.
func (c *Client) Send(ctx context.Context, message string, history []chat.Turn) Reply {
	if history == nil {
		history = []chat.Turn{}
	}

	req := c.http.R().
		SetContext(ctx).
		SetBody(requestBody{Message: message, History: history})
	if c.sessionID != "" {
		req.SetHeader(identity.SessionHeaderName, c.sessionID)
	}

	resp, err := req.Post(c.path)
	if err != nil {
		slog.Warn("Chat relay unreachable", "error", err)
		return Reply{Content: ConnectionReply, Fallback: true}
	}
	if resp.IsError() {
		slog.Warn("Chat relay returned an error", "status", resp.StatusCode(), "body", resp.String())
		return Reply{Content: ErrorReply, Fallback: true}
	}

	var body responseBody
	if err := json.Unmarshal(resp.Body(), &body); err != nil || body.Content == nil {
		slog.Warn("Chat relay returned an unusable body", "error", err)
		return Reply{Content: ErrorReply, Fallback: true}
	}
	return Reply{Content: *body.Content}
}
