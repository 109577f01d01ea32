// Package provider calls the hosted LLM completion endpoint.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/mazleon/portfolio-website/internal/metrics"
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("provider temporarily unavailable")

// Message roles understood by the completion endpoint.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Message is one entry of the outbound conversation.
type Message struct {
	Role    string
	Content string
}

// Config holds the completion parameters and transport settings.
type Config struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Referer     string
	Title       string
	Timeout     time.Duration

	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Client sends chat completions to an OpenAI-compatible endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-provider",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellations say nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Provider circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: &headerTransport{
				base:    http.DefaultTransport,
				referer: cfg.Referer,
				title:   cfg.Title,
			},
		},
		breaker: breaker,
	}
}

// Complete sends messages and returns the first choice's content. ok is false
// when the response carried no usable content.
func (c *Client) Complete(ctx context.Context, apiKey string, messages []Message) (content string, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: requestTemperature(c.cfg.Temperature),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	oc := c.openAIClient(apiKey)
	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return oc.CreateChatCompletion(ctx, req)
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.ProviderDuration.WithLabelValues("breaker_open").Observe(elapsed)
			return "", false, ErrUnavailable
		}
		metrics.ProviderDuration.WithLabelValues("error").Observe(elapsed)
		return "", false, fmt.Errorf("chat completion: %w", err)
	}
	metrics.ProviderDuration.WithLabelValues("ok").Observe(elapsed)

	resp, _ := result.(openai.ChatCompletionResponse)
	if len(resp.Choices) == 0 {
		return "", false, nil
	}
	content = resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", false, nil
	}
	return content, true, nil
}

// requestTemperature keeps an explicit zero on the wire. go-openai omits a zero
// temperature, which would leave the provider default in effect.
func requestTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// State reports the breaker state for diagnostics.
func (c *Client) State() string {
	return c.breaker.State().String()
}

func (c *Client) openAIClient(apiKey string) *openai.Client {
	oc := openai.DefaultConfig(apiKey)
	oc.BaseURL = strings.TrimRight(c.cfg.BaseURL, "/")
	oc.HTTPClient = c.httpClient
	return openai.NewClientWithConfig(oc)
}

// headerTransport adds the attribution headers OpenRouter expects.
type headerTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if t.referer != "" {
		r.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		r.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(r)
}
