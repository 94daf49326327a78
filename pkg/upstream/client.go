package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"askmeter-hq/askproxy/pkg/config"
	"askmeter-hq/askproxy/pkg/costs"
	"askmeter-hq/askproxy/pkg/telemetry/tracing"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// Client sends chat-completion requests to a single hosted deployment.
// It performs exactly one attempt per call; there are no retries.
type Client struct {
	config   config.UpstreamConfig
	url      string
	client   *http.Client
	logger   *slog.Logger
	injectTC bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled HTTP client, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTracePropagation toggles W3C trace header injection on outgoing
// requests. Enabled by default.
func WithTracePropagation(enabled bool) Option {
	return func(c *Client) {
		c.injectTC = enabled
	}
}

// New creates a client for the deployment described by cfg.
func New(cfg config.UpstreamConfig, opts ...Option) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("upstream endpoint is required")
	}
	if cfg.Deployment == "" {
		return nil, fmt.Errorf("upstream deployment is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = config.DefaultAPIVersion
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = config.DefaultMaxTokens
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	c := &Client{
		config:   cfg,
		url:      BuildURL(cfg.Endpoint, cfg.Deployment, cfg.APIVersion),
		client:   &http.Client{Transport: transport},
		logger:   slog.Default().With("component", "upstream"),
		injectTC: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BuildURL returns the chat-completion URL for a deployment.
func BuildURL(endpoint, deployment, apiVersion string) string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(endpoint, "/"),
		url.PathEscape(deployment),
		url.QueryEscape(apiVersion),
	)
}

// URL returns the request URL this client posts to.
func (c *Client) URL() string {
	return c.url
}

// Complete sends question as a single user message and returns the answer.
//
// Errors are one of *StatusError, *MalformedResponseError, *DecodeError
// or *TransportError. The call is bounded only by ctx.
func (c *Client) Complete(ctx context.Context, question string) (*Completion, error) {
	body, err := json.Marshal(chatRequest{
		Messages:  []chatMessage{{Role: "user", Content: question}},
		MaxTokens: c.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.config.APIKey)
	if c.injectTC {
		tracing.Inject(ctx, req.Header)
	}

	c.logger.DebugContext(ctx, "sending request to upstream",
		"deployment", c.config.Deployment,
		"max_tokens", c.config.MaxTokens,
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: c.redactedURL(), Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{URL: c.redactedURL(), Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return parseCompletion(resp.StatusCode, raw)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) redactedURL() string {
	if i := strings.IndexByte(c.url, '?'); i >= 0 {
		return c.url[:i]
	}
	return c.url
}

func parseCompletion(status int, raw []byte) (*Completion, error) {
	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, &DecodeError{StatusCode: status, RawResponse: string(raw), Cause: err}
	}

	if len(cr.Choices) == 0 || cr.Choices[0].Message == nil || cr.Choices[0].Message.Content == nil {
		return nil, &MalformedResponseError{StatusCode: status, RawResponse: string(raw)}
	}

	usage := costs.TokenUsage{
		PromptTokens:     cr.Usage.PromptTokens,
		CompletionTokens: cr.Usage.CompletionTokens,
	}
	if cr.Usage.TotalTokens != nil {
		usage.TotalTokens = *cr.Usage.TotalTokens
	} else {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	return &Completion{
		Answer: *cr.Choices[0].Message.Content,
		Usage:  usage,
	}, nil
}
