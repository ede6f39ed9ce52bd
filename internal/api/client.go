package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBucket is the storage bucket holding resumes.
const DefaultBucket = "resumes"

// TokenSource returns the signed-in user's access token, or "" when nobody
// is signed in.
type TokenSource func(ctx context.Context) (string, error)

// Client provides access to the hosted backend's REST API.
type Client struct {
	baseURL    string
	anonKey    string
	bucket     string
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client for the project at baseURL.
func NewClient(baseURL, anonKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		bucket:  DefaultBucket,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration for idempotent reads.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTokenSource sets where user access tokens come from.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithBucket sets the storage bucket used for resumes.
func WithBucket(bucket string) ClientOption {
	return func(c *Client) {
		c.bucket = bucket
	}
}

// bearer returns the token for the Authorization header of data requests.
func (c *Client) bearer(ctx context.Context) (string, error) {
	if c.tokens != nil {
		token, err := c.tokens(ctx)
		if err != nil {
			return "", err
		}
		if token != "" {
			return token, nil
		}
	}
	return c.anonKey, nil
}
