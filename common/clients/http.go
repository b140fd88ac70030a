package clients

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Logger interface for HTTP client logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// BasicAuth holds optional credentials applied to every request
type BasicAuth struct {
	Username string
	Password string
}

// HTTPClient wraps http.Client with context-aware helpers
// It extracts metadata from context and adds the matching headers
type HTTPClient struct {
	client *http.Client
	auth   *BasicAuth
	logger Logger
}

// NewHTTPClient creates a new HTTP client wrapper
func NewHTTPClient(client *http.Client, logger Logger) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{
		client: client,
		logger: logger,
	}
}

// WithBasicAuth returns a copy of the client that authenticates every request
func (c *HTTPClient) WithBasicAuth(username, password string) *HTTPClient {
	clone := *c
	if username != "" {
		clone.auth = &BasicAuth{Username: username, Password: password}
	} else {
		clone.auth = nil
	}
	return &clone
}

// DoRequest creates and executes an HTTP request, extracting metadata from context.
// header may be nil.
func (c *HTTPClient) DoRequest(ctx context.Context, method, url string, body io.Reader, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	if userID, ok := GetUserID(ctx); ok {
		req.Header.Set("X-User-ID", userID)
		c.logger.Debug("added X-User-ID header from context", "user_id", userID)
	}

	if c.auth != nil {
		req.SetBasicAuth(c.auth.Username, c.auth.Password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("http request failed", "method", method, "url", url, "error", err)
		return nil, err
	}
	return resp, nil
}
