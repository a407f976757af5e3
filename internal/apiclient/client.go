package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenSource yields the bearer token attached to outgoing requests.
// An empty token means the request is sent without an Authorization header.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource that always returns the same token
type StaticToken string

// Token returns the static token
func (s StaticToken) Token() (string, error) {
	return string(s), nil
}

// Error is returned for any non-2xx response from the API
type Error struct {
	Status  int
	Message string
	Body    any
}

func (e *Error) Error() string {
	return e.Message
}

// Client issues requests against the remote extraction API
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// New creates a Client for the given base URL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends a request to path and returns the normalized response body.
// JSON responses are decoded; other responses are parsed as JSON when
// possible and otherwise wrapped as {"message": text}.
func (c *Client) Do(ctx context.Context, method, path string, body any, headers map[string]string) (any, error) {
	reqID := uuid.NewString()
	start := time.Now()
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")

	var reader io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(bs)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			slog.Warn("Failed to read bearer token", "req_id", reqID, "error", err)
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("API request failed", "req_id", reqID, "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	slog.Debug("API response",
		"req_id", reqID,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	data, err := decodeBody(resp.Header.Get("Content-Type"), raw)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Status:  resp.StatusCode,
			Message: errorMessage(data, resp.StatusCode),
			Body:    data,
		}
	}
	return data, nil
}

// DoInto sends a request and decodes the normalized response into out
func (c *Client) DoInto(ctx context.Context, method, path string, body any, out any) error {
	data, err := c.Do(ctx, method, path, body, nil)
	if err != nil {
		return err
	}
	return Decode(data, out)
}

// Decode converts a normalized response value into a typed struct
func Decode(data any, out any) error {
	bs, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("re-encoding response: %w", err)
	}
	if err := json.Unmarshal(bs, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeBody(contentType string, raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	var data any
	if strings.Contains(strings.ToLower(contentType), "application/json") {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("parsing JSON response: %w", err)
		}
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err == nil {
		return data, nil
	}
	return map[string]any{"message": string(raw)}, nil
}

// errorMessage picks error.message, then a string error, then message
func errorMessage(data any, status int) string {
	if m, ok := data.(map[string]any); ok {
		switch e := m["error"].(type) {
		case map[string]any:
			if msg, ok := e["message"].(string); ok && msg != "" {
				return msg
			}
		case string:
			if e != "" {
				return e
			}
		}
		if msg, ok := m["message"].(string); ok && msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("HTTP error! status: %d", status)
}
