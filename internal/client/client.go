package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Ishaqullah/JSBWorld-Travel-sub000/internal/domain"
	"github.com/Ishaqullah/JSBWorld-Travel-sub000/pkg/retry"
)

// IdempotencyKeyHeader deduplicates writes on the booking API
const IdempotencyKeyHeader = "X-Idempotency-Key"

const maxResponseBytes = 10 << 20

// ErrNotFound is returned for HTTP 404
var ErrNotFound = errors.New("api: resource not found")

// APIError is any other non-2xx response
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Retryable reports whether a read may be retried
func (e *APIError) Retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// Config contains client configuration
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	ReadRetries  int
	RetryBackoff time.Duration
	// Transport defaults to a pooled http.Transport
	Transport http.RoundTripper
}

// Client is the booking REST API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	readRetry  *retry.Config
}

// New creates a client with a traced transport
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}

	base := cfg.Transport
	if base == nil {
		base = &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: time.Second,
			ForceAttemptHTTP2:     true,
		}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(base),
			Timeout:   cfg.Timeout,
		},
		readRetry: &retry.Config{
			MaxRetries:      cfg.ReadRetries,
			InitialInterval: cfg.RetryBackoff,
			MaxInterval:     cfg.RetryBackoff * 8,
			Multiplier:      2.0,
			JitterFactor:    0.2,
		},
	}
}

type ctxKey int

const (
	tokenKey ctxKey = iota
	unauthorizedHookKey
)

// ContextWithToken attaches the bearer token sent with every call
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// ContextWithUnauthorizedHook registers a callback run on any 401
func ContextWithUnauthorizedHook(ctx context.Context, hook func()) context.Context {
	return context.WithValue(ctx, unauthorizedHookKey, hook)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	headers     map[string]string
}

func jsonRequest(method, path string, payload interface{}) (*request, error) {
	req := &request{method: method, path: path}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		req.body = bytes.NewReader(data)
		req.contentType = "application/json"
	}
	return req, nil
}

// get issues a GET, retrying transport errors and 5xx with backoff
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	result := c.retrier().Do(ctx, func(ctx context.Context) error {
		err := c.do(ctx, &request{method: http.MethodGet, path: path}, out)
		if err == nil || isRetryable(ctx, err) {
			return err
		}
		return retry.Permanent(err)
	})
	if result.Err == nil {
		return nil
	}
	if result.LastError != nil {
		return result.LastError
	}
	return result.Err
}

func (c *Client) retrier() *retry.Retrier {
	return retry.New(c.readRetry)
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// do sends one request and decodes the unwrapped data into out
func (c *Client) do(ctx context.Context, r *request, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if token := tokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if hook, ok := ctx.Value(unauthorizedHookKey).(func()); ok && hook != nil {
			hook()
		}
		return domain.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &APIError{Status: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrap(body), out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// unwrap returns the "data" member of a {success, data, message} envelope,
// or the whole body when it is not enveloped
func unwrap(body []byte) []byte {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return body
	}
	if data, ok := env["data"]; ok && len(data) > 0 && string(data) != "null" {
		return data
	}
	return body
}

func errorMessage(body []byte, fallback string) string {
	var env struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return fallback
	}
	if env.Message != "" {
		return env.Message
	}
	if len(env.Error) > 0 {
		var s string
		if json.Unmarshal(env.Error, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(env.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return fallback
}
