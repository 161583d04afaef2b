// Package api is the REST client for the workflow-execution service: bearer
// token auth, JSON bodies, 10s timeout, readable errors.
package api

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
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowdash/flowdash/pkg/otelhelper"
)

const DefaultTimeout = 10 * time.Second

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default 10s-timeout HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger attaches a logger for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTracer enables a span around every request.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetToken replaces the bearer token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.token
}

// Login authenticates against the backend, stores the returned bearer token
// on the client and returns it.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	payload := map[string]string{
		"username": username,
		"password": password,
	}

	var response struct {
		Token string `json:"token"`
	}

	err := c.do(ctx, "POST /auth/login", http.MethodPost, "/auth/login", nil, payload, &response)
	if err != nil {
		return "", err
	}

	c.SetToken(response.Token)

	return response.Token, nil
}

// do runs one JSON request against the backend, wrapped in a span when
// tracing is enabled. A non-2xx response becomes a RequestError carrying the
// body's message; the caller's state is never touched on failure.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	if c.tracer == nil {
		return c.doRequest(ctx, op, method, path, query, body, out)
	}

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, op,
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)
	defer span.End()

	err := c.doRequest(ctx, op, method, path, query, body, out)
	if err != nil {
		otelhelper.SetError(span, err)
	}

	return err
}

func (c *Client) doRequest(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Op: op, Message: "encoding request body: " + err.Error(), Err: err}
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &RequestError{Op: op, Message: err.Error(), Err: err}
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Request failed on the wire", "op", op, "error", err)

		return &RequestError{Op: op, Message: err.Error(), Err: err}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reqErr := &RequestError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(responseBody),
		}

		if resp.StatusCode == 401 {
			reqErr.Err = ErrUnauthorized
		}

		c.logger.Debug("Request rejected", "op", op, "status", resp.StatusCode, "message", reqErr.Message)

		return reqErr
	}

	if out == nil || len(responseBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(responseBody, out); err != nil {
		return &RequestError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("decoding response: %v", err),
			Err:        err,
		}
	}

	return nil
}
