// Package walletapi is a typed client for the remote wallet API consumed by the
// deposit workflow. Every failure is normalized into an *APIError carrying a
// message that can be shown to the user.
package walletapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	maxResponseBytes = 1 << 20
	networkMessage   = "network error, please check your connection"
	invalidMessage   = "invalid response from server"
)

// APIError is the uniform failure shape for every accessor and mutator.
// Status is zero when the request never produced an HTTP response.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("wallet api %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Message returns the human-readable message of err, looking through wrapping.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// Observer receives one call per completed request; outcome is "ok",
// "client_error", "server_error" or "network".
type Observer interface {
	ObserveRequest(endpoint, outcome string, elapsed time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Observer   Observer
}

// Client issues requests against the wallet API on behalf of one bearer token.
type Client struct {
	baseURL  string
	http     *http.Client
	token    string
	logger   *slog.Logger
	observer Observer
}

// New builds an unauthenticated client; use WithToken per user.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  opts.BaseURL,
		http:     httpClient,
		logger:   logger,
		observer: opts.Observer,
	}
}

// WithToken returns a copy of the client that authenticates as token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Token returns the bearer token the client forwards.
func (c *Client) Token() string { return c.token }

type envelope struct {
	Success       *bool           `json:"success"`
	Message       json.RawMessage `json:"message"`
	Error         json.RawMessage `json:"error"`
	Errors        json.RawMessage `json:"errors"`
	Data          json.RawMessage `json:"data"`
	TransactionID ID              `json:"transactionId"`
}

func (e envelope) message() string {
	for _, raw := range []json.RawMessage{e.Message, e.Error, e.Errors} {
		if text := textOf(raw); text != "" {
			return text
		}
	}
	return ""
}

// textOf digs a message out of a string, an array of messages or an object
// with a "message" field.
func textOf(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	case '[':
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) == nil {
			for _, item := range items {
				if text := textOf(item); text != "" {
					return text
				}
			}
		}
	case '{':
		var obj struct {
			Message json.RawMessage `json:"message"`
		}
		if json.Unmarshal(raw, &obj) == nil {
			return textOf(obj.Message)
		}
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, endpoint, path string, query url.Values, body, out any) (envelope, error) {
	var env envelope

	target := c.baseURL + path
	if encoded := encodeQuery(query); encoded != "" {
		target += "?" + encoded
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return env, fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return env, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(endpoint, "network", start)
		c.logger.Warn("wallet api request failed", slog.String("endpoint", endpoint), slog.Any("error", err))
		return env, &APIError{Message: networkMessage, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.observe(endpoint, "network", start)
		return env, &APIError{Status: resp.StatusCode, Message: networkMessage, Err: err}
	}

	var decodeErr error
	if len(bytes.TrimSpace(raw)) > 0 {
		decodeErr = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		outcome := "client_error"
		if resp.StatusCode >= http.StatusInternalServerError {
			outcome = "server_error"
		}
		c.observe(endpoint, outcome, start)
		msg := env.message()
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		c.logger.Warn("wallet api returned error",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
			slog.String("message", msg),
		)
		return env, &APIError{Status: resp.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		c.observe(endpoint, "server_error", start)
		return env, &APIError{Status: resp.StatusCode, Message: invalidMessage, Err: decodeErr}
	}

	if env.Success != nil && !*env.Success {
		c.observe(endpoint, "client_error", start)
		msg := env.message()
		if msg == "" {
			msg = "request was not successful"
		}
		return env, &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 && string(bytes.TrimSpace(env.Data)) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			c.observe(endpoint, "server_error", start)
			return env, &APIError{Status: resp.StatusCode, Message: invalidMessage, Err: err}
		}
	}

	c.observe(endpoint, "ok", start)
	c.logger.Debug("wallet api request completed",
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	return env, nil
}

func (c *Client) observe(endpoint, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(endpoint, outcome, time.Since(start))
	}
}

func encodeQuery(q url.Values) string {
	for k, v := range q {
		if len(v) == 0 || v[0] == "" {
			q.Del(k)
		}
	}
	return q.Encode()
}

type requestIDKey struct{}

// WithRequestID stores the inbound request id so it is forwarded upstream.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored by WithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
