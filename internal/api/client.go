package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// User-facing messages for failures the backend never got to describe.
const (
	MsgNetworkError     = "Network error: unable to reach server"
	MsgInvalidResponse  = "Invalid response from server"
	MsgRequestCancelled = "Request cancelled"
	MsgUnknownError     = "Something went wrong"
)

// Result is the normalized outcome of every backend call. Success, Data and
// Error are always populated consistently: Data is non-nil only when
// Success is true and the backend returned a payload.
type Result[T any] struct {
	Success bool
	Data    *T
	Error   string

	// Status is the HTTP status code, or 0 when no response was received.
	Status int
}

// Unauthorized reports whether the backend rejected the bearer token.
func (r Result[T]) Unauthorized() bool {
	return r.Status == http.StatusUnauthorized
}

// Request describes a single backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}

	// Token is sent as a Bearer credential when non-empty.
	Token string
}

// envelope is the response shape the backend uses for every endpoint.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// Client is a thin HTTP client for the marketplace REST API. It handles
// Bearer token authentication and JSON (de)serialization, and converts
// every failure into a Result instead of an error.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	userAgent  string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new API client. The baseURL should be the root URL
// of the backend (e.g., https://api.swapmarket.example).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    zap.NewNop(),
		userAgent: "swapdesk",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs req and decodes the envelope's data field into T.
// It never returns an error: transport failures, non-JSON bodies and
// backend-reported failures all come back as Result{Success: false}.
func Do[T any](ctx context.Context, c *Client, req Request) Result[T] {
	status, body, err := c.roundTrip(ctx, req)
	if err != nil {
		msg := MsgNetworkError
		if errors.Is(err, context.Canceled) {
			msg = MsgRequestCancelled
		}
		c.logger.Debug("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err),
		)
		return Result[T]{Error: msg}
	}

	return decode[T](status, body)
}

// decode turns a raw HTTP response into a Result.
func decode[T any](status int, body []byte) Result[T] {
	ok := status >= 200 && status < 300

	// No content to parse (e.g. 204).
	if len(bytes.TrimSpace(body)) == 0 {
		if ok {
			return Result[T]{Success: true, Status: status}
		}
		return Result[T]{Status: status, Error: statusMessage(status)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if ok {
			return Result[T]{Status: status, Error: MsgInvalidResponse}
		}
		return Result[T]{Status: status, Error: statusMessage(status)}
	}

	if !ok || (env.Success != nil && !*env.Success) {
		msg := firstNonEmpty(env.Error, env.Message)
		if msg == "" {
			if ok {
				msg = MsgUnknownError
			} else {
				msg = statusMessage(status)
			}
		}
		return Result[T]{Status: status, Error: msg}
	}

	res := Result[T]{Success: true, Status: status}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return res
	}

	var data T
	if _, ignored := any(data).(struct{}); ignored {
		return res
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return Result[T]{Status: status, Error: MsgInvalidResponse}
	}
	res.Data = &data
	return res
}

// roundTrip builds the request, handles auth and reads the full body.
func (c *Client) roundTrip(
	ctx context.Context,
	req Request,
) (int, []byte, error) {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("executing request %s %s: %w", method, req.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response body: %w", err)
	}

	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	return resp.StatusCode, body, nil
}

func statusMessage(status int) string {
	return fmt.Sprintf("Request failed with status %d", status)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// pathID escapes an opaque identifier for use as a single path segment.
func pathID(id string) string {
	return url.PathEscape(id)
}
