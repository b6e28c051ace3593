// package transport executes JSON/form HTTP requests and maps every failure
// onto the [shared.AppError] taxonomy.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wamp/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultTimeout applies to every request. [Request.Timeout] can only shorten it.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response is read.
const maxBodySize = 8 << 20

// Request describes one call. Path is joined to the client's base URL unless it is already absolute.
//
// At most one of Form and JSON should be set.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   url.Values
	Form    url.Values
	JSON    any
	Timeout time.Duration
}

// Executor is implemented by [Client]; higher layers depend on it so tests can swap in fakes.
type Executor interface {
	Execute(ctx context.Context, req *Request, out any) error
}

// Client is a small wrapper around [http.Client] bound to a base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying [http.Client]. Its Timeout is forced to [DefaultTimeout].
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			cp.Timeout = DefaultTimeout
			c.httpClient = &cp
		}
	}
}

// WithRateLimit throttles outgoing requests to rps with a burst of one second's worth. Zero disables it.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a [Client] rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     shared.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Execute sends req and decodes a 2xx JSON body into out (which may be nil).
//
// Non-2xx responses become an [*shared.AppError] via [ErrorFromResponse]; connection and timeout
// failures become [shared.KindNetwork]; undecodable bodies become [shared.KindDecode].
func (c *Client) Execute(ctx context.Context, req *Request, out any) error {
	timeout := DefaultTimeout
	if req.Timeout > 0 && req.Timeout < timeout {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return shared.NewError(shared.KindNetwork, err)
		}
	}

	httpReq, err := c.build(ctx, req)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed", "method", httpReq.Method, "path", httpReq.URL.Path, "err", err)
		return shared.NewError(shared.KindNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return shared.NewError(shared.KindNetwork, fmt.Errorf("failed to read response: %w", err))
	}

	c.logger.Debug("request",
		"method", httpReq.Method,
		"path", httpReq.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ErrorFromResponse(resp.StatusCode, resp.Header, body)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return shared.NewError(shared.KindDecode, err)
	}
	return nil
}

func (c *Client) build(ctx context.Context, req *Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u, err := c.resolve(req.Path)
	if err != nil {
		return nil, err
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, &shared.AppError{
				Kind:    shared.KindBadRequest,
				Message: "failed to encode request body",
				Err:     fmt.Errorf("%w: %v", shared.ErrInvalidInput, err),
			}
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, shared.NewError(shared.KindInvalidURL, err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// resolve joins path to the base URL; absolute http(s) URLs are used as-is.
func (c *Client) resolve(path string) (*url.URL, error) {
	raw := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if path != "" && !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		raw = c.baseURL + path
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		if err == nil {
			err = fmt.Errorf("%q is not an absolute URL", raw)
		}
		return nil, shared.NewError(shared.KindInvalidURL, err)
	}
	return u, nil
}

// ErrorFromResponse maps a non-2xx status onto the error taxonomy.
//
//	400 bad-request (provider message when present), 401 unauthorized, 403 forbidden, 404 not-found,
//	429 rate-limited (Retry-After), 503 service-unavailable, other 5xx server-error, anything else invalid-response.
func ErrorFromResponse(status int, header http.Header, body []byte) *shared.AppError {
	e := &shared.AppError{StatusCode: status}

	switch {
	case status == http.StatusBadRequest:
		e.Kind = shared.KindBadRequest
		e.Message = providerMessage(body)
	case status == http.StatusUnauthorized:
		e.Kind = shared.KindUnauthorized
		e.Message = providerMessage(body)
	case status == http.StatusForbidden:
		e.Kind = shared.KindForbidden
		e.Message = providerMessage(body)
	case status == http.StatusNotFound:
		e.Kind = shared.KindNotFound
	case status == http.StatusTooManyRequests:
		e.Kind = shared.KindRateLimited
		e.RetryAfter = parseRetryAfter(header.Get("Retry-After"))
	case status == http.StatusServiceUnavailable:
		e.Kind = shared.KindServiceUnavailable
	case status >= 500 && status <= 599:
		e.Kind = shared.KindServerError
	default:
		e.Kind = shared.KindInvalidResponse
	}
	return e
}

// providerMessage pulls a human-readable message out of either error envelope the provider uses:
// {"error":{"status":400,"message":"..."}} for the Web API and {"error":"...","error_description":"..."} for accounts.
func providerMessage(body []byte) string {
	var envelope struct {
		Error       json.RawMessage `json:"error"`
		Description string          `json:"error_description"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Description != "" {
		return envelope.Description
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}

	var flat string
	if err := json.Unmarshal(envelope.Error, &flat); err == nil {
		return flat
	}
	return ""
}

// parseRetryAfter accepts delta-seconds or an HTTP date. Unparseable values yield zero.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t).Round(time.Second); d > 0 {
			return d
		}
	}
	return 0
}
