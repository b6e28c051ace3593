// package spotify is the authenticated Web API client: bearer-token requests with a
// single transparent refresh-and-retry, pagination, library endpoints, and a
// Connect-backed player.
package spotify

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wamp/internal/shared"
	"github.com/desertthunder/wamp/internal/transport"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL  = "https://api.spotify.com/v1"
	DefaultMaxPages = 500
)

// TokenRefresher obtains a new access token and installs it with [Client.SetAccessToken].
type TokenRefresher func(ctx context.Context) error

// Client owns the in-memory access token and performs every Web API call.
type Client struct {
	http     transport.Executor
	base     *url.URL
	logger   *log.Logger
	maxPages int
	rps      float64

	mu        sync.RWMutex
	token     string
	onExpired TokenRefresher

	refreshes singleflight.Group
}

type Option func(*Client)

// WithExecutor replaces the transport; used by tests.
func WithExecutor(e transport.Executor) Option {
	return func(c *Client) { c.http = e }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxPages caps how many pages a next-cursor loop follows.
func WithMaxPages(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithRateLimit throttles requests when the default transport is used.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.rps = rps }
}

// NewClient creates a [Client] for baseURL (empty means [DefaultBaseURL]).
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	base, err := url.Parse(baseURL)
	if err != nil {
		base = &url.URL{}
	}

	c := &Client{base: base, logger: shared.DiscardLogger(), maxPages: DefaultMaxPages}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = transport.New(baseURL, transport.WithLogger(c.logger), transport.WithRateLimit(c.rps))
	}
	return c
}

// SetAccessToken installs token for subsequent requests.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ClearAccessToken forgets the in-memory token.
func (c *Client) ClearAccessToken() { c.SetAccessToken("") }

// AccessToken returns the current token, empty when none is installed.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnTokenExpired registers the callback run when a request is rejected as unauthorized.
func (c *Client) OnTokenExpired(fn TokenRefresher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = fn
}

// do executes req with the bearer token.
//
// On an unauthorized response the expired-token callback runs once per token generation
// (concurrent callers share it) and the request is retried exactly once. The retry's result is
// returned as-is.
func (c *Client) do(ctx context.Context, req *transport.Request, out any) error {
	token := c.AccessToken()
	if token == "" {
		return shared.Unauthorized(shared.ErrNotAuthenticated)
	}

	err := c.send(ctx, req, token, out)
	if !shared.IsKind(err, shared.KindUnauthorized) {
		return err
	}

	if err := c.refresh(ctx, token); err != nil {
		return err
	}

	fresh := c.AccessToken()
	if fresh == "" {
		return shared.Unauthorized(shared.ErrNotAuthenticated)
	}
	return c.send(ctx, req, fresh, out)
}

// refresh runs the expired-token callback unless the token already moved past stale.
func (c *Client) refresh(ctx context.Context, stale string) error {
	c.mu.RLock()
	cb := c.onExpired
	c.mu.RUnlock()
	if cb == nil {
		return shared.Unauthorized(shared.ErrNoRefreshToken)
	}

	_, err, joined := c.refreshes.Do(stale, func() (any, error) {
		if current := c.AccessToken(); current != "" && current != stale {
			return nil, nil
		}
		c.logger.Info("access token rejected, refreshing")
		return nil, cb(ctx)
	})
	if joined {
		c.logger.Debug("joined in-flight token refresh")
	}
	return err
}

func (c *Client) send(ctx context.Context, req *transport.Request, token string, out any) error {
	r := *req
	r.Headers = make(map[string]string, len(req.Headers)+1)
	for k, v := range req.Headers {
		r.Headers[k] = v
	}
	r.Headers["Authorization"] = "Bearer " + token
	return c.http.Execute(ctx, &r, out)
}
