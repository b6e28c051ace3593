package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wamp/internal/auth"
	"github.com/desertthunder/wamp/internal/shared"
)

// DefaultLoginTimeout bounds how long [LoopbackSession] waits for the callback.
const DefaultLoginTimeout = 2 * time.Minute

// LoopbackSession completes the browser step of the login on a local HTTP listener.
type LoopbackSession struct {
	timeout time.Duration
	open    func(url string) error
	logger  *log.Logger
	ready   func(addr string)
}

var _ auth.BrowserSession = (*LoopbackSession)(nil)

type SessionOption func(*LoopbackSession)

func WithTimeout(d time.Duration) SessionOption {
	return func(s *LoopbackSession) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithOpener replaces [shared.OpenBrowser].
func WithOpener(fn func(url string) error) SessionOption {
	return func(s *LoopbackSession) { s.open = fn }
}

// WithReady is called with the listener address once the callback server accepts connections.
func WithReady(fn func(addr string)) SessionOption {
	return func(s *LoopbackSession) { s.ready = fn }
}

func NewLoopbackSession(logger *log.Logger, opts ...SessionOption) *LoopbackSession {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	s := &LoopbackSession{
		timeout: DefaultLoginTimeout,
		open:    shared.OpenBrowser,
		logger:  logger.WithPrefix("callback"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authorize serves callbackURL, opens authURL and returns the code from the first callback.
//
// The expected state is read from authURL. A cancelled ctx is reported as a user cancellation and
// the timeout as [shared.ErrTimeout], both unauthorized-class.
func (s *LoopbackSession) Authorize(ctx context.Context, authURL, callbackURL string) (string, error) {
	cb, err := url.Parse(callbackURL)
	if err != nil {
		return "", shared.NewError(shared.KindInvalidURL, err)
	}
	if cb.Scheme != "http" || cb.Host == "" {
		return "", shared.NewError(shared.KindInvalidURL,
			fmt.Errorf("redirect URI %q is not a loopback http address", callbackURL))
	}

	au, err := url.Parse(authURL)
	if err != nil {
		return "", shared.NewError(shared.KindInvalidURL, err)
	}

	handler := NewOAuthHandler(cb.Path, au.Query().Get("state"))
	router := NewBasicRouter()
	router.Use(RequestLogger(s.logger))
	router.Handler(handler)

	ln, err := net.Listen("tcp", cb.Host)
	if err != nil {
		return "", shared.NewError(shared.KindNetwork, fmt.Errorf("failed to listen on %s: %w", cb.Host, err))
	}

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("callback server failed", "err", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if s.ready != nil {
		s.ready(ln.Addr().String())
	}

	s.logger.Info("waiting for authorization", "callback", callbackURL)
	if err := s.open(authURL); err != nil {
		s.logger.Warn("could not open browser, visit the URL manually", "url", authURL, "err", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	select {
	case res := <-handler.Result():
		return res.Code, res.Err
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return "", shared.Unauthorized(shared.ErrAuthCancelled)
		}
		return "", shared.Unauthorized(fmt.Errorf("%w: no callback within %s", shared.ErrTimeout, s.timeout))
	}
}
