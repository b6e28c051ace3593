package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wamp/internal/keychain"
	"github.com/desertthunder/wamp/internal/models"
	"github.com/desertthunder/wamp/internal/oauth"
	"github.com/desertthunder/wamp/internal/shared"
	"github.com/desertthunder/wamp/internal/spotify"
)

// State is the position of a [Manager] in the login state machine.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// BrowserSession presents the authorization URL to the user and returns the code from the callback
// that arrives at callbackURL. A user cancellation must be reported as an unauthorized error wrapping
// [shared.ErrAuthCancelled].
type BrowserSession interface {
	Authorize(ctx context.Context, authURL, callbackURL string) (code string, err error)
}

// TokenStore is the subset of [keychain.Store] the manager needs.
type TokenStore interface {
	Save(kind keychain.Kind, value string) error
	Get(kind keychain.Kind) (string, bool, error)
	DeleteAll() error
}

// OAuthClient is implemented by [oauth.Client].
type OAuthClient interface {
	RedirectURI() string
	BuildAuthorizationURL(state string) (string, error)
	ExchangeCodeForToken(ctx context.Context, code string) (*oauth.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*oauth.TokenResponse, error)
}

// APIClient is implemented by [spotify.Client].
type APIClient interface {
	SetAccessToken(token string)
	ClearAccessToken()
	OnTokenExpired(fn spotify.TokenRefresher)
	UserProfile(ctx context.Context) (*models.User, error)
}

var (
	_ TokenStore  = (*keychain.Store)(nil)
	_ OAuthClient = (*oauth.Client)(nil)
	_ APIClient   = (*spotify.Client)(nil)
)

// Manager owns session-state transitions.
type Manager struct {
	store   TokenStore
	oauth   OAuthClient
	api     APIClient
	browser BrowserSession
	logger  *log.Logger

	mu        sync.RWMutex
	state     State
	user      *models.User
	listeners []func(State)

	// refreshMu serializes refreshes so two callers never write conflicting tokens.
	refreshMu sync.Mutex
}

// NewManager wires the collaborators and registers [Manager.RefreshAccessToken] as the API client's
// token-expired callback. browser may be nil for commands that never log in interactively.
func NewManager(store TokenStore, oc OAuthClient, api APIClient, browser BrowserSession, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	m := &Manager{
		store:   store,
		oauth:   oc,
		api:     api,
		browser: browser,
		logger:  logger.WithPrefix("auth"),
	}
	api.OnTokenExpired(m.RefreshAccessToken)
	return m
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CurrentUser returns the profile fetched at login or restore, nil when unknown.
func (m *Manager) CurrentUser() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// OnStateChange registers fn to run after every state change. fn must not call back into the manager's setters.
func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) setState(s State, user *models.User) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.user = user
	m.mu.Unlock()
	m.notify(prev, s)
}

func (m *Manager) notify(prev, s State) {
	if prev == s {
		return
	}
	m.mu.RLock()
	listeners := slices.Clone(m.listeners)
	m.mu.RUnlock()

	m.logger.Info("state changed", "from", prev, "to", s)
	for _, fn := range listeners {
		fn(s)
	}
}

// Authenticate runs the interactive authorization-code flow.
func (m *Manager) Authenticate(ctx context.Context) (*models.User, error) {
	m.mu.Lock()
	prev := m.state
	if prev == Authenticating {
		m.mu.Unlock()
		return nil, shared.ErrAuthInProgress
	}
	m.state = Authenticating
	m.user = nil
	m.mu.Unlock()
	m.notify(prev, Authenticating)

	user, err := m.authenticate(ctx)
	if err != nil {
		m.api.ClearAccessToken()
		m.setState(Unauthenticated, nil)
		m.logger.Warn("login failed", "err", err)
		return nil, err
	}

	m.setState(Authenticated, user)
	return user, nil
}

func (m *Manager) authenticate(ctx context.Context) (*models.User, error) {
	if m.browser == nil {
		return nil, fmt.Errorf("%w: no browser session configured", shared.ErrAuthFailed)
	}

	state := shared.GenerateState()
	authURL, err := m.oauth.BuildAuthorizationURL(state)
	if err != nil {
		return nil, err
	}

	code, err := m.browser.Authorize(ctx, authURL, m.oauth.RedirectURI())
	if err != nil {
		return nil, err
	}

	tokens, err := m.oauth.ExchangeCodeForToken(ctx, code)
	if err != nil {
		return nil, err
	}
	if !tokens.HasRefreshToken() {
		return nil, &shared.AppError{Kind: shared.KindInvalidResponse, Message: "token response is missing refresh_token"}
	}
	if err := m.store.Save(keychain.AccessToken, tokens.AccessToken); err != nil {
		return nil, err
	}
	if err := m.store.Save(keychain.RefreshToken, tokens.RefreshToken); err != nil {
		return nil, errors.Join(err, m.discardTokens())
	}

	m.api.SetAccessToken(tokens.AccessToken)
	user, err := m.api.UserProfile(ctx)
	if err != nil {
		return nil, errors.Join(err, m.discardTokens())
	}
	return user, nil
}

// discardTokens removes a pair persisted by a login that did not complete.
func (m *Manager) discardTokens() error {
	if err := m.store.DeleteAll(); err != nil {
		m.logger.Warn("failed to discard tokens of failed login", "err", err)
		return fmt.Errorf("failed to discard stored tokens: %w", err)
	}
	return nil
}

// RefreshAccessToken exchanges the stored refresh token for a new access token, persists it and installs it.
func (m *Manager) RefreshAccessToken(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	refresh, found, err := m.store.Get(keychain.RefreshToken)
	if err != nil {
		return err
	}
	if !found || refresh == "" {
		return shared.Unauthorized(shared.ErrNoRefreshToken)
	}

	m.logger.Info("refreshing access token")
	tokens, err := m.oauth.RefreshToken(ctx, refresh)
	if err != nil {
		m.logger.Warn("token refresh failed", "err", err)
		return err
	}

	if err := m.store.Save(keychain.AccessToken, tokens.AccessToken); err != nil {
		return err
	}
	if tokens.HasRefreshToken() && tokens.RefreshToken != refresh {
		if err := m.store.Save(keychain.RefreshToken, tokens.RefreshToken); err != nil {
			return err
		}
	}

	m.api.SetAccessToken(tokens.AccessToken)
	return nil
}

// Logout deletes both tokens and forgets the session. The in-memory state is cleared even when the store fails.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.store.DeleteAll()
	m.api.ClearAccessToken()
	m.setState(Unauthenticated, nil)
	if err != nil {
		return fmt.Errorf("failed to delete stored tokens: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether both tokens are retrievable.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	for _, kind := range []keychain.Kind{keychain.AccessToken, keychain.RefreshToken} {
		v, found, err := m.store.Get(kind)
		if err != nil {
			m.logger.Debug("token store read failed", "kind", kind, "err", err)
			return false
		}
		if !found || v == "" {
			return false
		}
	}
	return true
}

// CheckAuthentication is [Manager.IsAuthenticated] that also moves the state machine:
// a session with no stored tokens becomes Unauthenticated.
func (m *Manager) CheckAuthentication(ctx context.Context) bool {
	ok := m.IsAuthenticated(ctx)
	if !ok && m.State() == Authenticated {
		m.api.ClearAccessToken()
		m.setState(Unauthenticated, nil)
	}
	return ok
}

// Restore rehydrates a session from stored tokens: it installs the access token and fetches the profile,
// which refreshes transparently when the stored access token has expired.
func (m *Manager) Restore(ctx context.Context) (*models.User, error) {
	if !m.IsAuthenticated(ctx) {
		return nil, shared.Unauthorized(shared.ErrNotAuthenticated)
	}

	access, _, err := m.store.Get(keychain.AccessToken)
	if err != nil {
		return nil, err
	}
	m.api.SetAccessToken(access)

	user, err := m.api.UserProfile(ctx)
	if err != nil {
		if shared.IsKind(err, shared.KindUnauthorized) {
			m.api.ClearAccessToken()
			m.setState(Unauthenticated, nil)
		}
		return nil, err
	}

	m.setState(Authenticated, user)
	return user, nil
}

// ParseCallbackCode extracts the authorization code from a redirect URL.
//
// error=access_denied is a user cancellation. Any other provider error, or a URL without a code,
// is an invalid response.
func ParseCallbackCode(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", shared.NewError(shared.KindInvalidURL, err)
	}

	q := u.Query()
	if e := q.Get("error"); e != "" {
		if e == "access_denied" {
			return "", shared.Unauthorized(shared.ErrAuthCancelled)
		}
		msg := e
		if d := q.Get("error_description"); d != "" {
			msg += ": " + d
		}
		return "", shared.NewError(shared.KindInvalidResponse, fmt.Errorf("%w: %s", shared.ErrAuthFailed, msg))
	}

	code := q.Get("code")
	if code == "" {
		return "", shared.NewError(shared.KindInvalidResponse, errors.New("callback is missing the code parameter"))
	}
	return code, nil
}
