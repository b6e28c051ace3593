// package oauth implements the authorization-code flow against the Spotify
// accounts service: building the consent URL, exchanging the code, and
// refreshing access tokens.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wamp/internal/shared"
	"github.com/desertthunder/wamp/internal/transport"
	"golang.org/x/oauth2"
)

const (
	DefaultAccountsURL = "https://accounts.spotify.com"
	DefaultRedirectURI = "winampspotify://callback"

	authorizePath = "/authorize"
	tokenPath     = "/api/token"
)

// Scopes requested on every authorization.
var Scopes = []string{
	"user-read-email",
	"user-read-private",
	"user-library-read",
	"user-read-playback-state",
	"user-modify-playback-state",
	"streaming",
	"playlist-read-private",
	"playlist-read-collaborative",
}

// Config holds the application credentials and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AccountsURL  string
}

// TokenResponse is the token endpoint's JSON body. RefreshToken is empty when the server did not rotate it.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// HasRefreshToken reports whether the response carries a new refresh token.
func (t *TokenResponse) HasRefreshToken() bool { return t.RefreshToken != "" }

// Token converts the response to an [oauth2.Token] with an absolute expiry.
func (t *TokenResponse) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
	}
	if t.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return tok
}

// Client talks to the accounts service.
type Client struct {
	cfg    Config
	oauth  *oauth2.Config
	http   transport.Executor
	logger *log.Logger
}

type Option func(*Client)

// WithExecutor overrides the transport used for the token endpoint.
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

// NewClient builds a [Client]. Missing endpoints fall back to the public Spotify accounts service.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.AccountsURL == "" {
		cfg.AccountsURL = DefaultAccountsURL
	}
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = DefaultRedirectURI
	}
	base := strings.TrimRight(cfg.AccountsURL, "/")

	c := &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + authorizePath,
				TokenURL: base + tokenPath,
			},
		},
		logger: shared.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = transport.New(base, transport.WithLogger(c.logger))
	}
	return c
}

// RedirectURI returns the callback the provider will redirect to.
func (c *Client) RedirectURI() string { return c.cfg.RedirectURI }

// OAuth2Config exposes the underlying [oauth2.Config].
func (c *Client) OAuth2Config() *oauth2.Config { return c.oauth }

// BuildAuthorizationURL returns the consent page URL. state is included when non-empty.
//
// The consent dialog is always forced so switching accounts is possible.
func (c *Client) BuildAuthorizationURL(state string) (string, error) {
	if shared.IsPlaceholder(c.cfg.ClientID) {
		return "", shared.Unauthorized(shared.ErrMissingCredentials)
	}

	raw := c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", shared.NewError(shared.KindInvalidURL, fmt.Errorf("authorize url %q: %v", raw, err))
	}
	return u.String(), nil
}

// ExchangeCodeForToken trades an authorization code for an access/refresh token pair.
func (c *Client) ExchangeCodeForToken(ctx context.Context, code string) (*TokenResponse, error) {
	if shared.IsPlaceholder(c.cfg.ClientID) || shared.IsPlaceholder(c.cfg.ClientSecret) {
		return nil, shared.Unauthorized(shared.ErrMissingCredentials)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {c.cfg.RedirectURI},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	return c.postToken(ctx, form)
}

// RefreshToken obtains a new access token. The response's refresh token is optional.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if shared.IsPlaceholder(c.cfg.ClientID) {
		return nil, shared.Unauthorized(shared.ErrMissingCredentials)
	}
	if refreshToken == "" {
		return nil, shared.Unauthorized(shared.ErrNoRefreshToken)
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.cfg.ClientID},
	}
	return c.postToken(ctx, form)
}

func (c *Client) postToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	grant := form.Get("grant_type")
	var resp TokenResponse
	err := c.http.Execute(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   c.oauth.Endpoint.TokenURL,
		Form:   form,
	}, &resp)
	if err != nil {
		c.logger.Warn("token request failed", "grant_type", grant, "err", err)
		return nil, tokenError(err)
	}

	if resp.AccessToken == "" {
		return nil, shared.NewError(shared.KindInvalidResponse, fmt.Errorf("token response without access_token"))
	}
	c.logger.Debug("token issued", "grant_type", grant, "expires_in", resp.ExpiresIn, "rotated", resp.HasRefreshToken())
	return &resp, nil
}

// tokenError narrows transport failures: 401 stays unauthorized, any other status is a server error
// carrying the code. Network and decode failures pass through.
func tokenError(err error) error {
	var appErr *shared.AppError
	if !errors.As(err, &appErr) || appErr.StatusCode == 0 || appErr.Kind == shared.KindUnauthorized {
		return err
	}
	return &shared.AppError{
		Kind:       shared.KindServerError,
		StatusCode: appErr.StatusCode,
		Message:    appErr.Message,
		Err:        appErr,
	}
}
