package auth

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/wamp/internal/keychain"
	"github.com/desertthunder/wamp/internal/oauth"
	"github.com/desertthunder/wamp/internal/shared"
	"github.com/desertthunder/wamp/internal/spotify"
	tu "github.com/desertthunder/wamp/internal/testing"
	"github.com/desertthunder/wamp/internal/transport"
)

type fakeBrowser struct {
	code     string
	err      error
	block    chan struct{}
	authURL  string
	callback string
}

func (b *fakeBrowser) Authorize(ctx context.Context, authURL, callbackURL string) (string, error) {
	b.authURL, b.callback = authURL, callbackURL
	if b.block != nil {
		select {
		case <-b.block:
		case <-ctx.Done():
			return "", shared.Unauthorized(shared.ErrAuthCancelled)
		}
	}
	return b.code, b.err
}

type failingBackend struct{}

func (failingBackend) Name() string                    { return "failing" }
func (failingBackend) Set(_, _, _ string) error        { return errors.New("locked") }
func (failingBackend) Get(_, _ string) (string, error) { return "", errors.New("locked") }
func (failingBackend) Delete(_, _ string) error        { return errors.New("locked") }

// accounts answers the token endpoint: the code exchange returns A1/R1, refreshes hand out refreshTokens in order.
type accounts struct {
	mu        sync.Mutex
	refreshes []oauth.TokenResponse
	forms     []url.Values
}

func (a *accounts) handle(_ int, req *transport.Request) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.forms = append(a.forms, req.Form)

	switch req.Form.Get("grant_type") {
	case "authorization_code":
		return oauth.TokenResponse{AccessToken: "A1", TokenType: "Bearer", ExpiresIn: 3600, RefreshToken: "R1"}, nil
	case "refresh_token":
		if len(a.refreshes) == 0 {
			return nil, shared.Unauthorized(nil)
		}
		next := a.refreshes[0]
		a.refreshes = a.refreshes[1:]
		return next, nil
	}
	return nil, shared.NewError(shared.KindBadRequest, nil)
}

type fixture struct {
	valid    []string
	manager  *Manager
	store    *keychain.Store
	api      *spotify.Client
	apiExec  *tu.RecordingExecutor
	accounts *accounts
	browser  *fakeBrowser
}

// newFixture builds a manager over real components. The API accepts only f.valid tokens and serves user u1.
func newFixture(t *testing.T, validTokens ...string) *fixture {
	t.Helper()
	f := &fixture{
		valid:    validTokens,
		store:    keychain.NewStore(keychain.NewMemoryBackend(), keychain.DefaultService, nil),
		accounts: &accounts{},
		browser:  &fakeBrowser{code: "abc123"},
	}
	f.apiExec = tu.NewRecordingExecutor(func(_ int, req *transport.Request) (any, error) {
		token := strings.TrimPrefix(req.Headers["Authorization"], "Bearer ")
		if !slices.Contains(f.valid, token) {
			return nil, shared.Unauthorized(nil)
		}
		return spotify.SpotifyUser{ID: "u1", DisplayName: "User One"}, nil
	})
	f.api = spotify.NewClient("", spotify.WithExecutor(f.apiExec))

	oc := oauth.NewClient(oauth.Config{ClientID: "cid", ClientSecret: "secret", RedirectURI: "winampspotify://callback"},
		oauth.WithExecutor(tu.NewRecordingExecutor(f.accounts.handle)))
	f.manager = NewManager(f.store, oc, f.api, f.browser, nil)
	return f
}

func (f *fixture) stored(t *testing.T, kind keychain.Kind) string {
	t.Helper()
	v, _, err := f.store.Get(kind)
	if err != nil {
		t.Fatalf("store read failed: %v", err)
	}
	return v
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("login persists tokens and fetches user", func(t *testing.T) {
		f := newFixture(t, "A1")

		user, err := f.manager.Authenticate(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID != "u1" {
			t.Errorf("expected u1, got %s", user.ID)
		}
		if f.manager.State() != Authenticated {
			t.Errorf("expected authenticated, got %s", f.manager.State())
		}
		if cu := f.manager.CurrentUser(); cu == nil || cu.ID != "u1" {
			t.Errorf("unexpected current user %+v", cu)
		}
		if got := f.stored(t, keychain.AccessToken); got != "A1" {
			t.Errorf("expected A1 stored, got %q", got)
		}
		if got := f.stored(t, keychain.RefreshToken); got != "R1" {
			t.Errorf("expected R1 stored, got %q", got)
		}
		if f.api.AccessToken() != "A1" {
			t.Errorf("expected A1 installed, got %q", f.api.AccessToken())
		}
		if !f.manager.IsAuthenticated(ctx) {
			t.Error("expected IsAuthenticated")
		}

		if f.browser.callback != "winampspotify://callback" {
			t.Errorf("unexpected callback %q", f.browser.callback)
		}
		u, _ := url.Parse(f.browser.authURL)
		if u.Query().Get("client_id") != "cid" || u.Query().Get("state") == "" {
			t.Errorf("unexpected authorization url %s", f.browser.authURL)
		}
		if form := f.accounts.forms[0]; form.Get("code") != "abc123" {
			t.Errorf("expected code abc123, got %v", form)
		}
	})

	t.Run("cancellation returns to unauthenticated", func(t *testing.T) {
		f := newFixture(t, "A1")
		f.browser.err = shared.Unauthorized(shared.ErrAuthCancelled)

		_, err := f.manager.Authenticate(ctx)
		if !errors.Is(err, shared.ErrAuthCancelled) || !shared.IsKind(err, shared.KindUnauthorized) {
			t.Errorf("expected cancellation, got %v", err)
		}
		if shared.IsRetryable(err) {
			t.Error("cancellation must not be retryable")
		}
		if f.manager.State() != Unauthenticated {
			t.Errorf("expected unauthenticated, got %s", f.manager.State())
		}
		if f.manager.IsAuthenticated(ctx) {
			t.Error("nothing should be stored")
		}
		if len(f.accounts.forms) != 0 {
			t.Error("no exchange should happen")
		}
	})

	t.Run("profile failure reverts state", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.Authenticate(ctx)
		if !shared.IsKind(err, shared.KindUnauthorized) {
			t.Errorf("expected unauthorized, got %v", err)
		}
		if f.manager.State() != Unauthenticated || f.manager.CurrentUser() != nil {
			t.Errorf("expected unauthenticated without user")
		}
		if f.api.AccessToken() != "" {
			t.Errorf("token should be cleared, got %q", f.api.AccessToken())
		}
		if f.manager.IsAuthenticated(ctx) {
			t.Error("a failed login must not leave a session behind")
		}
		for _, kind := range []keychain.Kind{keychain.AccessToken, keychain.RefreshToken} {
			if v := f.stored(t, kind); v != "" {
				t.Errorf("%s should be discarded, got %q", kind, v)
			}
		}
		if _, err := f.manager.Restore(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("restore after failed login: expected not authenticated, got %v", err)
		}
	})

	t.Run("concurrent login is rejected", func(t *testing.T) {
		f := newFixture(t, "A1")
		f.browser.block = make(chan struct{})

		done := make(chan error, 1)
		go func() {
			_, err := f.manager.Authenticate(ctx)
			done <- err
		}()

		deadline := time.Now().Add(time.Second)
		for f.manager.State() != Authenticating {
			if time.Now().After(deadline) {
				t.Fatal("never entered authenticating")
			}
			time.Sleep(time.Millisecond)
		}

		if _, err := f.manager.Authenticate(ctx); !errors.Is(err, shared.ErrAuthInProgress) {
			t.Errorf("expected ErrAuthInProgress, got %v", err)
		}

		close(f.browser.block)
		if err := <-done; err != nil {
			t.Errorf("first login failed: %v", err)
		}
	})

	t.Run("state listeners observe transitions", func(t *testing.T) {
		f := newFixture(t, "A1")
		var seen []State
		f.manager.OnStateChange(func(s State) { seen = append(seen, s) })

		if _, err := f.manager.Authenticate(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := f.manager.Logout(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []State{Authenticating, Authenticated, Unauthenticated}
		if !slices.Equal(seen, want) {
			t.Errorf("expected %v, got %v", want, seen)
		}
	})
}

func TestRefreshAccessToken(t *testing.T) {
	ctx := context.Background()

	t.Run("expired token refreshes and keeps refresh token", func(t *testing.T) {
		f := newFixture(t, "A1")
		if _, err := f.manager.Authenticate(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		calls := f.apiExec.Count()

		f.valid = []string{"A2"}
		f.accounts.refreshes = []oauth.TokenResponse{{AccessToken: "A2", TokenType: "Bearer", ExpiresIn: 3600}}

		user, err := f.api.UserProfile(ctx)
		if err != nil {
			t.Fatalf("retried call failed: %v", err)
		}
		if user.ID != "u1" {
			t.Errorf("expected u1, got %s", user.ID)
		}
		if got := f.stored(t, keychain.AccessToken); got != "A2" {
			t.Errorf("expected A2 stored, got %q", got)
		}
		if got := f.stored(t, keychain.RefreshToken); got != "R1" {
			t.Errorf("expected R1 kept, got %q", got)
		}
		if f.api.AccessToken() != "A2" {
			t.Errorf("expected A2 installed, got %q", f.api.AccessToken())
		}

		form := f.accounts.forms[len(f.accounts.forms)-1]
		if form.Get("refresh_token") != "R1" || form.Get("client_id") != "cid" {
			t.Errorf("unexpected refresh form %v", form)
		}
		if n := f.apiExec.Count() - calls; n != 2 {
			t.Errorf("expected one 401 and one retry, got %d calls", n)
		}
	})

	t.Run("rotated refresh token is stored", func(t *testing.T) {
		f := newFixture(t, "A1")
		if _, err := f.manager.Authenticate(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f.accounts.refreshes = []oauth.TokenResponse{{AccessToken: "A2", RefreshToken: "R2"}}

		if err := f.manager.RefreshAccessToken(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := f.stored(t, keychain.RefreshToken); got != "R2" {
			t.Errorf("expected R2, got %q", got)
		}
		if got := f.stored(t, keychain.AccessToken); got != "A2" {
			t.Errorf("expected A2, got %q", got)
		}
	})

	t.Run("missing refresh token is unauthorized", func(t *testing.T) {
		f := newFixture(t)

		err := f.manager.RefreshAccessToken(ctx)
		if !errors.Is(err, shared.ErrNoRefreshToken) || !shared.IsKind(err, shared.KindUnauthorized) {
			t.Errorf("expected unauthorized no-refresh-token, got %v", err)
		}
		if len(f.accounts.forms) != 0 {
			t.Error("token endpoint should not be called")
		}
	})

	t.Run("rejected refresh leaves tokens untouched", func(t *testing.T) {
		f := newFixture(t, "A1")
		if _, err := f.manager.Authenticate(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := f.manager.RefreshAccessToken(ctx); !shared.IsKind(err, shared.KindUnauthorized) {
			t.Errorf("expected unauthorized, got %v", err)
		}
		if got := f.stored(t, keychain.AccessToken); got != "A1" {
			t.Errorf("expected A1 kept, got %q", got)
		}
	})
}

func TestLogoutAndChecks(t *testing.T) {
	ctx := context.Background()

	t.Run("logout deletes both tokens", func(t *testing.T) {
		f := newFixture(t, "A1")
		if _, err := f.manager.Authenticate(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := f.manager.Logout(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.manager.IsAuthenticated(ctx) {
			t.Error("expected logged out")
		}
		if f.api.AccessToken() != "" {
			t.Error("in-memory token should be cleared")
		}
		if f.manager.State() != Unauthenticated || f.manager.CurrentUser() != nil {
			t.Error("expected unauthenticated without user")
		}
		if _, found, _ := f.store.Get(keychain.RefreshToken); found {
			t.Error("refresh token should be gone")
		}
	})

	t.Run("logout on empty store succeeds", func(t *testing.T) {
		f := newFixture(t)
		if err := f.manager.Logout(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("store errors read as not authenticated", func(t *testing.T) {
		store := keychain.NewStore(failingBackend{}, keychain.DefaultService, nil)
		api := spotify.NewClient("", spotify.WithExecutor(tu.NewRecordingExecutor(func(int, *transport.Request) (any, error) { return nil, nil })))
		m := NewManager(store, oauth.NewClient(oauth.Config{ClientID: "cid"}), api, nil, nil)

		if m.IsAuthenticated(ctx) || m.CheckAuthentication(ctx) {
			t.Error("expected not authenticated")
		}
	})

	t.Run("only one token is not authenticated", func(t *testing.T) {
		f := newFixture(t)
		if err := f.store.SaveAccessToken("A1"); err != nil {
			t.Fatal(err)
		}
		if f.manager.IsAuthenticated(ctx) {
			t.Error("access token alone should not count")
		}
	})

	t.Run("check demotes a session whose tokens vanished", func(t *testing.T) {
		f := newFixture(t, "A1")
		if _, err := f.manager.Authenticate(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := f.store.DeleteAll(); err != nil {
			t.Fatal(err)
		}

		if f.manager.CheckAuthentication(ctx) {
			t.Error("expected not authenticated")
		}
		if f.manager.State() != Unauthenticated {
			t.Errorf("expected unauthenticated, got %s", f.manager.State())
		}
	})

	t.Run("no browser session fails cleanly", func(t *testing.T) {
		f := newFixture(t, "A1")
		f.manager.browser = nil

		if _, err := f.manager.Authenticate(ctx); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("rehydrates from stored tokens", func(t *testing.T) {
		f := newFixture(t, "A1")
		f.store.SaveAccessToken("A1")
		f.store.SaveRefreshToken("R1")

		user, err := f.manager.Restore(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID != "u1" || f.manager.State() != Authenticated {
			t.Errorf("unexpected restore result %+v %s", user, f.manager.State())
		}
	})

	t.Run("expired access token refreshes during restore", func(t *testing.T) {
		f := newFixture(t, "A2")
		f.store.SaveAccessToken("A1")
		f.store.SaveRefreshToken("R1")
		f.accounts.refreshes = []oauth.TokenResponse{{AccessToken: "A2"}}

		if _, err := f.manager.Restore(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := f.stored(t, keychain.AccessToken); got != "A2" {
			t.Errorf("expected A2, got %q", got)
		}
	})

	t.Run("empty store is not authenticated", func(t *testing.T) {
		f := newFixture(t, "A1")

		_, err := f.manager.Restore(ctx)
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if f.apiExec.Count() != 0 {
			t.Error("no API call expected")
		}
	})
}

func TestParseCallbackCode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     string
		wantKind shared.Kind
		wantErr  error
	}{
		{name: "custom scheme", raw: "winampspotify://callback?code=abc123&state=s1", want: "abc123"},
		{name: "loopback", raw: "http://127.0.0.1:8888/callback?state=s&code=xyz", want: "xyz"},
		{name: "user cancelled", raw: "winampspotify://callback?error=access_denied&state=s",
			wantKind: shared.KindUnauthorized, wantErr: shared.ErrAuthCancelled},
		{name: "other provider error", raw: "winampspotify://callback?error=server_error",
			wantKind: shared.KindInvalidResponse, wantErr: shared.ErrAuthFailed},
		{name: "missing code", raw: "winampspotify://callback?state=s", wantKind: shared.KindInvalidResponse},
		{name: "unparseable", raw: "://bad url", wantKind: shared.KindInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := ParseCallbackCode(tt.raw)
			if tt.wantKind == shared.KindUnknown {
				if err != nil || code != tt.want {
					t.Errorf("expected %q, got %q (%v)", tt.want, code, err)
				}
				return
			}
			if !shared.IsKind(err, tt.wantKind) {
				t.Errorf("expected kind %s, got %v", tt.wantKind, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v in chain, got %v", tt.wantErr, err)
			}
		})
	}
}
