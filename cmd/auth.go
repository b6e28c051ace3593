package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/wamp/internal/models"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the browser login and stores the resulting tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}

	r.logger.Info("starting spotify login")
	user, err := r.auth.Authenticate(ctx)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Logged in as %s\n", displayName(user))
	r.writePlain("✓ Tokens saved to the %s store\n\n", r.store.Backend())
	r.writePlain("You can now use: wamp library playlists\n")
	return nil
}

// AuthLogout removes the stored tokens.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}
	if err := r.auth.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

type authStatus struct {
	Authenticated bool         `json:"authenticated"`
	Store         string       `json:"store"`
	User          *models.User `json:"user,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// AuthStatus reports whether tokens are stored and, if so, whether they still work.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}

	r.logger.Info("checking auth status")
	status := authStatus{Store: r.store.Backend()}
	if r.auth.IsAuthenticated(ctx) {
		user, err := r.auth.Restore(ctx)
		if err != nil {
			status.Error = err.Error()
		} else {
			status.Authenticated = true
			status.User = user
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	r.writePlain("Token store: %s\n", status.Store)
	switch {
	case status.Authenticated:
		r.writePlain("Authentication: ✓ Authenticated as %s\n", displayName(status.User))
	case status.Error != "":
		r.writePlain("Authentication: ✗ Stored login rejected (%s)\n", status.Error)
	default:
		r.writePlain("Authentication: ✗ Not authenticated\n")
	}
	return nil
}

// AuthRefresh forces a token refresh.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}
	if err := r.auth.RefreshAccessToken(ctx); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	return r.writePlain("✓ Access token refreshed\n")
}

// AuthWhoami prints the signed-in user's profile.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	user, err := r.session(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, cmd.Bool("pretty"))
	}

	r.writePlain("%s\n", displayName(user))
	r.writePlain("   ID: %s\n", user.ID)
	if user.Email != "" {
		r.writePlain("   Email: %s\n", user.Email)
	}
	return nil
}

func displayName(u *models.User) string {
	if u == nil {
		return "unknown user"
	}
	return u.Name()
}
