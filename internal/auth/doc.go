// Package auth drives the login state machine.
//
// # States
//
// A [Manager] moves between [Unauthenticated], [Authenticating] and [Authenticated]:
//
//   - [Manager.Authenticate] builds the authorization URL, hands it to a [BrowserSession],
//     exchanges the returned code, persists both tokens, installs the access token into the
//     API client and fetches the user profile. Any failure returns to Unauthenticated.
//   - [Manager.RefreshAccessToken] trades the stored refresh token for a new access token. It is
//     registered as the API client's token-expired callback so it also runs mid-request.
//   - [Manager.Logout] deletes both tokens and clears the in-memory token.
//
// # Credentials
//
// "Authenticated" means both tokens can be read from the [TokenStore]. Store errors are reported
// as not authenticated. The refresh token is only replaced when the token endpoint returns a new one.
package auth
