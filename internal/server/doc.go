// Package server provides the loopback HTTP plumbing for the interactive login.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] receives the provider's redirect. It validates the state parameter (CSRF protection),
// extracts the authorization code with [auth.ParseCallbackCode], and sends the result through a channel.
// The code is not exchanged here; the auth manager does that.
//
// It only processes one callback to prevent replay attacks.
//
// # Browser Session
//
// [LoopbackSession] implements [auth.BrowserSession]. It listens on the redirect URI's host and port,
// opens the authorization URL in the system browser, and waits for the callback, the context, or a
// two minute timeout, whichever comes first.
package server
