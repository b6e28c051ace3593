package server

import (
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/desertthunder/wamp/internal/auth"
	"github.com/desertthunder/wamp/internal/shared"
)

// OAuthResult contains the outcome of one authorization callback.
type OAuthResult struct {
	Code string
	Err  error
}

// OAuthHandler handles the redirect of the authorization code flow.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	path       string
	state      string
	resultChan chan OAuthResult
	once       sync.Once

	mu          sync.Mutex
	callbackHit bool
}

// NewOAuthHandler creates a handler serving path that accepts only callbacks carrying state.
// An empty state disables the check.
func NewOAuthHandler(path, state string) *OAuthHandler {
	if path == "" {
		path = "/callback"
	}
	return &OAuthHandler{
		path:       path,
		state:      state,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP validates the state parameter, extracts the code and sends the result through the result channel.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	if h.state != "" && r.URL.Query().Get("state") != h.state {
		err := shared.NewError(shared.KindInvalidResponse, fmt.Errorf("%w: state mismatch", shared.ErrAuthFailed))
		h.Send(OAuthResult{Err: err})
		renderPage(w, http.StatusBadRequest, "Authorization Failed", "The callback did not match this login attempt.")
		return
	}

	code, err := auth.ParseCallbackCode(r.URL.String())
	if err != nil {
		h.Send(OAuthResult{Err: err})
		msg := "Return to the terminal for details."
		if shared.IsKind(err, shared.KindUnauthorized) {
			msg = "Authorization was cancelled. You can close this window."
		}
		renderPage(w, http.StatusBadRequest, "Authorization Failed", msg)
		return
	}

	h.Send(OAuthResult{Code: code})
	renderPage(w, http.StatusOK, "✓ Authorization Successful", "You can close this window and return to the terminal.")
}

// Send sends the result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

var page = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: "Tahoma", "Verdana", sans-serif; display: flex; align-items: center;
               justify-content: center; height: 100vh; margin: 0; background: #232332; }
        .panel { text-align: center; background: #000; padding: 2rem; border: 2px outset #5a5a6e; }
        h1 { color: #00e000; font-family: monospace; margin: 0 0 1rem 0; }
        p { color: #c0c0c0; margin: 0; }
    </style>
</head>
<body>
    <div class="panel">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

func renderPage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page.Execute(w, struct{ Title, Message string }{title, message})
}
