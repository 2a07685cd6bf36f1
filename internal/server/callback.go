package server

import (
	"fmt"
	"net/http"
	"sync"
)

// Callback contains the raw authorization response captured from the
// redirect URI.
type Callback struct {
	Code     string
	State    string
	ErrParam string // provider error code, e.g. "access_denied"
	ErrDesc  string
}

// Denied reports whether the provider returned an error instead of a code.
func (c Callback) Denied() bool {
	return c.ErrParam != ""
}

// CallbackHandler captures the OAuth2 authorization callback.
// Implements the Handler interface for registration with a Router.
//
// The handler performs no validation beyond presence checks; state
// comparison and the code exchange belong to the flow engine, which owns
// the pending authorization.
type CallbackHandler struct {
	path       string
	resultChan chan Callback
	once       sync.Once
	mu         sync.Mutex
	hit        bool
}

// NewCallbackHandler creates a handler serving the given path (e.g. "/callback").
func NewCallbackHandler(path string) *CallbackHandler {
	if path == "" {
		path = "/callback"
	}
	return &CallbackHandler{
		path:       path,
		resultChan: make(chan Callback, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the authorization callback request.
//
// Captures code, state, and any provider error from the query string and
// sends them through the result channel. Only the first callback is
// processed.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	q := r.URL.Query()
	cb := Callback{
		Code:     q.Get("code"),
		State:    q.Get("state"),
		ErrParam: q.Get("error"),
		ErrDesc:  q.Get("error_description"),
	}

	h.Send(cb)

	w.Header().Set("Content-Type", "text/html")
	if cb.Denied() {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, resultPage("✗ Authorization Denied", "You can close this window and return to the terminal."))
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, resultPage("✓ Authorization Successful", "You can close this window and return to the terminal."))
}

// Send delivers the callback through the channel (only once).
func (h *CallbackHandler) Send(cb Callback) {
	h.once.Do(func() {
		h.resultChan <- cb
		close(h.resultChan)
	})
}

// Result returns the channel for receiving the captured callback.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan Callback {
	return h.resultChan
}

func resultPage(heading, body string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <title>%[1]s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%[1]s</h1>
        <p>%[2]s</p>
    </div>
</body>
</html>
`, heading, body)
}
