package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// AuthTimeout is how long to wait for the user to complete auth
var AuthTimeout = 5 * time.Minute

const successPage = `<!DOCTYPE html>
<html>
<head><title>Vertical Coach</title></head>
<body style="font-family: system-ui; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0;">
<div style="text-align: center;">
<h1 style="color: #FC4C02;">Connected to Strava</h1>
<p>You can close this tab and go back to the terminal.</p>
</div>
</body>
</html>`

// callbackResult is what the redirect delivered: a code or a reason there is none
type callbackResult struct {
	code string
	err  error
}

// callbackListener accepts exactly one OAuth redirect carrying the expected state
type callbackListener struct {
	state  string
	result chan callbackResult
	server *http.Server
}

func newCallbackListener(path, state string) *callbackListener {
	l := &callbackListener{
		state:  state,
		result: make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, l.handle)
	l.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return l
}

func (l *callbackListener) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// A bare visit to the origin (favicon, reload) is not a callback
	if q.Get("code") == "" && q.Get("error") == "" && q.Get("state") == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case q.Get("state") != l.state:
		l.deliver(callbackResult{err: errors.New("state mismatch - possible CSRF attack")})
		http.Error(w, "State mismatch", http.StatusBadRequest)
	case q.Get("error") != "":
		l.deliver(callbackResult{err: fmt.Errorf("authorization denied: %s", q.Get("error"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
	case q.Get("code") == "":
		l.deliver(callbackResult{err: errors.New("no code in callback")})
		http.Error(w, "No authorization code", http.StatusBadRequest)
	default:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, successPage)
		l.deliver(callbackResult{code: q.Get("code")})
	}
}

// deliver keeps the first result; later redirects are ignored
func (l *callbackListener) deliver(res callbackResult) {
	select {
	case l.result <- res:
	default:
	}
}

func (l *callbackListener) serve(ln net.Listener) {
	if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.deliver(callbackResult{err: fmt.Errorf("callback server: %w", err)})
	}
}

func (l *callbackListener) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	l.server.Shutdown(ctx)
}

// Authorize runs the full authorization-code flow: it listens on the
// redirect URL, sends the user to Strava, waits for the callback and
// exchanges the code.
func Authorize(ctx context.Context, m *Manager) error {
	redirect, err := url.Parse(m.RedirectURL())
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("%w: invalid redirect url %q", ErrConfiguration, m.RedirectURL())
	}

	path := redirect.Path
	if path == "" {
		path = "/"
	}

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("starting callback server: %w", err)
	}

	l := newCallbackListener(path, uuid.NewString())
	go l.serve(ln)

	if err := m.InitiateAuthorization(l.state); err != nil {
		// The URL is logged; the user can still open it by hand
		m.log.WithError(err).Warn("could not open browser")
	}

	timer := time.NewTimer(AuthTimeout)
	defer timer.Stop()

	var res callbackResult
	select {
	case res = <-l.result:
	case <-timer.C:
		res.err = fmt.Errorf("authorization timed out after %v", AuthTimeout)
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	l.close()

	if res.err != nil {
		return res.err
	}
	return m.CompleteAuthorization(ctx, res.code)
}
