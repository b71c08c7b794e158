package oidc

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
)

// CallbackResult is what the IdP redirected back with.
type CallbackResult struct {
	Code  string
	State string
}

// CallbackServer listens on the loopback redirect URL and captures a single
// authorization response.
type CallbackServer struct {
	listener net.Listener
	path     string
	logger   *slog.Logger
	results  chan callbackOutcome
	server   *http.Server
}

type callbackOutcome struct {
	res CallbackResult
	err error
}

// ListenCallback binds the host:port of redirectURL. Call it before opening
// the browser so the redirect cannot arrive before the listener exists.
func ListenCallback(redirectURL string, logger *slog.Logger) (*CallbackServer, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("parse redirect url: %w", err)
	}
	if u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("redirect url must be an http loopback address: %q", redirectURL)
	}
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", u.Host, err)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	cs := &CallbackServer{
		listener: ln,
		path:     path,
		logger:   logger.With("component", "oidc_callback"),
		results:  make(chan callbackOutcome, 1),
	}

	r := mux.NewRouter()
	r.HandleFunc(path, cs.handle).Methods(http.MethodGet)
	cs.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if serveErr := cs.server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			cs.logger.Warn("callback server stopped", "error", serveErr)
		}
	}()
	return cs, nil
}

// Addr returns the bound address.
func (cs *CallbackServer) Addr() string { return cs.listener.Addr().String() }

func (cs *CallbackServer) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var out callbackOutcome
	switch {
	case q.Get("error") != "":
		out.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
	case q.Get("code") == "":
		out.err = errors.New("authorization response is missing the code")
	default:
		out.res = CallbackResult{Code: q.Get("code"), State: q.Get("state")}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if out.err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprintf(w, "<p>Sign-in failed: %s</p>", html.EscapeString(out.err.Error()))
	} else {
		_, _ = fmt.Fprint(w, "<p>Signed in. You can close this window.</p>")
	}

	select {
	case cs.results <- out:
	default:
		// A result was already captured; later hits are ignored.
	}
}

// Wait blocks until the redirect arrives or ctx ends, checks the state, and
// shuts the listener down.
func (cs *CallbackServer) Wait(ctx context.Context, expectedState string) (CallbackResult, error) {
	defer cs.Close()
	select {
	case <-ctx.Done():
		return CallbackResult{}, ctx.Err()
	case out := <-cs.results:
		if out.err != nil {
			return CallbackResult{}, out.err
		}
		if out.res.State != expectedState {
			return CallbackResult{}, errors.New("state mismatch in authorization response")
		}
		return out.res, nil
	}
}

// Close stops the listener.
func (cs *CallbackServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = cs.server.Shutdown(ctx)
}
