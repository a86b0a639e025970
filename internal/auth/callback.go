package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const callbackPage = `<!DOCTYPE html>
<html><head><title>nest-events</title></head>
<body><p>Authorization received. You can close this window.</p></body></html>`

// CallbackResult carries the query parameters of the redirect.
type CallbackResult struct {
	Code  string
	State string
	Error string
}

// CallbackListener is a loopback HTTP server that lives for exactly one
// authorization redirect.
type CallbackListener struct {
	addr string
	path string

	server   *http.Server
	listener net.Listener

	resultCh chan CallbackResult
	errCh    chan error

	accept sync.Once
	stop   sync.Once
}

// NewCallbackListener prepares a listener for redirectURL, e.g.
// "http://localhost:9999/". Nothing is bound until Start.
func NewCallbackListener(redirectURL string) (*CallbackListener, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect url %q: %w", redirectURL, err)
	}
	if u.Scheme != "http" || u.Port() == "" {
		return nil, fmt.Errorf("redirect url %q must be http with an explicit port", redirectURL)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	return &CallbackListener{
		addr:     u.Host,
		path:     path,
		resultCh: make(chan CallbackResult, 1),
		errCh:    make(chan error, 1),
	}, nil
}

// Start binds the port and serves in the background.
func (l *CallbackListener) Start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.addr, err)
	}
	l.listener = ln

	l.server = &http.Server{
		Handler:           http.HandlerFunc(l.handle),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case l.errCh <- err:
			default:
			}
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (l *CallbackListener) Addr() string {
	if l.listener != nil {
		return l.listener.Addr().String()
	}
	return l.addr
}

// Wait blocks until the redirect arrives, the server fails or ctx ends.
func (l *CallbackListener) Wait(ctx context.Context) (CallbackResult, error) {
	select {
	case res := <-l.resultCh:
		return res, nil
	case err := <-l.errCh:
		return CallbackResult{}, fmt.Errorf("callback listener failed: %w", err)
	case <-ctx.Done():
		return CallbackResult{}, ctx.Err()
	}
}

// Stop shuts the server down and releases the port. It is safe to call more
// than once and before Start.
func (l *CallbackListener) Stop() {
	l.stop.Do(func() {
		if l.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := l.server.Shutdown(ctx); err != nil {
				_ = l.server.Close()
			}
		}
		if l.listener != nil {
			_ = l.listener.Close()
		}
	})
}

func (l *CallbackListener) handle(w http.ResponseWriter, r *http.Request) {
	// Browsers also ask for /favicon.ico; only the redirect path counts.
	if r.URL.Path != l.path {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	handled := false
	l.accept.Do(func() {
		handled = true
		q := r.URL.Query()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Referrer-Policy", "no-referrer")
		_, _ = w.Write([]byte(callbackPage))

		l.resultCh <- CallbackResult{
			Code:  q.Get("code"),
			State: q.Get("state"),
			Error: q.Get("error"),
		}
	})

	if !handled {
		http.Error(w, "callback already processed", http.StatusBadRequest)
	}
}
