package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/masteryee/nest-events/internal/logging"
)

// StatusServer serves /metrics and /healthz while the listener runs.
type StatusServer struct {
	addr     string
	handler  http.Handler
	started  time.Time
	shutdown time.Duration

	mu       sync.Mutex
	boundURL string
}

func NewStatusServer(addr string, reg *prometheus.Registry) *StatusServer {
	s := &StatusServer{
		addr:     addr,
		started:  time.Now(),
		shutdown: 5 * time.Second,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", s.health)

	s.handler = r
	return s
}

func (s *StatusServer) Handler() http.Handler {
	return s.handler
}

// URL is the base URL once Serve has bound its socket.
func (s *StatusServer) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundURL
}

func (s *StatusServer) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// Serve implements suture.Service.
func (s *StatusServer) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("status server listen: %w", err)
	}

	s.mu.Lock()
	s.boundURL = "http://" + ln.Addr().String()
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logging.Info().Str("addr", ln.Addr().String()).Msg("status server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("status server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("status server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *StatusServer) String() string {
	return "status-server"
}
