package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masteryee/nest-events/internal/metrics"
)

func TestStatusServer_Routes(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	m.Decision("notify")

	srv := httptest.NewServer(NewStatusServer(":0", m.Registry).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `nest_events_camera_decisions_total{outcome="notify"} 1`)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusServer_ServeStopsOnCancel(t *testing.T) {
	s := NewStatusServer("127.0.0.1:0", prometheus.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	require.Eventually(t, func() bool { return s.URL() != "" }, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get(s.URL() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("status server did not stop")
	}
}

func TestStatusServer_ListenError(t *testing.T) {
	s := NewStatusServer("256.0.0.1:bad", prometheus.NewRegistry())
	err := s.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status server listen")
}

type countingService struct {
	started atomic.Int32
	stopped atomic.Int32
}

func (c *countingService) Serve(ctx context.Context) error {
	c.started.Add(1)
	<-ctx.Done()
	c.stopped.Add(1)
	return ctx.Err()
}

func TestProgram_StartStop(t *testing.T) {
	svc := &countingService{}
	p := NewProgram(svc)

	require.NoError(t, p.Start(nil))
	require.Eventually(t, func() bool { return svc.started.Load() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Stop(nil))
	assert.Equal(t, int32(1), svc.stopped.Load())
}

func TestProgram_StopBeforeStart(t *testing.T) {
	assert.NoError(t, NewProgram().Stop(nil))
}

func TestConfig(t *testing.T) {
	cfg := Config([]string{"listen"})
	assert.Equal(t, "nest-events", cfg.Name)
	assert.Equal(t, []string{"listen"}, cfg.Arguments)
}
