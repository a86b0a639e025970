package client

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redirectTo(target string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	}))
}

func TestRedirectTransport_ReissuesTrustedRedirectWithHeadersAndBody(t *testing.T) {
	var hits atomic.Int32
	shard := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/shard", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "payload", string(body))
		_, _ = w.Write([]byte("ok"))
	}))
	defer shard.Close()

	front := redirectTo(shard.URL + "/shard")
	defer front.Close()

	req, err := http.NewRequest(http.MethodPost, front.URL, strings.NewReader("payload"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")

	rt := NewRedirectTransport(nil, "127.0.0.1")
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(1), hits.Load())
}

func TestRedirectTransport_UntrustedRedirectReturnedUnmodified(t *testing.T) {
	var hits atomic.Int32
	elsewhere := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer elsewhere.Close()

	front := redirectTo(elsewhere.URL)
	defer front.Close()

	req, err := http.NewRequest(http.MethodGet, front.URL, nil)
	require.NoError(t, err)

	resp, err := NewRedirectTransport(nil, ".nest.com").RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, elsewhere.URL, resp.Header.Get("Location"))
	assert.Equal(t, int32(0), hits.Load())
}

func TestRedirectTransport_MissingLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTemporaryRedirect)
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := NewRedirectTransport(nil, "127.0.0.1").RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
}

func TestRedirectTransport_FollowsOnlyOnce(t *testing.T) {
	var finalHits atomic.Int32
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		finalHits.Add(1)
	}))
	defer final.Close()

	second := redirectTo(final.URL)
	defer second.Close()
	first := redirectTo(second.URL)
	defer first.Close()

	req, err := http.NewRequest(http.MethodGet, first.URL, nil)
	require.NoError(t, err)

	resp, err := NewRedirectTransport(nil, "127.0.0.1").RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, final.URL, resp.Header.Get("Location"))
	assert.Equal(t, int32(0), finalHits.Load())
}

func TestRedirectTransport_OtherStatusesPassThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://127.0.0.1:1/", http.StatusFound)
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := NewRedirectTransport(nil, "127.0.0.1").RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestRedirectTransport_TrustedIsCaseInsensitiveContainment(t *testing.T) {
	rt := NewRedirectTransport(nil, ".nest.com")
	assert.True(t, rt.trusted("firebase-apiserver03-tah01-iad01.dapi.production.NEST.com"))
	assert.True(t, rt.trusted("developer-api.nest.com"))
	assert.False(t, rt.trusted("nest.com.evil"))
	assert.False(t, rt.trusted("example.org"))
	assert.False(t, rt.trusted(""))
}
