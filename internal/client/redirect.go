package client

import (
	"io"
	"net/http"
	"strings"
)

// RedirectTransport re-issues a request that was answered with
// 307 Temporary Redirect, keeping the method, body and every header.
//
// net/http drops the Authorization header when it follows a redirect to a
// different host, and the hub answers the first streaming request with a 307
// to a per-account shard. Only targets whose host contains TrustedSuffix
// (case-insensitive) are followed, and only once.
type RedirectTransport struct {
	Base          http.RoundTripper
	TrustedSuffix string
}

// NewRedirectTransport wraps base (http.DefaultTransport when nil).
func NewRedirectTransport(base http.RoundTripper, trustedSuffix string) *RedirectTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RedirectTransport{Base: base, TrustedSuffix: trustedSuffix}
}

func (t *RedirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.Base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusTemporaryRedirect {
		return resp, err
	}

	loc, err := resp.Location()
	if err != nil || !t.trusted(loc.Hostname()) {
		return resp, nil
	}

	next := req.Clone(req.Context())
	next.URL = loc
	next.Host = ""
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			// The body was consumed and cannot be replayed.
			return resp, nil
		}
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		next.Body = body
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()

	return t.Base.RoundTrip(next)
}

func (t *RedirectTransport) trusted(host string) bool {
	if host == "" || t.TrustedSuffix == "" {
		return false
	}
	return strings.Contains(strings.ToLower(host), strings.ToLower(t.TrustedSuffix))
}
