// Package auth obtains and caches the hub access token.
//
// The authorization code flow runs against a loopback redirect: a
// CallbackListener is bound, the authorization page is opened in the user's
// browser, and the single redirect that comes back is checked for the state
// token we generated before the code is exchanged.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/masteryee/nest-events/internal/logging"
	"github.com/masteryee/nest-events/pkg/models"
)

// Config is the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	RedirectURL  string // loopback URL the hub redirects to, e.g. http://localhost:9999/
}

// Authenticator hands out a valid access credential, running the browser
// flow only when the cached one is missing or expired.
type Authenticator struct {
	cfg        Config
	oauth      *oauth2.Config
	store      *Store
	httpClient *http.Client
	openURL    func(string) error
	now        func() time.Time
}

// Option customises an Authenticator.
type Option func(*Authenticator)

// WithHTTPClient sets the client used for the code exchange.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Authenticator) { a.httpClient = c }
}

// WithURLOpener replaces the browser launcher.
func WithURLOpener(open func(string) error) Option {
	return func(a *Authenticator) { a.openURL = open }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// NewAuthenticator builds an Authenticator that caches credentials in store.
func NewAuthenticator(cfg Config, store *Store, opts ...Option) *Authenticator {
	a := &Authenticator{
		cfg:   cfg,
		store: store,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		openURL:    OpenBrowser,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AcquireToken returns the cached credential while it is unexpired and
// otherwise authorizes interactively.
func (a *Authenticator) AcquireToken(ctx context.Context) (*models.Credential, error) {
	cred, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	if cred.Valid(a.now()) {
		logging.Debug().Time("expires", cred.Expiration).Msg("Using cached access token")
		return cred, nil
	}
	if cred != nil {
		logging.Info().Time("expired", cred.Expiration).Msg("Cached access token expired")
	}
	return a.Authorize(ctx)
}

// Authorize runs the browser flow unconditionally and persists the result.
func (a *Authenticator) Authorize(ctx context.Context) (*models.Credential, error) {
	if a.cfg.ClientID == "" || a.cfg.ClientSecret == "" {
		return nil, errors.New("client_id and client_secret must be configured to authorize")
	}

	// 1. Bind the redirect listener before anything can redirect to it
	listener, err := NewCallbackListener(a.cfg.RedirectURL)
	if err != nil {
		return nil, err
	}
	if err := listener.Start(); err != nil {
		return nil, err
	}
	defer listener.Stop()
	logging.Info().Str("addr", listener.Addr()).Msg("Listening for authorization redirect")

	// 2. Send the user to the authorization page
	state := newStateToken()
	authURL := a.oauth.AuthCodeURL(state)
	if err := a.openURL(authURL); err != nil {
		logging.Warn().Err(err).Str("url", authURL).Msg("Could not open a browser, visit the URL manually")
	} else {
		logging.Info().Str("url", authURL).Msg("Opened browser for authorization")
	}

	// 3. Exactly one redirect is accepted
	res, err := listener.Wait(ctx)
	listener.Stop()
	if err != nil {
		return nil, err
	}
	logging.Info().Msg("Stopped listening for authorization redirect")

	if subtle.ConstantTimeCompare([]byte(res.State), []byte(state)) != 1 {
		logging.Warn().
			Int("expected_state_len", len(state)).
			Int("received_state_len", len(res.State)).
			Msg("Authorization state mismatch")
		return nil, ErrAuthorizationIntegrity
	}
	if res.Error != "" {
		return nil, fmt.Errorf("authorization denied: %s", res.Error)
	}
	if res.Code == "" {
		return nil, errors.New("authorization redirect carried no code")
	}

	// 4. Trade the code for a token and cache it
	cred, err := a.exchange(ctx, res.Code)
	if err != nil {
		return nil, err
	}
	if err := a.store.Save(cred); err != nil {
		return nil, err
	}

	logging.Info().Time("expires", cred.Expiration).Str("file", a.store.Path()).Msg("Access token saved")
	return cred, nil
}

func (a *Authenticator) exchange(ctx context.Context, code string) (*models.Credential, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, &TransportError{Op: "code exchange", Err: err}
	}
	if tok.AccessToken == "" {
		return nil, &TransportError{Op: "code exchange", Err: errors.New("response carried no access_token")}
	}

	now := a.now().UTC()
	expiry := now
	if secs, ok := expiresIn(tok); ok {
		expiry = now.Add(time.Duration(secs) * time.Second)
	} else if !tok.Expiry.IsZero() {
		expiry = tok.Expiry.UTC()
	}

	return &models.Credential{AccessToken: tok.AccessToken, Expiration: expiry}, nil
}

// expiresIn reads the raw expires_in field so expiry is measured on our clock.
func expiresIn(tok *oauth2.Token) (int64, bool) {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// newStateToken returns 32 random hex characters.
func newStateToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
