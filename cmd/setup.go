package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/masteryee/nest-events/internal/auth"
	"github.com/masteryee/nest-events/internal/client"
	"github.com/masteryee/nest-events/internal/config"
	"github.com/masteryee/nest-events/internal/logging"
	"github.com/masteryee/nest-events/internal/notify"
)

// loadConfig reads and validates configuration, then sets up logging.
// A bad configuration is fatal.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.LoggingConfig())
	return cfg
}

func newAuthenticator(cfg *config.Config) *auth.Authenticator {
	return auth.NewAuthenticator(cfg.AuthConfig(), auth.NewStore(cfg.TokenFile))
}

// requireToken returns a valid access token, running the browser flow if
// the cached one is missing or expired.
func requireToken(ctx context.Context, cfg *config.Config) string {
	cred, err := newAuthenticator(cfg).AcquireToken(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("Could not obtain an access token. Run 'nest-events login' first.")
	}
	return cred.AccessToken
}

func newAPI(cfg *config.Config) *client.NestClient {
	return client.New(client.ClientConfig{
		BaseURL:       cfg.APIURL,
		TrustedSuffix: cfg.TrustedHostSuffix,
		UserAgent:     "nest-events",
	})
}

// buildNotifier composes every configured notifier, each behind its own
// rate and breaker guard. The returned func releases connections.
func buildNotifier(cfg *config.Config) (notify.Notifier, func(), error) {
	var (
		all     notify.Multi
		closers []func()
	)
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Notify.Log {
		all = append(all, notify.Log{})
	}

	if cfg.Notify.NATS.URL != "" {
		n, err := notify.NewNATS(cfg.Notify.NATS.URL, cfg.Notify.NATS.Subject)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = n.Close() })
		all = append(all, notify.NewGuard(n, cfg.GuardConfig("nats")))
	}

	if cfg.Notify.Webhook.URL != "" {
		w := notify.NewWebhook(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.Headers)
		all = append(all, notify.NewGuard(w, cfg.GuardConfig("webhook")))
	}

	if len(all) == 0 {
		logging.Warn().Msg("No notifiers configured; detections will only be counted")
	}

	return all, cleanup, nil
}
