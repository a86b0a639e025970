package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/masteryee/nest-events/internal/logging"
)

// GuardConfig limits how often a notifier is called.
type GuardConfig struct {
	Name string
	// MinInterval between deliveries; zero means unlimited.
	MinInterval time.Duration
	Burst       int
	// Failures in a row before the breaker opens; zero disables the breaker.
	Failures uint32
	// Cooldown is how long the breaker stays open before probing again.
	Cooldown time.Duration
}

// Guard wraps a notifier with a token-bucket limiter and a circuit breaker.
// Dropped deliveries fail with ErrRateLimited.
type Guard struct {
	next    Notifier
	name    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func NewGuard(next Notifier, cfg GuardConfig) *Guard {
	if cfg.Name == "" {
		cfg.Name = "notify"
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	g := &Guard{
		next:    next,
		name:    cfg.Name,
		limiter: rate.NewLimiter(limit, cfg.Burst),
	}

	if cfg.Failures > 0 {
		g.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: 1,
			Timeout:     cfg.Cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.Failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("notifier breaker changed state")
			},
		})
	}

	return g
}

func (g *Guard) Deliver(ctx context.Context, device, localTimestamp string) error {
	if !g.limiter.Allow() {
		return &DeliveryError{Notifier: g.name, Device: device, Err: ErrRateLimited}
	}

	if g.breaker == nil {
		return g.next.Deliver(ctx, device, localTimestamp)
	}

	_, err := g.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, g.next.Deliver(ctx, device, localTimestamp)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &DeliveryError{Notifier: g.name, Device: device, Err: fmt.Errorf("%w: %w", ErrRateLimited, err)}
	}
	return err
}

// State reports the breaker state, "closed" when there is no breaker.
func (g *Guard) State() string {
	if g.breaker == nil {
		return gobreaker.StateClosed.String()
	}
	return g.breaker.State().String()
}
