// Package service runs the listener as a long-lived, optionally installed
// system service.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kardianos/service"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/masteryee/nest-events/internal/logging"
)

const (
	Name        = "nest-events"
	DisplayName = "Nest Person Alerts"
	Description = "Watches the Nest event stream and sends person alerts"
)

// Config describes the system service. arguments are passed to the binary
// when the service manager starts it.
func Config(arguments []string) *service.Config {
	return &service.Config{
		Name:        Name,
		DisplayName: DisplayName,
		Description: Description,
		Arguments:   arguments,
	}
}

// NewSupervisor builds the root supervisor, logging its events through slog.
func NewSupervisor(logger *slog.Logger) *suture.Supervisor {
	handler := &sutureslog.Handler{Logger: logger}
	return suture.New(Name, suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})
}

// Program implements the kardianos/service interface. Start launches the
// supervised services and returns; Stop cancels them and waits.
type Program struct {
	Services []suture.Service

	cancel context.CancelFunc
	done   chan error
}

func NewProgram(services ...suture.Service) *Program {
	return &Program{Services: services}
}

func (p *Program) Start(s service.Service) error {
	// Start should not block. Do the actual work async.
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go p.run(ctx)
	return nil
}

func (p *Program) run(ctx context.Context) {
	sup := NewSupervisor(logging.NewSlogLogger())
	for _, svc := range p.Services {
		sup.Add(svc)
	}

	logging.Info().Int("services", len(p.Services)).Msg("supervisor starting")
	p.done <- sup.Serve(ctx)
}

func (p *Program) Stop(s service.Service) error {
	logging.Info().Msg("stopping service")
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	select {
	case err := <-p.done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-time.After(15 * time.Second):
		logging.Warn().Msg("services did not stop in time")
		return nil
	}
}
