// Package stream keeps the hub event stream open forever and feeds every
// line through a classifier session.
package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/masteryee/nest-events/internal/detect"
	"github.com/masteryee/nest-events/internal/logging"
	"github.com/masteryee/nest-events/internal/metrics"
	"github.com/masteryee/nest-events/internal/notify"
	"github.com/masteryee/nest-events/pkg/models"
)

// DefaultReconnectDelay is the fixed wait between connection attempts.
const DefaultReconnectDelay = 5 * time.Second

// Opener opens the event stream. *client.NestClient satisfies it.
type Opener interface {
	OpenEventStream(ctx context.Context, token string) (io.ReadCloser, error)
}

// Consumer reads the event stream and dispatches person alerts.
type Consumer struct {
	Opener   Opener
	Policy   detect.Policy
	Notifier notify.Notifier
	Metrics  *metrics.Metrics

	// Token is used by Serve. ListenForever takes it as an argument.
	Token          string
	ReconnectDelay time.Duration
}

// ListenForever connects, consumes until the stream fails or ends, waits
// ReconnectDelay and starts over with a fresh classifier session. There is
// no retry limit. It returns only when ctx is done.
func (c *Consumer) ListenForever(ctx context.Context, token string) error {
	delay := c.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}

	for {
		err := c.connect(ctx, token)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logging.Warn().
			Err(err).
			Dur("retry_in", delay).
			Msg("event stream failed, reconnecting")

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Serve runs ListenForever with c.Token so the consumer can sit in a
// suture supervisor.
func (c *Consumer) Serve(ctx context.Context) error {
	return c.ListenForever(ctx, c.Token)
}

func (c *Consumer) String() string {
	return "event-stream"
}

func (c *Consumer) connect(ctx context.Context, token string) error {
	body, err := c.Opener.OpenEventStream(ctx, token)
	if err != nil {
		c.Metrics.StreamFailed()
		return &TransportError{Op: "open", Err: err}
	}
	c.Metrics.StreamConnected()
	logging.Info().Msg("event stream connected")

	defer body.Close()
	// Unblock a pending read when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stop()

	return c.Consume(ctx, body)
}

// Consume processes one stream session from r, line by line and in order,
// with a new classifier session. It returns when r fails or ends; a clean
// end is reported as ErrStreamClosed.
func (c *Consumer) Consume(ctx context.Context, r io.Reader) error {
	session := detect.NewSession(c.Policy)
	br := bufio.NewReader(r)

	for {
		line, err := br.ReadString('\n')
		if line != "" {
			c.handleLine(ctx, session, strings.TrimSuffix(line, "\n"))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrStreamClosed
			}
			return &TransportError{Op: "read", Err: err}
		}
	}
}

func (c *Consumer) handleLine(ctx context.Context, session *detect.Session, line string) {
	c.Metrics.LineRead()

	decisions, err := session.ProcessLine(line)
	if err != nil {
		logging.Warn().Err(err).Msg("skipping malformed event payload")
		return
	}

	for _, d := range decisions {
		c.Metrics.Decision(string(d.Outcome))

		n, ok := d.Notification()
		if !ok {
			logging.Debug().
				Str("device", d.DeviceName).
				Str("start_time", d.StartTime).
				Str("outcome", string(d.Outcome)).
				Msg("event suppressed")
			continue
		}

		logging.Info().
			Str("device", n.DeviceName).
			Str("local_time", n.LocalTime).
			Strs("zones", n.Zones).
			Msg("detected person")

		c.deliver(ctx, n)
	}
}

// deliver is best effort: failures are logged and never retried.
func (c *Consumer) deliver(ctx context.Context, n models.Notification) {
	if c.Notifier == nil {
		return
	}

	err := c.Notifier.Deliver(ctx, n.DeviceName, n.LocalTime)
	switch {
	case err == nil:
		c.Metrics.Notification("sent")
	case errors.Is(err, notify.ErrRateLimited):
		c.Metrics.Notification("dropped")
		logging.Warn().Err(err).Str("device", n.DeviceName).Msg("notification dropped")
	default:
		c.Metrics.Notification("failed")
		logging.Error().Err(err).Str("device", n.DeviceName).Msg("notification failed")
	}
}
