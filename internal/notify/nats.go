package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "nest.person"

const flushTimeout = 5 * time.Second

// NATS publishes each alert as JSON on a subject.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// NewNATS connects to url. The connection retries in the background if the
// server is briefly unavailable.
func NewNATS(url, subject string) (*NATS, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	nc, err := nats.Connect(url,
		nats.Name("nest-events"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATS{conn: nc, subject: subject}, nil
}

func (n *NATS) Deliver(ctx context.Context, device, localTimestamp string) error {
	data, err := json.Marshal(newAlert(device, localTimestamp))
	if err != nil {
		return &DeliveryError{Notifier: "nats", Device: device, Err: err}
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		return &DeliveryError{Notifier: "nats", Device: device, Err: err}
	}
	// FlushWithContext requires a deadline.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return &DeliveryError{Notifier: "nats", Device: device, Err: err}
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
