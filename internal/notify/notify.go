// Package notify delivers person alerts to the outside world.
//
// Every transport implements Notifier. Failures come back as
// *DeliveryError; callers log them and move on, nothing here retries.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Notifier delivers one alert for a device and its local start time.
type Notifier interface {
	Deliver(ctx context.Context, device, localTimestamp string) error
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(ctx context.Context, device, localTimestamp string) error

func (f NotifierFunc) Deliver(ctx context.Context, device, localTimestamp string) error {
	return f(ctx, device, localTimestamp)
}

// ErrRateLimited is returned by Guard when a delivery is dropped by the
// rate limiter or an open breaker.
var ErrRateLimited = errors.New("notification dropped by rate limit")

// DeliveryError wraps a failure from one notifier.
type DeliveryError struct {
	Notifier string
	Device   string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s notifier failed for %q: %v", e.Notifier, e.Device, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Message renders the human-readable alert text.
func Message(device, localTimestamp string) string {
	return fmt.Sprintf("%s saw a person @ %s", device, localTimestamp)
}

// Alert is the structured body sent by the NATS and webhook notifiers.
type Alert struct {
	Device    string    `json:"device"`
	Timestamp string    `json:"timestamp"`
	Message   string    `json:"message"`
	SentAt    time.Time `json:"sentAt"`
}

func newAlert(device, localTimestamp string) Alert {
	return Alert{
		Device:    device,
		Timestamp: localTimestamp,
		Message:   Message(device, localTimestamp),
		SentAt:    time.Now().UTC(),
	}
}
