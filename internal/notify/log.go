package notify

import (
	"context"

	"github.com/masteryee/nest-events/internal/logging"
)

// Log writes the alert to the process log. It never fails.
type Log struct{}

func (Log) Deliver(_ context.Context, device, localTimestamp string) error {
	logging.Info().
		Str("notifier", "log").
		Str("device", device).
		Str("timestamp", localTimestamp).
		Msg(Message(device, localTimestamp))
	return nil
}
