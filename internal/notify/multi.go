package notify

import (
	"context"
	"errors"
)

// Multi delivers to every notifier in order. One failing notifier does not
// stop the others; all errors are joined.
type Multi []Notifier

func (m Multi) Deliver(ctx context.Context, device, localTimestamp string) error {
	var errs []error
	for _, n := range m {
		if err := n.Deliver(ctx, device, localTimestamp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
