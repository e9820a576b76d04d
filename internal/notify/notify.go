package notify

import (
	"context"

	"go.uber.org/multierr"
)

// Notifier delivers one alert through some transport. Implementations
// report failure so the dispatcher can retry.
type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans an alert out to every configured transport. All sinks are
// attempted; their errors are combined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var errs error
	for _, n := range m {
		if n == nil {
			continue
		}
		errs = multierr.Append(errs, n.Send(ctx, title, text))
	}
	return errs
}
