package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/netwatch/internal/domain"
	"github.com/hamed0406/netwatch/internal/metrics"
	"github.com/hamed0406/netwatch/internal/notify"
	"github.com/hamed0406/netwatch/internal/repo"
)

type Config struct {
	// OnRecovery controls whether a return to Healthy is alerted.
	OnRecovery bool
	// Cooldown suppresses repeat non-recovery alerts for a target that
	// was alerted recently.
	Cooldown time.Duration
	// MaxAttempts bounds delivery tries per event.
	MaxAttempts int
	// Backoff is the first retry delay; it doubles per attempt up to
	// MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	return c
}

// Dispatcher turns confirmed transitions into notifications. Events
// are handled one at a time so per-target alert order matches the
// order transitions were confirmed. A delivery failure burns its
// retries and is then dropped with a warning; it never stops the loop.
type Dispatcher struct {
	alerts   repo.AlertStore
	notifier notify.Notifier
	log      *zap.Logger
	met      *metrics.Metrics
	cfg      Config
}

func New(alerts repo.AlertStore, notifier notify.Notifier, log *zap.Logger, met *metrics.Metrics, cfg Config) *Dispatcher {
	return &Dispatcher{
		alerts:   alerts,
		notifier: notifier,
		log:      log,
		met:      met,
		cfg:      cfg.withDefaults(),
	}
}

// Run consumes events until the channel closes or ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, events <-chan domain.Transition) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tr, ok := <-events:
			if !ok {
				return nil
			}
			d.dispatch(ctx, tr)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, tr domain.Transition) {
	rec, err := d.alerts.Get(ctx, tr.Target)
	if err != nil {
		d.log.Warn("alert_record_read_error", zap.String("target", tr.Target), zap.Error(err))
	}

	// Already alerted for this state and nothing changed since.
	if rec != nil && rec.State == tr.To {
		d.log.Debug("alert_duplicate_suppressed",
			zap.String("target", tr.Target),
			zap.String("state", string(tr.To)),
		)
		return
	}

	now := time.Now()

	// Cooldown only matters for problem alerts; recovery bypasses it.
	cooled := true
	if rec != nil && rec.LastSentAt != nil {
		cooled = now.Sub(*rec.LastSentAt) >= d.cfg.Cooldown
	}

	problemAlert := tr.To != domain.StateHealthy && cooled
	recoveryAlert := tr.To == domain.StateHealthy && d.cfg.OnRecovery

	if !problemAlert && !recoveryAlert {
		// Record the new state without a send time so the next change
		// is still detected.
		if err := d.alerts.Set(ctx, tr.Target, tr.To, time.Time{}); err != nil {
			d.log.Warn("alert_record_write_error", zap.String("target", tr.Target), zap.Error(err))
		}
		d.log.Debug("alert_suppressed",
			zap.String("target", tr.Target),
			zap.String("state", string(tr.To)),
			zap.Bool("cooled", cooled),
		)
		return
	}

	if err := d.send(ctx, tr); err != nil {
		d.met.AlertFailed()
		d.log.Warn("dispatch_failed",
			zap.String("target", tr.Target),
			zap.String("from", string(tr.From)),
			zap.String("to", string(tr.To)),
			zap.Int("attempts", d.cfg.MaxAttempts),
			zap.Error(err),
		)
		if err := d.alerts.Set(ctx, tr.Target, tr.To, time.Time{}); err != nil {
			d.log.Warn("alert_record_write_error", zap.String("target", tr.Target), zap.Error(err))
		}
		return
	}

	d.met.AlertSent()
	if err := d.alerts.Set(ctx, tr.Target, tr.To, now); err != nil {
		d.log.Warn("alert_record_write_error", zap.String("target", tr.Target), zap.Error(err))
	}
}

// send tries the notifier with doubling backoff between attempts.
func (d *Dispatcher) send(ctx context.Context, tr domain.Transition) error {
	title, text := format(tr)
	backoff := d.cfg.Backoff
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		err := d.notifier.Send(ctx, title, text)
		if err == nil {
			d.log.Info("alert_sent",
				zap.String("target", tr.Target),
				zap.String("from", string(tr.From)),
				zap.String("to", string(tr.To)),
				zap.Int("attempt", attempt),
			)
			return nil
		}
		lastErr = err
		if attempt == d.cfg.MaxAttempts {
			break
		}
		d.log.Debug("dispatch_retry",
			zap.String("target", tr.Target),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff *= 2
		if backoff > d.cfg.MaxBackoff {
			backoff = d.cfg.MaxBackoff
		}
	}
	return lastErr
}

func format(tr domain.Transition) (title, text string) {
	switch tr.To {
	case domain.StateDown:
		title = "🔴 " + tr.Target + " is DOWN"
	case domain.StateDegraded:
		title = "🟡 " + tr.Target + " is DEGRADED"
	default:
		title = "🟢 " + tr.Target + " RECOVERED"
	}
	text = fmt.Sprintf(
		"Target: %s\nState: %s -> %s\nReason: %s\nAt: %s",
		tr.Target, tr.From, tr.To, tr.Reason, tr.At.Format(time.RFC3339),
	)
	return title, text
}

// sleep waits for d unless ctx ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
