package repo

import (
	"context"
	"time"

	"github.com/hamed0406/netwatch/internal/domain"
)

// AlertRecord holds the last state we alerted on for a target and when
// the notification went out. State is the last confirmed health state,
// LastSentAt the last successful delivery (used for cooldown).
type AlertRecord struct {
	Target     string
	State      domain.HealthState
	LastSentAt *time.Time
}

// AlertStore is implemented by a persistence layer to store alert state.
type AlertStore interface {
	// Get returns nil, nil if there's no record yet.
	Get(ctx context.Context, target string) (*AlertRecord, error)
	// Set upserts the record. If sentAt.IsZero() we store NULL for last_sent_at.
	Set(ctx context.Context, target string, state domain.HealthState, sentAt time.Time) error
}
