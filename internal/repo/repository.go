package repo

import (
	"context"

	"github.com/hamed0406/netwatch/internal/domain"
)

// Ports (interfaces) — swap in any DB adapter later.

// TransitionLog records confirmed health transitions so the API can
// serve recent history. Implementations may bound retention.
type TransitionLog interface {
	Append(ctx context.Context, tr domain.Transition) error
	// Recent returns up to limit transitions, newest first. limit <= 0
	// means no limit beyond the implementation's retention.
	Recent(ctx context.Context, limit int) ([]domain.Transition, error)
}
