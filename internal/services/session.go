package services

import (
	"context"

	"github.com/RayanGhomsi/Prestige/internal/events"
)

// WarmProfile makes sure a parent profile exists as soon as someone signs in,
// so the first submission does not have to create it.
func (e *Enrollment) WarmProfile() events.Handler {
	return func(ctx context.Context, ev events.SessionEvent) {
		if ev.Kind != events.SignedIn {
			return
		}
		if _, err := e.ResolveProfile(ctx, ev.User); err != nil {
			e.log.Warn(ctx, "profile warm-up failed", "user_id", ev.User.ID, "err", err)
		}
	}
}
