package wizard

import (
	"context"
	"time"

	"github.com/RayanGhomsi/Prestige/internal/logging"
)

// DraftRepo is the slice of the draft store the autosaver needs.
type DraftRepo interface {
	Stamped(ctx context.Context) ([]string, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

// Autosaver periodically refreshes the last-autosave timestamp of drafts that
// already have a backend application id. Step data is not re-persisted and
// the draft's expiry is left alone.
type Autosaver struct {
	Repo     DraftRepo
	Interval time.Duration
	Logger   *logging.Logger
	Now      func() time.Time
}

func NewAutosaver(repo DraftRepo, interval time.Duration, l *logging.Logger) *Autosaver {
	return &Autosaver{Repo: repo, Interval: interval, Logger: l, Now: time.Now}
}

// Start runs the loop in the background until ctx is done.
func (a *Autosaver) Start(ctx context.Context) {
	if a.Interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(a.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.Tick(ctx)
			}
		}
	}()
}

// Tick performs one pass and returns how many drafts were touched.
func (a *Autosaver) Tick(ctx context.Context) int {
	ids, err := a.Repo.Stamped(ctx)
	if err != nil {
		a.Logger.Err(ctx, "autosave: listing drafts failed", "err", err)
		return 0
	}

	touched := 0
	now := a.Now()
	for _, id := range ids {
		if err := a.Repo.Touch(ctx, id, now); err != nil {
			a.Logger.Warn(ctx, "autosave: touching draft failed", "draft_id", id, "err", err)
			continue
		}
		touched++
	}
	return touched
}
