// Package drafts keeps in-progress wizard drafts between requests, keyed by the
// browser's draft cookie.
package drafts

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

var ErrNotFound = errors.New("draft not found")

type Store interface {
	Load(ctx context.Context, id string) (*wizard.Draft, error)
	Save(ctx context.Context, id string, d *wizard.Draft) error
	Delete(ctx context.Context, id string) error
	// Stamped lists live drafts that already carry an application id.
	Stamped(ctx context.Context) ([]string, error)
	// Touch sets the last-autosave time without extending the draft's expiry.
	// A missing draft is not an error.
	Touch(ctx context.Context, id string, at time.Time) error
}
