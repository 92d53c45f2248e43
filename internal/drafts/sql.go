package drafts

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RayanGhomsi/Prestige/internal/models"
	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

// SQLStore keeps drafts in the drafts table for deployments without Redis.
// Rows older than ttl are treated as absent and purged lazily.
type SQLStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func NewSQLStore(db *gorm.DB, ttl time.Duration) *SQLStore {
	return &SQLStore{db: db, ttl: ttl, now: time.Now}
}

func (s *SQLStore) expired(rec models.DraftRecord) bool {
	return s.ttl > 0 && s.now().Sub(rec.UpdatedAt) > s.ttl
}

func (s *SQLStore) Load(ctx context.Context, id string) (*wizard.Draft, error) {
	var rec models.DraftRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load draft %s", id)
	}
	if s.expired(rec) {
		_ = s.Delete(ctx, id)
		return nil, ErrNotFound
	}
	return wizard.UnmarshalDraft(rec.Payload)
}

func (s *SQLStore) Save(ctx context.Context, id string, d *wizard.Draft) error {
	b, err := d.Marshal()
	if err != nil {
		return err
	}
	rec := models.DraftRecord{
		ID:            id,
		Payload:       datatypes.JSON(b),
		ApplicationID: d.ApplicationID,
		UpdatedAt:     s.now(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "application_id", "updated_at"}),
	}).Create(&rec).Error
	return errors.Wrapf(err, "save draft %s", id)
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.DraftRecord{}).Error
	return errors.Wrapf(err, "delete draft %s", id)
}

func (s *SQLStore) live(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.DraftRecord{})
	if s.ttl > 0 {
		q = q.Where("updated_at >= ?", s.now().Add(-s.ttl))
	}
	return q
}

func (s *SQLStore) Stamped(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.live(ctx).Where("application_id <> ''").Order("updated_at").Pluck("id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "list stamped drafts")
	}
	return ids, nil
}

// Touch rewrites the payload only. updated_at drives expiry and stays put.
func (s *SQLStore) Touch(ctx context.Context, id string, at time.Time) error {
	d, err := s.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	d.Touch(at)
	b, err := d.Marshal()
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Model(&models.DraftRecord{}).
		Where("id = ?", id).
		UpdateColumn("payload", datatypes.JSON(b)).Error
	return errors.Wrapf(err, "touch draft %s", id)
}
