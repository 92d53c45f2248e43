package services

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/RayanGhomsi/Prestige/internal/identity"
	"github.com/RayanGhomsi/Prestige/internal/models"
	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

// EditForm carries the sections a parent may change while the application is
// still pending. Documents holds replacements only; absent kinds are kept.
type EditForm struct {
	Child     wizard.ChildStep
	Parents   wizard.ParentsStep
	Medical   wizard.MedicalStep
	Documents map[models.DocumentKind]*wizard.Attachment
}

func (f EditForm) Validate() wizard.FieldErrors {
	fe := wizard.FieldErrors{}
	for _, part := range []wizard.FieldErrors{f.Child.Validate(), f.Parents.Validate(), f.Medical.Validate()} {
		for k, v := range part {
			fe[k] = v
		}
	}
	for kind, a := range f.Documents {
		if a == nil {
			continue
		}
		if !kind.Valid() {
			fe[string(kind)] = "Type de document inconnu"
			continue
		}
		if msg := wizard.CheckFile(a, wizard.LimitFor(kind), wizard.DocTypes); msg != "" {
			fe[string(kind)] = msg
		}
	}
	return fe
}

// owned loads the application if it belongs to u.
func (e *Enrollment) owned(tx *gorm.DB, u identity.User, id string) (*models.Application, error) {
	var app models.Application
	err := tx.Joins("JOIN parent_profiles ON parent_profiles.id = applications.parent_id").
		Where("applications.id = ? AND parent_profiles.user_id = ?", id, u.ID).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load application")
	}
	return &app, nil
}

// EnsureEditable rejects foreign applications and anything no longer pending.
// Call it before reading any submitted field.
func (e *Enrollment) EnsureEditable(ctx context.Context, u identity.User, id string) (*models.Application, error) {
	app, err := e.owned(e.db.WithContext(ctx), u, id)
	if err != nil {
		return nil, err
	}
	if !app.Editable() {
		return nil, ErrNotEditable
	}
	return app, nil
}

// Update rewrites the class, child, parent and medical sections atomically, then
// replaces any provided documents best-effort.
func (e *Enrollment) Update(ctx context.Context, u identity.User, id string, f EditForm) ([]UploadOutcome, error) {
	if _, err := e.EnsureEditable(ctx, u, id); err != nil {
		return nil, err
	}
	if fe := f.Validate(); len(fe) > 0 {
		return nil, fe
	}
	birth, err := wizard.ParseBirthDate(f.Child.DateNaissance)
	if err != nil {
		return nil, wizard.FieldErrors{"date_naissance": "La date de naissance est invalide"}
	}

	child := childFromStep(f.Child, birth)
	info := parentInfoFromStep(f.Parents)
	medical := medicalFromStep(f.Medical)
	// keep row identity and ownership columns untouched
	skip := []string{"id", "application_id", "created_at", "photo_url"}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		app, err := e.owned(tx, u, id)
		if err != nil {
			return err
		}
		if !app.Editable() {
			return ErrNotEditable
		}

		if err := tx.Model(&models.Application{}).Where("id = ?", id).Updates(map[string]interface{}{
			"desired_class":    f.Child.ClasseSouhaitee,
			"last_modified_at": e.now(),
		}).Error; err != nil {
			return errors.Wrap(err, "update application")
		}
		if err := tx.Model(&models.Child{}).Where("application_id = ?", id).
			Select("*").Omit(skip...).Updates(&child).Error; err != nil {
			return errors.Wrap(err, "update child")
		}
		if err := tx.Model(&models.ParentInfo{}).Where("application_id = ?", id).
			Select("*").Omit(skip...).Updates(&info).Error; err != nil {
			return errors.Wrap(err, "update parent information")
		}
		if err := tx.Model(&models.MedicalInfo{}).Where("application_id = ?", id).
			Select("*").Omit(skip...).Updates(&medical).Error; err != nil {
			return errors.Wrap(err, "update medical information")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info(ctx, "application updated", "application_id", id)

	var outcomes []UploadOutcome
	for _, kind := range models.DocumentKinds {
		if a := f.Documents[kind]; a != nil {
			outcomes = append(outcomes, e.ReplaceDocument(ctx, id, kind, a))
		}
	}
	if f.Child.Photo != nil {
		outcomes = append(outcomes, e.attachPhoto(ctx, id, f.Child.Photo))
	}
	return outcomes, nil
}

// DeleteDocument removes one document of a pending application.
func (e *Enrollment) DeleteDocument(ctx context.Context, u identity.User, appID, docID string) error {
	if _, err := e.EnsureEditable(ctx, u, appID); err != nil {
		return err
	}

	var doc models.Document
	err := e.db.WithContext(ctx).Where("id = ? AND application_id = ?", docID, appID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "load document")
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&doc).Error; err != nil {
			return err
		}
		return tx.Model(&models.Application{}).Where("id = ?", appID).Update("last_modified_at", e.now()).Error
	})
	if err != nil {
		return errors.Wrap(err, "delete document")
	}
	if doc.StoragePath != "" {
		if err := e.bucket.Delete(ctx, doc.StoragePath); err != nil {
			e.log.Warn(ctx, "removing document blob failed", "path", doc.StoragePath, "err", err)
		}
	}
	return nil
}
