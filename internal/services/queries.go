package services

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/RayanGhomsi/Prestige/internal/identity"
	"github.com/RayanGhomsi/Prestige/internal/models"
	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

// Summary is one line of the applications list.
type Summary struct {
	ID             string
	Reference      string
	Status         models.Status
	DesiredClass   string
	ChildName      string
	SubmittedAt    *time.Time
	LastModifiedAt time.Time
}

func (s Summary) Editable() bool { return s.Status == models.StatusPending }

func summarize(a models.Application) Summary {
	s := Summary{
		ID:             a.ID,
		Reference:      a.Reference,
		Status:         a.Status,
		DesiredClass:   a.DesiredClass,
		SubmittedAt:    a.SubmittedAt,
		LastModifiedAt: a.LastModifiedAt,
	}
	if a.Child != nil {
		s.ChildName = strings.TrimSpace(a.Child.Prenom + " " + a.Child.Nom)
	}
	return s
}

// Detail is an application with every related row loaded.
type Detail struct {
	models.Application
	Missing []models.DocumentKind // required kinds with no stored document
}

type Stats struct {
	Total    int64
	ByStatus map[models.Status]int64
}

func (s Stats) Count(st models.Status) int64 { return s.ByStatus[st] }

// parentID finds the caller's profile id without creating one.
func (e *Enrollment) parentID(ctx context.Context, u identity.User) (string, error) {
	var p models.ParentProfile
	err := e.db.WithContext(ctx).Select("id").Where("user_id = ?", u.ID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "load profile")
	}
	return p.ID, nil
}

// List returns the caller's applications, newest first.
func (e *Enrollment) List(ctx context.Context, u identity.User) ([]Summary, error) {
	pid, err := e.parentID(ctx, u)
	if err != nil || pid == "" {
		return nil, err
	}
	var apps []models.Application
	if err := e.db.WithContext(ctx).Preload("Child").
		Where("parent_id = ?", pid).
		Order("created_at DESC").
		Find(&apps).Error; err != nil {
		return nil, errors.Wrap(err, "list applications")
	}
	out := make([]Summary, 0, len(apps))
	for _, a := range apps {
		out = append(out, summarize(a))
	}
	return out, nil
}

func (e *Enrollment) Get(ctx context.Context, u identity.User, id string) (*Detail, error) {
	conn := e.db.WithContext(ctx)
	app, err := e.owned(conn, u, id)
	if err != nil {
		return nil, err
	}
	if err := conn.Preload("Child").Preload("ParentInfo").Preload("MedicalInfo").
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at") }).
		First(app, "id = ?", id).Error; err != nil {
		return nil, errors.Wrap(err, "load application detail")
	}

	d := &Detail{Application: *app}
	have := map[models.DocumentKind]bool{}
	for _, doc := range app.Documents {
		have[doc.Kind] = true
	}
	for _, k := range wizard.RequiredDocuments {
		if !have[k] {
			d.Missing = append(d.Missing, k)
		}
	}
	return d, nil
}

func (e *Enrollment) Stats(ctx context.Context, u identity.User) (Stats, error) {
	st := Stats{ByStatus: map[models.Status]int64{}}
	pid, err := e.parentID(ctx, u)
	if err != nil || pid == "" {
		return st, err
	}

	var rows []struct {
		Status models.Status
		N      int64
	}
	if err := e.db.WithContext(ctx).Model(&models.Application{}).
		Select("status, COUNT(*) AS n").
		Where("parent_id = ?", pid).
		Group("status").
		Scan(&rows).Error; err != nil {
		return st, errors.Wrap(err, "count applications")
	}
	for _, r := range rows {
		st.ByStatus[r.Status] = r.N
		st.Total += r.N
	}
	return st, nil
}

type ProfileForm struct {
	Nom       string
	Prenom    string
	Telephone string
}

func (f ProfileForm) Validate() wizard.FieldErrors {
	fe := wizard.FieldErrors{}
	if len([]rune(strings.TrimSpace(f.Nom))) < 2 {
		fe["nom"] = "Le nom doit contenir au moins 2 caractères"
	}
	if len([]rune(strings.TrimSpace(f.Prenom))) < 2 {
		fe["prenom"] = "Le prénom doit contenir au moins 2 caractères"
	}
	if !wizard.ValidPhone(f.Telephone) {
		fe["telephone"] = "Le numéro de téléphone doit contenir 9 chiffres"
	}
	return fe
}

func (e *Enrollment) Profile(ctx context.Context, u identity.User) (*models.ParentProfile, error) {
	return e.ResolveProfile(ctx, u)
}

func (e *Enrollment) UpdateProfile(ctx context.Context, u identity.User, f ProfileForm) (*models.ParentProfile, error) {
	if fe := f.Validate(); len(fe) > 0 {
		return nil, fe
	}
	p, err := e.ResolveProfile(ctx, u)
	if err != nil {
		return nil, err
	}
	p.Nom = strings.TrimSpace(f.Nom)
	p.Prenom = strings.TrimSpace(f.Prenom)
	p.Telephone = f.Telephone
	if err := e.db.WithContext(ctx).Model(p).Select("nom", "prenom", "telephone").Updates(p).Error; err != nil {
		return nil, errors.Wrap(err, "update profile")
	}
	return p, nil
}

// FindByReference resolves a reference code among the caller's applications.
func (e *Enrollment) FindByReference(ctx context.Context, u identity.User, ref string) (*Summary, error) {
	var app models.Application
	err := e.db.WithContext(ctx).
		Joins("JOIN parent_profiles ON parent_profiles.id = applications.parent_id").
		Where("applications.reference = ? AND parent_profiles.user_id = ?", ref, u.ID).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find by reference")
	}
	s := summarize(app)
	return &s, nil
}
