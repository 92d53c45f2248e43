package services

import (
	"context"
	"fmt"
	"math/rand"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RayanGhomsi/Prestige/internal/identity"
	"github.com/RayanGhomsi/Prestige/internal/logging"
	"github.com/RayanGhomsi/Prestige/internal/models"
	"github.com/RayanGhomsi/Prestige/internal/storage"
	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

var (
	ErrProfileResolution  = errors.New("parent profile could not be resolved")
	ErrIncompleteDraft    = errors.New("draft is incomplete")
	ErrAlreadySubmitted   = errors.New("draft was already submitted")
	ErrReferenceExhausted = errors.New("no free reference code")
	ErrNotFound           = errors.New("application not found")
	ErrNotEditable        = errors.New("application can no longer be edited")
)

// Stage names the required write that failed during submission.
type Stage string

const (
	StageApplication Stage = "application"
	StageChild       Stage = "child"
	StageParentInfo  Stage = "parent_information"
	StageMedicalInfo Stage = "medical_information"
)

func (s Stage) Label() string {
	switch s {
	case StageApplication:
		return "la demande"
	case StageChild:
		return "les informations de l'enfant"
	case StageParentInfo:
		return "les informations des parents"
	case StageMedicalInfo:
		return "les informations médicales"
	}
	return string(s)
}

// StageError reports which required write failed. Nothing from the submission
// was kept when it is returned.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }
func (e *StageError) Cause() error  { return e.Err }

const SlotPhoto = "photo"

// UploadOutcome is the result of one best-effort file upload.
type UploadOutcome struct {
	Slot     string // document kind or SlotPhoto
	Filename string
	URL      string
	Err      error
}

func (o UploadOutcome) OK() bool { return o.Err == nil }

func (o UploadOutcome) Label() string {
	if o.Slot == SlotPhoto {
		return "Photo de l'enfant"
	}
	return models.DocumentKind(o.Slot).Label()
}

type Receipt struct {
	ApplicationID string
	Reference     string
	Uploads       []UploadOutcome
}

func (r Receipt) Failed() []UploadOutcome {
	var out []UploadOutcome
	for _, u := range r.Uploads {
		if !u.OK() {
			out = append(out, u)
		}
	}
	return out
}

type Options struct {
	DB              *gorm.DB
	Bucket          storage.Bucket
	Logger          *logging.Logger
	ReferencePrefix string
}

// Enrollment persists submitted wizards and manages the applications afterwards.
type Enrollment struct {
	db     *gorm.DB
	bucket storage.Bucket
	log    *logging.Logger
	prefix string
	now    func() time.Time
	randn  func(n int) int
}

func NewEnrollment(opts Options) *Enrollment {
	prefix := strings.ToUpper(strings.TrimSpace(opts.ReferencePrefix))
	if prefix == "" {
		prefix = "INS"
	}
	l := opts.Logger
	if l == nil {
		l = logging.Nop()
	}
	return &Enrollment{
		db:     opts.DB,
		bucket: opts.Bucket,
		log:    l,
		prefix: prefix,
		now:    time.Now,
		randn:  rand.Intn,
	}
}

// ResolveProfile returns the caller's parent profile, creating it from the
// signup metadata on first use.
func (e *Enrollment) ResolveProfile(ctx context.Context, u identity.User) (*models.ParentProfile, error) {
	conn := e.db.WithContext(ctx)

	var p models.ParentProfile
	err := conn.Where("user_id = ?", u.ID).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(ErrProfileResolution, err.Error())
	}

	p = models.ParentProfile{
		UserID:    u.ID,
		Nom:       u.Metadata.Nom,
		Prenom:    u.Metadata.Prenom,
		Telephone: u.Metadata.Telephone,
		Email:     u.Email,
	}
	if err := conn.Create(&p).Error; err != nil {
		// another request may have created it in the meantime
		var existing models.ParentProfile
		if ferr := conn.Where("user_id = ?", u.ID).First(&existing).Error; ferr == nil {
			return &existing, nil
		}
		return nil, errors.Wrap(ErrProfileResolution, err.Error())
	}
	return &p, nil
}

// Submit writes the application with its child, parent and medical rows in one
// transaction, then uploads the attached files best-effort.
func (e *Enrollment) Submit(ctx context.Context, u identity.User, d *wizard.Draft) (*Receipt, error) {
	if d.ApplicationID != "" {
		return nil, ErrAlreadySubmitted
	}
	if !d.Complete() {
		return nil, ErrIncompleteDraft
	}
	if fe := wizard.ValidateDraft(d); len(fe) > 0 {
		return nil, errors.Wrap(ErrIncompleteDraft, fe.Error())
	}
	birth, err := wizard.ParseBirthDate(d.Child.DateNaissance)
	if err != nil {
		return nil, errors.Wrap(ErrIncompleteDraft, "birth date")
	}

	profile, err := e.ResolveProfile(ctx, u)
	if err != nil {
		return nil, err
	}

	now := e.now()
	app := models.Application{
		ParentID:       profile.ID,
		DesiredClass:   d.Child.ClasseSouhaitee,
		Status:         models.StatusPending,
		SubmittedAt:    &now,
		LastModifiedAt: now,
	}
	child := childFromStep(*d.Child, birth)
	info := parentInfoFromStep(*d.Parents)
	medical := medicalFromStep(*d.Medical)

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ref, err := e.nextReference(tx, now.Year())
		if err != nil {
			return &StageError{Stage: StageApplication, Err: err}
		}
		app.Reference = ref
		if err := tx.Omit(clause.Associations).Create(&app).Error; err != nil {
			return &StageError{Stage: StageApplication, Err: err}
		}

		child.ApplicationID = app.ID
		if err := tx.Create(&child).Error; err != nil {
			return &StageError{Stage: StageChild, Err: err}
		}
		info.ApplicationID = app.ID
		if err := tx.Create(&info).Error; err != nil {
			return &StageError{Stage: StageParentInfo, Err: err}
		}
		medical.ApplicationID = app.ID
		if err := tx.Create(&medical).Error; err != nil {
			return &StageError{Stage: StageMedicalInfo, Err: err}
		}
		return nil
	})
	if err != nil {
		var se *StageError
		if errors.As(err, &se) {
			e.log.Err(ctx, "submission failed", "stage", string(se.Stage), "err", se.Err)
			return nil, se
		}
		e.log.Err(ctx, "submission failed", "err", err)
		return nil, &StageError{Stage: StageApplication, Err: err}
	}
	d.SetApplicationID(app.ID)
	e.log.Info(ctx, "application submitted", "application_id", app.ID, "reference", app.Reference)

	rcpt := &Receipt{ApplicationID: app.ID, Reference: app.Reference}
	for _, kf := range d.Documents.Files() {
		rcpt.Uploads = append(rcpt.Uploads, e.ReplaceDocument(ctx, app.ID, kf.Kind, kf.File))
	}
	if d.Child.Photo != nil {
		rcpt.Uploads = append(rcpt.Uploads, e.attachPhoto(ctx, app.ID, d.Child.Photo))
	}
	return rcpt, nil
}

// nextReference draws PREFIX-YYYY-NNNN codes until one is unused.
func (e *Enrollment) nextReference(tx *gorm.DB, year int) (string, error) {
	for i := 0; i < 20; i++ {
		ref := fmt.Sprintf("%s-%04d-%04d", e.prefix, year, e.randn(10000))
		var exists int64
		if err := tx.Model(&models.Application{}).Where("reference = ?", ref).Count(&exists).Error; err != nil {
			return "", err
		}
		if exists == 0 {
			return ref, nil
		}
	}
	return "", ErrReferenceExhausted
}

// objectPath namespaces a file by application and slot, with a millisecond
// suffix so repeated uploads never overwrite each other.
func (e *Enrollment) objectPath(appID, slot string, a *wizard.Attachment) string {
	return fmt.Sprintf("%s/%s_%d%s", appID, slot, e.now().UnixMilli(), extFor(a))
}

func extFor(a *wizard.Attachment) string {
	if ext := strings.ToLower(path.Ext(a.Filename)); ext != "" {
		return ext
	}
	switch a.ContentType {
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	}
	return ""
}

// upload stores a and returns its object path and public URL.
func (e *Enrollment) upload(ctx context.Context, appID, slot string, a *wizard.Attachment) (string, string, error) {
	p := e.objectPath(appID, slot, a)
	if err := e.bucket.Upload(ctx, p, a.ContentType, a.Data); err != nil {
		return "", "", errors.Wrap(err, "upload")
	}
	u, err := e.bucket.URL(ctx, p)
	if err != nil {
		return "", "", errors.Wrap(err, "public url")
	}
	return p, u, nil
}

// ReplaceDocument uploads a as the document of the given kind. Only once the
// upload succeeded is the previous row of that kind removed and the new one
// inserted. Failures are logged and reported, never returned as errors.
func (e *Enrollment) ReplaceDocument(ctx context.Context, appID string, kind models.DocumentKind, a *wizard.Attachment) UploadOutcome {
	out := UploadOutcome{Slot: string(kind), Filename: a.Filename}

	objPath, url, err := e.upload(ctx, appID, string(kind), a)
	if err != nil {
		e.log.Warn(ctx, "document upload failed", "application_id", appID, "kind", string(kind), "err", err)
		out.Err = err
		return out
	}

	var previous []models.Document
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("application_id = ? AND kind = ?", appID, kind).Find(&previous).Error; err != nil {
			return err
		}
		if len(previous) > 0 {
			if err := tx.Delete(&previous).Error; err != nil {
				return err
			}
		}
		return tx.Create(&models.Document{
			ApplicationID: appID,
			Kind:          kind,
			Filename:      a.Filename,
			StorageURL:    url,
			StoragePath:   objPath,
			Size:          a.Size,
			UploadedBy:    models.UploaderParent,
			UploadedAt:    e.now(),
		}).Error
	})
	if err != nil {
		e.log.Warn(ctx, "document metadata insert failed", "application_id", appID, "kind", string(kind), "err", err)
		if derr := e.bucket.Delete(ctx, objPath); derr != nil {
			e.log.Warn(ctx, "removing orphaned upload failed", "path", objPath, "err", derr)
		}
		out.Err = errors.Wrap(err, "metadata")
		return out
	}

	for _, p := range previous {
		if p.StoragePath == "" || p.StoragePath == objPath {
			continue
		}
		if err := e.bucket.Delete(ctx, p.StoragePath); err != nil {
			e.log.Warn(ctx, "removing replaced document failed", "path", p.StoragePath, "err", err)
		}
	}
	out.URL = url
	return out
}

func (e *Enrollment) attachPhoto(ctx context.Context, appID string, a *wizard.Attachment) UploadOutcome {
	out := UploadOutcome{Slot: SlotPhoto, Filename: a.Filename}
	_, url, err := e.upload(ctx, appID, SlotPhoto, a)
	if err == nil {
		err = e.db.WithContext(ctx).Model(&models.Child{}).
			Where("application_id = ?", appID).
			Update("photo_url", url).Error
	}
	if err != nil {
		e.log.Warn(ctx, "photo upload failed", "application_id", appID, "err", err)
		out.Err = err
		return out
	}
	out.URL = url
	return out
}

func childFromStep(s wizard.ChildStep, birth time.Time) models.Child {
	return models.Child{
		Nom:        strings.TrimSpace(s.Nom),
		Prenom:     strings.TrimSpace(s.Prenom),
		BirthDate:  birth,
		Birthplace: strings.TrimSpace(s.LieuNaissance),
		Sex:        s.Sexe,
	}
}

func parentInfoFromStep(s wizard.ParentsStep) models.ParentInfo {
	fatherEmail, _ := wizard.NormEmail(s.PereEmail)
	motherEmail, _ := wizard.NormEmail(s.MereEmail)
	return models.ParentInfo{
		FatherNom:          s.PereNom,
		FatherPrenom:       s.PerePrenom,
		FatherProfession:   s.PereProfession,
		FatherTelephone:    s.PereTelephone,
		FatherEmail:        fatherEmail,
		MotherNom:          s.MereNom,
		MotherPrenom:       s.MerePrenom,
		MotherProfession:   s.MereProfession,
		MotherTelephone:    s.MereTelephone,
		MotherEmail:        motherEmail,
		GuardianNom:        s.TuteurNom,
		GuardianPrenom:     s.TuteurPrenom,
		GuardianRelation:   s.TuteurLien,
		GuardianTelephone:  s.TuteurTelephone,
		Address:            s.AdresseComplete,
		EmergencyNom:       s.UrgenceNom,
		EmergencyTelephone: s.UrgenceTelephone,
		EmergencyRelation:  s.UrgenceLien,
	}
}

func medicalFromStep(s wizard.MedicalStep) models.MedicalInfo {
	return models.MedicalInfo{
		BloodType:         s.GroupeSanguin,
		Allergies:         s.Allergies,
		ChronicConditions: s.MaladiesChroniques,
		OngoingTreatments: s.TraitementsEnCours,
		PhysicianName:     s.MedecinNom,
		PhysicianPhone:    s.MedecinTelephone,
	}
}
