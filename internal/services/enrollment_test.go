package services

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/RayanGhomsi/Prestige/internal/models"
	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

var referenceRE = regexp.MustCompile(`^[A-Z]+-\d{4}-\d{4}$`)

func TestSubmit_WritesEverything(t *testing.T) {
	e, conn, bucket := newTestEnrollment(t)
	bucketOK(bucket)
	ctx := context.Background()
	d := completeDraft()

	rcpt, err := e.Submit(ctx, fatou, d)
	require.NoError(t, err)

	assert.Regexp(t, referenceRE, rcpt.Reference)
	assert.Regexp(t, `^INS-2025-`, rcpt.Reference)
	assert.Equal(t, rcpt.ApplicationID, d.ApplicationID)
	assert.Len(t, rcpt.Uploads, 3)
	assert.Empty(t, rcpt.Failed())

	var app models.Application
	require.NoError(t, conn.Preload("Child").Preload("ParentInfo").Preload("MedicalInfo").Preload("Documents").
		First(&app, "id = ?", rcpt.ApplicationID).Error)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.Equal(t, "CP", app.DesiredClass)
	require.NotNil(t, app.SubmittedAt)
	assert.Equal(t, "Awa", app.Child.Prenom)
	assert.Equal(t, 2017, app.Child.BirthDate.Year())
	assert.Equal(t, "fatou@example.cm", app.ParentInfo.MotherEmail)
	assert.Equal(t, "Oncle", app.ParentInfo.EmergencyRelation)
	assert.Equal(t, "Arachides", app.MedicalInfo.Allergies)
	assert.Len(t, app.Documents, 3)

	var profile models.ParentProfile
	require.NoError(t, conn.First(&profile, "user_id = ?", fatou.ID).Error)
	assert.Equal(t, profile.ID, app.ParentID)
	assert.Equal(t, "Fatou", profile.Prenom)
	assert.Equal(t, "699123456", profile.Telephone)

	uploads := bucket.CallsForMethod("Upload")
	require.Len(t, uploads, 3)
	for _, c := range uploads {
		assert.Regexp(t, fmt.Sprintf(`^%s/(acte_naissance|certificat_vaccination|justificatif_domicile)_\d+\.pdf$`, app.ID), c.Arguments.String(1))
	}
}

// Every upload failing still yields a successful submission with a reference.
func TestSubmit_UploadFailureIsBestEffort(t *testing.T) {
	e, conn, bucket := newTestEnrollment(t)
	bucket.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket unavailable"))

	d := completeDraft()
	rcpt, err := e.Submit(context.Background(), fatou, d)
	require.NoError(t, err)

	assert.Regexp(t, referenceRE, rcpt.Reference)
	assert.NotEmpty(t, rcpt.ApplicationID)
	assert.Len(t, rcpt.Failed(), 3)
	assert.Equal(t, "Acte de naissance", rcpt.Failed()[0].Label())

	counts := countAll(t, conn)
	assert.EqualValues(t, 1, counts["applications"])
	assert.EqualValues(t, 1, counts["children"])
	assert.EqualValues(t, 0, counts["documents"])
	bucket.AssertNotCalled(t, "URL", mock.Anything, mock.Anything)
}

func TestSubmit_PhotoSetsChildURL(t *testing.T) {
	e, conn, bucket := newTestEnrollment(t)
	bucketOK(bucket)

	d := completeDraft()
	child := *d.Child
	child.Photo = &wizard.Attachment{Filename: "awa.png", ContentType: "image/png", Size: 10, Data: []byte("png")}
	d.SetChild(child)

	rcpt, err := e.Submit(context.Background(), fatou, d)
	require.NoError(t, err)
	require.Len(t, rcpt.Uploads, 4)
	assert.Equal(t, SlotPhoto, rcpt.Uploads[3].Slot)

	var c models.Child
	require.NoError(t, conn.First(&c, "application_id = ?", rcpt.ApplicationID).Error)
	assert.Equal(t, "https://files.example/doc", c.PhotoURL)
}

// A failing required write leaves no trace of the submission.
func TestSubmit_StageFailureRollsBack(t *testing.T) {
	stages := map[string]Stage{
		"children":            StageChild,
		"parent_information":  StageParentInfo,
		"medical_information": StageMedicalInfo,
		"applications":        StageApplication,
	}
	for table, stage := range stages {
		t.Run(table, func(t *testing.T) {
			e, conn, bucket := newTestEnrollment(t)
			bucketOK(bucket)
			failCreatesOn(t, conn, table, errors.New("disk full"))

			d := completeDraft()
			_, err := e.Submit(context.Background(), fatou, d)

			var se *StageError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, stage, se.Stage)
			assert.Empty(t, d.ApplicationID)

			for name, n := range countAll(t, conn) {
				assert.EqualValues(t, 0, n, name)
			}
			bucket.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmit_ProfileResolutionFailure(t *testing.T) {
	e, conn, bucket := newTestEnrollment(t)
	failCreatesOn(t, conn, "parent_profiles", errors.New("policy violation"))

	_, err := e.Submit(context.Background(), fatou, completeDraft())
	assert.True(t, errors.Is(err, ErrProfileResolution), "got %v", err)
	assert.EqualValues(t, 0, count(t, conn, &models.Application{}))
	bucket.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// The profile lookup misses, another request creates the row, our insert
// hits the unique index and the re-fetch finds the winner's row.
func TestResolveProfile_Race(t *testing.T) {
	e, conn, _ := newTestEnrollment(t)
	winner := models.ParentProfile{UserID: fatou.ID, Nom: "Winner"}
	require.NoError(t, conn.Create(&winner).Error)

	lookups := 0
	require.NoError(t, conn.Callback().Query().Before("gorm:query").Register("test:first_lookup_misses", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "parent_profiles" {
			lookups++
			if lookups == 1 {
				_ = tx.AddError(gorm.ErrRecordNotFound)
			}
		}
	}))

	p, err := e.ResolveProfile(context.Background(), fatou)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, p.ID)
	assert.Equal(t, "Winner", p.Nom)
	assert.EqualValues(t, 1, count(t, conn, &models.ParentProfile{}))
}

func TestResolveProfile_ReusesExisting(t *testing.T) {
	e, conn, _ := newTestEnrollment(t)
	p1, err := e.ResolveProfile(context.Background(), fatou)
	require.NoError(t, err)
	p2, err := e.ResolveProfile(context.Background(), fatou)
	require.NoError(t, err)
	assert.Equal(t, p1.ID, p2.ID)
	assert.EqualValues(t, 1, count(t, conn, &models.ParentProfile{}))
}

func TestSubmit_Preconditions(t *testing.T) {
	e, conn, _ := newTestEnrollment(t)
	ctx := context.Background()

	partial := completeDraft()
	partial.Medical = nil
	_, err := e.Submit(ctx, fatou, partial)
	assert.True(t, errors.Is(err, ErrIncompleteDraft))

	invalid := completeDraft()
	invalid.Parents.UrgenceNom = ""
	_, err = e.Submit(ctx, fatou, invalid)
	assert.True(t, errors.Is(err, ErrIncompleteDraft))

	done := completeDraft()
	done.SetApplicationID("already")
	_, err = e.Submit(ctx, fatou, done)
	assert.True(t, errors.Is(err, ErrAlreadySubmitted))

	assert.EqualValues(t, 0, count(t, conn, &models.Application{}))
}

func TestNextReference_SkipsTakenCodes(t *testing.T) {
	e, conn, _ := newTestEnrollment(t)
	require.NoError(t, conn.Create(&models.Application{Reference: "INS-2025-0007", ParentID: "p"}).Error)

	draws := []int{7, 7, 42}
	e.randn = func(int) int {
		n := draws[0]
		draws = draws[1:]
		return n
	}
	ref, err := e.nextReference(conn, 2025)
	require.NoError(t, err)
	assert.Equal(t, "INS-2025-0042", ref)
}

func TestNextReference_Exhausted(t *testing.T) {
	e, conn, _ := newTestEnrollment(t)
	require.NoError(t, conn.Create(&models.Application{Reference: "INS-2025-0007", ParentID: "p"}).Error)
	e.randn = func(int) int { return 7 }

	_, err := e.nextReference(conn, 2025)
	assert.True(t, errors.Is(err, ErrReferenceExhausted))
}

func TestNewEnrollment_ReferencePrefix(t *testing.T) {
	e := NewEnrollment(Options{ReferencePrefix: " ecole "})
	assert.Equal(t, "ECOLE", e.prefix)
	assert.Equal(t, "INS", NewEnrollment(Options{}).prefix)
}
