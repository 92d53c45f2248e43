package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/RayanGhomsi/Prestige/internal/db"
	"github.com/RayanGhomsi/Prestige/internal/identity"
	"github.com/RayanGhomsi/Prestige/internal/models"
	"github.com/RayanGhomsi/Prestige/internal/storage/mocks"
	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

var fatou = identity.User{
	ID:       "user-fatou",
	Email:    "fatou@example.cm",
	Metadata: identity.Metadata{Nom: "Diallo", Prenom: "Fatou", Telephone: "699123456"},
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_foreign_keys=on"
	conn, err := db.Open(db.Options{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	return conn
}

func newTestEnrollment(t *testing.T) (*Enrollment, *gorm.DB, *mocks.MockBucket) {
	t.Helper()
	conn := testDB(t)
	bucket := &mocks.MockBucket{}
	e := NewEnrollment(Options{DB: conn, Bucket: bucket})
	e.now = func() time.Time { return time.Date(2025, 9, 1, 9, 30, 0, 0, time.UTC) }
	return e, conn, bucket
}

// bucketOK accepts every upload and serves a predictable URL.
func bucketOK(b *mocks.MockBucket) {
	b.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	b.On("URL", mock.Anything, mock.Anything).Return("https://files.example/doc", nil)
	b.On("Delete", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func pdf(name string) *wizard.Attachment {
	return &wizard.Attachment{Filename: name, ContentType: "application/pdf", Size: 1024, Data: []byte("%PDF-1.4")}
}

func completeDraft() *wizard.Draft {
	d := wizard.NewDraft()
	d.SetChild(wizard.ChildStep{
		Nom: "Diallo", Prenom: "Awa", DateNaissance: "2017-03-02",
		LieuNaissance: "Douala", Sexe: "F", ClasseSouhaitee: "CP",
	})
	d.SetParents(wizard.ParentsStep{
		MereNom: "Diallo", MerePrenom: "Fatou", MereTelephone: "699123456",
		MereEmail:  "Fatou@Example.cm",
		UrgenceNom: "Ndiaye", UrgenceTelephone: "677000111", UrgenceLien: "Oncle",
	})
	d.SetMedical(wizard.MedicalStep{GroupeSanguin: "O+", Allergies: "Arachides"})
	d.SetDocuments(wizard.DocumentsStep{
		ActeNaissance:         pdf("acte.pdf"),
		CertificatVaccination: pdf("vaccins.pdf"),
		JustificatifDomicile:  pdf("facture.pdf"),
	})
	d.Step = wizard.LastStep
	return d
}

func count(t *testing.T, conn *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(model).Count(&n).Error)
	return n
}

func countAll(t *testing.T, conn *gorm.DB) map[string]int64 {
	return map[string]int64{
		"applications": count(t, conn, &models.Application{}),
		"children":     count(t, conn, &models.Child{}),
		"parent_info":  count(t, conn, &models.ParentInfo{}),
		"medical_info": count(t, conn, &models.MedicalInfo{}),
		"documents":    count(t, conn, &models.Document{}),
	}
}

// failCreatesOn makes every INSERT into table fail.
func failCreatesOn(t *testing.T, conn *gorm.DB, table string, err error) {
	t.Helper()
	require.NoError(t, conn.Callback().Create().Before("gorm:create").Register("test:fail_"+table, func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == table {
			_ = tx.AddError(err)
		}
	}))
}
