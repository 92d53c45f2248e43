package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Status of an application. Only StatusPending is written here; the others
// come from the school's review process.
type Status string

const (
	StatusPending          Status = "en_attente"
	StatusInProgress       Status = "en_cours"
	StatusMissingDocuments Status = "documents_manquants"
	StatusAccepted         Status = "acceptee"
	StatusRejected         Status = "refusee"
)

var AllStatuses = []Status{StatusPending, StatusInProgress, StatusMissingDocuments, StatusAccepted, StatusRejected}

func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "En attente"
	case StatusInProgress:
		return "En cours de traitement"
	case StatusMissingDocuments:
		return "Documents manquants"
	case StatusAccepted:
		return "Acceptée"
	case StatusRejected:
		return "Refusée"
	}
	return string(s)
}

type DocumentKind string

const (
	DocBirthCertificate       DocumentKind = "acte_naissance"
	DocVaccinationCertificate DocumentKind = "certificat_vaccination"
	DocProofOfResidence       DocumentKind = "justificatif_domicile"
	DocReportCards            DocumentKind = "bulletins"
	DocOther                  DocumentKind = "autre"
)

var DocumentKinds = []DocumentKind{DocBirthCertificate, DocVaccinationCertificate, DocProofOfResidence, DocReportCards, DocOther}

func (k DocumentKind) Valid() bool {
	for _, v := range DocumentKinds {
		if v == k {
			return true
		}
	}
	return false
}

func (k DocumentKind) Label() string {
	switch k {
	case DocBirthCertificate:
		return "Acte de naissance"
	case DocVaccinationCertificate:
		return "Certificat de vaccination"
	case DocProofOfResidence:
		return "Justificatif de domicile"
	case DocReportCards:
		return "Bulletins scolaires"
	}
	return "Autre document"
}

const (
	UploaderParent = "parent"
	UploaderAdmin  = "admin"
)

// Base gives every row a uuid primary key.
type Base struct {
	ID        string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type ParentProfile struct {
	Base
	UserID    string `gorm:"uniqueIndex;not null"` // identity provider subject
	Nom       string
	Prenom    string
	Telephone string
	Email     string
}

type Application struct {
	Base
	Reference      string `gorm:"uniqueIndex;not null"` // e.g. INS-2025-0042
	ParentID       string `gorm:"index;index:idx_app_parent_status,priority:1;not null"`
	DesiredClass   string
	Status         Status `gorm:"size:32;not null;default:en_attente;index:idx_app_parent_status,priority:2"`
	SubmittedAt    *time.Time
	LastModifiedAt time.Time

	Child       *Child       `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE"`
	ParentInfo  *ParentInfo  `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE"`
	MedicalInfo *MedicalInfo `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE"`
	Documents   []Document   `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE"`
}

func (a Application) Editable() bool { return a.Status == StatusPending }

type Child struct {
	Base
	ApplicationID string `gorm:"uniqueIndex;not null"`
	Nom           string
	Prenom        string
	BirthDate     time.Time
	Birthplace    string
	Sex           string `gorm:"size:1"`
	PhotoURL      string
}

func (Child) TableName() string { return "children" }

type ParentInfo struct {
	Base
	ApplicationID string `gorm:"uniqueIndex;not null"`

	FatherNom        string
	FatherPrenom     string
	FatherProfession string
	FatherTelephone  string
	FatherEmail      string

	MotherNom        string
	MotherPrenom     string
	MotherProfession string
	MotherTelephone  string
	MotherEmail      string

	GuardianNom       string
	GuardianPrenom    string
	GuardianRelation  string
	GuardianTelephone string

	Address string

	EmergencyNom       string
	EmergencyTelephone string
	EmergencyRelation  string
}

func (ParentInfo) TableName() string { return "parent_information" }

type MedicalInfo struct {
	Base
	ApplicationID     string `gorm:"uniqueIndex;not null"`
	BloodType         string
	Allergies         string
	ChronicConditions string
	OngoingTreatments string
	PhysicianName     string
	PhysicianPhone    string
}

func (MedicalInfo) TableName() string { return "medical_information" }

type Document struct {
	Base
	ApplicationID string       `gorm:"index;index:idx_doc_app_kind,priority:1;not null"`
	Kind          DocumentKind `gorm:"size:32;not null;index:idx_doc_app_kind,priority:2"`
	Filename      string
	StorageURL    string
	StoragePath   string
	Size          int64
	UploadedBy    string `gorm:"size:16;default:parent"`
	UploadedAt    time.Time
}

// DraftRecord backs the SQL draft store. The payload is the serialized wizard draft.
type DraftRecord struct {
	ID            string `gorm:"primaryKey;size:36"`
	Payload       datatypes.JSON
	ApplicationID string `gorm:"index"`
	UpdatedAt     time.Time
}

func (DraftRecord) TableName() string { return "drafts" }
