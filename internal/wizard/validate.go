package wizard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RayanGhomsi/Prestige/internal/models"
)

const (
	MaxRequiredDocSize = 2 * 1024 * 1024
	MaxOptionalSize    = 5 * 1024 * 1024
)

var (
	DocTypes   = []string{"application/pdf"}
	ImageTypes = []string{"image/jpeg", "image/jpg", "image/png"}
)

// Grades offered for enrollment, in school order.
var Grades = []string{
	"Maternelle Petite Section",
	"Maternelle Moyenne Section",
	"Maternelle Grande Section",
	"CP",
	"CE1",
	"CE2",
	"CM1",
	"CM2",
}

var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

const msgPhone = "Le numéro de téléphone doit contenir 9 chiffres"

// FieldErrors maps a form field name to a user-facing message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (fe FieldErrors) phone(field, value string) {
	if !ValidPhone(value) {
		fe[field] = msgPhone
	}
}

func (fe FieldErrors) email(field, value string) {
	if _, ok := NormEmail(value); !ok {
		fe[field] = "Email invalide"
	}
}

func (fe FieldErrors) merge(other FieldErrors) {
	for k, v := range other {
		fe[k] = v
	}
}

// StepPayload is the data submitted for one wizard step.
type StepPayload interface {
	Step() int
	Validate() FieldErrors
}

// CheckFile returns a message when a is too large or of a type not in accepted.
func CheckFile(a *Attachment, maxSize int64, accepted []string) string {
	if a.Size > maxSize {
		return fmt.Sprintf("Le fichier est trop volumineux. Taille maximale: %dMB", maxSize/1024/1024)
	}
	for _, t := range accepted {
		if a.ContentType == t {
			return ""
		}
	}
	return "Type de fichier non accepté. Types acceptés: " + strings.Join(accepted, ", ")
}

// ChildStep (étape 1).
type ChildStep struct {
	Nom             string      `json:"nom"`
	Prenom          string      `json:"prenom"`
	DateNaissance   string      `json:"date_naissance"`
	LieuNaissance   string      `json:"lieu_naissance"`
	Sexe            string      `json:"sexe"`
	ClasseSouhaitee string      `json:"classe_souhaitee"`
	Photo           *Attachment `json:"photo,omitempty"`
}

func (ChildStep) Step() int { return 1 }

func (s ChildStep) Validate() FieldErrors {
	fe := FieldErrors{}
	if !minLen(s.Nom, 2) {
		fe["nom"] = "Le nom doit contenir au moins 2 caractères"
	}
	if !minLen(s.Prenom, 2) {
		fe["prenom"] = "Le prénom doit contenir au moins 2 caractères"
	}
	if blank(s.DateNaissance) {
		fe["date_naissance"] = "La date de naissance est requise"
	} else if _, err := ParseBirthDate(s.DateNaissance); err != nil {
		fe["date_naissance"] = "La date de naissance est invalide"
	}
	if !minLen(s.LieuNaissance, 2) {
		fe["lieu_naissance"] = "Le lieu de naissance est requis"
	}
	if s.Sexe != "M" && s.Sexe != "F" {
		fe["sexe"] = "Le sexe est requis"
	}
	if !validGrade(s.ClasseSouhaitee) {
		fe["classe_souhaitee"] = "La classe souhaitée est requise"
	}
	if s.Photo != nil {
		if msg := CheckFile(s.Photo, MaxOptionalSize, ImageTypes); msg != "" {
			fe["photo"] = msg
		}
	}
	return fe
}

func validGrade(g string) bool {
	for _, v := range Grades {
		if v == g {
			return true
		}
	}
	return false
}

// ParentsStep (étape 2).
type ParentsStep struct {
	PereNom        string `json:"pere_nom"`
	PerePrenom     string `json:"pere_prenom"`
	PereProfession string `json:"pere_profession"`
	PereTelephone  string `json:"pere_telephone"`
	PereEmail      string `json:"pere_email"`

	MereNom        string `json:"mere_nom"`
	MerePrenom     string `json:"mere_prenom"`
	MereProfession string `json:"mere_profession"`
	MereTelephone  string `json:"mere_telephone"`
	MereEmail      string `json:"mere_email"`

	TuteurNom       string `json:"tuteur_nom"`
	TuteurPrenom    string `json:"tuteur_prenom"`
	TuteurLien      string `json:"tuteur_lien"`
	TuteurTelephone string `json:"tuteur_telephone"`

	AdresseComplete string `json:"adresse_complete"`

	UrgenceNom       string `json:"urgence_nom"`
	UrgenceTelephone string `json:"urgence_telephone"`
	UrgenceLien      string `json:"urgence_lien"`
}

func (ParentsStep) Step() int { return 2 }

func (s ParentsStep) Validate() FieldErrors {
	fe := FieldErrors{}

	father := !blank(s.PereNom) && !blank(s.PerePrenom) && !blank(s.PereTelephone)
	mother := !blank(s.MereNom) && !blank(s.MerePrenom) && !blank(s.MereTelephone)
	if !father && !mother {
		fe["pere_nom"] = "Au moins un parent (père ou mère) doit avoir un nom, un prénom et un téléphone"
	}

	fe.phone("pere_telephone", s.PereTelephone)
	fe.phone("mere_telephone", s.MereTelephone)
	fe.phone("tuteur_telephone", s.TuteurTelephone)
	fe.email("pere_email", s.PereEmail)
	fe.email("mere_email", s.MereEmail)

	if blank(s.UrgenceNom) {
		fe["urgence_nom"] = "Le nom de la personne à contacter est requis"
	}
	if blank(s.UrgenceTelephone) {
		fe["urgence_telephone"] = "Le téléphone d'urgence est requis"
	} else {
		fe.phone("urgence_telephone", s.UrgenceTelephone)
	}
	if blank(s.UrgenceLien) {
		fe["urgence_lien"] = "Le lien de parenté est requis"
	}
	return fe
}

// MedicalStep (étape 3). Every field is optional.
type MedicalStep struct {
	GroupeSanguin      string `json:"groupe_sanguin"`
	Allergies          string `json:"allergies"`
	MaladiesChroniques string `json:"maladies_chroniques"`
	TraitementsEnCours string `json:"traitements_en_cours"`
	MedecinNom         string `json:"medecin_nom"`
	MedecinTelephone   string `json:"medecin_telephone"`
}

func (MedicalStep) Step() int { return 3 }

func (s MedicalStep) Validate() FieldErrors {
	fe := FieldErrors{}
	fe.phone("medecin_telephone", s.MedecinTelephone)
	return fe
}

// DocumentsStep (étape 4).
type DocumentsStep struct {
	ActeNaissance         *Attachment `json:"acte_naissance,omitempty"`
	CertificatVaccination *Attachment `json:"certificat_vaccination,omitempty"`
	JustificatifDomicile  *Attachment `json:"justificatif_domicile,omitempty"`
	Bulletins             *Attachment `json:"bulletins,omitempty"`
}

func (DocumentsStep) Step() int { return 4 }

// RequiredDocuments must all be present before leaving step 4.
var RequiredDocuments = []models.DocumentKind{
	models.DocBirthCertificate,
	models.DocVaccinationCertificate,
	models.DocProofOfResidence,
}

// Files lists the attached files by kind, mandatory kinds first.
func (s DocumentsStep) Files() []KindFile {
	var out []KindFile
	for _, kf := range []KindFile{
		{models.DocBirthCertificate, s.ActeNaissance},
		{models.DocVaccinationCertificate, s.CertificatVaccination},
		{models.DocProofOfResidence, s.JustificatifDomicile},
		{models.DocReportCards, s.Bulletins},
	} {
		if kf.File != nil {
			out = append(out, kf)
		}
	}
	return out
}

// Set attaches a to the slot for kind. Unknown kinds are ignored.
func (s *DocumentsStep) Set(kind models.DocumentKind, a *Attachment) {
	switch kind {
	case models.DocBirthCertificate:
		s.ActeNaissance = a
	case models.DocVaccinationCertificate:
		s.CertificatVaccination = a
	case models.DocProofOfResidence:
		s.JustificatifDomicile = a
	case models.DocReportCards:
		s.Bulletins = a
	}
}

func (s DocumentsStep) Get(kind models.DocumentKind) *Attachment {
	for _, kf := range s.Files() {
		if kf.Kind == kind {
			return kf.File
		}
	}
	return nil
}

type KindFile struct {
	Kind models.DocumentKind
	File *Attachment
}

// LimitFor is the size ceiling for a document kind.
func LimitFor(kind models.DocumentKind) int64 {
	for _, k := range RequiredDocuments {
		if k == kind {
			return MaxRequiredDocSize
		}
	}
	return MaxOptionalSize
}

func (s DocumentsStep) Validate() FieldErrors {
	fe := FieldErrors{}
	for _, kind := range RequiredDocuments {
		if s.Get(kind) == nil {
			fe[string(kind)] = kind.Label() + " est requis"
		}
	}
	for _, kf := range s.Files() {
		if msg := CheckFile(kf.File, LimitFor(kf.Kind), DocTypes); msg != "" {
			fe[string(kf.Kind)] = msg
		}
	}
	return fe
}

// ReviewStep (étape 5) only carries the honesty attestation.
type ReviewStep struct {
	Attestation bool
}

func (ReviewStep) Step() int { return 5 }

func (s ReviewStep) Validate() FieldErrors {
	fe := FieldErrors{}
	if !s.Attestation {
		fe["attestation"] = "Vous devez certifier l'exactitude des informations"
	}
	return fe
}

// ValidateDraft re-runs the validators of steps 1 to 4.
func ValidateDraft(d *Draft) FieldErrors {
	fe := FieldErrors{}
	if d.Child != nil {
		fe.merge(d.Child.Validate())
	}
	if d.Parents != nil {
		fe.merge(d.Parents.Validate())
	}
	if d.Medical != nil {
		fe.merge(d.Medical.Validate())
	}
	if d.Documents != nil {
		fe.merge(d.Documents.Validate())
	}
	return fe
}
