package handlers

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

const (
	maxRequestBytes = 24 << 20
	maxMemory       = 8 << 20
)

func field(r *http.Request, name string) string {
	return strings.TrimSpace(r.FormValue(name))
}

// parseForm accepts both urlencoded and multipart bodies.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		return r.ParseMultipartForm(maxMemory)
	}
	return r.ParseForm()
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// readAttachment returns nil when the field was left empty.
func readAttachment(r *http.Request, name string) (*wizard.Attachment, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	f, hdr, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	defer f.Close()
	if hdr.Filename == "" && hdr.Size == 0 {
		return nil, nil
	}
	// one byte past the largest limit is enough for validation to reject it
	data, err := io.ReadAll(io.LimitReader(f, wizard.MaxOptionalSize+1))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	ct := hdr.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return &wizard.Attachment{
		Filename:    filepath.Base(hdr.Filename),
		ContentType: ct,
		Size:        hdr.Size,
		Data:        data,
	}, nil
}

func childForm(r *http.Request) wizard.ChildStep {
	return wizard.ChildStep{
		Nom:             field(r, "nom"),
		Prenom:          field(r, "prenom"),
		DateNaissance:   field(r, "date_naissance"),
		LieuNaissance:   field(r, "lieu_naissance"),
		Sexe:            field(r, "sexe"),
		ClasseSouhaitee: field(r, "classe_souhaitee"),
	}
}

func parentsForm(r *http.Request) wizard.ParentsStep {
	return wizard.ParentsStep{
		PereNom:          field(r, "pere_nom"),
		PerePrenom:       field(r, "pere_prenom"),
		PereProfession:   field(r, "pere_profession"),
		PereTelephone:    field(r, "pere_telephone"),
		PereEmail:        field(r, "pere_email"),
		MereNom:          field(r, "mere_nom"),
		MerePrenom:       field(r, "mere_prenom"),
		MereProfession:   field(r, "mere_profession"),
		MereTelephone:    field(r, "mere_telephone"),
		MereEmail:        field(r, "mere_email"),
		TuteurNom:        field(r, "tuteur_nom"),
		TuteurPrenom:     field(r, "tuteur_prenom"),
		TuteurLien:       field(r, "tuteur_lien"),
		TuteurTelephone:  field(r, "tuteur_telephone"),
		AdresseComplete:  field(r, "adresse_complete"),
		UrgenceNom:       field(r, "urgence_nom"),
		UrgenceTelephone: field(r, "urgence_telephone"),
		UrgenceLien:      field(r, "urgence_lien"),
	}
}

func medicalForm(r *http.Request) wizard.MedicalStep {
	return wizard.MedicalStep{
		GroupeSanguin:      field(r, "groupe_sanguin"),
		Allergies:          field(r, "allergies"),
		MaladiesChroniques: field(r, "maladies_chroniques"),
		TraitementsEnCours: field(r, "traitements_en_cours"),
		MedecinNom:         field(r, "medecin_nom"),
		MedecinTelephone:   field(r, "medecin_telephone"),
	}
}
