package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/RayanGhomsi/Prestige/internal/models"
	"github.com/RayanGhomsi/Prestige/internal/services"
	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

// formFromDetail turns the stored sections back into the wizard's field shapes.
func formFromDetail(d *services.Detail) services.EditForm {
	f := services.EditForm{}
	if c := d.Child; c != nil {
		f.Child = wizard.ChildStep{
			Nom:             c.Nom,
			Prenom:          c.Prenom,
			DateNaissance:   c.BirthDate.Format("2006-01-02"),
			LieuNaissance:   c.Birthplace,
			Sexe:            c.Sex,
			ClasseSouhaitee: d.DesiredClass,
		}
	}
	if p := d.ParentInfo; p != nil {
		f.Parents = wizard.ParentsStep{
			PereNom: p.FatherNom, PerePrenom: p.FatherPrenom, PereProfession: p.FatherProfession,
			PereTelephone: p.FatherTelephone, PereEmail: p.FatherEmail,
			MereNom: p.MotherNom, MerePrenom: p.MotherPrenom, MereProfession: p.MotherProfession,
			MereTelephone: p.MotherTelephone, MereEmail: p.MotherEmail,
			TuteurNom: p.GuardianNom, TuteurPrenom: p.GuardianPrenom,
			TuteurLien: p.GuardianRelation, TuteurTelephone: p.GuardianTelephone,
			AdresseComplete:  p.Address,
			UrgenceNom:       p.EmergencyNom,
			UrgenceTelephone: p.EmergencyTelephone,
			UrgenceLien:      p.EmergencyRelation,
		}
	}
	if m := d.MedicalInfo; m != nil {
		f.Medical = wizard.MedicalStep{
			GroupeSanguin:      m.BloodType,
			Allergies:          m.Allergies,
			MaladiesChroniques: m.ChronicConditions,
			TraitementsEnCours: m.OngoingTreatments,
			MedecinNom:         m.PhysicianName,
			MedecinTelephone:   m.PhysicianPhone,
		}
	}
	return f
}

func (h *Handlers) renderEdit(w http.ResponseWriter, r *http.Request, status int, d *services.Detail, f services.EditForm, errs wizard.FieldErrors) {
	if errs == nil {
		errs = wizard.FieldErrors{}
	}
	h.render(w, r, h.editView, "edit.tmpl", status, map[string]any{
		"Title":   "Modifier " + d.Reference,
		"App":     d,
		"Child":   f.Child,
		"Parents": f.Parents,
		"Medical": f.Medical,
		"Errors":  errs,
		"Kinds":   models.DocumentKinds,
	})
}

// editable loads the detail after checking the application may still change.
func (h *Handlers) editable(w http.ResponseWriter, r *http.Request, id string) (*services.Detail, bool) {
	ctx := r.Context()
	_, err := h.Enrollment.EnsureEditable(ctx, h.user(r), id)
	switch {
	case errors.Is(err, services.ErrNotFound):
		h.notFound(w, r)
		return nil, false
	case errors.Is(err, services.ErrNotEditable):
		redirect(w, r, "/demandes/"+id+"?error=not_editable")
		return nil, false
	case err != nil:
		h.internal(w, r, "edit check failed", err)
		return nil, false
	}
	d, err := h.Enrollment.Get(ctx, h.user(r), id)
	if err != nil {
		h.internal(w, r, "load application failed", err)
		return nil, false
	}
	return d, true
}

// GET /demandes/{id}/modifier
func (h *Handlers) EditForm(w http.ResponseWriter, r *http.Request) {
	d, ok := h.editable(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	h.renderEdit(w, r, http.StatusOK, d, formFromDetail(d), nil)
}

// POST /demandes/{id}/modifier
func (h *Handlers) EditSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	// refuse before reading a possibly large body
	d, ok := h.editable(w, r, id)
	if !ok {
		return
	}
	if err := parseForm(w, r); err != nil {
		if tooLarge(err) {
			redirect(w, r, "/demandes/"+id+"/modifier?error=upload_too_large")
			return
		}
		redirect(w, r, "/demandes/"+id+"/modifier?error=bad_form")
		return
	}

	f := services.EditForm{
		Child:     childForm(r),
		Parents:   parentsForm(r),
		Medical:   medicalForm(r),
		Documents: map[models.DocumentKind]*wizard.Attachment{},
	}
	photo, err := readAttachment(r, "photo")
	if err != nil {
		redirect(w, r, "/demandes/"+id+"/modifier?error=bad_form")
		return
	}
	f.Child.Photo = photo
	for _, kind := range models.DocumentKinds {
		a, err := readAttachment(r, string(kind))
		if err != nil {
			redirect(w, r, "/demandes/"+id+"/modifier?error=bad_form")
			return
		}
		if a != nil {
			f.Documents[kind] = a
		}
	}

	outcomes, err := h.Enrollment.Update(ctx, h.user(r), id, f)
	var fe wizard.FieldErrors
	switch {
	case errors.As(err, &fe):
		f.Child.Photo = nil
		h.renderEdit(w, r, http.StatusUnprocessableEntity, d, f, fe)
		return
	case errors.Is(err, services.ErrNotEditable):
		redirect(w, r, "/demandes/"+id+"?error=not_editable")
		return
	case errors.Is(err, services.ErrNotFound):
		h.notFound(w, r)
		return
	case err != nil:
		h.internal(w, r, "application update failed", err)
		return
	}
	for _, o := range outcomes {
		if !o.OK() {
			h.Log.Warn(ctx, "document replacement failed", "application_id", id, "slot", o.Slot, "err", o.Err)
			redirect(w, r, "/demandes/"+id+"?error=upload_failed")
			return
		}
	}
	redirect(w, r, "/demandes/"+id+"?ok=saved")
}

// POST /demandes/{id}/documents/{doc}/supprimer
func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.Enrollment.DeleteDocument(r.Context(), h.user(r), id, chi.URLParam(r, "doc"))
	switch {
	case errors.Is(err, services.ErrNotFound):
		h.notFound(w, r)
	case errors.Is(err, services.ErrNotEditable):
		redirect(w, r, "/demandes/"+id+"?error=not_editable")
	case err != nil:
		h.internal(w, r, "document delete failed", err)
	default:
		redirect(w, r, "/demandes/"+id+"/modifier?ok=doc_deleted")
	}
}
